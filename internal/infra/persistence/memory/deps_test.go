package memory

import (
	"strings"
	"testing"

	"multicompare/testutil"
)

func TestImportsAreDomainOrThirdParty(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", func(path string) bool {
		return strings.HasPrefix(path, "multicompare/") && path != "multicompare/pkg/domain"
	}, "run stores depend only on pkg/domain")
}
