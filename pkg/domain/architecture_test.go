package domain_test

import (
	"testing"

	"multicompare/testutil"
)

func TestDomainDoesNotImportInternal(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.InternalImportForbidden,
		"pkg/domain is shared by classifiers and stores and must stay free of internal packages")
}

func TestDomainHasNoTransitiveInternalDependency(t *testing.T) {
	if testing.Short() {
		t.Skip("go list in short mode")
	}
	testutil.AssertNoTransitiveDependency(t, "multicompare/pkg/domain", testutil.InternalImportForbidden,
		"pkg/domain must not pull internal packages in transitively")
}
