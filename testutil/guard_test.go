package testutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type recordingFatal struct{ msg string }

func (r *recordingFatal) Fatalf(format string, args ...any) { r.msg = fmt.Sprintf(format, args...) }

func TestPredicates(t *testing.T) {
	if !InternalImportForbidden("example.com/mod/internal/x") || InternalImportForbidden("example.com/mod/pkg/x") {
		t.Fatalf("unexpected InternalImportForbidden results")
	}
	p := PrefixForbidden("multicompare/internal/infra")
	if !p("multicompare/internal/infra") || !p("multicompare/internal/infra/blob/s3") || p("multicompare/internal/infrastructure") {
		t.Fatalf("unexpected PrefixForbidden results")
	}
}

func TestDirectImportViolations(t *testing.T) {
	dir := t.TempDir()
	src := "package tmp\n\nimport (\n\t\"fmt\"\n\t\"example.com/mod/internal/secret\"\n)\n\nvar _ = fmt.Sprint\nvar _ = secret.X\n"
	if err := os.WriteFile(filepath.Join(dir, "x.go"), []byte(src), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "x_test.go"), []byte("package tmp\nimport \"example.com/mod/internal/other\"\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	viols, err := directImportViolations(dir, InternalImportForbidden)
	if err != nil {
		t.Fatalf("violations: %v", err)
	}
	if len(viols) != 1 || !strings.HasPrefix(viols[0], "example.com/mod/internal/secret") {
		t.Fatalf("unexpected violations %v", viols)
	}
	AssertNoDirectImports(t, dir, func(string) bool { return false }, "none")
	if _, err := directImportViolations(filepath.Join(dir, "missing"), InternalImportForbidden); err == nil {
		t.Fatalf("expected read error")
	}
}

func TestTransitiveDependencyViolations(t *testing.T) {
	old := goListDeps
	defer func() { goListDeps = old }()
	goListDeps = func(string) ([]byte, error) {
		return []byte("fmt\nmulticompare/pkg/domain\nmulticompare/internal/core\n"), nil
	}
	viols, _, err := transitiveDependencyViolations(".", InternalImportForbidden)
	if err != nil || len(viols) != 1 || viols[0] != "multicompare/internal/core" {
		t.Fatalf("unexpected result %v %v", viols, err)
	}
	goListDeps = func(string) ([]byte, error) { return []byte("boom"), errors.New("exit 1") }
	if _, out, err := transitiveDependencyViolations(".", InternalImportForbidden); err == nil || string(out) != "boom" {
		t.Fatalf("expected go list error")
	}
}

func TestFailIfViolations(t *testing.T) {
	r := &recordingFatal{}
	failIfViolations(r, "forbidden direct imports", "reason", nil)
	if r.msg != "" {
		t.Fatalf("unexpected failure %q", r.msg)
	}
	failIfViolations(r, "forbidden direct imports", "reason", []string{"a", "b"})
	if !strings.Contains(r.msg, "reason") || !strings.Contains(r.msg, "a\nb") {
		t.Fatalf("unexpected message %q", r.msg)
	}
}
