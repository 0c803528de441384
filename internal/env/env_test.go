package env

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, ".env")
	content := "# comment\nexport FELIXMART_TEST_A=one\nFELIXMART_TEST_B=\"two # not a comment\"\nFELIXMART_TEST_C=three # trailing\nFELIXMART_TEST_KEEP=file\nbroken\n"
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Setenv("FELIXMART_TEST_KEEP", "process")
	for _, k := range []string{"FELIXMART_TEST_A", "FELIXMART_TEST_B", "FELIXMART_TEST_C"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	applied, err := Load(p, filepath.Join(dir, "missing.env"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(applied) != 3 {
		t.Fatalf("applied = %v", applied)
	}
	cases := map[string]string{
		"FELIXMART_TEST_A":    "one",
		"FELIXMART_TEST_B":    "two # not a comment",
		"FELIXMART_TEST_C":    "three",
		"FELIXMART_TEST_KEEP": "process",
	}
	for k, want := range cases {
		if got := os.Getenv(k); got != want {
			t.Errorf("%s = %q, want %q", k, got, want)
		}
	}
}
