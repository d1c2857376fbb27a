package preflight

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"asrprep/internal/config"
	"asrprep/internal/prep"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckOutputDirectory_NotYetCreated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b")
	result := CheckOutputDirectory("out", path)
	if !result.Passed {
		t.Fatalf("expected pass for creatable dir, got: %s", result.Detail)
	}
	if !strings.Contains(result.Detail, "will be created") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckFreeSpace(t *testing.T) {
	dir := t.TempDir()
	if result := CheckFreeSpace("space", dir, 0); !result.Passed {
		t.Fatalf("expected zero floor to pass, got: %s", result.Detail)
	}
	if result := CheckFreeSpace("space", dir, 1<<40); result.Passed {
		t.Fatal("expected an exabyte floor to fail")
	}
}

func TestCheckExecutable(t *testing.T) {
	if result := CheckExecutable("bin", os.Args[0]); !result.Passed {
		t.Fatalf("expected test binary to be executable, got: %s", result.Detail)
	}
	f := filepath.Join(t.TempDir(), "plain")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := CheckExecutable("bin", f); result.Passed {
		t.Fatal("expected non-executable file to fail")
	}
}

func TestRunAllAndErr(t *testing.T) {
	cfg := config.Default()
	cfg.Preflight.MinFreeGiB = 0
	out := t.TempDir()

	results := RunAll(&cfg, Request{InputDir: t.TempDir(), OutputDir: out})
	if len(results) != 3 {
		t.Fatalf("expected 3 checks, got %d", len(results))
	}
	if err := Err(results); err != nil {
		t.Fatalf("expected all checks to pass, got %v", err)
	}

	results = RunAll(&cfg, Request{InputDir: filepath.Join(out, "missing"), InputName: "Corpus directory", OutputDir: out})
	err := Err(results)
	if !errors.Is(err, prep.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if !strings.Contains(err.Error(), "Corpus directory") {
		t.Fatalf("expected failing check name in error, got %v", err)
	}
}

func TestRunAllChecksWorkerBinaryForProcessExecutor(t *testing.T) {
	cfg := config.Default()
	cfg.Executor.Kind = "process"
	results := RunAll(&cfg, Request{})
	if len(results) != 1 || results[0].Name != "Worker binary" {
		t.Fatalf("expected only worker binary check, got %+v", results)
	}
}
