package preflight

import (
	"fmt"
	"os"
	"strings"

	"asrprep/internal/config"
	"asrprep/internal/prep"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Request names the directories a command is about to read and write.
type Request struct {
	InputDir  string
	InputName string
	OutputDir string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(cfg *config.Config, req Request) []Result {
	var results []Result

	if req.InputDir != "" {
		name := req.InputName
		if name == "" {
			name = "Input directory"
		}
		results = append(results, CheckReadableDirectory(name, req.InputDir))
	}

	if req.OutputDir != "" {
		results = append(results, CheckOutputDirectory("Output directory", req.OutputDir))
		if cfg != nil {
			results = append(results, CheckFreeSpace("Free space", req.OutputDir, cfg.Preflight.MinFreeGiB))
		}
	}

	// Process workers re-exec this binary.
	if cfg != nil && cfg.Executor.Kind == "process" {
		binary, err := os.Executable()
		if err != nil {
			results = append(results, Result{Name: "Worker binary", Detail: err.Error()})
		} else {
			results = append(results, CheckExecutable("Worker binary", binary))
		}
	}

	return results
}

// Err returns a configuration error describing every failed check, or nil.
func Err(results []Result) error {
	var failed []string
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, fmt.Sprintf("%s: %s", r.Name, r.Detail))
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return prep.Wrap(prep.ErrConfiguration, "preflight", "check", strings.Join(failed, "; "), nil)
}
