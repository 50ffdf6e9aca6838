package preflight

import (
	"context"
	"time"

	"cutdiff/internal/config"
	"cutdiff/internal/logging"
	"cutdiff/internal/publish"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckStore(ctx, cfg),
	}

	if cfg.ObjectStore.Enabled {
		publisher, err := publish.New(cfg.ObjectStore, logging.NewNop())
		if err != nil {
			results = append(results, Result{Name: objectStoreName, Detail: err.Error()})
		} else {
			results = append(results, CheckObjectStore(ctx, publisher))
		}
	}

	return results
}

const objectStoreName = "Object store"

type bucketChecker interface {
	Check(ctx context.Context) error
}

// CheckObjectStore verifies the publishing bucket is reachable.
// It uses a 10-second timeout and a single attempt.
func CheckObjectStore(ctx context.Context, checker bucketChecker) Result {
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := checker.Check(checkCtx); err != nil {
		return Result{Name: objectStoreName, Detail: err.Error()}
	}
	return Result{Name: objectStoreName, Passed: true, Detail: "Bucket reachable"}
}
