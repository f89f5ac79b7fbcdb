package health

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/jonwraymond/templategen/generate"
)

// DirChecker reports whether a directory is writable. It writes and
// removes a scratch file on each check.
type DirChecker struct {
	name string
	dir  string
}

// NewDirChecker creates a DirChecker for dir, registered as name.
func NewDirChecker(name, dir string) *DirChecker {
	return &DirChecker{name: name, dir: dir}
}

// Name implements Checker.
func (c *DirChecker) Name() string { return c.name }

// Check implements Checker.
func (c *DirChecker) Check(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return Unhealthy("context done", err)
	}
	details := map[string]any{"dir": c.dir}

	info, err := os.Stat(c.dir)
	if err != nil {
		return Unhealthy("directory unavailable", err).WithDetails(details)
	}
	if !info.IsDir() {
		return Unhealthy("not a directory", fmt.Errorf("%w: %s", ErrNotWritable, c.dir)).WithDetails(details)
	}

	f, err := os.CreateTemp(c.dir, ".health-*")
	if err != nil {
		return Unhealthy("directory not writable", fmt.Errorf("%w: %w", ErrNotWritable, err)).WithDetails(details)
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)

	return Healthy("writable").WithDetails(details)
}

// ExecutableChecker reports whether a program is on PATH. A missing
// optional program degrades the instance; a missing required one makes it
// unhealthy.
type ExecutableChecker struct {
	program  string
	required bool
}

// NewExecutableChecker creates an ExecutableChecker for program.
func NewExecutableChecker(program string, required bool) *ExecutableChecker {
	return &ExecutableChecker{program: program, required: required}
}

// Name implements Checker.
func (c *ExecutableChecker) Name() string { return "exec:" + c.program }

// Check implements Checker.
func (c *ExecutableChecker) Check(ctx context.Context) Result {
	path, err := exec.LookPath(c.program)
	if err != nil {
		err = fmt.Errorf("%w: %s", ErrExecutableMissing, c.program)
		if c.required {
			return Unhealthy(c.program+" not found", err)
		}
		r := Degraded(c.program + " not found")
		r.Error = err
		return r
	}
	return Healthy("found").WithDetails(map[string]any{"path": path})
}

// StatsSource reports build slot usage.
type StatsSource interface {
	Stats() generate.LimiterStats
}

// CapacityChecker reports degraded while every build slot is taken.
type CapacityChecker struct {
	source StatsSource
}

// NewCapacityChecker creates a CapacityChecker.
func NewCapacityChecker(source StatsSource) *CapacityChecker {
	return &CapacityChecker{source: source}
}

// Name implements Checker.
func (c *CapacityChecker) Name() string { return "build_capacity" }

// Check implements Checker.
func (c *CapacityChecker) Check(ctx context.Context) Result {
	s := c.source.Stats()
	details := map[string]any{
		"active":     s.Active,
		"max_active": s.MaxActive,
		"limit":      s.Limit,
	}
	if s.Limit > 0 && s.Active >= s.Limit {
		return Degraded("all build slots busy").WithDetails(details)
	}
	return Healthy("build slots available").WithDetails(details)
}

var (
	_ Checker     = (*DirChecker)(nil)
	_ Checker     = (*ExecutableChecker)(nil)
	_ Checker     = (*CapacityChecker)(nil)
	_ StatsSource = (*generate.Coordinator)(nil)
)
