package harness

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gobwas/glob"

	"github.com/wishful-project/agent/internal/upi"
)

// MissingIface is an interface name that is not expected to exist on any
// host.
const MissingIface = "doesnotexist0"

// Case is a named harness check run against a set up fixture.
type Case struct {
	Name string
	Run  func(ctx context.Context, f *Fixture) error
}

// DefaultCases returns the standard harness cases for the given interface.
func DefaultCases(iface string) []Case {
	return []Case{
		{
			Name: "get_hw_addr",
			Run: func(ctx context.Context, f *Fixture) error {
				_, err := f.Query(ctx, iface)
				return err
			},
		},
		{
			Name: "get_hw_addr_missing_iface",
			Run: func(ctx context.Context, f *Fixture) error {
				hwAddr, err := f.Query(ctx, MissingIface)
				switch {
				case errors.Is(err, upi.ErrNotFound), errors.Is(err, ErrEmptyResult):
					return nil
				case err != nil:
					return err
				case hwAddr != "" && f.opts.Assert == AssertEnabled:
					return fmt.Errorf("expected no hardware address for %q, got %q", MissingIface, hwAddr)
				default:
					return nil
				}
			},
		},
		{
			Name: "get_agent_info",
			Run: func(ctx context.Context, f *Fixture) error {
				result, err := f.Call(ctx, "info.get_agent_info")
				if err != nil {
					return err
				}
				f.Log().Infof("agent info: %v", result)
				return nil
			},
		},
	}
}

// Filter selects cases by name.
type Filter struct {
	run  []glob.Glob
	skip []glob.Glob
}

// NewFilter compiles case name glob patterns.
//
// A case runs if it matches any run pattern, or there are none, and matches
// no skip pattern.
func NewFilter(run []string, skip []string) (*Filter, error) {
	runGlobs, err := compileGlobs(run)
	if err != nil {
		return nil, err
	}
	skipGlobs, err := compileGlobs(skip)
	if err != nil {
		return nil, err
	}

	return &Filter{run: runGlobs, skip: skipGlobs}, nil
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid case pattern %q: %w", pattern, err)
		}
		globs = append(globs, g)
	}
	return globs, nil
}

// Match reports whether the named case must run.
func (m *Filter) Match(name string) bool {
	if m == nil {
		return true
	}
	return (len(m.run) == 0 || anyMatch(m.run, name)) && !anyMatch(m.skip, name)
}

func anyMatch(globs []glob.Glob, name string) bool {
	for _, g := range globs {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// CaseResult is the outcome of a single case.
type CaseResult struct {
	Name     string
	Err      error
	Skipped  bool
	Duration time.Duration
}

// Results are the outcomes of a harness run.
type Results struct {
	Cases    []CaseResult
	Failures []CaseResult
}

// OK reports whether no case failed.
func (m Results) OK() bool {
	return len(m.Failures) == 0
}

// RunCases runs the selected cases in order against the fixture.
func RunCases(ctx context.Context, f *Fixture, cases []Case, filter *Filter, reporter Reporter) Results {
	results := Results{}

	for _, c := range cases {
		if !filter.Match(c.Name) {
			reporter.CaseSkipped(c.Name, "excluded by filter")
			results.Cases = append(results.Cases, CaseResult{Name: c.Name, Skipped: true})
			continue
		}

		reporter.CaseStarted(c.Name)

		startedAt := time.Now()
		err := c.Run(ctx, f)
		result := CaseResult{
			Name:     c.Name,
			Err:      err,
			Duration: time.Since(startedAt),
		}

		reporter.CaseFinished(result)
		results.Cases = append(results.Cases, result)
		if err != nil {
			results.Failures = append(results.Failures, result)
		}
	}

	return results
}
