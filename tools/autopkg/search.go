package autopkg

import (
	"context"
	"fmt"
	"os/exec"
	"path"
	"strings"

	"github.com/deploymenttheory/macos-recipe-robot/tools/errors"
	"github.com/deploymenttheory/macos-recipe-robot/tools/logger"
	"golang.org/x/time/rate"
)

// SearchOptions configures Searcher.
type SearchOptions struct {
	PrefsPath string
	UseToken  bool
	// RequestsPerSecond caps calls to `autopkg search`, which queries the
	// GitHub code search API. Zero means one per second.
	RequestsPerSecond float64
}

// CommandRunner runs an external command and returns its combined output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Searcher queries the public AutoPkg recipe index through `autopkg search`.
type Searcher struct {
	options *SearchOptions
	limiter *rate.Limiter
	run     CommandRunner
}

// NewSearcher returns a Searcher. A nil options uses the defaults.
func NewSearcher(options *SearchOptions) *Searcher {
	if options == nil {
		options = &SearchOptions{}
	}
	rps := options.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	return &Searcher{
		options: options,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		run:     execRunner,
	}
}

// WithRunner replaces the command runner.
func (s *Searcher) WithRunner(run CommandRunner) *Searcher {
	s.run = run
	return s
}

// Search returns the base names of recipes matching name, for example
// "Firefox.munki.recipe". An empty result is not an error.
func (s *Searcher) Search(ctx context.Context, name string) ([]string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	cmdArgs := []string{"search", "--path-only"}
	if s.options.PrefsPath != "" {
		cmdArgs = append(cmdArgs, "--prefs", s.options.PrefsPath)
	}
	if s.options.UseToken {
		cmdArgs = append(cmdArgs, "--use-token")
	}
	cmdArgs = append(cmdArgs, name)
	logger.Logger(fmt.Sprintf("🖥️  Running command: autopkg %s", strings.Join(cmdArgs, " ")), logger.LogDebug)

	output, err := s.run(ctx, "autopkg", cmdArgs...)
	if err != nil {
		if strings.Contains(string(output), "Nothing found") {
			return nil, nil
		}
		logger.Logger("❌ autopkg search command failed", logger.LogError)
		return nil, errors.Wrap(errors.ErrCodeSearchFailed, err, "autopkg search failed for %q", name)
	}
	return parseSearchOutput(string(output)), nil
}

// parseSearchOutput accepts both --path-only output and the default
// "Name Repo Path" table.
func parseSearchOutput(output string) []string {
	var results []string
	seen := map[string]bool{}
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		p := fields[len(fields)-1]
		if !IsRecipePath(p) {
			continue
		}
		base := path.Base(p)
		if seen[base] {
			continue
		}
		seen[base] = true
		logger.Logger(fmt.Sprintf("✅ Recipe found: %s", p), logger.LogDebug)
		results = append(results, base)
	}
	return results
}
