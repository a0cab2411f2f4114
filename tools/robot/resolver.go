package robot

import (
	"context"
	"regexp"
	"strings"

	"github.com/deploymenttheory/macos-recipe-robot/tools/errors"
	"github.com/deploymenttheory/macos-recipe-robot/tools/recipe"
	"github.com/deploymenttheory/macos-recipe-robot/tools/report"
)

// RecipeSearcher queries the index of published recipes. Results are recipe
// file names or paths such as "Foo.munki.recipe".
type RecipeSearcher interface {
	Search(ctx context.Context, name string) ([]string, error)
}

var (
	whitespace = regexp.MustCompile(`[\s\p{Zs}]+`)
	nonWord    = regexp.MustCompile(`[^\p{L}\p{N}_]`)
)

// SearchVariants returns the exact name, the name without whitespace and the
// name without non-word characters, deduplicated and without empties.
func SearchVariants(name string) []string {
	candidates := []string{
		name,
		whitespace.ReplaceAllString(name, ""),
		nonWord.ReplaceAllString(name, ""),
	}
	var out []string
	seen := map[string]bool{}
	for _, c := range candidates {
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// Buildable is the buildability policy for one kind.
func Buildable(preferred, existing, includeExisting bool) bool {
	if includeExisting {
		return preferred
	}
	return preferred && !existing
}

// Resolve marks existing kinds from search results and computes Buildable
// for every state. A failed search is reported and treated as no results.
func Resolve(ctx context.Context, searcher RecipeSearcher, states recipe.States, subject string, includeExisting bool, rep *report.Report) error {
	if searcher == nil {
		rep.Warn("existing recipes not searched")
	} else {
		for _, variant := range SearchVariants(subject) {
			if err := ctx.Err(); err != nil {
				return err
			}
			if allResolved(states) {
				break
			}
			results, err := searcher.Search(ctx, variant)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				rep.Warn("search failed for %q, assuming no existing recipes [%s]: %v", variant, searchCode(err), err)
				continue
			}
			markExisting(states, variant, results)
		}
	}

	for _, st := range states {
		st.Buildable = Buildable(st.Preferred, st.Existing, includeExisting)
		rep.Resolved(st)
	}
	return nil
}

func searchCode(err error) errors.Code {
	if code := errors.GetCode(err); code != "" {
		return code
	}
	return errors.ErrCodeSearchFailed
}

func allResolved(states recipe.States) bool {
	for _, st := range states {
		if !st.Existing {
			return false
		}
	}
	return true
}

func markExisting(states recipe.States, variant string, results []string) {
	for _, st := range states {
		if st.Existing {
			continue
		}
		want := strings.ToLower(variant + st.Kind.FileSuffix())
		for _, r := range results {
			base := r
			if i := strings.LastIndex(base, "/"); i >= 0 {
				base = base[i+1:]
			}
			if strings.HasPrefix(strings.ToLower(base), want) {
				st.Existing = true
				break
			}
		}
	}
}
