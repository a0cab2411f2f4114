// Package robot turns one input (an app, a recipe or a URL) into the set of
// AutoPkg recipes that can be generated for it.
//
// A run classifies the input, gathers facts about it, asks the recipe index
// which kinds already exist, and then walks the kind registry parent-first,
// building a document for every kind that is still buildable.
package robot

import (
	"context"
	"fmt"
	"strings"

	"github.com/deploymenttheory/macos-recipe-robot/tools/errors"
	"github.com/deploymenttheory/macos-recipe-robot/tools/facts"
	"github.com/deploymenttheory/macos-recipe-robot/tools/logger"
	"github.com/deploymenttheory/macos-recipe-robot/tools/recipe"
	"github.com/deploymenttheory/macos-recipe-robot/tools/report"
)

// Config is the caller's choice for one run.
type Config struct {
	// IdentifierPrefix is the reverse-domain prefix of every identifier.
	IdentifierPrefix string
	// IncludeExisting builds preferred kinds even when they already exist.
	IncludeExisting bool
	// Preferred lists the kind names the caller wants. Nil means all.
	Preferred []string
	// DSPackagesPath fills DS_PKGS_PATH in ds recipes.
	DSPackagesPath string
	// Version is stamped into each document's Comment when set.
	Version string
}

// Robot holds the collaborators shared by runs.
type Robot struct {
	Registry  *recipe.Registry
	Extractor *facts.Extractor
	Searcher  RecipeSearcher
	Hooks     report.Hooks
}

// Result is the outcome of a successful run.
type Result struct {
	InputType facts.InputType
	Facts     *facts.Facts
	States    recipe.States
	Report    *report.Report
}

// Documents maps kind name to document for every buildable kind.
func (r *Result) Documents() map[string]*recipe.Document {
	docs := make(map[string]*recipe.Document)
	for _, st := range r.States {
		if st.Buildable && st.Document != nil {
			docs[st.Kind.Name] = st.Document
		}
	}
	return docs
}

// Run processes input. Fatal conditions return an *errors.Error; everything
// recoverable ends up in Result.Report.
func (r *Robot) Run(ctx context.Context, cfg Config, input string) (*Result, error) {
	reg := r.Registry
	if reg == nil {
		reg = recipe.DefaultRegistry()
	}
	if cfg.IdentifierPrefix == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "identifier prefix must not be empty")
	}
	for _, name := range cfg.Preferred {
		if _, ok := reg.Lookup(name); !ok {
			return nil, errors.New(errors.ErrCodeInvalidInput, "unknown recipe type %q (want one of %s)", name, strings.Join(reg.Names(), ", "))
		}
	}

	rep := report.New(r.Hooks)
	input = strings.TrimSpace(input)

	inputType, err := facts.Classify(input, reg)
	if err != nil {
		return nil, err
	}
	logger.Logger(fmt.Sprintf("🔍 Input is %s", inputType), logger.LogInfo)

	extractor := r.Extractor
	if extractor == nil {
		extractor = &facts.Extractor{}
	}
	f, err := extractor.Extract(ctx, input, inputType, rep)
	if err != nil {
		return nil, err
	}
	if f.SubjectName == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "cannot determine a product name from %q", input)
	}

	states := recipe.NewStates(reg, cfg.Preferred)
	if err := Resolve(ctx, r.Searcher, states, f.SubjectName, cfg.IncludeExisting, rep); err != nil {
		return nil, err
	}
	if len(states.Buildable()) == 0 {
		return nil, errors.New(errors.ErrCodeNoBuildableRecipes, "no buildable recipes for %s", f.SubjectName)
	}

	Synthesize(cfg, f, states, rep)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger.Logger(fmt.Sprintf("✅ Built %d recipe(s) for %s", len(states.Buildable()), f.SubjectName), logger.LogSuccess)
	return &Result{InputType: inputType, Facts: f, States: states, Report: rep}, nil
}
