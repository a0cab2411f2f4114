package robot

import (
	"fmt"

	"github.com/deploymenttheory/macos-recipe-robot/tools/facts"
	"github.com/deploymenttheory/macos-recipe-robot/tools/recipe"
	"github.com/deploymenttheory/macos-recipe-robot/tools/report"
)

// synthesis carries one run's inputs through the per-kind builders.
type synthesis struct {
	cfg    Config
	facts  *facts.Facts
	states recipe.States
	rep    *report.Report
}

// Synthesize builds a document for every buildable state. States must be in
// walk order so that a parent's document exists before its children are
// built.
func Synthesize(cfg Config, f *facts.Facts, states recipe.States, rep *report.Report) {
	s := &synthesis{cfg: cfg, facts: f, states: states, rep: rep}
	for _, st := range states {
		if !st.Buildable {
			continue
		}
		st.Document = s.build(st.Kind)
	}
}

func (s *synthesis) build(k *recipe.Kind) *recipe.Document {
	doc := recipe.NewDocument(recipe.Identifier(s.cfg.IdentifierPrefix, k.Name, s.facts.SubjectName), s.facts.SubjectName)
	doc.Description = description(k.Name, s.facts.SubjectName)
	if s.cfg.Version != "" {
		doc.Comment = fmt.Sprintf("Generated by recipe-robot v%s", s.cfg.Version)
	}
	if k.Parent != nil {
		doc.ParentRecipe = s.parentIdentifier(k.Parent)
	}
	if b, ok := builders[k.Name]; ok {
		b(s, doc)
	} else {
		s.rep.Remind("no processor template for %s recipes; add processors by hand", k.Name)
	}
	return doc
}

// parentIdentifier prefers the parent built in this run, then the recipe the
// run started from, then the identifier the parent would have if it had been
// generated with the same prefix.
func (s *synthesis) parentIdentifier(parent *recipe.Kind) string {
	if st := s.states.Get(parent.Name); st != nil && st.Document != nil {
		return st.Document.Identifier
	}
	in := s.facts.InputType
	if in.Kind == facts.InputRecipe && in.RecipeKind != nil && in.RecipeKind.Name == parent.Name && s.facts.ParentIdentifier != "" {
		return s.facts.ParentIdentifier
	}
	return recipe.Identifier(s.cfg.IdentifierPrefix, parent.Name, s.facts.SubjectName)
}
