// Package facts classifies a recipe-robot input and gathers what can be
// learned about the software behind it: its name, where updates come from,
// how downloads are packaged, and how the app is signed.
//
// Every source of facts sits behind a small interface so runs can be driven
// by fakes in tests and by the macOS tools (codesign, Info.plist, Sparkle
// feeds) in production.
package facts

import "github.com/deploymenttheory/macos-recipe-robot/tools/recipe"

// InputKind is the classification of an input string.
type InputKind string

const (
	InputApp            InputKind = "application-bundle"
	InputRecipe         InputKind = "recipe-of-kind"
	InputSourceHostURL  InputKind = "source-host-url"
	InputWebURL         InputKind = "web-url"
	InputDirectDownload InputKind = "direct-download-url"
)

// InputType is an InputKind plus, for recipe inputs, the recipe's kind.
type InputType struct {
	Kind       InputKind
	RecipeKind *recipe.Kind
}

func (t InputType) String() string {
	if t.Kind == InputRecipe && t.RecipeKind != nil {
		return string(t.Kind) + "(" + t.RecipeKind.Name + ")"
	}
	return string(t.Kind)
}

// Facts is everything a run has learned about its input.
type Facts struct {
	InputPath string
	InputType InputType

	SubjectName         string
	UpdateFeedURL       string
	SourceRepoReference string // GitHub "owner/repo"
	DistributionIndexID string // SourceForge project name
	DownloadURL         string
	ContainerFormat     ContainerFormat
	MinimumOS           string
	IconPath            string
	BundleIdentifier    string
	Description         string
	IsCodeSigned        bool
	CodeSignRequirement string

	// ParentIdentifier is the Identifier of an input recipe.
	ParentIdentifier string
}

// HasAcquisitionSource reports whether download has anywhere to fetch from.
func (f *Facts) HasAcquisitionSource() bool {
	return f.UpdateFeedURL != "" || f.SourceRepoReference != "" || f.DistributionIndexID != "" || f.DownloadURL != ""
}
