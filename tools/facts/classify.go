package facts

import (
	"strings"

	"github.com/deploymenttheory/macos-recipe-robot/tools/errors"
	"github.com/deploymenttheory/macos-recipe-robot/tools/recipe"
)

// SourceHosts are the domains treated as source-hosting sites.
var SourceHosts = []string{"github.com", "sourceforge.net"}

// Classify maps input to exactly one InputType. The checks run in a fixed
// order and the first match wins: app bundle, recipe of a known kind, web
// URL (source host or not), file-transfer URL.
func Classify(input string, reg *recipe.Registry) (InputType, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(input), "/")
	lower := strings.ToLower(trimmed)

	if strings.HasSuffix(lower, ".app") {
		return InputType{Kind: InputApp}, nil
	}
	if k, ok := reg.KindFromRecipePath(trimmed); ok {
		return InputType{Kind: InputRecipe, RecipeKind: k}, nil
	}
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		for _, host := range SourceHosts {
			if strings.Contains(lower, host) {
				return InputType{Kind: InputSourceHostURL}, nil
			}
		}
		return InputType{Kind: InputWebURL}, nil
	}
	if strings.HasPrefix(lower, "ftp://") {
		return InputType{Kind: InputDirectDownload}, nil
	}
	return InputType{}, errors.New(errors.ErrCodeUnrecognizedInput, "cannot classify input %q", input)
}
