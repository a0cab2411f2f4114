// Package autopkg reads AutoPkg recipe files and searches the public recipe
// index through the autopkg command line tool.
package autopkg

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/deploymenttheory/macos-recipe-robot/tools/logger"
	"gopkg.in/yaml.v2"
	"howett.net/plist"
)

var recipeRegex = regexp.MustCompile(`(?i)^.*\.recipe(?:\.yaml|\.plist)?$`)

// RecipeFile is the subset of a recipe that recipe-robot reads back.
type RecipeFile struct {
	Path         string
	Identifier   string
	ParentRecipe string
	Description  string
	Input        map[string]interface{}
	// Raw is the file body, kept for textual scans.
	Raw []byte
}

// InputString returns Input[key] when it is a non-empty string.
func (r *RecipeFile) InputString(key string) string {
	s, _ := r.Input[key].(string)
	return strings.TrimSpace(s)
}

// IsRecipePath reports whether path looks like a recipe file name.
func IsRecipePath(path string) bool {
	return recipeRegex.MatchString(path)
}

// FileRecipeReader reads recipes from the local filesystem.
type FileRecipeReader struct{}

// ReadRecipe reads and parses a plist or YAML recipe.
func (FileRecipeReader) ReadRecipe(path string) (*RecipeFile, error) {
	logger.Logger(fmt.Sprintf("🔍 Reading recipe file: %s", path), logger.LogDebug)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read recipe file: %w", err)
	}
	return ParseRecipe(path, data)
}

// ParseRecipe parses recipe data. Files ending in .yaml are YAML; everything
// else is treated as a plist.
func ParseRecipe(path string, data []byte) (*RecipeFile, error) {
	var recipeData map[string]interface{}
	if strings.EqualFold(filepath.Ext(path), ".yaml") {
		logger.Logger("📄 Parsing YAML recipe file", logger.LogDebug)
		var raw map[interface{}]interface{}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
		recipeData, _ = normalizeYAML(raw).(map[string]interface{})
	} else {
		logger.Logger("📄 Parsing Plist recipe file", logger.LogDebug)
		if _, err := plist.Unmarshal(data, &recipeData); err != nil {
			return nil, fmt.Errorf("failed to parse Plist: %w", err)
		}
	}
	if len(recipeData) == 0 {
		return nil, fmt.Errorf("recipe %s is empty", path)
	}

	rf := &RecipeFile{Path: path, Raw: data, Input: map[string]interface{}{}}
	rf.Identifier, _ = recipeData["Identifier"].(string)
	rf.ParentRecipe, _ = recipeData["ParentRecipe"].(string)
	rf.Description, _ = recipeData["Description"].(string)
	if in, ok := recipeData["Input"].(map[string]interface{}); ok {
		rf.Input = in
	}
	if rf.ParentRecipe != "" {
		logger.Logger(fmt.Sprintf("🧩 Found parent recipe: %s", rf.ParentRecipe), logger.LogDebug)
	}
	return rf, nil
}

// normalizeYAML converts yaml.v2's map[interface{}]interface{} into
// map[string]interface{} recursively.
func normalizeYAML(v interface{}) interface{} {
	switch t := v.(type) {
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalizeYAML(val)
		}
		return out
	case []interface{}:
		for i := range t {
			t[i] = normalizeYAML(t[i])
		}
		return t
	default:
		return v
	}
}
