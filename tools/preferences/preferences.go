// Package preferences persists recipe-robot's user preferences as a plist.
package preferences

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"github.com/deploymenttheory/macos-recipe-robot/tools/logger"
	"howett.net/plist"
)

const (
	// DefaultIdentifierPrefix is used until the user sets their own.
	DefaultIdentifierPrefix = "com.github.recipe-robot"
	// DefaultFormat is the default recipe encoding.
	DefaultFormat = "plist"

	prefsRelPath  = "Library/Preferences/com.github.deploymenttheory.recipe-robot.plist"
	outputRelPath = "Library/AutoPkg/Recipe Robot Output"
)

// Preferences is the stored configuration. Keys match the plist.
type Preferences struct {
	RecipeIdentifierPrefix string   `plist:"RecipeIdentifierPrefix"`
	RecipeCreateLocation   string   `plist:"RecipeCreateLocation"`
	RecipeTypes            []string `plist:"RecipeTypes,omitempty"`
	RecipeFormat           string   `plist:"RecipeFormat"`
	DSPackagesPath         string   `plist:"DSPackagesPath,omitempty"`
	RecipeCreateCount      int      `plist:"RecipeCreateCount"`
	LastRecipeRobotVersion string   `plist:"LastRecipeRobotVersion,omitempty"`
}

// DefaultPath returns ~/Library/Preferences/com.github.deploymenttheory.recipe-robot.plist.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, prefsRelPath), nil
}

// Defaults returns the preferences of a first run.
func Defaults() *Preferences {
	p := &Preferences{
		RecipeIdentifierPrefix: DefaultIdentifierPrefix,
		RecipeFormat:           DefaultFormat,
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		p.RecipeCreateLocation = filepath.Join(homeDir, outputRelPath)
	}
	return p
}

// Load reads prefsPath (DefaultPath when empty). A missing file yields the
// defaults. Environment variables named after the keys, such as
// RECIPE_IDENTIFIER_PREFIX, take precedence over the file.
func Load(prefsPath string) (*Preferences, error) {
	if prefsPath == "" {
		var err error
		if prefsPath, err = DefaultPath(); err != nil {
			return nil, err
		}
	}

	prefs := Defaults()
	data, err := os.ReadFile(prefsPath)
	switch {
	case os.IsNotExist(err):
		logger.Logger(fmt.Sprintf("📖 No preferences at %s, using defaults", prefsPath), logger.LogDebug)
	case err != nil:
		return nil, fmt.Errorf("failed to read preferences file: %w", err)
	default:
		if _, err := plist.Unmarshal(data, prefs); err != nil {
			return nil, fmt.Errorf("failed to parse preferences: %w", err)
		}
		logger.Logger("📖 Preferences retrieved successfully", logger.LogDebug)
	}

	applyEnv(prefs)
	return prefs, nil
}

// Save writes prefs to prefsPath (DefaultPath when empty).
func Save(prefsPath string, prefs *Preferences) error {
	if prefsPath == "" {
		var err error
		if prefsPath, err = DefaultPath(); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(filepath.Dir(prefsPath), 0755); err != nil {
		return fmt.Errorf("failed to create preferences directory: %w", err)
	}

	data, err := plist.MarshalIndent(prefs, plist.XMLFormat, "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal plist: %w", err)
	}
	if err := os.WriteFile(prefsPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write preferences file: %w", err)
	}

	logger.Logger("✅ Preferences updated successfully", logger.LogDebug)
	return nil
}

// envName maps a key to its override variable: RecipeIdentifierPrefix
// becomes RECIPE_IDENTIFIER_PREFIX and DSPackagesPath DS_PACKAGES_PATH.
func envName(key string) string {
	runes := []rune(key)
	var b strings.Builder
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevLower := unicode.IsLower(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if prevLower || (unicode.IsUpper(runes[i-1]) && nextLower) {
				b.WriteByte('_')
			}
		}
		b.WriteRune(r)
	}
	return strings.ToUpper(strings.ReplaceAll(b.String(), "-", "_"))
}

func applyEnv(p *Preferences) {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(envName(key)); ok {
			logger.Logger(fmt.Sprintf("🔄 Using environment variable for %s", key), logger.LogDebug)
			*dst = v
		}
	}
	str("RecipeIdentifierPrefix", &p.RecipeIdentifierPrefix)
	str("RecipeCreateLocation", &p.RecipeCreateLocation)
	str("RecipeFormat", &p.RecipeFormat)
	str("DSPackagesPath", &p.DSPackagesPath)

	if v, ok := os.LookupEnv(envName("RecipeTypes")); ok {
		logger.Logger("🔄 Using environment variable for RecipeTypes", logger.LogDebug)
		p.RecipeTypes = SplitList(v)
	}
}

// SplitList splits a comma separated list and drops empty entries.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// milestones are the creation counts that earn a congratulation.
var milestones = []int{10, 50, 100, 200, 500, 1000}

// RecordCreated adds n to the creation count and stamps version. It returns
// a congratulation message when a milestone was crossed, else "".
func (p *Preferences) RecordCreated(n int, version string) string {
	before := p.RecipeCreateCount
	p.RecipeCreateCount += n
	if version != "" {
		p.LastRecipeRobotVersion = version
	}
	for i := len(milestones) - 1; i >= 0; i-- {
		m := milestones[i]
		if before < m && p.RecipeCreateCount >= m {
			return "You've now created " + strconv.Itoa(m) + " recipes with recipe-robot. Nice work!"
		}
	}
	return ""
}
