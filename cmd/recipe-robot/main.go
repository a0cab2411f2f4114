// cmd/recipe-robot/main.go
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/deploymenttheory/macos-recipe-robot/tools/autopkg"
	"github.com/deploymenttheory/macos-recipe-robot/tools/emitter"
	"github.com/deploymenttheory/macos-recipe-robot/tools/errors"
	"github.com/deploymenttheory/macos-recipe-robot/tools/facts"
	"github.com/deploymenttheory/macos-recipe-robot/tools/logger"
	"github.com/deploymenttheory/macos-recipe-robot/tools/preferences"
	"github.com/deploymenttheory/macos-recipe-robot/tools/recipe"
	"github.com/deploymenttheory/macos-recipe-robot/tools/report"
	"github.com/deploymenttheory/macos-recipe-robot/tools/robot"
	"github.com/spf13/cobra"
)

var version = "dev"

var (
	// Global flags
	logLevel  string
	prefsPath string

	// Generate and config flags
	identifierPrefix string
	outputDir        string
	recipeTypesStr   string
	formatStr        string
	dsPackagesPath   string

	// Generate flags
	selectStr       string
	includeExisting bool
	useToken        bool
	autopkgPrefs    string
	skipSearch      bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "recipe-robot",
		Short:   "Create AutoPkg recipes for an app",
		Long:    "recipe-robot inspects an app, recipe or download URL and writes the AutoPkg recipe chain for it",
		Version: version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := getLogLevel(logLevel)
			logger.SetLogLevel(level)

			if level == logger.LogDebug {
				logger.Logger("Command-line arguments:", logger.LogDebug)
				for i, arg := range os.Args {
					logger.Logger(fmt.Sprintf("Arg[%d]: '%s'", i, arg), logger.LogDebug)
				}
			}
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Set log level (DEBUG, INFO, WARNING, ERROR, SUCCESS)")
	rootCmd.PersistentFlags().StringVar(&prefsPath, "prefs", "", "Path to recipe-robot preferences file")

	generateCmd := &cobra.Command{
		Use:   "generate <app | recipe | url>",
		Short: "Generate recipes for an input",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, args[0])
		},
	}
	addPrefFlags(generateCmd)
	generateCmd.Flags().StringVar(&selectStr, "select", "", "Comma-separated list of buildable recipe types to write (default: all buildable)")
	generateCmd.Flags().BoolVar(&includeExisting, "include-existing", false, "Build recipe types even if a public recipe already exists")
	generateCmd.Flags().BoolVar(&useToken, "github-token", false, "Pass --use-token to autopkg search")
	generateCmd.Flags().StringVar(&autopkgPrefs, "autopkg-prefs", "", "Path to AutoPkg preferences used by autopkg search")
	generateCmd.Flags().BoolVar(&skipSearch, "skip-search", false, "Do not search for existing recipes")

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Show or update recipe-robot preferences",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfig(cmd)
		},
	}
	addPrefFlags(configCmd)

	kindsCmd := &cobra.Command{
		Use:   "kinds",
		Short: "List the recipe types recipe-robot can create",
		RunE: func(cmd *cobra.Command, args []string) error {
			printRegistry(recipe.DefaultRegistry())
			return nil
		},
	}

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(kindsCmd)

	if err := rootCmd.Execute(); err != nil {
		printRunError(os.Stderr, err)
		os.Exit(1)
	}
}

func addPrefFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&identifierPrefix, "identifier-prefix", "", "Reverse-domain prefix for recipe identifiers")
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "Directory recipes are written to")
	cmd.Flags().StringVar(&recipeTypesStr, "recipe-types", "", "Comma-separated list of preferred recipe types")
	cmd.Flags().StringVar(&formatStr, "format", "", "Recipe format (plist or yaml)")
	cmd.Flags().StringVar(&dsPackagesPath, "ds-packages-path", "", "DeployStudio Packages folder for ds recipes")
}

// applyPrefFlags copies the flags that were set onto prefs.
func applyPrefFlags(cmd *cobra.Command, prefs *preferences.Preferences) {
	if cmd.Flags().Changed("identifier-prefix") {
		prefs.RecipeIdentifierPrefix = identifierPrefix
	}
	if cmd.Flags().Changed("output-dir") {
		prefs.RecipeCreateLocation = expandHome(outputDir)
	}
	if cmd.Flags().Changed("recipe-types") {
		prefs.RecipeTypes = preferences.SplitList(recipeTypesStr)
	}
	if cmd.Flags().Changed("format") {
		prefs.RecipeFormat = formatStr
	}
	if cmd.Flags().Changed("ds-packages-path") {
		prefs.DSPackagesPath = expandHome(dsPackagesPath)
	}
}

func prefFlagsChanged(cmd *cobra.Command) bool {
	for _, name := range []string{"identifier-prefix", "output-dir", "recipe-types", "format", "ds-packages-path"} {
		if cmd.Flags().Changed(name) {
			return true
		}
	}
	return false
}

func runGenerate(cmd *cobra.Command, input string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	prefs, err := preferences.Load(expandHome(prefsPath))
	if err != nil {
		return err
	}
	applyPrefFlags(cmd, prefs)

	format, err := emitter.ParseFormat(prefs.RecipeFormat)
	if err != nil {
		return err
	}

	r := newRobot()
	cfg := robot.Config{
		IdentifierPrefix: prefs.RecipeIdentifierPrefix,
		IncludeExisting:  includeExisting,
		Preferred:        prefs.RecipeTypes,
		DSPackagesPath:   prefs.DSPackagesPath,
		Version:          version,
	}

	logger.Logger(fmt.Sprintf("🤖 Processing %s", input), logger.LogInfo)
	res, err := r.Run(ctx, cfg, expandHome(input))
	if err != nil {
		return err
	}

	var selected []string
	if selectStr != "" {
		selected = preferences.SplitList(selectStr)
	}
	for _, name := range res.States.Select(selected) {
		res.Report.Warn("%s is not buildable and was not written", name)
	}

	writer := &emitter.Writer{
		Dir:    prefs.RecipeCreateLocation,
		Format: format,
		Icons:  emitter.SipsIconExtractor{},
	}
	written, err := writer.Write(ctx, res.Facts, res.States, res.Report)
	printSummary(res, written)
	if err != nil {
		return err
	}

	if msg := prefs.RecordCreated(len(written), version); msg != "" {
		fmt.Println()
		printSuccess("%s", msg)
	}
	if err := preferences.Save(expandHome(prefsPath), prefs); err != nil {
		printWarning("could not save preferences: %v", err)
	}
	return nil
}

// newRobot wires the production collaborators.
func newRobot() *robot.Robot {
	r := &robot.Robot{
		Registry: recipe.DefaultRegistry(),
		Extractor: &facts.Extractor{
			Bundles:      facts.PlistBundleReader{},
			Feeds:        facts.NewSparkleFeedInspector(),
			Signatures:   facts.CodesignInspector{},
			Releases:     facts.NewGitHubReleaseInspector(),
			Descriptions: facts.NewMacUpdateDescriptionSource(),
			Recipes:      autopkg.FileRecipeReader{},
		},
		Hooks: report.LoggerHooks{},
	}
	if !skipSearch {
		r.Searcher = autopkg.NewSearcher(&autopkg.SearchOptions{
			PrefsPath: expandHome(autopkgPrefs),
			UseToken:  useToken,
		})
	}
	return r
}

func runConfig(cmd *cobra.Command) error {
	path := expandHome(prefsPath)
	if path == "" {
		var err error
		if path, err = preferences.DefaultPath(); err != nil {
			return err
		}
	}
	prefs, err := preferences.Load(path)
	if err != nil {
		return err
	}

	if prefFlagsChanged(cmd) {
		applyPrefFlags(cmd, prefs)
		if _, err := emitter.ParseFormat(prefs.RecipeFormat); err != nil {
			return err
		}
		for _, name := range prefs.RecipeTypes {
			if _, ok := recipe.DefaultRegistry().Lookup(name); !ok {
				return errors.New(errors.ErrCodeInvalidInput, "unknown recipe type %q (want one of %s)", name, strings.Join(recipe.DefaultRegistry().Names(), ", "))
			}
		}
		if err := preferences.Save(path, prefs); err != nil {
			return err
		}
		printSuccess("Saved %s", path)
	} else {
		printInfo("%s", path)
	}

	printKeyValue("RecipeIdentifierPrefix", prefs.RecipeIdentifierPrefix)
	printKeyValue("RecipeCreateLocation", prefs.RecipeCreateLocation)
	printKeyValue("RecipeTypes", joinOrNone(prefs.RecipeTypes))
	printKeyValue("RecipeFormat", prefs.RecipeFormat)
	printKeyValue("DSPackagesPath", prefs.DSPackagesPath)
	printKeyValue("RecipeCreateCount", fmt.Sprint(prefs.RecipeCreateCount))
	return nil
}

// printRunError prints err and its hint. Fatal run errors also state that
// nothing was written.
func printRunError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %s\n", err)
	if hint := errorHint(err); hint != "" {
		fmt.Fprintln(w, hint)
	}
	if errors.Fatal(err) {
		fmt.Fprintln(w, "No recipes were written.")
	}
}

// errorHint returns a targeted follow-up line for fatal run errors.
func errorHint(err error) string {
	switch errors.GetCode(err) {
	case errors.ErrCodeUnrecognizedInput:
		return "Give the path to an .app bundle, a .recipe file, or an http(s)/ftp download URL."
	case errors.ErrCodeInvalidApplication:
		return "The app bundle has no readable Contents/Info.plist."
	case errors.ErrCodeInvalidRecipe:
		return "The recipe could not be parsed or has no Input NAME."
	case errors.ErrCodeNoBuildableRecipes:
		return "Every preferred recipe type already exists. Use --include-existing or --recipe-types to build anyway."
	case errors.ErrCodeWriteFailed:
		return "Check that the output directory is writable (--output-dir)."
	}
	return ""
}

func getLogLevel(cliLogLevel string) int {
	level := cliLogLevel
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	return logger.ParseLevel(strings.ToUpper(level))
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		if homeDir, err := os.UserHomeDir(); err == nil {
			return filepath.Join(homeDir, path[2:])
		}
	}
	return path
}
