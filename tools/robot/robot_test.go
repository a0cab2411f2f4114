package robot

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/deploymenttheory/macos-recipe-robot/tools/autopkg"
	rrerrors "github.com/deploymenttheory/macos-recipe-robot/tools/errors"
	"github.com/deploymenttheory/macos-recipe-robot/tools/facts"
	"github.com/deploymenttheory/macos-recipe-robot/tools/recipe"
	"github.com/deploymenttheory/macos-recipe-robot/tools/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const prefix = "com.github.example"

type fakeBundles map[string]map[string]interface{}

func (f fakeBundles) ReadInfo(p string) (map[string]interface{}, error) {
	if info, ok := f[p]; ok {
		return info, nil
	}
	return nil, errors.New("no Info.plist")
}

type fakeFeeds map[string]string

func (f fakeFeeds) EnclosureURL(_ context.Context, u string) (string, error) {
	if enc, ok := f[u]; ok {
		return enc, nil
	}
	return "", errors.New("unreachable")
}

type fakeSignatures map[string]string

func (f fakeSignatures) Inspect(_ context.Context, p string) (bool, string, error) {
	req, ok := f[p]
	return ok, req, nil
}

type fakeRecipes map[string]*autopkg.RecipeFile

func (f fakeRecipes) ReadRecipe(p string) (*autopkg.RecipeFile, error) {
	if rf, ok := f[p]; ok {
		return rf, nil
	}
	return nil, errors.New("missing")
}

type fakeSearcher struct {
	results map[string][]string
	fail    map[string]bool
	calls   []string
}

func (s *fakeSearcher) Search(_ context.Context, name string) ([]string, error) {
	s.calls = append(s.calls, name)
	if s.fail[name] {
		return nil, errors.New("github unavailable")
	}
	return s.results[name], nil
}

func newRobot(searcher *fakeSearcher) *Robot {
	return &Robot{
		Extractor: &facts.Extractor{
			Bundles: fakeBundles{
				"/Applications/Cyberduck.app": {
					"CFBundleName":           "Cyberduck",
					"SUFeedURL":              "https://version.cyberduck.io/changelog.rss",
					"CFBundleIdentifier":     "ch.sudo.cyberduck",
					"LSMinimumSystemVersion": "10.13",
					"CFBundleIconFile":       "cyberduck-application.icns",
				},
				"/Applications/Foo.app": {"CFBundleName": "Foo"},
				"/Applications/GrandPerspective.app": {
					"CFBundleName":       "GrandPerspective",
					"CFBundleIdentifier": "net.sourceforge.grandperspectiv",
				},
			},
			Feeds: fakeFeeds{
				"https://version.cyberduck.io/changelog.rss": "https://update.cyberduck.io/Cyberduck-8.7.zip",
			},
			Signatures: fakeSignatures{
				"/Applications/Cyberduck.app": `identifier "ch.sudo.cyberduck" and anchor apple generic`,
			},
			Recipes: fakeRecipes{
				"Thing.pkg.recipe": {
					Identifier: "com.github.other.pkg.Thing",
					Input:      map[string]interface{}{"NAME": "Thing"},
					Raw:        []byte(`<key>source_path</key><string>%pathname%/Thing.app</string><string>%NAME%.dmg</string>`),
				},
			},
		},
		Searcher: searcher,
	}
}

func cfg(preferred ...string) Config {
	c := Config{IdentifierPrefix: prefix, Version: "1.0.0"}
	if len(preferred) > 0 {
		c.Preferred = preferred
	}
	return c
}

func TestScenarioSignedZipFromSparkleFeed(t *testing.T) {
	res, err := newRobot(&fakeSearcher{}).Run(context.Background(), cfg(), "/Applications/Cyberduck.app")
	require.NoError(t, err)

	docs := res.Documents()
	require.Len(t, docs, 8)

	dl := docs[recipe.KindDownload]
	assert.Equal(t, "com.github.example.download.Cyberduck", dl.Identifier)
	assert.Empty(t, dl.ParentRecipe)
	assert.Equal(t, []string{
		SparkleUpdateInfoProvider, URLDownloader, EndOfCheckPhase,
		Unarchiver, CodeSignatureVerifier, PathDeleter,
	}, dl.Processors())
	assert.Equal(t, "https://version.cyberduck.io/changelog.rss", dl.Input["SPARKLE_FEED_URL"])

	u, _ := dl.FindStep(URLDownloader)
	assert.Equal(t, "%NAME%-%version%.zip", u.Arguments["filename"])
	v, _ := dl.FindStep(CodeSignatureVerifier)
	assert.Equal(t, "%RECIPE_CACHE_DIR%/%NAME%/Cyberduck.app", v.Arguments["input_path"])
	assert.Equal(t, `identifier "ch.sudo.cyberduck" and anchor apple generic`, v.Arguments["requirement"])

	pkg := docs[recipe.KindPkg]
	assert.Equal(t, "com.github.example.download.Cyberduck", pkg.ParentRecipe)
	assert.Equal(t, []string{PkgRootCreator, Unarchiver, Versioner, PkgCreator}, pkg.Processors())
	creator, _ := pkg.FindStep(PkgCreator)
	req := creator.Arguments["pkg_request"].(recipe.Args)
	assert.Equal(t, "%BUNDLE_ID%", req["id"])
	assert.Equal(t, "ch.sudo.cyberduck", pkg.Input["BUNDLE_ID"])
	assert.Equal(t, "%NAME%-%version%", req["pkgname"])

	for _, child := range []string{recipe.KindJSS, recipe.KindAbsolute, recipe.KindSCCM} {
		assert.Equal(t, "com.github.example.pkg.Cyberduck", docs[child].ParentRecipe, child)
	}
	for _, child := range []string{recipe.KindMunki, recipe.KindInstall, recipe.KindDS} {
		assert.Equal(t, "com.github.example.download.Cyberduck", docs[child].ParentRecipe, child)
	}

	munki := docs[recipe.KindMunki]
	assert.Equal(t, []string{Unarchiver, DmgCreator, MunkiImporter}, munki.Processors())
	imp, _ := munki.FindStep(MunkiImporter)
	assert.Equal(t, "%dmg_path%", imp.Arguments["pkg_path"])
	pkginfo := munki.Input["pkginfo"].(recipe.Args)
	assert.Equal(t, "10.13", pkginfo["minimum_os_version"])
	assert.Equal(t, "%NAME%.png", pkginfo["icon_name"])

	assert.Equal(t, []string{AbsoluteManageExport}, docs[recipe.KindAbsolute].Processors())
	assert.Equal(t, AbsoluteManageExportRepoURL, docs[recipe.KindAbsolute].Process[0].SharedProcessorRepoURL)
	assert.Equal(t, []string{CmmacCreator}, docs[recipe.KindSCCM].Processors())
	assert.Equal(t, "Generated by recipe-robot v1.0.0", dl.Comment)
	assert.Equal(t, "Downloads the latest version of Cyberduck.", dl.Description)
}

func TestScenarioNoAcquisitionSource(t *testing.T) {
	res, err := newRobot(&fakeSearcher{}).Run(context.Background(), cfg(), "/Applications/Foo.app")
	require.NoError(t, err)

	dl := res.Documents()[recipe.KindDownload]
	require.NotNil(t, dl)
	assert.Equal(t, []string{URLDownloader, EndOfCheckPhase}, dl.Processors())
	assert.True(t, containsPrefix(res.Report.Reminders, "no acquisition source found"))

	// unknown format leaves pkg without format steps and a placeholder id
	pkg := res.Documents()[recipe.KindPkg]
	assert.Equal(t, []string{PkgRootCreator, PkgCreator}, pkg.Processors())
	creator, _ := pkg.FindStep(PkgCreator)
	assert.Equal(t, "%BUNDLE_ID%", creator.Arguments["pkg_request"].(recipe.Args)["id"])
	assert.NotContains(t, pkg.Input, "BUNDLE_ID")
	assert.True(t, containsPrefix(res.Report.Reminders, "bundle identifier of Foo is unknown"))
}

func TestScenarioExistingMunkiRecipe(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]string{
		"GrandPerspective": {"homebysix-recipes/GrandPerspective/GrandPerspective.munki.recipe"},
	}}
	res, err := newRobot(searcher).Run(context.Background(), cfg(), "/Applications/GrandPerspective.app")
	require.NoError(t, err)

	st := res.States.Get(recipe.KindMunki)
	assert.True(t, st.Preferred)
	assert.True(t, st.Existing)
	assert.False(t, st.Buildable)
	assert.Nil(t, st.Document)
	_, ok := res.Documents()[recipe.KindMunki]
	assert.False(t, ok)
	assert.Contains(t, res.Documents(), recipe.KindDownload)
}

func TestScenarioRecipeInputWithDiskImage(t *testing.T) {
	res, err := newRobot(&fakeSearcher{}).Run(context.Background(),
		cfg(recipe.KindJSS, recipe.KindMunki, recipe.KindInstall), "Thing.pkg.recipe")
	require.NoError(t, err)

	assert.Equal(t, facts.InputRecipe, res.InputType.Kind)
	assert.Equal(t, facts.FormatDiskImage, res.Facts.ContainerFormat)

	docs := res.Documents()
	require.Len(t, docs, 3)
	assert.Equal(t, "com.github.other.pkg.Thing", docs[recipe.KindJSS].ParentRecipe)
	assert.Equal(t, "com.github.example.download.Thing", docs[recipe.KindMunki].ParentRecipe)

	assert.Equal(t, []string{MunkiImporter}, docs[recipe.KindMunki].Processors())
	imp, _ := docs[recipe.KindMunki].FindStep(MunkiImporter)
	assert.Equal(t, "%pathname%", imp.Arguments["pkg_path"])
	assert.False(t, containsPrefix(res.Report.Reminders, "InstallFromDMG expects a disk image"))
}

func TestSearchFailureIsWarning(t *testing.T) {
	searcher := &fakeSearcher{fail: map[string]bool{"Cyberduck": true}}
	res, err := newRobot(searcher).Run(context.Background(), cfg(), "/Applications/Cyberduck.app")
	require.NoError(t, err)
	assert.True(t, containsPrefix(res.Report.Warnings, `search failed for "Cyberduck"`))
	assert.True(t, containsSubstring(res.Report.Warnings, "[SEARCH_FAILED]"))
	assert.Len(t, res.Documents(), 8)
}

func TestNoBuildableRecipes(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]string{
		"Cyberduck": {"Cyberduck.download.recipe"},
	}}
	_, err := newRobot(searcher).Run(context.Background(), cfg(recipe.KindDownload), "/Applications/Cyberduck.app")
	assert.True(t, rrerrors.Is(err, rrerrors.ErrCodeNoBuildableRecipes))

	c := cfg(recipe.KindDownload)
	c.IncludeExisting = true
	res, err := newRobot(searcher).Run(context.Background(), c, "/Applications/Cyberduck.app")
	require.NoError(t, err)
	assert.True(t, res.States.Get(recipe.KindDownload).Existing)
	assert.Contains(t, res.Documents(), recipe.KindDownload)
}

func TestRunFatalErrors(t *testing.T) {
	r := newRobot(&fakeSearcher{})

	_, err := r.Run(context.Background(), cfg(), "not-an-input")
	assert.True(t, rrerrors.Is(err, rrerrors.ErrCodeUnrecognizedInput))

	_, err = r.Run(context.Background(), cfg(), "/Applications/Missing.app")
	assert.True(t, rrerrors.Is(err, rrerrors.ErrCodeInvalidApplication))

	_, err = r.Run(context.Background(), Config{}, "/Applications/Foo.app")
	assert.True(t, rrerrors.Is(err, rrerrors.ErrCodeInvalidInput))

	_, err = r.Run(context.Background(), cfg("nope"), "/Applications/Foo.app")
	assert.True(t, rrerrors.Is(err, rrerrors.ErrCodeInvalidInput))
}

func TestRunTrimsInput(t *testing.T) {
	res, err := newRobot(&fakeSearcher{}).Run(context.Background(), cfg(recipe.KindDownload), "  /Applications/Foo.app\n")
	require.NoError(t, err)
	assert.Equal(t, facts.InputApp, res.InputType.Kind)
	assert.Equal(t, "/Applications/Foo.app", res.Facts.InputPath)
	assert.Equal(t, "Foo", res.Facts.SubjectName)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newRobot(&fakeSearcher{}).Run(ctx, cfg(), "/Applications/Foo.app")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParentRecipeIsWellFormed(t *testing.T) {
	reg := recipe.DefaultRegistry()
	for _, k := range reg.Walk() {
		if k.Parent == nil {
			continue
		}
		// build only the child so the parent is always external
		res, err := newRobot(&fakeSearcher{}).Run(context.Background(), cfg(k.Name), "/Applications/Cyberduck.app")
		require.NoError(t, err, k.Name)
		doc := res.Documents()[k.Name]
		require.NotNil(t, doc, k.Name)
		assert.Equal(t, prefix+"."+k.Parent.Name+".Cyberduck", doc.ParentRecipe, k.Name)
	}
}

func TestBuildablePolicy(t *testing.T) {
	for _, preferred := range []bool{false, true} {
		for _, existing := range []bool{false, true} {
			for _, include := range []bool{false, true} {
				want := (preferred && !existing) || (include && preferred)
				assert.Equal(t, want, Buildable(preferred, existing, include), "preferred=%v existing=%v include=%v", preferred, existing, include)
			}
		}
	}
}

func TestResolveMarksExistingAcrossVariants(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]string{
		"Google Chrome": {"Google Chrome.download.recipe"},
		"GoogleChrome":  {"recipes/GoogleChrome/GoogleChrome.pkg.recipe", "GoogleChrome.download.recipe"},
	}}
	states := recipe.NewStates(recipe.DefaultRegistry(), nil)
	rep := report.New(nil)
	require.NoError(t, Resolve(context.Background(), searcher, states, "Google Chrome", false, rep))

	assert.Equal(t, []string{"Google Chrome", "GoogleChrome"}, searcher.calls)
	assert.True(t, states.Get(recipe.KindDownload).Existing)
	assert.True(t, states.Get(recipe.KindPkg).Existing)
	assert.False(t, states.Get(recipe.KindMunki).Existing)
	assert.False(t, states.Get(recipe.KindPkg).Buildable)
	assert.True(t, states.Get(recipe.KindMunki).Buildable)
}

func TestResolveWithoutSearcher(t *testing.T) {
	states := recipe.NewStates(recipe.DefaultRegistry(), []string{recipe.KindDownload})
	rep := report.New(nil)
	require.NoError(t, Resolve(context.Background(), nil, states, "Foo", false, rep))
	assert.Contains(t, rep.Warnings, "existing recipes not searched")
	assert.True(t, states.Get(recipe.KindDownload).Buildable)
	assert.False(t, states.Get(recipe.KindPkg).Buildable)
}

func TestSearchVariants(t *testing.T) {
	assert.Equal(t, []string{"Google Chrome", "GoogleChrome"}, SearchVariants("Google Chrome"))
	assert.Equal(t, []string{"Foo-Bar Baz", "Foo-BarBaz", "FooBarBaz"}, SearchVariants("Foo-Bar Baz"))
	assert.Equal(t, []string{"Firefox"}, SearchVariants("Firefox"))
	assert.Empty(t, SearchVariants(""))
	assert.Equal(t, []string{"Café Müller", "CaféMüller"}, SearchVariants("Café Müller"))
	assert.Equal(t, []string{"Ünïcode-App 2", "Ünïcode-App2", "ÜnïcodeApp2"}, SearchVariants("Ünïcode-App 2"))
}

func TestSynthesizeVisitsParentsFirst(t *testing.T) {
	f := &facts.Facts{SubjectName: "Foo", ContainerFormat: facts.FormatDiskImage}
	states := recipe.NewStates(recipe.DefaultRegistry(), nil)
	for _, st := range states {
		st.Buildable = true
	}
	Synthesize(Config{IdentifierPrefix: prefix}, f, states, report.New(nil))
	var built []string
	for _, st := range states {
		built = append(built, st.Kind.Name)
		if st.Kind.Parent != nil {
			assert.Equal(t, states.Get(st.Kind.Parent.Name).Document.Identifier, st.Document.ParentRecipe)
		}
	}
	var walk []string
	for _, k := range recipe.DefaultRegistry().Walk() {
		walk = append(walk, k.Name)
	}
	assert.Equal(t, walk, built)
}

func TestDownloadBranches(t *testing.T) {
	tests := []struct {
		name  string
		facts facts.Facts
		want  []string
	}{
		{
			name:  "signed disk image verifies mounted app",
			facts: facts.Facts{SubjectName: "Foo", UpdateFeedURL: "https://x/appcast.xml", ContainerFormat: facts.FormatDiskImage, IsCodeSigned: true},
			want:  []string{SparkleUpdateInfoProvider, URLDownloader, EndOfCheckPhase, CodeSignatureVerifier},
		},
		{
			name:  "signed installer has no verifier",
			facts: facts.Facts{SubjectName: "Foo", SourceRepoReference: "o/foo", ContainerFormat: facts.FormatInstallerPkg, IsCodeSigned: true},
			want:  []string{GitHubReleasesInfoProvider, URLDownloader, EndOfCheckPhase},
		},
		{
			name:  "sourceforge",
			facts: facts.Facts{SubjectName: "Foo", DistributionIndexID: "foo", ContainerFormat: facts.FormatArchiveTarGz},
			want:  []string{SourceForgeURLProvider, URLDownloader, EndOfCheckPhase},
		},
		{
			name:  "direct download",
			facts: facts.Facts{SubjectName: "Foo", DownloadURL: "ftp://x/Foo.dmg", ContainerFormat: facts.FormatDiskImage},
			want:  []string{URLDownloader, EndOfCheckPhase},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := tt.facts
			states := recipe.NewStates(recipe.DefaultRegistry(), []string{recipe.KindDownload})
			states.Get(recipe.KindDownload).Buildable = true
			Synthesize(Config{IdentifierPrefix: prefix}, &f, states, report.New(nil))
			assert.Equal(t, tt.want, states.Get(recipe.KindDownload).Document.Processors())
		})
	}
}

func TestDownloadSignedUnknownFormat(t *testing.T) {
	f := &facts.Facts{SubjectName: "Foo", UpdateFeedURL: "https://x/appcast.xml", IsCodeSigned: true}
	states := recipe.NewStates(recipe.DefaultRegistry(), []string{recipe.KindDownload})
	states.Get(recipe.KindDownload).Buildable = true
	rep := report.New(nil)
	Synthesize(Config{IdentifierPrefix: prefix}, f, states, rep)

	assert.Equal(t, []string{SparkleUpdateInfoProvider, URLDownloader, EndOfCheckPhase}, states.Get(recipe.KindDownload).Document.Processors())
	assert.True(t, containsPrefix(rep.Reminders, "Foo is signed but the download format is unknown"))
	assert.True(t, containsPrefix(rep.Reminders, "download format of Foo is unknown"))
}

func TestPkgFormatBranches(t *testing.T) {
	tests := []struct {
		name     string
		format   facts.ContainerFormat
		want     []string
		versions string
		reminder bool
	}{
		{
			name:     "disk image copies the mounted app",
			format:   facts.FormatDiskImage,
			want:     []string{PkgRootCreator, Versioner, Copier, PkgCreator},
			versions: "%pathname%/Foo.app/Contents/Info.plist",
		},
		{
			name:     "archive unpacks into the pkg root",
			format:   facts.FormatArchiveZip,
			want:     []string{PkgRootCreator, Unarchiver, Versioner, PkgCreator},
			versions: "%pkgroot%/Applications/Foo.app/Contents/Info.plist",
		},
		{
			name:   "installer needs no placement",
			format: facts.FormatInstallerPkg,
			want:   []string{PkgRootCreator, PkgCreator},
		},
		{
			name:     "unknown format",
			format:   facts.FormatUnknown,
			want:     []string{PkgRootCreator, PkgCreator},
			reminder: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &facts.Facts{SubjectName: "Foo", BundleIdentifier: "com.example.foo", ContainerFormat: tt.format}
			states := recipe.NewStates(recipe.DefaultRegistry(), []string{recipe.KindPkg})
			states.Get(recipe.KindPkg).Buildable = true
			rep := report.New(nil)
			Synthesize(Config{IdentifierPrefix: prefix}, f, states, rep)

			doc := states.Get(recipe.KindPkg).Document
			assert.Equal(t, tt.want, doc.Processors())
			assert.Equal(t, "com.example.foo", doc.Input["BUNDLE_ID"])
			if tt.versions != "" {
				v, ok := doc.FindStep(Versioner)
				require.True(t, ok)
				assert.Equal(t, tt.versions, v.Arguments["input_plist_path"])
			}
			if tt.format.IsDiskImage() {
				c, _ := doc.FindStep(Copier)
				assert.Equal(t, "%pathname%/Foo.app", c.Arguments["source_path"])
				assert.Equal(t, "%pkgroot%/Applications/Foo.app", c.Arguments["destination_path"])
			}
			assert.Equal(t, tt.reminder, containsPrefix(rep.Reminders, "download format of Foo is unknown"))
		})
	}
}

func TestDownloadStepArguments(t *testing.T) {
	f := &facts.Facts{SubjectName: "Foo", DistributionIndexID: "foo", ContainerFormat: facts.FormatArchiveTarGz}
	states := recipe.NewStates(recipe.DefaultRegistry(), []string{recipe.KindDownload})
	states.Get(recipe.KindDownload).Buildable = true
	Synthesize(Config{IdentifierPrefix: prefix}, f, states, report.New(nil))
	sf, _ := states.Get(recipe.KindDownload).Document.FindStep(SourceForgeURLProvider)
	assert.Equal(t, `Foo-[0-9_\.]*\.tar\.gz`, sf.Arguments["SOURCEFORGE_FILE_PATTERN"])

	f = &facts.Facts{SubjectName: "Foo", DownloadURL: "ftp://x/Foo.dmg", ContainerFormat: facts.FormatDiskImage}
	states = recipe.NewStates(recipe.DefaultRegistry(), []string{recipe.KindDownload})
	states.Get(recipe.KindDownload).Buildable = true
	Synthesize(Config{IdentifierPrefix: prefix}, f, states, report.New(nil))
	doc := states.Get(recipe.KindDownload).Document
	dl, _ := doc.FindStep(URLDownloader)
	assert.Equal(t, "%DOWNLOAD_URL%", dl.Arguments["url"])
	assert.Equal(t, "ftp://x/Foo.dmg", doc.Input["DOWNLOAD_URL"])
}

func TestFixedIntegrationSteps(t *testing.T) {
	f := &facts.Facts{SubjectName: "Foo", ContainerFormat: facts.FormatInstallerPkg, Description: "A foo."}
	states := recipe.NewStates(recipe.DefaultRegistry(), nil)
	for _, st := range states {
		st.Buildable = true
	}
	rep := report.New(nil)
	Synthesize(Config{IdentifierPrefix: prefix, DSPackagesPath: "/Volumes/DS/Packages"}, f, states, rep)

	assert.Equal(t, []string{InstallFromDMG}, states.Get(recipe.KindInstall).Document.Processors())
	assert.True(t, containsPrefix(rep.Reminders, "InstallFromDMG expects a disk image"))

	ds := states.Get(recipe.KindDS).Document
	assert.Equal(t, []string{Copier}, ds.Processors())
	assert.Equal(t, "/Volumes/DS/Packages", ds.Input["DS_PKGS_PATH"])

	jss := states.Get(recipe.KindJSS).Document
	assert.Equal(t, []string{JSSImporter}, jss.Processors())
	assert.Equal(t, "A foo.", jss.Input["SELF_SERVICE_DESCRIPTION"])

	assert.Equal(t, []string{PkgRootCreator, PkgCreator}, states.Get(recipe.KindPkg).Document.Processors())
	assert.Equal(t, []string{MunkiImporter}, states.Get(recipe.KindMunki).Document.Processors())
}

func containsSubstring(list []string, sub string) bool {
	for _, s := range list {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func containsPrefix(list []string, prefix string) bool {
	for _, s := range list {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}
