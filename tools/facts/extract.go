package facts

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/deploymenttheory/macos-recipe-robot/tools/errors"
	"github.com/deploymenttheory/macos-recipe-robot/tools/report"
)

// Extractor gathers Facts for a classified input. Nil collaborators are
// skipped and the facts they would provide are left empty with a warning.
type Extractor struct {
	Bundles      BundleReader
	Feeds        FeedInspector
	Signatures   SignatureInspector
	Releases     ReleaseInspector
	Descriptions DescriptionSource
	Recipes      RecipeReader
}

// Extract dispatches on t and returns the discovered facts. Only an
// unreadable bundle or recipe is fatal; everything else is recorded in rep.
func (e *Extractor) Extract(ctx context.Context, input string, t InputType, rep *report.Report) (*Facts, error) {
	f := &Facts{InputPath: input, InputType: t}

	var err error
	switch t.Kind {
	case InputApp:
		err = e.fromApp(ctx, f, rep)
	case InputRecipe:
		err = e.fromRecipe(f, rep)
	case InputSourceHostURL:
		e.fromSourceHost(ctx, f, rep)
	case InputWebURL:
		e.fromWebURL(ctx, f, rep)
	case InputDirectDownload:
		e.fromDirectDownload(f, rep)
	default:
		return nil, errors.New(errors.ErrCodeUnrecognizedInput, "unsupported input type %q", t.Kind)
	}
	if err != nil {
		return nil, err
	}

	if f.Description == "" && e.Descriptions != nil && f.SubjectName != "" {
		desc, derr := e.Descriptions.Describe(ctx, f.SubjectName)
		if derr != nil {
			rep.Warn("description lookup failed: %v", derr)
		}
		f.Description = desc
	}
	if f.Description == "" {
		rep.Warn("no description found for %s", f.SubjectName)
	}

	announce(f, rep)
	return f, nil
}

func (e *Extractor) fromApp(ctx context.Context, f *Facts, rep *report.Report) error {
	appPath := strings.TrimRight(f.InputPath, "/")
	f.InputPath = appPath
	if e.Bundles == nil {
		return errors.New(errors.ErrCodeInvalidApplication, "no bundle reader configured")
	}
	info, err := e.Bundles.ReadInfo(appPath)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidApplication, err, "cannot read %s", appPath)
	}

	f.SubjectName = firstString(info, "CFBundleName", "CFBundleExecutable")
	if f.SubjectName == "" {
		f.SubjectName = strings.TrimSuffix(filepath.Base(appPath), filepath.Ext(appPath))
	}

	f.UpdateFeedURL = firstString(info, "SUFeedURL", "SUOriginalFeedURL")
	if f.UpdateFeedURL == "" {
		rep.Warn("%s has no Sparkle feed", f.SubjectName)
	} else {
		e.formatFromFeed(ctx, f, rep)
	}

	if f.MinimumOS = firstString(info, "LSMinimumSystemVersion"); f.MinimumOS == "" {
		rep.Warn("no minimum OS version found for %s", f.SubjectName)
	}

	if icon := firstString(info, "CFBundleIconFile"); icon != "" {
		if filepath.Ext(icon) == "" {
			icon += ".icns"
		}
		f.IconPath = filepath.Join(appPath, "Contents", "Resources", icon)
	} else {
		rep.Warn("no icon found for %s", f.SubjectName)
	}

	if f.BundleIdentifier = firstString(info, "CFBundleIdentifier"); f.BundleIdentifier == "" {
		rep.Warn("no bundle identifier found for %s", f.SubjectName)
	}

	if e.Signatures == nil {
		rep.Warn("code signature not inspected")
		return nil
	}
	signed, req, err := e.Signatures.Inspect(ctx, appPath)
	if err != nil {
		rep.Warn("code signature inspection failed: %v", err)
		return nil
	}
	f.IsCodeSigned = signed
	if signed {
		f.CodeSignRequirement = req
	}
	return nil
}

func (e *Extractor) formatFromFeed(ctx context.Context, f *Facts, rep *report.Report) {
	if e.Feeds == nil {
		rep.Warn("update feed not inspected")
		return
	}
	enclosure, err := e.Feeds.EnclosureURL(ctx, f.UpdateFeedURL)
	if err != nil {
		rep.Warn("cannot read update feed %s: %v", f.UpdateFeedURL, err)
		return
	}
	f.ContainerFormat = FormatFromURL(enclosure)
	if !f.ContainerFormat.IsKnown() {
		rep.Warn("unrecognized download format: %s", enclosure)
	}
}

func (e *Extractor) fromRecipe(f *Facts, rep *report.Report) error {
	if e.Recipes == nil {
		return errors.New(errors.ErrCodeInvalidRecipe, "no recipe reader configured")
	}
	rf, err := e.Recipes.ReadRecipe(f.InputPath)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidRecipe, err, "cannot read %s", f.InputPath)
	}

	f.SubjectName = rf.InputString("NAME")
	if f.SubjectName == "" {
		return errors.New(errors.ErrCodeInvalidRecipe, "%s has no Input NAME", f.InputPath)
	}
	f.ParentIdentifier = rf.Identifier
	f.UpdateFeedURL = rf.InputString("SPARKLE_FEED_URL")
	f.SourceRepoReference = rf.InputString("GITHUB_REPO")
	f.BundleIdentifier = rf.InputString("BUNDLE_ID")
	if f.BundleIdentifier == "" {
		f.BundleIdentifier = rf.InputString("PKG_ID")
	}
	f.Description = rf.InputString("SELF_SERVICE_DESCRIPTION")

	f.ContainerFormat = FormatFromRecipeBody(rf.Raw)
	if !f.ContainerFormat.IsKnown() {
		rep.Warn("cannot tell the download format from %s", f.InputPath)
	}
	return nil
}

func (e *Extractor) fromSourceHost(ctx context.Context, f *Facts, rep *report.Report) {
	if repo, ok := GitHubRepoFromURL(f.InputPath); ok {
		f.SourceRepoReference = repo
		f.SubjectName = repo[strings.Index(repo, "/")+1:]
		if e.Releases == nil {
			rep.Warn("GitHub releases not inspected")
			return
		}
		asset, err := e.Releases.LatestAssetURL(ctx, repo)
		if err != nil {
			rep.Warn("cannot read GitHub releases for %s: %v", repo, err)
			return
		}
		f.ContainerFormat = FormatFromURL(asset)
		return
	}
	if project, ok := SourceForgeProjectFromURL(f.InputPath); ok {
		f.DistributionIndexID = project
		f.SubjectName = project
		if f.ContainerFormat = FormatFromURL(f.InputPath); !f.ContainerFormat.IsKnown() {
			rep.Warn("cannot tell the download format of SourceForge project %s", project)
		}
		return
	}
	// source host we cannot parse; fall back to treating it as a plain URL
	e.fromWebURL(ctx, f, rep)
}

// fromWebURL treats a URL ending in a known format as a direct download and
// anything else as an update feed.
func (e *Extractor) fromWebURL(ctx context.Context, f *Facts, rep *report.Report) {
	if FormatFromURL(f.InputPath).IsKnown() {
		e.fromDirectDownload(f, rep)
		return
	}
	f.UpdateFeedURL = f.InputPath
	f.SubjectName = nameFromURL(f.InputPath)
	e.formatFromFeed(ctx, f, rep)
}

func (e *Extractor) fromDirectDownload(f *Facts, rep *report.Report) {
	f.DownloadURL = f.InputPath
	f.ContainerFormat = FormatFromURL(f.InputPath)
	if !f.ContainerFormat.IsKnown() {
		rep.Warn("unrecognized download format: %s", f.InputPath)
	}
	f.SubjectName = nameFromURL(f.InputPath)
}

// nameFromURL guesses a product name from the last path element, dropping
// the format suffix and any trailing version.
func nameFromURL(rawURL string) string {
	base := ""
	if u, err := url.Parse(rawURL); err == nil {
		base = path.Base(u.Path)
		if base == "/" || base == "." {
			base = u.Hostname()
		}
	}
	if format := FormatFromName(base); format.IsKnown() {
		base = base[:len(base)-len(format.Suffix())-1]
	} else if ext := path.Ext(base); ext != "" && !strings.ContainsAny(ext[1:], "0123456789") {
		base = strings.TrimSuffix(base, ext)
	}
	if i := strings.IndexAny(base, "-_ "); i > 0 {
		rest := base[i+1:]
		if rest != "" && rest[0] >= '0' && rest[0] <= '9' {
			base = base[:i]
		}
	}
	return base
}

func firstString(m map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func announce(f *Facts, rep *report.Report) {
	rep.Fact("SubjectName", f.SubjectName)
	rep.Fact("UpdateFeedURL", f.UpdateFeedURL)
	rep.Fact("SourceRepoReference", f.SourceRepoReference)
	rep.Fact("DistributionIndexID", f.DistributionIndexID)
	rep.Fact("DownloadURL", f.DownloadURL)
	if f.ContainerFormat.IsKnown() {
		rep.Fact("ContainerFormat", f.ContainerFormat.String())
	}
	rep.Fact("MinimumOS", f.MinimumOS)
	rep.Fact("IconPath", f.IconPath)
	rep.Fact("BundleIdentifier", f.BundleIdentifier)
	rep.Fact("Description", f.Description)
	rep.Fact("IsCodeSigned", fmt.Sprint(f.IsCodeSigned))
	rep.Fact("CodeSignRequirement", f.CodeSignRequirement)
}
