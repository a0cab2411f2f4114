package facts

import (
	"context"

	"github.com/deploymenttheory/macos-recipe-robot/tools/autopkg"
)

// BundleReader reads an application bundle's Info.plist.
type BundleReader interface {
	ReadInfo(appPath string) (map[string]interface{}, error)
}

// FeedInspector returns the URL of the newest enclosure in an update feed.
type FeedInspector interface {
	EnclosureURL(ctx context.Context, feedURL string) (string, error)
}

// SignatureInspector reports whether a bundle is signed and its designated
// requirement, if any.
type SignatureInspector interface {
	Inspect(ctx context.Context, appPath string) (signed bool, requirement string, err error)
}

// ReleaseInspector returns the download URL of the newest release asset of a
// GitHub "owner/repo".
type ReleaseInspector interface {
	LatestAssetURL(ctx context.Context, repo string) (string, error)
}

// DescriptionSource looks up a one-line description of an app.
type DescriptionSource interface {
	Describe(ctx context.Context, name string) (string, error)
}

// RecipeReader loads a recipe file from disk.
type RecipeReader interface {
	ReadRecipe(path string) (*autopkg.RecipeFile, error)
}
