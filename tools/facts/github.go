package facts

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/deploymenttheory/macos-recipe-robot/tools/errors"
	"github.com/deploymenttheory/macos-recipe-robot/tools/logger"
)

const maxGitHubResponseSize = 4 << 20

// GitHubReleaseInspector queries the GitHub releases API.
type GitHubReleaseInspector struct {
	Client  *http.Client
	BaseURL string
	// Token overrides $GITHUB_TOKEN.
	Token string
}

// NewGitHubReleaseInspector returns an inspector for api.github.com.
func NewGitHubReleaseInspector() *GitHubReleaseInspector {
	return &GitHubReleaseInspector{
		Client:  &http.Client{Timeout: 30 * time.Second},
		BaseURL: "https://api.github.com",
	}
}

type githubRelease struct {
	TagName string        `json:"tag_name"`
	Assets  []githubAsset `json:"assets"`
}

type githubAsset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

// LatestAssetURL returns the download URL of the first asset of the latest
// release that has a known container format, or of the first asset if none
// does.
func (g *GitHubReleaseInspector) LatestAssetURL(ctx context.Context, repo string) (string, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return "", err
	}
	base, err := url.Parse(g.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	apiURL := base.JoinPath("repos", owner, name, "releases", "latest")
	logger.Logger(fmt.Sprintf("🔍 Fetching latest release: %s", apiURL), logger.LogDebug)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL.String(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	token := g.Token
	if token == "" {
		token = os.Getenv("GITHUB_TOKEN")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := g.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeNetwork, err, "failed to fetch release")
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return "", fmt.Errorf("no releases found for %s", repo)
	case http.StatusForbidden:
		return "", errors.New(errors.ErrCodeNetwork, "GitHub API rate limit exceeded; set GITHUB_TOKEN for higher limits")
	default:
		return "", errors.New(errors.ErrCodeNetwork, "GitHub API returned status %d", resp.StatusCode)
	}

	var rel githubRelease
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxGitHubResponseSize)).Decode(&rel); err != nil {
		return "", fmt.Errorf("failed to parse release: %w", err)
	}
	if len(rel.Assets) == 0 {
		return "", fmt.Errorf("release %s of %s has no assets", rel.TagName, repo)
	}
	for _, a := range rel.Assets {
		if FormatFromName(a.Name).IsKnown() {
			return a.BrowserDownloadURL, nil
		}
	}
	return rel.Assets[0].BrowserDownloadURL, nil
}

func splitRepo(repo string) (string, string, error) {
	parts := strings.SplitN(repo, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("expected owner/repo format, got: %s", repo)
	}
	return parts[0], parts[1], nil
}

// GitHubRepoFromURL extracts "owner/repo" from a github.com URL.
func GitHubRepoFromURL(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil || !strings.HasSuffix(strings.ToLower(u.Host), "github.com") {
		return "", false
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", false
	}
	return parts[0] + "/" + strings.TrimSuffix(parts[1], ".git"), true
}

// SourceForgeProjectFromURL extracts the project name from a
// sourceforge.net/projects/<name> URL.
func SourceForgeProjectFromURL(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil || !strings.HasSuffix(strings.ToLower(u.Host), "sourceforge.net") {
		return "", false
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+1 < len(parts); i++ {
		if parts[i] == "projects" && parts[i+1] != "" {
			return parts[i+1], true
		}
	}
	// <name>.sourceforge.net
	host := strings.ToLower(u.Host)
	if sub := strings.TrimSuffix(host, ".sourceforge.net"); sub != host && sub != "www" && sub != "" {
		return sub, true
	}
	return "", false
}
