package facts

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/deploymenttheory/macos-recipe-robot/tools/errors"
	"github.com/deploymenttheory/macos-recipe-robot/tools/logger"
)

const macUpdateMarker = `-shortdescrip">`

// MacUpdateDescriptionSource scrapes the short description from a MacUpdate
// search result page.
type MacUpdateDescriptionSource struct {
	Client  *http.Client
	BaseURL string
}

// NewMacUpdateDescriptionSource returns a source backed by macupdate.com.
func NewMacUpdateDescriptionSource() *MacUpdateDescriptionSource {
	return &MacUpdateDescriptionSource{
		Client:  &http.Client{Timeout: 15 * time.Second},
		BaseURL: "https://www.macupdate.com/find/mac/",
	}
}

// Describe returns the short description MacUpdate lists for name.
func (m *MacUpdateDescriptionSource) Describe(ctx context.Context, name string) (string, error) {
	target := m.BaseURL + url.PathEscape(name)
	logger.Logger(fmt.Sprintf("🔍 Looking up description: %s", target), logger.LogDebug)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", err
	}
	client := m.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeNetwork, err, "failed to fetch description")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", errors.New(errors.ErrCodeNetwork, "description lookup returned HTTP %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", err
	}
	return scrapeDescription(string(body)), nil
}

func scrapeDescription(page string) string {
	i := strings.Index(page, macUpdateMarker)
	if i < 0 {
		return ""
	}
	rest := page[i+len(macUpdateMarker):]
	if j := strings.Index(rest, "<"); j >= 0 {
		rest = rest[:j]
	}
	return strings.TrimSpace(html.UnescapeString(rest))
}
