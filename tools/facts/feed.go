package facts

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/deploymenttheory/macos-recipe-robot/tools/errors"
	"github.com/deploymenttheory/macos-recipe-robot/tools/logger"
)

// SparkleFeedInspector fetches a Sparkle appcast and returns the URL of its
// first enclosure.
type SparkleFeedInspector struct {
	Client *http.Client
}

// NewSparkleFeedInspector returns an inspector with a bounded HTTP timeout.
func NewSparkleFeedInspector() *SparkleFeedInspector {
	return &SparkleFeedInspector{Client: &http.Client{Timeout: 30 * time.Second}}
}

type appcast struct {
	Items []struct {
		Enclosures []struct {
			URL string `xml:"url,attr"`
		} `xml:"enclosure"`
	} `xml:"channel>item"`
}

// EnclosureURL fetches feedURL and returns its first enclosure URL without the query.
func (s *SparkleFeedInspector) EnclosureURL(ctx context.Context, feedURL string) (string, error) {
	logger.Logger(fmt.Sprintf("📡 Fetching update feed: %s", feedURL), logger.LogDebug)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return "", fmt.Errorf("invalid feed URL: %w", err)
	}
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeNetwork, err, "failed to fetch feed")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", errors.New(errors.ErrCodeNetwork, "feed returned HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read feed: %w", err)
	}
	return parseEnclosure(body)
}

func parseEnclosure(body []byte) (string, error) {
	var feed appcast
	if err := xml.Unmarshal(body, &feed); err != nil {
		return "", fmt.Errorf("failed to parse feed: %w", err)
	}
	for _, item := range feed.Items {
		for _, enc := range item.Enclosures {
			if u := strings.TrimSpace(enc.URL); u != "" {
				return stripQuery(u), nil
			}
		}
	}
	return "", fmt.Errorf("feed has no enclosures")
}
