package facts

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/deploymenttheory/macos-recipe-robot/tools/logger"
	"howett.net/plist"
)

// PlistBundleReader reads <app>/Contents/Info.plist from disk.
type PlistBundleReader struct{}

// ReadInfo parses the bundle's Info.plist. Binary and XML plists are both
// accepted.
func (PlistBundleReader) ReadInfo(appPath string) (map[string]interface{}, error) {
	infoPath := filepath.Join(appPath, "Contents", "Info.plist")
	logger.Logger(fmt.Sprintf("📖 Reading %s", infoPath), logger.LogDebug)

	data, err := os.ReadFile(infoPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read Info.plist: %w", err)
	}

	var info map[string]interface{}
	if _, err := plist.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed to parse Info.plist: %w", err)
	}
	if len(info) == 0 {
		return nil, fmt.Errorf("Info.plist at %s is empty", infoPath)
	}
	return info, nil
}
