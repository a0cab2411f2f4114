package emitter

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/deploymenttheory/macos-recipe-robot/tools/logger"
)

// IconExtractor converts an .icns file into a PNG at dst.
type IconExtractor interface {
	ExtractIcon(ctx context.Context, src, dst string) error
}

// IconSize is the longest edge of extracted icons.
const IconSize = 300

// SipsIconExtractor shells out to sips(1).
type SipsIconExtractor struct {
	// Path of the sips binary; defaults to "sips" on $PATH.
	Path string
}

// ExtractIcon runs `sips -s format png <src> --out <dst> --resampleHeightWidthMax 300`.
func (s SipsIconExtractor) ExtractIcon(ctx context.Context, src, dst string) error {
	bin := s.Path
	if bin == "" {
		bin = "sips"
	}
	cmd := exec.CommandContext(ctx, bin, "-s", "format", "png", src, "--out", dst,
		"--resampleHeightWidthMax", fmt.Sprint(IconSize))
	logger.Logger(fmt.Sprintf("🖥️  Running command: %s", strings.Join(cmd.Args, " ")), logger.LogDebug)

	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("sips failed: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}
