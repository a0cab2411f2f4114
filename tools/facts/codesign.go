package facts

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/deploymenttheory/macos-recipe-robot/tools/logger"
)

const designatedLabel = "designated => "

// CodesignInspector shells out to codesign(1).
type CodesignInspector struct {
	// Path of the codesign binary; defaults to "codesign" on $PATH.
	Path string
}

// Inspect runs `codesign --display -r- <app>`. A non-zero exit means the
// bundle is unsigned, which is not an error.
func (c CodesignInspector) Inspect(ctx context.Context, appPath string) (bool, string, error) {
	bin := c.Path
	if bin == "" {
		bin = "codesign"
	}
	cmd := exec.CommandContext(ctx, bin, "--display", "-r-", appPath)
	logger.Logger(fmt.Sprintf("🖥️  Running command: %s", strings.Join(cmd.Args, " ")), logger.LogDebug)

	output, err := cmd.CombinedOutput()
	if err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			return false, "", nil
		}
		return false, "", fmt.Errorf("codesign failed: %w", err)
	}
	return true, parseRequirement(string(output)), nil
}

func parseRequirement(output string) string {
	sc := bufio.NewScanner(strings.NewReader(output))
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, designatedLabel) {
			return strings.TrimSpace(strings.TrimPrefix(line, designatedLabel))
		}
	}
	return ""
}
