package deps

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sys/unix"
)

// DefaultDRIDir is where Linux exposes DRM render nodes.
const DefaultDRIDir = "/dev/dri"

// RenderDevice returns the first render node under driDir that the current
// user can open for reading and writing.
func RenderDevice(driDir string) (string, error) {
	if strings.TrimSpace(driDir) == "" {
		driDir = DefaultDRIDir
	}
	entries, err := os.ReadDir(driDir)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", driDir, err)
	}
	var nodes []string
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), "renderD") {
			nodes = append(nodes, filepath.Join(driDir, entry.Name()))
		}
	}
	if len(nodes) == 0 {
		return "", fmt.Errorf("no render nodes in %s", driDir)
	}
	sort.Strings(nodes)
	for _, node := range nodes {
		if err := unix.Access(node, unix.R_OK|unix.W_OK); err == nil {
			return node, nil
		}
	}
	return "", fmt.Errorf("render nodes in %s are not accessible", driDir)
}
