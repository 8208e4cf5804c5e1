package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement defines an external binary rmbloat relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// CheckBinaries resolves each requirement on PATH. The returned slice is in
// the same order as requirements.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, len(requirements))
	for i, req := range requirements {
		st := Status{
			Name:        req.Name,
			Command:     strings.TrimSpace(req.Command),
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		switch path, err := lookPath(st.Command); {
		case st.Command == "":
			st.Detail = "command not configured"
		case err != nil:
			st.Detail = fmt.Sprintf("binary %q not found", st.Command)
		default:
			st.Available = true
			st.Detail = path
		}
		results[i] = st
	}
	return results
}

func lookPath(command string) (string, error) {
	if command == "" {
		return "", exec.ErrNotFound
	}
	return exec.LookPath(command)
}

// Requirements lists the binaries rmbloat can use. ffmpeg itself is optional
// here because containerized strategies ship their own.
func Requirements(ffprobe, ffmpeg string) []Requirement {
	return []Requirement{
		{Name: "FFprobe", Command: ffprobe, Description: "Inspects candidate files"},
		{Name: "FFmpeg", Command: ffmpeg, Description: "Local encoder", Optional: true},
		{Name: "Docker", Command: "docker", Description: "Container runtime for containerized strategies", Optional: true},
		{Name: "Podman", Command: "podman", Description: "Alternative container runtime", Optional: true},
		{Name: "ionice", Command: "ionice", Description: "Lowers encoder I/O priority", Optional: true},
		{Name: "nice", Command: "nice", Description: "Lowers encoder CPU priority", Optional: true},
	}
}

// Available reports whether command resolves on PATH.
func Available(command string) bool {
	_, err := lookPath(strings.TrimSpace(command))
	return err == nil
}
