package strategy

import "fmt"

// Name identifies an execution strategy.
type Name string

const (
	SystemAccel Name = "system_accel"
	DockerAccel Name = "docker_accel"
	SystemCPU   Name = "system_cpu"
	DockerCPU   Name = "docker_cpu"
)

// Auto lets the chooser pick.
const Auto = "auto"

// Ranked lists strategies from most to least preferred.
var Ranked = []Name{SystemAccel, DockerAccel, SystemCPU, DockerCPU}

// ParseName validates a strategy name.
func ParseName(value string) (Name, error) {
	for _, name := range Ranked {
		if string(name) == value {
			return name, nil
		}
	}
	return "", fmt.Errorf("unknown strategy %q", value)
}

// Strategy is a discovered way of running the encoder.
type Strategy struct {
	Name         Name
	Available    bool
	Detail       string
	FFmpeg       string
	Runtime      string
	Image        string
	RenderDevice string
}

// Containerized reports whether ffmpeg runs inside a container.
func (s Strategy) Containerized() bool {
	return s.Name == DockerAccel || s.Name == DockerCPU
}

// Accelerated reports whether the strategy uses VAAPI.
func (s Strategy) Accelerated() bool {
	return s.Name == SystemAccel || s.Name == DockerAccel
}

func (s Strategy) String() string {
	return string(s.Name)
}
