package strategy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"rmbloat/internal/deps"
	"rmbloat/internal/logging"
)

var commandContext = exec.CommandContext

// run executes name with a timeout and returns combined stderr on failure.
func run(ctx context.Context, timeout time.Duration, name string, args ...string) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	cmd := commandContext(ctx, name, args...) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	err := cmd.Run()
	if ctx.Err() != nil {
		return fmt.Errorf("%s: %w", name, ctx.Err())
	}
	if err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, tail(stderr.String(), 200))
	}
	return nil
}

// vaapiTestArgs encodes a single synthetic frame with hevc_vaapi.
func vaapiTestArgs(device string) []string {
	return []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-init_hw_device", "vaapi=va:" + device,
		"-filter_hw_device", "va",
		"-f", "lavfi", "-i", "nullsrc=s=128x128:d=1",
		"-vf", "format=nv12,hwupload",
		"-c:v", "hevc_vaapi", "-frames:v", "1",
		"-f", "null", "-",
	}
}

// Discover probes every strategy. The result is cached on the chooser; use
// Refresh to force a new pass.
func (c *Chooser) Discover(ctx context.Context) []Strategy {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.discovered == nil {
		c.discovered = c.discoverLocked(ctx)
	}
	out := make([]Strategy, len(c.discovered))
	copy(out, c.discovered)
	return out
}

// Refresh drops cached discovery results.
func (c *Chooser) Refresh() {
	c.mu.Lock()
	c.discovered = nil
	c.mu.Unlock()
}

func (c *Chooser) discoverLocked(ctx context.Context) []Strategy {
	ffmpeg := c.opts.FFmpeg
	haveFFmpeg := deps.Available(ffmpeg)
	device, deviceErr := deps.RenderDevice(c.opts.DRIDir)
	runtime, runtimeErr := c.containerRuntime(ctx)

	imageErr := runtimeErr
	if runtimeErr == nil {
		imageErr = c.ensureImage(ctx, runtime)
	}

	results := make([]Strategy, 0, len(Ranked))
	for _, name := range Ranked {
		s := Strategy{Name: name, FFmpeg: ffmpeg, Image: c.opts.Image}
		var err error
		switch name {
		case SystemCPU:
			if !haveFFmpeg {
				err = fmt.Errorf("binary %q not found", ffmpeg)
			}
		case SystemAccel:
			switch {
			case !haveFFmpeg:
				err = fmt.Errorf("binary %q not found", ffmpeg)
			case deviceErr != nil:
				err = deviceErr
			default:
				s.RenderDevice = device
				err = run(ctx, c.opts.AccelTestTimeout, ffmpeg, vaapiTestArgs(device)...)
			}
		case DockerCPU:
			s.Runtime = runtime
			err = imageErr
		case DockerAccel:
			s.Runtime = runtime
			switch {
			case imageErr != nil:
				err = imageErr
			case deviceErr != nil:
				err = deviceErr
			default:
				s.RenderDevice = device
				args := append([]string{"run", "--rm", "--device=/dev/dri:/dev/dri", c.opts.Image}, vaapiTestArgs(device)...)
				err = run(ctx, c.opts.ContainerAccelTestTimeout, runtime, args...)
			}
		}
		s.Available = err == nil
		if err != nil {
			s.Detail = err.Error()
		}
		c.logger.Debug("strategy discovery",
			logging.String(logging.FieldStrategy, string(name)),
			logging.Bool("available", s.Available),
			logging.String("detail", s.Detail),
		)
		results = append(results, s)
	}
	return results
}

// containerRuntime returns the first of docker or podman whose daemon answers.
func (c *Chooser) containerRuntime(ctx context.Context) (string, error) {
	var errs []error
	for _, candidate := range []string{"docker", "podman"} {
		if !deps.Available(candidate) {
			errs = append(errs, fmt.Errorf("binary %q not found", candidate))
			continue
		}
		if err := run(ctx, c.opts.RuntimeCheckTimeout, candidate, "info"); err != nil {
			errs = append(errs, err)
			continue
		}
		return candidate, nil
	}
	return "", fmt.Errorf("no container runtime: %w", errors.Join(errs...))
}

// ensureImage makes the encoder image available locally, pulling if needed.
func (c *Chooser) ensureImage(ctx context.Context, runtime string) error {
	if !c.opts.ForcePull {
		if err := run(ctx, c.opts.RuntimeCheckTimeout, runtime, "image", "inspect", c.opts.Image); err == nil {
			return nil
		}
	}
	c.logger.Info("pulling encoder image",
		logging.String("image", c.opts.Image),
		logging.String("runtime", runtime),
	)
	if err := run(ctx, c.opts.PullTimeout, runtime, "pull", c.opts.Image); err != nil {
		return fmt.Errorf("pull %s: %w", c.opts.Image, err)
	}
	return nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
