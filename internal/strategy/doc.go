// Package strategy decides how the encoder is invoked on this host.
//
// Four strategies exist, ranked by preference:
//
//	system_accel  local ffmpeg with VAAPI hardware encoding
//	docker_accel  containerized ffmpeg with the render node passed through
//	system_cpu    local ffmpeg with libx265
//	docker_cpu    containerized ffmpeg with libx265
//
// Discover runs cheap, non-destructive capability checks (binaries on PATH,
// a usable render node, a working container runtime, a one-frame hardware
// test encode). Benchmark runs a bounded real encode against a sample file and
// is only invoked explicitly or the first time an unverified strategy would be
// chosen. Choose combines discovery, the operator pin, and the per-host
// benchmark history to pick one strategy, landing on system_cpu when nothing
// better works.
//
// Command renders the full argv for an encode under a given strategy.
package strategy
