package encoding

import (
	"context"
	"os/exec"
)

// commandContext builds the encoder process. It is a package-level variable
// so tests can override it.
var commandContext = exec.CommandContext

// SetCommandForTests overrides process construction during tests.
func SetCommandForTests(fn func(context.Context, string, ...string) *exec.Cmd) func() {
	previous := commandContext
	commandContext = fn
	return func() {
		commandContext = previous
	}
}
