// Package engine coordinates one rmbloat session.
//
// The Engine owns the candidate registry and is the only goroutine that
// mutates it. Operator intents arrive on a channel, status snapshots leave
// on another, and the encoder runs in a worker goroutine whose progress and
// outcome are folded back into the registry by the coordinating loop.
//
// Constructing an Engine requires a held instance lock token, so nothing can
// drive a collection without first excluding other instances.
package engine
