package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"rmbloat/internal/engine"
)

const consoleHelp = `commands:
  ls                 list visible candidates
  t N [N...]         toggle selection of candidate N
  a | n | r          select all, deselect all, reset to default selection
  f [PATTERN]        filter by path substring (no pattern clears)
  s NAME             use strategy NAME for the next batch (auto to clear)
  go                 start converting the selection
  x                  abort the running batch
  q                  quit`

// console reads operator commands and turns them into engine intents. It
// returns when input ends or the operator quits; both submit a quit intent.
type console struct {
	engine *engine.Engine
	in     io.Reader
	out    io.Writer
}

func (c console) run(ctx context.Context) error {
	defer c.engine.Submit(context.WithoutCancel(ctx), engine.Quit())

	fmt.Fprintln(c.out, consoleHelp)
	c.list()
	scanner := bufio.NewScanner(c.in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		intents, quit, err := c.parse(fields)
		if err != nil {
			fmt.Fprintln(c.out, err)
			continue
		}
		for _, intent := range intents {
			if err := c.engine.Submit(ctx, intent); err != nil {
				return err
			}
		}
		if quit {
			return nil
		}
	}
	return scanner.Err()
}

func (c console) parse(fields []string) ([]engine.Intent, bool, error) {
	arg := strings.Join(fields[1:], " ")
	switch strings.ToLower(fields[0]) {
	case "ls", "l":
		c.list()
		return nil, false, nil
	case "t", "toggle":
		if len(fields) < 2 {
			return nil, false, fmt.Errorf("usage: t N [N...]")
		}
		visible := c.engine.Registry().Visible()
		intents := make([]engine.Intent, 0, len(fields)-1)
		for _, field := range fields[1:] {
			n, err := strconv.Atoi(field)
			if err != nil || n < 1 || n > len(visible) {
				return nil, false, fmt.Errorf("no candidate %q (1-%d)", field, len(visible))
			}
			intents = append(intents, engine.Toggle(visible[n-1].Path))
		}
		return intents, false, nil
	case "a", "all":
		return []engine.Intent{engine.SelectAll()}, false, nil
	case "n", "none":
		return []engine.Intent{engine.DeselectAll()}, false, nil
	case "r", "reset":
		return []engine.Intent{engine.ResetDefault()}, false, nil
	case "f", "filter":
		return []engine.Intent{engine.Filter(arg)}, false, nil
	case "s", "strategy":
		if arg == "" {
			return nil, false, fmt.Errorf("usage: s NAME")
		}
		return []engine.Intent{engine.OverrideStrategy(arg)}, false, nil
	case "go", "g":
		return []engine.Intent{engine.Start()}, false, nil
	case "x", "abort":
		return []engine.Intent{engine.Abort()}, false, nil
	case "q", "quit", "exit":
		return []engine.Intent{engine.Quit()}, true, nil
	case "?", "h", "help":
		fmt.Fprintln(c.out, consoleHelp)
		return nil, false, nil
	}
	return nil, false, fmt.Errorf("unknown command %q (? for help)", fields[0])
}

func (c console) list() {
	reg := c.engine.Registry()
	fmt.Fprintln(c.out, candidateTable(reg.Visible(), reg.Totals(), true).render())
}
