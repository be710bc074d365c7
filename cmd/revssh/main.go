// Package main is the entry point for the revssh binary.
//
// revssh manages long-lived reverse SSH tunnel sessions: it persists named
// connection profiles, spawns and supervises OpenSSH client processes that
// open remote-to-local forwards, reconnects them when they drop, and
// broadcasts lifecycle events to subscribers.
//
// Usage:
//
//	revssh                   # launch the TUI dashboard
//	revssh up <profile>      # start and foreground a session
//	revssh serve             # run the HTTP/WebSocket adapter
//	revssh profile create    # manage profiles
//
// The CLI is constructed in internal/cli; this file wires it together and
// handles top-level error reporting.
package main

import (
	"fmt"
	"os"

	"github.com/reverse-ssh/reverse-ssh-interface/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
