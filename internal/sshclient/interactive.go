package sshclient

import (
	"context"
	"io"
	"os"
	"os/exec"

	"github.com/creack/pty"
)

// RunInteractive starts an interactive SSH session to the given destination
// inside a pseudo-terminal and blocks until it ends.
//
// The PTY is required for password prompts, remote line editing, and
// terminal resizing. The user's stdin is piped into the PTY master and the
// PTY output to stdout. If ctx is cancelled while the session is active the
// SSH process is killed rather than left orphaned.
func (c *Client) RunInteractive(ctx context.Context, sshPath string, args []string) error {
	cmd := exec.Command(sshPath, args...)

	f, err := pty.Start(cmd)
	if err != nil {
		return err
	}
	defer f.Close()

	// Forward keystrokes into the PTY master. io.Copy blocks until the PTY
	// closes after the SSH process exits, which also ends this goroutine.
	go func() {
		_, _ = io.Copy(f, os.Stdin)
	}()

	_, _ = io.Copy(os.Stdout, f)

	if ctx.Err() != nil {
		_ = cmd.Process.Kill()
	}
	return cmd.Wait()
}
