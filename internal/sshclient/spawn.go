package sshclient

import (
	"fmt"
	"io"
	"os/exec"
)

// Process represents a launched SSH child.
//
// The caller (the session supervisor) owns the lifecycle:
//   - It drains Stderr to capture diagnostics — SSH in -N mode emits
//     everything of interest there, and an undrained pipe would eventually
//     block the child.
//   - It calls Cmd.Wait() exactly once after the stderr pump sees EOF.
//   - It signals Cmd.Process to request termination (see Terminate).
type Process struct {
	Cmd    *exec.Cmd
	Stderr io.ReadCloser
}

// PID returns the OS process id of the child.
func (p *Process) PID() int {
	if p.Cmd.Process == nil {
		return 0
	}
	return p.Cmd.Process.Pid
}

// Client launches SSH processes. It is stateless and safe for concurrent
// use; each call creates an independent exec.Cmd.
type Client struct{}

// New creates a client.
func New() *Client { return &Client{} }

// StartTunnel launches a background SSH tunnel process.
//
// The child runs with stdin closed and stdout discarded (-N produces no
// stdout); stderr is returned as a pipe for line-by-line capture. The caller
// must eventually call Cmd.Wait to reap the child.
//
// When password is non-empty the invocation is wrapped with the sshpass
// helper in environment mode (`sshpass -e`): the password travels to the
// child only via the SSHPASS environment variable of that one process and is
// never placed on a command line, where it would be visible in the process
// table.
func (c *Client) StartTunnel(sshPath string, args []string, password string) (*Process, error) {
	var cmd *exec.Cmd
	if password != "" {
		helper, err := exec.LookPath("sshpass")
		if err != nil {
			return nil, fmt.Errorf("password auth requires sshpass on PATH: %w", err)
		}
		wrapped := append([]string{"-e", sshPath}, args...)
		cmd = exec.Command(helper, wrapped...)
		cmd.Env = append(cmd.Environ(), "SSHPASS="+password)
	} else {
		cmd = exec.Command(sshPath, args...)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}
	cmd.Stdout = io.Discard
	cmd.Stdin = nil

	if err := cmd.Start(); err != nil {
		stderr.Close()
		return nil, fmt.Errorf("spawn ssh: %w", err)
	}
	return &Process{Cmd: cmd, Stderr: stderr}, nil
}
