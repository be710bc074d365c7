// Package sshclient launches SSH client processes for reverse tunnels and
// interactive sessions.
//
// This package is responsible for argument construction and process launch —
// it does NOT implement the SSH protocol. It shells out to the detected
// OpenSSH binary, which means sessions automatically inherit the user's agent,
// keys, and any ProxyJump chains without reimplementing that logic.
//
// Security note: all arguments are passed via exec.Command's argv (never
// through a shell), and every injected string is validated against a
// no-control-character rule before the vector is returned, so profile fields
// cannot smuggle extra arguments or options into the invocation.
package sshclient

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/reverse-ssh/reverse-ssh-interface/internal/model"
)

// ErrInvalidArgument indicates a profile field was rejected by the argument
// builder (forbidden character, etc.). Builder errors are never retried.
var ErrInvalidArgument = errors.New("invalid ssh argument")

// BuildInput carries everything the builder needs besides the profile.
type BuildInput struct {
	Profile model.Profile
	// KnownHostsPath, when non-empty, is passed as UserKnownHostsFile.
	KnownHostsPath string
	// StrictHostKeyChecking is the ssh option value (yes, accept-new, no).
	StrictHostKeyChecking string
}

// BuildTunnelArgs deterministically constructs the argument vector for a
// reverse tunnel invocation. Equal inputs yield equal vectors. The vector is
// suitable for exec.Command(sshPath, args...); the destination comes last.
//
// For password auth the base vector is identical — the password helper wraps
// the invocation at spawn time and the password itself never appears on any
// command line.
func BuildTunnelArgs(in BuildInput) ([]string, error) {
	p := in.Profile

	if err := checkFields(p); err != nil {
		return nil, err
	}

	args := []string{
		"-N",
		"-T",
		"-p", strconv.Itoa(p.Port),
	}

	for _, t := range p.Tunnels {
		args = append(args, "-R", t.ForwardArg())
	}

	// Stability options. ExitOnForwardFailure makes a rejected remote bind a
	// process exit instead of a silently degraded tunnel; the keepalives turn
	// silent TCP stalls into detectable exits.
	args = append(args,
		"-o", "ExitOnForwardFailure=yes",
		"-o", fmt.Sprintf("ServerAliveInterval=%d", p.KeepaliveIntervalSecs),
		"-o", fmt.Sprintf("ServerAliveCountMax=%d", p.KeepaliveCount),
	)

	// BatchMode suppresses all interactive prompting for agent and key auth.
	// Password auth needs prompting left on or the helper's injected password
	// is never consumed.
	if p.Auth.Method == model.AuthPassword {
		args = append(args, "-o", "BatchMode=no")
	} else {
		args = append(args, "-o", "BatchMode=yes")
	}

	args = append(args, "-o", "StrictHostKeyChecking="+in.StrictHostKeyChecking)

	if in.KnownHostsPath != "" {
		args = append(args, "-o", "UserKnownHostsFile="+in.KnownHostsPath)
	}

	if p.Auth.Method == model.AuthKeyFile {
		args = append(args, "-o", "IdentitiesOnly=yes", "-i", p.Auth.KeyPath)
	}

	// Extra options sorted by key so the vector is deterministic regardless
	// of map iteration order.
	keys := make([]string, 0, len(p.ExtraOptions))
	for k := range p.ExtraOptions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "-o", k+"="+p.ExtraOptions[k])
	}

	args = append(args, p.Destination())

	for _, a := range args {
		if model.HasControlChars(a) {
			return nil, fmt.Errorf("%w: %q contains control characters", ErrInvalidArgument, a)
		}
	}
	return args, nil
}

// BuildInteractiveArgs constructs the vector for an interactive session to
// the profile's host: same port, host-key, and auth handling as the tunnel
// vector, but with a TTY and no forwards.
func BuildInteractiveArgs(in BuildInput) ([]string, error) {
	p := in.Profile
	if err := checkFields(p); err != nil {
		return nil, err
	}

	args := []string{"-p", strconv.Itoa(p.Port)}
	args = append(args, "-o", "StrictHostKeyChecking="+in.StrictHostKeyChecking)
	if in.KnownHostsPath != "" {
		args = append(args, "-o", "UserKnownHostsFile="+in.KnownHostsPath)
	}
	if p.Auth.Method == model.AuthKeyFile {
		args = append(args, "-o", "IdentitiesOnly=yes", "-i", p.Auth.KeyPath)
	}
	args = append(args, p.Destination())

	for _, a := range args {
		if model.HasControlChars(a) {
			return nil, fmt.Errorf("%w: %q contains control characters", ErrInvalidArgument, a)
		}
	}
	return args, nil
}

// checkFields rejects individual profile fields the vector would otherwise
// absorb silently: a newline in user or host would terminate the argument and
// open an injection seam in anything that later logs or re-parses the vector.
func checkFields(p model.Profile) error {
	for _, f := range []struct{ name, value string }{
		{"user", p.User},
		{"host", p.Host},
		{"key_path", p.Auth.KeyPath},
	} {
		if model.HasControlChars(f.value) {
			return fmt.Errorf("%w: %s contains control characters", ErrInvalidArgument, f.name)
		}
	}
	for _, t := range p.Tunnels {
		if model.HasControlChars(t.RemoteBind) || model.HasControlChars(t.LocalHost) {
			return fmt.Errorf("%w: tunnel address contains control characters", ErrInvalidArgument)
		}
	}
	for k, v := range p.ExtraOptions {
		if model.HasControlChars(k) || model.HasControlChars(v) {
			return fmt.Errorf("%w: extra option %q contains control characters", ErrInvalidArgument, k)
		}
	}
	return nil
}
