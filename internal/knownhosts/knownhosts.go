// Package knownhosts resolves the known-hosts file SSH children should use.
//
// App-managed known-hosts keeps tunnel host keys out of the user's
// interactive ~/.ssh/known_hosts and gives the application a stable location
// to warn about key changes. It is not a trust store in its own right.
package knownhosts

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/reverse-ssh/reverse-ssh-interface/internal/paths"
)

// Resolve returns the path of the app-managed known_hosts file, creating an
// empty 0600 file if absent. When useAppKnownHosts is false it returns "",
// and the argument builder omits UserKnownHostsFile so the child falls back
// to the user's default.
func Resolve(useAppKnownHosts bool) (string, error) {
	if !useAppKnownHosts {
		return "", nil
	}
	path, err := paths.KnownHostsFile()
	if err != nil {
		return "", err
	}
	if _, err := os.Lstat(path); err == nil {
		return path, nil
	} else if !os.IsNotExist(err) {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o600)
	if err != nil {
		if os.IsExist(err) {
			return path, nil
		}
		return "", fmt.Errorf("create known_hosts: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return path, nil
}
