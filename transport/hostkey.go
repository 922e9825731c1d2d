package transport

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"pkt.systems/pslog"
)

// HostKeyCallback verifies server keys against a known_hosts file. An empty
// path accepts any host key and logs a warning once per connection.
func HostKeyCallback(path string, log pslog.Logger) (ssh.HostKeyCallback, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return func(hostname string, _ net.Addr, key ssh.PublicKey) error {
			if log != nil {
				log.Warn("ssh host key not verified", "host", hostname, "fingerprint", ssh.FingerprintSHA256(key))
			}
			return nil
		}, nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("known hosts: %w", err)
	}
	cb, err := knownhosts.New(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("known hosts: %w", err)
	}
	return cb, nil
}
