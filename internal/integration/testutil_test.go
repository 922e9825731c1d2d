package integration_test

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/crypto/ssh/knownhosts"

	"pkt.systems/pixterm/internal/relay"
	"pkt.systems/pixterm/internal/sshtest"
)

const testTOTPSecret = "JBSWY3DPEHPK3PXP"

func requireLong(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
}

func startSSH(t *testing.T, srv *sshtest.Server) string {
	t.Helper()
	addr, err := srv.Start(context.Background())
	if err != nil {
		t.Fatalf("start ssh server: %v", err)
	}
	t.Cleanup(func() { _ = srv.Close() })
	return addr
}

func startRelay(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	srv := &relay.Server{Listener: ln, DialTimeout: 2 * time.Second}
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.ListenAndServe(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return ln.Addr().String()
}

func relayEndpoint(relayAddr, sshAddr string) string {
	host, port, _ := net.SplitHostPort(sshAddr)
	return "ws://" + relayAddr + "/?host=" + host + "&port=" + port
}

func writeKnownHosts(t *testing.T, srv *sshtest.Server, addr string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "known_hosts")
	line := knownhosts.Line([]string{addr}, srv.HostKey()) + "\n"
	if err := os.WriteFile(path, []byte(line), 0o600); err != nil {
		t.Fatalf("write known_hosts: %v", err)
	}
	return path
}

func waitUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
