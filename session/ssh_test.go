package session

import (
	"context"
	"testing"
	"time"

	"pkt.systems/pixterm/internal/sshtest"
)

func TestSSHTransportDisconnectWithEndedContext(t *testing.T) {
	srv := &sshtest.Server{
		User:     "alice",
		Password: "secret",
		Shell:    (&sshtest.Script{Greeting: "$ "}).Run,
	}
	addr, err := srv.Start(context.Background())
	if err != nil {
		t.Fatalf("start ssh server: %v", err)
	}
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	tr, err := SSHConnector{DialTimeout: 2 * time.Second}.Connect(ctx, Params{Endpoint: addr, Username: "alice", Password: "secret"})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	ch, err := tr.OpenSession(ctx)
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	if err := ch.RequestPTY(ctx, DefaultTerm, 80, 24); err != nil {
		t.Fatal(err)
	}
	if err := ch.RequestShell(ctx); err != nil {
		t.Fatal(err)
	}

	ended, endNow := context.WithCancel(context.Background())
	endNow()
	if err := tr.Disconnect(ended, "local close"); err != nil {
		t.Fatalf("disconnect: %v", err)
	}
	timeout := time.After(5 * time.Second)
	for {
		select {
		case _, ok := <-ch.Events():
			if !ok {
				if err := tr.Disconnect(ended, "again"); err != nil {
					t.Fatalf("second disconnect: %v", err)
				}
				return
			}
		case <-timeout:
			t.Fatalf("channel events still open after disconnect")
		}
	}
}
