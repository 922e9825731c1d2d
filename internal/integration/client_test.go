package integration_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/pquerna/otp/totp"

	"pkt.systems/pixterm/input"
	"pkt.systems/pixterm/internal/sshtest"
	"pkt.systems/pixterm/internal/surface"
	"pkt.systems/pixterm/schema"
	"pkt.systems/pixterm/session"
)

func TestClientThroughRelayWithTOTP(t *testing.T) {
	requireLong(t)
	recorder := &sshtest.Recorder{}
	srv := &sshtest.Server{
		User:      "alice",
		Password:  "secret",
		TOTPCheck: func(code string) bool { return totp.Validate(code, testTOTPSecret) },
		Shell: (&sshtest.Script{
			Greeting: "ready\r\n",
			Replies:  map[string]string{"ls\r": "file.txt\r\n"},
			Exit:     "exit\r",
			Status:   4,
			Input:    recorder,
		}).Run,
	}
	sshAddr := startSSH(t, srv)
	relayAddr := startRelay(t)

	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatalf("init screen: %v", err)
	}
	defer screen.Fini()
	screen.SetSize(80, 24)
	terminal := surface.NewTerminal(screen, surface.Options{RefreshMillihertz: 120000})

	client, err := session.NewClient(session.ClientOptions{
		Params: session.Params{
			Endpoint: relayEndpoint(relayAddr, sshAddr),
			Username: "alice",
			Password: "secret",
		},
		Connector: session.SSHConnector{
			TOTPSecret:  testTOTPSecret,
			KnownHosts:  writeKnownHosts(t, srv, sshAddr),
			DialTimeout: 2 * time.Second,
		},
		Sink:   terminal,
		Width:  560,
		Height: 312,
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	pumpDone := make(chan error, 1)
	go func() { pumpDone <- terminal.Pump(ctx, client.Router()) }()
	type result struct {
		status uint32
		err    error
	}
	done := make(chan result, 1)
	go func() {
		status, err := client.Run(ctx)
		done <- result{status, err}
	}()

	waitUntil(t, "shell session", func() bool { return srv.Sessions() == 1 })
	for _, r := range "ls" {
		screen.InjectKey(tcell.KeyRune, r, tcell.ModNone)
	}
	screen.InjectKey(tcell.KeyEnter, 0, tcell.ModNone)
	waitUntil(t, "keystrokes at server", func() bool { return recorder.String() == "ls\r" })

	for _, r := range "exit" {
		screen.InjectKey(tcell.KeyRune, r, tcell.ModNone)
	}
	screen.InjectKey(tcell.KeyEnter, 0, tcell.ModNone)

	var res result
	select {
	case res = <-done:
	case <-ctx.Done():
		t.Fatalf("client did not finish")
	}
	if res.err != nil || res.status != 4 {
		t.Fatalf("expected remote exit 4, got %d %v", res.status, res.err)
	}
	if ptys := srv.Ptys(); len(ptys) != 1 || ptys[0].Cols != 80 || ptys[0].Rows != 24 {
		t.Fatalf("unexpected pty %+v", ptys)
	}

	cells, _, _ := screen.GetContents()
	for i, cell := range cells {
		if len(cell.Runes) == 0 || cell.Runes[0] != '▀' {
			t.Fatalf("cell %d not presented: %q", i, cell.Runes)
		}
	}

	cancel()
	if err := <-pumpDone; err != nil && !errors.Is(err, surface.ErrQuit) {
		t.Fatalf("pump: %v", err)
	}
}

func TestClientRejectsUnknownHostKey(t *testing.T) {
	requireLong(t)
	srv := &sshtest.Server{User: "alice", Password: "secret"}
	sshAddr := startSSH(t, srv)
	impostor := &sshtest.Server{User: "alice", Password: "secret"}
	startSSH(t, impostor)

	client, err := session.NewClient(session.ClientOptions{
		Params:    session.Params{Endpoint: sshAddr, Username: "alice", Password: "secret"},
		Connector: session.SSHConnector{KnownHosts: writeKnownHosts(t, impostor, sshAddr)},
		Sink:      &surface.PNGSink{},
		Width:     70,
		Height:    26,
	})
	if err != nil {
		t.Fatal(err)
	}
	_, err = client.Run(context.Background())
	if !errors.Is(err, schema.ErrTransport) || errors.Is(err, schema.ErrAuthentication) {
		t.Fatalf("expected host key transport error, got %v", err)
	}
	if srv.Sessions() != 0 {
		t.Fatalf("expected no session on rejected host key")
	}
	if err := client.Router().Tap(input.KeyA); !errors.Is(err, schema.ErrSessionClosed) {
		t.Fatalf("expected input queue closed, got %v", err)
	}
}
