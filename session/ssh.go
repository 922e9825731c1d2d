package session

import (
	"context"
	"sync"
	"time"

	"pkt.systems/pixterm/transport"
	"pkt.systems/pslog"
)

// SSHConnector connects over SSH, directly or through a WebSocket relay.
type SSHConnector struct {
	TOTPSecret  string
	KnownHosts  string
	DialTimeout time.Duration
	Logger      pslog.Logger
}

// Connect implements Connector.
func (c SSHConnector) Connect(ctx context.Context, params Params) (Transport, error) {
	client, err := transport.Connect(ctx, transport.Config{
		Endpoint: params.Endpoint,
		Credentials: transport.Credentials{
			Username:   params.Username,
			Password:   params.Password,
			TOTPSecret: c.TOTPSecret,
		},
		KnownHosts:  c.KnownHosts,
		DialTimeout: c.DialTimeout,
		Logger:      c.Logger,
	})
	if err != nil {
		return nil, err
	}
	return &sshTransport{client: client}, nil
}

type sshTransport struct {
	client *transport.Client

	mu       sync.Mutex
	channels []*transport.Channel
}

func (t *sshTransport) OpenSession(ctx context.Context) (Channel, error) {
	ch, err := t.client.OpenSession(ctx)
	if err != nil {
		return nil, err
	}
	t.mu.Lock()
	t.channels = append(t.channels, ch)
	t.mu.Unlock()
	return ch, nil
}

// Disconnect stops the channel pumps and closes the connection. Closing the
// connection does not block, so it runs even when ctx has already ended.
func (t *sshTransport) Disconnect(_ context.Context, reason string) error {
	t.mu.Lock()
	channels := t.channels
	t.channels = nil
	t.mu.Unlock()
	for _, ch := range channels {
		_ = ch.Close()
	}
	return t.client.Disconnect(reason)
}
