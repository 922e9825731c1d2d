package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"pkt.systems/pixterm/internal/appconfig"
	"pkt.systems/pixterm/internal/glyphterm"
	"pkt.systems/pixterm/internal/surface"
	"pkt.systems/pixterm/render"
	"pkt.systems/pixterm/session"
	"pkt.systems/pslog"
)

type connectOptions struct {
	configPath string
	endpoint   string
	user       string
	password   string
	snapshot   string
	logFile    string
}

func newConnectCmd() *cobra.Command {
	var opts connectOptions
	cmd := &cobra.Command{
		Use:   "connect [endpoint]",
		Short: "Open a remote shell in the local terminal",
		Long: "Connect to host:port over SSH, or through a relay with a ws:// or wss:// URL " +
			"carrying host and port query values. Ctrl-] quits.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				opts.endpoint = args[0]
			}
			cfg, err := appconfig.Load(opts.configPath)
			if err != nil {
				return err
			}
			cfg.Merge(opts.endpoint, opts.user, opts.password)
			if strings.TrimSpace(cfg.Endpoint) == "" {
				return errors.New("endpoint is required (argument, --endpoint or config)")
			}
			if cfg.Username == "" {
				return errors.New("username is required (--user or config)")
			}
			if cfg.Password == "" {
				password, err := promptPassword(cmd.ErrOrStderr(), cfg.Username, cfg.Endpoint)
				if err != nil {
					return err
				}
				cfg.Password = password
			}
			return runConnect(cmd.Context(), cfg, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVar(&opts.endpoint, "endpoint", "", "host:port or ws:// relay URL")
	cmd.Flags().StringVarP(&opts.user, "user", "u", "", "remote username")
	cmd.Flags().StringVar(&opts.password, "password", "", "remote password (prompted when empty)")
	cmd.Flags().StringVar(&opts.snapshot, "snapshot", "", "write the last frame as PNG to this path on exit")
	cmd.Flags().StringVar(&opts.logFile, "log-file", "", "write session logs to this file while the screen is active")
	return cmd
}

func promptPassword(w io.Writer, user, endpoint string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("password is required (--password or config) when stdin is not a terminal")
	}
	if _, err := fmt.Fprintf(w, "%s@%s password: ", user, endpoint); err != nil {
		return "", err
	}
	pw, err := term.ReadPassword(fd)
	_, _ = fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(pw), nil
}

// sessionLogger returns the logger used while tcell owns the terminal;
// writing to stderr would corrupt the screen.
func sessionLogger(path string) (pslog.Logger, func(), error) {
	if path == "" {
		return pslog.NewWithOptions(io.Discard, pslog.Options{Mode: pslog.ModeStructured, NoColor: true}), func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, err
	}
	logger := pslog.NewWithOptions(f, pslog.Options{Mode: pslog.ModeStructured, NoColor: true, MinLevel: pslog.DebugLevel})
	return logger, func() { _ = f.Close() }, nil
}

func runConnect(ctx context.Context, cfg appconfig.Config, opts connectOptions) error {
	outer := pslog.Ctx(ctx)
	logger, closeLog, err := sessionLogger(opts.logFile)
	if err != nil {
		return err
	}
	defer closeLog()

	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	screen.EnableMouse()
	screen.Clear()

	var client *session.Client
	terminal := surface.NewTerminal(screen, surface.Options{
		RefreshMillihertz: cfg.Display.RefreshMillihertz,
		Logger:            logger,
		OnResize: func() {
			if client != nil {
				client.Pacer().Flag.Mark()
			}
		},
	})
	var sink render.Sink = terminal
	var snapshot *surface.PNGSink
	if opts.snapshot != "" {
		snapshot = &surface.PNGSink{Path: opts.snapshot}
		sink = render.Tee(terminal, snapshot)
	}

	client, err = session.NewClient(session.ClientOptions{
		Params: session.Params{
			Endpoint: cfg.Endpoint,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Connector: session.SSHConnector{
			TOTPSecret:  cfg.TOTPSecret,
			KnownHosts:  cfg.SSH.KnownHosts,
			DialTimeout: cfg.SSH.DialTimeout(),
			Logger:      logger,
		},
		Sink:              sink,
		Width:             cfg.Display.Width,
		Height:            cfg.Display.Height,
		RefreshMillihertz: cfg.Display.RefreshMillihertz,
		InputDepth:        cfg.Queues.InputDepth,
		OutboundDepth:     cfg.Queues.OutboundDepth,
		Term:              cfg.SSH.Term,
		Terminal: glyphterm.Options{
			HistorySize: cfg.Terminal.HistoryLines,
			ScrollSpeed: cfg.Terminal.ScrollSpeed,
		},
		Logger: logger,
	})
	if err != nil {
		screen.Fini()
		return err
	}

	runCtx, stop := context.WithCancel(pslog.ContextWithLogger(ctx, logger))
	defer stop()
	pumpErr := make(chan error, 1)
	go func() {
		err := terminal.Pump(runCtx, client.Router())
		stop()
		pumpErr <- err
	}()

	status, runErr := client.Run(runCtx)
	stop()
	screen.Fini()
	if err := <-pumpErr; err != nil && !errors.Is(err, surface.ErrQuit) && runErr == nil {
		runErr = fmt.Errorf("local input: %w", err)
	}

	if snapshot != nil {
		if err := snapshot.WriteFile(); err != nil {
			outer.Warn("snapshot not written", "err", err)
		} else {
			outer.Info("snapshot written", "path", snapshot.Path)
		}
	}
	if runErr != nil {
		return runErr
	}
	if sess := client.Session(); sess != nil {
		if code, ok := sess.ExitStatus(); ok {
			outer.Info("remote session ended", "exit_status", code)
			if code != 0 {
				return &remoteExitError{status: status}
			}
			return nil
		}
	}
	outer.Info("remote session closed locally")
	return nil
}
