package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"pkt.systems/psi"
	"pkt.systems/pslog"
)

func main() {
	psi.Run(submain)
}

func submain(ctx context.Context) int {
	logger := pslog.LoggerFromEnv(
		pslog.WithEnvWriter(os.Stderr),
		pslog.WithEnvOptions(pslog.Options{Mode: pslog.ModeConsole}),
	)
	ctx = pslog.ContextWithLogger(ctx, logger)
	log.SetOutput(pslog.LogLogger(logger).Writer())
	log.SetFlags(0)

	root := newRootCmd()
	root.SetArgs(os.Args[1:])

	if err := root.ExecuteContext(ctx); err != nil {
		code := exitCode(err)
		var remote *remoteExitError
		if !errors.As(err, &remote) {
			pslog.Ctx(ctx).With("err", err).Error("pixterm command failed")
		}
		return code
	}
	return 0
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "pixterm",
		Short:         "Remote terminal client rendering an SSH shell through a pixel framebuffer",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.AddCommand(newConnectCmd())
	root.AddCommand(newRelayCmd())
	root.AddCommand(newConfigCmd())
	root.AddCommand(newVersionCmd())

	return root
}

// remoteExitError carries a non-zero remote exit status to the process
// exit code.
type remoteExitError struct {
	status uint32
}

func (e *remoteExitError) Error() string {
	return fmt.Sprintf("remote process exited with status %d", e.status)
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var remote *remoteExitError
	if errors.As(err, &remote) {
		if remote.status > 255 {
			return 255
		}
		return int(remote.status)
	}
	return 1
}
