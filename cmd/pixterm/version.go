package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/pixterm/internal/version"
)

func newVersionCmd() *cobra.Command {
	var dirty, verbose bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.Read()
			out := cmd.OutOrStdout()
			if _, err := fmt.Fprintln(out, info.Line(dirty)); err != nil {
				return err
			}
			if !verbose || info.Revision == "" {
				return nil
			}
			_, err := fmt.Fprintf(out, "revision %s\ncommitted %s\nmodified %t\n",
				info.Revision, info.Time.Format(time.RFC3339), info.Modified)
			return err
		},
	}
	cmd.Flags().BoolVar(&dirty, "dirty", false, "include the +dirty suffix for modified builds")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print vcs revision details")
	return cmd
}
