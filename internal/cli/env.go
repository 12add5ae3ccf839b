package cli

import (
	"github.com/spf13/cobra"

	"github.com/unnix/unnix/internal/errs"
	"github.com/unnix/unnix/internal/sandbox"
)

var envCmd = &cobra.Command{
	Use:   "env [-- command...]",
	Short: "Launch an isolated shell with the resolved packages available",
	Long: `env locks, fetches the full closure, and execs into a bubblewrap
sandbox with the local store overlaid onto /nix/store. With no command, it
execs $SHELL; arguments after "--" are exec'd directly instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rc, vars, err := prepare(cmd.Context())
		if err != nil {
			return err
		}

		cfg := sandbox.Config{
			Store:   rc.Store,
			Env:     vars,
			Command: args,
		}
		if err := sandbox.Launch(cfg); err != nil {
			return errs.NewExitError(errs.ExitFailure, err)
		}
		return nil // unreachable on success
	},
}

func init() {
	envCmd.Flags().SetInterspersed(false)
}
