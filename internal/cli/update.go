package cli

import (
	"github.com/spf13/cobra"

	"github.com/unnix/unnix/internal/errs"
	"github.com/unnix/unnix/internal/resolver"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Re-resolve every package unconditionally",
	Long: `update behaves like lock, but ignores input-hash reuse entirely: every
declared package is re-resolved against its source even if nothing changed,
useful for picking up a new build without editing the manifest.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rc, err := loadContext()
		if err != nil {
			return err
		}

		if err := resolver.Resolve(cmd.Context(), rc.Manifest, rc.Lockfile, rc.System, true); err != nil {
			return errs.NewExitError(errs.ExitFailure, err)
		}

		return rc.saveLockfile()
	},
}
