package cli

import (
	"github.com/spf13/cobra"

	"github.com/unnix/unnix/internal/errs"
	"github.com/unnix/unnix/internal/resolver"
)

var lockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Resolve packages and pin their outputs to unnix.lock.json",
	Long: `lock resolves every package declared for the host system, reusing a
previously pinned entry whenever its resolution inputs are unchanged and
resolving it fresh against its source otherwise.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rc, err := loadContext()
		if err != nil {
			return err
		}

		if err := resolver.Resolve(cmd.Context(), rc.Manifest, rc.Lockfile, rc.System, false); err != nil {
			return errs.NewExitError(errs.ExitFailure, err)
		}

		return rc.saveLockfile()
	},
}
