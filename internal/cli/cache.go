package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "List the binary caches configured for the host system",
	RunE: func(cmd *cobra.Command, args []string) error {
		rc, err := loadContext()
		if err != nil {
			return err
		}

		sm := rc.Manifest.ForSystem(rc.System)
		for _, c := range sm.Caches {
			fmt.Fprintln(cmd.OutOrStdout(), c)
		}
		return nil
	},
}
