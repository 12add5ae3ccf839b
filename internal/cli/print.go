package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/unnix/unnix/internal/sandbox"
)

var printCmd = &cobra.Command{
	Use:   "print",
	Short: "Print information about the resolved environment",
}

var printEnvCmd = &cobra.Command{
	Use:   "env",
	Short: "Print `export NAME=VALUE` lines for the resolved environment",
	Long: `print env locks and fetches the closure exactly like the env command,
then prints each resolved variable as a shell-escaped export statement to
stdout, suitable for eval "$(unnix print env)".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, vars, err := prepare(cmd.Context())
		if err != nil {
			return err
		}
		for _, v := range vars {
			fmt.Fprintf(cmd.OutOrStdout(), "export %s=%s\n", v.Name, sandbox.ShellEscape(v.Value))
		}
		return nil
	},
}

func init() {
	printCmd.AddCommand(printEnvCmd)
}
