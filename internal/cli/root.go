// Package cli implements unnix's command-line interface: init, lock,
// update, cache, env, and print env.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/unnix/unnix/internal/errs"
	"github.com/unnix/unnix/internal/logging"
)

var exitFunc = os.Exit

var directoryFlag string
var verboseFlag bool

var rootCmd = &cobra.Command{
	Use:   "unnix",
	Short: "A lightweight consumer of a content-addressed binary package store",
	Long: `unnix resolves packages declared in unnix.kdl against a build farm,
pins them in unnix.lock.json, fetches their closure from binary caches into
a local store, and launches an isolated shell with those outputs available.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verboseFlag {
			logging.Enable()
			logging.SetLevel(logging.LevelDebug)
		}
		logging.ConfigureFromEnv(os.Getenv("UNNIX_LOG"))
	},
}

// Execute runs the root command and exits with unnix's exit-code
// policy: 0 on success, 1 on resolution/I-O/protocol failure, 2 on a
// manifest or lockfile configuration error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		code := errs.GetExitCode(err)
		fmt.Fprintln(os.Stderr, err)
		exitFunc(code)
	}
}

// ExecuteTest runs the root command for testing, returning the error
// instead of exiting the process.
func ExecuteTest() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&directoryFlag, "directory", "d", ".", "project directory containing unnix.kdl")
	rootCmd.PersistentFlags().BoolVar(&verboseFlag, "verbose", false, "enable verbose debug output")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(lockCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(envCmd)
	rootCmd.AddCommand(printCmd)
}
