package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/unnix/unnix/internal/errs"
	"github.com/unnix/unnix/internal/manifest"
	"github.com/unnix/unnix/internal/system"
)

// template is the starter unnix.kdl written by init, pre-populated
// for the host system so `unnix lock` works immediately afterward.
const template = `hydra "default" {
    domain "hydra.nixos.org"
    project "nixpkgs"
    jobset "unstable"
}

system %q {
    packages {
        pkg "hello"
    }
    caches {
        "https://cache.nixos.org"
    }
    env {
        PATH "{hello.out}/bin"
    }
}
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter unnix.kdl for the host system",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := filepath.Join(directoryFlag, manifest.FileName)
		if _, err := os.Stat(path); err == nil {
			return errs.NewExitErrorf(errs.ExitConfigError, "%s already exists", path)
		}

		sys, err := system.Host()
		if err != nil {
			return errs.NewExitError(errs.ExitFailure, err)
		}

		content := fmt.Sprintf(template, sys.String())
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return errs.NewExitError(errs.ExitFailure, err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
		return nil
	},
}
