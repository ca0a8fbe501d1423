package cmd

import (
	"fmt"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/quantmind-br/pkgtx/internal/syspkg"
	"github.com/spf13/cobra"
)

func newBuildDepCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "builddep SOURCE...",
		Short: "Install the build dependencies of source packages",
		Long: `Install the build dependencies of each source package or spec file, in order.
Stops at the first failure. Only supported on dnf hosts.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			provider, err := a.providers()
			if err != nil {
				return err
			}

			installer, ok := provider.(syspkg.BuildDepInstaller)
			if !ok {
				return errbuilder.New().
					WithCode(errbuilder.CodeFailedPrecondition).
					WithMsg(fmt.Sprintf("builddep is not supported by the %s backend", provider.Name()))
			}

			for _, spec := range args {
				a.log.Info().Str("source", spec).Msg("installing build dependencies")
				if err := installer.InstallBuildDeps(cmd.Context(), spec); err != nil {
					return fmt.Errorf("builddep %s: %w", spec, err)
				}
			}
			return nil
		},
	}

	return cmd
}
