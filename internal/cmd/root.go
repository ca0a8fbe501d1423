package cmd

import (
	"context"

	"github.com/quantmind-br/pkgtx/internal/backends"
	"github.com/quantmind-br/pkgtx/internal/config"
	"github.com/quantmind-br/pkgtx/internal/fsops"
	"github.com/quantmind-br/pkgtx/internal/history"
	"github.com/quantmind-br/pkgtx/internal/logging"
	"github.com/quantmind-br/pkgtx/internal/syspkg"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// ProviderFactory returns the host provider for one command invocation
type ProviderFactory func() (syspkg.Provider, error)

// Option customizes the dependencies of the command tree
type Option func(*app)

// WithFs sets the filesystem used for request files, reports and the lock file
func WithFs(fs afero.Fs) Option {
	return func(a *app) { a.fs = fs }
}

// WithProviderFactory replaces host detection
func WithProviderFactory(f ProviderFactory) Option {
	return func(a *app) { a.providers = f }
}

// app carries what every subcommand needs
type app struct {
	cfg       *config.Config
	log       *zerolog.Logger
	fs        afero.Fs
	providers ProviderFactory
	verbose   bool
	quiet     bool
}

// openHistory opens the journal, creating its directory on first use
func (a *app) openHistory(ctx context.Context) (*history.DB, error) {
	if err := fsops.EnsureParentDir(afero.NewOsFs(), a.cfg.Paths.HistoryDB); err != nil {
		return nil, err
	}
	return history.New(ctx, a.cfg.Paths.HistoryDB)
}

// NewRootCmd creates the root command
func NewRootCmd(cfg *config.Config, log *zerolog.Logger, version string, opts ...Option) *cobra.Command {
	a := &app{
		cfg: cfg,
		log: log,
		fs:  afero.NewOsFs(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.providers == nil {
		a.providers = func() (syspkg.Provider, error) {
			return backends.NewRegistry(a.cfg, a.fs, a.log).Provider()
		}
	}

	cmd := &cobra.Command{
		Use:   "pkgtx",
		Short: "Transactional front-end for the system package manager",
		Long: `pkgtx applies a batch of package install and erase requests as one
transaction of the host package manager (dnf or pacman) and writes a JSON
report of every affected package to a dedicated file descriptor.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			level := logging.EffectiveLevel(a.cfg.Logging.Level, a.verbose, a.quiet)
			*a.log = a.log.Level(logging.ParseLevel(level))
		},
	}

	cmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging and full error details")
	cmd.PersistentFlags().BoolVarP(&a.quiet, "quiet", "q", false, "only log warnings and errors")

	// Add subcommands
	cmd.AddCommand(newRunCmd(a))
	cmd.AddCommand(newListCmd(a))
	cmd.AddCommand(newBuildDepCmd(a))
	cmd.AddCommand(newHistoryCmd(a))
	cmd.AddCommand(NewCompletionCmd(log))
	cmd.AddCommand(NewVersionCmd(version))

	return cmd
}
