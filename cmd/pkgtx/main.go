package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/quantmind-br/pkgtx/internal/cmd"
	"github.com/quantmind-br/pkgtx/internal/config"
	"github.com/quantmind-br/pkgtx/internal/logging"
	"github.com/quantmind-br/pkgtx/internal/ui"
)

var version = "dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

// run executes the command line and returns the process exit code
func run(args []string, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		summary, _ := cmd.DescribeError(err, false)
		ui.FprintError(stderr, "%s", summary)
		return cmd.ExitCodeForError(err)
	}

	ui.InitColors(cfg.Logging.Color)

	// Initialize logger
	log := logging.NewLogger(logging.Config{
		Level:   cfg.Logging.Level,
		LogFile: cfg.Paths.LogFile,
		NoColor: logging.NoColor(cfg.Logging.Color),
		Console: stderr,
	})

	// Execute root command
	rootCmd := cmd.NewRootCmd(cfg, log, version)
	rootCmd.SetArgs(args)
	rootCmd.SetErr(stderr)
	err = rootCmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	verbose, _ := rootCmd.PersistentFlags().GetBool("verbose")
	summary, details := cmd.DescribeError(err, verbose)
	log.Debug().Err(err).Msg("command failed")
	ui.FprintError(stderr, "%s", summary)
	for _, line := range details {
		ui.Fprintln(stderr, "  "+line)
	}
	return cmd.ExitCodeForError(err)
}
