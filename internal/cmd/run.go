package cmd

import (
	"context"
	"time"

	"github.com/quantmind-br/pkgtx/internal/core"
	"github.com/quantmind-br/pkgtx/internal/history"
	"github.com/quantmind-br/pkgtx/internal/manifest"
	"github.com/quantmind-br/pkgtx/internal/report"
	"github.com/quantmind-br/pkgtx/internal/security"
	"github.com/quantmind-br/pkgtx/internal/transaction"
	"github.com/spf13/cobra"
)

func newRunCmd(a *app) *cobra.Command {
	var (
		installs     []string
		erases       []string
		requestsFile string
		outputPath   string
		timeout      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Apply install and erase requests as one transaction",
		Long: `Apply install and erase requests as one transaction of the host package manager.

Specifiers have the form NAME or NAME,VERSION. Erase requests are staged before
install requests. On success a JSON array describing every affected package is
written to file descriptor output.fd (default 3) or to --output.`,
		Example: `  pkgtx run --erase pkgX --install pkgY,2.0 3>report.json
  pkgtx run --requests requests.yaml --output report.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			requests := core.ParseRequests(core.RequestErase, erases)
			requests = append(requests, core.ParseRequests(core.RequestInstall, installs)...)

			if requestsFile != "" {
				f, err := manifest.Load(a.fs, requestsFile)
				if err != nil {
					return invalidArgument("%v", err)
				}
				requests = append(requests, f.Requests()...)
			}

			// a bad version is dropped at staging; only a bad name rejects the batch
			for _, req := range requests {
				if err := security.ValidatePackageName(req.Name); err != nil {
					return invalidArgument("invalid %s request: %v", req.Kind, err)
				}
			}

			sink := report.NewSink(a.fs, outputPath, a.cfg.Output.FD)
			if err := sink.Check(); err != nil {
				return invalidArgument("report output not writable: %v", err)
			}

			provider, err := a.providers()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			a.log.Debug().
				Str("backend", provider.Name()).
				Int("requests", len(requests)).
				Msg("starting transaction")

			entry := &history.Entry{
				StartedAt: time.Now(),
				Backend:   provider.Name(),
				Requests:  requests,
			}

			result, runErr := transaction.NewOrchestrator(provider, a.log).Run(ctx, requests)
			if runErr == nil {
				runErr = report.Write(sink, result.Outcomes)
			}

			entry.FinishedAt = time.Now()
			entry.Status = history.StatusFailed
			if result != nil {
				entry.Outcomes = result.Outcomes
				entry.Status = history.StatusCompleted
				if result.Status == core.PlanNothingToDo {
					entry.Status = history.StatusNothingToDo
				}
			}
			if runErr != nil {
				entry.Error = runErr.Error()
			}
			a.recordHistory(context.WithoutCancel(ctx), entry)

			if runErr != nil {
				return runErr
			}

			a.log.Info().
				Int("packages", len(result.Outcomes)).
				Str("status", string(entry.Status)).
				Msg("transaction finished")
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&installs, "install", "i", nil, "package to install (NAME or NAME,VERSION), repeatable")
	cmd.Flags().StringArrayVarP(&erases, "erase", "e", nil, "package to erase (NAME or NAME,VERSION), repeatable")
	cmd.Flags().StringVarP(&requestsFile, "requests", "r", "", "YAML file with install and erase lists")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "write the JSON report to this file instead of output.fd")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "give up waiting for the lock or plan resolution after this long (0 disables)")

	return cmd
}

// recordHistory journals entry. Failures are logged and never change the result.
func (a *app) recordHistory(ctx context.Context, entry *history.Entry) {
	if !a.cfg.History.Enabled {
		return
	}

	db, err := a.openHistory(ctx)
	if err != nil {
		a.log.Warn().Err(err).Msg("failed to open transaction history")
		return
	}
	defer db.Close()

	if err := db.Record(ctx, entry); err != nil {
		a.log.Warn().Err(err).Msg("failed to record transaction history")
		return
	}
	a.log.Debug().Int64("id", entry.ID).Msg("transaction recorded")
}
