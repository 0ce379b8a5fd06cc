package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/visibility-cli/internal/dispatch"
	"github.com/sells-group/visibility-cli/internal/model"
	"github.com/sells-group/visibility-cli/internal/pipeline"
)

var (
	scanDomain string
	scanEmail  string
	scanFormat string
)

// inlineExecutor executes a run before Submit returns.
type inlineExecutor struct {
	runner dispatch.Runner
	budget time.Duration
}

func (e inlineExecutor) Submit(ctx context.Context, runID string) error {
	ctx, cancel := context.WithTimeout(ctx, e.budget)
	defer cancel()
	return e.runner.Execute(ctx, runID)
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan a single domain and print its report",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initApp(ctx, "scan", nil)
		if err != nil {
			return err
		}
		defer env.Close()

		gw := dispatch.NewGateway(env.Store, inlineExecutor{
			runner: env.Pipeline,
			budget: cfg.Dispatch.RunBudget(),
		}, cfg.Dispatch, nil)

		run, err := gw.CreateFirstTouchRun(ctx, scanDomain, scanEmail)
		if err != nil {
			return eris.Wrap(err, "scan")
		}

		final, err := env.Store.GetRun(ctx, run.ID)
		if err != nil {
			return eris.Wrap(err, "scan: reload run")
		}
		if final.Status != model.RunStatusComplete {
			msg := "unknown error"
			if final.Error != nil {
				msg = *final.Error
			}
			return eris.Errorf("scan: run %s %s: %s", final.ID, final.Status, msg)
		}

		report, err := env.Store.GetReport(ctx, run.ID)
		if err != nil {
			return eris.Wrap(err, "scan: load report")
		}
		if err := writeReport(os.Stdout, report, scanFormat); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "\nReport: %s\n", pipeline.ReportURL(cfg.Server.PublicBaseURL, report.Token))
		return nil
	},
}

// writeReport renders a report as text, json or yaml.
func writeReport(w io.Writer, r *model.Report, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close() //nolint:errcheck
		return enc.Encode(reportDoc(r))
	case "text", "":
		formatReport(w, r)
		return nil
	default:
		return eris.Errorf("unknown format %q (text, json, yaml)", format)
	}
}

func init() {
	scanCmd.Flags().StringVar(&scanDomain, "domain", "", "domain to scan (required)")
	scanCmd.Flags().StringVar(&scanEmail, "email", "", "contact email for the scan (required)")
	scanCmd.Flags().StringVar(&scanFormat, "format", "text", "output format: text, json, yaml")
	_ = scanCmd.MarkFlagRequired("domain")
	_ = scanCmd.MarkFlagRequired("email")
	rootCmd.AddCommand(scanCmd)
}
