package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/visibility-cli/internal/model"
	"github.com/sells-group/visibility-cli/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect scan run history",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List scan runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		status, _ := cmd.Flags().GetString("status")
		domain, _ := cmd.Flags().GetString("domain")
		sub, _ := cmd.Flags().GetString("subscription")
		trigger, _ := cmd.Flags().GetString("trigger")
		limit, _ := cmd.Flags().GetInt("limit")

		filter := store.RunFilter{
			Status:         model.RunStatus(status),
			Domain:         domain,
			SubscriptionID: sub,
			Trigger:        model.TriggerKind(trigger),
			Limit:          limit,
		}
		if filter.Status != "" && !filter.Status.Valid() {
			return eris.Errorf("runs list: unknown status %q", status)
		}
		if filter.Trigger != "" && !filter.Trigger.Valid() {
			return eris.Errorf("runs list: unknown trigger %q", trigger)
		}

		runs, err := st.ListRuns(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, runs)
		return nil
	},
}

// -- runs show --

// runDetail is the yaml document printed by runs show.
type runDetail struct {
	Run       *model.Run          `yaml:"run"`
	Analysis  *model.SiteAnalysis `yaml:"analysis,omitempty"`
	Prompts   []string            `yaml:"prompts,omitempty"`
	Responses []responseLine      `yaml:"responses,omitempty"`
	Report    *reportYAML         `yaml:"report,omitempty"`
}

type responseLine struct {
	Prompt    int    `yaml:"prompt"`
	Platform  string `yaml:"platform"`
	Mentioned bool   `yaml:"mentioned"`
	Position  *int   `yaml:"position,omitempty"`
	Error     string `yaml:"error,omitempty"`
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a run with its stage outputs and report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}
		detail := runDetail{Run: run}

		analysis, err := st.GetSiteAnalysis(ctx, run.ID)
		switch {
		case err == nil:
			detail.Analysis = analysis
		case !errors.Is(err, store.ErrNotFound):
			return eris.Wrap(err, "runs show: analysis")
		}

		prompts, err := st.ListPrompts(ctx, run.ID)
		if err != nil {
			return eris.Wrap(err, "runs show: prompts")
		}
		for _, p := range prompts {
			detail.Prompts = append(detail.Prompts, fmt.Sprintf("[%s] %s", p.Category, p.Text))
		}

		responses, err := st.ListPlatformResponses(ctx, run.ID)
		if err != nil {
			return eris.Wrap(err, "runs show: responses")
		}
		detail.Responses = responseLines(responses)

		if run.Status == model.RunStatusComplete {
			report, err := st.GetReport(ctx, run.ID)
			if err != nil {
				return eris.Wrap(err, "runs show: report")
			}
			doc := reportDoc(report)
			detail.Report = &doc
		}

		return writeYAML(os.Stdout, detail)
	},
}

func responseLines(responses []model.PlatformResponse) []responseLine {
	out := make([]responseLine, 0, len(responses))
	for _, r := range responses {
		line := responseLine{
			Prompt:    r.PromptIndex,
			Platform:  r.Platform,
			Mentioned: r.Mentioned,
			Position:  r.Position,
		}
		if r.ErrorMessage != nil {
			line.Error = *r.ErrorMessage
		}
		out = append(out, line)
	}
	return out
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return eris.Wrap(err, "encode yaml")
	}
	return enc.Close()
}

func init() {
	runsListCmd.Flags().String("status", "", "filter by run status (pending, crawling, analyzing, generating, querying, complete, failed)")
	runsListCmd.Flags().String("domain", "", "filter by domain")
	runsListCmd.Flags().String("subscription", "", "filter by subscription ID")
	runsListCmd.Flags().String("trigger", "", "filter by trigger kind (automatic, manual, scheduled)")
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}
