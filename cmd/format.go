package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/sells-group/visibility-cli/internal/model"
)

// reportYAML is the yaml rendering of a report. It keeps the full
// competitor list, which the public JSON view omits.
type reportYAML struct {
	RunID           string                  `yaml:"run_id"`
	Domain          string                  `yaml:"domain"`
	OverallScore    int                     `yaml:"overall_score"`
	ProminenceScore int                     `yaml:"prominence_score"`
	MentionCount    int                     `yaml:"mention_count"`
	QueryCount      int                     `yaml:"query_count"`
	Platforms       []model.PlatformScore   `yaml:"platforms"`
	Competitors     []model.CompetitorCount `yaml:"competitors"`
	AllCompetitors  []model.CompetitorCount `yaml:"all_competitors,omitempty"`
	Summary         string                  `yaml:"summary"`
	CreatedAt       time.Time               `yaml:"created_at"`
}

func reportDoc(r *model.Report) reportYAML {
	return reportYAML{
		RunID:           r.RunID,
		Domain:          r.Domain,
		OverallScore:    r.OverallScore,
		ProminenceScore: r.ProminenceScore,
		MentionCount:    r.MentionCount,
		QueryCount:      r.QueryCount,
		Platforms:       r.PlatformScores,
		Competitors:     r.Competitors,
		AllCompetitors:  r.AllCompetitors,
		Summary:         r.Summary,
		CreatedAt:       r.CreatedAt,
	}
}

// formatReport writes a human-readable report to out.
func formatReport(out io.Writer, r *model.Report) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Domain:\t%s\n", r.Domain)
	_, _ = fmt.Fprintf(w, "Visibility score:\t%d/100\n", r.OverallScore)
	_, _ = fmt.Fprintf(w, "Prominence score:\t%d/100\n", r.ProminenceScore)
	_, _ = fmt.Fprintf(w, "Mentions:\t%d of %d queries\n", r.MentionCount, r.QueryCount)
	_ = w.Flush()

	if len(r.PlatformScores) > 0 {
		_, _ = fmt.Fprintln(out)
		w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "PLATFORM\tSCORE\tMENTIONS\tOK\tFAILED")
		for _, ps := range r.PlatformScores {
			_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\n", ps.Platform, ps.Score, ps.Mentions, ps.Successful, ps.Failed)
		}
		_ = w.Flush()
	}

	if len(r.Competitors) > 0 {
		_, _ = fmt.Fprintln(out)
		w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "COMPETITOR\tMENTIONS")
		for _, c := range r.Competitors {
			_, _ = fmt.Fprintf(w, "%s\t%d\n", c.Name, c.Count)
		}
		_ = w.Flush()
	}

	if r.Summary != "" {
		_, _ = fmt.Fprintf(out, "\n%s\n", r.Summary)
	}
}

// formatRunsList writes a tabular list of runs to out.
func formatRunsList(out io.Writer, runs []model.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tDOMAIN\tSTATUS\tPROGRESS\tTRIGGER\tCREATED\tDURATION")
	_, _ = fmt.Fprintln(w, "--\t------\t------\t--------\t-------\t-------\t--------")

	for _, r := range runs {
		dur := "-"
		if r.StartedAt != nil && r.CompletedAt != nil {
			dur = r.CompletedAt.Sub(*r.StartedAt).Round(time.Second).String()
		}

		domain := r.Domain
		if len(domain) > 30 {
			domain = domain[:27] + "..."
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d%%\t%s\t%s\t%s\n",
			truncateID(r.ID),
			domain,
			r.Status,
			r.Progress,
			r.Trigger,
			r.CreatedAt.Format("2006-01-02 15:04"),
			dur,
		)
	}
	_ = w.Flush()
}

// formatSubscriptions writes a tabular list of subscriptions to out.
func formatSubscriptions(out io.Writer, subs []model.Subscription) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tACCOUNT\tDOMAIN\tSTATUS\tCOMPETITORS\tCREATED")
	for _, s := range subs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			s.ID,
			truncateID(s.AccountID),
			s.Domain,
			s.Status,
			len(s.Competitors),
			s.CreatedAt.Format("2006-01-02"),
		)
	}
	_ = w.Flush()
}

func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
