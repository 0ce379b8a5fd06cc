package scorer

import (
	"math"
	"sort"
	"strings"

	"github.com/sells-group/visibility-cli/internal/config"
	"github.com/sells-group/visibility-cli/internal/model"
)

// Result is the aggregate outcome of a run's platform responses.
type Result struct {
	OverallScore    int                     `json:"overall_score"`
	ProminenceScore int                     `json:"prominence_score"`
	PlatformScores  []model.PlatformScore   `json:"platform_scores"`
	MentionCount    int                     `json:"mention_count"`
	QueryCount      int                     `json:"query_count"`
	SuccessfulCount int                     `json:"successful_count"`
	Competitors     []model.CompetitorCount `json:"competitors"`
	AllCompetitors  []model.CompetitorCount `json:"all_competitors"`
}

// Compute scores a run from its responses. The result depends only on the
// set of responses, not on their order.
func Compute(responses []model.PlatformResponse, cfg config.ScoringConfig) Result {
	cfg = withDefaults(cfg)
	rows := canonical(responses)

	res := Result{QueryCount: len(rows)}

	type tally struct{ ok, failed, mentioned int }
	perPlatform := make(map[string]*tally)
	var platforms []string
	var prominence float64

	type agg struct {
		name  string
		count int
	}
	var comps []*agg
	byKey := make(map[string]*agg)

	for i := range rows {
		r := &rows[i]
		t := perPlatform[r.Platform]
		if t == nil {
			t = &tally{}
			perPlatform[r.Platform] = t
			platforms = append(platforms, r.Platform)
		}
		if !r.Succeeded() {
			t.failed++
			continue
		}
		t.ok++
		res.SuccessfulCount++
		if r.Mentioned {
			t.mentioned++
			res.MentionCount++
			prominence += PositionWeight(r.Position)
		}
		for _, c := range r.Competitors {
			name := strings.TrimSpace(c.Name)
			if name == "" || c.Count <= 0 {
				continue
			}
			key := strings.ToLower(name)
			a := byKey[key]
			if a == nil {
				a = &agg{name: name}
				byKey[key] = a
				comps = append(comps, a)
			}
			a.count += c.Count
		}
	}

	res.OverallScore = percent(float64(res.MentionCount), res.SuccessfulCount)
	res.ProminenceScore = percent(prominence, res.SuccessfulCount)

	sort.Strings(platforms)
	res.PlatformScores = make([]model.PlatformScore, 0, len(platforms))
	for _, p := range platforms {
		t := perPlatform[p]
		res.PlatformScores = append(res.PlatformScores, model.PlatformScore{
			Platform:   p,
			Score:      percent(float64(t.mentioned), t.ok),
			Mentions:   t.mentioned,
			Successful: t.ok,
			Failed:     t.failed,
		})
	}

	// comps is in first-seen order; a stable sort keeps it for ties.
	sort.SliceStable(comps, func(i, j int) bool { return comps[i].count > comps[j].count })
	all := make([]model.CompetitorCount, 0, len(comps))
	for _, a := range comps {
		all = append(all, model.CompetitorCount{Name: a.name, Count: a.count})
	}
	if len(all) > cfg.InternalCompetitors {
		all = all[:cfg.InternalCompetitors]
	}
	res.AllCompetitors = all
	public := all
	if len(public) > cfg.PublicCompetitors {
		public = public[:cfg.PublicCompetitors]
	}
	res.Competitors = append([]model.CompetitorCount{}, public...)

	return res
}

// PositionWeight is the prominence credit of a mention at pos. An unknown
// position gets full credit.
func PositionWeight(pos *int) float64 {
	if pos == nil {
		return 1.0
	}
	switch p := *pos; {
	case p <= 1:
		return 1.0
	case p == 2:
		return 0.8
	case p == 3:
		return 0.6
	case p <= 5:
		return 0.4
	default:
		return 0.2
	}
}

// percent returns round(100*num/den) clamped to [0,100], or 0 when den is 0.
func percent(num float64, den int) int {
	if den <= 0 {
		return 0
	}
	v := int(math.Round(100 * num / float64(den)))
	return max(0, min(100, v))
}

// canonical returns a copy of responses sorted by (PromptIndex, Platform,
// PromptID).
func canonical(responses []model.PlatformResponse) []model.PlatformResponse {
	rows := make([]model.PlatformResponse, len(responses))
	copy(rows, responses)
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.PromptIndex != b.PromptIndex {
			return a.PromptIndex < b.PromptIndex
		}
		if a.Platform != b.Platform {
			return a.Platform < b.Platform
		}
		return a.PromptID < b.PromptID
	})
	return rows
}
