package scorer

import (
	"fmt"
	"strings"
)

// Summary renders a short, deterministic description of a result.
func Summary(r Result, domain string) string {
	if r.QueryCount == 0 {
		return fmt.Sprintf("No AI questions were asked about %s.", domain)
	}
	if r.SuccessfulCount == 0 {
		return fmt.Sprintf("None of the %d AI queries about %s returned an answer, so visibility could not be measured.",
			r.QueryCount, domain)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s was mentioned in %d of %d AI answers (%d%%)",
		domain, r.MentionCount, r.SuccessfulCount, r.OverallScore)
	if len(r.PlatformScores) > 0 {
		fmt.Fprintf(&b, " across %d %s", len(r.PlatformScores), plural(len(r.PlatformScores), "platform", "platforms"))
	}
	b.WriteString(".")

	if best, worst, ok := extremes(r); ok {
		fmt.Fprintf(&b, " Strongest on %s (%d%%), weakest on %s (%d%%).",
			best.Platform, best.Score, worst.Platform, worst.Score)
	}

	if failed := r.QueryCount - r.SuccessfulCount; failed > 0 {
		fmt.Fprintf(&b, " %d %s did not return an answer.", failed, plural(failed, "query", "queries"))
	}

	if len(r.Competitors) > 0 {
		top := r.Competitors[0]
		fmt.Fprintf(&b, " The most-mentioned competitor was %s (%d %s).",
			top.Name, top.Count, plural(top.Count, "mention", "mentions"))
	}
	return b.String()
}

// extremes returns the best and worst scoring platforms among those with at
// least one answer. ok is false when they would be the same platform or
// tie.
func extremes(r Result) (best, worst struct {
	Platform string
	Score    int
}, ok bool) {
	first := true
	for _, ps := range r.PlatformScores {
		if ps.Successful == 0 {
			continue
		}
		if first {
			best.Platform, best.Score = ps.Platform, ps.Score
			worst = best
			first = false
			continue
		}
		if ps.Score > best.Score {
			best.Platform, best.Score = ps.Platform, ps.Score
		}
		if ps.Score < worst.Score {
			worst.Platform, worst.Score = ps.Platform, ps.Score
		}
	}
	return best, worst, !first && best.Score != worst.Score
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
