package mention

import (
	"strings"

	"github.com/sells-group/visibility-cli/internal/model"
)

// Target identifies the business a scan evaluates.
type Target struct {
	Domain       string
	BusinessName string
	// Competitors are names known ahead of time: subscription competitors
	// and names the site itself lists.
	Competitors []string
}

// Result is what a scan of one answer found.
type Result struct {
	Mentioned   bool
	Position    *int
	Competitors []model.CompetitorCount
}

// Detector scans answers for the target and its competitors. It is safe
// for concurrent use.
type Detector struct {
	domain string
	terms  []string
	known  []knownName
}

type knownName struct {
	display string
	folded  string
}

// NewDetector builds a Detector for target.
func NewDetector(target Target) *Detector {
	d := &Detector{
		domain: strings.TrimPrefix(strings.ToLower(strings.TrimSpace(target.Domain)), "www."),
		terms:  BrandTerms(target.Domain, target.BusinessName),
	}
	seen := make(map[string]bool)
	for _, c := range target.Competitors {
		c = strings.TrimSpace(c)
		f := fold(c)
		if len([]rune(f)) < minTermRunes || seen[f] || d.isTarget(f) {
			continue
		}
		seen[f] = true
		d.known = append(d.known, knownName{display: c, folded: f})
	}
	return d
}

// Scan inspects one answer. Citations are source URLs returned alongside
// the answer; a citation on the target's domain counts as a mention.
func (d *Detector) Scan(text string, citations []string) Result {
	folded := fold(text)

	var res Result
	targetAt := firstOf(folded, d.terms)
	res.Mentioned = targetAt >= 0 || CitesDomain(citations, d.domain)

	type hit struct {
		name  string
		first int
		count int
	}
	var hits []hit
	seen := make(map[string]bool)
	record := func(display, f string) {
		if seen[f] || d.isTarget(f) {
			return
		}
		seen[f] = true
		first := indexWord(folded, f)
		if first < 0 {
			return
		}
		hits = append(hits, hit{name: display, first: first, count: countWord(folded, f)})
	}
	for _, k := range d.known {
		record(k.display, k.folded)
	}
	for _, name := range extractListNames(text) {
		record(name, fold(name))
	}

	// Order by first occurrence in the answer.
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].first < hits[j-1].first; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}
	for _, h := range hits {
		res.Competitors = append(res.Competitors, model.CompetitorCount{Name: h.name, Count: h.count})
	}

	if targetAt >= 0 {
		pos := d.listPosition(text)
		if pos == 0 {
			pos = 1
			for _, h := range hits {
				if h.first < targetAt {
					pos++
				}
			}
		}
		res.Position = &pos
	}
	return res
}

// listPosition returns the 1-based numbered item holding the target, or 0.
func (d *Detector) listPosition(text string) int {
	for i, item := range numberedItems(text) {
		if firstOf(fold(item), d.terms) >= 0 {
			return i + 1
		}
	}
	return 0
}

// isTarget reports whether a folded name is the target itself. Names are
// compared whole, ignoring punctuation and a legal suffix, so "Radiant
// Plumbing" is not the target of plumbing.com.
func (d *Detector) isTarget(f string) bool {
	whole := compact(f)
	stripped := compact(fold(StripLegalSuffix(f)))
	for _, t := range d.terms {
		ct := compact(t)
		if ct == whole || ct == stripped {
			return true
		}
	}
	return false
}
