// Package mention finds a target business and its competitors in AI answers.
package mention

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/net/publicsuffix"
	"golang.org/x/text/cases"
)

// minTermRunes filters terms too short to match reliably.
const minTermRunes = 3

var legalSuffixRe = regexp.MustCompile(`(?i)[,\s]+(llc|l\.l\.c\.|inc\.?|incorporated|co\.|corp\.?|corporation|ltd\.?|pllc|pc)$`)

// fold case-folds s for caseless comparison. A fresh Caser is used per call
// because Casers are not safe for concurrent use.
func fold(s string) string {
	return cases.Fold().String(s)
}

// BrandTerms derives the strings that identify the target in free text:
// the domain, its registrable label, the label with separators as spaces
// and removed, and the business name with and without a legal suffix.
// A bare label is only a term when it is distinctive: it carries a
// separator or digit, or it spells the business name. Terms are folded and
// deduplicated, longest first.
func BrandTerms(domain, businessName string) []string {
	var terms []string
	add := func(s string) {
		s = strings.TrimSpace(fold(s))
		if len([]rune(s)) >= minTermRunes {
			terms = append(terms, s)
		}
	}

	domain = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(domain)), "www.")
	if domain != "" {
		add(domain)
		label := registrableLabel(domain)
		if distinctiveLabel(label, businessName) {
			add(label)
		}
		if strings.ContainsAny(label, "-_") {
			add(strings.NewReplacer("-", " ", "_", " ").Replace(label))
			add(strings.NewReplacer("-", "", "_", "").Replace(label))
		}
	}

	if name := strings.TrimSpace(businessName); name != "" {
		add(name)
		add(StripLegalSuffix(name))
	}

	return dedupeLongestFirst(terms)
}

// registrableLabel returns "acme-plumbing" for "shop.acme-plumbing.co.uk".
func registrableLabel(domain string) string {
	etld1, err := publicsuffix.EffectiveTLDPlusOne(domain)
	if err != nil {
		etld1 = domain
	}
	if i := strings.IndexByte(etld1, '.'); i > 0 {
		return etld1[:i]
	}
	return etld1
}

// distinctiveLabel reports whether label can identify the business on its
// own. "plumbing" from plumbing.com is an ordinary word and is not.
func distinctiveLabel(label, businessName string) bool {
	if strings.ContainsAny(label, "-_0123456789") {
		return true
	}
	if strings.TrimSpace(businessName) == "" {
		return false
	}
	l := compact(fold(label))
	return l == compact(fold(businessName)) || l == compact(fold(StripLegalSuffix(businessName)))
}

// compact drops every rune that is not a letter or digit.
func compact(s string) string {
	return strings.Map(func(r rune) rune {
		if isWordRune(r) {
			return r
		}
		return -1
	}, s)
}

// StripLegalSuffix removes trailing entity designators like "LLC" or "Inc.".
func StripLegalSuffix(name string) string {
	return strings.TrimSpace(legalSuffixRe.ReplaceAllString(strings.TrimSpace(name), ""))
}

// CitesDomain reports whether any citation URL is on domain or a subdomain.
func CitesDomain(citations []string, domain string) bool {
	domain = strings.TrimPrefix(strings.ToLower(domain), "www.")
	for _, c := range citations {
		u, err := url.Parse(strings.TrimSpace(c))
		if err != nil || u.Host == "" {
			continue
		}
		h := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
		if h == domain || strings.HasSuffix(h, "."+domain) {
			return true
		}
	}
	return false
}

func dedupeLongestFirst(terms []string) []string {
	seen := make(map[string]bool, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	// Stable insertion sort by length; lists are tiny.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && len(out[j]) > len(out[j-1]); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
