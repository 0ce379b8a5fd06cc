package mention

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// numberedItemRe matches "1. text" and "2) text" list items.
	numberedItemRe = regexp.MustCompile(`^\s*(\d{1,2})[.)]\s+(.+)$`)

	// listItemRe matches numbered or bulleted list items.
	listItemRe = regexp.MustCompile(`^\s*(?:\d{1,2}[.)]|[-*•])\s+(.+)$`)

	// boldLeadRe captures a bold or heading-style name at the start of an item.
	boldLeadRe = regexp.MustCompile(`^(?:\*\*|__)(.+?)(?:\*\*|__)`)

	// colonLeadRe captures "Name: description" and "Name - description".
	colonLeadRe = regexp.MustCompile(`^([^:\n]{2,60}?)\s*(?::|\s[-–—]\s)`)

	// headingRe matches markdown headings used as list entries.
	headingRe = regexp.MustCompile(`^\s*#{2,4}\s+(?:\d{1,2}[.)]\s+)?(.+)$`)

	markdownLinkRe = regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`)
)

// maxNameWords bounds extracted names; longer leads are sentences.
const maxNameWords = 6

// genericLeads are list leads that describe a topic rather than a business.
var genericLeads = map[string]bool{
	"pros": true, "cons": true, "cost": true, "costs": true, "price": true,
	"pricing": true, "location": true, "locations": true, "services": true,
	"reviews": true, "rating": true, "ratings": true, "note": true,
	"tip": true, "tips": true, "summary": true, "conclusion": true,
	"overview": true, "why": true, "website": true, "phone": true,
	"address": true, "hours": true, "specialties": true, "specialty": true,
	"best for": true, "highlights": true, "experience": true,
	"recommendation": true, "recommendations": true, "considerations": true,
	"contact": true, "availability": true, "features": true, "licensing": true,
	"insurance": true, "warranty": true, "reputation": true, "key features": true,
}

// numberedItems returns the text of each numbered list item in order.
func numberedItems(text string) []string {
	var items []string
	for _, line := range strings.Split(text, "\n") {
		if m := numberedItemRe.FindStringSubmatch(line); m != nil {
			items = append(items, m[2])
		}
	}
	return items
}

// extractListNames pulls candidate business names from list leads and
// headings, in order of appearance.
func extractListNames(text string) []string {
	var names []string
	for _, line := range strings.Split(text, "\n") {
		var lead string
		if m := headingRe.FindStringSubmatch(line); m != nil {
			lead = m[1]
		} else if m := listItemRe.FindStringSubmatch(line); m != nil {
			lead = m[1]
		} else {
			continue
		}
		if name := leadName(lead); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// leadName returns the business name at the start of a list item, or "".
func leadName(item string) string {
	item = markdownLinkRe.ReplaceAllString(strings.TrimSpace(item), "$1")

	var name string
	if m := boldLeadRe.FindStringSubmatch(item); m != nil {
		name = m[1]
	} else if m := colonLeadRe.FindStringSubmatch(item); m != nil {
		name = m[1]
	} else {
		return ""
	}
	return cleanName(name)
}

func cleanName(name string) string {
	name = strings.Trim(strings.TrimSpace(name), "*_`\"'.,:;–—-")
	name = strings.TrimSpace(name)
	if name == "" || len(strings.Fields(name)) > maxNameWords {
		return ""
	}
	r, _ := utf8.DecodeRuneInString(name)
	if !unicode.IsUpper(r) && !unicode.IsDigit(r) {
		return ""
	}
	if genericLeads[fold(name)] || !titleCased(name) {
		return ""
	}
	return name
}

// titleCased reports whether most words of name start with a capital, which
// separates proper names from advice like "Ask for references".
func titleCased(name string) bool {
	words := strings.Fields(name)
	capped := 0
	for _, w := range words {
		r, _ := utf8.DecodeRuneInString(w)
		if unicode.IsUpper(r) || unicode.IsDigit(r) || w == "&" {
			capped++
		}
	}
	return capped*2 > len(words)
}
