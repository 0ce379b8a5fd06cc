package dispatch

import (
	"net"
	"net/mail"
	"net/url"
	"strings"

	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"
)

const (
	maxHostLen  = 253
	maxLabelLen = 63
)

// NormalizeDomain reduces user input such as "https://www.Acme.com/about"
// to a bare lowercase hostname ("acme.com"). Internationalized names are
// converted to their ASCII form.
func NormalizeDomain(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", &ValidationError{Field: "domain", Message: "is required"}
	}
	if !strings.Contains(s, "://") {
		s = "http://" + s
	}
	u, err := url.Parse(s)
	if err != nil || u.Hostname() == "" {
		return "", &ValidationError{Field: "domain", Message: "is not a valid hostname"}
	}

	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	host = strings.TrimPrefix(host, "www.")

	if net.ParseIP(host) != nil {
		return "", &ValidationError{Field: "domain", Message: "must be a domain name, not an IP address"}
	}

	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return "", &ValidationError{Field: "domain", Message: "is not a valid hostname"}
	}
	host = ascii

	if err := checkLabels(host); err != nil {
		return "", err
	}

	suffix, icann := publicsuffix.PublicSuffix(host)
	if !icann && !strings.Contains(suffix, ".") {
		return "", &ValidationError{Field: "domain", Message: "has an unknown top-level domain"}
	}
	if _, err := publicsuffix.EffectiveTLDPlusOne(host); err != nil {
		return "", &ValidationError{Field: "domain", Message: "is a public suffix, not a site"}
	}
	return host, nil
}

func checkLabels(host string) error {
	if len(host) > maxHostLen || !strings.Contains(host, ".") {
		return &ValidationError{Field: "domain", Message: "is not a valid hostname"}
	}
	for _, label := range strings.Split(host, ".") {
		if label == "" || len(label) > maxLabelLen ||
			strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-") {
			return &ValidationError{Field: "domain", Message: "is not a valid hostname"}
		}
		for _, r := range label {
			if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-') {
				return &ValidationError{Field: "domain", Message: "is not a valid hostname"}
			}
		}
	}
	return nil
}

// NormalizeEmail validates and lowercases an email address.
func NormalizeEmail(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", &ValidationError{Field: "email", Message: "is required"}
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return "", &ValidationError{Field: "email", Message: "is not a valid address"}
	}
	at := strings.LastIndexByte(addr.Address, '@')
	if at < 1 || !strings.Contains(addr.Address[at+1:], ".") {
		return "", &ValidationError{Field: "email", Message: "is not a valid address"}
	}
	return strings.ToLower(addr.Address), nil
}
