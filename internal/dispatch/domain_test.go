package dispatch

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDomain(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare", "acme-plumbing.com", "acme-plumbing.com"},
		{"url with path", "https://www.Acme-Plumbing.com/about?x=1", "acme-plumbing.com"},
		{"whitespace and trailing dot", "  acme.com.  ", "acme.com"},
		{"subdomain kept", "shop.acme.co.uk", "shop.acme.co.uk"},
		{"port dropped", "acme.com:8080", "acme.com"},
		{"idn", "bücher.de", "xn--bcher-kva.de"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeDomain(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeDomain_Invalid(t *testing.T) {
	for _, in := range []string{
		"",
		"   ",
		"localhost",
		"192.168.1.10",
		"acme..com",
		"-acme.com",
		"acme_plumbing.com",
		"co.uk",
		"acme.notarealtld",
	} {
		t.Run(in, func(t *testing.T) {
			_, err := NormalizeDomain(in)
			require.Error(t, err)
			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, "domain", ve.Field)
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	got, err := NormalizeEmail("  Owner@Acme-Plumbing.com ")
	require.NoError(t, err)
	assert.Equal(t, "owner@acme-plumbing.com", got)

	for _, in := range []string{"", "owner", "owner@localhost", "Owner <owner@acme.com>", "a@b@c.com"} {
		_, err := NormalizeEmail(in)
		var ve *ValidationError
		require.True(t, errors.As(err, &ve), in)
		assert.Equal(t, "email", ve.Field)
	}
}
