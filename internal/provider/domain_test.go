package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDomain(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare domain", "teamshares.com", "teamshares.com"},
		{"https scheme", "https://teamshares.com", "teamshares.com"},
		{"http scheme", "http://acme.io", "acme.io"},
		{"www prefix", "https://www.teamshares.com", "teamshares.com"},
		{"path stripped", "https://acme.com/about/team", "acme.com"},
		{"port stripped", "acme.com:8080", "acme.com"},
		{"query stripped", "acme.com?utm=x", "acme.com"},
		{"fragment stripped", "acme.com#top", "acme.com"},
		{"credentials stripped", "user:pass@acme.com", "acme.com"},
		{"trailing dot", "acme.com.", "acme.com"},
		{"uppercased", "HTTPS://WWW.Acme.COM/Team", "acme.com"},
		{"subdomain kept", "app.acme.com", "app.acme.com"},
		{"empty", "", ""},
		{"whitespace", "   ", ""},
		{"not a domain", "localhost", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizeDomain(tc.in))
		})
	}
}

func TestSplitName(t *testing.T) {
	tests := []struct {
		in          string
		first, last string
	}{
		{"Alex Eu", "Alex", "Eu"},
		{"Jane Q. Doe", "Jane", "Doe"},
		{"Prince", "Prince", ""},
		{"  spaced   out  ", "spaced", "out"},
		{"", "", ""},
	}
	for _, tc := range tests {
		first, last := splitName(tc.in)
		assert.Equal(t, tc.first, first, tc.in)
		assert.Equal(t, tc.last, last, tc.in)
	}
}
