package provider

import (
	"strings"
)

// NormalizeDomain reduces a website value to a bare domain: scheme, www
// prefix, path, query, fragment, port, and credentials are stripped and
// the result lowercased. Returns "" when nothing domain-like remains.
func NormalizeDomain(website string) string {
	d := strings.TrimSpace(strings.ToLower(website))
	if d == "" {
		return ""
	}

	if i := strings.Index(d, "://"); i >= 0 {
		d = d[i+3:]
	}
	if i := strings.IndexAny(d, "/?#"); i >= 0 {
		d = d[:i]
	}
	if i := strings.LastIndex(d, "@"); i >= 0 {
		d = d[i+1:]
	}
	if i := strings.Index(d, ":"); i >= 0 {
		d = d[:i]
	}
	d = strings.TrimPrefix(d, "www.")
	d = strings.TrimSuffix(d, ".")

	if !strings.Contains(d, ".") {
		return ""
	}
	return d
}

// splitName breaks a full name into first and last tokens. Middle names
// are dropped; single-token names return an empty last name.
func splitName(full string) (first, last string) {
	fields := strings.Fields(strings.TrimSpace(full))
	switch len(fields) {
	case 0:
		return "", ""
	case 1:
		return fields[0], ""
	default:
		return fields[0], fields[len(fields)-1]
	}
}
