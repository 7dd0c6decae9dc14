package service

import (
	"crypto/rand"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	tenantIDMaxBase   = 20
	tenantIDSuffixLen = 6
	suffixAlphabet    = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// tenantIDPattern is the shape required of caller-supplied tenant ids.
var tenantIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*[a-z0-9]$`)

// domainPattern is a pragmatic syntax check for candidate custom domains.
var domainPattern = regexp.MustCompile(`^([a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?\.)+[a-z]{2,}$`)

var collapsePattern = regexp.MustCompile(`-+`)

// GenerateTenantID derives a globally unique slug from a company name:
// lowercased, diacritics stripped, whitespace and underscores collapsed to
// hyphens, trimmed to 20 characters, with a random 6-character suffix.
func GenerateTenantID(companyName string) string {
	base := slugify(companyName)
	if base == "" {
		base = "tenant"
	}
	if len(base) > tenantIDMaxBase {
		base = strings.Trim(base[:tenantIDMaxBase], "-")
	}
	return base + "-" + randomSuffix(tenantIDSuffixLen)
}

// ValidTenantID reports whether a caller-supplied id has the required shape.
func ValidTenantID(id string) bool {
	return tenantIDPattern.MatchString(id)
}

// ValidDomain reports whether a candidate custom domain is syntactically
// plausible.
func ValidDomain(domain string) bool {
	return domainPattern.MatchString(strings.ToLower(domain))
}

func slugify(name string) string {
	// Strip diacritics: decompose, drop combining marks, recompose.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, name)
	if err != nil {
		stripped = name
	}

	var b strings.Builder
	for _, r := range strings.ToLower(stripped) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case unicode.IsSpace(r), r == '_', r == '-':
			b.WriteByte('-')
		}
	}
	return strings.Trim(collapsePattern.ReplaceAllString(b.String(), "-"), "-")
}

func randomSuffix(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing is unrecoverable for uniqueness guarantees
		panic(err)
	}
	for i := range buf {
		buf[i] = suffixAlphabet[int(buf[i])%len(suffixAlphabet)]
	}
	return string(buf)
}
