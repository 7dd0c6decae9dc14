package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateTenantID(t *testing.T) {
	tests := map[string]struct {
		company    string
		wantPrefix string
	}{
		"simple name":         {company: "Acme Auto", wantPrefix: "acme-auto-"},
		"diacritics stripped": {company: "Garage Müller", wantPrefix: "garage-muller-"},
		"punctuation dropped": {company: "Bob's Brakes & Tires!", wantPrefix: "bobs-brakes-tires-"},
		"underscores":         {company: "east_side_motors", wantPrefix: "east-side-motors-"},
		"collapsed hyphens":   {company: "A --- B", wantPrefix: "a-b-"},
		"empty falls back":    {company: "", wantPrefix: "tenant-"},
		"symbols only":        {company: "!!!", wantPrefix: "tenant-"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			id := GenerateTenantID(tc.company)
			assert.True(t, strings.HasPrefix(id, tc.wantPrefix), "got %q, want prefix %q", id, tc.wantPrefix)
			assert.True(t, ValidTenantID(id), "generated id %q must be valid", id)
			assert.LessOrEqual(t, len(id), tenantIDMaxBase+1+tenantIDSuffixLen)
		})
	}
}

func TestGenerateTenantIDTruncatesLongNames(t *testing.T) {
	id := GenerateTenantID("An Extremely Long Automotive Repair Company Name LLC")
	require.True(t, ValidTenantID(id))
	assert.LessOrEqual(t, len(id), tenantIDMaxBase+1+tenantIDSuffixLen)
}

func TestGenerateTenantIDUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		id := GenerateTenantID("Acme Auto")
		require.False(t, seen[id], "duplicate id %q", id)
		seen[id] = true
	}
}

func TestValidTenantID(t *testing.T) {
	valid := []string{"acme-auto-x1y2z3", "a1", "shop-42"}
	invalid := []string{"", "a", "-leading", "trailing-", "UPPER", "has_underscore", "dot.com"}

	for _, id := range valid {
		assert.True(t, ValidTenantID(id), "%q should be valid", id)
	}
	for _, id := range invalid {
		assert.False(t, ValidTenantID(id), "%q should be invalid", id)
	}
}

func TestValidDomain(t *testing.T) {
	valid := []string{"shop.example.com", "example.com", "a.b.c.co"}
	invalid := []string{"", "example", "-bad.com", "spaces in.com", "example."}

	for _, d := range valid {
		assert.True(t, ValidDomain(d), "%q should be valid", d)
	}
	for _, d := range invalid {
		assert.False(t, ValidDomain(d), "%q should be invalid", d)
	}
}
