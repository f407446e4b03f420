package aggregator

import (
	"strings"

	"github.com/dreamware/catalogd/internal/catalog"
)

// Filter applies a multi-term, case-insensitive, AND-of-terms substring
// match over the aggregated view to produce the visible result set.
//
// An empty or whitespace-only term returns the input unchanged. Otherwise
// the term is split on whitespace and a record is kept when every
// sub-term is a substring of the lowercased name or of the decimal form
// of the code. The administrative variant (matchOwner) also matches on
// the lowercased owner label.
//
// Pure, synchronous and idempotent: no hidden state, same inputs always
// yield the same output.
func Filter(all []catalog.Product, term string, matchOwner bool) []catalog.Product {
	subTerms := strings.Fields(strings.ToLower(term))
	if len(subTerms) == 0 {
		return all
	}

	kept := make([]catalog.Product, 0, len(all))
	for _, p := range all {
		if matchesAll(p, subTerms, matchOwner) {
			kept = append(kept, p)
		}
	}
	return kept
}

func matchesAll(p catalog.Product, subTerms []string, matchOwner bool) bool {
	name := strings.ToLower(p.Name)
	code := p.CodeString()
	owner := ""
	if matchOwner {
		owner = strings.ToLower(p.OwnerLabel)
	}

	for _, sub := range subTerms {
		if strings.Contains(name, sub) || strings.Contains(code, sub) {
			continue
		}
		if matchOwner && strings.Contains(owner, sub) {
			continue
		}
		return false
	}
	return true
}
