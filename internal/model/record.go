package model

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Record is the persisted commute enrichment for one normalized address.
type Record struct {
	Address     string    `json:"address" yaml:"address"`
	Station     string    `json:"mrt" yaml:"mrt"`
	WalkMinutes int       `json:"min_walk_to_mrt" yaml:"min_walk_to_mrt"`
	WorkMinutes int       `json:"min_to_work" yaml:"min_to_work"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
}

// NormalizeAddress trims and upper-cases a free-text address. The result is
// the key records are stored under. A Caser holds state, so each call gets
// its own.
func NormalizeAddress(s string) string {
	return cases.Upper(language.Und).String(strings.TrimSpace(s))
}

// DedupAddresses normalizes each address and drops blanks and repeats,
// keeping the first occurrence.
func DedupAddresses(addrs []string) []string {
	seen := make(map[string]struct{}, len(addrs))
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		n := NormalizeAddress(a)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
