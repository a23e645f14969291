package model

import (
	"strings"
	"time"
)

// SentinelAny matches every value of the set it appears in.
// SentinelNoPreference is accepted for companies only and behaves like Any.
const (
	SentinelAny          = "Any"
	SentinelNoPreference = "No preference"
)

// Offered choice lists for the setup wizard.
var (
	Difficulties = []string{"Easy", "Medium", "Hard", SentinelAny}

	Topics = []string{
		"Array", "Linked List", "Tree", "Graph", "String",
		"Dynamic Programming", "Heap", "Stack", "Queue", SentinelAny,
	}

	Companies = []string{
		"Google", "Amazon", "Microsoft", "Facebook", "Apple", "Netflix",
		"Uber", SentinelNoPreference, SentinelAny,
	}
)

// UserPreferences holds the question filters a user configured via /setup.
// Each set may contain the Any sentinel; the company set may also contain
// "No preference", which filters nothing.
type UserPreferences struct {
	UserID       int64     `json:"user_id"`
	Difficulties []string  `json:"difficulties"`
	Topics       []string  `json:"topics"`
	Companies    []string  `json:"companies"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HasAny reports whether the given set contains the Any sentinel.
func HasAny(set []string) bool {
	for _, v := range set {
		if strings.EqualFold(v, SentinelAny) {
			return true
		}
	}
	return false
}

// HasNoPreference reports whether the set contains the company wildcard.
func HasNoPreference(set []string) bool {
	for _, v := range set {
		if strings.EqualFold(v, SentinelNoPreference) {
			return true
		}
	}
	return false
}

// ParseSelection sanitizes a comma-separated wizard reply against the list of
// offered choices. Unknown entries are dropped; an Any entry collapses the
// whole selection to Any, and an empty result falls back to Any.
func ParseSelection(input string, choices []string) []string {
	parts := strings.Split(input, ",")
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(p), "✅ "))
		if p == "" {
			continue
		}
		if strings.EqualFold(p, SentinelAny) {
			return []string{SentinelAny}
		}
		for _, c := range choices {
			if strings.EqualFold(p, c) {
				out = append(out, c)
				break
			}
		}
	}
	if len(out) == 0 {
		return []string{SentinelAny}
	}
	return out
}
