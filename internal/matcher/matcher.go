// Package matcher selects the questions a user is eligible to receive.
package matcher

import (
	"context"
	"errors"
	"strings"

	"dsamentor/internal/model"
)

var (
	// ErrNoPreferences means the user never completed /setup.
	ErrNoPreferences = errors.New("no preferences set")
	// ErrCatalogUnavailable means the catalog snapshot is empty.
	ErrCatalogUnavailable = errors.New("question catalog unavailable")
	// ErrNoMatch means every catalog question was filtered out.
	ErrNoMatch = errors.New("no matching questions")
)

// PreferencesStore is the slice of storage the matcher reads.
type PreferencesStore interface {
	GetPreferences(ctx context.Context, userID int64) (*model.UserPreferences, error)
	ResolvedTitles(ctx context.Context, userID int64) (map[string]struct{}, error)
}

// Catalog provides the current question snapshot.
type Catalog interface {
	GetAll(ctx context.Context) []model.QuestionRecord
}

type Matcher struct {
	store   PreferencesStore
	catalog Catalog
}

func New(store PreferencesStore, catalog Catalog) *Matcher {
	return &Matcher{store: store, catalog: catalog}
}

// Match returns every catalog question the user is eligible for. The caller
// picks one uniformly at random so daily delivery varies.
//
// A question survives the filter when:
//   - its title is not in the user's resolved history (permanent exclusion),
//   - its difficulty is in the preferred set, unless that set contains Any,
//   - its topic text contains at least one preferred topic as a
//     case-insensitive substring, unless the topic set contains Any,
//   - likewise for companies, where "No preference" also disables the filter.
func (m *Matcher) Match(ctx context.Context, userID int64) ([]model.QuestionRecord, error) {
	prefs, err := m.store.GetPreferences(ctx, userID)
	if err != nil {
		return nil, err
	}
	if prefs == nil {
		return nil, ErrNoPreferences
	}

	all := m.catalog.GetAll(ctx)
	if len(all) == 0 {
		return nil, ErrCatalogUnavailable
	}

	resolved, err := m.store.ResolvedTitles(ctx, userID)
	if err != nil {
		return nil, err
	}

	anyDifficulty := model.HasAny(prefs.Difficulties)
	anyTopic := model.HasAny(prefs.Topics)
	anyCompany := model.HasAny(prefs.Companies) || model.HasNoPreference(prefs.Companies)

	var eligible []model.QuestionRecord
	for _, q := range all {
		if _, done := resolved[q.Title]; done {
			continue
		}
		if !anyDifficulty && !containsFold(prefs.Difficulties, q.Difficulty) {
			continue
		}
		if !anyTopic && !tagMatches(q.Topics, prefs.Topics) {
			continue
		}
		if !anyCompany && !tagMatches(q.Companies, prefs.Companies) {
			continue
		}
		eligible = append(eligible, q)
	}

	if len(eligible) == 0 {
		return nil, ErrNoMatch
	}
	return eligible, nil
}

func containsFold(set []string, v string) bool {
	for _, s := range set {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}

// tagMatches reports whether the comma-joined tag text contains any of the
// wanted values as a substring. Deliberately loose: "Tree" matches a record
// tagged "Binary Tree, Heap".
func tagMatches(tagText string, wanted []string) bool {
	text := strings.ToLower(tagText)
	for _, w := range wanted {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" && strings.Contains(text, w) {
			return true
		}
	}
	return false
}
