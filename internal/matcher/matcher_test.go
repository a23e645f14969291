package matcher

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dsamentor/internal/model"
)

type fakeStore struct {
	prefs    *model.UserPreferences
	resolved map[string]struct{}
}

func (f *fakeStore) GetPreferences(_ context.Context, _ int64) (*model.UserPreferences, error) {
	return f.prefs, nil
}

func (f *fakeStore) ResolvedTitles(_ context.Context, _ int64) (map[string]struct{}, error) {
	if f.resolved == nil {
		return map[string]struct{}{}, nil
	}
	return f.resolved, nil
}

type fakeCatalog struct {
	records []model.QuestionRecord
}

func (f *fakeCatalog) GetAll(_ context.Context) []model.QuestionRecord {
	return f.records
}

func prefs(diffs, topics, companies []string) *model.UserPreferences {
	return &model.UserPreferences{
		UserID:       42,
		Difficulties: diffs,
		Topics:       topics,
		Companies:    companies,
	}
}

func TestMatchSingleEligibleQuestion(t *testing.T) {
	store := &fakeStore{prefs: prefs(
		[]string{"Easy"},
		[]string{model.SentinelAny},
		[]string{model.SentinelAny},
	)}
	catalog := &fakeCatalog{records: []model.QuestionRecord{
		{Title: "Two Sum", Difficulty: "Easy", Topics: "Array", Companies: "Google"},
	}}

	got, err := New(store, catalog).Match(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Two Sum", got[0].Title)
}

func TestMatchFiltersByDifficulty(t *testing.T) {
	store := &fakeStore{prefs: prefs(
		[]string{"Easy", "Medium"},
		[]string{model.SentinelAny},
		[]string{model.SentinelAny},
	)}
	catalog := &fakeCatalog{records: []model.QuestionRecord{
		{Title: "Two Sum", Difficulty: "Easy", Topics: "Array", Companies: "Google"},
		{Title: "Median of Two Sorted Arrays", Difficulty: "Hard", Topics: "Array", Companies: "Google"},
		{Title: "LRU Cache", Difficulty: "Medium", Topics: "Linked List", Companies: "Amazon"},
	}}

	got, err := New(store, catalog).Match(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, q := range got {
		assert.NotEqual(t, "Hard", q.Difficulty)
	}
}

func TestMatchTopicSubstring(t *testing.T) {
	store := &fakeStore{prefs: prefs(
		[]string{model.SentinelAny},
		[]string{"Tree"},
		[]string{model.SentinelAny},
	)}
	catalog := &fakeCatalog{records: []model.QuestionRecord{
		{Title: "Kth Largest", Difficulty: "Medium", Topics: "Binary Tree, Heap", Companies: "Uber"},
		{Title: "Two Sum", Difficulty: "Easy", Topics: "Array", Companies: "Google"},
	}}

	got, err := New(store, catalog).Match(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Kth Largest", got[0].Title)
}

func TestMatchNoPreferenceCompanies(t *testing.T) {
	store := &fakeStore{prefs: prefs(
		[]string{model.SentinelAny},
		[]string{model.SentinelAny},
		[]string{model.SentinelNoPreference},
	)}
	catalog := &fakeCatalog{records: []model.QuestionRecord{
		{Title: "Two Sum", Difficulty: "Easy", Topics: "Array", Companies: "Google"},
		{Title: "Rotate Image", Difficulty: "Medium", Topics: "Array", Companies: ""},
	}}

	got, err := New(store, catalog).Match(context.Background(), 42)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestMatchExcludesResolved(t *testing.T) {
	store := &fakeStore{
		prefs: prefs(
			[]string{model.SentinelAny},
			[]string{model.SentinelAny},
			[]string{model.SentinelAny},
		),
		resolved: map[string]struct{}{
			"Two Sum": {},
		},
	}
	catalog := &fakeCatalog{records: []model.QuestionRecord{
		{Title: "Two Sum", Difficulty: "Easy", Topics: "Array", Companies: "Google"},
		{Title: "Valid Parentheses", Difficulty: "Easy", Topics: "Stack", Companies: "Amazon"},
	}}

	got, err := New(store, catalog).Match(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Valid Parentheses", got[0].Title)
}

func TestMatchErrors(t *testing.T) {
	ctx := context.Background()
	record := model.QuestionRecord{Title: "Two Sum", Difficulty: "Easy", Topics: "Array", Companies: "Google"}

	t.Run("NoPreferences", func(t *testing.T) {
		m := New(&fakeStore{}, &fakeCatalog{records: []model.QuestionRecord{record}})
		_, err := m.Match(ctx, 42)
		assert.ErrorIs(t, err, ErrNoPreferences)
	})

	t.Run("CatalogUnavailable", func(t *testing.T) {
		store := &fakeStore{prefs: prefs(
			[]string{model.SentinelAny}, []string{model.SentinelAny}, []string{model.SentinelAny},
		)}
		_, err := New(store, &fakeCatalog{}).Match(ctx, 42)
		assert.ErrorIs(t, err, ErrCatalogUnavailable)
	})

	t.Run("NoMatch", func(t *testing.T) {
		store := &fakeStore{prefs: prefs(
			[]string{"Hard"}, []string{model.SentinelAny}, []string{model.SentinelAny},
		)}
		_, err := New(store, &fakeCatalog{records: []model.QuestionRecord{record}}).Match(ctx, 42)
		assert.ErrorIs(t, err, ErrNoMatch)
	})

	t.Run("AllResolved", func(t *testing.T) {
		store := &fakeStore{
			prefs: prefs(
				[]string{model.SentinelAny}, []string{model.SentinelAny}, []string{model.SentinelAny},
			),
			resolved: map[string]struct{}{"Two Sum": {}},
		}
		_, err := New(store, &fakeCatalog{records: []model.QuestionRecord{record}}).Match(ctx, 42)
		assert.ErrorIs(t, err, ErrNoMatch)
	})
}
