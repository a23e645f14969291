package export

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"dsamentor/internal/model"
)

type fakeHistory struct {
	states []model.QuestionState
	streak int
}

func (f *fakeHistory) QuestionHistory(_ context.Context, _ int64) ([]model.QuestionState, error) {
	return f.states, nil
}

func (f *fakeHistory) GetStreak(_ context.Context, _ int64) (int, error) {
	return f.streak, nil
}

func TestWorkbookContents(t *testing.T) {
	updated := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)
	store := &fakeHistory{
		states: []model.QuestionState{
			{Title: "Two Sum", Status: model.StatusDone, UpdatedAt: updated},
			{Title: "LRU Cache", Status: model.StatusMissed, UpdatedAt: updated},
			{Title: "Word Ladder", Status: model.StatusPending, UpdatedAt: updated},
		},
		streak: 4,
	}

	data, err := New(store).Workbook(context.Background(), 7)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Progress")
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(rows), 9)
	assert.Equal(t, []string{"Question", "Status", "Updated (UTC)"}, rows[0])
	assert.Equal(t, "Two Sum", rows[1][0])
	assert.Equal(t, "done", rows[1][1])
	assert.Equal(t, "LRU Cache", rows[2][0])

	// Summary block after a blank separator row.
	var streakRow []string
	for _, row := range rows {
		if len(row) >= 2 && row[0] == "Current streak" {
			streakRow = row
		}
	}
	require.NotNil(t, streakRow)
	assert.Equal(t, "4", streakRow[1])
}

func TestWorkbookEmptyHistory(t *testing.T) {
	data, err := New(&fakeHistory{}).Workbook(context.Background(), 7)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Progress")
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	assert.Equal(t, "Question", rows[0][0])
}
