// Package export builds the XLSX progress workbook sent by /export.
package export

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"dsamentor/internal/model"
)

// History is the slice of the store the exporter reads.
type History interface {
	QuestionHistory(ctx context.Context, userID int64) ([]model.QuestionState, error)
	GetStreak(ctx context.Context, userID int64) (int, error)
}

type Exporter struct {
	store History
}

func New(store History) *Exporter {
	return &Exporter{store: store}
}

// Workbook renders the user's full question history as an XLSX file and
// returns its bytes, ready to upload as a document.
func (e *Exporter) Workbook(ctx context.Context, userID int64) ([]byte, error) {
	history, err := e.store.QuestionHistory(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	streak, err := e.store.GetStreak(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load streak: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Progress"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Question", "Status", "Updated (UTC)"}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, err
		}
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetCellStyle(sheet, "A1", "C1", style)
	}

	done, missed, pending := 0, 0, 0
	for i, st := range history {
		switch st.Status {
		case model.StatusDone:
			done++
		case model.StatusMissed:
			missed++
		default:
			pending++
		}
		row := []interface{}{st.Title, string(st.Status), st.UpdatedAt.UTC().Format("2006-01-02 15:04")}
		for j, val := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheet, cell, val); err != nil {
				return nil, err
			}
		}
	}

	summary := [][]interface{}{
		{"Done", done},
		{"Missed", missed},
		{"Pending", pending},
		{"Current streak", streak},
	}
	base := len(history) + 3
	for i, row := range summary {
		for j, val := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, base+i)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheet, cell, val); err != nil {
				return nil, err
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
