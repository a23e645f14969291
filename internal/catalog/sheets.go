// Package catalog supplies the read-only question catalog: a Google Sheets
// source behind a TTL snapshot cache.
package catalog

import (
	"context"
	"fmt"
	"os"
	"strings"

	"dsamentor/internal/model"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Source fetches the full question set. Implementations fail hard; the cache
// converts failures into an empty snapshot.
type Source interface {
	FetchAll(ctx context.Context) ([]model.QuestionRecord, error)
}

// SheetsSource reads questions from one spreadsheet range.
type SheetsSource struct {
	svc           *sheets.Service
	spreadsheetID string
	readRange     string
	logger        *zerolog.Logger
}

// SheetsConfig locates the spreadsheet and its service-account credentials.
// CredentialsJSON takes priority over CredentialsPath.
type SheetsConfig struct {
	SpreadsheetID   string
	ReadRange       string
	CredentialsJSON string
	CredentialsPath string
}

// NewSheetsSource builds a read-only Sheets client.
func NewSheetsSource(ctx context.Context, cfg SheetsConfig, logger *zerolog.Logger) (*SheetsSource, error) {
	raw := []byte(cfg.CredentialsJSON)
	if len(raw) == 0 {
		var err error
		raw, err = os.ReadFile(cfg.CredentialsPath)
		if err != nil {
			return nil, fmt.Errorf("read sheets credentials: %w", err)
		}
	}

	creds, err := google.CredentialsFromJSON(ctx, raw, sheets.SpreadsheetsReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("parse sheets credentials: %w", err)
	}

	svc, err := sheets.NewService(ctx, option.WithTokenSource(creds.TokenSource))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &SheetsSource{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		readRange:     cfg.ReadRange,
		logger:        logger,
	}, nil
}

// FetchAll reads the sheet and maps rows to question records. Rows missing a
// title, difficulty or topic are dropped.
func (s *SheetsSource) FetchAll(ctx context.Context) ([]model.QuestionRecord, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, s.readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("fetch sheet values: %w", err)
	}
	if len(resp.Values) == 0 {
		return nil, nil
	}

	cols := headerIndex(resp.Values[0])
	var records []model.QuestionRecord
	for _, row := range resp.Values[1:] {
		r := model.QuestionRecord{
			Title:      cellAt(row, cols["question"]),
			Difficulty: cellAt(row, cols["difficulty"]),
			Topics:     cellAt(row, cols["topics"]),
			Companies:  cellAt(row, cols["companies"]),
		}
		if r.Title == "" || r.Difficulty == "" || r.Topics == "" {
			continue
		}
		records = append(records, r)
	}

	s.logger.Info().Int("count", len(records)).Msg("fetched question catalog")
	return records, nil
}

// headerIndex maps lowercased header names to column positions. A header
// like "Question (375)" still maps to "question".
func headerIndex(header []interface{}) map[string]int {
	cols := map[string]int{"question": -1, "difficulty": -1, "topics": -1, "companies": -1}
	for i, cell := range header {
		name := strings.ToLower(fmt.Sprint(cell))
		for key := range cols {
			if strings.HasPrefix(name, key) && cols[key] == -1 {
				cols[key] = i
			}
		}
		// Spreadsheets sometimes title the column "Title" instead.
		if strings.HasPrefix(name, "title") && cols["question"] == -1 {
			cols["question"] = i
		}
	}
	return cols
}

func cellAt(row []interface{}, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(row[i]))
}
