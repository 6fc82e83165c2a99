package application

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"hqbot/internal/repository"
)

type ExportServiceImpl struct {
	matches repository.Matches
	logger  Logger
}

func NewExportServiceImpl(matches repository.Matches, logger Logger) *ExportServiceImpl {
	return &ExportServiceImpl{
		matches: matches,
		logger:  logger,
	}
}

// ExportHistory builds an xlsx workbook with one sheet of matches and one of
// rounds for the given player.
func (s *ExportServiceImpl) ExportHistory(ctx context.Context, playerID string) ([]byte, error) {
	matches, err := s.matches.ListByPlayer(ctx, playerID, exportLimit)
	if err != nil {
		return nil, storeError("list match history", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if _, err := f.NewSheet(excelMatchesSheet); err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if _, err := f.NewSheet(excelRoundsSheet); err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to delete default sheet: %w", err)
	}

	writeHeader(f, excelMatchesSheet, []string{"ID", "Date", "Adversaire", "Rôle", "Mise", "Manches", "Score", "Statut", "Vainqueur", "Résultat"})
	writeHeader(f, excelRoundsSheet, []string{"Partie", "Manche", "Challenger", "Adversaire", "Vainqueur"})

	row, roundRow := 2, 2
	for _, m := range matches {
		role := "Challenger"
		if m.OpponentID == playerID {
			role = "Adversaire"
		}
		cw, ow := m.Score()

		values := []any{
			m.ID,
			m.CreatedAt.Format(excelDateFormat),
			opponentOf(&m, playerID),
			role,
			m.BetAmount,
			m.TotalRounds,
			fmt.Sprintf("%d-%d", cw, ow),
			string(m.Status),
			m.WinnerID,
			resultFor(&m, playerID),
		}
		if err := setRow(f, excelMatchesSheet, row, values); err != nil {
			return nil, err
		}
		row++

		for _, r := range m.Rounds {
			winner := r.WinnerID
			if r.Tie {
				winner = "égalité"
			}
			if err := setRow(f, excelRoundsSheet, roundRow, []any{m.ID, r.Number, string(r.ChallengerChoice), string(r.OpponentChoice), winner}); err != nil {
				return nil, err
			}
			roundRow++
		}
	}

	f.SetColWidth(excelMatchesSheet, "A", "A", 10)
	f.SetColWidth(excelMatchesSheet, "B", "C", 22)
	f.SetColWidth(excelMatchesSheet, "D", "H", 12)
	f.SetColWidth(excelMatchesSheet, "I", "J", 22)
	f.SetColWidth(excelRoundsSheet, "A", "E", 20)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	s.logger.Debug("exported %d chifumi matches for %s", len(matches), playerID)
	return buf.Bytes(), nil
}

func writeHeader(f *excelize.File, sheet string, headers []string) {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("failed to address row %d: %w", row, err)
	}
	return f.SetSheetRow(sheet, cell, &values)
}
