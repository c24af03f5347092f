package export

import (
	"fmt"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"github.com/appealai/ticket-intake/internal/pipeline"
)

// Service produces XLSX bytes for a completed pipeline run so the case
// facts can be handed off or reviewed outside the app.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// CaseFactsXLSX returns an XLSX workbook (as bytes) for one settled run.
func (s *Service) CaseFactsXLSX(snap pipeline.Snapshot) ([]byte, error) {
	if !snap.Settled() {
		return nil, fmt.Errorf("run %s has not settled", snap.RunID)
	}

	f := excelize.NewFile()
	const sheet = "Case Facts"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)
	// drop the default sheet excelize creates
	if index, _ := f.GetSheetIndex("Sheet1"); index != -1 {
		_ = f.DeleteSheet("Sheet1")
	}

	rows := [][2]string{
		{"Run ID", snap.RunID.String()},
		{"Source File", snap.Filename},
		{"Phase", string(snap.Phase)},
		{"Recognized Characters", fmt.Sprintf("%d", len(snap.Text))},
		{"Amount", snap.Fields.Amount},
		{"Issue Date", snap.Fields.IssueDate},
		{"Due Date", snap.Fields.DueDate},
		{"Location", snap.Fields.Location},
		{"Violation Type", snap.Fields.ViolationType},
		{"Ticket Number", snap.Fields.TicketNumber},
		{"Vehicle Info", snap.Fields.VehicleInfo},
		{"Authority", snap.Fields.Authority},
	}

	for i, r := range rows {
		keyCell, _ := excelize.CoordinatesToCellName(1, i+1)
		valCell, _ := excelize.CoordinatesToCellName(2, i+1)
		_ = f.SetCellValue(sheet, keyCell, r[0])
		_ = f.SetCellValue(sheet, valCell, r[1])
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	s.logger.Debug("exported case facts", "run_id", snap.RunID, "bytes", buf.Len())
	return buf.Bytes(), nil
}
