package services

import (
	"fmt"
	"io"
	"time"

	"github.com/justsurfingit/agentice/internal/models"
	"github.com/xuri/excelize/v2"
)

const (
	applicationsSheet = "Applications"
	summarySheet      = "Summary"
)

var applicationColumns = []string{
	"Company", "Role", "Source", "Location", "Fit Score", "Status",
	"Confirmation", "Submitted At", "Response At", "Job URL", "Notes",
}

type ExportService struct {
	Applications *ApplicationService
}

func NewExportService(apps *ApplicationService) *ExportService {
	return &ExportService{Applications: apps}
}

// ExportApplications writes the user's applications as an xlsx workbook.
func (s *ExportService) ExportApplications(w io.Writer, userID string) error {
	apps, err := s.Applications.ListApplications(userID, "", 0)
	if err != nil {
		return err
	}
	stats, err := s.Applications.Stats(userID)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", applicationsSheet); err != nil {
		return err
	}
	if err := writeApplicationsSheet(f, apps); err != nil {
		return fmt.Errorf("applications sheet: %w", err)
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return err
	}
	rows := [][]interface{}{
		{"Total applications", stats.TotalApplications},
		{"Submitted", stats.Submitted},
		{"Pending approval", stats.PendingApproval},
		{"Generated", time.Now().UTC().Format(time.RFC3339)},
	}
	for i, row := range rows {
		if err := f.SetSheetRow(summarySheet, fmt.Sprintf("A%d", i+1), &row); err != nil {
			return err
		}
	}

	_, err = f.WriteTo(w)
	return err
}

func writeApplicationsSheet(f *excelize.File, apps []models.Application) error {
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return err
	}

	header := make([]interface{}, len(applicationColumns))
	for i, c := range applicationColumns {
		header[i] = c
	}
	if err := f.SetSheetRow(applicationsSheet, "A1", &header); err != nil {
		return err
	}
	lastCol, _ := excelize.ColumnNumberToName(len(applicationColumns))
	if err := f.SetCellStyle(applicationsSheet, "A1", lastCol+"1", headerStyle); err != nil {
		return err
	}

	for i, app := range apps {
		row := []interface{}{
			"", "", "", "", "", string(app.Status), app.ConfirmationNumber,
			formatTime(app.SubmittedAt), formatTime(app.ResponseAt), "", app.Notes,
		}
		if opp := app.Opportunity; opp != nil {
			row[0], row[1], row[2], row[3] = opp.Company, opp.Title, opp.Source, opp.Location
			if opp.FitScore != nil {
				row[4] = *opp.FitScore
			}
			row[9] = opp.URL
		}
		if err := f.SetSheetRow(applicationsSheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return err
		}
	}

	return f.SetColWidth(applicationsSheet, "A", lastCol, 20)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04")
}
