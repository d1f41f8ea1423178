package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/OdenLounge/Oden-Lounge/internal/mail"
	"github.com/OdenLounge/Oden-Lounge/internal/models"

	"github.com/xuri/excelize/v2"
)

const SheetName = "Reservations"

var headers = []string{
	"Reference", "First name", "Last name", "Email", "Phone",
	"Guests", "Date", "Time", "Status", "Created",
}

// WriteReservations writes one row per reservation to w as an XLSX workbook.
// Status cells share the accent colors of the status email.
func WriteReservations(w io.Writer, reservations []*models.Reservation) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(SheetName)
	if err != nil {
		return fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	headerStyle, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("error creating header style: %w", err)
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(SheetName, cell, h)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	_ = f.SetCellStyle(SheetName, "A1", lastCol+"1", headerStyle)

	statusStyles := make(map[models.Status]int)
	for _, s := range []models.Status{models.StatusPending, models.StatusConfirmed, models.StatusCancelled} {
		style, err := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Color: []string{strings.TrimPrefix(mail.StatusColor(s), "#")}, Pattern: 1},
			Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		})
		if err != nil {
			return fmt.Errorf("error creating status style: %w", err)
		}
		statusStyles[s] = style
	}

	for i, r := range reservations {
		row := i + 2
		values := []interface{}{
			r.ReferenceNumber, r.FirstName, r.LastName, r.Email, r.Phone,
			r.Guests, r.Date, r.Time, r.Status.Label(), r.CreatedAt.Format("2006-01-02 15:04"),
		}
		start, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(SheetName, start, &values); err != nil {
			return fmt.Errorf("error writing row %d: %w", row, err)
		}
		if style, ok := statusStyles[r.Status]; ok {
			cell, _ := excelize.CoordinatesToCellName(9, row)
			_ = f.SetCellStyle(SheetName, cell, cell, style)
		}
	}

	_ = f.SetColWidth(SheetName, "A", "A", 14)
	_ = f.SetColWidth(SheetName, "B", "C", 16)
	_ = f.SetColWidth(SheetName, "D", "D", 28)
	_ = f.SetColWidth(SheetName, "E", lastCol, 14)
	_ = f.SetPanes(SheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("error writing workbook: %w", err)
	}
	return nil
}
