// Package report exports event listings as CSV, XLSX or PDF.
package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"training-planner-backend/internal/parse"
	"training-planner-backend/internal/store"
)

// Supported formats.
const (
	FormatCSV   = "csv"
	FormatExcel = "xlsx"
	FormatPDF   = "pdf"
)

var headers = []string{"Event ID", "Name", "Type", "Start", "End", "Status", "Confirm By", "Required", "Inscribed", "Resources"}

// Export renders events in the given format and returns the file body, a
// download name and its content type.
func Export(format string, events []store.EventListing, now time.Time) ([]byte, string, string, error) {
	timestamp := now.Format("20060102_150405")
	rows := flatten(events)

	switch strings.ToLower(format) {
	case FormatCSV, "":
		data, err := exportCSV(rows)
		if err != nil {
			return nil, "", "", err
		}
		return data, fmt.Sprintf("events_report_%s.csv", timestamp), "text/csv", nil

	case FormatExcel:
		data, err := exportExcel(rows)
		if err != nil {
			return nil, "", "", err
		}
		return data, fmt.Sprintf("events_report_%s.xlsx", timestamp),
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", nil

	case FormatPDF:
		data, err := exportPDF(rows)
		if err != nil {
			return nil, "", "", err
		}
		return data, fmt.Sprintf("events_report_%s.pdf", timestamp), "application/pdf", nil

	default:
		return nil, "", "", fmt.Errorf("unsupported report format: %s", format)
	}
}

func flatten(events []store.EventListing) [][]string {
	out := make([][]string, 0, len(events))
	for _, ev := range events {
		required, inscribed := "", ""
		if ev.Participants != nil {
			required = strconv.Itoa(ev.Participants.RequiredParticipants)
			inscribed = strconv.Itoa(ev.Participants.InscribedParticipants)
		}
		names := make([]string, 0, len(ev.Resources))
		for _, r := range ev.Resources {
			names = append(names, r.Name)
		}
		out = append(out, []string{
			strconv.FormatInt(ev.ID, 10),
			ev.Name,
			ev.Type,
			parse.Format(ev.StartDate),
			parse.Format(ev.EndDate),
			ev.Status,
			parse.Format(ev.ConfirmationDeadline),
			required,
			inscribed,
			strings.Join(names, ", "),
		})
	}
	return out
}

func exportCSV(rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(headers); err != nil {
		return nil, err
	}
	if err := writer.WriteAll(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func exportExcel(rows [][]string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Events"
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, err
	}

	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, header)
	}
	for r, row := range rows {
		for c, value := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func exportPDF(rows [][]string) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(0, 10, "Events Report")
	pdf.Ln(20)

	widths := []float64{18, 45, 25, 22, 22, 24, 22, 18, 18, 63}
	pdf.SetFont("Arial", "B", 9)
	for i, header := range headers {
		pdf.CellFormat(widths[i], 7, header, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 8)
	for _, row := range rows {
		for i, value := range row {
			pdf.CellFormat(widths[i], 6, value, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
