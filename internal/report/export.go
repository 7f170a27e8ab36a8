// Package report renders a completed inspection as CSV or PDF for handover
// to the customer on site.
package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/lalitraj881/Fire-Tech-Shield-V2-sub000/internal/domain"
)

// Inspection bundles everything a report needs.
type Inspection struct {
	Job        domain.Job
	Device     domain.Device
	Items      []domain.ChecklistItem
	States     map[string]domain.ChecklistItemState
	Overall    domain.Severity
	FinishedAt time.Time
}

// ToCSV renders the inspection as a two-section CSV: header block, then one
// row per checklist item.
func ToCSV(insp *Inspection) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	w.Write([]string{"Job", "Device", "Serial", "Location", "Overall", "Finished At"})
	w.Write([]string{
		insp.Job.Name,
		insp.Device.Name,
		insp.Device.SerialNumber,
		insp.Device.Location,
		string(insp.Overall),
		insp.FinishedAt.Format("02.01.2006 15:04"),
	})

	w.Write([]string{}) // Empty line
	w.Write([]string{"Question", "Result", "Reading", "Notes", "Photo"})

	for _, item := range insp.Items {
		state := insp.States[item.ID]
		result := ""
		if state.Result != nil {
			result = string(*state.Result)
		}
		reading := state.Text
		if state.Reading != nil {
			reading = fmt.Sprintf("%g %s", *state.Reading, item.Unit)
		}
		w.Write([]string{item.Name, result, reading, state.Notes, state.Photo})
	}

	w.Flush()
	return buf.Bytes(), w.Error()
}

// ToPDF renders the inspection as a one-device summary sheet.
func ToPDF(insp *Inspection) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 10, fmt.Sprintf("Inspection: %s", insp.Device.Name))
	pdf.Ln(10)

	pdf.SetFont("Arial", "", 12)
	pdf.Cell(40, 10, fmt.Sprintf("Job: %s", insp.Job.Name))
	pdf.Ln(8)
	pdf.Cell(40, 10, fmt.Sprintf("Serial: %s", insp.Device.SerialNumber))
	pdf.Ln(8)
	pdf.Cell(40, 10, fmt.Sprintf("Overall: %s", insp.Overall))
	pdf.Ln(8)
	pdf.Cell(40, 10, fmt.Sprintf("Finished: %s", insp.FinishedAt.Format("02.01.2006 15:04")))
	pdf.Ln(15)

	for _, item := range insp.Items {
		state := insp.States[item.ID]

		pdf.SetFont("Arial", "B", 12)
		pdf.MultiCell(0, 8, item.Name, "", "", false)

		pdf.SetFont("Arial", "", 10)
		if state.Result != nil {
			line := fmt.Sprintf("Result: %s", *state.Result)
			if state.Reading != nil {
				line += fmt.Sprintf(" (%g %s)", *state.Reading, item.Unit)
			}
			pdf.Cell(0, 6, line)
			pdf.Ln(6)
		} else {
			pdf.Cell(0, 6, "Not answered")
			pdf.Ln(6)
		}

		if state.Notes != "" {
			pdf.SetFont("Arial", "I", 10)
			pdf.MultiCell(0, 6, fmt.Sprintf("Notes: %s", state.Notes), "", "", false)
		}
		if state.Photo != "" {
			pdf.SetFont("Arial", "", 10)
			pdf.Cell(0, 6, "Photo evidence attached")
			pdf.Ln(6)
		}
		pdf.Ln(5)
	}

	var buf bytes.Buffer
	err := pdf.Output(&buf)
	if err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
