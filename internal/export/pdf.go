// Package export renders itineraries into printable and shareable formats.
package export

import (
	"bytes"
	"fmt"

	"github.com/phpdave11/gofpdf"

	"github.com/neexbeast/globetrotter/internal/itinerary"
)

var columns = []struct {
	title string
	width float64
	align string
}{
	{"Time", 20, "C"},
	{"Item", 110, "L"},
	{"Hours", 25, "R"},
	{"Cost", 25, "R"},
}

// ItineraryPDF renders one section per stop and one table per day.
func ItineraryPDF(title string, stops []itinerary.StopSchedule) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(title, true)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.CellFormat(0, 12, tr(title), "", 1, "L", false, 0, "")

	var total float64
	for _, stop := range stops {
		total += stop.TotalCost
	}
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(0, 7, fmt.Sprintf("%d stop(s), estimated total %.2f", len(stops), total), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	for _, stop := range stops {
		writeStop(pdf, tr, stop)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("rendering itinerary PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func writeStop(pdf *gofpdf.Fpdf, tr func(string) string, stop itinerary.StopSchedule) {
	pdf.SetFont("Arial", "B", 14)
	heading := fmt.Sprintf("%s (%s to %s)", stop.CityName, stop.StartDate, stop.EndDate)
	pdf.CellFormat(0, 10, tr(heading), "B", 1, "L", false, 0, "")
	pdf.Ln(2)

	for _, day := range stop.Days {
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(0, 7, fmt.Sprintf("Day %d, %s %s", day.DayNumber, day.DayName, day.Date), "", 1, "L", false, 0, "")

		pdf.SetFillColor(230, 230, 230)
		for _, col := range columns {
			pdf.CellFormat(col.width, 6, col.title, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)

		pdf.SetFont("Arial", "", 10)
		for _, item := range day.Items {
			cells := []string{
				item.TimeOfDay,
				tr(item.Title),
				fmt.Sprintf("%.1f", item.DurationHours),
				fmt.Sprintf("%.2f", item.Cost),
			}
			for i, col := range columns {
				pdf.CellFormat(col.width, 6, cells[i], "1", 0, col.align, false, 0, "")
			}
			pdf.Ln(-1)
		}

		pdf.SetFont("Arial", "I", 10)
		pdf.CellFormat(0, 6, fmt.Sprintf("Daily cost: %.2f", day.DailyCost), "", 1, "R", false, 0, "")
		pdf.Ln(3)
	}

	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(0, 7, fmt.Sprintf("Stop total: %.2f", stop.TotalCost), "", 1, "R", false, 0, "")
	pdf.Ln(5)
}
