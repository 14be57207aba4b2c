package transcript

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"

	"github.com/pavelanni/chatlab/internal/model"
)

// PDFRenderer renders a transcript as a PDF document.
type PDFRenderer struct{}

func (PDFRenderer) ContentType() string { return "application/pdf" }

func (PDFRenderer) Render(t model.Transcript) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.MultiCell(0, 7, t.OwnerName, "", "L", false)
	if !t.StartedAt.IsZero() {
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 5, t.StartedAt.Format("2006-01-02 15:04"), "", "L", false)
	}
	pdf.Ln(5)

	for i, turn := range t.Turns {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.MultiCell(0, 6, fmt.Sprintf("[%d] %s", i+1, turn.Request), "", "L", false)
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 6, turn.Response, "", "L", false)
		pdf.Ln(3)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render PDF: %w", err)
	}
	return buf.Bytes(), nil
}
