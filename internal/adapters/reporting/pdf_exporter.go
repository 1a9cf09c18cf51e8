package reporting

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/zorenko/aircap/internal/core/domain"
)

// PDFExporter renders audit session reports to PDF.
type PDFExporter struct{}

// NewPDFExporter creates a new PDF exporter instance.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// ExportSessions generates a session history report.
func (e *PDFExporter) ExportSessions(sessions []domain.Session) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	e.addHeader(pdf)
	e.addSummary(pdf, sessions)
	e.addSessionTable(pdf, sessions)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *PDFExporter) addHeader(pdf *gofpdf.Fpdf) {
	pdf.SetFont("Arial", "B", 24)
	pdf.SetTextColor(0, 51, 102)
	pdf.CellFormat(0, 15, "Wireless Audit Report", "", 1, "L", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	pdf.SetTextColor(120, 120, 120)
	pdf.CellFormat(0, 6, fmt.Sprintf("Generated: %s", time.Now().Format("2006-01-02 15:04")), "", 1, "L", false, 0, "")
	pdf.Ln(8)
}

func (e *PDFExporter) addSummary(pdf *gofpdf.Fpdf, sessions []domain.Session) {
	handshakes := 0
	keys := 0
	for _, s := range sessions {
		if s.CaptureState == domain.CaptureHandshakeFound {
			handshakes++
		}
		if s.CrackOutcome == domain.CrackKeyFound {
			keys++
		}
	}

	pdf.SetFont("Arial", "B", 14)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 10, "Summary", "", 1, "L", false, 0, "")

	pdf.SetFont("Arial", "", 11)
	pdf.SetTextColor(60, 60, 60)
	pdf.CellFormat(0, 7, fmt.Sprintf("Cycles run: %d", len(sessions)), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 7, fmt.Sprintf("Handshakes captured: %d", handshakes), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 7, fmt.Sprintf("Passphrases recovered: %d", keys), "", 1, "L", false, 0, "")
	pdf.Ln(6)
}

func (e *PDFExporter) addSessionTable(pdf *gofpdf.Fpdf, sessions []domain.Session) {
	pdf.SetFont("Arial", "B", 14)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 10, "Sessions", "", 1, "L", false, 0, "")

	// Table header
	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(0, 51, 102)
	pdf.SetTextColor(255, 255, 255)
	widths := []float64{38, 34, 12, 32, 28, 26}
	headers := []string{"BSSID", "SSID", "Ch", "Capture", "Recovery", "Started"}
	for i, h := range headers {
		pdf.CellFormat(widths[i], 8, h, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	pdf.SetTextColor(40, 40, 40)
	fill := false
	for _, s := range sessions {
		pdf.SetFillColor(240, 240, 245)
		row := []string{
			s.BSSID,
			truncate(displaySSID(s.SSID), 18),
			s.Channel,
			string(s.CaptureState),
			string(s.CrackOutcome),
			s.StartedAt.Format("01-02 15:04"),
		}
		for i, cell := range row {
			pdf.CellFormat(widths[i], 7, cell, "1", 0, "L", fill, 0, "")
		}
		pdf.Ln(-1)
		fill = !fill
	}
}

func displaySSID(ssid string) string {
	if ssid == "" {
		return "<hidden>"
	}
	return ssid
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
