// Package report renders a committed patient record into a portable PDF
// artifact. Rendering is a pure transform: no network, no shared state, and
// deterministic output so the artifact digest is reproducible.
package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/medilink/patient-portal/internal/model"
)

const (
	docTitle   = "Patient Profile"
	labelWidth = 60.0
	rowHeight  = 8.0
	headerSize = 14.0
	bodySize   = 10.0
	unassigned = "None"
)

// Renderer produces profile report artifacts.
type Renderer struct {
	title string
}

func NewRenderer() *Renderer {
	return &Renderer{title: docTitle}
}

// Rows returns the tabular layout of the record: (field, value) pairs in the
// record's canonical order, with the doctor assignment appended as a display
// row.
func (r *Renderer) Rows(rec model.PatientRecord) []model.FieldValue {
	rows := rec.Pairs()
	assigned := unassigned
	if !rec.DoctorAssigned.Empty() {
		assigned = fmt.Sprintf("%s <%s>", rec.DoctorAssigned.Name, rec.DoctorAssigned.Email)
	}
	rows = append(rows, model.FieldValue{Field: "doctorAssigned", Value: assigned})
	return rows
}

// Render serializes the record into PDF bytes. The creation and modification
// dates are pinned to the epoch so identical records produce byte-identical
// artifacts.
func (r *Renderer) Render(rec model.PatientRecord) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCreationDate(time.Unix(0, 0))
	pdf.SetModificationDate(time.Unix(0, 0))
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", headerSize)
	pdf.CellFormat(0, 10, r.title, "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "B", bodySize)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(labelWidth, rowHeight, "Field", "1", 0, "L", true, 0, "")
	pdf.CellFormat(0, rowHeight, "Value", "1", 1, "L", true, 0, "")

	pdf.SetFont("Helvetica", "", bodySize)
	for _, row := range r.Rows(rec) {
		pdf.CellFormat(labelWidth, rowHeight, string(row.Field), "1", 0, "L", false, 0, "")
		pdf.CellFormat(0, rowHeight, row.Value, "1", 1, "L", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render profile report: %w", err)
	}
	return buf.Bytes(), nil
}
