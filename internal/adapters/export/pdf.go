package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/manthysbr/labforge/internal/core/domain"
)

// PdfRenderer renders a completed lab job as a PDF with the same layout as
// the Word export.
type PdfRenderer struct{}

func NewPdfRenderer() *PdfRenderer { return &PdfRenderer{} }

func (r *PdfRenderer) ContentType() string { return "application/pdf" }

func (r *PdfRenderer) FileExt() string { return "pdf" }

func (r *PdfRenderer) Render(w io.Writer, user domain.User, job *domain.LabJob) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	r.coverPage(pdf, tr, user, job)

	for i := range job.Experiments {
		pdf.AddPage()
		r.experiment(pdf, tr, &job.Experiments[i])
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to write pdf: %w", err)
	}
	return nil
}

func (r *PdfRenderer) coverPage(pdf *fpdf.Fpdf, tr func(string) string, user domain.User, job *domain.LabJob) {
	pdf.AddPage()
	uni := user.Profile.University

	pdf.SetFont("Times", "B", 20)
	pdf.CellFormat(0, 12, tr(uni.Name), "", 1, "C", false, 0, "")

	if uni.Department != "" {
		pdf.SetFont("Times", "", 14)
		pdf.CellFormat(0, 8, tr("Department of "+uni.Department), "", 1, "C", false, 0, "")
	}

	pdf.Ln(16)
	pdf.SetFont("Times", "B", 18)
	pdf.CellFormat(0, 10, tr(job.PracticalTitle), "", 1, "C", false, 0, "")
	pdf.SetFont("Times", "", 13)
	pdf.CellFormat(0, 8, tr(fmt.Sprintf("%s (%s)", job.Subject, job.SubjectCode)), "", 1, "C", false, 0, "")

	pdf.Ln(24)
	details := [][2]string{
		{"Submitted By", user.Profile.FullName},
		{"Roll Number", user.Profile.RollNumber},
		{"Course", user.Profile.Course},
		{"Semester", user.Profile.Semester},
		{"Section", user.Profile.Section},
		{"Submitted To", job.InstructorName},
	}
	for _, d := range details {
		if d[1] == "" {
			continue
		}
		pdf.SetFont("Times", "B", 12)
		pdf.CellFormat(45, 8, tr(d[0]+":"), "", 0, "L", false, 0, "")
		pdf.SetFont("Times", "", 12)
		pdf.CellFormat(0, 8, tr(d[1]), "", 1, "L", false, 0, "")
	}
}

func (r *PdfRenderer) experiment(pdf *fpdf.Fpdf, tr func(string) string, exp *domain.Experiment) {
	pdf.SetFont("Times", "B", 15)
	pdf.CellFormat(0, 10, tr(fmt.Sprintf("Experiment %d", exp.ExperimentNumber)), "", 1, "C", false, 0, "")

	c := exp.GeneratedContent
	if c == nil {
		return
	}

	pdf.SetFont("Times", "B", 13)
	pdf.CellFormat(0, 8, tr(PlainText(c.Title)), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	r.section(pdf, tr, "Aim", c.Aim, false)
	r.listSection(pdf, tr, "Apparatus", c.Apparatus)
	r.section(pdf, tr, "Theory", c.Theory, false)
	r.listSection(pdf, tr, "Procedure", c.Procedure)
	if c.Code != "" {
		r.section(pdf, tr, "Code", c.Code, true)
	}
	if c.CodeOutput != "" {
		r.section(pdf, tr, "Output", c.CodeOutput, true)
	}
	r.section(pdf, tr, "Observations", c.Observations, false)
	r.section(pdf, tr, "Calculations", c.Calculations, false)
	r.section(pdf, tr, "Result", c.Result, false)
	r.listSection(pdf, tr, "Precautions", c.Precautions)
	r.listSection(pdf, tr, "References", c.References)
}

// section renders a heading and body. Monospace sections (code, output)
// keep their line structure verbatim.
func (r *PdfRenderer) section(pdf *fpdf.Fpdf, tr func(string) string, heading, body string, mono bool) {
	if body == "" {
		return
	}
	pdf.SetFont("Times", "B", 13)
	pdf.CellFormat(0, 8, heading, "", 1, "L", false, 0, "")

	if mono {
		pdf.SetFont("Courier", "", 10)
		pdf.MultiCell(0, 5, tr(body), "", "L", false)
	} else {
		r.richText(pdf, tr, body)
	}
	pdf.Ln(3)
}

func (r *PdfRenderer) listSection(pdf *fpdf.Fpdf, tr func(string) string, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	pdf.SetFont("Times", "B", 13)
	pdf.CellFormat(0, 8, heading, "", 1, "L", false, 0, "")
	for i, item := range items {
		pdf.SetFont("Times", "", 12)
		pdf.Write(6, fmt.Sprintf("%d. ", i+1))
		r.richLine(pdf, tr, item)
		pdf.Ln(6)
	}
	pdf.Ln(3)
}

// richText writes body paragraphs with **bold** runs as style toggles in
// flowing text.
func (r *PdfRenderer) richText(pdf *fpdf.Fpdf, tr func(string) string, body string) {
	for _, line := range splitLines(body) {
		if strings.TrimSpace(line) == "" {
			pdf.Ln(3)
			continue
		}
		r.richLine(pdf, tr, line)
		pdf.Ln(6)
	}
}

func (r *PdfRenderer) richLine(pdf *fpdf.Fpdf, tr func(string) string, line string) {
	for _, seg := range ParseMarkup(line) {
		style := ""
		if seg.Bold {
			style = "B"
		}
		pdf.SetFont("Times", style, 12)
		pdf.Write(6, tr(seg.Text))
	}
}

// splitLines splits on \n, tolerating \r\n.
func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.Split(s, "\n")
}
