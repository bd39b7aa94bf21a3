package export

import (
	"fmt"
	"io"

	"github.com/fumiama/go-docx"

	"github.com/manthysbr/labforge/internal/core/domain"
)

// DocxRenderer renders a completed lab job as a Word document: a cover page
// with the student and university details, then one report per experiment.
type DocxRenderer struct{}

func NewDocxRenderer() *DocxRenderer { return &DocxRenderer{} }

func (r *DocxRenderer) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
}

func (r *DocxRenderer) FileExt() string { return "docx" }

func (r *DocxRenderer) Render(w io.Writer, user domain.User, job *domain.LabJob) error {
	doc := docx.New().WithDefaultTheme()

	r.coverPage(doc, user, job)

	for i := range job.Experiments {
		exp := &job.Experiments[i]
		doc.AddParagraph().AddPageBreaks()
		r.experiment(doc, exp)
	}

	if _, err := doc.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write docx: %w", err)
	}
	return nil
}

func (r *DocxRenderer) coverPage(doc *docx.Docx, user domain.User, job *domain.LabJob) {
	uni := user.Profile.University

	title := doc.AddParagraph().Justification("center")
	title.AddText(uni.Name).Bold().Size("36")

	if uni.Department != "" {
		dept := doc.AddParagraph().Justification("center")
		dept.AddText("Department of " + uni.Department).Size("28")
	}

	doc.AddParagraph()
	practical := doc.AddParagraph().Justification("center")
	practical.AddText(job.PracticalTitle).Bold().Size("32")

	subject := doc.AddParagraph().Justification("center")
	subject.AddText(fmt.Sprintf("%s (%s)", job.Subject, job.SubjectCode)).Size("24")

	doc.AddParagraph()
	doc.AddParagraph()

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
		p := doc.AddParagraph()
		p.AddText(d[0] + ": ").Bold()
		p.AddText(d[1])
	}
}

func (r *DocxRenderer) experiment(doc *docx.Docx, exp *domain.Experiment) {
	heading := doc.AddParagraph().Justification("center")
	heading.AddText(fmt.Sprintf("Experiment %d", exp.ExperimentNumber)).Bold().Size("28")

	c := exp.GeneratedContent
	if c == nil {
		return
	}

	titlePara := doc.AddParagraph().Justification("center")
	titlePara.AddText(PlainText(c.Title)).Bold().Size("24")

	r.section(doc, "Aim", c.Aim)
	r.listSection(doc, "Apparatus", c.Apparatus)
	r.section(doc, "Theory", c.Theory)
	r.listSection(doc, "Procedure", c.Procedure)
	if c.Code != "" {
		r.section(doc, "Code", c.Code)
	}
	if c.CodeOutput != "" {
		r.section(doc, "Output", c.CodeOutput)
	}
	r.section(doc, "Observations", c.Observations)
	r.section(doc, "Calculations", c.Calculations)
	r.section(doc, "Result", c.Result)
	r.listSection(doc, "Precautions", c.Precautions)
	r.listSection(doc, "References", c.References)
}

func (r *DocxRenderer) section(doc *docx.Docx, heading, body string) {
	if body == "" {
		return
	}
	h := doc.AddParagraph()
	h.AddText(heading).Bold().Size("24")
	r.formatted(doc, body)
}

func (r *DocxRenderer) listSection(doc *docx.Docx, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	h := doc.AddParagraph()
	h.AddText(heading).Bold().Size("24")
	for i, item := range items {
		p := doc.AddParagraph()
		p.AddText(fmt.Sprintf("%d. ", i+1))
		for _, seg := range ParseMarkup(item) {
			run := p.AddText(seg.Text)
			if seg.Bold {
				run.Bold()
			}
		}
	}
}

// formatted writes body text preserving line structure and **bold** runs.
func (r *DocxRenderer) formatted(doc *docx.Docx, body string) {
	for _, line := range splitLines(body) {
		p := doc.AddParagraph()
		for _, seg := range ParseMarkup(line) {
			run := p.AddText(seg.Text)
			if seg.Bold {
				run.Bold()
			}
		}
	}
}
