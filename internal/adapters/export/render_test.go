package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manthysbr/labforge/internal/core/domain"
)

func sampleJob() (domain.User, *domain.LabJob) {
	user := domain.User{
		Profile: domain.Profile{
			FullName:   "Asha K",
			RollNumber: "21CS001",
			Course:     "B.Tech CSE",
			Semester:   "4",
			University: domain.University{Name: "Test University", Department: "CSE"},
		},
	}
	content := &domain.ExperimentContent{
		Title:        "Implement Stack",
		Aim:          "**The aim of this experiment was to** implement a stack.",
		Apparatus:    []string{"**Python 3.11**"},
		Theory:       "A **stack** is a LIFO structure.",
		Procedure:    []string{"**Step 1**: Set up the environment"},
		Code:         "class Stack:\n    pass",
		CodeOutput:   "$ python stack.py\nProgram exited with code 0",
		Observations: "Push and pop behaved as expected.",
		Calculations: "O(1) per operation.",
		Result:       "**The experiment successfully demonstrated** stack operations.",
		Precautions:  []string{"Check for underflow"},
		References:   []string{"CLRS"},
	}
	job := &domain.LabJob{
		ID:             "job-1",
		PracticalTitle: "DS Lab File",
		Subject:        "Data Structures",
		SubjectCode:    "CS201",
		InstructorName: "Dr. Rao",
		Experiments: []domain.Experiment{
			{ExperimentNumber: 1, Title: "Implement Stack", Status: domain.ExperimentCompleted, GeneratedContent: content},
			{ExperimentNumber: 2, Title: "Implement Queue", Status: domain.ExperimentCompleted, GeneratedContent: content},
		},
	}
	return user, job
}

func TestDocxRenderProducesDocument(t *testing.T) {
	user, job := sampleJob()
	var buf bytes.Buffer

	r := NewDocxRenderer()
	require.NoError(t, r.Render(&buf, user, job))
	assert.Greater(t, buf.Len(), 1000)
	// DOCX is a zip archive
	assert.Equal(t, []byte{'P', 'K'}, buf.Bytes()[:2])
	assert.Equal(t, "docx", r.FileExt())
}

func TestPdfRenderProducesDocument(t *testing.T) {
	user, job := sampleJob()
	var buf bytes.Buffer

	r := NewPdfRenderer()
	require.NoError(t, r.Render(&buf, user, job))
	assert.Greater(t, buf.Len(), 1000)
	assert.Equal(t, []byte("%PDF"), buf.Bytes()[:4])
	assert.Equal(t, "pdf", r.FileExt())
}
