package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoExperimentJob() *LabJob {
	return &LabJob{
		ID:     "job-1",
		UserID: "u1",
		Experiments: []Experiment{
			{ExperimentNumber: 1, Title: "Stack", Status: ExperimentPending},
			{ExperimentNumber: 2, Title: "Queue", Status: ExperimentPending},
		},
		Status:    JobStatusCreated,
		CreatedAt: time.Now().UTC(),
	}
}

func TestRecalculateDerivesStatusAndProgress(t *testing.T) {
	job := twoExperimentJob()

	job.Recalculate()
	assert.Equal(t, JobStatusCreated, job.Status)
	assert.Equal(t, Progress{Completed: 0, Total: 2}, job.Progress)

	job.Experiments[0].Status = ExperimentProcessing
	job.Recalculate()
	assert.Equal(t, JobStatusProcessing, job.Status)

	job.Experiments[0].Status = ExperimentCompleted
	job.Recalculate()
	assert.Equal(t, JobStatusProcessing, job.Status)
	assert.Equal(t, Progress{Completed: 1, Total: 2}, job.Progress)
	assert.Nil(t, job.CompletedAt)

	job.Experiments[1].Status = ExperimentFailed
	job.Recalculate()
	assert.Equal(t, JobStatusProcessing, job.Status, "a failed experiment keeps the job in processing")

	job.Experiments[1].Status = ExperimentCompleted
	job.Recalculate()
	assert.Equal(t, JobStatusCompleted, job.Status)
	assert.Equal(t, Progress{Completed: 2, Total: 2}, job.Progress)
	require.NotNil(t, job.CompletedAt)
}

func TestRecalculateStampsCompletedAtOnce(t *testing.T) {
	job := twoExperimentJob()
	job.Experiments[0].Status = ExperimentCompleted
	job.Experiments[1].Status = ExperimentCompleted
	job.Recalculate()
	require.NotNil(t, job.CompletedAt)
	first := *job.CompletedAt

	time.Sleep(2 * time.Millisecond)
	job.Recalculate()
	assert.Equal(t, first, *job.CompletedAt)
}

func TestExperimentLookup(t *testing.T) {
	job := twoExperimentJob()

	exp, err := job.Experiment(1)
	require.NoError(t, err)
	assert.Equal(t, "Queue", exp.Title)

	// Returned pointer mutates the job in place
	exp.Status = ExperimentCompleted
	assert.Equal(t, ExperimentCompleted, job.Experiments[1].Status)

	_, err = job.Experiment(-1)
	assert.ErrorIs(t, err, ErrExperimentNotFound)
	_, err = job.Experiment(2)
	assert.ErrorIs(t, err, ErrExperimentNotFound)
}

func TestAllCompletedEmptyJob(t *testing.T) {
	job := &LabJob{}
	assert.False(t, job.AllCompleted())
}

func TestIsProgrammingLab(t *testing.T) {
	cases := []struct {
		subject string
		code    string
		want    bool
	}{
		{"Data Structures", "", true},
		{"Design and Analysis of Algorithms", "MA301", true},
		{"Object Oriented Programming", "", true},
		{"Computer Networks", "", true},
		{"Software Engineering", "", true},
		{"Physics", "CS101", true},
		{"Physics", "IT204", true},
		{"Physics", "CSE110", true},
		{"Physics", "PH101", false},
		{"Organic Chemistry", "CH202", false},
		{"", "", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, IsProgrammingLab(tc.subject, tc.code),
			"subject=%q code=%q", tc.subject, tc.code)
	}
}

func TestContentValidateNamesMissingFields(t *testing.T) {
	c := &ExperimentContent{Title: "t", Aim: "a"}
	err := c.Validate()
	require.Error(t, err)
	sve, ok := err.(*SchemaValidationError)
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"theory", "observations", "calculations", "result"}, sve.Missing)
}

func TestContentValidateNormalizesNilSlices(t *testing.T) {
	c := &ExperimentContent{
		Title: "t", Aim: "a", Theory: "th",
		Observations: "o", Calculations: "c", Result: "r",
	}
	require.NoError(t, c.Validate())
	assert.NotNil(t, c.Apparatus)
	assert.NotNil(t, c.Procedure)
	assert.NotNil(t, c.Precautions)
	assert.NotNil(t, c.References)
}
