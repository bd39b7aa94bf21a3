package domain

import (
	"strings"
	"time"
)

type JobID string

type UserID string

type JobStatus string

const (
	JobStatusCreated    JobStatus = "created"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

type ExperimentStatus string

const (
	ExperimentPending    ExperimentStatus = "pending"
	ExperimentProcessing ExperimentStatus = "processing"
	ExperimentCompleted  ExperimentStatus = "completed"
	ExperimentFailed     ExperimentStatus = "failed"
)

// Experiment is one lab exercise within a LabJob. It has no identity outside
// its owning job; updates target it by (job ID, index).
type Experiment struct {
	ExperimentNumber int                `json:"experiment_number"`
	Title            string             `json:"title"`
	Aim              string             `json:"aim"`
	AdditionalNotes  string             `json:"additional_notes"`
	Status           ExperimentStatus   `json:"status"`
	GeneratedContent *ExperimentContent `json:"generated_content,omitempty"`
	Error            string             `json:"error,omitempty"`
	RetryCount       int                `json:"retry_count"`
}

// Progress is the rollup of completed experiments, recomputed from the
// experiment list after every mutation so the counter can never go stale.
type Progress struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

// LabJob is a user-owned unit of work: the experiments to be documented
// together as one exported practical file.
type LabJob struct {
	ID             JobID        `json:"id"`
	UserID         UserID       `json:"user_id"`
	InstructorName string       `json:"instructor_name"`
	Subject        string       `json:"subject"`
	SubjectCode    string       `json:"subject_code"`
	PracticalTitle string       `json:"practical_title"`
	Experiments    []Experiment `json:"experiments"`
	Status         JobStatus    `json:"status"`
	Progress       Progress     `json:"progress"`
	CreatedAt      time.Time    `json:"created_at"`
	CompletedAt    *time.Time   `json:"completed_at,omitempty"`
}

// Experiment returns the experiment at index, or ErrExperimentNotFound.
func (j *LabJob) Experiment(index int) (*Experiment, error) {
	if index < 0 || index >= len(j.Experiments) {
		return nil, ErrExperimentNotFound
	}
	return &j.Experiments[index], nil
}

// AllCompleted reports whether every experiment reached completed.
func (j *LabJob) AllCompleted() bool {
	for _, e := range j.Experiments {
		if e.Status != ExperimentCompleted {
			return false
		}
	}
	return len(j.Experiments) > 0
}

// Recalculate derives Progress and Status from the experiment list.
// Must be called after every experiment mutation, before persisting.
// CompletedAt is stamped exactly once, on the first transition into the
// fully-completed state.
func (j *LabJob) Recalculate() {
	completed := 0
	touched := false
	for _, e := range j.Experiments {
		if e.Status == ExperimentCompleted {
			completed++
		}
		if e.Status != ExperimentPending {
			touched = true
		}
	}
	j.Progress.Completed = completed
	j.Progress.Total = len(j.Experiments)

	switch {
	case j.AllCompleted():
		j.Status = JobStatusCompleted
		if j.CompletedAt == nil {
			now := time.Now().UTC()
			j.CompletedAt = &now
		}
	case touched:
		j.Status = JobStatusProcessing
	default:
		j.Status = JobStatusCreated
	}
}

// programmingSubjects is the fixed vocabulary for the programming-lab
// heuristic: subjects whose reports must carry a terminal transcript.
var programmingSubjects = []string{
	"data structure", "algorithm", "programming",
	"computer", "software", "coding",
}

var programmingCodePrefixes = []string{"cs", "it", "cse"}

// IsProgrammingLab decides whether a job's subject requires a non-empty
// codeOutput in every completed experiment. Substring match on the subject
// name, prefix match on the subject code.
func IsProgrammingLab(subject, subjectCode string) bool {
	s := strings.ToLower(subject)
	for _, kw := range programmingSubjects {
		if strings.Contains(s, kw) {
			return true
		}
	}
	code := strings.ToLower(strings.TrimSpace(subjectCode))
	for _, p := range programmingCodePrefixes {
		if strings.HasPrefix(code, p) {
			return true
		}
	}
	return false
}
