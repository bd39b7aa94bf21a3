package duckdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/manthysbr/labforge/internal/core/domain"
)

func (r *Repository) SaveJob(ctx context.Context, job *domain.LabJob) error {
	experimentsJSON, err := json.Marshal(job.Experiments)
	if err != nil {
		return fmt.Errorf("failed to marshal experiments: %w", err)
	}

	query := `
	INSERT INTO lab_jobs (id, user_id, instructor_name, subject, subject_code, practical_title, experiments, status, progress_completed, progress_total, created_at, completed_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE SET
		experiments = excluded.experiments,
		status = excluded.status,
		progress_completed = excluded.progress_completed,
		progress_total = excluded.progress_total,
		completed_at = excluded.completed_at;
	`

	_, err = r.db.ExecContext(ctx, query,
		string(job.ID), string(job.UserID),
		job.InstructorName, job.Subject, job.SubjectCode, job.PracticalTitle,
		string(experimentsJSON), string(job.Status),
		job.Progress.Completed, job.Progress.Total,
		job.CreatedAt, job.CompletedAt,
	)
	return err
}

const jobColumns = `id, user_id, instructor_name, subject, subject_code, practical_title, CAST(experiments AS TEXT), status, progress_completed, progress_total, created_at, completed_at`

func (r *Repository) GetJob(ctx context.Context, id domain.JobID, userID domain.UserID) (*domain.LabJob, error) {
	query := `SELECT ` + jobColumns + ` FROM lab_jobs WHERE id = ? AND user_id = ?`
	row := r.db.QueryRowContext(ctx, query, string(id), string(userID))

	job, err := scanJob(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrJobNotFound
		}
		return nil, err
	}
	return job, nil
}

func (r *Repository) ListJobs(ctx context.Context, userID domain.UserID, limit int) ([]domain.LabJob, error) {
	query := `SELECT ` + jobColumns + ` FROM lab_jobs WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, string(userID), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []domain.LabJob
	for rows.Next() {
		job, err := scanJob(rows.Scan)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

func scanJob(scan func(dest ...any) error) (*domain.LabJob, error) {
	var job domain.LabJob
	var idStr, userIDStr, statusStr, experimentsJSON string
	var completedAt sql.NullTime

	err := scan(&idStr, &userIDStr,
		&job.InstructorName, &job.Subject, &job.SubjectCode, &job.PracticalTitle,
		&experimentsJSON, &statusStr,
		&job.Progress.Completed, &job.Progress.Total,
		&job.CreatedAt, &completedAt)
	if err != nil {
		return nil, err
	}

	job.ID = domain.JobID(idStr)
	job.UserID = domain.UserID(userIDStr)
	job.Status = domain.JobStatus(statusStr)
	if completedAt.Valid {
		t := completedAt.Time
		job.CompletedAt = &t
	}

	if err := json.Unmarshal([]byte(experimentsJSON), &job.Experiments); err != nil {
		return nil, fmt.Errorf("failed to unmarshal experiments for job %s: %w", idStr, err)
	}
	return &job, nil
}
