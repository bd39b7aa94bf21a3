package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/manthysbr/labforge/internal/core/domain"
	"github.com/manthysbr/labforge/internal/core/services"
)

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req services.CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	job, err := s.jobs.Create(r.Context(), userID(r), req)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, job)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.jobs.List(r.Context(), userID(r))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if jobs == nil {
		jobs = []domain.LabJob{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobs.Get(r.Context(), domain.JobID(r.PathValue("id")), userID(r))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, job)
}

// handleProcessJob kicks off background orchestration of every unfinished
// experiment in the job.
func (s *Server) handleProcessJob(w http.ResponseWriter, r *http.Request) {
	jobID := domain.JobID(r.PathValue("id"))
	uid := userID(r)

	// Validate existence and ownership before accepting.
	job, err := s.jobs.Get(r.Context(), jobID, uid)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if job.AllCompleted() {
		s.writeJSON(w, http.StatusOK, map[string]any{"started": false, "status": job.Status})
		return
	}

	// The run outlives the request, so it gets a fresh context.
	started := s.orch.Start(context.Background(), jobID, uid)
	s.writeJSON(w, http.StatusAccepted, map[string]any{"started": started})
}

func (s *Server) handleProcessExperiment(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid experiment index")
		return
	}

	out, err := s.jobs.ProcessExperiment(r.Context(), domain.JobID(r.PathValue("id")), userID(r), index)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleResetExperiment(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid experiment index")
		return
	}

	out, err := s.jobs.Reset(r.Context(), domain.JobID(r.PathValue("id")), userID(r), index)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleExportJob(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "docx"
	}
	jobID := domain.JobID(r.PathValue("id"))

	// Render to the response only after the exportability checks pass, so
	// error responses stay JSON.
	job, err := s.jobs.Get(r.Context(), jobID, userID(r))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	var buf bufferedResponse
	renderer, err := s.jobs.Export(r.Context(), jobID, userID(r), format, &buf)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	filename := fmt.Sprintf("%s.%s", sanitizeFilename(job.PracticalTitle), renderer.FileExt())
	w.Header().Set("Content-Type", renderer.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(buf)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf)
}

type bufferedResponse []byte

func (b *bufferedResponse) Write(p []byte) (int, error) {
	*b = append(*b, p...)
	return len(p), nil
}

func sanitizeFilename(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			out = append(out, r)
		case r == ' ', r == '-', r == '_':
			out = append(out, '_')
		}
	}
	if len(out) == 0 {
		return "lab_report"
	}
	return string(out)
}
