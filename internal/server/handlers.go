package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/google/uuid"

	"github.com/jonathan/cv-tailor/internal/artifact"
	"github.com/jonathan/cv-tailor/internal/db"
	"github.com/jonathan/cv-tailor/internal/fetch"
	"github.com/jonathan/cv-tailor/internal/pipeline"
	"github.com/jonathan/cv-tailor/internal/workflows"
)

// processRequest is the input for the single-shot and analyze endpoints.
// Exactly one of JobText or JobURL must be provided.
type processRequest struct {
	ResumeText  string `json:"resume_text" validate:"required"`
	JobText     string `json:"job_text" validate:"required_without=JobURL,excluded_with=JobURL"`
	JobURL      string `json:"job_url" validate:"omitempty,url"`
	CompanyName string `json:"company_name"`
	CompanyURL  string `json:"company_url" validate:"omitempty,url"`
}

// tailorRequest resumes a persisted analyze session.
type tailorRequest struct {
	SessionID       string   `json:"session_id" validate:"required,uuid"`
	ConfirmedSkills []string `json:"confirmed_skills"`
}

// decodeAndValidate decodes the JSON body into dst and validates it.
func (s *Server) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return false
	}
	return true
}

// seedFromRequest builds the run's seed artifact, fetching the posting text
// when a URL was given instead of text.
func (s *Server) seedFromRequest(r *http.Request, req *processRequest) (artifact.Artifact, error) {
	jobText := req.JobText
	if jobText == "" {
		text, err := fetch.JobText(r.Context(), req.JobURL, nil)
		if err != nil {
			return nil, err
		}
		jobText = text
	}

	seed := artifact.Artifact{
		"raw_resume_text": req.ResumeText,
		"job_text":        jobText,
	}
	if req.CompanyName != "" {
		seed["company_name"] = req.CompanyName
	}
	if req.CompanyURL != "" {
		seed["company_url"] = req.CompanyURL
	}
	return seed, nil
}

// abortStatus maps a failed run to the HTTP status surfaced to the client.
func abortStatus(err *pipeline.StageError) int {
	switch err.Kind {
	case pipeline.ErrProviderUnavailable:
		return http.StatusServiceUnavailable
	case pipeline.ErrInvalidGeneration:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// recordRun persists the run record when a database is configured.
func (s *Server) recordRun(r *http.Request, workflow string, run *pipeline.Run) {
	if s.database == nil {
		return
	}
	analysis := run.Final.Map("job_analysis")
	roleTitle, _ := analysis["role_title"].(string)
	id, err := s.database.CreateRun(r.Context(), workflow, run.Final.String("company_name"), roleTitle)
	if err != nil {
		log.Printf("failed to record run: %v", err)
		return
	}
	if err := s.database.FinishRun(r.Context(), id, run); err != nil {
		log.Printf("failed to record run outcome: %v", err)
	}
}

// handleProcessAll runs the full single-shot workflow.
func (s *Server) handleProcessAll(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	seed, err := s.seedFromRequest(r, &req)
	if err != nil {
		s.errorResponse(w, http.StatusBadGateway, "failed to fetch job posting: "+err.Error())
		return
	}

	run := pipeline.Execute(r.Context(), workflows.SingleShot(s.deps), seed)
	s.recordRun(r, "single_shot", run)

	if run.Status == pipeline.StatusAborted {
		s.jsonResponse(w, abortStatus(run.Err), map[string]any{
			"status":       run.Status,
			"failed_stage": run.FailedStage,
			"error":        run.Err.Error(),
			"warnings":     run.Warnings(),
		})
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status":            run.Status,
		"resume_markdown":   run.Final["resume_markdown"],
		"matched_skills":    run.Final["matched_skills"],
		"keywords_used":     run.Final["keywords_used"],
		"relevance_summary": run.Final["relevance_summary"],
		"cover_letter":      run.Final["cover_letter"],
		"cold_email":        run.Final["cold_email"],
		"company_summary":   run.Final["company_summary"],
		"skill_gap":         run.Final["skill_gap"],
		"warnings":          run.Warnings(),
	})
}

// handleAnalyzeStep1 runs the analyze phase and persists the artifact for
// later tailoring. The response surfaces the skill gap so the client can
// collect confirmations.
func (s *Server) handleAnalyzeStep1(w http.ResponseWriter, r *http.Request) {
	if s.database == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "two-phase flow requires a configured database")
		return
	}

	var req processRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	seed, err := s.seedFromRequest(r, &req)
	if err != nil {
		s.errorResponse(w, http.StatusBadGateway, "failed to fetch job posting: "+err.Error())
		return
	}

	run := pipeline.Execute(r.Context(), workflows.AnalyzePhase(s.deps), seed)
	s.recordRun(r, "analyze_phase", run)

	if run.Status == pipeline.StatusAborted {
		s.jsonResponse(w, abortStatus(run.Err), map[string]any{
			"status":       run.Status,
			"failed_stage": run.FailedStage,
			"error":        run.Err.Error(),
			"warnings":     run.Warnings(),
		})
		return
	}

	sessionID, err := s.database.CreateSession(r.Context(), run.Final)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "failed to persist session: "+err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status":        run.Status,
		"session_id":    sessionID,
		"job_analysis":  run.Final["job_analysis"],
		"skill_gap":     run.Final["skill_gap"],
		"company_intel": run.Final["company_intel"],
		"warnings":      run.Warnings(),
	})
}

// handleTailorStep2 resumes a persisted session with the user's confirmed
// skills and generates all final outputs.
func (s *Server) handleTailorStep2(w http.ResponseWriter, r *http.Request) {
	if s.database == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "two-phase flow requires a configured database")
		return
	}

	var req tailorRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid session_id")
		return
	}

	persisted, _, err := s.database.GetSession(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, db.ErrSessionNotFound) {
			s.errorResponse(w, http.StatusNotFound, "session not found")
			return
		}
		s.errorResponse(w, http.StatusInternalServerError, "failed to load session: "+err.Error())
		return
	}

	confirmed := make([]any, 0, len(req.ConfirmedSkills))
	for _, skill := range req.ConfirmedSkills {
		confirmed = append(confirmed, skill)
	}
	seed := persisted.Merge(artifact.Artifact{"confirmed_skills": confirmed})

	run := pipeline.Execute(r.Context(), workflows.TailorPhase(s.deps), seed)
	s.recordRun(r, "tailor_phase", run)

	if run.Status == pipeline.StatusAborted {
		s.jsonResponse(w, abortStatus(run.Err), map[string]any{
			"status":       run.Status,
			"failed_stage": run.FailedStage,
			"error":        run.Err.Error(),
			"warnings":     run.Warnings(),
		})
		return
	}

	if err := s.database.UpdateSession(r.Context(), sessionID, run.Final, db.SessionCompleted); err != nil {
		log.Printf("failed to update session %s: %v", sessionID, err)
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status":            run.Status,
		"session_id":        sessionID,
		"resume_markdown":   run.Final["resume_markdown"],
		"matched_skills":    run.Final["matched_skills"],
		"keywords_used":     run.Final["keywords_used"],
		"relevance_summary": run.Final["relevance_summary"],
		"cover_letter":      run.Final["cover_letter"],
		"cold_email":        run.Final["cold_email"],
		"company_summary":   run.Final["company_summary"],
		"skill_gap":         run.Final["skill_gap"],
		"warnings":          run.Warnings(),
	})
}
