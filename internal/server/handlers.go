package server

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/render"

	"github.com/amishk599/autocareer/internal/model"
	"github.com/amishk599/autocareer/internal/scan"
)

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "ok"})
}

// --- scans ---

type scanRequest struct {
	SourceIDs []int64 `json:"source_ids" validate:"omitempty,dive,gt=0"`
}

type scanAccepted struct {
	ScanID string `json:"scan_id"`
}

// startScan accepts an optional body; an empty body scans every source.
func (s *Server) startScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := s.decode(r, &req); err != nil && !errors.Is(err, io.EOF) {
		_ = render.Render(w, r, errBadRequest(err))
		return
	}

	scanID, err := s.scans.StartScan(r.Context(), req.SourceIDs)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, scanAccepted{ScanID: scanID})
}

func (s *Server) scanStatus(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, s.scans.GetStatus())
}

type reportResponse struct {
	*scan.Report
	Found   int `json:"found"`
	Added   int `json:"added"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed_sources"`
}

func (s *Server) scanReport(w http.ResponseWriter, r *http.Request) {
	report, ok := s.scans.LastReport()
	if !ok {
		_ = render.Render(w, r, &ErrResponse{StatusCode: http.StatusNotFound, Message: "no finished scan"})
		return
	}
	resp := reportResponse{Report: report}
	resp.Found, resp.Added, resp.Skipped, resp.Failed = report.Totals()
	render.JSON(w, r, resp)
}

func (s *Server) abortScan(w http.ResponseWriter, r *http.Request) {
	if !s.scans.Abort() {
		_ = render.Render(w, r, &ErrResponse{StatusCode: http.StatusConflict, Message: "no scan in progress"})
		return
	}
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, map[string]bool{"aborted": true})
}

// --- sources ---

type sourceRequest struct {
	Name       string `json:"name" validate:"required,max=200"`
	URL        string `json:"url" validate:"required,http_url"`
	FilterText string `json:"filter_text" validate:"max=4000"`
}

func (req sourceRequest) source(id int64) model.Source {
	return model.Source{
		ID:         id,
		Name:       strings.TrimSpace(req.Name),
		URL:        strings.TrimSpace(req.URL),
		FilterText: req.FilterText,
	}
}

func (s *Server) listSources(w http.ResponseWriter, r *http.Request) {
	sources, err := s.store.ListSources(r.Context())
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	if sources == nil {
		sources = []model.Source{}
	}
	render.JSON(w, r, sources)
}

func (s *Server) createSource(w http.ResponseWriter, r *http.Request) {
	var req sourceRequest
	if err := s.decode(r, &req); err != nil {
		_ = render.Render(w, r, errBadRequest(err))
		return
	}
	src, err := s.store.CreateSource(r.Context(), req.source(0))
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, src)
}

func (s *Server) updateSource(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		_ = render.Render(w, r, errBadRequest(err))
		return
	}
	var req sourceRequest
	if err := s.decode(r, &req); err != nil {
		_ = render.Render(w, r, errBadRequest(err))
		return
	}
	if err := s.store.UpdateSource(r.Context(), req.source(id)); err != nil {
		s.renderError(w, r, err)
		return
	}
	src, err := s.store.GetSource(r.Context(), id)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	render.JSON(w, r, src)
}

func (s *Server) deleteSource(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		_ = render.Render(w, r, errBadRequest(err))
		return
	}
	if err := s.store.DeleteSource(r.Context(), id); err != nil {
		s.renderError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- jobs ---

func (s *Server) listJobs(w http.ResponseWriter, r *http.Request) {
	var status model.JobStatus
	if v := r.URL.Query().Get("status"); v != "" {
		var err error
		if status, err = model.ParseStatus(v); err != nil {
			_ = render.Render(w, r, errBadRequest(err))
			return
		}
	}
	jobs, err := s.store.ListJobs(r.Context(), status)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	if jobs == nil {
		jobs = []model.Job{}
	}
	render.JSON(w, r, jobs)
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		_ = render.Render(w, r, errBadRequest(err))
		return
	}
	job, err := s.store.GetJob(r.Context(), id)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	render.JSON(w, r, job)
}

// jobRequest enters a job by hand. Company and title may be left empty when
// tailoring is requested; extraction fills them in.
type jobRequest struct {
	URL     string `json:"url" validate:"required,http_url"`
	Company string `json:"company" validate:"max=200"`
	Title   string `json:"title" validate:"max=500"`
	Tailor  bool   `json:"tailor"`
}

func (s *Server) createJob(w http.ResponseWriter, r *http.Request) {
	var req jobRequest
	if err := s.decode(r, &req); err != nil {
		_ = render.Render(w, r, errBadRequest(err))
		return
	}
	if req.Tailor && s.tailor == nil {
		s.tailoringUnavailable(w, r)
		return
	}
	url, err := scan.ResolveURL(req.URL, req.URL)
	if err != nil {
		_ = render.Render(w, r, errBadRequest(err))
		return
	}

	job, err := s.store.Insert(r.Context(), model.Job{
		URL:     url,
		Company: strings.TrimSpace(req.Company),
		Title:   strings.TrimSpace(req.Title),
		Status:  model.StatusSuggested,
	})
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	if !req.Tailor {
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, job)
		return
	}

	job, err = s.tailor.Start(r.Context(), job.ID)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, job)
}

// jobDocument serves the tailored document of a job.
func (s *Server) jobDocument(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		_ = render.Render(w, r, errBadRequest(err))
		return
	}
	job, err := s.store.GetJob(r.Context(), id)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	if job.DocumentPath == "" {
		_ = render.Render(w, r, &ErrResponse{StatusCode: http.StatusNotFound, Message: "job has no document"})
		return
	}
	info, err := os.Stat(job.DocumentPath)
	if err != nil || info.IsDir() {
		s.logger.Warn("document missing", "job_id", job.ID, "path", job.DocumentPath, "error", err)
		_ = render.Render(w, r, &ErrResponse{StatusCode: http.StatusNotFound, Message: "document not found"})
		return
	}
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment",
		map[string]string{"filename": filepath.Base(job.DocumentPath)}))
	http.ServeFile(w, r, job.DocumentPath)
}

type statusRequest struct {
	Status       string `json:"status" validate:"required"`
	ErrorMessage string `json:"error_message" validate:"max=2000"`
}

func (s *Server) setJobStatus(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		_ = render.Render(w, r, errBadRequest(err))
		return
	}
	var req statusRequest
	if err := s.decode(r, &req); err != nil {
		_ = render.Render(w, r, errBadRequest(err))
		return
	}
	to, err := model.ParseStatus(req.Status)
	if err != nil {
		_ = render.Render(w, r, errBadRequest(err))
		return
	}
	job, err := s.store.UpdateJobStatus(r.Context(), id, to, req.ErrorMessage)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	render.JSON(w, r, job)
}

func (s *Server) tailorJob(w http.ResponseWriter, r *http.Request) {
	if s.tailor == nil {
		s.tailoringUnavailable(w, r)
		return
	}
	id, err := idParam(r)
	if err != nil {
		_ = render.Render(w, r, errBadRequest(err))
		return
	}
	job, err := s.tailor.Start(r.Context(), id)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, job)
}

// --- settings ---

type settingBody struct {
	Value string `json:"value" validate:"max=20000"`
}

func (s *Server) getSetting(key string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := s.store.GetSetting(r.Context(), key)
		if err != nil {
			s.renderError(w, r, err)
			return
		}
		render.JSON(w, r, settingBody{Value: v})
	}
}

func (s *Server) putSetting(key string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body settingBody
		if err := s.decode(r, &body); err != nil {
			_ = render.Render(w, r, errBadRequest(err))
			return
		}
		if err := s.store.SetSetting(r.Context(), key, body.Value); err != nil {
			s.renderError(w, r, err)
			return
		}
		render.JSON(w, r, body)
	}
}

func (s *Server) tailoringUnavailable(w http.ResponseWriter, r *http.Request) {
	_ = render.Render(w, r, &ErrResponse{StatusCode: http.StatusServiceUnavailable, Message: "tailoring is not configured"})
}
