package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/amishk599/autocareer/internal/model"
)

// ErrResponse is the JSON body of every failed request.
type ErrResponse struct {
	StatusCode int    `json:"-"`
	Message    string `json:"error"`
}

func (e *ErrResponse) Render(_ http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

func errBadRequest(err error) *ErrResponse {
	return &ErrResponse{StatusCode: http.StatusBadRequest, Message: err.Error()}
}

// renderError maps domain errors to status codes.
func (s *Server) renderError(w http.ResponseWriter, r *http.Request, err error) {
	code := http.StatusInternalServerError
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		code = http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, model.ErrScanInProgress), errors.Is(err, model.ErrInvalidTransition),
		errors.Is(err, model.ErrDuplicate):
		code = http.StatusConflict
	}
	if code == http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	_ = render.Render(w, r, &ErrResponse{StatusCode: code, Message: err.Error()})
}

// decode reads a JSON body into v and validates it.
func (s *Server) decode(r *http.Request, v any) error {
	if err := render.DecodeJSON(r.Body, v); err != nil {
		return err
	}
	return s.validate.Struct(v)
}

func idParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}
