package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"dreams/internal/core"
	applog "dreams/internal/log"
)

const (
	detailNotFound     = "Dream not found"
	detailNoEmotion    = "No dreams found with that emotion"
	detailInvalidMonth = "Invalid month"
	detailUnavailable  = "Database is busy or not ready. Try again shortly."
	detailUpstream     = "Dream store did not answer correctly"
	detailUnexpected   = "Unexpected error"
)

// statusFor maps store and validation errors to HTTP status codes.
func statusFor(err error) int {
	var (
		ve *core.ValidationError
		ne *core.InvalidNumberError
		de *core.DateParseError
		te *core.TransportError
	)
	switch {
	case core.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, core.ErrInvalidMonth):
		return http.StatusBadRequest
	case errors.As(err, &ve), errors.As(err, &ne), errors.As(err, &de):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &te):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func detailFor(status int, err error) string {
	switch status {
	case http.StatusNotFound:
		return detailNotFound
	case http.StatusBadRequest:
		return detailInvalidMonth
	case http.StatusUnprocessableEntity:
		return err.Error()
	case http.StatusServiceUnavailable:
		return detailUnavailable
	case http.StatusBadGateway, http.StatusGatewayTimeout:
		return detailUpstream
	default:
		return detailUnexpected
	}
}

// writeAPIError answers with the mapped status and logs server-side failures.
func (s *Server) writeAPIError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.events.LogError(r.Context(), "Dream API request failed", err, applog.ComponentAPI, op, nil)
	}
	writeDetail(w, status, detailFor(status, err))
}

func (s *Server) handleAPIListMonth(w http.ResponseWriter, r *http.Request) {
	year, month, err := ParseRequiredMonth(r.URL.Query())
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if month < 1 || month > 12 {
		writeDetail(w, http.StatusBadRequest, detailInvalidMonth)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()
	records, err := s.store.ListMonth(ctx, year, month)
	if err != nil {
		s.writeAPIError(w, r, applog.OpList, err)
		return
	}
	if records == nil {
		records = []core.DreamRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleAPIGet(w http.ResponseWriter, r *http.Request) {
	id, err := ParseDreamID(r)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()
	rec, err := s.store.GetDream(ctx, id)
	if err != nil {
		s.writeAPIError(w, r, applog.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleAPIByEmotion(w http.ResponseWriter, r *http.Request) {
	emotion := strings.TrimSpace(r.PathValue("emotion"))
	if emotion == "" {
		writeDetail(w, http.StatusNotFound, detailNoEmotion)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()
	records, err := s.store.ListByEmotion(ctx, emotion)
	if err != nil {
		s.writeAPIError(w, r, applog.OpSearch, err)
		return
	}
	if len(records) == 0 {
		writeDetail(w, http.StatusNotFound, detailNoEmotion)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleAPICreate(w http.ResponseWriter, r *http.Request) {
	var p core.DreamPayload
	if err := DecodeJSONBody(w, r, &p); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := p.Validate(); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()
	rec, err := s.store.CreateDream(ctx, p)
	if err != nil {
		s.writeAPIError(w, r, applog.OpCreate, err)
		return
	}
	s.events.LogDreamSaved(r.Context(), applog.OpCreate, rec.ID, rec.Name, rec.DreamDate)
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleAPIUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := ParseDreamID(r)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	var p core.DreamPayload
	if err := DecodeJSONBody(w, r, &p); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := p.Validate(); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()
	rec, err := s.store.UpdateDream(ctx, id, p)
	if err != nil {
		s.writeAPIError(w, r, applog.OpUpdate, err)
		return
	}
	s.events.LogDreamSaved(r.Context(), applog.OpUpdate, rec.ID, rec.Name, rec.DreamDate)
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleAPIDelete(w http.ResponseWriter, r *http.Request) {
	id, err := ParseDreamID(r)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()
	rec, err := s.store.DeleteDream(ctx, id)
	if err != nil {
		s.writeAPIError(w, r, applog.OpDelete, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
