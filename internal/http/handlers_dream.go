package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"dreams/internal/core"
	applog "dreams/internal/log"
)

type formPage struct {
	Title   string
	Action  string
	ID      int64
	Form    core.FormState
	Errors  []string
	BackURL string
}

func (s *Server) handleNewDreamForm(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	date := now.Format(core.DateLayout)
	if v := r.URL.Query().Get("date"); v != "" {
		if d, err := core.ParseDreamDate(v); err == nil {
			date = d.Format(core.DateLayout)
		}
	}
	form := core.FormState{DreamDate: date, Emotions: []string{}}
	s.render(w, r, http.StatusOK, "dream_form.html", s.newFormPage(form, nil))
}

func (s *Server) handleCreateDreamForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		BadRequestError("Malformed form submission").Write(w)
		return
	}
	form := ParseDreamForm(r.PostForm)

	payload, err := encodeAndValidate(form)
	if err != nil {
		s.render(w, r, http.StatusUnprocessableEntity, "dream_form.html", s.newFormPage(form, err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()
	rec, err := s.store.CreateDream(ctx, payload)
	if err != nil {
		s.handleFormStoreError(w, r, form, nil, applog.OpCreate, err)
		return
	}

	s.events.LogDreamSaved(r.Context(), applog.OpCreate, rec.ID, rec.Name, rec.DreamDate)
	year, month := monthOf(rec, s.now())
	s.redirectAfterWrite(w, r, calendarURL(year, month, ""), NewHTMXResponse().
		TriggerDreamSaved(rec.ID, year, month).
		TriggerSuccessNotification("Dream saved"))
}

func (s *Server) handleEditDreamForm(w http.ResponseWriter, r *http.Request) {
	id, err := ParseDreamID(r)
	if err != nil {
		s.renderError(w, r, http.StatusNotFound, detailNotFound)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()
	rec, err := s.store.GetDream(ctx, id)
	if err != nil {
		s.handleStoreError(w, r, applog.OpRead, err)
		return
	}

	s.render(w, r, http.StatusOK, "dream_form.html", s.editFormPage(id, core.Decode(rec), nil))
}

func (s *Server) handleUpdateDreamForm(w http.ResponseWriter, r *http.Request) {
	id, err := ParseDreamID(r)
	if err != nil {
		s.renderError(w, r, http.StatusNotFound, detailNotFound)
		return
	}
	if err := r.ParseForm(); err != nil {
		BadRequestError("Malformed form submission").Write(w)
		return
	}
	form := ParseDreamForm(r.PostForm)

	payload, err := encodeAndValidate(form)
	if err != nil {
		s.render(w, r, http.StatusUnprocessableEntity, "dream_form.html", s.editFormPage(id, form, err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()
	rec, err := s.store.UpdateDream(ctx, id, payload)
	if err != nil {
		s.handleFormStoreError(w, r, form, &id, applog.OpUpdate, err)
		return
	}

	s.events.LogDreamSaved(r.Context(), applog.OpUpdate, rec.ID, rec.Name, rec.DreamDate)
	year, month := monthOf(rec, s.now())
	s.redirectAfterWrite(w, r, calendarURL(year, month, ""), NewHTMXResponse().
		TriggerDreamSaved(rec.ID, year, month).
		TriggerSuccessNotification("Dream updated"))
}

func (s *Server) handleDeleteDreamForm(w http.ResponseWriter, r *http.Request) {
	id, err := ParseDreamID(r)
	if err != nil {
		s.renderError(w, r, http.StatusNotFound, detailNotFound)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()
	rec, err := s.store.DeleteDream(ctx, id)
	if err != nil {
		s.handleStoreError(w, r, applog.OpDelete, err)
		return
	}

	s.logger.InfoContext(r.Context(), "Dream deleted", applog.NewFields().
		WithDream(rec.ID, rec.Name, rec.DreamDate).
		WithOperation(applog.OpDelete).
		ToSlice()...)
	year, month := monthOf(rec, s.now())
	s.redirectAfterWrite(w, r, calendarURL(year, month, ""), NewHTMXResponse().
		TriggerDreamDeleted(rec.ID, year, month).
		TriggerCalendarRefresh(year, month).
		TriggerSuccessNotification("Dream deleted"))
}

// encodeAndValidate runs the codec and the payload checks the stores apply, so
// the form can be re-rendered before any store round trip.
func encodeAndValidate(form core.FormState) (core.DreamPayload, error) {
	payload, err := core.Encode(form)
	if err != nil {
		return core.DreamPayload{}, err
	}
	if err := payload.Validate(); err != nil {
		return core.DreamPayload{}, err
	}
	return payload, nil
}

func (s *Server) handleFormStoreError(w http.ResponseWriter, r *http.Request, form core.FormState, id *int64, op string, err error) {
	if statusFor(err) != http.StatusUnprocessableEntity {
		s.handleStoreError(w, r, op, err)
		return
	}
	if id == nil {
		s.render(w, r, http.StatusUnprocessableEntity, "dream_form.html", s.newFormPage(form, err))
		return
	}
	s.render(w, r, http.StatusUnprocessableEntity, "dream_form.html", s.editFormPage(*id, form, err))
}

func (s *Server) handleStoreError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.events.LogError(r.Context(), "Dream store request failed", err, applog.ComponentDream, op, nil)
	}
	s.renderError(w, r, status, detailFor(status, err))
}

func (s *Server) redirectAfterWrite(w http.ResponseWriter, r *http.Request, target string, b *HTMXResponseBuilder) {
	if isHTMX(r) {
		b.Redirect(target).Write(w)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (s *Server) newFormPage(form core.FormState, err error) formPage {
	year, month := s.now().Year(), int(s.now().Month())
	if d, perr := core.ParseDreamDate(form.DreamDate); perr == nil {
		year, month = d.Year(), int(d.Month())
	}
	return formPage{
		Title:   "New dream",
		Action:  "/dreams/new",
		Form:    form,
		Errors:  formErrors(err),
		BackURL: calendarURL(year, month, ""),
	}
}

func (s *Server) editFormPage(id int64, form core.FormState, err error) formPage {
	page := s.newFormPage(form, err)
	page.Title = "Edit dream"
	page.Action = fmt.Sprintf("/dreams/%d", id)
	page.ID = id
	return page
}

// formErrors flattens an encode or validation error into messages for the form.
func formErrors(err error) []string {
	if err == nil {
		return nil
	}
	var ve *core.ValidationError
	if errors.As(err, &ve) {
		out := make([]string, 0, len(ve.Problems))
		for _, p := range ve.Problems {
			out = append(out, p.Error())
		}
		return out
	}
	return []string{err.Error()}
}
