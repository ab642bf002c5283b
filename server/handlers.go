package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/gram-sahayak/assistant/contract"
	"github.com/tanpawarit/gram-sahayak/assistant/conversation"
	"github.com/tanpawarit/gram-sahayak/assistant/eligibility"
	"github.com/tanpawarit/gram-sahayak/assistant/extractor"
	nodex "github.com/tanpawarit/gram-sahayak/assistant/nodes"
	statex "github.com/tanpawarit/gram-sahayak/assistant/state"
)

const (
	defaultMaxUpload = extractor.MaxImageBytes
	multipartMemory  = 1 << 20
)

var errTooLarge = errors.New("upload exceeds size limit")

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sessionID, fresh := s.session(w, r)

	if !fresh {
		view, err := s.conv.View(r.Context(), sessionID)
		if err == nil {
			s.respond(w, r, http.StatusOK, view)
			return
		}
		if !errors.Is(err, statex.ErrStateNotFound) {
			s.fail(w, r, sessionID, err)
			return
		}
	}

	// First visit: negotiate the language before anything is said.
	ev := nodex.Event{Kind: nodex.EventRefresh}
	if accept := r.Header.Get("Accept-Language"); accept != "" {
		ev = nodex.Event{Kind: nodex.EventLocale, Locale: s.conv.Locales().Match(accept)}
	}
	view, err := s.conv.HandleEvent(r.Context(), sessionID, ev)
	if err != nil {
		s.fail(w, r, sessionID, err)
		return
	}
	s.respond(w, r, http.StatusOK, view)
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	sessionID, _ := s.session(w, r)

	kind, err := nodex.ParseEventKind(chi.URLParam(r, "kind"))
	if err != nil {
		s.fail(w, r, sessionID, err)
		return
	}

	ev, err := s.decodeEvent(w, r, kind)
	if err != nil {
		s.fail(w, r, sessionID, err)
		return
	}

	view, err := s.conv.HandleEvent(r.Context(), sessionID, ev)
	if err != nil {
		s.fail(w, r, sessionID, err)
		return
	}
	s.respond(w, r, http.StatusOK, view)
}

func (s *Server) handleLocale(w http.ResponseWriter, r *http.Request) {
	sessionID, _ := s.session(w, r)
	if err := r.ParseForm(); err != nil {
		s.fail(w, r, sessionID, fmt.Errorf("%w: %v", contractx.ErrValidation, err))
		return
	}
	ev := nodex.Event{Kind: nodex.EventLocale, Locale: r.PostForm.Get("locale")}
	view, err := s.conv.HandleEvent(r.Context(), sessionID, ev)
	if err != nil {
		s.fail(w, r, sessionID, err)
		return
	}
	s.respond(w, r, http.StatusOK, view)
}

func (s *Server) handleApplication(w http.ResponseWriter, r *http.Request) {
	sessionID, _ := s.session(w, r)
	download := r.URL.Query().Get("download") == "1"

	doc, err := s.conv.Application(r.Context(), sessionID, download)
	if err != nil {
		status := statusFor(err)
		log.Warn().Err(err).Str("session_id", sessionID).Bool("download", download).Msg("application unavailable")
		http.Error(w, http.StatusText(status), status)
		return
	}

	disposition := "inline"
	if download {
		disposition = "attachment"
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, conversation.ApplicationFileName))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

// decodeEvent reads the form fields an event kind needs.
func (s *Server) decodeEvent(w http.ResponseWriter, r *http.Request, kind nodex.EventKind) (nodex.Event, error) {
	ev := nodex.Event{Kind: kind}

	if kind == nodex.EventExtract {
		data, mime, err := s.readUpload(w, r)
		if err != nil {
			return ev, err
		}
		ev.Image, ev.MIMEType = data, mime
		return ev, nil
	}

	if err := r.ParseForm(); err != nil {
		return ev, fmt.Errorf("%w: %v", contractx.ErrValidation, err)
	}
	switch kind {
	case nodex.EventUtterance:
		ev.Text = r.PostForm.Get("text")
	case nodex.EventSelect:
		ev.Scheme = eligibility.SchemeID(r.PostForm.Get("scheme"))
	case nodex.EventLocale:
		ev.Locale = r.PostForm.Get("locale")
	}
	return ev, nil
}

func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload+multipartMemory)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, "", errTooLarge
		}
		return nil, "", fmt.Errorf("%w: %v", contractx.ErrValidation, err)
	}
	file, header, err := r.FormFile("document")
	if err != nil {
		return nil, "", fmt.Errorf("%w: document is required", contractx.ErrValidation)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.maxUpload+1))
	if err != nil {
		return nil, "", fmt.Errorf("%w: read upload: %v", contractx.ErrValidation, err)
	}
	if int64(len(data)) > s.maxUpload {
		return nil, "", errTooLarge
	}
	return data, header.Header.Get("Content-Type"), nil
}

// session returns the cookie session id, issuing a new one when missing.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (string, bool) {
	if c, err := r.Cookie(sessionCookie); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return id.String(), false
		}
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	return id, true
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, status int, view nodex.View) {
	if wantsJSON(r) {
		writeJSON(w, status, view)
		return
	}
	if err := s.page.render(w, status, view, ""); err != nil {
		log.Error().Err(err).Str("session_id", view.SessionID).Msg("render page")
	}
}

// fail reports err. Browsers get the current page back with a notice, API
// clients get a JSON error.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, sessionID string, err error) {
	status := statusFor(err)
	logger := log.With().Str("session_id", sessionID).Logger()
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Msg("request failed")
	} else {
		logger.Debug().Err(err).Msg("request rejected")
	}

	if wantsJSON(r) {
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}

	view, verr := s.conv.View(r.Context(), sessionID)
	if verr != nil {
		http.Error(w, http.StatusText(status), status)
		return
	}
	key := "error_transition"
	if errors.Is(err, contractx.ErrRender) {
		key = "error_render"
	}
	if err := s.page.render(w, status, view, key); err != nil {
		logger.Error().Err(err).Msg("render page")
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, conversation.ErrInvalidSession),
		errors.Is(err, conversation.ErrUnknownEvent),
		errors.Is(err, contractx.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, contractx.ErrInvalidTransition),
		errors.Is(err, contractx.ErrNotReady):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("encode json response")
	}
}
