package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"gitjournal/api/internal/digest"
	"gitjournal/api/internal/discussion"
	"gitjournal/api/internal/graphql"
	"gitjournal/api/internal/journal"
	"gitjournal/api/internal/session"
)

type HTTPServer struct {
	service    *Service
	corsOrigin string
	logger     *slog.Logger
}

func NewHTTPServer(service *Service, corsOrigin string, logger *slog.Logger) *HTTPServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPServer{service: service, corsOrigin: corsOrigin, logger: logger}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := "ready"
		statusCode := http.StatusOK
		checks := map[string]any{
			"redis": map[string]any{"status": "ok"},
		}
		if err := s.service.Ping(ctx); err != nil {
			status = "not_ready"
			statusCode = http.StatusServiceUnavailable
			checks["redis"] = map[string]any{
				"status": "error",
				"error":  err.Error(),
			}
		}

		writeJSON(w, statusCode, map[string]any{
			"ok":     status == "ready",
			"status": status,
			"checks": checks,
		})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/session" {
		sess, err := s.service.SessionFromToken(r.Context(), bearerToken(r))
		if err != nil {
			writeJSON(w, http.StatusOK, map[string]any{"authenticated": false, "login": nil})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"authenticated": true, "login": sess.Login})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/session/login" {
		var body struct {
			AccessToken string `json:"accessToken"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		result, err := s.service.Login(r.Context(), body.AccessToken)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/session/logout" {
		if token := bearerToken(r); token != "" {
			if err := s.service.Logout(r.Context(), token); err != nil {
				s.fail(w, r, err)
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/postDiscussion" {
		// No session is fine here: the static token may create the thread.
		sess, err := s.service.SessionFromToken(r.Context(), bearerToken(r))
		if err != nil && !errors.Is(err, session.ErrUnauthenticated) {
			s.sessionStoreUnavailable(w, r, err)
			return
		}
		var body struct {
			Title string `json:"title"`
			Body  string `json:"body"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		created, err := s.service.CreateThread(r.Context(), sess, body.Title, body.Body)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"discussion": created})
		return
	}

	if !strings.HasPrefix(r.URL.Path, "/api/") {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
		return
	}

	sess, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	ctx := session.WithSession(r.Context(), sess)
	s.handleJournal(w, r.WithContext(ctx))
}

func (s *HTTPServer) handleJournal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, _ := session.FromContext(ctx)

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/api/getDiscussion":
		query := r.URL.Query()
		number, err := strconv.Atoi(query.Get("number"))
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "INVALID_PARAMETERS", "number must be an integer", nil)
			return
		}
		view, err := s.service.LoadDiscussion(ctx, sess, query.Get("owner"), query.Get("repo"), number)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, view)

	case r.Method == http.MethodPost && r.URL.Path == "/api/addComment":
		var body struct {
			Owner            string `json:"owner"`
			Repo             string `json:"repo"`
			DiscussionNumber int    `json:"discussionNumber"`
			Body             string `json:"body"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		comment, err := s.service.AddComment(ctx, sess, body.Owner, body.Repo, body.DiscussionNumber, body.Body)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"comment": comment})

	case r.Method == http.MethodPost && r.URL.Path == "/api/entries":
		var body struct {
			Owner            string `json:"owner"`
			Repo             string `json:"repo"`
			DiscussionNumber int    `json:"discussionNumber"`
			Template         string `json:"template"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		entry, err := s.service.NewEntry(ctx, sess, body.Owner, body.Repo, body.DiscussionNumber, body.Template)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"comment": entry})

	case r.Method == http.MethodPost && r.URL.Path == "/api/updateComment":
		var body struct {
			CommentID string `json:"commentId"`
			Body      string `json:"body"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		comment, err := s.service.UpdateComment(ctx, sess, body.CommentID, body.Body)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"comment": comment})

	case r.Method == http.MethodPost && r.URL.Path == "/api/sections/edit":
		var body struct {
			Body           string `json:"body"`
			SectionIndex   int    `json:"sectionIndex"`
			SettingsGistID string `json:"settingsGistId"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		view, err := s.service.BeginEdit(ctx, sess, body.Body, body.SectionIndex, body.SettingsGistID)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, view)

	case r.Method == http.MethodPost && r.URL.Path == "/api/sections/save":
		var body struct {
			CommentID    string `json:"commentId"`
			Body         string `json:"body"`
			SectionIndex int    `json:"sectionIndex"`
			SectionBody  string `json:"sectionBody"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		result, err := s.service.SaveSection(ctx, sess, body.CommentID, body.Body, body.SectionIndex, body.SectionBody)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, result)

	case r.Method == http.MethodGet && r.URL.Path == "/api/nippou":
		query := r.URL.Query()
		result, err := s.service.Digest(ctx, sess, query.Get("settingsGistId"), query.Get("sinceDate"), query.Get("untilDate"))
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"result": result})

	case r.Method == http.MethodGet && r.URL.Path == "/api/preferences":
		prefs, err := s.service.Preferences(ctx, sess)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, prefs)

	case r.Method == http.MethodPut && r.URL.Path == "/api/preferences":
		var body session.Preferences
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		prefs, err := s.service.SavePreferences(ctx, sess, body)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, prefs)

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	}
}

func (s *HTTPServer) sessionStoreUnavailable(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error("session lookup failed", "request_id", requestID(r.Context()), "err", err)
	writeError(w, http.StatusServiceUnavailable, "SESSION_STORE_UNAVAILABLE", "Session store unavailable", nil)
}

func (s *HTTPServer) requireSession(w http.ResponseWriter, r *http.Request) (session.Session, bool) {
	sess, err := s.service.SessionFromToken(r.Context(), bearerToken(r))
	if err != nil {
		if !errors.Is(err, session.ErrUnauthenticated) {
			s.sessionStoreUnavailable(w, r, err)
			return session.Session{}, false
		}
		writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "Not authenticated", nil)
		return session.Session{}, false
	}
	return sess, true
}

func (s *HTTPServer) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message, details := mapError(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "request_id", requestID(r.Context()), "path", r.URL.Path, "code", code, "err", err)
	} else {
		s.logger.Debug("request rejected", "request_id", requestID(r.Context()), "path", r.URL.Path, "code", code, "err", err)
	}
	writeError(w, status, code, message, details)
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", reqID)

		next.ServeHTTP(writer, r)

		s.logger.Info("request",
			"request_id", reqID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", writer.status,
			"duration_ms", time.Since(started).Milliseconds(),
		)
	})
}

type requestIDKey struct{}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}

	var remoteErr *graphql.RemoteAPIError
	hasRemote := errors.As(err, &remoteErr)

	switch {
	case errors.Is(err, session.ErrUnauthenticated):
		return http.StatusUnauthorized, "UNAUTHENTICATED", "Not authenticated", nil
	case errors.Is(err, discussion.ErrUnauthorized):
		return http.StatusForbidden, "UNAUTHORIZED", "Token lacks permission for this operation", nil
	case errors.Is(err, discussion.ErrCategoryNotFound):
		return http.StatusNotFound, "CATEGORY_NOT_FOUND", err.Error(), nil
	case errors.Is(err, discussion.ErrNotFound):
		if hasRemote {
			return http.StatusNotFound, "NOT_FOUND", "Not found", remoteErr.Messages()
		}
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	case errors.Is(err, discussion.ErrInvalidArgument),
		errors.Is(err, digest.ErrInvalidParameters),
		errors.Is(err, journal.ErrEmptyTemplate):
		return http.StatusUnprocessableEntity, "INVALID_PARAMETERS", err.Error(), nil
	case errors.Is(err, journal.ErrIndexOutOfRange):
		return http.StatusUnprocessableEntity, "INDEX_OUT_OF_RANGE", err.Error(), nil
	}

	var upstreamErr *digest.UpstreamError
	if errors.As(err, &upstreamErr) {
		status := upstreamErr.StatusCode
		if status < http.StatusBadRequest || status > 599 {
			status = http.StatusBadGateway
		}
		return status, "UPSTREAM_ERROR", upstreamErr.Error(), nil
	}
	if hasRemote {
		return http.StatusBadGateway, "REMOTE_API_ERROR", remoteErr.Error(), remoteErr.Messages()
	}
	var transportErr *graphql.TransportError
	if errors.As(err, &transportErr) {
		return http.StatusBadGateway, "TRANSPORT_ERROR", "GitHub API unreachable", nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, "TIMEOUT", "Upstream timed out", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
