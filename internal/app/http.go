package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/rickylandino/val-builder-sub000/internal/bracket"
	"github.com/rickylandino/val-builder-sub000/internal/export"
	"github.com/rickylandino/val-builder-sub000/internal/search"
	"github.com/rickylandino/val-builder-sub000/internal/session"
	"github.com/rickylandino/val-builder-sub000/internal/store"
)

type HTTPServer struct {
	service    *Service
	corsOrigin string
	router     *mux.Router
}

func NewHTTPServer(service *Service, corsOrigin string) *HTTPServer {
	s := &HTTPServer{service: service, corsOrigin: corsOrigin}
	s.router = s.routes()
	return s
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		s.router.ServeHTTP(w, r)
	}))
}

func (s *HTTPServer) routes() *mux.Router {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet, http.MethodHead)
	api.HandleFunc("/ready", s.handleReady).Methods(http.MethodGet, http.MethodHead)

	api.HandleFunc("/vals", s.handleListVals).Methods(http.MethodGet)
	api.HandleFunc("/vals", s.handleCreateVal).Methods(http.MethodPost)
	api.HandleFunc("/vals/{valId}", s.handleGetVal).Methods(http.MethodGet)
	api.HandleFunc("/vals/{valId}/sessions", s.handleOpenSession).Methods(http.MethodPost)
	api.HandleFunc("/vals/{valId}/comments", s.handleListComments).Methods(http.MethodGet)
	api.HandleFunc("/vals/{valId}/comments", s.handleCreateComment).Methods(http.MethodPost)
	api.HandleFunc("/vals/{valId}/preview", s.handlePreview).Methods(http.MethodGet)
	api.HandleFunc("/vals/{valId}/history", s.handleHistory).Methods(http.MethodGet)

	api.HandleFunc("/sections", s.handleListSections).Methods(http.MethodGet)
	api.HandleFunc("/sections/{sectionId}/templates", s.handleListTemplates).Methods(http.MethodGet)
	api.HandleFunc("/sections/{sectionId}/templates", s.handleCreateTemplate).Methods(http.MethodPost)

	sessions := api.PathPrefix("/sessions/{sid}").Subrouter()
	sessions.HandleFunc("", s.handleGetSession).Methods(http.MethodGet)
	sessions.HandleFunc("", s.handleCloseSession).Methods(http.MethodDelete)
	sessions.HandleFunc("/section", s.handleSwitchSection).Methods(http.MethodPost)
	sessions.HandleFunc("/markup", s.handleApplyMarkup).Methods(http.MethodPut)
	sessions.HandleFunc("/sync", s.handleSyncMarkup).Methods(http.MethodPost)
	sessions.HandleFunc("/move", s.handleMoveDetail).Methods(http.MethodPost)
	sessions.HandleFunc("/templates", s.handleInsertTemplate).Methods(http.MethodPost)
	sessions.HandleFunc("/details/{detailId}", s.handleDeleteDetail).Methods(http.MethodDelete)
	sessions.HandleFunc("/details/{detailId}", s.handlePatchDetail).Methods(http.MethodPatch)
	sessions.HandleFunc("/changes", s.handleChanges).Methods(http.MethodGet)
	sessions.HandleFunc("/save", s.handleSave).Methods(http.MethodPost)
	sessions.HandleFunc("/reset", s.handleReset).Methods(http.MethodPost)

	api.HandleFunc("/bracket/mappings", s.handleListBracketMappings).Methods(http.MethodGet)
	api.HandleFunc("/bracket/resolve", s.handleResolveBrackets).Methods(http.MethodPost)

	api.HandleFunc("/comments/{commentId}/replies", s.handleReplyToComment).Methods(http.MethodPost)
	api.HandleFunc("/comments/{commentId}/resolve", s.handleResolveComment).Methods(http.MethodPost)

	api.HandleFunc("/search", s.handleSearch).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	})
	return r
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	statusCode := http.StatusOK
	checks := map[string]any{
		"database": map[string]any{"status": "ok"},
	}
	if err := s.service.Ping(ctx); err != nil {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
		checks["database"] = map[string]any{
			"status": "error",
			"error":  err.Error(),
		}
	}

	writeJSON(w, statusCode, map[string]any{
		"ok":     status == "ready",
		"status": status,
		"checks": checks,
	})
}

func (s *HTTPServer) handleListVals(w http.ResponseWriter, r *http.Request) {
	items, err := s.service.ListVals(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	views := make([]valView, 0, len(items))
	for _, item := range items {
		views = append(views, toValView(item))
	}
	writeJSON(w, http.StatusOK, map[string]any{"vals": views})
}

func (s *HTTPServer) handleCreateVal(w http.ResponseWriter, r *http.Request) {
	var body CreateValInput
	if !s.decode(w, r, &body) {
		return
	}
	item, err := s.service.CreateVal(r.Context(), body)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"val": toValView(item)})
}

func (s *HTTPServer) handleGetVal(w http.ResponseWriter, r *http.Request) {
	item, err := s.service.GetVal(r.Context(), mux.Vars(r)["valId"])
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"val": toValView(item)})
}

func (s *HTTPServer) handleListSections(w http.ResponseWriter, r *http.Request) {
	items, err := s.service.ListSections(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	views := make([]map[string]any, 0, len(items))
	for _, item := range items {
		views = append(views, map[string]any{"id": item.ID, "title": item.Title, "displayOrder": item.DisplayOrder})
	}
	writeJSON(w, http.StatusOK, map[string]any{"sections": views})
}

func (s *HTTPServer) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	items, err := s.service.ListTemplates(r.Context(), mux.Vars(r)["sectionId"])
	if err != nil {
		s.fail(w, err)
		return
	}
	views := make([]templateView, 0, len(items))
	for _, item := range items {
		views = append(views, toTemplateView(item))
	}
	writeJSON(w, http.StatusOK, map[string]any{"templates": views})
}

func (s *HTTPServer) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var body CreateTemplateInput
	if !s.decode(w, r, &body) {
		return
	}
	item, err := s.service.CreateTemplate(r.Context(), mux.Vars(r)["sectionId"], body)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"template": toTemplateView(item)})
}

func (s *HTTPServer) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	var body OpenSessionInput
	if !s.decode(w, r, &body) {
		return
	}
	view, err := s.service.OpenSession(r.Context(), mux.Vars(r)["valId"], body)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (s *HTTPServer) handleGetSession(w http.ResponseWriter, r *http.Request) {
	view, err := s.service.GetSession(mux.Vars(r)["sid"])
	s.respondSession(w, view, err)
}

func (s *HTTPServer) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	if err := s.service.CloseSession(mux.Vars(r)["sid"]); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handleSwitchSection(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SectionID string `json:"sectionId"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	view, err := s.service.SwitchSection(r.Context(), mux.Vars(r)["sid"], body.SectionID)
	s.respondSession(w, view, err)
}

func (s *HTTPServer) handleApplyMarkup(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Markup string `json:"markup"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	view, err := s.service.ApplyMarkup(mux.Vars(r)["sid"], body.Markup)
	s.respondSession(w, view, err)
}

func (s *HTTPServer) handleSyncMarkup(w http.ResponseWriter, r *http.Request) {
	view, err := s.service.SyncMarkup(mux.Vars(r)["sid"])
	s.respondSession(w, view, err)
}

func (s *HTTPServer) handleMoveDetail(w http.ResponseWriter, r *http.Request) {
	var body struct {
		DetailID    string `json:"detailId"`
		TargetIndex *int   `json:"targetIndex"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	if strings.TrimSpace(body.DetailID) == "" || body.TargetIndex == nil {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "detailId and targetIndex are required", nil)
		return
	}
	view, err := s.service.MoveDetail(mux.Vars(r)["sid"], body.DetailID, *body.TargetIndex)
	s.respondSession(w, view, err)
}

func (s *HTTPServer) handleInsertTemplate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TemplateID string `json:"templateId"`
		Index      int    `json:"index"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	if strings.TrimSpace(body.TemplateID) == "" {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "templateId is required", nil)
		return
	}
	view, created, err := s.service.InsertTemplate(r.Context(), mux.Vars(r)["sid"], body.TemplateID, body.Index)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"session": view, "detail": created})
}

func (s *HTTPServer) handleDeleteDetail(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	view, err := s.service.DeleteDetail(vars["sid"], vars["detailId"])
	s.respondSession(w, view, err)
}

func (s *HTTPServer) handlePatchDetail(w http.ResponseWriter, r *http.Request) {
	var body DetailPatch
	if !s.decode(w, r, &body) {
		return
	}
	vars := mux.Vars(r)
	view, err := s.service.PatchDetail(vars["sid"], vars["detailId"], body)
	s.respondSession(w, view, err)
}

func (s *HTTPServer) handleChanges(w http.ResponseWriter, r *http.Request) {
	pending, err := s.service.PendingChanges(mux.Vars(r)["sid"])
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pending)
}

func (s *HTTPServer) handleSave(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.Save(r.Context(), mux.Vars(r)["sid"])
	if err != nil {
		s.fail(w, err)
		return
	}
	payload := map[string]any{
		"summary": result.Summary,
		"savedAt": result.SavedAt,
		"session": result.Session,
		"commit":  nil,
	}
	if result.Commit != nil {
		payload["commit"] = toCommitView(*result.Commit)
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *HTTPServer) handleReset(w http.ResponseWriter, r *http.Request) {
	view, err := s.service.ResetSession(mux.Vars(r)["sid"])
	s.respondSession(w, view, err)
}

func (s *HTTPServer) handleListBracketMappings(w http.ResponseWriter, r *http.Request) {
	items, err := s.service.ListBracketMappings(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	if items == nil {
		items = []bracket.Mapping{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"mappings": items, "systemTags": bracket.SystemTags()})
}

func (s *HTTPServer) handleResolveBrackets(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text  string `json:"text"`
		ValID string `json:"valId"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	if strings.TrimSpace(body.ValID) == "" {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "valId is required", nil)
		return
	}
	result, err := s.service.ResolveBrackets(r.Context(), body.ValID, body.Text)
	if err != nil {
		s.fail(w, err)
		return
	}
	if result.Unresolved == nil {
		result.Unresolved = []string{}
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *HTTPServer) handleListComments(w http.ResponseWriter, r *http.Request) {
	items, err := s.service.ListComments(r.Context(), mux.Vars(r)["valId"])
	if err != nil {
		s.fail(w, err)
		return
	}
	views := make([]commentView, 0, len(items))
	for _, item := range items {
		views = append(views, toCommentView(item))
	}
	writeJSON(w, http.StatusOK, map[string]any{"comments": views})
}

func (s *HTTPServer) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	var body CreateCommentInput
	if !s.decode(w, r, &body) {
		return
	}
	item, err := s.service.CreateComment(r.Context(), mux.Vars(r)["valId"], body)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"comment": toCommentView(item)})
}

func (s *HTTPServer) handleReplyToComment(w http.ResponseWriter, r *http.Request) {
	var body CommentReplyInput
	if !s.decode(w, r, &body) {
		return
	}
	reply, err := s.service.ReplyToComment(r.Context(), mux.Vars(r)["commentId"], body)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"reply": toReplyView(reply)})
}

func (s *HTTPServer) handleResolveComment(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Author string `json:"author"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	if err := s.service.ResolveComment(r.Context(), mux.Vars(r)["commentId"], body.Author); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, _ := strconv.Atoi(query.Get("limit"))
	offset, _ := strconv.Atoi(query.Get("offset"))
	filterType := search.ResultType(strings.TrimSpace(query.Get("type")))
	if filterType != "" && filterType != search.ResultTemplate && filterType != search.ResultComment {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "type must be template or comment", map[string]any{"type": filterType})
		return
	}
	response := s.service.Search(r.Context(), search.Query{
		Text:            query.Get("q"),
		FilterType:      filterType,
		FilterSectionID: strings.TrimSpace(query.Get("sectionId")),
		FilterValID:     strings.TrimSpace(query.Get("valId")),
		Limit:           limit,
		Offset:          offset,
	})
	writeJSON(w, http.StatusOK, response)
}

func (s *HTTPServer) handlePreview(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	format, ok := export.ParseFormat(strings.ToLower(strings.TrimSpace(query.Get("format"))))
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "UNSUPPORTED_FORMAT", "format must be pdf, html or docx", map[string]any{"format": query.Get("format")})
		return
	}
	result, err := s.service.Preview(r.Context(), export.Request{
		ValID:           mux.Vars(r)["valId"],
		Format:          format,
		IncludeComments: query.Get("comments") == "true",
		Archive:         query.Get("archive") == "true",
	})
	if err != nil {
		s.fail(w, err)
		return
	}

	header := w.Header()
	header.Set("Content-Type", result.MimeType)
	disposition := "attachment"
	if format == export.FormatHTML {
		disposition = "inline"
	}
	header.Set("Content-Disposition", fmt.Sprintf(`%s; filename="%s"`, disposition, result.Filename))
	if result.ArchiveKey != "" {
		header.Set("X-Archive-Key", result.ArchiveKey)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Data)
}

func (s *HTTPServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "limit must be a positive integer", nil)
			return
		}
		limit = parsed
	}
	result, err := s.service.History(r.Context(), mux.Vars(r)["valId"], limit)
	if err != nil {
		s.fail(w, err)
		return
	}
	commits := make([]commitView, 0, len(result.Commits))
	for _, item := range result.Commits {
		commits = append(commits, toCommitView(item))
	}
	writeJSON(w, http.StatusOK, map[string]any{"commits": commits, "lastSave": result.LastSave})
}

func (s *HTTPServer) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := decodeBody(r, target); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return false
	}
	return true
}

func (s *HTTPServer) respondSession(w http.ResponseWriter, view SessionView, err error) {
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *HTTPServer) fail(w http.ResponseWriter, err error) {
	status, code, message, details := mapError(err)
	if status >= http.StatusInternalServerError {
		log.Printf("app: request failed: %v", err)
	}
	writeError(w, status, code, message, details)
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		log.Printf(`{"request_id":"%s","method":"%s","path":"%s","status":%d,"duration_ms":%d}`,
			requestID,
			r.Method,
			r.URL.Path,
			writer.status,
			time.Since(started).Milliseconds(),
		)
	})
}

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
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
		if errors.Is(err, http.ErrBodyReadAfterClose) || errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	switch {
	case isNotFound(err):
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	case errors.Is(err, session.ErrSaveInProgress):
		return http.StatusConflict, "SAVE_IN_PROGRESS", "Another save of this VAL is in progress", nil
	case errors.Is(err, export.ErrUnsupportedFormat):
		return http.StatusUnprocessableEntity, "UNSUPPORTED_FORMAT", "Unsupported export format", nil
	case errors.Is(err, export.ErrPDFDependencyMissing), errors.Is(err, export.ErrDOCXDependencyMissing):
		return http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", err.Error(), nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}

type valView struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	PlanName      string         `json:"planName"`
	PlanYearBegin string         `json:"planYearBegin,omitempty"`
	PlanYearEnd   string         `json:"planYearEnd,omitempty"`
	Status        string         `json:"status"`
	Attributes    map[string]any `json:"attributes,omitempty"`
	UpdatedBy     string         `json:"updatedBy"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

func toValView(v store.Val) valView {
	view := valView{
		ID:         v.ID,
		Name:       v.Name,
		PlanName:   v.PlanName,
		Status:     v.Status,
		Attributes: v.Attributes,
		UpdatedBy:  v.UpdatedBy,
		UpdatedAt:  v.UpdatedAt,
	}
	if v.PlanYearBegin != nil {
		view.PlanYearBegin = v.PlanYearBegin.Format("2006-01-02")
	}
	if v.PlanYearEnd != nil {
		view.PlanYearEnd = v.PlanYearEnd.Format("2006-01-02")
	}
	return view
}

type templateView struct {
	ID              string `json:"id"`
	SectionID       string `json:"sectionId"`
	Title           string `json:"title"`
	Content         string `json:"content"`
	DisplayOrder    int    `json:"displayOrder"`
	Bold            bool   `json:"bold"`
	Bullet          bool   `json:"bullet"`
	Center          bool   `json:"center"`
	TightLineHeight bool   `json:"tightLineHeight"`
	Indent          *int   `json:"indent"`
	BlankLineAfter  *int   `json:"blankLineAfter"`
}

func toTemplateView(t store.Template) templateView {
	return templateView{
		ID:              t.ID,
		SectionID:       t.SectionID,
		Title:           t.Title,
		Content:         t.Content,
		DisplayOrder:    t.DisplayOrder,
		Bold:            t.Bold,
		Bullet:          t.Bullet,
		Center:          t.Center,
		TightLineHeight: t.TightLineHeight,
		Indent:          t.Indent,
		BlankLineAfter:  t.BlankLineAfter,
	}
}

type replyView struct {
	ID        string    `json:"id"`
	Body      string    `json:"body"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}

func toReplyView(r store.CommentReply) replyView {
	return replyView{ID: r.ID, Body: r.Body, Author: r.Author, CreatedAt: r.CreatedAt}
}

type commentView struct {
	ID         string      `json:"id"`
	ValID      string      `json:"valId"`
	SectionID  string      `json:"sectionId,omitempty"`
	DetailID   string      `json:"detailId,omitempty"`
	Body       string      `json:"body"`
	Status     string      `json:"status"`
	Author     string      `json:"author"`
	ResolvedBy string      `json:"resolvedBy,omitempty"`
	ResolvedAt *time.Time  `json:"resolvedAt,omitempty"`
	CreatedAt  time.Time   `json:"createdAt"`
	Replies    []replyView `json:"replies"`
}

func toCommentView(c store.Comment) commentView {
	replies := make([]replyView, 0, len(c.Replies))
	for _, reply := range c.Replies {
		replies = append(replies, toReplyView(reply))
	}
	return commentView{
		ID:         c.ID,
		ValID:      c.ValID,
		SectionID:  c.SectionID,
		DetailID:   c.DetailID,
		Body:       c.Body,
		Status:     c.Status,
		Author:     c.Author,
		ResolvedBy: c.ResolvedBy,
		ResolvedAt: c.ResolvedAt,
		CreatedAt:  c.CreatedAt,
		Replies:    replies,
	}
}

type commitView struct {
	Hash      string    `json:"hash"`
	Message   string    `json:"message"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}

func toCommitView(c store.CommitInfo) commitView {
	return commitView{Hash: c.Hash, Message: strings.TrimSpace(c.Message), Author: c.Author, CreatedAt: c.CreatedAt}
}
