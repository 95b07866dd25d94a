package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ZihaoFU245/It-s-Friday/internal/accounts"
	"github.com/ZihaoFU245/It-s-Friday/internal/email"
	"github.com/ZihaoFU245/It-s-Friday/internal/gmail"
	"github.com/ZihaoFU245/It-s-Friday/internal/manager"
)

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, err string, message string) {
	writeJSON(w, status, ErrorResponse{Error: err, Message: message})
}

// writeClientError maps manager and provider errors to HTTP statuses.
func (s *Server) writeClientError(w http.ResponseWriter, err error) {
	var notFound *accounts.ErrNotFound
	var disabled *manager.DisabledError
	var gone *gmail.NotFoundError
	switch {
	case errors.As(err, &notFound):
		writeError(w, http.StatusNotFound, "account_not_found", err.Error())
	case errors.As(err, &disabled):
		writeError(w, http.StatusConflict, "account_disabled", err.Error())
	case errors.Is(err, manager.ErrNoAccounts):
		writeError(w, http.StatusNotFound, "no_accounts", err.Error())
	case errors.As(err, &gone):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	default:
		s.logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

// client resolves the account named in the ?account= query parameter,
// falling back to the default account.
func (s *Server) client(w http.ResponseWriter, r *http.Request) (email.Client, bool) {
	c, err := s.manager.Client(r.Context(), r.URL.Query().Get("account"))
	if err != nil {
		s.writeClientError(w, err)
		return nil, false
	}
	return c, true
}

func queryInt(r *http.Request, key string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || v < 0 {
		return def
	}
	return v
}

func unreadOptions(r *http.Request) email.UnreadOptions {
	return email.UnreadOptions{
		Folder:    r.URL.Query().Get("folder"),
		HoursBack: queryInt(r, "hours", 0),
	}
}

// --- Accounts ---

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"accounts": s.manager.Summaries(),
	})
}

type accountRequest struct {
	Name                  string `json:"name"`
	Provider              string `json:"provider"`
	DisplayName           string `json:"display_name"`
	GoogleCredentialsPath string `json:"google_credentials_path"`
	GoogleTokenPath       string `json:"google_token_path"`
	Enabled               *bool  `json:"enabled"`
	Default               bool   `json:"default_account"`
}

func (s *Server) handleAddAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	if req.Name == "" || req.Provider == "" {
		writeError(w, http.StatusBadRequest, "invalid_body", "name and provider are required")
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	acc := accounts.Account{
		Name:                  req.Name,
		Provider:              req.Provider,
		DisplayName:           req.DisplayName,
		GoogleCredentialsPath: req.GoogleCredentialsPath,
		GoogleTokenPath:       req.GoogleTokenPath,
		Enabled:               enabled,
		Default:               req.Default,
	}
	if err := s.manager.AddAccount(acc); err != nil {
		s.writeClientError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, acc)
}

type accountUpdateRequest struct {
	Provider              *string `json:"provider"`
	DisplayName           *string `json:"display_name"`
	GoogleCredentialsPath *string `json:"google_credentials_path"`
	GoogleTokenPath       *string `json:"google_token_path"`
	Enabled               *bool   `json:"enabled"`
	Default               *bool   `json:"default_account"`
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	var req accountUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	acc, err := s.manager.UpdateAccount(chi.URLParam(r, "name"), accounts.Update{
		Provider:              req.Provider,
		DisplayName:           req.DisplayName,
		GoogleCredentialsPath: req.GoogleCredentialsPath,
		GoogleTokenPath:       req.GoogleTokenPath,
		Enabled:               req.Enabled,
		Default:               req.Default,
	})
	if err != nil {
		s.writeClientError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, acc)
}

func (s *Server) handleRemoveAccount(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.RemoveAccount(chi.URLParam(r, "name")); err != nil {
		s.writeClientError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

func (s *Server) handleAccountProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.manager.Validate(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.writeClientError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// --- Messages ---

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	c, ok := s.client(w, r)
	if !ok {
		return
	}

	max := queryInt(r, "max", 20)
	msgs, err := c.ListMessages(r.Context(), max, r.URL.Query().Get("q"), r.URL.Query().Get("folder"))
	if err != nil {
		s.writeClientError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"messages": msgs,
		"count":    len(msgs),
	})
}

func (s *Server) handleGetMessage(w http.ResponseWriter, r *http.Request) {
	c, ok := s.client(w, r)
	if !ok {
		return
	}

	msg, err := c.GetMessage(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeClientError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

func (s *Server) handleDeleteMessage(w http.ResponseWriter, r *http.Request) {
	c, ok := s.client(w, r)
	if !ok {
		return
	}

	permanent := r.URL.Query().Get("permanent") == "true"
	if err := c.DeleteMessage(r.Context(), chi.URLParam(r, "id"), permanent); err != nil {
		s.writeClientError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	c, ok := s.client(w, r)
	if !ok {
		return
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "missing_query", "q parameter is required")
		return
	}

	msgs, err := c.SearchMessages(r.Context(), query, queryInt(r, "max", 20))
	if err != nil {
		s.writeClientError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"messages": msgs,
		"count":    len(msgs),
	})
}

// --- Unread ---

type accountUnread struct {
	Account  string           `json:"account"`
	Messages []*email.Message `json:"messages,omitempty"`
	Error    string           `json:"error,omitempty"`
}

func (s *Server) handleUnread(w http.ResponseWriter, r *http.Request) {
	max := queryInt(r, "max", 20)
	opts := unreadOptions(r)

	if r.URL.Query().Get("all") == "true" {
		results := s.manager.UnreadAll(r.Context(), max, opts)
		out := make([]accountUnread, len(results))
		for i, res := range results {
			out[i] = accountUnread{Account: res.Account, Messages: res.Messages}
			if res.Err != nil {
				out[i].Error = res.Err.Error()
			}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"accounts": out})
		return
	}

	c, ok := s.client(w, r)
	if !ok {
		return
	}
	msgs, err := c.GetUnreadMessages(r.Context(), max, opts)
	if err != nil {
		s.writeClientError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"messages": msgs,
		"count":    len(msgs),
	})
}

type accountCount struct {
	Account string `json:"account"`
	Count   int64  `json:"count"`
	Error   string `json:"error,omitempty"`
}

func (s *Server) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	opts := unreadOptions(r)

	if r.URL.Query().Get("all") == "true" {
		results := s.manager.CountUnreadAll(r.Context(), opts)
		out := make([]accountCount, len(results))
		var total int64
		for i, res := range results {
			out[i] = accountCount{Account: res.Account, Count: res.Count}
			if res.Err != nil {
				out[i].Error = res.Err.Error()
			}
			total += res.Count
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"accounts": out, "total": total})
		return
	}

	c, ok := s.client(w, r)
	if !ok {
		return
	}
	n, err := c.CountUnreadMessages(r.Context(), opts)
	if err != nil {
		s.writeClientError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"count": n})
}

// --- Send / reply / flags ---

type sendRequest struct {
	To          []string `json:"to"`
	Cc          []string `json:"cc"`
	Bcc         []string `json:"bcc"`
	Subject     string   `json:"subject"`
	Body        string   `json:"body"`
	HTMLBody    string   `json:"html_body"`
	Attachments []string `json:"attachments"`
}

func (r sendRequest) outgoing() email.Outgoing {
	return email.Outgoing{
		To:          r.To,
		Cc:          r.Cc,
		Bcc:         r.Bcc,
		Subject:     r.Subject,
		Body:        r.Body,
		HTMLBody:    r.HTMLBody,
		Attachments: r.Attachments,
	}
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	if len(req.To) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_body", "to is required")
		return
	}

	c, ok := s.client(w, r)
	if !ok {
		return
	}

	res := c.SendEmail(r.Context(), req.outgoing())
	status := http.StatusOK
	if !res.Success {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, res)
}

type replyRequest struct {
	MessageID   string   `json:"message_id"`
	Body        string   `json:"body"`
	HTMLBody    string   `json:"html_body"`
	ReplyAll    bool     `json:"reply_all"`
	Attachments []string `json:"attachments"`
}

func (s *Server) handleReply(w http.ResponseWriter, r *http.Request) {
	var req replyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	if req.MessageID == "" {
		writeError(w, http.StatusBadRequest, "invalid_body", "message_id is required")
		return
	}

	c, ok := s.client(w, r)
	if !ok {
		return
	}

	res := c.ReplyToMessage(r.Context(), req.MessageID, req.Body, req.HTMLBody, req.ReplyAll, req.Attachments)
	status := http.StatusOK
	if !res.Success {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, res)
}

type markRequest struct {
	MessageIDs []string `json:"message_ids"`
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	s.handleMark(w, r, true)
}

func (s *Server) handleMarkUnread(w http.ResponseWriter, r *http.Request) {
	s.handleMark(w, r, false)
}

func (s *Server) handleMark(w http.ResponseWriter, r *http.Request, read bool) {
	var req markRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	if len(req.MessageIDs) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_body", "message_ids is required")
		return
	}

	c, ok := s.client(w, r)
	if !ok {
		return
	}

	var err error
	if read {
		err = c.MarkAsRead(r.Context(), req.MessageIDs)
	} else {
		err = c.MarkAsUnread(r.Context(), req.MessageIDs)
	}
	if err != nil {
		s.writeClientError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type moveRequest struct {
	MessageID string `json:"message_id"`
	Folder    string `json:"folder"`
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	if req.MessageID == "" || req.Folder == "" {
		writeError(w, http.StatusBadRequest, "invalid_body", "message_id and folder are required")
		return
	}

	c, ok := s.client(w, r)
	if !ok {
		return
	}

	if err := c.MoveToFolder(r.Context(), req.MessageID, req.Folder); err != nil {
		s.writeClientError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "moved"})
}

// --- Drafts ---

func (s *Server) handleListDrafts(w http.ResponseWriter, r *http.Request) {
	c, ok := s.client(w, r)
	if !ok {
		return
	}

	drafts, err := c.ListDrafts(r.Context(), queryInt(r, "max", 20))
	if err != nil {
		s.writeClientError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"drafts": drafts})
}

func (s *Server) handleCreateDraft(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	c, ok := s.client(w, r)
	if !ok {
		return
	}

	res := c.CreateDraft(r.Context(), req.outgoing())
	status := http.StatusCreated
	if !res.Success {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, res)
}

func (s *Server) handleUpdateDraft(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	c, ok := s.client(w, r)
	if !ok {
		return
	}

	res := c.UpdateDraft(r.Context(), chi.URLParam(r, "id"), req.outgoing())
	status := http.StatusOK
	if !res.Success {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, res)
}

func (s *Server) handleSendDraft(w http.ResponseWriter, r *http.Request) {
	c, ok := s.client(w, r)
	if !ok {
		return
	}

	res := c.SendDraft(r.Context(), chi.URLParam(r, "id"))
	status := http.StatusOK
	if !res.Success {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, res)
}

func (s *Server) handleDeleteDraft(w http.ResponseWriter, r *http.Request) {
	c, ok := s.client(w, r)
	if !ok {
		return
	}

	if err := c.DeleteDraft(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeClientError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// --- Folders ---

func (s *Server) handleListFolders(w http.ResponseWriter, r *http.Request) {
	c, ok := s.client(w, r)
	if !ok {
		return
	}

	folders, err := c.ListFolders(r.Context())
	if err != nil {
		s.writeClientError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"folders": folders})
}

type folderRequest struct {
	Name   string `json:"name"`
	Parent string `json:"parent"`
}

func (s *Server) handleCreateFolder(w http.ResponseWriter, r *http.Request) {
	var req folderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "invalid_body", "name is required")
		return
	}

	c, ok := s.client(w, r)
	if !ok {
		return
	}

	res := c.CreateFolder(r.Context(), req.Name, req.Parent)
	status := http.StatusCreated
	if !res.Success {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, res)
}

func (s *Server) handleDeleteFolder(w http.ResponseWriter, r *http.Request) {
	c, ok := s.client(w, r)
	if !ok {
		return
	}

	if err := c.DeleteFolder(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeClientError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
