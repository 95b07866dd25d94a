package gmail

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"
)

const (
	defaultBaseURL = "https://gmail.googleapis.com/gmail/v1"
	maxRetries     = 12  // Covers ~10 minutes of network outages
	maxBackoff     = 600 // Max backoff in seconds
	defaultTimeout = 30 * time.Second
)

// Client implements the Gmail API interface.
type Client struct {
	httpClient  *http.Client
	rateLimiter *RateLimiter
	logger      *slog.Logger
	baseURL     string
	userID      string // "me" for authenticated user
	concurrency int    // Max parallel requests for batch operations
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithLogger sets the logger for the client.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithConcurrency sets the max concurrent requests for batch operations.
func WithConcurrency(n int) ClientOption {
	return func(c *Client) {
		c.concurrency = n
	}
}

// WithRateLimiter sets a custom rate limiter.
func WithRateLimiter(rl *RateLimiter) ClientOption {
	return func(c *Client) {
		c.rateLimiter = rl
	}
}

// WithHTTPClient replaces the OAuth-wrapped HTTP client. Used in tests.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a new Gmail API client.
func NewClient(tokenSource oauth2.TokenSource, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:     defaultBaseURL,
		userID:      "me",
		concurrency: 10,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = oauth2.NewClient(context.Background(), tokenSource)
	}
	if c.rateLimiter == nil {
		c.rateLimiter = NewRateLimiter(5.0)
	}

	return c
}

// Close releases resources held by the client.
func (c *Client) Close() error {
	// HTTP client doesn't need explicit closing
	return nil
}

// request makes an HTTP request with rate limiting and retry logic.
// bodyBytes can be nil for requests without a body.
func (c *Client) request(ctx context.Context, op Operation, method, path string, bodyBytes []byte) ([]byte, error) {
	// Acquire rate limit tokens
	if err := c.rateLimiter.Acquire(ctx, op); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	reqURL := c.baseURL + path

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.calculateBackoff(attempt)
			c.logger.Debug("retrying request", "attempt", attempt, "backoff", backoff, "path", path)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		// Create a new reader for each attempt to ensure body can be re-read on retry
		var body io.Reader
		if bodyBytes != nil {
			body = bytes.NewReader(bodyBytes)
		}

		req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		if bodyBytes != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue // Retry on network errors
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		// Check for success
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return respBody, nil
		}

		// Handle specific error codes
		switch resp.StatusCode {
		case 429: // Rate limited
			// Expected during bursts; the retry logic handles it automatically
			c.logger.Debug("rate limited, backing off 30s", "path", path, "attempt", attempt)
			c.rateLimiter.Throttle(30 * time.Second)
			lastErr = fmt.Errorf("rate limited (429)")
			continue

		case 403: // Could be rate limit or permission error
			// Gmail returns 403 for quota exceeded with "rateLimitExceeded" reason
			if isRateLimitError(respBody) {
				c.logger.Debug("quota exceeded, backing off 60s", "path", path, "attempt", attempt)
				// Quota errors need longer backoff
				c.rateLimiter.Throttle(60 * time.Second)
				lastErr = fmt.Errorf("quota exceeded (403)")
				continue
			}
			// Actual permission error - don't retry
			return nil, fmt.Errorf("forbidden (403): %s", string(respBody))

		case 500, 502, 503, 504: // Server errors
			lastErr = fmt.Errorf("server error (%d)", resp.StatusCode)
			continue

		case 401: // Unauthorized - token might be expired
			// oauth2.Client should auto-refresh, but if it fails, don't retry
			return nil, fmt.Errorf("unauthorized (401): token may be invalid")

		case 404: // Not found
			return nil, &NotFoundError{Path: path}

		case 400:
			return nil, fmt.Errorf("bad request (400): %s", string(respBody))

		default: // Other client errors - don't retry
			return nil, fmt.Errorf("request failed (%d): %s", resp.StatusCode, string(respBody))
		}
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// calculateBackoff returns the backoff duration for a retry attempt.
// Uses exponential backoff with full jitter.
func (c *Client) calculateBackoff(attempt int) time.Duration {
	// Exponential: 1, 2, 4, 8, 16, 32, 64, 128, 256, 512, 600, 600...
	base := float64(uint(1) << uint(attempt))
	if base > maxBackoff {
		base = maxBackoff
	}

	// Full jitter: random value between 0 and base
	jittered := rand.Float64() * base
	return time.Duration(jittered * float64(time.Second))
}

// NotFoundError indicates a 404 response.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("not found: %s", e.Path)
}

// isRateLimitError checks if a 403 response is actually a rate limit error.
// Gmail returns 403 with "rateLimitExceeded" for quota exceeded instead of 429.
func isRateLimitError(body []byte) bool {
	return bytes.Contains(body, []byte("rateLimitExceeded")) ||
		bytes.Contains(body, []byte("RATE_LIMIT_EXCEEDED")) ||
		bytes.Contains(body, []byte("Quota exceeded")) ||
		bytes.Contains(body, []byte("userRateLimitExceeded"))
}

// Gmail API JSON response types (unexported, used only for JSON unmarshaling).

type profileResponse struct {
	EmailAddress  string `json:"emailAddress"`
	MessagesTotal int64  `json:"messagesTotal"`
	ThreadsTotal  int64  `json:"threadsTotal"`
	HistoryID     string `json:"historyId"`
}

type gmailLabel struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Type           string `json:"type"`
	MessagesTotal  int64  `json:"messagesTotal"`
	MessagesUnread int64  `json:"messagesUnread"`
}

type listLabelsResponse struct {
	Labels []gmailLabel `json:"labels"`
}

type gmailMessageRef struct {
	ID       string `json:"id"`
	ThreadID string `json:"threadId"`
}

type listMessagesResponse struct {
	Messages           []gmailMessageRef `json:"messages"`
	NextPageToken      string            `json:"nextPageToken"`
	ResultSizeEstimate int64             `json:"resultSizeEstimate"`
}

type fullMessageResponse struct {
	ID           string   `json:"id"`
	ThreadID     string   `json:"threadId"`
	LabelIDs     []string `json:"labelIds"`
	Snippet      string   `json:"snippet"`
	HistoryID    string   `json:"historyId"`
	InternalDate string   `json:"internalDate"`
	SizeEstimate int64    `json:"sizeEstimate"`
	Payload      Part     `json:"payload"`
}

type sendMessageResponse struct {
	ID       string   `json:"id"`
	ThreadID string   `json:"threadId"`
	LabelIDs []string `json:"labelIds"`
}

type draftResponse struct {
	ID      string          `json:"id"`
	Message gmailMessageRef `json:"message"`
}

type listDraftsResponse struct {
	Drafts        []draftResponse `json:"drafts"`
	NextPageToken string          `json:"nextPageToken"`
}

type historyMessageChange struct {
	Message gmailMessageRef `json:"message"`
}

type historyLabelChangeJSON struct {
	Message  gmailMessageRef `json:"message"`
	LabelIDs []string        `json:"labelIds"`
}

type historyEntry struct {
	ID              string                   `json:"id"`
	MessagesAdded   []historyMessageChange   `json:"messagesAdded"`
	MessagesDeleted []historyMessageChange   `json:"messagesDeleted"`
	LabelsAdded     []historyLabelChangeJSON `json:"labelsAdded"`
	LabelsRemoved   []historyLabelChangeJSON `json:"labelsRemoved"`
}

type listHistoryResponse struct {
	History       []historyEntry `json:"history"`
	NextPageToken string         `json:"nextPageToken"`
	HistoryID     string         `json:"historyId"`
}

// encodeBase64URL encodes a raw message for the wire. Gmail accepts both
// padded and unpadded base64url; we send unpadded, matching what it returns.
func encodeBase64URL(raw []byte) string {
	return base64.RawURLEncoding.EncodeToString(raw)
}

func (r *fullMessageResponse) toMessage() *Message {
	historyID, _ := strconv.ParseUint(r.HistoryID, 10, 64)
	internalDate, _ := strconv.ParseInt(r.InternalDate, 10, 64)
	return &Message{
		ID:           r.ID,
		ThreadID:     r.ThreadID,
		LabelIDs:     r.LabelIDs,
		Snippet:      r.Snippet,
		HistoryID:    historyID,
		InternalDate: internalDate,
		SizeEstimate: r.SizeEstimate,
		Payload:      r.Payload,
	}
}

// GetProfile returns the authenticated user's profile.
func (c *Client) GetProfile(ctx context.Context) (*Profile, error) {
	path := fmt.Sprintf("/users/%s/profile", c.userID)
	data, err := c.request(ctx, OpProfile, "GET", path, nil)
	if err != nil {
		return nil, err
	}

	var resp profileResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parse profile: %w", err)
	}

	historyID, _ := strconv.ParseUint(resp.HistoryID, 10, 64)

	return &Profile{
		EmailAddress:  resp.EmailAddress,
		MessagesTotal: resp.MessagesTotal,
		ThreadsTotal:  resp.ThreadsTotal,
		HistoryID:     historyID,
	}, nil
}

// ListLabels returns all labels for the account.
func (c *Client) ListLabels(ctx context.Context) ([]*Label, error) {
	path := fmt.Sprintf("/users/%s/labels", c.userID)
	data, err := c.request(ctx, OpLabelsList, "GET", path, nil)
	if err != nil {
		return nil, err
	}

	var resp listLabelsResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parse labels: %w", err)
	}

	labels := make([]*Label, len(resp.Labels))
	for i, l := range resp.Labels {
		labels[i] = &Label{
			ID:             l.ID,
			Name:           l.Name,
			Type:           l.Type,
			MessagesTotal:  l.MessagesTotal,
			MessagesUnread: l.MessagesUnread,
		}
	}
	return labels, nil
}

// CreateLabel creates a user label.
func (c *Client) CreateLabel(ctx context.Context, name string) (*Label, error) {
	body := struct {
		Name                  string `json:"name"`
		LabelListVisibility   string `json:"labelListVisibility"`
		MessageListVisibility string `json:"messageListVisibility"`
	}{Name: name, LabelListVisibility: "labelShow", MessageListVisibility: "show"}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal label: %w", err)
	}

	path := fmt.Sprintf("/users/%s/labels", c.userID)
	data, err := c.request(ctx, OpLabelsCreate, "POST", path, bodyBytes)
	if err != nil {
		return nil, err
	}

	var resp gmailLabel
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parse label: %w", err)
	}
	return &Label{ID: resp.ID, Name: resp.Name, Type: resp.Type}, nil
}

// DeleteLabel removes a user label.
func (c *Client) DeleteLabel(ctx context.Context, labelID string) error {
	path := fmt.Sprintf("/users/%s/labels/%s", c.userID, url.PathEscape(labelID))
	_, err := c.request(ctx, OpLabelsDelete, "DELETE", path, nil)
	return err
}

// ListMessages returns message references matching the query.
func (c *Client) ListMessages(ctx context.Context, query string, maxResults int, labelIDs []string, pageToken string) (*MessageListResponse, error) {
	params := url.Values{}
	if maxResults <= 0 {
		maxResults = 100
	}
	params.Set("maxResults", strconv.Itoa(maxResults))
	if query != "" {
		params.Set("q", query)
	}
	for _, id := range labelIDs {
		params.Add("labelIds", id)
	}
	if pageToken != "" {
		params.Set("pageToken", pageToken)
	}

	path := fmt.Sprintf("/users/%s/messages?%s", c.userID, params.Encode())
	data, err := c.request(ctx, OpMessagesList, "GET", path, nil)
	if err != nil {
		return nil, err
	}

	var resp listMessagesResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parse messages: %w", err)
	}

	messages := make([]MessageID, len(resp.Messages))
	for i, m := range resp.Messages {
		messages[i] = MessageID(m)
	}

	return &MessageListResponse{
		Messages:           messages,
		NextPageToken:      resp.NextPageToken,
		ResultSizeEstimate: resp.ResultSizeEstimate,
	}, nil
}

// GetMessage fetches a single message in structured form.
func (c *Client) GetMessage(ctx context.Context, messageID string) (*Message, error) {
	path := fmt.Sprintf("/users/%s/messages/%s?format=full", c.userID, url.PathEscape(messageID))
	data, err := c.request(ctx, OpMessagesGet, "GET", path, nil)
	if err != nil {
		return nil, err
	}

	var resp fullMessageResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parse message: %w", err)
	}
	return resp.toMessage(), nil
}

// GetMessagesBatch fetches multiple messages in parallel with rate limiting.
func (c *Client) GetMessagesBatch(ctx context.Context, messageIDs []string) ([]*Message, error) {
	if len(messageIDs) == 0 {
		return nil, nil
	}

	results := make([]*Message, len(messageIDs))
	sem := make(chan struct{}, c.concurrency)

	g, ctx := errgroup.WithContext(ctx)

	for i, id := range messageIDs {
		i, id := i, id // Capture for goroutine

		g.Go(func() error {
			// Acquire semaphore
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return ctx.Err()
			}

			msg, err := c.GetMessage(ctx, id)
			if err != nil {
				// Log but don't fail the batch - allow partial results
				c.logger.Warn("failed to fetch message", "id", id, "error", err)
				return nil
			}

			results[i] = msg
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

// ListHistory returns mailbox changes recorded since startHistoryID.
// Gmail keeps history for a limited window; once the cursor falls out of
// that window the endpoint answers 404, which is surfaced here as
// ErrFullResyncNeeded so callers know to re-list from scratch.
func (c *Client) ListHistory(ctx context.Context, startHistoryID uint64, pageToken string) (*HistoryResponse, error) {
	params := url.Values{}
	params.Set("startHistoryId", strconv.FormatUint(startHistoryID, 10))
	for _, t := range []string{"messageAdded", "messageDeleted", "labelAdded", "labelRemoved"} {
		params.Add("historyTypes", t)
	}
	if pageToken != "" {
		params.Set("pageToken", pageToken)
	}

	path := fmt.Sprintf("/users/%s/history?%s", c.userID, params.Encode())
	data, err := c.request(ctx, OpHistoryList, "GET", path, nil)
	if err != nil {
		var nf *NotFoundError
		if errors.As(err, &nf) {
			return nil, ErrFullResyncNeeded
		}
		return nil, err
	}

	var resp listHistoryResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parse history: %w", err)
	}

	historyID, _ := strconv.ParseUint(resp.HistoryID, 10, 64)
	return &HistoryResponse{
		History:       mapHistoryEntries(resp.History),
		NextPageToken: resp.NextPageToken,
		HistoryID:     historyID,
	}, nil
}

func mapHistoryEntries(entries []historyEntry) []HistoryRecord {
	if len(entries) == 0 {
		return nil
	}
	records := make([]HistoryRecord, len(entries))
	for i, e := range entries {
		id, _ := strconv.ParseUint(e.ID, 10, 64)
		records[i] = HistoryRecord{
			ID:              id,
			MessagesAdded:   mapMessageChanges(e.MessagesAdded),
			MessagesDeleted: mapMessageChanges(e.MessagesDeleted),
			LabelsAdded:     mapLabelChanges(e.LabelsAdded),
			LabelsRemoved:   mapLabelChanges(e.LabelsRemoved),
		}
	}
	return records
}

func mapMessageChanges(changes []historyMessageChange) []HistoryMessage {
	if len(changes) == 0 {
		return nil
	}
	out := make([]HistoryMessage, len(changes))
	for i, ch := range changes {
		out[i] = HistoryMessage{Message: MessageID(ch.Message)}
	}
	return out
}

func mapLabelChanges(changes []historyLabelChangeJSON) []HistoryLabelChange {
	if len(changes) == 0 {
		return nil
	}
	out := make([]HistoryLabelChange, len(changes))
	for i, ch := range changes {
		out[i] = HistoryLabelChange{Message: MessageID(ch.Message), LabelIDs: ch.LabelIDs}
	}
	return out
}

// ModifyMessage adds and removes labels on a single message.
func (c *Client) ModifyMessage(ctx context.Context, messageID string, addLabelIDs, removeLabelIDs []string) error {
	body := struct {
		AddLabelIDs    []string `json:"addLabelIds,omitempty"`
		RemoveLabelIDs []string `json:"removeLabelIds,omitempty"`
	}{AddLabelIDs: addLabelIDs, RemoveLabelIDs: removeLabelIDs}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}

	path := fmt.Sprintf("/users/%s/messages/%s/modify", c.userID, url.PathEscape(messageID))
	_, err = c.request(ctx, OpMessagesModify, "POST", path, bodyBytes)
	return err
}

// BatchModifyMessages adds and removes labels on multiple messages.
func (c *Client) BatchModifyMessages(ctx context.Context, messageIDs []string, addLabelIDs, removeLabelIDs []string) error {
	if len(messageIDs) == 0 {
		return nil
	}
	if len(messageIDs) > 1000 {
		return fmt.Errorf("batch modify limited to 1000 messages, got %d", len(messageIDs))
	}

	body := struct {
		IDs            []string `json:"ids"`
		AddLabelIDs    []string `json:"addLabelIds,omitempty"`
		RemoveLabelIDs []string `json:"removeLabelIds,omitempty"`
	}{IDs: messageIDs, AddLabelIDs: addLabelIDs, RemoveLabelIDs: removeLabelIDs}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}

	path := fmt.Sprintf("/users/%s/messages/batchModify", c.userID)
	_, err = c.request(ctx, OpMessagesBatchModify, "POST", path, bodyBytes)
	return err
}

// TrashMessage moves a message to trash.
func (c *Client) TrashMessage(ctx context.Context, messageID string) error {
	path := fmt.Sprintf("/users/%s/messages/%s/trash", c.userID, url.PathEscape(messageID))
	_, err := c.request(ctx, OpMessagesTrash, "POST", path, nil)
	return err
}

// DeleteMessage permanently deletes a message.
func (c *Client) DeleteMessage(ctx context.Context, messageID string) error {
	path := fmt.Sprintf("/users/%s/messages/%s", c.userID, url.PathEscape(messageID))
	_, err := c.request(ctx, OpMessagesDelete, "DELETE", path, nil)
	return err
}

// SendMessage sends a raw RFC 2822 message.
func (c *Client) SendMessage(ctx context.Context, raw []byte, threadID string) (*SendResponse, error) {
	body := struct {
		Raw      string `json:"raw"`
		ThreadID string `json:"threadId,omitempty"`
	}{Raw: encodeBase64URL(raw), ThreadID: threadID}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal body: %w", err)
	}

	path := fmt.Sprintf("/users/%s/messages/send", c.userID)
	data, err := c.request(ctx, OpMessagesSend, "POST", path, bodyBytes)
	if err != nil {
		return nil, err
	}

	var resp sendMessageResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parse send response: %w", err)
	}
	return &SendResponse{ID: resp.ID, ThreadID: resp.ThreadID, LabelIDs: resp.LabelIDs}, nil
}

// CreateDraft creates a draft from a raw message.
func (c *Client) CreateDraft(ctx context.Context, raw []byte, threadID string) (*DraftResponse, error) {
	body := struct {
		Message struct {
			Raw      string `json:"raw"`
			ThreadID string `json:"threadId,omitempty"`
		} `json:"message"`
	}{}
	body.Message.Raw = encodeBase64URL(raw)
	body.Message.ThreadID = threadID

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal body: %w", err)
	}

	path := fmt.Sprintf("/users/%s/drafts", c.userID)
	data, err := c.request(ctx, OpDraftsCreate, "POST", path, bodyBytes)
	if err != nil {
		return nil, err
	}

	var resp draftResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parse draft: %w", err)
	}
	return &DraftResponse{ID: resp.ID, Message: MessageID(resp.Message)}, nil
}

// UpdateDraft replaces a draft's content.
func (c *Client) UpdateDraft(ctx context.Context, draftID string, raw []byte) (*DraftResponse, error) {
	body := struct {
		Message struct {
			Raw string `json:"raw"`
		} `json:"message"`
	}{}
	body.Message.Raw = encodeBase64URL(raw)

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal body: %w", err)
	}

	path := fmt.Sprintf("/users/%s/drafts/%s", c.userID, url.PathEscape(draftID))
	data, err := c.request(ctx, OpDraftsUpdate, "PUT", path, bodyBytes)
	if err != nil {
		return nil, err
	}

	var resp draftResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parse draft: %w", err)
	}
	return &DraftResponse{ID: resp.ID, Message: MessageID(resp.Message)}, nil
}

// SendDraft sends an existing draft.
func (c *Client) SendDraft(ctx context.Context, draftID string) (*SendResponse, error) {
	body := struct {
		ID string `json:"id"`
	}{ID: draftID}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal body: %w", err)
	}

	path := fmt.Sprintf("/users/%s/drafts/send", c.userID)
	data, err := c.request(ctx, OpDraftsSend, "POST", path, bodyBytes)
	if err != nil {
		return nil, err
	}

	var resp sendMessageResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parse send response: %w", err)
	}
	return &SendResponse{ID: resp.ID, ThreadID: resp.ThreadID, LabelIDs: resp.LabelIDs}, nil
}

// DeleteDraft discards a draft.
func (c *Client) DeleteDraft(ctx context.Context, draftID string) error {
	path := fmt.Sprintf("/users/%s/drafts/%s", c.userID, url.PathEscape(draftID))
	_, err := c.request(ctx, OpDraftsDelete, "DELETE", path, nil)
	return err
}

// ListDrafts returns up to maxResults draft references.
func (c *Client) ListDrafts(ctx context.Context, maxResults int) ([]*DraftResponse, error) {
	params := url.Values{}
	if maxResults <= 0 {
		maxResults = 100
	}
	params.Set("maxResults", strconv.Itoa(maxResults))

	path := fmt.Sprintf("/users/%s/drafts?%s", c.userID, params.Encode())
	data, err := c.request(ctx, OpDraftsList, "GET", path, nil)
	if err != nil {
		return nil, err
	}

	var resp listDraftsResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parse drafts: %w", err)
	}

	drafts := make([]*DraftResponse, len(resp.Drafts))
	for i, d := range resp.Drafts {
		drafts[i] = &DraftResponse{ID: d.ID, Message: MessageID(d.Message)}
	}
	return drafts, nil
}

// headerValue returns the first header with the given name, case-insensitively.
func headerValue(headers []Header, name string) string {
	for _, h := range headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// Ensure Client implements API interface.
var _ API = (*Client)(nil)
