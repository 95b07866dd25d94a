// Package gmail provides a Gmail REST API client with rate limiting and
// retry logic. It speaks the structured (format=full) message representation
// and covers the read, send, draft, and label surfaces the email layer needs.
package gmail

import (
	"context"
	"errors"
)

// ErrFullResyncNeeded signals that the history cursor is too old for
// incremental sync and the caller must fall back to a full listing.
var ErrFullResyncNeeded = errors.New("history expired: full resync needed")

// AccountReader provides read access to account-level Gmail data.
type AccountReader interface {
	// GetProfile returns the authenticated user's profile.
	GetProfile(ctx context.Context) (*Profile, error)

	// ListLabels returns all labels for the account.
	ListLabels(ctx context.Context) ([]*Label, error)
}

// LabelWriter provides label mutation operations.
type LabelWriter interface {
	// CreateLabel creates a user label and returns it.
	CreateLabel(ctx context.Context, name string) (*Label, error)

	// DeleteLabel removes a user label. Messages keep their other labels.
	DeleteLabel(ctx context.Context, labelID string) error
}

// MessageReader provides read access to Gmail messages.
type MessageReader interface {
	// ListMessages returns message references matching the query.
	// maxResults caps the page size; labelIDs restricts to messages
	// carrying all the given labels. Use pageToken for pagination.
	ListMessages(ctx context.Context, query string, maxResults int, labelIDs []string, pageToken string) (*MessageListResponse, error)

	// GetMessage fetches a single message in structured form, with the
	// full MIME part tree and headers.
	GetMessage(ctx context.Context, messageID string) (*Message, error)

	// GetMessagesBatch fetches multiple messages in parallel with rate
	// limiting. Results keep input order; failed fetches return nil.
	GetMessagesBatch(ctx context.Context, messageIDs []string) ([]*Message, error)

	// ListHistory returns changes since startHistoryID. Returns
	// ErrFullResyncNeeded when the cursor has expired server-side.
	ListHistory(ctx context.Context, startHistoryID uint64, pageToken string) (*HistoryResponse, error)
}

// MessageWriter provides message mutation operations.
type MessageWriter interface {
	// ModifyMessage adds and removes labels on a single message.
	ModifyMessage(ctx context.Context, messageID string, addLabelIDs, removeLabelIDs []string) error

	// BatchModifyMessages adds and removes labels on up to 1000 messages.
	BatchModifyMessages(ctx context.Context, messageIDs []string, addLabelIDs, removeLabelIDs []string) error

	// TrashMessage moves a message to trash (recoverable for 30 days).
	TrashMessage(ctx context.Context, messageID string) error

	// DeleteMessage permanently deletes a message.
	DeleteMessage(ctx context.Context, messageID string) error
}

// Sender provides send and draft operations. Raw payloads are complete
// RFC 2822 messages; the client handles base64url encoding on the wire.
type Sender interface {
	// SendMessage sends a raw message. A non-empty threadID attaches the
	// message to an existing conversation.
	SendMessage(ctx context.Context, raw []byte, threadID string) (*SendResponse, error)

	// CreateDraft creates a draft from a raw message.
	CreateDraft(ctx context.Context, raw []byte, threadID string) (*DraftResponse, error)

	// UpdateDraft replaces a draft's content.
	UpdateDraft(ctx context.Context, draftID string, raw []byte) (*DraftResponse, error)

	// SendDraft sends an existing draft.
	SendDraft(ctx context.Context, draftID string) (*SendResponse, error)

	// DeleteDraft discards a draft.
	DeleteDraft(ctx context.Context, draftID string) error

	// ListDrafts returns up to maxResults draft references.
	ListDrafts(ctx context.Context, maxResults int) ([]*DraftResponse, error)
}

// API defines the interface for Gmail operations.
// This interface enables mocking for tests without hitting the real API.
type API interface {
	AccountReader
	LabelWriter
	MessageReader
	MessageWriter
	Sender

	// Close releases any resources held by the client.
	Close() error
}

// Profile represents a Gmail user profile.
type Profile struct {
	EmailAddress  string
	MessagesTotal int64
	ThreadsTotal  int64
	HistoryID     uint64
}

// Label represents a Gmail label.
type Label struct {
	ID             string
	Name           string
	Type           string // "system" or "user"
	MessagesTotal  int64
	MessagesUnread int64
}

// MessageListResponse contains a page of message references.
type MessageListResponse struct {
	Messages           []MessageID
	NextPageToken      string
	ResultSizeEstimate int64
}

// MessageID represents a message reference from list operations.
type MessageID struct {
	ID       string
	ThreadID string
}

// Header is one RFC 2822 header from a message part.
type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// PartBody carries the content of a leaf part. Data is base64url per the
// wire format; AttachmentID is set instead when the content is stored
// separately.
type PartBody struct {
	AttachmentID string `json:"attachmentId"`
	Size         int64  `json:"size"`
	Data         string `json:"data"`
}

// Part is one node in a message's MIME tree.
type Part struct {
	PartID   string   `json:"partId"`
	MimeType string   `json:"mimeType"`
	Filename string   `json:"filename"`
	Headers  []Header `json:"headers"`
	Body     PartBody `json:"body"`
	Parts    []Part   `json:"parts"`
}

// Message is a structured (format=full) Gmail message.
type Message struct {
	ID           string
	ThreadID     string
	LabelIDs     []string
	Snippet      string
	HistoryID    uint64
	InternalDate int64 // Unix milliseconds
	SizeEstimate int64
	Payload      Part
}

// HistoryResponse contains changes since a history ID.
type HistoryResponse struct {
	History       []HistoryRecord
	NextPageToken string
	HistoryID     uint64
}

// HistoryRecord represents a single history change.
type HistoryRecord struct {
	ID              uint64
	MessagesAdded   []HistoryMessage
	MessagesDeleted []HistoryMessage
	LabelsAdded     []HistoryLabelChange
	LabelsRemoved   []HistoryLabelChange
}

// HistoryMessage represents a message in history.
type HistoryMessage struct {
	Message MessageID
}

// HistoryLabelChange represents a label change in history.
type HistoryLabelChange struct {
	Message  MessageID
	LabelIDs []string
}

// SendResponse is the result of sending a message or a draft.
type SendResponse struct {
	ID       string
	ThreadID string
	LabelIDs []string
}

// DraftResponse is a draft reference with its enclosed message.
type DraftResponse struct {
	ID      string
	Message MessageID
}
