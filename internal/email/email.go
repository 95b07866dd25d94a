// Package email defines the provider-agnostic email client contract.
//
// Every provider adapter implements Client and produces the canonical
// shapes below regardless of its native response format, so callers never
// depend on provider quirks. Optional behavior (HTML bodies, attachments,
// labels-as-folders, drafts) must be checked through SupportsFeature
// before relying on it.
package email

import "context"

// Feature names for SupportsFeature capability negotiation.
const (
	FeatureHTMLEmail      = "html_email"
	FeatureAttachments    = "attachments"
	FeatureThreading      = "threading"
	FeatureLabels         = "labels"
	FeatureFolders        = "folders"
	FeatureSearch         = "search"
	FeatureDrafts         = "drafts"
	FeatureAdvancedSearch = "advanced_search"
	FeatureBatchOps       = "batch_operations"
	FeatureHistorySync    = "history_sync"
)

// Profile is the canonical account profile.
type Profile struct {
	EmailAddress  string `json:"email_address"`
	DisplayName   string `json:"display_name"`
	TotalMessages int64  `json:"total_messages"`
	Provider      string `json:"provider"`
	AccountType   string `json:"account_type"`
}

// Body holds both renderings of a message body. Either may be empty.
type Body struct {
	Text string `json:"text"`
	HTML string `json:"html"`
}

// Attachment describes one message attachment. Ref is the provider's
// handle for fetching the content separately.
type Attachment struct {
	Filename string `json:"filename"`
	MimeType string `json:"mime_type"`
	Size     int64  `json:"size"`
	Ref      string `json:"attachment_ref"`
}

// Message is the canonical, provider-agnostic message shape. Messages are
// never mutated in place; re-fetch after any server-side change.
type Message struct {
	ID           string       `json:"id"`
	ThreadID     string       `json:"thread_id"`
	Subject      string       `json:"subject"`
	From         string       `json:"from"`
	To           []string     `json:"to"`
	Cc           []string     `json:"cc"`
	Bcc          []string     `json:"bcc"`
	Date         string       `json:"date"`
	InternalDate int64        `json:"internal_date"`
	Labels       []string     `json:"labels"`
	Body         Body         `json:"body"`
	Attachments  []Attachment `json:"attachments"`
	IsRead       bool         `json:"is_read"`
	Snippet      string       `json:"snippet"`
}

// MessageSummary is the lightweight shape list operations return; no body.
type MessageSummary struct {
	ID       string `json:"id"`
	ThreadID string `json:"thread_id"`
}

// Draft wraps an unsent message.
type Draft struct {
	ID        string `json:"id"`
	MessageID string `json:"message_id"`
}

// Folder is a label or folder, depending on the provider's model.
type Folder struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Type         string `json:"type"` // "system" or "user"
	MessageCount int64  `json:"message_count"`
	UnreadCount  int64  `json:"unread_count"`
}

// Outgoing is the compositional content of a message to send or draft.
// Attachments are local file paths read at compose time.
type Outgoing struct {
	To          []string
	Cc          []string
	Bcc         []string
	Subject     string
	Body        string
	HTMLBody    string
	Attachments []string
}

// SendResult is the canonical envelope for send-like operations.
type SendResult struct {
	ID       string `json:"id"`
	ThreadID string `json:"thread_id"`
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
	Provider string `json:"provider"`
}

// DraftResult is the canonical envelope for draft mutations.
type DraftResult struct {
	ID        string `json:"id"`
	MessageID string `json:"message_id"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	Provider  string `json:"provider"`
}

// FolderResult is the canonical envelope for folder creation.
type FolderResult struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
	Provider string `json:"provider"`
}

// UnreadOptions filters unread listing and counting. Folder selects a
// provider category or label; zero HoursBack means no time window.
type UnreadOptions struct {
	Folder    string
	HoursBack int
}

// Client is the capability contract every provider must satisfy.
//
// Error semantics: operations returning a *Result envelope never return a
// Go error; failures surface as Success=false with the error string.
// Bulk operations return a possibly-empty list and degrade rather than
// fail on individual bad entries. GetProfile and GetMessage have no
// natural partial-success shape and return errors directly, as do the
// boolean-style management operations (mark/delete/move), whose callers
// treat a nil error as success.
type Client interface {
	ProviderName() string
	SupportsFeature(feature string) bool

	GetProfile(ctx context.Context) (*Profile, error)

	SendEmail(ctx context.Context, msg Outgoing) *SendResult
	ReplyToMessage(ctx context.Context, messageID, body, htmlBody string, replyAll bool, attachments []string) *SendResult

	ListMessages(ctx context.Context, maxResults int, query, folder string) ([]MessageSummary, error)
	GetMessage(ctx context.Context, messageID string) (*Message, error)
	SearchMessages(ctx context.Context, query string, maxResults int) ([]*Message, error)

	MarkAsRead(ctx context.Context, messageIDs []string) error
	MarkAsUnread(ctx context.Context, messageIDs []string) error
	DeleteMessage(ctx context.Context, messageID string, permanent bool) error
	MoveToFolder(ctx context.Context, messageID, folder string) error

	CreateDraft(ctx context.Context, msg Outgoing) *DraftResult
	UpdateDraft(ctx context.Context, draftID string, msg Outgoing) *DraftResult
	SendDraft(ctx context.Context, draftID string) *SendResult
	DeleteDraft(ctx context.Context, draftID string) error
	ListDrafts(ctx context.Context, maxResults int) ([]Draft, error)

	ListFolders(ctx context.Context) ([]Folder, error)
	CreateFolder(ctx context.Context, name, parent string) *FolderResult
	DeleteFolder(ctx context.Context, folderID string) error

	CountUnreadMessages(ctx context.Context, opts UnreadOptions) (int64, error)
	GetUnreadMessages(ctx context.Context, maxResults int, opts UnreadOptions) ([]*Message, error)
}
