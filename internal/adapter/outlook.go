package adapter

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ZihaoFU245/It-s-Friday/internal/email"
)

// ErrOutlookUnavailable is returned by every Outlook operation until the
// Microsoft Graph client lands.
var ErrOutlookUnavailable = errors.New("outlook provider is not yet available")

// Outlook is a placeholder adapter. It satisfies the capability contract
// so accounts can be configured ahead of time, but every operation
// reports the provider as unavailable through the canonical shapes.
type Outlook struct {
	logger *slog.Logger
}

// NewOutlook creates the placeholder Outlook adapter.
func NewOutlook(logger *slog.Logger) *Outlook {
	if logger == nil {
		logger = slog.Default()
	}
	return &Outlook{logger: logger}
}

func (o *Outlook) ProviderName() string { return "outlook" }

// SupportsFeature reports no capabilities while the provider is a stub.
func (o *Outlook) SupportsFeature(feature string) bool { return false }

func (o *Outlook) unavailableSend() *email.SendResult {
	return &email.SendResult{Success: false, Error: ErrOutlookUnavailable.Error(), Provider: "outlook"}
}

func (o *Outlook) GetProfile(ctx context.Context) (*email.Profile, error) {
	return nil, ErrOutlookUnavailable
}

func (o *Outlook) SendEmail(ctx context.Context, msg email.Outgoing) *email.SendResult {
	return o.unavailableSend()
}

func (o *Outlook) ReplyToMessage(ctx context.Context, messageID, body, htmlBody string, replyAll bool, attachments []string) *email.SendResult {
	return o.unavailableSend()
}

func (o *Outlook) ListMessages(ctx context.Context, maxResults int, query, folder string) ([]email.MessageSummary, error) {
	return nil, ErrOutlookUnavailable
}

func (o *Outlook) GetMessage(ctx context.Context, messageID string) (*email.Message, error) {
	return nil, ErrOutlookUnavailable
}

func (o *Outlook) SearchMessages(ctx context.Context, query string, maxResults int) ([]*email.Message, error) {
	return nil, ErrOutlookUnavailable
}

func (o *Outlook) MarkAsRead(ctx context.Context, messageIDs []string) error {
	return ErrOutlookUnavailable
}

func (o *Outlook) MarkAsUnread(ctx context.Context, messageIDs []string) error {
	return ErrOutlookUnavailable
}

func (o *Outlook) DeleteMessage(ctx context.Context, messageID string, permanent bool) error {
	return ErrOutlookUnavailable
}

func (o *Outlook) MoveToFolder(ctx context.Context, messageID, folder string) error {
	return ErrOutlookUnavailable
}

func (o *Outlook) CreateDraft(ctx context.Context, msg email.Outgoing) *email.DraftResult {
	return &email.DraftResult{Success: false, Error: ErrOutlookUnavailable.Error(), Provider: "outlook"}
}

func (o *Outlook) UpdateDraft(ctx context.Context, draftID string, msg email.Outgoing) *email.DraftResult {
	return &email.DraftResult{Success: false, Error: ErrOutlookUnavailable.Error(), Provider: "outlook"}
}

func (o *Outlook) SendDraft(ctx context.Context, draftID string) *email.SendResult {
	return o.unavailableSend()
}

func (o *Outlook) DeleteDraft(ctx context.Context, draftID string) error {
	return ErrOutlookUnavailable
}

func (o *Outlook) ListDrafts(ctx context.Context, maxResults int) ([]email.Draft, error) {
	return nil, ErrOutlookUnavailable
}

func (o *Outlook) ListFolders(ctx context.Context) ([]email.Folder, error) {
	return nil, ErrOutlookUnavailable
}

func (o *Outlook) CreateFolder(ctx context.Context, name, parent string) *email.FolderResult {
	return &email.FolderResult{Success: false, Error: ErrOutlookUnavailable.Error(), Provider: "outlook"}
}

func (o *Outlook) DeleteFolder(ctx context.Context, folderID string) error {
	return ErrOutlookUnavailable
}

func (o *Outlook) CountUnreadMessages(ctx context.Context, opts email.UnreadOptions) (int64, error) {
	return 0, ErrOutlookUnavailable
}

func (o *Outlook) GetUnreadMessages(ctx context.Context, maxResults int, opts email.UnreadOptions) ([]*email.Message, error) {
	return nil, ErrOutlookUnavailable
}

var _ email.Client = (*Outlook)(nil)
