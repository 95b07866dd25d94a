// Package adapter bridges provider-specific clients to the canonical
// email.Client contract. Each provider gets its own adapter; the factory
// in this package is the only place that knows how to build one from an
// account record.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ZihaoFU245/It-s-Friday/internal/email"
	"github.com/ZihaoFU245/It-s-Friday/internal/gmail"
)

// gmailFeatures is the static capability table for the Gmail provider.
// SupportsFeature is a plain data lookup, not behavior.
var gmailFeatures = map[string]bool{
	email.FeatureHTMLEmail:      true,
	email.FeatureAttachments:    true,
	email.FeatureThreading:      true,
	email.FeatureLabels:         true,
	email.FeatureFolders:        false, // Gmail models folders as labels
	email.FeatureSearch:         true,
	email.FeatureDrafts:         true,
	email.FeatureAdvancedSearch: true,
	email.FeatureBatchOps:       true,
	email.FeatureHistorySync:    true,
}

// Gmail adapts the Gmail API to the canonical email.Client contract.
type Gmail struct {
	api      gmail.API
	logger   *slog.Logger
	features map[string]bool

	// Own address, resolved lazily from the profile; used to filter the
	// replying account out of reply-all recipient lists.
	selfOnce sync.Once
	selfAddr string
}

// NewGmail wraps a Gmail API implementation as an email.Client.
func NewGmail(api gmail.API, logger *slog.Logger) *Gmail {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gmail{api: api, logger: logger, features: gmailFeatures}
}

// ProviderName identifies this adapter.
func (g *Gmail) ProviderName() string { return "gmail" }

// SupportsFeature reports provider capabilities from the static table.
func (g *Gmail) SupportsFeature(feature string) bool {
	return g.features[feature]
}

// gateOutgoing drops optional content the provider cannot carry. Dropping
// with a warning keeps the send usable; callers that care must check
// SupportsFeature up front.
func (g *Gmail) gateOutgoing(msg email.Outgoing) email.Outgoing {
	if msg.HTMLBody != "" && !g.features[email.FeatureHTMLEmail] {
		g.logger.Warn("provider does not support HTML bodies, sending text only")
		msg.HTMLBody = ""
	}
	if len(msg.Attachments) > 0 && !g.features[email.FeatureAttachments] {
		g.logger.Warn("provider does not support attachments, dropping them", "count", len(msg.Attachments))
		msg.Attachments = nil
	}
	return msg
}

// GetProfile returns the canonical account profile.
func (g *Gmail) GetProfile(ctx context.Context) (*email.Profile, error) {
	p, err := g.api.GetProfile(ctx)
	if err != nil {
		return nil, fmt.Errorf("gmail profile: %w", err)
	}
	return &email.Profile{
		EmailAddress:  p.EmailAddress,
		DisplayName:   p.EmailAddress,
		TotalMessages: p.MessagesTotal,
		Provider:      "gmail",
		AccountType:   "gmail",
	}, nil
}

// self returns the account's own address, fetching the profile once.
// Returns "" when the profile is unavailable; reply-all then simply skips
// self-filtering.
func (g *Gmail) self(ctx context.Context) string {
	g.selfOnce.Do(func() {
		p, err := g.api.GetProfile(ctx)
		if err != nil {
			g.logger.Warn("could not resolve own address", "error", err)
			return
		}
		g.selfAddr = p.EmailAddress
	})
	return g.selfAddr
}

// sendFailure builds the canonical failure envelope for send operations.
func (g *Gmail) sendFailure(err error) *email.SendResult {
	return &email.SendResult{Success: false, Error: err.Error(), Provider: "gmail"}
}

func (g *Gmail) draftFailure(err error) *email.DraftResult {
	return &email.DraftResult{Success: false, Error: err.Error(), Provider: "gmail"}
}

// SendEmail composes and sends a message.
func (g *Gmail) SendEmail(ctx context.Context, msg email.Outgoing) *email.SendResult {
	raw, err := gmail.Compose(composeInput(g.gateOutgoing(msg)))
	if err != nil {
		return g.sendFailure(fmt.Errorf("compose: %w", err))
	}

	resp, err := g.api.SendMessage(ctx, raw, "")
	if err != nil {
		return g.sendFailure(err)
	}
	return &email.SendResult{ID: resp.ID, ThreadID: resp.ThreadID, Success: true, Provider: "gmail"}
}

// ReplyToMessage sends a reply in the original message's thread. The
// threading headers are computed from the original and baked into the
// compose input, so the message is serialized exactly once.
func (g *Gmail) ReplyToMessage(ctx context.Context, messageID, body, htmlBody string, replyAll bool, attachments []string) *email.SendResult {
	orig, err := g.api.GetMessage(ctx, messageID)
	if err != nil {
		return g.sendFailure(fmt.Errorf("fetch original: %w", err))
	}

	to, cc := gmail.ReplyRecipients(orig, g.self(ctx), replyAll)
	if len(to) == 0 {
		return g.sendFailure(errors.New("original message has no sender to reply to"))
	}
	inReplyTo, references := gmail.ReplyHeaders(orig)

	content := g.gateOutgoing(email.Outgoing{Body: body, HTMLBody: htmlBody, Attachments: attachments})
	raw, err := gmail.Compose(gmail.ComposeInput{
		To:          to,
		Cc:          cc,
		Subject:     gmail.ReplySubject(orig.HeaderValue("Subject")),
		Text:        content.Body,
		HTML:        content.HTMLBody,
		Attachments: content.Attachments,
		InReplyTo:   inReplyTo,
		References:  references,
	})
	if err != nil {
		return g.sendFailure(fmt.Errorf("compose: %w", err))
	}

	resp, err := g.api.SendMessage(ctx, raw, orig.ThreadID)
	if err != nil {
		return g.sendFailure(err)
	}
	return &email.SendResult{ID: resp.ID, ThreadID: resp.ThreadID, Success: true, Provider: "gmail"}
}

// ListMessages returns lightweight references matching the query and folder.
func (g *Gmail) ListMessages(ctx context.Context, maxResults int, query, folder string) ([]email.MessageSummary, error) {
	var labelIDs []string
	if folder != "" {
		labelIDs = []string{folderToLabelID(folder)}
	}

	resp, err := g.api.ListMessages(ctx, query, maxResults, labelIDs, "")
	if err != nil {
		return nil, fmt.Errorf("gmail list: %w", err)
	}

	out := make([]email.MessageSummary, len(resp.Messages))
	for i, m := range resp.Messages {
		out[i] = email.MessageSummary{ID: m.ID, ThreadID: m.ThreadID}
	}
	return out, nil
}

// GetMessage fetches and decodes a single message into canonical form.
func (g *Gmail) GetMessage(ctx context.Context, messageID string) (*email.Message, error) {
	msg, err := g.api.GetMessage(ctx, messageID)
	if err != nil {
		return nil, fmt.Errorf("gmail get message: %w", err)
	}
	return toCanonical(msg), nil
}

// SearchMessages runs a query and returns fully decoded messages.
// Individual fetch failures degrade to omissions rather than failing the
// whole search.
func (g *Gmail) SearchMessages(ctx context.Context, query string, maxResults int) ([]*email.Message, error) {
	resp, err := g.api.ListMessages(ctx, query, maxResults, nil, "")
	if err != nil {
		return nil, fmt.Errorf("gmail search: %w", err)
	}
	return g.fetchAll(ctx, resp.Messages)
}

// fetchAll resolves message references to decoded canonical messages,
// dropping entries that could not be fetched.
func (g *Gmail) fetchAll(ctx context.Context, refs []gmail.MessageID) ([]*email.Message, error) {
	if len(refs) == 0 {
		return []*email.Message{}, nil
	}

	ids := make([]string, len(refs))
	for i, r := range refs {
		ids[i] = r.ID
	}

	fetched, err := g.api.GetMessagesBatch(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("gmail batch get: %w", err)
	}

	out := make([]*email.Message, 0, len(fetched))
	for _, m := range fetched {
		if m == nil {
			continue
		}
		out = append(out, toCanonical(m))
	}
	return out, nil
}

// MarkAsRead clears the unread flag on the given messages.
func (g *Gmail) MarkAsRead(ctx context.Context, messageIDs []string) error {
	return g.api.BatchModifyMessages(ctx, messageIDs, nil, []string{"UNREAD"})
}

// MarkAsUnread sets the unread flag on the given messages.
func (g *Gmail) MarkAsUnread(ctx context.Context, messageIDs []string) error {
	return g.api.BatchModifyMessages(ctx, messageIDs, []string{"UNREAD"}, nil)
}

// DeleteMessage trashes a message, or deletes it outright when permanent.
func (g *Gmail) DeleteMessage(ctx context.Context, messageID string, permanent bool) error {
	if permanent {
		return g.api.DeleteMessage(ctx, messageID)
	}
	return g.api.TrashMessage(ctx, messageID)
}

// MoveToFolder applies the label named by folder and removes the message
// from the inbox. The label must already exist.
func (g *Gmail) MoveToFolder(ctx context.Context, messageID, folder string) error {
	labelID, err := g.resolveLabel(ctx, folder)
	if err != nil {
		return err
	}
	return g.api.ModifyMessage(ctx, messageID, []string{labelID}, []string{"INBOX"})
}

// resolveLabel maps a folder name to a label ID. System names resolve
// directly; user labels are matched by name, case-insensitively.
func (g *Gmail) resolveLabel(ctx context.Context, folder string) (string, error) {
	if id := folderToLabelID(folder); id != folder || isSystemLabel(folder) {
		return id, nil
	}

	labels, err := g.api.ListLabels(ctx)
	if err != nil {
		return "", fmt.Errorf("gmail labels: %w", err)
	}
	for _, l := range labels {
		if strings.EqualFold(l.Name, folder) {
			return l.ID, nil
		}
	}
	return "", fmt.Errorf("no label named %q", folder)
}

// CreateDraft composes a draft without sending.
func (g *Gmail) CreateDraft(ctx context.Context, msg email.Outgoing) *email.DraftResult {
	raw, err := gmail.Compose(composeInput(g.gateOutgoing(msg)))
	if err != nil {
		return g.draftFailure(fmt.Errorf("compose: %w", err))
	}

	resp, err := g.api.CreateDraft(ctx, raw, "")
	if err != nil {
		return g.draftFailure(err)
	}
	return &email.DraftResult{ID: resp.ID, MessageID: resp.Message.ID, Success: true, Provider: "gmail"}
}

// UpdateDraft replaces a draft's content.
func (g *Gmail) UpdateDraft(ctx context.Context, draftID string, msg email.Outgoing) *email.DraftResult {
	raw, err := gmail.Compose(composeInput(g.gateOutgoing(msg)))
	if err != nil {
		return g.draftFailure(fmt.Errorf("compose: %w", err))
	}

	resp, err := g.api.UpdateDraft(ctx, draftID, raw)
	if err != nil {
		return g.draftFailure(err)
	}
	return &email.DraftResult{ID: resp.ID, MessageID: resp.Message.ID, Success: true, Provider: "gmail"}
}

// SendDraft sends an existing draft.
func (g *Gmail) SendDraft(ctx context.Context, draftID string) *email.SendResult {
	resp, err := g.api.SendDraft(ctx, draftID)
	if err != nil {
		return g.sendFailure(err)
	}
	return &email.SendResult{ID: resp.ID, ThreadID: resp.ThreadID, Success: true, Provider: "gmail"}
}

// DeleteDraft discards a draft.
func (g *Gmail) DeleteDraft(ctx context.Context, draftID string) error {
	return g.api.DeleteDraft(ctx, draftID)
}

// ListDrafts returns draft references.
func (g *Gmail) ListDrafts(ctx context.Context, maxResults int) ([]email.Draft, error) {
	drafts, err := g.api.ListDrafts(ctx, maxResults)
	if err != nil {
		return nil, fmt.Errorf("gmail drafts: %w", err)
	}
	out := make([]email.Draft, len(drafts))
	for i, d := range drafts {
		out[i] = email.Draft{ID: d.ID, MessageID: d.Message.ID}
	}
	return out, nil
}

// ListFolders presents Gmail labels as canonical folders.
func (g *Gmail) ListFolders(ctx context.Context) ([]email.Folder, error) {
	labels, err := g.api.ListLabels(ctx)
	if err != nil {
		return nil, fmt.Errorf("gmail labels: %w", err)
	}
	out := make([]email.Folder, len(labels))
	for i, l := range labels {
		out[i] = email.Folder{
			ID:           l.ID,
			Name:         l.Name,
			Type:         l.Type,
			MessageCount: l.MessagesTotal,
			UnreadCount:  l.MessagesUnread,
		}
	}
	return out, nil
}

// CreateFolder creates a label. A parent nests the label with Gmail's
// slash convention.
func (g *Gmail) CreateFolder(ctx context.Context, name, parent string) *email.FolderResult {
	full := name
	if parent != "" {
		full = parent + "/" + name
	}
	label, err := g.api.CreateLabel(ctx, full)
	if err != nil {
		return &email.FolderResult{Success: false, Error: err.Error(), Provider: "gmail"}
	}
	return &email.FolderResult{ID: label.ID, Name: label.Name, Success: true, Provider: "gmail"}
}

// DeleteFolder removes a label.
func (g *Gmail) DeleteFolder(ctx context.Context, folderID string) error {
	return g.api.DeleteLabel(ctx, folderID)
}

// CountUnreadMessages returns the approximate unread count for the given
// window. The count comes from the server's result size estimate; a
// minimal page keeps the call cheap.
func (g *Gmail) CountUnreadMessages(ctx context.Context, opts email.UnreadOptions) (int64, error) {
	query := gmail.UnreadQuery(opts.Folder, opts.HoursBack, time.Now())
	resp, err := g.api.ListMessages(ctx, query, 1, nil, "")
	if err != nil {
		return 0, fmt.Errorf("gmail unread count: %w", err)
	}
	return resp.ResultSizeEstimate, nil
}

// GetUnreadMessages returns decoded unread messages for the given window.
func (g *Gmail) GetUnreadMessages(ctx context.Context, maxResults int, opts email.UnreadOptions) ([]*email.Message, error) {
	query := gmail.UnreadQuery(opts.Folder, opts.HoursBack, time.Now())
	resp, err := g.api.ListMessages(ctx, query, maxResults, nil, "")
	if err != nil {
		return nil, fmt.Errorf("gmail unread: %w", err)
	}
	return g.fetchAll(ctx, resp.Messages)
}

// composeInput maps the canonical outgoing shape to the Gmail composer.
func composeInput(msg email.Outgoing) gmail.ComposeInput {
	return gmail.ComposeInput{
		To:          msg.To,
		Cc:          msg.Cc,
		Bcc:         msg.Bcc,
		Subject:     msg.Subject,
		Text:        msg.Body,
		HTML:        msg.HTMLBody,
		Attachments: msg.Attachments,
	}
}

// systemLabels are Gmail's built-in label IDs addressable by folder name.
var systemLabels = map[string]string{
	"inbox":     "INBOX",
	"sent":      "SENT",
	"trash":     "TRASH",
	"spam":      "SPAM",
	"draft":     "DRAFT",
	"drafts":    "DRAFT",
	"starred":   "STARRED",
	"important": "IMPORTANT",
	"unread":    "UNREAD",
}

func isSystemLabel(folder string) bool {
	_, ok := systemLabels[strings.ToLower(folder)]
	return ok
}

// folderToLabelID maps a folder name to a Gmail label ID. Unknown names
// pass through unchanged, assuming the caller holds a real label ID.
func folderToLabelID(folder string) string {
	if id, ok := systemLabels[strings.ToLower(folder)]; ok {
		return id
	}
	return folder
}

// toCanonical converts a structured Gmail message to the canonical shape.
func toCanonical(msg *gmail.Message) *email.Message {
	content := gmail.DecodeContent(msg)

	attachments := make([]email.Attachment, len(content.Attachments))
	for i, a := range content.Attachments {
		attachments[i] = email.Attachment{
			Filename: a.Filename,
			MimeType: a.MimeType,
			Size:     a.Size,
			Ref:      a.AttachmentID,
		}
	}

	return &email.Message{
		ID:           msg.ID,
		ThreadID:     msg.ThreadID,
		Subject:      msg.HeaderValue("Subject"),
		From:         msg.HeaderValue("From"),
		To:           gmail.AddressList(msg.HeaderValue("To")),
		Cc:           gmail.AddressList(msg.HeaderValue("Cc")),
		Bcc:          gmail.AddressList(msg.HeaderValue("Bcc")),
		Date:         msg.HeaderValue("Date"),
		InternalDate: msg.InternalDate,
		Labels:       msg.LabelIDs,
		Body:         email.Body{Text: content.Text, HTML: content.HTML},
		Attachments:  attachments,
		IsRead:       !msg.IsUnread(),
		Snippet:      msg.Snippet,
	}
}

// Ensure Gmail implements the capability contract.
var _ email.Client = (*Gmail)(nil)
