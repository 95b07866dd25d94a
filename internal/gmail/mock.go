package gmail

import (
	"context"
	"strconv"
	"sync"
)

// MockAPI is a mock implementation of the Gmail API for testing.
type MockAPI struct {
	mu sync.Mutex

	// Profile to return
	Profile *Profile

	// Labels to return
	Labels []*Label

	// Messages indexed by ID
	Messages map[string]*Message

	// Drafts indexed by draft ID
	Drafts map[string]*DraftResponse

	// HistoryRecords to return from ListHistory
	HistoryRecords []HistoryRecord

	// HistoryExpired makes ListHistory return ErrFullResyncNeeded
	HistoryExpired bool

	// ListResultSizeEstimate overrides the estimate returned by ListMessages.
	// Zero means use the actual match count.
	ListResultSizeEstimate int64

	// Error injection
	ProfileError      error
	LabelsError       error
	ListMessagesError error
	GetMessageError   map[string]error // Per-message errors
	SendError         error
	ModifyError       error
	DraftError        error

	// Call tracking for assertions
	ProfileCalls      int
	LabelsCalls       int
	ListMessagesCalls int
	LastQuery         string   // Last query passed to ListMessages
	LastLabelIDs      []string // Last labelIDs passed to ListMessages
	LastMaxResults    int
	GetMessageCalls   []string
	HistoryCalls      []uint64 // startHistoryID per call
	ModifyCalls       []ModifyCall
	BatchModifyCalls  []ModifyCall
	TrashCalls        []string
	DeleteCalls       []string
	SendCalls         []SendCall
	DraftCreateCalls  []SendCall
	DraftUpdateCalls  []string
	DraftSendCalls    []string
	DraftDeleteCalls  []string
	CreatedLabels     []string
	DeletedLabels     []string

	nextID int
}

// ModifyCall records one label modification request.
type ModifyCall struct {
	IDs            []string
	AddLabelIDs    []string
	RemoveLabelIDs []string
}

// SendCall records one send or draft-create request.
type SendCall struct {
	Raw      []byte
	ThreadID string
}

// NewMockAPI creates a new mock API with empty state.
func NewMockAPI() *MockAPI {
	return &MockAPI{
		Messages:        make(map[string]*Message),
		Drafts:          make(map[string]*DraftResponse),
		GetMessageError: make(map[string]error),
	}
}

// GetProfile returns the mock profile.
func (m *MockAPI) GetProfile(ctx context.Context) (*Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ProfileCalls++

	if m.ProfileError != nil {
		return nil, m.ProfileError
	}
	if m.Profile == nil {
		return &Profile{
			EmailAddress:  "test@example.com",
			MessagesTotal: int64(len(m.Messages)),
		}, nil
	}
	return m.Profile, nil
}

// ListLabels returns the mock labels.
func (m *MockAPI) ListLabels(ctx context.Context) ([]*Label, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LabelsCalls++

	if m.LabelsError != nil {
		return nil, m.LabelsError
	}
	if m.Labels == nil {
		return []*Label{
			{ID: "INBOX", Name: "INBOX", Type: "system"},
			{ID: "SENT", Name: "SENT", Type: "system"},
		}, nil
	}
	return m.Labels, nil
}

// CreateLabel records the creation and returns a synthetic label.
func (m *MockAPI) CreateLabel(ctx context.Context, name string) (*Label, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreatedLabels = append(m.CreatedLabels, name)
	label := &Label{ID: "Label_" + name, Name: name, Type: "user"}
	m.Labels = append(m.Labels, label)
	return label, nil
}

// DeleteLabel records the deletion.
func (m *MockAPI) DeleteLabel(ctx context.Context, labelID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeletedLabels = append(m.DeletedLabels, labelID)
	return nil
}

// ListMessages returns references for messages in the mock store.
func (m *MockAPI) ListMessages(ctx context.Context, query string, maxResults int, labelIDs []string, pageToken string) (*MessageListResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ListMessagesCalls++
	m.LastQuery = query
	m.LastLabelIDs = labelIDs
	m.LastMaxResults = maxResults

	if m.ListMessagesError != nil {
		return nil, m.ListMessagesError
	}

	var messages []MessageID
	for id, msg := range m.Messages {
		if len(messages) >= maxResults && maxResults > 0 {
			break
		}
		messages = append(messages, MessageID{ID: id, ThreadID: msg.ThreadID})
	}

	estimate := int64(len(messages))
	if m.ListResultSizeEstimate != 0 {
		estimate = m.ListResultSizeEstimate
	}

	return &MessageListResponse{
		Messages:           messages,
		ResultSizeEstimate: estimate,
	}, nil
}

// GetMessage returns a mock message.
func (m *MockAPI) GetMessage(ctx context.Context, messageID string) (*Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetMessageCalls = append(m.GetMessageCalls, messageID)

	if err, ok := m.GetMessageError[messageID]; ok && err != nil {
		return nil, err
	}

	msg, ok := m.Messages[messageID]
	if !ok {
		return nil, &NotFoundError{Path: "/messages/" + messageID}
	}
	return msg, nil
}

// GetMessagesBatch fetches multiple messages.
// Mirrors the real Client behavior: individual fetch errors leave a nil
// entry in the results slice rather than failing the entire batch.
func (m *MockAPI) GetMessagesBatch(ctx context.Context, messageIDs []string) ([]*Message, error) {
	results := make([]*Message, len(messageIDs))
	for i, id := range messageIDs {
		msg, err := m.GetMessage(ctx, id)
		if err != nil {
			continue
		}
		results[i] = msg
	}
	return results, nil
}

// ListHistory returns the configured history records, or ErrFullResyncNeeded
// when HistoryExpired is set.
func (m *MockAPI) ListHistory(ctx context.Context, startHistoryID uint64, pageToken string) (*HistoryResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.HistoryCalls = append(m.HistoryCalls, startHistoryID)

	if m.HistoryExpired {
		return nil, ErrFullResyncNeeded
	}

	var latest uint64
	for _, r := range m.HistoryRecords {
		if r.ID > latest {
			latest = r.ID
		}
	}
	return &HistoryResponse{History: m.HistoryRecords, HistoryID: latest}, nil
}

// ModifyMessage records a label modification and applies it to the stored
// message's label list.
func (m *MockAPI) ModifyMessage(ctx context.Context, messageID string, addLabelIDs, removeLabelIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ModifyCalls = append(m.ModifyCalls, ModifyCall{
		IDs:            []string{messageID},
		AddLabelIDs:    addLabelIDs,
		RemoveLabelIDs: removeLabelIDs,
	})
	if m.ModifyError != nil {
		return m.ModifyError
	}
	m.applyLabels(messageID, addLabelIDs, removeLabelIDs)
	return nil
}

// BatchModifyMessages records a batch label modification.
func (m *MockAPI) BatchModifyMessages(ctx context.Context, messageIDs []string, addLabelIDs, removeLabelIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.BatchModifyCalls = append(m.BatchModifyCalls, ModifyCall{
		IDs:            messageIDs,
		AddLabelIDs:    addLabelIDs,
		RemoveLabelIDs: removeLabelIDs,
	})
	if m.ModifyError != nil {
		return m.ModifyError
	}
	for _, id := range messageIDs {
		m.applyLabels(id, addLabelIDs, removeLabelIDs)
	}
	return nil
}

// applyLabels mutates a stored message's labels. Must hold the lock.
func (m *MockAPI) applyLabels(messageID string, add, remove []string) {
	msg, ok := m.Messages[messageID]
	if !ok {
		return
	}
	labels := make([]string, 0, len(msg.LabelIDs)+len(add))
	for _, l := range msg.LabelIDs {
		removed := false
		for _, r := range remove {
			if l == r {
				removed = true
				break
			}
		}
		if !removed {
			labels = append(labels, l)
		}
	}
	for _, a := range add {
		present := false
		for _, l := range labels {
			if l == a {
				present = true
				break
			}
		}
		if !present {
			labels = append(labels, a)
		}
	}
	msg.LabelIDs = labels
}

// TrashMessage records a trash call.
func (m *MockAPI) TrashMessage(ctx context.Context, messageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TrashCalls = append(m.TrashCalls, messageID)
	return nil
}

// DeleteMessage records a delete call and removes the message.
func (m *MockAPI) DeleteMessage(ctx context.Context, messageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeleteCalls = append(m.DeleteCalls, messageID)
	delete(m.Messages, messageID)
	return nil
}

// SendMessage records a send call and returns a synthetic response.
func (m *MockAPI) SendMessage(ctx context.Context, raw []byte, threadID string) (*SendResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SendCalls = append(m.SendCalls, SendCall{Raw: raw, ThreadID: threadID})

	if m.SendError != nil {
		return nil, m.SendError
	}

	id := m.genID("sent")
	respThread := threadID
	if respThread == "" {
		respThread = "thread_" + id
	}
	return &SendResponse{ID: id, ThreadID: respThread, LabelIDs: []string{"SENT"}}, nil
}

// CreateDraft records a draft creation.
func (m *MockAPI) CreateDraft(ctx context.Context, raw []byte, threadID string) (*DraftResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DraftCreateCalls = append(m.DraftCreateCalls, SendCall{Raw: raw, ThreadID: threadID})

	if m.DraftError != nil {
		return nil, m.DraftError
	}

	id := m.genID("draft")
	d := &DraftResponse{ID: id, Message: MessageID{ID: "msg_" + id, ThreadID: threadID}}
	m.Drafts[id] = d
	return d, nil
}

// UpdateDraft records a draft update.
func (m *MockAPI) UpdateDraft(ctx context.Context, draftID string, raw []byte) (*DraftResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DraftUpdateCalls = append(m.DraftUpdateCalls, draftID)

	if m.DraftError != nil {
		return nil, m.DraftError
	}

	d, ok := m.Drafts[draftID]
	if !ok {
		return nil, &NotFoundError{Path: "/drafts/" + draftID}
	}
	return d, nil
}

// SendDraft records a draft send and removes the draft.
func (m *MockAPI) SendDraft(ctx context.Context, draftID string) (*SendResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DraftSendCalls = append(m.DraftSendCalls, draftID)

	if m.SendError != nil {
		return nil, m.SendError
	}

	d, ok := m.Drafts[draftID]
	if !ok {
		return nil, &NotFoundError{Path: "/drafts/" + draftID}
	}
	delete(m.Drafts, draftID)
	return &SendResponse{ID: d.Message.ID, ThreadID: d.Message.ThreadID, LabelIDs: []string{"SENT"}}, nil
}

// DeleteDraft records a draft deletion.
func (m *MockAPI) DeleteDraft(ctx context.Context, draftID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DraftDeleteCalls = append(m.DraftDeleteCalls, draftID)

	if _, ok := m.Drafts[draftID]; !ok {
		return &NotFoundError{Path: "/drafts/" + draftID}
	}
	delete(m.Drafts, draftID)
	return nil
}

// ListDrafts returns the stored drafts.
func (m *MockAPI) ListDrafts(ctx context.Context, maxResults int) ([]*DraftResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.DraftError != nil {
		return nil, m.DraftError
	}

	var out []*DraftResponse
	for _, d := range m.Drafts {
		if maxResults > 0 && len(out) >= maxResults {
			break
		}
		out = append(out, d)
	}
	return out, nil
}

// Close is a no-op for the mock.
func (m *MockAPI) Close() error {
	return nil
}

// genID returns a unique synthetic ID. Must hold the lock.
func (m *MockAPI) genID(prefix string) string {
	m.nextID++
	return prefix + "_" + strconv.Itoa(m.nextID)
}

// AddMessage stores a plain-text message built from the given headers and
// body, shaped the way the structured API returns it.
func (m *MockAPI) AddMessage(id string, headers map[string]string, body string, labelIDs []string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var hdrs []Header
	for name, value := range headers {
		hdrs = append(hdrs, Header{Name: name, Value: value})
	}

	m.Messages[id] = &Message{
		ID:           id,
		ThreadID:     "thread_" + id,
		LabelIDs:     labelIDs,
		Snippet:      snippetOf(body),
		InternalDate: 1704067200000, // 2024-01-01 00:00:00 UTC
		Payload: Part{
			MimeType: "text/plain",
			Headers:  hdrs,
			Body:     PartBody{Data: encodeBase64URL([]byte(body)), Size: int64(len(body))},
		},
	}
}

func snippetOf(body string) string {
	if len(body) > 80 {
		return body[:80]
	}
	return body
}

// Reset clears all state and call tracking.
func (m *MockAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Messages = make(map[string]*Message)
	m.Drafts = make(map[string]*DraftResponse)
	m.GetMessageError = make(map[string]error)

	m.ProfileCalls = 0
	m.LabelsCalls = 0
	m.ListMessagesCalls = 0
	m.LastQuery = ""
	m.LastLabelIDs = nil
	m.LastMaxResults = 0
	m.GetMessageCalls = nil
	m.HistoryCalls = nil
	m.HistoryRecords = nil
	m.HistoryExpired = false
	m.ModifyCalls = nil
	m.BatchModifyCalls = nil
	m.TrashCalls = nil
	m.DeleteCalls = nil
	m.SendCalls = nil
	m.DraftCreateCalls = nil
	m.DraftUpdateCalls = nil
	m.DraftSendCalls = nil
	m.DraftDeleteCalls = nil
	m.CreatedLabels = nil
	m.DeletedLabels = nil
	m.nextID = 0
}

// Ensure MockAPI implements API interface.
var _ API = (*MockAPI)(nil)
