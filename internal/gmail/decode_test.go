package gmail

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func b64url(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}

func textPart(mimeType, body string) Part {
	return Part{
		MimeType: mimeType,
		Headers:  []Header{{Name: "Content-Type", Value: mimeType + "; charset=\"UTF-8\""}},
		Body:     PartBody{Data: b64url(body), Size: int64(len(body))},
	}
}

func TestDecodeContentSimple(t *testing.T) {
	msg := &Message{
		ID:      "m1",
		Payload: textPart("text/plain", "hello world"),
	}

	c := DecodeContent(msg)
	if c.Text != "hello world" {
		t.Errorf("Text = %q, want %q", c.Text, "hello world")
	}
	if c.HTML != "" {
		t.Errorf("HTML = %q, want empty", c.HTML)
	}
}

func TestDecodeContentAlternative(t *testing.T) {
	msg := &Message{
		ID: "m1",
		Payload: Part{
			MimeType: "multipart/alternative",
			Parts: []Part{
				textPart("text/plain", "plain body"),
				textPart("text/html", "<p>html body</p>"),
			},
		},
	}

	c := DecodeContent(msg)
	if c.Text != "plain body" {
		t.Errorf("Text = %q", c.Text)
	}
	if c.HTML != "<p>html body</p>" {
		t.Errorf("HTML = %q", c.HTML)
	}
}

func TestDecodeContentNestedWithAttachment(t *testing.T) {
	msg := &Message{
		ID: "m1",
		Payload: Part{
			MimeType: "multipart/mixed",
			Parts: []Part{
				{
					MimeType: "multipart/alternative",
					Parts: []Part{
						textPart("text/plain", "body text"),
						textPart("text/html", "<b>body</b>"),
					},
				},
				{
					MimeType: "application/pdf",
					Filename: "report.pdf",
					Body:     PartBody{AttachmentID: "att-1", Size: 1024},
				},
			},
		},
	}

	c := DecodeContent(msg)
	if c.Text != "body text" {
		t.Errorf("Text = %q", c.Text)
	}
	if c.HTML != "<b>body</b>" {
		t.Errorf("HTML = %q", c.HTML)
	}

	want := []AttachmentInfo{{
		Filename:     "report.pdf",
		MimeType:     "application/pdf",
		Size:         1024,
		AttachmentID: "att-1",
	}}
	if diff := cmp.Diff(want, c.Attachments); diff != "" {
		t.Errorf("attachments mismatch (-want +got):\n%s", diff)
	}
}

// Only the first part of each type is kept; a second text/plain part
// (commonly a forwarded copy) must not overwrite the body.
func TestDecodeContentFirstPartWins(t *testing.T) {
	msg := &Message{
		Payload: Part{
			MimeType: "multipart/mixed",
			Parts: []Part{
				textPart("text/plain", "first"),
				textPart("text/plain", "second"),
			},
		},
	}

	if c := DecodeContent(msg); c.Text != "first" {
		t.Errorf("Text = %q, want %q", c.Text, "first")
	}
}

func TestDecodeBase64URLPaddingRepair(t *testing.T) {
	// "hi" encodes to "aGk" unpadded, "aGk=" padded.
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"unpadded", "aGk", "hi"},
		{"padded", "aGk=", "hi"},
		{"stripped padding", "aGVsbG8", "hello"},
		{"surrounding whitespace", " aGk \n", "hi"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeBase64URL(tt.input)
			if err != nil {
				t.Fatalf("decodeBase64URL(%q): %v", tt.input, err)
			}
			if string(got) != tt.want {
				t.Errorf("decodeBase64URL(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestDecodeBase64URLInvalid(t *testing.T) {
	if _, err := decodeBase64URL("!!!not base64!!!"); err == nil {
		t.Error("expected error for invalid input")
	}
}

// Some senders double-encode: the base64 payload contains quoted-printable
// text and the part still declares the quoted-printable CTE.
func TestDecodeQuotedPrintableSecondPass(t *testing.T) {
	qpBody := "Caf=C3=A9 au lait"
	part := Part{
		MimeType: "text/plain",
		Headers: []Header{
			{Name: "Content-Type", Value: "text/plain; charset=\"UTF-8\""},
			{Name: "Content-Transfer-Encoding", Value: "quoted-printable"},
		},
		Body: PartBody{Data: b64url(qpBody)},
	}

	msg := &Message{Payload: part}
	c := DecodeContent(msg)
	if c.Text != "Café au lait" {
		t.Errorf("Text = %q, want %q", c.Text, "Café au lait")
	}
}

func TestDecodeDeclaredCharset(t *testing.T) {
	// "café" in ISO-8859-1: the é is a single 0xE9 byte.
	raw := []byte{'c', 'a', 'f', 0xE9}
	part := Part{
		MimeType: "text/plain",
		Headers:  []Header{{Name: "Content-Type", Value: "text/plain; charset=\"ISO-8859-1\""}},
		Body:     PartBody{Data: base64.RawURLEncoding.EncodeToString(raw)},
	}

	msg := &Message{Payload: part}
	if c := DecodeContent(msg); c.Text != "café" {
		t.Errorf("Text = %q, want %q", c.Text, "café")
	}
}

func TestDecodeUndeclaredCharsetFallback(t *testing.T) {
	// Windows-1252 smart quotes with no declared charset.
	raw := []byte{0x93, 'h', 'i', 0x94}
	part := Part{
		MimeType: "text/plain",
		Body:     PartBody{Data: base64.RawURLEncoding.EncodeToString(raw)},
	}

	msg := &Message{Payload: part}
	c := DecodeContent(msg)
	if !strings.Contains(c.Text, "hi") {
		t.Errorf("Text = %q, expected readable content", c.Text)
	}
	if strings.ContainsRune(c.Text, '�') {
		t.Errorf("Text = %q, expected clean fallback decode without replacement runes", c.Text)
	}
}

func TestDecodeCorruptDataPlaceholder(t *testing.T) {
	part := Part{
		MimeType: "text/plain",
		Body:     PartBody{Data: "!!!not base64!!!"},
	}

	msg := &Message{Payload: part}
	c := DecodeContent(msg)
	if !strings.HasPrefix(c.Text, "[unreadable:") {
		t.Errorf("Text = %q, want unreadable placeholder", c.Text)
	}
}

func TestHeaderValue(t *testing.T) {
	msg := &Message{
		Payload: Part{
			Headers: []Header{
				{Name: "Subject", Value: "Plans"},
				{Name: "FROM", Value: "alice@example.com"},
			},
		},
	}

	if got := msg.HeaderValue("subject"); got != "Plans" {
		t.Errorf("HeaderValue(subject) = %q", got)
	}
	if got := msg.HeaderValue("From"); got != "alice@example.com" {
		t.Errorf("HeaderValue(From) = %q", got)
	}
	if got := msg.HeaderValue("Missing"); got != "" {
		t.Errorf("HeaderValue(Missing) = %q, want empty", got)
	}
}

func TestHeaderValueDecodesEncodedWords(t *testing.T) {
	msg := &Message{
		Payload: Part{
			Headers: []Header{
				{Name: "Subject", Value: "=?UTF-8?Q?Caf=C3=A9?="},
			},
		},
	}

	if got := msg.HeaderValue("Subject"); got != "Café" {
		t.Errorf("HeaderValue(Subject) = %q, want Café", got)
	}
}

func TestAddressList(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   []string
	}{
		{"empty", "", nil},
		{"single", "a@example.com", []string{"a@example.com"}},
		{"multiple", "a@example.com, Bob <b@example.com>", []string{"a@example.com", "Bob <b@example.com>"}},
		{"trailing comma", "a@example.com,", []string{"a@example.com"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, AddressList(tt.header)); diff != "" {
				t.Errorf("AddressList(%q) mismatch (-want +got):\n%s", tt.header, diff)
			}
		})
	}
}

func TestIsUnread(t *testing.T) {
	unread := &Message{LabelIDs: []string{"INBOX", "UNREAD"}}
	if !unread.IsUnread() {
		t.Error("expected unread")
	}
	read := &Message{LabelIDs: []string{"INBOX"}}
	if read.IsUnread() {
		t.Error("expected read")
	}
}
