package gmail

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/jhillyerd/enmime"
)

// parseComposed round-trips a composed message through a real MIME parser.
func parseComposed(t *testing.T, raw []byte) *enmime.Envelope {
	t.Helper()
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("parse composed message: %v", err)
	}
	return env
}

func TestComposePlainText(t *testing.T) {
	raw, err := Compose(ComposeInput{
		To:      []string{"bob@example.com"},
		Subject: "Lunch",
		Text:    "Tacos at noon?",
	})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	env := parseComposed(t, raw)
	if got := env.GetHeader("To"); got != "bob@example.com" {
		t.Errorf("To = %q", got)
	}
	if got := env.GetHeader("Subject"); got != "Lunch" {
		t.Errorf("Subject = %q", got)
	}
	if got := strings.TrimSpace(env.Text); got != "Tacos at noon?" {
		t.Errorf("Text = %q", got)
	}
	if env.HTML != "" {
		t.Errorf("HTML = %q, want empty", env.HTML)
	}
}

func TestComposeUnicodeSubjectAndBody(t *testing.T) {
	raw, err := Compose(ComposeInput{
		To:      []string{"bob@example.com"},
		Subject: "Café ☕",
		Text:    "Déjeuner à midi — ça va?",
	})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	env := parseComposed(t, raw)
	if got := env.GetHeader("Subject"); got != "Café ☕" {
		t.Errorf("Subject = %q", got)
	}
	if got := strings.TrimSpace(env.Text); got != "Déjeuner à midi — ça va?" {
		t.Errorf("Text = %q", got)
	}
}

func TestComposeAlternative(t *testing.T) {
	raw, err := Compose(ComposeInput{
		To:      []string{"bob@example.com"},
		Cc:      []string{"carol@example.com"},
		Subject: "Update",
		Text:    "plain version",
		HTML:    "<p>html version</p>",
	})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	env := parseComposed(t, raw)
	if got := strings.TrimSpace(env.Text); got != "plain version" {
		t.Errorf("Text = %q", got)
	}
	if got := strings.TrimSpace(env.HTML); got != "<p>html version</p>" {
		t.Errorf("HTML = %q", got)
	}
	if got := env.GetHeader("Cc"); got != "carol@example.com" {
		t.Errorf("Cc = %q", got)
	}
}

func TestComposeWithAttachment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	content := []byte("attachment payload")
	if err := os.WriteFile(path, content, 0600); err != nil {
		t.Fatal(err)
	}

	raw, err := Compose(ComposeInput{
		To:          []string{"bob@example.com"},
		Subject:     "With file",
		Text:        "see attached",
		HTML:        "<p>see attached</p>",
		Attachments: []string{path},
	})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	env := parseComposed(t, raw)
	if got := strings.TrimSpace(env.Text); got != "see attached" {
		t.Errorf("Text = %q", got)
	}
	if got := strings.TrimSpace(env.HTML); got != "<p>see attached</p>" {
		t.Errorf("HTML = %q", got)
	}
	if len(env.Attachments) != 1 {
		t.Fatalf("got %d attachments, want 1", len(env.Attachments))
	}
	att := env.Attachments[0]
	if att.FileName != "notes.txt" {
		t.Errorf("FileName = %q", att.FileName)
	}
	if !bytes.Equal(att.Content, content) {
		t.Errorf("attachment content = %q, want %q", att.Content, content)
	}
}

func TestComposeMissingAttachmentFails(t *testing.T) {
	_, err := Compose(ComposeInput{
		To:          []string{"bob@example.com"},
		Subject:     "oops",
		Text:        "body",
		Attachments: []string{"/nonexistent/file.bin"},
	})
	if err == nil {
		t.Fatal("expected error for missing attachment")
	}
}

func TestComposeThreadingHeaders(t *testing.T) {
	raw, err := Compose(ComposeInput{
		To:         []string{"bob@example.com"},
		Subject:    "Re: Plans",
		Text:       "sounds good",
		InReplyTo:  "<orig-123@mail.example.com>",
		References: "<root@mail.example.com> <orig-123@mail.example.com>",
	})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	env := parseComposed(t, raw)
	if got := env.GetHeader("In-Reply-To"); got != "<orig-123@mail.example.com>" {
		t.Errorf("In-Reply-To = %q", got)
	}
	if got := env.GetHeader("References"); got != "<root@mail.example.com> <orig-123@mail.example.com>" {
		t.Errorf("References = %q", got)
	}
}

func TestReplySubject(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Plans", "Re: Plans"},
		{"Re: Plans", "Re: Plans"},
		{"Re: Re: Plans", "Re: Re: Plans"},
		{"", "Re: "},
	}
	for _, tt := range tests {
		if got := ReplySubject(tt.in); got != tt.want {
			t.Errorf("ReplySubject(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestReplyHeaders(t *testing.T) {
	t.Run("first reply", func(t *testing.T) {
		orig := &Message{Payload: Part{Headers: []Header{
			{Name: "Message-ID", Value: "<a@x>"},
		}}}
		inReplyTo, refs := ReplyHeaders(orig)
		if inReplyTo != "<a@x>" || refs != "<a@x>" {
			t.Errorf("got (%q, %q)", inReplyTo, refs)
		}
	})

	t.Run("extends chain", func(t *testing.T) {
		orig := &Message{Payload: Part{Headers: []Header{
			{Name: "Message-ID", Value: "<b@x>"},
			{Name: "References", Value: "<a@x>"},
		}}}
		inReplyTo, refs := ReplyHeaders(orig)
		if inReplyTo != "<b@x>" {
			t.Errorf("inReplyTo = %q", inReplyTo)
		}
		if refs != "<a@x> <b@x>" {
			t.Errorf("references = %q", refs)
		}
	})

	t.Run("no message id", func(t *testing.T) {
		orig := &Message{}
		inReplyTo, refs := ReplyHeaders(orig)
		if inReplyTo != "" || refs != "" {
			t.Errorf("got (%q, %q), want empty", inReplyTo, refs)
		}
	})
}

func TestReplyRecipients(t *testing.T) {
	orig := &Message{Payload: Part{Headers: []Header{
		{Name: "From", Value: "Alice <alice@example.com>"},
		{Name: "To", Value: "me@example.com, Bob <bob@example.com>"},
		{Name: "Cc", Value: "carol@example.com"},
	}}}

	t.Run("reply to sender only", func(t *testing.T) {
		to, cc := ReplyRecipients(orig, "me@example.com", false)
		if len(to) != 1 || to[0] != "Alice <alice@example.com>" {
			t.Errorf("to = %v", to)
		}
		if len(cc) != 0 {
			t.Errorf("cc = %v, want empty", cc)
		}
	})

	t.Run("reply all combines to and cc into cc", func(t *testing.T) {
		to, cc := ReplyRecipients(orig, "me@example.com", true)
		if len(to) != 1 || to[0] != "Alice <alice@example.com>" {
			t.Errorf("to = %v, want the sender only", to)
		}
		for _, addr := range cc {
			if strings.Contains(addr, "me@example.com") {
				t.Errorf("reply-all includes self in cc: %v", cc)
			}
		}
		want := []string{"Bob <bob@example.com>", "carol@example.com"}
		if len(cc) != len(want) {
			t.Fatalf("cc = %v, want %v", cc, want)
		}
		for i, addr := range want {
			if cc[i] != addr {
				t.Errorf("cc[%d] = %q, want %q", i, cc[i], addr)
			}
		}
	})

	t.Run("reply-to wins over from", func(t *testing.T) {
		msg := &Message{Payload: Part{Headers: []Header{
			{Name: "From", Value: "alice@example.com"},
			{Name: "Reply-To", Value: "list@example.com"},
		}}}
		to, _ := ReplyRecipients(msg, "me@example.com", false)
		if len(to) != 1 || to[0] != "list@example.com" {
			t.Errorf("to = %v", to)
		}
	})
}

func TestUnreadQuery(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	cutoff := strconv.FormatInt(now.Add(-24*time.Hour).Unix(), 10)

	tests := []struct {
		name      string
		folder    string
		hoursBack int
		want      string
	}{
		{"bare", "", 0, "is:unread"},
		{"time window", "", 24, "is:unread after:" + cutoff},
		{"category", "primary", 0, "is:unread category:primary"},
		{"category upper", "Promotions", 0, "is:unread category:promotions"},
		{"folder", "work", 0, "is:unread in:work"},
		{"combined", "updates", 24, "is:unread after:" + cutoff + " category:updates"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UnreadQuery(tt.folder, tt.hoursBack, now); got != tt.want {
				t.Errorf("UnreadQuery(%q, %d) = %q, want %q", tt.folder, tt.hoursBack, got, tt.want)
			}
		})
	}
}

