package gmail

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ComposeInput describes a message to serialize as RFC 2822. Attachments
// are local file paths read at compose time. InReplyTo and References are
// set when the message continues a thread; they must be present in the
// input before composition so the message is encoded exactly once.
type ComposeInput struct {
	To          []string
	Cc          []string
	Bcc         []string
	Subject     string
	Text        string
	HTML        string
	Attachments []string
	InReplyTo   string
	References  string
}

// Compose serializes the input as a complete RFC 2822 message.
//
// Structure depends on content: a lone text body produces a simple
// message; text plus HTML produces multipart/alternative; any attachment
// wraps the body in multipart/mixed.
func Compose(in ComposeInput) ([]byte, error) {
	var buf bytes.Buffer

	writeAddressHeader(&buf, "To", in.To)
	writeAddressHeader(&buf, "Cc", in.Cc)
	writeAddressHeader(&buf, "Bcc", in.Bcc)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", in.Subject))
	if in.InReplyTo != "" {
		fmt.Fprintf(&buf, "In-Reply-To: %s\r\n", in.InReplyTo)
	}
	if in.References != "" {
		fmt.Fprintf(&buf, "References: %s\r\n", in.References)
	}
	buf.WriteString("MIME-Version: 1.0\r\n")

	switch {
	case len(in.Attachments) > 0:
		if err := writeMixed(&buf, in); err != nil {
			return nil, err
		}
	case in.HTML != "":
		if err := writeAlternative(&buf, in.Text, in.HTML); err != nil {
			return nil, err
		}
	default:
		if err := writeTextPart(&buf, "text/plain", in.Text); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

func writeAddressHeader(buf *bytes.Buffer, name string, addrs []string) {
	if len(addrs) == 0 {
		return
	}
	fmt.Fprintf(buf, "%s: %s\r\n", name, strings.Join(addrs, ", "))
}

// writeTextPart writes the Content-Type/CTE headers and a quoted-printable
// body directly into buf. Used for the simple single-part shape.
func writeTextPart(buf *bytes.Buffer, contentType, body string) error {
	fmt.Fprintf(buf, "Content-Type: %s; charset=UTF-8\r\n", contentType)
	buf.WriteString("Content-Transfer-Encoding: quoted-printable\r\n\r\n")
	qp := quotedprintable.NewWriter(buf)
	if _, err := qp.Write([]byte(body)); err != nil {
		return fmt.Errorf("encode body: %w", err)
	}
	return qp.Close()
}

// writeAlternative writes a multipart/alternative body with text and HTML
// renderings, plain text first per convention.
func writeAlternative(buf *bytes.Buffer, text, html string) error {
	w := multipart.NewWriter(buf)
	fmt.Fprintf(buf, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", w.Boundary())

	if err := writeMultipartText(w, "text/plain", text); err != nil {
		return err
	}
	if err := writeMultipartText(w, "text/html", html); err != nil {
		return err
	}
	return w.Close()
}

// writeMixed writes a multipart/mixed body: the text/HTML content first,
// then one part per attachment.
func writeMixed(buf *bytes.Buffer, in ComposeInput) error {
	w := multipart.NewWriter(buf)
	fmt.Fprintf(buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", w.Boundary())

	if in.HTML != "" {
		// Nest the alternative body inside the mixed container.
		var alt bytes.Buffer
		aw := multipart.NewWriter(&alt)
		if err := writeMultipartText(aw, "text/plain", in.Text); err != nil {
			return err
		}
		if err := writeMultipartText(aw, "text/html", in.HTML); err != nil {
			return err
		}
		if err := aw.Close(); err != nil {
			return err
		}

		hdr := textproto.MIMEHeader{}
		hdr.Set("Content-Type", fmt.Sprintf("multipart/alternative; boundary=%q", aw.Boundary()))
		part, err := w.CreatePart(hdr)
		if err != nil {
			return err
		}
		if _, err := part.Write(alt.Bytes()); err != nil {
			return err
		}
	} else {
		if err := writeMultipartText(w, "text/plain", in.Text); err != nil {
			return err
		}
	}

	for _, path := range in.Attachments {
		if err := writeAttachment(w, path); err != nil {
			return err
		}
	}
	return w.Close()
}

func writeMultipartText(w *multipart.Writer, contentType, body string) error {
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Type", contentType+"; charset=UTF-8")
	hdr.Set("Content-Transfer-Encoding", "quoted-printable")
	part, err := w.CreatePart(hdr)
	if err != nil {
		return err
	}
	qp := quotedprintable.NewWriter(part)
	if _, err := qp.Write([]byte(body)); err != nil {
		return fmt.Errorf("encode body: %w", err)
	}
	return qp.Close()
}

// writeAttachment reads a local file and writes it as a base64 part.
// The MIME type comes from the filename extension, defaulting to
// application/octet-stream.
func writeAttachment(w *multipart.Writer, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read attachment %s: %w", path, err)
	}

	name := filepath.Base(path)
	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Type", fmt.Sprintf("%s; name=%q", contentType, name))
	hdr.Set("Content-Transfer-Encoding", "base64")
	hdr.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	part, err := w.CreatePart(hdr)
	if err != nil {
		return err
	}
	return writeBase64(part, data)
}

// writeBase64 writes base64 content wrapped at 76 columns per RFC 2045.
func writeBase64(w io.Writer, data []byte) error {
	encoded := base64.StdEncoding.EncodeToString(data)
	for len(encoded) > 0 {
		n := 76
		if n > len(encoded) {
			n = len(encoded)
		}
		if _, err := w.Write([]byte(encoded[:n])); err != nil {
			return err
		}
		if _, err := w.Write([]byte("\r\n")); err != nil {
			return err
		}
		encoded = encoded[n:]
	}
	return nil
}

// ReplySubject prefixes the original subject with "Re: " unless it already
// carries the prefix.
func ReplySubject(original string) string {
	if strings.HasPrefix(original, "Re:") {
		return original
	}
	return "Re: " + original
}

// ReplyHeaders computes the threading headers for a reply to the given
// message: In-Reply-To names the original Message-ID and References
// extends the original chain with it.
func ReplyHeaders(orig *Message) (inReplyTo, references string) {
	messageID := orig.HeaderValue("Message-ID")
	if messageID == "" {
		return "", ""
	}
	refs := orig.HeaderValue("References")
	if refs == "" {
		return messageID, messageID
	}
	return messageID, refs + " " + messageID
}

// ReplyRecipients resolves who receives a reply. The Reply-To header wins
// over From for the primary recipient. With replyAll, the original To and
// Cc lists combine into the reply's Cc, minus the replying account's own
// address and the primary recipient.
func ReplyRecipients(orig *Message, selfAddress string, replyAll bool) (to, cc []string) {
	primary := orig.HeaderValue("Reply-To")
	if primary == "" {
		primary = orig.HeaderValue("From")
	}
	if primary != "" {
		to = append(to, primary)
	}

	if !replyAll {
		return to, nil
	}

	for _, header := range []string{"To", "Cc"} {
		for _, addr := range AddressList(orig.HeaderValue(header)) {
			if containsAddress(addr, selfAddress) || addressInList(addr, to) || addressInList(addr, cc) {
				continue
			}
			cc = append(cc, addr)
		}
	}
	return to, cc
}

// containsAddress reports whether the display-form address contains the
// bare email address, case-insensitively.
func containsAddress(displayForm, bare string) bool {
	if bare == "" {
		return false
	}
	return strings.Contains(strings.ToLower(displayForm), strings.ToLower(bare))
}

func addressInList(addr string, list []string) bool {
	for _, a := range list {
		if strings.EqualFold(a, addr) {
			return true
		}
	}
	return false
}

// Gmail inbox categories addressable in search queries.
var categories = map[string]bool{
	"primary":    true,
	"promotions": true,
	"social":     true,
	"updates":    true,
	"forums":     true,
}

// UnreadQuery builds a Gmail search query for unread messages, optionally
// restricted to a time window and an inbox category or folder.
func UnreadQuery(folder string, hoursBack int, now time.Time) string {
	parts := []string{"is:unread"}
	if hoursBack > 0 {
		cutoff := now.Add(-time.Duration(hoursBack) * time.Hour).Unix()
		parts = append(parts, fmt.Sprintf("after:%d", cutoff))
	}
	if folder != "" {
		f := strings.ToLower(folder)
		if categories[f] {
			parts = append(parts, "category:"+f)
		} else {
			parts = append(parts, "in:"+f)
		}
	}
	return strings.Join(parts, " ")
}
