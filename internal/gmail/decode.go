package gmail

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/quotedprintable"
	"strings"
	"unicode/utf8"

	"github.com/gogs/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// AttachmentInfo describes one attachment found in a message's part tree.
type AttachmentInfo struct {
	Filename     string
	MimeType     string
	Size         int64
	AttachmentID string
}

// Content is the decoded body content of a structured message.
type Content struct {
	Text        string
	HTML        string
	Attachments []AttachmentInfo
}

// DecodeContent walks the message's MIME part tree and extracts the
// text/plain and text/html bodies plus attachment metadata. Only the first
// part of each body type is kept; alternatives nested under multipart
// containers are found by depth-first traversal. A part that cannot be
// decoded yields a placeholder rather than failing the whole message.
func DecodeContent(msg *Message) *Content {
	c := &Content{}
	walkParts(&msg.Payload, c)
	return c
}

func walkParts(p *Part, c *Content) {
	// A part with a filename is an attachment regardless of MIME type.
	if p.Filename != "" {
		c.Attachments = append(c.Attachments, AttachmentInfo{
			Filename:     p.Filename,
			MimeType:     p.MimeType,
			Size:         p.Body.Size,
			AttachmentID: p.Body.AttachmentID,
		})
		return
	}

	switch {
	case p.MimeType == "text/plain" && c.Text == "":
		c.Text = decodeTextPart(p)
	case p.MimeType == "text/html" && c.HTML == "":
		c.HTML = decodeTextPart(p)
	}

	for i := range p.Parts {
		walkParts(&p.Parts[i], c)
	}
}

// decodeTextPart decodes a leaf text part: base64url transfer encoding,
// then an optional quoted-printable layer, then charset conversion.
func decodeTextPart(p *Part) string {
	if p.Body.Data == "" {
		return ""
	}

	raw, err := decodeBase64URL(p.Body.Data)
	if err != nil {
		return fmt.Sprintf("[unreadable: %d bytes]", len(p.Body.Data))
	}

	// Some senders double-encode: quoted-printable inside the base64
	// payload, with the CTE header still on the part.
	if strings.EqualFold(headerValue(p.Headers, "Content-Transfer-Encoding"), "quoted-printable") {
		decoded, err := io.ReadAll(quotedprintable.NewReader(bytes.NewReader(raw)))
		if err == nil {
			raw = decoded
		}
	}

	return toUTF8(raw, partCharset(p))
}

// decodeBase64URL decodes base64url data, repairing missing padding.
// Gmail returns unpadded base64url, but data that passed through other
// systems sometimes arrives with partial padding stripped.
func decodeBase64URL(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.ContainsRune(s, '=') {
		if b, err := base64.URLEncoding.DecodeString(s); err == nil {
			return b, nil
		}
		// Padding present but wrong; strip and repad below.
		s = strings.TrimRight(s, "=")
	}
	if m := len(s) % 4; m != 0 {
		s += strings.Repeat("=", 4-m)
		return base64.URLEncoding.DecodeString(s)
	}
	return base64.RawURLEncoding.DecodeString(s)
}

// partCharset returns the charset declared in the part's Content-Type,
// or "" when none is declared.
func partCharset(p *Part) string {
	ct := headerValue(p.Headers, "Content-Type")
	if ct == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(ct)
	if err != nil {
		return ""
	}
	return params["charset"]
}

// toUTF8 converts raw bytes to a UTF-8 string. The declared charset is
// tried first, then validation as UTF-8, then detection, then common
// single-byte encodings. The final fallback replaces invalid bytes so a
// message never fails outright on a bad body.
func toUTF8(data []byte, declared string) string {
	if declared != "" && !strings.EqualFold(declared, "utf-8") && !strings.EqualFold(declared, "us-ascii") {
		if enc := encodingByName(declared); enc != nil {
			if decoded, err := enc.NewDecoder().Bytes(data); err == nil && utf8.Valid(decoded) {
				return string(decoded)
			}
		}
	}

	if utf8.Valid(data) {
		return string(data)
	}

	// Detection works better on longer samples; accept lower confidence
	// for short strings.
	minConfidence := 30
	if len(data) > 50 {
		minConfidence = 50
	}
	detector := chardet.NewTextDetector()
	if result, err := detector.DetectBest(data); err == nil && result.Confidence >= minConfidence {
		if enc := encodingByName(result.Charset); enc != nil {
			if decoded, err := enc.NewDecoder().Bytes(data); err == nil && utf8.Valid(decoded) {
				return string(decoded)
			}
		}
	}

	// Windows-1252 and Latin-1 cover most Western email; both decode any
	// byte sequence, so try 1252 first (it handles smart quotes).
	for _, enc := range []encoding.Encoding{charmap.Windows1252, charmap.ISO8859_1} {
		if decoded, err := enc.NewDecoder().Bytes(data); err == nil && utf8.Valid(decoded) {
			return string(decoded)
		}
	}

	return sanitizeUTF8(string(data))
}

// sanitizeUTF8 replaces invalid UTF-8 bytes with the replacement character.
func sanitizeUTF8(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			sb.WriteRune('�')
			i++
		} else {
			sb.WriteRune(r)
			i += size
		}
	}
	return sb.String()
}

// encodingByName returns an encoding for the given IANA charset name.
func encodingByName(name string) encoding.Encoding {
	switch strings.ToLower(name) {
	case "windows-1252", "cp1252":
		return charmap.Windows1252
	case "iso-8859-1", "latin1", "latin-1":
		return charmap.ISO8859_1
	case "iso-8859-15", "latin9":
		return charmap.ISO8859_15
	case "iso-8859-2", "latin2":
		return charmap.ISO8859_2
	case "koi8-r":
		return charmap.KOI8R
	case "koi8-u":
		return charmap.KOI8U
	default:
		return nil
	}
}

// HeaderValue returns the first matching top-level header of the message,
// case-insensitively. MIME-encoded words are decoded.
func (m *Message) HeaderValue(name string) string {
	v := headerValue(m.Payload.Headers, name)
	if v == "" {
		return ""
	}
	dec := &mime.WordDecoder{}
	decoded, err := dec.DecodeHeader(v)
	if err != nil {
		return v
	}
	return decoded
}

// AddressList splits a comma-separated address header into individual
// addresses. Empty entries are dropped.
func AddressList(header string) []string {
	if strings.TrimSpace(header) == "" {
		return nil
	}
	parts := strings.Split(header, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// IsUnread reports whether the message carries the UNREAD label.
func (m *Message) IsUnread() bool {
	for _, l := range m.LabelIDs {
		if l == "UNREAD" {
			return true
		}
	}
	return false
}
