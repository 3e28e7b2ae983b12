package connectors

import (
	"bytes"
	"net/mail"
	"strings"
	"time"

	"github.com/jhillyerd/enmime"
	"github.com/ledongthuc/pdf"

	"ordermail/internal"
)

// ParseDocument reduces a raw RFC 822 message to a Document. When the
// message has no text part, PDF attachments supply the plain text.
func ParseDocument(id string, raw []byte) (internal.Document, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return internal.Document{}, err
	}

	doc := internal.Document{
		MessageID: id,
		Sender:    env.GetHeader("From"),
		Subject:   env.GetHeader("Subject"),
		HTML:      env.HTML,
		Text:      env.Text,
	}
	if doc.MessageID == "" {
		doc.MessageID = strings.Trim(env.GetHeader("Message-Id"), "<>")
	}
	doc.ReceivedAt = time.Now().UTC()
	if t, err := mail.ParseDate(env.GetHeader("Date")); err == nil {
		doc.ReceivedAt = t.UTC()
	}

	if strings.TrimSpace(doc.Text) == "" {
		var parts []string
		for _, att := range env.Attachments {
			if !strings.HasSuffix(strings.ToLower(att.FileName), ".pdf") && att.ContentType != "application/pdf" {
				continue
			}
			if text, err := pdfText(att.Content); err == nil && text != "" {
				parts = append(parts, text)
			}
		}
		doc.Text = strings.Join(parts, "\n")
	}
	return doc, nil
}

func pdfText(content []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(text)
		b.WriteByte('\n')
	}
	return strings.TrimSpace(b.String()), nil
}
