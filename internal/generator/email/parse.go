package email

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/PuerkitoBio/goquery"
)

// AttachmentInfo describes an attachment found in a parsed message
type AttachmentInfo struct {
	Name        string
	ContentType string
	Size        int
}

// Parsed is a message read from an .eml file
type Parsed struct {
	From        string
	To          []string
	Cc          []string
	ReplyTo     string
	Subject     string
	Date        time.Time
	MessageID   string
	Importance  string
	Draft       bool
	Text        string
	HTML        string
	Links       []string
	Attachments []AttachmentInfo
}

// Body returns the plain text body, converting the HTML part when there is
// no text part
func (p *Parsed) Body() string {
	if strings.TrimSpace(p.Text) != "" || p.HTML == "" {
		return p.Text
	}
	text, err := HTMLToText(p.HTML)
	if err != nil {
		return p.HTML
	}
	return text
}

var decoder = new(mime.WordDecoder)

// Parse reads an RFC 5322 message
func Parse(data []byte) (*Parsed, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("not a valid email message: %w", err)
	}
	h := msg.Header
	p := &Parsed{
		From:       decodeHeader(h.Get("From")),
		ReplyTo:    decodeHeader(h.Get("Reply-To")),
		Subject:    decodeHeader(h.Get("Subject")),
		MessageID:  strings.Trim(h.Get("Message-Id"), "<>"),
		Importance: strings.ToLower(h.Get("Importance")),
		Draft:      h.Get("X-Unsent") == "1",
		To:         addressList(h, "To"),
		Cc:         addressList(h, "Cc"),
	}
	if date, err := h.Date(); err == nil {
		p.Date = date
	}

	if err := p.readPart(h, msg.Body); err != nil {
		return nil, err
	}
	if p.HTML != "" {
		p.Links = links(p.HTML)
	}
	return p, nil
}

type header interface {
	Get(string) string
}

func (p *Parsed) readPart(h header, body io.Reader) error {
	mediaType, params, err := mime.ParseMediaType(h.Get("Content-Type"))
	if err != nil {
		mediaType = "text/plain"
	}
	if strings.HasPrefix(mediaType, "multipart/") {
		mr := multipart.NewReader(body, params["boundary"])
		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return fmt.Errorf("malformed multipart body: %w", err)
			}
			if err := p.readPart(part.Header, part); err != nil {
				return err
			}
		}
	}

	content, err := io.ReadAll(decodeTransfer(h.Get("Content-Transfer-Encoding"), body))
	if err != nil {
		return fmt.Errorf("failed to decode %s part: %w", mediaType, err)
	}

	disposition, dparams, _ := mime.ParseMediaType(h.Get("Content-Disposition"))
	name := dparams["filename"]
	if name == "" {
		name = params["name"]
	}
	if disposition == "attachment" || (name != "" && disposition != "inline") {
		p.Attachments = append(p.Attachments, AttachmentInfo{
			Name:        decodeHeader(name),
			ContentType: mediaType,
			Size:        len(content),
		})
		return nil
	}

	switch mediaType {
	case "text/plain":
		if p.Text == "" {
			p.Text = strings.TrimRight(string(content), "\r\n")
		}
	case "text/html":
		if p.HTML == "" {
			p.HTML = string(content)
		}
	}
	return nil
}

func decodeTransfer(encoding string, r io.Reader) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, r)
	case "quoted-printable":
		return quotedprintable.NewReader(r)
	}
	return r
}

func decodeHeader(v string) string {
	decoded, err := decoder.DecodeHeader(v)
	if err != nil {
		return v
	}
	return decoded
}

func addressList(h mail.Header, key string) []string {
	if h.Get(key) == "" {
		return nil
	}
	list, err := h.AddressList(key)
	if err != nil {
		return []string{decodeHeader(h.Get(key))}
	}
	out := make([]string, 0, len(list))
	for _, a := range list {
		out = append(out, a.Address)
	}
	return out
}

func links(html string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	var out []string
	seen := map[string]bool{}
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if href == "" || strings.HasPrefix(href, "#") || seen[href] {
			return
		}
		seen[href] = true
		out = append(out, href)
	})
	return out
}

// HTMLToText converts an HTML body to markdown flavoured plain text
func HTMLToText(html string) (string, error) {
	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
		),
	)
	md, err := conv.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("failed to convert HTML body: %w", err)
	}
	return strings.TrimSpace(md), nil
}
