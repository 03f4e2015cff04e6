package mailtm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"
)

const (
	exportPrefix     = "tempbox_message_"
	exportTimeLayout = "20060102_150405"
	exportExt        = ".json"

	ruleWidth = 50
)

// NoContent is rendered in place of an empty body.
const NoContent = "No content available"

// messagePath normalizes id and returns the provider path for it.
func messagePath(prefix, id string) (string, string, error) {
	canonical := CanonicalID(id, "")
	if canonical == "" {
		return "", "", ErrInvalidID
	}
	return canonical, prefix + url.PathEscape(canonical), nil
}

// GetDetail fetches the full content of a message. id may be canonical
// or a full resource reference.
func (c *Client) GetDetail(ctx context.Context, id string) (*MessageDetail, error) {
	sess, err := c.requireSession()
	if err != nil {
		return nil, err
	}
	canonical, path, err := messagePath("/messages/", id)
	if err != nil {
		return nil, err
	}

	var raw []byte
	var detail MessageDetail
	err = c.do(ctx, request{
		method: http.MethodGet,
		path:   path,
		token:  sess.Token,
	}, &detail, &raw)
	if err != nil {
		c.log.Warn().Err(err).Str("id", canonical).Msg("fetching message content")
		return nil, fmt.Errorf("fetching message %s: %w", canonical, err)
	}

	detail.ID = CanonicalID(detail.Ref, detail.ID)
	if detail.ID == "" {
		detail.ID = canonical
	}
	detail.Raw = json.RawMessage(raw)
	return &detail, nil
}

// Delete removes a message on the provider. A message that is already
// gone is reported as ErrNotFound.
func (c *Client) Delete(ctx context.Context, id string) error {
	sess, err := c.requireSession()
	if err != nil {
		return err
	}
	canonical, path, err := messagePath("/messages/", id)
	if err != nil {
		return err
	}

	err = c.do(ctx, request{
		method: http.MethodDelete,
		path:   path,
		token:  sess.Token,
	}, nil, nil)
	if err != nil {
		c.log.Warn().Err(err).Str("id", canonical).Msg("deleting message")
		return fmt.Errorf("deleting message %s: %w", canonical, err)
	}
	return nil
}

// MarkSeen flags a message as read.
func (c *Client) MarkSeen(ctx context.Context, id string) error {
	sess, err := c.requireSession()
	if err != nil {
		return err
	}
	canonical, path, err := messagePath("/messages/", id)
	if err != nil {
		return err
	}

	err = c.do(ctx, request{
		method:      http.MethodPatch,
		path:        path,
		body:        map[string]bool{"seen": true},
		contentType: "application/merge-patch+json",
		token:       sess.Token,
	}, nil, nil)
	if err != nil {
		c.log.Warn().Err(err).Str("id", canonical).Msg("marking message seen")
		return fmt.Errorf("marking message %s seen: %w", canonical, err)
	}
	return nil
}

// GetSource fetches the raw RFC 822 message and parses its header.
func (c *Client) GetSource(ctx context.Context, id string) (*MessageSource, error) {
	sess, err := c.requireSession()
	if err != nil {
		return nil, err
	}
	canonical, path, err := messagePath("/sources/", id)
	if err != nil {
		return nil, err
	}

	var src sourceResponse
	err = c.do(ctx, request{
		method: http.MethodGet,
		path:   path,
		token:  sess.Token,
	}, &src, nil)
	if err != nil {
		c.log.Warn().Err(err).Str("id", canonical).Msg("fetching message source")
		return nil, fmt.Errorf("fetching source %s: %w", canonical, err)
	}

	headers, err := parseHeaders(src.Data)
	if err != nil {
		return nil, fmt.Errorf("parsing source %s: %w", canonical, err)
	}

	return &MessageSource{
		ID:      canonical,
		Data:    src.Data,
		Headers: headers,
	}, nil
}

// parseHeaders reads the top-level header fields of an RFC 822 message,
// decoding encoded words where the charset is known.
func parseHeaders(data string) ([]Header, error) {
	mr, err := mail.CreateReader(strings.NewReader(data))
	if err != nil && !message.IsUnknownCharset(err) {
		return nil, err
	}
	defer mr.Close()

	var headers []Header
	fields := mr.Header.Fields()
	for fields.Next() {
		value, err := fields.Text()
		if err != nil {
			value = fields.Value()
		}
		headers = append(headers, Header{Key: fields.Key(), Value: value})
	}
	return headers, nil
}

// RenderPlaintext fetches a message and formats it for a terminal.
func (c *Client) RenderPlaintext(ctx context.Context, id string) (string, error) {
	detail, err := c.GetDetail(ctx, id)
	if err != nil {
		return "", err
	}
	return FormatPlaintext(detail), nil
}

// FormatPlaintext renders the header block followed by the body. HTML
// bodies are converted to text; an empty body renders NoContent.
func FormatPlaintext(d *MessageDetail) string {
	rule := strings.Repeat("=", ruleWidth)

	var b strings.Builder
	b.WriteString(rule + "\n")
	b.WriteString("TempBox - Message Details\n")
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "From: %s\n", orNA(d.From.Address))
	fmt.Fprintf(&b, "Subject: %s\n", orNA(d.Subject))
	fmt.Fprintf(&b, "Date: %s\n", orNA(d.CreatedAt))
	b.WriteString(rule + "\n\n")
	b.WriteString(Body(d))
	b.WriteString("\n")
	return b.String()
}

// Body returns the readable body of d, preferring the HTML part.
func Body(d *MessageDetail) string {
	if h := strings.TrimSpace(strings.Join(d.HTML, "\n")); h != "" {
		if text := HTMLToText(h); text != "" {
			return text
		}
	}
	if t := strings.TrimSpace(d.Text); t != "" {
		return t
	}
	return NoContent
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// ExportToFile writes the raw detail record of a message, pretty
// printed, to a timestamped file in the export directory and returns
// its path. Filesystem failures are returned as *ExportError.
func (c *Client) ExportToFile(ctx context.Context, id string) (string, error) {
	detail, err := c.GetDetail(ctx, id)
	if err != nil {
		return "", err
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, detail.Raw, "", "  "); err != nil {
		return "", fmt.Errorf("formatting message %s: %w", detail.ID, err)
	}
	pretty.WriteByte('\n')

	base := exportPrefix + c.now().Format(exportTimeLayout)
	path, err := writeExport(c.exportDir, base, pretty.Bytes())
	if err != nil {
		c.log.Warn().Err(err).Str("path", path).Msg("saving message")
		return "", &ExportError{Path: path, Err: err}
	}

	c.log.Info().Str("id", detail.ID).Str("path", path).Msg("message saved")
	return path, nil
}

// maxExportSuffix bounds the "_N" suffixes tried when exports share a
// timestamp.
const maxExportSuffix = 100

// writeExport creates dir/base.json, or dir/base_2.json and so on when an
// earlier export in the same second took the name. Existing files are
// never overwritten. It returns the path written, or the last path tried.
func writeExport(dir, base string, data []byte) (string, error) {
	path := filepath.Join(dir, base+exportExt)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return path, err
	}

	for n := 1; n <= maxExportSuffix; n++ {
		if n > 1 {
			path = filepath.Join(dir, fmt.Sprintf("%s_%d%s", base, n, exportExt))
		}
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return path, err
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			return path, err
		}
		return path, f.Close()
	}
	return path, fmt.Errorf("%d exports already named %s: %w", maxExportSuffix, base, fs.ErrExist)
}
