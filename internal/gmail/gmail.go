// Package gmail provides the mailbox provider client for claimtrail,
// built on google.golang.org/api/gmail/v1.
package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	gm "google.golang.org/api/gmail/v1"
)

// Part is one node of a message's MIME tree, decoupled from the API types
// so the tree walk is testable against synthetic trees.
type Part struct {
	MimeType     string            `json:"mime_type"`
	Filename     string            `json:"filename,omitempty"`
	BodyData     string            `json:"body_data,omitempty"` // base64url
	BodySize     int64             `json:"body_size,omitempty"`
	AttachmentID string            `json:"attachment_id,omitempty"`
	Headers      map[string]string `json:"headers,omitempty"`
	Parts        []*Part           `json:"parts,omitempty"`
}

// RawMessage is a full provider message before normalization.
type RawMessage struct {
	ID           string   `json:"id"`
	ThreadID     string   `json:"thread_id"`
	Snippet      string   `json:"snippet,omitempty"`
	Labels       []string `json:"labels,omitempty"`
	InternalDate int64    `json:"internal_date"` // epoch ms
	SizeEstimate int64    `json:"size_estimate,omitempty"`
	Payload      *Part    `json:"payload,omitempty"`
}

// Header returns a payload header value, case-insensitively.
func (m *RawMessage) Header(name string) string {
	if m.Payload == nil {
		return ""
	}
	for k, v := range m.Payload.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// Client wraps an authenticated Gmail service.
type Client struct {
	svc *gm.Service
}

// NewClient wraps a Gmail API service.
func NewClient(svc *gm.Service) *Client {
	return &Client{svc: svc}
}

// List returns ids of messages matching a Gmail search query.
func (c *Client) List(ctx context.Context, query string, max int64) ([]string, error) {
	resp, err := c.svc.Users.Messages.List("me").
		Q(query).
		MaxResults(max).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	ids := make([]string, 0, len(resp.Messages))
	for _, msg := range resp.Messages {
		ids = append(ids, msg.Id)
	}
	return ids, nil
}

// Fetch retrieves a complete message by id.
func (c *Client) Fetch(ctx context.Context, id string) (*RawMessage, error) {
	msg, err := c.svc.Users.Messages.Get("me", id).
		Format("full").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("get message %s: %w", id, err)
	}
	return &RawMessage{
		ID:           msg.Id,
		ThreadID:     msg.ThreadId,
		Snippet:      msg.Snippet,
		Labels:       msg.LabelIds,
		InternalDate: msg.InternalDate,
		SizeEstimate: msg.SizeEstimate,
		Payload:      convertPart(msg.Payload),
	}, nil
}

// Attachment downloads and decodes one attachment body.
func (c *Client) Attachment(ctx context.Context, messageID, attachmentID string) ([]byte, error) {
	body, err := c.svc.Users.Messages.Attachments.Get("me", messageID, attachmentID).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("get attachment %s/%s: %w", messageID, attachmentID, err)
	}
	data, err := DecodeBase64URL(body.Data)
	if err != nil {
		return nil, fmt.Errorf("decode attachment %s/%s: %w", messageID, attachmentID, err)
	}
	return data, nil
}

func convertPart(p *gm.MessagePart) *Part {
	if p == nil {
		return nil
	}
	out := &Part{
		MimeType: p.MimeType,
		Filename: p.Filename,
	}
	if p.Body != nil {
		out.BodyData = p.Body.Data
		out.BodySize = p.Body.Size
		out.AttachmentID = p.Body.AttachmentId
	}
	if len(p.Headers) > 0 {
		out.Headers = make(map[string]string, len(p.Headers))
		for _, h := range p.Headers {
			out.Headers[h.Name] = h.Value
		}
	}
	for _, child := range p.Parts {
		out.Parts = append(out.Parts, convertPart(child))
	}
	return out
}

// WalkParts walks a MIME tree depth-first and returns the first text/plain
// part found, the first text/html part found, and a flat list of all
// attachment leaves (parts carrying a filename).
func WalkParts(root *Part) (plain, html *Part, attachments []*Part) {
	if root == nil {
		return nil, nil, nil
	}
	var walk func(p *Part)
	walk = func(p *Part) {
		if p.Filename != "" {
			attachments = append(attachments, p)
		} else {
			switch {
			case plain == nil && p.MimeType == "text/plain" && p.BodyData != "":
				plain = p
			case html == nil && p.MimeType == "text/html" && p.BodyData != "":
				html = p
			}
		}
		for _, child := range p.Parts {
			walk(child)
		}
	}
	walk(root)
	return plain, html, attachments
}

// DecodeBase64URL decodes Gmail's URL-safe base64 content, tolerating
// missing padding and standard-alphabet input.
func DecodeBase64URL(data string) ([]byte, error) {
	data = strings.ReplaceAll(data, "-", "+")
	data = strings.ReplaceAll(data, "_", "/")
	switch len(data) % 4 {
	case 2:
		data += "=="
	case 3:
		data += "="
	}
	return base64.StdEncoding.DecodeString(data)
}

// DecodeText decodes a part body into a string, returning "" on failure.
func DecodeText(p *Part) string {
	if p == nil || p.BodyData == "" {
		return ""
	}
	decoded, err := DecodeBase64URL(p.BodyData)
	if err != nil {
		return ""
	}
	return string(decoded)
}
