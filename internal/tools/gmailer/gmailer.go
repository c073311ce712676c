// Package gmailer sends mail through the Gmail API on behalf of the
// authenticated user.
package gmailer

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// Scopes required by this adapter.
var Scopes = []string{gmail.GmailSendScope}

// Sender sends email as the authenticated user.
type Sender struct {
	svc *gmail.Service
}

// NewSender builds a Sender on top of an OAuth-authenticated HTTP client.
func NewSender(ctx context.Context, httpClient *http.Client) (*Sender, error) {
	svc, err := gmail.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}
	return &Sender{svc: svc}, nil
}

// Send delivers a plain-text email and returns the Gmail message ID.
func (s *Sender) Send(to, subject, body string) (string, error) {
	if to == "" {
		return "", fmt.Errorf("recipient must not be empty")
	}
	msg := &gmail.Message{Raw: EncodeMessage(to, subject, body)}
	sent, err := s.svc.Users.Messages.Send("me", msg).Do()
	if err != nil {
		return "", fmt.Errorf("send email: %w", err)
	}
	return sent.Id, nil
}

// EncodeMessage renders an RFC 2822 plain-text message and encodes it the way
// the Gmail API expects (URL-safe base64).
func EncodeMessage(to, subject, body string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return base64.URLEncoding.EncodeToString([]byte(b.String()))
}
