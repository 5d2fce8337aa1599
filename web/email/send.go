package email

import (
	"context"
	"fmt"
	"html"
	"strings"

	"elitehub/web/db"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Sender delivers one message.
type Sender interface {
	Send(ctx context.Context, to, name, subject, body string) error
}

// SendGrid sends plain-text mail with an HTML copy through the SendGrid
// v3 API.
type SendGrid struct {
	client   *sendgrid.Client
	fromAddr string
	fromName string
}

func NewSendGrid(apiKey, fromAddr, fromName string) *SendGrid {
	return &SendGrid{
		client:   sendgrid.NewSendClient(apiKey),
		fromAddr: fromAddr,
		fromName: fromName,
	}
}

func (s *SendGrid) Send(ctx context.Context, to, name, subject, body string) error {
	from := mail.NewEmail(s.fromName, s.fromAddr)
	rcpt := mail.NewEmail(name, to)
	htmlBody := "<p>" + strings.ReplaceAll(html.EscapeString(body), "\n", "<br>") + "</p>"
	msg := mail.NewSingleEmail(from, subject, rcpt, body, htmlBody)

	resp, err := s.client.SendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("failed to send email: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

// Notifier emails a copy of each notification to its recipient.
type Notifier struct {
	db     *gorm.DB
	sender Sender
	log    *logrus.Logger
}

func NewNotifier(conn *gorm.DB, sender Sender, log *logrus.Logger) *Notifier {
	return &Notifier{db: conn, sender: sender, log: log}
}

// Notify runs in the background; failures are logged only.
func (n *Notifier) Notify(ctx context.Context, note db.Notification) {
	ctx = context.WithoutCancel(ctx)
	go func() {
		if err := n.deliver(ctx, note); err != nil {
			n.log.WithError(err).WithFields(logrus.Fields{"uid": note.UserUID, "kind": note.Kind}).Warn("email: notification not sent")
		}
	}()
}

func (n *Notifier) deliver(ctx context.Context, note db.Notification) error {
	var user db.User
	if err := n.db.WithContext(ctx).Where("uid = ?", note.UserUID).First(&user).Error; err != nil {
		return fmt.Errorf("load recipient: %w", err)
	}
	return n.sender.Send(ctx, user.Email, user.FullName, note.Title, note.Body)
}
