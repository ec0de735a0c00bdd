package provider

import (
	"context"
	"fmt"
	"net"
	"time"

	"estate_crm_backend/internal/domain"
	"estate_crm_backend/platform/config"

	"github.com/google/uuid"
	gomail "github.com/wneessen/go-mail"
)

// EmailProvider delivers outreach over the tenant's SMTP server via go-mail.
type EmailProvider struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

// NewEmailProvider creates the SMTP email provider. Returns nil when SMTP is
// not configured so the registry skips the channel.
func NewEmailProvider(cfg config.EmailChannelConfig) *EmailProvider {
	if !cfg.IsEmailChannelEnabled() {
		return nil
	}

	return &EmailProvider{
		host:      cfg.GetSMTPHost(),
		port:      cfg.GetSMTPPort(),
		username:  cfg.GetSMTPUsername(),
		password:  cfg.GetSMTPPassword(),
		fromName:  cfg.GetEmailFromName(),
		fromEmail: cfg.GetEmailFromAddress(),
	}
}

func (p *EmailProvider) Channel() domain.Channel { return domain.ChannelEmail }

func (p *EmailProvider) Deliver(ctx context.Context, msg Message) (Result, error) {
	m := gomail.NewMsg()
	if err := m.FromFormat(p.fromName, p.fromEmail); err != nil {
		return Result{}, fmt.Errorf("smtp from: %w", err)
	}
	if err := m.To(msg.Recipient); err != nil {
		return Result{}, fmt.Errorf("smtp to: %w", err)
	}

	subject := msg.Subject
	if subject == "" {
		subject = "Message from your agent"
	}
	m.Subject(subject)
	m.SetBodyString(gomail.TypeTextPlain, msg.Body)

	// SMTP has no gateway message id; mint one so delivery callbacks from a
	// relay that echoes Message-ID can still be matched.
	messageID := uuid.New().String()
	m.SetMessageIDWithValue(messageID)

	client, err := gomail.NewClient(p.host,
		gomail.WithPort(p.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(p.username),
		gomail.WithPassword(p.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return Result{}, fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return Result{}, fmt.Errorf("smtp send: %w", err)
	}

	return Result{ProviderMessageID: messageID}, nil
}
