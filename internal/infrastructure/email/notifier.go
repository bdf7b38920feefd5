package email

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wneessen/go-mail"

	"NewsDigest/internal/config"
	"NewsDigest/internal/digest"
	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

const defaultTimeout = 30 * time.Second

// sender is the part of the SMTP client the notifier depends on.
type sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// Notifier delivers digests as an HTML email with a plain-text alternative.
type Notifier struct {
	client sender
	from   string
	to     []string
	logger *slog.Logger
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier opens an SMTP client that requires STARTTLS and PLAIN auth.
func NewNotifier(cfg config.EmailConfig, log *slog.Logger) (*Notifier, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	opts := []mail.Option{
		mail.WithTLSPolicy(mail.TLSMandatory),
		mail.WithTimeout(timeout),
	}
	if cfg.Port > 0 {
		opts = append(opts, mail.WithPort(cfg.Port))
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password))
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}

	return newNotifier(client, cfg, log), nil
}

func newNotifier(client sender, cfg config.EmailConfig, log *slog.Logger) *Notifier {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Notifier{client: client, from: cfg.From, to: cfg.To, logger: log}
}

// Deliver sends one message holding the whole digest.
func (n *Notifier) Deliver(ctx context.Context, d domain.Digest) error {
	msg, err := n.compose(d)
	if err != nil {
		return &domain.DeliveryError{Channel: config.ChannelEmail, Err: err}
	}

	n.logger.Debug("sending digest email", "to", n.to, "records", len(d.Records))
	if err := n.client.DialAndSendWithContext(ctx, msg); err != nil {
		return &domain.DeliveryError{Channel: config.ChannelEmail, Err: fmt.Errorf("send mail: %w", err)}
	}
	return nil
}

func (n *Notifier) compose(d domain.Digest) (*mail.Msg, error) {
	body, err := digest.RenderHTML(d)
	if err != nil {
		return nil, err
	}

	msg := mail.NewMsg()
	if err := msg.From(n.from); err != nil {
		return nil, fmt.Errorf("set from %q: %w", n.from, err)
	}
	if err := msg.To(n.to...); err != nil {
		return nil, fmt.Errorf("set to %v: %w", n.to, err)
	}
	msg.Subject(d.Subject)
	msg.SetDate()
	msg.SetBodyString(mail.TypeTextHTML, body)
	msg.AddAlternativeString(mail.TypeTextPlain, digest.RenderText(d))
	return msg, nil
}
