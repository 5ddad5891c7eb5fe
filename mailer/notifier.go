// Package mailer delivers plain-text notifications over SMTP.
//
// A Notifier never returns an error to its caller: every failure (missing
// configuration, bad address, connect, TLS, auth, send) is logged with its
// cause and reported as false.
package mailer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/corpsite/config"
	"github.com/dalemusser/corpsite/metrics"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

const defaultTimeout = 10 * time.Second

// Transport delivers built messages. *mail.Client satisfies it.
type Transport interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// Dialer builds a Transport for one send.
type Dialer func(cfg config.MailConfig) (Transport, error)

// Option customizes a Notifier.
type Option func(*Notifier)

// WithDialer replaces the go-mail transport (tests use it to stub SMTP).
func WithDialer(d Dialer) Option {
	return func(n *Notifier) { n.dial = d }
}

// Notifier sends one message per call with a fresh connection.
type Notifier struct {
	cfg    config.MailConfig
	logger *zap.Logger
	dial   Dialer
}

// NewNotifier captures cfg; it is not re-read afterwards.
func NewNotifier(cfg config.MailConfig, logger *zap.Logger, opts ...Option) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	n := &Notifier{cfg: cfg, logger: logger, dial: DialSMTP}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Configured reports whether Send can attempt delivery at all.
func (n *Notifier) Configured() bool { return n.cfg.Configured() }

// Send delivers subject/body to recipient, or to the configured default
// recipient when recipient is empty. It reports whether the relay accepted
// the message.
func (n *Notifier) Send(ctx context.Context, subject, body, recipient string) bool {
	if missing := n.cfg.Missing(); len(missing) > 0 {
		n.logger.Warn("mail not configured; notification skipped",
			zap.Strings("missing", missing),
			zap.String("subject", subject))
		metrics.MailSends.WithLabelValues("not_configured").Inc()
		return false
	}

	to := strings.TrimSpace(recipient)
	if to == "" {
		to = n.cfg.Recipient
	}
	log := n.logger.With(
		zap.String("subject", subject),
		zap.String("to", to),
		zap.String("server", n.cfg.Server),
		zap.Int("port", n.cfg.Port))

	msg, err := buildMessage(n.cfg.Username, to, subject, body)
	if err != nil {
		return n.fail(log, "build message", err)
	}

	client, err := n.dial(n.cfg)
	if err != nil {
		return n.fail(log, "create smtp client", err)
	}

	ctx, cancel := context.WithTimeout(ctx, n.cfg.Timeout)
	defer cancel()

	start := time.Now()
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return n.fail(log, "send", err)
	}

	log.Info("notification sent", zap.Duration("took", time.Since(start)))
	metrics.MailSends.WithLabelValues("sent").Inc()
	return true
}

func (n *Notifier) fail(log *zap.Logger, stage string, err error) bool {
	log.Error("notification failed", zap.String("stage", stage), zap.Error(err))
	metrics.MailSends.WithLabelValues("failed").Inc()
	return false
}

func buildMessage(from, to, subject, body string) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(from); err != nil {
		return nil, fmt.Errorf("invalid from address: %w", err)
	}
	if err := m.To(to); err != nil {
		return nil, fmt.Errorf("invalid to address: %w", err)
	}
	m.Subject(subject)
	m.SetBodyString(mail.TypeTextPlain, body)
	return m, nil
}

// DialSMTP is the default Dialer: SMTP AUTH PLAIN with mandatory STARTTLS,
// or implicit TLS on port 465.
func DialSMTP(cfg config.MailConfig) (Transport, error) {
	// The TLS option rewrites port 25, so WithPort goes after it.
	var opts []mail.Option
	if cfg.Port == 465 {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSMandatory))
	}
	opts = append(opts,
		mail.WithPort(cfg.Port),
		mail.WithTimeout(cfg.Timeout),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
	)

	c, err := mail.NewClient(cfg.Server, opts...)
	if err != nil {
		return nil, err
	}
	return c, nil
}
