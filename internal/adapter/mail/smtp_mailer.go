package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	htmltemplate "html/template"
	"net/url"
	"strings"
	"sync"
	texttemplate "text/template"
	"time"

	gomail "github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"room-user-service/internal/usecase/user"
)

// Config holds SMTP and rendering settings for SMTPMailer.
type Config struct {
	Host        string
	Port        int
	TLS         bool
	Username    string
	Password    string
	FromEmail   string
	FromName    string
	ProjectName string
	ServerHost  string

	ResetTokenHours int           // quoted in the reset email
	SendTimeout     time.Duration // bounds a single background delivery
}

// sender is the part of *gomail.Client used for delivery.
type sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*gomail.Msg) error
}

// SMTPMailer renders transactional emails and delivers them in the
// background. Send methods return once the message is built; delivery
// errors are logged only.
type SMTPMailer struct {
	cfg    Config
	client sender
	log    *zap.Logger
	wg     sync.WaitGroup
}

var _ user.Mailer = (*SMTPMailer)(nil)

// NewSMTPMailer creates an SMTPMailer backed by a go-mail client.
func NewSMTPMailer(cfg Config, log *zap.Logger) (*SMTPMailer, error) {
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 30 * time.Second
	}

	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithTimeout(cfg.SendTimeout),
	}
	if cfg.Username != "" && cfg.Password != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthLogin),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}
	if cfg.TLS {
		opts = append(opts,
			gomail.WithTLSConfig(&tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}),
			gomail.WithTLSPolicy(gomail.TLSMandatory),
		)
	} else {
		opts = append(opts, gomail.WithTLSPolicy(gomail.NoTLS))
	}

	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}

	log.Info("smtp mailer configured",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.Bool("tls", cfg.TLS),
	)
	return newSMTPMailer(cfg, client, log), nil
}

func newSMTPMailer(cfg Config, client sender, log *zap.Logger) *SMTPMailer {
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 30 * time.Second
	}
	if cfg.ResetTokenHours <= 0 {
		cfg.ResetTokenHours = 48
	}
	return &SMTPMailer{cfg: cfg, client: client, log: log}
}

// SendNewAccount sends the welcome email with the initial credentials and
// the email validation link.
func (m *SMTPMailer) SendNewAccount(ctx context.Context, in user.NewAccountEmail) error {
	data := newAccountData{
		ProjectName: m.cfg.ProjectName,
		Username:    in.Username,
		Password:    in.Password,
		Email:       in.To,
		Link:        m.link("/email-valid", in.Token),
	}
	subject := fmt.Sprintf("%s - New account for user %s", m.cfg.ProjectName, in.Username)

	msg, err := m.build(in.To, subject, newAccountTemplates, data)
	if err != nil {
		return err
	}
	m.dispatch(ctx, "new_account", in.To, msg)
	return nil
}

// SendResetPassword sends the password recovery link.
func (m *SMTPMailer) SendResetPassword(ctx context.Context, in user.ResetPasswordEmail) error {
	data := resetPasswordData{
		ProjectName: m.cfg.ProjectName,
		Email:       in.Email,
		Link:        m.link("/reset-password", in.Token),
		ValidHours:  m.cfg.ResetTokenHours,
	}
	subject := fmt.Sprintf("%s - Password recovery for user %s", m.cfg.ProjectName, in.Email)

	msg, err := m.build(in.To, subject, resetPasswordTemplates, data)
	if err != nil {
		return err
	}
	m.dispatch(ctx, "reset_password", in.To, msg)
	return nil
}

// Wait blocks until every background delivery has finished.
func (m *SMTPMailer) Wait() {
	m.wg.Wait()
}

func (m *SMTPMailer) link(path, token string) string {
	return strings.TrimRight(m.cfg.ServerHost, "/") + path + "?token=" + url.QueryEscape(token)
}

func (m *SMTPMailer) build(to, subject string, t templates, data any) (*gomail.Msg, error) {
	text, html, err := t.render(data)
	if err != nil {
		return nil, fmt.Errorf("failed to render email: %w", err)
	}

	msg := gomail.NewMsg()
	if m.cfg.FromName != "" {
		err = msg.FromFormat(m.cfg.FromName, m.cfg.FromEmail)
	} else {
		err = msg.From(m.cfg.FromEmail)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to set from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("failed to set to address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, text)
	msg.AddAlternativeString(gomail.TypeTextHTML, html)
	return msg, nil
}

func (m *SMTPMailer) dispatch(ctx context.Context, kind, to string, msg *gomail.Msg) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		// the request may finish before the SMTP exchange does
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.cfg.SendTimeout)
		defer cancel()

		if err := m.client.DialAndSendWithContext(sendCtx, msg); err != nil {
			m.log.Error("failed to send email", zap.String("kind", kind), zap.String("to", to), zap.Error(err))
			return
		}
		m.log.Info("email sent", zap.String("kind", kind), zap.String("to", to))
	}()
}

type newAccountData struct {
	ProjectName string
	Username    string
	Password    string
	Email       string
	Link        string
}

type resetPasswordData struct {
	ProjectName string
	Email       string
	Link        string
	ValidHours  int
}

type templates struct {
	text *texttemplate.Template
	html *htmltemplate.Template
}

func (t templates) render(data any) (string, string, error) {
	var text, html bytes.Buffer
	if err := t.text.Execute(&text, data); err != nil {
		return "", "", err
	}
	if err := t.html.Execute(&html, data); err != nil {
		return "", "", err
	}
	return text.String(), html.String(), nil
}

var newAccountTemplates = templates{
	text: texttemplate.Must(texttemplate.New("new_account.txt").Parse(
		`Welcome to {{.ProjectName}}!

You can log in with the following credentials:

  Username: {{.Username}}
  Password: {{.Password}}

Confirm your email address ({{.Email}}) by opening this link:

{{.Link}}
`)),
	html: htmltemplate.Must(htmltemplate.New("new_account.html").Parse(
		`<p>Welcome to {{.ProjectName}}!</p>
<p>You can log in with the following credentials:</p>
<ul>
  <li>Username: <b>{{.Username}}</b></li>
  <li>Password: <b>{{.Password}}</b></li>
</ul>
<p>Confirm your email address ({{.Email}}) by following <a href="{{.Link}}">this link</a>.</p>
`)),
}

var resetPasswordTemplates = templates{
	text: texttemplate.Must(texttemplate.New("reset_password.txt").Parse(
		`{{.ProjectName}} - Password recovery for user {{.Email}}

We received a request to recover the password for your account.
Reset your password by opening this link:

{{.Link}}

The link expires in {{.ValidHours}} hours. If you didn't request a
password recovery you can ignore this email.
`)),
	html: htmltemplate.Must(htmltemplate.New("reset_password.html").Parse(
		`<p>{{.ProjectName}} - Password recovery for user {{.Email}}</p>
<p>We received a request to recover the password for your account.</p>
<p>Reset your password by following <a href="{{.Link}}">this link</a>.</p>
<p>The link expires in {{.ValidHours}} hours. If you didn't request a password recovery you can ignore this email.</p>
`)),
}

// NopMailer discards every email. It is wired when emails are disabled.
type NopMailer struct {
	log *zap.Logger
}

// NewNopMailer creates a NopMailer.
func NewNopMailer(log *zap.Logger) *NopMailer {
	return &NopMailer{log: log}
}

// SendNewAccount logs the recipient and drops the message.
func (n *NopMailer) SendNewAccount(_ context.Context, in user.NewAccountEmail) error {
	n.log.Debug("email dispatch disabled", zap.String("kind", "new_account"), zap.String("to", in.To))
	return nil
}

// SendResetPassword logs the recipient and drops the message.
func (n *NopMailer) SendResetPassword(_ context.Context, in user.ResetPasswordEmail) error {
	n.log.Debug("email dispatch disabled", zap.String("kind", "reset_password"), zap.String("to", in.To))
	return nil
}

// Wait returns immediately; nothing is ever queued.
func (n *NopMailer) Wait() {}
