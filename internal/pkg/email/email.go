package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/smtp"

	"github.com/google/uuid"
	"github.com/worktrackhq/worktrack-backend-go/internal/config"
	"github.com/worktrackhq/worktrack-backend-go/internal/domain/notification"
)

//go:embed templates/*.html
var templateFS embed.FS

// templateFor maps a notification type to the template file rendering it.
// Approved and rejected share one layout.
var templateFor = map[string]string{
	string(notification.TypeSessionApproved):   "decision.html",
	string(notification.TypeSessionRejected):   "decision.html",
	string(notification.TypeSessionAutoClosed): "auto_closed.html",
}

// Directory resolves a worker id to a deliverable address.
type Directory interface {
	EmailFor(ctx context.Context, workerID string) (string, error)
}

// Dispatcher delivers approval-transition notifications over SMTP. Retries
// belong to the caller; each Notify call is a single delivery attempt so the
// idempotency ledger stays in charge of at-most-once semantics.
type Dispatcher struct {
	cfg       config.SMTPConfig
	directory Directory
	templates *template.Template
}

var _ notification.Dispatcher = (*Dispatcher)(nil)

// NewDispatcher creates an SMTP-backed notification dispatcher. directory may
// be nil, in which case the recipient id is used as the address verbatim.
func NewDispatcher(cfg config.SMTPConfig, directory Directory) (*Dispatcher, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}

	return &Dispatcher{
		cfg:       cfg,
		directory: directory,
		templates: tmpl,
	}, nil
}

// Notify implements notification.Dispatcher. The returned delivery id is
// generated locally; SMTP gives no receipt to carry back.
func (d *Dispatcher) Notify(ctx context.Context, recipient string, templateName string, data map[string]interface{}) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	tmplFile, ok := templateFor[templateName]
	if !ok {
		return "", fmt.Errorf("unknown notification template %q", templateName)
	}

	var body bytes.Buffer
	if err := d.templates.ExecuteTemplate(&body, tmplFile, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	subject, _ := data["title"].(string)
	if subject == "" {
		subject = "Attendance update"
	}

	address := recipient
	if d.directory != nil {
		resolved, err := d.directory.EmailFor(ctx, recipient)
		if err != nil {
			return "", fmt.Errorf("failed to resolve recipient: %w", err)
		}
		address = resolved
	}

	if err := d.send(address, subject, body.String()); err != nil {
		return "", err
	}

	return uuid.New().String(), nil
}

func (d *Dispatcher) send(to, subject, htmlBody string) error {
	// Skip sending if SMTP is not configured
	if d.cfg.Host == "" {
		slog.Warn("SMTP not configured, skipping email send", "to", to, "subject", subject)
		return nil
	}

	from := d.cfg.From

	headers := fmt.Sprintf("From: %s <%s>\r\n", d.cfg.FromName, from)
	headers += fmt.Sprintf("To: %s\r\n", to)
	headers += fmt.Sprintf("Subject: %s\r\n", subject)
	headers += "MIME-Version: 1.0\r\n"
	headers += "Content-Type: text/html; charset=\"UTF-8\"\r\n"
	headers += "\r\n"

	message := []byte(headers + htmlBody)

	auth := smtp.PlainAuth("", d.cfg.Username, d.cfg.Password, d.cfg.Host)
	addr := fmt.Sprintf("%s:%d", d.cfg.Host, d.cfg.Port)

	if err := smtp.SendMail(addr, auth, from, []string{to}, message); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	slog.Info("Email sent successfully", "to", to, "subject", subject)
	return nil
}
