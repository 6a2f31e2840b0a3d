package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/smtp"
	"sort"
	"time"

	"thesis-portal/internal/config"
	"thesis-portal/internal/models"
)

// Service sends workflow notifications over SMTP. When email is disabled in
// the configuration messages are logged instead of sent.
type Service struct {
	config *config.EmailConfig
	app    string
}

// NewService creates a new email service
func NewService(cfg *config.EmailConfig, appName string) *Service {
	return &Service{
		config: cfg,
		app:    appName,
	}
}

var layout = template.Must(template.New("layout").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Subject}}</title>
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #4a90e2;">{{.Heading}}</h2>
        <p>Dear {{.Recipient}},</p>
        {{range .Lines}}<p>{{.}}</p>
        {{end}}
        <div style="background-color: #e3f2fd; border-left: 4px solid #2196f3; padding: 15px; margin: 20px 0;">
            <p style="margin: 5px 0;"><strong>Thesis:</strong> {{.ThesisTitle}}</p>
        </div>
        <div style="text-align: center; margin: 30px 0;">
            <a href="{{.Link}}" style="background-color: #4a90e2; color: white; padding: 12px 30px; text-decoration: none; border-radius: 5px; display: inline-block;">Open in {{.App}}</a>
        </div>
        <hr style="border: none; border-top: 1px solid #eee; margin: 20px 0;">
        <p style="color: #999; font-size: 12px;">This is an automated email. Please do not reply.</p>
    </div>
</body>
</html>
`))

type message struct {
	Subject     string
	Heading     string
	Recipient   string
	Lines       []string
	ThesisTitle string
	Link        string
	App         string
}

// InvitationReceived tells a professor that a student asked them to join a committee
func (s *Service) InvitationReceived(ctx context.Context, professor, student *models.User, thesis *models.Thesis) error {
	return s.send(ctx, professor.Email, message{
		Subject:   "Committee invitation",
		Heading:   "You have been invited to a thesis committee",
		Recipient: professor.FullName(),
		Lines: []string{
			fmt.Sprintf("%s has invited you to join the examination committee of their thesis.", student.FullName()),
			"Please accept or decline the invitation in the portal.",
		},
		ThesisTitle: thesis.Title,
		Link:        s.link("/invitations"),
	})
}

// CommitteeCompleted tells the student and the committee that the thesis is active
func (s *Service) CommitteeCompleted(ctx context.Context, recipients []models.User, thesis *models.Thesis) error {
	var firstErr error
	for _, user := range recipients {
		err := s.send(ctx, user.Email, message{
			Subject:   "Thesis committee complete",
			Heading:   "The examination committee is complete",
			Recipient: user.FullName(),
			Lines: []string{
				"Two professors have accepted their invitations and the thesis is now active.",
			},
			ThesisTitle: thesis.Title,
			Link:        s.link(fmt.Sprintf("/theses/%d", thesis.ID)),
		})
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ThesisFinalized tells the student that their thesis has been completed
func (s *Service) ThesisFinalized(ctx context.Context, student *models.User, thesis *models.Thesis) error {
	lines := []string{"The secretariat has marked your thesis as completed."}
	if thesis.FinalGrade != nil {
		lines = append(lines, fmt.Sprintf("Final grade: %.2f", *thesis.FinalGrade))
	}
	return s.send(ctx, student.Email, message{
		Subject:     "Thesis completed",
		Heading:     "Congratulations, your thesis is completed",
		Recipient:   student.FullName(),
		Lines:       lines,
		ThesisTitle: thesis.Title,
		Link:        s.link(fmt.Sprintf("/theses/%d", thesis.ID)),
	})
}

func (s *Service) link(path string) string {
	return s.config.PortalURL + path
}

func (s *Service) send(ctx context.Context, to string, msg message) error {
	msg.App = s.app
	msg.Subject = s.app + ": " + msg.Subject

	var body bytes.Buffer
	if err := layout.Execute(&body, msg); err != nil {
		return fmt.Errorf("failed to render email: %w", err)
	}

	if !s.config.Enabled {
		slog.Info("Email disabled, skipping delivery", "to", to, "subject", msg.Subject)
		return nil
	}
	return s.sendEmail(ctx, to, msg.Subject, body.String())
}

// buildMessage assembles the raw RFC 5322 message
func (s *Service) buildMessage(to, subject, body string) []byte {
	headers := map[string]string{
		"From":         s.config.SMTPFrom,
		"To":           to,
		"Subject":      mime.QEncoding.Encode("utf-8", subject),
		"Date":         time.Now().Format(time.RFC1123Z),
		"MIME-Version": "1.0",
		"Content-Type": "text/html; charset=UTF-8",
	}
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var message bytes.Buffer
	for _, k := range keys {
		fmt.Fprintf(&message, "%s: %s\r\n", k, headers[k])
	}
	message.WriteString("\r\n")
	message.WriteString(body)
	return message.Bytes()
}

// sendEmail sends an email using SMTP
func (s *Service) sendEmail(ctx context.Context, to, subject, body string) error {
	addr := net.JoinHostPort(s.config.SMTPHost, s.config.SMTPPort)
	slog.Debug("Attempting to connect to SMTP server", "address", addr)

	dialer := net.Dialer{Timeout: 10 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		slog.Error("Failed to connect to SMTP server", "address", addr, "error", err)
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer func(conn net.Conn) {
		if err := conn.Close(); err != nil {
			slog.Debug("Failed to close SMTP connection", "error", err)
		}
	}(conn)

	client, err := smtp.NewClient(conn, s.config.SMTPHost)
	if err != nil {
		slog.Error("Failed to create SMTP client", "error", err)
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer func(client *smtp.Client) {
		if err := client.Close(); err != nil {
			slog.Debug("Failed to close SMTP client", "error", err)
		}
	}(client)

	// Development relays such as Mailpit accept mail without authentication
	if s.config.SMTPUsername != "" && s.config.SMTPPassword != "" {
		auth := smtp.PlainAuth("", s.config.SMTPUsername, s.config.SMTPPassword, s.config.SMTPHost)
		_ = client.Auth(auth)
	}

	if err := client.Mail(s.config.SMTPFrom); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("failed to set recipient: %w", err)
	}

	wc, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to initiate data transfer: %w", err)
	}
	if _, err := wc.Write(s.buildMessage(to, subject, body)); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := closeData(wc); err != nil {
		return err
	}
	if err := client.Quit(); err != nil {
		slog.Debug("SMTP quit failed", "error", err)
	}

	slog.Info("Email sent successfully", "to", to, "subject", subject)
	return nil
}

func closeData(wc io.WriteCloser) error {
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to finish message: %w", err)
	}
	return nil
}
