package email

import (
	"bufio"
	"context"
	"net"
	"strings"
	"testing"

	"thesis-portal/internal/config"
	"thesis-portal/internal/models"
)

// fakeSMTP accepts a single SMTP session and returns the DATA payload
func fakeSMTP(t *testing.T) (host, port string, received <-chan string) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	out := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		r := bufio.NewReader(conn)
		write := func(s string) { conn.Write([]byte(s + "\r\n")) }
		write("220 fake ESMTP")

		var data strings.Builder
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			cmd := strings.ToUpper(strings.TrimSpace(line))
			switch {
			case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
				write("250 fake")
			case strings.HasPrefix(cmd, "MAIL"), strings.HasPrefix(cmd, "RCPT"):
				write("250 OK")
			case cmd == "DATA":
				write("354 go ahead")
				for {
					l, err := r.ReadString('\n')
					if err != nil {
						return
					}
					if l == ".\r\n" {
						break
					}
					data.WriteString(l)
				}
				write("250 queued")
				out <- data.String()
			case cmd == "QUIT":
				write("221 bye")
				return
			default:
				write("502 unsupported")
			}
		}
	}()

	host, port, err = net.SplitHostPort(ln.Addr().String())
	if err != nil {
		t.Fatalf("split address: %v", err)
	}
	return host, port, out
}

func testUsers() (*models.User, *models.User, *models.Thesis) {
	professor := &models.User{Email: "prof@example.edu", FirstName: "Ada", LastName: "Lovelace", Role: models.RoleProfessor}
	student := &models.User{Email: "student@example.edu", FirstName: "Alan", LastName: "Turing", Role: models.RoleStudent}
	thesis := &models.Thesis{ID: 42, Title: "Consensus <script>alert(1)</script>"}
	return professor, student, thesis
}

func TestInvitationReceivedDisabled(t *testing.T) {
	svc := NewService(&config.EmailConfig{Enabled: false, PortalURL: "http://portal"}, "Thesis Portal")
	professor, student, thesis := testUsers()

	if err := svc.InvitationReceived(context.Background(), professor, student, thesis); err != nil {
		t.Errorf("Disabled email should not fail: %v", err)
	}
}

func TestInvitationReceivedSendsEscapedHTML(t *testing.T) {
	host, port, received := fakeSMTP(t)
	svc := NewService(&config.EmailConfig{
		Enabled:   true,
		SMTPHost:  host,
		SMTPPort:  port,
		SMTPFrom:  "noreply@example.edu",
		PortalURL: "http://portal",
	}, "Thesis Portal")
	professor, student, thesis := testUsers()

	if err := svc.InvitationReceived(context.Background(), professor, student, thesis); err != nil {
		t.Fatalf("InvitationReceived() error: %v", err)
	}

	msg := <-received
	if !strings.Contains(msg, "To: prof@example.edu") {
		t.Errorf("Missing recipient header:\n%s", msg)
	}
	if !strings.Contains(msg, "Alan Turing has invited you") {
		t.Errorf("Missing student name:\n%s", msg)
	}
	if strings.Contains(msg, "<script>") {
		t.Errorf("Thesis title must be escaped:\n%s", msg)
	}
	if !strings.Contains(msg, "http://portal/invitations") {
		t.Errorf("Missing portal link:\n%s", msg)
	}
}

func TestSendFailsWhenServerUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	_, port, _ := net.SplitHostPort(addr)
	svc := NewService(&config.EmailConfig{Enabled: true, SMTPHost: "127.0.0.1", SMTPPort: port, PortalURL: "http://portal"}, "Thesis Portal")
	professor, _, thesis := testUsers()

	if err := svc.ThesisFinalized(context.Background(), professor, thesis); err == nil {
		t.Error("Expected connection error")
	}
}

func TestBuildMessageHeaders(t *testing.T) {
	svc := NewService(&config.EmailConfig{SMTPFrom: "noreply@example.edu"}, "Thesis Portal")
	msg := string(svc.buildMessage("a@example.edu", "Thesis completed", "<p>body</p>"))

	for _, want := range []string{
		"From: noreply@example.edu\r\n",
		"To: a@example.edu\r\n",
		"Subject: Thesis completed\r\n",
		"Content-Type: text/html; charset=UTF-8\r\n",
		"\r\n\r\n<p>body</p>",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("Message missing %q:\n%s", want, msg)
		}
	}
}
