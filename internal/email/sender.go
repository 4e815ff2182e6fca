package email

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

// Dialer is the piece of gomail the sender needs; tests swap it out.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// Sender delivers the service's transactional mail. Callers treat delivery
// as best-effort: send errors are logged by the caller, never surfaced to
// the client.
type Sender struct {
	dialer  Dialer
	from    string
	baseURL string
}

func NewSender(host string, port int, username, password, from, baseURL string) *Sender {
	return &Sender{
		dialer:  gomail.NewDialer(host, port, username, password),
		from:    from,
		baseURL: baseURL,
	}
}

// NewSenderWithDialer exists for tests.
func NewSenderWithDialer(dialer Dialer, from, baseURL string) *Sender {
	return &Sender{dialer: dialer, from: from, baseURL: baseURL}
}

func (s *Sender) send(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	return s.dialer.DialAndSend(m)
}

// SendVerificationMail mails the confirm-your-address link built from the
// signed email token.
func (s *Sender) SendVerificationMail(to, token string) error {
	link := s.baseURL + "/v1/auth/verify/" + token
	body := fmt.Sprintf(`
		<h1>Click the link below</h1>
		<a href="%s">%s</a>
		<p>After 24 hours, the link will be expired.</p>`, link, link)

	return s.send(to, "Please confirm your email address", body)
}

// SendResetMail mails the password reset link.
func (s *Sender) SendResetMail(to, token string) error {
	link := s.baseURL + "/v1/auth/reset/" + token
	body := fmt.Sprintf(`
		<h1>Click the link below</h1>
		<a href="%s">%s</a>
		<p>After 15 minutes, the link will be expired.</p>
		<p>Simply ignore this email if you did not request it.</p>`, link, link)

	return s.send(to, "Password reset request", body)
}

// SendWelcomeMail greets a new account.
func (s *Sender) SendWelcomeMail(to, username string) error {
	body := fmt.Sprintf(`
		<h1>Welcome to Castive %s!</h1>
		<p>Start building your playlists and sharing!</p>`, username)

	return s.send(to, fmt.Sprintf("Welcome to Castive %s!", username), body)
}
