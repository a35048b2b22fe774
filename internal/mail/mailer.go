// Package mail composes and delivers recipe emails over SMTP.
package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"text/template"
	"time"

	gomail "github.com/emersion/go-message/mail"
	"github.com/windoze95/recipe-search-api/internal/config"
	"github.com/windoze95/recipe-search-api/internal/models"
)

// SendFunc delivers msg through the relay at addr. It must give up once ctx
// is done.
type SendFunc func(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer sends recipe emails through an SMTP relay.
type SMTPMailer struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Send     SendFunc
}

// NewSMTPMailer creates an SMTPMailer from the SMTP settings in cfg.
func NewSMTPMailer(cfg *config.Config) *SMTPMailer {
	return &SMTPMailer{
		Host:     cfg.EnvVars.SMTPHost,
		Port:     cfg.EnvVars.SMTPPort,
		Username: cfg.EnvVars.SMTPUsername,
		Password: cfg.EnvVars.SMTPPassword,
		From:     cfg.EnvVars.SMTPFrom,
		Send:     SendMail,
	}
}

// SendMail is smtp.SendMail bound to ctx. The connection deadline follows
// ctx, so a stalled relay cannot hold the caller past it.
func SendMail(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() {
		conn.SetDeadline(time.Now())
	})
	defer stop()

	c, err := smtp.NewClient(conn, host)
	if err != nil {
		conn.Close()
		return err
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: host}); err != nil {
			return err
		}
	}
	if a != nil {
		if ok, _ := c.Extension("AUTH"); !ok {
			return errors.New("smtp: server doesn't support AUTH")
		}
		if err := c.Auth(a); err != nil {
			return err
		}
	}
	if err := c.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

// SendRecipe emails recipe to the given address.
func (m *SMTPMailer) SendRecipe(ctx context.Context, to string, recipe *models.RecipeDetail) error {
	if m.Host == "" || m.From == "" {
		return errors.New("SMTP not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg, err := ComposeRecipeEmail(m.From, to, recipe, time.Now())
	if err != nil {
		return err
	}

	var auth smtp.Auth
	if m.Username != "" {
		auth = smtp.PlainAuth("", m.Username, m.Password, m.Host)
	}

	addr := m.Host + ":" + strconv.Itoa(m.Port)
	if err := m.Send(ctx, addr, auth, m.From, []string{to}, msg); err != nil {
		return fmt.Errorf("failed to send recipe email: %w", err)
	}
	return nil
}

var recipeBody = template.Must(template.New("recipe").Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}).Parse(`{{.Name}}

Meal type: {{.MealType}}
Cook time: {{.CookTimeMinutes}} minutes

Ingredients:
{{range .Ingredients}}- {{.Quantity}} {{.Name}}
{{end}}
Steps:
{{range $i, $s := .Steps}}{{inc $i}}. {{$s.Description}} ({{$s.EstimatedMinutes}} min)
{{end}}
{{if .ImageURL}}Photo: {{.ImageURL}}
{{end}}`))

// ComposeRecipeEmail renders recipe as a plain-text RFC 5322 message.
func ComposeRecipeEmail(from, to string, recipe *models.RecipeDetail, date time.Time) ([]byte, error) {
	var h gomail.Header
	h.SetDate(date)
	h.SetAddressList("From", []*gomail.Address{{Address: from}})
	h.SetAddressList("To", []*gomail.Address{{Address: to}})
	h.SetSubject("Recipe: " + recipe.Name)
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	if err := h.GenerateMessageID(); err != nil {
		return nil, fmt.Errorf("failed to generate message id: %w", err)
	}

	var buf bytes.Buffer
	w, err := gomail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("failed to create message writer: %w", err)
	}
	if err := recipeBody.Execute(w, recipe); err != nil {
		return nil, fmt.Errorf("failed to render recipe email: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish message: %w", err)
	}
	return buf.Bytes(), nil
}
