package email

import (
	"bytes"
	"context"
	"html/template"
	"path/filepath"

	"github.com/Nazarious-ucu/nightjet-alerts/internal/models"
)

const (
	TicketsAvailableSubject = "NightJet Tickets Available!"

	ticketsTemplate = "tickets_available.html"
)

// Mailer is a mail transport. Send must report delivery failures to the caller.
type Mailer interface {
	Send(ctx context.Context, to, subject, html string) error
}

// alertMailer is implemented by transports that confirm delivery per alert later on.
type alertMailer interface {
	SendAlert(ctx context.Context, alertID, to, subject, html string) error
}

type Service struct {
	mailer      Mailer
	tmpl        *template.Template
	frontendURL string
}

func NewService(mailer Mailer, templatesDir, frontendURL string) (*Service, error) {
	tmpl, err := template.ParseFiles(filepath.Join(templatesDir, ticketsTemplate))
	if err != nil {
		return nil, err
	}
	return &Service{
		mailer:      mailer,
		tmpl:        tmpl,
		frontendURL: frontendURL,
	}, nil
}

// SendTicketsAvailable tells the alert owner that tickets for the watched train are on sale.
func (s *Service) SendTicketsAvailable(ctx context.Context, alert models.Alert) error {
	var body bytes.Buffer
	err := s.tmpl.Execute(&body, map[string]string{
		"TrainNumber": alert.TrainNumber,
		"Date":        alert.Date,
		"From":        alert.From,
		"To":          alert.To,
		"Link":        s.frontendURL,
	})
	if err != nil {
		return err
	}

	if am, ok := s.mailer.(alertMailer); ok {
		return am.SendAlert(ctx, alert.ID, alert.Email, TicketsAvailableSubject, body.String())
	}
	return s.mailer.Send(ctx, alert.Email, TicketsAvailableSubject, body.String())
}
