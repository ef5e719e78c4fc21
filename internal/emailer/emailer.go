package emailer

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"os"
	"time"

	"github.com/Nazarious-ucu/nightjet-alerts/internal/config"
	"github.com/rs/zerolog"
)

const htmlHeaders = "MIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\""

type dialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// SMTPService delivers HTML mail through an SMTP relay. Every exchange with the relay
// is bounded by the caller's context.
type SMTPService struct {
	user     string
	host     string
	port     string
	password string
	From     string
	dial     dialFunc
	logger   zerolog.Logger
}

func NewSMTPService(cfg *config.Config, logger zerolog.Logger) *SMTPService {
	d := &net.Dialer{}
	return &SMTPService{
		user:     cfg.Email.User,
		host:     cfg.Email.Host,
		port:     cfg.Email.Port,
		password: cfg.Email.Password,
		From:     cfg.Email.From,
		dial:     d.DialContext,
		logger:   logger.With().Str("component", "SMTPService").Logger(),
	}
}

func (e *SMTPService) Send(ctx context.Context, to, subject, html string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	e.logger.Debug().Ctx(ctx).
		Str("to", to).
		Str("subject", subject).
		Msg("sending email")

	msg := "From: " + e.From + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		htmlHeaders + "\r\n\r\n" +
		html

	err := e.deliver(ctx, to, []byte(msg))
	duration := time.Since(start)
	if err != nil {
		e.logger.Error().Err(err).Ctx(ctx).
			Str("to", to).
			Str("subject", subject).
			Dur("duration", duration).
			Msg("email send failed")
		return err
	}

	e.logger.Info().Ctx(ctx).
		Str("to", to).
		Str("subject", subject).
		Dur("duration", duration).
		Msg("email sent successfully")
	return nil
}

func (e *SMTPService) deliver(ctx context.Context, to string, msg []byte) error {
	conn, err := e.dial(ctx, "tcp", net.JoinHostPort(e.host, e.port))
	if err != nil {
		return ctxErr(ctx, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return err
		}
	}
	// unblocks reads and writes when the caller cancels without a deadline
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if err := e.converse(conn, to, msg); err != nil {
		return ctxErr(ctx, err)
	}
	return nil
}

func (e *SMTPService) converse(conn net.Conn, to string, msg []byte) error {
	c, err := smtp.NewClient(conn, e.host)
	if err != nil {
		return err
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: e.host, MinVersion: tls.VersionTLS12}); err != nil {
			return err
		}
	}
	if e.user != "" {
		if ok, _ := c.Extension("AUTH"); !ok {
			return errors.New("smtp: server doesn't support AUTH")
		}
		if err := c.Auth(smtp.PlainAuth("", e.user, e.password, e.host)); err != nil {
			return err
		}
	}

	if err := c.Mail(e.From); err != nil {
		return err
	}
	if err := c.Rcpt(to); err != nil {
		return err
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

func ctxErr(ctx context.Context, err error) error {
	if cerr := ctx.Err(); cerr != nil {
		return fmt.Errorf("%w: %v", cerr, err)
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
	}
	return err
}

// LogMailer is the offline transport: it writes the message to the log and never dials out.
type LogMailer struct {
	logger zerolog.Logger
}

func NewLogMailer(logger zerolog.Logger) *LogMailer {
	return &LogMailer{logger: logger.With().Str("component", "LogMailer").Logger()}
}

func (l *LogMailer) Send(ctx context.Context, to, subject, html string) error {
	l.logger.Info().Ctx(ctx).
		Str("to", to).
		Str("subject", subject).
		Str("html", html).
		Msg("offline mode: email not sent")
	return nil
}
