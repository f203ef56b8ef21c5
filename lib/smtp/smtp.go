package smtp

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type Provider interface {
	// SendEMail gives up when ctx is done, whatever stage the SMTP dialogue is in.
	SendEMail(ctx context.Context, to, subject, message string) error
}

type Params struct {
	User       string
	Password   string
	Host       string
	Port       string
	TLSEnabled bool
	From       string
	// Timeout bounds one delivery from dialing to QUIT.
	Timeout time.Duration
}

const DefaultTimeout = 10 * time.Second

func NewSender(params Params) Provider {
	if params.Timeout <= 0 {
		params.Timeout = DefaultTimeout
	}
	return &impl{
		params: params,
	}
}

type impl struct {
	params Params
}

func (i impl) configured() bool {
	return i.params.User != "" && i.params.Host != "" && i.params.Port != ""
}

func (i impl) SendEMail(ctx context.Context, to, subject, message string) (err error) {
	logger := log.WithField("recipient", to)
	if !i.configured() {
		logger.Warn("Email not sent, smtp client is not configured")
		return nil
	}
	body := strings.NewReader(BuildMessage(i.sender(), to, subject, message))
	if err = i.send(ctx, to, body); err != nil {
		logger.WithError(err).Error("Email sending failed")
		return err
	}
	logger.Info("Email sent")
	return nil
}

func (i impl) send(ctx context.Context, to string, body *strings.Reader) error {
	ctx, cancel := context.WithTimeout(ctx, i.params.Timeout)
	defer cancel()
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(i.params.Host, i.params.Port))
	if err != nil {
		return errors.Wrap(i.failure(ctx, err), "smtp dial")
	}
	// closing the connection unblocks whatever command is in flight
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	tlsConfig := &tls.Config{ServerName: i.params.Host}
	var client *smtp.Client
	if i.params.TLSEnabled {
		client = smtp.NewClient(tls.Client(conn, tlsConfig))
	} else {
		client, err = smtp.NewClientStartTLS(conn, tlsConfig)
		if err != nil {
			_ = conn.Close()
			return i.failure(ctx, err)
		}
	}
	defer client.Close()
	client.CommandTimeout = i.params.Timeout
	client.SubmissionTimeout = i.params.Timeout

	if ok, _ := client.Extension("AUTH"); !ok {
		return i.failure(ctx, errors.New("smtp server does not support AUTH"))
	}
	if err = client.Auth(sasl.NewPlainClient("", i.params.User, i.params.Password)); err != nil {
		return i.failure(ctx, err)
	}
	if err = client.SendMail(i.params.User, []string{to}, body); err != nil {
		return i.failure(ctx, err)
	}
	return i.failure(ctx, client.Quit())
}

// failure reports the context error when the connection was closed because of it.
func (i impl) failure(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return errors.Wrap(ctxErr, "smtp send")
	}
	return err
}

func (i impl) sender() string {
	if i.params.From != "" {
		return i.params.From
	}
	return i.params.User
}

// BuildMessage renders a plain text RFC 5322 message.
func BuildMessage(from, to, subject, message string) string {
	headers := []string{
		"From: " + from,
		"To: " + to,
		"Subject: Approvals - " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
	}
	return fmt.Sprintf("%s\r\n\r\n%s\r\n", strings.Join(headers, "\r\n"), message)
}
