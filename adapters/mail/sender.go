package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	gomail "github.com/wneessen/go-mail"

	"commerce/notify"
)

var _ notify.Sender = (*Sender)(nil)

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// dialer 是 gomail.Client 中 Sender 需要的部分
type dialer interface {
	DialAndSendWithContext(ctx context.Context, messages ...*gomail.Msg) error
}

type senderOptions struct {
	logger *slog.Logger
	dialer dialer
}

type Option func(*senderOptions)

func WithLogger(logger *slog.Logger) Option {
	return func(o *senderOptions) {
		o.logger = logger
	}
}

func withDialer(d dialer) Option {
	return func(o *senderOptions) {
		o.dialer = d
	}
}

// Sender 透過 SMTP 寄送通知信
type Sender struct {
	from    string
	dialer  dialer
	logger  *slog.Logger
	options senderOptions
}

func NewSender(config Config, opts ...Option) (*Sender, error) {
	const op = "mail.NewSender"
	if config.From == "" {
		return nil, errors.New("from address cannot be empty")
	}
	options := senderOptions{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&options)
	}

	d := options.dialer
	if d == nil {
		clientOpts := []gomail.Option{
			gomail.WithPort(config.Port),
			gomail.WithTLSPolicy(gomail.TLSOpportunistic),
		}
		if config.Username != "" {
			clientOpts = append(clientOpts,
				gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
				gomail.WithUsername(config.Username),
				gomail.WithPassword(config.Password),
			)
		}
		client, err := gomail.NewClient(config.Host, clientOpts...)
		if err != nil {
			return nil, fmt.Errorf("[%s] Fail to create smtp client, err=%w", op, err)
		}
		d = client
	}

	return &Sender{
		from:    config.From,
		dialer:  d,
		logger:  options.logger.With(slog.String("caller", "MailSender")),
		options: options,
	}, nil
}

// Message 將寄信工作轉換成郵件
func (s *Sender) Message(job notify.EmailJob) (*gomail.Msg, error) {
	const op = "Sender.Message"
	msg := gomail.NewMsg()
	if err := msg.From(s.from); err != nil {
		return nil, fmt.Errorf("[%s] Invalid from address %s, err=%w", op, s.from, err)
	}
	if err := msg.To(job.To); err != nil {
		return nil, fmt.Errorf("[%s] Invalid recipient address %s, err=%w", op, job.To, err)
	}
	msg.Subject(job.Subject)
	msg.SetBodyString(gomail.TypeTextPlain, job.Body)
	msg.SetDateWithValue(job.CreatedAt)
	if job.ID != "" {
		msg.SetMessageIDWithValue(job.ID + "@commerce")
	}
	return msg, nil
}

func (s *Sender) Send(ctx context.Context, job notify.EmailJob) error {
	const op = "Sender.Send"
	msg, err := s.Message(job)
	if err != nil {
		return err
	}
	if err := s.dialer.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("[%s] Fail to send mail %s, err=%w", op, job.ID, err)
	}
	s.logger.Debug("mail sent", slog.String("id", job.ID), slog.String("to", job.To))
	return nil
}
