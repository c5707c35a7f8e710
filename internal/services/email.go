package services

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/ses"
	"github.com/aws/aws-sdk-go/service/ses/sesiface"
	"github.com/chachabrian/rideon-backend/internal/config"
	"github.com/chachabrian/rideon-backend/pkg/logger"
)

// EmailSender dispatches one message with plain text and HTML bodies
type EmailSender interface {
	Send(ctx context.Context, to, subject, textBody, htmlBody string) error
}

// NewEmailSender picks the provider named in configuration
func NewEmailSender(cfg config.EmailConfig, awsSession *session.Session, log *logger.Logger) EmailSender {
	switch cfg.Provider {
	case "smtp":
		return NewSMTPEmailSender(cfg, log)
	case "ses":
		return NewSESEmailSender(ses.New(awsSession), cfg.From, cfg.FromName, log)
	default:
		return NewLogEmailSender(log)
	}
}

// LogEmailSender only logs. Used in development.
type LogEmailSender struct {
	log *logger.Logger
}

func NewLogEmailSender(log *logger.Logger) *LogEmailSender {
	return &LogEmailSender{log: log}
}

func (l *LogEmailSender) Send(ctx context.Context, to, subject, textBody, htmlBody string) error {
	l.log.Info("Email (log provider)",
		logger.String("to", to),
		logger.String("subject", subject),
		logger.String("body", textBody),
	)
	return nil
}

type SMTPEmailSender struct {
	host, port, user, pass string
	from, fromName         string
	log                    *logger.Logger
	sendMail               func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPEmailSender(cfg config.EmailConfig, log *logger.Logger) *SMTPEmailSender {
	return &SMTPEmailSender{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		user:     cfg.SMTPUser,
		pass:     cfg.SMTPPass,
		from:     cfg.From,
		fromName: cfg.FromName,
		log:      log,
		sendMail: smtp.SendMail,
	}
}

func (s *SMTPEmailSender) Send(ctx context.Context, to, subject, textBody, htmlBody string) error {
	if s.host == "" || s.port == "" {
		return fmt.Errorf("smtp configuration not set")
	}

	const boundary = "rideon-alt-boundary"
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s <%s>\r\n", s.fromName, s.from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", boundary)
	fmt.Fprintf(&b, "--%s\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s\r\n", boundary, textBody)
	fmt.Fprintf(&b, "--%s\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s\r\n", boundary, htmlBody)
	fmt.Fprintf(&b, "--%s--\r\n", boundary)

	var auth smtp.Auth
	if s.user != "" {
		auth = smtp.PlainAuth("", s.user, s.pass, s.host)
	}

	if err := s.sendMail(s.host+":"+s.port, auth, s.from, []string{to}, []byte(b.String())); err != nil {
		s.log.Error("Failed to send email", logger.String("to", to), logger.Err(err))
		return err
	}

	s.log.Info("Email sent", logger.String("to", to), logger.String("subject", subject))
	return nil
}

type SESEmailSender struct {
	client   sesiface.SESAPI
	from     string
	fromName string
	log      *logger.Logger
}

func NewSESEmailSender(client sesiface.SESAPI, from, fromName string, log *logger.Logger) *SESEmailSender {
	return &SESEmailSender{client: client, from: from, fromName: fromName, log: log}
}

func (s *SESEmailSender) Send(ctx context.Context, to, subject, textBody, htmlBody string) error {
	_, err := s.client.SendEmailWithContext(ctx, &ses.SendEmailInput{
		Source:      aws.String(fmt.Sprintf("%s <%s>", s.fromName, s.from)),
		Destination: &ses.Destination{ToAddresses: []*string{aws.String(to)}},
		Message: &ses.Message{
			Subject: &ses.Content{Charset: aws.String("UTF-8"), Data: aws.String(subject)},
			Body: &ses.Body{
				Text: &ses.Content{Charset: aws.String("UTF-8"), Data: aws.String(textBody)},
				Html: &ses.Content{Charset: aws.String("UTF-8"), Data: aws.String(htmlBody)},
			},
		},
	})
	if err != nil {
		s.log.Error("SES send failed", logger.String("to", to), logger.Err(err))
		return err
	}
	return nil
}

const emailHeader = `<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
	<div style="max-width: 600px; margin: 0 auto; padding: 20px;">
		<div style="text-align: center; background-color: #f9f9f9; padding: 20px;">
			<h2 style="color: #4CAF50; margin: 0;">RideOn</h2>
		</div>
`

const emailFooter = `
		<div style="text-align: center; margin-top: 20px; font-size: 12px; color: #666;">
			<p>This is an automated message, please do not reply to this email.</p>
		</div>
	</div>
</body>
</html>
`

// Email is a rendered message ready for an EmailSender
type Email struct {
	Subject string
	Text    string
	HTML    string
}

func actionEmail(subject, greeting, intro, buttonLabel, link, outro string) Email {
	text := fmt.Sprintf("%s\n\n%s\n\n%s\n\n%s\n\nThe RideOn Team", greeting, intro, link, outro)
	html := emailHeader + fmt.Sprintf(`
		<div style="padding: 20px;">
			<p>%s</p>
			<p>%s</p>
			<div style="text-align: center; margin: 30px 0;">
				<a href="%s" style="background-color: #4CAF50; color: white; padding: 12px 25px; text-decoration: none; border-radius: 5px;">%s</a>
			</div>
			<p>%s</p>
			<p>Best regards,<br>The RideOn Team</p>
		</div>`, greeting, intro, link, buttonLabel, outro) + emailFooter
	return Email{Subject: subject, Text: text, HTML: html}
}

// VerificationEmail asks a new user to confirm their address
func VerificationEmail(name, link string) Email {
	return actionEmail(
		"Verify your RideOn account",
		fmt.Sprintf("Hello %s,", name),
		"Thanks for signing up. Please confirm your email address to activate your account.",
		"Verify Email",
		link,
		"If you did not create an account, you can ignore this email.",
	)
}

// PasswordResetEmail carries a single-use reset link
func PasswordResetEmail(name, link string, validHours int) Email {
	return actionEmail(
		"Reset your RideOn password",
		fmt.Sprintf("Hello %s,", name),
		"We received a request to reset your password.",
		"Reset Password",
		link,
		fmt.Sprintf("This link is valid for %d hours and can be used once. If you did not request it, ignore this email.", validHours),
	)
}
