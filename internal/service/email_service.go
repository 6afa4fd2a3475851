package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/tomgandolfo2/ESLworksheets/internal/logging"
	"github.com/tomgandolfo2/ESLworksheets/internal/validation"
)

// SESClient is the part of the SES v2 client used to send mail
type SESClient interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// EmailService handles sending emails via Amazon SES
type EmailService struct {
	client       SESClient
	fromEmail    string
	fromName     string
	contactEmail string
	enabled      bool
	debug        bool
	log          logging.Logger
}

// EmailConfig configures the email service
type EmailConfig struct {
	AWSRegion    string
	FromEmail    string
	FromName     string
	ContactEmail string // where contact form messages go; defaults to FromEmail
	Debug        bool
}

// NewEmailService creates a new email service
func NewEmailService(ctx context.Context, cfg EmailConfig, log logging.Logger) (*EmailService, error) {
	// If fromEmail is empty, create a disabled service
	if cfg.FromEmail == "" {
		log.Warn(ctx, "email service disabled: SES_FROM_EMAIL not configured")
		return &EmailService{enabled: false, debug: cfg.Debug, log: log}, nil
	}

	if cfg.Debug {
		log.Debug(ctx, "initializing email service with AWS SES",
			"region", cfg.AWSRegion, "from", cfg.FromEmail, "from_name", cfg.FromName, "contact", cfg.ContactEmail)
	}

	// Load AWS configuration
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	log.Info(ctx, "email service enabled", "from", cfg.FromEmail, "region", cfg.AWSRegion)
	return NewEmailServiceWithClient(sesv2.NewFromConfig(awsCfg), cfg, log), nil
}

// NewEmailServiceWithClient creates an enabled email service sending through client
func NewEmailServiceWithClient(client SESClient, cfg EmailConfig, log logging.Logger) *EmailService {
	contact := cfg.ContactEmail
	if contact == "" {
		contact = cfg.FromEmail
	}
	return &EmailService{
		client:       client,
		fromEmail:    cfg.FromEmail,
		fromName:     cfg.FromName,
		contactEmail: contact,
		enabled:      true,
		debug:        cfg.Debug,
		log:          log,
	}
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s.enabled
}

// ContactMessage is a message submitted through the public contact form
type ContactMessage struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// SendContactMessage forwards a visitor's message to the site contact address.
// Replies go straight back to the visitor.
func (s *EmailService) SendContactMessage(ctx context.Context, msg ContactMessage) error {
	msg.Name = strings.TrimSpace(msg.Name)
	msg.Email = strings.TrimSpace(msg.Email)
	msg.Message = strings.TrimSpace(msg.Message)

	if err := validation.ValidateRequired("name", msg.Name); err != nil {
		return invalid(err)
	}
	if err := validation.ValidateEmail(msg.Email); err != nil {
		return invalid(err)
	}
	if err := validation.ValidateMessage(msg.Message); err != nil {
		return invalid(err)
	}

	if !s.enabled {
		s.log.Info(ctx, "email disabled, contact message not sent", "from", msg.Email)
		return nil
	}

	subject := "Message from " + msg.Name
	text := fmt.Sprintf("Name: %s\nEmail: %s\n\n%s\n", msg.Name, msg.Email, msg.Message)

	if err := s.sendEmail(ctx, s.contactEmail, msg.Email, subject, text); err != nil {
		return upstream("send contact message", err)
	}
	return nil
}

// sendEmail sends a plain text email using Amazon SES
func (s *EmailService) sendEmail(ctx context.Context, toEmail, replyTo, subject, textBody string) error {
	fromAddress := s.fromEmail
	if s.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Text: &types.Content{
						Data:    aws.String(textBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}
	if replyTo != "" {
		input.ReplyToAddresses = []string{replyTo}
	}

	if s.debug {
		s.log.Debug(ctx, "calling SES SendEmail", "to", toEmail, "subject", subject)
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		s.log.Error(ctx, "SES SendEmail failed", "to", toEmail, "error", err)
		return fmt.Errorf("failed to send email to %s: %w", toEmail, err)
	}

	s.log.Info(ctx, "email sent", "to", toEmail, "subject", subject, "message_id", aws.ToString(result.MessageId))
	return nil
}
