package services

import (
	"context"
	"fmt"
	"html"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"github.com/relativitydevhub/authservice/internal/models"
	pkglogger "github.com/relativitydevhub/authservice/pkg/logger"
)

// Notifier sends account lifecycle messages
type Notifier interface {
	SendWelcome(ctx context.Context, user *models.User) error
}

// SESAPI is the subset of the SES client used for sending
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESNotifier sends email through AWS SES
type SESNotifier struct {
	client      SESAPI
	fromAddress string
	serviceName string
	logger      *slog.Logger
}

// NewSESNotifier loads the default AWS credential chain for region
func NewSESNotifier(ctx context.Context, region, fromAddress, serviceName string, logger *slog.Logger) (*SESNotifier, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewSESNotifierWithClient(ses.NewFromConfig(cfg), fromAddress, serviceName, logger), nil
}

func NewSESNotifierWithClient(client SESAPI, fromAddress, serviceName string, logger *slog.Logger) *SESNotifier {
	return &SESNotifier{
		client:      client,
		fromAddress: fromAddress,
		serviceName: serviceName,
		logger:      logger,
	}
}

func (n *SESNotifier) SendWelcome(ctx context.Context, user *models.User) error {
	subject := fmt.Sprintf("Welcome to %s", n.serviceName)

	textBody := fmt.Sprintf("Hi %s,\n\nYour account has been created. You can now sign in with %s.\n\nThis is an automated message. Please do not reply to this email.\n",
		user.FirstName, user.Email)

	htmlBody := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <p>Hi %s,</p>
    <p>Your account has been created. You can now sign in with <strong>%s</strong>.</p>
    <p style="color: #666; font-size: 12px;">This is an automated message. Please do not reply to this email.</p>
</body>
</html>
`, html.EscapeString(user.FirstName), html.EscapeString(user.Email))

	result, err := n.client.SendEmail(ctx, &ses.SendEmailInput{
		Source: aws.String(n.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{user.Email},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Html: &types.Content{Data: aws.String(htmlBody)},
				Text: &types.Content{Data: aws.String(textBody)},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send welcome email: %w", err)
	}

	n.logger.Info("welcome email sent",
		slog.String("user_id", user.ID),
		slog.String("message_id", aws.ToString(result.MessageId)),
	)
	return nil
}

// LogNotifier records notifications in the log instead of sending them
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendWelcome(ctx context.Context, user *models.User) error {
	n.logger.InfoContext(ctx, "welcome notification skipped, email not configured",
		slog.String("user_id", user.ID),
		slog.String("email", pkglogger.SanitizedEmail(user.Email)),
	)
	return nil
}
