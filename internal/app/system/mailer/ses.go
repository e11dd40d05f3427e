package mailer

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// sesAPI is the part of the SES v2 client we call.
type sesAPI interface {
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

type sesSender struct {
	client sesAPI
}

// newSESSender uses static credentials when both keys are configured and
// the default AWS credential chain otherwise.
func newSESSender(ctx context.Context, cfg Config) (*sesSender, error) {
	if cfg.SESRegion == "" {
		return nil, errors.New("mailer: ses region is required")
	}
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.SESRegion)}
	if cfg.SESAccessKey != "" && cfg.SESSecretKey != "" {
		cred := credentials.NewStaticCredentialsProvider(cfg.SESAccessKey, cfg.SESSecretKey, "")
		opts = append(opts, config.WithCredentialsProvider(cred))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("mailer: load aws config: %w", err)
	}
	return &sesSender{client: sesv2.NewFromConfig(awsCfg)}, nil
}

func (s *sesSender) Send(ctx context.Context, from string, msg Email) error {
	body := &types.Body{Text: &types.Content{Data: aws.String(msg.TextBody)}}
	if msg.HTMLBody != "" {
		body.Html = &types.Content{Data: aws.String(msg.HTMLBody)}
	}

	in := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination:      &types.Destination{ToAddresses: []string{msg.To}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject)},
				Body:    body,
			},
		},
	}

	out, err := s.client.SendEmail(ctx, in)
	if err != nil {
		return fmt.Errorf("ses send: %w", err)
	}
	if out == nil {
		return errors.New("ses send: empty response")
	}
	return nil
}
