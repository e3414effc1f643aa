package cloud

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/rs/zerolog/log"

	"github.com/energia/energia-dashboard/internal/distribution"
	"github.com/energia/energia-dashboard/internal/report"
)

type publishAPI interface {
	Publish(ctx context.Context, in *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSClient sends operator notifications.
type SNSClient struct {
	svc      publishAPI
	topicArn string
}

func NewSNSClient(cfg aws.Config, topicArn string) *SNSClient {
	return &SNSClient{svc: sns.NewFromConfig(cfg), topicArn: topicArn}
}

func (c *SNSClient) SendAlert(ctx context.Context, subject, message string) error {
	out, err := c.svc.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(c.topicArn),
		Subject:  aws.String(subject),
		Message:  aws.String(message),
	})
	if err != nil {
		return fmt.Errorf("failed to publish to SNS: %w", err)
	}
	log.Debug().Str("message_id", aws.ToString(out.MessageId)).Msg("alert sent")
	return nil
}

// SendAllocationAlert reports matrizes whose own use plus filial shares
// exceed 100%. Checks that did not exceed are skipped.
func (c *SNSClient) SendAllocationAlert(ctx context.Context, checks []distribution.Check) error {
	var b strings.Builder
	n := 0
	for _, ch := range checks {
		if !ch.Exceeded {
			continue
		}
		n++
		fmt.Fprintf(&b, "%d. %s (matriz %d): uso proprio %s, filiais %s, disponivel %s\n",
			n, ch.GeneratorName, ch.GeneratorID,
			report.FormatPercent(ch.OwnUsePercent),
			report.FormatPercent(ch.DependentPercent),
			report.FormatPercent(ch.AvailablePercent))
	}
	if n == 0 {
		return nil
	}

	subject := "Energia: matriz acima de 100%"
	if n > 1 {
		subject = fmt.Sprintf("Energia: %d matrizes acima de 100%%", n)
	}
	return c.SendAlert(ctx, subject, "Distribuicao acima da capacidade:\n\n"+b.String())
}
