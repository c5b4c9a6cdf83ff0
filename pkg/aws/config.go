package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/rs/zerolog/log"

	"presence.service/internal/config"
)

// NewAWSConfig creates a new AWS configuration, pointing to LocalStack if an endpoint is provided.
func NewAWSConfig(ctx context.Context, appConfig config.Config) (aws.Config, error) {
	opts := []func(*awsConfig.LoadOptions) error{
		awsConfig.WithRegion(appConfig.AWSRegion),
	}

	if appConfig.IsLocalDev {
		log.Info().Str("endpoint", appConfig.AWSEndpoint).Msg("Local development mode detected. Routing AWS calls to LocalStack.")
		if appConfig.AWSEndpoint != "" {
			opts = append(opts, awsConfig.WithBaseEndpoint(appConfig.AWSEndpoint))
		}
		opts = append(opts, awsConfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("test", "test", "")))
		return awsConfig.LoadDefaultConfig(ctx, opts...)
	}

	// Outside local development the standard credential chain applies
	// (environment, IAM role for service accounts).
	log.Info().Msg("Production mode detected. Using standard AWS credential chain.")
	return awsConfig.LoadDefaultConfig(ctx, opts...)
}
