package mainconfig

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/wolfman30/sitegen-supportchat/internal/config"
)

func TestLoadAWSConfigEndpointOverride(t *testing.T) {
	cfg := &appconfig.Config{
		AWSRegion:           "eu-south-1",
		AWSAccessKeyID:      "test",
		AWSSecretAccessKey:  "test",
		AWSEndpointOverride: "http://localhost:4566",
	}
	awsCfg, err := LoadAWSConfig(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "eu-south-1", awsCfg.Region)

	creds, err := awsCfg.Credentials.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "test", creds.AccessKeyID)

	ep, err := awsCfg.EndpointResolverWithOptions.ResolveEndpoint(sqs.ServiceID, "eu-south-1")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:4566", ep.URL)

	ep, err = awsCfg.EndpointResolverWithOptions.ResolveEndpoint(s3.ServiceID, "eu-south-1")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:4566", ep.URL)

	_, err = awsCfg.EndpointResolverWithOptions.ResolveEndpoint("DynamoDB", "eu-south-1")
	var notFound *aws.EndpointNotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestLoadAWSConfigWithoutOverride(t *testing.T) {
	awsCfg, err := LoadAWSConfig(context.Background(), &appconfig.Config{AWSRegion: "us-east-1"})
	require.NoError(t, err)
	assert.Nil(t, awsCfg.EndpointResolverWithOptions)
	assert.NotNil(t, NewS3Client(awsCfg, &appconfig.Config{}))
}
