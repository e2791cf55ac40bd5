package secret

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/smithy-go"
	"github.com/evergreen-ci/strongbox/awsutil"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	pkgerrors "github.com/pkg/errors"
)

// BasicSecretsManagerClient provides a strongbox.SecretsManagerClient
// implementation that wraps the Secrets Manager API. It does not retry
// requests - throttling and transient failures are surfaced to the caller,
// who owns any retry policy.
type BasicSecretsManagerClient struct {
	sm   *secretsmanager.Client
	opts *awsutil.ClientOptions
}

// NewBasicSecretsManagerClient creates a new Secrets Manager client from the
// given options. No network I/O occurs until the first API call.
func NewBasicSecretsManagerClient(opts awsutil.ClientOptions) (*BasicSecretsManagerClient, error) {
	c := &BasicSecretsManagerClient{
		opts: &opts,
	}
	if err := c.opts.Validate(); err != nil {
		return nil, pkgerrors.Wrap(err, "invalid options")
	}

	return c, nil
}

func (c *BasicSecretsManagerClient) setup(ctx context.Context) error {
	if c.sm != nil {
		return nil
	}

	cfg, err := c.opts.GetConfig(ctx)
	if err != nil {
		return pkgerrors.Wrap(err, "initializing config")
	}

	c.sm = secretsmanager.NewFromConfig(*cfg)

	return nil
}

func logAPIError(err error, msg message.Fields) {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		grip.Debug(message.WrapError(apiErr, msg))
	}
}

// CreateSecret creates a new secret.
func (c *BasicSecretsManagerClient) CreateSecret(ctx context.Context, in *secretsmanager.CreateSecretInput) (*secretsmanager.CreateSecretOutput, error) {
	if err := c.setup(ctx); err != nil {
		return nil, pkgerrors.Wrap(err, "setting up client")
	}

	out, err := c.sm.CreateSecret(ctx, in)
	if err != nil {
		logAPIError(err, awsutil.MakeAPILogMessage("CreateSecret"))
		return nil, err
	}
	return out, nil
}

// GetSecretValue gets the decrypted value of a secret.
func (c *BasicSecretsManagerClient) GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput) (*secretsmanager.GetSecretValueOutput, error) {
	if err := c.setup(ctx); err != nil {
		return nil, pkgerrors.Wrap(err, "setting up client")
	}

	out, err := c.sm.GetSecretValue(ctx, in)
	if err != nil {
		logAPIError(err, awsutil.MakeAPILogMessage("GetSecretValue"))
		return nil, err
	}
	return out, nil
}

// BatchGetSecretValue gets the decrypted values of a batch of secrets in a
// single page.
func (c *BasicSecretsManagerClient) BatchGetSecretValue(ctx context.Context, in *secretsmanager.BatchGetSecretValueInput) (*secretsmanager.BatchGetSecretValueOutput, error) {
	if err := c.setup(ctx); err != nil {
		return nil, pkgerrors.Wrap(err, "setting up client")
	}

	out, err := c.sm.BatchGetSecretValue(ctx, in)
	if err != nil {
		logAPIError(err, awsutil.MakeAPILogMessage("BatchGetSecretValue"))
		return nil, err
	}
	return out, nil
}

// UpdateSecret updates an existing secret's value and metadata.
func (c *BasicSecretsManagerClient) UpdateSecret(ctx context.Context, in *secretsmanager.UpdateSecretInput) (*secretsmanager.UpdateSecretOutput, error) {
	if err := c.setup(ctx); err != nil {
		return nil, pkgerrors.Wrap(err, "setting up client")
	}

	out, err := c.sm.UpdateSecret(ctx, in)
	if err != nil {
		logAPIError(err, awsutil.MakeAPILogMessage("UpdateSecret"))
		return nil, err
	}
	return out, nil
}

// DeleteSecret deletes an existing secret.
func (c *BasicSecretsManagerClient) DeleteSecret(ctx context.Context, in *secretsmanager.DeleteSecretInput) (*secretsmanager.DeleteSecretOutput, error) {
	if err := c.setup(ctx); err != nil {
		return nil, pkgerrors.Wrap(err, "setting up client")
	}

	out, err := c.sm.DeleteSecret(ctx, in)
	if err != nil {
		logAPIError(err, awsutil.MakeAPILogMessage("DeleteSecret"))
		return nil, err
	}
	return out, nil
}

// DescribeSecret gets metadata information about a secret without its value.
func (c *BasicSecretsManagerClient) DescribeSecret(ctx context.Context, in *secretsmanager.DescribeSecretInput) (*secretsmanager.DescribeSecretOutput, error) {
	if err := c.setup(ctx); err != nil {
		return nil, pkgerrors.Wrap(err, "setting up client")
	}

	out, err := c.sm.DescribeSecret(ctx, in)
	if err != nil {
		logAPIError(err, awsutil.MakeAPILogMessage("DescribeSecret"))
		return nil, err
	}
	return out, nil
}

// ListSecrets gets a single page of metadata for secrets matching the input
// filters.
func (c *BasicSecretsManagerClient) ListSecrets(ctx context.Context, in *secretsmanager.ListSecretsInput) (*secretsmanager.ListSecretsOutput, error) {
	if err := c.setup(ctx); err != nil {
		return nil, pkgerrors.Wrap(err, "setting up client")
	}

	out, err := c.sm.ListSecrets(ctx, in)
	if err != nil {
		logAPIError(err, awsutil.MakeAPILogMessage("ListSecrets"))
		return nil, err
	}
	return out, nil
}

// ListSecretVersionIds lists the value versions of a secret.
func (c *BasicSecretsManagerClient) ListSecretVersionIds(ctx context.Context, in *secretsmanager.ListSecretVersionIdsInput) (*secretsmanager.ListSecretVersionIdsOutput, error) {
	if err := c.setup(ctx); err != nil {
		return nil, pkgerrors.Wrap(err, "setting up client")
	}

	out, err := c.sm.ListSecretVersionIds(ctx, in)
	if err != nil {
		logAPIError(err, awsutil.MakeAPILogMessage("ListSecretVersionIds"))
		return nil, err
	}
	return out, nil
}

// TagResource adds or replaces tags on a secret.
func (c *BasicSecretsManagerClient) TagResource(ctx context.Context, in *secretsmanager.TagResourceInput) (*secretsmanager.TagResourceOutput, error) {
	if err := c.setup(ctx); err != nil {
		return nil, pkgerrors.Wrap(err, "setting up client")
	}

	out, err := c.sm.TagResource(ctx, in)
	if err != nil {
		logAPIError(err, awsutil.MakeAPILogMessage("TagResource"))
		return nil, err
	}
	return out, nil
}

// Close closes the client and cleans up its resources.
func (c *BasicSecretsManagerClient) Close(ctx context.Context) error {
	c.opts.Close()
	return nil
}
