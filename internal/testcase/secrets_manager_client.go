package testcase

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/evergreen-ci/strongbox"
	"github.com/evergreen-ci/strongbox/internal/testutil"
	"github.com/evergreen-ci/utility"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SecretsManagerClientTestCase represents a test case for a
// strongbox.SecretsManagerClient.
type SecretsManagerClientTestCase func(ctx context.Context, t *testing.T, c strongbox.SecretsManagerClient)

// SecretsManagerClientTests returns common test cases that a
// strongbox.SecretsManagerClient should support.
func SecretsManagerClientTests() map[string]SecretsManagerClientTestCase {
	return map[string]SecretsManagerClientTestCase{
		"CreateSecretSucceeds": func(ctx context.Context, t *testing.T, c strongbox.SecretsManagerClient) {
			out, err := c.CreateSecret(ctx, &secretsmanager.CreateSecretInput{
				Name:         aws.String(testutil.NewSecretName(t)),
				SecretString: aws.String(utility.RandomString()),
			})
			require.NoError(t, err)
			require.NotZero(t, out)

			cleanupSecret(ctx, t, c, out)
		},
		"CreateSecretFailsWithInvalidInput": func(ctx context.Context, t *testing.T, c strongbox.SecretsManagerClient) {
			out, err := c.CreateSecret(ctx, &secretsmanager.CreateSecretInput{})
			assert.Error(t, err)
			assert.Zero(t, out)
		},
		"GetSecretValueSucceedsWithExistingSecret": func(ctx context.Context, t *testing.T, c strongbox.SecretsManagerClient) {
			secretName := testutil.NewSecretName(t)
			createOut, err := c.CreateSecret(ctx, &secretsmanager.CreateSecretInput{
				Name:         aws.String(secretName),
				SecretString: aws.String("foo"),
			})
			require.NoError(t, err)
			require.NotZero(t, createOut)

			defer cleanupSecret(ctx, t, c, createOut)

			require.NotZero(t, createOut.ARN)

			out, err := c.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
				SecretId: createOut.ARN,
			})
			require.NoError(t, err)
			require.NotZero(t, out)
			assert.Equal(t, "foo", utility.FromStringPtr(out.SecretString))
			assert.Equal(t, secretName, utility.FromStringPtr(out.Name))
			assert.NotZero(t, utility.FromStringPtr(out.VersionId))
		},
		"GetSecretValueFailsWithInvalidInput": func(ctx context.Context, t *testing.T, c strongbox.SecretsManagerClient) {
			out, err := c.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{})
			assert.Error(t, err)
			assert.Zero(t, out)
		},
		"GetSecretValueFailsWithValidNonexistentSecret": func(ctx context.Context, t *testing.T, c strongbox.SecretsManagerClient) {
			out, err := c.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
				SecretId: aws.String(testutil.NewSecretName(t)),
			})
			assert.Error(t, err)
			assert.Zero(t, out)
		},
		"BatchGetSecretValueReturnsMatchingSecrets": func(ctx context.Context, t *testing.T, c strongbox.SecretsManagerClient) {
			createOut0 := testutil.CreateSecret(ctx, t, c, secretsmanager.CreateSecretInput{
				Name:         aws.String(testutil.NewSecretName(t)),
				SecretString: aws.String("foo"),
			})
			defer cleanupSecret(ctx, t, c, &createOut0)
			createOut1 := testutil.CreateSecret(ctx, t, c, secretsmanager.CreateSecretInput{
				Name:         aws.String(testutil.NewSecretName(t)),
				SecretString: aws.String("bar"),
			})
			defer cleanupSecret(ctx, t, c, &createOut1)

			out, err := c.BatchGetSecretValue(ctx, &secretsmanager.BatchGetSecretValueInput{
				SecretIdList: []string{
					utility.FromStringPtr(createOut0.ARN),
					utility.FromStringPtr(createOut1.ARN),
				},
			})
			require.NoError(t, err)
			require.NotZero(t, out)
			assert.Empty(t, out.Errors)
			require.Len(t, out.SecretValues, 2)

			values := map[string]string{}
			for _, entry := range out.SecretValues {
				values[utility.FromStringPtr(entry.Name)] = utility.FromStringPtr(entry.SecretString)
			}
			assert.Equal(t, "foo", values[utility.FromStringPtr(createOut0.Name)])
			assert.Equal(t, "bar", values[utility.FromStringPtr(createOut1.Name)])
		},
		"BatchGetSecretValueReportsPerSecretErrors": func(ctx context.Context, t *testing.T, c strongbox.SecretsManagerClient) {
			out, err := c.BatchGetSecretValue(ctx, &secretsmanager.BatchGetSecretValueInput{
				SecretIdList: []string{testutil.NewSecretName(t)},
			})
			require.NoError(t, err)
			require.NotZero(t, out)
			assert.Empty(t, out.SecretValues)
			require.Len(t, out.Errors, 1)
			assert.NotZero(t, utility.FromStringPtr(out.Errors[0].ErrorCode))
		},
		"UpdateSecretSucceedsWithExistingSecret": func(ctx context.Context, t *testing.T, c strongbox.SecretsManagerClient) {
			secretName := testutil.NewSecretName(t)
			createOut, err := c.CreateSecret(ctx, &secretsmanager.CreateSecretInput{
				Name:         aws.String(secretName),
				SecretString: aws.String("bar"),
			})
			require.NoError(t, err)
			require.NotZero(t, createOut)

			defer cleanupSecret(ctx, t, c, createOut)

			require.NotZero(t, createOut.ARN)

			updateOut, err := c.UpdateSecret(ctx, &secretsmanager.UpdateSecretInput{
				SecretId:     createOut.ARN,
				SecretString: aws.String("leaf"),
			})
			require.NoError(t, err)
			require.NotZero(t, updateOut)

			getOut, err := c.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
				SecretId: createOut.ARN,
			})
			require.NoError(t, err)
			require.NotZero(t, getOut)
			assert.Equal(t, "leaf", utility.FromStringPtr(getOut.SecretString))
			assert.Equal(t, secretName, utility.FromStringPtr(getOut.Name))
		},
		"UpdateSecretFailsWithInvalidInput": func(ctx context.Context, t *testing.T, c strongbox.SecretsManagerClient) {
			out, err := c.UpdateSecret(ctx, &secretsmanager.UpdateSecretInput{})
			assert.Error(t, err)
			assert.Zero(t, out)
		},
		"UpdateSecretFailsWithValidNonexistentSecret": func(ctx context.Context, t *testing.T, c strongbox.SecretsManagerClient) {
			out, err := c.UpdateSecret(ctx, &secretsmanager.UpdateSecretInput{
				SecretId:     aws.String(testutil.NewSecretName(t)),
				SecretString: aws.String("hello"),
			})
			assert.Error(t, err)
			assert.Zero(t, out)
		},
		"DescribeSecretSucceeds": func(ctx context.Context, t *testing.T, c strongbox.SecretsManagerClient) {
			secretName := testutil.NewSecretName(t)
			createOut, err := c.CreateSecret(ctx, &secretsmanager.CreateSecretInput{
				Name:         aws.String(secretName),
				SecretString: aws.String("bar"),
			})
			require.NoError(t, err)
			require.NotZero(t, createOut)

			defer cleanupSecret(ctx, t, c, createOut)

			out, err := c.DescribeSecret(ctx, &secretsmanager.DescribeSecretInput{
				SecretId: createOut.ARN,
			})
			require.NoError(t, err)
			require.NotZero(t, out)
			assert.Equal(t, secretName, utility.FromStringPtr(out.Name))
		},
		"DescribeSecretFailsWithValidNonexistentSecret": func(ctx context.Context, t *testing.T, c strongbox.SecretsManagerClient) {
			out, err := c.DescribeSecret(ctx, &secretsmanager.DescribeSecretInput{
				SecretId: aws.String(testutil.NewSecretName(t)),
			})
			assert.Error(t, err)
			assert.Zero(t, out)
		},
		"ListSecretVersionIdsReturnsCurrentVersion": func(ctx context.Context, t *testing.T, c strongbox.SecretsManagerClient) {
			createOut := testutil.CreateSecret(ctx, t, c, secretsmanager.CreateSecretInput{
				Name:         aws.String(testutil.NewSecretName(t)),
				SecretString: aws.String("foo"),
			})
			defer cleanupSecret(ctx, t, c, &createOut)

			out, err := c.ListSecretVersionIds(ctx, &secretsmanager.ListSecretVersionIdsInput{
				SecretId:          createOut.ARN,
				IncludeDeprecated: utility.TruePtr(),
			})
			require.NoError(t, err)
			require.NotZero(t, out)
			require.Len(t, out.Versions, 1)
			assert.Equal(t, utility.FromStringPtr(createOut.VersionId), utility.FromStringPtr(out.Versions[0].VersionId))
			assert.Contains(t, out.Versions[0].VersionStages, "AWSCURRENT")
		},
		"ListSecretVersionIdsReturnsVersionPerUpdate": func(ctx context.Context, t *testing.T, c strongbox.SecretsManagerClient) {
			createOut := testutil.CreateSecret(ctx, t, c, secretsmanager.CreateSecretInput{
				Name:         aws.String(testutil.NewSecretName(t)),
				SecretString: aws.String("foo"),
			})
			defer cleanupSecret(ctx, t, c, &createOut)

			updateOut, err := c.UpdateSecret(ctx, &secretsmanager.UpdateSecretInput{
				SecretId:     createOut.ARN,
				SecretString: aws.String("bar"),
			})
			require.NoError(t, err)
			require.NotZero(t, updateOut)

			out, err := c.ListSecretVersionIds(ctx, &secretsmanager.ListSecretVersionIdsInput{
				SecretId:          createOut.ARN,
				IncludeDeprecated: utility.TruePtr(),
			})
			require.NoError(t, err)
			require.NotZero(t, out)
			require.Len(t, out.Versions, 2)

			stages := map[string][]string{}
			for _, v := range out.Versions {
				stages[utility.FromStringPtr(v.VersionId)] = v.VersionStages
			}
			assert.Contains(t, stages[utility.FromStringPtr(createOut.VersionId)], "AWSPREVIOUS")
			assert.Contains(t, stages[utility.FromStringPtr(updateOut.VersionId)], "AWSCURRENT")
		},
		"TagResourceAddsTags": func(ctx context.Context, t *testing.T, c strongbox.SecretsManagerClient) {
			createOut := testutil.CreateSecret(ctx, t, c, secretsmanager.CreateSecretInput{
				Name:         aws.String(testutil.NewSecretName(t)),
				SecretString: aws.String("foo"),
			})
			defer cleanupSecret(ctx, t, c, &createOut)

			_, err := c.TagResource(ctx, &secretsmanager.TagResourceInput{
				SecretId: createOut.ARN,
				Tags: []types.Tag{
					{
						Key:   aws.String("environment"),
						Value: aws.String("test"),
					},
				},
			})
			require.NoError(t, err)

			describeOut, err := c.DescribeSecret(ctx, &secretsmanager.DescribeSecretInput{
				SecretId: createOut.ARN,
			})
			require.NoError(t, err)
			require.NotZero(t, describeOut)

			var found bool
			for _, tag := range describeOut.Tags {
				if utility.FromStringPtr(tag.Key) == "environment" {
					found = true
					assert.Equal(t, "test", utility.FromStringPtr(tag.Value))
				}
			}
			assert.True(t, found)
		},
		"TagResourceFailsWithValidNonexistentSecret": func(ctx context.Context, t *testing.T, c strongbox.SecretsManagerClient) {
			_, err := c.TagResource(ctx, &secretsmanager.TagResourceInput{
				SecretId: aws.String(testutil.NewSecretName(t)),
				Tags: []types.Tag{
					{
						Key:   aws.String("environment"),
						Value: aws.String("test"),
					},
				},
			})
			assert.Error(t, err)
		},
		"DeleteSecretSucceeds": func(ctx context.Context, t *testing.T, c strongbox.SecretsManagerClient) {
			createOut := testutil.CreateSecret(ctx, t, c, secretsmanager.CreateSecretInput{
				Name:         aws.String(testutil.NewSecretName(t)),
				SecretString: aws.String("foo"),
			})

			out, err := c.DeleteSecret(ctx, &secretsmanager.DeleteSecretInput{
				ForceDeleteWithoutRecovery: utility.TruePtr(),
				SecretId:                   createOut.ARN,
			})
			require.NoError(t, err)
			require.NotZero(t, out)
		},
		"DeleteSecretFailsWithInvalidInput": func(ctx context.Context, t *testing.T, c strongbox.SecretsManagerClient) {
			out, err := c.DeleteSecret(ctx, &secretsmanager.DeleteSecretInput{})
			assert.Error(t, err)
			assert.Zero(t, out)
		},
		"DeleteSecretFailsWithForceDeleteAndRecoveryWindow": func(ctx context.Context, t *testing.T, c strongbox.SecretsManagerClient) {
			createOut := testutil.CreateSecret(ctx, t, c, secretsmanager.CreateSecretInput{
				Name:         aws.String(testutil.NewSecretName(t)),
				SecretString: aws.String("foo"),
			})
			defer cleanupSecret(ctx, t, c, &createOut)

			out, err := c.DeleteSecret(ctx, &secretsmanager.DeleteSecretInput{
				ForceDeleteWithoutRecovery: utility.TruePtr(),
				RecoveryWindowInDays:       utility.ToInt64Ptr(7),
				SecretId:                   createOut.ARN,
			})
			assert.Error(t, err)
			assert.Zero(t, out)
		},
	}
}

// cleanupSecret cleans up an existing secret if it exists.
func cleanupSecret(ctx context.Context, t *testing.T, c strongbox.SecretsManagerClient, out *secretsmanager.CreateSecretOutput) {
	if out != nil && out.ARN != nil {
		out, err := c.DeleteSecret(ctx, &secretsmanager.DeleteSecretInput{
			ForceDeleteWithoutRecovery: utility.TruePtr(),
			SecretId:                   out.ARN,
		})
		require.NoError(t, err)
		require.NotZero(t, out)
	}
}
