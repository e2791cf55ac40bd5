package mock

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/evergreen-ci/strongbox"
	"github.com/evergreen-ci/strongbox/internal/testcase"
	"github.com/evergreen-ci/utility"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecretsManagerClient(t *testing.T) {
	assert.Implements(t, (*strongbox.SecretsManagerClient)(nil), &SecretsManagerClient{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for tName, tCase := range testcase.SecretsManagerClientTests() {
		t.Run(tName, func(t *testing.T) {
			tctx, tcancel := context.WithTimeout(ctx, 30*time.Second)
			defer tcancel()

			ResetGlobalSecretCache()

			c := &SecretsManagerClient{}
			defer c.Close(tctx)

			tCase(tctx, t, c)
		})
	}

	t.Run("CreateSecretSavesInput", func(t *testing.T) {
		ResetGlobalSecretCache()

		c := &SecretsManagerClient{}
		defer c.Close(ctx)

		in := &secretsmanager.CreateSecretInput{
			Name:         aws.String("breakfast"),
			SecretString: aws.String("eggs"),
		}
		out, err := c.CreateSecret(ctx, in)
		require.NoError(t, err)
		require.NotZero(t, out)
		assert.Equal(t, in, c.CreateSecretInput)
	})

	t.Run("GetSecretValueUsesOutputOverride", func(t *testing.T) {
		ResetGlobalSecretCache()

		c := &SecretsManagerClient{
			GetSecretValueOutput: &secretsmanager.GetSecretValueOutput{
				Name:         aws.String("breakfast"),
				SecretString: aws.String("eggs"),
			},
		}
		defer c.Close(ctx)

		out, err := c.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
			SecretId: aws.String("nonexistent"),
		})
		require.NoError(t, err)
		require.NotZero(t, out)
		assert.Equal(t, "eggs", utility.FromStringPtr(out.SecretString))
	})

	t.Run("ListSecretsPaginatesInNameOrder", func(t *testing.T) {
		ResetGlobalSecretCache()

		c := &SecretsManagerClient{}
		defer c.Close(ctx)

		for _, name := range []string{"banana", "apple", "cherry"} {
			_, err := c.CreateSecret(ctx, &secretsmanager.CreateSecretInput{
				Name:         aws.String(name),
				SecretString: aws.String(utility.RandomString()),
			})
			require.NoError(t, err)
		}

		var names []string
		var token *string
		for {
			out, err := c.ListSecrets(ctx, &secretsmanager.ListSecretsInput{
				MaxResults: aws.Int32(1),
				NextToken:  token,
			})
			require.NoError(t, err)
			require.Len(t, out.SecretList, 1)
			names = append(names, utility.FromStringPtr(out.SecretList[0].Name))
			if out.NextToken == nil {
				break
			}
			token = out.NextToken
		}
		assert.Equal(t, []string{"apple", "banana", "cherry"}, names)
	})

	t.Run("ForceDeleteOfNonexistentSecretLeavesCacheClean", func(t *testing.T) {
		ResetGlobalSecretCache()

		c := &SecretsManagerClient{}
		defer c.Close(ctx)

		out, err := c.DeleteSecret(ctx, &secretsmanager.DeleteSecretInput{
			ForceDeleteWithoutRecovery: utility.TruePtr(),
			SecretId:                   aws.String("nonexistent"),
		})
		require.NoError(t, err)
		require.NotZero(t, out)
		assert.Empty(t, GlobalSecretCache)
	})

	t.Run("BatchGetSecretValueReportsErrorsOnFirstPageOnly", func(t *testing.T) {
		ResetGlobalSecretCache()

		c := &SecretsManagerClient{}
		defer c.Close(ctx)

		for _, name := range []string{"apple", "banana"} {
			_, err := c.CreateSecret(ctx, &secretsmanager.CreateSecretInput{
				Name:         aws.String(name),
				SecretString: aws.String(utility.RandomString()),
			})
			require.NoError(t, err)
		}

		firstPage, err := c.BatchGetSecretValue(ctx, &secretsmanager.BatchGetSecretValueInput{
			SecretIdList: []string{"apple", "banana", "nonexistent"},
			MaxResults:   aws.Int32(1),
		})
		require.NoError(t, err)
		require.Len(t, firstPage.SecretValues, 1)
		assert.Len(t, firstPage.Errors, 1)
		require.NotZero(t, firstPage.NextToken)

		secondPage, err := c.BatchGetSecretValue(ctx, &secretsmanager.BatchGetSecretValueInput{
			SecretIdList: []string{"apple", "banana", "nonexistent"},
			MaxResults:   aws.Int32(1),
			NextToken:    firstPage.NextToken,
		})
		require.NoError(t, err)
		require.Len(t, secondPage.SecretValues, 1)
		assert.Empty(t, secondPage.Errors)
		assert.Zero(t, secondPage.NextToken)
	})
}
