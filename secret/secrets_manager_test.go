package secret

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/aws/smithy-go"
	"github.com/evergreen-ci/strongbox"
	"github.com/evergreen-ci/strongbox/internal/testcase"
	"github.com/evergreen-ci/strongbox/internal/testutil"
	"github.com/evergreen-ci/strongbox/mock"
	"github.com/evergreen-ci/utility"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBasicSecretsManager(t *testing.T) {
	assert.Implements(t, (*strongbox.SecretManager)(nil), &BasicSecretsManager{})

	t.Run("NewBasicSecretsManager", func(t *testing.T) {
		t.Run("FailsWithNilClient", func(t *testing.T) {
			sm, err := NewBasicSecretsManager(nil)
			assert.Error(t, err)
			assert.Zero(t, sm)
		})
		t.Run("SucceedsWithClient", func(t *testing.T) {
			sm, err := NewBasicSecretsManager(&mock.SecretsManagerClient{})
			assert.NoError(t, err)
			assert.NotZero(t, sm)
		})
	})
}

func TestSecretsManagerWithMock(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cleanupSecret := func(ctx context.Context, t *testing.T, sm strongbox.SecretManager, id string) {
		if id != "" {
			require.NoError(t, sm.DeleteSecret(ctx, id, strongbox.NewSecretDeletionOptions().SetForceDelete(true)))
		}
	}

	for tName, tCase := range testcase.SecretManagerTests(cleanupSecret) {
		t.Run(tName, func(t *testing.T) {
			tctx, tcancel := context.WithTimeout(ctx, defaultTestTimeout)
			defer tcancel()

			mock.ResetGlobalSecretCache()

			c := &mock.SecretsManagerClient{}
			defer c.Close(tctx)

			sm, err := NewBasicSecretsManager(c)
			require.NoError(t, err)
			require.NotZero(t, sm)

			tCase(tctx, t, sm)
		})
	}

	newManager := func(t *testing.T, c *mock.SecretsManagerClient) *BasicSecretsManager {
		mock.ResetGlobalSecretCache()

		sm, err := NewBasicSecretsManager(c)
		require.NoError(t, err)
		require.NotZero(t, sm)
		return sm
	}

	t.Run("DeleteSendsDefaultRecoveryWindow", func(t *testing.T) {
		c := &mock.SecretsManagerClient{}
		sm := newManager(t, c)

		id, err := sm.CreateSecret(ctx, "breakfast", "eggs")
		require.NoError(t, err)

		require.NoError(t, sm.DeleteSecret(ctx, id))
		require.NotZero(t, c.DeleteSecretInput)
		assert.EqualValues(t, strongbox.DefaultRecoveryWindowDays, utility.FromInt64Ptr(c.DeleteSecretInput.RecoveryWindowInDays))
		assert.Zero(t, c.DeleteSecretInput.ForceDeleteWithoutRecovery)
	})

	t.Run("DeleteWithForceOmitsRecoveryWindow", func(t *testing.T) {
		c := &mock.SecretsManagerClient{}
		sm := newManager(t, c)

		id, err := sm.CreateSecret(ctx, "breakfast", "eggs")
		require.NoError(t, err)

		require.NoError(t, sm.DeleteSecret(ctx, id, strongbox.NewSecretDeletionOptions().SetForceDelete(true)))
		require.NotZero(t, c.DeleteSecretInput)
		assert.True(t, utility.FromBoolPtr(c.DeleteSecretInput.ForceDeleteWithoutRecovery))
		assert.Zero(t, c.DeleteSecretInput.RecoveryWindowInDays)
	})

	t.Run("DeleteWithCustomRecoveryWindowSendsIt", func(t *testing.T) {
		c := &mock.SecretsManagerClient{}
		sm := newManager(t, c)

		id, err := sm.CreateSecret(ctx, "breakfast", "eggs")
		require.NoError(t, err)

		require.NoError(t, sm.DeleteSecret(ctx, id, strongbox.NewSecretDeletionOptions().SetRecoveryDays(7)))
		require.NotZero(t, c.DeleteSecretInput)
		assert.EqualValues(t, 7, utility.FromInt64Ptr(c.DeleteSecretInput.RecoveryWindowInDays))
	})

	t.Run("CreateEncodesNonStringValueOnTheWire", func(t *testing.T) {
		c := &mock.SecretsManagerClient{}
		sm := newManager(t, c)

		_, err := sm.CreateSecret(ctx, "breakfast", map[string]string{"dish": "eggs"})
		require.NoError(t, err)
		require.NotZero(t, c.CreateSecretInput)

		var decoded map[string]string
		require.NoError(t, json.Unmarshal([]byte(utility.FromStringPtr(c.CreateSecretInput.SecretString)), &decoded))
		assert.Equal(t, map[string]string{"dish": "eggs"}, decoded)
	})

	t.Run("CreateSendsDescriptionAndTags", func(t *testing.T) {
		c := &mock.SecretsManagerClient{}
		sm := newManager(t, c)

		_, err := sm.CreateSecret(ctx, "breakfast", "eggs", strongbox.NewSecretCreationOptions().
			SetDescription("most important meal").
			SetTags([]strongbox.SecretTag{{Key: "meal", Value: "breakfast"}}))
		require.NoError(t, err)
		require.NotZero(t, c.CreateSecretInput)
		assert.Equal(t, "most important meal", utility.FromStringPtr(c.CreateSecretInput.Description))
		require.Len(t, c.CreateSecretInput.Tags, 1)
		assert.Equal(t, "meal", utility.FromStringPtr(c.CreateSecretInput.Tags[0].Key))
		assert.Equal(t, "breakfast", utility.FromStringPtr(c.CreateSecretInput.Tags[0].Value))
	})

	t.Run("UpdateSendsDescription", func(t *testing.T) {
		c := &mock.SecretsManagerClient{}
		sm := newManager(t, c)

		id, err := sm.CreateSecret(ctx, "breakfast", "eggs")
		require.NoError(t, err)

		_, err = sm.UpdateSecret(ctx, id, "bacon", strongbox.NewSecretUpdateOptions().SetDescription("updated"))
		require.NoError(t, err)
		require.NotZero(t, c.UpdateSecretInput)
		assert.Equal(t, "updated", utility.FromStringPtr(c.UpdateSecretInput.Description))
	})

	t.Run("GetPassesVersionID", func(t *testing.T) {
		c := &mock.SecretsManagerClient{}
		sm := newManager(t, c)

		id, err := sm.CreateSecret(ctx, "breakfast", "eggs")
		require.NoError(t, err)

		versions, err := sm.GetSecretVersions(ctx, id)
		require.NoError(t, err)
		require.Len(t, versions, 1)

		_, err = sm.GetSecret(ctx, id, strongbox.NewGetSecretOptions().SetVersion(versions[0].VersionID))
		require.NoError(t, err)
		require.NotZero(t, c.GetSecretValueInput)
		assert.Equal(t, versions[0].VersionID, utility.FromStringPtr(c.GetSecretValueInput.VersionId))
	})

	t.Run("GetClassifiesSecretScheduledForDeletion", func(t *testing.T) {
		c := &mock.SecretsManagerClient{}
		sm := newManager(t, c)

		id, err := sm.CreateSecret(ctx, "breakfast", "eggs")
		require.NoError(t, err)

		require.NoError(t, sm.DeleteSecret(ctx, id))

		value, err := sm.GetSecret(ctx, id)
		assert.Error(t, err)
		assert.Zero(t, value)
		assert.True(t, strongbox.IsInvalidState(err))
	})

	t.Run("GetClassifiesAccessDenied", func(t *testing.T) {
		c := &mock.SecretsManagerClient{
			GetSecretValueError: &smithy.GenericAPIError{
				Code:    "AccessDeniedException",
				Message: "not authorized",
			},
		}
		sm := newManager(t, c)

		value, err := sm.GetSecret(ctx, "breakfast")
		assert.Error(t, err)
		assert.Zero(t, value)
		assert.True(t, strongbox.IsAccessDenied(err))
	})

	t.Run("GetClassifiesThrottling", func(t *testing.T) {
		c := &mock.SecretsManagerClient{
			GetSecretValueError: &smithy.GenericAPIError{
				Code:    "ThrottlingException",
				Message: "slow down",
			},
		}
		sm := newManager(t, c)

		value, err := sm.GetSecret(ctx, "breakfast")
		assert.Error(t, err)
		assert.Zero(t, value)
		assert.True(t, strongbox.IsThrottled(err))
	})

	t.Run("GetRejectsBinarySecret", func(t *testing.T) {
		c := &mock.SecretsManagerClient{}
		sm := newManager(t, c)

		out, err := c.CreateSecret(ctx, &secretsmanager.CreateSecretInput{
			Name:         utility.ToStringPtr(t.Name()),
			SecretBinary: []byte("eggs"),
		})
		require.NoError(t, err)

		value, err := sm.GetSecret(ctx, utility.FromStringPtr(out.ARN))
		assert.Error(t, err)
		assert.Zero(t, value)
		assert.True(t, strongbox.IsUnsupportedFormat(err))
	})

	t.Run("BatchGetRejectsResponseContainingBinaryEntry", func(t *testing.T) {
		c := &mock.SecretsManagerClient{
			BatchGetSecretValueOutput: &secretsmanager.BatchGetSecretValueOutput{
				SecretValues: []types.SecretValueEntry{
					{
						Name:         utility.ToStringPtr("breakfast"),
						SecretString: utility.ToStringPtr("eggs"),
					},
					{
						Name:         utility.ToStringPtr("lunch"),
						SecretBinary: []byte("eggs"),
					},
				},
			},
		}
		sm := newManager(t, c)

		res, err := sm.BatchGetSecrets(ctx, strongbox.NewBatchGetSecretsOptions().SetSecretIDs([]string{"breakfast", "lunch"}))
		assert.Error(t, err)
		assert.Zero(t, res)
		assert.True(t, strongbox.IsUnsupportedFormat(err))
	})

	t.Run("ListSecretsPagesThroughAllResults", func(t *testing.T) {
		c := &mock.SecretsManagerClient{}
		sm := newManager(t, c)

		for _, name := range []string{"meals/banana", "meals/apple", "meals/cherry"} {
			_, err := sm.CreateSecret(ctx, name, utility.RandomString())
			require.NoError(t, err)
		}

		var names []string
		opts := strongbox.NewListSecretsOptions().
			SetFilters(*strongbox.NewSecretFilters().SetNames([]string{"meals/"})).
			SetMaxResults(1)
		for {
			res, err := sm.ListSecrets(ctx, opts)
			require.NoError(t, err)
			require.Len(t, res.Names, 1)
			names = append(names, res.Names...)
			if res.NextToken == nil {
				break
			}
			opts.SetNextToken(utility.FromStringPtr(res.NextToken))
		}
		assert.Equal(t, []string{"meals/apple", "meals/banana", "meals/cherry"}, names)
	})

	t.Run("TagSecretSendsTagsSortedByKey", func(t *testing.T) {
		c := &mock.SecretsManagerClient{}
		sm := newManager(t, c)

		id, err := sm.CreateSecret(ctx, "breakfast", "eggs")
		require.NoError(t, err)

		_, err = sm.TagSecret(ctx, id, map[string]string{
			"zuc":  "chini",
			"avo":  "cado",
			"lime": "green",
		})
		require.NoError(t, err)
		require.NotZero(t, c.TagResourceInput)
		require.Len(t, c.TagResourceInput.Tags, 3)
		assert.Equal(t, "avo", utility.FromStringPtr(c.TagResourceInput.Tags[0].Key))
		assert.Equal(t, "lime", utility.FromStringPtr(c.TagResourceInput.Tags[1].Key))
		assert.Equal(t, "zuc", utility.FromStringPtr(c.TagResourceInput.Tags[2].Key))
	})

	t.Run("BatchGetPassesPaginationOptions", func(t *testing.T) {
		c := &mock.SecretsManagerClient{}
		sm := newManager(t, c)

		id, err := sm.CreateSecret(ctx, "breakfast", "eggs")
		require.NoError(t, err)

		_, err = sm.BatchGetSecrets(ctx, strongbox.NewBatchGetSecretsOptions().
			SetSecretIDs([]string{id}).
			SetMaxResults(5).
			SetNextToken("token"))
		require.NoError(t, err)
		require.NotZero(t, c.BatchGetSecretValueInput)
		assert.EqualValues(t, 5, utility.FromInt32Ptr(c.BatchGetSecretValueInput.MaxResults))
		assert.Equal(t, "token", utility.FromStringPtr(c.BatchGetSecretValueInput.NextToken))
	})
}

func TestSecretsManager(t *testing.T) {
	testutil.CheckAWSEnvVarsForSecretsManager(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cleanupSecret := func(ctx context.Context, t *testing.T, sm strongbox.SecretManager, id string) {
		if id != "" {
			require.NoError(t, sm.DeleteSecret(ctx, id, strongbox.NewSecretDeletionOptions().SetForceDelete(true)))
		}
	}

	c, err := NewBasicSecretsManagerClient(testutil.ValidIntegrationAWSOptions())
	require.NoError(t, err)
	defer func() {
		testutil.CleanupSecrets(ctx, t, c)

		assert.NoError(t, c.Close(ctx))
	}()

	for tName, tCase := range testcase.SecretManagerTests(cleanupSecret) {
		t.Run(tName, func(t *testing.T) {
			tctx, tcancel := context.WithTimeout(ctx, defaultTestTimeout)
			defer tcancel()

			sm, err := NewBasicSecretsManager(c)
			require.NoError(t, err)
			require.NotNil(t, sm)

			tCase(tctx, t, sm)
		})
	}
}
