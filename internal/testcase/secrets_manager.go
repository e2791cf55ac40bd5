package testcase

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/evergreen-ci/strongbox"
	"github.com/evergreen-ci/strongbox/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SecretManagerTestCase represents a test case for a strongbox.SecretManager.
type SecretManagerTestCase func(ctx context.Context, t *testing.T, sm strongbox.SecretManager)

// SecretManagerCleanupSecretFunc cleans up an existing secret by ID if it
// exists.
type SecretManagerCleanupSecretFunc func(ctx context.Context, t *testing.T, sm strongbox.SecretManager, id string)

// SecretManagerTests returns common test cases that a strongbox.SecretManager
// should support.
func SecretManagerTests(cleanupSecret SecretManagerCleanupSecretFunc) map[string]SecretManagerTestCase {
	return map[string]SecretManagerTestCase{
		"CreateAndGetSucceedWithStringValue": func(ctx context.Context, t *testing.T, sm strongbox.SecretManager) {
			id, err := sm.CreateSecret(ctx, testutil.NewSecretName(t), "eggs")
			require.NoError(t, err)
			require.NotZero(t, id)

			defer cleanupSecret(ctx, t, sm, id)

			value, err := sm.GetSecret(ctx, id)
			require.NoError(t, err)
			require.NotZero(t, value)
			assert.Equal(t, "eggs", value.Raw)
			assert.Equal(t, "eggs", value.Value)
		},
		"CreateEncodesNonStringValueAsJSON": func(ctx context.Context, t *testing.T, sm strongbox.SecretManager) {
			id, err := sm.CreateSecret(ctx, testutil.NewSecretName(t), map[string]any{
				"username": "bacon",
				"port":     float64(5432),
			})
			require.NoError(t, err)
			require.NotZero(t, id)

			defer cleanupSecret(ctx, t, sm, id)

			value, err := sm.GetSecret(ctx, id)
			require.NoError(t, err)
			require.NotZero(t, value)

			var raw map[string]any
			require.NoError(t, json.Unmarshal([]byte(value.Raw), &raw))
			assert.Equal(t, map[string]any{
				"username": "bacon",
				"port":     float64(5432),
			}, raw)
			assert.Equal(t, raw, value.Value)
		},
		"GetWithoutParsingReturnsRawString": func(ctx context.Context, t *testing.T, sm strongbox.SecretManager) {
			id, err := sm.CreateSecret(ctx, testutil.NewSecretName(t), `{"username":"bacon"}`)
			require.NoError(t, err)
			require.NotZero(t, id)

			defer cleanupSecret(ctx, t, sm, id)

			value, err := sm.GetSecret(ctx, id, strongbox.NewGetSecretOptions().SetParse(false))
			require.NoError(t, err)
			require.NotZero(t, value)
			assert.Equal(t, `{"username":"bacon"}`, value.Raw)
			assert.Equal(t, `{"username":"bacon"}`, value.Value)
		},
		"GetParsingFallsBackToRawStringForNonJSONValue": func(ctx context.Context, t *testing.T, sm strongbox.SecretManager) {
			id, err := sm.CreateSecret(ctx, testutil.NewSecretName(t), "not json {")
			require.NoError(t, err)
			require.NotZero(t, id)

			defer cleanupSecret(ctx, t, sm, id)

			value, err := sm.GetSecret(ctx, id)
			require.NoError(t, err)
			require.NotZero(t, value)
			assert.Equal(t, "not json {", value.Value)
		},
		"GetFailsWithEmptyID": func(ctx context.Context, t *testing.T, sm strongbox.SecretManager) {
			value, err := sm.GetSecret(ctx, "")
			assert.Error(t, err)
			assert.Zero(t, value)
		},
		"GetFailsWithNonexistentSecret": func(ctx context.Context, t *testing.T, sm strongbox.SecretManager) {
			secretName := testutil.NewSecretName(t)
			value, err := sm.GetSecret(ctx, secretName)
			assert.Error(t, err)
			assert.Zero(t, value)
			assert.True(t, strongbox.IsNotFound(err))
			assert.Contains(t, err.Error(), fmt.Sprintf("Secret %q not found.", secretName))
		},
		"GetReturnsValueAtRequestedVersion": func(ctx context.Context, t *testing.T, sm strongbox.SecretManager) {
			id, err := sm.CreateSecret(ctx, testutil.NewSecretName(t), "eggs")
			require.NoError(t, err)
			require.NotZero(t, id)

			defer cleanupSecret(ctx, t, sm, id)

			_, err = sm.UpdateSecret(ctx, id, "bacon")
			require.NoError(t, err)

			versions, err := sm.GetSecretVersions(ctx, id)
			require.NoError(t, err)
			require.Len(t, versions, 2)

			var previousVersionID string
			for _, v := range versions {
				if !v.IsLatest {
					previousVersionID = v.VersionID
				}
			}
			require.NotZero(t, previousVersionID)

			value, err := sm.GetSecret(ctx, id, strongbox.NewGetSecretOptions().SetVersion(previousVersionID))
			require.NoError(t, err)
			require.NotZero(t, value)
			assert.Equal(t, "eggs", value.Value)
		},
		"UpdateChangesValue": func(ctx context.Context, t *testing.T, sm strongbox.SecretManager) {
			id, err := sm.CreateSecret(ctx, testutil.NewSecretName(t), "eggs")
			require.NoError(t, err)
			require.NotZero(t, id)

			defer cleanupSecret(ctx, t, sm, id)

			updatedID, err := sm.UpdateSecret(ctx, id, "bacon")
			require.NoError(t, err)
			assert.Equal(t, id, updatedID)

			value, err := sm.GetSecret(ctx, id)
			require.NoError(t, err)
			require.NotZero(t, value)
			assert.Equal(t, "bacon", value.Value)
		},
		"UpdateFailsWithNonexistentSecret": func(ctx context.Context, t *testing.T, sm strongbox.SecretManager) {
			id, err := sm.UpdateSecret(ctx, testutil.NewSecretName(t), "bacon")
			assert.Error(t, err)
			assert.Zero(t, id)
		},
		"DeleteSucceeds": func(ctx context.Context, t *testing.T, sm strongbox.SecretManager) {
			id, err := sm.CreateSecret(ctx, testutil.NewSecretName(t), "eggs")
			require.NoError(t, err)
			require.NotZero(t, id)

			require.NoError(t, sm.DeleteSecret(ctx, id, strongbox.NewSecretDeletionOptions().SetForceDelete(true)))
		},
		"SecretExistsReturnsTrueForExistingSecret": func(ctx context.Context, t *testing.T, sm strongbox.SecretManager) {
			id, err := sm.CreateSecret(ctx, testutil.NewSecretName(t), "eggs")
			require.NoError(t, err)
			require.NotZero(t, id)

			defer cleanupSecret(ctx, t, sm, id)

			exists, err := sm.SecretExists(ctx, id)
			require.NoError(t, err)
			assert.True(t, exists)
		},
		"SecretExistsReturnsFalseForNonexistentSecret": func(ctx context.Context, t *testing.T, sm strongbox.SecretManager) {
			exists, err := sm.SecretExists(ctx, testutil.NewSecretName(t))
			require.NoError(t, err)
			assert.False(t, exists)
		},
		"TagSecretAndGetTagsRoundTrip": func(ctx context.Context, t *testing.T, sm strongbox.SecretManager) {
			id, err := sm.CreateSecret(ctx, testutil.NewSecretName(t), "eggs")
			require.NoError(t, err)
			require.NotZero(t, id)

			defer cleanupSecret(ctx, t, sm, id)

			msg, err := sm.TagSecret(ctx, id, map[string]string{
				"environment": "test",
				"team":        "evergreen",
			})
			require.NoError(t, err)
			assert.Contains(t, msg, "2 tags")

			tags, err := sm.GetTags(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, "test", tags["environment"])
			assert.Equal(t, "evergreen", tags["team"])
		},
		"GetTagsFailsWithNonexistentSecret": func(ctx context.Context, t *testing.T, sm strongbox.SecretManager) {
			tags, err := sm.GetTags(ctx, testutil.NewSecretName(t))
			assert.Error(t, err)
			assert.Zero(t, tags)
			assert.True(t, strongbox.IsNotFound(err))
		},
		"GetSecretVersionsMarksLatestVersion": func(ctx context.Context, t *testing.T, sm strongbox.SecretManager) {
			id, err := sm.CreateSecret(ctx, testutil.NewSecretName(t), "eggs")
			require.NoError(t, err)
			require.NotZero(t, id)

			defer cleanupSecret(ctx, t, sm, id)

			_, err = sm.UpdateSecret(ctx, id, "bacon")
			require.NoError(t, err)

			versions, err := sm.GetSecretVersions(ctx, id)
			require.NoError(t, err)
			require.Len(t, versions, 2)

			var numLatest int
			for _, v := range versions {
				assert.NotZero(t, v.VersionID)
				if v.IsLatest {
					numLatest++
				}
			}
			assert.Equal(t, 1, numLatest)
		},
		"BatchGetReturnsRequestedSecrets": func(ctx context.Context, t *testing.T, sm strongbox.SecretManager) {
			name0 := testutil.NewSecretName(t)
			id0, err := sm.CreateSecret(ctx, name0, "eggs")
			require.NoError(t, err)
			defer cleanupSecret(ctx, t, sm, id0)

			name1 := testutil.NewSecretName(t)
			id1, err := sm.CreateSecret(ctx, name1, `{"username":"bacon"}`)
			require.NoError(t, err)
			defer cleanupSecret(ctx, t, sm, id1)

			res, err := sm.BatchGetSecrets(ctx, strongbox.NewBatchGetSecretsOptions().SetSecretIDs([]string{name0, name1}))
			require.NoError(t, err)
			require.NotZero(t, res)
			assert.Empty(t, res.Errors)
			require.Len(t, res.Secrets, 2)
			assert.Equal(t, "eggs", res.Secrets[name0])
			assert.Equal(t, map[string]any{"username": "bacon"}, res.Secrets[name1])
		},
		"BatchGetCollectsPerSecretErrors": func(ctx context.Context, t *testing.T, sm strongbox.SecretManager) {
			name := testutil.NewSecretName(t)
			id, err := sm.CreateSecret(ctx, name, "eggs")
			require.NoError(t, err)
			defer cleanupSecret(ctx, t, sm, id)

			missing := testutil.NewSecretName(t)
			res, err := sm.BatchGetSecrets(ctx, strongbox.NewBatchGetSecretsOptions().SetSecretIDs([]string{name, missing}))
			require.NoError(t, err)
			require.NotZero(t, res)
			assert.Equal(t, "eggs", res.Secrets[name])
			require.Len(t, res.Errors, 1)
			assert.Equal(t, missing, res.Errors[0].SecretID)
			assert.NotZero(t, res.Errors[0].ErrorCode)
		},
		"BatchGetPagesThroughAllResults": func(ctx context.Context, t *testing.T, sm strongbox.SecretManager) {
			name0 := testutil.NewSecretName(t)
			id0, err := sm.CreateSecret(ctx, name0, "value0")
			require.NoError(t, err)
			defer cleanupSecret(ctx, t, sm, id0)

			name1 := testutil.NewSecretName(t)
			id1, err := sm.CreateSecret(ctx, name1, "value1")
			require.NoError(t, err)
			defer cleanupSecret(ctx, t, sm, id1)

			found := map[string]any{}
			var token *string
			for i := 0; i < 10; i++ {
				opts := strongbox.NewBatchGetSecretsOptions().
					SetSecretIDs([]string{name0, name1}).
					SetMaxResults(1)
				if token != nil {
					opts.SetNextToken(*token)
				}

				res, err := sm.BatchGetSecrets(ctx, opts)
				require.NoError(t, err)
				require.NotZero(t, res)
				assert.Empty(t, res.Errors)
				for name, value := range res.Secrets {
					found[name] = value
				}

				token = res.NextToken
				if token == nil {
					break
				}
			}

			assert.Nil(t, token, "pagination should terminate")
			require.Len(t, found, 2)
			assert.Equal(t, "value0", found[name0])
			assert.Equal(t, "value1", found[name1])
		},
		"BatchGetFailsWithoutSecretIDs": func(ctx context.Context, t *testing.T, sm strongbox.SecretManager) {
			res, err := sm.BatchGetSecrets(ctx, strongbox.NewBatchGetSecretsOptions())
			assert.Error(t, err)
			assert.Zero(t, res)
		},
	}
}
