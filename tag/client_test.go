package tag

import (
	"context"
	"testing"
	"time"

	"github.com/evergreen-ci/strongbox"
	"github.com/evergreen-ci/strongbox/internal/testcase"
	"github.com/evergreen-ci/strongbox/internal/testutil"
	"github.com/evergreen-ci/strongbox/mock"
	"github.com/evergreen-ci/strongbox/secret"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// defaultTestTimeout is the standard timeout for integration tests against
// the Resource Groups Tagging API.
const defaultTestTimeout = time.Minute

func TestFindSecretARNsByTag(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	t.Run("FailsWithoutTags", func(t *testing.T) {
		arns, err := FindSecretARNsByTag(ctx, &mock.TagClient{}, nil)
		assert.Error(t, err)
		assert.Zero(t, arns)
	})
	t.Run("ReturnsOnlySecretsMatchingEveryTag", func(t *testing.T) {
		mock.ResetGlobalSecretCache()
		defer mock.ResetGlobalSecretCache()

		mock.GlobalSecretCache["matching"] = mock.StoredSecret{
			Name: "matching",
			Tags: map[string]string{"environment": "test", "team": "evergreen"},
		}
		mock.GlobalSecretCache["wrong-value"] = mock.StoredSecret{
			Name: "wrong-value",
			Tags: map[string]string{"environment": "prod", "team": "evergreen"},
		}
		mock.GlobalSecretCache["missing-key"] = mock.StoredSecret{
			Name: "missing-key",
			Tags: map[string]string{"team": "evergreen"},
		}

		arns, err := FindSecretARNsByTag(ctx, &mock.TagClient{}, map[string][]string{
			"environment": {"test"},
			"team":        nil,
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"matching"}, arns)
	})
}

func TestBasicTagClient(t *testing.T) {
	assert.Implements(t, (*strongbox.TagClient)(nil), &BasicTagClient{})

	testutil.CheckAWSEnvVarsForSecretsManager(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	awsOpts := testutil.ValidIntegrationAWSOptions()

	c, err := NewBasicTagClient(awsOpts)
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, c.Close(ctx))
	}()

	for tName, tCase := range testcase.TagClientTests() {
		t.Run(tName, func(t *testing.T) {
			tctx, tcancel := context.WithTimeout(ctx, defaultTestTimeout)
			defer tcancel()

			tCase(tctx, t, c)
		})
	}

	smClient, err := secret.NewBasicSecretsManagerClient(testutil.ValidIntegrationAWSOptions())
	require.NoError(t, err)
	defer func() {
		testutil.CleanupSecrets(ctx, t, smClient)

		assert.NoError(t, smClient.Close(ctx))
	}()

	for tName, tCase := range testcase.TagClientSecretTests() {
		t.Run(tName, func(t *testing.T) {
			tctx, tcancel := context.WithTimeout(ctx, defaultTestTimeout)
			defer tcancel()

			tCase(tctx, t, c, smClient)
		})
	}
}
