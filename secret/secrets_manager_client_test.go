package secret

import (
	"context"
	"testing"
	"time"

	"github.com/evergreen-ci/strongbox"
	"github.com/evergreen-ci/strongbox/internal/testcase"
	"github.com/evergreen-ci/strongbox/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// defaultTestTimeout is the standard timeout for integration tests against
// Secrets Manager.
const defaultTestTimeout = time.Minute

func TestSecretsManagerClient(t *testing.T) {
	assert.Implements(t, (*strongbox.SecretsManagerClient)(nil), &BasicSecretsManagerClient{})

	t.Run("NewBasicSecretsManagerClient", func(t *testing.T) {
		t.Run("SucceedsWithValidOptions", func(t *testing.T) {
			c, err := NewBasicSecretsManagerClient(testutil.ValidNonIntegrationAWSOptions())
			require.NoError(t, err)
			require.NotZero(t, c)
			assert.NoError(t, c.Close(context.Background()))
		})
		t.Run("FailsWithIncompleteCredentials", func(t *testing.T) {
			opts := testutil.ValidNonIntegrationAWSOptions()
			accessKey := "access_key"
			opts.AccessKeyID = &accessKey
			c, err := NewBasicSecretsManagerClient(opts)
			assert.Error(t, err)
			assert.Zero(t, c)
		})
	})

	testutil.CheckAWSEnvVarsForSecretsManager(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c, err := NewBasicSecretsManagerClient(testutil.ValidIntegrationAWSOptions())
	require.NoError(t, err)
	defer func() {
		testutil.CleanupSecrets(ctx, t, c)

		assert.NoError(t, c.Close(ctx))
	}()

	for tName, tCase := range testcase.SecretsManagerClientTests() {
		t.Run(tName, func(t *testing.T) {
			tctx, tcancel := context.WithTimeout(ctx, defaultTestTimeout)
			defer tcancel()

			tCase(tctx, t, c)
		})
	}
}
