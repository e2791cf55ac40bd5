package testutil

import (
	"fmt"
	"os"
	"testing"
)

// CheckAWSEnvVars checks that the required environment variables are defined
// for testing against any AWS API and skips the test when they are not.
func CheckAWSEnvVars(t *testing.T) {
	CheckEnvVars(t,
		"AWS_ACCESS_KEY",
		"AWS_SECRET_ACCESS_KEY",
		"AWS_REGION",
	)
}

// CheckAWSEnvVarsForSecretsManager checks that the required environment
// variables are defined for testing against Secrets Manager and skips the
// test when they are not.
func CheckAWSEnvVarsForSecretsManager(t *testing.T) {
	CheckEnvVars(t,
		"AWS_ACCESS_KEY",
		"AWS_SECRET_ACCESS_KEY",
		"AWS_SECRET_PREFIX",
		"AWS_REGION",
	)
}

// CheckEnvVars checks that the required environment variables are set and
// skips the test when any of them are missing.
func CheckEnvVars(t *testing.T, envVars ...string) {
	var missing []string

	for _, envVar := range envVars {
		if os.Getenv(envVar) == "" {
			missing = append(missing, envVar)
		}
	}

	if len(missing) > 0 {
		t.Skip(fmt.Sprintf("missing required AWS environment variables: %s", missing))
	}
}
