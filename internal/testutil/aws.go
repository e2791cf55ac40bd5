package testutil

import (
	"os"

	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/evergreen-ci/strongbox/awsutil"
	"github.com/evergreen-ci/utility"
)

// runtimeNamespace is a random string generated during testing runtime that
// acts as a namespace for this particular runtime's tests. It is used to
// namespace AWS resources (e.g. secrets). This avoids an issue where the
// tests can be running concurrently on different machines and interfere with
// each other's secret cleanup at the end of tests.
var runtimeNamespace = utility.RandomString()

// AWSRole returns the AWS IAM role from the environment variable.
func AWSRole() string {
	return os.Getenv("AWS_ROLE")
}

// ValidIntegrationAWSOptions returns valid options to create an AWS client
// that can make actual requests to AWS for integration testing. Credentials
// and the region will be extracted from the standard environment variables.
func ValidIntegrationAWSOptions() awsutil.ClientOptions {
	options := awsutil.NewClientOptions()
	if role := AWSRole(); role != "" {
		options.SetRole(role)
	}
	return *options
}

// ValidNonIntegrationAWSOptions returns valid options to create an AWS client
// that doesn't make any actual requests to AWS.
func ValidNonIntegrationAWSOptions() awsutil.ClientOptions {
	return *awsutil.NewClientOptions().
		SetCredentialsProvider(credentials.NewStaticCredentialsProvider("", "", "")).
		SetRegion("us-east-1")
}
