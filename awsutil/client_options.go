package awsutil

import (
	"context"
	"net/http"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/evergreen-ci/utility"
	"github.com/mongodb/grip"
	"github.com/pkg/errors"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-sdk-go-v2/otelaws"
)

// DefaultRegion is the geographical region used when none is given explicitly
// and none is set in the environment.
const DefaultRegion = "us-east-1"

// ClientOptions represent AWS client options such as authentication and
// making requests.
type ClientOptions struct {
	// Config is a preconfigured AWS config to use instead of constructing one
	// from the rest of the options. If Config is specified the rest of the
	// options are ignored.
	Config *aws.Config
	// AccessKeyID and SecretAccessKey are a static credential pair. When
	// given, they take precedence over CredsProvider. Both must be set
	// together.
	AccessKeyID *string
	// SecretAccessKey is the secret half of the static credential pair.
	SecretAccessKey *string
	// CredsProvider is a credentials provider, used when no static pair is
	// given. When neither is given, credentials resolution is delegated to
	// the ambient environment via the SDK's default chain.
	CredsProvider *aws.CredentialsProvider
	// Role is the STS role that should be used to perform authorized actions.
	// If specified, the resolved credentials are used to retrieve temporary
	// credentials from STS.
	Role *string
	// Region is the geographical region where API calls should be made. If
	// unset, the AWS_REGION environment variable is used, falling back to
	// DefaultRegion.
	Region *string
	// HTTPClient is the HTTP client to use to make requests.
	HTTPClient *http.Client

	stsClient   *sts.Client
	stsProvider *stscreds.AssumeRoleProvider

	ownsHTTPClient bool
}

// NewClientOptions returns new unconfigured client options.
func NewClientOptions() *ClientOptions {
	return &ClientOptions{}
}

// SetCredentials sets the client's static credential pair.
func (o *ClientOptions) SetCredentials(accessKeyID, secretAccessKey string) *ClientOptions {
	o.AccessKeyID = &accessKeyID
	o.SecretAccessKey = &secretAccessKey
	return o
}

// SetCredentialsProvider sets the client's credentials provider.
func (o *ClientOptions) SetCredentialsProvider(creds aws.CredentialsProvider) *ClientOptions {
	o.CredsProvider = &creds
	return o
}

// SetRole sets the client's role to assume.
func (o *ClientOptions) SetRole(role string) *ClientOptions {
	o.Role = &role
	return o
}

// SetRegion sets the client's geographical region.
func (o *ClientOptions) SetRegion(region string) *ClientOptions {
	o.Region = &region
	return o
}

// SetHTTPClient sets the HTTP client to use.
func (o *ClientOptions) SetHTTPClient(hc *http.Client) *ClientOptions {
	o.HTTPClient = hc
	return o
}

// Validate checks that the options are coherent and sets defaults for
// unspecified ones. It performs no I/O - a config that fails deeper
// validation only surfaces on first use.
func (o *ClientOptions) Validate() error {
	if o.Config != nil {
		return nil
	}

	catcher := grip.NewBasicCatcher()
	catcher.NewWhen(o.AccessKeyID != nil && o.SecretAccessKey == nil, "access key ID requires a secret access key")
	catcher.NewWhen(o.AccessKeyID == nil && o.SecretAccessKey != nil, "secret access key requires an access key ID")

	if catcher.HasErrors() {
		return catcher.Resolve()
	}

	if o.Region == nil {
		region := os.Getenv("AWS_REGION")
		if region == "" {
			region = DefaultRegion
		}
		o.Region = &region
	}

	if o.HTTPClient == nil {
		o.HTTPClient = utility.GetHTTPClient()
		o.ownsHTTPClient = true
	}

	return nil
}

// GetCredentialsProvider retrieves the credentials provider to use for the
// client. A static credential pair takes precedence over an explicit
// provider. A nil provider with a nil error means credentials resolution is
// delegated to the SDK's ambient default chain.
func (o *ClientOptions) GetCredentialsProvider(ctx context.Context) (aws.CredentialsProvider, error) {
	base := o.baseCredentialsProvider()

	if o.Role == nil {
		return base, nil
	}

	if o.stsProvider != nil {
		return o.stsProvider, nil
	}

	if o.stsClient == nil {
		cfg, err := o.loadConfig(ctx, base)
		if err != nil {
			return nil, errors.Wrap(err, "creating config for STS")
		}

		o.stsClient = sts.NewFromConfig(*cfg)
	}

	o.stsProvider = stscreds.NewAssumeRoleProvider(o.stsClient, *o.Role)

	return o.stsProvider, nil
}

func (o *ClientOptions) baseCredentialsProvider() aws.CredentialsProvider {
	if o.AccessKeyID != nil && o.SecretAccessKey != nil {
		return credentials.NewStaticCredentialsProvider(*o.AccessKeyID, *o.SecretAccessKey, "")
	}
	if o.CredsProvider != nil {
		return *o.CredsProvider
	}
	return nil
}

// GetConfig gets the authenticated config to perform authorized API actions.
func (o *ClientOptions) GetConfig(ctx context.Context) (*aws.Config, error) {
	if o.Config != nil {
		return o.Config, nil
	}

	creds, err := o.GetCredentialsProvider(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "getting credentials")
	}

	cfg, err := o.loadConfig(ctx, creds)
	if err != nil {
		return nil, errors.Wrap(err, "creating config")
	}

	o.Config = cfg

	return o.Config, nil
}

func (o *ClientOptions) loadConfig(ctx context.Context, creds aws.CredentialsProvider) (*aws.Config, error) {
	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(utility.FromStringPtr(o.Region)),
		config.WithHTTPClient(o.HTTPClient),
	}
	if creds != nil {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(creds))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}

	otelaws.AppendMiddlewares(&cfg.APIOptions)

	return &cfg, nil
}

// Close cleans up the HTTP client if it is owned by this client.
func (o *ClientOptions) Close() {
	if o.ownsHTTPClient {
		utility.PutHTTPClient(o.HTTPClient)
	}
}
