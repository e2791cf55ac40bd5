package tag

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/resourcegroupstaggingapi"
	"github.com/aws/aws-sdk-go-v2/service/resourcegroupstaggingapi/types"
	"github.com/evergreen-ci/strongbox"
	"github.com/evergreen-ci/strongbox/awsutil"
	"github.com/evergreen-ci/utility"
	"github.com/pkg/errors"
)

// secretResourceTypeFilter restricts tag searches to Secrets Manager secrets.
const secretResourceTypeFilter = "secretsmanager:secret"

// BasicTagClient provides a strongbox.TagClient implementation that wraps the
// AWS Resource Groups Tagging API. It does not retry requests - throttling
// and transient failures are surfaced to the caller, who owns any retry
// policy.
type BasicTagClient struct {
	rgt  *resourcegroupstaggingapi.Client
	opts *awsutil.ClientOptions
}

// NewBasicTagClient creates a new AWS Resource Groups Tagging API client from
// the given options. No network I/O occurs until the first API call.
func NewBasicTagClient(opts awsutil.ClientOptions) (*BasicTagClient, error) {
	c := &BasicTagClient{
		opts: &opts,
	}
	if err := c.opts.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid options")
	}

	return c, nil
}

func (c *BasicTagClient) setup(ctx context.Context) error {
	if c.rgt != nil {
		return nil
	}

	cfg, err := c.opts.GetConfig(ctx)
	if err != nil {
		return errors.Wrap(err, "initializing config")
	}

	c.rgt = resourcegroupstaggingapi.NewFromConfig(*cfg)

	return nil
}

// GetResources finds arbitrary AWS resources that match the input filters.
func (c *BasicTagClient) GetResources(ctx context.Context, in *resourcegroupstaggingapi.GetResourcesInput) (*resourcegroupstaggingapi.GetResourcesOutput, error) {
	if err := c.setup(ctx); err != nil {
		return nil, errors.Wrap(err, "setting up client")
	}

	out, err := c.rgt.GetResources(ctx, in)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Close closes the client and cleans up its resources.
func (c *BasicTagClient) Close(ctx context.Context) error {
	c.opts.Close()
	return nil
}

// FindSecretARNsByTag returns the ARNs of all Secrets Manager secrets
// carrying every given tag. A tag mapped to an empty value slice matches any
// value for that key.
func FindSecretARNsByTag(ctx context.Context, c strongbox.TagClient, tags map[string][]string) ([]string, error) {
	if len(tags) == 0 {
		return nil, errors.New("must provide at least one tag to search by")
	}

	var filters []types.TagFilter
	for k, values := range tags {
		filters = append(filters, types.TagFilter{
			Key:    utility.ToStringPtr(k),
			Values: values,
		})
	}

	out, err := c.GetResources(ctx, &resourcegroupstaggingapi.GetResourcesInput{
		ResourceTypeFilters: []string{secretResourceTypeFilter},
		TagFilters:          filters,
	})
	if err != nil {
		return nil, errors.Wrap(err, "finding secrets by tag")
	}

	var arns []string
	for _, mapping := range out.ResourceTagMappingList {
		if mapping.ResourceARN == nil {
			continue
		}
		arns = append(arns, utility.FromStringPtr(mapping.ResourceARN))
	}
	return arns, nil
}
