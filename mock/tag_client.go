package mock

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/resourcegroupstaggingapi"
	"github.com/aws/aws-sdk-go-v2/service/resourcegroupstaggingapi/types"
	"github.com/evergreen-ci/utility"
	"github.com/pkg/errors"
)

// taggedResource represents an arbitrary AWS resource with its tags.
type taggedResource struct {
	ID   string
	Tags map[string]string
}

func exportTagMapping(res taggedResource) types.ResourceTagMapping {
	return types.ResourceTagMapping{
		ResourceARN: utility.ToStringPtr(res.ID),
		Tags:        exportResourceTags(res.Tags),
	}
}

func exportResourceTags(tags map[string]string) []types.Tag {
	var exported []types.Tag
	for k, v := range tags {
		exported = append(exported, types.Tag{
			Key:   utility.ToStringPtr(k),
			Value: utility.ToStringPtr(v),
		})
	}
	return exported
}

// TagClient provides a mock implementation of a strongbox.TagClient. This
// makes it possible to introspect on inputs to the client and control the
// client's output. It provides some default implementations where possible.
// By default, it will issue the API calls to the fake GlobalSecretCache.
type TagClient struct {
	GetResourcesInput  *resourcegroupstaggingapi.GetResourcesInput
	GetResourcesOutput *resourcegroupstaggingapi.GetResourcesOutput
	GetResourcesError  error

	CloseError error
}

// GetResources saves the input and filters for the resources matching the
// input filters. The mock output can be customized. By default, it will
// search for matching secrets in the global secret cache.
func (c *TagClient) GetResources(ctx context.Context, in *resourcegroupstaggingapi.GetResourcesInput) (*resourcegroupstaggingapi.GetResourcesOutput, error) {
	c.GetResourcesInput = in

	if c.GetResourcesOutput != nil || c.GetResourcesError != nil {
		return c.GetResourcesOutput, c.GetResourcesError
	}

	for _, filter := range in.ResourceTypeFilters {
		if filter != "secretsmanager" && !strings.HasPrefix(filter, "secretsmanager:") {
			return nil, errors.New("unsupported service")
		}
	}

	var matchingAllTags map[string]taggedResource
	if len(in.TagFilters) != 0 {
		for _, f := range in.TagFilters {
			if utility.FromStringPtr(f.Key) == "" {
				return nil, errors.New("missing tag filter key")
			}

			matchingTag := c.secretsMatchingTag(utility.FromStringPtr(f.Key), f.Values)

			if matchingAllTags == nil {
				// Initialize the candidate set of matching secrets.
				matchingAllTags = matchingTag
			} else {
				// Each matching secret must match all the given tag filters.
				matchingAllTags = c.getSetIntersection(matchingAllTags, matchingTag)
			}
		}
	} else {
		matchingAllTags = map[string]taggedResource{}
		for _, s := range GlobalSecretCache {
			if s.IsDeleted {
				continue
			}
			matchingAllTags[s.Name] = c.exportSecretTaggedResource(s)
		}
	}

	var converted []types.ResourceTagMapping
	for _, res := range matchingAllTags {
		converted = append(converted, exportTagMapping(res))
	}

	return &resourcegroupstaggingapi.GetResourcesOutput{
		ResourceTagMappingList: converted,
	}, nil
}

func (c *TagClient) getSetIntersection(a, b map[string]taggedResource) map[string]taggedResource {
	intersection := map[string]taggedResource{}
	for k, v := range a {
		if _, ok := b[k]; ok {
			intersection[k] = v
		}
	}
	return intersection
}

// secretsMatchingTag returns the tagged resources for all secrets containing
// a matching tag key and matching one of the tag values.
func (c *TagClient) secretsMatchingTag(key string, values []string) map[string]taggedResource {
	res := map[string]taggedResource{}
	for _, s := range GlobalSecretCache {
		if s.IsDeleted {
			continue
		}

		v, ok := s.Tags[key]
		if !ok {
			continue
		}

		if len(values) != 0 && !utility.StringSliceContains(values, v) {
			continue
		}

		res[s.Name] = c.exportSecretTaggedResource(s)
	}
	return res
}

func (c *TagClient) exportSecretTaggedResource(s StoredSecret) taggedResource {
	return taggedResource{
		ID:   s.Name,
		Tags: s.Tags,
	}
}

// Close closes the mock client. The mock output can be customized. By
// default, it is a no-op that returns no error.
func (c *TagClient) Close(ctx context.Context) error {
	if c.CloseError != nil {
		return c.CloseError
	}

	return nil
}
