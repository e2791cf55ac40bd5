package testcase

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/resourcegroupstaggingapi"
	rgttypes "github.com/aws/aws-sdk-go-v2/service/resourcegroupstaggingapi/types"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	smtypes "github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/evergreen-ci/strongbox"
	"github.com/evergreen-ci/strongbox/internal/testutil"
	"github.com/evergreen-ci/utility"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TagClientTestCase represents a test case for a strongbox.TagClient.
type TagClientTestCase func(ctx context.Context, t *testing.T, c strongbox.TagClient)

// TagClientTests returns common test cases that a strongbox.TagClient should
// support.
func TagClientTests() map[string]TagClientTestCase {
	return map[string]TagClientTestCase{
		"GetResourcesFailsWithInvalidInput": func(ctx context.Context, t *testing.T, c strongbox.TagClient) {
			out, err := c.GetResources(ctx, &resourcegroupstaggingapi.GetResourcesInput{
				TagFilters: []rgttypes.TagFilter{
					{
						Values: []string{""},
					},
				},
			})
			assert.Error(t, err)
			assert.Zero(t, out)
		},
		"GetResourcesFailsWithInvalidResourceType": func(ctx context.Context, t *testing.T, c strongbox.TagClient) {
			out, err := c.GetResources(ctx, &resourcegroupstaggingapi.GetResourcesInput{
				ResourceTypeFilters: []string{"nonexistent"},
			})
			assert.Error(t, err)
			assert.Zero(t, out)
		},
		"GetResourcesSucceedsWithNoResults": func(ctx context.Context, t *testing.T, c strongbox.TagClient) {
			out, err := c.GetResources(ctx, &resourcegroupstaggingapi.GetResourcesInput{
				ResourceTypeFilters: []string{"secretsmanager"},
				TagFilters: []rgttypes.TagFilter{
					{
						Key:    aws.String("nonexistent"),
						Values: []string{"nonexistent"},
					},
				},
			})
			require.NoError(t, err)
			require.NotZero(t, out)
			assert.Empty(t, out.ResourceTagMappingList)
		},
	}
}

// TagClientSecretTestCase represents a test case for a strongbox.TagClient
// with a strongbox.SecretsManagerClient.
type TagClientSecretTestCase func(ctx context.Context, t *testing.T, tagClient strongbox.TagClient, smClient strongbox.SecretsManagerClient)

// TagClientSecretTests returns common test cases that rely on Secrets Manager
// that a strongbox.TagClient should support.
func TagClientSecretTests() map[string]TagClientSecretTestCase {
	checkResources := func(t *testing.T, out resourcegroupstaggingapi.GetResourcesOutput, expected []string) {
		require.Len(t, out.ResourceTagMappingList, len(expected), "number of results should match expected")
		for _, res := range out.ResourceTagMappingList {
			arn := utility.FromStringPtr(res.ResourceARN)
			assert.True(t, utility.StringSliceContains(expected, arn), "unexpected resource '%s' in results", arn)
		}
	}
	return map[string]TagClientSecretTestCase{
		"GetResourcesMatchesSingleTagKeyAndValueForSingleResource": func(ctx context.Context, t *testing.T, tagClient strongbox.TagClient, smClient strongbox.SecretsManagerClient) {
			inputTags := []smtypes.Tag{
				{
					Key:   aws.String(utility.RandomString()),
					Value: aws.String(utility.RandomString()),
				},
			}
			createSecretOut := testutil.CreateSecret(ctx, t, smClient, secretsmanager.CreateSecretInput{
				Name:         aws.String(testutil.NewSecretName(t)),
				SecretString: aws.String(utility.RandomString()),
				Tags:         inputTags,
			})
			defer cleanupSecret(ctx, t, smClient, &createSecretOut)

			getResourcesOut, err := tagClient.GetResources(ctx, &resourcegroupstaggingapi.GetResourcesInput{
				ResourceTypeFilters: []string{"secretsmanager:secret"},
				TagFilters: []rgttypes.TagFilter{
					{
						Key:    inputTags[0].Key,
						Values: []string{utility.FromStringPtr(inputTags[0].Value)},
					},
				},
			})
			require.NoError(t, err)

			checkResources(t, *getResourcesOut, []string{utility.FromStringPtr(createSecretOut.ARN)})
		},
		"GetResourcesMatchesSingleKeyAndValueForMultipleResources": func(ctx context.Context, t *testing.T, tagClient strongbox.TagClient, smClient strongbox.SecretsManagerClient) {
			inputTags := []smtypes.Tag{
				{
					Key:   aws.String(utility.RandomString()),
					Value: aws.String(utility.RandomString()),
				},
			}
			var arns []string
			for i := 0; i < 3; i++ {
				createSecretOut := testutil.CreateSecret(ctx, t, smClient, secretsmanager.CreateSecretInput{
					Name:         aws.String(testutil.NewSecretName(t)),
					SecretString: aws.String(utility.RandomString()),
					Tags:         inputTags,
				})
				defer cleanupSecret(ctx, t, smClient, &createSecretOut)
				arns = append(arns, utility.FromStringPtr(createSecretOut.ARN))
			}

			getResourcesOut, err := tagClient.GetResources(ctx, &resourcegroupstaggingapi.GetResourcesInput{
				ResourceTypeFilters: []string{"secretsmanager:secret"},
				TagFilters: []rgttypes.TagFilter{
					{
						Key:    inputTags[0].Key,
						Values: []string{utility.FromStringPtr(inputTags[0].Value)},
					},
				},
			})
			require.NoError(t, err)

			checkResources(t, *getResourcesOut, arns)
		},
		"GetResourcesMatchesSingleTagKeyAndOneOfMultipleValues": func(ctx context.Context, t *testing.T, tagClient strongbox.TagClient, smClient strongbox.SecretsManagerClient) {
			inputTags := []smtypes.Tag{
				{
					Key:   aws.String(utility.RandomString()),
					Value: aws.String(utility.RandomString()),
				},
			}
			createSecretOut := testutil.CreateSecret(ctx, t, smClient, secretsmanager.CreateSecretInput{
				Name:         aws.String(testutil.NewSecretName(t)),
				SecretString: aws.String(utility.RandomString()),
				Tags:         inputTags,
			})
			defer cleanupSecret(ctx, t, smClient, &createSecretOut)

			getResourcesOut, err := tagClient.GetResources(ctx, &resourcegroupstaggingapi.GetResourcesInput{
				ResourceTypeFilters: []string{"secretsmanager:secret"},
				TagFilters: []rgttypes.TagFilter{
					{
						Key:    inputTags[0].Key,
						Values: []string{"foo", "bar", utility.FromStringPtr(inputTags[0].Value), "baz"},
					},
				},
			})
			require.NoError(t, err)

			checkResources(t, *getResourcesOut, []string{utility.FromStringPtr(createSecretOut.ARN)})
		},
		"GetResourcesMatchesMultipleTagKeys": func(ctx context.Context, t *testing.T, tagClient strongbox.TagClient, smClient strongbox.SecretsManagerClient) {
			inputTags := []smtypes.Tag{
				{
					Key:   aws.String(utility.RandomString()),
					Value: aws.String(utility.RandomString()),
				},
				{
					Key:   aws.String(utility.RandomString()),
					Value: aws.String(utility.RandomString()),
				},
			}
			createSecretOut := testutil.CreateSecret(ctx, t, smClient, secretsmanager.CreateSecretInput{
				Name:         aws.String(testutil.NewSecretName(t)),
				SecretString: aws.String(utility.RandomString()),
				Tags:         inputTags,
			})
			defer cleanupSecret(ctx, t, smClient, &createSecretOut)

			getResourcesOut, err := tagClient.GetResources(ctx, &resourcegroupstaggingapi.GetResourcesInput{
				ResourceTypeFilters: []string{"secretsmanager:secret"},
				TagFilters: []rgttypes.TagFilter{
					{
						Key: inputTags[0].Key,
					},
					{
						Key: inputTags[1].Key,
					},
				},
			})
			require.NoError(t, err)

			checkResources(t, *getResourcesOut, []string{utility.FromStringPtr(createSecretOut.ARN)})
		},
		"GetResourcesMatchesMultipleTagKeysAndValues": func(ctx context.Context, t *testing.T, tagClient strongbox.TagClient, smClient strongbox.SecretsManagerClient) {
			inputTags := []smtypes.Tag{
				{
					Key:   aws.String(utility.RandomString()),
					Value: aws.String(utility.RandomString()),
				},
				{
					Key:   aws.String(utility.RandomString()),
					Value: aws.String(utility.RandomString()),
				},
			}
			createSecretOut := testutil.CreateSecret(ctx, t, smClient, secretsmanager.CreateSecretInput{
				Name:         aws.String(testutil.NewSecretName(t)),
				SecretString: aws.String(utility.RandomString()),
				Tags:         inputTags,
			})
			defer cleanupSecret(ctx, t, smClient, &createSecretOut)

			getResourcesOut, err := tagClient.GetResources(ctx, &resourcegroupstaggingapi.GetResourcesInput{
				ResourceTypeFilters: []string{"secretsmanager:secret"},
				TagFilters: []rgttypes.TagFilter{
					{
						Key:    inputTags[0].Key,
						Values: []string{"foo", utility.FromStringPtr(inputTags[0].Value), "baz"},
					},
					{
						Key:    inputTags[1].Key,
						Values: []string{"qux", utility.FromStringPtr(inputTags[1].Value), "quux"},
					},
				},
			})
			require.NoError(t, err)

			checkResources(t, *getResourcesOut, []string{utility.FromStringPtr(createSecretOut.ARN)})
		},
		"GetResourcesOmitsResultForAnyUnmatchedTagKey": func(ctx context.Context, t *testing.T, tagClient strongbox.TagClient, smClient strongbox.SecretsManagerClient) {
			inputTags := []smtypes.Tag{
				{
					Key:   aws.String(utility.RandomString()),
					Value: aws.String(utility.RandomString()),
				},
			}
			createSecretOut := testutil.CreateSecret(ctx, t, smClient, secretsmanager.CreateSecretInput{
				Name:         aws.String(testutil.NewSecretName(t)),
				SecretString: aws.String(utility.RandomString()),
				Tags:         inputTags,
			})
			defer cleanupSecret(ctx, t, smClient, &createSecretOut)

			getResourcesOut, err := tagClient.GetResources(ctx, &resourcegroupstaggingapi.GetResourcesInput{
				ResourceTypeFilters: []string{"secretsmanager:secret"},
				TagFilters: []rgttypes.TagFilter{
					{
						Key:    inputTags[0].Key,
						Values: []string{utility.FromStringPtr(inputTags[0].Value)},
					},
					{
						Key: aws.String("nonexistent"),
					},
				},
			})
			require.NoError(t, err)
			require.NotZero(t, getResourcesOut)
			assert.Empty(t, getResourcesOut.ResourceTagMappingList)
		},
		"GetResourcesOmitsResultsForAnyUnmatchedTagValues": func(ctx context.Context, t *testing.T, tagClient strongbox.TagClient, smClient strongbox.SecretsManagerClient) {
			inputTags := []smtypes.Tag{
				{
					Key:   aws.String(utility.RandomString()),
					Value: aws.String(utility.RandomString()),
				},
			}
			createSecretOut := testutil.CreateSecret(ctx, t, smClient, secretsmanager.CreateSecretInput{
				Name:         aws.String(testutil.NewSecretName(t)),
				SecretString: aws.String(utility.RandomString()),
				Tags:         inputTags,
			})
			defer cleanupSecret(ctx, t, smClient, &createSecretOut)

			getResourcesOut, err := tagClient.GetResources(ctx, &resourcegroupstaggingapi.GetResourcesInput{
				ResourceTypeFilters: []string{"secretsmanager:secret"},
				TagFilters: []rgttypes.TagFilter{
					{
						Key:    inputTags[0].Key,
						Values: []string{utility.FromStringPtr(inputTags[0].Value)},
					},
					{
						Key:    inputTags[0].Key,
						Values: []string{"nonexistent"},
					},
				},
			})
			require.NoError(t, err)
			require.NotZero(t, getResourcesOut)
			assert.Empty(t, getResourcesOut.ResourceTagMappingList)
		},
	}
}
