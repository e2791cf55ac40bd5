package mock

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/evergreen-ci/utility"
)

// awsCurrentStage and awsPreviousStage are the stage labels the real service
// attaches to the current and previous versions of a secret value.
const (
	awsCurrentStage  = "AWSCURRENT"
	awsPreviousStage = "AWSPREVIOUS"
)

// StoredSecretVersion is a single value version of a secret kept in the
// global secret storage cache.
type StoredSecretVersion struct {
	ID      string
	Value   string
	Stages  []string
	Created time.Time
}

// StoredSecret is a representation of a secret kept in the global secret
// storage cache.
type StoredSecret struct {
	// For the sake of simplicity, the secret ARN is synonymous with the
	// secret name.
	Name         string
	Description  string
	Value        string
	BinaryValue  []byte
	IsDeleted    bool
	Created      time.Time
	LastUpdated  time.Time
	LastAccessed time.Time
	Deleted      time.Time
	Tags         map[string]string
	Versions     []StoredSecretVersion
}

func newStoredSecret(in *secretsmanager.CreateSecretInput, ts time.Time) StoredSecret {
	s := StoredSecret{
		Name:         utility.FromStringPtr(in.Name),
		Description:  utility.FromStringPtr(in.Description),
		Value:        utility.FromStringPtr(in.SecretString),
		BinaryValue:  in.SecretBinary,
		Created:      ts,
		LastAccessed: ts,
		Tags:         newSecretsManagerTags(in.Tags),
	}
	s.Versions = []StoredSecretVersion{
		{
			ID:      utility.RandomString(),
			Value:   s.Value,
			Stages:  []string{awsCurrentStage},
			Created: ts,
		},
	}
	return s
}

func exportSecretListEntry(s StoredSecret) types.SecretListEntry {
	return types.SecretListEntry{
		ARN:              utility.ToStringPtr(s.Name),
		Name:             utility.ToStringPtr(s.Name),
		Description:      utility.ToStringPtr(s.Description),
		CreatedDate:      utility.ToTimePtr(s.Created),
		LastAccessedDate: utility.ToTimePtr(s.LastAccessed),
		LastChangedDate:  utility.ToTimePtr(s.LastUpdated),
		DeletedDate:      utility.ToTimePtr(s.Deleted),
		Tags:             exportSecretsManagerTags(s.Tags),
	}
}

func newSecretsManagerTags(tags []types.Tag) map[string]string {
	converted := map[string]string{}
	for _, t := range tags {
		converted[utility.FromStringPtr(t.Key)] = utility.FromStringPtr(t.Value)
	}
	return converted
}

func exportSecretsManagerTags(tags map[string]string) []types.Tag {
	var exported []types.Tag
	for k, v := range tags {
		exported = append(exported, types.Tag{
			Key:   utility.ToStringPtr(k),
			Value: utility.ToStringPtr(v),
		})
	}
	return exported
}

// GlobalSecretCache is a global secret storage cache that provides a
// simplified in-memory implementation of a secrets storage service. This can
// be used indirectly with the SecretsManagerClient to access and modify
// secrets, or used directly.
var GlobalSecretCache map[string]StoredSecret

func init() {
	ResetGlobalSecretCache()
}

// ResetGlobalSecretCache resets the global fake secret storage cache to an
// initialized but clean state.
func ResetGlobalSecretCache() {
	GlobalSecretCache = map[string]StoredSecret{}
}

func invalidParameterError(msg string) error {
	return &types.InvalidParameterException{Message: utility.ToStringPtr(msg)}
}

func resourceNotFoundError() error {
	return &types.ResourceNotFoundException{Message: utility.ToStringPtr("Secrets Manager can't find the specified secret.")}
}

func markedForDeletionError() error {
	return &types.InvalidRequestException{Message: utility.ToStringPtr("You can't perform this operation on the secret because it was marked for deletion.")}
}

// SecretsManagerClient provides a mock implementation of a
// strongbox.SecretsManagerClient. This makes it possible to introspect on
// inputs to the client and control the client's output. It provides some
// default implementations where possible. By default, it will issue the API
// calls to the fake GlobalSecretCache.
type SecretsManagerClient struct {
	CreateSecretInput  *secretsmanager.CreateSecretInput
	CreateSecretOutput *secretsmanager.CreateSecretOutput
	CreateSecretError  error

	GetSecretValueInput  *secretsmanager.GetSecretValueInput
	GetSecretValueOutput *secretsmanager.GetSecretValueOutput
	GetSecretValueError  error

	BatchGetSecretValueInput  *secretsmanager.BatchGetSecretValueInput
	BatchGetSecretValueOutput *secretsmanager.BatchGetSecretValueOutput
	BatchGetSecretValueError  error

	UpdateSecretInput  *secretsmanager.UpdateSecretInput
	UpdateSecretOutput *secretsmanager.UpdateSecretOutput
	UpdateSecretError  error

	DeleteSecretInput  *secretsmanager.DeleteSecretInput
	DeleteSecretOutput *secretsmanager.DeleteSecretOutput
	DeleteSecretError  error

	DescribeSecretInput  *secretsmanager.DescribeSecretInput
	DescribeSecretOutput *secretsmanager.DescribeSecretOutput
	DescribeSecretError  error

	ListSecretsInput  *secretsmanager.ListSecretsInput
	ListSecretsOutput *secretsmanager.ListSecretsOutput
	ListSecretsError  error

	ListSecretVersionIdsInput  *secretsmanager.ListSecretVersionIdsInput
	ListSecretVersionIdsOutput *secretsmanager.ListSecretVersionIdsOutput
	ListSecretVersionIdsError  error

	TagResourceInput  *secretsmanager.TagResourceInput
	TagResourceOutput *secretsmanager.TagResourceOutput
	TagResourceError  error

	CloseError error
}

// CreateSecret saves the input options and returns a new mock secret. The
// mock output can be customized. By default, it will create and save a cached
// mock secret based on the input in the global secret cache.
func (c *SecretsManagerClient) CreateSecret(ctx context.Context, in *secretsmanager.CreateSecretInput) (*secretsmanager.CreateSecretOutput, error) {
	c.CreateSecretInput = in

	if c.CreateSecretOutput != nil || c.CreateSecretError != nil {
		return c.CreateSecretOutput, c.CreateSecretError
	}

	if in.Name == nil {
		return nil, invalidParameterError("missing secret name")
	}
	if in.SecretBinary != nil && in.SecretString != nil {
		return nil, invalidParameterError("cannot specify both secret binary and secret string")
	}
	if in.SecretBinary == nil && in.SecretString == nil {
		return nil, invalidParameterError("must specify either secret binary or secret string")
	}

	name := utility.FromStringPtr(in.Name)
	if s, ok := GlobalSecretCache[name]; ok && !s.IsDeleted {
		return nil, &types.ResourceExistsException{Message: utility.ToStringPtr("secret already exists")}
	}

	newSecret := newStoredSecret(in, time.Now())
	GlobalSecretCache[newSecret.Name] = newSecret

	return &secretsmanager.CreateSecretOutput{
		ARN:       utility.ToStringPtr(newSecret.Name),
		Name:      utility.ToStringPtr(newSecret.Name),
		VersionId: utility.ToStringPtr(newSecret.Versions[0].ID),
	}, nil
}

// GetSecretValue saves the input options and returns an existing mock
// secret's value. The mock output can be customized. By default, it will
// return a cached mock secret if it exists in the global secret cache.
func (c *SecretsManagerClient) GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput) (*secretsmanager.GetSecretValueOutput, error) {
	c.GetSecretValueInput = in

	if c.GetSecretValueOutput != nil || c.GetSecretValueError != nil {
		return c.GetSecretValueOutput, c.GetSecretValueError
	}

	if in.SecretId == nil {
		return nil, invalidParameterError("missing secret ID")
	}

	id := utility.FromStringPtr(in.SecretId)
	s := getSecret(id)
	if s == nil {
		return nil, resourceNotFoundError()
	}

	if s.IsDeleted {
		return nil, markedForDeletionError()
	}

	version := s.currentVersion()
	if in.VersionId != nil {
		version = s.findVersion(utility.FromStringPtr(in.VersionId))
		if version == nil {
			return nil, resourceNotFoundError()
		}
	}

	s.LastAccessed = time.Now()
	GlobalSecretCache[id] = *s

	out := &secretsmanager.GetSecretValueOutput{
		ARN:          utility.ToStringPtr(s.Name),
		Name:         utility.ToStringPtr(s.Name),
		SecretBinary: s.BinaryValue,
		CreatedDate:  utility.ToTimePtr(s.Created),
	}
	if version != nil {
		out.VersionId = utility.ToStringPtr(version.ID)
		out.VersionStages = version.Stages
		if s.BinaryValue == nil {
			out.SecretString = utility.ToStringPtr(version.Value)
		}
	}
	return out, nil
}

func (s *StoredSecret) currentVersion() *StoredSecretVersion {
	for i, v := range s.Versions {
		if utility.StringSliceContains(v.Stages, awsCurrentStage) {
			return &s.Versions[i]
		}
	}
	return nil
}

func (s *StoredSecret) findVersion(id string) *StoredSecretVersion {
	for i, v := range s.Versions {
		if v.ID == id {
			return &s.Versions[i]
		}
	}
	return nil
}

func getSecret(id string) *StoredSecret {
	if s, ok := GlobalSecretCache[id]; ok {
		return &s
	}
	for _, s := range GlobalSecretCache {
		if s.Name == id {
			return &s
		}
	}
	return nil
}

// BatchGetSecretValue saves the input options and returns a page of existing
// mock secrets' values. The mock output can be customized. By default, it
// will return the matching cached mock secrets in the global secret cache,
// paginating in lexicographic name order, and collect per-secret failures
// into the output's error list.
func (c *SecretsManagerClient) BatchGetSecretValue(ctx context.Context, in *secretsmanager.BatchGetSecretValueInput) (*secretsmanager.BatchGetSecretValueOutput, error) {
	c.BatchGetSecretValueInput = in

	if c.BatchGetSecretValueOutput != nil || c.BatchGetSecretValueError != nil {
		return c.BatchGetSecretValueOutput, c.BatchGetSecretValueError
	}

	if len(in.SecretIdList) == 0 && len(in.Filters) == 0 {
		return nil, invalidParameterError("must specify either secret IDs or filters")
	}

	var names []string
	var itemErrs []types.APIErrorType
	if len(in.SecretIdList) != 0 {
		for _, id := range in.SecretIdList {
			s := getSecret(id)
			if s == nil {
				itemErrs = append(itemErrs, types.APIErrorType{
					SecretId:  utility.ToStringPtr(id),
					ErrorCode: utility.ToStringPtr("ResourceNotFoundException"),
					Message:   utility.ToStringPtr("Secrets Manager can't find the specified secret."),
				})
				continue
			}
			if s.IsDeleted {
				itemErrs = append(itemErrs, types.APIErrorType{
					SecretId:  utility.ToStringPtr(id),
					ErrorCode: utility.ToStringPtr("InvalidRequestException"),
					Message:   utility.ToStringPtr("You can't perform this operation on the secret because it was marked for deletion."),
				})
				continue
			}
			if len(in.Filters) != 0 && !matchesFilters(*s, in.Filters) {
				continue
			}
			names = append(names, s.Name)
		}
	} else {
		for _, s := range GlobalSecretCache {
			if s.IsDeleted {
				continue
			}
			if matchesFilters(s, in.Filters) {
				names = append(names, s.Name)
			}
		}
	}

	page, nextToken := paginate(names, in.NextToken, in.MaxResults)

	out := &secretsmanager.BatchGetSecretValueOutput{
		NextToken: nextToken,
	}
	// Report per-secret failures on the first page only so that paging
	// callers see each failure exactly once.
	if in.NextToken == nil {
		out.Errors = itemErrs
	}
	for _, name := range page {
		s := GlobalSecretCache[name]
		entry := types.SecretValueEntry{
			ARN:          utility.ToStringPtr(s.Name),
			Name:         utility.ToStringPtr(s.Name),
			SecretBinary: s.BinaryValue,
			CreatedDate:  utility.ToTimePtr(s.Created),
		}
		if v := s.currentVersion(); v != nil && s.BinaryValue == nil {
			entry.SecretString = utility.ToStringPtr(v.Value)
			entry.VersionId = utility.ToStringPtr(v.ID)
			entry.VersionStages = v.Stages
		}
		out.SecretValues = append(out.SecretValues, entry)
	}

	return out, nil
}

// paginate returns the page of names after the given continuation token,
// capped at max entries when given, along with the token for the next page if
// more names remain. Names are ordered lexicographically so pagination is
// deterministic.
func paginate(names []string, token *string, max *int32) ([]string, *string) {
	sort.Strings(names)

	start := 0
	if token != nil {
		for start < len(names) && names[start] <= *token {
			start++
		}
	}
	names = names[start:]

	if max != nil && int(*max) < len(names) {
		page := names[:*max]
		return page, utility.ToStringPtr(page[len(page)-1])
	}
	return names, nil
}

// matchesFilters returns whether the secret matches every given filter. Each
// filter matches if any of its values is a prefix of the relevant attribute,
// mirroring the real service's prefix-matching filters.
func matchesFilters(s StoredSecret, filters []types.Filter) bool {
	for _, f := range filters {
		var matched bool
		for _, v := range f.Values {
			switch f.Key {
			case types.FilterNameStringTypeName:
				matched = matched || strings.HasPrefix(s.Name, v)
			case types.FilterNameStringTypeDescription:
				matched = matched || strings.HasPrefix(s.Description, v)
			case types.FilterNameStringTypeTagKey:
				for k := range s.Tags {
					matched = matched || strings.HasPrefix(k, v)
				}
			case types.FilterNameStringTypeTagValue:
				for _, tv := range s.Tags {
					matched = matched || strings.HasPrefix(tv, v)
				}
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

// UpdateSecret saves the input options and returns an updated mock secret
// value. The mock output can be customized. By default, it will add a new
// current value version to a cached mock secret if it exists in the global
// secret cache and update its description.
func (c *SecretsManagerClient) UpdateSecret(ctx context.Context, in *secretsmanager.UpdateSecretInput) (*secretsmanager.UpdateSecretOutput, error) {
	c.UpdateSecretInput = in

	if c.UpdateSecretOutput != nil || c.UpdateSecretError != nil {
		return c.UpdateSecretOutput, c.UpdateSecretError
	}

	if in.SecretId == nil {
		return nil, invalidParameterError("missing secret ID")
	}
	if in.SecretBinary != nil && in.SecretString != nil {
		return nil, invalidParameterError("cannot specify both secret binary and secret string")
	}

	id := utility.FromStringPtr(in.SecretId)
	s := getSecret(id)
	if s == nil {
		return nil, resourceNotFoundError()
	}

	if s.IsDeleted {
		return nil, markedForDeletionError()
	}

	ts := time.Now()
	var newVersionID string
	if in.SecretBinary != nil {
		s.BinaryValue = in.SecretBinary
	}
	if in.SecretString != nil {
		s.Value = *in.SecretString
		newVersionID = utility.RandomString()
		for i := range s.Versions {
			stages := make([]string, 0, len(s.Versions[i].Stages))
			for _, stage := range s.Versions[i].Stages {
				if stage == awsCurrentStage {
					stage = awsPreviousStage
				}
				stages = append(stages, stage)
			}
			s.Versions[i].Stages = stages
		}
		s.Versions = append(s.Versions, StoredSecretVersion{
			ID:      newVersionID,
			Value:   s.Value,
			Stages:  []string{awsCurrentStage},
			Created: ts,
		})
	}
	if in.Description != nil {
		s.Description = *in.Description
	}

	s.LastAccessed = ts
	s.LastUpdated = ts

	GlobalSecretCache[s.Name] = *s

	out := &secretsmanager.UpdateSecretOutput{
		ARN:  utility.ToStringPtr(s.Name),
		Name: utility.ToStringPtr(s.Name),
	}
	if newVersionID != "" {
		out.VersionId = utility.ToStringPtr(newVersionID)
	}
	return out, nil
}

// DeleteSecret saves the input options and deletes an existing mock secret.
// The mock output can be customized. By default, it will delete a cached mock
// secret if it exists.
func (c *SecretsManagerClient) DeleteSecret(ctx context.Context, in *secretsmanager.DeleteSecretInput) (*secretsmanager.DeleteSecretOutput, error) {
	c.DeleteSecretInput = in

	if c.DeleteSecretOutput != nil || c.DeleteSecretError != nil {
		return c.DeleteSecretOutput, c.DeleteSecretError
	}

	if in.SecretId == nil {
		return nil, invalidParameterError("missing secret ID")
	}

	if utility.FromBoolPtr(in.ForceDeleteWithoutRecovery) && in.RecoveryWindowInDays != nil {
		return nil, invalidParameterError("cannot force delete without recovery and also schedule a recovery window")
	}

	window := int(utility.FromInt64Ptr(in.RecoveryWindowInDays))
	if in.RecoveryWindowInDays != nil && (window < 7 || window > 30) {
		return nil, invalidParameterError("recovery window must be between 7 and 30 days")
	}
	if window == 0 {
		window = 30
	}

	id := utility.FromStringPtr(in.SecretId)
	s, ok := GlobalSecretCache[id]
	if !ok {
		if !utility.FromBoolPtr(in.ForceDeleteWithoutRecovery) {
			return nil, resourceNotFoundError()
		}
		// Force deletion of a missing secret succeeds without caching
		// anything.
		return &secretsmanager.DeleteSecretOutput{
			ARN:  in.SecretId,
			Name: in.SecretId,
		}, nil
	}

	ts := time.Now()
	s.LastAccessed = ts
	s.LastUpdated = ts
	if !utility.FromBoolPtr(in.ForceDeleteWithoutRecovery) {
		s.Deleted = ts.AddDate(0, 0, window)
	}
	s.IsDeleted = true
	GlobalSecretCache[id] = s

	return &secretsmanager.DeleteSecretOutput{
		ARN:          utility.ToStringPtr(s.Name),
		Name:         utility.ToStringPtr(s.Name),
		DeletionDate: utility.ToTimePtr(s.Deleted),
	}, nil
}

// DescribeSecret saves the input options and returns an existing mock
// secret's metadata information. The mock output can be customized. By
// default, it will return information about the cached mock secret if it
// exists in the global secret cache.
func (c *SecretsManagerClient) DescribeSecret(ctx context.Context, in *secretsmanager.DescribeSecretInput) (*secretsmanager.DescribeSecretOutput, error) {
	c.DescribeSecretInput = in

	if c.DescribeSecretOutput != nil || c.DescribeSecretError != nil {
		return c.DescribeSecretOutput, c.DescribeSecretError
	}

	if in.SecretId == nil {
		return nil, invalidParameterError("missing secret ID")
	}

	s := getSecret(utility.FromStringPtr(in.SecretId))
	if s == nil {
		return nil, resourceNotFoundError()
	}

	return &secretsmanager.DescribeSecretOutput{
		ARN:              utility.ToStringPtr(s.Name),
		Name:             utility.ToStringPtr(s.Name),
		Description:      utility.ToStringPtr(s.Description),
		CreatedDate:      utility.ToTimePtr(s.Created),
		LastAccessedDate: utility.ToTimePtr(s.LastAccessed),
		LastChangedDate:  utility.ToTimePtr(s.LastUpdated),
		DeletedDate:      utility.ToTimePtr(s.Deleted),
		Tags:             exportSecretsManagerTags(s.Tags),
	}, nil
}

// ListSecrets saves the input options and returns a page of matching mock
// secrets' metadata information. The mock output can be customized. By
// default, it will return any matching cached mock secrets in the global
// secret cache, paginating in lexicographic name order.
func (c *SecretsManagerClient) ListSecrets(ctx context.Context, in *secretsmanager.ListSecretsInput) (*secretsmanager.ListSecretsOutput, error) {
	c.ListSecretsInput = in

	if c.ListSecretsOutput != nil || c.ListSecretsError != nil {
		return c.ListSecretsOutput, c.ListSecretsError
	}

	var names []string
	for _, s := range GlobalSecretCache {
		if s.IsDeleted {
			continue
		}
		if matchesFilters(s, in.Filters) {
			names = append(names, s.Name)
		}
	}

	page, nextToken := paginate(names, in.NextToken, in.MaxResults)

	out := &secretsmanager.ListSecretsOutput{
		NextToken: nextToken,
	}
	for _, name := range page {
		out.SecretList = append(out.SecretList, exportSecretListEntry(GlobalSecretCache[name]))
	}

	return out, nil
}

// ListSecretVersionIds saves the input options and returns an existing mock
// secret's value versions. The mock output can be customized. By default, it
// will return the versions of a cached mock secret if it exists in the global
// secret cache. Versions without stage labels are only included when the
// input requests deprecated versions.
func (c *SecretsManagerClient) ListSecretVersionIds(ctx context.Context, in *secretsmanager.ListSecretVersionIdsInput) (*secretsmanager.ListSecretVersionIdsOutput, error) {
	c.ListSecretVersionIdsInput = in

	if c.ListSecretVersionIdsOutput != nil || c.ListSecretVersionIdsError != nil {
		return c.ListSecretVersionIdsOutput, c.ListSecretVersionIdsError
	}

	if in.SecretId == nil {
		return nil, invalidParameterError("missing secret ID")
	}

	s := getSecret(utility.FromStringPtr(in.SecretId))
	if s == nil {
		return nil, resourceNotFoundError()
	}

	out := &secretsmanager.ListSecretVersionIdsOutput{
		ARN:  utility.ToStringPtr(s.Name),
		Name: utility.ToStringPtr(s.Name),
	}
	for _, v := range s.Versions {
		if len(v.Stages) == 0 && !utility.FromBoolPtr(in.IncludeDeprecated) {
			continue
		}
		out.Versions = append(out.Versions, types.SecretVersionsListEntry{
			VersionId:     utility.ToStringPtr(v.ID),
			VersionStages: v.Stages,
			CreatedDate:   utility.ToTimePtr(v.Created),
		})
	}

	return out, nil
}

// TagResource saves the input options and tags an existing mock secret. The
// mock output can be customized. By default, it will tag the cached mock
// secret if it exists.
func (c *SecretsManagerClient) TagResource(ctx context.Context, in *secretsmanager.TagResourceInput) (*secretsmanager.TagResourceOutput, error) {
	c.TagResourceInput = in

	if c.TagResourceOutput != nil || c.TagResourceError != nil {
		return c.TagResourceOutput, c.TagResourceError
	}

	if in.SecretId == nil {
		return nil, invalidParameterError("missing secret ID")
	}

	s := getSecret(utility.FromStringPtr(in.SecretId))
	if s == nil {
		return nil, resourceNotFoundError()
	}

	if s.IsDeleted {
		return nil, markedForDeletionError()
	}

	if s.Tags == nil {
		s.Tags = map[string]string{}
	}
	for k, v := range newSecretsManagerTags(in.Tags) {
		s.Tags[k] = v
	}
	GlobalSecretCache[s.Name] = *s

	return &secretsmanager.TagResourceOutput{}, nil
}

// Close closes the mock client. The mock output can be customized. By
// default, it is a no-op that returns no error.
func (c *SecretsManagerClient) Close(ctx context.Context) error {
	if c.CloseError != nil {
		return c.CloseError
	}
	return nil
}
