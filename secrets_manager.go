package strongbox

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/mongodb/grip"
)

// SecretManager is a high-level facade to interact with secrets kept in a
// secret storage service. It is stateless between calls - it never retains
// secret material, tokens, or results, so every method is independently safe
// to retry at the caller's discretion.
type SecretManager interface {
	// GetSecret returns the current (or a specific) version of a secret's
	// value. Options are applied in the order they're specified and
	// conflicting options are overwritten.
	GetSecret(ctx context.Context, id string, opts ...*GetSecretOptions) (*SecretValue, error)
	// BatchGetSecrets returns a single page of values for multiple secrets.
	// Looping over continuation tokens is the caller's responsibility.
	BatchGetSecrets(ctx context.Context, opts ...*BatchGetSecretsOptions) (*BatchGetSecretsResult, error)
	// CreateSecret creates a new secret and returns the identifier assigned
	// by the service. Non-string values are serialized to JSON before
	// transmission.
	CreateSecret(ctx context.Context, name string, value any, opts ...*SecretCreationOptions) (string, error)
	// UpdateSecret updates an existing secret's value and returns the
	// identifier assigned by the service. Tags cannot be updated here - use
	// TagSecret.
	UpdateSecret(ctx context.Context, id string, value any, opts ...*SecretUpdateOptions) (string, error)
	// DeleteSecret deletes a secret, either immediately or after a recovery
	// window.
	DeleteSecret(ctx context.Context, id string, opts ...*SecretDeletionOptions) error
	// SecretExists returns whether a secret with the given identifier exists.
	SecretExists(ctx context.Context, id string) (bool, error)
	// ListSecrets returns a single page of secret names matching the given
	// filters.
	ListSecrets(ctx context.Context, opts ...*ListSecretsOptions) (*ListSecretsResult, error)
	// TagSecret adds or replaces the given tags on a secret and returns a
	// human-readable acknowledgment.
	TagSecret(ctx context.Context, id string, tags map[string]string) (string, error)
	// GetTags returns the secret's tags as a key-value mapping.
	GetTags(ctx context.Context, id string) (map[string]string, error)
	// GetSecretVersions returns every known version of a secret, including
	// deprecated ones.
	GetSecretVersions(ctx context.Context, id string) ([]SecretVersion, error)
}

// GetSecretOptions provide options to get a secret's value.
type GetSecretOptions struct {
	// Parse indicates whether the value should be JSON-parsed. Parsing is
	// best-effort - a value that is not valid JSON is returned as its raw
	// string without error. Defaults to true.
	Parse *bool
	// Version is the identifier of a specific value version to fetch. If
	// unset, the current version is fetched.
	Version *string
}

// NewGetSecretOptions returns new uninitialized options to get a secret's
// value.
func NewGetSecretOptions() *GetSecretOptions {
	return &GetSecretOptions{}
}

// SetParse sets whether the secret value should be JSON-parsed.
func (o *GetSecretOptions) SetParse(parse bool) *GetSecretOptions {
	o.Parse = &parse
	return o
}

// SetVersion sets the identifier of the value version to fetch.
func (o *GetSecretOptions) SetVersion(version string) *GetSecretOptions {
	o.Version = &version
	return o
}

// MergeGetSecretOptions merges all the given options to get a secret's value.
// Options are applied in the order they're specified and conflicting options
// are overwritten.
func MergeGetSecretOptions(opts ...*GetSecretOptions) *GetSecretOptions {
	merged := GetSecretOptions{}

	for _, opt := range opts {
		if opt == nil {
			continue
		}

		if opt.Parse != nil {
			merged.Parse = opt.Parse
		}

		if opt.Version != nil {
			merged.Version = opt.Version
		}
	}

	return &merged
}

// SecretValue represents the payload of a single secret.
type SecretValue struct {
	// Name is the friendly name of the secret reported by the service.
	Name string
	// Raw is the unmodified string payload.
	Raw string
	// Value is the JSON-parsed payload when parsing was requested and
	// succeeded; otherwise it is identical to Raw.
	Value any
}

// SecretFilters restrict which secrets a batch fetch or listing considers.
// All given predicates must match.
type SecretFilters struct {
	// Names filters by secret name prefix.
	Names []string
	// Descriptions filters by words in the secret description.
	Descriptions []string
	// TagKeys filters by tag key prefix.
	TagKeys []string
	// TagValues filters by tag value prefix.
	TagValues []string
}

// NewSecretFilters returns new uninitialized secret filters.
func NewSecretFilters() *SecretFilters {
	return &SecretFilters{}
}

// SetNames sets the name prefixes to filter by.
func (f *SecretFilters) SetNames(names []string) *SecretFilters {
	f.Names = names
	return f
}

// SetDescriptions sets the description words to filter by.
func (f *SecretFilters) SetDescriptions(descriptions []string) *SecretFilters {
	f.Descriptions = descriptions
	return f
}

// SetTagKeys sets the tag key prefixes to filter by.
func (f *SecretFilters) SetTagKeys(keys []string) *SecretFilters {
	f.TagKeys = keys
	return f
}

// SetTagValues sets the tag value prefixes to filter by.
func (f *SecretFilters) SetTagValues(values []string) *SecretFilters {
	f.TagValues = values
	return f
}

// Export converts the filters into the request shape that the Secrets Manager
// API expects. It returns nil if no predicates are set.
func (f *SecretFilters) Export() []types.Filter {
	if f == nil {
		return nil
	}

	var filters []types.Filter
	if len(f.Names) != 0 {
		filters = append(filters, types.Filter{
			Key:    types.FilterNameStringTypeName,
			Values: f.Names,
		})
	}
	if len(f.Descriptions) != 0 {
		filters = append(filters, types.Filter{
			Key:    types.FilterNameStringTypeDescription,
			Values: f.Descriptions,
		})
	}
	if len(f.TagKeys) != 0 {
		filters = append(filters, types.Filter{
			Key:    types.FilterNameStringTypeTagKey,
			Values: f.TagKeys,
		})
	}
	if len(f.TagValues) != 0 {
		filters = append(filters, types.Filter{
			Key:    types.FilterNameStringTypeTagValue,
			Values: f.TagValues,
		})
	}
	return filters
}

// BatchGetSecretsOptions provide options to fetch a page of secret values in
// one logical request.
type BatchGetSecretsOptions struct {
	// SecretIDs are the identifiers of the secrets to fetch. Required.
	SecretIDs []string
	// Filters restrict which of the secrets are considered.
	Filters *SecretFilters
	// MaxResults caps the number of secrets in the returned page.
	MaxResults *int32
	// NextToken is the continuation token from a previous page.
	NextToken *string
	// Parse indicates whether values should be JSON-parsed, with the same
	// best-effort semantics as GetSecretOptions.Parse. Defaults to true.
	Parse *bool
}

// NewBatchGetSecretsOptions returns new uninitialized options to fetch a page
// of secret values.
func NewBatchGetSecretsOptions() *BatchGetSecretsOptions {
	return &BatchGetSecretsOptions{}
}

// SetSecretIDs sets the identifiers of the secrets to fetch.
func (o *BatchGetSecretsOptions) SetSecretIDs(ids []string) *BatchGetSecretsOptions {
	o.SecretIDs = ids
	return o
}

// SetFilters sets the filters restricting which secrets are considered.
func (o *BatchGetSecretsOptions) SetFilters(filters SecretFilters) *BatchGetSecretsOptions {
	o.Filters = &filters
	return o
}

// SetMaxResults sets the cap on the number of secrets per page.
func (o *BatchGetSecretsOptions) SetMaxResults(max int32) *BatchGetSecretsOptions {
	o.MaxResults = &max
	return o
}

// SetNextToken sets the continuation token from a previous page.
func (o *BatchGetSecretsOptions) SetNextToken(token string) *BatchGetSecretsOptions {
	o.NextToken = &token
	return o
}

// SetParse sets whether secret values should be JSON-parsed.
func (o *BatchGetSecretsOptions) SetParse(parse bool) *BatchGetSecretsOptions {
	o.Parse = &parse
	return o
}

// Validate checks that the options specify a valid batch fetch.
func (o *BatchGetSecretsOptions) Validate() error {
	catcher := grip.NewBasicCatcher()
	catcher.NewWhen(len(o.SecretIDs) == 0, "must provide at least one secret ID")
	return catcher.Resolve()
}

// MergeBatchGetSecretsOptions merges all the given options to fetch a batch
// of secrets. Options are applied in the order they're specified and
// conflicting options are overwritten.
func MergeBatchGetSecretsOptions(opts ...*BatchGetSecretsOptions) *BatchGetSecretsOptions {
	merged := BatchGetSecretsOptions{}

	for _, opt := range opts {
		if opt == nil {
			continue
		}

		if opt.SecretIDs != nil {
			merged.SecretIDs = opt.SecretIDs
		}

		if opt.Filters != nil {
			merged.Filters = opt.Filters
		}

		if opt.MaxResults != nil {
			merged.MaxResults = opt.MaxResults
		}

		if opt.NextToken != nil {
			merged.NextToken = opt.NextToken
		}

		if opt.Parse != nil {
			merged.Parse = opt.Parse
		}
	}

	return &merged
}

// BatchSecretError describes a single secret that the service could not
// return within an otherwise successful batch fetch.
type BatchSecretError struct {
	// SecretID is the identifier of the secret that failed.
	SecretID string
	// ErrorCode is the service's error code for the failure.
	ErrorCode string
	// ErrorMessage is the service's message for the failure.
	ErrorMessage string
}

// BatchGetSecretsResult is the aggregated outcome of fetching a page of
// secrets.
type BatchGetSecretsResult struct {
	// Secrets maps each returned secret name to its value.
	Secrets map[string]any
	// Errors collects the per-secret failures the service reported, in the
	// order it reported them. These are data, not raised errors.
	Errors []BatchSecretError
	// NextToken is the continuation token for the next page, if more results
	// exist.
	NextToken *string
}

// SecretTag represents a single key-value tag on a secret.
type SecretTag struct {
	// Key is the tag name. Keys are unique per secret.
	Key string
	// Value is the tag value.
	Value string
}

// SecretCreationOptions provide optional metadata when creating a secret.
type SecretCreationOptions struct {
	// Description is a human-readable description of the secret.
	Description *string
	// Tags are key-value tags to attach to the secret on creation.
	Tags []SecretTag
}

// NewSecretCreationOptions returns new uninitialized options to create a
// secret.
func NewSecretCreationOptions() *SecretCreationOptions {
	return &SecretCreationOptions{}
}

// SetDescription sets the description of the secret.
func (o *SecretCreationOptions) SetDescription(description string) *SecretCreationOptions {
	o.Description = &description
	return o
}

// SetTags sets the tags to attach to the secret.
func (o *SecretCreationOptions) SetTags(tags []SecretTag) *SecretCreationOptions {
	o.Tags = tags
	return o
}

// MergeSecretCreationOptions merges all the given options to create a secret.
// Options are applied in the order they're specified and conflicting options
// are overwritten.
func MergeSecretCreationOptions(opts ...*SecretCreationOptions) *SecretCreationOptions {
	merged := SecretCreationOptions{}

	for _, opt := range opts {
		if opt == nil {
			continue
		}

		if opt.Description != nil {
			merged.Description = opt.Description
		}

		if opt.Tags != nil {
			merged.Tags = opt.Tags
		}
	}

	return &merged
}

// SecretUpdateOptions provide optional metadata when updating a secret. Only
// the description can be updated alongside the value - tags are managed
// separately via TagSecret.
type SecretUpdateOptions struct {
	// Description is a human-readable description of the secret.
	Description *string
}

// NewSecretUpdateOptions returns new uninitialized options to update a
// secret.
func NewSecretUpdateOptions() *SecretUpdateOptions {
	return &SecretUpdateOptions{}
}

// SetDescription sets the description of the secret.
func (o *SecretUpdateOptions) SetDescription(description string) *SecretUpdateOptions {
	o.Description = &description
	return o
}

// MergeSecretUpdateOptions merges all the given options to update a secret.
// Options are applied in the order they're specified and conflicting options
// are overwritten.
func MergeSecretUpdateOptions(opts ...*SecretUpdateOptions) *SecretUpdateOptions {
	merged := SecretUpdateOptions{}

	for _, opt := range opts {
		if opt == nil {
			continue
		}

		if opt.Description != nil {
			merged.Description = opt.Description
		}
	}

	return &merged
}

// DefaultRecoveryWindowDays is the recovery window sent on deletion when the
// caller does not choose one.
const DefaultRecoveryWindowDays = 30

// SecretDeletionOptions provide options to delete a secret.
type SecretDeletionOptions struct {
	// ForceDelete indicates the secret should be deleted immediately and
	// irreversibly, without a recovery window. Forcing and a recovery window
	// are mutually exclusive on the wire.
	ForceDelete *bool
	// RecoveryDays is the number of days during which the deleted secret can
	// still be restored. Defaults to DefaultRecoveryWindowDays. Ignored when
	// ForceDelete is set.
	RecoveryDays *int64
}

// NewSecretDeletionOptions returns new uninitialized options to delete a
// secret.
func NewSecretDeletionOptions() *SecretDeletionOptions {
	return &SecretDeletionOptions{}
}

// SetForceDelete sets whether the secret is deleted immediately without a
// recovery window.
func (o *SecretDeletionOptions) SetForceDelete(force bool) *SecretDeletionOptions {
	o.ForceDelete = &force
	return o
}

// SetRecoveryDays sets the length of the recovery window in days.
func (o *SecretDeletionOptions) SetRecoveryDays(days int64) *SecretDeletionOptions {
	o.RecoveryDays = &days
	return o
}

// MergeSecretDeletionOptions merges all the given options to delete a secret.
// Options are applied in the order they're specified and conflicting options
// are overwritten.
func MergeSecretDeletionOptions(opts ...*SecretDeletionOptions) *SecretDeletionOptions {
	merged := SecretDeletionOptions{}

	for _, opt := range opts {
		if opt == nil {
			continue
		}

		if opt.ForceDelete != nil {
			merged.ForceDelete = opt.ForceDelete
		}

		if opt.RecoveryDays != nil {
			merged.RecoveryDays = opt.RecoveryDays
		}
	}

	return &merged
}

// ListSecretsOptions provide options to list a page of secrets.
type ListSecretsOptions struct {
	// Filters restrict which secrets are listed.
	Filters *SecretFilters
	// MaxResults caps the number of secrets in the returned page.
	MaxResults *int32
	// NextToken is the continuation token from a previous page.
	NextToken *string
}

// NewListSecretsOptions returns new uninitialized options to list a page of
// secrets.
func NewListSecretsOptions() *ListSecretsOptions {
	return &ListSecretsOptions{}
}

// SetFilters sets the filters restricting which secrets are listed.
func (o *ListSecretsOptions) SetFilters(filters SecretFilters) *ListSecretsOptions {
	o.Filters = &filters
	return o
}

// SetMaxResults sets the cap on the number of secrets per page.
func (o *ListSecretsOptions) SetMaxResults(max int32) *ListSecretsOptions {
	o.MaxResults = &max
	return o
}

// SetNextToken sets the continuation token from a previous page.
func (o *ListSecretsOptions) SetNextToken(token string) *ListSecretsOptions {
	o.NextToken = &token
	return o
}

// MergeListSecretsOptions merges all the given options to list secrets.
// Options are applied in the order they're specified and conflicting options
// are overwritten.
func MergeListSecretsOptions(opts ...*ListSecretsOptions) *ListSecretsOptions {
	merged := ListSecretsOptions{}

	for _, opt := range opts {
		if opt == nil {
			continue
		}

		if opt.Filters != nil {
			merged.Filters = opt.Filters
		}

		if opt.MaxResults != nil {
			merged.MaxResults = opt.MaxResults
		}

		if opt.NextToken != nil {
			merged.NextToken = opt.NextToken
		}
	}

	return &merged
}

// ListSecretsResult is a single page of listed secret names.
type ListSecretsResult struct {
	// Names are the names of the secrets in this page. Entries the service
	// reported without a name are dropped.
	Names []string
	// NextToken is the continuation token for the next page, if more results
	// exist.
	NextToken *string
}

// UnknownVersionID is the sentinel identifier for a secret version that the
// service reported without a version ID.
const UnknownVersionID = "unknown"

// SecretVersion represents one historical value version of a secret.
type SecretVersion struct {
	// VersionID uniquely identifies the version, or UnknownVersionID if the
	// service did not report one.
	VersionID string
	// CreatedDate is when the version was created, if known.
	CreatedDate *time.Time
	// IsLatest indicates whether the service marks this version as the
	// current stage.
	IsLatest bool
}
