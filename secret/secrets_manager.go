package secret

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/aws/smithy-go"
	"github.com/evergreen-ci/strongbox"
	"github.com/evergreen-ci/utility"
)

// awsCurrentStage is the stage label the service attaches to the current
// version of a secret.
const awsCurrentStage = "AWSCURRENT"

// BasicSecretsManager provides a strongbox.SecretManager implementation
// backed by AWS Secrets Manager. It holds no state beyond the client handle -
// secret material, tokens, and results are never retained across calls.
type BasicSecretsManager struct {
	client strongbox.SecretsManagerClient
}

// NewBasicSecretsManager creates a secrets manager backed by AWS Secrets
// Manager. The caller retains ownership of the client and is responsible for
// closing it.
func NewBasicSecretsManager(c strongbox.SecretsManagerClient) (*BasicSecretsManager, error) {
	if c == nil {
		return nil, errors.New("must provide a client")
	}
	return &BasicSecretsManager{client: c}, nil
}

// GetSecret returns the current (or a specific) version of a secret's value.
// The value is JSON-parsed by default; parsing is best-effort and a value
// that is not valid JSON is returned as its raw string. Secrets that hold
// only a binary payload are not supported.
func (m *BasicSecretsManager) GetSecret(ctx context.Context, id string, opts ...*strongbox.GetSecretOptions) (*strongbox.SecretValue, error) {
	if id == "" {
		return nil, strongbox.NewError(strongbox.KindUnknown, "must provide a secret ID")
	}

	opt := strongbox.MergeGetSecretOptions(opts...)

	in := &secretsmanager.GetSecretValueInput{
		SecretId:  &id,
		VersionId: opt.Version,
	}

	out, err := m.client.GetSecretValue(ctx, in)
	if err != nil {
		return nil, readError(err, id)
	}

	if out.SecretString == nil {
		if out.SecretBinary != nil {
			return nil, strongbox.NewError(strongbox.KindUnsupportedFormat, "binary secrets are not supported")
		}
		return nil, strongbox.NewError(strongbox.KindUnknown, "secret %q has no value", id)
	}

	raw := *out.SecretString
	return &strongbox.SecretValue{
		Name:  utility.FromStringPtr(out.Name),
		Raw:   raw,
		Value: parseSecretPayload(raw, shouldParse(opt.Parse)),
	}, nil
}

// BatchGetSecrets returns a single page of values for multiple secrets.
// Per-secret failures reported by the service are collected into the result's
// error list rather than raised; only failures of the batch call itself
// return an error. Looping over continuation tokens is the caller's
// responsibility.
func (m *BasicSecretsManager) BatchGetSecrets(ctx context.Context, opts ...*strongbox.BatchGetSecretsOptions) (*strongbox.BatchGetSecretsResult, error) {
	opt := strongbox.MergeBatchGetSecretsOptions(opts...)
	if err := opt.Validate(); err != nil {
		return nil, strongbox.WrapError(err, strongbox.KindUnknown, "invalid options")
	}

	in := &secretsmanager.BatchGetSecretValueInput{
		SecretIdList: opt.SecretIDs,
		Filters:      opt.Filters.Export(),
		MaxResults:   opt.MaxResults,
		NextToken:    opt.NextToken,
	}

	out, err := m.client.BatchGetSecretValue(ctx, in)
	if err != nil {
		return nil, batchReadError(err)
	}

	parse := shouldParse(opt.Parse)
	res := &strongbox.BatchGetSecretsResult{
		Secrets:   map[string]any{},
		NextToken: out.NextToken,
	}

	for _, entry := range out.SecretValues {
		if entry.SecretString == nil {
			if entry.SecretBinary != nil {
				return nil, strongbox.NewError(strongbox.KindUnsupportedFormat, "binary secrets are not supported")
			}
			continue
		}

		name := utility.FromStringPtr(entry.Name)
		if name == "" {
			name = utility.FromStringPtr(entry.ARN)
		}

		res.Secrets[name] = parseSecretPayload(*entry.SecretString, parse)
	}

	for _, apiErr := range out.Errors {
		res.Errors = append(res.Errors, strongbox.BatchSecretError{
			SecretID:     utility.FromStringPtr(apiErr.SecretId),
			ErrorCode:    utility.FromStringPtr(apiErr.ErrorCode),
			ErrorMessage: utility.FromStringPtr(apiErr.Message),
		})
	}

	return res, nil
}

// CreateSecret creates a new secret and returns the identifier the service
// assigned to it, falling back to the given name if the service does not
// report one. Non-string values are serialized to JSON before transmission.
func (m *BasicSecretsManager) CreateSecret(ctx context.Context, name string, value any, opts ...*strongbox.SecretCreationOptions) (string, error) {
	if name == "" {
		return "", strongbox.NewError(strongbox.KindCreateFailed, "failed to create secret: must provide a name")
	}

	payload, err := encodeSecretValue(value)
	if err != nil {
		return "", strongbox.WrapError(err, strongbox.KindCreateFailed, "failed to create secret %q", name)
	}

	opt := strongbox.MergeSecretCreationOptions(opts...)

	in := &secretsmanager.CreateSecretInput{
		Name:         &name,
		SecretString: &payload,
		Description:  opt.Description,
		Tags:         exportSecretTags(opt.Tags),
	}

	out, err := m.client.CreateSecret(ctx, in)
	if err != nil {
		return "", strongbox.WrapError(err, strongbox.KindCreateFailed, "failed to create secret %q", name)
	}

	return assignedID(out.ARN, name), nil
}

// UpdateSecret updates an existing secret's value (and optionally its
// description) and returns the identifier the service assigned to it, with
// the same fallback rule as CreateSecret. Tags are managed separately via
// TagSecret.
func (m *BasicSecretsManager) UpdateSecret(ctx context.Context, id string, value any, opts ...*strongbox.SecretUpdateOptions) (string, error) {
	if id == "" {
		return "", strongbox.NewError(strongbox.KindUpdateFailed, "failed to update secret: must provide a secret ID")
	}

	payload, err := encodeSecretValue(value)
	if err != nil {
		return "", strongbox.WrapError(err, strongbox.KindUpdateFailed, "failed to update secret %q", id)
	}

	opt := strongbox.MergeSecretUpdateOptions(opts...)

	in := &secretsmanager.UpdateSecretInput{
		SecretId:     &id,
		SecretString: &payload,
		Description:  opt.Description,
	}

	out, err := m.client.UpdateSecret(ctx, in)
	if err != nil {
		return "", strongbox.WrapError(err, strongbox.KindUpdateFailed, "failed to update secret %q", id)
	}

	return assignedID(out.ARN, id), nil
}

// DeleteSecret deletes a secret. Force-deleting is immediate and irreversible
// and sends no recovery window; otherwise the secret remains restorable for
// the given number of recovery days (default 30).
func (m *BasicSecretsManager) DeleteSecret(ctx context.Context, id string, opts ...*strongbox.SecretDeletionOptions) error {
	if id == "" {
		return strongbox.NewError(strongbox.KindDeleteFailed, "failed to delete secret: must provide a secret ID")
	}

	opt := strongbox.MergeSecretDeletionOptions(opts...)

	in := &secretsmanager.DeleteSecretInput{
		SecretId: &id,
	}
	if utility.FromBoolPtr(opt.ForceDelete) {
		in.ForceDeleteWithoutRecovery = utility.TruePtr()
	} else {
		days := int64(strongbox.DefaultRecoveryWindowDays)
		if opt.RecoveryDays != nil {
			days = *opt.RecoveryDays
		}
		in.RecoveryWindowInDays = &days
	}

	if _, err := m.client.DeleteSecret(ctx, in); err != nil {
		return strongbox.WrapError(err, strongbox.KindDeleteFailed, "failed to delete secret %q", id)
	}

	return nil
}

// SecretExists returns whether a secret with the given identifier exists. The
// check is a metadata lookup - the secret's value is never fetched.
func (m *BasicSecretsManager) SecretExists(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, strongbox.NewError(strongbox.KindExistenceCheckFailed, "failed to check secret existence: must provide a secret ID")
	}

	_, err := m.client.DescribeSecret(ctx, &secretsmanager.DescribeSecretInput{
		SecretId: &id,
	})
	if err != nil {
		var notFound *types.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, strongbox.WrapError(err, strongbox.KindExistenceCheckFailed, "failed to check existence of secret %q", id)
	}

	return true, nil
}

// ListSecrets returns a single page of secret names matching the given
// filters. Entries the service reports without a name are dropped. Looping
// over continuation tokens is the caller's responsibility.
func (m *BasicSecretsManager) ListSecrets(ctx context.Context, opts ...*strongbox.ListSecretsOptions) (*strongbox.ListSecretsResult, error) {
	opt := strongbox.MergeListSecretsOptions(opts...)

	in := &secretsmanager.ListSecretsInput{
		Filters:    opt.Filters.Export(),
		MaxResults: opt.MaxResults,
		NextToken:  opt.NextToken,
	}

	out, err := m.client.ListSecrets(ctx, in)
	if err != nil {
		return nil, strongbox.WrapError(err, strongbox.KindListFailed, "failed to list secrets")
	}

	res := &strongbox.ListSecretsResult{
		NextToken: out.NextToken,
	}
	for _, entry := range out.SecretList {
		if entry.Name == nil {
			continue
		}
		res.Names = append(res.Names, *entry.Name)
	}

	return res, nil
}

// TagSecret adds or replaces the given tags on a secret. Whether an existing
// tag is replaced or a new one is added is delegated entirely to the service.
// It returns a human-readable acknowledgment naming the number of tags
// applied.
func (m *BasicSecretsManager) TagSecret(ctx context.Context, id string, tags map[string]string) (string, error) {
	if id == "" {
		return "", strongbox.NewError(strongbox.KindTagFailed, "failed to tag secret: must provide a secret ID")
	}

	in := &secretsmanager.TagResourceInput{
		SecretId: &id,
		Tags:     exportTagMap(tags),
	}

	if _, err := m.client.TagResource(ctx, in); err != nil {
		return "", strongbox.WrapError(err, strongbox.KindTagFailed, "failed to tag secret %q", id)
	}

	return fmt.Sprintf("Successfully added %d tags to secret %q.", len(tags), id), nil
}

// GetTags returns the secret's tags as a key-value mapping. A secret without
// tags yields an empty mapping.
func (m *BasicSecretsManager) GetTags(ctx context.Context, id string) (map[string]string, error) {
	if id == "" {
		return nil, strongbox.NewError(strongbox.KindGetTagsFailed, "failed to get tags: must provide a secret ID")
	}

	out, err := m.client.DescribeSecret(ctx, &secretsmanager.DescribeSecretInput{
		SecretId: &id,
	})
	if err != nil {
		var notFound *types.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return nil, strongbox.WrapError(err, strongbox.KindNotFound, "Secret %q not found.", id)
		}
		return nil, strongbox.WrapError(err, strongbox.KindGetTagsFailed, "failed to get tags for secret %q", id)
	}

	tags := map[string]string{}
	for _, t := range out.Tags {
		tags[utility.FromStringPtr(t.Key)] = utility.FromStringPtr(t.Value)
	}

	return tags, nil
}

// GetSecretVersions returns every known version of a secret, including
// deprecated ones. A version the service reports without an identifier is
// represented with strongbox.UnknownVersionID rather than dropped.
func (m *BasicSecretsManager) GetSecretVersions(ctx context.Context, id string) ([]strongbox.SecretVersion, error) {
	if id == "" {
		return nil, strongbox.NewError(strongbox.KindGetVersionsFailed, "failed to get versions: must provide a secret ID")
	}

	out, err := m.client.ListSecretVersionIds(ctx, &secretsmanager.ListSecretVersionIdsInput{
		SecretId:          &id,
		IncludeDeprecated: utility.TruePtr(),
	})
	if err != nil {
		return nil, strongbox.WrapError(err, strongbox.KindGetVersionsFailed, "failed to get versions of secret %q", id)
	}

	versions := make([]strongbox.SecretVersion, 0, len(out.Versions))
	for _, v := range out.Versions {
		versionID := utility.FromStringPtr(v.VersionId)
		if versionID == "" {
			versionID = strongbox.UnknownVersionID
		}
		versions = append(versions, strongbox.SecretVersion{
			VersionID:   versionID,
			CreatedDate: v.CreatedDate,
			IsLatest:    utility.StringSliceContains(v.VersionStages, awsCurrentStage),
		})
	}

	return versions, nil
}

// shouldParse resolves the parse flag, which defaults to true.
func shouldParse(parse *bool) bool {
	return parse == nil || *parse
}

// parseSecretPayload best-effort parses a secret payload as JSON. Parse
// failures are not errors - the raw string is returned unchanged.
func parseSecretPayload(raw string, parse bool) any {
	if !parse {
		return raw
	}

	var parsed any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return raw
	}
	return parsed
}

// encodeSecretValue converts a secret value into its wire string. Strings
// pass through verbatim; anything else is serialized to its JSON text.
func encodeSecretValue(value any) (string, error) {
	if s, ok := value.(string); ok {
		return s, nil
	}

	b, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// assignedID returns the service-assigned identifier, falling back to the
// caller-given one when the service does not report it.
func assignedID(arn *string, fallback string) string {
	if id := utility.FromStringPtr(arn); id != "" {
		return id
	}
	return fallback
}

func exportSecretTags(tags []strongbox.SecretTag) []types.Tag {
	var exported []types.Tag
	for _, t := range tags {
		exported = append(exported, types.Tag{
			Key:   utility.ToStringPtr(t.Key),
			Value: utility.ToStringPtr(t.Value),
		})
	}
	return exported
}

// exportTagMap converts a tag mapping into the request shape, sorted by key
// so the wire shape is deterministic.
func exportTagMap(tags map[string]string) []types.Tag {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var exported []types.Tag
	for _, k := range keys {
		exported = append(exported, types.Tag{
			Key:   utility.ToStringPtr(k),
			Value: utility.ToStringPtr(tags[k]),
		})
	}
	return exported
}

const accessDeniedErrorCode = "AccessDeniedException"

// Secrets Manager does not model throttling as a typed exception, so
// throttling is recognized by the well-known AWS throttle error codes.
var throttleErrorCodes = map[string]struct{}{
	"ThrottlingException":       {},
	"Throttling":                {},
	"ThrottledException":        {},
	"RequestThrottled":          {},
	"RequestThrottledException": {},
	"TooManyRequestsException":  {},
	"RequestLimitExceeded":      {},
}

// classifyReadError maps a failed value fetch to an error kind using the
// service's structured error codes.
func classifyReadError(err error) strongbox.ErrorKind {
	var notFound *types.ResourceNotFoundException
	if errors.As(err, &notFound) {
		return strongbox.KindNotFound
	}

	// The service reports a secret scheduled for deletion only as an invalid
	// request with free-text detail; there is no structured reason code to
	// match on.
	var invalidReq *types.InvalidRequestException
	if errors.As(err, &invalidReq) && strings.Contains(strings.ToLower(invalidReq.ErrorMessage()), "marked for deletion") {
		return strongbox.KindInvalidState
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if apiErr.ErrorCode() == accessDeniedErrorCode {
			return strongbox.KindAccessDenied
		}
		if _, ok := throttleErrorCodes[apiErr.ErrorCode()]; ok {
			return strongbox.KindThrottled
		}
	}

	return strongbox.KindUnknown
}

func readError(err error, id string) error {
	switch classifyReadError(err) {
	case strongbox.KindNotFound:
		return strongbox.WrapError(err, strongbox.KindNotFound, "Secret %q not found.", id)
	case strongbox.KindInvalidState:
		return strongbox.WrapError(err, strongbox.KindInvalidState, "secret %q is marked for deletion", id)
	case strongbox.KindAccessDenied:
		return strongbox.WrapError(err, strongbox.KindAccessDenied, "access denied for secret %q", id)
	case strongbox.KindThrottled:
		return strongbox.WrapError(err, strongbox.KindThrottled, "request for secret %q was throttled", id)
	default:
		return strongbox.WrapError(err, strongbox.KindUnknown, "failed to get secret %q", id)
	}
}

func batchReadError(err error) error {
	switch classifyReadError(err) {
	case strongbox.KindNotFound:
		return strongbox.WrapError(err, strongbox.KindNotFound, "one or more secrets were not found")
	case strongbox.KindInvalidState:
		return strongbox.WrapError(err, strongbox.KindInvalidState, "one or more secrets are marked for deletion")
	case strongbox.KindAccessDenied:
		return strongbox.WrapError(err, strongbox.KindAccessDenied, "access denied for batch get")
	case strongbox.KindThrottled:
		return strongbox.WrapError(err, strongbox.KindThrottled, "batch get was throttled")
	default:
		return strongbox.WrapError(err, strongbox.KindUnknown, "failed to batch get secrets")
	}
}
