package strongbox

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/evergreen-ci/utility"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSecretOptions(t *testing.T) {
	t.Run("SettersSetFields", func(t *testing.T) {
		opts := NewGetSecretOptions().SetParse(false).SetVersion("v1")
		assert.False(t, utility.FromBoolPtr(opts.Parse))
		assert.Equal(t, "v1", utility.FromStringPtr(opts.Version))
	})
	t.Run("MergeAppliesLaterOptionsOverEarlierOnes", func(t *testing.T) {
		merged := MergeGetSecretOptions(
			NewGetSecretOptions().SetParse(true).SetVersion("v1"),
			nil,
			NewGetSecretOptions().SetVersion("v2"),
		)
		assert.True(t, utility.FromBoolPtr(merged.Parse))
		assert.Equal(t, "v2", utility.FromStringPtr(merged.Version))
	})
	t.Run("MergeOfNothingIsEmpty", func(t *testing.T) {
		merged := MergeGetSecretOptions()
		assert.Zero(t, merged.Parse)
		assert.Zero(t, merged.Version)
	})
}

func TestSecretFilters(t *testing.T) {
	t.Run("ExportReturnsNilWithoutPredicates", func(t *testing.T) {
		assert.Nil(t, NewSecretFilters().Export())

		var f *SecretFilters
		assert.Nil(t, f.Export())
	})
	t.Run("ExportConvertsEachPredicate", func(t *testing.T) {
		filters := NewSecretFilters().
			SetNames([]string{"meals/"}).
			SetDescriptions([]string{"important"}).
			SetTagKeys([]string{"env"}).
			SetTagValues([]string{"prod"}).
			Export()
		require.Len(t, filters, 4)

		byKey := map[types.FilterNameStringType][]string{}
		for _, f := range filters {
			byKey[f.Key] = f.Values
		}
		assert.Equal(t, []string{"meals/"}, byKey[types.FilterNameStringTypeName])
		assert.Equal(t, []string{"important"}, byKey[types.FilterNameStringTypeDescription])
		assert.Equal(t, []string{"env"}, byKey[types.FilterNameStringTypeTagKey])
		assert.Equal(t, []string{"prod"}, byKey[types.FilterNameStringTypeTagValue])
	})
}

func TestBatchGetSecretsOptions(t *testing.T) {
	t.Run("SettersSetFields", func(t *testing.T) {
		opts := NewBatchGetSecretsOptions().
			SetSecretIDs([]string{"breakfast"}).
			SetFilters(*NewSecretFilters().SetNames([]string{"meals/"})).
			SetMaxResults(10).
			SetNextToken("token").
			SetParse(false)
		assert.Equal(t, []string{"breakfast"}, opts.SecretIDs)
		require.NotZero(t, opts.Filters)
		assert.Equal(t, []string{"meals/"}, opts.Filters.Names)
		assert.EqualValues(t, 10, utility.FromInt32Ptr(opts.MaxResults))
		assert.Equal(t, "token", utility.FromStringPtr(opts.NextToken))
		assert.False(t, utility.FromBoolPtr(opts.Parse))
	})
	t.Run("ValidateFailsWithoutSecretIDs", func(t *testing.T) {
		assert.Error(t, NewBatchGetSecretsOptions().Validate())
	})
	t.Run("ValidateSucceedsWithSecretIDs", func(t *testing.T) {
		assert.NoError(t, NewBatchGetSecretsOptions().SetSecretIDs([]string{"breakfast"}).Validate())
	})
	t.Run("MergeAppliesLaterOptionsOverEarlierOnes", func(t *testing.T) {
		merged := MergeBatchGetSecretsOptions(
			NewBatchGetSecretsOptions().SetSecretIDs([]string{"breakfast"}).SetMaxResults(10),
			NewBatchGetSecretsOptions().SetMaxResults(20),
		)
		assert.Equal(t, []string{"breakfast"}, merged.SecretIDs)
		assert.EqualValues(t, 20, utility.FromInt32Ptr(merged.MaxResults))
	})
}

func TestSecretCreationOptions(t *testing.T) {
	t.Run("SettersSetFields", func(t *testing.T) {
		opts := NewSecretCreationOptions().
			SetDescription("most important meal").
			SetTags([]SecretTag{{Key: "meal", Value: "breakfast"}})
		assert.Equal(t, "most important meal", utility.FromStringPtr(opts.Description))
		require.Len(t, opts.Tags, 1)
		assert.Equal(t, "meal", opts.Tags[0].Key)
	})
	t.Run("MergeAppliesLaterOptionsOverEarlierOnes", func(t *testing.T) {
		merged := MergeSecretCreationOptions(
			NewSecretCreationOptions().SetDescription("first"),
			NewSecretCreationOptions().SetDescription("second"),
		)
		assert.Equal(t, "second", utility.FromStringPtr(merged.Description))
	})
}

func TestSecretDeletionOptions(t *testing.T) {
	t.Run("SettersSetFields", func(t *testing.T) {
		opts := NewSecretDeletionOptions().SetForceDelete(true).SetRecoveryDays(7)
		assert.True(t, utility.FromBoolPtr(opts.ForceDelete))
		assert.EqualValues(t, 7, utility.FromInt64Ptr(opts.RecoveryDays))
	})
	t.Run("MergeAppliesLaterOptionsOverEarlierOnes", func(t *testing.T) {
		merged := MergeSecretDeletionOptions(
			NewSecretDeletionOptions().SetRecoveryDays(7),
			NewSecretDeletionOptions().SetRecoveryDays(14),
		)
		assert.EqualValues(t, 14, utility.FromInt64Ptr(merged.RecoveryDays))
		assert.Zero(t, merged.ForceDelete)
	})
}

func TestListSecretsOptions(t *testing.T) {
	t.Run("SettersSetFields", func(t *testing.T) {
		opts := NewListSecretsOptions().
			SetFilters(*NewSecretFilters().SetNames([]string{"meals/"})).
			SetMaxResults(10).
			SetNextToken("token")
		require.NotZero(t, opts.Filters)
		assert.Equal(t, []string{"meals/"}, opts.Filters.Names)
		assert.EqualValues(t, 10, utility.FromInt32Ptr(opts.MaxResults))
		assert.Equal(t, "token", utility.FromStringPtr(opts.NextToken))
	})
	t.Run("MergeAppliesLaterOptionsOverEarlierOnes", func(t *testing.T) {
		merged := MergeListSecretsOptions(
			NewListSecretsOptions().SetMaxResults(10).SetNextToken("token"),
			NewListSecretsOptions().SetMaxResults(20),
		)
		assert.EqualValues(t, 20, utility.FromInt32Ptr(merged.MaxResults))
		assert.Equal(t, "token", utility.FromStringPtr(merged.NextToken))
	})
}
