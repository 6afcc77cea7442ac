package changeset

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/models"
)

func sampleContact() models.Contact {
	created := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	updated := time.Date(2025, 3, 10, 14, 30, 0, 123000000, time.UTC)
	return models.Contact{
		UpstreamID:        "1001",
		FullName:          "Maria Lopez",
		Mobile:            strPtr("+573001112233"),
		Email:             strPtr("maria@example.com"),
		City:              strPtr("Bogota"),
		CustomAttributes:  map[string]any{"plan": "gold", "seats": float64(3)},
		Tags:              []models.ContactTag{{Name: "vip"}},
		UpstreamCreatedAt: &created,
		UpstreamUpdatedAt: &updated,
		SyncSource:        models.SourceContactsAPI,
	}
}

func TestCompareContactsIdenticalIsClean(t *testing.T) {
	a := sampleContact()
	b := sampleContact()

	diff := CompareContacts(&a, &b)
	assert.False(t, diff.HasChanges)
	assert.Empty(t, diff.ChangedFields)
}

func TestCompareContactsNullAndEmptyAreEqual(t *testing.T) {
	a := sampleContact()
	a.Landline = nil
	a.CustomAttributes = nil
	b := sampleContact()
	b.Landline = strPtr("")
	b.CustomAttributes = map[string]any{}

	diff := CompareContacts(&a, &b)
	assert.False(t, diff.HasChanges)
}

func TestCompareContactsTimestampNoiseIsNotAChange(t *testing.T) {
	a := sampleContact()
	b := sampleContact()
	noisy := a.UpstreamUpdatedAt.Add(400 * time.Microsecond)
	b.UpstreamUpdatedAt = &noisy

	diff := CompareContacts(&a, &b)
	assert.False(t, diff.HasChanges)
}

func TestCompareContactsDetectsChangedFields(t *testing.T) {
	a := sampleContact()
	b := sampleContact()
	b.Email = strPtr("maria.lopez@example.com")
	b.City = strPtr("Medellin")
	b.CustomAttributes["plan"] = "silver"

	diff := CompareContacts(&a, &b)
	require.True(t, diff.HasChanges)
	assert.ElementsMatch(t, []string{"email", "city", "custom_attributes"}, diff.ChangedFields)
	assert.Equal(t, "maria@example.com", diff.OldValues["email"])
	assert.Equal(t, "maria.lopez@example.com", diff.NewValues["email"])
}

func TestCompareContactsIgnoresSyncBookkeeping(t *testing.T) {
	a := sampleContact()
	b := sampleContact()
	b.SyncSource = models.SourceUpgraded
	b.NeedsFullSync = true
	b.LastSyncAt = time.Now()

	diff := CompareContacts(&a, &b)
	assert.False(t, diff.HasChanges, "bookkeeping fields are not data")
}

func TestMergeContactIncomingFieldsWin(t *testing.T) {
	stub := models.Contact{
		UpstreamID: "1001",
		FullName:   "Maria",
		Mobile:     strPtr("+573001112233"),
		SyncSource: models.SourceChatEmbedded,
	}
	incoming := sampleContact()
	incoming.FullName = "Maria Lopez Garcia"

	merged := MergeContact(&stub, &incoming)
	assert.Equal(t, "Maria Lopez Garcia", merged.FullName)
	assert.Equal(t, "maria@example.com", *merged.Email)
}

func TestMergeContactPreservesStubWhereIncomingEmpty(t *testing.T) {
	stub := models.Contact{
		UpstreamID: "1001",
		FullName:   "Maria",
		Mobile:     strPtr("+573001112233"),
		City:       strPtr("Bogota"),
		SyncSource: models.SourceChatEmbedded,
	}
	incoming := models.Contact{
		UpstreamID: "1001",
		FullName:   "Maria Lopez",
		Email:      strPtr("maria@example.com"),
		City:       strPtr(""),
		SyncSource: models.SourceContactsAPI,
	}

	merged := MergeContact(&stub, &incoming)
	require.NotNil(t, merged.Mobile)
	assert.Equal(t, "+573001112233", *merged.Mobile, "stub value survives a missing incoming field")
	require.NotNil(t, merged.City)
	assert.Equal(t, "Bogota", *merged.City, "stub value survives an empty incoming field")
	assert.Equal(t, "Maria Lopez", merged.FullName)
	assert.Equal(t, "maria@example.com", *merged.Email)
}

func TestCompareAgentsDetectsDeactivation(t *testing.T) {
	a := models.Agent{Name: "Ana", Username: strPtr("ana.r"), IsActive: true}
	b := models.Agent{Name: "Ana", Username: strPtr("ana.r"), IsActive: false}

	diff := CompareAgents(&a, &b)
	require.True(t, diff.HasChanges)
	assert.Equal(t, []string{"is_active"}, diff.ChangedFields)
}

func TestCompareDepartmentsIdenticalIsClean(t *testing.T) {
	a := models.Department{UpstreamCode: "SALES", Name: "Sales", IsActive: true, IsLeaf: true}
	b := a

	diff := CompareDepartments(&a, &b)
	assert.False(t, diff.HasChanges)
}

func strPtr(s string) *string { return &s }
