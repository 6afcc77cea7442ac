package changeset

import (
	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/models"
)

// CompareContacts diffs an existing contact against its incoming version.
// Sync bookkeeping fields (syncSource, needsFullSync, lastSyncAt) are not
// data and are excluded.
func CompareContacts(oldContact, newContact *models.Contact) Diff {
	b := newBuilder()

	b.compareText("full_name", oldContact.FullName, newContact.FullName)
	b.compareString("mobile", oldContact.Mobile, newContact.Mobile)
	b.compareString("landline", oldContact.Landline, newContact.Landline)
	b.compareString("email", oldContact.Email, newContact.Email)
	b.compareString("identification", oldContact.Identification, newContact.Identification)
	b.compareString("address", oldContact.Address, newContact.Address)
	b.compareString("city", oldContact.City, newContact.City)
	b.compareString("country", oldContact.Country, newContact.Country)
	b.compareString("company", oldContact.Company, newContact.Company)
	b.compareString("merchant_id", oldContact.MerchantID, newContact.MerchantID)
	b.compareJSON("custom_attributes", oldContact.CustomAttributes, newContact.CustomAttributes)
	b.compareJSON("tags", oldContact.Tags, newContact.Tags)
	b.compareTime("upstream_created_at", oldContact.UpstreamCreatedAt, newContact.UpstreamCreatedAt)
	b.compareTime("upstream_updated_at", oldContact.UpstreamUpdatedAt, newContact.UpstreamUpdatedAt)

	return b.build()
}

// MergeContact merges an authoritative contact record over a stub: incoming
// fields win, existing values survive where the incoming field is empty.
// Used for the stub upgrade path, which bypasses change detection.
func MergeContact(stub, incoming *models.Contact) models.Contact {
	merged := *incoming

	if merged.FullName == "" {
		merged.FullName = stub.FullName
	}
	merged.Mobile = mergeString(stub.Mobile, incoming.Mobile)
	merged.Landline = mergeString(stub.Landline, incoming.Landline)
	merged.Email = mergeString(stub.Email, incoming.Email)
	merged.Identification = mergeString(stub.Identification, incoming.Identification)
	merged.Address = mergeString(stub.Address, incoming.Address)
	merged.City = mergeString(stub.City, incoming.City)
	merged.Country = mergeString(stub.Country, incoming.Country)
	merged.Company = mergeString(stub.Company, incoming.Company)
	merged.MerchantID = mergeString(stub.MerchantID, incoming.MerchantID)
	if len(merged.CustomAttributes) == 0 {
		merged.CustomAttributes = stub.CustomAttributes
	}
	if len(merged.Tags) == 0 {
		merged.Tags = stub.Tags
	}
	if merged.UpstreamCreatedAt == nil {
		merged.UpstreamCreatedAt = stub.UpstreamCreatedAt
	}
	if merged.UpstreamUpdatedAt == nil {
		merged.UpstreamUpdatedAt = stub.UpstreamUpdatedAt
	}

	return merged
}

// mergeString prefers the incoming value, falling back to the existing one.
func mergeString(existing, incoming *string) *string {
	if incoming != nil && *incoming != "" {
		return incoming
	}
	if existing != nil && *existing != "" {
		return existing
	}
	return nil
}
