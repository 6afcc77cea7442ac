package transform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/b2chat"
	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/changeset"
	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/models"
	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/store"
)

// applyContact reconciles one raw contact into the contacts table. New
// contacts insert as contacts_api; an existing stub is upgraded by merging
// (the merge bypasses change detection, an upgrade always counts as an
// update); an existing authoritative contact is diff-updated or skipped.
func (e *Engine) applyContact(ctx context.Context, st *store.Store, logger *slog.Logger, raw models.RawRecord) (outcome, error) {
	var payload b2chat.Contact
	if err := json.Unmarshal(raw.Payload, &payload); err != nil {
		return outcomeSkipped, fmt.Errorf("decode contact payload: %w", err)
	}
	upstreamID := payload.ContactID.String()
	if upstreamID == "" {
		return outcomeSkipped, errors.New("contact record carries no contact_id")
	}

	incoming := contactFromPayload(&payload, time.Now().UTC())

	existing, err := st.GetContactByUpstreamID(ctx, upstreamID)
	if errors.Is(err, store.ErrNotFound) {
		if err := st.InsertContact(ctx, incoming); err != nil {
			return outcomeSkipped, err
		}
		logger.Debug("Contact created", "upstream_id", upstreamID)
		return outcomeCreated, nil
	}
	if err != nil {
		return outcomeSkipped, err
	}

	if existing.IsStub() {
		merged := changeset.MergeContact(existing, incoming)
		merged.ID = existing.ID
		merged.SyncSource = models.SourceUpgraded
		merged.NeedsFullSync = false
		if err := st.UpdateContact(ctx, &merged); err != nil {
			return outcomeSkipped, err
		}
		logger.Debug("Contact upgraded from stub", "upstream_id", upstreamID)
		return outcomeUpdated, nil
	}

	incoming.ID = existing.ID
	incoming.SyncSource = existing.SyncSource
	diff := changeset.CompareContacts(existing, incoming)
	if !diff.HasChanges {
		return outcomeSkipped, nil
	}
	if err := st.UpdateContact(ctx, incoming); err != nil {
		return outcomeSkipped, err
	}
	logger.Debug("Contact updated", "upstream_id", upstreamID, "fields", diff.ChangedFields)
	return outcomeUpdated, nil
}

// contactFromPayload maps an authoritative export record onto the normalized
// shape.
func contactFromPayload(p *b2chat.Contact, now time.Time) *models.Contact {
	return &models.Contact{
		UpstreamID:        p.ContactID.String(),
		FullName:          p.FullName,
		Mobile:            strPtr(p.Mobile),
		Landline:          strPtr(p.Landline),
		Email:             strPtr(p.Email),
		Identification:    strPtr(p.Identification),
		Address:           strPtr(p.Address),
		City:              strPtr(p.City),
		Country:           strPtr(p.Country),
		Company:           strPtr(p.Company),
		CustomAttributes:  jsonObject(p.CustomAttributes),
		Tags:              contactTags(p.Tags),
		MerchantID:        strPtr(p.MerchantID.String()),
		UpstreamCreatedAt: p.CreatedAt.Ptr(),
		UpstreamUpdatedAt: p.UpdatedAt.Ptr(),
		SyncSource:        models.SourceContactsAPI,
		NeedsFullSync:     false,
		LastSyncAt:        now,
	}
}

// contactTags converts export tag assignments, decoding assigned_at into
// whatever scalar the upstream sent.
func contactTags(tags b2chat.ContactTagList) []models.ContactTag {
	if len(tags) == 0 {
		return nil
	}
	out := make([]models.ContactTag, 0, len(tags))
	for _, t := range tags {
		tag := models.ContactTag{Name: t.Name}
		if len(t.AssignedAt) > 0 {
			var v any
			if err := json.Unmarshal(t.AssignedAt, &v); err == nil && v != nil {
				tag.AssignedAt = v
			}
		}
		out = append(out, tag)
	}
	return out
}

// strPtr returns a pointer to s, nil for the empty string.
func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// jsonObject decodes an opaque document into a map, nil when the bytes are
// absent or not a JSON object.
func jsonObject(raw json.RawMessage) map[string]any {
	if len(raw) == 0 {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}
