package transform

import (
	"context"
	"errors"
	"time"

	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/b2chat"
	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/changeset"
	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/models"
	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/store"
)

// linkAgent upserts the agent a chat references and returns its row id, nil
// when the chat carries no agent. The upstream identity is the username when
// present; chat-embedded agents often carry only a display name, which then
// has to serve as the key.
func linkAgent(ctx context.Context, st *store.Store, ref *b2chat.ChatAgent) (*int64, error) {
	if ref.IsZero() {
		return nil, nil
	}

	key := ref.Username
	if key == "" {
		key = ref.Name
	}
	name := ref.Name
	if name == "" {
		name = ref.Username
	}

	agent := &models.Agent{
		UpstreamID: key,
		Name:       name,
		Username:   strPtr(ref.Username),
		Email:      strPtr(ref.Email),
		IsActive:   true,
	}
	id, err := st.UpsertAgent(ctx, agent)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// linkContact resolves the contact a chat references and returns its row id,
// nil when the chat carries no linkable contact. Unknown contacts become
// stubs awaiting the contacts endpoint; authoritative contacts are linked
// untouched, since embedded data must never overwrite endpoint data; a stub
// meeting another stub observation is merged and diff-updated.
func linkContact(ctx context.Context, st *store.Store, ref *b2chat.ChatContact, now time.Time) (*int64, error) {
	if ref.IsZero() {
		return nil, nil
	}
	upstreamID := ref.ID.String()
	if upstreamID == "" {
		// Name-only references cannot be matched to anything.
		return nil, nil
	}

	existing, err := st.GetContactByUpstreamID(ctx, upstreamID)
	if errors.Is(err, store.ErrNotFound) {
		stub := stubContact(ref, now)
		if err := st.InsertContact(ctx, stub); err != nil {
			return nil, err
		}
		return &stub.ID, nil
	}
	if err != nil {
		return nil, err
	}

	if existing.SyncSource.IsAuthoritative() {
		return &existing.ID, nil
	}

	// Merge first so a sparser chat payload cannot null out fields an
	// earlier observation already filled.
	merged := changeset.MergeContact(existing, stubContact(ref, now))
	merged.ID = existing.ID
	diff := changeset.CompareContacts(existing, &merged)
	if !diff.HasChanges {
		return &existing.ID, nil
	}
	if err := st.UpdateContact(ctx, &merged); err != nil {
		return nil, err
	}
	return &existing.ID, nil
}

// stubContact builds the placeholder row for a contact known only from chat
// payloads. needsFullSync stays true until the contacts endpoint upgrades it.
func stubContact(ref *b2chat.ChatContact, now time.Time) *models.Contact {
	return &models.Contact{
		UpstreamID:    ref.ID.String(),
		FullName:      ref.Name,
		Mobile:        strPtr(ref.Mobile),
		Email:         strPtr(ref.Email),
		SyncSource:    models.SourceChatEmbedded,
		NeedsFullSync: true,
		LastSyncAt:    now,
	}
}

// linkDepartment upserts the department a chat references and returns its
// row id, nil when the chat carries no department.
func linkDepartment(ctx context.Context, st *store.Store, ref *b2chat.ChatDepartment) (*int64, error) {
	if ref.IsZero() {
		return nil, nil
	}

	code := ref.Code.String()
	if code == "" {
		code = ref.Name
	}

	dept := &models.Department{
		UpstreamCode: code,
		Name:         ref.Name,
		IsActive:     boolOr(ref.IsActive, true),
		IsLeaf:       boolOr(ref.IsLeaf, true),
	}
	id, err := st.UpsertDepartment(ctx, dept)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// boolOr dereferences v, falling back when the payload omitted the field.
func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}
