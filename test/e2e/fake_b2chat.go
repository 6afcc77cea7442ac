// Package e2e exercises the full extract-transform pipeline against a fake
// B2Chat export API and a real PostgreSQL database.
package e2e

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"
)

// Credentials the fake accepts on the token endpoint.
const (
	fakeUsername = "sync-client"
	fakePassword = "sync-secret"
)

// FakeB2Chat serves the subset of the B2Chat export API the pipeline uses:
// the OAuth token endpoint and the paged contacts/chats exports. Datasets
// are served in insertion order with offset/limit slicing, so multi-page
// extraction falls out of small limits naturally.
type FakeB2Chat struct {
	server *httptest.Server

	mu                sync.Mutex
	contacts          []json.RawMessage
	chats             []json.RawMessage
	contactsStatus    int
	chatsStatus       int
	exportDelay       time.Duration
	tokensIssued      int
	currentToken      string
	contactCalls      int
	chatCalls         int
	lastContactsQuery url.Values
	lastChatsQuery    url.Values
}

// NewFakeB2Chat starts the fake on a random port. The server is shut down
// with the test.
func NewFakeB2Chat(t *testing.T) *FakeB2Chat {
	t.Helper()

	f := &FakeB2Chat{}
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", f.handleToken)
	mux.HandleFunc("/contacts/export", f.handleContacts)
	mux.HandleFunc("/chats/export", f.handleChats)
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

// URL returns the fake's base URL.
func (f *FakeB2Chat) URL() string {
	return f.server.URL
}

// SetContacts replaces the contacts dataset with the given documents.
func (f *FakeB2Chat) SetContacts(t *testing.T, docs ...map[string]any) {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.contacts = marshalDocs(t, docs)
}

// SetContactsRaw replaces the contacts dataset with verbatim JSON values,
// valid or not. Used to feed the pipeline records that fail normalization.
func (f *FakeB2Chat) SetContactsRaw(raw ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.contacts = f.contacts[:0]
	for _, r := range raw {
		f.contacts = append(f.contacts, json.RawMessage(r))
	}
}

// SetChats replaces the chats dataset with the given documents.
func (f *FakeB2Chat) SetChats(t *testing.T, docs ...map[string]any) {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chats = marshalDocs(t, docs)
}

// FailContacts forces the given HTTP status on the contacts export.
// Zero restores normal service.
func (f *FakeB2Chat) FailContacts(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.contactsStatus = status
}

// FailChats forces the given HTTP status on the chats export.
func (f *FakeB2Chat) FailChats(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chatsStatus = status
}

// SetExportDelay makes every export call sleep before answering, keeping
// requests in flight long enough for cancellation tests to land.
func (f *FakeB2Chat) SetExportDelay(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exportDelay = d
}

// ContactCalls returns how many contacts export calls were served.
func (f *FakeB2Chat) ContactCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.contactCalls
}

// ChatCalls returns how many chats export calls were served.
func (f *FakeB2Chat) ChatCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.chatCalls
}

// TokensIssued returns how many tokens the fake has handed out.
func (f *FakeB2Chat) TokensIssued() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tokensIssued
}

// LastContactsQuery returns the query parameters of the most recent contacts
// export call.
func (f *FakeB2Chat) LastContactsQuery() url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastContactsQuery
}

// LastChatsQuery returns the query parameters of the most recent chats
// export call.
func (f *FakeB2Chat) LastChatsQuery() url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastChatsQuery
}

func (f *FakeB2Chat) handleToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	username, password, ok := r.BasicAuth()
	if !ok || username != fakeUsername || password != fakePassword {
		http.Error(w, `{"error":"invalid_client"}`, http.StatusUnauthorized)
		return
	}

	f.mu.Lock()
	f.tokensIssued++
	f.currentToken = fmt.Sprintf("token-%d", f.tokensIssued)
	token := f.currentToken
	f.mu.Unlock()

	writeJSON(w, map[string]any{
		"access_token": token,
		"expires_in":   3600,
	})
}

func (f *FakeB2Chat) handleContacts(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	delay := f.exportDelay
	f.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.authorized(r) {
		http.Error(w, `{"error":"invalid_token"}`, http.StatusUnauthorized)
		return
	}
	f.contactCalls++
	f.lastContactsQuery = r.URL.Query()

	if f.contactsStatus != 0 {
		http.Error(w, `{"error":"export unavailable"}`, f.contactsStatus)
		return
	}

	offset, limit := pageParams(r)
	window := sliceDocs(f.contacts, offset, limit)
	writeJSON(w, map[string]any{
		"contacts": window,
		"exported": len(window),
		"total":    len(f.contacts),
		"trace_id": fmt.Sprintf("trace-%d", f.contactCalls),
	})
}

func (f *FakeB2Chat) handleChats(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	delay := f.exportDelay
	f.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.authorized(r) {
		http.Error(w, `{"error":"invalid_token"}`, http.StatusUnauthorized)
		return
	}
	f.chatCalls++
	f.lastChatsQuery = r.URL.Query()

	if f.chatsStatus != 0 {
		http.Error(w, `{"error":"export unavailable"}`, f.chatsStatus)
		return
	}

	offset, limit := pageParams(r)
	window := sliceDocs(f.chats, offset, limit)
	writeJSON(w, map[string]any{
		"chats":    window,
		"exported": len(window),
		"total":    len(f.chats),
	})
}

// authorized checks the bearer token against the most recently issued one.
// Caller holds f.mu.
func (f *FakeB2Chat) authorized(r *http.Request) bool {
	return f.currentToken != "" &&
		r.Header.Get("Authorization") == "Bearer "+f.currentToken
}

func pageParams(r *http.Request) (offset, limit int) {
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	return offset, limit
}

// sliceDocs returns the offset/limit window of the dataset, never nil so the
// envelope always carries a JSON array.
func sliceDocs(all []json.RawMessage, offset, limit int) []json.RawMessage {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(all) {
		return []json.RawMessage{}
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end]
}

func marshalDocs(t *testing.T, docs []map[string]any) []json.RawMessage {
	t.Helper()
	out := make([]json.RawMessage, 0, len(docs))
	for _, doc := range docs {
		data, err := json.Marshal(doc)
		if err != nil {
			t.Fatalf("marshal fake document: %v", err)
		}
		out = append(out, data)
	}
	return out
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
