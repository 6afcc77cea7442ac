// Package b2chat provides the client for the B2Chat export API and the
// rate-limited call queue every upstream request goes through.
package b2chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/version"
)

const (
	// DefaultBaseURL is the production export API endpoint
	DefaultBaseURL = "https://api.b2chat.io"

	// DefaultTimeout bounds a single HTTP request
	DefaultTimeout = 60 * time.Second

	// dateParamFormat is the day granularity the export endpoints accept
	dateParamFormat = "2006-01-02"

	// maxErrorBody caps how much of an error response body is kept
	maxErrorBody = 4 << 10
)

// Config holds the settings needed to reach the export API.
type Config struct {
	BaseURL  string
	Username string
	Password string
	Timeout  time.Duration
}

// Client talks to the export API. It owns token acquisition and schema
// normalization; rate limiting and retries live in CallQueue.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  *tokenSource
}

// NewClient creates a Client from the given config.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Username == "" || cfg.Password == "" {
		return nil, ErrMissingCredentials
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	httpClient := &http.Client{Timeout: timeout}
	return &Client{
		baseURL: baseURL,
		http:    httpClient,
		tokens:  newTokenSource(baseURL, cfg.Username, cfg.Password, httpClient),
	}, nil
}

// GetContacts fetches one page of the contacts export and normalizes every
// record. Records that fail normalization are returned with their original
// bytes and an error so they can still be staged.
func (c *Client) GetContacts(ctx context.Context, q ContactsQuery) (*ContactsPage, error) {
	params := url.Values{}
	params.Set("offset", strconv.Itoa(q.Offset))
	params.Set("limit", strconv.Itoa(q.Limit))
	if q.UpdatedFrom != nil {
		params.Set("updated_from", q.UpdatedFrom.Format(dateParamFormat))
	}
	if q.UpdatedTo != nil {
		params.Set("updated_to", q.UpdatedTo.Format(dateParamFormat))
	}

	body, err := c.get(ctx, "/contacts/export", params)
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Contacts []json.RawMessage `json:"contacts"`
		Exported int               `json:"exported"`
		Total    int               `json:"total"`
		TraceID  string            `json:"trace_id"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, NewSchemaError("/contacts/export", "", err)
	}

	page := &ContactsPage{
		Records: make([]ContactRecord, 0, len(envelope.Contacts)),
		TraceID: envelope.TraceID,
	}
	for _, raw := range envelope.Contacts {
		page.Records = append(page.Records, normalizeContactRecord(raw))
	}
	page.Pagination = paginate(q.Offset, q.Limit, envelope.Exported, envelope.Total, len(page.Records))
	return page, nil
}

// GetChats fetches one page of the chats export and normalizes every record.
func (c *Client) GetChats(ctx context.Context, q ChatsQuery) (*ChatsPage, error) {
	params := url.Values{}
	params.Set("offset", strconv.Itoa(q.Offset))
	params.Set("limit", strconv.Itoa(q.Limit))
	if q.DateRangeFrom != nil {
		params.Set("date_range_from", q.DateRangeFrom.Format(dateParamFormat))
	}
	if q.DateRangeTo != nil {
		params.Set("date_range_to", q.DateRangeTo.Format(dateParamFormat))
	}

	body, err := c.get(ctx, "/chats/export", params)
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Chats    []json.RawMessage `json:"chats"`
		Exported int               `json:"exported"`
		Total    int               `json:"total"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, NewSchemaError("/chats/export", "", err)
	}

	page := &ChatsPage{Records: make([]ChatRecord, 0, len(envelope.Chats))}
	for _, raw := range envelope.Chats {
		page.Records = append(page.Records, normalizeChatRecord(raw))
	}
	page.Pagination = paginate(q.Offset, q.Limit, envelope.Exported, envelope.Total, len(page.Records))
	return page, nil
}

// get performs an authenticated GET against the export API. A single 401 is
// retried once with a fresh token, since tokens can be revoked server-side
// before their reported expiry.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	body, status, err := c.getOnce(ctx, endpoint, params)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized {
		c.tokens.Invalidate()
		body, status, err = c.getOnce(ctx, endpoint, params)
		if err != nil {
			return nil, err
		}
	}
	if status < 200 || status >= 300 {
		return nil, NewAPIError(endpoint, status, strings.TrimSpace(string(body)))
	}
	return body, nil
}

func (c *Client) getOnce(ctx context.Context, endpoint string, params url.Values) ([]byte, int, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, 0, fmt.Errorf("building request for %s: %w", endpoint, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.Full())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("calling %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	limit := int64(-1)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		limit = maxErrorBody
	}
	var reader io.Reader = resp.Body
	if limit > 0 {
		reader = io.LimitReader(resp.Body, limit)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, 0, fmt.Errorf("reading %s response: %w", endpoint, err)
	}
	return body, resp.StatusCode, nil
}

// paginate computes where the page sits in the export. The endpoints report
// total and exported counts; when the total is absent the page is assumed
// full if it reached the requested limit.
func paginate(offset, limit, exported, total, received int) Pagination {
	if exported <= 0 {
		exported = received
	}
	p := Pagination{Total: total, Exported: exported}
	switch {
	case exported == 0:
		p.HasNextPage = false
	case total > 0:
		p.HasNextPage = offset+exported < total
	default:
		p.HasNextPage = limit > 0 && exported >= limit
	}
	return p
}

// normalizeContactRecord decodes one raw contact. On failure the original
// bytes are kept so the record can be staged and marked failed downstream.
func normalizeContactRecord(raw json.RawMessage) ContactRecord {
	var contact Contact
	if err := json.Unmarshal(raw, &contact); err != nil {
		return ContactRecord{Raw: compactRaw(raw), Err: NewSchemaError("/contacts/export", "", err)}
	}
	canonical, err := json.Marshal(&contact)
	if err != nil {
		return ContactRecord{Raw: compactRaw(raw), Err: NewSchemaError("/contacts/export", "", err)}
	}
	return ContactRecord{Contact: &contact, Raw: canonical}
}

// normalizeChatRecord decodes one raw chat and canonicalizes its status.
func normalizeChatRecord(raw json.RawMessage) ChatRecord {
	var chat Chat
	if err := json.Unmarshal(raw, &chat); err != nil {
		return ChatRecord{Raw: compactRaw(raw), Err: NewSchemaError("/chats/export", "", err)}
	}

	status, known := NormalizeStatus(chat.Status)
	if !known && chat.Status != "" {
		slog.Warn("Unknown chat status from upstream, falling back to OPENED",
			"chat_id", chat.ChatID.String(), "status", chat.Status)
	}
	chat.Status = string(status)

	canonical, err := json.Marshal(&chat)
	if err != nil {
		return ChatRecord{Raw: compactRaw(raw), Err: NewSchemaError("/chats/export", "", err)}
	}
	return ChatRecord{Chat: &chat, Raw: canonical}
}

// compactRaw strips insignificant whitespace, falling back to the input
// bytes when they are not valid JSON at all.
func compactRaw(raw json.RawMessage) json.RawMessage {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return raw
	}
	return buf.Bytes()
}
