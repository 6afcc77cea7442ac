package b2chat

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// tokenRefreshLeeway is how long before expiry a cached token is refreshed,
// so a token never goes stale mid-request.
const tokenRefreshLeeway = 60 * time.Second

// tokenSource acquires and caches the bearer token for the export API using
// the OAuth client-credentials flow. Safe for concurrent use.
type tokenSource struct {
	baseURL  string
	username string
	password string
	client   *http.Client
	now      func() time.Time

	mu     sync.Mutex
	token  string
	expiry time.Time
}

func newTokenSource(baseURL, username, password string, client *http.Client) *tokenSource {
	return &tokenSource{
		baseURL:  baseURL,
		username: username,
		password: password,
		client:   client,
		now:      time.Now,
	}
}

// Token returns a valid bearer token, reusing the cached one until it is
// within the refresh leeway of expiring.
func (ts *tokenSource) Token(ctx context.Context) (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.token != "" && ts.now().Add(tokenRefreshLeeway).Before(ts.expiry) {
		return ts.token, nil
	}
	if err := ts.refresh(ctx); err != nil {
		return "", err
	}
	return ts.token, nil
}

// Invalidate drops the cached token so the next call re-authenticates. Used
// when the API rejects a token that has not reached its expiry yet.
func (ts *tokenSource) Invalidate() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.token = ""
	ts.expiry = time.Time{}
}

// refresh performs the client-credentials exchange. Caller holds ts.mu.
func (ts *tokenSource) refresh(ctx context.Context) error {
	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		ts.baseURL+"/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	req.SetBasicAuth(ts.username, ts.password)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := ts.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: reading token response: %v", ErrAuthFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: token endpoint returned %d: %s", ErrAuthFailed, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var grant struct {
		AccessToken string      `json:"access_token"`
		ExpiresIn   json.Number `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &grant); err != nil {
		return fmt.Errorf("%w: decoding token response: %v", ErrAuthFailed, err)
	}
	if grant.AccessToken == "" {
		return fmt.Errorf("%w: token response carried no access_token", ErrAuthFailed)
	}

	expiresIn, err := grant.ExpiresIn.Int64()
	if err != nil || expiresIn <= 0 {
		expiresIn = 3600
	}

	ts.token = grant.AccessToken
	ts.expiry = ts.now().Add(time.Duration(expiresIn) * time.Second)
	return nil
}
