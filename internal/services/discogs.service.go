package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"waxworks/config"
	"waxworks/internal/models"
	"waxworks/internal/repositories"
	"waxworks/internal/types"
	"waxworks/pkg/logger"
)

// ErrConsumerNotConfigured means neither app_config nor the environment
// carries the Discogs consumer key/secret pair.
var ErrConsumerNotConfigured = errors.New("discogs consumer credentials are not configured")

const (
	discogsAPIBase  = "https://api.discogs.com"
	discogsAuthBase = "https://www.discogs.com"

	syncPerPage      = 100
	interPageDelay   = 500 * time.Millisecond
	rateLimitBackoff = 60 * time.Second
)

// DiscogsAuth carries the credentials for one signed request: the app
// consumer pair plus, once a user has linked, their token pair.
type DiscogsAuth struct {
	ConsumerKey    string
	ConsumerSecret string
	Token          string
	TokenSecret    string
}

// DiscogsService is the OAuth 1.0a client for the Discogs user API. All
// fetches are signed per-request; pagination and rate-limit backoff are
// handled here so callers only see pages.
type DiscogsService struct {
	client    *http.Client
	baseURL   string
	authBase  string
	userAgent string
	log       logger.Logger

	// sleep is swapped out by tests to observe backoff without waiting.
	sleep func(ctx context.Context, d time.Duration)
}

func NewDiscogsService(cfg config.Config) *DiscogsService {
	return &DiscogsService{
		client:    &http.Client{Timeout: 30 * time.Second},
		baseURL:   discogsAPIBase,
		authBase:  discogsAuthBase,
		userAgent: cfg.DiscogsUserAgent,
		log:       logger.New("discogsService"),
		sleep: func(ctx context.Context, d time.Duration) {
			timer := time.NewTimer(d)
			defer timer.Stop()
			select {
			case <-ctx.Done():
			case <-timer.C:
			}
		},
	}
}

// percentEncode implements RFC 3986 encoding: unreserved characters
// (ALPHA / DIGIT / "-" / "." / "_" / "~") pass through, everything else
// becomes uppercase %XX.
func percentEncode(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9',
			c == '-', c == '.', c == '_', c == '~':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}

// oauthSignature computes the HMAC-SHA1 signature over the OAuth base
// string: UPPER(method) & enc(url-without-query) & enc(parameter string).
// Keys and values are percent-encoded individually before sorting and
// joining, so the base string double-encodes them. params must already
// contain every signed parameter, query parameters included, with raw
// (unencoded) values.
func oauthSignature(method, baseURL string, params map[string]string, consumerSecret, tokenSecret string) string {
	encoded := make(map[string]string, len(params))
	keys := make([]string, 0, len(params))
	for k, v := range params {
		ek := percentEncode(k)
		encoded[ek] = percentEncode(v)
		keys = append(keys, ek)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+encoded[k])
	}

	base := strings.ToUpper(method) + "&" + percentEncode(baseURL) + "&" +
		percentEncode(strings.Join(pairs, "&"))

	mac := hmac.New(sha1.New, []byte(percentEncode(consumerSecret)+"&"+percentEncode(tokenSecret)))
	mac.Write([]byte(base))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// buildAuthorization signs one request and renders the Authorization
// header. Query parameters of rawURL join the signed set but never the
// header; extra holds flow-specific oauth params (callback, verifier).
func buildAuthorization(method, rawURL string, auth DiscogsAuth, extra map[string]string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse request url: %w", err)
	}

	oauthParams := map[string]string{
		"oauth_consumer_key":     auth.ConsumerKey,
		"oauth_nonce":            randomHex(16),
		"oauth_signature_method": "HMAC-SHA1",
		"oauth_timestamp":        strconv.FormatInt(time.Now().Unix(), 10),
		"oauth_version":          "1.0",
	}
	if auth.Token != "" {
		oauthParams["oauth_token"] = auth.Token
	}
	for k, v := range extra {
		oauthParams[k] = v
	}

	signed := make(map[string]string, len(oauthParams)+4)
	for k, v := range oauthParams {
		signed[k] = v
	}
	for k, vs := range parsed.Query() {
		if len(vs) > 0 {
			signed[k] = vs[0]
		}
	}

	baseURL := parsed.Scheme + "://" + parsed.Host + parsed.EscapedPath()
	oauthParams["oauth_signature"] = oauthSignature(method, baseURL, signed, auth.ConsumerSecret, auth.TokenSecret)

	keys := make([]string, 0, len(oauthParams))
	for k := range oauthParams {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+`="`+percentEncode(oauthParams[k])+`"`)
	}
	return "OAuth " + strings.Join(pairs, ", "), nil
}

func (d *DiscogsService) do(
	ctx context.Context,
	method, rawURL string,
	auth DiscogsAuth,
	extra map[string]string,
) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, err
	}

	header, err := buildAuthorization(method, rawURL, auth, extra)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", header)
	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("Accept", "application/json")

	return d.client.Do(req)
}

// getJSON performs a signed GET and decodes 200 responses into out. Other
// statuses are returned to the caller undecoded.
func (d *DiscogsService) getJSON(ctx context.Context, rawURL string, auth DiscogsAuth, out any) (int, error) {
	log := d.log.Function("getJSON")

	resp, err := d.do(ctx, http.MethodGet, rawURL, auth, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Warn("failed to close response body", "error", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, log.Err("failed to decode Discogs response", err, "url", rawURL)
	}
	return resp.StatusCode, nil
}

// tokenResponse parses the urlencoded body of the request/access token
// endpoints.
func tokenResponse(body io.Reader) (token, secret string, err error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return "", "", err
	}
	values, err := url.ParseQuery(string(raw))
	if err != nil {
		return "", "", err
	}
	token = values.Get("oauth_token")
	secret = values.Get("oauth_token_secret")
	if token == "" || secret == "" {
		return "", "", fmt.Errorf("token response missing oauth_token or oauth_token_secret")
	}
	return token, secret, nil
}

// GetRequestToken starts the linking flow: an out-of-band request token the
// user carries to the authorize page.
func (d *DiscogsService) GetRequestToken(ctx context.Context, consumerKey, consumerSecret string) (*types.RequestToken, error) {
	log := d.log.Function("GetRequestToken")

	auth := DiscogsAuth{ConsumerKey: consumerKey, ConsumerSecret: consumerSecret}
	resp, err := d.do(ctx, http.MethodGet, d.baseURL+"/oauth/request_token", auth,
		map[string]string{"oauth_callback": "oob"})
	if err != nil {
		return nil, log.Err("request token call failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, log.Error("request token call returned unexpected status", "status", resp.StatusCode)
	}

	token, secret, err := tokenResponse(resp.Body)
	if err != nil {
		return nil, log.Err("failed to parse request token response", err)
	}
	return &types.RequestToken{Token: token, Secret: secret}, nil
}

// AuthorizeURL is where the user grants access for a pending request token.
func (d *DiscogsService) AuthorizeURL(requestToken string) string {
	return d.authBase + "/oauth/authorize?oauth_token=" + url.QueryEscape(requestToken)
}

// ExchangeAccessToken trades a verified request token for the user's
// long-lived access pair.
func (d *DiscogsService) ExchangeAccessToken(
	ctx context.Context,
	consumerKey, consumerSecret, requestToken, requestSecret, verifier string,
) (*types.AccessToken, error) {
	log := d.log.Function("ExchangeAccessToken")

	auth := DiscogsAuth{
		ConsumerKey:    consumerKey,
		ConsumerSecret: consumerSecret,
		Token:          requestToken,
		TokenSecret:    requestSecret,
	}
	resp, err := d.do(ctx, http.MethodPost, d.baseURL+"/oauth/access_token", auth,
		map[string]string{"oauth_verifier": verifier})
	if err != nil {
		return nil, log.Err("access token call failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, log.Error("access token call returned unexpected status", "status", resp.StatusCode)
	}

	token, secret, err := tokenResponse(resp.Body)
	if err != nil {
		return nil, log.Err("failed to parse access token response", err)
	}
	return &types.AccessToken{Token: token, Secret: secret}, nil
}

// GetIdentity resolves the authenticated Discogs account.
func (d *DiscogsService) GetIdentity(ctx context.Context, auth DiscogsAuth) (*types.Identity, error) {
	log := d.log.Function("GetIdentity")

	var identity types.Identity
	status, err := d.getJSON(ctx, d.baseURL+"/oauth/identity", auth, &identity)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, log.Error("identity call returned unexpected status", "status", status)
	}
	if identity.ID == 0 || identity.Username == "" {
		return nil, log.ErrMsg("identity response missing id or username")
	}

	log.Info("resolved Discogs identity", "discogsUserID", identity.ID, "username", identity.Username)
	return &identity, nil
}

// ForEachCollectionPage walks the user's collection newest-first, invoking
// fn once per page. A 429 sleeps out the rate limit and retries the same
// page; any other non-200 stops the walk with what was fetched so far
// (partial syncs are acceptable). Returns the number of pages fetched.
func (d *DiscogsService) ForEachCollectionPage(
	ctx context.Context,
	auth DiscogsAuth,
	username string,
	fn func(page types.CollectionPage) error,
) (int, error) {
	log := d.log.Function("ForEachCollectionPage")

	pagesFetched := 0
	page := 1
	for {
		rawURL := fmt.Sprintf(
			"%s/users/%s/collection/folders/0/releases?page=%d&per_page=%d&sort=added&sort_order=desc",
			d.baseURL, url.PathEscape(username), page, syncPerPage,
		)

		var payload types.CollectionPage
		status, err := d.getJSON(ctx, rawURL, auth, &payload)
		if err != nil {
			return pagesFetched, err
		}
		if status == http.StatusTooManyRequests {
			log.Warn("rate limited fetching collection, backing off", "username", username, "page", page)
			d.sleep(ctx, rateLimitBackoff)
			if ctx.Err() != nil {
				return pagesFetched, ctx.Err()
			}
			continue
		}
		if status != http.StatusOK {
			log.Warn("collection fetch stopped on unexpected status", "status", status, "page", page)
			return pagesFetched, nil
		}

		pagesFetched++
		if err := fn(payload); err != nil {
			return pagesFetched, err
		}

		if payload.Pagination.Pages <= page {
			return pagesFetched, nil
		}
		page++
		d.sleep(ctx, interPageDelay)
		if ctx.Err() != nil {
			return pagesFetched, ctx.Err()
		}
	}
}

// ForEachWantlistPage walks the user's wantlist page by page with the same
// backoff and stop rules as the collection walk.
func (d *DiscogsService) ForEachWantlistPage(
	ctx context.Context,
	auth DiscogsAuth,
	username string,
	fn func(page types.WantlistPage) error,
) (int, error) {
	log := d.log.Function("ForEachWantlistPage")

	pagesFetched := 0
	page := 1
	for {
		rawURL := fmt.Sprintf(
			"%s/users/%s/wants?page=%d&per_page=%d",
			d.baseURL, url.PathEscape(username), page, syncPerPage,
		)

		var payload types.WantlistPage
		status, err := d.getJSON(ctx, rawURL, auth, &payload)
		if err != nil {
			return pagesFetched, err
		}
		if status == http.StatusTooManyRequests {
			log.Warn("rate limited fetching wantlist, backing off", "username", username, "page", page)
			d.sleep(ctx, rateLimitBackoff)
			if ctx.Err() != nil {
				return pagesFetched, ctx.Err()
			}
			continue
		}
		if status != http.StatusOK {
			log.Warn("wantlist fetch stopped on unexpected status", "status", status, "page", page)
			return pagesFetched, nil
		}

		pagesFetched++
		if err := fn(payload); err != nil {
			return pagesFetched, err
		}

		if payload.Pagination.Pages <= page {
			return pagesFetched, nil
		}
		page++
		d.sleep(ctx, interPageDelay)
		if ctx.Err() != nil {
			return pagesFetched, ctx.Err()
		}
	}
}

// FetchCollectionValue reads the marketplace value summary for the user's
// collection. Values arrive as display strings ("$1,234.56").
func (d *DiscogsService) FetchCollectionValue(
	ctx context.Context,
	auth DiscogsAuth,
	username string,
) (*types.CollectionValue, error) {
	log := d.log.Function("FetchCollectionValue")

	rawURL := fmt.Sprintf("%s/users/%s/collection/value", d.baseURL, url.PathEscape(username))

	var payload types.CollectionValue
	status, err := d.getJSON(ctx, rawURL, auth, &payload)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, log.Error("collection value call returned unexpected status", "status", status)
	}
	return &payload, nil
}

// LoadDiscogsConsumer resolves the app's consumer credentials: the
// app_config rows seeded at deployment (decrypted when stored encrypted),
// falling back to the environment for installs that skipped setup.
func LoadDiscogsConsumer(
	ctx context.Context,
	appConfigRepo repositories.AppConfigRepository,
	authService *AuthService,
	cfg config.Config,
) (key, secret string, err error) {
	values, err := appConfigRepo.GetMany(ctx, []string{
		models.ConfigDiscogsConsumerKey,
		models.ConfigDiscogsConsumerSecret,
	})
	if err != nil {
		return "", "", err
	}

	key = values[models.ConfigDiscogsConsumerKey]
	secret = values[models.ConfigDiscogsConsumerSecret]
	if key == "" || secret == "" {
		key, secret = cfg.DiscogsConsumerKey, cfg.DiscogsConsumerSecret
	} else {
		if key, err = authService.DecryptSecret(key); err != nil {
			return "", "", err
		}
		if secret, err = authService.DecryptSecret(secret); err != nil {
			return "", "", err
		}
	}

	if key == "" || secret == "" {
		return "", "", ErrConsumerNotConfigured
	}
	return key, secret, nil
}
