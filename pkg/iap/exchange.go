package iap

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// JWTBearerGrantType is the grant_type for the OAuth2 service account profile.
const JWTBearerGrantType = "urn:ietf:params:oauth:grant-type:jwt-bearer"

// BearerCredential is the ID token returned by the exchange.
type BearerCredential string

// Exchanger trades a signed assertion for an ID token.
type Exchanger struct {
	TokenURL   string
	HTTPClient *http.Client
}

// NewExchanger creates a new Exchanger with a default HTTP client.
func NewExchanger(tokenURL string) *Exchanger {
	return NewExchangerWithHTTPClient(tokenURL, nil)
}

// NewExchangerWithHTTPClient creates a new Exchanger with a custom HTTP client.
func NewExchangerWithHTTPClient(tokenURL string, httpClient *http.Client) *Exchanger {
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	if httpClient == nil {
		httpClient = defaultHTTPClient()
	}
	return &Exchanger{
		TokenURL:   tokenURL,
		HTTPClient: httpClient,
	}
}

// Exchange performs one POST to the token endpoint.
func (e *Exchanger) Exchange(ctx context.Context, assertion SignedAssertion) (BearerCredential, error) {
	form := url.Values{}
	form.Set("assertion", string(assertion))
	form.Set("grant_type", JWTBearerGrantType)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", WrapError(ErrCodeExchange, "failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return "", WrapError(ErrCodeExchange, "request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", WrapError(ErrCodeExchange, "failed to read response", err)
	}

	if !isSuccess(resp.StatusCode) {
		return "", newHTTPError(ErrCodeExchange, "token endpoint rejected assertion",
			resp.StatusCode, reasonPhrase(resp), respBody)
	}

	return parseIDToken(resp, respBody)
}

func parseIDToken(resp *http.Response, respBody []byte) (BearerCredential, error) {
	var tokenResp struct {
		IDToken string `json:"id_token"`
	}
	if err := json.Unmarshal(respBody, &tokenResp); err != nil {
		e := newHTTPError(ErrCodeExchangeProtocol, "token response is not valid JSON",
			resp.StatusCode, reasonPhrase(resp), respBody)
		e.Cause = err
		return "", e
	}
	if tokenResp.IDToken == "" {
		return "", newHTTPError(ErrCodeExchangeProtocol, "token response missing id_token",
			resp.StatusCode, reasonPhrase(resp), respBody)
	}
	return BearerCredential(tokenResp.IDToken), nil
}

// TokenSource adapts a Builder and Exchanger to oauth2.TokenSource. Every
// call to Token signs a new assertion and performs a new exchange; wrap it
// with oauth2.ReuseTokenSource if caching is wanted.
type TokenSource struct {
	ctx            context.Context
	builder        *Builder
	exchanger      *Exchanger
	targetAudience string
}

// NewTokenSource returns a TokenSource minting ID tokens for targetAudience.
func NewTokenSource(ctx context.Context, builder *Builder, exchanger *Exchanger, targetAudience string) *TokenSource {
	return &TokenSource{
		ctx:            ctx,
		builder:        builder,
		exchanger:      exchanger,
		targetAudience: targetAudience,
	}
}

// Token implements oauth2.TokenSource.
func (ts *TokenSource) Token() (*oauth2.Token, error) {
	assertion, err := ts.builder.Build(ts.targetAudience)
	if err != nil {
		return nil, err
	}
	cred, err := ts.exchanger.Exchange(ts.ctx, assertion)
	if err != nil {
		return nil, err
	}
	return bearerToken(cred), nil
}

var _ oauth2.TokenSource = (*TokenSource)(nil)

func bearerToken(cred BearerCredential) *oauth2.Token {
	return &oauth2.Token{
		AccessToken: string(cred),
		TokenType:   "Bearer",
	}
}

const userAgent = "capiscio-iap/1.0"

func defaultHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
	}
}

func isSuccess(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}

// reasonPhrase returns the text after the status code in resp.Status.
func reasonPhrase(resp *http.Response) string {
	reason := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if reason == "" {
		reason = http.StatusText(resp.StatusCode)
	}
	return reason
}
