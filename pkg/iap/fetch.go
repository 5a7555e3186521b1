package iap

import (
	"context"
	"io"
	"net/http"
)

// Fetcher performs the authorized GET against the protected resource.
type Fetcher struct {
	HTTPClient *http.Client
}

// NewFetcher creates a new Fetcher with a default HTTP client.
func NewFetcher() *Fetcher {
	return NewFetcherWithHTTPClient(nil)
}

// NewFetcherWithHTTPClient creates a new Fetcher with a custom HTTP client.
func NewFetcherWithHTTPClient(httpClient *http.Client) *Fetcher {
	if httpClient == nil {
		httpClient = defaultHTTPClient()
	}
	return &Fetcher{HTTPClient: httpClient}
}

// Fetch GETs uri with the credential as a bearer token and returns the body
// verbatim.
func (f *Fetcher) Fetch(ctx context.Context, cred BearerCredential, uri string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return "", WrapError(ErrCodeFetch, "failed to create request", err)
	}
	bearerToken(cred).SetAuthHeader(req)
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return "", WrapError(ErrCodeFetch, "request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", WrapError(ErrCodeFetch, "failed to read response", err)
	}

	if !isSuccess(resp.StatusCode) {
		return "", newHTTPError(ErrCodeFetch, "protected resource returned an error",
			resp.StatusCode, reasonPhrase(resp), respBody)
	}

	return string(respBody), nil
}
