package iap

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Step is a state reached by one invocation of the flow.
type Step string

const (
	StepStart           Step = "start"
	StepKeyLoaded       Step = "key_loaded"
	StepAssertionBuilt  Step = "assertion_built"
	StepTokenAcquired   Step = "token_acquired"
	StepResponseFetched Step = "response_fetched"
)

// Request holds the caller-supplied parameters of one invocation.
type Request struct {
	// TargetAudience is the client ID of the protected resource.
	TargetAudience string

	// CredentialsFile is the path of a service account key file.
	CredentialsFile string

	// URI is the protected resource to GET.
	URI string
}

// Client runs the flow. It holds only fixed configuration, so one Client can
// serve concurrent invocations.
type Client struct {
	tokenURL   string
	httpClient *http.Client
	logger     *zap.Logger
	now        func() time.Time
}

// Option configures a Client.
type Option func(c *Client)

// WithTokenURL overrides the token endpoint (and so the assertion aud).
func WithTokenURL(tokenURL string) Option {
	return func(c *Client) {
		c.tokenURL = tokenURL
	}
}

// WithHTTPClient sets the HTTP client shared by the exchange and the fetch.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithClock sets the clock used for iat/exp.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient creates a Client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		tokenURL: DefaultTokenURL,
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.tokenURL == "" {
		c.tokenURL = DefaultTokenURL
	}
	if c.httpClient == nil {
		c.httpClient = defaultHTTPClient()
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c
}

// InvokeRequest loads the key, builds the assertion, exchanges it for an ID
// token and GETs req.URI with it. The resource body is returned verbatim.
func (c *Client) InvokeRequest(ctx context.Context, req Request) (string, error) {
	logger := c.logger.With(zap.String("target_audience", req.TargetAudience), zap.String("uri", req.URI))

	cred, err := c.idToken(ctx, req, logger)
	if err != nil {
		return "", err
	}

	body, err := NewFetcherWithHTTPClient(c.httpClient).Fetch(ctx, cred, req.URI)
	if err != nil {
		logFailure(logger, StepTokenAcquired, err)
		return "", err
	}
	logger.Debug("flow step", zap.String("step", string(StepResponseFetched)), zap.Int("bytes", len(body)))

	return body, nil
}

// IDToken runs the flow up to the token exchange and returns the ID token.
func (c *Client) IDToken(ctx context.Context, req Request) (BearerCredential, error) {
	logger := c.logger.With(zap.String("target_audience", req.TargetAudience))
	return c.idToken(ctx, req, logger)
}

// Assertion runs the flow up to the signed assertion.
func (c *Client) Assertion(req Request) (SignedAssertion, error) {
	logger := c.logger.With(zap.String("target_audience", req.TargetAudience))
	return c.assertion(req, logger)
}

func (c *Client) assertion(req Request, logger *zap.Logger) (SignedAssertion, error) {
	km, err := LoadKeyMaterialFile(req.CredentialsFile)
	if err != nil {
		logFailure(logger, StepStart, err)
		return "", err
	}
	logger.Debug("flow step", zap.String("step", string(StepKeyLoaded)), zap.String("client_email", km.ClientEmail))

	builder, err := NewBuilderFromKeyMaterial(c.tokenURL, km)
	if err != nil {
		logFailure(logger, StepKeyLoaded, err)
		return "", err
	}
	builder.Now = c.now

	assertion, err := builder.Build(req.TargetAudience)
	if err != nil {
		logFailure(logger, StepKeyLoaded, err)
		return "", err
	}
	logger.Debug("flow step", zap.String("step", string(StepAssertionBuilt)))

	return assertion, nil
}

func (c *Client) idToken(ctx context.Context, req Request, logger *zap.Logger) (BearerCredential, error) {
	assertion, err := c.assertion(req, logger)
	if err != nil {
		return "", err
	}

	cred, err := NewExchangerWithHTTPClient(c.tokenURL, c.httpClient).Exchange(ctx, assertion)
	if err != nil {
		logFailure(logger, StepAssertionBuilt, err)
		return "", err
	}
	logger.Debug("flow step", zap.String("step", string(StepTokenAcquired)))

	return cred, nil
}

// logFailure records the last state reached before err.
func logFailure(logger *zap.Logger, reached Step, err error) {
	fields := []zap.Field{
		zap.String("reached", string(reached)),
		zap.String("code", GetErrorCode(err)),
		zap.Error(err),
	}
	if e, ok := AsError(err); ok && e.StatusCode != 0 {
		fields = append(fields, zap.Int("status", e.StatusCode))
	}
	logger.Warn("flow failed", fields...)
}

// InvokeRequest runs the flow with a default Client.
func InvokeRequest(ctx context.Context, targetAudience, credentialsFile, uri string) (string, error) {
	return NewClient().InvokeRequest(ctx, Request{
		TargetAudience:  targetAudience,
		CredentialsFile: credentialsFile,
		URI:             uri,
	})
}
