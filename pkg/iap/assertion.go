package iap

import (
	"time"
)

const (
	// DefaultTokenURL is the OAuth2 endpoint that exchanges a service account
	// assertion for an ID token. It is also the aud of every assertion.
	DefaultTokenURL = "https://www.googleapis.com/oauth2/v4/token"

	// AssertionLifetime is the fixed gap between iat and exp.
	AssertionLifetime = time.Hour

	// TargetAudienceClaim names the claim carrying the protected resource's
	// client ID.
	TargetAudienceClaim = "target_audience"
)

// Claims is the claim set of a service account assertion. Field order is the
// serialized member order.
type Claims struct {
	// Audience is always the token endpoint, never the protected resource.
	Audience string `json:"aud"`

	Subject string `json:"sub"`
	Issuer  string `json:"iss"`

	// IssuedAt and Expiry are seconds since the Unix epoch.
	IssuedAt int64 `json:"iat"`
	Expiry   int64 `json:"exp"`

	// TargetAudience is the client ID the ID token will be issued for.
	TargetAudience string `json:"target_audience"`
}

// Builder creates signed assertions for one service account.
type Builder struct {
	TokenURL    string
	ClientEmail string
	Signer      Signer

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// NewBuilder creates a Builder. An empty tokenURL selects DefaultTokenURL.
func NewBuilder(tokenURL, clientEmail string, signer Signer) *Builder {
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	return &Builder{
		TokenURL:    tokenURL,
		ClientEmail: clientEmail,
		Signer:      signer,
		Now:         time.Now,
	}
}

// NewBuilderFromKeyMaterial creates a Builder signing with km's RSA key.
func NewBuilderFromKeyMaterial(tokenURL string, km *KeyMaterial) (*Builder, error) {
	signer, err := NewRSASigner(km.PrivateKey)
	if err != nil {
		return nil, err
	}
	return NewBuilder(tokenURL, km.ClientEmail, signer), nil
}

// Claims returns the claim set for targetAudience at the current time.
func (b *Builder) Claims(targetAudience string) *Claims {
	now := time.Now
	if b.Now != nil {
		now = b.Now
	}
	iat := now().UTC().Truncate(time.Second)

	return &Claims{
		Audience:       b.TokenURL,
		Subject:        b.ClientEmail,
		Issuer:         b.ClientEmail,
		IssuedAt:       iat.Unix(),
		Expiry:         iat.Add(AssertionLifetime).Unix(),
		TargetAudience: targetAudience,
	}
}

// Build signs a fresh claim set for targetAudience.
func (b *Builder) Build(targetAudience string) (SignedAssertion, error) {
	if b.Signer == nil {
		return "", NewError(ErrCodeKeySigning, "no signer configured")
	}
	return b.Signer.Sign(b.Claims(targetAudience))
}
