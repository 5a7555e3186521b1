package iap

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestBuilder_Claims(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 30, 45, 999_000_000, time.FixedZone("CET", 3600))

	b := NewBuilder("", testEmail, nil)
	b.Now = fixedClock(now)

	claims := b.Claims("1234.apps.googleusercontent.com")

	assert.Equal(t, DefaultTokenURL, claims.Audience)
	assert.Equal(t, testEmail, claims.Subject)
	assert.Equal(t, testEmail, claims.Issuer)
	assert.Equal(t, now.Truncate(time.Second).Unix(), claims.IssuedAt)
	assert.Equal(t, int64(3600), claims.Expiry-claims.IssuedAt)
	assert.Equal(t, "1234.apps.googleusercontent.com", claims.TargetAudience)
}

func TestBuilder_Claims_AudienceIsTokenEndpoint(t *testing.T) {
	tests := []struct {
		name     string
		tokenURL string
		target   string
		wantAud  string
	}{
		{"default endpoint", "", "1234.apps.googleusercontent.com", DefaultTokenURL},
		{"custom endpoint", "http://127.0.0.1:9999/token", "1234.apps.googleusercontent.com", "http://127.0.0.1:9999/token"},
		{"target looks like a URL", "", "https://example.com/protected", DefaultTokenURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := NewBuilder(tt.tokenURL, testEmail, nil).Claims(tt.target)
			assert.Equal(t, tt.wantAud, claims.Audience)
			assert.NotEqual(t, tt.target, claims.Audience)
			assert.Equal(t, tt.target, claims.TargetAudience)
		})
	}
}

func TestBuilder_Claims_TargetAudienceVerbatim(t *testing.T) {
	targets := []string{
		"1234.apps.googleusercontent.com",
		"  padded  ",
		"ünïcödé/with?query=1&x=2",
		"",
	}
	b := NewBuilder("", testEmail, nil)
	for _, target := range targets {
		assert.Equal(t, target, b.Claims(target).TargetAudience)
	}
}

func TestBuilder_Claims_SameSecondIsEqual(t *testing.T) {
	base := time.Unix(1700000000, 0)
	calls := 0
	b := NewBuilder("", testEmail, nil)
	b.Now = func() time.Time {
		calls++
		return base.Add(time.Duration(calls) * 100 * time.Millisecond)
	}

	first := b.Claims("aud")
	second := b.Claims("aud")
	assert.Equal(t, first, second)
}

func TestBuilder_Build(t *testing.T) {
	key, pemKey := newTestKey(t)
	km := &KeyMaterial{PrivateKey: pemKey, ClientEmail: testEmail}

	b, err := NewBuilderFromKeyMaterial("", km)
	require.NoError(t, err)
	b.Now = fixedClock(time.Unix(1700000000, 0))

	assertion, err := b.Build("1234.apps.googleusercontent.com")
	require.NoError(t, err)
	assert.Len(t, strings.Split(string(assertion), "."), 3)

	jws, err := jose.ParseSigned(string(assertion), []jose.SignatureAlgorithm{jose.RS256})
	require.NoError(t, err)
	require.Len(t, jws.Signatures, 1)
	assert.Equal(t, "RS256", jws.Signatures[0].Header.Algorithm)
	assert.Equal(t, "JWT", jws.Signatures[0].Header.ExtraHeaders[jose.HeaderType])

	payload, err := jws.Verify(&key.PublicKey)
	require.NoError(t, err)

	assert.Equal(t,
		`{"aud":"https://www.googleapis.com/oauth2/v4/token",`+
			`"sub":"svc@project.iam.gserviceaccount.com",`+
			`"iss":"svc@project.iam.gserviceaccount.com",`+
			`"iat":1700000000,"exp":1700003600,`+
			`"target_audience":"1234.apps.googleusercontent.com"}`,
		string(payload))

	var members map[string]interface{}
	require.NoError(t, json.Unmarshal(payload, &members))
	assert.Len(t, members, 6)
}

func TestBuilder_Build_DifferentKeysDifferentTokens(t *testing.T) {
	_, pemA := newTestKey(t)
	_, pemB := newTestKey(t)
	clock := fixedClock(time.Unix(1700000000, 0))

	bA, err := NewBuilderFromKeyMaterial("", &KeyMaterial{PrivateKey: pemA, ClientEmail: testEmail})
	require.NoError(t, err)
	bA.Now = clock
	bB, err := NewBuilderFromKeyMaterial("", &KeyMaterial{PrivateKey: pemB, ClientEmail: testEmail})
	require.NoError(t, err)
	bB.Now = clock

	assert.Equal(t, bA.Claims("aud"), bB.Claims("aud"))

	tokA, err := bA.Build("aud")
	require.NoError(t, err)
	tokB, err := bB.Build("aud")
	require.NoError(t, err)
	assert.NotEqual(t, tokA, tokB)
}

func TestBuilder_Build_NoSigner(t *testing.T) {
	_, err := NewBuilder("", testEmail, nil).Build("aud")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrKeySigning)
}

type recordingSigner struct {
	got *Claims
}

func (s *recordingSigner) Sign(claims *Claims) (SignedAssertion, error) {
	s.got = claims
	return "h.p.s", nil
}

func TestBuilder_Build_CustomSigner(t *testing.T) {
	signer := &recordingSigner{}
	b := NewBuilder("", testEmail, signer)

	assertion, err := b.Build("aud")
	require.NoError(t, err)
	assert.Equal(t, SignedAssertion("h.p.s"), assertion)
	require.NotNil(t, signer.got)
	assert.Equal(t, "aud", signer.got.TargetAudience)
}
