package iap

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/go-jose/go-jose/v4"
)

// SignedAssertion is a compact JWS over a claim set. It is produced once and
// presented once.
type SignedAssertion string

// Signer turns a claim set into a SignedAssertion.
type Signer interface {
	Sign(claims *Claims) (SignedAssertion, error)
}

// RSASigner signs claims with RS256 using an in-memory RSA key.
type RSASigner struct {
	signer jose.Signer
}

// NewRSASigner decodes a PEM private key and prepares an RS256 signer.
// PKCS#8 is expected; PKCS#1 is accepted as well.
func NewRSASigner(pemKey []byte) (*RSASigner, error) {
	key, err := parseRSAPrivateKey(pemKey)
	if err != nil {
		return nil, WrapError(ErrCodeKeySigning, "failed to decode private key", err)
	}

	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.RS256, Key: key},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return nil, WrapError(ErrCodeKeySigning, "failed to create signer", err)
	}

	return &RSASigner{signer: signer}, nil
}

// Sign marshals the claims and returns the compact serialization.
func (s *RSASigner) Sign(claims *Claims) (SignedAssertion, error) {
	payload, err := json.Marshal(claims)
	if err != nil {
		return "", WrapError(ErrCodeKeySigning, "failed to marshal claims", err)
	}

	jwsObj, err := s.signer.Sign(payload)
	if err != nil {
		return "", WrapError(ErrCodeKeySigning, "failed to sign payload", err)
	}

	token, err := jwsObj.CompactSerialize()
	if err != nil {
		return "", WrapError(ErrCodeKeySigning, "failed to serialize JWS", err)
	}

	return SignedAssertion(token), nil
}

func parseRSAPrivateKey(pemKey []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemKey)
	if block == nil {
		return nil, errors.New("no PEM block found")
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		rsaKey, pkcs1Err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if pkcs1Err != nil {
			return nil, fmt.Errorf("parse PKCS#8 key: %w", err)
		}
		return rsaKey, nil
	}

	rsaKey, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("private key is %T, not RSA", parsed)
	}
	return rsaKey, nil
}
