package iap

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// KeyMaterial is the part of a service account credential needed to sign an
// assertion.
type KeyMaterial struct {
	// PrivateKey is the PEM-encoded RSA private key (PKCS#8).
	PrivateKey []byte

	// ClientEmail is the service account identity used as iss and sub.
	ClientEmail string
}

// serviceAccountFile mirrors the fields we read from a service account key file.
// Everything else in the file is ignored.
type serviceAccountFile struct {
	PrivateKey  string `json:"private_key"`
	ClientEmail string `json:"client_email"`
}

// ParseKeyMaterial extracts KeyMaterial from service account JSON.
func ParseKeyMaterial(data []byte) (*KeyMaterial, error) {
	var f serviceAccountFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, WrapError(ErrCodeCredentialLoad, "credentials are not valid JSON", err)
	}

	if f.PrivateKey == "" {
		return nil, NewError(ErrCodeCredentialLoad, "credentials missing private_key")
	}
	if f.ClientEmail == "" {
		return nil, NewError(ErrCodeCredentialLoad, "credentials missing client_email")
	}

	return &KeyMaterial{
		PrivateKey:  []byte(f.PrivateKey),
		ClientEmail: f.ClientEmail,
	}, nil
}

// LoadKeyMaterial reads r to the end and parses it.
func LoadKeyMaterial(r io.Reader) (*KeyMaterial, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, WrapError(ErrCodeCredentialLoad, "failed to read credentials", err)
	}
	return ParseKeyMaterial(data)
}

// LoadKeyMaterialFile reads and parses the credential file at path.
func LoadKeyMaterialFile(path string) (*KeyMaterial, error) {
	if path == "" {
		return nil, NewError(ErrCodeCredentialLoad, "credentials file is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, WrapError(ErrCodeCredentialLoad, fmt.Sprintf("failed to read %s", path), err)
	}
	return ParseKeyMaterial(data)
}
