// Package identity manages unit keypairs and the identity derived from them.
// Each gridlink unit holds an RSA private key; the public half, serialized as
// SPKI PEM, is hashed into the unit fingerprint and the "<name>@<fingerprint>"
// identity the directory knows the unit by.
package identity

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
)

var (
	ErrKeyFormat = errors.New("invalid private key")
	ErrKeygen    = errors.New("key generation failed")
	ErrSigning   = errors.New("signing failed")
)

// TextForm selects the public key text that fingerprints are computed over.
type TextForm int

const (
	// FormPEM hashes the SPKI PEM export.
	FormPEM TextForm = iota
	// FormLegacyObject hashes the string the first JavaScript client produced
	// when it stringified its key object. Every key shares this text, so only
	// use it to keep identities that client already enrolled.
	FormLegacyObject
)

const legacyObjectText = "[object Object]"

// ParseTextForm maps a config value onto a TextForm.
func ParseTextForm(s string) (TextForm, error) {
	switch s {
	case "", "pem":
		return FormPEM, nil
	case "legacy":
		return FormLegacyObject, nil
	default:
		return FormPEM, fmt.Errorf("unknown identity form %q", s)
	}
}

func (f TextForm) String() string {
	if f == FormLegacyObject {
		return "legacy"
	}
	return "pem"
}

// Option configures a KeyMaterial.
type Option func(*KeyMaterial)

// WithTextForm sets the text form used by PublicKeyText.
func WithTextForm(f TextForm) Option {
	return func(k *KeyMaterial) {
		k.form = f
	}
}

// KeyMaterial represents a unit's RSA keypair. It is immutable once built.
type KeyMaterial struct {
	privateKey   *rsa.PrivateKey
	publicKey    *rsa.PublicKey
	publicKeyPEM string
	form         TextForm
}

func newKeyMaterial(priv *rsa.PrivateKey, opts []Option) (*KeyMaterial, error) {
	der, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal public key: %v", ErrKeyFormat, err)
	}
	k := &KeyMaterial{
		privateKey:   priv,
		publicKey:    &priv.PublicKey,
		publicKeyPEM: string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})),
	}
	for _, opt := range opts {
		opt(k)
	}
	return k, nil
}

// ExportPublicKey returns the public key as SPKI PEM text.
func (k *KeyMaterial) ExportPublicKey() string {
	return k.publicKeyPEM
}

// PublicKey returns the parsed public key.
func (k *KeyMaterial) PublicKey() *rsa.PublicKey {
	return k.publicKey
}

// PublicKeyText returns the exact text the fingerprint is computed over.
func (k *KeyMaterial) PublicKeyText() string {
	if k.form == FormLegacyObject {
		return legacyObjectText
	}
	return k.publicKeyPEM
}

// Fingerprint returns the hex SHA-256 of PublicKeyText.
func (k *KeyMaterial) Fingerprint() string {
	return Fingerprint(k.PublicKeyText())
}

// Identity returns "<name>@<fingerprint>". It is recomputed on every call.
func (k *KeyMaterial) Identity(name string) string {
	return IdentityOf(name, k.PublicKeyText())
}

// Sign returns a base64 RSASSA-PSS signature over sha256(payload).
func (k *KeyMaterial) Sign(payload []byte) (string, error) {
	if k == nil || k.privateKey == nil {
		return "", fmt.Errorf("%w: no private key", ErrSigning)
	}
	digest := sha256.Sum256(payload)
	sig, err := rsa.SignPSS(rand.Reader, k.privateKey, crypto.SHA256, digest[:], &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthAuto,
		Hash:       crypto.SHA256,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSigning, err)
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

// Verify checks a base64 signature produced by Sign against this keypair.
func (k *KeyMaterial) Verify(payload []byte, signature string) error {
	sig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("decode signature: %w", err)
	}
	digest := sha256.Sum256(payload)
	return rsa.VerifyPSS(k.publicKey, crypto.SHA256, digest[:], sig, &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthAuto,
		Hash:       crypto.SHA256,
	})
}

// String never includes key material.
func (k *KeyMaterial) String() string {
	return fmt.Sprintf("KeyMaterial{rsa-%d, fingerprint=%s}", k.publicKey.N.BitLen(), k.Fingerprint())
}
