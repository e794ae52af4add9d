// Package identity handles loading, generating, and persisting unit RSA
// keypairs, and derives the unit identity from the public key text.
package identity

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"io"
	"os"
)

// KeyBits is the modulus size of freshly generated keys.
const KeyBits = 2048

// GeneratedKey holds a freshly generated keypair in PEM form.
type GeneratedKey struct {
	PrivateKeyPEM string // PKCS#8
	PublicKeyPEM  string // SPKI
}

// IdentityOf returns name + "@" + hex(sha256(publicKeyText)).
// The hash covers the literal text; callers must not re-encode it first.
func IdentityOf(name, publicKeyText string) string {
	return name + "@" + Fingerprint(publicKeyText)
}

// Fingerprint returns the hex SHA-256 of the public key text.
func Fingerprint(publicKeyText string) string {
	sum := sha256.Sum256([]byte(publicKeyText))
	return hex.EncodeToString(sum[:])
}

// FromPEM parses a PKCS#8 or PKCS#1 PEM-encoded RSA private key.
func FromPEM(text string, opts ...Option) (*KeyMaterial, error) {
	block, _ := pem.Decode([]byte(text))
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block found", ErrKeyFormat)
	}

	var priv *rsa.PrivateKey
	switch block.Type {
	case "PRIVATE KEY":
		generic, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrKeyFormat, err)
		}
		rsaKey, ok := generic.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%w: key is not an RSA private key", ErrKeyFormat)
		}
		priv = rsaKey
	case "RSA PRIVATE KEY":
		rsaKey, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrKeyFormat, err)
		}
		priv = rsaKey
	default:
		return nil, fmt.Errorf("%w: unexpected PEM block %q", ErrKeyFormat, block.Type)
	}

	return newKeyMaterial(priv, opts)
}

// FromPrivateKey wraps an already parsed RSA private key.
func FromPrivateKey(priv *rsa.PrivateKey, opts ...Option) (*KeyMaterial, error) {
	if priv == nil {
		return nil, fmt.Errorf("%w: nil private key", ErrKeyFormat)
	}
	return newKeyMaterial(priv, opts)
}

// Generate creates a new 2048-bit RSA keypair. A nil reader uses crypto/rand.
func Generate(random io.Reader) (*GeneratedKey, error) {
	if random == nil {
		random = rand.Reader
	}
	priv, err := rsa.GenerateKey(random, KeyBits)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeygen, err)
	}

	privDER, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal private key: %v", ErrKeygen, err)
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal public key: %v", ErrKeygen, err)
	}

	return &GeneratedKey{
		PrivateKeyPEM: string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER})),
		PublicKeyPEM:  string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})),
	}, nil
}

// LoadOrCreate loads the key at keyPath, generating and saving a new one
// when the file is missing or empty. Key files are written with 0600
// permissions.
func LoadOrCreate(keyPath string, opts ...Option) (*KeyMaterial, error) {
	info, err := os.Stat(keyPath)
	if os.IsNotExist(err) || (err == nil && info.Size() == 0) {
		return generateAndSave(keyPath, opts)
	}
	if err != nil {
		return nil, err
	}
	return Load(keyPath, opts...)
}

// Load reads the key at keyPath. Unlike LoadOrCreate it never writes; a
// missing file is reported as an error wrapping os.ErrNotExist.
func Load(keyPath string, opts ...Option) (*KeyMaterial, error) {
	data, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, err
	}
	return FromPEM(string(data), opts...)
}

func generateAndSave(keyPath string, opts []Option) (*KeyMaterial, error) {
	key, err := Generate(nil)
	if err != nil {
		return nil, err
	}
	if err := WritePrivateKey(keyPath, key.PrivateKeyPEM); err != nil {
		return nil, err
	}
	return FromPEM(key.PrivateKeyPEM, opts...)
}

// WritePrivateKey writes PEM text to path with 0600 permissions.
func WritePrivateKey(path, privateKeyPEM string) error {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(file, privateKeyPEM); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
