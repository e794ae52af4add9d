// Package signing turns outbound values into the exact bytes a unit signs.
//
// Enrollment signs only the identity string, never the full request body.
// Messages sign the plaintext body, never the encrypted envelope. The
// directory verifies against these inputs, so they must not drift.
package signing

import (
	"errors"
	"fmt"

	"gridlink.unit/gridlink/internal/types"
)

var ErrUnsupported = errors.New("value cannot be canonicalized for signing")

// Signer produces a base64 signature over payload.
type Signer interface {
	Sign(payload []byte) (string, error)
}

// Canonicalize returns the signing input for v.
func Canonicalize(v any) ([]byte, error) {
	switch val := v.(type) {
	case string:
		return []byte(val), nil
	case []byte:
		return val, nil
	case types.EnrollmentRequest:
		return []byte(val.Identity), nil
	case *types.EnrollmentRequest:
		if val == nil {
			return nil, fmt.Errorf("%w: nil enrollment request", ErrUnsupported)
		}
		return []byte(val.Identity), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupported, v)
	}
}

// Sign canonicalizes v and signs the result with s.
func Sign(v any, s Signer) (string, error) {
	payload, err := Canonicalize(v)
	if err != nil {
		return "", err
	}
	return s.Sign(payload)
}
