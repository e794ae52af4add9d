package grid

import (
	"context"
	"encoding/base64"
	"errors"

	"gridlink.unit/gridlink/internal/signing"
	"gridlink.unit/gridlink/internal/types"
)

// Enroll registers the unit with the directory and stores the returned
// session token. data is optional free-form metadata sent alongside the
// identity; it is not covered by the signature.
//
// Calling Enroll again replaces the held token. A token held from an
// earlier enrollment is sent along with the request.
func (c *Client) Enroll(ctx context.Context, data any) (string, error) {
	req := types.EnrollmentRequest{
		Identity:  c.Identity(),
		PublicKey: base64.StdEncoding.EncodeToString([]byte(c.PublicKeyPEM())),
		Data:      data,
	}
	sig, err := signing.Sign(req, c.keys)
	if err != nil {
		return "", err
	}
	req.Signature = sig

	var resp types.EnrollmentResponse
	if err := c.post(ctx, "/unit/enroll", req, &resp); err != nil {
		var rce *RemoteCallError
		if errors.As(err, &rce) {
			return "", &EnrollmentError{RemoteCallError: *rce}
		}
		return "", err
	}
	if resp.Token == "" {
		return "", ErrNoToken
	}

	c.setToken(resp.Token)
	c.log.WithField("identity", req.Identity).Info("enrolled")
	return resp.Token, nil
}
