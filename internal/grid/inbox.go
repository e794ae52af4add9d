package grid

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"gridlink.unit/gridlink/internal/signing"
	"gridlink.unit/gridlink/internal/types"
)

// Inbox returns one page of the unit's mailbox.
func (c *Client) Inbox(ctx context.Context, page int) (*types.MessagesPage, error) {
	if err := c.requireSession(); err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	var out types.MessagesPage
	if err := c.get(ctx, "/unit/inbox?p="+strconv.Itoa(page), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Message fetches a single mailbox entry.
func (c *Client) Message(ctx context.Context, id int) (*types.Message, error) {
	if err := c.requireSession(); err != nil {
		return nil, err
	}
	var out types.Message
	if err := c.get(ctx, "/unit/inbox/"+strconv.Itoa(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Mark moves a message to the given state.
func (c *Client) Mark(ctx context.Context, id int, mark types.Mark) (json.RawMessage, error) {
	if err := c.requireSession(); err != nil {
		return nil, err
	}
	if !mark.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMark, mark)
	}
	var out json.RawMessage
	if err := c.get(ctx, fmt.Sprintf("/unit/inbox/%d/%s", id, mark), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Send posts a message to the unit with the given fingerprint. The
// signature always covers plaintext. The body is sealed for the recipient
// when a Sealer is configured, otherwise a fixed placeholder is sent.
func (c *Client) Send(ctx context.Context, fingerprint string, plaintext []byte) (json.RawMessage, error) {
	if err := c.requireSession(); err != nil {
		return nil, err
	}

	sig, err := signing.Sign(plaintext, c.keys)
	if err != nil {
		return nil, err
	}

	data := PlaceholderPayload
	if c.sealer != nil {
		recipient, err := c.Unit(ctx, fingerprint)
		if err != nil {
			return nil, fmt.Errorf("failed to look up recipient %s: %w", fingerprint, err)
		}
		data, err = c.sealer.Seal(plaintext, recipient.PublicKey)
		if err != nil {
			return nil, fmt.Errorf("failed to seal message for %s: %w", fingerprint, err)
		}
	}

	body := types.OutboundMessage{Data: data, Signature: sig}
	var out json.RawMessage
	if err := c.post(ctx, "/unit/"+url.PathEscape(fingerprint)+"/inbox", body, &out); err != nil {
		return nil, err
	}
	return out, nil
}
