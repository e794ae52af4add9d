package grid

import (
	"context"
	"encoding/json"

	"gridlink.unit/gridlink/internal/types"
)

// ReportAP reports a single access point sighting.
func (c *Client) ReportAP(ctx context.Context, ap types.AccessPoint) (json.RawMessage, error) {
	if err := c.requireSession(); err != nil {
		return nil, err
	}
	var out json.RawMessage
	if err := c.post(ctx, "/unit/report/ap", ap, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ReportAPs reports a batch of sightings in one request.
func (c *Client) ReportAPs(ctx context.Context, aps []types.AccessPoint) (json.RawMessage, error) {
	if err := c.requireSession(); err != nil {
		return nil, err
	}
	if aps == nil {
		aps = []types.AccessPoint{}
	}
	var out json.RawMessage
	if err := c.post(ctx, "/unit/report/aps", aps, &out); err != nil {
		return nil, err
	}
	return out, nil
}
