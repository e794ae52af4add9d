package grid

import (
	"context"
	"net/url"
	"strconv"

	"gridlink.unit/gridlink/internal/types"
)

// Units returns one page of enrolled units. Pages start at 1.
func (c *Client) Units(ctx context.Context, page int) (*types.UnitsPage, error) {
	if page < 1 {
		page = 1
	}
	var out types.UnitsPage
	if err := c.get(ctx, "/units?p="+strconv.Itoa(page), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UnitsByCountry returns the per-country unit counts.
func (c *Client) UnitsByCountry(ctx context.Context) ([]types.CountryCount, error) {
	var out []types.CountryCount
	if err := c.get(ctx, "/units/by_country", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Unit looks up a single unit by fingerprint.
func (c *Client) Unit(ctx context.Context, fingerprint string) (*types.Unit, error) {
	var out types.Unit
	if err := c.get(ctx, "/unit/"+url.PathEscape(fingerprint), &out); err != nil {
		return nil, err
	}
	return &out, nil
}
