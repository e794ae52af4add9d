// Package unit assembles a grid client from configuration. The daemon and
// gridctl share it so both derive the same identity from the same settings.
package unit

import (
	"fmt"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/sirupsen/logrus"

	"gridlink.unit/gridlink/internal/config"
	"gridlink.unit/gridlink/internal/grid"
	"gridlink.unit/gridlink/internal/identity"
	"gridlink.unit/gridlink/internal/metrics"
	"gridlink.unit/gridlink/internal/types"
)

// Open loads or creates the key named by cfg and returns a client for it.
// Directory calls are instrumented when m is not nil.
func Open(cfg *config.Config, log *logrus.Entry, m *metrics.Metrics) (*grid.Client, error) {
	keys, err := identity.LoadOrCreate(cfg.KeyFile, identity.WithTextForm(cfg.TextForm()))
	if err != nil {
		return nil, fmt.Errorf("load key %s: %w", cfg.KeyFile, err)
	}

	hc := cleanhttp.DefaultPooledClient()
	if m != nil {
		hc = m.InstrumentClient(hc)
	}
	return grid.New(keys,
		grid.WithName(cfg.Name),
		grid.WithEndpoint(cfg.Endpoint),
		grid.WithHTTPClient(hc),
		grid.WithLogger(log),
	), nil
}

// EnrollmentData is the metadata sent alongside the identity.
func EnrollmentData() map[string]any {
	return map[string]any{
		"version": types.Version,
		"build":   types.BuildTime,
	}
}
