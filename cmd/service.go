package main

import (
	"time"

	"github.com/sells-group/funnel-cli/internal/funnel"
	"github.com/sells-group/funnel-cli/internal/resilience"
	"github.com/sells-group/funnel-cli/pkg/hubspot"
)

// newFunnelService wires the HubSpot client and fetch service from config.
// Callers must have run cfg.Validate() first.
func newFunnelService() (*funnel.Service, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	client := hubspot.NewClient(cfg.HubSpot.Token,
		hubspot.WithBaseURL(cfg.HubSpot.BaseURL),
		hubspot.WithRateLimit(cfg.HubSpot.RateLimit),
	)

	retry := resilience.DefaultRetryConfig()
	if cfg.Fetch.MaxRetries > 0 {
		retry.MaxAttempts = cfg.Fetch.MaxRetries
	}
	if cfg.Fetch.InitialBackoffSecs > 0 {
		retry.InitialBackoff = time.Duration(cfg.Fetch.InitialBackoffSecs) * time.Second
	}

	return funnel.NewService(client, loc,
		funnel.WithPageDelay(cfg.PageDelay()),
		funnel.WithRetryConfig(retry),
	), nil
}
