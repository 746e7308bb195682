// Package client fetches flags from the flag service over HTTP. All fetch
// paths fail open: a flag that cannot be resolved reads as disabled, so a
// flag-service outage never becomes a chaos event of its own.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/joseaugf/cop320-cw/pkg/flags"
	"github.com/joseaugf/cop320-cw/pkg/log"
	"github.com/joseaugf/cop320-cw/pkg/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// FetchTimeout bounds every call to the flag service. On expiry the flag
// reads as absent rather than blocking the business request.
const FetchTimeout = 2000 * time.Millisecond

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: FetchTimeout},
	}
}

// GetFlag resolves a single flag, or nil when the flag is unknown or the
// service cannot be reached in time.
func (c *Client) GetFlag(ctx context.Context, name string) *flags.FeatureFlag {
	ctx, span := otel.Tracer(telemetry.TracerName).Start(ctx, "feature_flag.get_flag")
	defer span.End()
	span.SetAttributes(attribute.String("flag.name", name))

	url := fmt.Sprintf("%s/api/flags/%s", c.baseURL, name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		log.Errorf("unable to build flag request for '%v': %v", name, err)
		return nil
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.SetAttributes(attribute.Bool("error", true))
		log.Warnf("unable to fetch flag '%v', treating as disabled: %v", name, err)
		return nil
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var flag flags.FeatureFlag
		if err := json.NewDecoder(resp.Body).Decode(&flag); err != nil {
			span.SetAttributes(attribute.Bool("error", true))
			log.Warnf("unable to decode flag '%v', treating as disabled: %v", name, err)
			return nil
		}
		span.SetAttributes(attribute.Bool("flag.enabled", flag.Enabled))
		return &flag
	case http.StatusNotFound:
		log.Warnf("flag '%v' not found", name)
		return nil
	default:
		span.SetAttributes(attribute.Bool("error", true))
		log.Errorf("unexpected status %v fetching flag '%v'", resp.StatusCode, name)
		return nil
	}
}

// IsFlagEnabled reports whether the flag resolves as enabled.
func (c *Client) IsFlagEnabled(ctx context.Context, name string) bool {
	flag := c.GetFlag(ctx, name)
	return flag != nil && flag.Enabled
}

// GetFlagConfig returns the flag's config, or an empty map when the flag is
// absent so consumers can apply their defaults uniformly.
func (c *Client) GetFlagConfig(ctx context.Context, name string) flags.FlagConfig {
	flag := c.GetFlag(ctx, name)
	if flag == nil || flag.Config == nil {
		return flags.FlagConfig{}
	}
	return flag.Config
}
