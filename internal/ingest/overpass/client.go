// Package overpass counts OpenStreetMap features with the Overpass API.
package overpass

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/lueurxax/mapcomplete-digest-bot/internal/core/ports"
	"github.com/lueurxax/mapcomplete-digest-bot/internal/platform/httpclient"
)

const timeoutSeconds = 180

type response struct {
	Elements []json.RawMessage `json:"elements"`
}

// Client implements ports.ReportSource.
type Client struct {
	endpoint string
	http     *httpclient.Client
	logger   *zerolog.Logger
}

var _ ports.ReportSource = (*Client)(nil)

// New creates a Client for the interpreter endpoint, e.g. https://overpass-api.de/api/interpreter.
func New(endpoint string, hc *httpclient.Client, logger *zerolog.Logger) *Client {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &Client{endpoint: endpoint, http: hc, logger: logger}
}

// Count runs query, optionally restricted to bbox (e.g. "[bbox:49.4,2.5,51.5,6.4]"), and
// returns the number of returned elements.
func (c *Client) Count(ctx context.Context, query, bbox string) (int, error) {
	q := BuildQuery(query, bbox)

	c.logger.Debug().Str(LogFieldQuery, q).Msg("querying overpass")

	var resp response
	if err := c.http.GetJSON(ctx, c.endpoint+"?data="+url.QueryEscape(q), nil, &resp); err != nil {
		return 0, fmt.Errorf("overpass query: %w", err)
	}

	return len(resp.Elements), nil
}

// BuildQuery wraps a statement list into a JSON query returning the matched elements.
func BuildQuery(query, bbox string) string {
	query = strings.TrimSpace(query)
	if !strings.HasSuffix(query, ";") {
		query += ";"
	}

	return fmt.Sprintf("[out:json][timeout:%d]%s;(%s);out body;", timeoutSeconds, strings.TrimSpace(bbox), query)
}
