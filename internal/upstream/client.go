// Package upstream is the thin JSON client for the municipal
// infrastructure API. It does no caching and no retries; callers decide
// what to keep when a call fails.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"darayyaconnect/infra-core/internal/infragraph"
)

const defaultTimeout = 10 * time.Second

type Client struct {
	log     zerolog.Logger
	http    *http.Client
	baseURL string
}

type Options struct {
	BaseURL string
	Timeout time.Duration
	// HTTPClient overrides the default client; used by tests.
	HTTPClient *http.Client
}

func New(log zerolog.Logger, opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("upstream base URL is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("invalid upstream base URL: %w", err)
	}

	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}

	return &Client{log: log, http: hc, baseURL: base}, nil
}

// SnapshotResponse is the GET /infrastructure payload.
type SnapshotResponse struct {
	Nodes []infragraph.Node `json:"nodes"`
	Lines []infragraph.Line `json:"lines"`
}

func (c *Client) GetInfrastructure(ctx context.Context) (SnapshotResponse, error) {
	var out SnapshotResponse
	if err := c.do(ctx, http.MethodGet, "/infrastructure", nil, &out); err != nil {
		return SnapshotResponse{}, err
	}
	return out, nil
}

type createNodeRequest struct {
	Type      string                 `json:"type"`
	Latitude  float64                `json:"latitude"`
	Longitude float64                `json:"longitude"`
	Status    infragraph.AssetStatus `json:"status"`
}

func (c *Client) CreateNode(ctx context.Context, typeTag string, lat, lng float64, status infragraph.AssetStatus) (infragraph.Node, error) {
	body := createNodeRequest{Type: typeTag, Latitude: lat, Longitude: lng, Status: status}
	var out infragraph.Node
	if err := c.do(ctx, http.MethodPost, "/infrastructure/nodes", body, &out); err != nil {
		return infragraph.Node{}, err
	}
	return out, nil
}

type createLineRequest struct {
	Type        string                 `json:"type"`
	Coordinates []infragraph.LngLat    `json:"coordinates"`
	Status      infragraph.AssetStatus `json:"status"`
}

func (c *Client) CreateLine(ctx context.Context, typeTag string, coords []infragraph.LngLat, status infragraph.AssetStatus) (infragraph.Line, error) {
	body := createLineRequest{Type: typeTag, Coordinates: coords, Status: status}
	var out infragraph.Line
	if err := c.do(ctx, http.MethodPost, "/infrastructure/lines", body, &out); err != nil {
		return infragraph.Line{}, err
	}
	return out, nil
}

// UpdateFields is the partial-update body; nil fields are omitted.
type UpdateFields struct {
	SerialNumber *string                 `json:"serial_number,omitempty"`
	Status       *infragraph.AssetStatus `json:"status,omitempty"`
	Meta         map[string]any          `json:"meta,omitempty"`
}

// UpdatedAsset carries whichever shape the server returned.
type UpdatedAsset struct {
	Node *infragraph.Node
	Line *infragraph.Line
}

func (c *Client) UpdateAsset(ctx context.Context, kind infragraph.AssetKind, id int64, fields UpdateFields) (UpdatedAsset, error) {
	path := fmt.Sprintf("/infrastructure/%ss/%s/update", kind, infragraph.FormatAssetID(id))
	switch kind {
	case infragraph.KindNode:
		var n infragraph.Node
		if err := c.doWithNotFound(ctx, http.MethodPut, path, fields, &n, kind, id); err != nil {
			return UpdatedAsset{}, err
		}
		return UpdatedAsset{Node: &n}, nil
	case infragraph.KindLine:
		var l infragraph.Line
		if err := c.doWithNotFound(ctx, http.MethodPut, path, fields, &l, kind, id); err != nil {
			return UpdatedAsset{}, err
		}
		return UpdatedAsset{Line: &l}, nil
	}
	return UpdatedAsset{}, &infragraph.ValidationError{Field: "kind", Reason: fmt.Sprintf("unknown asset kind %q", kind)}
}

// DeleteAsset is idempotent: the server answers 2xx even when the id is
// already absent, and a 404 is treated the same way here to tolerate
// older deployments.
func (c *Client) DeleteAsset(ctx context.Context, kind infragraph.AssetKind, id int64) error {
	path := fmt.Sprintf("/infrastructure/%ss/%s", kind, infragraph.FormatAssetID(id))
	err := c.do(ctx, http.MethodDelete, path, nil, nil)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && se.code == http.StatusNotFound {
			return nil
		}
		return err
	}
	return nil
}

func (c *Client) StatusHeatmap(ctx context.Context, sector infragraph.Sector, date time.Time) ([]infragraph.ZoneStatus, error) {
	path := fmt.Sprintf("/infrastructure/status-heatmap?type=%s&date=%s",
		url.QueryEscape(string(sector)), date.Format("2006-01-02"))
	var out []infragraph.ZoneStatus
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) PopulationHeatmap(ctx context.Context, date time.Time) ([]infragraph.HeatPoint, error) {
	path := "/analytics/heatmap?date=" + date.Format("2006-01-02")
	var out []infragraph.HeatPoint
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) PublicReports(ctx context.Context) ([]infragraph.StatusReport, error) {
	var out []infragraph.StatusReport
	if err := c.do(ctx, http.MethodGet, "/infrastructure/public-reports", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// statusError is an internal marker for non-2xx responses; it is always
// wrapped in a TransportError (or mapped to NotFoundError) before leaving
// the package.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.code, e.body)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	op := method + " " + path

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return &infragraph.TransportError{Op: op, Err: err}
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &infragraph.TransportError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-ID", uuid.NewString())

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return &infragraph.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(started)).
		Msg("upstream call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Bounded read keeps error payloads out of memory trouble.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &infragraph.TransportError{Op: op, Err: &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(snippet))}}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &infragraph.TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// doWithNotFound maps an upstream 404 to NotFoundError instead of
// TransportError; update paths need the distinction, delete does not.
func (c *Client) doWithNotFound(ctx context.Context, method, path string, body, out any, kind infragraph.AssetKind, id int64) error {
	err := c.do(ctx, method, path, body, out)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && se.code == http.StatusNotFound {
			return &infragraph.NotFoundError{Kind: kind, ID: id}
		}
	}
	return err
}
