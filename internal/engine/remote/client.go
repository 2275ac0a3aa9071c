// Package remote talks to a clustering sidecar over HTTP.
//
// The sidecar wraps a numerical library and exposes the same capability the
// native engine offers: a matrix (or precomputed distances) and a parameter
// set in, one label per row out.
package remote

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

	"gonum.org/v1/gonum/mat"

	"github.com/yildizm/feedcluster/internal/cluster"
	"github.com/yildizm/feedcluster/internal/logger"
	"github.com/yildizm/feedcluster/internal/matrix"
)

// Config configures the sidecar client
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Error is a failed sidecar call
type Error struct {
	Endpoint   string
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("clustering service %s: %s", e.Endpoint, e.Message)
	}
	return fmt.Sprintf("clustering service %s: HTTP %d: %s", e.Endpoint, e.StatusCode, e.Message)
}

// IsRemoteError reports whether err came from the sidecar
func IsRemoteError(err error) bool {
	var target *Error
	return errors.As(err, &target)
}

// Client implements cluster.Backend against the sidecar
type Client struct {
	baseURL *url.URL
	http    *http.Client
	log     *logger.Logger
}

// New validates cfg and creates a client. log may be nil.
func New(cfg Config, log *logger.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("clustering service URL is required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid clustering service URL %q", cfg.BaseURL)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &Client{
		baseURL: base,
		http:    &http.Client{Timeout: timeout},
		log:     log.WithComponent("remote"),
	}, nil
}

// Name implements cluster.Backend
func (c *Client) Name() string { return "remote" }

// Health checks that the sidecar is up
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/health"), nil)
	if err != nil {
		return nil, err
	}
	var out HealthResponse
	if err := c.do(req, "/health", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DBSCAN implements cluster.Backend
func (c *Client) DBSCAN(ctx context.Context, in cluster.Input, p cluster.DBSCANParams) ([]int, error) {
	return c.fit(ctx, cluster.DBSCAN, p, in)
}

// HDBSCAN implements cluster.Backend
func (c *Client) HDBSCAN(ctx context.Context, m *matrix.Matrix, p cluster.HDBSCANParams) ([]int, error) {
	return c.fit(ctx, cluster.HDBSCAN, p, cluster.Input{Points: m})
}

// Agglomerative implements cluster.Backend
func (c *Client) Agglomerative(ctx context.Context, in cluster.Input, p cluster.AgglomerativeParams) ([]int, error) {
	return c.fit(ctx, cluster.Agglomerative, p, in)
}

// KMeans implements cluster.Backend
func (c *Client) KMeans(ctx context.Context, m *matrix.Matrix, p cluster.KMeansParams) ([]int, error) {
	return c.fit(ctx, cluster.KMeans, p, cluster.Input{Points: m})
}

// Reduce implements cluster.Backend
func (c *Client) Reduce(ctx context.Context, m *matrix.Matrix, p cluster.ReduceParams) (*matrix.Matrix, error) {
	body := ReduceRequest{Method: "umap", Params: p, Features: rowsOf(m.Dense())}
	var out ReduceResponse
	if err := c.post(ctx, "/reduce", body, &out); err != nil {
		return nil, err
	}
	if out.Error != "" {
		return nil, &Error{Endpoint: "/reduce", Message: out.Error}
	}
	reduced, err := matrix.FromRows(out.Embedding)
	if err != nil {
		return nil, &Error{Endpoint: "/reduce", Message: "malformed embedding: " + err.Error()}
	}
	return reduced, nil
}

func (c *Client) fit(ctx context.Context, algo cluster.Algorithm, params cluster.Params, in cluster.Input) ([]int, error) {
	body := FitRequest{Algorithm: string(algo), Params: params}
	if in.Distances != nil {
		body.Distances = rowsOf(in.Distances)
	} else {
		body.Features = rowsOf(in.Points.Dense())
	}

	start := time.Now()
	var out FitResponse
	if err := c.post(ctx, "/fit_predict", body, &out); err != nil {
		return nil, err
	}
	if out.Error != "" {
		return nil, &Error{Endpoint: "/fit_predict", Message: out.Error}
	}
	c.log.DebugWithFields("fit_predict done", []logger.Field{
		logger.F("algorithm", algo),
		logger.Count(len(out.Labels)),
		logger.Duration(time.Since(start)),
	})
	return out.Labels, nil
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, path, out)
}

func (c *Client) do(req *http.Request, path string, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Endpoint: path, Message: err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &Error{Endpoint: path, StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(b))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Endpoint: path, Message: "failed to decode response: " + err.Error()}
	}
	return nil
}

func (c *Client) endpoint(path string) string {
	return c.baseURL.JoinPath(path).String()
}

func rowsOf(m mat.Matrix) [][]float64 {
	r, _ := m.Dims()
	out := make([][]float64, r)
	for i := range out {
		out[i] = mat.Row(nil, i, m)
	}
	return out
}
