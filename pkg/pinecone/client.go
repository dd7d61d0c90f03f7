package pinecone

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/dskvich/pmc-assistant/pkg/domain"
)

const apiVersion = "2024-07"

type Config struct {
	APIKey    string
	IndexHost string
	Namespace string
	RetryMax  int
	Timeout   time.Duration
}

type client struct {
	apiKey    string
	host      string
	namespace string
	hc        *retryablehttp.Client
}

func NewClient(cfg Config) (*client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is empty")
	}
	if cfg.IndexHost == "" {
		return nil, fmt.Errorf("index host is empty")
	}

	host := strings.TrimRight(cfg.IndexHost, "/")
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "https://" + host
	}

	hc := retryablehttp.NewClient()
	hc.RetryMax = cfg.RetryMax
	hc.RetryWaitMin = 200 * time.Millisecond
	hc.RetryWaitMax = 2 * time.Second
	hc.Logger = slog.Default()
	if cfg.Timeout > 0 {
		hc.HTTPClient.Timeout = cfg.Timeout
	}

	return &client{
		apiKey:    cfg.APIKey,
		host:      host,
		namespace: cfg.Namespace,
		hc:        hc,
	}, nil
}

type queryRequest struct {
	Vector          []float32 `json:"vector"`
	TopK            int       `json:"topK"`
	Namespace       string    `json:"namespace,omitempty"`
	IncludeMetadata bool      `json:"includeMetadata"`
}

type queryResponse struct {
	Matches []struct {
		ID       string         `json:"id"`
		Score    float64        `json:"score"`
		Metadata map[string]any `json:"metadata"`
	} `json:"matches"`
}

// Query returns the topK nearest vectors with metadata, in the index's ranking order.
func (c *client) Query(ctx context.Context, vector []float32, topK int) ([]domain.RetrievedMatch, error) {
	var resp queryResponse
	err := c.post(ctx, "/query", queryRequest{
		Vector:          vector,
		TopK:            topK,
		Namespace:       c.namespace,
		IncludeMetadata: true,
	}, &resp)
	if err != nil {
		return nil, err
	}

	matches := make([]domain.RetrievedMatch, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		matches = append(matches, domain.RetrievedMatch{
			ID:       m.ID,
			Score:    m.Score,
			Metadata: decodeMetadata(m.Metadata),
		})
	}
	return matches, nil
}

type vector struct {
	ID       string         `json:"id"`
	Values   []float32      `json:"values"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type upsertRequest struct {
	Vectors   []vector `json:"vectors"`
	Namespace string   `json:"namespace,omitempty"`
}

type upsertResponse struct {
	UpsertedCount int `json:"upsertedCount"`
}

// Upsert stores documents with their vectors; the document text is kept in metadata.
func (c *client) Upsert(ctx context.Context, docs []domain.Document, vectors [][]float32) (int, error) {
	if len(docs) != len(vectors) {
		return 0, fmt.Errorf("upserting: %d documents but %d vectors", len(docs), len(vectors))
	}

	req := upsertRequest{Namespace: c.namespace, Vectors: make([]vector, len(docs))}
	for i, d := range docs {
		req.Vectors[i] = vector{
			ID:       d.ID,
			Values:   vectors[i],
			Metadata: encodeMetadata(d),
		}
	}

	var resp upsertResponse
	if err := c.post(ctx, "/vectors/upsert", req, &resp); err != nil {
		return 0, err
	}
	return resp.UpsertedCount, nil
}

func (c *client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.host+path, payload)
	if err != nil {
		return fmt.Errorf("creating HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", c.apiKey)
	req.Header.Set("X-Pinecone-API-Version", apiVersion)

	resp, err := c.hc.Do(req)
	if err != nil {
		return domain.UpstreamError(ctx, "calling index "+path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("calling index %s: %w: status %d: %s", path, domain.ErrServiceUnavailable, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding index response: %w: %w", domain.ErrServiceUnavailable, err)
	}
	return nil
}

func decodeMetadata(md map[string]any) domain.MatchMetadata {
	out := domain.MatchMetadata{
		Source: stringValue(md["source"]),
		Text:   stringValue(md["text"]),
	}
	if links, ok := md["related_links"].([]any); ok {
		for _, l := range links {
			if s := stringValue(l); s != "" {
				out.RelatedLinks = append(out.RelatedLinks, s)
			}
		}
	}
	return out
}

func encodeMetadata(d domain.Document) map[string]any {
	md := map[string]any{
		"source": d.Metadata.Source,
		"text":   d.Text,
	}
	if len(d.Metadata.RelatedLinks) > 0 {
		md["related_links"] = d.Metadata.RelatedLinks
	}
	return md
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}
