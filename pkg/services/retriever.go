package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dskvich/pmc-assistant/pkg/domain"
)

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type VectorIndex interface {
	Query(ctx context.Context, vector []float32, topK int) ([]domain.RetrievedMatch, error)
}

type retriever struct {
	embedder     Embedder
	index        VectorIndex
	embedTimeout time.Duration
	queryTimeout time.Duration
}

func NewRetriever(embedder Embedder, index VectorIndex, embedTimeout, queryTimeout time.Duration) *retriever {
	return &retriever{
		embedder:     embedder,
		index:        index,
		embedTimeout: embedTimeout,
		queryTimeout: queryTimeout,
	}
}

// Retrieve embeds the query and returns the index's topK matches without re-ranking.
func (r *retriever) Retrieve(ctx context.Context, query string, topK int) ([]domain.RetrievedMatch, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.ErrEmptyQuery
	}
	if topK <= 0 {
		return nil, fmt.Errorf("invalid topK %d", topK)
	}

	vector, err := r.embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	matches, err := r.query(ctx, vector, topK)
	if err != nil {
		return nil, fmt.Errorf("querying index: %w", err)
	}

	slog.DebugContext(ctx, "Retrieved matches", "count", len(matches), "topK", topK)
	return matches, nil
}

func (r *retriever) embed(ctx context.Context, query string) ([]float32, error) {
	ctx, cancel := withDeadline(ctx, r.embedTimeout)
	defer cancel()

	start := time.Now()
	vector, err := r.embedder.Embed(ctx, query)
	observe("embed", start, err)
	return vector, err
}

func (r *retriever) query(ctx context.Context, vector []float32, topK int) ([]domain.RetrievedMatch, error) {
	ctx, cancel := withDeadline(ctx, r.queryTimeout)
	defer cancel()

	start := time.Now()
	matches, err := r.index.Query(ctx, vector, topK)
	observe("index_query", start, err)
	return matches, err
}
