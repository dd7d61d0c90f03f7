package ingest

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"

	"github.com/samber/lo"

	"github.com/dskvich/pmc-assistant/pkg/domain"
	"github.com/dskvich/pmc-assistant/pkg/logger"
)

const (
	maxTextRunes     = 2000
	defaultBatchSize = 100
	basicPageMarker  = "api/basic-page/"
)

type Fetcher interface {
	FetchJSON(ctx context.Context, url string) (any, error)
}

type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

type Upserter interface {
	Upsert(ctx context.Context, docs []domain.Document, vectors [][]float32) (int, error)
}

type FrontendResolver interface {
	FrontendURL(apiURL string) (string, bool)
}

type Stats struct {
	URLs      int
	Documents int
	Links     int
	Failed    int
	Upserted  int
}

type indexer struct {
	fetcher   Fetcher
	embedder  BatchEmbedder
	index     Upserter
	resolver  FrontendResolver
	siteURL   string
	batchSize int
}

func NewIndexer(fetcher Fetcher, embedder BatchEmbedder, index Upserter, resolver FrontendResolver, siteURL string) *indexer {
	return &indexer{
		fetcher:   fetcher,
		embedder:  embedder,
		index:     index,
		resolver:  resolver,
		siteURL:   siteURL,
		batchSize: defaultBatchSize,
	}
}

// Run fetches every URL, embeds the extracted documents and upserts them in
// batches. Documents that cannot be fetched or embedded are counted and skipped.
func (x *indexer) Run(ctx context.Context, urls []string) (Stats, error) {
	stats := Stats{URLs: len(urls)}

	var docs []domain.Document
	for _, url := range urls {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		doc, err := x.load(ctx, url)
		if err != nil {
			stats.Failed++
			slog.WarnContext(ctx, "Skipping document", "url", url, logger.Err(err))
			continue
		}
		stats.Links += len(doc.Metadata.RelatedLinks)
		docs = append(docs, doc)
	}
	stats.Documents = len(docs)

	slog.InfoContext(ctx, "Loaded documents", "documents", stats.Documents, "urls", stats.URLs, "links", stats.Links)

	for _, batch := range lo.Chunk(docs, x.batchSize) {
		embedded, vectors, failed := x.embed(ctx, batch)
		stats.Failed += failed
		if len(embedded) == 0 {
			continue
		}

		n, err := x.index.Upsert(ctx, embedded, vectors)
		if err != nil {
			return stats, fmt.Errorf("upserting batch: %w", err)
		}
		stats.Upserted += n
	}

	slog.InfoContext(ctx, "Ingestion finished", "upserted", stats.Upserted, "failed", stats.Failed)
	return stats, nil
}

func (x *indexer) load(ctx context.Context, url string) (domain.Document, error) {
	data, err := x.fetcher.FetchJSON(ctx, url)
	if err != nil {
		return domain.Document{}, err
	}

	text, links := ExtractTextAndLinks(data)
	if strings.TrimSpace(text) == "" {
		return domain.Document{}, fmt.Errorf("no text in %s", url)
	}

	sum := md5.Sum([]byte(url))
	return domain.Document{
		ID:   hex.EncodeToString(sum[:]),
		Text: truncateRunes(text, maxTextRunes),
		Metadata: domain.MatchMetadata{
			Source:       x.PublicURL(url),
			RelatedLinks: links,
		},
	}, nil
}

// embed embeds a batch in one call and falls back to one call per document
// when the batch is rejected.
func (x *indexer) embed(ctx context.Context, batch []domain.Document) ([]domain.Document, [][]float32, int) {
	texts := lo.Map(batch, func(d domain.Document, _ int) string { return d.Text })

	vectors, err := x.embedder.EmbedBatch(ctx, texts)
	if err == nil {
		return batch, vectors, 0
	}
	slog.WarnContext(ctx, "Batch embedding failed, embedding one by one", "size", len(batch), logger.Err(err))

	var (
		docs   []domain.Document
		vecs   [][]float32
		failed int
	)
	for _, d := range batch {
		v, err := x.embedder.EmbedBatch(ctx, []string{d.Text})
		if err != nil {
			failed++
			slog.WarnContext(ctx, "Failed to embed document", "id", d.ID, logger.Err(err))
			continue
		}
		docs = append(docs, d)
		vecs = append(vecs, v[0])
	}
	return docs, vecs, failed
}

// PublicURL returns the page users should see for a content-API URL.
func (x *indexer) PublicURL(apiURL string) string {
	if u, ok := x.resolver.FrontendURL(apiURL); ok {
		return u
	}
	if i := strings.Index(apiURL, basicPageMarker); i >= 0 {
		slug, _, _ := strings.Cut(apiURL[i+len(basicPageMarker):], "?")
		return x.siteURL + slug
	}
	return apiURL
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
