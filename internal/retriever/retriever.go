// Package retriever exposes the reference-corpus lookup used to ground
// assistant replies. The corpus is a fixed set of passages loaded at startup
// into an embedded vector store; queries return the top-k most similar
// passages.
package retriever

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	chromem "github.com/philippgille/chromem-go"
)

// Retriever returns the most relevant reference passages for a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]string, error)
}

// Passage is one reference-corpus entry.
type Passage struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
	Text  string `json:"text"`
}

// ChromemRetriever backs Retriever with chromem-go, a pure Go embedded
// vector database.
type ChromemRetriever struct {
	collection *chromem.Collection
	embedder   Embedder
}

// New builds a retriever over the passages in corpusPath (a JSON array of
// Passage objects). An empty path yields an empty corpus, not an error.
func New(ctx context.Context, corpusPath string, embedder Embedder) (*ChromemRetriever, error) {
	if embedder == nil {
		embedder = NewHashEmbedder()
	}

	db := chromem.NewDB()
	collection, err := db.CreateCollection("knowledge", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create knowledge collection: %w", err)
	}

	r := &ChromemRetriever{collection: collection, embedder: embedder}

	if strings.TrimSpace(corpusPath) != "" {
		passages, err := loadCorpus(corpusPath)
		if err != nil {
			return nil, err
		}
		for i, p := range passages {
			if err := r.add(ctx, i, p); err != nil {
				return nil, err
			}
		}
	}
	return r, nil
}

func loadCorpus(path string) ([]Passage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corpus file: %w", err)
	}
	var passages []Passage
	if err := json.Unmarshal(data, &passages); err != nil {
		return nil, fmt.Errorf("decode corpus file: %w", err)
	}
	return passages, nil
}

// Add appends one passage to the corpus. Exposed for tests and for seeding
// small corpora programmatically.
func (r *ChromemRetriever) Add(ctx context.Context, p Passage) error {
	return r.add(ctx, r.collection.Count(), p)
}

func (r *ChromemRetriever) add(ctx context.Context, seq int, p Passage) error {
	if strings.TrimSpace(p.Text) == "" {
		return nil
	}
	id := p.ID
	if id == "" {
		id = fmt.Sprintf("passage-%d", seq)
	}
	embedding, err := r.embedder.Embed(ctx, p.Text)
	if err != nil {
		return fmt.Errorf("embed passage %s: %w", id, err)
	}
	doc := chromem.Document{
		ID:        id,
		Content:   p.Text,
		Embedding: embedding,
	}
	if p.Title != "" {
		doc.Metadata = map[string]string{"title": p.Title}
	}
	if err := r.collection.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("add passage %s: %w", id, err)
	}
	return nil
}

// Retrieve returns up to k passage texts ranked by similarity to query.
// Asking for more passages than the corpus holds degrades to the corpus
// size; an empty corpus yields no results.
func (r *ChromemRetriever) Retrieve(ctx context.Context, query string, k int) ([]string, error) {
	if k <= 0 {
		k = 3
	}
	if count := r.collection.Count(); count < k {
		k = count
	}
	if k == 0 {
		return nil, nil
	}

	embedding, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	results, err := r.collection.QueryEmbedding(ctx, embedding, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query knowledge collection: %w", err)
	}

	passages := make([]string, 0, len(results))
	for _, res := range results {
		passages = append(passages, res.Content)
	}
	return passages, nil
}
