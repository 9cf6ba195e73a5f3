package usecase

import (
	"fmt"
	"math"
	"sort"
	"time"

	"ibot/internal/adapter/cache"
	"ibot/internal/adapter/chunker"
	"ibot/internal/adapter/fs"
	"ibot/internal/domain"
	"ibot/internal/log"
	"ibot/internal/port"
)

// ContextSeparator joins retrieved chunks into one context block.
const ContextSeparator = "\n\n---\n\n"

// KnowledgeConfig holds the tunables of the knowledge base.
type KnowledgeConfig struct {
	Window        int
	Overlap       int
	TopK          int
	MinSimilarity float64
	CacheSize     int
	CacheTTL      time.Duration
}

// KnowledgeBase holds document chunks and their embeddings as two parallel
// sequences kept length-synchronized: chunk i's vector is vectors[i].
// It is built once at startup and read-only afterwards, so queries need no
// locking.
type KnowledgeBase struct {
	embedder port.Embedder
	cfg      KnowledgeConfig
	cache    *cache.QueryCache
	logger   log.Logger

	chunks  []string
	vectors [][]float32
}

func NewKnowledgeBase(embedder port.Embedder, cfg KnowledgeConfig, logger log.Logger) *KnowledgeBase {
	return &KnowledgeBase{
		embedder: embedder,
		cfg:      cfg,
		cache:    cache.NewQueryCache(cfg.CacheSize, cfg.CacheTTL),
		logger:   logger,
	}
}

// Build indexes every matching document under root. Files that fail to
// read or embed are skipped with a warning; the build keeps going. A missing
// documents directory or zero matching files leaves the index empty, which
// is not an error: queries simply return no context.
//
// progress may be nil; otherwise it is called after each file.
func (kb *KnowledgeBase) Build(walker port.FileWalker, root string, progress func(done, total int)) error {
	files, err := walker.Walk(root)
	if err != nil {
		kb.logger.Warn("documents folder not available, knowledge base will be empty", "dir", root, "error", err)
		return nil
	}

	for i, file := range files {
		if err := kb.indexFile(file.Path); err != nil {
			kb.logger.Warn("skipping document", "path", file.Path, "error", err)
		}
		if progress != nil {
			progress(i+1, len(files))
		}
	}

	if len(kb.chunks) == 0 {
		kb.logger.Warn("knowledge base is empty, no documents were indexed", "dir", root)
	} else {
		kb.logger.Info("knowledge base ready", "documents", len(files), "chunks", len(kb.chunks))
	}

	kb.cache.Invalidate()
	return nil
}

func (kb *KnowledgeBase) indexFile(path string) error {
	content, err := fs.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read failed: %w", err)
	}

	chunks := chunker.Split(content, kb.cfg.Window, kb.cfg.Overlap)
	if len(chunks) == 0 {
		return nil
	}

	vectors, err := kb.embedder.Embed(chunks)
	if err != nil {
		return fmt.Errorf("embedding failed: %w", err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embedding count mismatch: %d chunks, %d vectors", len(chunks), len(vectors))
	}

	// Appended together so the parallel sequences stay length-synchronized.
	kb.chunks = append(kb.chunks, chunks...)
	kb.vectors = append(kb.vectors, vectors...)
	return nil
}

// Len returns the number of indexed chunks.
func (kb *KnowledgeBase) Len() int {
	return len(kb.chunks)
}

// Search returns the topK most similar chunks, highest first. Ties keep
// insertion order. Scores are not threshold-filtered here; Context applies
// the cutoff.
func (kb *KnowledgeBase) Search(question string, topK int) ([]domain.ScoredChunk, error) {
	if len(kb.chunks) == 0 {
		return nil, nil
	}

	if results, hit := kb.cache.Get(question, topK); hit {
		return results, nil
	}

	vectors, err := kb.embedder.Embed([]string{question})
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedding returned empty result")
	}
	query := vectors[0]

	scored := make([]domain.ScoredChunk, len(kb.chunks))
	for i, vec := range kb.vectors {
		scored[i] = domain.ScoredChunk{
			Text:  kb.chunks[i],
			Score: cosineSimilarity(query, vec),
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if topK > len(scored) {
		topK = len(scored)
	}
	results := scored[:topK]

	kb.cache.Put(question, topK, results)
	return results, nil
}

// Context returns the retrieval context for a question: the top results
// above the similarity cutoff, joined by ContextSeparator. Every failure
// degrades to an empty context; retrieval never aborts a conversation turn.
func (kb *KnowledgeBase) Context(question string) string {
	results, err := kb.Search(question, kb.cfg.TopK)
	if err != nil {
		kb.logger.Error("knowledge search failed", "error", err)
		return ""
	}

	var texts []string
	for _, r := range results {
		if r.Score > kb.cfg.MinSimilarity {
			texts = append(texts, r.Text)
		}
	}
	if len(texts) == 0 {
		return ""
	}

	joined := texts[0]
	for _, t := range texts[1:] {
		joined += ContextSeparator + t
	}
	return joined
}

// cosineSimilarity calculates the cosine similarity between two vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
