package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"ibot/internal/adapter/embedding"
	"ibot/internal/adapter/fs"
	"ibot/internal/log"
	"ibot/internal/usecase"
)

var (
	queryText string
	queryTopK int
	queryJSON bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Inspect what retrieval finds for a question",
	Long: `Build the knowledge index and print the chunks retrieval would hand to the
model, with their similarity scores. Useful for tuning chunking and the
similarity cutoff.

Examples:
  ibot query -q "how do I deploy"
  ibot query -q "billing" --top-k 10 --json`,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryText, "query", "q", "", "question to search for (required)")
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of results (default from config)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")
	queryCmd.MarkFlagRequired("query")
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	logger := log.New(log.Config{Level: log.ParseLevel("warn")})

	embedder, err := embedding.New(embedding.Config{
		Provider:  cfg.Embedding.Provider,
		Model:     cfg.Embedding.Model,
		BaseURL:   cfg.Embedding.BaseURL,
		APIKeyEnv: cfg.Embedding.APIKeyEnv,
		Dimension: cfg.Embedding.Dimension,
		BatchSize: cfg.Embedding.BatchSize,
	})
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	kb := usecase.NewKnowledgeBase(embedder, usecase.KnowledgeConfig{
		Window:        cfg.Chunking.Window,
		Overlap:       cfg.Chunking.Overlap,
		TopK:          cfg.Retrieve.TopK,
		MinSimilarity: cfg.Retrieve.MinSimilarity,
		CacheSize:     cfg.Retrieve.CacheSize,
		CacheTTL:      time.Duration(cfg.Retrieve.CacheTTLSecs) * time.Second,
	}, logger)

	walker := fs.NewWalker(cfg.Documents.Includes, cfg.Documents.Excludes)
	if err := kb.Build(walker, cfg.Documents.Dir, nil); err != nil {
		return fmt.Errorf("failed to build knowledge base: %w", err)
	}
	if kb.Len() == 0 {
		fmt.Println("No documents indexed. Check the documents folder and include patterns.")
		return nil
	}

	topK := cfg.Retrieve.TopK
	if queryTopK > 0 {
		topK = queryTopK
	}

	results, err := kb.Search(queryText, topK)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if queryJSON {
		output, _ := json.MarshalIndent(results, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}
	fmt.Printf("Found %d results for: %s\n\n", len(results), queryText)
	for i, r := range results {
		marker := " "
		if r.Score > cfg.Retrieve.MinSimilarity {
			marker = "*"
		}
		fmt.Printf("--- [%d]%s score: %.3f ---\n", i+1, marker, r.Score)
		text := r.Text
		if len(text) > 500 {
			text = text[:500] + "..."
		}
		fmt.Println(text)
		fmt.Println()
	}
	fmt.Println("Results marked * clear the similarity cutoff and would reach the model.")

	return nil
}
