package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"ibot/internal/adapter/embedding"
	"ibot/internal/adapter/fs"
	"ibot/internal/adapter/llm"
	"ibot/internal/adapter/memstore"
	"ibot/internal/adapter/store"
	"ibot/internal/adapter/tools"
	"ibot/internal/log"
	"ibot/internal/port"
	"ibot/internal/server"
	"ibot/internal/team"
	"ibot/internal/usecase"
)

var (
	serveAddr      string
	serveEphemeral bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the assistant HTTP server",
	Long: `Build the knowledge index from the documents folder, then serve the chat
API and the web UI.

Examples:
  ibot serve
  ibot serve --addr :9000`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	serveCmd.Flags().BoolVar(&serveEphemeral, "ephemeral", false, "keep conversations in memory only")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	logger := log.New(log.Config{
		Level: log.ParseLevel(cfg.Logging.Level),
		JSON:  cfg.Logging.JSON,
	})

	if len(cfg.Team) == 0 {
		return fmt.Errorf("no team members configured; add a 'team' section to the config")
	}
	members := make(map[string]team.Member, len(cfg.Team))
	for name, m := range cfg.Team {
		members[name] = team.Member{Password: m.Password, Role: m.Role}
	}
	roster := team.NewTable(members)

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

	model, err := llm.New(llm.Config{
		Model:          cfg.LLM.Model,
		BaseURL:        cfg.LLM.BaseURL,
		APIKeyEnv:      cfg.LLM.APIKeyEnv,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
		MaxRetries:     cfg.LLM.MaxRetries,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create model client: %w", err)
	}

	kb := usecase.NewKnowledgeBase(embedder, usecase.KnowledgeConfig{
		Window:        cfg.Chunking.Window,
		Overlap:       cfg.Chunking.Overlap,
		TopK:          cfg.Retrieve.TopK,
		MinSimilarity: cfg.Retrieve.MinSimilarity,
		CacheSize:     cfg.Retrieve.CacheSize,
		CacheTTL:      time.Duration(cfg.Retrieve.CacheTTLSecs) * time.Second,
	}, logger)

	fmt.Printf("Indexing %s...\n", cfg.Documents.Dir)
	walker := fs.NewWalker(cfg.Documents.Includes, cfg.Documents.Excludes)
	if err := kb.Build(walker, cfg.Documents.Dir, indexProgress()); err != nil {
		return fmt.Errorf("failed to build knowledge base: %w", err)
	}
	fmt.Printf("Indexed %d chunks.\n", kb.Len())

	var st port.ConversationStore
	if serveEphemeral {
		st = memstore.NewMemoryStore()
	} else {
		st, err = store.NewBoltStore(cfg.Store.Path, logger)
		if err != nil {
			return fmt.Errorf("failed to open conversation store: %w", err)
		}
	}
	defer st.Close()

	registry := tools.NewRegistry(logger, tools.NewCurrentTime())
	bot := usecase.NewBot(kb, st, model, registry, cfg.LLM.MaxToolRounds, logger)
	suggester := usecase.NewSuggester(st, model, logger)

	srv := server.New(bot, suggester, st, roster, cfg.Server.StaticDir, logger)

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("server starting", "addr", addr, "model", model.ModelName(), "chunks", kb.Len())
	if err := srv.ListenAndServe(ctx, addr); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// indexProgress renders a terminal progress bar sized lazily, once the first
// callback reveals the total.
func indexProgress() func(done, total int) {
	var bar *progressbar.ProgressBar
	return func(done, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]Indexing[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Println()
				}),
			)
		}
		bar.Set(done)
	}
}
