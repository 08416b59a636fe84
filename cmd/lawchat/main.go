package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/AbdulwahidHusein/LawChat/internal/assembler"
	"github.com/AbdulwahidHusein/LawChat/internal/chunker"
	"github.com/AbdulwahidHusein/LawChat/internal/completion"
	"github.com/AbdulwahidHusein/LawChat/internal/config"
	"github.com/AbdulwahidHusein/LawChat/internal/domain"
	"github.com/AbdulwahidHusein/LawChat/internal/embedding/openai"
	"github.com/AbdulwahidHusein/LawChat/internal/ingest"
	"github.com/AbdulwahidHusein/LawChat/internal/logger"
	"github.com/AbdulwahidHusein/LawChat/internal/service"
	"github.com/AbdulwahidHusein/LawChat/internal/session"
	"github.com/AbdulwahidHusein/LawChat/internal/tui"
	"github.com/AbdulwahidHusein/LawChat/internal/vectorindex/pinecone"
)

var (
	cfgPath string
	verbose bool
)

func main() {
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:   "lawchat",
		Short: "Retrieval-augmented legal research assistant",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.SetVerbose(verbose)
		},
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to YAML config file (defaults to ./config.yaml then ~/.config/lawchat/config.yaml)")
	root.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable verbose logging")

	root.AddCommand(newChatCmd(), newIngestCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.AppConfig, error) {
	if cfgPath != "" {
		return config.Load(cfgPath)
	}
	cfg, path, err := config.LoadDefault()
	if err != nil {
		return nil, err
	}
	logger.Debug("using config at %s", path)
	return cfg, nil
}

func buildEmbedder(cfg *config.AppConfig) (domain.Embedder, error) {
	return openai.NewClient(openai.Config{
		BaseURL:      cfg.Embedding.BaseURL,
		APIKeyEnv:    cfg.Embedding.APIKeyEnv,
		Model:        cfg.Embedding.Model,
		Timeout:      time.Duration(cfg.Embedding.TimeoutSecs) * time.Second,
		MaxBatchSize: cfg.Embedding.BatchSize,
	})
}

func buildIndex(cfg *config.AppConfig) (domain.VectorIndex, error) {
	return pinecone.New(pinecone.Config{
		Host:      cfg.Pinecone.Host,
		APIKeyEnv: cfg.Pinecone.APIKeyEnv,
		Timeout:   time.Duration(cfg.Pinecone.TimeoutSecs) * time.Second,
	})
}

func newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			emb, err := buildEmbedder(cfg)
			if err != nil {
				return err
			}
			index, err := buildIndex(cfg)
			if err != nil {
				return err
			}
			profile, err := completion.ProfileByName(cfg.Completion.Profile)
			if err != nil {
				return err
			}
			completer, err := completion.NewClient(completion.Config{
				BaseURL:   cfg.Completion.BaseURL,
				APIKeyEnv: cfg.Completion.APIKeyEnv,
				Model:     cfg.Completion.Model,
				Profile:   profile,
				Timeout:   time.Duration(cfg.Completion.TimeoutSecs) * time.Second,
			})
			if err != nil {
				return err
			}

			asm := assembler.New(emb, index, assembler.Options{
				TopK:               cfg.Retrieval.TopK,
				MaxSources:         cfg.Retrieval.MaxSources,
				MaxCharsPerSource:  cfg.Retrieval.MaxCharsPerSource,
				MaxHistoryMessages: cfg.Retrieval.MaxHistoryMessages,
			})
			assistant := service.New(asm, completer, cfg.Completion.Model, cfg.Completion.APIKeyEnv)
			sess := session.New(session.Options{
				CacheTTL:           time.Duration(cfg.Session.CacheTTLSecs) * time.Second,
				CacheCapacity:      cfg.Session.CacheCapacity,
				SearchHistoryLimit: cfg.Session.SearchHistoryLimit,
			})

			_, err = tea.NewProgram(tui.New(assistant, sess)).Run()
			return err
		},
	}
}

func newIngestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest [directory]",
		Short: "Index documents from a directory into the vector index",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			dir := cfg.Ingest.DocsDir
			if len(args) == 1 {
				dir = args[0]
			}
			emb, err := buildEmbedder(cfg)
			if err != nil {
				return err
			}
			index, err := buildIndex(cfg)
			if err != nil {
				return err
			}
			pipeline := ingest.New(ingest.Options{
				Chunker: chunker.New(
					chunker.WithSize(cfg.Chunker.Size),
					chunker.WithOverlap(cfg.Chunker.Overlap),
					chunker.WithMinLength(cfg.Chunker.MinLength),
				),
				Embedder:  emb,
				Index:     index,
				Tracker:   ingest.NewTracker(cfg.Ingest.TrackingFile),
				BatchSize: cfg.Ingest.BatchSize,
				Workers:   cfg.Ingest.Workers,
			})
			report, err := pipeline.Run(context.Background(), dir)
			if err != nil {
				return err
			}
			fmt.Printf("Index contained %d vectors before this run\n", report.VectorsBefore)
			fmt.Printf("Processed %d files (%d skipped, %d failed)\n",
				report.FilesProcessed, report.FilesSkipped, report.FilesFailed)
			fmt.Printf("Created %d chunks, upserted %d vectors\n",
				report.ChunksCreated, report.VectorsUpserted)
			fmt.Printf("Index now contains %d vectors\n", report.VectorsAfter)
			return nil
		},
	}
}
