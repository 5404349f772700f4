package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"scopenerd/cmd/scopenerd/chat"
	"scopenerd/internal/config"
	"scopenerd/internal/export"
	"scopenerd/internal/logging"
	"scopenerd/internal/perception"
	"scopenerd/internal/pipeline"
	"scopenerd/internal/session"
	"scopenerd/internal/store"
	"scopenerd/internal/taxonomy"
	"scopenerd/internal/timebox"
)

const version = "0.3.0"

var (
	// Global flags
	configPath string
	apiKey     string
	provider   string
	verbose    bool

	// Loaded in PersistentPreRunE
	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "scopenerd",
	Short: "scopeNERD - Conversational AI agent scoping assistant",
	Long: `scopeNERD scopes AI agent projects through a short guided conversation.

It asks a handful of questions, makes its assumptions explicit, and shows
them to you before anything runs. Once you confirm, it produces a four-stage
assessment: viability research, business requirements, agent design, and a
capability mapping against the reference table.

Run without arguments to start the interactive chat interface.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if apiKey != "" {
			cfg.LLM.APIKey = apiKey
		}
		if provider != "" {
			cfg.LLM.Provider = provider
		}

		// Initialize logger
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		return logging.Initialize(logging.Options{
			DebugMode:  cfg.Logging.DebugMode || verbose,
			Level:      cfg.Logging.Level,
			Categories: cfg.Logging.Categories,
			Dir:        cfg.Logging.Dir,
		})
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat("")
	},
}

// sessionsCmd manages saved sessions
var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List and manage saved sessions",
	RunE:  runSessionsList,
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all saved sessions",
	RunE:  runSessionsList,
}

var sessionsResumeCmd = &cobra.Command{
	Use:   "resume <session-id>",
	Short: "Resume a saved session in the chat interface",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(args[0])
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a saved session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsDelete,
}

var exportDir string

// exportCmd writes the assessment documents for a completed session
var exportCmd = &cobra.Command{
	Use:   "export <session-id>",
	Short: "Export the assessment documents for a session",
	Long: `Writes the assessment report, executive summary, capability matrix,
and assumptions log for a session to the output directory. The session must
have run at least the research stage.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the scopeNERD version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("scopenerd %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "LLM API key (or set ANTHROPIC_API_KEY / GEMINI_API_KEY)")
	rootCmd.PersistentFlags().StringVar(&provider, "provider", "", "LLM provider: anthropic or gemini")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	exportCmd.Flags().StringVarP(&exportDir, "out", "o", "exports", "Output directory for documents")

	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsResumeCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)

	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newLLMClient builds the provider client. An empty key returns nil; the
// extractor then falls back to keyword matching and the pipeline stages
// report a clean error.
func newLLMClient() perception.LLMClient {
	if cfg.LLM.APIKey == "" {
		logging.Boot("no API key configured, extraction runs on keyword fallback")
		return nil
	}
	switch cfg.LLM.Provider {
	case "gemini":
		return perception.NewGeminiClientWithConfig(perception.GeminiConfig{
			APIKey:  cfg.LLM.APIKey,
			BaseURL: cfg.LLM.BaseURL,
			Model:   cfg.LLM.Model,
			Timeout: cfg.LLM.TimeoutDuration(),
		})
	default:
		return perception.NewAnthropicClientWithConfig(perception.AnthropicConfig{
			APIKey:  cfg.LLM.APIKey,
			BaseURL: cfg.LLM.BaseURL,
			Model:   cfg.LLM.Model,
			Timeout: cfg.LLM.TimeoutDuration(),
		})
	}
}

func limits() timebox.Limits {
	return timebox.Limits{
		DefaultTurns:     cfg.Timebox.DefaultTurns,
		HardCapTurns:     cfg.Timebox.HardCapTurns,
		HardQuestionsMax: cfg.Timebox.HardQuestionsMax,
	}
}

func openStore() (*store.Store, error) {
	return store.NewStore(filepath.Dir(cfg.Store.DatabasePath))
}

// runChat launches the interactive TUI, resuming sessionID when given.
func runChat(sessionID string) error {
	st, err := openStore()
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	defer st.Close()

	client := newLLMClient()
	extractor := perception.NewExtractor(client)

	tax, watcher, err := loadTaxonomy()
	if err != nil {
		return err
	}
	if watcher != nil {
		defer watcher.Stop()
	}

	var sess *session.Session
	if sessionID != "" {
		rec, err := st.Load(sessionID)
		if err != nil {
			return fmt.Errorf("failed to load session %s: %w", sessionID, err)
		}
		sess = session.Resume(rec, extractor, limits())
	} else {
		sess = session.New(extractor, limits())
	}

	pl := pipeline.New(client, tax)

	return chat.Run(chat.Deps{
		Session:   sess,
		Store:     st,
		Pipeline:  pl,
		ExportDir: exportOutputDir(),
		Version:   version,
	})
}

// loadTaxonomy loads the capability table, optionally under a hot-reload
// watcher. The watcher keeps the pipeline's view current via its callback.
func loadTaxonomy() (*taxonomy.Taxonomy, *taxonomy.Watcher, error) {
	if !cfg.Taxonomy.Watch {
		tax, err := taxonomy.Load(cfg.Taxonomy.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load capability table: %w", err)
		}
		return tax, nil, nil
	}

	w, err := taxonomy.NewWatcher(cfg.Taxonomy.Path, func(t *taxonomy.Taxonomy) {
		logging.Boot("capability table reloaded: %d capabilities", t.Count())
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to watch capability table: %w", err)
	}
	return w.Current(), w, nil
}

func exportOutputDir() string {
	if exportDir != "" {
		return exportDir
	}
	return "exports"
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	sessions, err := st.List()
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}
	if len(sessions) == 0 {
		fmt.Println("No saved sessions found.")
		return nil
	}

	fmt.Println("Saved Sessions")
	fmt.Println(strings.Repeat("─", 72))
	for _, s := range sessions {
		use := s.UseCase
		if len(use) > 40 {
			use = use[:37] + "..."
		}
		if use == "" {
			use = "(no use case yet)"
		}
		fmt.Printf("  %s  %-22s %3d turns  %s\n", s.ID, s.State, s.Turns, use)
		fmt.Printf("      updated %s\n", s.UpdatedAt.Local().Format(time.RFC822))
	}
	fmt.Println(strings.Repeat("─", 72))
	fmt.Printf("Total: %d\n\nUse: scopenerd sessions resume <session-id>\n", len(sessions))
	return nil
}

func runSessionsDelete(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Delete(args[0]); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	fmt.Printf("Deleted session %s\n", args[0])
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	rec, err := st.Load(args[0])
	if err != nil {
		return fmt.Errorf("failed to load session %s: %w", args[0], err)
	}
	if rec.Results == nil || rec.Results.Research == nil {
		return fmt.Errorf("session %s has no assessment results to export", args[0])
	}

	tax, err := taxonomy.Load(cfg.Taxonomy.Path)
	if err != nil {
		return fmt.Errorf("failed to load capability table: %w", err)
	}

	goldenThread := ""
	if rec.Handoff != nil {
		goldenThread = rec.Handoff.GoldenThread
	}

	paths, err := export.WriteAll(exportOutputDir(), export.Input{
		SessionID:    rec.ID,
		Packet:       rec.Packet,
		Assumptions:  rec.Assumptions,
		Results:      *rec.Results,
		GoldenThread: goldenThread,
		Taxonomy:     tax,
	})
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	fmt.Println("Exported:")
	for _, p := range paths {
		fmt.Printf("  %s\n", p)
	}
	return nil
}
