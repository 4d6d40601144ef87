package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sigvault/sigvault/internal/cipherdb"
	"github.com/sigvault/sigvault/internal/config"
	"github.com/sigvault/sigvault/internal/query"
	"github.com/sigvault/sigvault/internal/safestorage"
)

var (
	cfgFile   string
	signalDir string
	keyFlag   string
	verbose   bool
	cfg       *config.Config
	logger    *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "sigvault",
	Short: "Read-only access to a local Signal Desktop archive",
	Long: `sigvault reads a Signal Desktop encrypted database and exposes chats
and messages through a CLI and an MCP stdio server.

The database is never written to. The SQLCipher key is resolved from
--key, the plaintext key in Signal's config.json, or the encrypted key
unwrapped with the OS secret store password.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Logs go to stderr; stdout belongs to command output and the
		// MCP stdio transport.
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		}))

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if signalDir != "" {
			cfg.Signal.DataDir = signalDir
		}
		if keyFlag != "" {
			cfg.Signal.Key = keyFlag
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.sigvault/config.toml)")
	rootCmd.PersistentFlags().StringVar(&signalDir, "signal-dir", "", "Signal Desktop data directory")
	rootCmd.PersistentFlags().StringVar(&keyFlag, "key", "", "hex SQLCipher key (overrides config.json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// ExecuteContext runs the root command with the given context,
// enabling graceful shutdown when the context is cancelled.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// newEngine builds a query engine whose session is opened lazily:
// key resolution and the database open happen on the first operation
// that needs data.
func newEngine() *query.Engine {
	dir := cfg.SignalDir()
	dbPath := cfg.DatabasePath()
	explicitKey := cfg.Signal.Key

	open := func(ctx context.Context) (*cipherdb.Session, error) {
		key, err := safestorage.ResolveKey(dir, explicitKey)
		if err != nil {
			return nil, err
		}
		logger.Debug("opening database", "path", dbPath)
		return cipherdb.Open(ctx, dbPath, key)
	}

	return query.New(open, query.Options{
		IncludeEmpty:        cfg.Query.IncludeEmpty,
		IncludeDisappearing: cfg.Query.IncludeDisappearing,
		Chats:               cfg.Query.Chats,
	})
}
