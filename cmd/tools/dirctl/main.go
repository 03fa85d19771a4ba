package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/zhouzirui/user-directory/backend/internal/config"
	handler "github.com/zhouzirui/user-directory/backend/internal/handler/directory"
	"github.com/zhouzirui/user-directory/backend/internal/service/directory"
	view "github.com/zhouzirui/user-directory/backend/internal/view/directory"
)

var (
	endpoint string
	debug    bool
	logger   = zerolog.Nop()
	dirCfg   config.DirectoryConfig
)

func main() {
	_ = godotenv.Load()

	cmd := NewRootCmd()
	if err := cmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

// NewRootCmd constructs the root CLI command; exposed for unit testing.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "dirctl",
		Short:         "Browse the user directory from a terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := zerolog.InfoLevel
			if debug {
				level = zerolog.DebugLevel
			}
			logger = zerolog.New(zerolog.ConsoleWriter{
				Out:        cmd.ErrOrStderr(),
				TimeFormat: "2006-01-02 15:04:05",
				NoColor:    true,
			}).Level(level).With().Timestamp().Logger()
			log.Logger = logger

			// Flags win over DIRECTORY_* so the CLI reads the same environment as the server.
			cfg, err := config.LoadDirectoryConfig()
			if err != nil {
				return err
			}
			dirCfg = cfg
			if !cmd.Flags().Changed("endpoint") {
				endpoint = cfg.Endpoint
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&endpoint, "endpoint", directory.DefaultEndpoint, "Users collection endpoint (default from DIRECTORY_ENDPOINT)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable verbose debug output")

	rootCmd.AddCommand(newListCmd())
	return rootCmd
}

func newListCmd() *cobra.Command {
	var (
		search  string
		output  string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Fetch the directory once and print matching users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != "text" && output != "json" {
				return fmt.Errorf("unsupported output %q (want text or json)", output)
			}

			if !cmd.Flags().Changed("timeout") {
				timeout = dirCfg.FetchTimeout
			}

			state, err := loadDirectory(cmd.Context(), directory.NewHTTPFetcher(endpoint, timeout), search)
			if err != nil {
				return err
			}

			if output == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(handler.NewStateResponse(state))
			}
			return view.RenderText(cmd.OutOrStdout(), state)
		},
	}

	cmd.Flags().StringVarP(&search, "search", "s", "", "Filter by name, username or email (case-insensitive)")
	cmd.Flags().StringVarP(&output, "output", "o", "text", "Output format: text or json")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Fetch timeout, 0 waits indefinitely (default from DIRECTORY_FETCH_TIMEOUT)")
	return cmd
}

// loadDirectory mounts a single view, waits for its fetch to settle and
// applies the search term. A failed fetch yields an empty directory.
func loadDirectory(ctx context.Context, fetcher directory.Fetcher, search string) (directory.State, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	store := directory.NewStore(fetcher, logger)
	defer store.Unmount()

	store.InitializeFetch(ctx)
	select {
	case <-store.Settled():
	case <-ctx.Done():
		return directory.State{}, ctx.Err()
	}

	store.SetSearchTerm(search)
	state := store.Snapshot()
	logger.Debug().Str("phase", string(state.Phase)).Int("matches", len(state.Filtered)).Msg("directory loaded")
	return state, nil
}
