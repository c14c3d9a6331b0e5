// billiards runs the billiards physics server and its offline tools.
//
// Usage:
//
//	billiards serve              - Start the HTTP and WebSocket server
//	billiards migrate up         - Apply database migrations
//	billiards migrate down <n>   - Roll back n migrations
//	billiards migrate version    - Print the schema version
//	billiards simulate           - Run headless break shots and print statistics
//	billiards tables             - Print the table catalog
//
// Global flags:
//
//	--tables <path>  - Table overrides file (default: TABLES_CONFIG)
package main

import (
	"fmt"
	"os"

	"github.com/playmatatu/billiards/internal/config"
	"github.com/playmatatu/billiards/internal/game"
	"github.com/playmatatu/billiards/internal/logging"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	flagTables string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "billiards",
	Short: "Billiards physics server",
	Long: `Billiards simulates pool tables (standard, elongated, cross and donut)
and serves live sessions over HTTP and WebSocket.

Examples:
  billiards serve
  billiards migrate up
  billiards simulate --table donut --runs 500
  billiards tables`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagTables, "tables", "", "Path to table overrides (default: TABLES_CONFIG)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(tablesCmd)
}

// loadConfig reads the environment and sets up logging.
func loadConfig() *config.Config {
	cfg := config.Load()
	logging.Setup(cfg.LogLevel, cfg.Environment)
	if flagTables != "" {
		cfg.TablesConfigPath = flagTables
	}
	return cfg
}

func loadCatalog(cfg *config.Config) (*game.Catalog, error) {
	catalog, err := game.LoadCatalog(cfg.TablesConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load tables: %w", err)
	}
	return catalog, nil
}
