package main

import (
	"fmt"

	"github.com/playmatatu/billiards/internal/game"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var tablesCmd = &cobra.Command{
	Use:   "tables [variant]",
	Short: "Print the table catalog",
	Long: `Print the resolved settings of every table, or of one variant, after
overrides from the tables file are applied.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTables,
}

func runTables(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	catalog, err := loadCatalog(cfg)
	if err != nil {
		return err
	}

	tables := map[game.TableVariant]game.TableConfig{}
	for _, info := range catalog.Describe() {
		if len(args) == 1 && string(info.Variant) != args[0] {
			continue
		}
		tables[info.Variant] = info.Config
	}
	if len(tables) == 0 {
		_, err := game.ParseVariant(args[0])
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "# source: %s\n", catalog.Source())
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(map[string]interface{}{"tables": tables}); err != nil {
		return err
	}
	return enc.Close()
}
