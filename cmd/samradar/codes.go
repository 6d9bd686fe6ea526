package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/oakline/sam-radar/internal/db"
	"github.com/oakline/sam-radar/internal/fetch"
)

var codesFlags struct {
	codeType    string
	description string
}

var codesCmd = &cobra.Command{
	Use:   "codes",
	Short: "Manage the stored classification code lists",
}

var codesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored classification codes",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		pool, err := connectPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		codes, err := db.NewCodeStore(pool).List(ctx, codesFlags.codeType)
		if err != nil {
			return err
		}
		if len(codes) == 0 {
			fmt.Println("No classification codes stored. Run 'samradar migrate' to seed the defaults.")
			return nil
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Code", "Type", "Description", "Enabled"})
		for _, c := range codes {
			t.AppendRow(table.Row{c.Code, c.Type, c.Description, c.Enabled})
		}
		t.Render()
		return nil
	},
}

var codesAddCmd = &cobra.Command{
	Use:   "add <code>",
	Short: "Add a classification code (or re-enable an existing one)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		pool, err := connectPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := db.NewCodeStore(pool).Add(ctx, args[0], codesFlags.codeType, codesFlags.description); err != nil {
			return err
		}
		fmt.Printf("Added %s code %s.\n", codesFlags.codeType, args[0])
		return nil
	},
}

var codesEnableCmd = &cobra.Command{
	Use:   "enable <code>",
	Short: "Enable a stored classification code",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return toggleCode(cmd, args[0], true)
	},
}

var codesDisableCmd = &cobra.Command{
	Use:   "disable <code>",
	Short: "Disable a stored classification code without deleting it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return toggleCode(cmd, args[0], false)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and seed the default code lists",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		logger := slog.Default()

		pool, err := connectPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := db.ApplyMigrations(ctx, pool, logger); err != nil {
			return err
		}
		return db.SeedDefaultCodes(ctx, pool,
			fetch.DefaultNAICSCodes, fetch.DefaultPSCCodes, logger)
	},
}

func init() {
	codesListCmd.Flags().StringVar(&codesFlags.codeType, "type", "",
		"Filter by code type: primary (NAICS) or secondary (PSC)")
	for _, c := range []*cobra.Command{codesAddCmd, codesEnableCmd, codesDisableCmd} {
		c.Flags().StringVar(&codesFlags.codeType, "type", fetch.CodeTypePrimary,
			"Code type: primary (NAICS) or secondary (PSC)")
	}
	codesAddCmd.Flags().StringVar(&codesFlags.description, "description", "",
		"Human-readable code description")

	codesCmd.AddCommand(codesListCmd, codesAddCmd, codesEnableCmd, codesDisableCmd)
	rootCmd.AddCommand(codesCmd, migrateCmd)
}

func toggleCode(cmd *cobra.Command, code string, enabled bool) error {
	ctx := cmd.Context()
	pool, err := connectPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	matched, err := db.NewCodeStore(pool).SetEnabled(ctx, code, codesFlags.codeType, enabled)
	if err != nil {
		return err
	}
	if !matched {
		return fmt.Errorf("no %s code %s", codesFlags.codeType, code)
	}
	verb := "Disabled"
	if enabled {
		verb = "Enabled"
	}
	fmt.Printf("%s %s code %s.\n", verb, codesFlags.codeType, code)
	return nil
}
