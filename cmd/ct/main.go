package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/clearclaims/claimtrail/internal/config"
	"github.com/clearclaims/claimtrail/internal/db"
)

// Version is set via ldflags at build time.
var Version = "dev"

var (
	dbPath     string
	jsonOutput bool
	quietFlag  bool
	store      *db.DB
	cfg        config.Config
)

var rootCmd = &cobra.Command{
	Use:   "ct",
	Short: "ct - Claim evidence ingestion and timelines",
	Long:  "Claimtrail: pull claim-relevant mail, keep an idempotent evidence store, project claim timelines.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip DB for commands that don't need it
		switch cmd.Name() {
		case "init", "help", "version":
			return nil
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}

		path := dbPath
		if path == "" {
			path = db.DiscoverDB()
		}
		if path == "" {
			return fmt.Errorf("no claimtrail database found, run 'ct init' first")
		}

		store, err = db.Open(path)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if store != nil {
			store.Close()
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("ct version %s\n", Version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize .claimtrail/ in the project root",
	RunE: func(cmd *cobra.Command, args []string) error {
		root := db.FindProjectRoot()
		if root == "" {
			return fmt.Errorf("could not find project root (no .git directory found)")
		}

		dbPath := filepath.Join(root, ".claimtrail", "claims.db")
		s, err := db.Open(dbPath)
		if err != nil {
			return err
		}
		s.Close()

		ensureGitignore(root)

		if !quietFlag {
			fmt.Printf("Initialized claimtrail at %s\n", dbPath)
		}
		return nil
	},
}

// ensureGitignore adds .claimtrail/ to .gitignore if not already present.
func ensureGitignore(root string) {
	gitignorePath := filepath.Join(root, ".gitignore")
	entry := ".claimtrail/"

	if f, err := os.Open(gitignorePath); err == nil {
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == entry || line == ".claimtrail" {
				f.Close()
				return
			}
		}
		f.Close()
	}

	f, err := os.OpenFile(gitignorePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return // silently skip if can't write
	}
	defer f.Close()

	fmt.Fprintf(f, "\n# Claimtrail database (local claim evidence)\n%s\n", entry)
}

// printJSON writes v as indented JSON to the command's stdout.
func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Database path (default: auto-discover .claimtrail/claims.db)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Suppress non-essential output")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
