package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BuntinJP/xlog-images/internal/app"
	"github.com/BuntinJP/xlog-images/internal/archive"
	"github.com/BuntinJP/xlog-images/internal/config"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an App. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "UploadAll", "Refresh").
func newApp(cmd *cobra.Command, operation string) (*app.App, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.New(cmd.Context(), cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

var rootCmd = &cobra.Command{
	Use:   "xli",
	Short: "Blog image publishing pipeline",
	Long:  "xli uploads local blog images to the asset host, tracks them in a local archive, and generates per-post documentation.",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration and an empty archive",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		name := uuid.New().String()
		cfg := config.NewConfig(name, defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		store, err := archive.NewStoreFromConfig(cfg)
		if err != nil {
			return fmt.Errorf("creating archive store: %w", err)
		}
		if err := store.Init(); err != nil {
			return fmt.Errorf("initializing archive: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Archive:  %s\n", cfg.ArchivePath)
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Upload Root: %s\n", cfg.UploadRoot)
		fmt.Printf("Posts Root:  %s\n", cfg.PostsRoot)
		fmt.Printf("Docs Root:   %s\n", cfg.DocsRoot)
		fmt.Printf("Archive:     %s\n", cfg.ArchivePath)
		fmt.Printf("Backup Root: %s\n", cfg.BackupRoot)
		fmt.Printf("Gateway:     %s (%s)\n", cfg.Gateway.Type, cfg.Gateway.Name)
		return nil
	},
}

// upload command
var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Upload all unarchived local images",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "UploadAll")
		if err != nil {
			return err
		}
		defer a.Close()

		summary, err := a.UploadAll(cmd.Context())
		if err != nil {
			return fmt.Errorf("upload failed: %w", err)
		}

		fmt.Printf("Uploaded %d, adopted %d, skipped %d, failed %d\n",
			summary.Uploaded, summary.Adopted, summary.Skipped, summary.Failed)
		if summary.Manifest != "" {
			fmt.Printf("Run manifest: %s\n", summary.Manifest)
		}
		return nil
	},
}

// skeleton command
var skeletonCmd = &cobra.Command{
	Use:   "skeleton",
	Short: "Create dated upload directories from post dates",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "GenerateSkeleton")
		if err != nil {
			return err
		}
		defer a.Close()

		summary, err := a.GenerateSkeleton(cmd.Context())
		if err != nil {
			return fmt.Errorf("skeleton generation failed: %w", err)
		}

		fmt.Printf("Scanned %d post(s), prepared %d date director(ies)\n", summary.Posts, summary.Dates)
		return nil
	},
}

// docs command
var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Generate documentation for all archived assets",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "EmitDocs")
		if err != nil {
			return err
		}
		defer a.Close()

		summary, err := a.EmitDocs(cmd.Context())
		if err != nil {
			return fmt.Errorf("doc generation failed: %w", err)
		}

		fmt.Printf("Emitted %d doc(s), %d failed\n", summary.Emitted, summary.Failed)
		return nil
	},
}

// delete command
var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Destroy all remote assets tracked in the archive",
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		if !yes {
			if !term.IsTerminal(int(os.Stdin.Fd())) {
				return fmt.Errorf("refusing to delete without a terminal; pass --yes to confirm")
			}
			fmt.Print("Delete every remote asset in the archive? Type \"yes\" to continue: ")
			line, err := bufio.NewReader(os.Stdin).ReadString('\n')
			if err != nil {
				return fmt.Errorf("reading confirmation: %w", err)
			}
			if strings.TrimSpace(line) != "yes" {
				fmt.Println("Aborted.")
				return nil
			}
		}

		a, err := newApp(cmd, "DeleteAll")
		if err != nil {
			return err
		}
		defer a.Close()

		summary, err := a.DeleteAll(cmd.Context())
		if err != nil {
			return fmt.Errorf("delete failed: %w", err)
		}

		fmt.Printf("Destroyed %d, failed %d\n", summary.Destroyed, summary.Failed)
		return nil
	},
}

// refresh command
var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Back up the archive and prune settled destroyed records",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "Refresh")
		if err != nil {
			return err
		}
		defer a.Close()

		summary, err := a.Refresh(cmd.Context())
		if err != nil {
			return fmt.Errorf("refresh failed: %w", err)
		}

		if summary.BackupLocation != "" {
			fmt.Printf("Backup: %s\n", summary.BackupLocation)
		}
		fmt.Printf("Pruned %d destroyed record(s)\n", summary.Pruned)
		return nil
	},
}

// list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List remote assets",
	RunE: func(cmd *cobra.Command, args []string) error {
		max, _ := cmd.Flags().GetInt("max")

		a, err := newApp(cmd, "ListRemote")
		if err != nil {
			return err
		}
		defer a.Close()

		assets, err := a.ListRemote(cmd.Context(), max)
		if err != nil {
			return err
		}

		if len(assets) == 0 {
			fmt.Println("No remote assets.")
			return nil
		}
		for _, asset := range assets {
			fmt.Printf("%s\t%s\n", asset.RemoteID, asset.SecureURL)
		}
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View operation history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd, "GetHistory")
		if err != nil {
			return err
		}
		defer a.Close()

		ops, err := a.GetHistory(limit)
		if err != nil {
			return err
		}

		if len(ops) == 0 {
			fmt.Println("No operations recorded.")
			return nil
		}

		for _, op := range ops {
			duration := ""
			if op.FinishedAt.Valid {
				d := op.FinishedAt.Time.Sub(op.StartedAt)
				duration = d.Truncate(time.Millisecond).String()
			}
			fmt.Printf("#%d  %-16s  %s  %-8s  %s\n",
				op.ID,
				op.Operation,
				op.StartedAt.Format("2006-01-02 15:04:05"),
				op.Status,
				duration,
			)
		}
		return nil
	},
}

// selftest command
var selftestCmd = &cobra.Command{
	Use:   "selftest",
	Short: "Run the pipeline end to end against an in-memory gateway",
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.SelfTest(cmd.Context(), os.Stdout)
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(skeletonCmd)
	rootCmd.AddCommand(docsCmd)
	rootCmd.AddCommand(deleteCmd)
	deleteCmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().IntP("max", "n", 500, "Maximum number of assets to list")
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of operations to show")
	rootCmd.AddCommand(selftestCmd)
}
