package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/salaheddineelazouti/Projet-innovation/internal/backup"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Back up and restore the SQLite database",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := rootCmd.PersistentPreRunE(cmd, args); err != nil {
			return err
		}
		if cfg.Store.Driver != "sqlite" {
			return eris.Errorf("backup requires the sqlite store (driver is %q)", cfg.Store.Driver)
		}
		return nil
	},
}

var backupCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a snapshot of the database",
	RunE: func(cmd *cobra.Command, _ []string) error {
		compress := cfg.Backup.Compress
		if cmd.Flags().Changed("compress") {
			compress, _ = cmd.Flags().GetBool("compress")
		}

		b, err := backup.Create(cmd.Context(), cfg.Store.SQLitePath, cfg.Backup.Dir, compress)
		if err != nil {
			return err
		}
		fmt.Printf("%s (%s)\n", b.Path, backup.FormatSize(b.Size))

		if prune, _ := cmd.Flags().GetBool("prune"); prune && cfg.Backup.Keep > 0 {
			if _, err := backup.Prune(cfg.Backup.Dir, cfg.Backup.Keep); err != nil {
				return err
			}
		}
		return nil
	},
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available backups",
	RunE: func(cmd *cobra.Command, _ []string) error {
		list, err := backup.List(cfg.Backup.Dir)
		if err != nil {
			return err
		}
		if len(list) == 0 {
			fmt.Fprintln(os.Stderr, "No backups found.")
			return nil
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tSIZE\tCREATED")
		for _, b := range list {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", b.Name, backup.FormatSize(b.Size), b.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		return tw.Flush()
	},
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore <name>",
	Short: "Replace the database with a backup (stop the server first)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pre, err := backup.Restore(cmd.Context(), cfg.Store.SQLitePath, cfg.Backup.Dir, args[0])
		if err != nil {
			return err
		}
		if pre != "" {
			fmt.Printf("previous database saved to %s\n", pre)
		}
		fmt.Printf("restored %s\n", args[0])
		return nil
	},
}

var backupPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old backups",
	RunE: func(cmd *cobra.Command, _ []string) error {
		keep, _ := cmd.Flags().GetInt("keep")
		if keep <= 0 {
			keep = cfg.Backup.Keep
		}
		removed, err := backup.Prune(cfg.Backup.Dir, keep)
		if err != nil {
			return err
		}
		fmt.Printf("removed %d backup(s), kept %d\n", len(removed), keep)
		return nil
	},
}

func init() {
	backupCreateCmd.Flags().Bool("compress", true, "gzip the snapshot (default from config)")
	backupCreateCmd.Flags().Bool("prune", false, "prune old backups after creating one")
	backupPruneCmd.Flags().Int("keep", 0, "number of backups to keep (default from config)")

	backupCmd.AddCommand(backupCreateCmd, backupListCmd, backupRestoreCmd, backupPruneCmd)
	rootCmd.AddCommand(backupCmd)
}
