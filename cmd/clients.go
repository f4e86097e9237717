package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/salaheddineelazouti/Projet-innovation/internal/export"
)

var clientsCmd = &cobra.Command{
	Use:   "clients",
	Short: "Manage known clients",
}

var clientsImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import clients from a CSV or XLSX file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		clients, err := export.ReadClients(args[0])
		if err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		n, err := st.ImportClients(ctx, clients)
		if err != nil {
			return eris.Wrap(err, "import clients")
		}
		zap.L().Info("import complete",
			zap.Int("read", len(clients)),
			zap.Int64("upserted", n),
			zap.String("file", args[0]),
		)
		return nil
	},
}

var clientsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known clients",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		clients, err := st.ListClients(ctx)
		if err != nil {
			return eris.Wrap(err, "list clients")
		}
		if len(clients) == 0 {
			fmt.Fprintln(os.Stderr, "No clients found.")
			return nil
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tPHONE")
		for _, c := range clients {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.ID, c.Name, orDash(c.Email), orDash(c.Phone))
		}
		return tw.Flush()
	},
}

func init() {
	clientsCmd.AddCommand(clientsImportCmd, clientsListCmd)
	rootCmd.AddCommand(clientsCmd)
}
