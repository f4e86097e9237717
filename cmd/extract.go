package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/salaheddineelazouti/Projet-innovation/internal/intake"
	"github.com/salaheddineelazouti/Projet-innovation/internal/store"
)

var (
	extractSave   bool
	extractNotify bool
)

var extractCmd = &cobra.Command{
	Use:   "extract <file>",
	Short: "Extract the order from a message file (YAML or JSON)",
	Long:  "Runs reorder detection, extraction and history fill on the messages of one file and prints the result as JSON. Nothing is stored unless --save is given.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		msgs, err := loadMessages(args[0])
		if err != nil {
			return err
		}

		env, err := initApp(ctx, "intake")
		if err != nil {
			return err
		}
		defer env.Close()

		var sink store.Store
		if extractSave {
			sink = env.Store
		}
		p := env.Processor(sink, extractSave && extractNotify)

		outs := make([]*intake.Outcome, 0, len(msgs))
		for _, m := range msgs {
			out, err := p.Handle(ctx, m)
			if err != nil {
				return err
			}
			outs = append(outs, out)
		}
		return writeOutcomesJSON(os.Stdout, outs)
	},
}

func init() {
	extractCmd.Flags().BoolVar(&extractSave, "save", false, "store extracted purchase orders")
	extractCmd.Flags().BoolVar(&extractNotify, "notify", false, "acknowledge senders (requires --save)")
	rootCmd.AddCommand(extractCmd)
}
