package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/salaheddineelazouti/Projet-innovation/internal/intake"
	"github.com/salaheddineelazouti/Projet-innovation/internal/model"
)

var (
	batchLimit       int
	batchConcurrency int
	batchNotify      bool
	batchJSON        bool
)

var batchCmd = &cobra.Command{
	Use:   "batch <dir>",
	Short: "Process every message file in a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		msgs, err := loadMessageDir(args[0])
		if err != nil {
			return err
		}
		msgs = applyLimit(msgs, batchLimit)
		if len(msgs) == 0 {
			zap.L().Info("no message files found", zap.String("dir", args[0]))
			return nil
		}

		env, err := initApp(ctx, "intake")
		if err != nil {
			return err
		}
		defer env.Close()

		concurrency := batchConcurrency
		if concurrency <= 0 {
			concurrency = cfg.Batch.MaxConcurrentMessages
		}

		outs, err := env.Processor(env.Store, batchNotify).ProcessBatch(ctx, msgs, concurrency)
		if err != nil {
			return eris.Wrap(err, "batch")
		}
		if n := failedCount(outs); n > 0 {
			zap.L().Warn("some messages could not be processed", zap.Int("failed", n), zap.Int("total", len(outs)))
		}

		if batchJSON {
			return writeOutcomesJSON(os.Stdout, outs)
		}
		formatOutcomes(os.Stdout, outs)
		return nil
	},
}

func applyLimit(msgs []model.Message, limit int) []model.Message {
	if limit > 0 && len(msgs) > limit {
		return msgs[:limit]
	}
	return msgs
}

// failedCount reports how many outcomes failed.
func failedCount(outs []*intake.Outcome) int {
	n := 0
	for _, o := range outs {
		if o.Status() == intake.StatusFailed {
			n++
		}
	}
	return n
}

func init() {
	batchCmd.Flags().IntVar(&batchLimit, "limit", 100, "max number of messages to process")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "messages processed in parallel (default from config)")
	batchCmd.Flags().BoolVar(&batchNotify, "notify", false, "acknowledge senders")
	batchCmd.Flags().BoolVar(&batchJSON, "json", false, "print outcomes as JSON")
	rootCmd.AddCommand(batchCmd)
}
