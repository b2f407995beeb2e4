package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/reelindex/catalog-trust/internal/ingest"
)

var importCmd = &cobra.Command{
	Use:   "import <file.xlsx>",
	Short: "Import catalog records and signals from a spreadsheet",
	Long: `Load subjects (and optionally classification signals) from an XLSX
export into the store. Existing records with the same id are overwritten;
signals are appended.

The workbook needs a "Subjects" sheet with a header row; a "Signals" sheet is
picked up when present.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	f := importCmd.Flags()
	f.String("subjects-sheet", ingest.SubjectSheet, "name of the subjects sheet")
	f.String("signals-sheet", ingest.SignalSheet, "name of the signals sheet")

	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	path := args[0]
	subjectsSheet, _ := cmd.Flags().GetString("subjects-sheet")
	signalsSheet, _ := cmd.Flags().GetString("signals-sheet")

	subjects, err := ingest.ReadSubjects(path, subjectsSheet)
	if err != nil {
		return err
	}
	signals, err := ingest.ReadSignals(path, signalsSheet)
	if err != nil {
		return err
	}

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Migrate(ctx); err != nil {
		return eris.Wrap(err, "import: migrate")
	}

	log := zap.L().With(zap.String("command", "import"), zap.String("file", path))

	for _, subj := range subjects {
		if err := st.UpsertSubject(ctx, subj); err != nil {
			return err
		}
	}
	log.Info("subjects imported", zap.Int("count", len(subjects)))

	if err := st.AddSignals(ctx, signals); err != nil {
		return err
	}
	if len(signals) > 0 {
		log.Info("signals imported", zap.Int("count", len(signals)))
	}

	fmt.Printf("Imported %d subjects and %d signals from %s\n", len(subjects), len(signals), path)
	return nil
}
