package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ardjee/forms/internal/fetcher"
	"github.com/ardjee/forms/internal/legacyimport"
)

var (
	importFile  string
	importForce bool
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import legacy installations from a CSV or XLSX export",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("import"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return eris.Wrap(err, "open store")
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate")
		}

		im := legacyimport.New(st, legacyimport.Options{
			BatchSize: cfg.Import.BatchSize,
			Force:     importForce,
			Source: fetcher.Options{
				CSV: fetcher.CSVOptions{
					Delimiter:  []rune(cfg.Import.Delimiter)[0],
					LazyQuotes: true,
					TrimSpace:  true,
				},
			},
		})

		res, err := im.ImportFile(ctx, importFile)
		if err != nil {
			return eris.Wrap(err, "import installations")
		}

		out := cmd.OutOrStdout()
		if res.AlreadyPopulated {
			fmt.Fprintf(out, "installations already imported (%s records); use --force to append\n",
				humanize.Comma(res.Existing))
			return nil
		}
		fmt.Fprintf(out, "imported %s of %s rows (%s skipped, %s failed)\n",
			humanize.Comma(int64(res.Imported)),
			humanize.Comma(int64(res.Rows)),
			humanize.Comma(int64(res.Skipped)),
			humanize.Comma(int64(res.Failed)),
		)
		zap.L().Info("import complete",
			zap.String("file", importFile),
			zap.Int("imported", res.Imported),
			zap.Int("skipped", res.Skipped),
			zap.Int("failed", res.Failed),
		)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importFile, "file", "", "path to the CSV or XLSX export (required)")
	importCmd.Flags().BoolVar(&importForce, "force", false, "append even when installations were already imported")
	_ = importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importCmd)
}
