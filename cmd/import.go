package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/importer"
	"github.com/sells-group/prospect-cli/internal/store"
)

var (
	importXLSXPath string
	importCSVPath  string
	importSheet    string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import companies and contacts from a spreadsheet",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if (importXLSXPath == "") == (importCSVPath == "") {
			return eris.New("exactly one of --xlsx or --csv is required")
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		var opts []importer.Option
		if pg, ok := st.(*store.PostgresStore); ok {
			opts = append(opts, importer.WithPool(pg.Pool()))
		}
		im := importer.New(st, opts...)

		var (
			summary *importer.Summary
			path    string
		)
		if importXLSXPath != "" {
			path = importXLSXPath
			summary, err = im.ImportXLSX(ctx, path, importer.XLSXOptions{SheetName: importSheet})
		} else {
			path = importCSVPath
			summary, err = im.ImportCSV(ctx, path, importer.CSVOptions{})
		}
		if err != nil {
			return err
		}

		zap.L().Info("import complete",
			zap.String("path", path),
			zap.Int("companies", summary.Companies),
			zap.Int("contacts", summary.Contacts),
			zap.Int("skipped", summary.Skipped),
		)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importXLSXPath, "xlsx", "", "path to XLSX file")
	importCmd.Flags().StringVar(&importCSVPath, "csv", "", "path to CSV file")
	importCmd.Flags().StringVar(&importSheet, "sheet", "", "sheet name (default first sheet)")
	rootCmd.AddCommand(importCmd)
}
