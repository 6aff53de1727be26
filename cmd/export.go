package main

import (
	"os"

	gosf "github.com/k-capehart/go-salesforce/v3"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/export"
	"github.com/sells-group/prospect-cli/pkg/notion"
	"github.com/sells-group/prospect-cli/pkg/salesforce"
)

var (
	exportCompanyID string
	exportMinProb   int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Push enriched contacts to an external system",
}

var exportSalesforceCmd = &cobra.Command{
	Use:   "salesforce",
	Short: "Push a company's contacts as Salesforce Leads",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("export"); err != nil {
			return err
		}
		if cfg.Salesforce.ClientID == "" {
			return eris.New("salesforce.client_id is required (PROSPECT_SALESFORCE_CLIENT_ID)")
		}

		key, err := os.ReadFile(cfg.Salesforce.KeyPath)
		if err != nil {
			return eris.Wrap(err, "read salesforce key")
		}

		sf, err := gosf.Init(gosf.Creds{
			Domain:         cfg.Salesforce.LoginURL,
			Username:       cfg.Salesforce.Username,
			ConsumerKey:    cfg.Salesforce.ClientID,
			ConsumerRSAPem: string(key),
		})
		if err != nil {
			return eris.Wrap(err, "salesforce auth")
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		client := salesforce.NewClient(sf, salesforce.WithRateLimit(5))
		summary, err := export.NewSalesforce(client, st).ExportCompany(ctx, exportCompanyID, exportMinProb)
		if err != nil {
			return err
		}

		zap.L().Info("salesforce export complete",
			zap.Int("created", summary.Created),
			zap.Int("updated", summary.Updated),
			zap.Int("failed", summary.Failed),
		)
		return nil
	},
}

var exportNotionCmd = &cobra.Command{
	Use:   "notion",
	Short: "Push a company's contacts to a Notion database",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if cfg.Notion.Token == "" {
			return eris.New("notion token is required (PROSPECT_NOTION_TOKEN)")
		}
		if cfg.Notion.ContactsDB == "" {
			return eris.New("notion contacts DB ID is required (PROSPECT_NOTION_CONTACTS_DB)")
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		client := notion.NewClient(cfg.Notion.Token)
		summary, err := export.NewNotion(client, cfg.Notion.ContactsDB, st).ExportCompany(ctx, exportCompanyID, exportMinProb)
		if err != nil {
			return err
		}

		zap.L().Info("notion export complete",
			zap.Int("created", summary.Created),
			zap.Int("updated", summary.Updated),
			zap.Int("failed", summary.Failed),
		)
		return nil
	},
}

func init() {
	exportCmd.PersistentFlags().StringVar(&exportCompanyID, "company", "", "company id (required)")
	exportCmd.PersistentFlags().IntVar(&exportMinProb, "min-probability", 0, "export only contacts at or above this probability")
	_ = exportCmd.MarkPersistentFlagRequired("company")

	exportCmd.AddCommand(exportSalesforceCmd)
	exportCmd.AddCommand(exportNotionCmd)
	rootCmd.AddCommand(exportCmd)
}
