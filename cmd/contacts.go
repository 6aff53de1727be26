package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/store"
)

var (
	contactsCompanyID  string
	contactsMinProb    int
	contactsHasEmail   bool
	contactsLimit      int
	companyName        string
	companyWebsite     string
	companyIndustry    string
)

var contactsCmd = &cobra.Command{
	Use:   "contacts",
	Short: "Inspect and manage stored contacts",
}

var contactsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List contacts, best first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		contacts, err := st.ListContacts(ctx, store.ContactFilter{
			CompanyID:      contactsCompanyID,
			MinProbability: contactsMinProb,
			HasEmail:       contactsHasEmail,
			Limit:          contactsLimit,
		})
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(contacts)
	},
}

var contactsDeleteCompanyCmd = &cobra.Command{
	Use:   "delete-company <company-id>",
	Short: "Delete every contact at a company",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		n, err := st.DeleteContactsByCompany(ctx, args[0])
		if err != nil {
			return err
		}
		zap.L().Info("contacts deleted", zap.String("company", args[0]), zap.Int("count", n))
		return nil
	},
}

var companyAddCmd = &cobra.Command{
	Use:   "add-company",
	Short: "Register a target company",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		company, err := st.CreateCompany(ctx, &model.Company{
			Name:     companyName,
			Website:  companyWebsite,
			Industry: companyIndustry,
		})
		if err != nil {
			return err
		}
		zap.L().Info("company created", zap.String("id", company.ID), zap.String("name", company.Name))
		return nil
	},
}

func init() {
	contactsListCmd.Flags().StringVar(&contactsCompanyID, "company", "", "filter by company id")
	contactsListCmd.Flags().IntVar(&contactsMinProb, "min-probability", 0, "minimum probability")
	contactsListCmd.Flags().BoolVar(&contactsHasEmail, "has-email", false, "only contacts with an email")
	contactsListCmd.Flags().IntVar(&contactsLimit, "limit", 0, "maximum rows")

	companyAddCmd.Flags().StringVar(&companyName, "name", "", "company name (required)")
	companyAddCmd.Flags().StringVar(&companyWebsite, "website", "", "company website")
	companyAddCmd.Flags().StringVar(&companyIndustry, "industry", "", "company industry")
	_ = companyAddCmd.MarkFlagRequired("name")

	contactsCmd.AddCommand(contactsListCmd)
	contactsCmd.AddCommand(contactsDeleteCompanyCmd)
	rootCmd.AddCommand(contactsCmd)
	rootCmd.AddCommand(companyAddCmd)
}
