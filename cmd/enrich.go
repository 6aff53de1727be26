package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/enrich"
)

var enrichForce bool

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Run the tiered email search",
}

var enrichContactCmd = &cobra.Command{
	Use:   "contact <contact-id>",
	Short: "Enrich a single contact",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := env.Service.EnrichContact(ctx, args[0], enrich.Options{ForceRefresh: enrichForce})
		if err != nil {
			return err
		}

		zap.L().Info("enrichment complete",
			zap.String("contact", result.Contact.Name),
			zap.String("state", string(result.State)),
			zap.String("email", result.Contact.Email),
			zap.Int("probability", result.Contact.Probability),
			zap.Float64("spent_usd", result.SpentUSD),
		)
		return nil
	},
}

var enrichCompanyCmd = &cobra.Command{
	Use:   "company <company-id>",
	Short: "Enrich every contact at a company",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		results, err := env.Service.EnrichCompany(ctx, args[0], enrich.Options{ForceRefresh: enrichForce})
		if err != nil {
			return err
		}

		found := 0
		for _, r := range results {
			if r.State == enrich.StateFound {
				found++
			}
		}
		zap.L().Info("company enrichment complete",
			zap.String("company", args[0]),
			zap.Int("contacts", len(results)),
			zap.Int("found", found),
		)
		return nil
	},
}

func init() {
	enrichCmd.PersistentFlags().BoolVar(&enrichForce, "force", false, "re-run providers that already completed")
	enrichCmd.AddCommand(enrichContactCmd)
	enrichCmd.AddCommand(enrichCompanyCmd)
	rootCmd.AddCommand(enrichCmd)
}
