package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var discoverEnrich bool

var discoverCmd = &cobra.Command{
	Use:   "discover <company-id>",
	Short: "Find decision-makers at a company via LLM search",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("discover"); err != nil {
			return err
		}

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		created, err := env.Service.DiscoverContacts(ctx, args[0], discoverEnrich)
		if err != nil {
			return err
		}

		for _, c := range created {
			zap.L().Info("discovered contact",
				zap.String("name", c.Name),
				zap.String("role", c.Role),
				zap.Int("probability", c.Probability),
				zap.String("email", c.Email),
			)
		}
		zap.L().Info("discovery complete",
			zap.String("company", args[0]),
			zap.Int("created", len(created)),
		)
		return nil
	},
}

func init() {
	discoverCmd.Flags().BoolVar(&discoverEnrich, "enrich", false, "run the email search on each new contact")
	rootCmd.AddCommand(discoverCmd)
}
