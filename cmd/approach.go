package main

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/store"
)

var (
	approachName     string
	approachPrompt   string
	approachMinConf  int
	approachMaxCont  int
	approachSearches string
	approachActivate bool
)

var approachCmd = &cobra.Command{
	Use:   "approach",
	Short: "Manage the LLM search approach",
}

var approachSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Save a search approach",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		approach := &model.SearchApproach{
			Name:   approachName,
			Prompt: approachPrompt,
			Active: approachActivate,
			Config: model.ApproachConfig{
				MinConfidence: approachMinConf,
				MaxContacts:   approachMaxCont,
			},
		}
		if approachSearches != "" {
			approach.Config.EnabledSearches = strings.Split(approachSearches, ",")
		}

		if err := st.SaveSearchApproach(ctx, approach); err != nil {
			return err
		}
		zap.L().Info("search approach saved",
			zap.String("name", approach.Name),
			zap.Bool("active", approach.Active),
		)
		return nil
	},
}

var approachShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the active search approach",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		approach, err := st.GetActiveSearchApproach(ctx)
		if err != nil {
			if store.IsNotFound(err) {
				zap.L().Info("no active search approach; built-in tiers apply")
				return nil
			}
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(approach)
	},
}

func init() {
	approachSetCmd.Flags().StringVar(&approachName, "name", "", "approach name (required)")
	approachSetCmd.Flags().StringVar(&approachPrompt, "prompt", "", "prompt preamble for LLM queries")
	approachSetCmd.Flags().IntVar(&approachMinConf, "min-confidence", 30, "drop candidates below this confidence")
	approachSetCmd.Flags().IntVar(&approachMaxCont, "max-contacts", 10, "cap on candidates per discovery")
	approachSetCmd.Flags().StringVar(&approachSearches, "searches", "", "comma-separated role tiers to run (default all)")
	approachSetCmd.Flags().BoolVar(&approachActivate, "activate", false, "make this the active approach")
	_ = approachSetCmd.MarkFlagRequired("name")

	approachCmd.AddCommand(approachSetCmd)
	approachCmd.AddCommand(approachShowCmd)
	rootCmd.AddCommand(approachCmd)
}
