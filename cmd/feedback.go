package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/model"
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback <contact-id> <excellent|ok|terrible>",
	Short: "Rate a contact's quality",
	Long:  "Records a rating for a contact. The running user score is averaged over all ratings and fused with the AI confidence into the displayed probability.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		contact, err := env.Service.AddFeedback(ctx, args[0], model.FeedbackType(args[1]))
		if err != nil {
			return err
		}

		zap.L().Info("feedback recorded",
			zap.String("contact", contact.Name),
			zap.Int("user_score", contact.UserScore),
			zap.Int("feedback_count", contact.FeedbackCount),
			zap.Int("probability", contact.Probability),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(feedbackCmd)
}
