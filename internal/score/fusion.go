// Package score folds AI-derived confidence and accumulated user feedback
// into the single probability displayed for a contact.
package score

import (
	"math"

	"github.com/sells-group/prospect-cli/internal/model"
)

const (
	// weightPerFeedback is how much each feedback event shifts weight from
	// the AI score toward the user score.
	weightPerFeedback = 0.2

	// maxUserWeight caps the user-feedback weight so the AI score is never
	// fully discounted.
	maxUserWeight = 0.8
)

// UserWeight returns the weight given to accumulated user feedback for the
// given feedback count: min(0.2 * count, 0.8).
func UserWeight(feedbackCount int) float64 {
	if feedbackCount <= 0 {
		return 0
	}
	w := weightPerFeedback * float64(feedbackCount)
	if w > maxUserWeight {
		return maxUserWeight
	}
	return w
}

// Combine fuses the AI confidence and the user-feedback score into one
// probability. Pure and idempotent: the same inputs always produce the
// same output. Inputs and the result are clamped to [0,100].
func Combine(aiScore, userScore, feedbackCount int) int {
	ai := float64(model.ClampScore(aiScore))
	user := float64(model.ClampScore(userScore))

	userW := UserWeight(feedbackCount)
	aiW := 1 - userW

	combined := int(math.Round(ai*aiW + user*userW))
	return model.ClampScore(combined)
}

// Recompute returns the contact's fused probability from its current
// scores without mutating it.
func Recompute(c *model.Contact) int {
	return Combine(c.AIConfidence, c.UserScore, c.FeedbackCount)
}

// ApplyFeedback folds one rating into a running-average user score.
// Returns the new user score and feedback count.
func ApplyFeedback(userScore, feedbackCount int, ft model.FeedbackType) (int, int) {
	total := userScore*feedbackCount + ft.Points()
	count := feedbackCount + 1
	avg := int(math.Round(float64(total) / float64(count)))
	return model.ClampScore(avg), count
}
