package model

import "time"

// ContactPatch is a partial update for a contact. Nil fields are left
// untouched.
type ContactPatch struct {
	Name              *string
	Role              *string
	Email             *string
	AlternateEmails   *[]string
	Phone             *string
	LinkedInURL       *string
	Probability       *int
	AIConfidence      *int
	UserScore         *int
	FeedbackCount     *int
	CompletedSearches *[]SearchTag
	LastValidatedAt   *time.Time
	LastEnrichedAt    *time.Time
}

// Apply copies the patch's set fields onto c and bumps UpdatedAt.
func (p ContactPatch) Apply(c *Contact, now time.Time) {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Role != nil {
		c.Role = *p.Role
	}
	if p.Email != nil {
		c.Email = *p.Email
	}
	if p.AlternateEmails != nil {
		c.AlternateEmails = *p.AlternateEmails
	}
	if p.Phone != nil {
		c.Phone = *p.Phone
	}
	if p.LinkedInURL != nil {
		c.LinkedInURL = *p.LinkedInURL
	}
	if p.Probability != nil {
		c.Probability = ClampScore(*p.Probability)
	}
	if p.AIConfidence != nil {
		c.AIConfidence = ClampScore(*p.AIConfidence)
	}
	if p.UserScore != nil {
		c.UserScore = ClampScore(*p.UserScore)
	}
	if p.FeedbackCount != nil {
		c.FeedbackCount = *p.FeedbackCount
	}
	if p.CompletedSearches != nil {
		c.CompletedSearches = *p.CompletedSearches
	}
	if p.LastValidatedAt != nil {
		c.LastValidatedAt = p.LastValidatedAt
	}
	if p.LastEnrichedAt != nil {
		c.LastEnrichedAt = p.LastEnrichedAt
	}
	c.UpdatedAt = now
}

// Ptr returns a pointer to v. Helper for building patches.
func Ptr[T any](v T) *T { return &v }
