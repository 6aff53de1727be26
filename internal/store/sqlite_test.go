package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func seedCompany(t *testing.T, st *SQLiteStore) *model.Company {
	t.Helper()
	c, err := st.CreateCompany(context.Background(), &model.Company{
		Name:    "Teamshares",
		Website: "https://www.teamshares.com",
	})
	require.NoError(t, err)
	return c
}

func seedContact(t *testing.T, st *SQLiteStore, companyID, name string) *model.Contact {
	t.Helper()
	c, err := st.CreateContact(context.Background(), &model.Contact{
		CompanyID: companyID,
		Name:      name,
	})
	require.NoError(t, err)
	return c
}

func TestSQLite_CompanyRoundTrip(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	created := seedCompany(t, st)
	got, err := st.GetCompany(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Teamshares", got.Name)
	assert.Equal(t, "https://www.teamshares.com", got.Website)

	byName, err := st.FindCompanyByName(ctx, "teamshares")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byName.ID)
}

func TestSQLite_GetCompany_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetCompany(context.Background(), "nope")
	assert.True(t, IsNotFound(err))
}

func TestSQLite_ContactRoundTrip(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	co := seedCompany(t, st)
	created := seedContact(t, st, co.ID, "Alex Eu")

	got, err := st.GetContact(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alex Eu", got.Name)
	assert.Empty(t, got.Email)
	assert.Nil(t, got.CompletedSearches)
	assert.Nil(t, got.LastEnrichedAt)
}

func TestSQLite_UpdateContact_Patch(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	co := seedCompany(t, st)
	ct := seedContact(t, st, co.ID, "Alex Eu")

	now := time.Now().UTC().Truncate(time.Second)
	updated, err := st.UpdateContact(ctx, ct.ID, model.ContactPatch{
		Email:             model.Ptr("aeu@teamshares.com"),
		AIConfidence:      model.Ptr(85),
		Role:              model.Ptr("VP Sales"),
		CompletedSearches: model.Ptr([]model.SearchTag{model.SearchTagPattern, model.SearchTagHunter}),
		LastValidatedAt:   &now,
		LastEnrichedAt:    &now,
	})
	require.NoError(t, err)

	assert.Equal(t, "aeu@teamshares.com", updated.Email)
	assert.Equal(t, 85, updated.AIConfidence)
	assert.Equal(t, "VP Sales", updated.Role)
	assert.True(t, updated.HasSearch(model.SearchTagHunter))
	require.NotNil(t, updated.LastValidatedAt)
	assert.WithinDuration(t, now, *updated.LastValidatedAt, time.Second)

	// Untouched fields survive a later partial patch.
	updated, err = st.UpdateContact(ctx, ct.ID, model.ContactPatch{Phone: model.Ptr("+1 555 0100")})
	require.NoError(t, err)
	assert.Equal(t, "aeu@teamshares.com", updated.Email)
	assert.Equal(t, "+1 555 0100", updated.Phone)
}

func TestSQLite_UpdateContact_ClampsScores(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	co := seedCompany(t, st)
	ct := seedContact(t, st, co.ID, "Alex Eu")

	updated, err := st.UpdateContact(ctx, ct.ID, model.ContactPatch{
		AIConfidence: model.Ptr(150),
		UserScore:    model.Ptr(-5),
	})
	require.NoError(t, err)
	assert.Equal(t, 100, updated.AIConfidence)
	assert.Equal(t, 0, updated.UserScore)
}

func TestSQLite_UpdateContact_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.UpdateContact(context.Background(), "nope", model.ContactPatch{
		Email: model.Ptr("x@y.com"),
	})
	assert.True(t, IsNotFound(err))
}

func TestSQLite_ListContacts_Filters(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	co := seedCompany(t, st)
	a := seedContact(t, st, co.ID, "Alex Eu")
	b := seedContact(t, st, co.ID, "Jane Doe")
	seedContact(t, st, co.ID, "No Email")

	_, err := st.UpdateContact(ctx, a.ID, model.ContactPatch{
		Email: model.Ptr("aeu@teamshares.com"), Probability: model.Ptr(85),
	})
	require.NoError(t, err)
	_, err = st.UpdateContact(ctx, b.ID, model.ContactPatch{
		Email: model.Ptr("jdoe@teamshares.com"), Probability: model.Ptr(40),
	})
	require.NoError(t, err)

	all, err := st.ListContacts(ctx, ContactFilter{CompanyID: co.ID})
	require.NoError(t, err)
	require.Len(t, all, 3)
	// Ordered by probability descending.
	assert.Equal(t, "Alex Eu", all[0].Name)

	withEmail, err := st.ListContacts(ctx, ContactFilter{CompanyID: co.ID, HasEmail: true})
	require.NoError(t, err)
	assert.Len(t, withEmail, 2)

	strong, err := st.ListContacts(ctx, ContactFilter{CompanyID: co.ID, MinProbability: 50})
	require.NoError(t, err)
	require.Len(t, strong, 1)
	assert.Equal(t, "Alex Eu", strong[0].Name)
}

func TestSQLite_DeleteContactsByCompany(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	co := seedCompany(t, st)
	seedContact(t, st, co.ID, "Alex Eu")
	seedContact(t, st, co.ID, "Jane Doe")

	n, err := st.DeleteContactsByCompany(ctx, co.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	remaining, err := st.ListContacts(ctx, ContactFilter{CompanyID: co.ID})
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestSQLite_Feedback_FusesScores(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	co := seedCompany(t, st)
	ct := seedContact(t, st, co.ID, "Alex Eu")
	_, err := st.UpdateContact(ctx, ct.ID, model.ContactPatch{
		AIConfidence: model.Ptr(70),
		Probability:  model.Ptr(70),
	})
	require.NoError(t, err)

	// Three excellent ratings: user score 100, weight 0.6.
	// 70*0.4 + 100*0.6 = 88.
	var updated *model.Contact
	for i := 0; i < 3; i++ {
		updated, err = st.AddContactFeedback(ctx, ct.ID, model.FeedbackExcellent)
		require.NoError(t, err)
	}
	assert.Equal(t, 100, updated.UserScore)
	assert.Equal(t, 3, updated.FeedbackCount)
	assert.Equal(t, 88, updated.Probability)

	events, err := st.ListContactFeedback(ctx, ct.ID)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, model.FeedbackExcellent, events[0].Type)
}

func TestSQLite_Feedback_InvalidType(t *testing.T) {
	st := newTestSQLiteStore(t)
	co := seedCompany(t, st)
	ct := seedContact(t, st, co.ID, "Alex Eu")

	_, err := st.AddContactFeedback(context.Background(), ct.ID, model.FeedbackType("meh"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid feedback type")
}

func TestSQLite_ConfirmedEmails(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	co := seedCompany(t, st)
	a := seedContact(t, st, co.ID, "Alex Eu")
	b := seedContact(t, st, co.ID, "Jane Doe")
	seedContact(t, st, co.ID, "No Email")

	_, err := st.UpdateContact(ctx, a.ID, model.ContactPatch{Email: model.Ptr("aeu@teamshares.com")})
	require.NoError(t, err)
	_, err = st.UpdateContact(ctx, b.ID, model.ContactPatch{Email: model.Ptr("jane@elsewhere.com")})
	require.NoError(t, err)

	examples, err := st.ConfirmedEmails(ctx, "teamshares.com")
	require.NoError(t, err)
	require.Len(t, examples, 1)
	assert.Equal(t, "Alex Eu", examples[0].Name)
	assert.Equal(t, "aeu@teamshares.com", examples[0].Email)
}

func TestSQLite_ExemplarSource(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	co := seedCompany(t, st)
	a := seedContact(t, st, co.ID, "Alex Eu")
	_, err := st.UpdateContact(ctx, a.ID, model.ContactPatch{Email: model.Ptr("aeu@teamshares.com")})
	require.NoError(t, err)

	src := ExemplarSource{Store: st}
	examples, err := src.Examples(ctx, "teamshares.com")
	require.NoError(t, err)
	assert.Len(t, examples, 1)
}

func TestSQLite_SearchApproach_SaveAndActivate(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.GetActiveSearchApproach(ctx)
	assert.True(t, IsNotFound(err))

	approach := &model.SearchApproach{
		Name:   "decision makers v1",
		Prompt: "identify who signs the contract",
		Active: true,
		Config: model.ApproachConfig{MinConfidence: 30, MaxContacts: 10},
	}
	require.NoError(t, st.SaveSearchApproach(ctx, approach))

	got, err := st.GetActiveSearchApproach(ctx)
	require.NoError(t, err)
	assert.Equal(t, "decision makers v1", got.Name)
	assert.Equal(t, 30, got.Config.MinConfidence)

	// Updating in place keeps a single row.
	got.Prompt = "identify the buying committee"
	require.NoError(t, st.SaveSearchApproach(ctx, got))

	again, err := st.GetActiveSearchApproach(ctx)
	require.NoError(t, err)
	assert.Equal(t, got.ID, again.ID)
	assert.Equal(t, "identify the buying committee", again.Prompt)
}
