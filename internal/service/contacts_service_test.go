package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hivecrm/contactbook/internal/domain"
	"github.com/hivecrm/contactbook/internal/service"
)

func newContactsFixture(t *testing.T) (*service.ContactsService, *memoryContactRepo) {
	t.Helper()

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)

	repo := newMemoryContactRepo()
	return service.NewContactsService(repo, node, zap.NewNop()), repo
}

func birthday(month time.Month, day int) time.Time {
	return time.Date(1990, month, day, 0, 0, 0, 0, time.UTC)
}

func TestParseIdentifier(t *testing.T) {
	tests := []struct {
		name       string
		identifier string
		want       domain.ContactRef
	}{
		{"numeric is id", "42", domain.ContactRef{Kind: domain.LookupByID, ID: 42}},
		{"at sign is email", "jane@example.com", domain.ContactRef{Kind: domain.LookupByEmail, Email: "jane@example.com"}},
		{"two words is full name", "Jane Doe", domain.ContactRef{Kind: domain.LookupByFullName, FirstName: "Jane", LastName: "Doe"}},
		{"single word is first name", "Jane", domain.ContactRef{Kind: domain.LookupByFirstName, FirstName: "Jane"}},
		{"padding is trimmed", "  7 ", domain.ContactRef{Kind: domain.LookupByID, ID: 7}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, service.ParseIdentifier(tc.identifier))
		})
	}
}

func TestCreateAndListScopedToOwner(t *testing.T) {
	svc, _ := newContactsFixture(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, 1, service.ContactInput{FirstName: "Jane", LastName: "Doe", Email: "jane@example.com", PhoneNumber: "111", Birthday: birthday(time.June, 1)})
	require.NoError(t, err)
	_, err = svc.Create(ctx, 2, service.ContactInput{FirstName: "John", LastName: "Roe", Email: "john@example.com", PhoneNumber: "222", Birthday: birthday(time.July, 2)})
	require.NoError(t, err)

	mine, err := svc.List(ctx, 1, 10, 0)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "jane@example.com", mine[0].Email)
	assert.Equal(t, "1990-06-01", mine[0].Birthday)

	all, err := svc.ListAll(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestCreateDuplicateEmailConflicts(t *testing.T) {
	svc, _ := newContactsFixture(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, 1, service.ContactInput{FirstName: "Jane", LastName: "Doe", Email: "jane@example.com", Birthday: birthday(time.June, 1)})
	require.NoError(t, err)

	_, err = svc.Create(ctx, 1, service.ContactInput{FirstName: "Janet", LastName: "Doe", Email: "jane@example.com", Birthday: birthday(time.June, 2)})
	var apiErr *service.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 409, apiErr.Status)
}

func TestSearchIsOwnerScoped(t *testing.T) {
	svc, _ := newContactsFixture(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, 1, service.ContactInput{FirstName: "Jane", LastName: "Doe", Email: "jane@example.com", Birthday: birthday(time.June, 1)})
	require.NoError(t, err)
	_, err = svc.Create(ctx, 2, service.ContactInput{FirstName: "Janet", LastName: "Doe", Email: "janet@example.com", Birthday: birthday(time.June, 2)})
	require.NoError(t, err)

	found, err := svc.Search(ctx, 1, "jan")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "jane@example.com", found[0].Email)

	none, err := svc.Search(ctx, 1, "zzz")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestUpcomingBirthdaysWithinWindow(t *testing.T) {
	svc, _ := newContactsFixture(t)
	ctx := context.Background()

	now := time.Now()
	soon := now.AddDate(-30, 0, 3)
	far := now.AddDate(-30, 0, 40)

	_, err := svc.Create(ctx, 1, service.ContactInput{FirstName: "Soon", LastName: "Bday", Email: "soon@example.com", Birthday: soon})
	require.NoError(t, err)
	_, err = svc.Create(ctx, 1, service.ContactInput{FirstName: "Far", LastName: "Bday", Email: "far@example.com", Birthday: far})
	require.NoError(t, err)

	upcoming, err := svc.UpcomingBirthdays(ctx, 1, 7)
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.Equal(t, "soon@example.com", upcoming[0].Email)
}

func TestUpdateByEachIdentifierKind(t *testing.T) {
	svc, _ := newContactsFixture(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, 1, service.ContactInput{FirstName: "Jane", LastName: "Doe", Email: "jane@example.com", PhoneNumber: "111", Birthday: birthday(time.June, 1)})
	require.NoError(t, err)

	update := service.ContactInput{FirstName: "Jane", LastName: "Doe", Email: "jane@example.com", PhoneNumber: "999", Birthday: birthday(time.June, 1)}

	for _, identifier := range []string{
		"jane@example.com",
		"Jane Doe",
		"Jane",
	} {
		view, err := svc.Update(ctx, 1, identifier, update)
		require.NoError(t, err, "identifier %q", identifier)
		assert.Equal(t, "999", view.PhoneNumber)
	}

	_, err = svc.Update(ctx, 1, "42", update)
	var apiErr *service.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 404, apiErr.Status)

	byID, err := svc.Update(ctx, 1, formatID(created.ID), update)
	require.NoError(t, err)
	assert.Equal(t, "999", byID.PhoneNumber)
}

func TestUpdateRejectsForeignContact(t *testing.T) {
	svc, _ := newContactsFixture(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, 1, service.ContactInput{FirstName: "Jane", LastName: "Doe", Email: "jane@example.com", Birthday: birthday(time.June, 1)})
	require.NoError(t, err)

	_, err = svc.Update(ctx, 2, formatID(created.ID), service.ContactInput{FirstName: "X", LastName: "Y", Email: "jane@example.com", Birthday: birthday(time.June, 1)})
	var apiErr *service.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 404, apiErr.Status)
}

func TestUpdateEmailCollisionConflicts(t *testing.T) {
	svc, _ := newContactsFixture(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, 1, service.ContactInput{FirstName: "Jane", LastName: "Doe", Email: "jane@example.com", Birthday: birthday(time.June, 1)})
	require.NoError(t, err)
	second, err := svc.Create(ctx, 1, service.ContactInput{FirstName: "John", LastName: "Roe", Email: "john@example.com", Birthday: birthday(time.July, 2)})
	require.NoError(t, err)

	_, err = svc.Update(ctx, 1, formatID(second.ID), service.ContactInput{FirstName: "John", LastName: "Roe", Email: "jane@example.com", Birthday: birthday(time.July, 2)})
	var apiErr *service.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 409, apiErr.Status)
}

func TestDeleteReturnsRemovedContact(t *testing.T) {
	svc, repo := newContactsFixture(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, 1, service.ContactInput{FirstName: "Jane", LastName: "Doe", Email: "jane@example.com", Birthday: birthday(time.June, 1)})
	require.NoError(t, err)

	removed, err := svc.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, removed.ID)

	_, err = repo.GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Delete(ctx, created.ID)
	var apiErr *service.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 404, apiErr.Status)
}
