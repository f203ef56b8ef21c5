package directory

import (
	"context"
	"testing"

	apperrors "approvals-backend/lib/utils/app-errors"
	"approvals-backend/models"
	dbmodels "approvals-backend/models/db"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	findByIDs func(ctx context.Context, ids []string) ([]dbmodels.DirectoryUser, error)
	calls     [][]string
}

func (f *fakeStore) FindByIDs(ctx context.Context, ids []string) ([]dbmodels.DirectoryUser, error) {
	f.calls = append(f.calls, ids)
	return f.findByIDs(ctx, ids)
}

func profiles() map[string]dbmodels.DirectoryUser {
	return map[string]dbmodels.DirectoryUser{
		"A": {ID: "A", FirstName: "Anna", LastName: "Smith", Email: "anna@example.com"},
		"B": {ID: "B", FullName: "Bob Builder", Contacts: dbmodels.ProfileContacts{"phone": "+100", "email": "bob@example.com"}},
		"C": {ID: "C", Contacts: dbmodels.ProfileContacts{"notes": "call later", "backup": "carol@example.com"}},
	}
}

func TestResolveUsers(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{
		findByIDs: func(_ context.Context, ids []string) ([]dbmodels.DirectoryUser, error) {
			var result []dbmodels.DirectoryUser
			for _, id := range ids {
				if rec, ok := profiles()[id]; ok {
					result = append(result, rec)
				}
			}
			return result, nil
		},
	}
	handler, err := NewHandler(store, 16)
	require.Nil(t, err)

	t.Run(`legacy shapes are normalized`, func(t *testing.T) {
		users, err := handler.ResolveUsers(ctx, []string{"A", "B", "C", "A", "GHOST"})
		require.Nil(t, err)
		require.Len(t, users, 4)
		require.Equal(t, User{ID: "A", DisplayName: "Anna Smith", Email: "anna@example.com", Found: true}, users[0])
		require.Equal(t, User{ID: "B", DisplayName: "Bob Builder", Email: "bob@example.com", Found: true}, users[1])
		require.Equal(t, User{ID: "C", DisplayName: "carol@example.com", Email: "carol@example.com", Found: true}, users[2])
		require.Equal(t, Placeholder("GHOST"), users[3])
		require.Equal(t, models.UnknownUserName, users[3].DisplayName)
	})

	t.Run(`found users are cached`, func(t *testing.T) {
		store.calls = nil
		_, err := handler.ResolveUsers(ctx, []string{"A", "B"})
		require.Nil(t, err)
		require.Empty(t, store.calls)

		_, err = handler.ResolveUsers(ctx, []string{"A", "GHOST"})
		require.Nil(t, err)
		require.Equal(t, [][]string{{"GHOST"}}, store.calls)
	})
}

func TestResolveUsersFailure(t *testing.T) {
	store := &fakeStore{
		findByIDs: func(context.Context, []string) ([]dbmodels.DirectoryUser, error) {
			return nil, errors.New("connection refused")
		},
	}
	handler, err := NewHandler(store, 0)
	require.Nil(t, err)

	users, err := handler.ResolveUsers(context.Background(), []string{"A", "B"})
	require.True(t, apperrors.IsGateway(err))
	require.Equal(t, []User{Placeholder("A"), Placeholder("B")}, users)
}

func TestNormalize(t *testing.T) {
	user := Normalize(dbmodels.DirectoryUser{ID: "X", Contacts: dbmodels.ProfileContacts{"email": "not an email"}})
	require.Equal(t, "", user.Email)
	require.Equal(t, models.UnknownUserName, user.DisplayName)
	require.True(t, user.Found)
}
