package directory

import (
	"context"
	"net/mail"
	"sort"
	"strings"

	directorystore "approvals-backend/lib/directory/store"
	apperrors "approvals-backend/lib/utils/app-errors"
	"approvals-backend/models"
	dbmodels "approvals-backend/models/db"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
)

// User is the strict directory contract. Found is false for placeholders.
type User struct {
	ID          string
	DisplayName string
	Email       string
	Found       bool
}

func Placeholder(id string) User {
	return User{
		ID:          id,
		DisplayName: models.UnknownUserName,
	}
}

type Provider interface {
	// ResolveUsers returns one user per distinct id, in request order. Unknown ids get a
	// placeholder. On a lookup failure every id not served from the cache is a placeholder
	// and a GatewayError is returned alongside.
	ResolveUsers(ctx context.Context, ids []string) ([]User, error)
}

func NewHandler(store directorystore.Provider, cacheSize int) (Provider, error) {
	if cacheSize <= 0 {
		cacheSize = 1024
	}
	cache, err := lru.New[string, User](cacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create directory cache")
	}
	return &impl{
		store: store,
		cache: cache,
	}, nil
}

type impl struct {
	store directorystore.Provider
	cache *lru.Cache[string, User]
}

func (i impl) ResolveUsers(ctx context.Context, ids []string) ([]User, error) {
	ids = distinct(ids)
	resolved := make(map[string]User, len(ids))
	var missing []string
	for _, id := range ids {
		if user, ok := i.cache.Get(id); ok {
			resolved[id] = user
			continue
		}
		missing = append(missing, id)
	}

	var lookupErr error
	if len(missing) != 0 {
		list, err := i.store.FindByIDs(ctx, missing)
		if err != nil {
			lookupErr = apperrors.NewGatewayError("directory", err)
		}
		for _, rec := range list {
			user := Normalize(rec)
			i.cache.Add(user.ID, user)
			resolved[user.ID] = user
		}
	}

	result := make([]User, 0, len(ids))
	for _, id := range ids {
		user, ok := resolved[id]
		if !ok {
			user = Placeholder(id)
		}
		result = append(result, user)
	}
	return result, lookupErr
}

func distinct(ids []string) []string {
	seen := map[string]bool{}
	result := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		result = append(result, id)
	}
	return result
}

var preferredEmailKeys = []string{"email", "work_email", "mail"}

// Normalize maps a profile row of any historical shape onto the User contract.
func Normalize(rec dbmodels.DirectoryUser) User {
	user := User{
		ID:    rec.ID,
		Email: strings.TrimSpace(rec.Email),
		Found: true,
	}
	if user.Email == "" {
		user.Email = contactsEmail(rec.Contacts)
	}
	name := strings.TrimSpace(rec.FullName)
	if name == "" {
		name = strings.TrimSpace(strings.TrimSpace(rec.FirstName) + " " + strings.TrimSpace(rec.LastName))
	}
	switch {
	case name != "":
		user.DisplayName = name
	case user.Email != "":
		user.DisplayName = user.Email
	default:
		user.DisplayName = models.UnknownUserName
	}
	return user
}

func contactsEmail(contacts dbmodels.ProfileContacts) string {
	for _, key := range preferredEmailKeys {
		if value, ok := contacts[key].(string); ok && isEmail(value) {
			return strings.TrimSpace(value)
		}
	}
	keys := make([]string, 0, len(contacts))
	for key := range contacts {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if value, ok := contacts[key].(string); ok && isEmail(value) {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func isEmail(value string) bool {
	value = strings.TrimSpace(value)
	if !strings.Contains(value, "@") {
		return false
	}
	addr, err := mail.ParseAddress(value)
	return err == nil && addr.Address == value
}

// Index maps users by id.
func Index(users []User) map[string]User {
	result := make(map[string]User, len(users))
	for _, user := range users {
		result[user.ID] = user
	}
	return result
}
