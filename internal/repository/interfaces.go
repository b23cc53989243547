package repository

import (
	"context"
	"time"

	"github.com/hivecrm/contactbook/internal/domain"
)

// UserRepository exposes persistence for registered accounts.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	GetByID(ctx context.Context, userID int64) (domain.User, error)
	Activate(ctx context.Context, userID int64) error
	UpdateAvatar(ctx context.Context, email, url string) (domain.User, error)
}

// RoleRepository exposes the static role reference data.
type RoleRepository interface {
	GetByName(ctx context.Context, name string) (domain.Role, error)
	Ensure(ctx context.Context, role domain.Role) error
}

// ContactRepository exposes persistence and queries over address-book entries.
type ContactRepository interface {
	Create(ctx context.Context, contact domain.Contact) (domain.Contact, error)
	ListByOwner(ctx context.Context, ownerID int64, limit, offset int) ([]domain.Contact, error)
	ListAll(ctx context.Context, limit, offset int) ([]domain.Contact, error)
	Search(ctx context.Context, ownerID int64, query string) ([]domain.Contact, error)
	GetByID(ctx context.Context, contactID int64) (domain.Contact, error)
	Delete(ctx context.Context, contactID int64) error
	UpcomingBirthdays(ctx context.Context, ownerID int64, now time.Time, days int) ([]domain.Contact, error)
	Find(ctx context.Context, ownerID int64, ref domain.ContactRef) (domain.Contact, error)
	Update(ctx context.Context, ownerID int64, ref domain.ContactRef, update domain.Contact) (domain.Contact, error)
}
