package service_test

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hivecrm/contactbook/internal/domain"
	"github.com/hivecrm/contactbook/internal/repository"
)

type memoryUserRepo struct {
	mu    sync.Mutex
	users map[int64]domain.User
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: make(map[int64]domain.User)}
}

func (r *memoryUserRepo) Create(_ context.Context, user domain.User) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return domain.User{}, domain.ErrEmailExists
		}
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	r.users[user.ID] = user
	return user, nil
}

func (r *memoryUserRepo) GetByEmail(_ context.Context, email string) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return domain.User{}, domain.ErrNotFound
}

func (r *memoryUserRepo) GetByID(_ context.Context, userID int64) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userID]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return user, nil
}

func (r *memoryUserRepo) Activate(_ context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userID]
	if !ok {
		return domain.ErrNotFound
	}
	user.IsActive = true
	r.users[userID] = user
	return nil
}

func (r *memoryUserRepo) UpdateAvatar(_ context.Context, email, url string) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, user := range r.users {
		if user.Email == email {
			user.AvatarURL = url
			r.users[id] = user
			return user, nil
		}
	}
	return domain.User{}, domain.ErrNotFound
}

type memoryRoleRepo struct {
	mu    sync.Mutex
	roles map[string]domain.Role
}

func newMemoryRoleRepo(roles ...domain.Role) *memoryRoleRepo {
	r := &memoryRoleRepo{roles: make(map[string]domain.Role)}
	for _, role := range roles {
		r.roles[role.Name] = role
	}
	return r
}

func (r *memoryRoleRepo) GetByName(_ context.Context, name string) (domain.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	role, ok := r.roles[name]
	if !ok {
		return domain.Role{}, domain.ErrNotFound
	}
	return role, nil
}

func (r *memoryRoleRepo) Ensure(_ context.Context, role domain.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.roles[role.Name]; !ok {
		r.roles[role.Name] = role
	}
	return nil
}

type memoryContactRepo struct {
	mu       sync.Mutex
	contacts map[int64]domain.Contact
}

func newMemoryContactRepo() *memoryContactRepo {
	return &memoryContactRepo{contacts: make(map[int64]domain.Contact)}
}

func (r *memoryContactRepo) Create(_ context.Context, contact domain.Contact) (domain.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.contacts {
		if existing.Email == contact.Email {
			return domain.Contact{}, domain.ErrEmailExists
		}
	}
	contact.CreatedAt = time.Now()
	contact.UpdatedAt = contact.CreatedAt
	r.contacts[contact.ID] = contact
	return contact, nil
}

func (r *memoryContactRepo) ListByOwner(_ context.Context, ownerID int64, limit, offset int) ([]domain.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Contact
	for _, contact := range r.contacts {
		if contact.OwnerID == ownerID {
			out = append(out, contact)
		}
	}
	return page(out, limit, offset), nil
}

func (r *memoryContactRepo) ListAll(_ context.Context, limit, offset int) ([]domain.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Contact
	for _, contact := range r.contacts {
		out = append(out, contact)
	}
	return page(out, limit, offset), nil
}

func (r *memoryContactRepo) Search(_ context.Context, ownerID int64, query string) ([]domain.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	query = strings.ToLower(query)
	var out []domain.Contact
	for _, contact := range r.contacts {
		if contact.OwnerID != ownerID {
			continue
		}
		if strings.Contains(strings.ToLower(contact.FirstName), query) ||
			strings.Contains(strings.ToLower(contact.LastName), query) ||
			strings.Contains(strings.ToLower(contact.Email), query) {
			out = append(out, contact)
		}
	}
	return out, nil
}

func (r *memoryContactRepo) GetByID(_ context.Context, contactID int64) (domain.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	contact, ok := r.contacts[contactID]
	if !ok {
		return domain.Contact{}, domain.ErrNotFound
	}
	return contact, nil
}

func (r *memoryContactRepo) Delete(_ context.Context, contactID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.contacts[contactID]; !ok {
		return domain.ErrNotFound
	}
	delete(r.contacts, contactID)
	return nil
}

func (r *memoryContactRepo) UpcomingBirthdays(_ context.Context, ownerID int64, now time.Time, days int) ([]domain.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	from, to, wraps := repository.BirthdayWindow(now, days)
	var out []domain.Contact
	for _, contact := range r.contacts {
		if contact.OwnerID != ownerID {
			continue
		}
		doy := contact.Birthday.YearDay()
		inWindow := doy >= from && doy <= to
		if wraps {
			inWindow = doy >= from || doy <= to
		}
		if inWindow {
			out = append(out, contact)
		}
	}
	return out, nil
}

func (r *memoryContactRepo) Find(_ context.Context, ownerID int64, ref domain.ContactRef) (domain.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findLocked(ownerID, ref)
}

func (r *memoryContactRepo) Update(_ context.Context, ownerID int64, ref domain.ContactRef, update domain.Contact) (domain.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	contact, err := r.findLocked(ownerID, ref)
	if err != nil {
		return domain.Contact{}, err
	}
	for _, other := range r.contacts {
		if other.Email == update.Email && other.ID != contact.ID {
			return domain.Contact{}, domain.ErrEmailExists
		}
	}
	contact.FirstName = update.FirstName
	contact.LastName = update.LastName
	contact.Email = update.Email
	contact.PhoneNumber = update.PhoneNumber
	contact.Birthday = update.Birthday
	contact.AdditionalInfo = update.AdditionalInfo
	contact.UpdatedAt = time.Now()
	r.contacts[contact.ID] = contact
	return contact, nil
}

func (r *memoryContactRepo) findLocked(ownerID int64, ref domain.ContactRef) (domain.Contact, error) {
	for _, contact := range r.contacts {
		if contact.OwnerID != ownerID {
			continue
		}
		switch ref.Kind {
		case domain.LookupByID:
			if contact.ID == ref.ID {
				return contact, nil
			}
		case domain.LookupByEmail:
			if contact.Email == ref.Email {
				return contact, nil
			}
		case domain.LookupByFirstName:
			if contact.FirstName == ref.FirstName {
				return contact, nil
			}
		case domain.LookupByFullName:
			if contact.FirstName == ref.FirstName && contact.LastName == ref.LastName {
				return contact, nil
			}
		}
	}
	return domain.Contact{}, domain.ErrNotFound
}

func page(contacts []domain.Contact, limit, offset int) []domain.Contact {
	if offset >= len(contacts) {
		return nil
	}
	contacts = contacts[offset:]
	if limit > 0 && limit < len(contacts) {
		contacts = contacts[:limit]
	}
	return contacts
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

type stubMailer struct {
	mu    sync.Mutex
	sent  []string
	links []string
}

func (m *stubMailer) SendVerification(_ context.Context, to, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, to)
	m.links = append(m.links, link)
	return nil
}

func (m *stubMailer) deliveries() ([]string, []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sent...), append([]string(nil), m.links...)
}

type stubImageStore struct {
	keys []string
}

func (s *stubImageStore) Upload(_ context.Context, key, _ string, _ []byte) (string, error) {
	s.keys = append(s.keys, key)
	return "https://cdn.example.com/" + key, nil
}
