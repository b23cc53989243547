package domain

import "time"

// Contact is an address-book entry owned by a single user. OwnerID is fixed
// at creation time; the email is unique across the whole table, not per owner.
type Contact struct {
	ID             int64
	OwnerID        int64
	FirstName      string
	LastName       string
	Email          string
	PhoneNumber    string
	Birthday       time.Time
	AdditionalInfo string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// LookupKind tags a contact lookup so the repository never has to guess what
// the identifier means.
type LookupKind int

const (
	LookupByID LookupKind = iota
	LookupByEmail
	LookupByFirstName
	LookupByFullName
)

// ContactRef is a tagged reference to a contact within one owner's list.
type ContactRef struct {
	Kind      LookupKind
	ID        int64
	Email     string
	FirstName string
	LastName  string
}
