package service

import (
	"fmt"
	"net/http"
	"time"

	"github.com/hivecrm/contactbook/internal/domain"
)

// TokenPair is the login/refresh response payload.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// UserView is the outward representation of an account.
type UserView struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	IsActive bool   `json:"is_active"`
	Avatar   string `json:"avatar,omitempty"`
	Role     string `json:"role"`
}

// ContactView is the outward representation of a contact.
type ContactView struct {
	ID             int64  `json:"id"`
	OwnerID        int64  `json:"owner_id"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Email          string `json:"email"`
	PhoneNumber    string `json:"phone_number"`
	Birthday       string `json:"birthday"`
	AdditionalInfo string `json:"additional_info,omitempty"`
}

// RegisterInput carries a registration request.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	Role     string
}

// ContactInput carries the mutable contact fields for create and update.
type ContactInput struct {
	FirstName      string
	LastName       string
	Email          string
	PhoneNumber    string
	Birthday       time.Time
	AdditionalInfo string
}

// APIError is a transport-facing error with an HTTP status attached.
type APIError struct {
	Code        string
	Description string
	Status      int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

func newAPIError(code, desc string, status int) *APIError {
	return &APIError{Code: code, Description: desc, Status: status}
}

func errInvalidCredentials() *APIError {
	return newAPIError("invalid_credentials", "Could not validate credentials.", http.StatusUnauthorized)
}

func newUserView(u domain.User) UserView {
	return UserView{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		IsActive: u.IsActive,
		Avatar:   u.AvatarURL,
		Role:     u.RoleName,
	}
}

func newContactView(c domain.Contact) ContactView {
	return ContactView{
		ID:             c.ID,
		OwnerID:        c.OwnerID,
		FirstName:      c.FirstName,
		LastName:       c.LastName,
		Email:          c.Email,
		PhoneNumber:    c.PhoneNumber,
		Birthday:       c.Birthday.Format("2006-01-02"),
		AdditionalInfo: c.AdditionalInfo,
	}
}

func newContactViews(contacts []domain.Contact) []ContactView {
	views := make([]ContactView, 0, len(contacts))
	for _, c := range contacts {
		views = append(views, newContactView(c))
	}
	return views
}
