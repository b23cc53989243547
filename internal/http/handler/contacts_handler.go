package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hivecrm/contactbook/internal/http/middleware"
	"github.com/hivecrm/contactbook/internal/service"
)

const birthdayLayout = "2006-01-02"

// ContactsHandler exposes the contact book endpoints.
type ContactsHandler struct {
	Contacts *service.ContactsService
}

// NewContactsHandler creates the handler set.
func NewContactsHandler(contacts *service.ContactsService) *ContactsHandler {
	return &ContactsHandler{Contacts: contacts}
}

type contactRequest struct {
	FirstName      string `json:"first_name" binding:"required"`
	LastName       string `json:"last_name" binding:"required"`
	Email          string `json:"email" binding:"required,email"`
	PhoneNumber    string `json:"phone_number" binding:"required"`
	Birthday       string `json:"birthday" binding:"required"`
	AdditionalInfo string `json:"additional_info"`
}

func (r contactRequest) toInput() (service.ContactInput, error) {
	birthday, err := time.Parse(birthdayLayout, r.Birthday)
	if err != nil {
		return service.ContactInput{}, err
	}
	return service.ContactInput{
		FirstName:      r.FirstName,
		LastName:       r.LastName,
		Email:          r.Email,
		PhoneNumber:    r.PhoneNumber,
		Birthday:       birthday,
		AdditionalInfo: r.AdditionalInfo,
	}, nil
}

// Create stores a new contact owned by the caller.
func (h *ContactsHandler) Create(c *gin.Context) {
	user, ok := middleware.GetUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_token", "error_description": "Authentication required."})
		return
	}

	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid_request", "error_description": "Invalid contact payload."})
		return
	}
	input, err := req.toInput()
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid_request", "error_description": "Birthday must be formatted as YYYY-MM-DD."})
		return
	}

	view, err := h.Contacts.Create(c.Request.Context(), user.ID, input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, view)
}

// List returns a page of the caller's contacts.
func (h *ContactsHandler) List(c *gin.Context) {
	user, ok := middleware.GetUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_token", "error_description": "Authentication required."})
		return
	}

	limit, offset := pagination(c)
	views, err := h.Contacts.List(c.Request.Context(), user.ID, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, views)
}

// ListAll returns a page of contacts across all owners.
func (h *ContactsHandler) ListAll(c *gin.Context) {
	limit, offset := pagination(c)
	views, err := h.Contacts.ListAll(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, views)
}

// Search matches the query against the caller's contacts.
func (h *ContactsHandler) Search(c *gin.Context) {
	user, ok := middleware.GetUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_token", "error_description": "Authentication required."})
		return
	}

	query := c.Query("query")
	if query == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid_request", "error_description": "Query parameter required."})
		return
	}

	views, err := h.Contacts.Search(c.Request.Context(), user.ID, query)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, views)
}

// UpcomingBirthdays lists the caller's contacts with a birthday in the
// next `days` days.
func (h *ContactsHandler) UpcomingBirthdays(c *gin.Context) {
	user, ok := middleware.GetUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_token", "error_description": "Authentication required."})
		return
	}

	days := 7
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid_request", "error_description": "days must be a non-negative integer."})
			return
		}
		days = parsed
	}

	views, err := h.Contacts.UpcomingBirthdays(c.Request.Context(), user.ID, days)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, views)
}

// Update replaces a contact addressed by ID, email, first name, or full name.
func (h *ContactsHandler) Update(c *gin.Context) {
	user, ok := middleware.GetUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_token", "error_description": "Authentication required."})
		return
	}

	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid_request", "error_description": "Invalid contact payload."})
		return
	}
	input, err := req.toInput()
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid_request", "error_description": "Birthday must be formatted as YYYY-MM-DD."})
		return
	}

	view, err := h.Contacts.Update(c.Request.Context(), user.ID, c.Param("identifier"), input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// Delete removes a contact by ID.
func (h *ContactsHandler) Delete(c *gin.Context) {
	contactID, err := strconv.ParseInt(c.Param("contact_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid_request", "error_description": "Contact ID must be an integer."})
		return
	}

	view, err := h.Contacts.Delete(c.Request.Context(), contactID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

func pagination(c *gin.Context) (limit, offset int) {
	limit = 10
	offset = 0
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if raw := c.Query("offset"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 0 {
			offset = parsed
		}
	}
	return limit, offset
}
