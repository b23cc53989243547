package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/hivecrm/contactbook/internal/domain"
	"github.com/hivecrm/contactbook/internal/repository"
)

// ContactsService implements the contact book operations on top of the
// contact repository. All reads and writes are scoped to the owner except
// the admin listing and delete paths.
type ContactsService struct {
	contacts  repository.ContactRepository
	snowflake *snowflake.Node
	logger    *zap.Logger
	tracer    trace.Tracer
}

// NewContactsService wires dependencies.
func NewContactsService(contacts repository.ContactRepository, node *snowflake.Node, logger *zap.Logger) *ContactsService {
	return &ContactsService{
		contacts:  contacts,
		snowflake: node,
		logger:    logger,
		tracer:    otel.Tracer("github.com/hivecrm/contactbook/internal/service"),
	}
}

// ParseIdentifier classifies a path identifier into exactly one lookup kind.
// Numeric identifiers address by ID, identifiers containing "@" by email,
// two-word identifiers by first and last name, anything else by first name.
func ParseIdentifier(identifier string) domain.ContactRef {
	identifier = strings.TrimSpace(identifier)

	if id, err := strconv.ParseInt(identifier, 10, 64); err == nil {
		return domain.ContactRef{Kind: domain.LookupByID, ID: id}
	}
	if strings.Contains(identifier, "@") {
		return domain.ContactRef{Kind: domain.LookupByEmail, Email: identifier}
	}
	if first, last, ok := strings.Cut(identifier, " "); ok {
		return domain.ContactRef{
			Kind:      domain.LookupByFullName,
			FirstName: strings.TrimSpace(first),
			LastName:  strings.TrimSpace(last),
		}
	}
	return domain.ContactRef{Kind: domain.LookupByFirstName, FirstName: identifier}
}

// Create stores a new contact owned by ownerID.
func (s *ContactsService) Create(ctx context.Context, ownerID int64, input ContactInput) (ContactView, error) {
	ctx, span := s.startSpan(ctx, "ContactsService.Create")
	defer span.End()

	contact := domain.Contact{
		ID:             s.snowflake.Generate().Int64(),
		OwnerID:        ownerID,
		FirstName:      strings.TrimSpace(input.FirstName),
		LastName:       strings.TrimSpace(input.LastName),
		Email:          normalizeEmail(input.Email),
		PhoneNumber:    strings.TrimSpace(input.PhoneNumber),
		Birthday:       input.Birthday,
		AdditionalInfo: input.AdditionalInfo,
	}

	created, err := s.contacts.Create(ctx, contact)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, domain.ErrEmailExists) {
			return ContactView{}, newAPIError("email_exists", "A contact with this email already exists.", http.StatusConflict)
		}
		return ContactView{}, fmt.Errorf("create contact: %w", err)
	}

	s.audit("contact.created", "contact_id", created.ID, "owner_id", ownerID)
	return newContactView(created), nil
}

// List returns a page of the owner's contacts.
func (s *ContactsService) List(ctx context.Context, ownerID int64, limit, offset int) ([]ContactView, error) {
	ctx, span := s.startSpan(ctx, "ContactsService.List")
	defer span.End()

	contacts, err := s.contacts.ListByOwner(ctx, ownerID, limit, offset)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	return newContactViews(contacts), nil
}

// ListAll returns a page across every owner. Role enforcement happens in the
// transport layer.
func (s *ContactsService) ListAll(ctx context.Context, limit, offset int) ([]ContactView, error) {
	ctx, span := s.startSpan(ctx, "ContactsService.ListAll")
	defer span.End()

	contacts, err := s.contacts.ListAll(ctx, limit, offset)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("list all contacts: %w", err)
	}
	return newContactViews(contacts), nil
}

// Search matches the query as a substring of first name, last name, or email
// within the owner's contacts.
func (s *ContactsService) Search(ctx context.Context, ownerID int64, query string) ([]ContactView, error) {
	ctx, span := s.startSpan(ctx, "ContactsService.Search")
	defer span.End()

	contacts, err := s.contacts.Search(ctx, ownerID, strings.TrimSpace(query))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("search contacts: %w", err)
	}
	return newContactViews(contacts), nil
}

// UpcomingBirthdays returns the owner's contacts whose birthday falls within
// the next `days` days, including year-end wrap.
func (s *ContactsService) UpcomingBirthdays(ctx context.Context, ownerID int64, days int) ([]ContactView, error) {
	ctx, span := s.startSpan(ctx, "ContactsService.UpcomingBirthdays")
	defer span.End()

	contacts, err := s.contacts.UpcomingBirthdays(ctx, ownerID, time.Now(), days)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("upcoming birthdays: %w", err)
	}
	return newContactViews(contacts), nil
}

// Update resolves the identifier against the owner's contacts and replaces
// the mutable fields in a single transaction.
func (s *ContactsService) Update(ctx context.Context, ownerID int64, identifier string, input ContactInput) (ContactView, error) {
	ctx, span := s.startSpan(ctx, "ContactsService.Update")
	defer span.End()

	ref := ParseIdentifier(identifier)
	update := domain.Contact{
		FirstName:      strings.TrimSpace(input.FirstName),
		LastName:       strings.TrimSpace(input.LastName),
		Email:          normalizeEmail(input.Email),
		PhoneNumber:    strings.TrimSpace(input.PhoneNumber),
		Birthday:       input.Birthday,
		AdditionalInfo: input.AdditionalInfo,
	}

	updated, err := s.contacts.Update(ctx, ownerID, ref, update)
	if err != nil {
		span.RecordError(err)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			return ContactView{}, newAPIError("contact_not_found", "Contact not found.", http.StatusNotFound)
		case errors.Is(err, domain.ErrEmailExists):
			return ContactView{}, newAPIError("email_exists", "A contact with this email already exists.", http.StatusConflict)
		}
		return ContactView{}, fmt.Errorf("update contact: %w", err)
	}

	s.audit("contact.updated", "contact_id", updated.ID, "owner_id", ownerID)
	return newContactView(updated), nil
}

// Delete removes a contact by ID regardless of owner. The route is admin
// only.
func (s *ContactsService) Delete(ctx context.Context, contactID int64) (ContactView, error) {
	ctx, span := s.startSpan(ctx, "ContactsService.Delete")
	defer span.End()

	contact, err := s.contacts.GetByID(ctx, contactID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ContactView{}, newAPIError("contact_not_found", "Contact not found.", http.StatusNotFound)
		}
		span.RecordError(err)
		return ContactView{}, fmt.Errorf("load contact: %w", err)
	}

	if err := s.contacts.Delete(ctx, contactID); err != nil {
		span.RecordError(err)
		if errors.Is(err, domain.ErrNotFound) {
			return ContactView{}, newAPIError("contact_not_found", "Contact not found.", http.StatusNotFound)
		}
		return ContactView{}, fmt.Errorf("delete contact: %w", err)
	}

	s.audit("contact.deleted", "contact_id", contactID)
	return newContactView(contact), nil
}

func (s *ContactsService) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if s == nil || s.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return s.tracer.Start(ctx, name)
}

func (s *ContactsService) audit(event string, attrs ...any) {
	logger := s.logger
	if logger == nil {
		logger = zap.L()
	}
	auditLog(logger, event, attrs...)
}
