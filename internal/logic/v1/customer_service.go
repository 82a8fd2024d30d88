package v1

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/duynhne/customer-service/internal/core/domain"
	"github.com/duynhne/customer-service/middleware"
)

// CustomerService implements the customer operations on top of a domain.Table.
// It owns the mapping between wire payloads and stored attributes.
type CustomerService struct {
	table domain.Table
	clock func() time.Time
}

// NewCustomerService creates a new customer service
func NewCustomerService(table domain.Table) *CustomerService {
	return &CustomerService{
		table: table,
		clock: time.Now,
	}
}

// ListCustomers returns every stored customer in storage order
func (s *CustomerService) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	ctx, span := middleware.StartSpan(ctx, "customer.list", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	items, err := s.table.Scan(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("list customers: %w", err)
	}

	customers := make([]domain.Customer, 0, len(items))
	for _, item := range items {
		customers = append(customers, customerFromItem(item))
	}

	span.SetAttributes(attribute.Int("customers.count", len(customers)))
	return customers, nil
}

// GetCustomer retrieves a customer by ID
func (s *CustomerService) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	ctx, span := middleware.StartSpan(ctx, "customer.get", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.String("customer.id", id),
	))
	defer span.End()

	item, err := s.table.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrItemNotFound) {
			span.SetAttributes(attribute.Bool("customer.found", false))
			return nil, fmt.Errorf("get customer %q: %w", id, domain.ErrCustomerNotFound)
		}
		span.RecordError(err)
		return nil, fmt.Errorf("get customer %q: %w", id, err)
	}

	span.SetAttributes(attribute.Bool("customer.found", true))
	customer := customerFromItem(item)
	return &customer, nil
}

// CreateCustomer validates the payload, enforces uniqueness of customerId, email and
// userName, and stores the new customer with the never-updated sentinel.
//
// The uniqueness check and the put are not atomic: two concurrent creates with the
// same email can both succeed.
func (s *CustomerService) CreateCustomer(ctx context.Context, req domain.CreateCustomerRequest) (*domain.Customer, error) {
	ctx, span := middleware.StartSpan(ctx, "customer.create", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	if err := requireFields(
		field{domain.AttrCustomerID, req.CustomerID},
		field{domain.AttrFirstName, req.FirstName},
		field{domain.AttrLastName, req.LastName},
		field{domain.AttrEmail, req.Email},
		field{domain.AttrUserName, req.UserName},
		field{domain.AttrBirthDate, req.BirthDate},
		field{domain.AttrGender, req.Gender},
		field{domain.AttrPhoneNumber, req.PhoneNumber},
		field{domain.AttrProfilePhotoURL, req.ProfilePhotoURL},
	); err != nil {
		span.SetAttributes(attribute.Bool("request.valid", false))
		return nil, fmt.Errorf("create customer: %w", err)
	}

	customer := domain.Customer{
		CustomerID:      *req.CustomerID,
		FirstName:       *req.FirstName,
		LastName:        *req.LastName,
		Email:           *req.Email,
		UserName:        *req.UserName,
		BirthDate:       *req.BirthDate,
		Gender:          *req.Gender,
		PhoneNumber:     *req.PhoneNumber,
		CreatedDate:     s.now(),
		UpdatedDate:     domain.NeverUpdated,
		ProfilePhotoURL: *req.ProfilePhotoURL,
	}
	span.SetAttributes(attribute.String("customer.id", customer.CustomerID))

	unique, err := s.IsUnique(ctx, customer.CustomerID, customer.Email, customer.UserName)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("create customer %q: %w", customer.CustomerID, err)
	}
	if !unique {
		span.SetAttributes(attribute.Bool("customer.created", false))
		return nil, fmt.Errorf("create customer %q: %w", customer.CustomerID, domain.ErrCustomerExists)
	}

	if err := s.table.Put(ctx, itemFromCustomer(customer)); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("create customer %q: %w", customer.CustomerID, err)
	}

	span.SetAttributes(attribute.Bool("customer.created", true))
	span.AddEvent("customer.created")
	return &customer, nil
}

// UpdateCustomer replaces every scalar field and the whole address of an existing
// customer, refreshes updatedDate, and returns the stored attributes after the write.
func (s *CustomerService) UpdateCustomer(ctx context.Context, id string, req domain.UpdateCustomerRequest) (domain.Item, error) {
	ctx, span := middleware.StartSpan(ctx, "customer.update", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.String("customer.id", id),
	))
	defer span.End()

	if err := requireFields(
		field{domain.AttrFirstName, req.FirstName},
		field{domain.AttrLastName, req.LastName},
		field{domain.AttrEmail, req.Email},
		field{domain.AttrUserName, req.UserName},
		field{domain.AttrBirthDate, req.BirthDate},
		field{domain.AttrGender, req.Gender},
		field{domain.AttrPhoneNumber, req.PhoneNumber},
		field{domain.AttrProfilePhotoURL, req.ProfilePhotoURL},
		field{"address1", req.Address1},
		field{"address2", req.Address2},
		field{"city", req.City},
		field{"region", req.Region},
		field{"country", req.Country},
		field{"zipCode", req.ZipCode},
	); err != nil {
		span.SetAttributes(attribute.Bool("request.valid", false))
		return nil, fmt.Errorf("update customer %q: %w", id, err)
	}

	set := domain.Item{
		domain.AttrFirstName:       *req.FirstName,
		domain.AttrLastName:        *req.LastName,
		domain.AttrEmail:           *req.Email,
		domain.AttrUserName:        *req.UserName,
		domain.AttrBirthDate:       *req.BirthDate,
		domain.AttrGender:          *req.Gender,
		domain.AttrPhoneNumber:     *req.PhoneNumber,
		domain.AttrUpdatedDate:     s.now(),
		domain.AttrProfilePhotoURL: *req.ProfilePhotoURL,
		domain.AttrAddress: map[string]any{
			domain.AddrLine1:   *req.Address1,
			domain.AddrLine2:   *req.Address2,
			domain.AddrCity:    *req.City,
			domain.AddrState:   *req.Region,
			domain.AddrCountry: *req.Country,
			domain.AddrZipcode: *req.ZipCode,
		},
	}

	updated, err := s.table.Update(ctx, id, set)
	if err != nil {
		if errors.Is(err, domain.ErrConditionFailed) {
			span.SetAttributes(attribute.Bool("customer.found", false))
			return nil, fmt.Errorf("update customer %q: %w", id, domain.ErrCustomerNotFound)
		}
		span.RecordError(err)
		return nil, fmt.Errorf("update customer %q: %w", id, err)
	}

	span.SetAttributes(attribute.Bool("customer.updated", true))
	return updated, nil
}

// DeleteCustomer hard-deletes a customer and returns its ID
func (s *CustomerService) DeleteCustomer(ctx context.Context, id string) (string, error) {
	ctx, span := middleware.StartSpan(ctx, "customer.delete", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.String("customer.id", id),
	))
	defer span.End()

	if err := s.table.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrConditionFailed) {
			span.SetAttributes(attribute.Bool("customer.found", false))
			return "", fmt.Errorf("delete customer %q: %w", id, domain.ErrCustomerNotFound)
		}
		span.RecordError(err)
		return "", fmt.Errorf("delete customer %q: %w", id, err)
	}

	span.SetAttributes(attribute.Bool("customer.deleted", true))
	return id, nil
}

// IsUnique reports whether no stored customer has the given customerId, email or userName
func (s *CustomerService) IsUnique(ctx context.Context, id, email, userName string) (bool, error) {
	matches, err := s.table.Scan(ctx,
		domain.Condition{Attribute: domain.AttrCustomerID, Value: id},
		domain.Condition{Attribute: domain.AttrEmail, Value: email},
		domain.Condition{Attribute: domain.AttrUserName, Value: userName},
	)
	if err != nil {
		return false, fmt.Errorf("check uniqueness: %w", err)
	}
	return len(matches) == 0, nil
}

func (s *CustomerService) now() string {
	return s.clock().UTC().Format(domain.TimestampLayout)
}

type field struct {
	name  string
	value *string
}

// requireFields fails with ErrBadRequest naming every missing field.
// Empty strings are accepted.
func requireFields(fields ...field) error {
	var missing []string
	for _, f := range fields {
		if f.value == nil {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing fields [%s]: %w", strings.Join(missing, ", "), domain.ErrBadRequest)
	}
	return nil
}

func itemFromCustomer(c domain.Customer) domain.Item {
	return domain.Item{
		domain.AttrCustomerID:      c.CustomerID,
		domain.AttrFirstName:       c.FirstName,
		domain.AttrLastName:        c.LastName,
		domain.AttrEmail:           c.Email,
		domain.AttrUserName:        c.UserName,
		domain.AttrBirthDate:       c.BirthDate,
		domain.AttrGender:          c.Gender,
		domain.AttrPhoneNumber:     c.PhoneNumber,
		domain.AttrCreatedDate:     c.CreatedDate,
		domain.AttrUpdatedDate:     c.UpdatedDate,
		domain.AttrProfilePhotoURL: c.ProfilePhotoURL,
	}
}

// customerFromItem reshapes a stored item. The address is always present in the
// result: the stored sub-object when it has entries, otherwise empty.
func customerFromItem(item domain.Item) domain.Customer {
	address := domain.Address{}
	if stored, ok := item[domain.AttrAddress].(map[string]any); ok {
		for _, key := range domain.AddressKeys {
			if v, ok := stored[key]; ok {
				address[key] = stringValue(v)
			}
		}
	}

	return domain.Customer{
		CustomerID:      stringAttr(item, domain.AttrCustomerID),
		FirstName:       stringAttr(item, domain.AttrFirstName),
		LastName:        stringAttr(item, domain.AttrLastName),
		Email:           stringAttr(item, domain.AttrEmail),
		UserName:        stringAttr(item, domain.AttrUserName),
		BirthDate:       stringAttr(item, domain.AttrBirthDate),
		Gender:          stringAttr(item, domain.AttrGender),
		PhoneNumber:     stringAttr(item, domain.AttrPhoneNumber),
		CreatedDate:     stringAttr(item, domain.AttrCreatedDate),
		UpdatedDate:     stringAttr(item, domain.AttrUpdatedDate),
		ProfilePhotoURL: stringAttr(item, domain.AttrProfilePhotoURL),
		Address:         address,
	}
}

func stringAttr(item domain.Item, name string) string {
	v, ok := item[name]
	if !ok {
		return ""
	}
	return stringValue(v)
}

func stringValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
