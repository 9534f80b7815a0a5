package address

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kiranlabs/storefront-backend/pkg/db/models"
	pkgerrors "github.com/kiranlabs/storefront-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service manages a customer's address book.
type Service interface {
	List(ctx context.Context, userID uuid.UUID) ([]AddressDTO, error)
	Get(ctx context.Context, userID, addressID uuid.UUID) (*AddressDTO, error)
	Create(ctx context.Context, userID uuid.UUID, input Input) (*AddressDTO, error)
	Update(ctx context.Context, userID, addressID uuid.UUID, input Input) (*AddressDTO, error)
	Delete(ctx context.Context, userID, addressID uuid.UUID) error
	SetDefault(ctx context.Context, userID, addressID uuid.UUID) (*AddressDTO, error)
}

// Input is the validated payload to create or replace an address.
type Input struct {
	Name       string
	Phone      string
	Line1      string
	Line2      string
	City       string
	State      string
	PostalCode string
	Country    string
	IsDefault  bool
}

// AddressDTO is the address shape returned to handlers.
type AddressDTO struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Phone      string    `json:"phone"`
	Line1      string    `json:"line1"`
	Line2      string    `json:"line2,omitempty"`
	City       string    `json:"city"`
	State      string    `json:"state"`
	PostalCode string    `json:"postal_code"`
	Country    string    `json:"country"`
	IsDefault  bool      `json:"is_default"`
	CreatedAt  time.Time `json:"created_at"`
}

type service struct {
	repo *Repository
	tx   txRunner
}

// NewService constructs an address service instance.
func NewService(repo *Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("address repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]AddressDTO, error) {
	addrs, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list addresses")
	}
	out := make([]AddressDTO, 0, len(addrs))
	for i := range addrs {
		out = append(out, toAddressDTO(&addrs[i]))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, userID, addressID uuid.UUID) (*AddressDTO, error) {
	addr, err := s.findOwned(ctx, userID, addressID)
	if err != nil {
		return nil, err
	}
	dto := toAddressDTO(addr)
	return &dto, nil
}

func (s *service) Create(ctx context.Context, userID uuid.UUID, input Input) (*AddressDTO, error) {
	if err := validateInput(&input); err != nil {
		return nil, err
	}

	addr := &models.Address{
		UserID:     userID,
		Name:       input.Name,
		Phone:      input.Phone,
		Line1:      input.Line1,
		City:       input.City,
		State:      input.State,
		PostalCode: input.PostalCode,
		Country:    input.Country,
	}
	if input.Line2 != "" {
		line2 := input.Line2
		addr.Line2 = &line2
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		count, err := repo.CountByUser(ctx, userID)
		if err != nil {
			return err
		}
		// The first address is always the default.
		addr.IsDefault = input.IsDefault || count == 0
		if addr.IsDefault {
			if err := repo.ClearDefault(ctx, userID); err != nil {
				return err
			}
		}
		return repo.Create(ctx, addr)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create address")
	}
	dto := toAddressDTO(addr)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, userID, addressID uuid.UUID, input Input) (*AddressDTO, error) {
	if err := validateInput(&input); err != nil {
		return nil, err
	}

	addr, err := s.findOwned(ctx, userID, addressID)
	if err != nil {
		return nil, err
	}

	addr.Name = input.Name
	addr.Phone = input.Phone
	addr.Line1 = input.Line1
	addr.City = input.City
	addr.State = input.State
	addr.PostalCode = input.PostalCode
	addr.Country = input.Country
	addr.Line2 = nil
	if input.Line2 != "" {
		line2 := input.Line2
		addr.Line2 = &line2
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if input.IsDefault && !addr.IsDefault {
			if err := repo.ClearDefault(ctx, userID); err != nil {
				return err
			}
			addr.IsDefault = true
		}
		return repo.Update(ctx, addr)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update address")
	}
	dto := toAddressDTO(addr)
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, userID, addressID uuid.UUID) error {
	if err := s.repo.Delete(ctx, userID, addressID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete address")
	}
	return nil
}

func (s *service) SetDefault(ctx context.Context, userID, addressID uuid.UUID) (*AddressDTO, error) {
	addr, err := s.findOwned(ctx, userID, addressID)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.ClearDefault(ctx, userID); err != nil {
			return err
		}
		addr.IsDefault = true
		return repo.Update(ctx, addr)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "set default address")
	}
	dto := toAddressDTO(addr)
	return &dto, nil
}

func (s *service) findOwned(ctx context.Context, userID, addressID uuid.UUID) (*models.Address, error) {
	addr, err := s.repo.FindForUser(ctx, userID, addressID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load address")
	}
	return addr, nil
}

func validateInput(input *Input) error {
	input.Name = strings.TrimSpace(input.Name)
	input.Phone = strings.TrimSpace(input.Phone)
	input.Line1 = strings.TrimSpace(input.Line1)
	input.Line2 = strings.TrimSpace(input.Line2)
	input.City = strings.TrimSpace(input.City)
	input.State = strings.TrimSpace(input.State)
	input.PostalCode = strings.TrimSpace(input.PostalCode)
	input.Country = strings.ToUpper(strings.TrimSpace(input.Country))
	if input.Country == "" {
		input.Country = "IN"
	}

	missing := make([]string, 0, 6)
	for _, field := range []struct {
		name  string
		value string
	}{
		{"name", input.Name},
		{"phone", input.Phone},
		{"line1", input.Line1},
		{"city", input.City},
		{"state", input.State},
		{"postal_code", input.PostalCode},
	} {
		if field.value == "" {
			missing = append(missing, field.name)
		}
	}
	if len(missing) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "missing required address fields").
			WithDetails(map[string][]string{"missing": missing})
	}
	return nil
}

func toAddressDTO(addr *models.Address) AddressDTO {
	dto := AddressDTO{
		ID:         addr.ID,
		Name:       addr.Name,
		Phone:      addr.Phone,
		Line1:      addr.Line1,
		City:       addr.City,
		State:      addr.State,
		PostalCode: addr.PostalCode,
		Country:    addr.Country,
		IsDefault:  addr.IsDefault,
		CreatedAt:  addr.CreatedAt,
	}
	if addr.Line2 != nil {
		dto.Line2 = *addr.Line2
	}
	return dto
}
