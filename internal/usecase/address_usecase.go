package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

type AddressDTO struct {
	ID         int64  `json:"id"`
	Label      string `json:"label"`
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	PostalCode string `json:"postal_code"`
	Prefecture string `json:"prefecture"`
	City       string `json:"city"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	IsDefault  bool   `json:"is_default"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at,omitempty"`
}

func toAddressDTO(a model.Address) AddressDTO {
	dto := AddressDTO{
		ID:         a.ID,
		Label:      a.Label,
		Name:       a.Name,
		Phone:      a.Phone,
		PostalCode: a.PostalCode,
		Prefecture: a.Prefecture,
		City:       a.City,
		Line1:      a.Line1,
		Line2:      a.Line2,
		IsDefault:  a.IsDefault,
		CreatedAt:  a.CreatedAt.Format(time.RFC3339),
	}
	if !a.UpdatedAt.IsZero() {
		dto.UpdatedAt = a.UpdatedAt.Format(time.RFC3339)
	}
	return dto
}

type AddressRequest struct {
	Label      string `json:"label" validate:"max=50"`
	Name       string `json:"name" validate:"required,max=255"`
	Phone      string `json:"phone" validate:"max=30"`
	PostalCode string `json:"postal_code" validate:"required,max=20"`
	Prefecture string `json:"prefecture" validate:"required,max=100"`
	City       string `json:"city" validate:"required,max=255"`
	Line1      string `json:"line1" validate:"required,max=255"`
	Line2      string `json:"line2" validate:"max=255"`
}

// 前後の空白を落としてから必須チェック
func (r AddressRequest) normalize() (model.Address, error) {
	a := model.Address{
		Label: strings.TrimSpace(r.Label),
		AddressSnapshot: model.AddressSnapshot{
			Name:       strings.TrimSpace(r.Name),
			Phone:      strings.TrimSpace(r.Phone),
			PostalCode: strings.TrimSpace(r.PostalCode),
			Prefecture: strings.TrimSpace(r.Prefecture),
			City:       strings.TrimSpace(r.City),
			Line1:      strings.TrimSpace(r.Line1),
			Line2:      strings.TrimSpace(r.Line2),
		},
	}
	if a.Name == "" || a.PostalCode == "" || a.Prefecture == "" || a.City == "" || a.Line1 == "" {
		return model.Address{}, NewValidationError("name, postal_code, prefecture, city and line1 are required")
	}
	return a, nil
}

// AddressUsecase は保存済み住所を扱う。
// 最初に登録した住所が既定になり、既定を消すと一番古い住所が繰り上がる。
type AddressUsecase struct {
	tx repo.TransactionManager
}

func NewAddressUsecase(tx repo.TransactionManager) *AddressUsecase {
	return &AddressUsecase{tx: tx}
}

func (u *AddressUsecase) List(ctx context.Context, p model.Principal) ([]AddressDTO, error) {
	if p.UserID <= 0 {
		return nil, NewUnauthorizedError()
	}

	out := []AddressDTO{}
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		list, err := r.Addresses().ListByUserID(ctx, p.UserID)
		if err != nil {
			return NewInternalError(err)
		}
		for _, a := range list {
			out = append(out, toAddressDTO(a))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (u *AddressUsecase) Create(ctx context.Context, p model.Principal, req AddressRequest) (AddressDTO, error) {
	if p.UserID <= 0 {
		return AddressDTO{}, NewUnauthorizedError()
	}
	a, err := req.normalize()
	if err != nil {
		return AddressDTO{}, err
	}
	a.UserID = p.UserID

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		existing, err := r.Addresses().ListByUserID(ctx, p.UserID)
		if err != nil {
			return NewInternalError(err)
		}
		a.IsDefault = len(existing) == 0

		a, err = r.Addresses().Create(ctx, a)
		if err != nil {
			return NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return AddressDTO{}, err
	}
	return toAddressDTO(a), nil
}

func (u *AddressUsecase) Update(ctx context.Context, p model.Principal, addressID int64, req AddressRequest) (AddressDTO, error) {
	in, err := req.normalize()
	if err != nil {
		return AddressDTO{}, err
	}

	var updated model.Address
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if _, err := ownedAddress(ctx, r, p, addressID); err != nil {
			return err
		}
		in.ID = addressID
		if err := r.Addresses().Update(ctx, in); err != nil {
			return mapAddressErr(err)
		}
		found, err := r.Addresses().FindByID(ctx, addressID)
		if err != nil {
			return mapAddressErr(err)
		}
		updated = found
		return nil
	})
	if err != nil {
		return AddressDTO{}, err
	}
	return toAddressDTO(updated), nil
}

func (u *AddressUsecase) Delete(ctx context.Context, p model.Principal, addressID int64) error {
	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		a, err := ownedAddress(ctx, r, p, addressID)
		if err != nil {
			return err
		}
		if err := r.Addresses().Delete(ctx, addressID); err != nil {
			return mapAddressErr(err)
		}
		if !a.IsDefault {
			return nil
		}

		// 既定の繰り上げ
		rest, err := r.Addresses().ListByUserID(ctx, p.UserID)
		if err != nil {
			return NewInternalError(err)
		}
		if len(rest) == 0 {
			return nil
		}
		if err := r.Addresses().MarkDefault(ctx, rest[0].ID); err != nil {
			return mapAddressErr(err)
		}
		return nil
	})
}

func (u *AddressUsecase) SetDefault(ctx context.Context, p model.Principal, addressID int64) (AddressDTO, error) {
	var a model.Address
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		var err error
		if a, err = ownedAddress(ctx, r, p, addressID); err != nil {
			return err
		}
		if a.IsDefault {
			return nil
		}
		if err := r.Addresses().ClearDefault(ctx, p.UserID); err != nil {
			return NewInternalError(err)
		}
		if err := r.Addresses().MarkDefault(ctx, addressID); err != nil {
			return mapAddressErr(err)
		}
		a.IsDefault = true
		return nil
	})
	if err != nil {
		return AddressDTO{}, err
	}
	return toAddressDTO(a), nil
}

// 存在しなければ404、他人のものなら403
func ownedAddress(ctx context.Context, r repo.TxRepos, p model.Principal, addressID int64) (model.Address, error) {
	if p.UserID <= 0 {
		return model.Address{}, NewUnauthorizedError()
	}
	if addressID <= 0 {
		return model.Address{}, NewValidationError("invalid address id")
	}
	a, err := r.Addresses().FindByID(ctx, addressID)
	if err != nil {
		return model.Address{}, mapAddressErr(err)
	}
	if !a.OwnedBy(p.UserID) {
		return model.Address{}, NewForbiddenError("address belongs to another user")
	}
	return a, nil
}

func mapAddressErr(err error) error {
	if errors.Is(err, repo.ErrNotFound) {
		return NewNotFoundError("address")
	}
	return NewInternalError(err)
}
