package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/NXConner/blacktop-blueprint-ai-sub001/pkg/logger"
)

// Registry owns the chart of accounts: creation, hierarchy validation and
// lookup. It is the only component that mutates account metadata.
type Registry struct {
	repo Repository
	log  *logger.Logger
}

// NewRegistry creates a new account registry.
func NewRegistry(repo Repository, log *logger.Logger) *Registry {
	return &Registry{repo: repo, log: log}
}

// AccountSpec describes a new account.
type AccountSpec struct {
	Code     string
	Name     string
	Type     AccountType
	Category AccountCategory // defaulted from Type when empty
	ParentID *uuid.UUID
}

// AccountPatch describes an account update. Nil fields are left unchanged.
// Code and Type changes are rejected once any journal line references the
// account, since they would rewrite history.
type AccountPatch struct {
	Name     *string
	Code     *string
	Type     *AccountType
	Category *AccountCategory
	ParentID *uuid.UUID
	IsActive *bool
}

// CreateAccount creates an account after enforcing code uniqueness and
// parent/child type equality. Balances start at zero.
func (r *Registry) CreateAccount(ctx context.Context, spec AccountSpec) (*Account, error) {
	if spec.Category == "" {
		spec.Category = DefaultCategory(spec.Type)
	}

	account := &Account{
		ID:        uuid.New(),
		Code:      spec.Code,
		Name:      spec.Name,
		Type:      spec.Type,
		Category:  spec.Category,
		ParentID:  spec.ParentID,
		IsActive:  true,
		Balance:   decimal.Zero,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if err := account.Validate(); err != nil {
		return nil, err
	}

	if existing, err := r.repo.GetAccountByCode(ctx, spec.Code); err == nil && existing != nil {
		return nil, fmt.Errorf("code %q: %w", spec.Code, ErrDuplicateCode)
	} else if err != nil && !errors.Is(err, ErrAccountNotFound) {
		return nil, fmt.Errorf("failed to check code uniqueness: %w", err)
	}

	if spec.ParentID != nil {
		if err := r.validateParent(ctx, account.ID, *spec.ParentID, spec.Type); err != nil {
			return nil, err
		}
	}

	if err := r.repo.CreateAccount(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	r.log.WithContext(ctx).Info("account created",
		"account_id", account.ID,
		"code", account.Code,
		"type", string(account.Type),
	)

	return account, nil
}

// UpdateAccount applies a metadata patch to an account.
func (r *Registry) UpdateAccount(ctx context.Context, id uuid.UUID, patch AccountPatch) (*Account, error) {
	account, err := r.repo.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Code != nil || patch.Type != nil {
		referenced, err := r.repo.AccountHasLines(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to check account references: %w", err)
		}
		if referenced {
			return nil, ErrAccountReferenced
		}
	}

	if patch.Code != nil && *patch.Code != account.Code {
		if existing, err := r.repo.GetAccountByCode(ctx, *patch.Code); err == nil && existing != nil {
			return nil, fmt.Errorf("code %q: %w", *patch.Code, ErrDuplicateCode)
		} else if err != nil && !errors.Is(err, ErrAccountNotFound) {
			return nil, fmt.Errorf("failed to check code uniqueness: %w", err)
		}
		account.Code = *patch.Code
	}
	if patch.Type != nil {
		account.Type = *patch.Type
		if patch.Category == nil && account.Category.AccountType() != account.Type {
			account.Category = DefaultCategory(account.Type)
		}
	}
	if patch.Name != nil {
		account.Name = *patch.Name
	}
	if patch.Category != nil {
		account.Category = *patch.Category
	}
	if patch.IsActive != nil {
		account.IsActive = *patch.IsActive
	}
	if patch.ParentID != nil {
		if err := r.validateParent(ctx, account.ID, *patch.ParentID, account.Type); err != nil {
			return nil, err
		}
		account.ParentID = patch.ParentID
	}

	if err := account.Validate(); err != nil {
		return nil, err
	}

	account.UpdatedAt = time.Now()
	if err := r.repo.UpdateAccount(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to update account: %w", err)
	}

	return account, nil
}

// GetAccount retrieves an account by ID.
func (r *Registry) GetAccount(ctx context.Context, id uuid.UUID) (*Account, error) {
	return r.repo.GetAccount(ctx, id)
}

// GetByCode retrieves an account by its code.
func (r *Registry) GetByCode(ctx context.Context, code string) (*Account, error) {
	return r.repo.GetAccountByCode(ctx, code)
}

// GetByType lists accounts of one type.
func (r *Registry) GetByType(ctx context.Context, t AccountType) ([]*Account, error) {
	if !t.Valid() {
		return nil, ErrInvalidAccountType
	}
	return r.repo.ListAccountsByType(ctx, t)
}

// ListAccounts lists the full chart of accounts.
func (r *Registry) ListAccounts(ctx context.Context) ([]*Account, error) {
	return r.repo.ListAccounts(ctx)
}

// BootstrapChart idempotently seeds the standard chart of accounts.
// Already-existing codes are returned as warnings, never as errors, so the
// bootstrap can run on every deployment.
func (r *Registry) BootstrapChart(ctx context.Context) (created []string, warnings []string, err error) {
	for _, row := range StandardChart() {
		var parentID *uuid.UUID
		if row.ParentCode != "" {
			parent, err := r.repo.GetAccountByCode(ctx, row.ParentCode)
			if err != nil {
				if errors.Is(err, ErrAccountNotFound) {
					warnings = append(warnings, fmt.Sprintf("parent %s missing for %s, created top-level", row.ParentCode, row.Code))
				} else {
					return created, warnings, fmt.Errorf("failed to look up parent %s: %w", row.ParentCode, err)
				}
			} else {
				parentID = &parent.ID
			}
		}

		_, err := r.CreateAccount(ctx, AccountSpec{
			Code:     row.Code,
			Name:     row.Name,
			Type:     row.Type,
			Category: row.Category,
			ParentID: parentID,
		})
		if err != nil {
			if errors.Is(err, ErrDuplicateCode) {
				warnings = append(warnings, fmt.Sprintf("account %s already exists", row.Code))
				continue
			}
			return created, warnings, fmt.Errorf("failed to seed account %s: %w", row.Code, err)
		}
		created = append(created, row.Code)
	}

	r.log.WithContext(ctx).Info("chart of accounts bootstrapped",
		"created", len(created),
		"skipped", len(warnings),
	)

	return created, warnings, nil
}

// validateParent enforces parent existence, type equality and a cycle-free
// hierarchy before a parent assignment.
func (r *Registry) validateParent(ctx context.Context, childID, parentID uuid.UUID, childType AccountType) error {
	if parentID == childID {
		return ErrHierarchyCycle
	}

	parent, err := r.repo.GetAccount(ctx, parentID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return ErrParentNotFound
		}
		return fmt.Errorf("failed to load parent: %w", err)
	}

	if parent.Type != childType {
		return fmt.Errorf("parent %s is %s: %w", parent.Code, parent.Type, ErrInvalidParentType)
	}

	// Walk up from the proposed parent; reaching the child means the
	// assignment would close a loop.
	seen := map[uuid.UUID]bool{childID: true}
	current := parent
	for current.ParentID != nil {
		next := *current.ParentID
		if seen[next] {
			return ErrHierarchyCycle
		}
		seen[next] = true
		current, err = r.repo.GetAccount(ctx, next)
		if err != nil {
			return fmt.Errorf("failed to walk hierarchy: %w", err)
		}
	}

	return nil
}
