package alerts

import (
	"context"
	"fmt"

	"github.com/fleetorbit/fleetorbit-api/internal/models"
	"gorm.io/gorm"
)

// RuleScope is the account/customer boundary used to compute which equipment a
// rule can target. A non-empty AccountIDs list scopes to exactly those
// accounts (verified against CustomerID when one is set); with an empty list,
// a non-zero CustomerID fans out to every account under that customer.
type RuleScope struct {
	CustomerID uint64
	AccountIDs []int64
}

// EquipmentSelection carries the user's equipment picks. With SelectAll set,
// SelectedIDs are exclusions ("all except these"); otherwise they are the
// explicit inclusion list.
type EquipmentSelection struct {
	SelectedIDs []int64
	SelectAll   bool
}

// Resolver materializes the equipment_ids snapshot for rules.
type Resolver struct {
	db *gorm.DB
}

// NewResolver constructs a Resolver.
func NewResolver(db *gorm.DB) *Resolver {
	return &Resolver{db: db}
}

// ResolveEquipmentIDs computes the concrete equipment set a rule applies to.
//
// With SelectAll and a non-empty selection, the result is the in-scope set
// minus the selected exclusions. Without SelectAll, a non-empty selection is
// returned verbatim; no subset check against the in-scope set is performed.
// Otherwise the result is the full in-scope set when SelectAll is set, else
// empty.
func (r *Resolver) ResolveEquipmentIDs(ctx context.Context, scope RuleScope, sel EquipmentSelection) ([]int64, error) {
	selected := filterValidIDs(sel.SelectedIDs)

	if !sel.SelectAll && len(selected) > 0 {
		return selected, nil
	}

	inScope, err := r.inScopeEquipmentIDs(ctx, scope)
	if err != nil {
		return nil, err
	}

	if sel.SelectAll && len(selected) > 0 {
		excluded := make(map[int64]struct{}, len(selected))
		for _, id := range selected {
			excluded[id] = struct{}{}
		}
		out := make([]int64, 0, len(inScope))
		for _, id := range inScope {
			if _, skip := excluded[id]; !skip {
				out = append(out, id)
			}
		}
		return out, nil
	}

	if sel.SelectAll {
		return inScope, nil
	}
	return []int64{}, nil
}

// scopeAccountIDs resolves the scope to a concrete account ID list. An
// explicit AccountIDs list wins, narrowed to accounts the customer actually
// owns when a CustomerID is set; with no explicit list, the customer's full
// account set is used.
func (r *Resolver) scopeAccountIDs(ctx context.Context, scope RuleScope) ([]int64, error) {
	accountIDs := filterValidIDs(scope.AccountIDs)
	if len(accountIDs) > 0 {
		if scope.CustomerID == 0 {
			return accountIDs, nil
		}
		var owned []int64
		if errFind := r.db.WithContext(ctx).
			Model(&models.Account{}).
			Where("customer_id = ? AND id IN ?", scope.CustomerID, accountIDs).
			Pluck("id", &owned).Error; errFind != nil {
			return nil, fmt.Errorf("alerts: verify accounts for customer %d: %w", scope.CustomerID, errFind)
		}
		return owned, nil
	}
	if scope.CustomerID == 0 {
		return []int64{}, nil
	}
	if errFind := r.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("customer_id = ?", scope.CustomerID).
		Pluck("id", &accountIDs).Error; errFind != nil {
		return nil, fmt.Errorf("alerts: list accounts for customer %d: %w", scope.CustomerID, errFind)
	}
	return accountIDs, nil
}

// inScopeEquipmentIDs fetches every equipment ID assigned to the scope's
// accounts.
func (r *Resolver) inScopeEquipmentIDs(ctx context.Context, scope RuleScope) ([]int64, error) {
	accountIDs, err := r.scopeAccountIDs(ctx, scope)
	if err != nil {
		return nil, err
	}
	if len(accountIDs) == 0 {
		return []int64{}, nil
	}

	var equipmentIDs []int64
	if errFind := r.db.WithContext(ctx).
		Model(&models.EquipmentAssignment{}).
		Distinct("equipment_id").
		Where("account_id IN ?", accountIDs).
		Pluck("equipment_id", &equipmentIDs).Error; errFind != nil {
		return nil, fmt.Errorf("alerts: list equipment for accounts: %w", errFind)
	}
	return filterValidIDs(equipmentIDs), nil
}

// filterValidIDs drops IDs that fail numeric coercion (zero and negative
// values).
func filterValidIDs(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id > 0 {
			out = append(out, id)
		}
	}
	return out
}
