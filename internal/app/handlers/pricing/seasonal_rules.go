package pricing

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"rentme/internal/app/access"
	"rentme/internal/app/commands"
	"rentme/internal/app/dto"
	"rentme/internal/app/handlers/support"
	"rentme/internal/app/queries"
	"rentme/internal/app/uow"
	domainpricing "rentme/internal/domain/pricing"
	domainproperty "rentme/internal/domain/property"
)

const (
	addSeasonalRuleKey    = "pricing.rules.add"
	removeSeasonalRuleKey = "pricing.rules.remove"
	listSeasonalRulesKey  = "pricing.rules.list"
)

var ErrRuleNotOwned = errors.New("pricing: seasonal rule belongs to another property")

type AddSeasonalRuleCommand struct {
	PropertyID string    `json:"-" validate:"required"`
	Name       string    `json:"name" validate:"required"`
	Start      time.Time `json:"start" validate:"required"`
	End        time.Time `json:"end" validate:"required"`
	Multiplier string    `json:"multiplier" validate:"required"`
}

func (c AddSeasonalRuleCommand) Key() string { return addSeasonalRuleKey }

func (c AddSeasonalRuleCommand) RequiredRoles() []access.Role {
	return []access.Role{access.RoleHost}
}

type AddSeasonalRuleHandler struct {
	Clock  support.Clock
	Logger *slog.Logger
}

func (h *AddSeasonalRuleHandler) Handle(ctx context.Context, cmd AddSeasonalRuleCommand) (dto.SeasonalRule, error) {
	unit, err := uow.Current(ctx)
	if err != nil {
		return dto.SeasonalRule{}, err
	}
	p, err := unit.Properties().ByID(ctx, domainproperty.PropertyID(cmd.PropertyID))
	if err != nil {
		return dto.SeasonalRule{}, err
	}
	if _, err := support.RequireHostOf(ctx, p); err != nil {
		return dto.SeasonalRule{}, err
	}
	multiplier, err := decimal.NewFromString(cmd.Multiplier)
	if err != nil {
		return dto.SeasonalRule{}, domainpricing.ErrInvalidMultiplier
	}
	rule, err := domainpricing.NewSeasonalRule(domainpricing.NewRuleParams{
		ID:         domainpricing.RuleID(uuid.NewString()),
		PropertyID: p.ID,
		Name:       cmd.Name,
		Start:      cmd.Start,
		End:        cmd.End,
		Multiplier: multiplier,
		Now:        h.Clock.Now(),
	})
	if err != nil {
		return dto.SeasonalRule{}, err
	}
	if err := unit.SeasonalRules().Save(ctx, rule); err != nil {
		return dto.SeasonalRule{}, err
	}
	if h.Logger != nil {
		h.Logger.Info("seasonal rule added", "property_id", p.ID, "rule_id", rule.ID, "multiplier", rule.Multiplier.String())
	}
	return dto.MapSeasonalRule(rule), nil
}

type RemoveSeasonalRuleCommand struct {
	PropertyID string `validate:"required"`
	RuleID     string `validate:"required"`
}

func (c RemoveSeasonalRuleCommand) Key() string { return removeSeasonalRuleKey }

func (c RemoveSeasonalRuleCommand) RequiredRoles() []access.Role {
	return []access.Role{access.RoleHost}
}

type RemoveSeasonalRuleHandler struct {
	Logger *slog.Logger
}

func (h *RemoveSeasonalRuleHandler) Handle(ctx context.Context, cmd RemoveSeasonalRuleCommand) (struct{}, error) {
	unit, err := uow.Current(ctx)
	if err != nil {
		return struct{}{}, err
	}
	p, err := unit.Properties().ByID(ctx, domainproperty.PropertyID(cmd.PropertyID))
	if err != nil {
		return struct{}{}, err
	}
	if _, err := support.RequireHostOf(ctx, p); err != nil {
		return struct{}{}, err
	}
	rule, err := unit.SeasonalRules().ByID(ctx, domainpricing.RuleID(cmd.RuleID))
	if err != nil {
		return struct{}{}, err
	}
	if rule.PropertyID != p.ID {
		return struct{}{}, ErrRuleNotOwned
	}
	if err := unit.SeasonalRules().Delete(ctx, rule.ID); err != nil {
		return struct{}{}, err
	}
	if h.Logger != nil {
		h.Logger.Info("seasonal rule removed", "property_id", p.ID, "rule_id", rule.ID)
	}
	return struct{}{}, nil
}

type ListSeasonalRulesQuery struct {
	PropertyID string `validate:"required"`
}

func (q ListSeasonalRulesQuery) Key() string { return listSeasonalRulesKey }

type ListSeasonalRulesHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListSeasonalRulesHandler) Handle(ctx context.Context, q ListSeasonalRulesQuery) (dto.SeasonalRuleCollection, error) {
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.SeasonalRuleCollection{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	rules, err := unit.SeasonalRules().ListByProperty(execCtx, domainproperty.PropertyID(q.PropertyID))
	if err != nil {
		return dto.SeasonalRuleCollection{}, err
	}
	sort.Slice(rules, func(i, j int) bool {
		return rules[i].Range.CheckIn.Before(rules[j].Range.CheckIn)
	})
	items := make([]dto.SeasonalRule, 0, len(rules))
	for _, r := range rules {
		items = append(items, dto.MapSeasonalRule(r))
	}
	return dto.SeasonalRuleCollection{Items: items}, nil
}

var _ commands.Handler[AddSeasonalRuleCommand, dto.SeasonalRule] = (*AddSeasonalRuleHandler)(nil)
var _ commands.Handler[RemoveSeasonalRuleCommand, struct{}] = (*RemoveSeasonalRuleHandler)(nil)
var _ queries.Handler[ListSeasonalRulesQuery, dto.SeasonalRuleCollection] = (*ListSeasonalRulesHandler)(nil)
