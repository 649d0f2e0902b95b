package sources

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ogulcanaydogan/ad-spend-guardian/pkg/model"
	"gopkg.in/yaml.v3"
)

// Plan is a budget plan file:
//
//	default: 5000
//	budgets:
//	  "2026-10": 5271
//	  "2026-11": 6000
//	holidays:
//	  - "2026-11-26"
type Plan struct {
	Default  float64            `yaml:"default"`
	Budgets  map[string]float64 `yaml:"budgets"`
	Holidays []string           `yaml:"holidays"`
}

// LoadPlan reads and validates a YAML budget plan file.
func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan file %s: %w", path, err)
	}

	plan, err := LoadPlanFromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("plan file %s: %w", path, err)
	}
	return plan, nil
}

// LoadPlanFromBytes parses and validates YAML plan data.
func LoadPlanFromBytes(data []byte) (*Plan, error) {
	var plan Plan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("parse plan data: %w", err)
	}

	if plan.Default < 0 {
		return nil, fmt.Errorf("negative default budget %.2f", plan.Default)
	}
	for period, amount := range plan.Budgets {
		if _, _, err := model.PeriodBounds(period); err != nil {
			return nil, err
		}
		if amount < 0 {
			return nil, fmt.Errorf("negative budget %.2f for %s", amount, period)
		}
	}
	if _, err := model.ParseHolidays(plan.Holidays); err != nil {
		return nil, err
	}
	return &plan, nil
}

// ErrNoBudget is returned when no budget is planned for a period.
var ErrNoBudget = errors.New("no budget planned")

// MonthlyBudget implements BudgetSource. Periods without an explicit
// entry fall back to the default.
func (p *Plan) MonthlyBudget(_ context.Context, period string) (float64, error) {
	if amount, ok := p.Budgets[period]; ok {
		return amount, nil
	}
	if p.Default > 0 {
		return p.Default, nil
	}
	return 0, fmt.Errorf("period %s: %w", period, ErrNoBudget)
}

// FirstBudget returns a BudgetSource that asks each source in turn and
// answers with the first success.
func FirstBudget(srcs ...BudgetSource) BudgetSource {
	return budgetChain(srcs)
}

type budgetChain []BudgetSource

func (c budgetChain) MonthlyBudget(ctx context.Context, period string) (float64, error) {
	var errs []error
	for _, src := range c {
		amount, err := src.MonthlyBudget(ctx, period)
		if err == nil {
			return amount, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return 0, fmt.Errorf("period %s: %w", period, ErrNoBudget)
	}
	return 0, errors.Join(errs...)
}
