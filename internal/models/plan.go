package models

import (
	"fmt"
	"strings"
)

// Plan names a subscription tier.
type Plan string

const (
	PlanBasic      Plan = "Basic"
	PlanPro        Plan = "Pro"
	PlanEnterprise Plan = "Enterprise"
)

// PlanLimits captures the seat limit and quota totals granted by a plan.
type PlanLimits struct {
	Seats   int   `json:"seats"`
	Storage int64 `json:"storage"`
	Tokens  int64 `json:"tokens"`
	Prompts int64 `json:"prompts"`
}

var planCatalog = map[Plan]PlanLimits{
	PlanBasic:      {Seats: 5, Storage: 5, Tokens: 1000, Prompts: 3},
	PlanPro:        {Seats: 10, Storage: 10, Tokens: 2000, Prompts: 6},
	PlanEnterprise: {Seats: 15, Storage: 15, Tokens: 3000, Prompts: 9},
}

// Plans returns the catalog in ascending tier order.
func Plans() []Plan {
	return []Plan{PlanBasic, PlanPro, PlanEnterprise}
}

// ParsePlan resolves a plan name case-insensitively.
func ParsePlan(value string) (Plan, error) {
	value = strings.TrimSpace(value)
	for _, plan := range Plans() {
		if strings.EqualFold(string(plan), value) {
			return plan, nil
		}
	}
	return "", fmt.Errorf("unknown plan %q", value)
}

// Valid reports whether the plan is part of the catalog.
func (p Plan) Valid() bool {
	_, ok := planCatalog[p]
	return ok
}

// Limits returns the catalog entry for the plan.
func (p Plan) Limits() (PlanLimits, bool) {
	limits, ok := planCatalog[p]
	return limits, ok
}

// SeatLimit returns the maximum number of active seats, or zero for unknown plans.
func (p Plan) SeatLimit() int {
	return planCatalog[p].Seats
}
