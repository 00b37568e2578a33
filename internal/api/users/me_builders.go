package users

import (
	"time"

	"marketplace-payments/internal/domain/plans"
	"marketplace-payments/internal/domain/users"
)

const (
	SubscriptionActive  = "active"
	SubscriptionExpired = "expired"
)

func BuildPlanDTO(p *plans.Plan) *PlanDTO {
	if p == nil {
		return nil
	}
	return &PlanDTO{
		ID:       p.ID,
		Code:     p.Code,
		Name:     p.Name,
		Interval: p.Interval,
		Price:    p.Price,
	}
}

func BuildSubscriptionDTO(now time.Time, u users.User) *SubscriptionDTO {
	if u.SubscriptionEnd == nil {
		return nil
	}

	status := SubscriptionExpired
	daysLeft := 0
	if now.Before(*u.SubscriptionEnd) {
		status = SubscriptionActive
		daysLeft = int(u.SubscriptionEnd.Sub(now).Hours() / 24)
	}

	return &SubscriptionDTO{
		Status:           status,
		StartsAt:         u.SubscriptionStart,
		CurrentPeriodEnd: u.SubscriptionEnd,
		DaysLeft:         daysLeft,
	}
}
