package users

import "time"

type MeResponse struct {
	User    UserDTO    `json:"user"`
	Billing BillingDTO `json:"billing"`
}

/* ---------- USER ---------- */

type UserDTO struct {
	ID           uint   `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	Lastname     string `json:"lastname"`
	Role         string `json:"role"`
	AccountClass string `json:"account_class"`
}

/* ---------- BILLING ---------- */

type BillingDTO struct {
	Plan               *PlanDTO         `json:"plan"`
	Subscription       *SubscriptionDTO `json:"subscription"`
	RequiresTaxReceipt bool             `json:"requires_tax_receipt"`
}

type PlanDTO struct {
	ID       uint   `json:"id"`
	Code     string `json:"code"`
	Name     string `json:"name"`
	Interval string `json:"interval"`
	Price    int64  `json:"price"`
}

type SubscriptionDTO struct {
	Status           string     `json:"status"`
	StartsAt         *time.Time `json:"starts_at"`
	CurrentPeriodEnd *time.Time `json:"current_period_end"`
	DaysLeft         int        `json:"days_left"`
}
