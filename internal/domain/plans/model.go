package plans

type Plan struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Code     string `gorm:"column:code;not null;uniqueIndex:idx_plans_code" json:"code"` // "monthly" | "annual"
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Interval string `json:"interval"`
}
