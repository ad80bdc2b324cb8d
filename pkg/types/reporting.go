package types

import "time"

// DashboardStats is a role-scoped set of counters
type DashboardStats struct {
	Role     UserRole       `json:"role"`
	Counters map[string]int `json:"counters"`
}

// AppointmentReport aggregates appointments over a date range
type AppointmentReport struct {
	From     time.Time      `json:"from"`
	To       time.Time      `json:"to"`
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"byStatus"`
	ByDoctor map[string]int `json:"byDoctor"`
}

// InventoryReport aggregates stock levels and value
type InventoryReport struct {
	Items           int                `json:"items"`
	TotalUnits      int                `json:"totalUnits"`
	TotalValue      float64            `json:"totalValue"`
	LowStock        int                `json:"lowStock"`
	Expired         int                `json:"expired"`
	ValueByCategory map[string]float64 `json:"valueByCategory"`
}
