package model

// Account identifies the signed-in operator.
type Account struct {
	Username     string
	HomeTenantID string
}

// Tenant is a directory the signed-in account can access
type Tenant struct {
	ID          string
	DisplayName string
	Domains     []string
}

// Subscription belongs to the selected tenant
type Subscription struct {
	ID          string
	DisplayName string
	TenantID    string
}
