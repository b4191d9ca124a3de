package model

// RoleDefinition describes a custom role in the tenant
type RoleDefinition struct {
	ID               string // full resource id
	Name             string // GUID segment of the id
	RoleName         string
	Description      string
	Actions          []string
	AssignableScopes []string
}

// StepSummary tallies one bulk assignment step
type StepSummary struct {
	Created int
	Skipped int
	Failed  int
}
