package model

import "time"

// ProvisionResult carries everything the operator hands to the Spotto AI
// platform after a run, plus the per-step outcome tallies for the summary.
type ProvisionResult struct {
	TenantID      string
	ClientID      string
	Secret        string
	SecretReused  bool
	SecretExpires time.Time

	Readers      StepSummary
	TenantRoles  StepSummary
	CustomRole   StepSummary
	GraphGranted bool
}
