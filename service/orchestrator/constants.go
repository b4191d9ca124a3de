package orchestrator

import "time"

// Identifiers the Spotto AI platform expects; these must not change without
// a matching platform-side release.
const (
	applicationDisplayName = "Spotto AI"
	credentialDisplayName  = "Spotto AI platform access"

	readerRoleName             = "Reader"
	reservationsReaderRoleName = "Reservations Reader"
	savingsPlanReaderRoleName  = "Savings plan Reader"

	reservationsScope = "/providers/Microsoft.Capacity"
	savingsPlansScope = "/providers/Microsoft.BillingBenefits"

	customRoleName        = "Spotto AI Writer"
	customRoleDescription = "Write actions Spotto AI uses to apply optimization recommendations."

	// Microsoft Graph's well-known application id and the app role granted
	// so the platform can read application metadata.
	graphAppID        = "00000003-0000-0000-c000-000000000000"
	graphAppRoleValue = "Application.Read.All"
)

// ReusedSecretSentinel is reported instead of a secret value when the
// operator reuses an existing credential; the directory never re-discloses
// secret values.
const ReusedSecretSentinel = "<existing secret reused - value not retrievable>"

// Bounds for the visibility polls after directory and role-definition
// writes, both of which propagate asynchronously.
const (
	directoryWaitInterval  = 5 * time.Second
	directoryWaitMax       = 60 * time.Second
	definitionWaitInterval = 3 * time.Second
	definitionWaitMax      = 30 * time.Second
)

var customRoleActions = []string{
	"Microsoft.Advisor/recommendations/write",
	"Microsoft.Advisor/suppressions/write",
	"Microsoft.Advisor/suppressions/delete",
	"Microsoft.Storage/storageAccounts/inventoryPolicies/read",
	"Microsoft.Storage/storageAccounts/inventoryPolicies/write",
}
