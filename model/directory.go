package model

import "time"

// Application is an application registration in the directory
type Application struct {
	ObjectID    string
	ClientID    string
	DisplayName string
}

// ServicePrincipal is the runtime identity backing an application
// registration, used as the subject of role assignments and permission
// grants.
type ServicePrincipal struct {
	ObjectID    string
	ClientID    string
	DisplayName string
	AppRoles    []AppRole
}

// AppRole is a permission role exposed by a service principal
type AppRole struct {
	ID    string
	Value string
}

// Credential is a client secret on the application. Secret is only populated
// for credentials created in the current run; the directory never discloses
// the value again after creation.
type Credential struct {
	KeyID       string
	DisplayName string
	Secret      string
	Expires     time.Time
}
