package domain

// BootstrapData seeds an empty installation.
type BootstrapData struct {
	AdminUsername      string
	AdminEmail         string
	AdminPreferredName string
	AdminPassword      string
	ClientID           string
	ClientName         string
	ClientScopes       []string
	RedirectURIs       []string
	Roles              []RoleDefinition
}

type RoleDefinition struct {
	Name   string
	Scopes []string
}
