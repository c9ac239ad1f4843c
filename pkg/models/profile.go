package models

import "time"

// Profile types. "other" covers URLs whose scheme is not recognized.
const (
	ProfileTypePostgreSQL = "postgresql"
	ProfileTypeMySQL      = "mysql"
	ProfileTypeMongoDB    = "mongodb"
	ProfileTypeOther      = "other"
)

// DatabaseProfile is a named, saved connection string.
// LastTested and IsConnected are only set by a connectivity check.
type DatabaseProfile struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	DatabaseURL string     `json:"databaseUrl"`
	Type        string     `json:"type"`
	LastTested  *time.Time `json:"lastTested,omitempty"`
	IsConnected *bool      `json:"isConnected,omitempty"`
}

// NewProfile holds the caller-supplied fields of a profile being added.
// An empty Type is inferred from DatabaseURL.
type NewProfile struct {
	Name        string `json:"name"`
	DatabaseURL string `json:"databaseUrl"`
	Type        string `json:"type,omitempty"`
}

// ProfileUpdate is a partial update; nil fields are left unchanged.
type ProfileUpdate struct {
	Name        *string    `json:"name,omitempty"`
	DatabaseURL *string    `json:"databaseUrl,omitempty"`
	Type        *string    `json:"type,omitempty"`
	LastTested  *time.Time `json:"lastTested,omitempty"`
	IsConnected *bool      `json:"isConnected,omitempty"`
}

// Apply copies the supplied fields onto p.
func (u ProfileUpdate) Apply(p *DatabaseProfile) {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.DatabaseURL != nil {
		p.DatabaseURL = *u.DatabaseURL
	}
	if u.Type != nil {
		p.Type = *u.Type
	}
	if u.LastTested != nil {
		t := *u.LastTested
		p.LastTested = &t
	}
	if u.IsConnected != nil {
		c := *u.IsConnected
		p.IsConnected = &c
	}
}

// Clone returns a deep copy.
func (p DatabaseProfile) Clone() DatabaseProfile {
	if p.LastTested != nil {
		t := *p.LastTested
		p.LastTested = &t
	}
	if p.IsConnected != nil {
		c := *p.IsConnected
		p.IsConnected = &c
	}
	return p
}
