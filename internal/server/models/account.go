// Package models holds the entity records materialized from the log.
package models

// Account is one bank user, keyed by UID. The snapshot keeps at most one
// live record per UID; a register event for an existing UID replaces the
// record wholesale.
//
// JSON field names follow the historical topic format so that logs written
// by earlier versions of the system replay unchanged. SchemaVersion was
// added later and is absent on old records.
type Account struct {
	UID            string  `json:"uid"`
	Username       string  `json:"username"`
	CredentialHash string  `json:"password"`
	Email          string  `json:"email"`
	Phone          string  `json:"phone"`
	Role           string  `json:"role"`
	Balance        float64 `json:"balance"`
	SchemaVersion  int     `json:"schema_version,omitempty"`
}
