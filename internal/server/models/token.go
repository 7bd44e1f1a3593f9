package models

import "time"

// TokenActionDelete marks a token record as a tombstone: the materializer
// removes the entry for Token instead of upserting it.
const TokenActionDelete = "delete"

// ExpairyFormat is the ISO-8601 layout token expiries are written in
// (millisecond precision, always UTC). Parse with time.RFC3339.
const ExpairyFormat = "2006-01-02T15:04:05.000Z"

// Token is one issued session token, keyed by the opaque token string.
//
// Expairy keeps the historical wire spelling (ISO-8601 timestamp);
// SequenceID rides in the "tid" field, the issuance time in epoch millis.
type Token struct {
	Token         string `json:"token"`
	UID           string `json:"uid,omitempty"`
	Expairy       string `json:"expairy,omitempty"`
	SequenceID    int64  `json:"tid,omitempty"`
	Action        string `json:"action,omitempty"`
	SchemaVersion int    `json:"schema_version,omitempty"`
}

// IsTombstone reports whether the record revokes its token.
func (t *Token) IsTombstone() bool {
	return t.Action == TokenActionDelete
}

// ExpiresAt parses the record's expiry timestamp.
func (t *Token) ExpiresAt() (time.Time, error) {
	return time.Parse(time.RFC3339, t.Expairy)
}
