// Package event encodes and decodes log records for the two entity topics.
//
// The wire format is one UTF-8 JSON object per record. Decode failures wrap
// common.ErrorDecode; the materializer treats them as skip-and-log, so a
// poison message never halts replay.
package event

import (
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/kodbank/internal/common"
	"github.com/dmitrijs2005/kodbank/internal/server/models"
)

// SchemaVersion is stamped on every record written by this version of the
// codec. Records without the field decode as version 1.
const SchemaVersion = 1

// EncodeAccount serializes an account record for the accounts topic.
func EncodeAccount(a *models.Account) ([]byte, error) {
	if a.UID == "" {
		return nil, fmt.Errorf("%w: account without uid", common.ErrorValidation)
	}
	rec := *a
	rec.SchemaVersion = SchemaVersion
	b, err := json.Marshal(&rec)
	if err != nil {
		return nil, fmt.Errorf("encode account: %w", err)
	}
	return b, nil
}

// DecodeAccount parses an accounts-topic payload. A payload that is not a
// JSON object, or that lacks the uid identity key, is a decode error.
func DecodeAccount(b []byte) (*models.Account, error) {
	a := &models.Account{}
	if err := json.Unmarshal(b, a); err != nil {
		return nil, fmt.Errorf("%w: account payload: %v", common.ErrorDecode, err)
	}
	if a.UID == "" {
		return nil, fmt.Errorf("%w: account record without uid", common.ErrorDecode)
	}
	if a.SchemaVersion == 0 {
		a.SchemaVersion = 1
	}
	return a, nil
}

// EncodeToken serializes a token record (upsert or tombstone) for the
// tokens topic.
func EncodeToken(t *models.Token) ([]byte, error) {
	if t.Token == "" {
		return nil, fmt.Errorf("%w: token without value", common.ErrorValidation)
	}
	rec := *t
	rec.SchemaVersion = SchemaVersion
	b, err := json.Marshal(&rec)
	if err != nil {
		return nil, fmt.Errorf("encode token: %w", err)
	}
	return b, nil
}

// DecodeToken parses a tokens-topic payload. Tombstones carry only the token
// value and the delete action.
func DecodeToken(b []byte) (*models.Token, error) {
	t := &models.Token{}
	if err := json.Unmarshal(b, t); err != nil {
		return nil, fmt.Errorf("%w: token payload: %v", common.ErrorDecode, err)
	}
	if t.Token == "" {
		return nil, fmt.Errorf("%w: token record without value", common.ErrorDecode)
	}
	if t.SchemaVersion == 0 {
		t.SchemaVersion = 1
	}
	return t, nil
}
