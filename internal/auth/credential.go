// Package auth mints short-lived OAuth2 bearer tokens for the FCM v1 API
// from a Google service-account credential, without the firebase-admin SDK.
package auth

import (
	"encoding/json"
	"fmt"
)

// ServiceAccount is the typed, validated form of the service-account JSON
// blob from configuration. Construct it once at load time via
// ParseServiceAccount; everything downstream can then assume the fields
// are present.
type ServiceAccount struct {
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
	ProjectID   string `json:"project_id"`
}

// ParseServiceAccount decodes and validates the raw credential JSON.
// It checks field presence only; the PEM payload itself is decoded at mint
// time so a corrupt key surfaces as a minting failure, not a config one.
func ParseServiceAccount(raw []byte) (*ServiceAccount, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("service account credential is empty")
	}

	var sa ServiceAccount
	if err := json.Unmarshal(raw, &sa); err != nil {
		return nil, fmt.Errorf("service account credential is not valid JSON: %w", err)
	}

	if sa.ClientEmail == "" {
		return nil, fmt.Errorf("service account credential is missing client_email")
	}
	if sa.PrivateKey == "" {
		return nil, fmt.Errorf("service account credential is missing private_key")
	}
	if sa.ProjectID == "" {
		return nil, fmt.Errorf("service account credential is missing project_id")
	}

	return &sa, nil
}
