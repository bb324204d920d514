// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"encoding/json"
	"fmt"

	"github.com/taibuivan/teamdesk/internal/model"
	"github.com/taibuivan/teamdesk/internal/platform/constants"
)

// # State

// State is the authentication state observed by callers.
//
// IsAuthenticated implies User != nil. User values are replaced, never mutated.
type State struct {
	User            *model.User
	IsAuthenticated bool
	IsLoading       bool
	// Error is the last normalized failure message, or "".
	Error string
}

// Anonymous is the initial, logged-out state.
func Anonymous() State {
	return State{}
}

// # Persistence Boundary

// Persisted is the subset of [State] that survives a restart.
type Persisted struct {
	User            *model.User `json:"user"`
	IsAuthenticated bool        `json:"isAuthenticated"`
}

// envelope is the on-disk shape of the persisted session.
type envelope struct {
	State   Persisted `json:"state"`
	Version int       `json:"version"`
}

// Partialize maps a full state to the subset that is written to storage.
// Loading and error are never persisted.
func Partialize(state State) Persisted {
	return Persisted{User: state.User, IsAuthenticated: state.IsAuthenticated}
}

// Rehydrate rebuilds a full state from its persisted subset.
//
// Loading and error always start from their defaults. A blob claiming to be
// authenticated without a user is treated as anonymous.
func Rehydrate(persisted Persisted) State {
	if persisted.User == nil {
		return Anonymous()
	}
	return State{User: persisted.User, IsAuthenticated: persisted.IsAuthenticated}
}

// encode serializes a persisted subset into the storage blob.
func encode(persisted Persisted) (string, error) {
	data, err := json.Marshal(envelope{State: persisted, Version: constants.SessionBlobVersion})
	if err != nil {
		return "", fmt.Errorf("session: encode: %w", err)
	}
	return string(data), nil
}

// decode parses a storage blob. Unknown versions are rejected.
func decode(blob string) (Persisted, error) {
	var stored envelope
	if err := json.Unmarshal([]byte(blob), &stored); err != nil {
		return Persisted{}, fmt.Errorf("session: decode: %w", err)
	}
	if stored.Version != constants.SessionBlobVersion {
		return Persisted{}, fmt.Errorf("session: unsupported blob version %d", stored.Version)
	}
	return stored.State, nil
}
