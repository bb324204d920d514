// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package roster keeps a team's members and pending invitations in sync with the backend.

A load replaces both collections at once from a single snapshot. Mutations
(invite, role change, removal) touch one collection, by identity, only after the
backend has accepted them; a failed call leaves both collections exactly as
they were. Invitations are prepended on success without reloading, so fields
the backend fills in later only appear after the next [Store.Load].

# Immutability

Collections are copy-on-write and their elements are never modified in place.
A role change replaces the matching member with a new value; every other
element keeps its identity across the update.
*/
package roster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/taibuivan/teamdesk/internal/model"
	"github.com/taibuivan/teamdesk/internal/platform/apperr"
	"github.com/taibuivan/teamdesk/pkg/slice"
)

// ErrNoTeam is returned by [Store.Reload] when the session has no team to load.
var ErrNoTeam = errors.New("roster: current user has no team")

// # Collaborators

// TeamAPI is the subset of [backend.TeamClient] the roster needs.
type TeamAPI interface {
	MembersWithInvitations(ctx context.Context, teamID int64) (*model.RosterSnapshot, error)
	Invite(ctx context.Context, request model.InviteRequest) (*model.Invitation, error)
	UpdateMemberRole(ctx context.Context, memberID string, update model.RoleUpdate) (*model.User, error)
	RemoveMember(ctx context.Context, memberID string) error
}

// TeamResolver reports the signed-in user's team. [session.Store] implements it.
type TeamResolver interface {
	CurrentTeamID() (int64, bool)
}

// # State

// State is the roster observed by callers.
type State struct {
	TeamID             int64
	Members            []*model.TeamMember
	PendingInvitations []*model.Invitation
	IsLoading          bool
	// Error is the last normalized failure message, or "".
	Error string
}

// initialState is the empty roster.
func initialState() State {
	return State{
		Members:            []*model.TeamMember{},
		PendingInvitations: []*model.Invitation{},
	}
}

// # Store

// Store holds the roster for one team.
type Store struct {
	api    TeamAPI
	teams  TeamResolver
	logger *slog.Logger

	mu           sync.Mutex
	state        State
	subscribers  map[int]func(State)
	nextListener int
}

// NewStore creates an empty roster.
func NewStore(api TeamAPI, teams TeamResolver, logger *slog.Logger) *Store {
	return &Store{
		api:         api,
		teams:       teams,
		logger:      logger,
		state:       initialState(),
		subscribers: make(map[int]func(State)),
	}
}

// State returns a snapshot of the current roster.
// The slices are shared with the store and must not be modified.
func (store *Store) State() State {
	store.mu.Lock()
	defer store.mu.Unlock()
	return store.state
}

/*
Load fetches a team's snapshot and replaces both collections with it.

Parameters:
  - ctx: context.Context
  - teamID: int64

Returns:
  - error: The fetch failure; prior collections are kept
*/
func (store *Store) Load(ctx context.Context, teamID int64) error {
	return store.mutate(ctx, "load", func() (func(*State), error) {
		snapshot, err := store.api.MembersWithInvitations(ctx, teamID)
		if err != nil {
			return nil, err
		}

		members, invitations := Reconcile(snapshot)
		store.logger.InfoContext(ctx, "roster_loaded",
			slog.Int64("team_id", teamID),
			slog.Int("members", len(members)),
			slog.Int("pending_invitations", len(invitations)),
		)

		return func(state *State) {
			state.TeamID = teamID
			state.Members = members
			state.PendingInvitations = invitations
		}, nil
	})
}

// Reload loads the roster of the signed-in user's team.
func (store *Store) Reload(ctx context.Context) error {
	teamID, ok := store.teams.CurrentTeamID()
	if !ok {
		return ErrNoTeam
	}
	return store.Load(ctx, teamID)
}

/*
Invite creates an invitation and prepends it to the pending collection.

Parameters:
  - ctx: context.Context
  - request: model.InviteRequest

Returns:
  - error: The backend failure; nothing is added
*/
func (store *Store) Invite(ctx context.Context, request model.InviteRequest) error {
	return store.mutate(ctx, "invite", func() (func(*State), error) {
		invitation, err := store.api.Invite(ctx, request)
		if err != nil {
			return nil, err
		}

		return func(state *State) {
			state.PendingInvitations = slices.Insert(slices.Clone(state.PendingInvitations), 0, invitation)
		}, nil
	})
}

/*
UpdateMemberRole changes one member's role.

Description: Only the member whose id matches is replaced, with its role set
to the requested one; all other members are kept as-is.

Parameters:
  - ctx: context.Context
  - memberID: string
  - update: model.RoleUpdate

Returns:
  - error: The backend failure; no member changes
*/
func (store *Store) UpdateMemberRole(ctx context.Context, memberID string, update model.RoleUpdate) error {
	return store.mutate(ctx, "update_role", func() (func(*State), error) {
		if _, err := store.api.UpdateMemberRole(ctx, memberID, update); err != nil {
			return nil, err
		}

		return func(state *State) {
			state.Members = slice.Map(state.Members, func(member *model.TeamMember) *model.TeamMember {
				if member.ID != memberID {
					return member
				}
				updated := *member
				updated.Role = update.Role
				return &updated
			})
		}, nil
	})
}

/*
RemoveMember deletes a member and drops it from the active collection.

Parameters:
  - ctx: context.Context
  - memberID: string

Returns:
  - error: The backend failure; no member is dropped
*/
func (store *Store) RemoveMember(ctx context.Context, memberID string) error {
	return store.mutate(ctx, "remove_member", func() (func(*State), error) {
		if err := store.api.RemoveMember(ctx, memberID); err != nil {
			return nil, err
		}

		return func(state *State) {
			state.Members = slices.DeleteFunc(slices.Clone(state.Members), func(member *model.TeamMember) bool {
				return member.ID == memberID
			})
		}, nil
	})
}

// ClearError clears the error and nothing else.
func (store *Store) ClearError() {
	store.set(func(state *State) { state.Error = "" })
}

// SetLoading sets the loading flag directly.
func (store *Store) SetLoading(loading bool) {
	store.set(func(state *State) { state.IsLoading = loading })
}

// Reset returns the roster to its initial empty state.
func (store *Store) Reset() {
	store.set(func(state *State) { *state = initialState() })
}

// Subscribe registers fn to receive every new state. The returned func cancels it.
func (store *Store) Subscribe(fn func(State)) func() {
	store.mu.Lock()
	defer store.mu.Unlock()

	id := store.nextListener
	store.nextListener++
	store.subscribers[id] = fn

	return func() {
		store.mu.Lock()
		defer store.mu.Unlock()
		delete(store.subscribers, id)
	}
}

// # State Transitions

/*
mutate runs one backend call with the shared loading/error discipline.

Description: The error is cleared and loading set before call runs. On success
the returned apply func is applied; on failure only the error is recorded.
Loading is cleared in both cases.
*/
func (store *Store) mutate(ctx context.Context, operation string, call func() (func(*State), error)) error {
	store.set(func(state *State) {
		state.IsLoading = true
		state.Error = ""
	})

	apply, err := call()
	if err != nil {
		normalized := apperr.Normalize(err)
		store.logger.WarnContext(ctx, "roster_"+operation+"_failed",
			slog.String("kind", string(normalized.Kind)),
			slog.String("error", normalized.Message),
		)
		store.set(func(state *State) {
			state.IsLoading = false
			state.Error = normalized.Message
		})
		return fmt.Errorf("roster: %s: %w", operation, err)
	}

	store.set(func(state *State) {
		apply(state)
		state.IsLoading = false
	})
	return nil
}

// set applies fn under the lock and notifies subscribers outside it.
func (store *Store) set(fn func(*State)) {
	store.mu.Lock()
	fn(&store.state)
	next := store.state
	listeners := make([]func(State), 0, len(store.subscribers))
	for _, listener := range store.subscribers {
		listeners = append(listeners, listener)
	}
	store.mu.Unlock()

	for _, listener := range listeners {
		listener(next)
	}
}
