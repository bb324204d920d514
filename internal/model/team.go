// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package model

// # Membership Status

// MemberStatus is the lifecycle state of a roster member.
type MemberStatus string

const (
	StatusActive   MemberStatus = "active"
	StatusInvited  MemberStatus = "invited"
	StatusInactive MemberStatus = "inactive"
)

// # Roster Entities

// TeamMember is an active roster entry. Its ID is unique within the members
// collection and never compared against invitation ids.
type TeamMember struct {
	ID         string       `json:"id"`
	Email      string       `json:"email"`
	FirstName  string       `json:"first_name"`
	LastName   string       `json:"last_name"`
	Role       Role         `json:"role"`
	Status     MemberStatus `json:"status"`
	JoinedAt   *FlexTime    `json:"joined_at,omitempty"`
	LastActive *FlexTime    `json:"last_active,omitempty"`
}

// Invitation is a pending roster entry. Its ID is unique within the pending
// invitations collection.
type Invitation struct {
	ID         int64     `json:"id"`
	Email      string    `json:"email"`
	Role       Role      `json:"role"`
	TeamID     int64     `json:"team_id"`
	Token      string    `json:"token"`
	ExpiresAt  FlexTime  `json:"expires_at"`
	IsUsed     bool      `json:"is_used"`
	InvitedBy  int64     `json:"invited_by"`
	AcceptedAt *FlexTime `json:"accepted_at,omitempty"`
	CreatedAt  FlexTime  `json:"created_at"`
}

// # Snapshot Wire Shapes

// EntryType discriminates the entries of a roster snapshot.
type EntryType string

const (
	EntryMember     EntryType = "member"
	EntryInvitation EntryType = "invitation"
)

// RosterEntry is one heterogeneous element of members_and_invitations.
//
// Member entries fill ID and the name fields; invitation entries fill
// InvitationID, InvitedAt and ExpiresAt. Everything else is shared.
type RosterEntry struct {
	Type         EntryType     `json:"type"`
	ID           *FlexID       `json:"id"`
	Email        string        `json:"email"`
	FirstName    *string       `json:"first_name"`
	LastName     *string       `json:"last_name"`
	Role         Role          `json:"role"`
	Status       *MemberStatus `json:"status"`
	JoinedAt     *FlexTime     `json:"joined_at"`
	LastActive   *FlexTime     `json:"last_active"`
	InvitationID *int64        `json:"invitation_id"`
	TeamID       *int64        `json:"team_id"`
	Token        *string       `json:"token"`
	InvitedBy    *int64        `json:"invited_by"`
	InvitedAt    *FlexTime     `json:"invited_at"`
	ExpiresAt    *FlexTime     `json:"expires_at"`
}

// RosterSnapshot is the body of GET /team/members-with-invitations.
type RosterSnapshot struct {
	TeamID                int64         `json:"team_id"`
	MembersAndInvitations []RosterEntry `json:"members_and_invitations"`
	TotalMembers          int           `json:"total_members"`
	PendingInvitations    int           `json:"pending_invitations"`
}

// # Requests

// InviteRequest is the body of POST /team/invite.
type InviteRequest struct {
	Email  string `json:"email"`
	Role   Role   `json:"role"`
	TeamID int64  `json:"team_id"`
}

// RoleUpdate is the body of PUT /team/members/{id}/role.
type RoleUpdate struct {
	Role Role `json:"role"`
}

// AcceptInvitationRequest is the body of POST /team/accept-invitation/{token}.
type AcceptInvitationRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Password  string `json:"password"`
}

// AcceptInvitationResponse is returned once an invitation is redeemed.
type AcceptInvitationResponse struct {
	Message string `json:"message"`
	User    User   `json:"user"`
}

