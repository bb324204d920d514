// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package roster

import (
	"github.com/taibuivan/teamdesk/internal/model"
	"github.com/taibuivan/teamdesk/pkg/pointer"
	"github.com/taibuivan/teamdesk/pkg/slice"
)

/*
Reconcile partitions a roster snapshot into members and pending invitations.

Description: Entries are split by their type discriminant and mapped to the
canonical shapes. Backend order is preserved within each collection. Entries
of an unknown type are dropped.

Parameters:
  - snapshot: *model.RosterSnapshot

Returns:
  - []*model.TeamMember: Active roster, status defaulting to active
  - []*model.Invitation: Pending invitations, always unused
*/
func Reconcile(snapshot *model.RosterSnapshot) ([]*model.TeamMember, []*model.Invitation) {
	if snapshot == nil {
		return []*model.TeamMember{}, []*model.Invitation{}
	}

	entries := snapshot.MembersAndInvitations

	members := slice.Map(
		slice.Filter(entries, func(entry model.RosterEntry) bool { return entry.Type == model.EntryMember }),
		toMember,
	)

	invitations := slice.Map(
		slice.Filter(entries, func(entry model.RosterEntry) bool { return entry.Type == model.EntryInvitation }),
		func(entry model.RosterEntry) *model.Invitation { return toInvitation(entry, snapshot.TeamID) },
	)

	// Collections are never nil.
	if members == nil {
		members = []*model.TeamMember{}
	}
	if invitations == nil {
		invitations = []*model.Invitation{}
	}

	return members, invitations
}

// toMember maps a member entry. Only member fields are read.
func toMember(entry model.RosterEntry) *model.TeamMember {
	return &model.TeamMember{
		ID:         pointer.Val(entry.ID).String(),
		Email:      entry.Email,
		FirstName:  pointer.Val(entry.FirstName),
		LastName:   pointer.Val(entry.LastName),
		Role:       entry.Role,
		Status:     memberStatus(entry.Status),
		JoinedAt:   entry.JoinedAt,
		LastActive: entry.LastActive,
	}
}

// toInvitation maps an invitation entry. The snapshot only lists unconsumed
// invitations, so IsUsed is always false.
func toInvitation(entry model.RosterEntry, teamID int64) *model.Invitation {
	return &model.Invitation{
		ID:        pointer.Val(entry.InvitationID),
		Email:     entry.Email,
		Role:      entry.Role,
		TeamID:    pointer.Fallback(entry.TeamID, teamID),
		Token:     pointer.Val(entry.Token),
		ExpiresAt: pointer.Val(entry.ExpiresAt),
		IsUsed:    false,
		InvitedBy: pointer.Val(entry.InvitedBy),
		CreatedAt: pointer.Val(entry.InvitedAt),
	}
}

// memberStatus defaults a missing or blank status to active.
func memberStatus(status *model.MemberStatus) model.MemberStatus {
	if status == nil || *status == "" {
		return model.StatusActive
	}
	return *status
}
