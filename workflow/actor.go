package workflow

import (
	"github.com/anjiri1684/talent_booking/models"
	"github.com/google/uuid"
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID   uuid.UUID
	Role models.Role
}

// System acts on behalf of scheduled jobs and provider webhooks.
var System = Actor{Role: models.RoleAdmin}

func (a Actor) IsAdmin() bool { return a.Role == models.RoleAdmin }

type party int

const (
	partyNone party = iota
	partyOrganizer
	partyTalent
	partyAdmin
)

func (p party) String() string {
	switch p {
	case partyOrganizer:
		return "organizer"
	case partyTalent:
		return "talent"
	case partyAdmin:
		return "admin"
	}
	return "non-party"
}

func partyOf(a Actor, b *models.Booking) party {
	switch {
	case a.Role == models.RoleAdmin:
		return partyAdmin
	case a.Role == models.RoleOrganizer && a.ID == b.OrganizerID:
		return partyOrganizer
	case a.Role == models.RoleTalent && a.ID == b.TalentID:
		return partyTalent
	}
	return partyNone
}

// IsParty reports whether the actor is the booking's organizer or talent.
func IsParty(a Actor, b *models.Booking) bool {
	p := partyOf(a, b)
	return p == partyOrganizer || p == partyTalent
}

// CanView reports whether the actor may read the booking and its dependents.
func CanView(a Actor, b *models.Booking) bool {
	return partyOf(a, b) != partyNone
}
