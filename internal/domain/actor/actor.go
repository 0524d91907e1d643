package actor

import (
	"errors"
	"strings"
)

type Role string

const (
	RoleMember         Role = "member"
	RoleAdmin          Role = "admin"
	RolePastor         Role = "pastor"
	RoleFinance        Role = "finance"
	RoleMinistryLeader Role = "ministry_leader"
	RoleCheckinTeam    Role = "checkin_team"
)

type Permission string

const (
	PermManageSessions Permission = "manage_sessions"
	PermViewRoster     Permission = "view_roster"
	PermVerifyPickup   Permission = "verify_pickup"
	PermCheckIn        Permission = "check_in"
)

var (
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthenticated = errors.New("unauthenticated")
)

var staffRoles = map[Role]struct{}{
	RoleAdmin:          {},
	RolePastor:         {},
	RoleCheckinTeam:    {},
	RoleMinistryLeader: {},
}

// Actor is the resolved caller identity handed to every service call.
type Actor struct {
	ID    string
	Name  string
	Email string
	Role  Role
}

func ParseRole(value string) Role {
	role := Role(strings.ToLower(strings.TrimSpace(value)))
	switch role {
	case RoleMember, RoleAdmin, RolePastor, RoleFinance, RoleMinistryLeader, RoleCheckinTeam:
		return role
	default:
		return RoleMember
	}
}

func (a *Actor) Authenticated() bool {
	return a != nil && a.ID != ""
}

func (a *Actor) Can(perm Permission) bool {
	if !a.Authenticated() {
		return false
	}
	if perm == PermCheckIn {
		return true
	}
	_, ok := staffRoles[a.Role]
	return ok
}

// Require returns ErrUnauthenticated for a missing actor and ErrForbidden when
// the role lacks perm.
func Require(a *Actor, perm Permission) error {
	if !a.Authenticated() {
		return ErrUnauthenticated
	}
	if !a.Can(perm) {
		return ErrForbidden
	}
	return nil
}

func (a *Actor) DisplayName() string {
	if a == nil {
		return ""
	}
	if name := strings.TrimSpace(a.Name); name != "" {
		return name
	}
	if email := strings.TrimSpace(a.Email); email != "" {
		if at := strings.Index(email, "@"); at > 0 {
			return email[:at]
		}
		return email
	}
	return "friend"
}
