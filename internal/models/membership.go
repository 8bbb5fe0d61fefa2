package models

import "time"

// Role is a member's role within one tontine.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// MemberStatus tracks whether a member has been activated by the tontine start.
type MemberStatus string

const (
	MemberPending MemberStatus = "pending"
	MemberActive  MemberStatus = "active"
)

// Membership is the pivot between a tontine and a user.
type Membership struct {
	TontineID string       `json:"tontine_id"`
	UserID    string       `json:"user_id"`
	Role      Role         `json:"role"`
	Status    MemberStatus `json:"status"`

	// TurnOrder is the round in which this member collects the pot.
	// Nil until the order is shuffled or assigned.
	TurnOrder *int `json:"turn_order"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Member is a membership joined with the user's public fields.
type Member struct {
	Membership
	Name  string `json:"name"`
	Phone string `json:"phone"`
}
