package model

import "time"

// Состояния приглашения (вычисляются, не хранятся).
const (
	InviteOpen    = "open"
	InviteUsed    = "used"
	InviteRevoked = "revoked"
	InviteExpired = "expired"
)

// Invite — код приглашения для саморегистрации.
// Хранится в таблице invites.
type Invite struct {
	Code string
	// Country — страна для роли country; nil — роль user
	Country   *string
	ExpiresAt *time.Time
	CreatedBy string
	CreatedAt time.Time
	UsedBy    *string
	UsedAt    *time.Time
	RevokedAt *time.Time
}

// State вычисляет состояние приглашения на момент now.
func (i *Invite) State(now time.Time) string {
	switch {
	case i.UsedAt != nil:
		return InviteUsed
	case i.RevokedAt != nil:
		return InviteRevoked
	case i.ExpiresAt != nil && !now.Before(*i.ExpiresAt):
		return InviteExpired
	default:
		return InviteOpen
	}
}
