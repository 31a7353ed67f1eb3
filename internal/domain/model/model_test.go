package model

import (
	"testing"
	"time"

	"github.com/bigkaa/goartstore/fileportal/internal/domain/lifecycle"
)

func TestInviteState(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	who := "alice"

	tests := []struct {
		name   string
		invite Invite
		want   string
	}{
		{"открыт без срока", Invite{}, InviteOpen},
		{"открыт со сроком", Invite{ExpiresAt: &future}, InviteOpen},
		{"истёк", Invite{ExpiresAt: &past}, InviteExpired},
		{"истекает ровно сейчас", Invite{ExpiresAt: &now}, InviteExpired},
		{"использован", Invite{UsedAt: &past, UsedBy: &who, ExpiresAt: &past}, InviteUsed},
		{"отозван", Invite{RevokedAt: &past}, InviteRevoked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.invite.State(now); got != tt.want {
				t.Errorf("State() = %q, хотели %q", got, tt.want)
			}
		})
	}
}

func TestFileRecordSetState(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	f := &FileRecord{Status: lifecycle.StatusActive}

	f.SetState(lifecycle.State{Status: lifecycle.StatusApproved}, now)
	if f.ApprovedAt == nil || f.Area() != lifecycle.AreaApproved {
		t.Fatalf("после approve: approved_at=%v area=%s", f.ApprovedAt, f.Area())
	}

	f.SetState(lifecycle.State{Status: lifecycle.StatusArchived, ArchivedFrom: lifecycle.StatusApproved}, now)
	if f.ArchivedAt == nil || f.ArchivedFrom == nil || *f.ArchivedFrom != lifecycle.StatusApproved {
		t.Fatalf("после archive: archived_at=%v archived_from=%v", f.ArchivedAt, f.ArchivedFrom)
	}
	if got := f.State(); got.ArchivedFrom != lifecycle.StatusApproved {
		t.Errorf("State().ArchivedFrom = %q", got.ArchivedFrom)
	}

	f.SetState(lifecycle.State{Status: lifecycle.StatusApproved}, now)
	if f.ArchivedAt != nil || f.ArchivedFrom != nil {
		t.Errorf("после restore архивные поля должны очищаться: %v %v", f.ArchivedAt, f.ArchivedFrom)
	}
}
