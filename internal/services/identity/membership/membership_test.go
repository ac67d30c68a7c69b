package membership

import (
	"errors"
	"testing"
	"time"
)

func TestNormalizeCreateInput(t *testing.T) {
	tests := []struct {
		name    string
		input   CreateInput
		want    CreateInput
		wantErr error
	}{
		{
			name:  "trims and lowercases role",
			input: CreateInput{TenantID: " tenant-1 ", UserID: " user-1 ", Role: " Admin "},
			want:  CreateInput{TenantID: "tenant-1", UserID: "user-1", Role: RoleAdmin},
		},
		{
			name:    "empty tenant id",
			input:   CreateInput{UserID: "user-1", Role: RoleMember},
			wantErr: ErrEmptyTenantID,
		},
		{
			name:    "empty user id",
			input:   CreateInput{TenantID: "tenant-1", Role: RoleMember},
			wantErr: ErrEmptyUserID,
		},
		{
			name:    "unknown role",
			input:   CreateInput{TenantID: "tenant-1", UserID: "user-1", Role: "superuser"},
			wantErr: ErrInvalidRole,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := NormalizeCreateInput(test.input)
			if !errors.Is(err, test.wantErr) {
				t.Fatalf("NormalizeCreateInput error = %v, want %v", err, test.wantErr)
			}
			if err == nil && got != test.want {
				t.Fatalf("NormalizeCreateInput = %+v, want %+v", got, test.want)
			}
		})
	}
}

func TestCreate(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	ids := func() (string, error) { return "m-1", nil }

	created, err := Create(CreateInput{TenantID: "tenant-1", UserID: "user-1", Role: RoleOwner}, clock, ids)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID != "m-1" || created.Role != RoleOwner {
		t.Fatalf("unexpected membership %+v", created)
	}
	if !created.CreatedAt.Equal(now) || !created.UpdatedAt.Equal(now) {
		t.Fatalf("unexpected timestamps %+v", created)
	}

	if _, err := Create(CreateInput{UserID: "user-1", Role: RoleOwner}, clock, ids); !errors.Is(err, ErrEmptyTenantID) {
		t.Fatalf("Create error = %v, want %v", err, ErrEmptyTenantID)
	}
}
