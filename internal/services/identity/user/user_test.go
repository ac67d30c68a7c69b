package user

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
			name:  "trims and lowercases email",
			input: CreateInput{DisplayName: "  Noa ", Email: " Noa@Atrium.Test ", AvatarURL: " https://cdn.atrium.test/a.png "},
			want:  CreateInput{DisplayName: "Noa", Email: "noa@atrium.test", AvatarURL: "https://cdn.atrium.test/a.png"},
		},
		{
			name:    "empty email",
			input:   CreateInput{Email: "   "},
			wantErr: ErrEmptyEmail,
		},
		{
			name:    "malformed email",
			input:   CreateInput{Email: "not-an-email"},
			wantErr: ErrInvalidEmail,
		},
		{
			name:    "email without domain dot",
			input:   CreateInput{Email: "noa@localhost"},
			wantErr: ErrInvalidEmail,
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
	ids := func() (string, error) { return "user-1", nil }

	profile, err := Create(CreateInput{DisplayName: "Noa", Email: "noa@atrium.test"}, clock, ids)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if profile.ID != "user-1" {
		t.Fatalf("unexpected id %q", profile.ID)
	}
	if !profile.CreatedAt.Equal(now) || !profile.UpdatedAt.Equal(now) {
		t.Fatalf("unexpected timestamps %+v", profile)
	}

	if _, err := Create(CreateInput{Email: ""}, clock, ids); !errors.Is(err, ErrEmptyEmail) {
		t.Fatalf("Create error = %v, want %v", err, ErrEmptyEmail)
	}

	failing := func() (string, error) { return "", errors.New("entropy exhausted") }
	if _, err := Create(CreateInput{Email: "noa@atrium.test"}, clock, failing); err == nil {
		t.Fatal("expected id generation error")
	}
}
