package hash

import (
	"strings"
	"testing"
)

func TestHash(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{
			name:    "valid key",
			key:     "SecureKey123!",
			wantErr: false,
		},
		{
			name:    "minimum length key",
			key:     "Keys123!",
			wantErr: false,
		},
		{
			name:    "key too short",
			key:     "short",
			wantErr: true,
		},
		{
			name:    "empty key",
			key:     "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := Hash(tt.key)

			if tt.wantErr {
				if err == nil {
					t.Errorf("Hash() expected error but got none")
				}
				return
			}

			if err != nil {
				t.Errorf("Hash() unexpected error = %v", err)
				return
			}

			if h == "" {
				t.Error("Hash() returned empty hash")
			}

			if h == tt.key {
				t.Error("Hash() returned unhashed key")
			}

			if !strings.HasPrefix(h, "$2a$12$") {
				t.Errorf("Hash() invalid bcrypt format, got = %s", h[:10])
			}
		})
	}
}

func TestCompare(t *testing.T) {
	key := "MySecureAccessKey123!"
	h, err := Hash(key)
	if err != nil {
		t.Fatalf("Failed to generate hash: %v", err)
	}

	tests := []struct {
		name      string
		hashedKey string
		key       string
		wantErr   bool
	}{
		{
			name:      "correct key",
			hashedKey: h,
			key:       key,
			wantErr:   false,
		},
		{
			name:      "incorrect key",
			hashedKey: h,
			key:       "WrongKey",
			wantErr:   true,
		},
		{
			name:      "empty key",
			hashedKey: h,
			key:       "",
			wantErr:   true,
		},
		{
			name:      "case sensitive",
			hashedKey: h,
			key:       strings.ToUpper(key),
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Compare(tt.hashedKey, tt.key)

			if tt.wantErr {
				if err == nil {
					t.Error("Compare() expected error but got none")
				}
			} else {
				if err != nil {
					t.Errorf("Compare() unexpected error = %v", err)
				}
			}
		})
	}
}
