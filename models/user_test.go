package models

import "testing"

func TestParseRole(t *testing.T) {
	for _, s := range []string{"admin", "driver", "citizen"} {
		role, err := ParseRole(s)
		if err != nil {
			t.Errorf("ParseRole(%q) returned error: %v", s, err)
		}
		if string(role) != s {
			t.Errorf("ParseRole(%q) = %q", s, role)
		}
	}

	for _, s := range []string{"", "Admin", "superuser", "ADMIN "} {
		if _, err := ParseRole(s); err == nil {
			t.Errorf("ParseRole(%q) expected error, got none", s)
		}
	}
}

func TestUserSanitized(t *testing.T) {
	u := User{Username: "jo", Email: "jo@example.com", Password: "$2a$10$hash"}
	s := u.Sanitized()
	if s.Password != "" {
		t.Errorf("expected password to be stripped, got %q", s.Password)
	}
	if u.Password == "" {
		t.Error("Sanitized must not mutate the receiver")
	}
	if s.Email != u.Email || s.Username != u.Username {
		t.Error("Sanitized must keep the other fields")
	}
}
