package team

import "testing"

func roster() *Table {
	return NewTable(map[string]Member{
		"ada":   {Password: "s3cret", Role: "admin"},
		"grace": {Password: "hopper", Role: "member"},
	})
}

func TestAuthenticate(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
		ok       bool
		role     string
	}{
		{"valid admin", "ada", "s3cret", true, "admin"},
		{"valid member", "grace", "hopper", true, "member"},
		{"wrong password", "ada", "guess", false, ""},
		{"unknown user", "mallory", "s3cret", false, ""},
		{"empty password", "ada", "", false, ""},
		{"password of another user", "ada", "hopper", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, ok := roster().Authenticate(tt.username, tt.password)
			if ok != tt.ok {
				t.Fatalf("Authenticate(%q, %q) ok = %v, want %v", tt.username, tt.password, ok, tt.ok)
			}
			if ok && (user.Username != tt.username || user.Role != tt.role) {
				t.Errorf("user = %+v", user)
			}
		})
	}
}

func TestEmptyRoster(t *testing.T) {
	table := NewTable(nil)
	if table.Len() != 0 {
		t.Errorf("Len = %d", table.Len())
	}
	if _, ok := table.Authenticate("ada", "s3cret"); ok {
		t.Error("empty roster must reject everyone")
	}
}
