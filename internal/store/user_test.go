package store

import "testing"

func TestUserCreate(t *testing.T) {
	us := NewUserStore(setupTestDB(t))

	u, err := us.Create("alice@example.com", "Alice", "s3cret")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if u.Email != "alice@example.com" {
		t.Errorf("email = %q, want %q", u.Email, "alice@example.com")
	}
	if u.Name != "Alice" {
		t.Errorf("name = %q, want %q", u.Name, "Alice")
	}
	if u.ID == 0 {
		t.Error("expected non-zero ID")
	}
}

func TestUserCreateDuplicateEmail(t *testing.T) {
	us := NewUserStore(setupTestDB(t))

	if _, err := us.Create("alice@example.com", "Alice", "pw"); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := us.Create("alice@example.com", "Alice2", "pw"); err == nil {
		t.Fatal("expected error for duplicate email, got nil")
	}
}

func TestUserGetByIDNotFound(t *testing.T) {
	us := NewUserStore(setupTestDB(t))

	u, err := us.GetByID(999)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if u != nil {
		t.Error("expected nil for nonexistent user")
	}
}

func TestUserGetByEmail(t *testing.T) {
	us := NewUserStore(setupTestDB(t))

	if _, err := us.Create("alice@example.com", "Alice", "pw"); err != nil {
		t.Fatalf("create user: %v", err)
	}

	u, err := us.GetByEmail("alice@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if u == nil {
		t.Fatal("expected user, got nil")
	}
	if u.Name != "Alice" {
		t.Errorf("name = %q, want %q", u.Name, "Alice")
	}

	missing, err := us.GetByEmail("nobody@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for nonexistent email")
	}
}

func TestUserCheckPassword(t *testing.T) {
	us := NewUserStore(setupTestDB(t))

	if _, err := us.Create("alice@example.com", "Alice", "correct horse"); err != nil {
		t.Fatalf("create user: %v", err)
	}

	tests := []struct {
		email, password string
		want            bool
	}{
		{"alice@example.com", "correct horse", true},
		{"alice@example.com", "wrong", false},
		{"nobody@example.com", "correct horse", false},
	}
	for _, tt := range tests {
		ok, err := us.CheckPassword(tt.email, tt.password)
		if err != nil {
			t.Fatalf("check password: %v", err)
		}
		if ok != tt.want {
			t.Errorf("CheckPassword(%q, %q) = %v, want %v", tt.email, tt.password, ok, tt.want)
		}
	}
}
