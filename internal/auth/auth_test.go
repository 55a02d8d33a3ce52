package auth

import "testing"

func TestAuthenticate(t *testing.T) {
	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	c := NewChecker(map[string]string{"alice": hash})

	if !c.Authenticate("alice", "s3cret") {
		t.Error("expected valid credentials to authenticate")
	}
	if c.Authenticate("alice", "wrong") {
		t.Error("wrong password must not authenticate")
	}
	if c.Authenticate("mallory", "s3cret") {
		t.Error("unknown user must not authenticate")
	}
}

func TestIsAdmin(t *testing.T) {
	adminHash, _ := HashPassword("a")
	userHash, _ := HashPassword("u")
	c := NewChecker(map[string]string{AdminUser: adminHash, "alice": userHash})

	if !c.IsAdmin(AdminUser) {
		t.Error("admin should be admin")
	}
	if c.IsAdmin("alice") {
		t.Error("alice should not be admin")
	}
	if c.IsAdmin("ghost") {
		t.Error("unknown user should not be admin")
	}
}

func TestEmptyChecker(t *testing.T) {
	c := NewChecker(nil)
	if c.Authenticate("anyone", "anything") {
		t.Error("empty checker must reject everyone")
	}
}
