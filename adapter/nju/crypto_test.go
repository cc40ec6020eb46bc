package nju

import "testing"

func TestEncryptPassword(t *testing.T) {
	got, err := EncryptPassword("aaaaaa", "xHbfAO7d6lYwkFCH")
	if err != nil {
		t.Fatalf("EncryptPassword: %v", err)
	}
	want := "HTUWr2j27SNWdK0efirBxHG6INtWi4xQYg3hCmpCmkMblaFxK9SlECq73/Heen5yQHQPOOYofQNwXhH1iMtT6P4RxqOw+Ko0yd7GcHJmv94="
	if got != want {
		t.Errorf("EncryptPassword = %q, want %q", got, want)
	}
}

func TestEncryptPasswordBadSalt(t *testing.T) {
	if _, err := EncryptPassword("pw", "short"); err == nil {
		t.Error("expected error for non 16-byte salt")
	}
}
