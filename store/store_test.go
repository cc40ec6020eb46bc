package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"campuscal/adapter"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCredentialRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	cred := adapter.Credentials{Adapter: "大学本科生", Token: "TGC-1234567890"}
	key, err := s.Put(ctx, cred)
	if err != nil {
		t.Fatal(err)
	}
	if key == "" {
		t.Fatal("Put returned empty key")
	}

	got, err := s.Get(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	if got != cred {
		t.Errorf("Get(%q) = %+v, want %+v", key, got, cred)
	}

	if _, err := s.LastAccess(key); err != nil {
		t.Errorf("LastAccess after Get: %v", err)
	}
}

func TestDistinctKeys(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	cred := adapter.Credentials{Adapter: "a", Token: "t"}
	k1, err := s.Put(ctx, cred)
	if err != nil {
		t.Fatal(err)
	}
	k2, err := s.Put(ctx, cred)
	if err != nil {
		t.Fatal(err)
	}
	if k1 == k2 {
		t.Error("two Puts returned the same key")
	}
}

func TestGetUnknownKey(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Get(context.Background(), "no-such-key")
	if !errors.Is(err, adapter.ErrCredentialNotFound) {
		t.Errorf("got %v, want ErrCredentialNotFound", err)
	}
}
