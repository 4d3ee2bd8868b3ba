package auth

import (
	"testing"

	"github.com/a-h/solvent/store"
	"github.com/google/go-cmp/cmp"
)

func TestKVStorage(t *testing.T) {
	s, closer, err := store.New(t.Context(), "sqlite", "file::memory:?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer closer()

	storage := NewKVStorage(s)

	t.Run("missing credentials report ok=false", func(t *testing.T) {
		_, ok, err := storage.Get(t.Context(), "repo.example.com", "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ok {
			t.Error("expected ok=false")
		}
	})

	t.Run("stored credentials round-trip", func(t *testing.T) {
		want := Credential{Kind: KindCondaToken, Token: "tk-123"}
		if err := storage.Put(t.Context(), "repo.example.com", "", want); err != nil {
			t.Fatalf("failed to put credential: %v", err)
		}
		got, ok, err := storage.Get(t.Context(), "repo.example.com", "")
		if err != nil {
			t.Fatalf("failed to get credential: %v", err)
		}
		if !ok {
			t.Fatal("expected ok=true")
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Error(diff)
		}
	})

	t.Run("path-scoped credentials are distinct from host credentials", func(t *testing.T) {
		hostCred := Credential{Kind: KindBearerToken, Token: "host-token"}
		scopedCred := Credential{Kind: KindBasicHTTP, Username: "u", Password: "p"}
		if err := storage.Put(t.Context(), "scoped.example.com", "", hostCred); err != nil {
			t.Fatalf("failed to put host credential: %v", err)
		}
		if err := storage.Put(t.Context(), "scoped.example.com", "/t/private", scopedCred); err != nil {
			t.Fatalf("failed to put scoped credential: %v", err)
		}

		entries, err := storage.List(t.Context())
		if err != nil {
			t.Fatalf("failed to list entries: %v", err)
		}
		var foundHost, foundScoped bool
		for _, e := range entries {
			if e.Host != "scoped.example.com" {
				continue
			}
			if e.PathPrefix == "" && cmp.Diff(hostCred, e.Credential) == "" {
				foundHost = true
			}
			if e.PathPrefix == "/t/private" && cmp.Diff(scopedCred, e.Credential) == "" {
				foundScoped = true
			}
		}
		if !foundHost || !foundScoped {
			t.Errorf("expected both host and path-scoped entries, got %+v", entries)
		}
	})

	t.Run("delete removes a credential", func(t *testing.T) {
		if err := storage.Put(t.Context(), "todelete.example.com", "", Credential{Kind: KindBearerToken, Token: "x"}); err != nil {
			t.Fatalf("failed to put: %v", err)
		}
		if err := storage.Delete(t.Context(), "todelete.example.com", ""); err != nil {
			t.Fatalf("failed to delete: %v", err)
		}
		_, ok, err := storage.Get(t.Context(), "todelete.example.com", "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ok {
			t.Error("expected credential to be gone after delete")
		}
	})
}
