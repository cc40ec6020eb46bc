package fetch

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func redirectingServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc"})
		w.Header().Set("Location", "/landing")
		w.WriteHeader(http.StatusFound)
	})
	mux.HandleFunc("/landing", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestNoRedirectClientStopsAtRedirect(t *testing.T) {
	srv := redirectingServer(t)

	client, err := NewClientNoRedirect()
	if err != nil {
		t.Fatal(err)
	}
	resp, err := client.Get(srv.URL + "/start")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusFound {
		t.Fatalf("status = %d, want the redirect response itself", resp.StatusCode)
	}
	var found bool
	for _, c := range resp.Cookies() {
		if c.Name == "session" && c.Value == "abc" {
			found = true
		}
	}
	if !found {
		t.Error("Set-Cookie on the redirect response not observed")
	}
}

func TestClientFollowsRedirects(t *testing.T) {
	srv := redirectingServer(t)

	client, err := NewClient()
	if err != nil {
		t.Fatal(err)
	}
	resp, err := client.Get(srv.URL + "/start")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200 after following the redirect", resp.StatusCode)
	}
}
