package services_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"paeshift-backend/internal/services"
)

func TestGeocoder_MissingAPIKey(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	g := services.NewGeocoder(srv.URL, "", time.Second, nil, time.Minute)
	if got := g.Reverse(context.Background(), 6.5, 3.3); got != services.AddressAPIKeyMissing {
		t.Errorf("Reverse = %q, want %q", got, services.AddressAPIKeyMissing)
	}
	if called {
		t.Error("no upstream call should be made without an API key")
	}
}

func TestGeocoder_ResolvesDisplayName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/reverse" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.URL.Query().Get("api_key") != "k" {
			t.Errorf("api_key not forwarded")
		}
		w.Write([]byte(`{"display_name":"12 Allen Avenue, Ikeja, Lagos"}`))
	}))
	defer srv.Close()

	g := services.NewGeocoder(srv.URL, "k", time.Second, nil, time.Minute)
	if got := g.Reverse(context.Background(), 6.5, 3.3); got != "12 Allen Avenue, Ikeja, Lagos" {
		t.Errorf("Reverse = %q, want resolved address", got)
	}
}

func TestGeocoder_UpstreamFailuresDegrade(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"malformed body", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"display_name":`))
		}},
		{"empty display name", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"display_name":""}`))
		}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			srv := httptest.NewServer(c.handler)
			defer srv.Close()

			g := services.NewGeocoder(srv.URL, "k", time.Second, nil, time.Minute)
			if got := g.Reverse(context.Background(), 6.5, 3.3); got != services.AddressUnknown {
				t.Errorf("Reverse = %q, want %q", got, services.AddressUnknown)
			}
		})
	}
}

func TestGeocoder_TimeoutDegrades(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{"display_name":"too late"}`))
	}))
	defer srv.Close()

	g := services.NewGeocoder(srv.URL, "k", 20*time.Millisecond, nil, time.Minute)
	if got := g.Reverse(context.Background(), 6.5, 3.3); got != services.AddressUnknown {
		t.Errorf("Reverse = %q, want %q on timeout", got, services.AddressUnknown)
	}
}

func TestGeocoder_UnreachableUpstreamDegrades(t *testing.T) {
	// Reserved port with nothing listening.
	g := services.NewGeocoder("http://127.0.0.1:1", "k", 100*time.Millisecond, nil, time.Minute)
	if got := g.Reverse(context.Background(), 6.5, 3.3); got != services.AddressUnknown {
		t.Errorf("Reverse = %q, want %q", got, services.AddressUnknown)
	}
}
