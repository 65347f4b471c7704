package tmdb_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"showsync/internal/tmdb"
)

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := tmdb.New("", "https://example.com", "en-US", 0); err == nil {
		t.Fatal("expected error when api key missing")
	}
}

func TestFindByIMDbID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/find/tt11280740") {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		if r.URL.Query().Get("external_source") != "imdb_id" {
			t.Fatalf("expected external_source parameter, got %q", r.URL.RawQuery)
		}
		if r.URL.Query().Get("api_key") != "key" {
			t.Fatalf("expected api_key query parameter, got %q", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"tv_results":[{"id":95396,"name":"Severance","original_name":"Severance","first_air_date":"2022-02-17","popularity":321.5}],"movie_results":[]}`))
	}))
	t.Cleanup(server.Close)

	client, err := tmdb.New("key", server.URL, "en-US", 0)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	results, err := client.FindByIMDbID(context.Background(), "tt11280740")
	if err != nil {
		t.Fatalf("FindByIMDbID returned error: %v", err)
	}
	if len(results) != 1 || results[0].ID != 95396 || results[0].FirstAirDate != "2022-02-17" {
		t.Fatalf("unexpected results: %#v", results)
	}
}

func TestFindByIMDbIDUnknownIDIsEmptyNotError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"tv_results":[],"movie_results":[]}`))
	}))
	t.Cleanup(server.Close)

	client, err := tmdb.New("key", server.URL, "", 0)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	results, err := client.FindByIMDbID(context.Background(), "tt0000404")
	if err != nil {
		t.Fatalf("FindByIMDbID returned error: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results, got %#v", results)
	}
}

func TestGetTVDetailsKeepsRawPayload(t *testing.T) {
	payload := `{"id":95396,"name":"Severance","number_of_seasons":2,"number_of_episodes":19,"status":"Returning Series","first_air_date":"2022-02-17"}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tv/95396" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(payload))
	}))
	t.Cleanup(server.Close)

	client, err := tmdb.New("key", server.URL, "en-US", 0)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	details, err := client.GetTVDetails(context.Background(), 95396)
	if err != nil {
		t.Fatalf("GetTVDetails returned error: %v", err)
	}
	if details.NumberOfSeasons != 2 || details.Name != "Severance" {
		t.Fatalf("unexpected details: %#v", details)
	}
	if string(details.Raw) != payload {
		t.Fatalf("raw payload not preserved: %s", details.Raw)
	}
}

func TestAuthRejectionIsTyped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"status_code":7}`))
	}))
	t.Cleanup(server.Close)

	client, err := tmdb.New("bad", server.URL, "", 0)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	_, err = client.FindByIMDbID(context.Background(), "tt11280740")
	if !tmdb.IsAuthError(err) {
		t.Fatalf("expected auth error, got %v", err)
	}
}

func TestServerErrorIsNotAuthError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	client, err := tmdb.New("key", server.URL, "", 0)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	_, err = client.GetTVDetails(context.Background(), 95396)
	if err == nil || tmdb.IsAuthError(err) {
		t.Fatalf("expected plain error, got %v", err)
	}
}

func TestLimiterIsRespected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"tv_results":[]}`))
	}))
	t.Cleanup(server.Close)

	// One token, slow refill: the second call must block until the context
	// expires.
	client, err := tmdb.New("key", server.URL, "", 0,
		tmdb.WithLimiter(tmdb.NewLimiter(1, time.Hour)))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	if _, err := client.FindByIMDbID(context.Background(), "tt1"); err != nil {
		t.Fatalf("first call: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := client.FindByIMDbID(ctx, "tt2"); err == nil {
		t.Fatal("second call should have been limited")
	}
}
