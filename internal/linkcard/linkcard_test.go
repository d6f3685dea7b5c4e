package linkcard

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetchOpenGraphMetadata(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head>
			<title>Fallback Title</title>
			<meta property="og:title" content="Launch Day">
			<meta property="og:image" content="https://img.example/launch.jpg">
		</head><body></body></html>`))
	}))
	defer srv.Close()

	card, err := NewFetcher().Fetch(srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if card.Title != "Launch Day" {
		t.Errorf("title = %q", card.Title)
	}
	if card.ImageURL != "https://img.example/launch.jpg" {
		t.Errorf("imageURL = %q", card.ImageURL)
	}
	if card.URL != srv.URL {
		t.Errorf("url = %q", card.URL)
	}
}

func TestFetchFallsBackToDocumentTitle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><title>  Plain Page  </title></head><body></body></html>`))
	}))
	defer srv.Close()

	card, err := NewFetcher().Fetch(srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if card.Title != "Plain Page" {
		t.Errorf("title = %q", card.Title)
	}
	if card.ImageURL != "" {
		t.Errorf("imageURL = %q, want empty", card.ImageURL)
	}
}

func TestFetchNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	if _, err := NewFetcher().Fetch(srv.URL); err == nil {
		t.Fatal("expected an error for a 404 response")
	}
}

func TestFetchUnreachableHost(t *testing.T) {
	if _, err := NewFetcher().Fetch("http://127.0.0.1:1/nope"); err == nil {
		t.Fatal("expected an error for an unreachable host")
	}
}
