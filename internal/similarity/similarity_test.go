package similarity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPServiceScore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/score" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req scoreRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if string(req.OldContent) != "hello" || string(req.NewContent) != "hello world" {
			t.Errorf("content not forwarded: %q -> %q", req.OldContent, req.NewContent)
		}
		_ = json.NewEncoder(w).Encode(scoreResponse{Angle: 0.42})
	}))
	defer srv.Close()

	svc := NewHTTPService(srv.URL)
	angle, err := svc.Score(context.Background(), []byte("hello"), []byte("hello world"))
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if angle != 0.42 {
		t.Errorf("angle = %g, want 0.42", angle)
	}
}

func TestHTTPServiceNearestTruncatesToK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(nearestResponse{Matches: []Match{
			{Path: "/a", Similarity: 0.9},
			{Path: "/b", Similarity: 0.8},
			{Path: "/c", Similarity: 0.7},
		}})
	}))
	defer srv.Close()

	matches, err := NewHTTPService(srv.URL).Nearest(context.Background(), []byte("x"), 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 2 || matches[0].Path != "/a" {
		t.Errorf("unexpected matches: %+v", matches)
	}
}

func TestHTTPServiceErrorsAreUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewHTTPService(srv.URL).Score(context.Background(), nil, []byte("x"))
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("want ErrUnavailable, got %v", err)
	}

	srv.Close()
	_, err = NewHTTPService(srv.URL).Score(context.Background(), nil, []byte("x"))
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("connection refused should be ErrUnavailable, got %v", err)
	}
}
