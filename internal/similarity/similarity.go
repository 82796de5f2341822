// Package similarity defines the content-similarity collaborator interface.
// The daemon consumes it to score semantic drift between file revisions and
// to answer nearest-neighbor queries. The scoring formula itself is owned by
// the external service; this package only speaks its wire contract.
package similarity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// ErrUnavailable wraps transport failures against the similarity service.
// Treated as transient by the monitor engine.
var ErrUnavailable = errors.New("similarity service unavailable")

// Match is one nearest-neighbor result. Similarity is in [0.0, 1.0],
// 1.0 meaning identical content.
type Match struct {
	Path       string  `json:"path"`
	Similarity float64 `json:"similarity"`
}

// Service scores semantic drift and answers nearest-neighbor lookups.
type Service interface {
	// Score returns the drift between old and new content. A first
	// observation (no prior content) is zero drift by definition and is
	// handled by the caller, not here.
	Score(ctx context.Context, oldContent, newContent []byte) (float64, error)
	// Nearest returns up to k matches ordered by descending similarity.
	Nearest(ctx context.Context, content []byte, k int) ([]Match, error)
}

// HTTPService talks JSON over HTTP to an embedding service exposing
// POST /score and POST /nearest.
type HTTPService struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPService creates a client for the similarity service at baseURL.
func NewHTTPService(baseURL string) *HTTPService {
	return &HTTPService{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type scoreRequest struct {
	OldContent []byte `json:"old_content"`
	NewContent []byte `json:"new_content"`
}

type scoreResponse struct {
	Angle float64 `json:"angle"`
}

func (s *HTTPService) Score(ctx context.Context, oldContent, newContent []byte) (float64, error) {
	var resp scoreResponse
	err := s.post(ctx, "/score", scoreRequest{OldContent: oldContent, NewContent: newContent}, &resp)
	if err != nil {
		return 0, err
	}
	return resp.Angle, nil
}

type nearestRequest struct {
	Content []byte `json:"content"`
	K       int    `json:"k"`
}

type nearestResponse struct {
	Matches []Match `json:"matches"`
}

func (s *HTTPService) Nearest(ctx context.Context, content []byte, k int) ([]Match, error) {
	var resp nearestResponse
	if err := s.post(ctx, "/nearest", nearestRequest{Content: content, K: k}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Matches) > k {
		resp.Matches = resp.Matches[:k]
	}
	return resp.Matches, nil
}

func (s *HTTPService) post(ctx context.Context, path string, body, result interface{}) error {
	u, err := url.JoinPath(s.baseURL, path)
	if err != nil {
		return fmt.Errorf("bad similarity URL: %w", err)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("cannot marshal similarity request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("cannot build similarity request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: %s returned %s", ErrUnavailable, path, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("%w: bad response from %s: %v", ErrUnavailable, path, err)
	}
	return nil
}

// interface guard
var _ Service = (*HTTPService)(nil)
