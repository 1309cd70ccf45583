package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"legalrag/internal/domain"
	"legalrag/internal/vectorstore"
)

// pointNamespace seeds the UUIDv5 point ids derived from passage ids.
var pointNamespace = uuid.MustParse("6f1c0e4a-3b7d-4c55-9a0e-2f58c1d9b7e1")

// Storage is a minimal REST client to Qdrant.
// It assumes cosine distance and creates the collection on first write.
type Storage struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client

	mu        sync.Mutex
	dimension int
	ready     bool
	lastSeq   int64
}

var _ vectorstore.Index = (*Storage)(nil)

type Config struct {
	URL        string
	APIKey     string
	Collection string
	// Dimension, when set, fixes the vector size; otherwise it is taken from
	// the first upserted vector.
	Dimension int
	Timeout   time.Duration
}

func NewStorage(cfg Config) *Storage {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Storage{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		dimension:  cfg.Dimension,
		client:     &http.Client{Timeout: timeout},
	}
}

func (s *Storage) Name() string { return s.collection }

func (s *Storage) Location() string { return s.url }

// PointID maps a passage id to the UUID Qdrant stores it under.
func PointID(id string) string {
	return uuid.NewSHA1(pointNamespace, []byte(id)).String()
}

type payload struct {
	ID       string          `json:"passage_id"`
	Text     string          `json:"text"`
	Metadata domain.Metadata `json:"metadata"`
	Seq      int64           `json:"seq"`
}

func (s *Storage) ensureCollection(ctx context.Context, dimension int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}
	if s.dimension == 0 {
		s.dimension = dimension
	}
	if s.dimension <= 0 {
		return errors.New("invalid dimension")
	}
	exists, err := s.collectionExists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		body := map[string]any{
			"vectors": map[string]any{
				"size":     s.dimension,
				"distance": "Cosine",
			},
		}
		if err := s.do(ctx, http.MethodPut, s.collectionURL(""), body, nil); err != nil {
			return err
		}
	}
	s.ready = true
	return nil
}

func (s *Storage) collectionExists(ctx context.Context) (bool, error) {
	err := s.do(ctx, http.MethodGet, s.collectionURL(""), nil, nil)
	var se *statusError
	if errors.As(err, &se) && se.code == http.StatusNotFound {
		return false, nil
	}
	return err == nil, err
}

func (s *Storage) Upsert(ctx context.Context, entries []vectorstore.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := s.ensureCollection(ctx, len(entries[0].Vector)); err != nil {
		return err
	}
	ids := make([]string, len(entries))
	for i, e := range entries {
		if e.ID == "" {
			return errors.New("entry without id")
		}
		ids[i] = PointID(e.ID)
	}
	seqs, err := s.existingSeqs(ctx, ids)
	if err != nil {
		return err
	}
	base := s.nextSeqs(len(entries))
	points := make([]map[string]any, len(entries))
	for i, e := range entries {
		seq, ok := seqs[ids[i]]
		if !ok {
			seq = base + int64(i)
		}
		points[i] = map[string]any{
			"id":      ids[i],
			"vector":  e.Vector,
			"payload": payload{ID: e.ID, Text: e.Text, Metadata: e.Metadata, Seq: seq},
		}
	}
	body := map[string]any{"points": points}
	return s.do(ctx, http.MethodPut, s.collectionURL("/points?wait=true"), body, nil)
}

// nextSeqs reserves n increasing sequence numbers, starting no earlier than
// the current time so they keep growing across process restarts.
func (s *Storage) nextSeqs(n int) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	base := time.Now().UnixNano()
	if base <= s.lastSeq {
		base = s.lastSeq + 1
	}
	s.lastSeq = base + int64(n) - 1
	return base
}

// existingSeqs returns the insertion sequence of the points that are already
// stored, so replacing a point keeps its original position among ties.
func (s *Storage) existingSeqs(ctx context.Context, ids []string) (map[string]int64, error) {
	req := map[string]any{
		"ids":          ids,
		"with_payload": []string{"seq"},
		"with_vector":  false,
	}
	var resp struct {
		Result []struct {
			ID      string `json:"id"`
			Payload struct {
				Seq int64 `json:"seq"`
			} `json:"payload"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodPost, s.collectionURL("/points"), req, &resp); err != nil {
		return nil, err
	}
	seqs := make(map[string]int64, len(resp.Result))
	for _, r := range resp.Result {
		seqs[r.ID] = r.Payload.Seq
	}
	return seqs, nil
}

func (s *Storage) Search(ctx context.Context, vector []float64, k int) ([]vectorstore.Hit, error) {
	if k <= 0 {
		return nil, nil
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			Score   float64 `json:"score"`
			Payload payload `json:"payload"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodPost, s.collectionURL("/points/search"), req, &resp); err != nil {
		var se *statusError
		if errors.As(err, &se) && se.code == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	hits := make([]vectorstore.Hit, len(resp.Result))
	seqs := make([]int64, len(resp.Result))
	for i, r := range resp.Result {
		hits[i] = vectorstore.Hit{
			ID:       r.Payload.ID,
			Text:     r.Payload.Text,
			Metadata: r.Payload.Metadata,
			Distance: 1 - r.Score,
		}
		seqs[i] = r.Payload.Seq
	}
	orderTies(hits, seqs)
	return hits, nil
}

// orderTies reorders runs of equal distance by insertion sequence, since
// Qdrant does not guarantee an order among equal scores.
func orderTies(hits []vectorstore.Hit, seqs []int64) {
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].Distance == hits[j-1].Distance && seqs[j] < seqs[j-1]; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
			seqs[j], seqs[j-1] = seqs[j-1], seqs[j]
		}
	}
}

func (s *Storage) Count(ctx context.Context) (int, error) {
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	err := s.do(ctx, http.MethodPost, s.collectionURL("/points/count"), map[string]any{"exact": true}, &resp)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && se.code == http.StatusNotFound {
			return 0, nil
		}
		return 0, err
	}
	return resp.Result.Count, nil
}

// Reset deletes the collection. It is recreated on the next upsert.
func (s *Storage) Reset(ctx context.Context) error {
	err := s.do(ctx, http.MethodDelete, s.collectionURL(""), nil, nil)
	var se *statusError
	if err != nil && !(errors.As(err, &se) && se.code == http.StatusNotFound) {
		return err
	}
	s.mu.Lock()
	s.ready = false
	s.mu.Unlock()
	return nil
}

func (s *Storage) Close() error { return nil }

func (s *Storage) collectionURL(suffix string) string {
	return fmt.Sprintf("%s/collections/%s%s", s.url, s.collection, suffix)
}

type statusError struct {
	method string
	url    string
	code   int
	status string
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("qdrant %s %s failed: %s %s", e.method, e.url, e.status, e.body)
}

func (s *Storage) do(ctx context.Context, method, url string, body, out any) error {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, r)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &statusError{method: method, url: url, code: resp.StatusCode, status: resp.Status, body: string(bytes.TrimSpace(msg))}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
