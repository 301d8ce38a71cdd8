package embedding

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float32
	}{
		{"identical", []float32{1, 0}, []float32{1, 0}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"empty", nil, nil, 0},
		{"length mismatch", []float32{1}, []float32{1, 0}, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if math.Abs(float64(got-tt.want)) > 1e-6 {
				t.Errorf("CosineSimilarity = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCosineSimilarityScaleInvariant(t *testing.T) {
	a := []float32{3, 4}
	b := []float32{0.3, 0.4}
	if got := CosineSimilarity(a, b); math.Abs(float64(got)-1) > 1e-6 {
		t.Errorf("scaled parallel vectors: cos = %v, want 1", got)
	}
}

func TestMean(t *testing.T) {
	got := Mean([][]float32{{1, 2}, nil, {3, 4}})
	if got == nil || got[0] != 2 || got[1] != 3 {
		t.Errorf("Mean = %v, want [2 3]", got)
	}

	if Mean(nil) != nil {
		t.Error("Mean of nothing should be nil")
	}
	if Mean([][]float32{nil, nil}) != nil {
		t.Error("Mean of all-nil should be nil")
	}
}

// flakyClient fails a fixed number of times before succeeding.
type flakyClient struct {
	failures int
	calls    int
}

func (c *flakyClient) GetEmbeddings(_ context.Context, texts []string) ([][]float32, error) {
	c.calls++
	if c.calls <= c.failures {
		return nil, errors.New("transient")
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1}
	}
	return out, nil
}

func TestRetryRecoversFromTransientFailure(t *testing.T) {
	inner := &flakyClient{failures: 2}
	r := NewRetry(inner, 3)

	vecs, err := r.GetEmbeddings(context.Background(), []string{"a"})
	if err != nil {
		t.Fatalf("expected recovery, got %v", err)
	}
	if len(vecs) != 1 {
		t.Fatalf("got %d vectors, want 1", len(vecs))
	}
	if inner.calls != 3 {
		t.Errorf("inner called %d times, want 3", inner.calls)
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	inner := &flakyClient{failures: 100}
	r := NewRetry(inner, 1)

	if _, err := r.GetEmbeddings(context.Background(), []string{"a"}); err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if inner.calls != 2 {
		t.Errorf("inner called %d times, want 2", inner.calls)
	}
}

func TestRetryHonorsContextCancellation(t *testing.T) {
	inner := &flakyClient{failures: 100}
	r := NewRetry(inner, 5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.GetEmbeddings(ctx, []string{"a"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestTEIGetEmbeddings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embed" {
			t.Errorf("path = %q, want /embed", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		w.Write([]byte(`[[0.1, 0.2], [0.3, 0.4]]`))
	}))
	defer srv.Close()

	client := NewTEI(srv.URL)
	vecs, err := client.GetEmbeddings(context.Background(), []string{"one", "two"})
	if err != nil {
		t.Fatalf("GetEmbeddings returned error: %v", err)
	}
	if len(vecs) != 2 || vecs[0][1] != 0.2 || vecs[1][0] != 0.3 {
		t.Errorf("vectors = %v", vecs)
	}
}

func TestTEICountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`[[0.1]]`))
	}))
	defer srv.Close()

	client := NewTEI(srv.URL)
	if _, err := client.GetEmbeddings(context.Background(), []string{"one", "two"}); err == nil {
		t.Fatal("expected error on vector count mismatch")
	}
}

func TestTEIServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewTEI(srv.URL)
	if _, err := client.GetEmbeddings(context.Background(), []string{"one"}); err == nil {
		t.Fatal("expected error on non-200 status")
	}
}

func TestDisabledAlwaysErrors(t *testing.T) {
	_, err := Disabled{}.GetEmbeddings(context.Background(), []string{"x"})
	if !errors.Is(err, ErrDisabled) {
		t.Fatalf("err = %v, want ErrDisabled", err)
	}
}
