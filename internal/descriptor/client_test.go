package descriptor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"testing"
)

// testJPEG encodes a small solid image so the client's downscale path has
// something decodable.
func testJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestExtractPicksHighestScoringFace(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/faces/embed" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(faceResponse{
			FacesCount: 2,
			Model:      "buffalo_l",
			Faces: []faceDetection{
				{FaceIndex: 0, Dim: 4, Embedding: []float32{1, 0, 0, 0}, DetScore: 0.61},
				{FaceIndex: 1, Dim: 4, Embedding: []float32{0, 1, 0, 0}, DetScore: 0.97},
			},
		})
	}))
	defer server.Close()

	c := NewClient(server.URL, "")
	d, err := c.Extract(context.Background(), testJPEG(t, 64, 64))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if d.Vector[1] != 1 {
		t.Errorf("expected highest-scoring face descriptor, got %v", d.Vector)
	}
	if d.Model != "buffalo_l" {
		t.Errorf("expected model 'buffalo_l', got '%s'", d.Model)
	}
	if d.Score != 0.97 {
		t.Errorf("expected det score 0.97, got %v", d.Score)
	}
}

func TestExtractNoFace(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(faceResponse{FacesCount: 0})
	}))
	defer server.Close()

	c := NewClient(server.URL, "")
	_, err := c.Extract(context.Background(), testJPEG(t, 64, 64))
	if !errors.Is(err, ErrNoFaceDetected) {
		t.Errorf("expected ErrNoFaceDetected, got %v", err)
	}
}

func TestExtractServerWarmingUp(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := NewClient(server.URL, "")
	_, err := c.Extract(context.Background(), testJPEG(t, 64, 64))
	if !errors.Is(err, ErrNotReady) {
		t.Errorf("expected ErrNotReady, got %v", err)
	}
}

func TestReady(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		modelLoaded bool
		wantReady   bool
	}{
		{"model loaded", http.StatusOK, true, true},
		{"model still loading", http.StatusOK, false, false},
		{"server error", http.StatusInternalServerError, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				json.NewEncoder(w).Encode(healthResponse{Status: "ok", ModelLoaded: tt.modelLoaded})
			}))
			defer server.Close()

			c := NewClient(server.URL, "")
			err := c.Ready(context.Background())
			if tt.wantReady && err != nil {
				t.Errorf("expected ready, got %v", err)
			}
			if !tt.wantReady && !errors.Is(err, ErrNotReady) {
				t.Errorf("expected ErrNotReady, got %v", err)
			}
		})
	}
}

func TestModel(t *testing.T) {
	if got := NewClient("http://extractor", "buffalo_l").Model(); got != "buffalo_l" {
		t.Errorf("expected configured model, got %q", got)
	}
	if got := NewClient("http://extractor", "").Model(); got != "" {
		t.Errorf("expected empty model when unconfigured, got %q", got)
	}
}

func TestDownscaleFrame(t *testing.T) {
	big := testJPEG(t, 2048, 1024)
	scaled, err := downscaleFrame(big, 1024)
	if err != nil {
		t.Fatalf("downscale failed: %v", err)
	}

	img, _, err := image.Decode(bytes.NewReader(scaled))
	if err != nil {
		t.Fatalf("failed to decode scaled frame: %v", err)
	}
	if img.Bounds().Dx() != 1024 || img.Bounds().Dy() != 512 {
		t.Errorf("expected 1024x512, got %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}

	small := testJPEG(t, 320, 240)
	kept, err := downscaleFrame(small, 1024)
	if err != nil {
		t.Fatalf("downscale failed: %v", err)
	}
	img, _, err = image.Decode(bytes.NewReader(kept))
	if err != nil {
		t.Fatalf("failed to decode kept frame: %v", err)
	}
	if img.Bounds().Dx() != 320 || img.Bounds().Dy() != 240 {
		t.Errorf("small frame should keep dimensions, got %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}
}
