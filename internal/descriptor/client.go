package descriptor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"
)

const (
	defaultExtractorURL = "http://localhost:8000"
	// maxFrameEdge is the longest image edge sent to the extractor; larger
	// frames are downscaled first to keep upload and inference cheap.
	maxFrameEdge = 1024
)

// Client talks to the face descriptor server over HTTP.
type Client struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewClient creates a descriptor server client.
func NewClient(baseURL, model string) *Client {
	if baseURL == "" {
		baseURL = defaultExtractorURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// faceDetection is a single detected face in the server response.
type faceDetection struct {
	FaceIndex int       `json:"face_index"`
	Dim       int       `json:"dim"`
	Embedding []float32 `json:"embedding"`
	DetScore  float64   `json:"det_score"`
}

// faceResponse is the response from the face descriptor endpoint.
type faceResponse struct {
	FacesCount int             `json:"faces_count"`
	Faces      []faceDetection `json:"faces"`
	Model      string          `json:"model"`
}

// healthResponse is the response from the readiness endpoint.
type healthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
}

// postMultipartFrame constructs a multipart form with the frame data and posts
// it to the given endpoint. The part carries an explicit Content-Type based on
// magic byte detection.
func (c *Client) postMultipartFrame(ctx context.Context, endpoint string, frame []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="frame.jpg"`)
	h.Set("Content-Type", detectMIMEType(frame))
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}

	if _, err := part.Write(frame); err != nil {
		return nil, fmt.Errorf("failed to write frame data: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusServiceUnavailable {
		return nil, ErrNotReady
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}

// Extract computes the face descriptor for a frame. When the server reports
// several faces, the one with the highest detection score is taken.
func (c *Client) Extract(ctx context.Context, frame []byte) (*Descriptor, error) {
	scaled, err := downscaleFrame(frame, maxFrameEdge)
	if err != nil {
		// Not decodable locally; let the server decide.
		scaled = frame
	}

	body, err := c.postMultipartFrame(ctx, "/faces/embed", scaled)
	if err != nil {
		return nil, err
	}

	var faceResp faceResponse
	if err := json.Unmarshal(body, &faceResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if faceResp.FacesCount == 0 || len(faceResp.Faces) == 0 {
		return nil, ErrNoFaceDetected
	}

	best := faceResp.Faces[0]
	for _, f := range faceResp.Faces[1:] {
		if f.DetScore > best.DetScore {
			best = f
		}
	}
	if len(best.Embedding) == 0 {
		return nil, fmt.Errorf("empty descriptor returned for detected face")
	}

	return &Descriptor{
		Vector: best.Embedding,
		Model:  faceResp.Model,
		Dim:    best.Dim,
		Score:  best.DetScore,
	}, nil
}

// Ready checks whether the descriptor server has its model loaded.
func (c *Client) Ready(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotReady, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ErrNotReady
	}

	var health healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return fmt.Errorf("failed to parse health response: %w", err)
	}
	if !health.ModelLoaded {
		return ErrNotReady
	}
	return nil
}

// Model returns the model name being used, for reference only.
func (c *Client) Model() string {
	return c.model
}

// detectMIMEType detects the MIME type from frame data
func detectMIMEType(data []byte) string {
	if len(data) < 8 {
		return "application/octet-stream"
	}
	// JPEG: FF D8 FF
	if data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		return "image/jpeg"
	}
	// PNG: 89 50 4E 47
	if data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 {
		return "image/png"
	}
	// WebP: 52 49 46 46 ... 57 45 42 50
	if len(data) >= 12 && data[0] == 0x52 && data[1] == 0x49 && data[2] == 0x46 && data[3] == 0x46 &&
		data[8] == 0x57 && data[9] == 0x45 && data[10] == 0x42 && data[11] == 0x50 {
		return "image/webp"
	}
	return "application/octet-stream"
}
