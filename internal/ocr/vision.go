package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/fan-ledger/internal/common"
)

// VisionClient calls the Cloud Vision images:annotate endpoint with TEXT_DETECTION.
type VisionClient struct {
	endpoint string
	apiKey   string
	token    string
	http     *http.Client
	logger   *slog.Logger
}

type visionRequest struct {
	Requests []visionImageRequest `json:"requests"`
}

type visionImageRequest struct {
	Image    visionImage     `json:"image"`
	Features []visionFeature `json:"features"`
}

type visionImage struct {
	Content string `json:"content"`
}

type visionFeature struct {
	Type string `json:"type"`
}

type visionResponse struct {
	Responses []struct {
		TextAnnotations []struct {
			Description  string `json:"description"`
			BoundingPoly struct {
				Vertices []Point `json:"vertices"`
			} `json:"boundingPoly"`
		} `json:"textAnnotations"`
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	} `json:"responses"`
}

// NewVisionClient returns common.ErrAuthMissing when neither an API key nor an access
// token is configured.
func NewVisionClient(endpoint, apiKey, token string, timeout time.Duration, logger *slog.Logger) (*VisionClient, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if apiKey == "" && token == "" {
		return nil, common.NewAppError(common.CodeAuthMissing, "vision credentials", common.ErrAuthMissing)
	}
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &VisionClient{
		endpoint: endpoint,
		apiKey:   apiKey,
		token:    token,
		http:     &http.Client{Timeout: timeout},
		logger:   logger,
	}, nil
}

// Recognize sends one image and returns its text annotations in response order.
func (c *VisionClient) Recognize(ctx context.Context, image []byte) ([]Token, error) {
	reqID := uuid.New().String()
	start := time.Now()

	body, err := json.Marshal(visionRequest{Requests: []visionImageRequest{{
		Image:    visionImage{Content: base64.StdEncoding.EncodeToString(image)},
		Features: []visionFeature{{Type: "TEXT_DETECTION"}},
	}}})
	if err != nil {
		return nil, fmt.Errorf("encode vision request: %w", err)
	}

	target := c.endpoint
	if c.apiKey != "" {
		target += "?key=" + url.QueryEscape(c.apiKey)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build vision request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	c.logger.Debug("ocr.vision.request", "req_id", reqID, "image_bytes", len(image))
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("ocr.vision.send_error", "req_id", reqID, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, common.NetworkFailure("vision annotate", err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			c.logger.Warn("ocr.vision.response_body_close_error", "req_id", reqID, "error", err)
		}
	}(resp.Body)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, common.NetworkFailure("vision read body", err)
	}
	c.logger.Debug("ocr.vision.response",
		"req_id", reqID,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, common.NewAppError(common.CodeAuthMissing, fmt.Sprintf("vision status %d", resp.StatusCode), common.ErrAuthMissing)
	case resp.StatusCode/100 != 2:
		return nil, common.NetworkFailure("vision annotate", fmt.Errorf("non-2xx status: %d", resp.StatusCode))
	}

	var out visionResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode vision response: %w", err)
	}
	if len(out.Responses) == 0 {
		return nil, nil
	}
	r := out.Responses[0]
	if r.Error != nil {
		return nil, fmt.Errorf("vision error %d: %s", r.Error.Code, r.Error.Message)
	}

	tokens := make([]Token, 0, len(r.TextAnnotations))
	for _, a := range r.TextAnnotations {
		t := Token{Text: a.Description}
		// vision omits zero coordinates and, rarely, whole vertices
		for i := 0; i < len(t.Box) && i < len(a.BoundingPoly.Vertices); i++ {
			t.Box[i] = a.BoundingPoly.Vertices[i]
		}
		tokens = append(tokens, t)
	}
	return tokens, nil
}
