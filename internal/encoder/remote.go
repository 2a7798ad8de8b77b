package encoder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/san-kum/latentwalk/internal/latent"
)

type encodeRequest struct {
	Prompt string `json:"prompt"`
}

type encodeResponse struct {
	Shape []int     `json:"shape"`
	Data  []float64 `json:"data"`
	Error string    `json:"error,omitempty"`
}

// Remote calls a text-encoder service: POST {baseURL}/encode.
type Remote struct {
	baseURL string
	shape   latent.Shape
	client  *http.Client
}

// NewRemote returns a client expecting encodings of the given shape.
func NewRemote(baseURL string, shape latent.Shape, timeout time.Duration) *Remote {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Remote{
		baseURL: strings.TrimRight(baseURL, "/"),
		shape:   shape.Clone(),
		client:  &http.Client{Timeout: timeout},
	}
}

func (r *Remote) Shape() latent.Shape { return r.shape.Clone() }

func (r *Remote) Encode(ctx context.Context, prompt string) (latent.Vector, error) {
	body, err := json.Marshal(encodeRequest{Prompt: prompt})
	if err != nil {
		return latent.Vector{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/encode", bytes.NewReader(body))
	if err != nil {
		return latent.Vector{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := r.client.Do(req)
	if err != nil {
		return latent.Vector{}, fmt.Errorf("encode prompt: %w", err)
	}
	defer func() {
		_ = res.Body.Close()
	}()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return latent.Vector{}, fmt.Errorf("encode prompt: %w", err)
	}

	var out encodeResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return latent.Vector{}, fmt.Errorf("encode prompt: status %d: %w", res.StatusCode, err)
	}
	if res.StatusCode != http.StatusOK {
		return latent.Vector{}, fmt.Errorf("encode prompt: status %d: %s", res.StatusCode, out.Error)
	}

	v, err := latent.New(latent.Shape(out.Shape), out.Data)
	if err != nil {
		return latent.Vector{}, fmt.Errorf("encode prompt: %w", err)
	}
	if len(r.shape) > 0 && !r.shape.Equal(v.Shape()) {
		return latent.Vector{}, fmt.Errorf("encode prompt: %w: expected %s, got %s", latent.ErrShapeMismatch, r.shape, v.Shape())
	}
	return v, nil
}
