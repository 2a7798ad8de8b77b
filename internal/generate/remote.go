package generate

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/san-kum/latentwalk/internal/latent"
	"github.com/san-kum/latentwalk/internal/sampler"
)

type generateRequest struct {
	Encodings     [][]float64 `json:"encodings"`
	EncodingShape []int       `json:"encoding_shape"`
	Noise         [][]float64 `json:"noise"`
	NoiseShape    []int       `json:"noise_shape"`
	Varying       string      `json:"varying"`
	BatchSize     int         `json:"batch_size"`
	NumSteps      int         `json:"num_steps,omitempty"`
	GuidanceScale float64     `json:"unconditional_guidance_scale,omitempty"`
}

type generateResponse struct {
	Images []string `json:"images"`
	Error  string   `json:"error,omitempty"`
}

// RemoteOptions tune the diffusion call.
type RemoteOptions struct {
	NumSteps      int
	GuidanceScale float64
	Timeout       time.Duration
}

// Remote calls a diffusion service: POST {baseURL}/generate. Images come
// back base64-encoded (PNG or JPEG), one per batch item, in order.
type Remote struct {
	baseURL string
	opts    RemoteOptions
	client  *http.Client
}

func NewRemote(baseURL string, opts RemoteOptions) *Remote {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Minute
	}
	return &Remote{
		baseURL: strings.TrimRight(baseURL, "/"),
		opts:    opts,
		client:  &http.Client{Timeout: opts.Timeout},
	}
}

func (r *Remote) Generate(ctx context.Context, b sampler.Batch) ([]image.Image, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}

	body, err := json.Marshal(generateRequest{
		Encodings:     rows(b.Encodings),
		EncodingShape: b.Encodings[0].Shape(),
		Noise:         rows(b.Noise),
		NoiseShape:    b.Noise[0].Shape(),
		Varying:       b.Varying.String(),
		BatchSize:     b.Size(),
		NumSteps:      r.opts.NumSteps,
		GuidanceScale: r.opts.GuidanceScale,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/generate", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = res.Body.Close()
	}()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}

	var out generateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("status %d: decode response: %w", res.StatusCode, err)
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", res.StatusCode, out.Error)
	}

	images := make([]image.Image, len(out.Images))
	for i, enc := range out.Images {
		data, err := base64.StdEncoding.DecodeString(enc)
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", i, err)
		}
		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", i, err)
		}
		images[i] = img
	}
	return images, nil
}

func rows(vs []latent.Vector) [][]float64 {
	out := make([][]float64, len(vs))
	for i, v := range vs {
		out[i] = v.Data()
	}
	return out
}
