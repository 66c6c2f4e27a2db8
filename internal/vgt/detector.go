package vgt

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/akolanti/LayoutAPI/internal/customHttpClient"
	"github.com/akolanti/LayoutAPI/internal/wordgrid"
	"github.com/akolanti/LayoutAPI/pkg/logger_i"
	"github.com/avast/retry-go/v4"
)

// Instance is one detected region. BBox is COCO [x, y, width, height] in image pixels.
type Instance struct {
	CategoryID int        `json:"category_id"`
	BBox       [4]float64 `json:"bbox"`
	Score      float64    `json:"score"`
}

type DetectRequest struct {
	ImageID int
	Image   image.Image
	Grid    *wordgrid.Tensor
}

// Detector is the layout model backbone and heads, served outside this process.
type Detector interface {
	Load(ctx context.Context, weightsPath string) error
	Detect(ctx context.Context, req DetectRequest) ([]Instance, error)
}

type HTTPDetector struct {
	baseURL    string
	client     *http.Client
	maxRetries uint
	logger     *logger_i.Logger
}

func NewHTTPDetector(baseURL string, timeout time.Duration, maxRetries uint) *HTTPDetector {
	return &HTTPDetector{
		baseURL:    strings.TrimRight(baseURL, "/"),
		client:     customHttpClient.GetClient(timeout),
		maxRetries: maxRetries,
		logger:     logger_i.NewLogger("HTTPDetector"),
	}
}

type loadRequest struct {
	Weights string `json:"weights"`
}

type tensorPayload struct {
	Shape []int  `json:"shape"`
	DType string `json:"dtype"`
	Data  string `json:"data"`
}

type imagePayload struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	PNG    string `json:"png"`
}

type predictRequest struct {
	ImageID int           `json:"image_id"`
	Image   imagePayload  `json:"image"`
	Grid    tensorPayload `json:"grid"`
}

type predictResponse struct {
	Instances []Instance `json:"instances"`
}

func (d *HTTPDetector) Load(ctx context.Context, weightsPath string) error {
	return d.post(ctx, "/load", loadRequest{Weights: weightsPath}, nil)
}

func (d *HTTPDetector) Detect(ctx context.Context, req DetectRequest) ([]Instance, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, req.Image); err != nil {
		return nil, fmt.Errorf("encoding page image: %w", err)
	}
	bounds := req.Image.Bounds()
	body := predictRequest{
		ImageID: req.ImageID,
		Image: imagePayload{
			Width:  bounds.Dx(),
			Height: bounds.Dy(),
			PNG:    base64.StdEncoding.EncodeToString(buf.Bytes()),
		},
		Grid: encodeTensor(req.Grid),
	}

	var resp predictResponse
	if err := d.post(ctx, "/predict", body, &resp); err != nil {
		return nil, err
	}
	return resp.Instances, nil
}

// encodeTensor packs the grid embedding as little-endian float32.
func encodeTensor(t *wordgrid.Tensor) tensorPayload {
	raw := make([]byte, 4*len(t.Data))
	for i, v := range t.Data {
		binary.LittleEndian.PutUint32(raw[4*i:], math.Float32bits(v))
	}
	return tensorPayload{
		Shape: t.Shape[:],
		DType: "float32",
		Data:  base64.StdEncoding.EncodeToString(raw),
	}
}

func (d *HTTPDetector) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	url := d.baseURL + path

	return retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
			if err != nil {
				return retry.Unrecoverable(err)
			}
			req.Header.Set("Content-Type", "application/json")

			resp, err := d.client.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
				err := fmt.Errorf("model server %s returned %d: %s", path, resp.StatusCode, strings.TrimSpace(string(msg)))
				if resp.StatusCode < 500 {
					return retry.Unrecoverable(err)
				}
				return err
			}
			if out == nil {
				return nil
			}
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return retry.Unrecoverable(fmt.Errorf("decoding model server response: %w", err))
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(d.maxRetries+1),
		retry.Delay(200*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			d.logger.Warn("model server call failed, retrying", "path", path, "attempt", n+1, "error", err)
		}),
	)
}
