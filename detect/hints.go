package detect

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/truffle/internal/retry"
	"github.com/BaSui01/truffle/oracle"
)

// HintSource proposes text snippets that appear inside list items.
type HintSource interface {
	Hints(ctx context.Context, screenshot []byte) ([]string, error)
}

// VisionModel analyses a base64 PNG and answers in JSON.
type VisionModel interface {
	AnalyzeImage(ctx context.Context, imageBase64 string, prompt string) (string, error)
}

const hintPrompt = `Analyze this webpage screenshot and find the main list on the page.
Return a JSON object listing distinct list items:
{"items": [{"text": "a short substring of the item's visible text, in the page's language"}]}
Each text must be usable to find the item with CTRL+F. Only return valid JSON, no markdown.`

type hintReply struct {
	Items []struct {
		Text string `json:"text"`
	} `json:"items"`
}

// VisionHints asks a vision model which texts belong to list items.
type VisionHints struct {
	model   VisionModel
	backoff *retry.Backoff
	logger  *zap.Logger
}

// NewVisionHints creates a hint source. Only malformed replies are retried.
func NewVisionHints(model VisionModel, policy retry.Policy, logger *zap.Logger) *VisionHints {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "vision_hints"))
	policy.RetryableErrors = []error{oracle.ErrValidation}
	return &VisionHints{model: model, backoff: retry.NewBackoff(policy, logger), logger: logger}
}

// Hints implements HintSource.
func (v *VisionHints) Hints(ctx context.Context, screenshot []byte) ([]string, error) {
	if len(screenshot) == 0 {
		return nil, fmt.Errorf("empty screenshot")
	}
	img, err := CropScreenshot(screenshot)
	if err != nil {
		return nil, err
	}
	encoded := base64.StdEncoding.EncodeToString(img)

	hints, err := retry.DoWithResult(ctx, v.backoff, func(int) ([]string, error) {
		reply, err := v.model.AnalyzeImage(ctx, encoded, hintPrompt)
		if err != nil {
			return nil, fmt.Errorf("vision analysis failed: %w", err)
		}
		return ParseHints(reply)
	})
	if err != nil {
		return nil, err
	}
	v.logger.Debug("hints received", zap.Int("count", len(hints)))
	return hints, nil
}

// ParseHints decodes {"items":[{"text":...}]}, dropping blank and repeated
// texts.
func ParseHints(reply string) ([]string, error) {
	var r hintReply
	if err := json.Unmarshal([]byte(oracle.StripFences(reply)), &r); err != nil {
		return nil, oracle.NewValidationError("hint reply is not valid JSON", err)
	}
	seen := make(map[string]bool, len(r.Items))
	var out []string
	for _, it := range r.Items {
		t := strings.TrimSpace(it.Text)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out, nil
}

// CropScreenshot keeps the top-left region of a PNG so that neither side
// exceeds twice the other.
func CropScreenshot(data []byte) ([]byte, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	cw, ch := min(w, 2*h), min(h, 2*w)
	if cw == w && ch == h {
		return data, nil
	}

	sub, ok := img.(interface {
		SubImage(r image.Rectangle) image.Image
	})
	if !ok {
		return data, nil
	}
	cropped := sub.SubImage(image.Rect(b.Min.X, b.Min.Y, b.Min.X+cw, b.Min.Y+ch))

	var buf bytes.Buffer
	if err := png.Encode(&buf, cropped); err != nil {
		return nil, fmt.Errorf("encode screenshot: %w", err)
	}
	return buf.Bytes(), nil
}
