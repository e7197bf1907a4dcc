// Package extract turns uploaded files into indexable plain text.
package extract

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/haasonsaas/tome/pkg/models"
)

// ErrUnsupportedMedia reports a file whose media type has no extraction
// strategy.
var ErrUnsupportedMedia = errors.New("unsupported media type")

// ErrExtractionEmpty reports a file that was handled but yielded no text.
var ErrExtractionEmpty = errors.New("no text extracted")

// CapabilityError reports an extraction path that requires a capability
// the server was not configured with.
type CapabilityError struct {
	Capability string
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("%s is not configured", e.Capability)
}

// ImageDescriber produces a textual description of an image. It is
// typically backed by a vision model.
type ImageDescriber interface {
	Describe(ctx context.Context, data []byte, mimeType string) (any, error)
}

// Result is the outcome of a successful extraction.
type Result struct {
	Text   string
	Source models.SourceType
}

var textExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".csv":  true,
	".log":  true,
	".json": true,
}

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
}

// Classify maps a media type and filename to a source type. The media
// type wins when both disagree; the filename extension is the fallback
// for generic or absent media types.
func Classify(mimeType, filename string) (models.SourceType, bool) {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}

	switch {
	case strings.HasPrefix(mt, "text/"):
		return models.SourceText, true
	case mt == "application/pdf":
		return models.SourcePDF, true
	case strings.HasPrefix(mt, "image/"):
		return models.SourceImage, true
	}

	ext := strings.ToLower(filepath.Ext(filename))
	switch {
	case textExtensions[ext]:
		return models.SourceText, true
	case ext == ".pdf":
		return models.SourcePDF, true
	case imageExtensions[ext]:
		return models.SourceImage, true
	}
	return "", false
}

// Extractor dispatches file contents to the right extraction strategy.
type Extractor struct {
	describer ImageDescriber
}

// New creates an extractor. describer may be nil when no vision model is
// configured; image uploads then fail with a CapabilityError.
func New(describer ImageDescriber) *Extractor {
	return &Extractor{describer: describer}
}

// Extract converts file data into plain text according to its classified
// source type.
func (e *Extractor) Extract(ctx context.Context, data []byte, mimeType, filename string) (*Result, error) {
	source, ok := Classify(mimeType, filename)
	if !ok {
		return nil, fmt.Errorf("%w: %q (%s)", ErrUnsupportedMedia, filename, mimeType)
	}

	var (
		text string
		err  error
	)
	switch source {
	case models.SourceText:
		text = string(data)
	case models.SourcePDF:
		text, err = extractPDF(data)
	case models.SourceImage:
		text, err = e.describeImage(ctx, data, mimeType)
	}
	if err != nil {
		return nil, err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w from %q", ErrExtractionEmpty, filename)
	}
	return &Result{Text: text, Source: source}, nil
}

func (e *Extractor) describeImage(ctx context.Context, data []byte, mimeType string) (string, error) {
	if e.describer == nil {
		return "", &CapabilityError{Capability: "image description"}
	}
	out, err := e.describer.Describe(ctx, data, mimeType)
	if err != nil {
		return "", fmt.Errorf("describe image: %w", err)
	}
	return flattenText(out), nil
}

// flattenText extracts usable prose from a describer response that may be
// a plain string or a loosely structured object.
func flattenText(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case map[string]any:
		var parts []string
		for _, key := range []string{"response", "text", "description", "caption", "output"} {
			if s, ok := val[key].(string); ok && strings.TrimSpace(s) != "" {
				parts = append(parts, s)
			}
		}
		if len(parts) == 0 {
			// Sorted keys keep the fallback concatenation deterministic.
			keys := make([]string, 0, len(val))
			for k := range val {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				if s := flattenText(val[k]); strings.TrimSpace(s) != "" {
					parts = append(parts, s)
				}
			}
		}
		return strings.Join(parts, "\n")
	case []any:
		var parts []string
		for _, item := range val {
			if s := flattenText(item); strings.TrimSpace(s) != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "\n")
	}
	return ""
}
