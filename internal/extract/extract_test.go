package extract

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/haasonsaas/tome/pkg/models"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		mimeType string
		filename string
		want     models.SourceType
		ok       bool
	}{
		{"text mime", "text/plain", "notes", models.SourceText, true},
		{"text mime with charset", "text/plain; charset=utf-8", "notes", models.SourceText, true},
		{"markdown extension", "application/octet-stream", "readme.md", models.SourceText, true},
		{"pdf mime", "application/pdf", "report", models.SourcePDF, true},
		{"pdf extension", "", "report.PDF", models.SourcePDF, true},
		{"image mime", "image/png", "shot", models.SourceImage, true},
		{"jpeg extension", "", "photo.jpeg", models.SourceImage, true},
		{"unsupported", "application/x-msdownload", "tool.exe", "", false},
		{"no hints", "", "mystery", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Classify(tt.mimeType, tt.filename)
			if ok != tt.ok || got != tt.want {
				t.Errorf("Classify(%q, %q) = (%q, %v), want (%q, %v)",
					tt.mimeType, tt.filename, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestExtract_Text(t *testing.T) {
	e := New(nil)

	got, err := e.Extract(context.Background(), []byte("  hello world  "), "text/plain", "hello.txt")
	if err != nil {
		t.Fatal(err)
	}
	if got.Text != "hello world" {
		t.Errorf("Text = %q, want trimmed input", got.Text)
	}
	if got.Source != models.SourceText {
		t.Errorf("Source = %q, want %q", got.Source, models.SourceText)
	}
}

func TestExtract_UnsupportedMedia(t *testing.T) {
	e := New(nil)

	_, err := e.Extract(context.Background(), []byte{0x4d, 0x5a}, "application/x-msdownload", "tool.exe")
	if !errors.Is(err, ErrUnsupportedMedia) {
		t.Fatalf("err = %v, want ErrUnsupportedMedia", err)
	}
}

func TestExtract_EmptyText(t *testing.T) {
	e := New(nil)

	_, err := e.Extract(context.Background(), []byte("   \n\t  "), "text/plain", "blank.txt")
	if !errors.Is(err, ErrExtractionEmpty) {
		t.Fatalf("err = %v, want ErrExtractionEmpty", err)
	}
}

func TestExtract_ImageWithoutDescriber(t *testing.T) {
	e := New(nil)

	_, err := e.Extract(context.Background(), []byte{0x89, 0x50}, "image/png", "shot.png")
	var capErr *CapabilityError
	if !errors.As(err, &capErr) {
		t.Fatalf("err = %v, want CapabilityError", err)
	}
	if !strings.Contains(capErr.Error(), "image description") {
		t.Errorf("error %q does not name the missing capability", capErr.Error())
	}
}

type staticDescriber struct {
	out any
	err error
}

func (d *staticDescriber) Describe(ctx context.Context, data []byte, mimeType string) (any, error) {
	return d.out, d.err
}

func TestExtract_ImageWithDescriber(t *testing.T) {
	e := New(&staticDescriber{out: "a red bicycle leaning on a wall"})

	got, err := e.Extract(context.Background(), []byte{0x89, 0x50}, "image/png", "shot.png")
	if err != nil {
		t.Fatal(err)
	}
	if got.Text != "a red bicycle leaning on a wall" {
		t.Errorf("Text = %q", got.Text)
	}
	if got.Source != models.SourceImage {
		t.Errorf("Source = %q, want %q", got.Source, models.SourceImage)
	}
}

func TestFlattenText(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"string", "plain", "plain"},
		{"response key", map[string]any{"response": "described"}, "described"},
		{"description key", map[string]any{"description": "a cat"}, "a cat"},
		{"nested", map[string]any{"result": map[string]any{"text": "inner"}}, "inner"},
		{"list", []any{"one", "two"}, "one\ntwo"},
		{"nothing usable", map[string]any{"count": 3.0}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := flattenText(tt.in); got != tt.want {
				t.Errorf("flattenText(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFlattenText_NestedFallbackIsDeterministic(t *testing.T) {
	in := map[string]any{
		"zebra": map[string]any{"text": "last"},
		"alpha": map[string]any{"text": "first"},
	}

	want := "first\nlast"
	for i := 0; i < 20; i++ {
		if got := flattenText(in); got != want {
			t.Fatalf("run %d: flattenText = %q, want %q", i, got, want)
		}
	}
}
