package render

import (
	"bytes"
	"context"
	"testing"

	"github.com/matzehuels/bandmap/pkg/errors"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"svg", FormatSVG, false},
		{" PNG ", FormatPNG, false},
		{"pdf", FormatPDF, false},
		{"json", FormatJSON, false},
		{"gif", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) err = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if tt.wantErr && !errors.Is(err, errors.ErrCodeUnsupported) {
				t.Errorf("err code = %v", errors.GetCode(err))
			}
		})
	}
}

func TestFormatMetadata(t *testing.T) {
	if FormatPNG.ContentType() != "image/png" || FormatSVG.Ext() != ".svg" {
		t.Error("unexpected format metadata")
	}
	if FormatSVG.NeedsConverter() || !FormatPDF.NeedsConverter() {
		t.Error("NeedsConverter wrong")
	}
}

func TestToPNG(t *testing.T) {
	if !ConverterAvailable() {
		t.Skip("rsvg-convert not installed")
	}
	doc := []byte(`<svg xmlns="http://www.w3.org/2000/svg" width="10" height="10"><circle cx="5" cy="5" r="4"/></svg>`)
	png, err := ToPNG(context.Background(), doc, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Error("output is not a PNG")
	}
}
