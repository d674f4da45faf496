package capture

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatFor(t *testing.T) {
	assert.Equal(t, FormatPDF, FormatFor("report.pdf"))
	assert.Equal(t, FormatPDF, FormatFor("/tmp/REPORT.PDF"))
	assert.Equal(t, FormatPNG, FormatFor("report.png"))
	assert.Equal(t, FormatPNG, FormatFor("report"))
}

func TestOptionsDefaults(t *testing.T) {
	o, err := Options{URL: "http://127.0.0.1:8080/report", OutputPath: "out.pdf"}.withDefaults()
	require.NoError(t, err)
	assert.Equal(t, FormatPDF, o.Format)
	assert.Equal(t, DefaultWidth, o.Width)
	assert.Equal(t, DefaultHeight, o.Height)
	assert.Equal(t, 30*time.Second, o.Timeout)

	o, err = Options{URL: "u", OutputPath: "x.pdf", Format: FormatPNG, Width: 100}.withDefaults()
	require.NoError(t, err)
	assert.Equal(t, FormatPNG, o.Format)
	assert.Equal(t, 100, o.Width)
}

func TestCaptureReportValidation(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want string
	}{
		{"no url", Options{OutputPath: "a.png"}, "URL is required"},
		{"no output", Options{URL: "http://x"}, "OutputPath is required"},
		{"bad format", Options{URL: "http://x", OutputPath: "a", Format: "gif"}, "unsupported format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CaptureReport(context.Background(), tt.opts)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
