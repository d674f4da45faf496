// Package capture renders the monthly report page in headless Chromium and
// saves it as a PNG screenshot or a PDF.
package capture

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	appLog "taskcal/internal/log"
)

// Default capture parameters. The width fits the report's 800px body plus
// margins.
const (
	DefaultWidth      = 900
	DefaultHeight     = 1200
	DefaultTimeoutSec = 30
)

type Format string

const (
	FormatPNG Format = "png"
	FormatPDF Format = "pdf"
)

// FormatFor picks the output format from the file extension; anything
// other than ".pdf" is a PNG.
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return FormatPDF
	}
	return FormatPNG
}

// Options defines parameters for a Chromium-based capture.
type Options struct {
	// URL to capture, e.g. "http://127.0.0.1:8080/report?month=2024-01".
	URL string

	// OutputPath is where the PNG or PDF is written.
	OutputPath string

	// Format defaults to FormatFor(OutputPath).
	Format Format

	// Width and Height are the viewport dimensions in pixels. If zero,
	// DefaultWidth / DefaultHeight are used.
	Width  int
	Height int

	// Username and Password are sent as HTTP Basic credentials when set.
	Username string
	Password string

	// Timeout bounds the entire capture operation. If zero,
	// DefaultTimeoutSec is used.
	Timeout time.Duration
}

func (o Options) withDefaults() (Options, error) {
	if o.URL == "" {
		return o, fmt.Errorf("capture: URL is required")
	}
	if o.OutputPath == "" {
		return o, fmt.Errorf("capture: OutputPath is required")
	}
	if o.Format == "" {
		o.Format = FormatFor(o.OutputPath)
	}
	if o.Format != FormatPNG && o.Format != FormatPDF {
		return o, fmt.Errorf("capture: unsupported format %q", o.Format)
	}
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Timeout <= 0 {
		o.Timeout = time.Duration(DefaultTimeoutSec) * time.Second
	}
	return o, nil
}

// CaptureReport launches a headless Chromium instance via chromedp,
// navigates to opts.URL, waits until the report body carries
// data-ready="true", and writes a full-page PNG or a PDF.
func CaptureReport(parentCtx context.Context, opts Options) error {
	opts, err := opts.withDefaults()
	if err != nil {
		return err
	}

	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var out []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
	}
	if opts.Username != "" {
		token := base64.StdEncoding.EncodeToString([]byte(opts.Username + ":" + opts.Password))
		tasks = append(tasks,
			network.Enable(),
			network.SetExtraHTTPHeaders(network.Headers{"Authorization": "Basic " + token}),
		)
	}
	tasks = append(tasks,
		chromedp.Navigate(opts.URL),
		chromedp.WaitVisible(`body[data-ready="true"]`, chromedp.ByQuery),
	)

	switch opts.Format {
	case FormatPDF:
		tasks = append(tasks, chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().WithPrintBackground(true).Do(ctx)
			if err != nil {
				return err
			}
			out = buf
			return nil
		}))
	default:
		tasks = append(tasks, chromedp.FullScreenshot(&out, 100))
	}

	if err := chromedp.Run(ctx, tasks); err != nil {
		return fmt.Errorf("capture: chromedp run failed: %w", err)
	}

	if err := os.WriteFile(opts.OutputPath, out, 0o644); err != nil {
		return fmt.Errorf("capture: failed to write %s: %w", opts.Format, err)
	}

	appLog.Info("report captured", "path", opts.OutputPath, "format", string(opts.Format), "bytes", len(out))
	return nil
}
