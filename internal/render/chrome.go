package render

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

const (
	// captureTimeout bounds a single load-and-snapshot cycle.
	captureTimeout = 30 * time.Second

	// fontTimeout bounds the wait for the document's fonts to finish
	// loading before capture.
	fontTimeout = 5 * time.Second
)

// Allocator wraps the shared headless Chrome exec allocator. All surfaces
// share one browser process allocator; each surface runs in its own browser
// context.
type Allocator struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// NewAllocator creates the Chrome allocator with flags suitable for
// deterministic off-screen capture.
func NewAllocator() *Allocator {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("force-device-scale-factor", "1"),
	)

	ctx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
	return &Allocator{ctx: ctx, cancel: cancel}
}

// Close releases the allocator and every browser spawned from it.
func (a *Allocator) Close() {
	if a.cancel != nil {
		a.cancel()
	}
}

// NewSurface starts a fresh browser context and verifies it is responsive.
func (a *Allocator) NewSurface() (Surface, error) {
	ctx, cancel := chromedp.NewContext(a.ctx)

	// Run an empty task list to force the browser to start now rather than
	// on the first capture.
	startCtx, startCancel := context.WithTimeout(ctx, captureTimeout)
	defer startCancel()
	if err := chromedp.Run(startCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("starting browser context: %w", err)
	}

	return &chromeSurface{ctx: ctx, cancel: cancel}, nil
}

type chromeSurface struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// Capture loads the document as a data URL, waits for the font set to report
// loaded (an explicit readiness signal, not a sleep), and snapshots the
// viewport. The viewport is pinned to the requested dimensions so identical
// documents produce identical bytes.
func (s *chromeSurface) Capture(ctx context.Context, html string, width, height int64) ([]byte, error) {
	taskCtx, cancel := context.WithTimeout(s.ctx, captureTimeout)
	defer cancel()

	// Honor caller abandonment: cancel the browser task when the request
	// context goes away.
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	dataURL := "data:text/html;base64," + base64.StdEncoding.EncodeToString([]byte(html))

	var ready bool
	var buf []byte
	err := chromedp.Run(taskCtx,
		chromedp.EmulateViewport(width, height),
		chromedp.Navigate(dataURL),
		chromedp.WaitVisible("body", chromedp.ByQuery),
		chromedp.Poll(`document.fonts.status === "loaded"`, &ready,
			chromedp.WithPollingTimeout(fontTimeout)),
		chromedp.CaptureScreenshot(&buf),
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("capturing snapshot: %w", err)
	}
	if len(buf) == 0 {
		return nil, fmt.Errorf("capturing snapshot: empty image")
	}
	return buf, nil
}

// Close tears down the browser context.
func (s *chromeSurface) Close() {
	s.cancel()
}
