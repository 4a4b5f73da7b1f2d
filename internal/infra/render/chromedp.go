package render

import (
	"context"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// ChromeConverter prints HTML to PDF with a shared headless Chrome. Each
// conversion runs in its own tab so concurrent requests do not interfere.
type ChromeConverter struct {
	execPath string

	once          sync.Once
	startErr      error
	allocCtx      context.Context
	cancelAlloc   context.CancelFunc
	browserCtx    context.Context
	cancelBrowser context.CancelFunc
}

// NewChromeConverter does not start Chrome; the browser is launched once on
// the first conversion and kept for later ones. execPath may be empty to let
// chromedp find it. A failed launch is not retried.
func NewChromeConverter(execPath string) *ChromeConverter {
	return &ChromeConverter{execPath: execPath}
}

func (c *ChromeConverter) start() {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("log-level", "3"),
	)
	if c.execPath != "" {
		opts = append(opts, chromedp.ExecPath(c.execPath))
	}
	c.allocCtx, c.cancelAlloc = chromedp.NewExecAllocator(context.Background(), opts...)
	c.browserCtx, c.cancelBrowser = chromedp.NewContext(c.allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	// Running no actions launches the browser.
	c.startErr = chromedp.Run(c.browserCtx)
}

// Convert loads html into a blank tab and prints it on Letter paper with
// backgrounds. Cancelling ctx closes the tab.
func (c *ChromeConverter) Convert(ctx context.Context, html []byte) ([]byte, error) {
	c.once.Do(c.start)
	if c.startErr != nil {
		return nil, fmt.Errorf("start chrome: %w", c.startErr)
	}

	tabCtx, cancelTab := chromedp.NewContext(c.browserCtx)
	defer cancelTab()
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	var pdf []byte
	err := chromedp.Run(tabCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, string(html)).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdf, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPreferCSSPageSize(true).
				WithPaperWidth(8.5).
				WithPaperHeight(11).
				WithMarginTop(0).
				WithMarginBottom(0).
				WithMarginLeft(0).
				WithMarginRight(0).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("chrome print: %w", ctx.Err())
		}
		return nil, fmt.Errorf("chrome print: %w", err)
	}
	return pdf, nil
}

// Close shuts the browser down.
func (c *ChromeConverter) Close() {
	if c.cancelBrowser != nil {
		c.cancelBrowser()
	}
	if c.cancelAlloc != nil {
		c.cancelAlloc()
	}
}
