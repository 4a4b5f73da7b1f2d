package render

import (
	"bytes"
	"context"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chromeBinary(t *testing.T) string {
	t.Helper()
	for _, name := range []string{"headless-shell", "chromium", "chromium-browser", "google-chrome"} {
		if p, err := exec.LookPath(name); err == nil {
			return p
		}
	}
	t.Skip("no Chrome binary on PATH")
	return ""
}

func TestChromeConverterLaunchFailure(t *testing.T) {
	c := NewChromeConverter(filepath.Join(t.TempDir(), "no-such-chrome"))
	defer c.Close()

	_, err := c.Convert(context.Background(), []byte("<p>x</p>"))
	require.Error(t, err)
	assert.ErrorContains(t, err, "start chrome")

	_, again := c.Convert(context.Background(), []byte("<p>x</p>"))
	assert.Equal(t, err.Error(), again.Error())
}

func TestChromeConverterSharesBrowserAcrossTabs(t *testing.T) {
	c := NewChromeConverter(chromeBinary(t))
	defer c.Close()
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	var browser *chromedp.Browser
	for i := 0; i < 3; i++ {
		pdf, err := c.Convert(ctx, []byte("<html><body><p>Report</p></body></html>"))
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF-")))

		b := chromedp.FromContext(c.browserCtx).Browser
		require.NotNil(t, b)
		if browser == nil {
			browser = b
		}
		assert.Same(t, browser, b)
	}
}
