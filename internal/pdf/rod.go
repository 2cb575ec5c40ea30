package pdf

import (
	"context"
	"io"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// RodRenderer prints through a Chromium launched by go-rod.
type RodRenderer struct {
	bin     string
	timeout time.Duration
}

// RenderPDF launches a headless browser, loads html and exports an A4 PDF.
func (r *RodRenderer) RenderPDF(ctx context.Context, html string) ([]byte, error) {
	launch := launcher.New().
		Context(ctx).
		Headless(true).
		NoSandbox(true)

	if r.bin != "" {
		launch = launch.Bin(r.bin)
	} else if path, ok := launcher.LookPath(); ok {
		launch = launch.Bin(path)
	}

	browserURL, err := launch.Launch()
	if err != nil {
		return nil, renderErr("launch chromium", err)
	}
	defer launch.Cleanup()

	browser := rod.New().ControlURL(browserURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, renderErr("connect browser", err)
	}
	defer func() {
		_ = browser.Close()
	}()

	page, err := browser.Timeout(r.timeout).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, renderErr("create page", err)
	}
	defer func() {
		_ = page.Close()
	}()

	page = page.Timeout(r.timeout)
	if err := page.SetDocumentContent(html); err != nil {
		return nil, renderErr("set document content", err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, renderErr("wait load", err)
	}

	reader, err := page.PDF(&proto.PagePrintToPDF{
		PrintBackground:   true,
		PreferCSSPageSize: true,
		PaperWidth:        inches(paperWidthInches),
		PaperHeight:       inches(paperHeightInches),
		MarginTop:         inches(marginInches),
		MarginBottom:      inches(marginInches),
		MarginLeft:        inches(marginInches),
		MarginRight:       inches(marginInches),
	})
	if err != nil {
		return nil, renderErr("export pdf", err)
	}
	defer func() {
		_ = reader.Close()
	}()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, renderErr("read pdf bytes", err)
	}
	return data, nil
}

func inches(v float64) *float64 {
	return &v
}
