package clubsite

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/vianubio/clubsite/internal/fileutil"
	"github.com/vianubio/clubsite/internal/pipeline"
	"github.com/vianubio/clubsite/internal/process"
)

// Exporter prints a standalone HTML document to PDF.
type Exporter interface {
	Export(ctx context.Context, htmlDoc string) ([]byte, error)
	Close() error
}

// pdfRenderer renders a local HTML file, so tests can run without a browser.
type pdfRenderer interface {
	RenderFromFile(ctx context.Context, filePath string) ([]byte, error)
	Close() error
}

// Compile-time interface checks
var (
	_ Exporter    = (*rodExporter)(nil)
	_ Exporter    = (*ExporterPool)(nil)
	_ pdfRenderer = (*rodRenderer)(nil)
)

// A4 in inches, with the margins used for every printable post.
const (
	paperWidthInches  = 8.27
	paperHeightInches = 11.69
	marginInches      = 0.5

	// DefaultExportTimeout bounds page load when the context has no deadline.
	DefaultExportTimeout = 30 * time.Second
)

// rodRenderer implements pdfRenderer using go-rod.
// Rod downloads Chromium on first use when no browser is found.
type rodRenderer struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	timeout  time.Duration
}

func newRodRenderer(timeout time.Duration) *rodRenderer {
	if timeout <= 0 {
		timeout = DefaultExportTimeout
	}
	return &rodRenderer{timeout: timeout}
}

// ensureBrowser lazily launches and connects to the browser.
func (r *rodRenderer) ensureBrowser() error {
	if r.browser != nil {
		return nil
	}

	l := launcher.New()

	// Pre-installed browser (containers).
	if bin := os.Getenv("ROD_BROWSER_BIN"); bin != "" {
		l = l.Bin(bin)
	}

	// CI and containers run without a sandbox.
	if os.Getenv("CI") == "true" || os.Getenv("ROD_BROWSER_BIN") != "" {
		l = l.NoSandbox(true)
	}
	u, err := l.Launch()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}
	r.launcher = l

	r.browser = rod.New().ControlURL(u)
	if err := r.browser.Connect(); err != nil {
		r.browser = nil
		r.reap()
		return fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}
	return nil
}

// Close releases browser resources and reaps the Chrome process tree.
func (r *rodRenderer) Close() error {
	var err error
	if r.browser != nil {
		err = r.browser.Close()
		r.browser = nil
	}
	r.reap()
	return err
}

func (r *rodRenderer) reap() {
	if r.launcher == nil {
		return
	}
	process.KillTree(r.launcher.PID())
	r.launcher.Kill()
	r.launcher = nil
}

// RenderFromFile opens a local HTML file in headless Chrome and prints it.
func (r *rodRenderer) RenderFromFile(ctx context.Context, filePath string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := r.ensureBrowser(); err != nil {
		return nil, err
	}

	page, err := r.browser.Page(proto.TargetCreateTarget{URL: pipeline.FileURL(filePath)})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageCreate, err)
	}
	defer page.Close()

	timeout := r.timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
		if timeout <= 0 {
			return nil, context.DeadlineExceeded
		}
	}

	if err := page.Timeout(timeout).WaitLoad(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reader, err := page.PDF(buildPDFOptions())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPDFGeneration, err)
	}

	pdfBuf, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: reading PDF stream: %v", ErrPDFGeneration, err)
	}
	return pdfBuf, nil
}

// buildPDFOptions returns A4 portrait with uniform margins and a page
// number footer.
func buildPDFOptions() *proto.PagePrintToPDF {
	return &proto.PagePrintToPDF{
		PaperWidth:          floatPtr(paperWidthInches),
		PaperHeight:         floatPtr(paperHeightInches),
		MarginTop:           floatPtr(marginInches),
		MarginBottom:        floatPtr(marginInches),
		MarginLeft:          floatPtr(marginInches),
		MarginRight:         floatPtr(marginInches),
		PrintBackground:     true,
		DisplayHeaderFooter: true,
		HeaderTemplate:      "<span></span>",
		FooterTemplate:      footerTemplate,
	}
}

const footerTemplate = `<div style="font-size: 9px; color: #888; width: 100%; text-align: right; padding: 0 0.5in;">` +
	`<span class="pageNumber"></span>/<span class="totalPages"></span></div>`

func floatPtr(v float64) *float64 {
	return &v
}

// rodExporter writes the document to a temp file and renders it.
type rodExporter struct {
	renderer pdfRenderer
}

func newRodExporter(timeout time.Duration) *rodExporter {
	return &rodExporter{renderer: newRodRenderer(timeout)}
}

// Export prints htmlDoc. Local images must use file:// or data: URLs
// because the page is loaded from disk.
func (e *rodExporter) Export(ctx context.Context, htmlDoc string) ([]byte, error) {
	tmpPath, cleanup, err := fileutil.WriteTempFile(htmlDoc, "html")
	if err != nil {
		return nil, err
	}
	defer cleanup()

	return e.renderer.RenderFromFile(ctx, tmpPath)
}

// Close releases the browser.
func (e *rodExporter) Close() error {
	if e.renderer != nil {
		return e.renderer.Close()
	}
	return nil
}
