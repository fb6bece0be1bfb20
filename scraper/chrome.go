package scraper

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aluiziolira/go-scrape-wb/config"
	"github.com/chromedp/chromedp"
)

// Browser owns a headless Chrome process.
type Browser struct {
	allocCtx      context.Context
	cancelAlloc   context.CancelFunc
	browserCtx    context.Context
	cancelBrowser context.CancelFunc
}

// NewBrowser launches Chrome with the configured user agent.
func NewBrowser(ctx context.Context, cfg *config.Config) (*Browser, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(cfg.UserAgent),
	)

	b := &Browser{}
	b.allocCtx, b.cancelAlloc = chromedp.NewExecAllocator(ctx, opts...)
	b.browserCtx, b.cancelBrowser = chromedp.NewContext(b.allocCtx)

	// Run with no actions starts the browser.
	if err := chromedp.Run(b.browserCtx); err != nil {
		b.Close()
		return nil, fmt.Errorf("start browser: %w", err)
	}
	return b, nil
}

// NewPage opens a new tab.
func (b *Browser) NewPage() (*ChromePage, error) {
	tabCtx, cancel := chromedp.NewContext(b.browserCtx)
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("open tab: %w", err)
	}
	return &ChromePage{ctx: tabCtx, cancel: cancel}, nil
}

// Close shuts down the browser and its allocator.
func (b *Browser) Close() {
	if b.cancelBrowser != nil {
		b.cancelBrowser()
	}
	if b.cancelAlloc != nil {
		b.cancelAlloc()
	}
}

var _ Page = (*ChromePage)(nil)

// ChromePage implements Page on a chromedp tab.
type ChromePage struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// Close closes the tab.
func (p *ChromePage) Close() {
	p.cancel()
}

func (p *ChromePage) Navigate(ctx context.Context, url string) error {
	return p.run(ctx, chromedp.Navigate(url))
}

func (p *ChromePage) WaitVisible(ctx context.Context, selector string) error {
	return p.run(ctx, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

func (p *ChromePage) Click(ctx context.Context, selector string) error {
	return p.run(ctx, chromedp.Click(selector, chromedp.ByQuery))
}

func (p *ChromePage) Text(ctx context.Context, selector string) (string, error) {
	var text string
	if err := p.run(ctx, chromedp.Text(selector, &text, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return text, nil
}

func (p *ChromePage) TextAll(ctx context.Context, selector string) ([]string, error) {
	quoted, err := json.Marshal(selector)
	if err != nil {
		return nil, fmt.Errorf("quote selector: %w", err)
	}
	script := fmt.Sprintf(`Array.from(document.querySelectorAll(%s), el => el.textContent || "")`, quoted)

	var texts []string
	if err := p.run(ctx, chromedp.Evaluate(script, &texts)); err != nil {
		return nil, err
	}
	return texts, nil
}

// run executes actions on the tab, bounded by ctx's deadline and cancellation.
func (p *ChromePage) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(p.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%w: %v", ctxErr, err)
		}
		return err
	}
	return nil
}
