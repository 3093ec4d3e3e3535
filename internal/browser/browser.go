// Package browser crawls pages with headless Chrome via chromedp. Every
// invocation launches an isolated browser so one crawl can never leak state
// into another.
package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/neuralnyx/domaincrawler/internal/crawler"
)

const (
	defaultNavigationTimeout = 30 * time.Second
	defaultSettleDelay       = 2 * time.Second
	defaultUserAgent         = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

	networkIdleWindow = 500 * time.Millisecond
	networkIdlePoll   = 50 * time.Millisecond

	viewportWidth  = 1920
	viewportHeight = 1080
)

// Config controls browser behavior per crawl.
type Config struct {
	NavigationTimeout time.Duration
	SettleDelay       time.Duration
	UserAgent         string
}

// Crawler renders pages and extracts their structure in a single DOM pass.
type Crawler struct {
	cfg    Config
	logger *zap.Logger
}

// New builds a Crawler, filling unset config fields with defaults.
func New(cfg Config, logger *zap.Logger) *Crawler {
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = defaultNavigationTimeout
	}
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = defaultSettleDelay
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	return &Crawler{cfg: cfg, logger: logger}
}

// Crawl navigates to rawURL with a fresh headless browser, waits for the
// network to go idle plus a settle delay, and extracts the rendered page.
// The browser is torn down before returning on every path.
func (c *Crawler) Crawl(ctx context.Context, rawURL string) (crawler.PageResult, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.WindowSize(viewportWidth, viewportHeight),
		chromedp.UserAgent(c.cfg.UserAgent),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()

	tabCtx, tabCancel := chromedp.NewContext(allocCtx)
	defer tabCancel()

	taskCtx, taskCancel := context.WithTimeout(tabCtx, c.cfg.NavigationTimeout)
	defer taskCancel()

	tracker := newNetworkTracker()
	chromedp.ListenTarget(taskCtx, tracker.handleEvent)

	start := time.Now()
	var page extractedPage
	tasks := chromedp.Tasks{
		network.Enable(),
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		c.waitNetworkIdle(tracker),
		chromedp.Sleep(c.cfg.SettleDelay),
		chromedp.Evaluate(extractScript, &page),
	}
	if err := chromedp.Run(taskCtx, tasks); err != nil {
		return crawler.PageResult{}, &crawler.CrawlError{URL: rawURL, Err: err}
	}
	elapsed := time.Since(start)

	result := page.toResult(rawURL, tracker.status(), elapsed)
	c.logger.Info("page crawled",
		zap.String("url", rawURL),
		zap.Int("status_code", result.StatusCode),
		zap.Int("word_count", result.WordCount),
		zap.Int64("load_time_ms", result.LoadTimeMs))
	return result, nil
}

// waitNetworkIdle blocks until no request has been in flight for the
// stability window, or the task context expires.
func (c *Crawler) waitNetworkIdle(tracker *networkTracker) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		ticker := time.NewTicker(networkIdlePoll)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if tracker.idleFor(networkIdleWindow) {
					return nil
				}
			}
		}
	})
}

// networkTracker counts in-flight requests and records the main document
// status from CDP network events.
type networkTracker struct {
	mu             sync.Mutex
	inflight       map[network.RequestID]struct{}
	lastActivity   time.Time
	documentStatus int
}

func newNetworkTracker() *networkTracker {
	return &networkTracker{
		inflight:     make(map[network.RequestID]struct{}),
		lastActivity: time.Now(),
	}
}

func (t *networkTracker) handleEvent(ev any) {
	switch event := ev.(type) {
	case *network.EventRequestWillBeSent:
		t.mu.Lock()
		t.inflight[event.RequestID] = struct{}{}
		t.lastActivity = time.Now()
		t.mu.Unlock()
	case *network.EventResponseReceived:
		if event.Type == network.ResourceTypeDocument && event.Response != nil {
			t.mu.Lock()
			if t.documentStatus == 0 {
				t.documentStatus = int(event.Response.Status)
			}
			t.mu.Unlock()
		}
	case *network.EventLoadingFinished:
		t.settle(event.RequestID)
	case *network.EventLoadingFailed:
		t.settle(event.RequestID)
	}
}

func (t *networkTracker) settle(id network.RequestID) {
	t.mu.Lock()
	delete(t.inflight, id)
	t.lastActivity = time.Now()
	t.mu.Unlock()
}

func (t *networkTracker) idleFor(window time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inflight) == 0 && time.Since(t.lastActivity) >= window
}

func (t *networkTracker) status() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.documentStatus
}

// extractedPage mirrors the object built by extractScript.
type extractedPage struct {
	HTML    string            `json:"html"`
	Title   string            `json:"title"`
	Text    string            `json:"text"`
	Links   []string          `json:"links"`
	Images  []string          `json:"images"`
	Forms   []extractedForm   `json:"forms"`
	Buttons []extractedButton `json:"buttons"`
	Inputs  []extractedInput  `json:"inputs"`
}

type extractedForm struct {
	Action string `json:"action"`
	Method string `json:"method"`
}

type extractedButton struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type extractedInput struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	Placeholder string `json:"placeholder"`
}

func (p extractedPage) toResult(rawURL string, status int, elapsed time.Duration) crawler.PageResult {
	result := crawler.PageResult{
		URL:        rawURL,
		Title:      p.Title,
		RawContent: p.HTML,
		StatusCode: status,
		LoadTimeMs: elapsed.Milliseconds(),
		WordCount:  len(strings.Fields(p.Text)),
		Links:      p.Links,
		Images:     p.Images,
	}
	for _, f := range p.Forms {
		method := strings.ToUpper(strings.TrimSpace(f.Method))
		if method == "" {
			method = "GET"
		}
		result.Forms = append(result.Forms, crawler.PageForm{Action: f.Action, Method: method})
	}
	for _, b := range p.Buttons {
		buttonType := b.Type
		if buttonType == "" {
			buttonType = "button"
		}
		result.Buttons = append(result.Buttons, crawler.PageButton{
			Type: buttonType,
			Text: strings.TrimSpace(b.Text),
		})
	}
	for _, in := range p.Inputs {
		inputType := in.Type
		if inputType == "" {
			inputType = "text"
		}
		result.Inputs = append(result.Inputs, crawler.PageInput{
			Type:        inputType,
			Name:        in.Name,
			Placeholder: in.Placeholder,
		})
	}
	return result
}

// extractScript walks the rendered DOM once and returns everything the
// pipeline needs as one JSON object.
const extractScript = `(() => {
	const links = [];
	for (const a of document.querySelectorAll('a[href]')) {
		const href = a.getAttribute('href') || '';
		if (href.startsWith('#') || href.toLowerCase().startsWith('javascript:')) {
			continue;
		}
		links.push(a.href);
	}
	const images = [];
	for (const img of document.querySelectorAll('img[src]')) {
		images.push(img.src);
	}
	const forms = [];
	for (const form of document.querySelectorAll('form')) {
		forms.push({
			action: form.getAttribute('action') || '',
			method: form.getAttribute('method') || '',
		});
	}
	const buttons = [];
	for (const btn of document.querySelectorAll('button, input[type="submit"], input[type="button"]')) {
		buttons.push({
			type: btn.getAttribute('type') || '',
			text: (btn.innerText || btn.value || ''),
		});
	}
	const inputs = [];
	for (const input of document.querySelectorAll('input, textarea, select')) {
		inputs.push({
			type: input.getAttribute('type') || '',
			name: input.getAttribute('name') || '',
			placeholder: input.getAttribute('placeholder') || '',
		});
	}
	return {
		html: document.documentElement.outerHTML,
		title: document.title,
		text: document.body ? document.body.innerText : '',
		links: links,
		images: images,
		forms: forms,
		buttons: buttons,
		inputs: inputs,
	};
})()`

// Describe returns a human readable summary of the crawler configuration.
func (c *Crawler) Describe() string {
	return fmt.Sprintf("chromedp (nav %s, settle %s)", c.cfg.NavigationTimeout, c.cfg.SettleDelay)
}
