// Package webforms drives the portal at the HTTP level. The portal is a
// classic ASP.NET WebForms application: one <form>, hidden __VIEWSTATE /
// __EVENTVALIDATION fields, and every button click is a POST of the whole
// form back to the same page. Modeling that round-trip directly is cheaper
// and far more stable than steering a real browser, and it satisfies the
// portal.Driver contract the stages consume.
package webforms

import (
	"bytes"
	"context"
	"fmt"
	"net/http/cookiejar"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"
	"tybafetch/lib/portal"
	"tybafetch/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("portal/webforms")

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

type Options struct {
	BaseURL string
	// Timeout bounds individual round-trips, not whole stage operations.
	Timeout time.Duration
	// PollInterval is the re-check cadence inside WaitFor.
	PollInterval time.Duration
}

type Client struct {
	http *resty.Client
	base *url.URL
	poll time.Duration

	// current document state; one Client is one sequential session
	doc     *goquery.Document
	rawBody []byte
	pageURL string
	staged  map[string]string
}

var _ portal.Driver = (*Client)(nil)

func NewClient(opts Options) (*Client, error) {
	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, err
	}
	if opts.Timeout == 0 {
		opts.Timeout = time.Second * 30
	}
	if opts.PollInterval == 0 {
		opts.PollInterval = time.Second
	}

	client := resty.New()
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	client.SetHeader("user-agent", userAgent)
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(base.Hostname()))
	client.SetTimeout(opts.Timeout)

	telemetry.InstrumentResty(client, "portal/webforms/http")

	return &Client{
		http:   client,
		base:   base,
		poll:   opts.PollInterval,
		staged: map[string]string{},
	}, nil
}

func (c *Client) setDocument(pageURL string, body []byte) error {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("parse %s: %w", pageURL, err)
	}
	c.doc = doc
	c.rawBody = body
	c.pageURL = pageURL
	c.staged = map[string]string{}
	return nil
}

func (c *Client) Navigate(ctx context.Context, pageURL string) error {
	ctx, span := tracer.Start(ctx, "Navigate")
	defer span.End()

	res, err := c.http.R().SetContext(ctx).Get(pageURL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch page")
		return err
	}
	if res.IsError() {
		span.SetStatus(codes.Error, res.Status())
		return fmt.Errorf("navigate %s: %s", pageURL, res.Status())
	}
	return c.setDocument(res.Request.URL, res.Body())
}

func (c *Client) find(selector string) (*goquery.Selection, error) {
	if c.doc == nil {
		return nil, fmt.Errorf("webforms: no document loaded")
	}
	sel := c.doc.Find(selector)
	if sel.Length() == 0 {
		return nil, fmt.Errorf("%w: %s", portal.ErrNoSuchElement, selector)
	}
	return sel, nil
}

// Fill stages a form value; it is sent with the next postback.
func (c *Client) Fill(ctx context.Context, selector, text string) error {
	sel, err := c.find(selector)
	if err != nil {
		return err
	}
	name := sel.First().AttrOr("name", sel.First().AttrOr("id", ""))
	if name == "" {
		return fmt.Errorf("webforms: element %s has no name to post", selector)
	}
	c.staged[name] = text
	return nil
}

var doPostBackRegex = regexp.MustCompile(`__doPostBack\('([^']*)','([^']*)'\)`)

// Click performs the WebForms postback for the selected element and replaces
// the current document with the response. Anchors that only switch
// client-side tabs (href="#...") are a no-op because the tab content is
// already part of the rendered page.
func (c *Client) Click(ctx context.Context, selector string) error {
	ctx, span := tracer.Start(ctx, "Click")
	defer span.End()

	sel, err := c.find(selector)
	if err != nil {
		return err
	}
	el := sel.First()

	if href, ok := el.Attr("href"); ok {
		if strings.HasPrefix(href, "#") {
			return nil
		}
		if groups := doPostBackRegex.FindStringSubmatch(href); groups != nil {
			return c.postBack(ctx, groups[1], groups[2], nil)
		}
		return c.Navigate(ctx, portal.ResolveURL(c.pageURL, href))
	}

	name := el.AttrOr("name", el.AttrOr("id", ""))
	if name == "" {
		return fmt.Errorf("webforms: cannot click unnamed element %s", selector)
	}

	// image buttons post their click coordinates instead of an event target
	if goquery.NodeName(el) == "input" && el.AttrOr("type", "") == "image" {
		return c.postBack(ctx, "", "", map[string]string{
			name + ".x": "1",
			name + ".y": "1",
		})
	}
	if onclick, ok := el.Attr("onclick"); ok {
		if groups := doPostBackRegex.FindStringSubmatch(onclick); groups != nil {
			return c.postBack(ctx, groups[1], groups[2], nil)
		}
	}
	return c.postBack(ctx, name, "", map[string]string{name: el.AttrOr("value", "")})
}

// postBack posts the full form state (hidden fields, staged values, the
// triggering control) back to the page and swaps in the response document.
func (c *Client) postBack(ctx context.Context, eventTarget, eventArgument string, extra map[string]string) error {
	if c.doc == nil {
		return fmt.Errorf("webforms: no document loaded")
	}
	form := c.doc.Find("form").First()
	if form.Length() == 0 {
		return fmt.Errorf("webforms: page %s has no form", c.pageURL)
	}

	fields := map[string]string{}
	form.Find("input, select, textarea").Each(func(_ int, el *goquery.Selection) {
		name, ok := el.Attr("name")
		if !ok || name == "" {
			return
		}
		switch el.AttrOr("type", "") {
		case "submit", "button", "image":
			return
		case "checkbox", "radio":
			if _, checked := el.Attr("checked"); !checked {
				return
			}
		}
		fields[name] = el.AttrOr("value", "")
	})
	for name, value := range c.staged {
		fields[name] = value
	}
	fields["__EVENTTARGET"] = eventTarget
	fields["__EVENTARGUMENT"] = eventArgument
	for name, value := range extra {
		fields[name] = value
	}

	action := form.AttrOr("action", c.pageURL)
	target := portal.ResolveURL(c.pageURL, action)

	res, err := c.http.R().
		SetContext(ctx).
		SetFormData(fields).
		Post(target)
	if err != nil {
		return err
	}
	if res.IsError() {
		return fmt.Errorf("postback to %s: %s", target, res.Status())
	}
	return c.setDocument(res.Request.URL, res.Body())
}

// WaitFor checks for selector presence. Server-rendered documents are
// static between round-trips, so the poll loop only matters when the
// element can appear through a pending postback; it still honors the full
// timeout so stage retry budgets behave the same as with a browser driver.
func (c *Client) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if c.doc != nil && c.doc.Find(selector).Length() > 0 {
			return nil
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return fmt.Errorf("%w: %s after %s", portal.ErrWaitTimeout, selector, timeout)
		}
		wait := c.poll
		if wait > remaining {
			wait = remaining
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (c *Client) IsVisible(ctx context.Context, selector string) (bool, error) {
	if c.doc == nil {
		return false, nil
	}
	sel := c.doc.Find(selector)
	if sel.Length() == 0 {
		return false, nil
	}
	style := sel.First().AttrOr("style", "")
	if strings.Contains(strings.ReplaceAll(style, " ", ""), "display:none") {
		return false, nil
	}
	return true, nil
}

func (c *Client) Attribute(ctx context.Context, selector, name string) (string, error) {
	sel, err := c.find(selector)
	if err != nil {
		return "", err
	}
	return sel.First().AttrOr(name, ""), nil
}

func (c *Client) Text(ctx context.Context, selector string) (string, error) {
	sel, err := c.find(selector)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(sel.First().Text()), nil
}

func (c *Client) TextAll(ctx context.Context, selector string) ([]string, error) {
	if c.doc == nil {
		return nil, fmt.Errorf("webforms: no document loaded")
	}
	var out []string
	c.doc.Find(selector).Each(func(_ int, el *goquery.Selection) {
		out = append(out, strings.TrimSpace(el.Text()))
	})
	return out, nil
}

func (c *Client) Count(ctx context.Context, selector string) (int, error) {
	if c.doc == nil {
		return 0, nil
	}
	return c.doc.Find(selector).Length(), nil
}

func (c *Client) Table(ctx context.Context, selector string) ([][]string, error) {
	sel, err := c.find(selector)
	if err != nil {
		return nil, err
	}
	var rows [][]string
	sel.First().Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var cells []string
		tr.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, strings.TrimSpace(cell.Text()))
		})
		rows = append(rows, cells)
	})
	return rows, nil
}

func (c *Client) URL() string {
	return c.pageURL
}

func (c *Client) FetchBytes(ctx context.Context, docURL string, timeout time.Duration) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "FetchBytes")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res, err := c.http.R().SetContext(ctx).Get(docURL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "document fetch failed")
		return nil, err
	}
	if res.IsError() {
		span.SetStatus(codes.Error, res.Status())
		return nil, fmt.Errorf("fetch %s: %s", docURL, res.Status())
	}
	return res.Body(), nil
}

// OpenPage models the portal's "open generator in a new window" behavior.
// The trigger's postback response becomes the child page; the parent is
// restored to its pre-trigger document so the listing is still loaded when
// the child closes.
func (c *Client) OpenPage(ctx context.Context, trigger func() error) (portal.Page, error) {
	parentDoc, parentBody, parentURL := c.doc, c.rawBody, c.pageURL

	if err := trigger(); err != nil {
		return nil, err
	}

	child := &page{Client: &Client{
		http:    c.http,
		base:    c.base,
		poll:    c.poll,
		doc:     c.doc,
		rawBody: c.rawBody,
		pageURL: c.pageURL,
		staged:  map[string]string{},
	}}

	c.doc, c.rawBody, c.pageURL = parentDoc, parentBody, parentURL
	c.staged = map[string]string{}
	return child, nil
}

// Screenshot writes the raw HTML of the current document; there is no
// rendered pixel buffer at this level, the markup is the closest
// equivalent for post-mortem inspection.
func (c *Client) Screenshot(ctx context.Context, path string) error {
	if c.rawBody == nil {
		return fmt.Errorf("webforms: no document loaded")
	}
	return os.WriteFile(path, c.rawBody, 0644)
}

type page struct {
	*Client
}

// Close drops the page's document; later operations fail with a
// no-document-loaded error.
func (p *page) Close() {
	p.Client.doc = nil
	p.Client.rawBody = nil
}
