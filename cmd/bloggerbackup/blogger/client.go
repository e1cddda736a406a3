package blogger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/WessleyAI/bloggerbackup/pkg/fn"
	"github.com/WessleyAI/bloggerbackup/pkg/metrics"
)

// DefaultBaseURL is the Blogger v3 API root.
const DefaultBaseURL = "https://www.googleapis.com/blogger/v3"

// postsQuery is sent verbatim on every posts request. Only live posts are
// requested; the fields selector is already percent-encoded.
const postsQuery = "fetchImages=true&orderBy=published&status=live" +
	"&fields=items(author%2Ccontent%2Cimages%2Clabels%2Cpublished%2Ctitle%2CtitleLink%2Cupdated%2Curl)%2CnextPageToken"

// Client talks to the Blogger API. It issues one request at a time.
type Client struct {
	cfg    Config
	client *http.Client
	log    logrus.FieldLogger

	mRequests *metrics.Counter
	mPages    *metrics.Counter
	mDuration *metrics.Histogram
}

// NewClient creates a Client. A nil httpClient means http.DefaultClient.
func NewClient(cfg Config, httpClient *http.Client, log logrus.FieldLogger, met *metrics.Registry) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		cfg:       cfg,
		client:    httpClient,
		log:       log,
		mRequests: met.Counter("bloggerbackup_requests_total", "API requests sent"),
		mPages:    met.Counter("bloggerbackup_pages_total", "Post pages received"),
		mDuration: met.Histogram("bloggerbackup_request_duration_seconds", "API request duration", nil),
	}
}

// EncodeDate escapes the three characters the posts endpoint expects encoded
// in startDate/endDate: '-', ':' and '+'. Every other character is left as is.
func EncodeDate(date string) string {
	return dateEncoder.Replace(date)
}

var dateEncoder = strings.NewReplacer("-", "%2D", ":", "%3A", "+", "%2B")

// ResolveStage wraps ResolvePostsLink as a pipeline stage.
func (c *Client) ResolveStage() fn.Stage[string, *url.URL] {
	return c.ResolvePostsLink
}

// ResolvePostsLink looks the blog up by URL and returns its posts selfLink.
func (c *Client) ResolvePostsLink(ctx context.Context, blog string) fn.Result[*url.URL] {
	c.log.Debug("Getting posts query link")

	req := c.cfg.BaseURL + "/blogs/byurl?url=" + url.QueryEscape(blog) +
		"&fields=posts&key=" + url.QueryEscape(c.cfg.APIKey)

	r := c.getJSON(ctx, req)
	body, err := r.Unwrap()
	if err != nil {
		return fn.Err[*url.URL](err)
	}

	var lr lookupResponse
	if err := json.Unmarshal(body.raw, &lr); err != nil {
		return fn.Err[*url.URL](fmt.Errorf("decode blog lookup: %w", err))
	}
	if lr.Posts == nil {
		return fn.Err[*url.URL](ErrBlogNotFound)
	}
	if lr.Posts.SelfLink == nil || *lr.Posts.SelfLink == "" {
		return fn.Err[*url.URL](&LinkError{Link: blog, Wrapped: ErrNoPostsLink})
	}

	link := *lr.Posts.SelfLink
	u, err := url.Parse(link)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fn.Err[*url.URL](&LinkError{Link: link, Wrapped: ErrInvalidPostsLink})
	}
	c.log.WithField("posts_link", link).Debug("Resolved posts link")
	return fn.Ok(u)
}

// Summary counts what a FetchPosts run went through.
type Summary struct {
	Pages int
	Posts int
}

// FetchStage wraps FetchPosts as a pipeline stage handing every post to handle.
func (c *Client) FetchStage(handle func(context.Context, Post) error) fn.Stage[*url.URL, Summary] {
	return func(ctx context.Context, link *url.URL) fn.Result[Summary] {
		return c.FetchPosts(ctx, link, handle)
	}
}

// FetchPosts pages through the posts collection at link. Every item of a page
// is passed to handle before the next page is requested. The first API error,
// transport error or handle error stops the run.
func (c *Client) FetchPosts(ctx context.Context, link *url.URL, handle func(context.Context, Post) error) fn.Result[Summary] {
	c.log.Debug("Downloading posts")

	base := c.postsRequest(link)
	req := base
	var sum Summary

	for {
		r := c.getPage(ctx, req)
		page, err := r.Unwrap()
		if err != nil {
			return fn.Err[Summary](err)
		}
		sum.Pages++
		c.mPages.Inc()

		for _, p := range page.Items {
			if err := handle(ctx, p); err != nil {
				return fn.Err[Summary](err)
			}
			sum.Posts++
		}

		if !page.HasNext {
			return fn.Ok(sum)
		}
		c.log.Debug("Getting next page")
		req = base + "&pageToken=" + url.QueryEscape(page.NextPageToken)
	}
}

func (c *Client) postsRequest(link *url.URL) string {
	sep := "?"
	if link.RawQuery != "" {
		sep = "&"
	}
	req := link.String() + sep + postsQuery + "&key=" + url.QueryEscape(c.cfg.APIKey)
	if c.cfg.StartDate != "" {
		req += "&startDate=" + EncodeDate(c.cfg.StartDate)
	}
	if c.cfg.EndDate != "" {
		req += "&endDate=" + EncodeDate(c.cfg.EndDate)
	}
	return req
}

func (c *Client) getPage(ctx context.Context, req string) fn.Result[Page] {
	r := c.getJSON(ctx, req)
	body, err := r.Unwrap()
	if err != nil {
		return fn.Err[Page](err)
	}

	var page Page
	if err := json.Unmarshal(body.raw, &page); err != nil {
		return fn.Err[Page](fmt.Errorf("decode posts page: %w", err))
	}
	_, page.HasNext = body.keys["nextPageToken"]
	return fn.Ok(page)
}

// object is a decoded top-level JSON object along with its raw bytes.
type object struct {
	raw  []byte
	keys map[string]json.RawMessage
}

// getJSON sends a GET and decodes the body as a JSON object. A body with an
// "error" key becomes an *APIError whatever the HTTP status.
func (c *Client) getJSON(ctx context.Context, rawURL string) fn.Result[object] {
	shown := c.redact(rawURL)
	c.log.Debugf("Sending request: %s", shown)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fn.Err[object](fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	c.mRequests.Inc()
	resp, err := c.client.Do(req)
	if err != nil {
		return fn.Err[object](fmt.Errorf("GET %s: %w", shown, scrub(err)))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	c.mDuration.Since(start)
	if err != nil {
		return fn.Err[object](fmt.Errorf("read response from %s: %w", shown, err))
	}
	c.log.Debugf("Got response: %s", body)

	var keys map[string]json.RawMessage
	if err := json.Unmarshal(body, &keys); err != nil || keys == nil {
		if resp.StatusCode != http.StatusOK {
			return fn.Errf[object]("unexpected status %d from %s", resp.StatusCode, shown)
		}
		if err == nil {
			err = errors.New("response is not an object")
		}
		return fn.Errf[object]("decode response from %s: %w", shown, err)
	}
	if _, ok := keys["error"]; ok {
		return fn.Err[object](&APIError{Status: resp.StatusCode, Body: body})
	}
	if resp.StatusCode != http.StatusOK {
		return fn.Errf[object]("unexpected status %d from %s", resp.StatusCode, shown)
	}
	return fn.Ok(object{raw: body, keys: keys})
}

// redact hides the API key in a request URL before it is logged.
func (c *Client) redact(s string) string {
	if c.cfg.APIKey == "" {
		return s
	}
	return strings.ReplaceAll(s, "key="+url.QueryEscape(c.cfg.APIKey), "key=REDACTED")
}

// scrub removes the request URL net/http embeds in transport errors.
func scrub(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return ue.Err
	}
	return err
}
