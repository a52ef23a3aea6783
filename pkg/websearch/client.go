// Package websearch runs HTML web searches to find business phone
// numbers and social profiles when the directory sites come up empty.
package websearch

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/realisrare-223/leadparser/internal/enrich"
	"github.com/realisrare-223/leadparser/internal/phone"
	"github.com/realisrare-223/leadparser/internal/ratelimit"
	"github.com/realisrare-223/leadparser/internal/resilience"
)

const (
	defaultBaseURL   = "https://html.duckduckgo.com/html/"
	defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
)

var (
	facebookRE  = regexp.MustCompile(`https?://(?:www\.)?facebook\.com/[A-Za-z0-9_.\-]+/?`)
	instagramRE = regexp.MustCompile(`https?://(?:www\.)?instagram\.com/[A-Za-z0-9_.\-]+/?`)
)

// Client searches the web for phones and social profiles. It serves as
// the last phone source in the waterfall and the social fallback when
// the directory listing carries no profile links.
type Client interface {
	Name() string
	FindPhone(ctx context.Context, name, city, state string) (string, error)
	FindSocialProfiles(ctx context.Context, name, city, state string) (enrich.SocialProfiles, error)
}

// Option configures the search client.
type Option func(*httpClient)

// WithBaseURL points the client at a different search frontend.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithLimiter sets the outbound rate limiter.
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(c *httpClient) {
		c.limiter = l
	}
}

// WithRetryPolicy overrides the retry policy.
func WithRetryPolicy(p resilience.Policy) Option {
	return func(c *httpClient) {
		c.policy = p
	}
}

type httpClient struct {
	baseURL   string
	http      *http.Client
	limiter   *ratelimit.Limiter
	policy    resilience.Policy
	extractor *phone.Normalizer
}

// NewClient creates a web search client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 20 * time.Second,
		},
		policy:    resilience.DefaultPolicy(),
		extractor: phone.NewNormalizer("US"),
	}
	c.policy.OnRetry = resilience.LogRetries("websearch", "search")
	for _, opt := range opts {
		opt(c)
	}
	// Retry sleeps go through the shared limiter so backoff pressure is
	// visible to every source hitting the same sites.
	if c.limiter != nil && c.policy.Wait == nil {
		c.policy.Wait = c.limiter.Backoff
	}
	return c
}

func (c *httpClient) Name() string {
	return "web_search"
}

// FindPhone searches for the business and pulls the first phone-shaped
// string out of the result snippets.
func (c *httpClient) FindPhone(ctx context.Context, name, city, state string) (string, error) {
	doc, err := c.search(ctx, `"`+name+`" `+city+" "+state+" phone number")
	if err != nil {
		return "", err
	}
	if nums := c.extractor.ExtractFromText(doc.Text()); len(nums) > 0 {
		return nums[0], nil
	}
	return "", nil
}

// FindSocialProfiles runs one site-scoped search per network and returns
// whichever profile links it can find. Partial results are normal.
func (c *httpClient) FindSocialProfiles(ctx context.Context, name, city, state string) (enrich.SocialProfiles, error) {
	var profiles enrich.SocialProfiles

	doc, err := c.search(ctx, `"`+name+`" `+city+" site:facebook.com")
	if err != nil {
		return profiles, err
	}
	profiles.Facebook = firstProfileLink(doc, facebookRE, "/pg/", "/search")

	doc, err = c.search(ctx, `"`+name+`" `+city+" site:instagram.com")
	if err != nil {
		return profiles, err
	}
	profiles.Instagram = firstProfileLink(doc, instagramRE, "/explore", "/search")

	return profiles, nil
}

func (c *httpClient) search(ctx context.Context, query string) (*goquery.Document, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "websearch: rate limit wait")
		}
	}
	searchURL := c.baseURL + "?q=" + url.QueryEscape(query)

	return resilience.Fetch(ctx, c.policy, func(ctx context.Context) (*goquery.Document, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
		if err != nil {
			return nil, eris.Wrap(err, "websearch: create request")
		}
		req.Header.Set("User-Agent", defaultUserAgent)
		req.Header.Set("Accept", "text/html")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, eris.Wrap(err, "websearch: request failed")
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			err := eris.Errorf("websearch: status %d", resp.StatusCode)
			if resilience.RetryableStatus(resp.StatusCode) {
				return nil, resilience.MarkTransient(err, resp.StatusCode)
			}
			return nil, err
		}

		doc, err := goquery.NewDocumentFromReader(resp.Body)
		if err != nil {
			return nil, eris.Wrap(err, "websearch: parse html")
		}
		return doc, nil
	})
}

// firstProfileLink scans result anchors for the first link matching the
// profile pattern that is not a search or category page. Search frontends
// wrap result URLs in a redirect with the real target in the uddg param.
func firstProfileLink(doc *goquery.Document, re *regexp.Regexp, excluded ...string) string {
	var found string
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		href = unwrapRedirect(href)

		m := re.FindString(href)
		if m == "" || len(m) <= 25 {
			return true
		}
		for _, ex := range excluded {
			if strings.Contains(m, ex) {
				return true
			}
		}
		found = m
		return false
	})
	return found
}

func unwrapRedirect(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}
