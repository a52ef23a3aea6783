// Package directory looks up business phone numbers and social profile
// links on public directory sites (Yelp, YellowPages, BBB, 411).
package directory

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

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

var (
	facebookRE  = regexp.MustCompile(`https?://(?:www\.)?facebook\.com/[A-Za-z0-9_.\-]+/?`)
	instagramRE = regexp.MustCompile(`https?://(?:www\.)?instagram\.com/[A-Za-z0-9_.\-]+/?`)
)

// Client looks up a business phone number and social links on one
// directory site.
type Client interface {
	Name() string
	FindPhone(ctx context.Context, name, city, state string) (string, error)
	FindSocialProfiles(ctx context.Context, name, city, state string) (enrich.SocialProfiles, error)
}

// Option configures the directory client.
type Option func(*httpClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithLimiter sets the outbound rate limiter shared across sources.
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

// WithQueryParams renames the search query parameters for sites that use
// different names than q/location.
func WithQueryParams(nameParam, locationParam string) Option {
	return func(c *httpClient) {
		c.nameParam = nameParam
		c.locationParam = locationParam
	}
}

type httpClient struct {
	name          string
	baseURL       string
	nameParam     string
	locationParam string
	http          *http.Client
	limiter       *ratelimit.Limiter
	policy        resilience.Policy
	extractor     *phone.Normalizer
}

// NewClient creates a directory lookup client for one site. The name is
// used in logs and lead provenance notes.
func NewClient(name, baseURL string, opts ...Option) Client {
	c := &httpClient{
		name:          name,
		baseURL:       strings.TrimRight(baseURL, "/"),
		nameParam:     "q",
		locationParam: "location",
		http: &http.Client{
			Timeout: 20 * time.Second,
		},
		policy:    resilience.DefaultPolicy(),
		extractor: phone.NewNormalizer("US"),
	}
	c.policy.OnRetry = resilience.LogRetries(name, "find_phone")
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
	return c.name
}

// FindPhone searches the directory for the business and scrapes the first
// phone number from the results page. A miss returns empty with no error;
// errors are reserved for transport failures.
func (c *httpClient) FindPhone(ctx context.Context, name, city, state string) (string, error) {
	doc, err := c.searchPage(ctx, name, city, state)
	if err != nil {
		return "", err
	}
	return c.extractPhone(doc), nil
}

// FindSocialProfiles scans the business's results page for direct
// facebook and instagram profile links. Directory listings often carry a
// business's socials, so this runs before any web search fallback.
func (c *httpClient) FindSocialProfiles(ctx context.Context, name, city, state string) (enrich.SocialProfiles, error) {
	var profiles enrich.SocialProfiles
	doc, err := c.searchPage(ctx, name, city, state)
	if err != nil {
		return profiles, err
	}
	profiles.Facebook = firstProfileLink(doc, facebookRE, "/pg/", "/search", "/sharer")
	profiles.Instagram = firstProfileLink(doc, instagramRE, "/explore", "/search")
	return profiles, nil
}

func (c *httpClient) searchPage(ctx context.Context, name, city, state string) (*goquery.Document, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrapf(err, "%s: rate limit wait", c.name)
		}
	}

	q := url.Values{}
	q.Set(c.nameParam, name)
	q.Set(c.locationParam, city+", "+state)
	searchURL := c.baseURL + "/search?" + q.Encode()

	return resilience.Fetch(ctx, c.policy, func(ctx context.Context) (*goquery.Document, error) {
		return c.fetch(ctx, searchURL)
	})
}

func (c *httpClient) fetch(ctx context.Context, rawURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrapf(err, "%s: create request", c.name)
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "%s: request failed", c.name)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("%s: status %d", c.name, resp.StatusCode)
		if resilience.RetryableStatus(resp.StatusCode) {
			return nil, resilience.MarkTransient(err, resp.StatusCode)
		}
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, eris.Wrapf(err, "%s: parse html", c.name)
	}
	return doc, nil
}

// extractPhone tries structured markup first, then falls back to scanning
// the page text for a phone-shaped string.
func (c *httpClient) extractPhone(doc *goquery.Document) string {
	if href, ok := doc.Find("a[href^='tel:']").First().Attr("href"); ok {
		if p := strings.TrimPrefix(href, "tel:"); c.extractor.IsValid(p) {
			return p
		}
	}

	for _, sel := range []string{"[itemprop='telephone']", "[class*='phone']"} {
		var found string
		doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if nums := c.extractor.ExtractFromText(s.Text()); len(nums) > 0 {
				found = nums[0]
				return false
			}
			return true
		})
		if found != "" {
			return found
		}
	}

	if nums := c.extractor.ExtractFromText(doc.Text()); len(nums) > 0 {
		return nums[0]
	}
	return ""
}

// firstProfileLink returns the first anchor matching the profile pattern
// that is not a share widget or category page. Directory pages link
// socials directly, so no redirect unwrapping is needed.
func firstProfileLink(doc *goquery.Document, re *regexp.Regexp, excluded ...string) string {
	var found string
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
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
