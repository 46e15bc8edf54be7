package main

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/charmbracelet/log"
	"github.com/temoto/robotstxt"
)

var errRobotsDisallowed = errors.New("disallowed by robots.txt")

// robotsCache fetches robots.txt once per scheme+host. A host whose
// robots.txt is missing or unreadable allows everything.
type robotsCache struct {
	client    *http.Client
	userAgent string
	timeout   time.Duration
	log       *log.Logger
	hosts     map[string]*robotstxt.Group
}

func newRobotsCache(client *http.Client, userAgent string, timeout time.Duration, logger *log.Logger) *robotsCache {
	return &robotsCache{
		client:    client,
		userAgent: userAgent,
		timeout:   timeout,
		log:       logger,
		hosts:     make(map[string]*robotstxt.Group),
	}
}

func (rc *robotsCache) allowed(ctx context.Context, u *url.URL) bool {
	base := u.Scheme + "://" + u.Host
	group, seen := rc.hosts[base]
	if !seen {
		group = rc.load(ctx, base)
		rc.hosts[base] = group
	}
	if group == nil {
		return true
	}
	path := u.EscapedPath()
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return group.Test(path)
}

// load returns the rule group for our agent, or nil when anything goes
// wrong fetching or parsing robots.txt.
func (rc *robotsCache) load(ctx context.Context, base string) *robotstxt.Group {
	ctx, cancel := context.WithTimeout(ctx, rc.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/robots.txt", nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", rc.userAgent)

	resp, err := rc.client.Do(req)
	if err != nil {
		rc.log.Debug("robots.txt unavailable", "host", base, "err", err)
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		// robotstxt maps 5xx to disallow-all; treat it as missing instead.
		return nil
	}

	robots, err := robotstxt.FromResponse(resp)
	if err != nil {
		rc.log.Debug("robots.txt unparseable", "host", base, "err", err)
		return nil
	}
	return robots.FindGroup(rc.userAgent)
}
