package main

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/log"
	utls "github.com/refraction-networking/utls"
	"golang.org/x/net/html"
	"golang.org/x/net/http2"
	"golang.org/x/net/publicsuffix"
)

var errMissingTitle = errors.New("article has no first heading")

// titleSelector matches the MediaWiki page title heading.
const titleSelector = "h1#firstHeading, h1.firstHeading"

// session is the run's single HTTP session: one client and cookie jar for
// every request, so render state on the server correlates across steps.
type session struct {
	client   *http.Client
	cfg      *Config
	log      *log.Logger
	robots   *robotsCache
	throttle *throttle
}

// newSession builds the shared client for a run. delay spaces successive
// article requests.
func newSession(cfg *Config, logger *log.Logger, delay time.Duration) (*session, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}
	client := &http.Client{
		Jar:       jar,
		Transport: newTransport(cfg),
	}
	s := &session{
		client:   client,
		cfg:      cfg,
		log:      logger,
		throttle: newThrottle(delay),
	}
	if cfg.RespectRobots {
		s.robots = newRobotsCache(client, cfg.UserAgent, cfg.FetchTimeout, logger)
	}
	return s, nil
}

// newTransport picks the round tripper: proxy, browser TLS fingerprint,
// or a plain transport. Direct dials go through the private-network guard.
func newTransport(cfg *Config) http.RoundTripper {
	dialer := &net.Dialer{Timeout: cfg.FetchTimeout}
	if cfg.Proxy != "" {
		transport := &http.Transport{
			DialContext: safeDialContext(dialer, cfg.AllowPrivateNetworks),
		}
		if proxyURL, err := url.Parse(cfg.Proxy); err == nil {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
		return transport
	}
	plain := &http.Transport{
		DialContext: safeDialContext(dialer, cfg.AllowPrivateNetworks),
	}
	if !cfg.BrowserTLS {
		return plain
	}
	return &browserTransport{
		dialer:       dialer,
		allowPrivate: cfg.AllowPrivateNetworks,
		h1:           plain,
		h2:           &http2.Transport{},
	}
}

// readLimited reads up to limit bytes from r. If the response exceeds the
// limit, it returns an error. A limit of 0 reads without bound.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}
	// Read limit+1 bytes so we can detect overflow without a custom reader.
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("response body exceeds maximum allowed size (%s)", humanSize(limit))
	}
	return data, nil
}

// utlsConn wraps a utls.UConn and satisfies net.Conn + the
// ConnectionState interface that net/http2 needs.
type utlsConn struct {
	*utls.UConn
}

func (c *utlsConn) ConnectionState() tls.ConnectionState {
	cs := c.UConn.ConnectionState()
	return tls.ConnectionState{
		Version:                    cs.Version,
		HandshakeComplete:          cs.HandshakeComplete,
		CipherSuite:                cs.CipherSuite,
		NegotiatedProtocol:         cs.NegotiatedProtocol,
		NegotiatedProtocolIsMutual: cs.NegotiatedProtocolIsMutual,
		ServerName:                 cs.ServerName,
		PeerCertificates:           cs.PeerCertificates,
		VerifiedChains:             cs.VerifiedChains,
		OCSPResponse:               cs.OCSPResponse,
		TLSUnique:                  cs.TLSUnique,
	}
}

// browserTransport dials https with a Firefox TLS fingerprint and routes
// to HTTP/2 or HTTP/1.1 based on ALPN. Plain http uses h1 directly.
type browserTransport struct {
	dialer       *net.Dialer
	allowPrivate bool
	h1           *http.Transport
	h2           *http2.Transport
}

func (bt *browserTransport) dialUTLS(ctx context.Context, network, addr string) (net.Conn, string, error) {
	conn, err := safeDialContext(bt.dialer, bt.allowPrivate)(ctx, network, addr)
	if err != nil {
		return nil, "", err
	}

	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	tlsConn := utls.UClient(conn, &utls.Config{ServerName: host}, utls.HelloFirefox_120)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, "", err
	}
	return &utlsConn{tlsConn}, tlsConn.ConnectionState().NegotiatedProtocol, nil
}

func (bt *browserTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Scheme != "https" {
		return bt.h1.RoundTrip(req)
	}

	addr := req.URL.Host
	if !hasPort(addr) {
		addr += ":443"
	}

	conn, alpn, err := bt.dialUTLS(req.Context(), "tcp", addr)
	if err != nil {
		return nil, err
	}

	if alpn == "h2" {
		h2conn, err := bt.h2.NewClientConn(conn)
		if err != nil {
			conn.Close()
			return nil, err
		}
		return h2conn.RoundTrip(req)
	}

	// For HTTP/1.1, inject the TLS conn into a one-shot transport
	transport := &http.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return conn, nil
		},
	}
	return transport.RoundTrip(req)
}

func hasPort(host string) bool {
	_, _, err := net.SplitHostPort(host)
	return err == nil
}

// newRequest builds a GET carrying the run's identifying headers.
func (s *session) newRequest(ctx context.Context, rawURL, accept string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)
	req.Header.Set("Accept", accept)
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	return req, nil
}

// checkRobots refuses URLs the host's robots.txt disallows for our agent.
func (s *session) checkRobots(ctx context.Context, u *url.URL) error {
	if s.robots == nil {
		return nil
	}
	if !s.robots.allowed(ctx, u) {
		return fmt.Errorf("%w: %s", errRobotsDisallowed, u)
	}
	return nil
}

// fetchHTML downloads an HTML page with the fetch timeout and returns the
// body and parsed URL. Non-2xx statuses are errors.
func (s *session) fetchHTML(ctx context.Context, rawURL string) ([]byte, *url.URL, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	if err := s.checkRobots(ctx, parsed); err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	defer cancel()

	req, err := s.newRequest(ctx, rawURL, "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	if err != nil {
		return nil, nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, nil, fmt.Errorf("HTTP %d for %s", resp.StatusCode, rawURL)
	}

	body, err := readLimited(resp.Body, s.cfg.MaxResponseBytes)
	if err != nil {
		return nil, nil, fmt.Errorf("reading response: %w", err)
	}

	s.log.Debug("fetched", "url", rawURL, "size", humanSize(int64(len(body))))
	return body, parsed, nil
}

// fetchedArticle is a downloaded article before cleaning.
type fetchedArticle struct {
	URL     *url.URL
	Title   string
	Doc     *html.Node
	Excerpt string
}

// fetchArticle downloads and parses one article. It fails when the page
// lacks the MediaWiki title heading or content container.
func (s *session) fetchArticle(ctx context.Context, rawURL string) (*fetchedArticle, error) {
	body, pageURL, err := s.fetchHTML(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", rawURL, err)
	}

	gq := goquery.NewDocumentFromNode(doc)
	title := strings.TrimSpace(gq.Find(titleSelector).First().Text())
	if title == "" {
		return nil, fmt.Errorf("%w: %s", errMissingTitle, rawURL)
	}
	if gq.Find(contentSelector).Length() == 0 {
		return nil, fmt.Errorf("%w: no %s in %s", errEmptyContent, contentSelector, rawURL)
	}

	return &fetchedArticle{
		URL:     pageURL,
		Title:   title,
		Doc:     doc,
		Excerpt: articleExcerpt(body, pageURL, s.log),
	}, nil
}

// mediaType returns the lower-cased media type of a Content-Type header.
func mediaType(header string) string {
	mt, _, err := mime.ParseMediaType(header)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(strings.SplitN(header, ";", 2)[0]))
	}
	return mt
}
