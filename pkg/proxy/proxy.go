package proxy

import (
	"bufio"
	"fmt"
	"math/rand"
	"net/url"
	"os"
	"regexp"
	"strings"
	"sync"
)

// Accepted proxy string formats: ip:port, ip:port:user:pass,
// host:port and host:port:user:pass.
var proxyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(\d{1,3}\.){3}\d{1,3}:\d{1,5}$`),
	regexp.MustCompile(`^(\d{1,3}\.){3}\d{1,3}:\d{1,5}:\w+:\w+$`),
	regexp.MustCompile(`^[\w.-]+:\d{1,5}$`),
	regexp.MustCompile(`^[\w.-]+:\d{1,5}:\w+:\w+$`),
}

// Valid reports whether the proxy string matches one of the accepted formats
func Valid(proxy string) bool {
	for _, pattern := range proxyPatterns {
		if pattern.MatchString(proxy) {
			return true
		}
	}
	return false
}

// Parse converts a proxy string into an http proxy URL
func Parse(proxy string) (*url.URL, error) {
	if !Valid(proxy) {
		return nil, fmt.Errorf("invalid proxy format: %s", proxy)
	}

	parts := strings.Split(proxy, ":")
	switch len(parts) {
	case 2:
		return url.Parse("http://" + proxy)
	case 4:
		host, port, user, pass := parts[0], parts[1], parts[2], parts[3]
		return url.Parse(fmt.Sprintf("http://%s:%s@%s:%s", user, pass, host, port))
	default:
		return nil, fmt.Errorf("invalid proxy format: %s", proxy)
	}
}

// Pool manages a rotating list of proxy endpoints
type Pool struct {
	mu      sync.Mutex
	proxies []string
	index   int
}

// NewPool creates a pool from the given proxy strings, skipping invalid ones.
// The second return value lists the rejected entries.
func NewPool(proxies []string) (*Pool, []string) {
	pool := &Pool{}
	var rejected []string
	for _, p := range proxies {
		if Valid(p) {
			pool.proxies = append(pool.proxies, p)
		} else {
			rejected = append(rejected, p)
		}
	}
	return pool, rejected
}

// LoadFile builds a pool from a file with one proxy per line. Blank lines
// and #-prefixed lines are ignored; the second return value lists the
// rejected entries.
func LoadFile(path string) (*Pool, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open proxies file: %w", err)
	}
	defer f.Close()

	var entries []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entries = append(entries, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to read proxies file: %w", err)
	}

	pool, rejected := NewPool(entries)
	return pool, rejected, nil
}

// Add appends a proxy to the pool if its format is valid
func (p *Pool) Add(proxy string) error {
	if !Valid(proxy) {
		return fmt.Errorf("invalid proxy format: %s", proxy)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.proxies = append(p.proxies, proxy)
	return nil
}

// Next returns the next proxy in round-robin order, or "" when the pool is empty
func (p *Pool) Next() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.proxies) == 0 {
		return ""
	}
	proxy := p.proxies[p.index]
	p.index = (p.index + 1) % len(p.proxies)
	return proxy
}

// Random returns a random proxy from the pool, or "" when the pool is empty
func (p *Pool) Random() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.proxies) == 0 {
		return ""
	}
	return p.proxies[rand.Intn(len(p.proxies))]
}

// Len returns the number of proxies in the pool
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.proxies)
}
