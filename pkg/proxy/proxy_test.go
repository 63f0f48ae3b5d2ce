package proxy

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValid(t *testing.T) {
	valid := []string{
		"192.168.1.1:8080",
		"10.0.0.1:3128:myuser:mypass",
		"proxy.example.com:8080",
		"eu-1.provider.net:3128:myuser:mypass",
	}
	for _, p := range valid {
		if !Valid(p) {
			t.Errorf("expected %q to be valid", p)
		}
	}

	invalid := []string{
		"",
		"justahost",
		"192.168.1.1",
		"192.168.1.1:notaport",
		"host:8080:useronly",
		"http://host:8080",
		"host:8080:user:pass:extra",
	}
	for _, p := range invalid {
		if Valid(p) {
			t.Errorf("expected %q to be invalid", p)
		}
	}
}

func TestParse(t *testing.T) {
	u, err := Parse("192.168.1.1:8080")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Scheme != "http" || u.Host != "192.168.1.1:8080" || u.User != nil {
		t.Errorf("unexpected URL: %v", u)
	}

	u, err = Parse("proxy.example.com:3128:myuser:mypass")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Host != "proxy.example.com:3128" {
		t.Errorf("unexpected host: %s", u.Host)
	}
	if u.User == nil || u.User.Username() != "myuser" {
		t.Errorf("expected credentials to be carried into the URL")
	}
	if pass, _ := u.User.Password(); pass != "mypass" {
		t.Errorf("unexpected password: %s", pass)
	}

	if _, err := Parse("not a proxy"); err == nil {
		t.Error("expected an error for a malformed proxy")
	}
}

func TestPoolRotation(t *testing.T) {
	pool, rejected := NewPool([]string{
		"10.0.0.1:8080",
		"bogus",
		"10.0.0.2:8080",
	})
	if len(rejected) != 1 || rejected[0] != "bogus" {
		t.Errorf("unexpected rejected list: %v", rejected)
	}
	if pool.Len() != 2 {
		t.Fatalf("expected 2 proxies, got %d", pool.Len())
	}

	// Round-robin wraps around
	seen := []string{pool.Next(), pool.Next(), pool.Next()}
	if seen[0] != "10.0.0.1:8080" || seen[1] != "10.0.0.2:8080" || seen[2] != "10.0.0.1:8080" {
		t.Errorf("unexpected rotation order: %v", seen)
	}

	if err := pool.Add("bad proxy"); err == nil {
		t.Error("expected Add to reject an invalid proxy")
	}
	if err := pool.Add("10.0.0.3:8080"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if pool.Len() != 3 {
		t.Errorf("expected 3 proxies, got %d", pool.Len())
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proxies.txt")
	content := `# pool
10.0.0.1:8080

10.0.0.2:3128:user:pass
bogus
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pool, rejected, err := LoadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pool.Len() != 2 {
		t.Errorf("expected 2 proxies, got %d", pool.Len())
	}
	if len(rejected) != 1 || rejected[0] != "bogus" {
		t.Errorf("unexpected rejected list: %v", rejected)
	}

	if _, _, err := LoadFile(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestEmptyPool(t *testing.T) {
	pool, _ := NewPool(nil)
	if pool.Next() != "" || pool.Random() != "" {
		t.Error("expected empty string from an empty pool")
	}
}
