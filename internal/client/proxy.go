// ABOUTME: SSH+SOCKS5 jump-host dialer for reaching a backend on a private network
// ABOUTME: Parses TUTOR_ALL_PROXY and lazily opens the SSH tunnel on first dial

package client

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cloudfoundry/socks5-proxy"
)

// DialContextFunc matches http.Transport.DialContext
type DialContextFunc func(ctx context.Context, network, address string) (net.Conn, error)

// SOCKS5DialContext creates a dial function for SSH+SOCKS5 proxy connections.
// Supports format: ssh+socks5://user@host:port?private-key=/path/to/key
func SOCKS5DialContext(allProxy string) (DialContextFunc, error) {
	allProxy = strings.TrimPrefix(allProxy, "ssh+")

	proxyURL, err := url.Parse(allProxy)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy URL: %w", err)
	}
	if proxyURL.Scheme != "socks5" {
		return nil, fmt.Errorf("unsupported proxy scheme %q (want ssh+socks5)", proxyURL.Scheme)
	}
	if proxyURL.Host == "" {
		return nil, fmt.Errorf("proxy URL is missing a host")
	}

	username := ""
	if proxyURL.User != nil {
		username = proxyURL.User.Username()
	}

	keyPath := proxyURL.Query().Get("private-key")
	if keyPath == "" {
		return nil, fmt.Errorf("proxy URL is missing required 'private-key' query param")
	}
	keyPath, err = ValidateKeyPath(keyPath)
	if err != nil {
		return nil, err
	}
	key, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read SSH private key: %w", err)
	}

	socks5Proxy := proxy.NewSocks5Proxy(proxy.NewHostKey(), log.Default(), 1*time.Minute)

	var (
		dialer proxy.DialFunc
		mut    sync.RWMutex
	)

	return func(ctx context.Context, network, address string) (net.Conn, error) {
		mut.RLock()
		haveDialer := dialer != nil
		mut.RUnlock()

		if haveDialer {
			return dialer(network, address)
		}

		mut.Lock()
		defer mut.Unlock()
		if dialer == nil {
			d, err := socks5Proxy.Dialer(username, string(key), proxyURL.Host)
			if err != nil {
				return nil, fmt.Errorf("error creating SOCKS5 dialer: %w", err)
			}
			dialer = d
		}
		return dialer(network, address)
	}, nil
}

// ValidateKeyPath rejects traversal and non-regular files and returns the
// cleaned absolute path.
func ValidateKeyPath(p string) (string, error) {
	decoded, err := url.PathUnescape(p)
	if err != nil {
		return "", fmt.Errorf("invalid key path: %w", err)
	}
	for _, part := range strings.Split(filepath.ToSlash(decoded), "/") {
		if part == ".." {
			return "", fmt.Errorf("key path must not contain '..': %s", p)
		}
	}

	abs, err := filepath.Abs(decoded)
	if err != nil {
		return "", fmt.Errorf("invalid key path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("key file not accessible: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("key path is not a regular file: %s", abs)
	}
	return abs, nil
}
