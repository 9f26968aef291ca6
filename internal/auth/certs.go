package auth

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/valyala/fasthttp"
)

const (
	defaultCertTTL   = time.Hour
	certFetchTimeout = 5 * time.Second
)

// CertKeySource fetches the identity provider's x509 signing certificates
// (a JSON object of kid → PEM) and caches them for the max-age the
// provider advertises.
type CertKeySource struct {
	url    string
	client *fasthttp.Client

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	expiresAt time.Time
	now       func() time.Time
}

func NewCertKeySource(url string) *CertKeySource {
	return &CertKeySource{
		url:    url,
		client: &fasthttp.Client{Name: "modelmart"},
		now:    time.Now,
	}
}

// Key returns the key for kid, refreshing the certificate set when it has
// expired or does not contain kid.
func (s *CertKeySource) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	s.mu.RLock()
	k, ok := s.keys[kid]
	fresh := s.now().Before(s.expiresAt)
	s.mu.RUnlock()
	if ok && fresh {
		return k, nil
	}

	if err := s.refresh(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if k, ok := s.keys[kid]; ok {
		return k, nil
	}
	return nil, fmt.Errorf("unknown key id %q", kid)
}

func (s *CertKeySource) refresh(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(s.url)
	req.Header.SetMethod(fasthttp.MethodGet)

	if err := s.client.DoTimeout(req, resp, certFetchTimeout); err != nil {
		return fmt.Errorf("fetch signing certs: %w", err)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return fmt.Errorf("fetch signing certs: status %d", resp.StatusCode())
	}

	keys, err := ParseCerts(resp.Body())
	if err != nil {
		return err
	}

	ttl := maxAge(string(resp.Header.Peek("Cache-Control")))
	s.mu.Lock()
	s.keys = keys
	s.expiresAt = s.now().Add(ttl)
	s.mu.Unlock()
	return nil
}

// ParseCerts decodes a kid → PEM certificate document.
func ParseCerts(body []byte) (map[string]*rsa.PublicKey, error) {
	var pems map[string]string
	if err := json.Unmarshal(body, &pems); err != nil {
		return nil, fmt.Errorf("decode signing certs: %w", err)
	}
	keys := make(map[string]*rsa.PublicKey, len(pems))
	for kid, pem := range pems {
		k, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pem))
		if err != nil {
			return nil, fmt.Errorf("parse signing cert %s: %w", kid, err)
		}
		keys[kid] = k
	}
	return keys, nil
}

// maxAge reads max-age from a Cache-Control header.
func maxAge(cacheControl string) time.Duration {
	for _, part := range strings.Split(cacheControl, ",") {
		part = strings.TrimSpace(part)
		if v, ok := strings.CutPrefix(part, "max-age="); ok {
			if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
				return time.Duration(secs) * time.Second
			}
		}
	}
	return defaultCertTTL
}
