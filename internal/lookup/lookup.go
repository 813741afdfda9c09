// Package lookup queries the public tax-registry API for counterparty
// names by CNPJ or CPF. The registry rate-limits aggressively, so the
// client enforces a minimum spacing between calls, retries 429s and
// transport failures with exponential backoff, and caches every
// successful response in a JSON file keyed by "<kind>:<id>".
package lookup

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrUnavailable is the sentinel returned once every retry attempt is
// exhausted. Callers always receive a well-formed (record, error)
// pair; the client never panics on registry trouble.
var ErrUnavailable = errors.New("lookup: registry unavailable or rate limited")

const (
	maxAttempts = 4
	baseDelay   = 2 * time.Second
	minSpacing  = 1 * time.Second
	callTimeout = 8 * time.Second
	defaultCNPJ = "https://www.receitaws.com.br/v1/cnpj/"
	defaultCPF  = "https://www.receitaws.com.br/v1/cpf/"
)

// Kind selects which registry endpoint to hit.
type Kind string

const (
	KindCNPJ Kind = "cnpj"
	KindCPF  Kind = "cpf"
)

// Record is the registry response. Only the fields the importers
// consume are decoded; the rest of the payload is preserved raw in the
// cache.
type Record struct {
	Status    string `json:"status"`
	Name      string `json:"nome"`
	LegalName string `json:"razao_social"`
	TradeName string `json:"fantasia"`
}

// DisplayName picks the best available name from the record, in the
// order the registry usually populates them.
func (r Record) DisplayName() string {
	for _, s := range []string{r.Name, r.LegalName, r.TradeName} {
		if v := strings.TrimSpace(s); v != "" {
			return v
		}
	}
	return ""
}

// Client queries the registry with caching, spacing, and retries.
// Zero-value timing hooks default to the real clock; tests override
// now and sleep to run instantly.
type Client struct {
	HTTP     *http.Client
	CNPJBase string
	CPFBase  string
	Cache    *Cache

	now     func() time.Time
	sleep   func(time.Duration)
	lastHit time.Time
}

// New builds a client backed by the JSON cache file at cachePath.
func New(cachePath string) *Client {
	return &Client{
		HTTP:     &http.Client{Timeout: callTimeout},
		CNPJBase: defaultCNPJ,
		CPFBase:  defaultCPF,
		Cache:    NewCache(cachePath),
		now:      time.Now,
		sleep:    time.Sleep,
	}
}

// Lookup resolves one identifier. Cache hits return immediately and
// never touch the network. On a miss: at most maxAttempts calls, each
// separated from the previous call (of any identifier) by minSpacing,
// with baseDelay*2^attempt backoff after a 429 or transport failure.
// Exhaustion returns ErrUnavailable.
func (c *Client) Lookup(kind Kind, id string) (Record, error) {
	key := fmt.Sprintf("%s:%s", kind, id)
	if raw, ok := c.Cache.Get(key); ok {
		var rec Record
		if err := json.Unmarshal(raw, &rec); err == nil {
			return rec, nil
		}
		// A corrupt cache line falls through to a fresh call.
	}

	base := c.CNPJBase
	if kind == KindCPF {
		base = c.CPFBase
	}
	url := base + id

	for attempt := 0; attempt < maxAttempts; attempt++ {
		c.enforceSpacing()

		raw, retryable, err := c.call(url)
		if err == nil {
			var rec Record
			if err := json.Unmarshal(raw, &rec); err != nil {
				return Record{}, fmt.Errorf("lookup %s: decode: %w", key, err)
			}
			if err := c.Cache.Put(key, raw); err != nil {
				return rec, fmt.Errorf("lookup %s: cache: %w", key, err)
			}
			return rec, nil
		}
		if !retryable {
			return Record{}, fmt.Errorf("lookup %s: %w", key, err)
		}
		c.sleep(baseDelay * (1 << attempt))
	}
	return Record{}, ErrUnavailable
}

// enforceSpacing delays until at least minSpacing has passed since the
// previous registry call, whatever its outcome.
func (c *Client) enforceSpacing() {
	if !c.lastHit.IsZero() {
		if elapsed := c.now().Sub(c.lastHit); elapsed < minSpacing {
			c.sleep(minSpacing - elapsed)
		}
	}
}

// call performs one HTTP GET. retryable marks 429s and transport
// failures; other HTTP errors are final.
func (c *Client) call(url string) (raw []byte, retryable bool, err error) {
	resp, err := c.HTTP.Get(url)
	c.lastHit = c.now()
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, true, fmt.Errorf("status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("status %d", resp.StatusCode)
	}
	raw, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, err
	}
	return raw, false, nil
}
