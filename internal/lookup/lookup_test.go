package lookup

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient wires a client to the given server with a frozen clock
// and recorded sleeps, so retry timing is asserted without waiting.
func newTestClient(t *testing.T, serverURL string) (*Client, *[]time.Duration) {
	t.Helper()
	sleeps := &[]time.Duration{}
	c := &Client{
		HTTP:     &http.Client{},
		CNPJBase: serverURL + "/cnpj/",
		CPFBase:  serverURL + "/cpf/",
		Cache:    NewCache(filepath.Join(t.TempDir(), "cache.json")),
		now:      func() time.Time { return time.Unix(1700000000, 0) },
		sleep:    func(d time.Duration) { *sleeps = append(*sleeps, d) },
	}
	return c, sleeps
}

func TestLookup_SuccessIsCached(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/cnpj/11222333000181", r.URL.Path)
		w.Write([]byte(`{"status":"OK","nome":"Cooperativa Central"}`))
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv.URL)

	rec, err := c.Lookup(KindCNPJ, "11222333000181")
	require.NoError(t, err)
	assert.Equal(t, "Cooperativa Central", rec.DisplayName())
	assert.Equal(t, int32(1), hits.Load())

	// Second lookup is served from the cache file, no network.
	rec, err = c.Lookup(KindCNPJ, "11222333000181")
	require.NoError(t, err)
	assert.Equal(t, "Cooperativa Central", rec.Name)
	assert.Equal(t, int32(1), hits.Load(), "cache hit must not call the registry")
}

func TestLookup_RateLimitExhaustsAttempts(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c, sleeps := newTestClient(t, srv.URL)

	_, err := c.Lookup(KindCPF, "52998224725")
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(maxAttempts), hits.Load())

	// Backoff doubles per attempt; later attempts also wait out the
	// minimum spacing since the previous call.
	want := []time.Duration{
		2 * time.Second,
		1 * time.Second, 4 * time.Second,
		1 * time.Second, 8 * time.Second,
		1 * time.Second, 16 * time.Second,
	}
	assert.Equal(t, want, *sleeps)
}

func TestLookup_RetryThenSuccess(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"status":"OK","razao_social":"Agropecuaria Boa Vista LTDA"}`))
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv.URL)

	rec, err := c.Lookup(KindCNPJ, "11222333000181")
	require.NoError(t, err)
	assert.Equal(t, "Agropecuaria Boa Vista LTDA", rec.DisplayName())
	assert.Equal(t, int32(3), hits.Load())
}

func TestLookup_NonRetryableStatusIsFinal(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv.URL)

	_, err := c.Lookup(KindCNPJ, "00000000000000")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(1), hits.Load(), "a 404 must not be retried")
}

func TestLookup_SpacingBetweenIdentifiers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"OK","nome":"Alguem"}`))
	}))
	defer srv.Close()

	c, sleeps := newTestClient(t, srv.URL)

	_, err := c.Lookup(KindCPF, "52998224725")
	require.NoError(t, err)
	assert.Empty(t, *sleeps, "first call needs no spacing")

	// A different identifier still spaces off the previous call.
	_, err = c.Lookup(KindCNPJ, "11222333000181")
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{minSpacing}, *sleeps)
}

func TestRecord_DisplayName(t *testing.T) {
	assert.Equal(t, "Nome", Record{Name: "Nome", LegalName: "Razao"}.DisplayName())
	assert.Equal(t, "Razao", Record{LegalName: "Razao", TradeName: "Fantasia"}.DisplayName())
	assert.Equal(t, "Fantasia", Record{TradeName: " Fantasia "}.DisplayName())
	assert.Equal(t, "", Record{}.DisplayName())
}
