package offline

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/Zachdehooge/observatorio/internal/metrics"
)

// origin is a fake dashboard that counts every request it sees.
type origin struct {
	mu    sync.Mutex
	hits  map[string]int
	pages map[string]string
	srv   *httptest.Server
}

func newOrigin() *origin {
	o := &origin{
		hits: make(map[string]int),
		pages: map[string]string{
			"/":                 "<html>observatorio</html>",
			"/estilo.css":       "body{}",
			"/datos/boe.json":   "[]",
			"/datos/gasto.json": "[]",
		},
	}
	o.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		o.mu.Lock()
		o.hits[r.Method+" "+r.URL.Path]++
		body, ok := o.pages[r.URL.Path]
		o.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		if strings.HasSuffix(r.URL.Path, ".css") {
			w.Header().Set("Content-Type", "text/css")
		}
		io.WriteString(w, body)
	}))
	return o
}

func (o *origin) count(key string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.hits[key]
}

func (o *origin) set(path, body string) {
	o.mu.Lock()
	o.pages[path] = body
	o.mu.Unlock()
}

type WorkerSuite struct {
	suite.Suite
	origin  *origin
	storage *MemoryStorage
	worker  *Worker
	logger  zerolog.Logger
}

func TestWorkerSuite(t *testing.T) {
	suite.Run(t, new(WorkerSuite))
}

func (s *WorkerSuite) SetupTest() {
	s.origin = newOrigin()
	s.T().Cleanup(s.origin.srv.Close)
	s.storage = NewMemoryStorage()
	s.logger = zerolog.New(zerolog.NewTestWriter(s.T()))
	s.worker = s.newWorker([]string{"/", "/estilo.css", "/datos/boe.json"}, "")
}

func (s *WorkerSuite) newWorker(precache []string, pinned string) *Worker {
	u, err := url.Parse(s.origin.srv.URL)
	s.Require().NoError(err)
	return NewWorker(s.storage, Options{
		Origin:    u,
		Precache:  precache,
		CacheName: pinned,
		Client:    s.origin.srv.Client(),
		Logger:    s.logger,
		Metrics:   metrics.New(),
	})
}

func (s *WorkerSuite) TestInstallStoresEveryURL() {
	ctx := context.Background()

	name, err := s.worker.Install(ctx)
	s.Require().NoError(err)
	s.True(strings.HasPrefix(name, CachePrefix))
	s.Len(name, len(CachePrefix)+12)

	keys, err := s.storage.Keys(ctx, name)
	s.Require().NoError(err)
	s.Equal([]string{
		s.origin.srv.URL + "/",
		s.origin.srv.URL + "/datos/boe.json",
		s.origin.srv.URL + "/estilo.css",
	}, keys)

	entry, ok, err := s.storage.Match(ctx, s.origin.srv.URL+"/estilo.css")
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Equal("body{}", string(entry.Body))
	s.Equal("text/css", entry.Header.Get("Content-Type"))
}

func (s *WorkerSuite) TestInstallFailureStoresNothing() {
	ctx := context.Background()
	w := s.newWorker([]string{"/", "/estilo.css", "/no-existe.js"}, "")

	_, err := w.Install(ctx)
	s.Require().ErrorIs(err, ErrInstallFailed)
	s.Contains(err.Error(), "404")

	names, err := s.storage.Names(ctx)
	s.Require().NoError(err)
	s.Empty(names)
}

func (s *WorkerSuite) TestCacheNameFollowsContent() {
	ctx := context.Background()

	first, err := s.worker.Install(ctx)
	s.Require().NoError(err)
	again, err := s.worker.Install(ctx)
	s.Require().NoError(err)
	s.Equal(first, again)

	s.origin.set("/estilo.css", "body{color:red}")
	changed, err := s.worker.Install(ctx)
	s.Require().NoError(err)
	s.NotEqual(first, changed)
}

func (s *WorkerSuite) TestPinnedCacheName() {
	w := s.newWorker([]string{"/"}, "observatorio-v1")

	name, err := w.Install(context.Background())
	s.Require().NoError(err)
	s.Equal("observatorio-v1", name)
}

func (s *WorkerSuite) TestActivateDeletesOtherCaches() {
	ctx := context.Background()
	s.Require().NoError(s.storage.Put(ctx, "observatorio-viejo", []Entry{{URL: "https://example.org/", Status: 200}}))

	name, err := s.worker.Update(ctx)
	s.Require().NoError(err)
	s.Equal(name, s.worker.Current())

	names, err := s.storage.Names(ctx)
	s.Require().NoError(err)
	s.Equal([]string{name}, names)
}

func (s *WorkerSuite) TestCachedRequestsSkipTheNetwork() {
	ctx := context.Background()
	_, err := s.worker.Update(ctx)
	s.Require().NoError(err)
	installHits := s.origin.count("GET /estilo.css")

	proxy := httptest.NewServer(ConfigureRouter(s.worker, s.logger))
	defer proxy.Close()

	for i := 0; i < 3; i++ {
		resp, err := proxy.Client().Get(proxy.URL + "/estilo.css")
		s.Require().NoError(err)
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		s.Equal(http.StatusOK, resp.StatusCode)
		s.Equal("body{}", string(body))
		s.Equal("text/css", resp.Header.Get("Content-Type"))
	}
	s.Equal(installHits, s.origin.count("GET /estilo.css"))

	resp, err := proxy.Client().Head(proxy.URL + "/datos/boe.json")
	s.Require().NoError(err)
	resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal(0, s.origin.count("HEAD /datos/boe.json"))
}

func (s *WorkerSuite) TestUncachedRequestsPassThrough() {
	ctx := context.Background()
	_, err := s.worker.Update(ctx)
	s.Require().NoError(err)

	proxy := httptest.NewServer(ConfigureRouter(s.worker, s.logger))
	defer proxy.Close()

	resp, err := proxy.Client().Get(proxy.URL + "/datos/gasto.json")
	s.Require().NoError(err)
	resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal(1, s.origin.count("GET /datos/gasto.json"))

	// A miss is not stored.
	resp, err = proxy.Client().Get(proxy.URL + "/datos/gasto.json")
	s.Require().NoError(err)
	resp.Body.Close()
	s.Equal(2, s.origin.count("GET /datos/gasto.json"))

	resp, err = proxy.Client().Post(proxy.URL+"/", "text/plain", nil)
	s.Require().NoError(err)
	resp.Body.Close()
	s.Equal(1, s.origin.count("POST /"))
}

func (s *WorkerSuite) TestUpdateEndpoint() {
	proxy := httptest.NewServer(ConfigureRouter(s.worker, s.logger))
	defer proxy.Close()

	resp, err := proxy.Client().Post(proxy.URL+UpdatePath, "application/json", nil)
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)

	var result UpdateResult
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&result))
	s.Equal(s.worker.Current(), result.Cache)
	s.NotEmpty(result.Cache)
}

func TestMemoryStorageMatchAcrossCaches(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStorage()
	require.NoError(t, st.Put(ctx, "a", []Entry{{URL: "https://x/1", Status: 200, Body: []byte("uno")}}))
	require.NoError(t, st.Put(ctx, "b", []Entry{{URL: "https://x/2", Status: 200, Body: []byte("dos")}}))

	e, ok, err := st.Match(ctx, "https://x/2")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "dos", string(e.Body))

	require.NoError(t, st.Delete(ctx, "b"))
	_, ok, err = st.Match(ctx, "https://x/2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCacheNameIsStable(t *testing.T) {
	entries := []Entry{{URL: "https://x/", Body: []byte("a")}}
	assert.Equal(t, CacheName(entries), CacheName(entries))
	assert.NotEqual(t, CacheName(entries), CacheName([]Entry{{URL: "https://x/", Body: []byte("b")}}))
}
