package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitewright/internal/bootstrap"
	"git.home.luguber.info/inful/sitewright/internal/config"
	"git.home.luguber.info/inful/sitewright/internal/router"
	"git.home.luguber.info/inful/sitewright/internal/site"
)

type stubRenderer struct {
	err error
}

func (r *stubRenderer) RenderPage(_ context.Context, req *site.Request) ([]byte, error) {
	if r.err != nil {
		return nil, r.err
	}
	return []byte("<html>" + req.Slug + "</html>"), nil
}

func serverPipeline(t *testing.T, slugs ...string) *bootstrap.Pipeline {
	t.Helper()
	reqs := make([]site.Request, 0, len(slugs))
	for _, s := range slugs {
		reqs = append(reqs, site.Request{Slug: s})
	}
	p, err := bootstrap.New(bootstrap.Options{
		Mode: bootstrap.ModeServer,
		UserRoutes: map[string]router.Route{
			"pages": {
				All:       router.Static(reqs...),
				Permalink: func(r *site.Request, _ config.View) string { return "/" + r.Slug + "/" },
			},
		},
	})
	require.NoError(t, err)
	require.NoError(t, p.Bootstrap(context.Background()))
	return p
}

func newTestServer(t *testing.T, rt *Runtime, opts Options) *Server {
	t.Helper()
	s, err := New(rt, opts)
	require.NoError(t, err)
	return s
}

func TestServePage(t *testing.T) {
	p := serverPipeline(t, "about")
	s := newTestServer(t, &Runtime{Pipeline: p, Renderer: &stubRenderer{}}, Options{})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/about/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "about")
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
}

func TestServePageWithoutTrailingSlash(t *testing.T) {
	p := serverPipeline(t, "about")
	s := newTestServer(t, &Runtime{Pipeline: p, Renderer: &stubRenderer{}}, Options{})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/about", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServeUnknownPath(t *testing.T) {
	p := serverPipeline(t, "about")
	s := newTestServer(t, &Runtime{Pipeline: p, Renderer: &stubRenderer{}}, Options{})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServeRenderFailure(t *testing.T) {
	p := serverPipeline(t, "about")
	s := newTestServer(t, &Runtime{Pipeline: p, Renderer: &stubRenderer{err: errors.New("template broke")}}, Options{})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/about/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHealthz(t *testing.T) {
	p := serverPipeline(t, "about")
	s := newTestServer(t, &Runtime{Pipeline: p, Renderer: &stubRenderer{}}, Options{})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRebuildSwapsRuntime(t *testing.T) {
	first := serverPipeline(t, "one")
	second := serverPipeline(t, "two")

	s := newTestServer(t, &Runtime{Pipeline: first, Renderer: &stubRenderer{}}, Options{
		Rebuild: func(context.Context) (*Runtime, error) {
			return &Runtime{Pipeline: second, Renderer: &stubRenderer{}}, nil
		},
	})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/two/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	require.NoError(t, s.Rebuild(context.Background()))

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/two/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/one/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRebuildFailureKeepsRuntime(t *testing.T) {
	p := serverPipeline(t, "about")
	s := newTestServer(t, &Runtime{Pipeline: p, Renderer: &stubRenderer{}}, Options{
		Rebuild: func(context.Context) (*Runtime, error) {
			return nil, errors.New("enumerate failed")
		},
	})

	require.Error(t, s.Rebuild(context.Background()))

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/about/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestContentWatcherTriggersDebouncedRebuild(t *testing.T) {
	dir := t.TempDir()
	var fired atomic.Int32
	cw, err := NewContentWatcher([]string{dir}, func(context.Context) {
		fired.Add(1)
	})
	require.NoError(t, err)
	cw.SetDebounce(50 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, cw.Start(ctx))
	defer cw.Stop() //nolint:errcheck

	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "page.md"), []byte("x"), 0o600))
		time.Sleep(10 * time.Millisecond)
	}

	require.Eventually(t, func() bool {
		return fired.Load() >= 1
	}, 3*time.Second, 20*time.Millisecond)

	// rapid writes coalesce into one callback
	time.Sleep(200 * time.Millisecond)
	assert.LessOrEqual(t, fired.Load(), int32(2))
}

func TestContentWatcherRejectsAllMissingDirs(t *testing.T) {
	cw, err := NewContentWatcher([]string{"/nonexistent/sitewright-test"}, func(context.Context) {})
	require.NoError(t, err)
	assert.Error(t, cw.Start(context.Background()))
}

func TestRebuildSchedulerFires(t *testing.T) {
	s, err := NewRebuildScheduler()
	require.NoError(t, err)

	var fired atomic.Int32
	_, err = s.SchedulePeriodicRebuild(20*time.Millisecond, func(context.Context) {
		fired.Add(1)
	})
	require.NoError(t, err)

	s.Start()
	defer s.Stop() //nolint:errcheck

	require.Eventually(t, func() bool {
		return fired.Load() >= 1
	}, 3*time.Second, 10*time.Millisecond)
}
