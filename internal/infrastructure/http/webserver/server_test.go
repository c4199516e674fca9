package webserver

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	airemix "github.com/alchemorsel/recipe-remix/internal/application/ai"
	"github.com/alchemorsel/recipe-remix/internal/application/page"
	recipeapp "github.com/alchemorsel/recipe-remix/internal/application/recipe"
	"github.com/alchemorsel/recipe-remix/internal/domain/recipe"
	"github.com/alchemorsel/recipe-remix/internal/infrastructure/config"
	"github.com/alchemorsel/recipe-remix/internal/infrastructure/monitoring"
	"github.com/alchemorsel/recipe-remix/internal/ports/outbound"
	"github.com/alchemorsel/recipe-remix/pkg/healthcheck"
	"github.com/alchemorsel/recipe-remix/test/testutils"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "Recipe Remix", Environment: "test"},
		Server: config.ServerConfig{
			Host:              "127.0.0.1",
			Port:              0,
			EnableCompression: false,
			CompressionLevel:  5,
		},
		AI: config.AIConfig{
			Enabled: true,
			Themes:  []string{"pirate", "vegan"},
		},
		Session: config.SessionConfig{
			CookieName:      "remix-session",
			TTL:             time.Hour,
			CleanupInterval: time.Minute,
		},
		Monitoring: config.MonitoringConfig{
			EnableMetrics: true,
			MetricsPath:   "/metrics",
		},
	}
}

// WebServerTestSuite drives the HTMX endpoints end to end with fake upstreams
type WebServerTestSuite struct {
	suite.Suite
	source    *testutils.MockRecipeSource
	completer *testutils.MockChatCompleter
	metrics   *monitoring.MetricsCollector
	sessions  *SessionStore
	server    *WebServer
	handler   http.Handler
	cookie    *http.Cookie
}

func (s *WebServerTestSuite) SetupTest() {
	s.source = new(testutils.MockRecipeSource)
	s.completer = new(testutils.MockChatCompleter)
	s.cookie = nil
	s.server = s.newServer(testConfig(), s.completer)
	s.handler = s.server.Handler()
}

func (s *WebServerTestSuite) newServer(cfg *config.Config, completer outbound.ChatCompleter) *WebServer {
	log := zap.NewNop()
	s.metrics = monitoring.NewMetricsCollector(log)
	controller := page.NewController(
		recipeapp.NewFetcher(s.source, log),
		airemix.NewRemixer(completer, log),
		s.metrics,
		nil,
	)
	s.sessions = NewSessionStore(cfg.Session, s.metrics, log)
	health := healthcheck.New("test", log)
	server, err := NewWebServer(cfg, log, controller, s.sessions, health, s.metrics, nil)
	s.Require().NoError(err)
	return server
}

func (s *WebServerTestSuite) do(method, target string, form url.Values) *httptest.ResponseRecorder {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("HX-Request", "true")
	if s.cookie != nil {
		req.AddCookie(s.cookie)
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	for _, c := range rec.Result().Cookies() {
		if c.Name == "remix-session" {
			s.cookie = c
		}
	}
	return rec
}

func (s *WebServerTestSuite) TestHomePage() {
	rec := s.do(http.MethodGet, "/", nil)

	s.Equal(http.StatusOK, rec.Code)
	body := rec.Body.String()
	s.Contains(body, `id="recipe-display"`)
	s.Contains(body, `hx-trigger="load"`)
	s.Contains(body, "<p class=\"status\">Loading...</p>")
	s.Contains(body, `<option value="pirate">pirate</option>`)
	s.Contains(body, `hx-post="/htmx/remix"`)
	s.Nil(s.cookie, "the page shell does not need a session")
	s.Equal(0, s.sessions.Len())
}

func (s *WebServerTestSuite) TestSessionCreatedOnFirstFragment() {
	s.source.On("RandomRecipe", mock.Anything).Return(testutils.Toast(), nil).Twice()

	s.do(http.MethodGet, "/", nil)
	s.do(http.MethodGet, "/", nil)
	s.Equal(0, s.sessions.Len())

	s.do(http.MethodGet, "/htmx/recipe/random", nil)
	s.Require().NotNil(s.cookie)
	s.do(http.MethodGet, "/htmx/recipe/random", nil)
	s.Equal(1, s.sessions.Len())
}

func (s *WebServerTestSuite) TestFragmentWithoutSessionMiddleware() {
	rec := httptest.NewRecorder()
	s.server.handleRandomRecipe(rec, httptest.NewRequest(http.MethodGet, "/htmx/recipe/random", nil))

	s.Equal(http.StatusInternalServerError, rec.Code)
	s.Contains(rec.Body.String(), "session required")
	s.source.AssertNotCalled(s.T(), "RandomRecipe", mock.Anything)
}

func (s *WebServerTestSuite) TestRandomRecipeFragment() {
	s.source.On("RandomRecipe", mock.Anything).Return(testutils.Toast(), nil).Once()

	rec := s.do(http.MethodGet, "/htmx/recipe/random", nil)

	s.Equal(http.StatusOK, rec.Code)
	s.Equal("text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	s.Contains(body, `<div class="recipe-title-row"><h2>Toast</h2></div>`)
	s.Contains(body, `<img src="x.jpg" alt="Toast">`)
	s.Contains(body, "<h3>Ingredients:</h3>\n<ul><li>2 slices Bread</li></ul>")
	s.Contains(body, "<p>Step1<br>Step2</p>")
	s.NotContains(body, "<html")
}

func (s *WebServerTestSuite) TestRecipeTextIsEscaped() {
	r := testutils.Toast()
	r.Name = `<script>alert("x")</script>`
	s.source.On("RandomRecipe", mock.Anything).Return(r, nil).Once()

	body := s.do(http.MethodGet, "/htmx/recipe/random", nil).Body.String()

	s.NotContains(body, "<script>")
	s.Contains(body, "&lt;script&gt;")
}

func (s *WebServerTestSuite) TestRandomRecipeFailure() {
	s.source.On("RandomRecipe", mock.Anything).Return(recipe.Recipe{}, errors.New("dial tcp: refused")).Once()

	rec := s.do(http.MethodGet, "/htmx/recipe/random", nil)

	s.Equal(http.StatusOK, rec.Code)
	s.Equal(`<p class="status">Sorry, couldn&#39;t load a recipe.</p>`, rec.Body.String())
}

func (s *WebServerTestSuite) TestRemixWithoutRecipe() {
	rec := s.do(http.MethodPost, "/htmx/remix", url.Values{"theme": {"pirate"}})

	s.Equal(http.StatusOK, rec.Code)
	s.Equal(`<p class="status">Please load a recipe first!</p>`, rec.Body.String())
	s.completer.AssertNotCalled(s.T(), "Complete", mock.Anything, mock.Anything)
}

func (s *WebServerTestSuite) TestLoadThenRemixInSameSession() {
	s.source.On("RandomRecipe", mock.Anything).Return(testutils.Toast(), nil).Once()
	var sent outbound.ChatRequest
	s.completer.On("Complete", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { sent = args.Get(1).(outbound.ChatRequest) }).
		Return("Arr!\n\nToast for the crew", nil).Once()

	s.do(http.MethodGet, "/htmx/recipe/random", nil)
	rec := s.do(http.MethodPost, "/htmx/remix", url.Values{"theme": {"pirate"}})

	s.Equal(http.StatusOK, rec.Code)
	s.Equal("<div class=\"remix\"><pre class=\"remix-text\">Arr!\n\nToast for the crew</pre></div>", rec.Body.String())
	s.Contains(sent.Messages[1].Content, "pirate")
	s.completer.AssertNumberOfCalls(s.T(), "Complete", 1)
}

func (s *WebServerTestSuite) TestSessionsAreIsolated() {
	s.source.On("RandomRecipe", mock.Anything).Return(testutils.Toast(), nil).Once()
	s.do(http.MethodGet, "/htmx/recipe/random", nil)

	// A different browser has no current recipe.
	s.cookie = nil
	rec := s.do(http.MethodPost, "/htmx/remix", url.Values{"theme": {"vegan"}})

	s.Contains(rec.Body.String(), "Please load a recipe first!")
}

func (s *WebServerTestSuite) TestHealthAndMetrics() {
	s.Equal(http.StatusOK, s.do(http.MethodGet, "/live", nil).Code)
	s.Equal(http.StatusOK, s.do(http.MethodGet, "/health", nil).Code)

	s.source.On("RandomRecipe", mock.Anything).Return(testutils.Toast(), nil).Once()
	s.do(http.MethodGet, "/htmx/recipe/random", nil)

	body := s.do(http.MethodGet, "/metrics", nil).Body.String()
	s.Contains(body, `recipe_fetches_total{outcome="success"} 1`)
	s.Contains(body, `route="/htmx/recipe/random"`)
}

func (s *WebServerTestSuite) TestStaticAssets() {
	rec := s.do(http.MethodGet, "/static/app.css", nil)

	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), "#recipe-display")
	s.Equal("public, max-age=3600", rec.Header().Get("Cache-Control"))
}

func (s *WebServerTestSuite) TestSecurityHeaders() {
	rec := s.do(http.MethodGet, "/", nil)

	s.Contains(rec.Header().Get("Content-Security-Policy"), "https://unpkg.com")
	s.Equal("nosniff", rec.Header().Get("X-Content-Type-Options"))
	s.Equal("DENY", rec.Header().Get("X-Frame-Options"))
}

func TestWebServerTestSuite(t *testing.T) {
	suite.Run(t, new(WebServerTestSuite))
}

func TestWebServer_RemixDisabledHidesControl(t *testing.T) {
	s := &WebServerTestSuite{}
	s.SetT(t)
	s.source = new(testutils.MockRecipeSource)
	cfg := testConfig()
	cfg.AI.Enabled = false

	server := s.newServer(cfg, nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotContains(t, rec.Body.String(), `hx-post="/htmx/remix"`)
}

func TestWebServer_CompressionMetricsExported(t *testing.T) {
	s := &WebServerTestSuite{}
	s.SetT(t)
	s.source = new(testutils.MockRecipeSource)
	cfg := testConfig()
	cfg.Server.EnableCompression = true

	server := s.newServer(cfg, nil)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "br")
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	require.Equal(t, "br", rec.Header().Get("Content-Encoding"))

	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	require.Contains(t, body, `http_compressed_responses_total{encoding="br"} 1`)
	require.Contains(t, body, `http_compressed_responses_total{encoding="gzip"} 0`)
	require.Contains(t, body, "http_compression_bytes_saved_total")
}

func TestWebServer_StartAndShutdown(t *testing.T) {
	s := &WebServerTestSuite{}
	s.SetT(t)
	s.source = new(testutils.MockRecipeSource)

	server := s.newServer(testConfig(), nil)
	require.NoError(t, server.Start())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, server.Shutdown(ctx))
}
