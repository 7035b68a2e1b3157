package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/mongomart/internal/domain"
	"github.com/utafrali/mongomart/internal/service"
	"github.com/utafrali/mongomart/internal/store"
	"github.com/utafrali/mongomart/internal/store/memory"
	"github.com/utafrali/mongomart/pkg/health"
	"github.com/utafrali/mongomart/pkg/httputil"
	"github.com/utafrali/mongomart/pkg/middleware"
)

// =============================================================================
// Helpers
// =============================================================================

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingPublisher struct {
	reviews []domain.Review
}

func (p *recordingPublisher) PublishReviewAdded(_ context.Context, _ int, review domain.Review) error {
	p.reviews = append(p.reviews, review)
	return nil
}

func seedItems() []domain.Item {
	items := []domain.Item{
		{ID: 1, Title: "Leaf Mug", Slogan: "sip slowly", Category: domain.StringPtr("Kitchen"), Price: 9.5},
		{ID: 2, Title: "Gray Hoodie", Slogan: "stay warm", Category: domain.StringPtr("Apparel"), Price: 29.99},
		{ID: 3, Title: "Tee", Description: "leaf print cotton", Category: domain.StringPtr("Apparel"), Price: 14},
		{ID: 4, Title: "Mystery Box"},
	}
	for i := 5; i <= 9; i++ {
		items = append(items, domain.Item{ID: i, Title: fmt.Sprintf("Sticker %d", i), Category: domain.StringPtr("Stickers")})
	}
	return items
}

type testServer struct {
	handler   http.Handler
	store     *memory.Store
	publisher *recordingPublisher
}

func newTestServer(t *testing.T, opts RouterOptions) *testServer {
	t.Helper()
	st := memory.New(seedItems()...)
	pub := &recordingPublisher{}
	clock := func() time.Time { return time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC) }
	svc := service.NewCatalogService(st, pub, 2, newTestLogger(), service.WithClock(clock))
	return &testServer{
		handler:   NewRouter(svc, health.NewHandler(), opts, newTestLogger()),
		store:     st,
		publisher: pub,
	}
}

func (s *testServer) do(method, target string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

type envelope[T any] struct {
	Data  T                       `json:"data"`
	Error *httputil.ErrorResponse `json:"error"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var env envelope[T]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

// =============================================================================
// Categories
// =============================================================================

func TestListCategories(t *testing.T) {
	s := newTestServer(t, RouterOptions{})

	rec := s.do(http.MethodGet, "/api/v1/categories", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	env := decode[[]domain.CategoryCount](t, rec)
	assert.Equal(t, []domain.CategoryCount{
		{Label: "All", Count: 8},
		{Label: "Apparel", Count: 2},
		{Label: "Kitchen", Count: 1},
		{Label: "Stickers", Count: 5},
	}, env.Data)
}

// =============================================================================
// Items
// =============================================================================

func TestListItems_ByCategory(t *testing.T) {
	s := newTestServer(t, RouterOptions{})

	rec := s.do(http.MethodGet, "/api/v1/items?category=Stickers&page=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	env := decode[ItemListResponse](t, rec)
	assert.Equal(t, "Stickers", env.Data.Category)
	assert.Len(t, env.Data.Items, 1)
	assert.Equal(t, 9, env.Data.Items[0].ID)
	assert.Equal(t, 5, env.Data.TotalCount)
	assert.Equal(t, 3, env.Data.NumPages)
	assert.False(t, env.Data.HasNext)
	assert.True(t, env.Data.HasPrev)
}

func TestListItems_DefaultsToAllAndFirstPage(t *testing.T) {
	s := newTestServer(t, RouterOptions{})

	rec := s.do(http.MethodGet, "/api/v1/items", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	env := decode[ItemListResponse](t, rec)
	assert.Equal(t, "All", env.Data.Category)
	assert.Equal(t, 0, env.Data.Page)
	assert.Len(t, env.Data.Items, 2)
	assert.Equal(t, 9, env.Data.TotalCount)
}

func TestListItems_PastTheEnd(t *testing.T) {
	s := newTestServer(t, RouterOptions{})

	rec := s.do(http.MethodGet, "/api/v1/items?category=Kitchen&page=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	env := decode[ItemListResponse](t, rec)
	assert.NotNil(t, env.Data.Items)
	assert.Empty(t, env.Data.Items)
}

func TestListItems_BadPage(t *testing.T) {
	s := newTestServer(t, RouterOptions{})

	rec := s.do(http.MethodGet, "/api/v1/items?page=two", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	env := decode[any](t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_PARAMETER", env.Error.Code)
}

// =============================================================================
// Search
// =============================================================================

func TestSearch(t *testing.T) {
	s := newTestServer(t, RouterOptions{})

	rec := s.do(http.MethodGet, "/api/v1/search?query=leaf", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	env := decode[ItemListResponse](t, rec)
	assert.Equal(t, "leaf", env.Data.Query)
	assert.Equal(t, 2, env.Data.TotalCount)
	require.Len(t, env.Data.Items, 2)
	assert.Equal(t, 1, env.Data.Items[0].ID)
	assert.Equal(t, 3, env.Data.Items[1].ID)
}

func TestSearch_NoMatchesIsEmpty(t *testing.T) {
	s := newTestServer(t, RouterOptions{})

	for _, target := range []string{"/api/v1/search?query=zeppelin", "/api/v1/search"} {
		rec := s.do(http.MethodGet, target, nil)
		require.Equal(t, http.StatusOK, rec.Code, target)

		env := decode[ItemListResponse](t, rec)
		assert.Empty(t, env.Data.Items, target)
		assert.Zero(t, env.Data.TotalCount, target)
	}
}

// =============================================================================
// Item detail
// =============================================================================

func TestGetItem(t *testing.T) {
	s := newTestServer(t, RouterOptions{})
	_, err := s.store.AddReview(context.Background(), 2, domain.Review{Name: "Ada", Stars: 5})
	require.NoError(t, err)
	_, err = s.store.AddReview(context.Background(), 2, domain.Review{Name: "Lin", Stars: 4})
	require.NoError(t, err)

	rec := s.do(http.MethodGet, "/api/v1/items/2", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	env := decode[domain.ItemDetail](t, rec)
	assert.Equal(t, 2, env.Data.ID)
	assert.Equal(t, "Gray Hoodie", env.Data.Title)
	assert.Equal(t, domain.ReviewSummary{Count: 2, AverageStars: 4.5}, env.Data.ReviewSummary)
	assert.Len(t, env.Data.Related, 4)
}

func TestGetItem_NotFound(t *testing.T) {
	s := newTestServer(t, RouterOptions{})

	rec := s.do(http.MethodGet, "/api/v1/items/404", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	env := decode[any](t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestGetItem_BadID(t *testing.T) {
	s := newTestServer(t, RouterOptions{})

	rec := s.do(http.MethodGet, "/api/v1/items/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// Reviews
// =============================================================================

func TestAddReview_Created(t *testing.T) {
	s := newTestServer(t, RouterOptions{})

	rec := s.do(http.MethodPost, "/api/v1/items/3/reviews",
		strings.NewReader(`{"name":"Ada","comment":"soft and light","stars":4}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	env := decode[domain.Review](t, rec)
	assert.Equal(t, "Ada", env.Data.Name)
	assert.Equal(t, 4, env.Data.Stars)
	assert.True(t, time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC).Equal(env.Data.Date))

	item, err := s.store.Item(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, item.Reviews, 1)
	assert.Equal(t, "soft and light", item.Reviews[0].Comment)
	assert.Len(t, s.publisher.reviews, 1)
}

func TestAddReview_UnknownItem(t *testing.T) {
	s := newTestServer(t, RouterOptions{})

	rec := s.do(http.MethodPost, "/api/v1/items/999/reviews",
		strings.NewReader(`{"name":"Ada","stars":4}`))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, s.publisher.reviews)

	n, err := s.store.NumItems(context.Background(), domain.AllCategories())
	require.NoError(t, err)
	assert.Equal(t, 9, n)
}

func TestAddReview_ValidationErrors(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"missing name", `{"stars":4}`, "name"},
		{"stars too high", `{"name":"Ada","stars":9}`, "stars"},
		{"stars missing", `{"name":"Ada"}`, "stars"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, RouterOptions{})

			rec := s.do(http.MethodPost, "/api/v1/items/1/reviews", strings.NewReader(tt.body))
			require.Equal(t, http.StatusBadRequest, rec.Code)

			env := decode[any](t, rec)
			require.NotNil(t, env.Error)
			assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
			assert.Contains(t, env.Error.Fields, tt.field)
		})
	}
}

func TestAddReview_MalformedBody(t *testing.T) {
	s := newTestServer(t, RouterOptions{})

	rec := s.do(http.MethodPost, "/api/v1/items/1/reviews", strings.NewReader(`{"name":`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/api/v1/items/1/reviews", strings.NewReader(`{"name":"Ada","stars":3,"admin":true}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAddReview_WrongContentType(t *testing.T) {
	s := newTestServer(t, RouterOptions{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/items/1/reviews", strings.NewReader("name=Ada"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestAddReview_RateLimited(t *testing.T) {
	limiter := middleware.NewRateLimiter(0.001, 1, newTestLogger())
	t.Cleanup(limiter.Close)
	s := newTestServer(t, RouterOptions{ReviewLimiter: limiter})

	body := `{"name":"Ada","stars":5}`
	first := s.do(http.MethodPost, "/api/v1/items/1/reviews", strings.NewReader(body))
	assert.Equal(t, http.StatusCreated, first.Code)

	second := s.do(http.MethodPost, "/api/v1/items/1/reviews", strings.NewReader(body))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "1", second.Header().Get("Retry-After"))

	reads := s.do(http.MethodGet, "/api/v1/items/1", nil)
	assert.Equal(t, http.StatusOK, reads.Code, "reads are not rate limited")
}

// =============================================================================
// Store failures
// =============================================================================

type failingStore struct {
	store.CatalogStore
}

func (failingStore) Categories(context.Context) ([]domain.CategoryCount, error) {
	return nil, store.Wrap("categories", errors.New("server selection timeout"))
}

func TestStoreFailure_Returns503(t *testing.T) {
	svc := service.NewCatalogService(failingStore{}, &recordingPublisher{}, 2, newTestLogger())
	h := NewRouter(svc, health.NewHandler(), RouterOptions{}, newTestLogger())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/categories", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	env := decode[any](t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "SERVICE_UNAVAILABLE", env.Error.Code)
	assert.NotContains(t, rec.Body.String(), "server selection")
}

// =============================================================================
// Operational endpoints
// =============================================================================

func TestHealthAndMetricsEndpoints(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := middleware.RegisterHTTPMetrics(reg, ServiceName)
	require.NoError(t, err)
	s := newTestServer(t, RouterOptions{Metrics: metrics, Gatherer: reg})

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/health/live", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/health/ready", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/v1/categories", nil).Code)

	rec := s.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `route="/api/v1/categories"`)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, RouterOptions{CORS: middleware.DefaultCORSConfig()})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/items/1/reviews", nil)
	req.Header.Set("Origin", "https://shop.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCorrelationIDEchoed(t *testing.T) {
	s := newTestServer(t, RouterOptions{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/items/404", nil)
	req.Header.Set(middleware.CorrelationIDHeader, "corr-abc")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	assert.Equal(t, "corr-abc", rec.Header().Get(middleware.CorrelationIDHeader))
	assert.True(t, bytes.Contains(rec.Body.Bytes(), []byte(`"request_id":"corr-abc"`)))
}
