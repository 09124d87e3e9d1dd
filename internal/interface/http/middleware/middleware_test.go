package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xiebiao/bookcatalog/pkg/jwt"
	"github.com/xiebiao/bookcatalog/pkg/logger"
	"github.com/xiebiao/bookcatalog/pkg/metrics"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuth(t *testing.T) {
	manager := jwt.NewManager("test-secret", "bookcatalog", time.Hour)
	token, err := manager.GenerateToken("librarian")
	require.NoError(t, err)

	newRouter := func(enabled bool) (*gin.Engine, *observer.ObservedLogs) {
		core, logs := observer.New(zapcore.InfoLevel)
		r := gin.New()
		r.Use(RequestLogger(zap.New(core)))
		r.POST("/books", NewAuthMiddleware(manager, enabled).RequireAuth(), func(c *gin.Context) {
			logger.FromContext(c.Request.Context(), zap.NewNop()).Info("handled")
			c.Status(http.StatusOK)
		})
		return r, logs
	}

	tests := []struct {
		name        string
		enabled     bool
		header      string
		wantStatus  int
		wantSubject string
	}{
		{"未开启认证直接放行", false, "", http.StatusOK, ""},
		{"缺少Token", true, "", http.StatusUnauthorized, ""},
		{"不是Bearer格式", true, "Basic abc", http.StatusUnauthorized, ""},
		{"Token无效", true, "Bearer not-a-token", http.StatusUnauthorized, ""},
		{"有效Token", true, "Bearer " + token.AccessToken, http.StatusOK, "librarian"},
		{"Bearer不区分大小写", true, "bearer " + token.AccessToken, http.StatusOK, "librarian"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/books", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			r, logs := newRouter(tt.enabled)
			w := serve(r, req)
			assert.Equal(t, tt.wantStatus, w.Code)

			handled := logs.FilterMessage("handled").All()
			if tt.wantStatus != http.StatusOK {
				assert.Empty(t, handled)
				return
			}
			require.Len(t, handled, 1)
			if tt.wantSubject == "" {
				assert.NotContains(t, handled[0].ContextMap(), "subject")
			} else {
				assert.Equal(t, tt.wantSubject, handled[0].ContextMap()["subject"])
			}
		})
	}
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	r := gin.New()
	r.Use(RequestLogger(zap.New(core)))
	r.GET("/books/:id", func(c *gin.Context) {
		logger.FromContext(c.Request.Context(), zap.NewNop()).Info("handler")
		c.Status(http.StatusNoContent)
	})

	t.Run("生成请求ID", func(t *testing.T) {
		w := serve(r, httptest.NewRequest(http.MethodGet, "/books/1", nil))
		assert.Len(t, w.Header().Get(RequestIDHeader), 36)
	})

	t.Run("沿用客户端传入的请求ID", func(t *testing.T) {
		logs.TakeAll()

		req := httptest.NewRequest(http.MethodGet, "/books/2", nil)
		req.Header.Set(RequestIDHeader, "req-123")
		w := serve(r, req)
		assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))

		entries := logs.TakeAll()
		require.Len(t, entries, 2)
		assert.Equal(t, "handler", entries[0].Message)
		assert.Equal(t, "req-123", entries[0].ContextMap()["request_id"])

		access := entries[1].ContextMap()
		assert.Equal(t, "request", entries[1].Message)
		assert.Equal(t, "req-123", access["request_id"])
		assert.Equal(t, "/books/2", access["path"])
		assert.Equal(t, int64(http.StatusNoContent), access["status"])
	})
}

func TestTracing(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prevProvider, prevPropagator := otel.GetTracerProvider(), otel.GetTextMapPropagator()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() {
		otel.SetTracerProvider(prevProvider)
		otel.SetTextMapPropagator(prevPropagator)
		_ = tp.Shutdown(context.Background())
	})

	core, logs := observer.New(zapcore.InfoLevel)
	r := gin.New()
	r.Use(Tracing(), RequestLogger(zap.New(core)))
	r.GET("/books/:id", func(c *gin.Context) {
		logger.FromContext(c.Request.Context(), zap.NewNop()).Info("handler")
		c.Status(http.StatusOK)
	})
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	const (
		upstreamTrace = "4bf92f3577b34da6a3ce929d0e0e4736"
		upstreamSpan  = "00f067aa0ba902b7"
	)
	req := httptest.NewRequest(http.MethodGet, "/books/7", nil)
	req.Header.Set("traceparent", "00-"+upstreamTrace+"-"+upstreamSpan+"-01")
	require.Equal(t, http.StatusOK, serve(r, req).Code)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "GET /books/:id", span.Name())
	assert.Equal(t, trace.SpanKindServer, span.SpanKind())
	assert.Equal(t, upstreamTrace, span.SpanContext().TraceID().String())
	assert.Equal(t, upstreamSpan, span.Parent().SpanID().String())

	// 请求内的日志和访问日志都带上同一个trace_id
	entries := logs.All()
	require.Len(t, entries, 2)
	for _, entry := range entries {
		assert.Equal(t, upstreamTrace, entry.ContextMap()["trace_id"])
		assert.Equal(t, span.SpanContext().SpanID().String(), entry.ContextMap()["span_id"])
	}

	require.Equal(t, http.StatusInternalServerError, serve(r, httptest.NewRequest(http.MethodGet, "/boom", nil)).Code)
	spans = recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, codes.Error, spans[1].Status().Code)
}

func TestRecovery(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)

	r := gin.New()
	r.Use(Recovery(zap.New(core)))
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"code":50000,"message":"系统内部错误"}`, w.Body.String())
	assert.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
}

func TestMetrics_UnmatchedRoute(t *testing.T) {
	r := gin.New()
	r.Use(Metrics())
	r.GET("/books/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	matched := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/books/:id", "200")
	unmatched := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "unmatched", "404")
	beforeMatched, beforeUnmatched := testutil.ToFloat64(matched), testutil.ToFloat64(unmatched)

	assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/books/7", nil)).Code)
	assert.Equal(t, http.StatusNotFound, serve(r, httptest.NewRequest(http.MethodGet, "/nope", nil)).Code)

	// 路径按路由模板统计，实际ID不进入标签
	assert.Equal(t, beforeMatched+1, testutil.ToFloat64(matched))
	assert.Equal(t, beforeUnmatched+1, testutil.ToFloat64(unmatched))
	assert.Zero(t, testutil.ToFloat64(metrics.HTTPRequestsInProgress))
}
