package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appbook "github.com/xiebiao/bookcatalog/internal/application/book"
	"github.com/xiebiao/bookcatalog/internal/infrastructure/config"
	"github.com/xiebiao/bookcatalog/internal/infrastructure/persistence/memory"
	"github.com/xiebiao/bookcatalog/internal/interface/http/dto"
	"github.com/xiebiao/bookcatalog/internal/interface/http/handler"
	"github.com/xiebiao/bookcatalog/internal/interface/http/middleware"
	"github.com/xiebiao/bookcatalog/internal/interface/http/router"
	apperrors "github.com/xiebiao/bookcatalog/pkg/errors"
	"github.com/xiebiao/bookcatalog/pkg/jwt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// envelope 统一响应结构(data延迟解析)
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
	jwt    *jwt.Manager
	token  string
}

func newTestServer(t *testing.T, authEnabled bool) *testServer {
	t.Helper()

	store := memory.NewBookStore()
	svc := appbook.NewService(store, store, nil, nil, zap.NewNop(), appbook.Options{})
	manager := jwt.NewManager("test-secret", "bookcatalog", time.Hour)
	cfg := &config.Config{Server: config.ServerConfig{Mode: gin.TestMode}}

	return &testServer{
		t:      t,
		router: router.New(cfg, zap.NewNop(), handler.NewBookHandler(svc), middleware.NewAuthMiddleware(manager, authEnabled)),
		jwt:    manager,
	}
}

func (s *testServer) do(method, path, body string) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func (s *testServer) create(title, author string, year *int) dto.BookResponse {
	s.t.Helper()

	payload, err := json.Marshal(map[string]interface{}{"title": title, "author": author, "year": year})
	require.NoError(s.t, err)

	w, env := s.do(http.MethodPost, "/api/v1/books", string(payload))
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	return decodeBook(s.t, env)
}

func decodeBook(t *testing.T, env envelope) dto.BookResponse {
	t.Helper()
	var b dto.BookResponse
	require.NoError(t, json.Unmarshal(env.Data, &b))
	return b
}

func decodeBooks(t *testing.T, env envelope) []dto.BookResponse {
	t.Helper()
	var books []dto.BookResponse
	require.NoError(t, json.Unmarshal(env.Data, &books))
	return books
}

func intPtr(v int) *int { return &v }

func TestCreateBook(t *testing.T) {
	s := newTestServer(t, false)

	w, env := s.do(http.MethodPost, "/api/v1/books", `{"title":"Test Book","author":"John Doe","year":2023}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 0, env.Code)

	created := decodeBook(t, env)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "Test Book", created.Title)
	assert.Equal(t, "John Doe", created.Author)
	assert.Equal(t, 2023, *created.Year)

	// 往返一致
	w, env = s.do(http.MethodGet, "/api/v1/books/"+itoa(created.ID), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, created, decodeBook(t, env))
}

func TestCreateBook_YearIsNullWhenAbsent(t *testing.T) {
	s := newTestServer(t, false)

	w, env := s.do(http.MethodPost, "/api/v1/books", `{"title":"Another One","author":"Anon"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, string(env.Data), `"year":null`)
}

func TestCreateBook_Validation(t *testing.T) {
	s := newTestServer(t, false)

	tests := []struct {
		name string
		body string
		code int
	}{
		{"缺少书名", `{"author":"A"}`, apperrors.ErrCodeBindError},
		{"缺少作者", `{"title":"T"}`, apperrors.ErrCodeBindError},
		{"书名全是空白", `{"title":"   ","author":"A"}`, apperrors.ErrCodeInvalidParams},
		{"年份类型错误", `{"title":"T","author":"A","year":"nineteen"}`, apperrors.ErrCodeBindError},
		{"非法JSON", `{"title":`, apperrors.ErrCodeBindError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := s.do(http.MethodPost, "/api/v1/books", tt.body)
			assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
			assert.Equal(t, tt.code, env.Code)
		})
	}

	w, env := s.do(http.MethodGet, "/api/v1/books", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeBooks(t, env))
}

func TestCreateBook_LongTitleAndAuthor(t *testing.T) {
	s := newTestServer(t, false)
	title := strings.Repeat("x", 1000)
	author := strings.Repeat("作", 500)

	created := s.create(title, author, nil)
	assert.Equal(t, title, created.Title)

	w, env := s.do(http.MethodGet, "/api/v1/books/"+itoa(created.ID), "")
	require.Equal(t, http.StatusOK, w.Code)
	got := decodeBook(t, env)
	assert.Equal(t, title, got.Title)
	assert.Equal(t, author, got.Author)
}

func TestCreateBook_Duplicate(t *testing.T) {
	s := newTestServer(t, false)
	s.create("1984", "George Orwell", intPtr(1949))

	w, env := s.do(http.MethodPost, "/api/v1/books", `{"title":"1984","author":"George Orwell","year":1949}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, apperrors.ErrCodeBookDuplicate, env.Code)
	assert.Equal(t, "Book with this title, author and year already exists", env.Message)

	_, env = s.do(http.MethodGet, "/api/v1/books", "")
	assert.Len(t, decodeBooks(t, env), 1)
}

func TestGetBook(t *testing.T) {
	s := newTestServer(t, false)

	w, env := s.do(http.MethodGet, "/api/v1/books/999", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Book not found", env.Message)

	w, _ = s.do(http.MethodGet, "/api/v1/books/abc", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	// 非正数和超出范围的整数ID不可能存在
	for _, id := range []string{"-1", "0", "99999999999999999999999"} {
		w, env = s.do(http.MethodGet, "/api/v1/books/"+id, "")
		assert.Equal(t, http.StatusNotFound, w.Code, id)
		assert.Equal(t, "Book not found", env.Message, id)
	}

	w, _ = s.do(http.MethodDelete, "/api/v1/books/-5", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w, _ = s.do(http.MethodPut, "/api/v1/books/-5", `{"title":"x"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListBooks_Pagination(t *testing.T) {
	s := newTestServer(t, false)
	for _, title := range []string{"b1", "b2", "b3", "b4", "b5"} {
		s.create(title, "Author", nil)
	}

	w, env := s.do(http.MethodGet, "/api/v1/books?skip=1&limit=2", "")
	require.Equal(t, http.StatusOK, w.Code)
	page := decodeBooks(t, env)
	require.Len(t, page, 2)
	assert.Equal(t, "b2", page[0].Title)
	assert.Equal(t, "b3", page[1].Title)

	_, env = s.do(http.MethodGet, "/api/v1/books", "")
	assert.Len(t, decodeBooks(t, env), 5)

	_, env = s.do(http.MethodGet, "/api/v1/books?skip=1000&limit=10", "")
	assert.Equal(t, "[]", string(env.Data))

	w, _ = s.do(http.MethodGet, "/api/v1/books?limit=ten", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestUpdateBook(t *testing.T) {
	s := newTestServer(t, false)
	created := s.create("Old Title", "Bob", intPtr(2020))
	path := "/api/v1/books/" + itoa(created.ID)

	t.Run("部分更新保留未提供的字段", func(t *testing.T) {
		w, env := s.do(http.MethodPut, path, `{"title":"New Title"}`)
		require.Equal(t, http.StatusOK, w.Code)
		updated := decodeBook(t, env)
		assert.Equal(t, "New Title", updated.Title)
		assert.Equal(t, "Bob", updated.Author)
		assert.Equal(t, 2020, *updated.Year)
	})

	t.Run("空请求体不修改内容", func(t *testing.T) {
		_, before := s.do(http.MethodGet, path, "")
		w, env := s.do(http.MethodPut, path, `{}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, decodeBook(t, before), decodeBook(t, env))
	})

	t.Run("year为null等同于不传", func(t *testing.T) {
		w, env := s.do(http.MethodPut, path, `{"year":null}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 2020, *decodeBook(t, env).Year)
	})

	t.Run("不存在", func(t *testing.T) {
		w, _ := s.do(http.MethodPut, "/api/v1/books/999", `{"title":"x"}`)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("提供的字段不能为空", func(t *testing.T) {
		w, _ := s.do(http.MethodPut, path, `{"author":""}`)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestDeleteBook(t *testing.T) {
	s := newTestServer(t, false)
	created := s.create("Delete Me", "Eve", intPtr(2019))
	path := "/api/v1/books/" + itoa(created.ID)

	w, env := s.do(http.MethodDelete, path, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"detail":"Book deleted"}`, string(env.Data))

	w, _ = s.do(http.MethodGet, path, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	// 再次删除返回404
	w, env = s.do(http.MethodDelete, path, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Book not found", env.Message)
}

func TestSearchBooks(t *testing.T) {
	s := newTestServer(t, false)
	s.create("War and Peace", "Leo Tolstoy", intPtr(1869))
	s.create("War Games", "Someone Else", intPtr(1983))
	s.create("Anna Karenina", "Leo Tolstoy", intPtr(1878))

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"条件AND组合", "title=War&author=Tolstoy", []string{"War and Peace"}},
		{"不区分大小写", "title=WAR", []string{"War and Peace", "War Games"}},
		{"作者加年份", "author=tolstoy&year=1878", []string{"Anna Karenina"}},
		{"无条件返回全部", "", []string{"War and Peace", "War Games", "Anna Karenina"}},
		{"无结果", "title=nothing", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := s.do(http.MethodGet, "/api/v1/books/search?"+tt.query, "")
			require.Equal(t, http.StatusOK, w.Code)

			titles := []string{}
			for _, b := range decodeBooks(t, env) {
				titles = append(titles, b.Title)
			}
			assert.Equal(t, tt.want, titles)
		})
	}

	w, _ := s.do(http.MethodGet, "/api/v1/books/search?year=abc", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestWriteRoutesRequireTokenWhenAuthEnabled(t *testing.T) {
	s := newTestServer(t, true)

	w, env := s.do(http.MethodPost, "/api/v1/books", `{"title":"T","author":"A"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, apperrors.ErrCodeUnauthorized, env.Code)

	s.token = "garbage"
	w, env = s.do(http.MethodPost, "/api/v1/books", `{"title":"T","author":"A"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, apperrors.ErrCodeInvalidToken, env.Code)

	token, err := s.jwt.GenerateToken("librarian")
	require.NoError(t, err)
	s.token = token.AccessToken
	created := s.create("T", "A", nil)

	// 读接口公开
	s.token = ""
	w, _ = s.do(http.MethodGet, "/api/v1/books/"+itoa(created.ID), "")
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(http.MethodDelete, "/api/v1/books/"+itoa(created.ID), "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOperationalRoutes(t *testing.T) {
	s := newTestServer(t, false)

	w, env := s.do(http.MethodGet, "/ping", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), "pong")
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))

	w, _ = s.do(http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")

	w, env = s.do(http.MethodGet, "/api/v1/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apperrors.ErrCodeNotFound, env.Code)
}

func itoa(id uint) string {
	b, _ := json.Marshal(id)
	return string(b)
}
