package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/xiebiao/bookcatalog/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func perform(handler gin.HandlerFunc) (*httptest.ResponseRecorder, Response) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	handler(c)

	var resp Response
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func TestSuccessAndCreated(t *testing.T) {
	w, resp := perform(func(c *gin.Context) { Success(c, gin.H{"id": 1}) })
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, resp.Code)
	assert.Equal(t, "success", resp.Message)

	w, _ = perform(func(c *gin.Context) { Created(c, gin.H{"id": 1}) })
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   int
	}{
		{"参数错误", apperrors.ErrInvalidParams.WithMessage("title: 不能为空"), http.StatusUnprocessableEntity, apperrors.ErrCodeInvalidParams},
		{"不存在", apperrors.New(apperrors.ErrCodeBookNotFound, "Book not found"), http.StatusNotFound, apperrors.ErrCodeBookNotFound},
		{"冲突", apperrors.New(apperrors.ErrCodeBookDuplicate, "dup"), http.StatusConflict, apperrors.ErrCodeBookDuplicate},
		{"存储故障", apperrors.WrapDB(errors.New("dial tcp: refused"), "查询图书失败"), http.StatusInternalServerError, apperrors.ErrCodeDatabaseError},
		{"未知错误", errors.New("boom"), http.StatusInternalServerError, apperrors.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, resp := perform(func(c *gin.Context) { Error(c, tt.err) })
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.NotContains(t, w.Body.String(), "refused")
			assert.NotContains(t, w.Body.String(), `"data"`)
		})
	}
}
