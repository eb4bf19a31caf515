package users

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backend/internal/persona"
)

func newTestRouter(t *testing.T) (*gin.Engine, *persona.UserStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := persona.NewUserStore(t.TempDir())
	handler := NewHandler(store)

	router := gin.New()
	group := router.Group("/users")
	group.GET("", handler.List)
	group.POST("", handler.Create)
	group.GET("/active", handler.GetActive)
	group.PUT("/active", handler.SetActive)
	group.GET("/:name", handler.Get)
	group.PUT("/:name", handler.Save)
	group.DELETE("/:name", handler.Delete)
	return router, store
}

func doJSON(router *gin.Engine, method, path string, payload interface{}) *httptest.ResponseRecorder {
	var body *bytes.Reader
	if payload != nil {
		encoded, _ := json.Marshal(payload)
		body = bytes.NewReader(encoded)
	} else {
		body = bytes.NewReader(nil)
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestUserEndpoints(t *testing.T) {
	t.Run("创建后读回", func(t *testing.T) {
		router, _ := newTestRouter(t)

		w := doJSON(router, "POST", "/users", persona.User{Name: "alex", DisplayName: "Alex", Bio: "Likes hiking."})
		require.Equal(t, http.StatusCreated, w.Code)

		w = doJSON(router, "GET", "/users/alex", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var user persona.User
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &user))
		assert.Equal(t, "Alex", user.DisplayName)
		assert.Equal(t, "Likes hiking.", user.Bio)
	})

	t.Run("重复创建返回 409", func(t *testing.T) {
		router, _ := newTestRouter(t)

		require.Equal(t, http.StatusCreated, doJSON(router, "POST", "/users", persona.User{Name: "alex"}).Code)
		assert.Equal(t, http.StatusConflict, doJSON(router, "POST", "/users", persona.User{Name: "alex"}).Code)
	})

	t.Run("空用户名返回 400", func(t *testing.T) {
		router, _ := newTestRouter(t)
		assert.Equal(t, http.StatusBadRequest, doJSON(router, "POST", "/users", persona.User{}).Code)
	})

	t.Run("读取不存在的用户返回 404", func(t *testing.T) {
		router, _ := newTestRouter(t)
		assert.Equal(t, http.StatusNotFound, doJSON(router, "GET", "/users/nobody", nil).Code)
	})

	t.Run("删除后不可读", func(t *testing.T) {
		router, _ := newTestRouter(t)

		require.Equal(t, http.StatusCreated, doJSON(router, "POST", "/users", persona.User{Name: "alex"}).Code)
		require.Equal(t, http.StatusOK, doJSON(router, "DELETE", "/users/alex", nil).Code)
		assert.Equal(t, http.StatusNotFound, doJSON(router, "GET", "/users/alex", nil).Code)
	})
}

func TestActiveUserEndpoints(t *testing.T) {
	t.Run("切换激活用户", func(t *testing.T) {
		router, store := newTestRouter(t)

		require.Equal(t, http.StatusCreated, doJSON(router, "POST", "/users", persona.User{Name: "alex"}).Code)
		require.Equal(t, http.StatusCreated, doJSON(router, "POST", "/users", persona.User{Name: "zoe"}).Code)

		require.Equal(t, http.StatusOK, doJSON(router, "PUT", "/users/active", gin.H{"name": "zoe"}).Code)

		w := doJSON(router, "GET", "/users/active", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Data struct {
				Active string `json:"active"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "zoe", resp.Data.Active)

		alex, err := store.Load("alex")
		require.NoError(t, err)
		assert.False(t, alex.Active)
	})

	t.Run("激活不存在的用户返回 404", func(t *testing.T) {
		router, _ := newTestRouter(t)
		require.Equal(t, http.StatusCreated, doJSON(router, "POST", "/users", persona.User{Name: "alex"}).Code)
		assert.Equal(t, http.StatusNotFound, doJSON(router, "PUT", "/users/active", gin.H{"name": "nobody"}).Code)
	})
}
