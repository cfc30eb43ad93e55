package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sysu-ecnc-dev/shift-board/backend/internal/config"
	"github.com/sysu-ecnc-dev/shift-board/backend/internal/domain"
	"github.com/sysu-ecnc-dev/shift-board/backend/internal/history"
	"github.com/sysu-ecnc-dev/shift-board/backend/internal/localcache"
	"github.com/sysu-ecnc-dev/shift-board/backend/internal/remote"
	"github.com/sysu-ecnc-dev/shift-board/backend/internal/store"
	"github.com/sysu-ecnc-dev/shift-board/backend/internal/syncer"
)

type testApp struct {
	handler *Handler
	store   *store.Store
	remote  *remote.MemoryStore
	cache   *localcache.MemoryCache
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	cfg := &config.Config{}
	cfg.Environment = "development"
	cfg.JWT.Secret = "测试密钥"
	cfg.JWT.Expiration = 3600
	cfg.InitialAdmin.Username = "admin"
	cfg.InitialAdmin.Password = "admin-pass"
	cfg.Viewer.Username = "viewer"
	cfg.Viewer.Password = "viewer-pass"
	// 防抖窗口拉长，测试期间不触发真实刷新
	cfg.Sync.DebounceMs = 60_000
	cfg.Sync.BatchLimit = 450

	st := store.NewStore()
	cache := localcache.NewMemoryCache()
	rs := remote.NewMemoryStore()
	engine := syncer.NewEngine(cfg, st, cache, rs)
	t.Cleanup(func() { engine.Scheduler().Cancel() })

	hist := history.NewManager(st, engine.SheetsChanged)

	h, err := NewHandler(cfg, st, engine, hist, cache)
	require.NoError(t, err)
	h.RegisterRoutes()

	return &testApp{handler: h, store: st, remote: rs, cache: cache}
}

func (app *testApp) request(t *testing.T, method string, path string, body any, cookie *http.Cookie) (*httptest.ResponseRecorder, Response) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	app.handler.Mux.ServeHTTP(rec, req)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func (app *testApp) login(t *testing.T, username string, password string) *http.Cookie {
	t.Helper()

	rec, resp := app.request(t, http.MethodPost, "/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, nil)
	require.True(t, resp.Success, resp.Message)

	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == "__shift_board_token" {
			return cookie
		}
	}
	t.Fatal("登录响应没有设置 cookie")
	return nil
}

func TestLogin(t *testing.T) {
	app := newTestApp(t)

	t.Run("正确的口令", func(t *testing.T) {
		cookie := app.login(t, "admin", "admin-pass")
		assert.NotEmpty(t, cookie.Value)
	})

	t.Run("错误的口令", func(t *testing.T) {
		_, resp := app.request(t, http.MethodPost, "/auth/login", map[string]string{
			"username": "admin",
			"password": "错误口令",
		}, nil)
		assert.False(t, resp.Success)
	})

	t.Run("未登录访问受保护接口", func(t *testing.T) {
		_, resp := app.request(t, http.MethodGet, "/schedule/", nil, nil)
		assert.False(t, resp.Success)
		assert.Equal(t, "用户未登录", resp.Message)
	})
}

func TestViewerCannotEdit(t *testing.T) {
	app := newTestApp(t)
	cookie := app.login(t, "viewer", "viewer-pass")

	_, resp := app.request(t, http.MethodPost, "/schedule/assignments", map[string]any{
		"entityId":   "e1",
		"date":       "2024-06-03",
		"assignment": map[string]any{"assignmentId": "a1", "type": "shift", "shiftTemplateId": "st1"},
	}, cookie)

	assert.False(t, resp.Success)
	assert.Equal(t, "权限不足", resp.Message)
}

func TestAssignmentLifecycle(t *testing.T) {
	app := newTestApp(t)
	cookie := app.login(t, "admin", "admin-pass")
	key := domain.SheetKey("e1", "2024-06-03")

	// 保存一条排班
	_, resp := app.request(t, http.MethodPost, "/schedule/assignments", map[string]any{
		"entityId":   "e1",
		"date":       "2024-06-03",
		"assignment": map[string]any{"assignmentId": "a1", "type": "shift", "shiftTemplateId": "st1"},
	}, cookie)
	require.True(t, resp.Success, resp.Message)
	require.True(t, app.store.HasSheet(key))

	// 撤销后文档消失
	_, resp = app.request(t, http.MethodPost, "/history/undo", nil, cookie)
	require.True(t, resp.Success, resp.Message)
	assert.False(t, app.store.HasSheet(key))

	// 重做后恢复
	_, resp = app.request(t, http.MethodPost, "/history/redo", nil, cookie)
	require.True(t, resp.Success, resp.Message)
	assert.True(t, app.store.HasSheet(key))

	// 删除这条排班
	_, resp = app.request(t, http.MethodDelete, "/schedule/assignments/e1/2024-06-03/a1", nil, cookie)
	require.True(t, resp.Success, resp.Message)
	assert.False(t, app.store.HasSheet(key))

	// 没有可重做的操作
	_, resp = app.request(t, http.MethodPost, "/history/redo", nil, cookie)
	assert.False(t, resp.Success)
}

func TestAssignmentValidation(t *testing.T) {
	app := newTestApp(t)
	cookie := app.login(t, "admin", "admin-pass")

	t.Run("非法日期", func(t *testing.T) {
		_, resp := app.request(t, http.MethodPost, "/schedule/assignments", map[string]any{
			"entityId":   "e1",
			"date":       "06/03/2024",
			"assignment": map[string]any{"assignmentId": "a1", "type": "shift", "shiftTemplateId": "st1"},
		}, cookie)
		assert.False(t, resp.Success)
	})

	t.Run("删除不存在的记录", func(t *testing.T) {
		_, resp := app.request(t, http.MethodDelete, "/schedule/assignments/e1/2024-06-03/不存在", nil, cookie)
		assert.False(t, resp.Success)
		assert.Equal(t, "排班记录不存在", resp.Message)
	})
}

func TestDragAssignment(t *testing.T) {
	app := newTestApp(t)
	cookie := app.login(t, "admin", "admin-pass")

	sourceKey := domain.SheetKey("e1", "2024-06-03")
	app.store.PutSheet(sourceKey, []domain.Assignment{{ID: "a1", Type: domain.AssignmentShift, ShiftTemplateID: "st1"}})

	_, resp := app.request(t, http.MethodPost, "/schedule/drag", map[string]any{
		"sourceEntityId": "e1",
		"sourceDate":     "2024-06-03",
		"targetEntityId": "e2",
		"targetDate":     "2024-06-04",
		"assignmentId":   "a1",
		"isCopy":         false,
	}, cookie)
	require.True(t, resp.Success, resp.Message)

	// 移动：源文档被删除，目标文档保留同一个 id
	assert.False(t, app.store.HasSheet(sourceKey))
	shifts, ok := app.store.SheetShifts(domain.SheetKey("e2", "2024-06-04"))
	require.True(t, ok)
	require.Len(t, shifts, 1)
	assert.Equal(t, "a1", shifts[0].ID)
}

func TestCollectionEndpoints(t *testing.T) {
	app := newTestApp(t)
	cookie := app.login(t, "admin", "admin-pass")

	t.Run("保存和读取", func(t *testing.T) {
		_, resp := app.request(t, http.MethodPut, "/collections/users/", map[string]any{
			"id":       "u1",
			"fullName": "王伟",
		}, cookie)
		require.True(t, resp.Success, resp.Message)

		_, resp = app.request(t, http.MethodGet, "/collections/users/", nil, cookie)
		require.True(t, resp.Success)
		items, ok := resp.Data.([]any)
		require.True(t, ok)
		require.Len(t, items, 1)
	})

	t.Run("删除后同步移除远程文档", func(t *testing.T) {
		_, resp := app.request(t, http.MethodDelete, "/collections/users/u1", nil, cookie)
		require.True(t, resp.Success, resp.Message)

		items, _ := app.store.Items(domain.CollectionUsers)
		assert.Empty(t, items)
		_, exists := app.remote.Document(domain.CollectionUsers, "u1")
		assert.False(t, exists)
	})

	t.Run("未知集合", func(t *testing.T) {
		_, resp := app.request(t, http.MethodGet, "/collections/不存在/", nil, cookie)
		assert.False(t, resp.Success)
		assert.Equal(t, "集合不存在", resp.Message)
	})
}

func TestSettingsEndpoints(t *testing.T) {
	app := newTestApp(t)
	cookie := app.login(t, "admin", "admin-pass")

	_, resp := app.request(t, http.MethodPut, "/settings/", map[string]any{
		"weekStartsOn": 1,
	}, cookie)
	require.True(t, resp.Success, resp.Message)

	_, resp = app.request(t, http.MethodGet, "/settings/", nil, cookie)
	require.True(t, resp.Success)
	settings, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(1), settings["weekStartsOn"])
}

func TestUIStateEndpoints(t *testing.T) {
	app := newTestApp(t)
	cookie := app.login(t, "viewer", "viewer-pass")

	_, resp := app.request(t, http.MethodGet, "/ui-state/", nil, cookie)
	require.True(t, resp.Success)
	assert.Nil(t, resp.Data)

	_, resp = app.request(t, http.MethodPut, "/ui-state/", map[string]any{
		"currentDate": "2024-06-03",
	}, cookie)
	require.True(t, resp.Success, resp.Message)

	_, resp = app.request(t, http.MethodGet, "/ui-state/", nil, cookie)
	require.True(t, resp.Success)
	state, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "2024-06-03", state["currentDate"])
}
