package endpoints

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edudisplej/loopplan/internal/draft"
	"github.com/edudisplej/loopplan/internal/http/api"
	"github.com/edudisplej/loopplan/internal/http/api/admin/packets"
	"github.com/edudisplej/loopplan/internal/http/middleware"
	"github.com/edudisplej/loopplan/internal/model"
	"github.com/edudisplej/loopplan/internal/session"
)

type memStore struct {
	mu      sync.Mutex
	groups  map[int]model.Group
	plans   map[int]model.PublishedPlan
	admins  map[int]model.Admin
	nextID  int
	version int
}

func newMemStore() *memStore {
	return &memStore{
		groups: make(map[int]model.Group),
		plans:  make(map[int]model.PublishedPlan),
		admins: make(map[int]model.Admin),
		nextID: 1,
	}
}

func (m *memStore) addGroup(name string, isDefault bool) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.groups[id] = model.Group{ID: id, Name: name, IsDefault: isDefault}
	return id
}

func (m *memStore) GetGroup(_ context.Context, id int) (*model.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groups[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &g, nil
}

func (m *memStore) ListGroups(_ context.Context) ([]model.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Group
	for _, g := range m.groups {
		out = append(out, g)
	}
	return out, nil
}

func (m *memStore) CreateGroup(_ context.Context, name string, isDefault bool) (*model.Group, error) {
	id := m.addGroup(name, isDefault)
	m.mu.Lock()
	defer m.mu.Unlock()
	g := m.groups[id]
	return &g, nil
}

func (m *memStore) RenameGroup(_ context.Context, id int, name string) (*model.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groups[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	g.Name = name
	m.groups[id] = g
	return &g, nil
}

func (m *memStore) DeleteGroup(_ context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groups[id]
	if !ok || g.IsDefault {
		return sql.ErrNoRows
	}
	delete(m.groups, id)
	delete(m.plans, id)
	return nil
}

func (m *memStore) GetPublishedPlan(_ context.Context, groupID int) (*model.PublishedPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.plans[groupID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *memStore) SavePublishedPlan(_ context.Context, groupID int, planJSON string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.version++
	token := "v" + strconv.Itoa(m.version)
	m.plans[groupID] = model.PublishedPlan{GroupID: groupID, PlanJSON: planJSON, PlanVersion: token}
	return token, nil
}

func (m *memStore) GetAdminByEmail(_ context.Context, email string) (*model.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.admins {
		if a.Email == email {
			out := a
			return &out, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memStore) GetAdminByID(_ context.Context, id int) (*model.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.admins[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &a, nil
}

func (m *memStore) CreateAdmin(_ context.Context, email, hashedPassword string, name *string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.admins[id] = model.Admin{ID: id, Email: email, Name: name, HashedPassword: hashedPassword}
	return id, nil
}

// testAdmin injects an authenticated admin without a real token.
func testAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("currentAdmin", &model.Admin{ID: 1, Email: "admin@example.com"})
		c.Next()
	}
}

func testRouter(t *testing.T) (*gin.Engine, *memStore, *session.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := newMemStore()
	sessions := session.NewManager(store, draft.NewMemoryCache(), nil, model.TechnicalItem(0, "Unconfigured"))

	r := gin.New()
	api.MountGroup(r, api.GroupConfig{
		Prefix:     "/api/admin",
		Middleware: []gin.HandlerFunc{testAdmin()},
	},
		GroupModule(store, sessions),
		LoopModule(sessions),
	)
	api.MountGroup(r, api.GroupConfig{Prefix: "/api/admin"},
		AuthModule("test-secret", store),
	)
	return r, store, sessions
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestLoadLoopFreshGroup(t *testing.T) {
	r, store, _ := testRouter(t)
	id := store.addGroup("lobby", false)

	rec := doJSON(t, r, http.MethodGet, "/api/admin/groups/"+strconv.Itoa(id)+"/loop", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	out := decode[packets.LoopResponse](t, rec)
	require.NotNil(t, out.Plan)
	require.Len(t, out.Plan.LoopStyles, 1)
	assert.Equal(t, "DEFAULT", out.Plan.LoopStyles[0].Name)
	require.Len(t, out.Plan.BaseLoop, 1)
	assert.Equal(t, model.ModuleUnconfigured, out.Plan.BaseLoop[0].ModuleKey)
	assert.False(t, out.Dirty)
}

func TestLoadLoopUnknownGroup(t *testing.T) {
	r, _, _ := testRouter(t)
	rec := doJSON(t, r, http.MethodGet, "/api/admin/groups/99/loop", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDefaultGroupEditForbidden(t *testing.T) {
	r, store, _ := testRouter(t)
	id := store.addGroup("default", true)

	rec := doJSON(t, r, http.MethodPost, "/api/admin/groups/"+strconv.Itoa(id)+"/loop/styles",
		packets.CreateStyleRequest{Name: "Evenings"}, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestStyleAndBlockLifecycle(t *testing.T) {
	r, store, _ := testRouter(t)
	id := store.addGroup("lobby", false)
	base := "/api/admin/groups/" + strconv.Itoa(id) + "/loop"

	rec := doJSON(t, r, http.MethodPost, base+"/styles", packets.CreateStyleRequest{Name: "Mornings"}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	style := decode[model.LoopStyle](t, rec)
	assert.Equal(t, "Mornings", style.Name)
	assert.Negative(t, style.ID, "unpublished styles carry temp ids")

	rec = doJSON(t, r, http.MethodPost, base+"/blocks", packets.UpsertBlockRequest{
		BlockType:   "weekly",
		StartTime:   "08:00:00",
		EndTime:     "12:00:00",
		DaysMask:    "1,2,3,4,5",
		LoopStyleID: style.ID,
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	block := decode[model.TimeBlock](t, rec)
	assert.Equal(t, model.BlockWeekly, block.BlockType)

	// Overlapping block without a policy header aborts and echoes the
	// overlapped blocks.
	rec = doJSON(t, r, http.MethodPost, base+"/blocks", packets.UpsertBlockRequest{
		BlockType:   "weekly",
		StartTime:   "10:00:00",
		EndTime:     "14:00:00",
		DaysMask:    "1,2,3,4,5",
		LoopStyleID: style.ID,
	}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "overlapping_blocks")

	// Same edit with trim succeeds.
	rec = doJSON(t, r, http.MethodPost, base+"/blocks", packets.UpsertBlockRequest{
		BlockType:   "weekly",
		StartTime:   "10:00:00",
		EndTime:     "14:00:00",
		DaysMask:    "1,2,3,4,5",
		LoopStyleID: style.ID,
	}, map[string]string{ConflictPolicyHeader: "trim"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, r, http.MethodGet, base, nil, nil)
	out := decode[packets.LoopResponse](t, rec)
	require.Len(t, out.Plan.ScheduleBlocks, 2)
	for _, b := range out.Plan.ScheduleBlocks {
		if b.StartTime == "08:00:00" {
			assert.Equal(t, "10:00:00", b.EndTime, "earlier block is trimmed to the new start")
		}
	}
}

func TestLockedBlockGuard(t *testing.T) {
	r, store, _ := testRouter(t)
	id := store.addGroup("lobby", false)
	base := "/api/admin/groups/" + strconv.Itoa(id) + "/loop"

	style := decode[model.LoopStyle](t, doJSON(t, r, http.MethodPost, base+"/styles",
		packets.CreateStyleRequest{Name: "Fixed"}, nil))

	rec := doJSON(t, r, http.MethodPost, base+"/blocks", packets.UpsertBlockRequest{
		BlockType:   "weekly",
		StartTime:   "08:00:00",
		EndTime:     "12:00:00",
		DaysMask:    "1,2,3,4,5",
		LoopStyleID: style.ID,
		IsLocked:    true,
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	block := decode[model.TimeBlock](t, rec)
	assert.True(t, bool(block.IsLocked), "lock flag round-trips through upsert")

	// Editing or deleting the locked block is refused.
	rec = doJSON(t, r, http.MethodPost, base+"/blocks", packets.UpsertBlockRequest{
		ID:          block.ID,
		BlockType:   "weekly",
		StartTime:   "08:00:00",
		EndTime:     "13:00:00",
		DaysMask:    "1,2,3,4,5",
		LoopStyleID: style.ID,
	}, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())

	rec = doJSON(t, r, http.MethodDelete, base+"/blocks/"+strconv.Itoa(block.ID), nil, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())

	// Overlapping edits cannot trim a locked block away either.
	rec = doJSON(t, r, http.MethodPost, base+"/blocks", packets.UpsertBlockRequest{
		BlockType:   "weekly",
		StartTime:   "10:00:00",
		EndTime:     "14:00:00",
		DaysMask:    "1,2,3,4,5",
		LoopStyleID: style.ID,
	}, map[string]string{ConflictPolicyHeader: "trim"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "overlapping_blocks")

	loop := decode[packets.LoopResponse](t, doJSON(t, r, http.MethodGet, base, nil, nil))
	require.Len(t, loop.Plan.ScheduleBlocks, 1)
	assert.Equal(t, "12:00:00", loop.Plan.ScheduleBlocks[0].EndTime, "locked block is untouched")
}

func TestInvalidConflictPolicyHeader(t *testing.T) {
	r, store, _ := testRouter(t)
	id := store.addGroup("lobby", false)

	rec := doJSON(t, r, http.MethodPost, "/api/admin/groups/"+strconv.Itoa(id)+"/loop/blocks",
		packets.UpsertBlockRequest{
			BlockType:   "weekly",
			StartTime:   "08:00:00",
			EndTime:     "09:00:00",
			DaysMask:    "1",
			LoopStyleID: -2,
		}, map[string]string{ConflictPolicyHeader: "merge"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPublishFlow(t *testing.T) {
	r, store, _ := testRouter(t)
	id := store.addGroup("lobby", false)
	base := "/api/admin/groups/" + strconv.Itoa(id) + "/loop"

	// Publishing a plan with no real content is rejected.
	rec := doJSON(t, r, http.MethodPost, base+"/publish", nil, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	loop := decode[packets.LoopResponse](t, doJSON(t, r, http.MethodGet, base, nil, nil))
	styleID := loop.Plan.DefaultLoopStyleID

	rec = doJSON(t, r, http.MethodPut, base+"/styles/"+strconv.Itoa(styleID)+"/items",
		packets.ReplaceItemsRequest{Items: []model.ContentItem{
			{ModuleID: 1, ModuleKey: model.ModuleClock, DurationSeconds: 10},
		}}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decode[packets.LoopResponse](t, rec).Dirty)

	rec = doJSON(t, r, http.MethodPost, base+"/publish", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	published := decode[packets.PublishResponse](t, rec)
	assert.True(t, published.Published)
	assert.Equal(t, "v1", published.PlanVersion)

	stored, err := store.GetPublishedPlan(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "v1", stored.PlanVersion)

	// Unchanged republish is a no-op.
	rec = doJSON(t, r, http.MethodPost, base+"/publish", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[packets.PublishResponse](t, rec).Published)
}

func TestScopeQuery(t *testing.T) {
	r, store, _ := testRouter(t)
	id := store.addGroup("lobby", false)
	base := "/api/admin/groups/" + strconv.Itoa(id) + "/loop"

	style := decode[model.LoopStyle](t, doJSON(t, r, http.MethodPost, base+"/styles",
		packets.CreateStyleRequest{Name: "Mornings"}, nil))

	rec := doJSON(t, r, http.MethodPost, base+"/blocks", packets.UpsertBlockRequest{
		BlockType:   "weekly",
		StartTime:   "08:00:00",
		EndTime:     "12:00:00",
		DaysMask:    "1,2,3,4,5,6,7",
		LoopStyleID: style.ID,
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	block := decode[model.TimeBlock](t, rec)

	// 2024-06-10 is a Monday.
	rec = doJSON(t, r, http.MethodGet, base+"/scope?at=2024-06-10T09:00:00Z", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	scoped := decode[packets.ScopeResponse](t, rec)
	assert.Equal(t, model.ScopeID(block.ID), scoped.Scope)

	rec = doJSON(t, r, http.MethodGet, base+"/scope?at=2024-06-10T13:00:00Z", nil, nil)
	scoped = decode[packets.ScopeResponse](t, rec)
	assert.Equal(t, model.ScopeBase, scoped.Scope)

	rec = doJSON(t, r, http.MethodGet, base+"/scope?at=yesterday", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDiscardDraft(t *testing.T) {
	r, store, _ := testRouter(t)
	id := store.addGroup("lobby", false)
	base := "/api/admin/groups/" + strconv.Itoa(id) + "/loop"

	loop := decode[packets.LoopResponse](t, doJSON(t, r, http.MethodGet, base, nil, nil))
	styleID := loop.Plan.DefaultLoopStyleID
	doJSON(t, r, http.MethodPut, base+"/styles/"+strconv.Itoa(styleID)+"/items",
		packets.ReplaceItemsRequest{Items: []model.ContentItem{
			{ModuleID: 1, ModuleKey: model.ModuleClock, DurationSeconds: 10},
		}}, nil)
	doJSON(t, r, http.MethodPost, base+"/publish", nil, nil)

	rec := doJSON(t, r, http.MethodPost, base+"/styles", packets.CreateStyleRequest{Name: "Scratch"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, r, http.MethodDelete, base+"/draft", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decode[packets.LoopResponse](t, rec)
	assert.False(t, out.Dirty)
	assert.Len(t, out.Plan.LoopStyles, 1, "scratch style discarded")
}

func TestGroupCRUD(t *testing.T) {
	r, _, _ := testRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/api/admin/groups", packets.CreateGroupRequest{Name: "lobby"}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	created := decode[packets.GroupResponse](t, rec)
	assert.Equal(t, "lobby", created.Name)

	rec = doJSON(t, r, http.MethodPut, "/api/admin/groups/"+strconv.Itoa(created.ID),
		packets.RenameGroupRequest{Name: "atrium"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "atrium", decode[packets.GroupResponse](t, rec).Name)

	rec = doJSON(t, r, http.MethodGet, "/api/admin/groups", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, r, http.MethodDelete, "/api/admin/groups/"+strconv.Itoa(created.ID), nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/api/admin/groups/"+strconv.Itoa(created.ID), nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLogin(t *testing.T) {
	r, store, _ := testRouter(t)
	hashed, err := middleware.HashPassword("hunter2")
	require.NoError(t, err)
	_, err = store.CreateAdmin(context.Background(), "admin@example.com", hashed, nil)
	require.NoError(t, err)

	rec := doJSON(t, r, http.MethodPost, "/api/admin/auth/login",
		packets.LoginRequest{Email: "admin@example.com", Password: "hunter2"}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "token")

	rec = doJSON(t, r, http.MethodPost, "/api/admin/auth/login",
		packets.LoginRequest{Email: "admin@example.com", Password: "wrong"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
