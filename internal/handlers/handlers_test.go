package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lisongmechlab/lsml-sub002/internal/apperrors"
	"github.com/lisongmechlab/lsml-sub002/internal/armor"
	"github.com/lisongmechlab/lsml-sub002/internal/autoplace"
	"github.com/lisongmechlab/lsml-sub002/internal/catalog"
	"github.com/lisongmechlab/lsml-sub002/internal/db"
	"github.com/lisongmechlab/lsml-sub002/internal/loadout"
	"github.com/lisongmechlab/lsml-sub002/internal/logging"
	"github.com/lisongmechlab/lsml-sub002/internal/metrics"
	"github.com/lisongmechlab/lsml-sub002/internal/models"
	"github.com/lisongmechlab/lsml-sub002/internal/stats"
)

type memStore struct {
	mu    sync.Mutex
	saved map[uuid.UUID]loadout.Snapshot
}

func (s *memStore) Save(_ context.Context, id uuid.UUID, snap loadout.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved[id] = snap
	return nil
}

func (s *memStore) Load(_ context.Context, id uuid.UUID) (*db.Saved, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.saved[id]
	if !ok {
		return nil, apperrors.New(apperrors.CodeNotFound, "saved loadout not found")
	}
	return &db.Saved{ID: id, Snapshot: snap}, nil
}

func newTestServer(t *testing.T, store SavedStore) *httptest.Server {
	t.Helper()
	cat, err := catalog.Builtin()
	require.NoError(t, err)
	m := metrics.New()

	h := NewMux(Server{
		Loadouts: &LoadoutHandler{
			Catalog:   cat,
			Sessions:  NewSessions(10),
			Placer:    autoplace.NewPlacer(autoplace.WithRecorder(m)),
			Allocator: armor.NewAllocator(m),
			Store:     store,
		},
		Catalog:        &CatalogHandler{Catalog: cat},
		Metrics:        m,
		Logger:         logging.NewTestLogger(),
		AllowedOrigins: []string{"http://localhost:5173"},
	})
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func call(t *testing.T, srv *httptest.Server, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func create(t *testing.T, srv *httptest.Server, chassis string) loadoutResponse {
	t.Helper()
	resp := call(t, srv, http.MethodPost, "/api/loadouts", map[string]any{"chassis_id": chassis})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decodeBody[loadoutResponse](t, resp)
}

func items(snap loadout.Snapshot, loc models.Location) []string {
	for _, ls := range snap.Locations {
		if ls.Location == loc {
			return ls.Items
		}
	}
	return nil
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, nil)
	resp := call(t, srv, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestListChassis(t *testing.T) {
	srv := newTestServer(t, nil)

	all := decodeBody[[]map[string]any](t, call(t, srv, http.MethodGet, "/api/chassis", nil))
	assert.Len(t, all, 3)

	clan := decodeBody[[]map[string]any](t, call(t, srv, http.MethodGet, "/api/chassis?faction=clan", nil))
	require.Len(t, clan, 1)
	assert.Equal(t, "tbr-prime", clan[0]["id"])

	named := decodeBody[[]map[string]any](t, call(t, srv, http.MethodGet, "/api/chassis?q=highlander", nil))
	require.Len(t, named, 1)
	assert.Equal(t, "hgn-733", named[0]["id"])
	assert.EqualValues(t, 558, named[0]["armor_max"])

	resp := call(t, srv, http.MethodGet, "/api/chassis?faction=pirate", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListItems(t *testing.T) {
	srv := newTestServer(t, nil)

	engines := decodeBody[[]map[string]any](t, call(t, srv, http.MethodGet, "/api/items?kind=engine", nil))
	assert.NotEmpty(t, engines)
	for _, e := range engines {
		assert.Equal(t, "engine", e["kind"])
	}

	all := decodeBody[[]map[string]any](t, call(t, srv, http.MethodGet, "/api/items", nil))
	for _, it := range all {
		assert.NotEqual(t, "gyro", it["id"], "internal items are hidden")
	}

	resp := call(t, srv, http.MethodGet, "/api/items?kind=toaster", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateLoadout(t *testing.T) {
	srv := newTestServer(t, nil)

	lo := create(t, srv, "hgn-733")
	assert.Equal(t, "hgn-733", lo.Loadout.Chassis)
	assert.False(t, lo.CanUndo)
	assert.InDelta(t, 9.0, lo.Stats.Mass, 1e-9)

	got := decodeBody[loadoutResponse](t, call(t, srv, http.MethodGet, "/api/loadouts/"+lo.ID.String(), nil))
	assert.Equal(t, lo.ID, got.ID)
	assert.Equal(t, lo.Loadout, got.Loadout)

	t.Run("unknown chassis", func(t *testing.T) {
		resp := call(t, srv, http.MethodPost, "/api/loadouts", map[string]any{"chassis_id": "atlas"})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
	t.Run("empty request", func(t *testing.T) {
		resp := call(t, srv, http.MethodPost, "/api/loadouts", map[string]any{})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
	t.Run("unknown field", func(t *testing.T) {
		resp := call(t, srv, http.MethodPost, "/api/loadouts", map[string]any{"chassis": "hgn-733"})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		body := decodeBody[errorBody](t, resp)
		assert.Equal(t, apperrors.CodeInvalidArgument, body.Error)
	})
	t.Run("from snapshot", func(t *testing.T) {
		snap := lo.Loadout
		snap.Locations[models.Head].Items = []string{"medium-laser"}
		resp := call(t, srv, http.MethodPost, "/api/loadouts", map[string]any{"snapshot": snap})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		restored := decodeBody[loadoutResponse](t, resp)
		assert.Equal(t, []string{"medium-laser"}, items(restored.Loadout, models.Head))
		assert.NotEqual(t, lo.ID, restored.ID)
	})
}

func TestUnknownSession(t *testing.T) {
	srv := newTestServer(t, nil)

	resp := call(t, srv, http.MethodGet, "/api/loadouts/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = call(t, srv, http.MethodGet, "/api/loadouts/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAddItemUndoRedo(t *testing.T) {
	srv := newTestServer(t, nil)
	lo := create(t, srv, "hgn-733")
	base := "/api/loadouts/" + lo.ID.String()

	resp := call(t, srv, http.MethodPost, base+"/items", map[string]any{"item_id": "medium-laser"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	added := decodeBody[loadoutResponse](t, resp)
	require.NotNil(t, added.Placement)
	assert.Equal(t, models.Head, added.Placement.Location)
	assert.Empty(t, added.Placement.Ops)
	assert.Equal(t, []string{"medium-laser"}, items(added.Loadout, models.Head))
	assert.True(t, added.CanUndo)
	assert.Greater(t, added.Revision, lo.Revision)

	resp = call(t, srv, http.MethodPost, base+"/items", map[string]any{"item_id": "ac-10", "location": "RA"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	undone := decodeBody[loadoutResponse](t, call(t, srv, http.MethodPost, base+"/undo", nil))
	assert.Empty(t, items(undone.Loadout, models.RightArm))
	assert.NotEmpty(t, undone.Undone)
	assert.True(t, undone.CanRedo)

	redone := decodeBody[loadoutResponse](t, call(t, srv, http.MethodPost, base+"/redo", nil))
	assert.Equal(t, []string{"ac-10"}, items(redone.Loadout, models.RightArm))

	resp = call(t, srv, http.MethodDelete, base+"/items", map[string]any{"item_id": "ac-10", "location": "RA"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	removed := decodeBody[loadoutResponse](t, resp)
	assert.Empty(t, items(removed.Loadout, models.RightArm))

	for range 3 {
		call(t, srv, http.MethodPost, base+"/undo", nil)
	}
	resp = call(t, srv, http.MethodPost, base+"/undo", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, apperrors.CodeNothingToUndo, decodeBody[errorBody](t, resp).Error)
}

func TestAddItemRejected(t *testing.T) {
	srv := newTestServer(t, nil)
	lo := create(t, srv, "hgn-733")
	base := "/api/loadouts/" + lo.ID.String()

	resp := call(t, srv, http.MethodPost, base+"/items", map[string]any{"item_id": "clan-er-medium-laser"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, apperrors.CodeInfeasibleRequest, decodeBody[errorBody](t, resp).Error)

	resp = call(t, srv, http.MethodPost, base+"/items", map[string]any{"item_id": "clan-er-medium-laser", "location": "HD"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, apperrors.CodeInfeasibleRequest, decodeBody[errorBody](t, resp).Error)

	resp = call(t, srv, http.MethodPost, base+"/items", map[string]any{"item_id": "engine-std-200", "location": "CT"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, apperrors.CodeInfeasibleRequest, decodeBody[errorBody](t, resp).Error)

	resp = call(t, srv, http.MethodPost, base+"/items", map[string]any{"item_id": "gauss-rifle", "location": "HD"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, apperrors.CodeConstraintViolation, decodeBody[errorBody](t, resp).Error)

	resp = call(t, srv, http.MethodPost, base+"/items", map[string]any{"item_id": "does-not-exist"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = call(t, srv, http.MethodDelete, base+"/items", map[string]any{"item_id": "medium-laser"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestArmor(t *testing.T) {
	srv := newTestServer(t, nil)
	lo := create(t, srv, "hgn-733")
	base := "/api/loadouts/" + lo.ID.String()

	resp := call(t, srv, http.MethodPost, base+"/armor", map[string]any{"budget": 200})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	dist := decodeBody[loadoutResponse](t, resp)
	require.NotNil(t, dist.Allocation)
	assert.Equal(t, 192, dist.Allocation.Budget)
	assert.Equal(t, 192, dist.Allocation.Assigned())
	assert.InDelta(t, 192.0, dist.Stats.Value(stats.ArmorTotal), 1e-9)

	resp = call(t, srv, http.MethodPut, base+"/armor/HD", map[string]any{"side": "front", "amount": 10})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	set := decodeBody[loadoutResponse](t, resp)
	head := set.Loadout.Locations[models.Head]
	assert.Equal(t, 10, head.Front)
	assert.True(t, head.FrontManual)

	resp = call(t, srv, http.MethodPut, base+"/armor/XX", map[string]any{"amount": 10})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = call(t, srv, http.MethodPut, base+"/armor/HD", map[string]any{"side": "back", "amount": 1})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = call(t, srv, http.MethodPut, base+"/armor/HD", map[string]any{"amount": 19})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestSetUpgrades(t *testing.T) {
	srv := newTestServer(t, nil)
	lo := create(t, srv, "hgn-733")
	base := "/api/loadouts/" + lo.ID.String()

	resp := call(t, srv, http.MethodPut, base+"/upgrades", map[string]any{"structure": "structure-endo-is", "armor": "armor-ferro-is"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	up := decodeBody[loadoutResponse](t, resp)
	assert.Equal(t, "structure-endo-is", up.Loadout.Upgrades.Structure)
	assert.Equal(t, "armor-ferro-is", up.Loadout.Upgrades.Armor)

	undone := decodeBody[loadoutResponse](t, call(t, srv, http.MethodPost, base+"/undo", nil))
	assert.Equal(t, "structure-std", undone.Loadout.Upgrades.Structure)
	assert.Equal(t, "armor-std", undone.Loadout.Upgrades.Armor)

	resp = call(t, srv, http.MethodPut, base+"/upgrades", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = call(t, srv, http.MethodPut, base+"/upgrades", map[string]any{"structure": "structure-endo-clan"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestStats(t *testing.T) {
	srv := newTestServer(t, nil)
	lo := create(t, srv, "hgn-733")
	base := "/api/loadouts/" + lo.ID.String()

	call(t, srv, http.MethodPost, base+"/items", map[string]any{"item_id": "engine-std-300", "location": "CT"})
	resp := call(t, srv, http.MethodGet, base+"/stats", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	s := decodeBody[map[string]any](t, resp)
	assert.EqualValues(t, 3, s["walk_mp"])
	assert.EqualValues(t, 5, s["run_mp"])
}

func TestSaveWithoutStore(t *testing.T) {
	srv := newTestServer(t, nil)
	lo := create(t, srv, "hgn-733")

	resp := call(t, srv, http.MethodPost, "/api/loadouts/"+lo.ID.String()+"/save", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	resp = call(t, srv, http.MethodGet, "/api/saved/"+lo.ID.String(), nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestSaveAndLoad(t *testing.T) {
	store := &memStore{saved: make(map[uuid.UUID]loadout.Snapshot)}
	srv := newTestServer(t, store)
	lo := create(t, srv, "hgn-733")
	base := "/api/loadouts/" + lo.ID.String()
	call(t, srv, http.MethodPost, base+"/items", map[string]any{"item_id": "medium-laser", "location": "HD"})

	resp := call(t, srv, http.MethodPost, base+"/save", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = call(t, srv, http.MethodGet, "/api/saved/"+lo.ID.String(), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	saved := decodeBody[db.Saved](t, resp)
	assert.Equal(t, lo.ID, saved.ID)
	assert.Equal(t, []string{"medium-laser"}, items(saved.Snapshot, models.Head))

	resp = call(t, srv, http.MethodGet, "/api/saved/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCORS(t *testing.T) {
	srv := newTestServer(t, nil)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/chassis", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))

	req.Header.Set("Origin", "https://elsewhere.example")
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Empty(t, resp2.Header.Get("Access-Control-Allow-Origin"))
}

func TestMetricsExposed(t *testing.T) {
	srv := newTestServer(t, nil)
	call(t, srv, http.MethodGet, "/api/chassis", nil)

	resp := call(t, srv, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var buf bytes.Buffer
	_, err := buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `route="GET /api/chassis"`)
}
