package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/lisongmechlab/lsml-sub002/internal/apperrors"
	"github.com/lisongmechlab/lsml-sub002/internal/armor"
	"github.com/lisongmechlab/lsml-sub002/internal/autoplace"
	"github.com/lisongmechlab/lsml-sub002/internal/catalog"
	"github.com/lisongmechlab/lsml-sub002/internal/db"
	"github.com/lisongmechlab/lsml-sub002/internal/events"
	"github.com/lisongmechlab/lsml-sub002/internal/loadout"
	"github.com/lisongmechlab/lsml-sub002/internal/logging"
	"github.com/lisongmechlab/lsml-sub002/internal/models"
	"github.com/lisongmechlab/lsml-sub002/internal/rules"
	"github.com/lisongmechlab/lsml-sub002/internal/stats"
)

// SavedStore persists snapshots. *db.LoadoutStore implements it.
type SavedStore interface {
	Save(ctx context.Context, id uuid.UUID, snap loadout.Snapshot) error
	Load(ctx context.Context, id uuid.UUID) (*db.Saved, error)
}

// LoadoutHandler serves the loadout editing API.
type LoadoutHandler struct {
	Catalog   catalog.Catalog
	Sessions  *Sessions
	Placer    *autoplace.Placer
	Allocator *armor.Allocator
	// Store is nil when persistence is not configured.
	Store SavedStore
}

type loadoutResponse struct {
	ID         uuid.UUID         `json:"id"`
	Revision   int               `json:"revision"`
	CanUndo    bool              `json:"can_undo"`
	CanRedo    bool              `json:"can_redo"`
	Loadout    loadout.Snapshot  `json:"loadout"`
	Stats      stats.Summary     `json:"stats"`
	Placement  *placement        `json:"placement,omitempty"`
	Allocation *armor.Allocation `json:"allocation,omitempty"`
	Undone     string            `json:"undone,omitempty"`
}

type placement struct {
	Location models.Location `json:"location"`
	Ops      []string        `json:"ops,omitempty"`
	Nodes    int             `json:"nodes"`
}

// respond must be called with sess.mu held.
func respond(w http.ResponseWriter, status int, sess *Session, extra func(*loadoutResponse)) {
	resp := loadoutResponse{
		ID:       sess.ID,
		Revision: sess.revision,
		CanUndo:  sess.stack.CanUndo(),
		CanRedo:  sess.stack.CanRedo(),
		Loadout:  sess.loadout.Snapshot(),
		Stats:    stats.Summarize(sess.loadout),
	}
	if extra != nil {
		extra(&resp)
	}
	writeJSON(w, status, resp)
}

// session resolves the {id} path value and locks the session. The returned
// function unlocks it.
func (h *LoadoutHandler) session(r *http.Request) (*Session, func(), error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return nil, nil, invalid("invalid loadout id", err)
	}
	sess, err := h.Sessions.Get(id)
	if err != nil {
		return nil, nil, err
	}
	sess.mu.Lock()
	return sess, sess.mu.Unlock, nil
}

type createRequest struct {
	ChassisID string            `json:"chassis_id"`
	Snapshot  *loadout.Snapshot `json:"snapshot"`
}

// Create starts a session from an empty chassis or from a snapshot.
func (h *LoadoutHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	sess, err := h.Sessions.Create(func(pub events.Publisher) (*loadout.Loadout, error) {
		if req.Snapshot != nil {
			return loadout.Restore(h.Catalog, *req.Snapshot, pub)
		}
		if req.ChassisID == "" {
			return nil, apperrors.New(apperrors.CodeInvalidArgument, "chassis_id or snapshot is required")
		}
		ch, err := h.Catalog.Chassis(req.ChassisID)
		if err != nil {
			return nil, err
		}
		return loadout.New(ch, h.Catalog.Upgrades().Defaults(ch.Faction), pub), nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	logr.FromContextOrDiscard(r.Context()).V(logging.DEBUG).Info("Session created", "id", sess.ID)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	respond(w, http.StatusCreated, sess, nil)
}

func (h *LoadoutHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess, unlock, err := h.session(r)
	if err != nil {
		writeError(w, err)
		return
	}
	defer unlock()
	respond(w, http.StatusOK, sess, nil)
}

func (h *LoadoutHandler) Stats(w http.ResponseWriter, r *http.Request) {
	sess, unlock, err := h.session(r)
	if err != nil {
		writeError(w, err)
		return
	}
	defer unlock()
	writeJSON(w, http.StatusOK, stats.Summarize(sess.loadout))
}

type itemRequest struct {
	ItemID   string           `json:"item_id"`
	Location *models.Location `json:"location"`
}

// AddItem equips an item. Without a location the item goes to the first
// location that takes it, relocating other items when needed.
func (h *LoadoutHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	item, err := h.Catalog.Item(req.ItemID)
	if err != nil {
		writeError(w, err)
		return
	}
	sess, unlock, err := h.session(r)
	if err != nil {
		writeError(w, err)
		return
	}
	defer unlock()

	if req.Location != nil {
		if r := rules.Infeasible(sess.loadout, item); r != rules.Success {
			writeError(w, apperrors.WithMetadata(apperrors.CodeInfeasibleRequest,
				fmt.Sprintf("%s can never be equipped on %s: %s", item.Name, sess.loadout.Chassis().Name, r),
				map[string]string{"item": item.ID, "chassis": sess.loadout.Chassis().ID, "reason": r.String()}))
			return
		}
		if err := sess.stack.Do(loadout.NewAddItem(sess.loadout, *req.Location, item)); err != nil {
			writeError(w, err)
			return
		}
		respond(w, http.StatusOK, sess, func(resp *loadoutResponse) {
			resp.Placement = &placement{Location: *req.Location}
		})
		return
	}

	res, err := h.Placer.Place(r.Context(), sess.loadout, item)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := sess.stack.Do(res.Command); err != nil {
		writeError(w, err)
		return
	}
	p := &placement{Location: res.Location, Nodes: res.Nodes}
	for _, op := range res.Ops {
		p.Ops = append(p.Ops, op.String())
	}
	respond(w, http.StatusOK, sess, func(resp *loadoutResponse) { resp.Placement = p })
}

func (h *LoadoutHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Location == nil {
		writeError(w, apperrors.New(apperrors.CodeInvalidArgument, "location is required"))
		return
	}
	item, err := h.Catalog.Item(req.ItemID)
	if err != nil {
		writeError(w, err)
		return
	}
	sess, unlock, err := h.session(r)
	if err != nil {
		writeError(w, err)
		return
	}
	defer unlock()

	if err := sess.stack.Do(loadout.NewRemoveItem(sess.loadout, *req.Location, item)); err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, sess, nil)
}

type distributeRequest struct {
	Budget int      `json:"budget"`
	Ratio  *float64 `json:"ratio"`
}

// DistributeArmor spreads an armor budget over the unpinned locations.
// The ratio is front to back and defaults to 1.
func (h *LoadoutHandler) DistributeArmor(w http.ResponseWriter, r *http.Request) {
	req := distributeRequest{}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	ratio := 1.0
	if req.Ratio != nil {
		ratio = *req.Ratio
	}
	sess, unlock, err := h.session(r)
	if err != nil {
		writeError(w, err)
		return
	}
	defer unlock()

	alloc, cmd := h.Allocator.Distribute(r.Context(), sess.loadout, req.Budget, ratio)
	if err := sess.stack.Do(cmd); err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, sess, func(resp *loadoutResponse) { resp.Allocation = &alloc })
}

type armorRequest struct {
	Side   string `json:"side"`
	Amount int    `json:"amount"`
	Manual *bool  `json:"manual"`
}

// SetArmor sets one side of a location. Edits are manual unless the request
// says otherwise.
func (h *LoadoutHandler) SetArmor(w http.ResponseWriter, r *http.Request) {
	loc, err := models.ParseLocation(r.PathValue("location"))
	if err != nil {
		writeError(w, invalid("invalid location", err))
		return
	}
	var req armorRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	side, err := models.ParseArmorSide(req.Side)
	if err != nil {
		writeError(w, invalid("invalid side", err))
		return
	}
	manual := true
	if req.Manual != nil {
		manual = *req.Manual
	}
	sess, unlock, err := h.session(r)
	if err != nil {
		writeError(w, err)
		return
	}
	defer unlock()

	if err := sess.stack.Do(loadout.NewSetArmor(sess.loadout, loc, side, req.Amount, manual)); err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, sess, nil)
}

type upgradesRequest struct {
	Structure string `json:"structure"`
	Armor     string `json:"armor"`
	HeatSinks string `json:"heat_sinks"`
	Guidance  string `json:"guidance"`
}

// SetUpgrades changes any subset of the upgrades as one undo step.
func (h *LoadoutHandler) SetUpgrades(w http.ResponseWriter, r *http.Request) {
	var req upgradesRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	sess, unlock, err := h.session(r)
	if err != nil {
		writeError(w, err)
		return
	}
	defer unlock()

	cmds, err := h.upgradeCommands(sess.loadout, req)
	if err != nil {
		writeError(w, err)
		return
	}
	if len(cmds) == 0 {
		writeError(w, apperrors.New(apperrors.CodeInvalidArgument, "no upgrade given"))
		return
	}
	if err := sess.stack.Do(loadout.NewComposite(sess.loadout, "change upgrades", cmds...)); err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, sess, nil)
}

func (h *LoadoutHandler) upgradeCommands(lo *loadout.Loadout, req upgradesRequest) ([]loadout.Command, error) {
	set := h.Catalog.Upgrades()
	var cmds []loadout.Command
	if req.Structure != "" {
		u, err := set.Structure(req.Structure)
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, loadout.NewSetStructure(lo, u))
	}
	if req.Armor != "" {
		u, err := set.Armor(req.Armor)
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, loadout.NewSetArmorType(lo, u))
	}
	if req.HeatSinks != "" {
		u, err := set.HeatSink(req.HeatSinks)
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, loadout.NewSetHeatSinks(lo, u))
	}
	if req.Guidance != "" {
		u, err := set.Guidance(req.Guidance)
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, loadout.NewSetGuidance(lo, u))
	}
	return cmds, nil
}

func (h *LoadoutHandler) Undo(w http.ResponseWriter, r *http.Request) {
	sess, unlock, err := h.session(r)
	if err != nil {
		writeError(w, err)
		return
	}
	defer unlock()

	cmd, err := sess.stack.Undo()
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, sess, func(resp *loadoutResponse) { resp.Undone = cmd.Describe() })
}

func (h *LoadoutHandler) Redo(w http.ResponseWriter, r *http.Request) {
	sess, unlock, err := h.session(r)
	if err != nil {
		writeError(w, err)
		return
	}
	defer unlock()

	if _, err := sess.stack.Redo(); err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, sess, nil)
}

// Save stores the session's loadout under the session id.
func (h *LoadoutHandler) Save(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		writeError(w, apperrors.New(apperrors.CodeUnavailable, "loadout persistence is not configured"))
		return
	}
	sess, unlock, err := h.session(r)
	if err != nil {
		writeError(w, err)
		return
	}
	snap := sess.loadout.Snapshot()
	unlock()

	if err := h.Store.Save(r.Context(), sess.ID, snap); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": sess.ID})
}

func (h *LoadoutHandler) GetSaved(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		writeError(w, apperrors.New(apperrors.CodeUnavailable, "loadout persistence is not configured"))
		return
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, invalid("invalid saved loadout id", err))
		return
	}
	saved, err := h.Store.Load(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}
