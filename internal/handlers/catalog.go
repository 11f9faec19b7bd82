package handlers

import (
	"net/http"
	"strings"

	"github.com/lisongmechlab/lsml-sub002/internal/catalog"
	"github.com/lisongmechlab/lsml-sub002/internal/models"
)

// CatalogHandler lists the game data the loadouts are built from.
type CatalogHandler struct {
	Catalog catalog.Catalog
}

type chassisSummary struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Series      string         `json:"series,omitempty"`
	Tonnage     int            `json:"tonnage"`
	Faction     models.Faction `json:"faction"`
	EngineMin   int            `json:"engine_min"`
	EngineMax   int            `json:"engine_max"`
	JumpJetsMax int            `json:"jump_jets_max"`
	Slots       int            `json:"slots"`
	ArmorMax    int            `json:"armor_max"`
}

// ListChassis supports ?faction= and ?q= (case-insensitive name match).
func (h *CatalogHandler) ListChassis(w http.ResponseWriter, r *http.Request) {
	q := strings.ToLower(r.URL.Query().Get("q"))
	faction, ok := factionFilter(w, r)
	if !ok {
		return
	}

	out := []chassisSummary{}
	for _, ch := range h.Catalog.AllChassis() {
		if faction != nil && !ch.Faction.CompatibleWith(*faction) {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(ch.Name), q) {
			continue
		}
		out = append(out, chassisSummary{
			ID:          ch.ID,
			Name:        ch.Name,
			Series:      ch.Series,
			Tonnage:     ch.Tonnage,
			Faction:     ch.Faction,
			EngineMin:   ch.EngineMin,
			EngineMax:   ch.EngineMax,
			JumpJetsMax: ch.JumpJetsMax,
			Slots:       ch.SlotsTotal(),
			ArmorMax:    ch.ArmorMax(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// ListItems supports ?faction= and ?kind=. Internal items are never listed.
func (h *CatalogHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	faction, ok := factionFilter(w, r)
	if !ok {
		return
	}
	var kind *models.ItemKind
	if s := r.URL.Query().Get("kind"); s != "" {
		k, err := models.ParseItemKind(s)
		if err != nil {
			writeError(w, invalid("invalid kind", err))
			return
		}
		kind = &k
	}

	out := []*models.Item{}
	for _, it := range h.Catalog.AllItems() {
		if it.Internal {
			continue
		}
		if faction != nil && !it.Faction.CompatibleWith(*faction) {
			continue
		}
		if kind != nil && it.Kind != *kind {
			continue
		}
		out = append(out, it)
	}
	writeJSON(w, http.StatusOK, out)
}

func factionFilter(w http.ResponseWriter, r *http.Request) (*models.Faction, bool) {
	s := r.URL.Query().Get("faction")
	if s == "" {
		return nil, true
	}
	f, err := models.ParseFaction(s)
	if err != nil {
		writeError(w, invalid("invalid faction", err))
		return nil, false
	}
	return &f, true
}
