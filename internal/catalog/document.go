package catalog

import (
	"fmt"

	"github.com/lisongmechlab/lsml-sub002/internal/models"
)

// Document is the serialized form of a catalog. The embedded builtin catalog
// and the SQLite catalog store both decode into it.
type Document struct {
	Items    []ItemDoc    `json:"items" yaml:"items"`
	Chassis  []ChassisDoc `json:"chassis" yaml:"chassis"`
	Upgrades []UpgradeDoc `json:"upgrades" yaml:"upgrades"`
}

type ItemDoc struct {
	ID        string       `json:"id" yaml:"id"`
	Name      string       `json:"name" yaml:"name"`
	Kind      string       `json:"kind,omitempty" yaml:"kind,omitempty"`
	Mass      float64      `json:"mass" yaml:"mass"`
	Slots     int          `json:"slots" yaml:"slots"`
	Hardpoint string       `json:"hardpoint,omitempty" yaml:"hardpoint,omitempty"`
	Faction   string       `json:"faction,omitempty" yaml:"faction,omitempty"`
	Internal  bool         `json:"internal,omitempty" yaml:"internal,omitempty"`
	Case      bool         `json:"case,omitempty" yaml:"case,omitempty"`
	Engine    *EngineDoc   `json:"engine,omitempty" yaml:"engine,omitempty"`
	JumpJet   *JumpJetDoc  `json:"jump_jet,omitempty" yaml:"jump_jet,omitempty"`
	Weapon    *WeaponDoc   `json:"weapon,omitempty" yaml:"weapon,omitempty"`
	HeatSink  *HeatSinkDoc `json:"heat_sink,omitempty" yaml:"heat_sink,omitempty"`
}

type EngineDoc struct {
	Rating int    `json:"rating" yaml:"rating"`
	Type   string `json:"type,omitempty" yaml:"type,omitempty"`
	// Side is the item id of the side torso filler.
	Side string `json:"side,omitempty" yaml:"side,omitempty"`
}

type JumpJetDoc struct {
	MinTons int `json:"min_tons" yaml:"min_tons"`
	MaxTons int `json:"max_tons" yaml:"max_tons"`
}

type WeaponDoc struct {
	Damage float64 `json:"damage" yaml:"damage"`
	Heat   float64 `json:"heat" yaml:"heat"`
	Tubes  int     `json:"tubes,omitempty" yaml:"tubes,omitempty"`
	Guided bool    `json:"guided,omitempty" yaml:"guided,omitempty"`
}

type HeatSinkDoc struct {
	Dissipation float64 `json:"dissipation" yaml:"dissipation"`
	Capacity    float64 `json:"capacity" yaml:"capacity"`
}

type ChassisDoc struct {
	ID          string         `json:"id" yaml:"id"`
	Name        string         `json:"name" yaml:"name"`
	Series      string         `json:"series,omitempty" yaml:"series,omitempty"`
	Tonnage     int            `json:"tonnage" yaml:"tonnage"`
	Faction     string         `json:"faction,omitempty" yaml:"faction,omitempty"`
	EngineMin   int            `json:"engine_min" yaml:"engine_min"`
	EngineMax   int            `json:"engine_max" yaml:"engine_max"`
	JumpJetsMax int            `json:"jump_jets_max,omitempty" yaml:"jump_jets_max,omitempty"`
	Components  []ComponentDoc `json:"components" yaml:"components"`
}

type ComponentDoc struct {
	Location      string         `json:"location" yaml:"location"`
	Slots         int            `json:"slots" yaml:"slots"`
	HitPoints     int            `json:"hit_points" yaml:"hit_points"`
	Fixed         []string       `json:"fixed,omitempty" yaml:"fixed,omitempty"`
	Hardpoints    []HardpointDoc `json:"hardpoints,omitempty" yaml:"hardpoints,omitempty"`
	ReservedSlots int            `json:"reserved_slots,omitempty" yaml:"reserved_slots,omitempty"`
}

type HardpointDoc struct {
	Type  string `json:"type" yaml:"type"`
	Tubes int    `json:"tubes,omitempty" yaml:"tubes,omitempty"`
	// Count repeats the hardpoint; zero means one.
	Count int `json:"count,omitempty" yaml:"count,omitempty"`
}

// Upgrade categories.
const (
	CategoryStructure = "structure"
	CategoryArmor     = "armor"
	CategoryHeatSink  = "heat_sink"
	CategoryGuidance  = "guidance"
)

type UpgradeDoc struct {
	ID           string  `json:"id" yaml:"id"`
	Name         string  `json:"name" yaml:"name"`
	Category     string  `json:"category" yaml:"category"`
	Faction      string  `json:"faction,omitempty" yaml:"faction,omitempty"`
	MassFactor   float64 `json:"mass_factor,omitempty" yaml:"mass_factor,omitempty"`
	DynamicSlots int     `json:"dynamic_slots,omitempty" yaml:"dynamic_slots,omitempty"`
	PointsPerTon float64 `json:"points_per_ton,omitempty" yaml:"points_per_ton,omitempty"`
	// HeatSink is the item id substituted by a heat sink upgrade.
	HeatSink   string  `json:"heat_sink,omitempty" yaml:"heat_sink,omitempty"`
	ExtraSlots int     `json:"extra_slots,omitempty" yaml:"extra_slots,omitempty"`
	ExtraMass  float64 `json:"extra_mass,omitempty" yaml:"extra_mass,omitempty"`
}

// resolve turns the string-typed document into linked model values.
func resolve(doc *Document) (*memory, error) {
	m := &memory{
		items:    make(map[string]*models.Item, len(doc.Items)),
		chassis:  make(map[string]*models.Chassis, len(doc.Chassis)),
		upgrades: &UpgradeSet{},
	}

	// Items first without engine side references, then link sides.
	for i := range doc.Items {
		d := &doc.Items[i]
		if d.ID == "" {
			return nil, fmt.Errorf("item %d: missing id", i)
		}
		if _, dup := m.items[d.ID]; dup {
			return nil, fmt.Errorf("item %s: duplicate id", d.ID)
		}
		it, err := resolveItem(d)
		if err != nil {
			return nil, fmt.Errorf("item %s: %w", d.ID, err)
		}
		m.items[d.ID] = it
		m.itemOrder = append(m.itemOrder, it)
	}
	for i := range doc.Items {
		d := &doc.Items[i]
		if d.Engine == nil || d.Engine.Side == "" {
			continue
		}
		side, ok := m.items[d.Engine.Side]
		if !ok {
			return nil, fmt.Errorf("item %s: unknown engine side item %q", d.ID, d.Engine.Side)
		}
		if !side.Internal {
			return nil, fmt.Errorf("item %s: engine side item %q must be internal", d.ID, side.ID)
		}
		m.items[d.ID].Engine.Side = side
	}

	for i := range doc.Chassis {
		d := &doc.Chassis[i]
		if _, dup := m.chassis[d.ID]; dup {
			return nil, fmt.Errorf("chassis %s: duplicate id", d.ID)
		}
		ch, err := resolveChassis(d, m.items)
		if err != nil {
			return nil, fmt.Errorf("chassis %s: %w", d.ID, err)
		}
		m.chassis[d.ID] = ch
		m.chassisOrder = append(m.chassisOrder, ch)
	}

	for i := range doc.Upgrades {
		if err := m.upgrades.add(&doc.Upgrades[i], m.items); err != nil {
			return nil, fmt.Errorf("upgrade %s: %w", doc.Upgrades[i].ID, err)
		}
	}
	if err := m.upgrades.complete(); err != nil {
		return nil, err
	}
	return m, nil
}

func resolveItem(d *ItemDoc) (*models.Item, error) {
	kind, err := models.ParseItemKind(orDefault(d.Kind, "generic"))
	if err != nil {
		return nil, err
	}
	hp, err := models.ParseHardpointType(d.Hardpoint)
	if err != nil {
		return nil, err
	}
	faction, err := models.ParseFaction(d.Faction)
	if err != nil {
		return nil, err
	}
	if d.Mass < 0 || d.Slots < 0 {
		return nil, fmt.Errorf("negative mass or slots")
	}
	it := &models.Item{
		ID:        d.ID,
		Name:      orDefault(d.Name, d.ID),
		Kind:      kind,
		Mass:      d.Mass,
		Slots:     d.Slots,
		Hardpoint: hp,
		Faction:   faction,
		Internal:  d.Internal,
		Case:      d.Case,
	}
	switch kind {
	case models.KindEngine:
		if d.Engine == nil {
			return nil, fmt.Errorf("engine item without engine block")
		}
		et, err := models.ParseEngineType(d.Engine.Type)
		if err != nil {
			return nil, err
		}
		it.Engine = &models.EngineSpec{Rating: d.Engine.Rating, Type: et}
	case models.KindJumpJet:
		if d.JumpJet == nil {
			return nil, fmt.Errorf("jump jet item without jump_jet block")
		}
		it.JumpJet = &models.JumpJetSpec{MinTons: d.JumpJet.MinTons, MaxTons: d.JumpJet.MaxTons}
	case models.KindHeatSink:
		if d.HeatSink != nil {
			it.HeatSink = &models.HeatSinkSpec{Dissipation: d.HeatSink.Dissipation, Capacity: d.HeatSink.Capacity}
		}
	case models.KindWeapon:
		if d.Weapon != nil {
			it.Weapon = &models.WeaponSpec{
				Damage: d.Weapon.Damage,
				Heat:   d.Weapon.Heat,
				Tubes:  d.Weapon.Tubes,
				Guided: d.Weapon.Guided,
			}
		}
	}
	return it, nil
}

func resolveChassis(d *ChassisDoc, items map[string]*models.Item) (*models.Chassis, error) {
	faction, err := models.ParseFaction(d.Faction)
	if err != nil {
		return nil, err
	}
	if d.Tonnage <= 0 {
		return nil, fmt.Errorf("tonnage must be positive")
	}
	ch := &models.Chassis{
		ID:          d.ID,
		Name:        orDefault(d.Name, d.ID),
		Series:      d.Series,
		Tonnage:     d.Tonnage,
		Faction:     faction,
		EngineMin:   d.EngineMin,
		EngineMax:   d.EngineMax,
		JumpJetsMax: d.JumpJetsMax,
	}
	var seen [models.LocationCount]bool
	for _, cd := range d.Components {
		loc, err := models.ParseLocation(cd.Location)
		if err != nil {
			return nil, err
		}
		if seen[loc] {
			return nil, fmt.Errorf("location %s listed twice", loc)
		}
		seen[loc] = true

		comp := models.Component{
			Location:      loc,
			Slots:         cd.Slots,
			HitPoints:     cd.HitPoints,
			ReservedSlots: cd.ReservedSlots,
		}
		for _, id := range cd.Fixed {
			it, ok := items[id]
			if !ok {
				return nil, fmt.Errorf("%s: unknown fixed item %q", loc, id)
			}
			comp.Fixed = append(comp.Fixed, it)
		}
		for _, hd := range cd.Hardpoints {
			t, err := models.ParseHardpointType(hd.Type)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", loc, err)
			}
			for range max(hd.Count, 1) {
				comp.Hardpoints = append(comp.Hardpoints, models.Hardpoint{Type: t, Tubes: hd.Tubes})
			}
		}
		if comp.FixedSlots()+comp.ReservedSlots > comp.Slots {
			return nil, fmt.Errorf("%s: fixed items and reserved slots exceed %d slots", loc, comp.Slots)
		}
		ch.Components[loc] = comp
	}
	for _, loc := range models.Locations {
		if !seen[loc] {
			return nil, fmt.Errorf("missing location %s", loc)
		}
	}
	return ch, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
