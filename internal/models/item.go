package models

import "fmt"

// ItemKind is the capability an item brings to a loadout.
type ItemKind int

const (
	KindGeneric ItemKind = iota
	KindEngine
	KindHeatSink
	KindJumpJet
	KindWeapon
)

var kindNames = map[ItemKind]string{
	KindGeneric:  "generic",
	KindEngine:   "engine",
	KindHeatSink: "heat_sink",
	KindJumpJet:  "jump_jet",
	KindWeapon:   "weapon",
}

func (k ItemKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("ItemKind(%d)", int(k))
}

func (k ItemKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ParseItemKind maps the catalog spelling back to an ItemKind.
func ParseItemKind(s string) (ItemKind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown item kind %q", s)
}

// HardpointType is the weapon category a hardpoint accepts.
type HardpointType int

const (
	HardpointNone HardpointType = iota
	HardpointEnergy
	HardpointBallistic
	HardpointMissile
	HardpointAMS
	HardpointECM
)

// HardpointTypes lists every real hardpoint category.
var HardpointTypes = []HardpointType{HardpointEnergy, HardpointBallistic, HardpointMissile, HardpointAMS, HardpointECM}

var hardpointNames = map[HardpointType]string{
	HardpointNone:      "none",
	HardpointEnergy:    "energy",
	HardpointBallistic: "ballistic",
	HardpointMissile:   "missile",
	HardpointAMS:       "ams",
	HardpointECM:       "ecm",
}

func (h HardpointType) String() string {
	if s, ok := hardpointNames[h]; ok {
		return s
	}
	return fmt.Sprintf("HardpointType(%d)", int(h))
}

func (h HardpointType) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// ParseHardpointType maps "energy", "missile", ... to a HardpointType. The
// empty string is HardpointNone.
func ParseHardpointType(s string) (HardpointType, error) {
	if s == "" {
		return HardpointNone, nil
	}
	for h, name := range hardpointNames {
		if name == s {
			return h, nil
		}
	}
	return 0, fmt.Errorf("unknown hardpoint type %q", s)
}

// Faction restricts which chassis an item may be mounted on.
type Faction int

const (
	FactionAny Faction = iota
	FactionInnerSphere
	FactionClan
)

var factionNames = map[Faction]string{
	FactionAny:         "any",
	FactionInnerSphere: "inner_sphere",
	FactionClan:        "clan",
}

func (f Faction) String() string {
	if s, ok := factionNames[f]; ok {
		return s
	}
	return fmt.Sprintf("Faction(%d)", int(f))
}

func (f Faction) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// ParseFaction maps "inner_sphere", "clan" or "any" to a Faction. The empty
// string is FactionAny.
func ParseFaction(s string) (Faction, error) {
	if s == "" {
		return FactionAny, nil
	}
	for f, name := range factionNames {
		if name == s {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown faction %q", s)
}

// CompatibleWith reports whether an item of faction f can go on a chassis of faction chassis.
func (f Faction) CompatibleWith(chassis Faction) bool {
	return f == FactionAny || chassis == FactionAny || f == chassis
}

// EngineType distinguishes engines that need side-torso space.
type EngineType int

const (
	EngineStandard EngineType = iota
	EngineXL
	EngineLight
)

var engineTypeNames = map[EngineType]string{
	EngineStandard: "standard",
	EngineXL:       "xl",
	EngineLight:    "light",
}

func (t EngineType) String() string {
	if s, ok := engineTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("EngineType(%d)", int(t))
}

func (t EngineType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// ParseEngineType maps "standard", "xl" or "light" to an EngineType.
func ParseEngineType(s string) (EngineType, error) {
	if s == "" {
		return EngineStandard, nil
	}
	for t, name := range engineTypeNames {
		if name == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown engine type %q", s)
}

// EngineSpec carries the engine-only attributes of an item.
type EngineSpec struct {
	Rating int        `json:"rating"`
	Type   EngineType `json:"type"`
	// Side is the filler item placed in both side torsos, nil for standard engines.
	Side *Item `json:"side,omitempty"`
}

// Engine heat sinks: one per 25 rating points, the first ten are built in.
const engineInternalHeatSinks = 10

// HeatSinkSlots is the number of external heat sinks the engine can house
// without them consuming critical slots.
func (e *EngineSpec) HeatSinkSlots() int {
	n := e.Rating/25 - engineInternalHeatSinks
	if n < 0 {
		return 0
	}
	return n
}

// InternalHeatSinks is the number of heat sinks built into the engine.
func (e *EngineSpec) InternalHeatSinks() int {
	return min(e.Rating/25, engineInternalHeatSinks)
}

// SideSlots is the slot cost of the filler in each side torso.
func (e *EngineSpec) SideSlots() int {
	if e.Side == nil {
		return 0
	}
	return e.Side.Slots
}

// JumpJetSpec is the tonnage window a jump jet supports, inclusive on both ends.
type JumpJetSpec struct {
	MinTons int `json:"min_tons"`
	MaxTons int `json:"max_tons"`
}

// Supports reports whether a chassis of the given tonnage can mount the jump jet.
func (j *JumpJetSpec) Supports(tonnage int) bool {
	return tonnage >= j.MinTons && tonnage <= j.MaxTons
}

// WeaponSpec carries weapon attributes used for derived statistics and guidance upgrades.
type WeaponSpec struct {
	Damage float64 `json:"damage"`
	Heat   float64 `json:"heat"`
	// Tubes is the launcher size for missile weapons.
	Tubes int `json:"tubes,omitempty"`
	// Guided launchers pick up the active guidance upgrade's slot and mass cost.
	Guided bool `json:"guided,omitempty"`
}

// HeatSinkSpec carries heat sink performance.
type HeatSinkSpec struct {
	Dissipation float64 `json:"dissipation"`
	Capacity    float64 `json:"capacity"`
}

// Item is an immutable catalog entry that can be equipped into a location.
type Item struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Kind      ItemKind      `json:"kind"`
	Mass      float64       `json:"mass"`
	Slots     int           `json:"slots"`
	Hardpoint HardpointType `json:"hardpoint"`
	Faction   Faction       `json:"faction"`
	// Internal items are part of the chassis structure or owned by another
	// item and can never be added or removed by a user.
	Internal bool `json:"internal,omitempty"`
	// Case items may only go in a side torso.
	Case bool `json:"case,omitempty"`

	Engine   *EngineSpec   `json:"engine,omitempty"`
	JumpJet  *JumpJetSpec  `json:"jump_jet,omitempty"`
	Weapon   *WeaponSpec   `json:"weapon,omitempty"`
	HeatSink *HeatSinkSpec `json:"heat_sink,omitempty"`
}

func (it *Item) String() string {
	return it.Name
}

// IsEngine reports whether the item is an engine.
func (it *Item) IsEngine() bool {
	return it.Kind == KindEngine && it.Engine != nil
}

// IsHeatSink reports whether the item is a heat sink.
func (it *Item) IsHeatSink() bool {
	return it.Kind == KindHeatSink
}

// IsJumpJet reports whether the item is a jump jet.
func (it *Item) IsJumpJet() bool {
	return it.Kind == KindJumpJet && it.JumpJet != nil
}

// IsWeapon reports whether the item is a hardpoint weapon.
func (it *Item) IsWeapon() bool {
	return it.Kind == KindWeapon
}

// NeedsHardpoint reports whether the item must occupy a hardpoint.
func (it *Item) NeedsHardpoint() bool {
	return it.Hardpoint != HardpointNone
}

// IsMissileLauncher reports whether the item is a missile weapon with tubes.
func (it *Item) IsMissileLauncher() bool {
	return it.IsWeapon() && it.Hardpoint == HardpointMissile && it.Weapon != nil && it.Weapon.Tubes > 0
}

// IsGuided reports whether the item is affected by the guidance upgrade.
func (it *Item) IsGuided() bool {
	return it.IsWeapon() && it.Weapon != nil && it.Weapon.Guided
}
