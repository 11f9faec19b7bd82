// Package rules decides whether an item may be equipped into a loadout.
//
// Every function here is a pure query over a Configuration: nothing is
// mutated and nothing fails. Checks come in two scopes. Global checks look at
// the whole configuration (mass, chassis allow-list, engine count, hardpoint
// and slot availability anywhere). Local checks look at one location (slots,
// placement restrictions, hardpoints in that location).
package rules

import (
	"fmt"

	"github.com/lisongmechlab/lsml-sub002/internal/models"
)

// Configuration is the read-only view of a loadout the rules need.
type Configuration interface {
	Chassis() *models.Chassis
	Upgrades() models.Upgrades
	// Mass is the current total mass including structure and armor.
	Mass() float64
	// Items returns the equipped items of a location, fixed items included.
	// Callers must not modify the returned slice.
	Items(loc models.Location) []*models.Item
}

// Result explains the outcome of an equip check.
type Result int

const (
	Success Result = iota
	TooHeavy
	NotEnoughSlots
	NotEnoughSlotsForXLSide
	NoFreeHardpoints
	NoHardpoints
	EngineAlreadyEquipped
	EngineRatingOutOfRange
	EngineLocation
	JumpJetsNotSupported
	JumpJetTonnage
	JumpJetCapacityReached
	JumpJetLocation
	CaseLocation
	IncompatibleFaction
	HeatSinkTypeMismatch
	InternalItem
	NoCandidateLocation
)

var resultText = map[Result]string{
	Success:                 "success",
	TooHeavy:                "not enough free mass",
	NotEnoughSlots:          "not enough free critical slots",
	NotEnoughSlotsForXLSide: "not enough free slots in the side torsos for the engine",
	NoFreeHardpoints:        "no free hardpoint of the required type",
	NoHardpoints:            "chassis has no hardpoint of the required type",
	EngineAlreadyEquipped:   "an engine is already equipped",
	EngineRatingOutOfRange:  "engine rating outside the chassis window",
	EngineLocation:          "engines only fit in the center torso",
	JumpJetsNotSupported:    "chassis cannot mount jump jets",
	JumpJetTonnage:          "jump jet does not support the chassis tonnage",
	JumpJetCapacityReached:  "maximum number of jump jets reached",
	JumpJetLocation:         "jump jets only fit in torsos and legs",
	CaseLocation:            "CASE only fits in a side torso",
	IncompatibleFaction:     "item faction does not match the chassis",
	HeatSinkTypeMismatch:    "heat sink does not match the heat sink upgrade",
	InternalItem:            "internal items cannot be equipped",
	NoCandidateLocation:     "no location on the chassis can ever hold the item",
}

func (r Result) String() string {
	if s, ok := resultText[r]; ok {
		return s
	}
	return fmt.Sprintf("Result(%d)", int(r))
}

// massEpsilon absorbs float error from fractional armor mass.
const massEpsilon = 1e-9

// Infeasible returns the chassis-level reason the item can never be equipped
// on this configuration, or Success. Moving other items around cannot change
// the outcome.
func Infeasible(cfg Configuration, item *models.Item) Result {
	ch := cfg.Chassis()
	up := cfg.Upgrades()
	switch {
	case item.Internal:
		return InternalItem
	case !item.Faction.CompatibleWith(ch.Faction):
		return IncompatibleFaction
	}
	if item.IsJumpJet() {
		if !ch.SupportsJumpJets() {
			return JumpJetsNotSupported
		}
		if !item.JumpJet.Supports(ch.Tonnage) {
			return JumpJetTonnage
		}
	}
	if item.IsEngine() && !ch.SupportsEngine(item.Engine.Rating) {
		return EngineRatingOutOfRange
	}
	if item.IsHeatSink() && up.HeatSinks != nil && up.HeatSinks.HeatSink != nil && item.ID != up.HeatSinks.HeatSink.ID {
		return HeatSinkTypeMismatch
	}
	if item.NeedsHardpoint() && ch.HardpointCount(item.Hardpoint) == 0 {
		return NoHardpoints
	}
	if len(CandidateLocations(cfg, item)) == 0 {
		return NoCandidateLocation
	}
	return Success
}

// CheckGlobal runs the configuration-wide checks.
func CheckGlobal(cfg Configuration, item *models.Item) Result {
	if r := Infeasible(cfg, item); r != Success {
		return r
	}
	ch := cfg.Chassis()
	up := cfg.Upgrades()

	if cfg.Mass()+up.Mass(item) > float64(ch.Tonnage)+massEpsilon {
		return TooHeavy
	}
	if item.IsEngine() && Engine(cfg) != nil {
		return EngineAlreadyEquipped
	}
	if item.IsJumpJet() && JumpJetCount(cfg) >= ch.JumpJetsMax {
		return JumpJetCapacityReached
	}
	if item.NeedsHardpoint() && FreeHardpointsTotal(cfg, item.Hardpoint) < 1 {
		return NoFreeHardpoints
	}
	if item.IsHeatSink() && EngineHeatSinkSlotsFree(cfg) > 0 {
		return Success
	}
	if slotsNeeded(up, item) > FreeSlots(cfg) {
		return NotEnoughSlots
	}
	return Success
}

// CheckLocal runs the checks that depend on the target location only.
func CheckLocal(cfg Configuration, item *models.Item, loc models.Location) Result {
	if r := placement(item, loc); r != Success {
		return r
	}
	if item.NeedsHardpoint() && FreeHardpoints(cfg, loc, item.Hardpoint) < 1 {
		return NoFreeHardpoints
	}
	if item.IsHeatSink() && loc == models.CenterTorso && EngineHeatSinkSlotsFree(cfg) > 0 {
		return Success
	}
	if cfg.Upgrades().Slots(item) > SlotsFree(cfg, loc) {
		return NotEnoughSlots
	}
	if item.IsEngine() {
		side := item.Engine.SideSlots()
		if SlotsFree(cfg, models.LeftTorso) < side || SlotsFree(cfg, models.RightTorso) < side {
			return NotEnoughSlotsForXLSide
		}
	}
	return Success
}

// Check runs the global and then the local checks.
func Check(cfg Configuration, item *models.Item, loc models.Location) Result {
	if r := CheckGlobal(cfg, item); r != Success {
		return r
	}
	return CheckLocal(cfg, item, loc)
}

// CanEquip reports whether the item can be equipped directly into loc.
func CanEquip(cfg Configuration, item *models.Item, loc models.Location) bool {
	return Check(cfg, item, loc) == Success
}

// FirstEquippable returns the first location in search order that accepts the
// item directly. Heat sinks prefer a free engine heat sink slot.
func FirstEquippable(cfg Configuration, item *models.Item) (models.Location, bool) {
	if CheckGlobal(cfg, item) != Success {
		return 0, false
	}
	if item.IsHeatSink() && EngineHeatSinkSlotsFree(cfg) > 0 {
		return models.CenterTorso, true
	}
	for _, loc := range models.SearchOrder {
		if CheckLocal(cfg, item, loc) == Success {
			return loc, true
		}
	}
	return 0, false
}

// CandidateLocations returns, in search order, every location that might
// accept the item: placement restrictions hold, the template has a hardpoint
// of the right type and enough non-fixed slots. It is a necessary condition
// only; current occupancy is ignored.
func CandidateLocations(cfg Configuration, item *models.Item) []models.Location {
	ch := cfg.Chassis()
	slots := cfg.Upgrades().Slots(item)
	var out []models.Location
	for _, loc := range models.SearchOrder {
		if placement(item, loc) != Success {
			continue
		}
		comp := ch.Component(loc)
		if item.NeedsHardpoint() && comp.HardpointCount(item.Hardpoint) == 0 {
			continue
		}
		capacity := comp.Slots - comp.FixedSlots() - comp.ReservedSlots
		if slots > capacity && !(item.IsHeatSink() && loc == models.CenterTorso) {
			continue
		}
		out = append(out, loc)
	}
	return out
}

// IsCandidate reports whether loc is among CandidateLocations(cfg, item).
func IsCandidate(cfg Configuration, item *models.Item, loc models.Location) bool {
	for _, l := range CandidateLocations(cfg, item) {
		if l == loc {
			return true
		}
	}
	return false
}

func placement(item *models.Item, loc models.Location) Result {
	switch {
	case item.IsEngine() && loc != models.CenterTorso:
		return EngineLocation
	case item.IsJumpJet() && !(loc.IsSideTorso() || loc == models.CenterTorso || loc.IsLeg()):
		return JumpJetLocation
	case item.Case && !loc.IsSideTorso():
		return CaseLocation
	}
	return Success
}

func slotsNeeded(up models.Upgrades, item *models.Item) int {
	n := up.Slots(item)
	if item.IsEngine() {
		n += 2 * item.Engine.SideSlots()
	}
	return n
}
