package rules

import (
	"fmt"

	"github.com/lisongmechlab/lsml-sub002/internal/models"
)

// Engine returns the equipped engine, or nil.
func Engine(cfg Configuration) *models.Item {
	if e := engineIn(cfg.Items(models.CenterTorso)); e != nil {
		return e
	}
	for _, loc := range models.Locations {
		if e := engineIn(cfg.Items(loc)); e != nil {
			return e
		}
	}
	return nil
}

func engineIn(items []*models.Item) *models.Item {
	for _, it := range items {
		if it.IsEngine() {
			return it
		}
	}
	return nil
}

// EngineHeatSinks returns how many heat sinks are housed in the engine and how
// many it can house.
func EngineHeatSinks(cfg Configuration) (housed, capacity int) {
	items := cfg.Items(models.CenterTorso)
	e := engineIn(items)
	if e == nil {
		return 0, 0
	}
	capacity = e.Engine.HeatSinkSlots()
	for _, it := range items {
		if it.IsHeatSink() {
			housed++
		}
	}
	return min(housed, capacity), capacity
}

// EngineHeatSinkSlotsFree is the number of heat sinks that can still be housed in the engine.
func EngineHeatSinkSlotsFree(cfg Configuration) int {
	housed, capacity := EngineHeatSinks(cfg)
	return capacity - housed
}

// SlotsUsed counts the critical slots used in a location, including slots
// reserved by the chassis. Heat sinks housed in the engine are free.
func SlotsUsed(cfg Configuration, loc models.Location) int {
	comp := cfg.Chassis().Component(loc)
	up := cfg.Upgrades()
	items := cfg.Items(loc)

	exempt := 0
	if loc == models.CenterTorso {
		if e := engineIn(items); e != nil {
			exempt = e.Engine.HeatSinkSlots()
		}
	}
	used := comp.ReservedSlots
	for _, it := range items {
		if it.IsHeatSink() && exempt > 0 {
			exempt--
			continue
		}
		used += up.Slots(it)
	}
	return used
}

// SlotsFree is the number of unused critical slots in a location.
func SlotsFree(cfg Configuration, loc models.Location) int {
	return cfg.Chassis().Component(loc).Slots - SlotsUsed(cfg, loc)
}

// FreeSlots is the configuration-wide number of free slots after the floating
// structure and armor slots have been accounted for.
func FreeSlots(cfg Configuration) int {
	n := 0
	for _, loc := range models.Locations {
		n += SlotsFree(cfg, loc)
	}
	return n - cfg.Upgrades().DynamicSlots()
}

// DynamicSlotDistribution spreads the floating upgrade slots over the free
// slots of each location in search order.
func DynamicSlotDistribution(cfg Configuration) [models.LocationCount]int {
	var out [models.LocationCount]int
	left := cfg.Upgrades().DynamicSlots()
	for _, loc := range models.SearchOrder {
		if left <= 0 {
			break
		}
		take := min(max(SlotsFree(cfg, loc), 0), left)
		out[loc] = take
		left -= take
	}
	return out
}

// HardpointsUsed counts the items in a location occupying a hardpoint of type t.
func HardpointsUsed(cfg Configuration, loc models.Location, t models.HardpointType) int {
	n := 0
	for _, it := range cfg.Items(loc) {
		if it.Hardpoint == t {
			n++
		}
	}
	return n
}

// FreeHardpoints is the number of unoccupied hardpoints of type t in a location.
func FreeHardpoints(cfg Configuration, loc models.Location, t models.HardpointType) int {
	return cfg.Chassis().Component(loc).HardpointCount(t) - HardpointsUsed(cfg, loc, t)
}

// FreeHardpointsTotal is FreeHardpoints summed over every location.
func FreeHardpointsTotal(cfg Configuration, t models.HardpointType) int {
	n := 0
	for _, loc := range models.Locations {
		n += FreeHardpoints(cfg, loc, t)
	}
	return n
}

// JumpJetCount is the number of equipped jump jets.
func JumpJetCount(cfg Configuration) int {
	n := 0
	for _, loc := range models.Locations {
		for _, it := range cfg.Items(loc) {
			if it.IsJumpJet() {
				n++
			}
		}
	}
	return n
}

// FreeMass is the tonnage still available.
func FreeMass(cfg Configuration) float64 {
	return float64(cfg.Chassis().Tonnage) - cfg.Mass()
}

// Violations lists every broken item or mass invariant of the configuration.
// An empty result means the configuration is legal.
func Violations(cfg Configuration) []string {
	var out []string
	ch := cfg.Chassis()

	if cfg.Mass() > float64(ch.Tonnage)+massEpsilon {
		out = append(out, fmt.Sprintf("mass %.2f exceeds %d tons", cfg.Mass(), ch.Tonnage))
	}
	if free := FreeSlots(cfg); free < 0 {
		out = append(out, fmt.Sprintf("%d dynamic slots do not fit", -free))
	}

	engines := 0
	jumpJets := 0
	for _, loc := range models.Locations {
		comp := ch.Component(loc)
		if used := SlotsUsed(cfg, loc); used > comp.Slots {
			out = append(out, fmt.Sprintf("%s uses %d of %d slots", loc, used, comp.Slots))
		}
		for _, t := range models.HardpointTypes {
			if used := HardpointsUsed(cfg, loc, t); used > comp.HardpointCount(t) {
				out = append(out, fmt.Sprintf("%s uses %d of %d %s hardpoints", loc, used, comp.HardpointCount(t), t))
			}
		}
		for _, it := range cfg.Items(loc) {
			if it.IsEngine() {
				engines++
			}
			if it.IsJumpJet() {
				jumpJets++
			}
			if !it.Internal {
				if r := placement(it, loc); r != Success {
					out = append(out, fmt.Sprintf("%s in %s: %s", it.Name, loc, r))
				}
			}
		}
	}
	if engines > 1 {
		out = append(out, fmt.Sprintf("%d engines equipped", engines))
	}
	if jumpJets > ch.JumpJetsMax {
		out = append(out, fmt.Sprintf("%d jump jets exceed the maximum of %d", jumpJets, ch.JumpJetsMax))
	}
	return out
}
