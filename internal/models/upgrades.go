package models

import "math"

// StructureUpgrade selects the internal structure type.
type StructureUpgrade struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// MassFactor is the structure mass as a fraction of chassis tonnage.
	MassFactor   float64 `json:"mass_factor"`
	DynamicSlots int     `json:"dynamic_slots"`
	Faction      Faction `json:"faction"`
}

// Mass returns the structure mass for a chassis of the given tonnage,
// rounded to the nearest half ton.
func (s *StructureUpgrade) Mass(tonnage int) float64 {
	return math.Round(float64(tonnage)*s.MassFactor*2) / 2
}

// ArmorUpgrade selects the armor type.
type ArmorUpgrade struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	PointsPerTon float64 `json:"points_per_ton"`
	DynamicSlots int     `json:"dynamic_slots"`
	Faction      Faction `json:"faction"`
}

// Mass returns the tonnage of the given number of armor points.
func (a *ArmorUpgrade) Mass(points int) float64 {
	return float64(points) / a.PointsPerTon
}

// HeatSinkUpgrade selects which heat sink item the loadout uses.
type HeatSinkUpgrade struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	HeatSink *Item   `json:"heat_sink"`
	Faction  Faction `json:"faction"`
}

// GuidanceUpgrade adds slots and mass to every guided launcher.
type GuidanceUpgrade struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	ExtraSlots int     `json:"extra_slots"`
	ExtraMass  float64 `json:"extra_mass"`
	Faction    Faction `json:"faction"`
}

// Upgrades is the set of upgrade choices active on a loadout.
type Upgrades struct {
	Structure *StructureUpgrade `json:"structure"`
	Armor     *ArmorUpgrade     `json:"armor"`
	HeatSinks *HeatSinkUpgrade  `json:"heat_sinks"`
	Guidance  *GuidanceUpgrade  `json:"guidance"`
}

// Slots is the slot cost of an item under these upgrades.
func (u Upgrades) Slots(it *Item) int {
	if it.IsGuided() && u.Guidance != nil {
		return it.Slots + u.Guidance.ExtraSlots
	}
	return it.Slots
}

// Mass is the mass of an item under these upgrades.
func (u Upgrades) Mass(it *Item) float64 {
	if it.IsGuided() && u.Guidance != nil {
		return it.Mass + u.Guidance.ExtraMass
	}
	return it.Mass
}

// DynamicSlots is the number of floating slots the structure and armor
// upgrades claim somewhere on the chassis.
func (u Upgrades) DynamicSlots() int {
	n := 0
	if u.Structure != nil {
		n += u.Structure.DynamicSlots
	}
	if u.Armor != nil {
		n += u.Armor.DynamicSlots
	}
	return n
}
