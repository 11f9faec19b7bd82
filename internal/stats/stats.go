// Package stats derives summary figures from a loadout.
package stats

import (
	"cmp"
	"math"
	"slices"

	"github.com/lisongmechlab/lsml-sub002/internal/models"
	"github.com/lisongmechlab/lsml-sub002/internal/rules"
)

const (
	// BaseHeatCapacity is the heat a chassis absorbs before any heat sink.
	BaseHeatCapacity = 30.0
	// speedPerRating converts engine rating per ton into km/h.
	speedPerRating = 16.2
	// extraLauncherTubeCap limits the hardpoint tubes seen by every launcher
	// after the first in a location.
	extraLauncherTubeCap = 5
)

// Summary is the derived view of a loadout.
type Summary struct {
	Mass         float64 `json:"mass"`
	FreeMass     float64 `json:"free_mass"`
	FreeSlots    int     `json:"free_slots"`
	ArmorMax     int     `json:"armor_max"`
	HeatSinks    int     `json:"heat_sinks"`
	WalkMP       int     `json:"walk_mp"`
	RunMP        int     `json:"run_mp"`
	JumpMP       int     `json:"jump_mp"`
	TMM          int     `json:"tmm"`
	SpeedFactor  float64 `json:"speed_factor"`
	MovementHeat int     `json:"movement_heat"`

	Values map[Attribute]float64 `json:"values"`
}

// Value returns one attribute.
func (s Summary) Value(a Attribute) float64 {
	return s.Values[a]
}

// Loadout is what Summarize reads: the rule view plus the armor state.
type Loadout interface {
	rules.Configuration
	ArmorPoints() int
}

// Summarize computes the summary, applying mods to the attribute values.
func Summarize(lo Loadout, mods ...Modifier) Summary {
	ch := lo.Chassis()
	s := Summary{
		Mass:      lo.Mass(),
		FreeMass:  rules.FreeMass(lo),
		FreeSlots: rules.FreeSlots(lo),
		ArmorMax:  ch.ArmorMax(),
		JumpMP:    rules.JumpJetCount(lo),
	}

	base := map[Attribute]float64{
		JumpJets:   float64(s.JumpMP),
		ArmorTotal: float64(lo.ArmorPoints()),
	}

	if e := rules.Engine(lo); e != nil && ch.Tonnage > 0 {
		s.WalkMP = e.Engine.Rating / ch.Tonnage
		s.RunMP = int(math.Ceil(float64(s.WalkMP) * 1.5))
		base[TopSpeed] = float64(e.Engine.Rating) / float64(ch.Tonnage) * speedPerRating
	}
	s.TMM = TMM(max(s.RunMP, s.JumpMP))
	s.SpeedFactor = SpeedFactor(s.RunMP, s.JumpMP)
	s.MovementHeat = MovementHeat(s.JumpMP)

	sinks, spec := heatSinks(lo)
	s.HeatSinks = sinks
	base[HeatCapacity] = BaseHeatCapacity
	if spec != nil {
		base[HeatCapacity] += float64(sinks) * spec.Capacity
		base[HeatDissipation] = float64(sinks) * spec.Dissipation
	}

	for _, loc := range models.Locations {
		for _, it := range lo.Items(loc) {
			if it.IsWeapon() && it.Weapon != nil {
				base[AlphaDamage] += it.Weapon.Damage
				base[AlphaHeat] += it.Weapon.Heat
			}
		}
		base[MissileTubes] += float64(VolleyTubes(lo, loc))
	}

	s.Values = make(map[Attribute]float64, len(Attributes))
	for _, a := range Attributes {
		s.Values[a] = Apply(a, base[a], mods)
	}
	return s
}

// heatSinks counts the engine's built-in heat sinks plus every equipped heat
// sink, and returns the heat sink item the upgrade selects.
func heatSinks(lo Loadout) (int, *models.HeatSinkSpec) {
	n := 0
	if e := rules.Engine(lo); e != nil {
		n = e.Engine.InternalHeatSinks()
	}
	for _, loc := range models.Locations {
		for _, it := range lo.Items(loc) {
			if it.IsHeatSink() {
				n++
			}
		}
	}
	up := lo.Upgrades()
	if up.HeatSinks == nil || up.HeatSinks.HeatSink == nil {
		return n, nil
	}
	return n, up.HeatSinks.HeatSink.HeatSink
}

// VolleyTubes is the number of missile tubes a location fires per volley.
// Launchers are matched largest first against hardpoints largest first. The
// first launcher sees its hardpoint's full tube count, every further launcher
// at most five tubes. A hardpoint without a tube count does not limit the
// first launcher.
func VolleyTubes(cfg rules.Configuration, loc models.Location) int {
	var launchers []int
	for _, it := range cfg.Items(loc) {
		if it.IsMissileLauncher() {
			launchers = append(launchers, it.Weapon.Tubes)
		}
	}
	if len(launchers) == 0 {
		return 0
	}
	var hardpoints []int
	for _, hp := range cfg.Chassis().Component(loc).Hardpoints {
		if hp.Type == models.HardpointMissile {
			hardpoints = append(hardpoints, hp.Tubes)
		}
	}
	desc := func(a, b int) int { return cmp.Compare(b, a) }
	slices.SortFunc(launchers, desc)
	slices.SortFunc(hardpoints, desc)

	total := 0
	for i, tubes := range launchers {
		limit := 0
		if i < len(hardpoints) {
			limit = hardpoints[i]
		}
		if i > 0 && (limit == 0 || limit > extraLauncherTubeCap) {
			limit = extraLauncherTubeCap
		}
		if limit > 0 {
			tubes = min(tubes, limit)
		}
		total += tubes
	}
	return total
}
