package stats

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lisongmechlab/lsml-sub002/internal/catalog"
	"github.com/lisongmechlab/lsml-sub002/internal/loadout"
	"github.com/lisongmechlab/lsml-sub002/internal/models"
)

type placement struct {
	loc models.Location
	id  string
}

func build(t *testing.T, chassisID string, items ...placement) *loadout.Loadout {
	t.Helper()
	cat, err := catalog.Builtin()
	require.NoError(t, err)
	ch, err := cat.Chassis(chassisID)
	require.NoError(t, err)
	lo := loadout.New(ch, cat.Upgrades().Defaults(ch.Faction), nil)
	for _, p := range items {
		it, err := cat.Item(p.id)
		require.NoError(t, err)
		require.NoError(t, loadout.NewAddItem(lo, p.loc, it).Apply(), p.id)
	}
	return lo
}

func TestSummarize(t *testing.T) {
	lo := build(t, "hgn-733",
		placement{models.CenterTorso, "engine-std-300"},
		placement{models.CenterTorso, "hs-single"},
		placement{models.CenterTorso, "hs-single"},
		placement{models.Head, "medium-laser"},
		placement{models.LeftTorso, "lrm-5"},
		placement{models.RightTorso, "lrm-10"},
		placement{models.RightTorso, "lrm-10"},
	)
	require.NoError(t, loadout.NewSetArmor(lo, models.CenterTorso, models.SideFront, 100, false).Apply())

	s := Summarize(lo)
	assert.InDelta(t, 43.0+100.0/32, s.Mass, 1e-9)
	assert.Equal(t, 3, s.WalkMP)
	assert.Equal(t, 5, s.RunMP)
	assert.Equal(t, 0, s.JumpMP)
	assert.Equal(t, 2, s.TMM)
	assert.Equal(t, 1.0, s.SpeedFactor)
	assert.Equal(t, 2, s.MovementHeat)
	assert.Equal(t, 12, s.HeatSinks)
	assert.Equal(t, 558, s.ArmorMax)

	assert.InDelta(t, 54.0, s.Value(TopSpeed), 1e-9)
	assert.InDelta(t, 44.4, s.Value(HeatCapacity), 1e-9)
	assert.InDelta(t, 1.2, s.Value(HeatDissipation), 1e-9)
	assert.Equal(t, 100.0, s.Value(ArmorTotal))
	assert.Equal(t, 20.0, s.Value(MissileTubes))
	assert.Equal(t, 30.0, s.Value(AlphaDamage))
	assert.Equal(t, 14.0, s.Value(AlphaHeat))
	assert.Equal(t, 0.0, s.Value(JumpJets))
}

func TestSummarizeWithoutEngine(t *testing.T) {
	s := Summarize(build(t, "cn9-a"))
	assert.Equal(t, 0, s.WalkMP)
	assert.Equal(t, 0.0, s.Value(TopSpeed))
	assert.Equal(t, 0, s.HeatSinks)
	assert.Equal(t, BaseHeatCapacity, s.Value(HeatCapacity))
}

func TestJumpJetsRaiseSpeedFactor(t *testing.T) {
	lo := build(t, "hgn-733",
		placement{models.CenterTorso, "engine-std-300"},
		placement{models.LeftLeg, "jj-class-i"},
	)
	s := Summarize(lo)
	assert.Equal(t, 1, s.JumpMP)
	assert.Equal(t, 1.12, s.SpeedFactor)
	assert.Equal(t, 3, s.MovementHeat)
	assert.Equal(t, 1.0, s.Value(JumpJets))
}

func TestVolleyTubes(t *testing.T) {
	tests := []struct {
		name  string
		items []placement
		loc   models.Location
		want  int
	}{
		{"empty", nil, models.RightTorso, 0},
		{"single launcher", []placement{{models.RightTorso, "lrm-10"}}, models.RightTorso, 10},
		{"launcher smaller than hardpoint", []placement{{models.RightTorso, "lrm-5"}}, models.RightTorso, 5},
		{"hardpoint limits launcher", []placement{{models.LeftTorso, "lrm-10"}}, models.LeftTorso, 5},
		{"extra launcher capped", []placement{
			{models.RightTorso, "lrm-10"},
			{models.RightTorso, "lrm-10"},
		}, models.RightTorso, 15},
		{"three launchers", []placement{
			{models.RightTorso, "lrm-5"},
			{models.RightTorso, "lrm-10"},
			{models.RightTorso, "lrm-10"},
		}, models.RightTorso, 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lo := build(t, "hgn-733", tt.items...)
			assert.Equal(t, tt.want, VolleyTubes(lo, tt.loc))
		})
	}
}

func TestApplyModifiers(t *testing.T) {
	mods := []Modifier{
		{Attribute: TopSpeed, Op: OpMultiply, Value: 0.1},
		{Attribute: TopSpeed, Op: OpAdd, Value: 6},
		{Attribute: TopSpeed, Op: OpMultiply, Value: 0.1},
		{Attribute: HeatCapacity, Op: OpAdd, Value: 100},
	}
	assert.InDelta(t, 72.0, Apply(TopSpeed, 54, mods), 1e-9)
	assert.Equal(t, 10.0, Apply(AlphaHeat, 10, mods))

	lo := build(t, "hgn-733", placement{models.CenterTorso, "engine-std-300"})
	s := Summarize(lo, mods...)
	assert.InDelta(t, 72.0, s.Value(TopSpeed), 1e-9)
	assert.InDelta(t, 30+12+100, s.Value(HeatCapacity), 1e-9)
}

func TestParseAttribute(t *testing.T) {
	for _, a := range Attributes {
		got, err := ParseAttribute(a.String())
		require.NoError(t, err)
		assert.Equal(t, a, got)
	}
	_, err := ParseAttribute("warp_factor")
	assert.Error(t, err)
}

func TestMovementTables(t *testing.T) {
	tmm := []struct{ mp, want int }{
		{0, 0}, {2, 0}, {3, 1}, {4, 1}, {5, 2}, {6, 2}, {7, 3}, {9, 3}, {10, 4}, {25, 7},
	}
	for _, tt := range tmm {
		assert.Equal(t, tt.want, TMM(tt.mp), "TMM(%d)", tt.mp)
	}

	speed := []struct {
		run, jump int
		want      float64
	}{
		{6, 0, 1.12},
		{5, 0, 1.0},
		{8, 0, 1.37},
		{6, 6, 1.50},
		{4, 0, 0.88},
	}
	for _, tt := range speed {
		assert.InDelta(t, tt.want, SpeedFactor(tt.run, tt.jump), 0.02, "SpeedFactor(%d,%d)", tt.run, tt.jump)
	}

	assert.Equal(t, 2, MovementHeat(0))
	assert.Equal(t, 3, MovementHeat(2))
	assert.Equal(t, 4, MovementHeat(4))
}

const untubedCatalog = `
items:
  - {id: lrm-10, name: LRM 10, kind: weapon, hardpoint: missile, mass: 1, slots: 1, weapon: {damage: 10, heat: 4, tubes: 10}}
  - {id: hs, kind: heat_sink, mass: 1, slots: 1}
chassis:
  - id: tst-1
    name: Test Chassis
    tonnage: 100
    components:
      - {location: HD, slots: 6, hit_points: 10}
      - {location: LA, slots: 6, hit_points: 10}
      - {location: LT, slots: 6, hit_points: 10}
      - {location: CT, slots: 6, hit_points: 10}
      - {location: RT, slots: 6, hit_points: 10, hardpoints: [{type: missile, count: 3}]}
      - {location: RA, slots: 6, hit_points: 10}
      - {location: LL, slots: 6, hit_points: 10}
      - {location: RL, slots: 6, hit_points: 10}
upgrades:
  - {id: structure-std, category: structure, mass_factor: 0.1}
  - {id: armor-std, category: armor, points_per_ton: 32}
  - {id: heat-sinks-single, category: heat_sink, heat_sink: hs}
  - {id: guidance-std, category: guidance}
`

func TestVolleyTubesUntubedHardpoints(t *testing.T) {
	cat, err := catalog.LoadYAML(strings.NewReader(untubedCatalog))
	require.NoError(t, err)
	ch, err := cat.Chassis("tst-1")
	require.NoError(t, err)
	lrm, err := cat.Item("lrm-10")
	require.NoError(t, err)

	lo := loadout.New(ch, cat.Upgrades().Defaults(ch.Faction), nil)
	for range 3 {
		require.NoError(t, loadout.NewAddItem(lo, models.RightTorso, lrm).Apply())
	}
	// The first launcher fires in full, the other two at five tubes each.
	assert.Equal(t, 20, VolleyTubes(lo, models.RightTorso))
}
