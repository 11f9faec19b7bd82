// Package armor distributes an armor point budget over the locations of a
// loadout.
//
// Distribution never fails: out of range budgets and ratios are clamped.
// Locations with a manually set side are pinned and left alone.
package armor

import (
	"context"
	"math"
	"sort"

	"github.com/go-logr/logr"

	"github.com/lisongmechlab/lsml-sub002/internal/loadout"
	"github.com/lisongmechlab/lsml-sub002/internal/logging"
	"github.com/lisongmechlab/lsml-sub002/internal/metrics"
	"github.com/lisongmechlab/lsml-sub002/internal/models"
)

// Priority tiers. Higher tiers get a larger share of the budget.
const (
	PriorityNone      = 0
	PriorityDefault   = 3
	PriorityHead      = 4
	PriorityLeg       = 5
	PriorityArmed     = 6
	PriorityXLSide    = 8
	PriorityCenter    = 10
	minHalfTonEpsilon = 1e-9
)

// LocationAllocation is the planned armor of one location.
type LocationAllocation struct {
	Location models.Location `json:"location"`
	Priority int             `json:"priority"`
	Pinned   bool            `json:"pinned,omitempty"`
	Front    int             `json:"front"`
	Back     int             `json:"back,omitempty"`
}

// Total is front plus back.
func (l LocationAllocation) Total() int {
	return l.Front + l.Back
}

// Allocation is the outcome of Plan. Pinned locations carry their current
// armor.
type Allocation struct {
	Requested int `json:"requested"`
	// Budget is the number of points available to unpinned locations after
	// rounding and clamping.
	Budget    int                                      `json:"budget"`
	Locations [models.LocationCount]LocationAllocation `json:"locations"`
}

// Total is the armor of every location after the allocation is applied.
func (a Allocation) Total() int {
	n := 0
	for _, l := range a.Locations {
		n += l.Total()
	}
	return n
}

// Assigned is the armor given to unpinned locations.
func (a Allocation) Assigned() int {
	n := 0
	for _, l := range a.Locations {
		if !l.Pinned {
			n += l.Total()
		}
	}
	return n
}

// Plan computes the distribution of budget points with front to back ratio
// ratio. The loadout is only read.
func Plan(lo *loadout.Loadout, budget int, ratio float64) Allocation {
	a := Allocation{Requested: budget}
	for _, loc := range models.Locations {
		la := &a.Locations[loc]
		la.Location = loc
		if lo.Pinned(loc) {
			la.Pinned = true
			la.Front = lo.Armor(loc, models.SideFront)
			la.Back = lo.Armor(loc, models.SideBack)
		}
	}
	a.Budget = effectiveBudget(lo, budget)

	prio := priorities(lo)
	var active, idle []models.Location
	for _, loc := range models.Locations {
		if lo.Pinned(loc) {
			continue
		}
		a.Locations[loc].Priority = prio[loc]
		if prio[loc] > PriorityNone {
			active = append(active, loc)
		} else {
			idle = append(idle, loc)
		}
	}
	order := func(locs []models.Location) {
		sort.SliceStable(locs, func(i, j int) bool {
			li, lj := locs[i], locs[j]
			if prio[li] != prio[lj] {
				return prio[li] > prio[lj]
			}
			if mi, mj := lo.ArmorMax(li), lo.ArmorMax(lj); mi != mj {
				return mi < mj
			}
			return li < lj
		})
	}
	order(active)
	order(idle)

	var totals [models.LocationCount]int
	remaining := a.Budget
	prioSum := 0
	for _, loc := range active {
		prioSum += prio[loc]
	}
	for _, loc := range active {
		share := remaining * prio[loc] / prioSum
		share = min(share, lo.ArmorMax(loc))
		totals[loc] = share
		remaining -= share
		prioSum -= prio[loc]
	}

	leftover := append(append([]models.Location(nil), active...), idle...)
	for remaining > 0 {
		progressed := false
		for _, loc := range leftover {
			if remaining == 0 {
				break
			}
			if totals[loc] < lo.ArmorMax(loc) {
				totals[loc]++
				remaining--
				progressed = true
			}
		}
		if !progressed {
			break
		}
	}

	r := clampRatio(ratio)
	for _, loc := range leftover {
		la := &a.Locations[loc]
		if !loc.TwoSided() {
			la.Front = totals[loc]
			continue
		}
		la.Back = backShare(totals[loc], r)
		la.Front = totals[loc] - la.Back
	}
	return a
}

// effectiveBudget rounds the request down to whole half tons and clamps it to
// what the loadout can carry and what unpinned locations can hold.
func effectiveBudget(lo *loadout.Loadout, budget int) int {
	ppt := lo.Upgrades().Armor.PointsPerTon
	tons := math.Floor(float64(max(budget, 0))/ppt*2+minHalfTonEpsilon) / 2
	points := int(math.Floor(tons*ppt + minHalfTonEpsilon))
	points = min(points, loadout.MaxArmorPoints(lo))

	capacity := 0
	for _, loc := range models.Locations {
		if lo.Pinned(loc) {
			points -= lo.ArmorTotal(loc)
			continue
		}
		capacity += lo.ArmorMax(loc)
	}
	return max(min(points, capacity), 0)
}

func clampRatio(r float64) float64 {
	switch {
	case math.IsNaN(r):
		return 1
	case r < 0:
		return 0
	}
	return r
}

// backShare is floor(total / (r + 1)); an infinite ratio puts everything in
// front.
func backShare(total int, r float64) int {
	if math.IsInf(r, 1) {
		return 0
	}
	return int(math.Floor(float64(total) / (r + 1)))
}

// priorities assigns the tier of every location.
func priorities(lo *loadout.Loadout) [models.LocationCount]int {
	var p [models.LocationCount]int
	up := lo.Upgrades()
	for _, loc := range models.Locations {
		mass := 0.0
		for _, it := range lo.Items(loc) {
			mass += up.Mass(it)
		}
		switch {
		case loc == models.CenterTorso:
			p[loc] = PriorityCenter
		case loc.IsSideTorso() && housesEngineSide(lo, loc.Opposite()):
			p[loc] = PriorityXLSide
		case loc.IsLeg():
			p[loc] = PriorityLeg
		case loc == models.Head:
			p[loc] = PriorityHead
		case mass > 0:
			p[loc] = PriorityDefault
		default:
			p[loc] = PriorityNone
		}
	}
	for _, arm := range []models.Location{models.LeftArm, models.RightArm} {
		if weaponMass(lo, arm) <= 0 {
			continue
		}
		p[arm] = max(p[arm], PriorityArmed)
		if torso, ok := arm.AdjoiningTorso(); ok {
			p[torso] = max(p[torso], PriorityArmed)
		}
	}
	return p
}

func housesEngineSide(lo *loadout.Loadout, loc models.Location) bool {
	e := lo.Engine()
	if e == nil || e.Engine.Side == nil {
		return false
	}
	for _, it := range lo.Items(loc) {
		if it.ID == e.Engine.Side.ID {
			return true
		}
	}
	return false
}

func weaponMass(lo *loadout.Loadout, loc models.Location) float64 {
	up := lo.Upgrades()
	m := 0.0
	for _, it := range lo.Items(loc) {
		if it.IsWeapon() {
			m += up.Mass(it)
		}
	}
	return m
}

// Commands turns an allocation into one atomic command: unpinned locations
// are reset to zero, then set to their planned values.
func Commands(lo *loadout.Loadout, a Allocation) *loadout.Composite {
	cmds := []loadout.Command{loadout.Reset(lo)}
	for _, la := range a.Locations {
		if la.Pinned {
			continue
		}
		if la.Front > 0 {
			cmds = append(cmds, loadout.NewSetArmor(lo, la.Location, models.SideFront, la.Front, false))
		}
		if la.Back > 0 {
			cmds = append(cmds, loadout.NewSetArmor(lo, la.Location, models.SideBack, la.Back, false))
		}
	}
	return loadout.NewComposite(lo, "distribute armor", cmds...)
}

// Allocator plans armor distributions and reports them.
type Allocator struct {
	recorder metrics.Recorder
}

// NewAllocator returns an allocator reporting to r, or to nothing when r is nil.
func NewAllocator(r metrics.Recorder) *Allocator {
	if r == nil {
		r = metrics.Nop{}
	}
	return &Allocator{recorder: r}
}

// Distribute plans the allocation and returns the command that applies it.
func (al *Allocator) Distribute(ctx context.Context, lo *loadout.Loadout, budget int, ratio float64) (Allocation, *loadout.Composite) {
	a := Plan(lo, budget, ratio)
	al.recorder.ArmorDistributed(a.Assigned())
	logr.FromContextOrDiscard(ctx).V(logging.DEBUG).Info("Armor planned",
		"chassis", lo.Chassis().ID, "requested", budget, "budget", a.Budget, "assigned", a.Assigned(), "total", a.Total())
	return a, Commands(lo, a)
}
