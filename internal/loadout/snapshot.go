package loadout

import (
	"fmt"

	"github.com/lisongmechlab/lsml-sub002/internal/catalog"
	"github.com/lisongmechlab/lsml-sub002/internal/events"
	"github.com/lisongmechlab/lsml-sub002/internal/models"
)

// Snapshot is the persisted form of a loadout. Fixed items and engine side
// fillers are implied by the chassis and engine and are not stored.
type Snapshot struct {
	Chassis   string             `json:"chassis"`
	Upgrades  UpgradeIDs         `json:"upgrades"`
	Locations []LocationSnapshot `json:"locations"`
}

type UpgradeIDs struct {
	Structure string `json:"structure"`
	Armor     string `json:"armor"`
	HeatSinks string `json:"heat_sinks"`
	Guidance  string `json:"guidance"`
}

type LocationSnapshot struct {
	Location    models.Location `json:"location"`
	Items       []string        `json:"items,omitempty"`
	Front       int             `json:"front"`
	Back        int             `json:"back,omitempty"`
	FrontManual bool            `json:"front_manual,omitempty"`
	BackManual  bool            `json:"back_manual,omitempty"`
}

// Snapshot captures the loadout.
func (lo *Loadout) Snapshot() Snapshot {
	ids := lo.upgradeIDs()
	s := Snapshot{
		Chassis:  lo.chassis.ID,
		Upgrades: UpgradeIDs{Structure: ids[0], Armor: ids[1], HeatSinks: ids[2], Guidance: ids[3]},
	}
	for _, loc := range models.Locations {
		c := &lo.comps[loc]
		ls := LocationSnapshot{
			Location:    loc,
			Front:       c.armor[models.SideFront],
			Back:        c.armor[models.SideBack],
			FrontManual: c.manual[models.SideFront],
			BackManual:  c.manual[models.SideBack],
		}
		for _, it := range lo.removable(loc) {
			ls.Items = append(ls.Items, it.ID)
		}
		s.Locations = append(s.Locations, ls)
	}
	return s
}

// Restore rebuilds a loadout from a snapshot by replaying commands, so a
// snapshot that breaks any rule is rejected. Upgrades go first, then the
// engine, then the remaining items, then armor.
func Restore(cat catalog.Catalog, snap Snapshot, pub events.Publisher) (*Loadout, error) {
	ch, err := cat.Chassis(snap.Chassis)
	if err != nil {
		return nil, err
	}
	lo := New(ch, cat.Upgrades().Defaults(ch.Faction), pub)

	var cmds []Command
	up := cat.Upgrades()
	if id := snap.Upgrades.Structure; id != "" {
		s, err := up.Structure(id)
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, NewSetStructure(lo, s))
	}
	if id := snap.Upgrades.Armor; id != "" {
		a, err := up.Armor(id)
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, NewSetArmorType(lo, a))
	}
	if id := snap.Upgrades.HeatSinks; id != "" {
		h, err := up.HeatSink(id)
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, NewSetHeatSinks(lo, h))
	}
	if id := snap.Upgrades.Guidance; id != "" {
		g, err := up.Guidance(id)
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, NewSetGuidance(lo, g))
	}

	var engines, others, armor []Command
	for _, ls := range snap.Locations {
		if !ls.Location.Valid() {
			return nil, fmt.Errorf("restore %s: invalid location %d", snap.Chassis, int(ls.Location))
		}
		for _, id := range ls.Items {
			it, err := cat.Item(id)
			if err != nil {
				return nil, err
			}
			cmd := NewAddItem(lo, ls.Location, it)
			if it.IsEngine() {
				engines = append(engines, cmd)
			} else {
				others = append(others, cmd)
			}
		}
		armor = append(armor, NewSetArmor(lo, ls.Location, models.SideFront, ls.Front, ls.FrontManual))
		if ls.Location.TwoSided() {
			armor = append(armor, NewSetArmor(lo, ls.Location, models.SideBack, ls.Back, ls.BackManual))
		}
	}
	cmds = append(cmds, engines...)
	cmds = append(cmds, others...)
	cmds = append(cmds, armor...)

	if err := NewComposite(lo, "restore "+snap.Chassis, cmds...).Apply(); err != nil {
		return nil, err
	}
	return lo, nil
}
