// Package loadout holds the mutable configuration of one chassis instance and
// the reversible commands that change it.
//
// A Loadout is not safe for concurrent use. Mutations go through Command
// values; the unexported mutators below perform no validation of their own.
package loadout

import (
	"bytes"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/lisongmechlab/lsml-sub002/internal/events"
	"github.com/lisongmechlab/lsml-sub002/internal/models"
	"github.com/lisongmechlab/lsml-sub002/internal/rules"
)

type component struct {
	items  []*models.Item
	armor  [2]int
	manual [2]bool
}

// Loadout is a chassis with equipped items, armor and upgrade choices.
type Loadout struct {
	chassis  *models.Chassis
	upgrades models.Upgrades
	comps    [models.LocationCount]component

	pub        events.Publisher
	batchDepth int
	batch      []events.Event
}

var _ rules.Configuration = (*Loadout)(nil)

// New creates an empty loadout: fixed items only, zero armor. A nil publisher
// discards events.
func New(ch *models.Chassis, up models.Upgrades, pub events.Publisher) *Loadout {
	if pub == nil {
		pub = events.Discard
	}
	lo := &Loadout{chassis: ch, upgrades: up, pub: pub}
	for _, loc := range models.Locations {
		lo.comps[loc].items = append([]*models.Item(nil), ch.Component(loc).Fixed...)
	}
	return lo
}

func (lo *Loadout) Chassis() *models.Chassis  { return lo.chassis }
func (lo *Loadout) Upgrades() models.Upgrades { return lo.upgrades }

// Items returns every item in the location, fixed items first. The slice is
// owned by the loadout.
func (lo *Loadout) Items(loc models.Location) []*models.Item {
	return lo.comps[loc].items
}

// Placed is an item together with the location it is equipped in.
type Placed struct {
	Location models.Location
	Item     *models.Item
}

// Equipped lists the user-equipped items, skipping fixed and internal ones,
// in location order.
func (lo *Loadout) Equipped() []Placed {
	var out []Placed
	for _, loc := range models.Locations {
		for _, it := range lo.removable(loc) {
			out = append(out, Placed{Location: loc, Item: it})
		}
	}
	return out
}

// removable returns the items of loc that are neither fixed nor internal.
func (lo *Loadout) removable(loc models.Location) []*models.Item {
	items := lo.comps[loc].items[len(lo.chassis.Component(loc).Fixed):]
	out := make([]*models.Item, 0, len(items))
	for _, it := range items {
		if !it.Internal {
			out = append(out, it)
		}
	}
	return out
}

// Movable reports whether a removable copy of item is equipped in loc.
func (lo *Loadout) Movable(loc models.Location, item *models.Item) bool {
	if item.Internal {
		return false
	}
	for _, it := range lo.comps[loc].items[len(lo.chassis.Component(loc).Fixed):] {
		if it.ID == item.ID {
			return true
		}
	}
	return false
}

// Count returns how many copies of the item id are equipped anywhere.
func (lo *Loadout) Count(id string) int {
	n := 0
	for _, loc := range models.Locations {
		for _, it := range lo.comps[loc].items {
			if it.ID == id {
				n++
			}
		}
	}
	return n
}

// Engine returns the equipped engine, or nil.
func (lo *Loadout) Engine() *models.Item {
	return rules.Engine(lo)
}

func (lo *Loadout) Armor(loc models.Location, side models.ArmorSide) int {
	return lo.comps[loc].armor[side]
}

// ArmorTotal is front plus back armor of a location.
func (lo *Loadout) ArmorTotal(loc models.Location) int {
	a := lo.comps[loc].armor
	return a[models.SideFront] + a[models.SideBack]
}

// ArmorPoints is the armor of all locations combined.
func (lo *Loadout) ArmorPoints() int {
	n := 0
	for _, loc := range models.Locations {
		n += lo.ArmorTotal(loc)
	}
	return n
}

// ArmorMax is the armor cap of a location.
func (lo *Loadout) ArmorMax(loc models.Location) int {
	return lo.chassis.Component(loc).ArmorMax()
}

// Manual reports whether a side was set by hand.
func (lo *Loadout) Manual(loc models.Location, side models.ArmorSide) bool {
	return lo.comps[loc].manual[side]
}

// Pinned reports whether automatic armor distribution must leave loc alone.
func (lo *Loadout) Pinned(loc models.Location) bool {
	m := lo.comps[loc].manual
	return m[models.SideFront] || m[models.SideBack]
}

// ArmorMass is the tonnage of the current armor.
func (lo *Loadout) ArmorMass() float64 {
	return lo.upgrades.Armor.Mass(lo.ArmorPoints())
}

// MassWithoutArmor is structure plus items.
func (lo *Loadout) MassWithoutArmor() float64 {
	m := lo.upgrades.Structure.Mass(lo.chassis.Tonnage)
	for _, loc := range models.Locations {
		for _, it := range lo.comps[loc].items {
			m += lo.upgrades.Mass(it)
		}
	}
	return m
}

// Mass is the total mass of the loadout.
func (lo *Loadout) Mass() float64 {
	return lo.MassWithoutArmor() + lo.ArmorMass()
}

// Clone returns a structurally independent copy that publishes nothing.
func (lo *Loadout) Clone() *Loadout {
	c := &Loadout{chassis: lo.chassis, upgrades: lo.upgrades, pub: events.Discard}
	for i := range lo.comps {
		c.comps[i] = component{
			items:  slices.Clone(lo.comps[i].items),
			armor:  lo.comps[i].armor,
			manual: lo.comps[i].manual,
		}
	}
	return c
}

// Key is a canonical encoding of the loadout: item order inside a location
// does not matter.
func (lo *Loadout) Key() []byte {
	var b bytes.Buffer
	b.WriteString(lo.chassis.ID)
	for _, id := range lo.upgradeIDs() {
		b.WriteByte(0)
		b.WriteString(id)
	}
	ids := make([]string, 0, 16)
	for _, loc := range models.Locations {
		c := &lo.comps[loc]
		b.WriteByte(1)
		b.WriteString(loc.Code())
		ids = ids[:0]
		for _, it := range c.items {
			ids = append(ids, it.ID)
		}
		slices.Sort(ids)
		for _, id := range ids {
			b.WriteByte(0)
			b.WriteString(id)
		}
		b.WriteByte(2)
		b.WriteString(strconv.Itoa(c.armor[models.SideFront]))
		b.WriteByte('/')
		b.WriteString(strconv.Itoa(c.armor[models.SideBack]))
	}
	return b.Bytes()
}

// Equal reports whether both loadouts hold the same chassis, upgrades, armor
// and per-location item multisets.
func (lo *Loadout) Equal(o *Loadout) bool {
	return bytes.Equal(lo.Key(), o.Key())
}

func (lo *Loadout) upgradeIDs() [4]string {
	var ids [4]string
	up := lo.upgrades
	if up.Structure != nil {
		ids[0] = up.Structure.ID
	}
	if up.Armor != nil {
		ids[1] = up.Armor.ID
	}
	if up.HeatSinks != nil {
		ids[2] = up.HeatSinks.ID
	}
	if up.Guidance != nil {
		ids[3] = up.Guidance.ID
	}
	return ids
}

// Violations lists every broken invariant.
func (lo *Loadout) Violations() []string {
	out := rules.Violations(lo)
	for _, loc := range models.Locations {
		c := &lo.comps[loc]
		if c.armor[models.SideFront] < 0 || c.armor[models.SideBack] < 0 {
			out = append(out, fmt.Sprintf("%s has negative armor", loc))
		}
		if !loc.TwoSided() && c.armor[models.SideBack] != 0 {
			out = append(out, fmt.Sprintf("%s has back armor", loc))
		}
		if total, limit := lo.ArmorTotal(loc), lo.ArmorMax(loc); total > limit {
			out = append(out, fmt.Sprintf("%s armor %d exceeds %d", loc, total, limit))
		}
	}
	return out
}

// Validate returns an error describing every broken invariant, or nil.
func (lo *Loadout) Validate() error {
	v := lo.Violations()
	if len(v) == 0 {
		return nil
	}
	errs := make([]error, len(v))
	for i, s := range v {
		errs[i] = errors.New(s)
	}
	return fmt.Errorf("invalid loadout %s: %w", lo.chassis.ID, errors.Join(errs...))
}

func (lo *Loadout) String() string {
	return fmt.Sprintf("%s (%.2f/%d t)", lo.chassis.Name, lo.Mass(), lo.chassis.Tonnage)
}

// Mutators. They keep no history and do not validate.

func (lo *Loadout) addItem(loc models.Location, it *models.Item) {
	lo.comps[loc].items = append(lo.comps[loc].items, it)
}

// removeItem removes the last copy of it from loc. Fixed items sit at the
// front of the list and are therefore never picked while a user copy exists.
func (lo *Loadout) removeItem(loc models.Location, it *models.Item) bool {
	items := lo.comps[loc].items
	fixed := len(lo.chassis.Component(loc).Fixed)
	for i := len(items) - 1; i >= fixed; i-- {
		if items[i].ID == it.ID {
			lo.comps[loc].items = slices.Delete(items, i, i+1)
			return true
		}
	}
	return false
}

func (lo *Loadout) setArmor(loc models.Location, side models.ArmorSide, amount int, manual bool) {
	lo.comps[loc].armor[side] = amount
	lo.comps[loc].manual[side] = manual
}

// replaceAll substitutes every copy of from with to and returns how many were
// replaced.
func (lo *Loadout) replaceAll(from, to *models.Item) int {
	n := 0
	for _, loc := range models.Locations {
		for i, it := range lo.comps[loc].items {
			if it.ID == from.ID {
				lo.comps[loc].items[i] = to
				n++
			}
		}
	}
	return n
}

func (lo *Loadout) publish(ev events.Event) {
	if lo.batchDepth > 0 {
		lo.batch = append(lo.batch, ev)
		return
	}
	lo.pub.Publish(ev)
}

func (lo *Loadout) beginBatch() {
	lo.batchDepth++
}

// endBatch closes one batch level. The outermost level publishes the buffered
// events on success and drops them on failure.
func (lo *Loadout) endBatch(ok bool) {
	lo.batchDepth--
	if lo.batchDepth > 0 {
		return
	}
	pending := lo.batch
	lo.batch = nil
	if !ok {
		return
	}
	for _, ev := range pending {
		lo.pub.Publish(ev)
	}
}
