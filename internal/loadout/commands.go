package loadout

import (
	"fmt"
	"math"

	"github.com/lisongmechlab/lsml-sub002/internal/apperrors"
	"github.com/lisongmechlab/lsml-sub002/internal/events"
	"github.com/lisongmechlab/lsml-sub002/internal/models"
	"github.com/lisongmechlab/lsml-sub002/internal/rules"
)

// Command is one reversible mutation. Apply either succeeds completely or
// leaves the loadout untouched; Undo reverts a successful Apply.
type Command interface {
	Apply() error
	Undo() error
	Describe() string
}

// Coalescer is implemented by commands that can absorb a directly following
// command of the same kind into a single undo step. next has already been
// applied when Coalesce is called.
type Coalescer interface {
	Coalesce(next Command) bool
}

func violation(message string, meta map[string]string) error {
	return apperrors.WithMetadata(apperrors.CodeConstraintViolation, message, meta)
}

// AddItem equips an item into a location after the full rule check. Engines
// with side fillers also place the fillers in both side torsos.
type AddItem struct {
	lo   *Loadout
	loc  models.Location
	item *models.Item
}

func NewAddItem(lo *Loadout, loc models.Location, item *models.Item) *AddItem {
	return &AddItem{lo: lo, loc: loc, item: item}
}

func (c *AddItem) Apply() error {
	if r := rules.Check(c.lo, c.item, c.loc); r != rules.Success {
		return violation(fmt.Sprintf("cannot add %s to %s: %s", c.item.Name, c.loc.Name(), r), map[string]string{
			"item":     c.item.ID,
			"location": c.loc.Code(),
			"reason":   r.String(),
		})
	}
	c.lo.addItem(c.loc, c.item)
	if c.item.IsEngine() && c.item.Engine.Side != nil {
		c.lo.addItem(models.LeftTorso, c.item.Engine.Side)
		c.lo.addItem(models.RightTorso, c.item.Engine.Side)
	}
	c.lo.publish(events.Event{Type: events.EventItemAdded, Location: c.loc, ItemID: c.item.ID})
	return nil
}

func (c *AddItem) Undo() error {
	if !c.lo.removeItem(c.loc, c.item) {
		return fmt.Errorf("undo add: %s not in %s", c.item.ID, c.loc)
	}
	if c.item.IsEngine() && c.item.Engine.Side != nil {
		c.lo.removeItem(models.LeftTorso, c.item.Engine.Side)
		c.lo.removeItem(models.RightTorso, c.item.Engine.Side)
	}
	c.lo.publish(events.Event{Type: events.EventItemRemoved, Location: c.loc, ItemID: c.item.ID})
	return nil
}

func (c *AddItem) Describe() string {
	return fmt.Sprintf("add %s to %s", c.item.Name, c.loc.Name())
}

// RemoveItem unequips a user item. Removing the engine also removes its side
// fillers and any center torso heat sinks that no longer fit without it.
type RemoveItem struct {
	lo   *Loadout
	loc  models.Location
	item *models.Item

	droppedHeatSinks []*models.Item
}

func NewRemoveItem(lo *Loadout, loc models.Location, item *models.Item) *RemoveItem {
	return &RemoveItem{lo: lo, loc: loc, item: item}
}

func (c *RemoveItem) Apply() error {
	meta := map[string]string{"item": c.item.ID, "location": c.loc.Code()}
	if !c.lo.Movable(c.loc, c.item) {
		return violation(fmt.Sprintf("%s has no removable %s", c.loc.Name(), c.item.Name), meta)
	}
	c.lo.removeItem(c.loc, c.item)
	c.droppedHeatSinks = nil
	if c.item.IsEngine() {
		if side := c.item.Engine.Side; side != nil {
			c.lo.removeItem(models.LeftTorso, side)
			c.lo.removeItem(models.RightTorso, side)
		}
		for rules.SlotsFree(c.lo, models.CenterTorso) < 0 || rules.FreeSlots(c.lo) < 0 {
			hs := c.lastHeatSink()
			if hs == nil {
				break
			}
			c.lo.removeItem(models.CenterTorso, hs)
			c.droppedHeatSinks = append(c.droppedHeatSinks, hs)
		}
	}
	c.lo.publish(events.Event{Type: events.EventItemRemoved, Location: c.loc, ItemID: c.item.ID})
	for _, hs := range c.droppedHeatSinks {
		c.lo.publish(events.Event{Type: events.EventItemRemoved, Location: models.CenterTorso, ItemID: hs.ID})
	}
	return nil
}

func (c *RemoveItem) lastHeatSink() *models.Item {
	items := c.lo.Items(models.CenterTorso)
	for i := len(items) - 1; i >= 0; i-- {
		if items[i].IsHeatSink() {
			return items[i]
		}
	}
	return nil
}

func (c *RemoveItem) Undo() error {
	c.lo.addItem(c.loc, c.item)
	if c.item.IsEngine() && c.item.Engine.Side != nil {
		c.lo.addItem(models.LeftTorso, c.item.Engine.Side)
		c.lo.addItem(models.RightTorso, c.item.Engine.Side)
	}
	c.lo.publish(events.Event{Type: events.EventItemAdded, Location: c.loc, ItemID: c.item.ID})
	for i := len(c.droppedHeatSinks) - 1; i >= 0; i-- {
		hs := c.droppedHeatSinks[i]
		c.lo.addItem(models.CenterTorso, hs)
		c.lo.publish(events.Event{Type: events.EventItemAdded, Location: models.CenterTorso, ItemID: hs.ID})
	}
	return nil
}

func (c *RemoveItem) Describe() string {
	return fmt.Sprintf("remove %s from %s", c.item.Name, c.loc.Name())
}

// SetArmor sets the armor of one side of a location and its manual flag.
type SetArmor struct {
	lo     *Loadout
	loc    models.Location
	side   models.ArmorSide
	amount int
	manual bool

	applied    bool
	prevAmount int
	prevManual bool
}

func NewSetArmor(lo *Loadout, loc models.Location, side models.ArmorSide, amount int, manual bool) *SetArmor {
	return &SetArmor{lo: lo, loc: loc, side: side, amount: amount, manual: manual}
}

// massEpsilon matches the tolerance of the rule engine.
const massEpsilon = 1e-9

func (c *SetArmor) Apply() error {
	meta := map[string]string{"location": c.loc.Code(), "side": c.side.String()}
	if c.side == models.SideBack && !c.loc.TwoSided() {
		return apperrors.WithMetadata(apperrors.CodeInvalidArgument, c.loc.Name()+" has no back armor", meta)
	}
	if c.amount < 0 {
		return violation("armor must not be negative", meta)
	}
	cur := c.lo.Armor(c.loc, c.side)
	other := c.lo.ArmorTotal(c.loc) - cur
	if limit := c.lo.ArmorMax(c.loc); other+c.amount > limit {
		return violation(fmt.Sprintf("%s armor %d exceeds maximum %d", c.loc.Name(), other+c.amount, limit), meta)
	}
	if c.amount > cur {
		points := c.lo.ArmorPoints() - cur + c.amount
		mass := c.lo.MassWithoutArmor() + c.lo.upgrades.Armor.Mass(points)
		if mass > float64(c.lo.chassis.Tonnage)+massEpsilon {
			return violation(fmt.Sprintf("armor would bring mass to %.2f of %d tons", mass, c.lo.chassis.Tonnage), meta)
		}
	}
	c.prevAmount = cur
	c.prevManual = c.lo.Manual(c.loc, c.side)
	c.applied = true
	c.lo.setArmor(c.loc, c.side, c.amount, c.manual)
	c.lo.publish(events.Event{Type: events.EventArmorChanged, Location: c.loc})
	return nil
}

func (c *SetArmor) Undo() error {
	if !c.applied {
		return fmt.Errorf("undo armor: command was not applied")
	}
	c.lo.setArmor(c.loc, c.side, c.prevAmount, c.prevManual)
	c.lo.publish(events.Event{Type: events.EventArmorChanged, Location: c.loc})
	return nil
}

func (c *SetArmor) Describe() string {
	return fmt.Sprintf("set %s %s armor to %d", c.loc.Name(), c.side, c.amount)
}

// Coalesce folds a following armor edit of the same location side into c, so
// dragging a slider undoes in one step.
func (c *SetArmor) Coalesce(next Command) bool {
	n, ok := next.(*SetArmor)
	if !ok || n.lo != c.lo || n.loc != c.loc || n.side != c.side {
		return false
	}
	c.amount = n.amount
	c.manual = n.manual
	return true
}

// upgradeChange is shared by the upgrade commands: the new upgrade set is
// validated on a clone before it touches the loadout.
type upgradeChange struct {
	lo   *Loadout
	name string
	prev models.Upgrades
	next func(models.Upgrades) models.Upgrades
	// substitution of the heat sink item, both nil when unchanged.
	from, to *models.Item
}

func (c *upgradeChange) Apply() error {
	prev := c.lo.upgrades
	next := c.next(prev)

	trial := c.lo.Clone()
	trial.upgrades = next
	if c.from != nil {
		trial.replaceAll(c.from, c.to)
	}
	if v := trial.Violations(); len(v) > 0 {
		return violation(fmt.Sprintf("cannot change to %s: %s", c.name, v[0]), map[string]string{"upgrade": c.name})
	}

	c.prev = prev
	c.lo.upgrades = next
	if c.from != nil {
		c.lo.replaceAll(c.from, c.to)
	}
	c.lo.publish(events.Event{Type: events.EventUpgradeChanged, Upgrade: c.name})
	return nil
}

func (c *upgradeChange) Undo() error {
	c.lo.upgrades = c.prev
	if c.from != nil {
		c.lo.replaceAll(c.to, c.from)
	}
	c.lo.publish(events.Event{Type: events.EventUpgradeChanged, Upgrade: c.name})
	return nil
}

func (c *upgradeChange) Describe() string {
	return "change upgrade to " + c.name
}

func checkFaction(lo *Loadout, name string, f models.Faction) error {
	if !f.CompatibleWith(lo.chassis.Faction) {
		return violation(fmt.Sprintf("%s is not available to %s", name, lo.chassis.Name), map[string]string{"upgrade": name})
	}
	return nil
}

// factionGuard wraps an upgrade change with the chassis faction check.
type factionGuard struct {
	*upgradeChange
	faction models.Faction
}

func (g *factionGuard) Apply() error {
	if err := checkFaction(g.lo, g.name, g.faction); err != nil {
		return err
	}
	return g.upgradeChange.Apply()
}

// NewSetStructure switches the internal structure type.
func NewSetStructure(lo *Loadout, s *models.StructureUpgrade) Command {
	return &factionGuard{faction: s.Faction, upgradeChange: &upgradeChange{
		lo:   lo,
		name: s.ID,
		next: func(u models.Upgrades) models.Upgrades { u.Structure = s; return u },
	}}
}

// NewSetArmorType switches the armor type. Armor points are kept, so the
// armor mass changes with the points-per-ton factor.
func NewSetArmorType(lo *Loadout, a *models.ArmorUpgrade) Command {
	return &factionGuard{faction: a.Faction, upgradeChange: &upgradeChange{
		lo:   lo,
		name: a.ID,
		next: func(u models.Upgrades) models.Upgrades { u.Armor = a; return u },
	}}
}

// NewSetGuidance switches the missile guidance system.
func NewSetGuidance(lo *Loadout, g *models.GuidanceUpgrade) Command {
	return &factionGuard{faction: g.Faction, upgradeChange: &upgradeChange{
		lo:   lo,
		name: g.ID,
		next: func(u models.Upgrades) models.Upgrades { u.Guidance = g; return u },
	}}
}

// NewSetHeatSinks switches the heat sink type and substitutes every equipped
// heat sink with the new item.
func NewSetHeatSinks(lo *Loadout, h *models.HeatSinkUpgrade) Command {
	c := &upgradeChange{
		lo:   lo,
		name: h.ID,
		next: func(u models.Upgrades) models.Upgrades { u.HeatSinks = h; return u },
	}
	if cur := lo.upgrades.HeatSinks; cur != nil && cur.HeatSink != nil && cur.HeatSink.ID != h.HeatSink.ID {
		c.from, c.to = cur.HeatSink, h.HeatSink
	}
	return &factionGuard{faction: h.Faction, upgradeChange: c}
}

// Composite applies its children as one atomic unit. If any child fails the
// already applied ones are undone in reverse order and events are dropped.
type Composite struct {
	lo          *Loadout
	description string
	cmds        []Command
	applied     int
}

func NewComposite(lo *Loadout, description string, cmds ...Command) *Composite {
	return &Composite{lo: lo, description: description, cmds: cmds}
}

// Commands returns the children in application order.
func (c *Composite) Commands() []Command {
	return c.cmds
}

func (c *Composite) Apply() error {
	c.lo.beginBatch()
	for i, cmd := range c.cmds {
		if err := cmd.Apply(); err != nil {
			for j := i - 1; j >= 0; j-- {
				// Undo of a just-applied command cannot fail.
				_ = c.cmds[j].Undo()
			}
			c.lo.endBatch(false)
			return fmt.Errorf("%s: %w", c.description, err)
		}
	}
	c.applied = len(c.cmds)
	c.lo.endBatch(true)
	return nil
}

func (c *Composite) Undo() error {
	c.lo.beginBatch()
	for j := c.applied - 1; j >= 0; j-- {
		if err := c.cmds[j].Undo(); err != nil {
			c.lo.endBatch(false)
			return fmt.Errorf("undo %s: %w", c.description, err)
		}
	}
	c.applied = 0
	c.lo.endBatch(true)
	return nil
}

func (c *Composite) Describe() string {
	return c.description
}

// Reset returns a command that zeroes the armor of every location that is
// not pinned, clearing both manual flags.
func Reset(lo *Loadout) *Composite {
	var cmds []Command
	for _, loc := range models.Locations {
		if lo.Pinned(loc) {
			continue
		}
		cmds = append(cmds, NewSetArmor(lo, loc, models.SideFront, 0, false))
		if loc.TwoSided() {
			cmds = append(cmds, NewSetArmor(lo, loc, models.SideBack, 0, false))
		}
	}
	return NewComposite(lo, "reset armor", cmds...)
}

// MaxArmorPoints is the armor the loadout could carry if all remaining
// tonnage went into armor, before the per-location caps.
func MaxArmorPoints(lo *Loadout) int {
	free := float64(lo.chassis.Tonnage) - lo.MassWithoutArmor()
	if free <= 0 {
		return 0
	}
	return int(math.Floor(free*lo.upgrades.Armor.PointsPerTon + massEpsilon))
}
