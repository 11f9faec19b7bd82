package models

// HeadArmorMax is the armor cap of the head regardless of chassis.
const HeadArmorMax = 18

// Hardpoint is one typed mounting point on a component. Tubes is only set on
// missile hardpoints.
type Hardpoint struct {
	Type  HardpointType `json:"type"`
	Tubes int           `json:"tubes,omitempty"`
}

// Component is the immutable per-location template of a chassis.
type Component struct {
	Location   Location    `json:"location"`
	Slots      int         `json:"slots"`
	HitPoints  int         `json:"hit_points"`
	Fixed      []*Item     `json:"fixed,omitempty"`
	Hardpoints []Hardpoint `json:"hardpoints,omitempty"`
	// ReservedSlots are structure/armor slots locked into this location by the
	// chassis, as on OmniMechs.
	ReservedSlots int `json:"reserved_slots,omitempty"`
}

// ArmorMax is the maximum total armor (front plus back) of the location.
func (c *Component) ArmorMax() int {
	if c.Location == Head {
		return HeadArmorMax
	}
	return c.HitPoints * 2
}

// HardpointCount returns the number of hardpoints of the given type.
func (c *Component) HardpointCount(t HardpointType) int {
	n := 0
	for _, hp := range c.Hardpoints {
		if hp.Type == t {
			n++
		}
	}
	return n
}

// FixedSlots is the number of slots taken by fixed items.
func (c *Component) FixedSlots() int {
	n := 0
	for _, it := range c.Fixed {
		n += it.Slots
	}
	return n
}

// Chassis is the immutable template a loadout is created from.
type Chassis struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Series    string  `json:"series,omitempty"`
	Tonnage   int     `json:"tonnage"`
	Faction   Faction `json:"faction"`
	EngineMin int     `json:"engine_min"`
	EngineMax int     `json:"engine_max"`
	// JumpJetsMax is zero on chassis that cannot mount jump jets.
	JumpJetsMax int                      `json:"jump_jets_max"`
	Components  [LocationCount]Component `json:"components"`
}

// Component returns the template of the given location.
func (c *Chassis) Component(l Location) *Component {
	return &c.Components[l]
}

// SupportsJumpJets reports whether the chassis can mount any jump jet.
func (c *Chassis) SupportsJumpJets() bool {
	return c.JumpJetsMax > 0
}

// SupportsEngine reports whether the rating is inside the chassis engine window.
func (c *Chassis) SupportsEngine(rating int) bool {
	return rating >= c.EngineMin && rating <= c.EngineMax
}

// SlotsTotal is the sum of critical slots over every location.
func (c *Chassis) SlotsTotal() int {
	n := 0
	for i := range c.Components {
		n += c.Components[i].Slots
	}
	return n
}

// ArmorMax is the sum of per-location armor maxima.
func (c *Chassis) ArmorMax() int {
	n := 0
	for i := range c.Components {
		n += c.Components[i].ArmorMax()
	}
	return n
}

// HardpointCount returns the number of hardpoints of the given type over the chassis.
func (c *Chassis) HardpointCount(t HardpointType) int {
	n := 0
	for i := range c.Components {
		n += c.Components[i].HardpointCount(t)
	}
	return n
}
