package stats

import "fmt"

// Attribute is one derived quantity of a loadout.
type Attribute int

const (
	TopSpeed Attribute = iota
	HeatCapacity
	HeatDissipation
	JumpJets
	ArmorTotal
	MissileTubes
	AlphaDamage
	AlphaHeat
)

// Attributes lists every attribute in a stable order.
var Attributes = []Attribute{TopSpeed, HeatCapacity, HeatDissipation, JumpJets, ArmorTotal, MissileTubes, AlphaDamage, AlphaHeat}

var attributeNames = map[Attribute]string{
	TopSpeed:        "top_speed",
	HeatCapacity:    "heat_capacity",
	HeatDissipation: "heat_dissipation",
	JumpJets:        "jump_jets",
	ArmorTotal:      "armor_total",
	MissileTubes:    "missile_tubes",
	AlphaDamage:     "alpha_damage",
	AlphaHeat:       "alpha_heat",
}

func (a Attribute) String() string {
	if s, ok := attributeNames[a]; ok {
		return s
	}
	return fmt.Sprintf("Attribute(%d)", int(a))
}

func (a Attribute) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Attribute) UnmarshalText(b []byte) error {
	v, err := ParseAttribute(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// ParseAttribute maps "top_speed", "heat_capacity", ... to an Attribute.
func ParseAttribute(s string) (Attribute, error) {
	for a, name := range attributeNames {
		if name == s {
			return a, nil
		}
	}
	return 0, fmt.Errorf("unknown attribute %q", s)
}

// Op is how a modifier combines with the base value.
type Op int

const (
	// OpAdd adds Value to the base.
	OpAdd Op = iota
	// OpMultiply scales the sum by 1+Value. Multipliers of one attribute add up
	// before scaling.
	OpMultiply
)

// Modifier changes one attribute, e.g. a quirk giving +10% top speed.
type Modifier struct {
	Attribute Attribute `json:"attribute"`
	Op        Op        `json:"op"`
	Value     float64   `json:"value"`
}

// Apply returns (base + additions) * (1 + multipliers) for the modifiers that
// target attr.
func Apply(attr Attribute, base float64, mods []Modifier) float64 {
	add, mul := 0.0, 0.0
	for _, m := range mods {
		if m.Attribute != attr {
			continue
		}
		switch m.Op {
		case OpAdd:
			add += m.Value
		case OpMultiply:
			mul += m.Value
		}
	}
	return (base + add) * (1 + mul)
}
