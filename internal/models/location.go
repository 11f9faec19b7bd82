package models

import "fmt"

// Location is one of the eight fixed mounting areas of a chassis.
type Location int

const (
	Head Location = iota
	LeftArm
	LeftTorso
	CenterTorso
	RightTorso
	RightArm
	LeftLeg
	RightLeg
)

// LocationCount is the number of mounting areas on every chassis.
const LocationCount = 8

// Locations lists every location in declaration order.
var Locations = [LocationCount]Location{Head, LeftArm, LeftTorso, CenterTorso, RightTorso, RightArm, LeftLeg, RightLeg}

// SearchOrder is the order in which placement and dynamic-slot filling visit locations.
var SearchOrder = [LocationCount]Location{RightArm, RightTorso, RightLeg, Head, CenterTorso, LeftTorso, LeftLeg, LeftArm}

var locationCodes = [LocationCount]string{"HD", "LA", "LT", "CT", "RT", "RA", "LL", "RL"}

var locationNames = [LocationCount]string{
	"Head", "Left Arm", "Left Torso", "Center Torso", "Right Torso", "Right Arm", "Left Leg", "Right Leg",
}

// Valid reports whether l names one of the eight locations.
func (l Location) Valid() bool {
	return l >= Head && l <= RightLeg
}

// Code returns the short MTF-style code, e.g. "CT".
func (l Location) Code() string {
	if !l.Valid() {
		return fmt.Sprintf("Location(%d)", int(l))
	}
	return locationCodes[l]
}

// Name returns the display name, e.g. "Center Torso".
func (l Location) Name() string {
	if !l.Valid() {
		return l.Code()
	}
	return locationNames[l]
}

func (l Location) String() string {
	return l.Code()
}

// TwoSided reports whether the location carries separate front and back armor.
func (l Location) TwoSided() bool {
	return l == LeftTorso || l == CenterTorso || l == RightTorso
}

// IsSideTorso reports whether l is the left or right torso.
func (l Location) IsSideTorso() bool {
	return l == LeftTorso || l == RightTorso
}

// IsArm reports whether l is the left or right arm.
func (l Location) IsArm() bool {
	return l == LeftArm || l == RightArm
}

// IsLeg reports whether l is the left or right leg.
func (l Location) IsLeg() bool {
	return l == LeftLeg || l == RightLeg
}

// Opposite mirrors a left location to its right counterpart and vice versa.
// Head and center torso are their own opposite.
func (l Location) Opposite() Location {
	switch l {
	case LeftArm:
		return RightArm
	case RightArm:
		return LeftArm
	case LeftTorso:
		return RightTorso
	case RightTorso:
		return LeftTorso
	case LeftLeg:
		return RightLeg
	case RightLeg:
		return LeftLeg
	default:
		return l
	}
}

// AdjoiningTorso returns the torso an arm is mounted on.
func (l Location) AdjoiningTorso() (Location, bool) {
	switch l {
	case LeftArm:
		return LeftTorso, true
	case RightArm:
		return RightTorso, true
	default:
		return l, false
	}
}

// ParseLocation accepts either the short code ("RT") or the display name ("Right Torso").
func ParseLocation(s string) (Location, error) {
	for i := range locationCodes {
		if s == locationCodes[i] || s == locationNames[i] {
			return Location(i), nil
		}
	}
	return 0, fmt.Errorf("unknown location %q", s)
}

func (l Location) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("invalid location %d", int(l))
	}
	return []byte(l.Code()), nil
}

func (l *Location) UnmarshalText(b []byte) error {
	loc, err := ParseLocation(string(b))
	if err != nil {
		return err
	}
	*l = loc
	return nil
}

// ArmorSide selects the front or back armor of a location. One-sided
// locations only use SideFront.
type ArmorSide int

const (
	SideFront ArmorSide = iota
	SideBack
)

func (s ArmorSide) String() string {
	if s == SideBack {
		return "back"
	}
	return "front"
}

// ParseArmorSide accepts "front" or "back".
func ParseArmorSide(s string) (ArmorSide, error) {
	switch s {
	case "front", "":
		return SideFront, nil
	case "back":
		return SideBack, nil
	}
	return 0, fmt.Errorf("unknown armor side %q", s)
}
