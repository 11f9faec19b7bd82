package ingestion

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"unicode"

	"github.com/lisongmechlab/lsml-sub002/internal/apperrors"
	"github.com/lisongmechlab/lsml-sub002/internal/catalog"
	"github.com/lisongmechlab/lsml-sub002/internal/events"
	"github.com/lisongmechlab/lsml-sub002/internal/loadout"
	"github.com/lisongmechlab/lsml-sub002/internal/models"
)

// Rejection is equipment that was recognised but could not be equipped.
type Rejection struct {
	Location models.Location
	Item     string
	Reason   string
}

// Import is the outcome of ToLoadout. Unknown and Rejected equipment does not
// fail the import; the loadout holds whatever could be applied.
type Import struct {
	Loadout  *loadout.Loadout
	Unknown  []string
	Rejected []Rejection
}

// OK reports whether every line of the file made it into the loadout.
func (im *Import) OK() bool {
	return len(im.Unknown) == 0 && len(im.Rejected) == 0
}

func (im *Import) reject(loc models.Location, item string, err error) {
	im.Rejected = append(im.Rejected, Rejection{Location: loc, Item: item, Reason: err.Error()})
}

var mtfLocations = map[string]models.Location{
	"Head":         models.Head,
	"Left Arm":     models.LeftArm,
	"Left Torso":   models.LeftTorso,
	"Center Torso": models.CenterTorso,
	"Right Torso":  models.RightTorso,
	"Right Arm":    models.RightArm,
	"Left Leg":     models.LeftLeg,
	"Right Leg":    models.RightLeg,
}

var rearArmorKeys = map[string]models.Location{
	"RTL": models.LeftTorso,
	"RTC": models.CenterTorso,
	"RTR": models.RightTorso,
}

// itemAliases maps normalised MegaMek spellings to catalog ids where the
// display name differs.
var itemAliases = map[string]string{
	"autocannon20":     "ac-20",
	"autocannon10":     "ac-10",
	"autocannon5":      "ac-5",
	"particlecannon":   "ppc",
	"ams":              "ams",
	"guardianecmsuite": "guardian-ecm",
	"ecmsuite":         "guardian-ecm",
	"singleheatsink":   "hs-single",
}

// ammoFamilies maps a fragment of a normalised ammo name to the catalog ammo
// id. The first matching fragment wins.
var ammoFamilies = []struct{ fragment, id string }{
	{"antimissile", "ammo-ams"},
	{"ams", "ammo-ams"},
	{"lrm", "ammo-lrm"},
	{"srm", "ammo-srm"},
	{"gauss", "ammo-gauss"},
	{"ac20", "ammo-ac20"},
	{"ac10", "ammo-ac10"},
	{"ac5", "ammo-ac5"},
	{"machinegun", "ammo-mg"},
	{"mg", "ammo-mg"},
}

// normalize lower-cases a name, drops everything but letters and digits and
// strips the MegaMek tech base prefix.
func normalize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	key := b.String()
	for _, prefix := range []string{"clan", "is", "cl"} {
		if rest, ok := strings.CutPrefix(key, prefix); ok && rest != "" {
			return rest
		}
	}
	return key
}

// resolver maps critical slot lines to catalog items.
type resolver struct {
	byKey   map[string][]*models.Item
	cat     catalog.Catalog
	chassis *models.Chassis
}

func newResolver(cat catalog.Catalog, ch *models.Chassis) *resolver {
	r := &resolver{byKey: make(map[string][]*models.Item), cat: cat, chassis: ch}
	for _, it := range cat.AllItems() {
		k := normalize(it.Name)
		r.byKey[k] = append(r.byKey[k], it)
	}
	return r
}

type lineKind int

const (
	lineItem lineKind = iota
	lineSkip
	lineGuidance
	lineUnknown
)

// resolve classifies one critical slot line.
func (r *resolver) resolve(line string) (lineKind, *models.Item) {
	key := normalize(line)
	switch {
	case key == "" || key == "empty":
		return lineSkip, nil
	case strings.Contains(key, "engine"):
		// Engine and side filler slots follow from the engine line.
		return lineSkip, nil
	case strings.Contains(key, "endo") || strings.Contains(key, "ferro"):
		// Dynamic upgrade slots float.
		return lineSkip, nil
	case strings.Contains(key, "ammo"):
		for _, f := range ammoFamilies {
			if strings.Contains(key, f.fragment) {
				if it, err := r.cat.Item(f.id); err == nil {
					return lineItem, it
				}
			}
		}
		return lineUnknown, nil
	case strings.Contains(key, "artemis"):
		return lineGuidance, nil
	case key == "jumpjet":
		for _, it := range r.cat.AllItems() {
			if it.IsJumpJet() && it.JumpJet.Supports(r.chassis.Tonnage) {
				return lineItem, it
			}
		}
		return lineUnknown, nil
	}
	if id, ok := itemAliases[key]; ok {
		if it, err := r.cat.Item(id); err == nil {
			return r.classify(it), it
		}
	}
	var fallback *models.Item
	for _, it := range r.byKey[key] {
		if it.Faction.CompatibleWith(r.chassis.Faction) {
			return r.classify(it), it
		}
		fallback = it
	}
	if fallback != nil {
		return r.classify(fallback), fallback
	}
	return lineUnknown, nil
}

func (r *resolver) classify(it *models.Item) lineKind {
	if it.Internal {
		return lineSkip
	}
	return lineItem
}

// ToLoadout builds a loadout for the chassis the file names. Upgrades are
// applied first, then the engine, the equipment of every location, heat sinks
// housed in the engine and finally armor. Each step is a command; steps that
// fail are recorded and skipped.
func ToLoadout(cat catalog.Catalog, data *MTFData, pub events.Publisher) (*Import, error) {
	ch, err := findChassis(cat, data)
	if err != nil {
		return nil, err
	}
	im := &Import{Loadout: loadout.New(ch, cat.Upgrades().Defaults(ch.Faction), pub)}
	lo := im.Loadout
	res := newResolver(cat, ch)

	applyUpgrades(im, cat.Upgrades(), data, res)

	engine := findEngine(cat, ch, data)
	if engine == nil && data.EngineRating > 0 {
		im.Unknown = append(im.Unknown, fmt.Sprintf("%d %s", data.EngineRating, data.EngineType))
	}
	if engine != nil {
		if err := loadout.NewAddItem(lo, models.CenterTorso, engine).Apply(); err != nil {
			im.reject(models.CenterTorso, engine.Name, err)
		}
	}

	listedSinks := 0
	for _, name := range sortedKeys(data.LocationEquipment) {
		loc, ok := mtfLocations[name]
		if !ok {
			im.Unknown = append(im.Unknown, "location "+name)
			continue
		}
		for _, it := range groupSlots(res, data.LocationEquipment[name], im) {
			if it.IsHeatSink() {
				listedSinks++
			}
			if err := loadout.NewAddItem(lo, loc, it).Apply(); err != nil {
				im.reject(loc, it.Name, err)
			}
		}
	}

	if engine != nil && lo.Upgrades().HeatSinks != nil {
		housed := data.HeatSinkCount - engine.Engine.InternalHeatSinks() - listedSinks
		hs := lo.Upgrades().HeatSinks.HeatSink
		for i := 0; i < housed; i++ {
			if err := loadout.NewAddItem(lo, models.CenterTorso, hs).Apply(); err != nil {
				im.reject(models.CenterTorso, hs.Name, err)
				break
			}
		}
	}

	applyArmor(im, data)
	return im, nil
}

func findChassis(cat catalog.Catalog, data *MTFData) (*models.Chassis, error) {
	name := data.FullName()
	model := strings.ToLower(data.Model)
	for _, ch := range cat.AllChassis() {
		if strings.EqualFold(ch.Name, name) || (model != "" && ch.ID == model) {
			return ch, nil
		}
	}
	return nil, apperrors.WithMetadata(apperrors.CodeNotFound, "chassis not found", map[string]string{"chassis": name})
}

func findEngine(cat catalog.Catalog, ch *models.Chassis, data *MTFData) *models.Item {
	typ := models.EngineStandard
	desc := strings.ToLower(data.EngineType)
	switch {
	case strings.Contains(desc, "xl"):
		typ = models.EngineXL
	case strings.Contains(desc, "light"):
		typ = models.EngineLight
	}
	for _, it := range cat.AllItems() {
		if it.IsEngine() && it.Engine.Rating == data.EngineRating && it.Engine.Type == typ && it.Faction.CompatibleWith(ch.Faction) {
			return it
		}
	}
	return nil
}

// groupSlots folds consecutive critical slot lines of one multi-slot item
// into a single item.
func groupSlots(res *resolver, lines []string, im *Import) []*models.Item {
	var out []*models.Item
	var prev *models.Item
	run := 0
	for _, line := range lines {
		kind, it := res.resolve(line)
		switch kind {
		case lineUnknown:
			im.Unknown = append(im.Unknown, line)
			prev = nil
			continue
		case lineItem:
		default:
			prev = nil
			continue
		}
		if it == prev && run < it.Slots {
			run++
			continue
		}
		out = append(out, it)
		prev, run = it, 1
	}
	return out
}

func applyUpgrades(im *Import, set *catalog.UpgradeSet, data *MTFData, res *resolver) {
	lo := im.Loadout
	f := lo.Chassis().Faction
	var cmds []loadout.Command

	if strings.Contains(strings.ToLower(data.Structure), "endo") {
		for _, s := range set.Structures {
			if s.DynamicSlots > 0 && s.Faction.CompatibleWith(f) {
				cmds = append(cmds, loadout.NewSetStructure(lo, s))
				break
			}
		}
	}
	if strings.Contains(strings.ToLower(data.ArmorType), "ferro") {
		for _, a := range set.Armors {
			if a.DynamicSlots > 0 && a.Faction.CompatibleWith(f) {
				cmds = append(cmds, loadout.NewSetArmorType(lo, a))
				break
			}
		}
	}
	if strings.Contains(strings.ToLower(data.HeatSinkType), "double") {
		for _, h := range set.HeatSinks {
			if h.HeatSink != nil && strings.Contains(strings.ToLower(h.HeatSink.Name), "double") && h.Faction.CompatibleWith(f) {
				cmds = append(cmds, loadout.NewSetHeatSinks(lo, h))
				break
			}
		}
	}
	if usesGuidance(res, data) {
		for _, g := range set.Guidances {
			if g.ExtraSlots > 0 && g.Faction.CompatibleWith(f) {
				cmds = append(cmds, loadout.NewSetGuidance(lo, g))
				break
			}
		}
	}
	for _, c := range cmds {
		if err := c.Apply(); err != nil {
			im.reject(models.CenterTorso, c.Describe(), err)
		}
	}
}

func usesGuidance(res *resolver, data *MTFData) bool {
	for _, lines := range data.LocationEquipment {
		for _, line := range lines {
			if kind, _ := res.resolve(line); kind == lineGuidance {
				return true
			}
		}
	}
	return false
}

func applyArmor(im *Import, data *MTFData) {
	lo := im.Loadout
	for _, key := range sortedKeys(data.ArmorValues) {
		points := data.ArmorValues[key]
		loc, side := models.Location(0), models.SideFront
		if l, ok := rearArmorKeys[key]; ok {
			loc, side = l, models.SideBack
		} else {
			l, err := models.ParseLocation(key)
			if err != nil {
				im.Unknown = append(im.Unknown, key+" armor")
				continue
			}
			loc = l
		}
		if err := loadout.NewSetArmor(lo, loc, side, points, false).Apply(); err != nil {
			im.reject(loc, fmt.Sprintf("%s armor", side), err)
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
