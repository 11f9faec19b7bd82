package catalog

import (
	"fmt"

	"github.com/lisongmechlab/lsml-sub002/internal/apperrors"
	"github.com/lisongmechlab/lsml-sub002/internal/models"
)

// UpgradeSet holds every upgrade choice of a catalog, in document order per
// category.
type UpgradeSet struct {
	Structures []*models.StructureUpgrade
	Armors     []*models.ArmorUpgrade
	HeatSinks  []*models.HeatSinkUpgrade
	Guidances  []*models.GuidanceUpgrade
}

func (s *UpgradeSet) add(d *UpgradeDoc, items map[string]*models.Item) error {
	faction, err := models.ParseFaction(d.Faction)
	if err != nil {
		return err
	}
	if d.ID == "" {
		return fmt.Errorf("missing id")
	}
	if s.has(d.ID) {
		return fmt.Errorf("duplicate id")
	}
	name := orDefault(d.Name, d.ID)
	switch d.Category {
	case CategoryStructure:
		if d.MassFactor <= 0 {
			return fmt.Errorf("mass_factor must be positive")
		}
		s.Structures = append(s.Structures, &models.StructureUpgrade{
			ID: d.ID, Name: name, MassFactor: d.MassFactor, DynamicSlots: d.DynamicSlots, Faction: faction,
		})
	case CategoryArmor:
		if d.PointsPerTon <= 0 {
			return fmt.Errorf("points_per_ton must be positive")
		}
		s.Armors = append(s.Armors, &models.ArmorUpgrade{
			ID: d.ID, Name: name, PointsPerTon: d.PointsPerTon, DynamicSlots: d.DynamicSlots, Faction: faction,
		})
	case CategoryHeatSink:
		hs, ok := items[d.HeatSink]
		if !ok {
			return fmt.Errorf("unknown heat sink item %q", d.HeatSink)
		}
		if !hs.IsHeatSink() {
			return fmt.Errorf("item %q is not a heat sink", d.HeatSink)
		}
		s.HeatSinks = append(s.HeatSinks, &models.HeatSinkUpgrade{ID: d.ID, Name: name, HeatSink: hs, Faction: faction})
	case CategoryGuidance:
		s.Guidances = append(s.Guidances, &models.GuidanceUpgrade{
			ID: d.ID, Name: name, ExtraSlots: d.ExtraSlots, ExtraMass: d.ExtraMass, Faction: faction,
		})
	default:
		return fmt.Errorf("unknown category %q", d.Category)
	}
	return nil
}

func (s *UpgradeSet) has(id string) bool {
	_, err := s.Structure(id)
	if err == nil {
		return true
	}
	if _, err := s.Armor(id); err == nil {
		return true
	}
	if _, err := s.HeatSink(id); err == nil {
		return true
	}
	_, err = s.Guidance(id)
	return err == nil
}

func (s *UpgradeSet) complete() error {
	switch {
	case len(s.Structures) == 0:
		return fmt.Errorf("catalog has no structure upgrade")
	case len(s.Armors) == 0:
		return fmt.Errorf("catalog has no armor upgrade")
	case len(s.HeatSinks) == 0:
		return fmt.Errorf("catalog has no heat sink upgrade")
	case len(s.Guidances) == 0:
		return fmt.Errorf("catalog has no guidance upgrade")
	}
	return nil
}

func notFound(kind, id string) error {
	return apperrors.WithMetadata(apperrors.CodeNotFound, kind+" upgrade not found", map[string]string{"upgrade": id})
}

func (s *UpgradeSet) Structure(id string) (*models.StructureUpgrade, error) {
	for _, u := range s.Structures {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, notFound(CategoryStructure, id)
}

func (s *UpgradeSet) Armor(id string) (*models.ArmorUpgrade, error) {
	for _, u := range s.Armors {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, notFound(CategoryArmor, id)
}

func (s *UpgradeSet) HeatSink(id string) (*models.HeatSinkUpgrade, error) {
	for _, u := range s.HeatSinks {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, notFound(CategoryHeatSink, id)
}

func (s *UpgradeSet) Guidance(id string) (*models.GuidanceUpgrade, error) {
	for _, u := range s.Guidances {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, notFound(CategoryGuidance, id)
}

// Defaults returns the first upgrade of each category usable by a chassis of
// the given faction. Catalogs list the standard variants first.
func (s *UpgradeSet) Defaults(f models.Faction) models.Upgrades {
	var u models.Upgrades
	for _, x := range s.Structures {
		if x.Faction.CompatibleWith(f) {
			u.Structure = x
			break
		}
	}
	for _, x := range s.Armors {
		if x.Faction.CompatibleWith(f) {
			u.Armor = x
			break
		}
	}
	for _, x := range s.HeatSinks {
		if x.Faction.CompatibleWith(f) {
			u.HeatSinks = x
			break
		}
	}
	for _, x := range s.Guidances {
		if x.Faction.CompatibleWith(f) {
			u.Guidance = x
			break
		}
	}
	return u
}
