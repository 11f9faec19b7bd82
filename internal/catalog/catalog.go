// Package catalog provides read-only lookup of chassis, items and upgrades.
package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/lisongmechlab/lsml-sub002/internal/apperrors"
	"github.com/lisongmechlab/lsml-sub002/internal/models"
)

// Catalog looks up immutable game data by stable id. Returned values are
// shared and must not be modified.
type Catalog interface {
	Chassis(id string) (*models.Chassis, error)
	Item(id string) (*models.Item, error)
	Upgrades() *UpgradeSet
	AllChassis() []*models.Chassis
	AllItems() []*models.Item
}

type memory struct {
	items        map[string]*models.Item
	itemOrder    []*models.Item
	chassis      map[string]*models.Chassis
	chassisOrder []*models.Chassis
	upgrades     *UpgradeSet
}

// NewMemory builds a catalog from a decoded document, rejecting dangling
// references and malformed entries.
func NewMemory(doc *Document) (Catalog, error) {
	m, err := resolve(doc)
	if err != nil {
		return nil, fmt.Errorf("resolving catalog: %w", err)
	}
	return m, nil
}

// LoadYAML decodes a YAML document and builds a catalog from it.
func LoadYAML(r io.Reader) (Catalog, error) {
	doc, err := DecodeYAML(r)
	if err != nil {
		return nil, err
	}
	return NewMemory(doc)
}

// DecodeYAML decodes a YAML catalog document without resolving it.
func DecodeYAML(r io.Reader) (*Document, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding catalog yaml: %w", err)
	}
	return &doc, nil
}

//go:embed builtin.yaml
var builtinYAML []byte

var (
	builtinOnce sync.Once
	builtinCat  Catalog
	builtinErr  error
)

// Builtin returns the catalog embedded in the binary. It is parsed once.
func Builtin() (Catalog, error) {
	builtinOnce.Do(func() {
		builtinCat, builtinErr = LoadYAML(bytes.NewReader(builtinYAML))
	})
	return builtinCat, builtinErr
}

// BuiltinDocument returns a freshly decoded copy of the embedded document.
func BuiltinDocument() (*Document, error) {
	return DecodeYAML(bytes.NewReader(builtinYAML))
}

func (m *memory) Chassis(id string) (*models.Chassis, error) {
	ch, ok := m.chassis[id]
	if !ok {
		return nil, apperrors.WithMetadata(apperrors.CodeNotFound, "chassis not found", map[string]string{"chassis": id})
	}
	return ch, nil
}

func (m *memory) Item(id string) (*models.Item, error) {
	it, ok := m.items[id]
	if !ok {
		return nil, apperrors.WithMetadata(apperrors.CodeNotFound, "item not found", map[string]string{"item": id})
	}
	return it, nil
}

func (m *memory) Upgrades() *UpgradeSet {
	return m.upgrades
}

func (m *memory) AllChassis() []*models.Chassis {
	return append([]*models.Chassis(nil), m.chassisOrder...)
}

func (m *memory) AllItems() []*models.Item {
	return append([]*models.Item(nil), m.itemOrder...)
}
