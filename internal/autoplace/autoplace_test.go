package autoplace

import (
	"context"
	"strings"

	"github.com/go-logr/logr"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/lisongmechlab/lsml-sub002/internal/apperrors"
	"github.com/lisongmechlab/lsml-sub002/internal/catalog"
	"github.com/lisongmechlab/lsml-sub002/internal/events"
	"github.com/lisongmechlab/lsml-sub002/internal/loadout"
	"github.com/lisongmechlab/lsml-sub002/internal/logging"
	"github.com/lisongmechlab/lsml-sub002/internal/metrics"
	"github.com/lisongmechlab/lsml-sub002/internal/models"
)

// A test chassis with six slots everywhere and a single energy hardpoint in
// the right arm. Widgets are plain filler of different sizes.
const widgetCatalog = `
items:
  - {id: widget-2, name: Widget 2, mass: 1, slots: 2}
  - {id: widget-3, name: Widget 3, mass: 1, slots: 3}
  - {id: laser, name: Laser, kind: weapon, hardpoint: energy, mass: 1, slots: 1}
  - {id: big-laser, name: Big Laser, kind: weapon, hardpoint: energy, mass: 1, slots: 2}
  - {id: hs, kind: heat_sink, mass: 1, slots: 1}
chassis:
  - id: tst-1
    name: Test Chassis
    tonnage: 100
    components:
      - {location: HD, slots: 6, hit_points: 10}
      - {location: LA, slots: 6, hit_points: 10}
      - {location: LT, slots: 6, hit_points: 10}
      - {location: CT, slots: 6, hit_points: 10}
      - {location: RT, slots: 6, hit_points: 10}
      - {location: RA, slots: 6, hit_points: 10, hardpoints: [{type: energy}]}
      - {location: LL, slots: 6, hit_points: 10}
      - {location: RL, slots: 6, hit_points: 10}
upgrades:
  - {id: structure-std, category: structure, mass_factor: 0.1}
  - {id: armor-std, category: armor, points_per_ton: 32}
  - {id: heat-sinks-single, category: heat_sink, heat_sink: hs}
  - {id: guidance-std, category: guidance}
`

type fixture struct {
	cat catalog.Catalog
	lo  *loadout.Loadout
	rec *events.Recorder
}

func newFixture(cat catalog.Catalog, chassisID string) *fixture {
	ch, err := cat.Chassis(chassisID)
	Expect(err).NotTo(HaveOccurred())
	rec := &events.Recorder{}
	return &fixture{cat: cat, lo: loadout.New(ch, cat.Upgrades().Defaults(ch.Faction), rec), rec: rec}
}

func (f *fixture) item(id string) *models.Item {
	it, err := f.cat.Item(id)
	Expect(err).NotTo(HaveOccurred())
	return it
}

func (f *fixture) equip(loc models.Location, ids ...string) {
	for _, id := range ids {
		Expect(loadout.NewAddItem(f.lo, loc, f.item(id)).Apply()).To(Succeed(), id)
	}
}

// multiset counts equipped item ids.
func multiset(lo *loadout.Loadout) map[string]int {
	out := map[string]int{}
	for _, p := range lo.Equipped() {
		out[p.Item.ID]++
	}
	return out
}

func withLogger() context.Context {
	return logr.NewContext(context.Background(), logging.NewTestLogger())
}

var _ = Describe("Placer", func() {
	var (
		builtin catalog.Catalog
		widgets catalog.Catalog
		placer  *Placer
		m       *metrics.Metrics
	)

	BeforeEach(func() {
		var err error
		builtin, err = catalog.Builtin()
		Expect(err).NotTo(HaveOccurred())
		widgets, err = catalog.LoadYAML(strings.NewReader(widgetCatalog))
		Expect(err).NotTo(HaveOccurred())
		m = metrics.New()
		placer = NewPlacer(WithRecorder(m))
	})

	Context("when the item fits directly", func() {
		It("returns a single add without searching", func() {
			f := newFixture(builtin, "hgn-733")
			res, err := placer.Place(withLogger(), f.lo, f.item("medium-laser"))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Ops).To(BeEmpty())
			Expect(res.Nodes).To(Equal(0))
			Expect(res.Location).To(Equal(models.Head))
			Expect(f.lo.Count("medium-laser")).To(Equal(0), "placing does not mutate")

			Expect(res.Command.Apply()).To(Succeed())
			Expect(f.lo.Count("medium-laser")).To(Equal(1))
		})

		It("puts heat sinks into a free engine slot even when the center torso is full", func() {
			f := newFixture(builtin, "hgn-733")
			f.equip(models.CenterTorso, "engine-std-300", "ammo-lrm", "ammo-lrm")

			res, err := placer.Place(context.Background(), f.lo, f.item("hs-single"))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Location).To(Equal(models.CenterTorso))
			Expect(res.Ops).To(BeEmpty())
		})
	})

	Context("when the item can never be equipped", func() {
		It("reports an infeasible request for a faction mismatch", func() {
			f := newFixture(builtin, "hgn-733")
			_, err := placer.Place(context.Background(), f.lo, f.item("clan-er-medium-laser"))
			Expect(apperrors.CodeOf(err)).To(Equal(apperrors.CodeInfeasibleRequest))
		})

		It("reports an infeasible request for an engine outside the rating window", func() {
			f := newFixture(builtin, "hgn-733")
			_, err := placer.Place(context.Background(), f.lo, f.item("engine-std-200"))
			Expect(apperrors.CodeOf(err)).To(Equal(apperrors.CodeInfeasibleRequest))
		})

		It("reports exhaustion without searching when every hardpoint is taken", func() {
			f := newFixture(builtin, "hgn-733")
			f.equip(models.Head, "medium-laser")
			f.equip(models.LeftArm, "medium-laser")
			_, err := placer.Place(context.Background(), f.lo, f.item("medium-laser"))
			Expect(apperrors.CodeOf(err)).To(Equal(apperrors.CodeSearchExhausted))
		})
	})

	Context("with missile launchers filling the right torso", func() {
		// Two LRM 10 and an LRM 5 take every missile hardpoint that has room
		// around it; the last free missile hardpoint sits in a full torso.
		var f *fixture

		BeforeEach(func() {
			f = newFixture(builtin, "hgn-733")
			f.equip(models.LeftTorso, "lrm-5")
			f.equip(models.RightTorso, "lrm-10", "lrm-10")
			for range 8 {
				f.equip(models.RightTorso, "ammo-lrm")
			}
		})

		It("relocates items to fit another LRM 5", func() {
			before := multiset(f.lo)
			original := f.lo.Clone()

			res, err := placer.Place(withLogger(), f.lo, f.item("lrm-5"))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Ops).NotTo(BeEmpty())
			Expect(res.Nodes).To(BeNumerically(">", 1))
			Expect(f.lo.Equal(original)).To(BeTrue(), "the search works on clones")

			Expect(res.Command.Apply()).To(Succeed())
			Expect(f.lo.Validate()).To(Succeed())

			before["lrm-5"]++
			Expect(multiset(f.lo)).To(Equal(before))
		})

		It("changes only the locations named by the plan", func() {
			original := f.lo.Clone()
			res, err := placer.Place(context.Background(), f.lo, f.item("lrm-5"))
			Expect(err).NotTo(HaveOccurred())

			touched := map[models.Location]bool{res.Location: true}
			for _, op := range res.Ops {
				touched[op.From] = true
				touched[op.To] = true
			}
			Expect(res.Command.Apply()).To(Succeed())
			for _, loc := range models.Locations {
				if touched[loc] {
					continue
				}
				Expect(f.lo.Items(loc)).To(Equal(original.Items(loc)), loc.Name())
			}
		})

		It("undoes the whole placement in one step", func() {
			original := f.lo.Clone()
			res, err := placer.Place(context.Background(), f.lo, f.item("lrm-5"))
			Expect(err).NotTo(HaveOccurred())

			stack := loadout.NewStack(10)
			Expect(stack.Do(res.Command)).To(Succeed())
			Expect(stack.Len()).To(Equal(1))
			_, err = stack.Undo()
			Expect(err).NotTo(HaveOccurred())
			Expect(f.lo.Equal(original)).To(BeTrue())
		})

		It("is deterministic", func() {
			a, err := placer.Place(context.Background(), f.lo, f.item("lrm-5"))
			Expect(err).NotTo(HaveOccurred())
			b, err := placer.Place(context.Background(), f.lo, f.item("lrm-5"))
			Expect(err).NotTo(HaveOccurred())
			Expect(a.Ops).To(Equal(b.Ops))
			Expect(a.Location).To(Equal(b.Location))
		})

		It("aborts when the node budget is spent", func() {
			small := NewPlacer(WithMaxNodes(1), WithRecorder(m))
			_, err := small.Place(context.Background(), f.lo, f.item("lrm-5"))
			Expect(apperrors.CodeOf(err)).To(Equal(apperrors.CodeSearchAborted))
		})

		It("aborts when the context is canceled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err := placer.Place(ctx, f.lo, f.item("lrm-5"))
			Expect(apperrors.CodeOf(err)).To(Equal(apperrors.CodeSearchAborted))
			Expect(err).To(MatchError(ContainSubstring("context canceled")))
		})
	})

	Context("when only a swap makes room", func() {
		var f *fixture

		BeforeEach(func() {
			f = newFixture(widgets, "tst-1")
			f.equip(models.RightArm, "widget-3", "widget-3")
			f.equip(models.LeftTorso, "widget-2", "widget-3")
			for _, loc := range []models.Location{
				models.Head, models.LeftArm, models.CenterTorso, models.RightTorso, models.LeftLeg, models.RightLeg,
			} {
				f.equip(loc, "widget-3", "widget-3")
			}
		})

		It("swaps a large item for a smaller one", func() {
			res, err := placer.Place(context.Background(), f.lo, f.item("laser"))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Ops).To(HaveLen(1))
			op := res.Ops[0]
			Expect(op.Kind).To(Equal(OpSwap))
			Expect(op.Item.ID).To(Equal("widget-3"))
			Expect(op.Other.ID).To(Equal("widget-2"))
			Expect(op.From).To(Equal(models.RightArm))
			Expect(op.To).To(Equal(models.LeftTorso))
			Expect(res.Location).To(Equal(models.RightArm))

			Expect(res.Command.Apply()).To(Succeed())
			Expect(f.lo.Count("laser")).To(Equal(1))
			Expect(f.lo.Validate()).To(Succeed())
		})

		It("publishes events only once the whole plan is applied", func() {
			res, err := placer.Place(context.Background(), f.lo, f.item("laser"))
			Expect(err).NotTo(HaveOccurred())
			published := len(f.rec.Snapshot())
			Expect(res.Command.Apply()).To(Succeed())
			Expect(len(f.rec.Snapshot()) - published).To(Equal(5))
		})

		It("reports exhaustion when no arrangement fits the item", func() {
			original := f.lo.Clone()
			_, err := placer.Place(context.Background(), f.lo, f.item("big-laser"))
			Expect(apperrors.CodeOf(err)).To(Equal(apperrors.CodeSearchExhausted))
			Expect(f.lo.Equal(original)).To(BeTrue())
		})

	})
})

var _ = Describe("search.visit", func() {
	var widgets catalog.Catalog

	BeforeEach(func() {
		var err error
		widgets, err = catalog.LoadYAML(strings.NewReader(widgetCatalog))
		Expect(err).NotTo(HaveOccurred())
	})

	It("rejects configurations it has already seen", func() {
		s := &search{seen: make(map[uint64][]*loadout.Loadout)}
		f := newFixture(widgets, "tst-1")
		f.equip(models.LeftTorso, "widget-2", "widget-3")

		Expect(s.visit(f.lo)).To(BeTrue())
		Expect(s.visit(f.lo.Clone())).To(BeFalse(), "clone")

		reordered := newFixture(widgets, "tst-1")
		reordered.equip(models.LeftTorso, "widget-3", "widget-2")
		Expect(s.visit(reordered.lo)).To(BeFalse(), "same items in another order")
	})

	It("accepts a configuration that differs by one move", func() {
		s := &search{seen: make(map[uint64][]*loadout.Loadout)}
		f := newFixture(widgets, "tst-1")
		f.equip(models.LeftTorso, "widget-2", "widget-3")
		Expect(s.visit(f.lo)).To(BeTrue())

		moved := newFixture(widgets, "tst-1")
		moved.equip(models.LeftTorso, "widget-2")
		moved.equip(models.RightTorso, "widget-3")
		Expect(s.visit(moved.lo)).To(BeTrue())
		Expect(s.visit(moved.lo.Clone())).To(BeFalse())
	})
})

var _ = Describe("score", func() {
	It("is minus one when no candidate has a free hardpoint", func() {
		cat, err := catalog.Builtin()
		Expect(err).NotTo(HaveOccurred())
		f := newFixture(cat, "hgn-733")
		f.equip(models.Head, "medium-laser")
		f.equip(models.LeftArm, "medium-laser")
		Expect(score(f.lo, f.item("medium-laser"))).To(Equal(-1))
		Expect(score(f.lo, f.item("ammo-lrm"))).To(Equal(12))
	})
})

var _ = Describe("Op", func() {
	It("describes itself", func() {
		ml := &models.Item{ID: "ml", Name: "Medium Laser"}
		ammo := &models.Item{ID: "ammo", Name: "Ammo"}
		Expect(Op{Kind: OpMove, Item: ml, From: models.RightArm, To: models.LeftArm}.String()).
			To(Equal("move Medium Laser from RA to LA"))
		Expect(Op{Kind: OpSwap, Item: ml, From: models.RightArm, To: models.LeftArm, Other: ammo}.String()).
			To(Equal("swap Medium Laser (RA) with Ammo (LA)"))
	})
})
