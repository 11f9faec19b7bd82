// Package autoplace equips items that do not fit directly by searching for a
// sequence of moves and swaps of already equipped items that makes room.
//
// The search is best-first over hypothetical clones of the loadout. A node's
// score is the largest number of free slots in any location that could still
// take the pending item; the first node that accepts the item wins. Only the
// winning path touches the real loadout, as one atomic command.
package autoplace

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/go-logr/logr"

	"github.com/lisongmechlab/lsml-sub002/internal/apperrors"
	"github.com/lisongmechlab/lsml-sub002/internal/loadout"
	"github.com/lisongmechlab/lsml-sub002/internal/logging"
	"github.com/lisongmechlab/lsml-sub002/internal/metrics"
	"github.com/lisongmechlab/lsml-sub002/internal/models"
	"github.com/lisongmechlab/lsml-sub002/internal/rules"
)

// DefaultMaxNodes bounds the search when no budget is configured.
const DefaultMaxNodes = 20000

// OpKind is the kind of a relocation step.
type OpKind int

const (
	OpMove OpKind = iota
	OpSwap
)

func (k OpKind) String() string {
	if k == OpSwap {
		return "swap"
	}
	return "move"
}

// Op is one relocation step. A move takes Item from From to To. A swap also
// takes Other from To back to From.
type Op struct {
	Kind  OpKind
	Item  *models.Item
	From  models.Location
	To    models.Location
	Other *models.Item
}

func (o Op) String() string {
	if o.Kind == OpSwap {
		return fmt.Sprintf("swap %s (%s) with %s (%s)", o.Item.Name, o.From, o.Other.Name, o.To)
	}
	return fmt.Sprintf("move %s from %s to %s", o.Item.Name, o.From, o.To)
}

// commands expresses the op against lo in the order the search applied it.
func (o Op) commands(lo *loadout.Loadout) []loadout.Command {
	if o.Kind == OpSwap {
		return []loadout.Command{
			loadout.NewRemoveItem(lo, o.From, o.Item),
			loadout.NewRemoveItem(lo, o.To, o.Other),
			loadout.NewAddItem(lo, o.To, o.Item),
			loadout.NewAddItem(lo, o.From, o.Other),
		}
	}
	return []loadout.Command{
		loadout.NewRemoveItem(lo, o.From, o.Item),
		loadout.NewAddItem(lo, o.To, o.Item),
	}
}

// Result is a found placement. Command has not been applied yet; applying it
// performs Ops and then equips the item into Location.
type Result struct {
	Location models.Location
	Ops      []Op
	Nodes    int
	Command  *loadout.Composite
}

// Placer runs placement searches. It is safe for concurrent use as long as
// each search works on its own loadout.
type Placer struct {
	maxNodes int
	recorder metrics.Recorder
}

// Option configures a Placer.
type Option func(*Placer)

// WithMaxNodes caps the number of nodes a single search may generate.
func WithMaxNodes(n int) Option {
	return func(p *Placer) {
		if n > 0 {
			p.maxNodes = n
		}
	}
}

// WithRecorder reports search outcomes to r.
func WithRecorder(r metrics.Recorder) Option {
	return func(p *Placer) {
		if r != nil {
			p.recorder = r
		}
	}
}

func NewPlacer(opts ...Option) *Placer {
	p := &Placer{maxNodes: DefaultMaxNodes, recorder: metrics.Nop{}}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Place finds a way to equip item into lo. lo is only read. Errors carry
// CodeInfeasibleRequest, CodeSearchExhausted or CodeSearchAborted.
func (p *Placer) Place(ctx context.Context, lo *loadout.Loadout, item *models.Item) (*Result, error) {
	logger := logr.FromContextOrDiscard(ctx).WithValues("item", item.ID, "chassis", lo.Chassis().ID)
	start := time.Now()

	res, outcome, err := p.place(ctx, lo, item)
	nodes := 0
	if res != nil {
		nodes = res.Nodes
	} else if n, ok := nodesOf(err); ok {
		nodes = n
	}
	p.recorder.SearchFinished(outcome, nodes, time.Since(start).Seconds())

	if err != nil {
		logger.V(logging.DEBUG).Info("Placement failed", "outcome", outcome, "nodes", nodes, "reason", err.Error())
		return nil, err
	}
	logger.V(logging.DEBUG).Info("Placement found", "outcome", outcome, "nodes", nodes,
		"location", res.Location.Code(), "ops", len(res.Ops))
	return res, nil
}

func (p *Placer) place(ctx context.Context, lo *loadout.Loadout, item *models.Item) (*Result, string, error) {
	meta := map[string]string{"item": item.ID, "chassis": lo.Chassis().ID}

	if r := rules.Infeasible(lo, item); r != rules.Success {
		meta["reason"] = r.String()
		return nil, metrics.OutcomeInfeasible, apperrors.WithMetadata(apperrors.CodeInfeasibleRequest,
			fmt.Sprintf("%s can never be equipped on %s: %s", item.Name, lo.Chassis().Name, r), meta)
	}
	if loc, ok := rules.FirstEquippable(lo, item); ok {
		return p.result(lo, item, nil, loc, 0), metrics.OutcomeDirect, nil
	}
	// Moves and swaps keep mass, engine, jump jet and hardpoint usage
	// unchanged; only a slot shortage can be fixed by relocating items.
	if r := rules.CheckGlobal(lo, item); r != rules.NotEnoughSlots && r != rules.Success {
		meta["reason"] = r.String()
		return nil, metrics.OutcomeExhausted, apperrors.WithMetadata(apperrors.CodeSearchExhausted,
			fmt.Sprintf("no arrangement can fit %s: %s", item.Name, r), meta)
	}

	s := &search{
		ctx:      ctx,
		item:     item,
		maxNodes: p.maxNodes,
		seen:     make(map[uint64][]*loadout.Loadout),
	}
	goal, loc, err := s.run(lo.Clone())
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeSearchAborted) {
			return nil, metrics.OutcomeAborted, err
		}
		return nil, metrics.OutcomeExhausted, err
	}
	return p.result(lo, item, goal.ops, loc, s.generated), metrics.OutcomeSolved, nil
}

func (p *Placer) result(lo *loadout.Loadout, item *models.Item, ops []Op, loc models.Location, nodes int) *Result {
	var cmds []loadout.Command
	for _, op := range ops {
		cmds = append(cmds, op.commands(lo)...)
	}
	cmds = append(cmds, loadout.NewAddItem(lo, loc, item))

	desc := fmt.Sprintf("add %s to %s", item.Name, loc.Name())
	if len(ops) > 0 {
		desc = fmt.Sprintf("auto-place %s after %d relocations", item.Name, len(ops))
	}
	return &Result{
		Location: loc,
		Ops:      ops,
		Nodes:    nodes,
		Command:  loadout.NewComposite(lo, desc, cmds...),
	}
}

type search struct {
	ctx       context.Context
	item      *models.Item
	maxNodes  int
	seen      map[uint64][]*loadout.Loadout
	open      queue
	generated int
}

func (s *search) run(root *loadout.Loadout) (*node, models.Location, error) {
	s.visit(root)
	s.add(&node{lo: root})

	for s.open.Len() > 0 {
		if err := s.ctx.Err(); err != nil {
			return nil, 0, s.aborted("search canceled", err)
		}
		n := s.open.pop()
		if loc, ok := rules.FirstEquippable(n.lo, s.item); ok {
			return n, loc, nil
		}
		for _, child := range s.expand(n) {
			if !s.visit(child.lo) {
				continue
			}
			if s.generated >= s.maxNodes {
				return nil, 0, s.aborted(fmt.Sprintf("search budget of %d nodes spent", s.maxNodes), nil)
			}
			s.add(child)
		}
	}
	return nil, 0, s.fail(apperrors.CodeSearchExhausted, "no arrangement of equipped items makes room for "+s.item.Name, nil)
}

func (s *search) add(n *node) {
	n.score = score(n.lo, s.item)
	n.seq = s.generated
	s.generated++
	s.open.push(n)
}

// visit records lo as seen and reports whether it was new.
func (s *search) visit(lo *loadout.Loadout) bool {
	h := xxhash.Sum64(lo.Key())
	for _, other := range s.seen[h] {
		if other.Equal(lo) {
			return false
		}
	}
	s.seen[h] = append(s.seen[h], lo)
	return true
}

func (s *search) aborted(message string, cause error) error {
	return s.fail(apperrors.CodeSearchAborted, message, cause)
}

func (s *search) fail(code apperrors.Code, message string, cause error) error {
	return &searchError{
		err: &apperrors.Error{
			Code:     code,
			Message:  message,
			Metadata: map[string]string{"item": s.item.ID},
			Cause:    cause,
		},
		nodes: s.generated,
	}
}

// searchError carries the node count alongside the domain error.
type searchError struct {
	err   *apperrors.Error
	nodes int
}

func (e *searchError) Error() string { return e.err.Error() }
func (e *searchError) Unwrap() error { return e.err }

func nodesOf(err error) (int, bool) {
	var se *searchError
	if errors.As(err, &se) {
		return se.nodes, true
	}
	return 0, false
}

// expand generates every move and swap child of n. Sources and targets are
// visited in search order; equal items in one location are tried once.
func (s *search) expand(n *node) []*node {
	var out []*node
	emit := func(lo *loadout.Loadout, op Op) {
		ops := append(slices.Clone(n.ops), op)
		out = append(out, &node{lo: lo, ops: ops})
	}

	for _, src := range models.SearchOrder {
		tried := make(map[string]bool)
		for _, it := range n.lo.Items(src) {
			if tried[it.ID] || it.IsEngine() || !n.lo.Movable(src, it) {
				continue
			}
			tried[it.ID] = true

			for _, dst := range rules.CandidateLocations(n.lo, it) {
				if dst == src {
					continue
				}
				base := n.lo.Clone()
				if loadout.NewRemoveItem(base, src, it).Apply() != nil {
					continue
				}
				if loadout.NewAddItem(base, dst, it).Apply() == nil {
					emit(base, Op{Kind: OpMove, Item: it, From: src, To: dst})
					continue
				}
				s.swaps(base, it, src, dst, emit)
			}
		}
	}
	return out
}

// swaps tries to exchange it (already removed from src in base) with each
// distinct item in dst that frees enough room.
func (s *search) swaps(base *loadout.Loadout, it *models.Item, src, dst models.Location, emit func(*loadout.Loadout, Op)) {
	up := base.Upgrades()
	need := up.Slots(it)
	free := rules.SlotsFree(base, dst)
	tried := make(map[string]bool)
	for _, other := range base.Items(dst) {
		if tried[other.ID] || other.ID == it.ID || other.IsEngine() || !base.Movable(dst, other) {
			continue
		}
		tried[other.ID] = true
		if up.Slots(other)+free < need {
			continue
		}
		if it.NeedsHardpoint() && other.Hardpoint != it.Hardpoint {
			continue
		}
		lo := base.Clone()
		swap := loadout.NewComposite(lo, "swap",
			loadout.NewRemoveItem(lo, dst, other),
			loadout.NewAddItem(lo, dst, it),
			loadout.NewAddItem(lo, src, other),
		)
		if swap.Apply() == nil {
			emit(lo, Op{Kind: OpSwap, Item: it, From: src, To: dst, Other: other})
		}
	}
}

// score is the most free slots in any candidate location of item that still
// has a free hardpoint for it, or -1 when there is none.
func score(lo *loadout.Loadout, item *models.Item) int {
	best := -1
	for _, loc := range rules.CandidateLocations(lo, item) {
		if item.NeedsHardpoint() && rules.FreeHardpoints(lo, loc, item.Hardpoint) < 1 {
			continue
		}
		best = max(best, rules.SlotsFree(lo, loc))
	}
	return best
}
