package loadout

import (
	"github.com/lisongmechlab/lsml-sub002/internal/apperrors"
)

// Stack records applied commands for undo and redo. It holds at most depth
// undo steps; the oldest step is forgotten first.
type Stack struct {
	depth  int
	done   []Command
	undone []Command
}

// NewStack returns an empty stack. A depth below one keeps a single step.
func NewStack(depth int) *Stack {
	return &Stack{depth: max(depth, 1)}
}

// Do applies cmd and records it. A failed command leaves both the loadout and
// the stack unchanged. Consecutive coalescable commands share one undo step.
func (s *Stack) Do(cmd Command) error {
	if err := cmd.Apply(); err != nil {
		return err
	}
	s.undone = nil
	if n := len(s.done); n > 0 {
		if c, ok := s.done[n-1].(Coalescer); ok && c.Coalesce(cmd) {
			return nil
		}
	}
	s.done = append(s.done, cmd)
	if len(s.done) > s.depth {
		s.done = s.done[len(s.done)-s.depth:]
	}
	return nil
}

// Undo reverts the most recent step.
func (s *Stack) Undo() (Command, error) {
	n := len(s.done)
	if n == 0 {
		return nil, apperrors.New(apperrors.CodeNothingToUndo, "nothing to undo")
	}
	cmd := s.done[n-1]
	if err := cmd.Undo(); err != nil {
		return nil, err
	}
	s.done = s.done[:n-1]
	s.undone = append(s.undone, cmd)
	return cmd, nil
}

// Redo re-applies the most recently undone step.
func (s *Stack) Redo() (Command, error) {
	n := len(s.undone)
	if n == 0 {
		return nil, apperrors.New(apperrors.CodeNothingToRedo, "nothing to redo")
	}
	cmd := s.undone[n-1]
	if err := cmd.Apply(); err != nil {
		return nil, err
	}
	s.undone = s.undone[:n-1]
	s.done = append(s.done, cmd)
	return cmd, nil
}

func (s *Stack) CanUndo() bool { return len(s.done) > 0 }
func (s *Stack) CanRedo() bool { return len(s.undone) > 0 }

// Len is the number of undo steps held.
func (s *Stack) Len() int { return len(s.done) }
