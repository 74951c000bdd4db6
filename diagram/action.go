package diagram

import "fmt"

type ActionOp int

const (
	OpAddBlock ActionOp = iota
	OpAddLink
	OpAddMemo
	OpRemoveBlock
	OpRemoveLink
	OpRemoveMemo
)

func (op ActionOp) String() string {
	switch op {
	case OpAddBlock:
		return "add-block"
	case OpAddLink:
		return "add-link"
	case OpAddMemo:
		return "add-memo"
	case OpRemoveBlock:
		return "remove-block"
	case OpRemoveLink:
		return "remove-link"
	case OpRemoveMemo:
		return "remove-memo"
	default:
		return "unknown"
	}
}

// ActionCapacity bounds the undo history.
const ActionCapacity = 32

// Action is one recorded structural change. Add operations carry the
// component id; remove operations carry the captured component state.
type Action struct {
	Op   ActionOp
	Data any
}

// ActionManager keeps the most recent structural changes in a ring
// buffer. Only undo is supported.
type ActionManager struct {
	d          *Diagram
	buf        [ActionCapacity]Action
	head       int
	size       int
	suppressed bool
}

func newActionManager(d *Diagram) *ActionManager {
	return &ActionManager{d: d}
}

// Append records an action unless recording is suppressed. The oldest
// entry is evicted when the buffer is full.
func (am *ActionManager) Append(op ActionOp, data any) {
	if am.suppressed {
		return
	}
	idx := (am.head + am.size) % ActionCapacity
	am.buf[idx] = Action{Op: op, Data: data}
	if am.size < ActionCapacity {
		am.size++
	} else {
		am.head = (am.head + 1) % ActionCapacity
	}
}

func (am *ActionManager) Len() int { return am.size }

// Peek returns the most recent action without removing it.
func (am *ActionManager) Peek() (Action, bool) {
	if am.size == 0 {
		return Action{}, false
	}
	return am.buf[(am.head+am.size-1)%ActionCapacity], true
}

// withoutRecording runs fn with recording switched off.
func (am *ActionManager) withoutRecording(fn func()) {
	prev := am.suppressed
	am.suppressed = true
	defer func() { am.suppressed = prev }()
	fn()
}

// Undo pops the newest action and applies its inverse. It reports false
// when there is nothing to undo.
func (am *ActionManager) Undo() (bool, error) {
	if am.size == 0 {
		return false, nil
	}
	idx := (am.head + am.size - 1) % ActionCapacity
	action := am.buf[idx]
	am.buf[idx] = Action{}
	am.size--

	var err error
	am.withoutRecording(func() {
		err = am.revert(action)
	})
	if err != nil {
		return true, fmt.Errorf("diagram: undo %s: %w", action.Op, err)
	}
	am.d.log.Debug("undo", "op", action.Op.String())
	return true, nil
}

// Redo is part of the public surface but does nothing: undone actions
// are not kept.
func (am *ActionManager) Redo() {}

func (am *ActionManager) revert(action Action) error {
	d := am.d
	switch action.Op {
	case OpAddBlock, OpAddLink:
		if c := d.components[action.Data.(int)]; c != nil {
			c.Remove()
		}
	case OpAddMemo:
		if m, ok := d.components[action.Data.(int)].(*Memo); ok {
			m.remove()
		}
	case OpRemoveBlock:
		st := action.Data.(blockState)
		b, err := d.restoreBlock(st)
		if err != nil {
			return err
		}
		for _, ls := range st.Links {
			if _, err := d.restoreLink(ls); err != nil {
				d.log.Debug("link not restored", "id", ls.ID, "err", err)
			}
		}
		if st.Selected {
			b.Select()
		}
	case OpRemoveLink:
		st := action.Data.(linkState)
		l, err := d.restoreLink(st)
		if err != nil {
			return err
		}
		if st.Selected {
			l.Select()
		}
	case OpRemoveMemo:
		st := action.Data.(memoState)
		m, err := d.restoreMemo(st)
		if err != nil {
			return err
		}
		if st.Selected {
			m.Select()
		}
	}
	return nil
}
