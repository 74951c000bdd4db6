package tui

type Mode int

const (
	ModeNormal Mode = iota
	ModeCreate
	ModeEditMemo
	ModeConfirm
)

func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "NORMAL"
	case ModeCreate:
		return "CREATE"
	case ModeEditMemo:
		return "MEMO"
	case ModeConfirm:
		return "CONFIRM"
	default:
		return "UNKNOWN"
	}
}

type ConfirmAction int

const (
	ConfirmDeleteMemo ConfirmAction = iota
	ConfirmQuit
)

func (c ConfirmAction) prompt() string {
	switch c {
	case ConfirmDeleteMemo:
		return "Delete selected memo(s)? (y/n)"
	case ConfirmQuit:
		return "Unsaved changes. Quit anyway? (y/n)"
	default:
		return "Are you sure? (y/n)"
	}
}
