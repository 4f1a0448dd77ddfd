package usecase

// Phase tracks a page visit from request to mounted browser page.
type Phase int

const (
	PhaseUnresolved Phase = iota
	PhaseServerPreparing
	PhaseServerSnapshotted
	PhaseBrowserConstructed
	PhaseBrowserMounted
)

func (p Phase) String() string {
	switch p {
	case PhaseUnresolved:
		return "unresolved"
	case PhaseServerPreparing:
		return "server-preparing"
	case PhaseServerSnapshotted:
		return "server-snapshotted"
	case PhaseBrowserConstructed:
		return "browser-constructed"
	case PhaseBrowserMounted:
		return "browser-mounted"
	default:
		return "unknown"
	}
}
