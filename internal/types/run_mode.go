package types

// RunMode selects what the "run" command does with the loaded wallets.
type RunMode string

const (
	// RunModeTasks drives every wallet through the configured task list.
	RunModeTasks RunMode = "tasks"
	// RunModeSelfSender funds every wallet from a single sender key.
	RunModeSelfSender RunMode = "self_sender"
)
