package types

// TaskName represents the unique identifier for a task.
type TaskName string

const (
	TaskNameLogBalance   TaskName = "log_balance"
	TaskNameDaily        TaskName = "sahara_daily"
	TaskNameSelfTransfer TaskName = "self_transfer"
	TaskNameMemeBridge   TaskName = "meme_bridge"
)

// TaskNameSelfSender labels the records written by the funding run.
const TaskNameSelfSender TaskName = "self_sender"
