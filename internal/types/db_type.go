package types

// DBType defines the backend used for the task store.
type DBType string

const (
	Postgres DBType = "postgres"
	SQLite   DBType = "sqlite"
	// Memory keeps completed tasks for the lifetime of the process only.
	Memory DBType = "memory"
	// None keeps nothing between runs; completed-task checks always miss.
	None DBType = "none"
)
