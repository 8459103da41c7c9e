package types

// TxStatus defines the possible statuses of a transaction record.
type TxStatus string

const (
	// TxStatusSuccess indicates the task finished and every transaction it sent was confirmed.
	TxStatusSuccess TxStatus = "Success"
	// TxStatusFailed indicates the task failed after all attempts.
	TxStatusFailed TxStatus = "Failed"
	// TxStatusSkipped indicates the task was already completed for the wallet and was not run.
	TxStatusSkipped TxStatus = "Skipped"
	// TxStatusErrorBeforeSend indicates an error occurred before the transaction could be sent (e.g., client creation, nonce fetch, gas estimation).
	TxStatusErrorBeforeSend TxStatus = "ErrorBeforeSend"
)
