package types

// WalletProcessOrder defines the possible orders for processing wallets.
type WalletProcessOrder string

// TaskOrder defines the possible orders for executing tasks within a wallet.
type TaskOrder string

const (
	OrderRandom     WalletProcessOrder = "random"
	OrderSequential WalletProcessOrder = "sequential"

	TaskOrderRandom     TaskOrder = "random"
	TaskOrderSequential TaskOrder = "sequential"
)

// Valid reports whether the order is one of the known values. Empty means sequential.
func (o WalletProcessOrder) Valid() bool {
	return o == "" || o == OrderRandom || o == OrderSequential
}

// Valid reports whether the order is one of the known values. Empty means random.
func (o TaskOrder) Valid() bool {
	return o == "" || o == TaskOrderRandom || o == TaskOrderSequential
}
