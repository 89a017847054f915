package escrow

// Gateway defines the operations the engine needs from the escrow ledger
// service. This allows for mock implementations to be used in tests.
//
// The ledger owns all fee and lottery-pool arithmetic; callers only consume
// the payout figures it returns.
type Gateway interface {
	// GetDeposit returns the token balance a player has deposited.
	GetDeposit(address string) (float64, error)
	// CreateEscrow locks the creator's stake and returns the external match
	// reference used for all later calls.
	CreateEscrow(address string, buyIn float64) (string, error)
	// JoinEscrow locks the opponent's stake against an existing escrow.
	JoinEscrow(ref, address string) error
	// Settle pays the pot to the winner and returns the payout amount and
	// settlement reference.
	Settle(ref, winnerAddress string) (Settlement, error)
	// PayLottery pays the entire lottery pool to the winner and resets it.
	PayLottery(winnerAddress string) (Settlement, error)
	// GetLotteryPool returns the current pool size.
	GetLotteryPool() (float64, error)
}

// Settlement identifies a completed ledger payout.
type Settlement struct {
	Amount float64 `json:"amount"`
	Ref    string  `json:"ref"`
}
