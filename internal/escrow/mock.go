package escrow

import "sync"

// MockGateway is a mock implementation of Gateway for testing.
// It is safe for concurrent use.
type MockGateway struct {
	mu sync.Mutex

	// Spies for method calls
	GetDepositFunc     func(address string) (float64, error)
	CreateEscrowFunc   func(address string, buyIn float64) (string, error)
	JoinEscrowFunc     func(ref, address string) error
	SettleFunc         func(ref, winnerAddress string) (Settlement, error)
	PayLotteryFunc     func(winnerAddress string) (Settlement, error)
	GetLotteryPoolFunc func() (float64, error)

	// Call records
	GetDepositCalls []string
	CreateCalls     []CreateEscrowCall
	JoinCalls       []JoinEscrowCall
	SettleCalls     []SettleCall
	PayLotteryCalls []string
}

// CreateEscrowCall holds the arguments for a call to CreateEscrow.
type CreateEscrowCall struct {
	Address string
	BuyIn   float64
}

// JoinEscrowCall holds the arguments for a call to JoinEscrow.
type JoinEscrowCall struct {
	Ref     string
	Address string
}

// SettleCall holds the arguments for a call to Settle.
type SettleCall struct {
	Ref           string
	WinnerAddress string
}

// NewMock creates a new mock Gateway.
func NewMock() *MockGateway {
	return &MockGateway{}
}

// Reset clears all call records.
func (m *MockGateway) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetDepositCalls = nil
	m.CreateCalls = nil
	m.JoinCalls = nil
	m.SettleCalls = nil
	m.PayLotteryCalls = nil
}

func (m *MockGateway) GetDeposit(address string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetDepositCalls = append(m.GetDepositCalls, address)
	if m.GetDepositFunc != nil {
		return m.GetDepositFunc(address)
	}
	return 0, nil
}

func (m *MockGateway) CreateEscrow(address string, buyIn float64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateCalls = append(m.CreateCalls, CreateEscrowCall{Address: address, BuyIn: buyIn})
	if m.CreateEscrowFunc != nil {
		return m.CreateEscrowFunc(address, buyIn)
	}
	return "escrow-ref", nil
}

func (m *MockGateway) JoinEscrow(ref, address string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.JoinCalls = append(m.JoinCalls, JoinEscrowCall{Ref: ref, Address: address})
	if m.JoinEscrowFunc != nil {
		return m.JoinEscrowFunc(ref, address)
	}
	return nil
}

func (m *MockGateway) Settle(ref, winnerAddress string) (Settlement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SettleCalls = append(m.SettleCalls, SettleCall{Ref: ref, WinnerAddress: winnerAddress})
	if m.SettleFunc != nil {
		return m.SettleFunc(ref, winnerAddress)
	}
	return Settlement{Amount: 0, Ref: "settlement-ref"}, nil
}

func (m *MockGateway) PayLottery(winnerAddress string) (Settlement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PayLotteryCalls = append(m.PayLotteryCalls, winnerAddress)
	if m.PayLotteryFunc != nil {
		return m.PayLotteryFunc(winnerAddress)
	}
	return Settlement{Amount: 0, Ref: "lottery-ref"}, nil
}

func (m *MockGateway) GetLotteryPool() (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetLotteryPoolFunc != nil {
		return m.GetLotteryPoolFunc()
	}
	return 0, nil
}
