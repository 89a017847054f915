package engine

// Wallets defines the identity operations required by the engine.
type Wallets interface {
	AddressOf(playerID string) (string, error)
}
