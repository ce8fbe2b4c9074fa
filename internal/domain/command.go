package domain

// CommandOp: операция во входящей команде.
type CommandOp string

const (
	OpList     CommandOp = "list"
	OpUpdate   CommandOp = "update"
	OpCancel   CommandOp = "cancel"
	OpPurchase CommandOp = "purchase"
)

// Command: входящая команда изменения листинга (из очереди или CLI).
type Command struct {
	ID           string    `json:"id"`
	Op           CommandOp `json:"op"`
	Account      AccountID `json:"account"`
	CollectionID string    `json:"collection_id"`
	TokenID      string    `json:"token_id"`
	Price        uint64    `json:"price,omitempty"`
	Payment      uint64    `json:"payment,omitempty"`
}

func (c Command) Key() AssetKey {
	return AssetKey{CollectionID: c.CollectionID, TokenID: c.TokenID}
}

func (c Command) Validate() error {
	switch c.Op {
	case OpList, OpUpdate, OpCancel, OpPurchase:
	default:
		return ErrValidation
	}
	if c.Account == "" {
		return ErrValidation
	}
	return c.Key().Validate()
}
