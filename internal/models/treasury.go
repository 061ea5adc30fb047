package models

import "context"

// Treasury is the external value-transfer primitive: an atomic,
// all-or-nothing move of motes between two named accounts. The escrow engine
// is the only caller and always uses the escrow account as one side.
type Treasury interface {
	Transfer(ctx context.Context, from, to string, amount *Amount) error
}
