package clmm

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// Transfer moves Amount of Mint from one account to another. Authority is the
// identity the token program checks against the source account.
type Transfer struct {
	Mint      common.Address
	From      common.Address
	To        common.Address
	Authority common.Address
	Amount    uint64
}

// TokenProgram executes a batch of transfers all-or-nothing.
type TokenProgram interface {
	Transfer(ctx context.Context, transfers ...Transfer) error
}

type transferList []Transfer

// add appends a transfer, skipping empty amounts.
func (l *transferList) add(mint, from, to, authority common.Address, amount uint64) {
	if amount == 0 {
		return
	}
	*l = append(*l, Transfer{
		Mint:      mint,
		From:      from,
		To:        to,
		Authority: authority,
		Amount:    amount,
	})
}
