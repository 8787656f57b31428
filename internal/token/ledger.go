package token

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"clmm/internal/clmm"
	"clmm/internal/model"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrUnauthorized        = errors.New("transfer authority mismatch")
	ErrBalanceOverflow     = errors.New("balance overflow")
	ErrOwnerMismatch       = errors.New("account already owned by another authority")
)

// NativeMint denominates record deposits.
var NativeMint = common.HexToAddress("0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE")

type accountKey struct {
	mint    common.Address
	address common.Address
}

type account struct {
	owner   common.Address
	balance uint64
}

// Ledger is an in-memory token program. Balances are keyed by
// (mint, account). An account without a registered owner is controlled by
// its own address.
type Ledger struct {
	mu       sync.Mutex
	accounts map[accountKey]account
}

var _ clmm.TokenProgram = (*Ledger)(nil)

func NewLedger() *Ledger {
	return &Ledger{accounts: make(map[accountKey]account)}
}

// InitAccount registers owner as the authority of an account. It is a no-op
// when the account already has that owner.
func (l *Ledger) InitAccount(mint, address, owner common.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := accountKey{mint: mint, address: address}
	acc, ok := l.accounts[key]
	if ok && acc.owner != owner {
		return fmt.Errorf("init account %s: %w", address.Hex(), ErrOwnerMismatch)
	}
	acc.owner = owner
	l.accounts[key] = acc
	return nil
}

// MintTo credits amount to an account out of thin air.
func (l *Ledger) MintTo(mint, address common.Address, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := accountKey{mint: mint, address: address}
	acc := l.load(key)
	if acc.balance+amount < acc.balance {
		return ErrBalanceOverflow
	}
	acc.balance += amount
	l.accounts[key] = acc
	return nil
}

// Balance returns the balance of an account, zero if unknown.
func (l *Ledger) Balance(mint, address common.Address) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.accounts[accountKey{mint: mint, address: address}].balance
}

// Transfer applies the batch in order. Either every transfer lands or none.
func (l *Ledger) Transfer(ctx context.Context, transfers ...clmm.Transfer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	staged := make(map[accountKey]account, 2*len(transfers))
	get := func(key accountKey) account {
		if acc, ok := staged[key]; ok {
			return acc
		}
		return l.load(key)
	}

	for i, tr := range transfers {
		fromKey := accountKey{mint: tr.Mint, address: tr.From}
		toKey := accountKey{mint: tr.Mint, address: tr.To}

		from := get(fromKey)
		if tr.Authority != from.owner {
			return fmt.Errorf("transfer %d from %s: %w", i, tr.From.Hex(), ErrUnauthorized)
		}
		if from.balance < tr.Amount {
			return fmt.Errorf("transfer %d from %s: %w", i, tr.From.Hex(), ErrInsufficientBalance)
		}
		from.balance -= tr.Amount
		staged[fromKey] = from

		to := get(toKey)
		if to.balance+tr.Amount < to.balance {
			return fmt.Errorf("transfer %d to %s: %w", i, tr.To.Hex(), ErrBalanceOverflow)
		}
		to.balance += tr.Amount
		staged[toKey] = to
	}

	for key, acc := range staged {
		l.accounts[key] = acc
	}
	return nil
}

// Snapshot lists every account ordered by mint then address.
func (l *Ledger) Snapshot() []model.TokenAccount {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]model.TokenAccount, 0, len(l.accounts))
	for key, acc := range l.accounts {
		out = append(out, model.TokenAccount{
			Mint:    key.mint.Hex(),
			Address: key.address.Hex(),
			Owner:   acc.owner.Hex(),
			Amount:  acc.balance,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Mint != out[j].Mint {
			return out[i].Mint < out[j].Mint
		}
		return out[i].Address < out[j].Address
	})
	return out
}

// Restore replaces all balances with accounts.
func (l *Ledger) Restore(accounts []model.TokenAccount) error {
	restored := make(map[accountKey]account, len(accounts))
	for _, rec := range accounts {
		for _, field := range []string{rec.Mint, rec.Address, rec.Owner} {
			if !common.IsHexAddress(field) {
				return fmt.Errorf("restore account: invalid address %q", field)
			}
		}
		key := accountKey{mint: common.HexToAddress(rec.Mint), address: common.HexToAddress(rec.Address)}
		restored[key] = account{owner: common.HexToAddress(rec.Owner), balance: rec.Amount}
	}
	l.mu.Lock()
	l.accounts = restored
	l.mu.Unlock()
	return nil
}

func (l *Ledger) load(key accountKey) account {
	acc, ok := l.accounts[key]
	if !ok {
		return account{owner: key.address}
	}
	return acc
}
