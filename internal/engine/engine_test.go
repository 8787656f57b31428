package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"lukechampine.com/uint128"

	"clmm/internal/clmm"
	"clmm/internal/model"
	"clmm/internal/registry"
	"clmm/internal/tickmath"
	"clmm/internal/token"
)

var (
	token0 = common.HexToAddress("0x1100000000000000000000000000000000000000")
	token1 = common.HexToAddress("0x2200000000000000000000000000000000000000")
	alice  = common.HexToAddress("0xa100000000000000000000000000000000000000")
	bob    = common.HexToAddress("0xb100000000000000000000000000000000000000")
)

const testDeposit = 2_000

type memJournal struct {
	mu     sync.Mutex
	events []model.Event
}

func (j *memJournal) PutEventBatch(events []model.Event) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, events...)
	return nil
}

type testEnv struct {
	engine  *Engine
	store   *registry.Store
	ledger  *token.Ledger
	journal *memJournal
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		store:   registry.NewStore(),
		ledger:  token.NewLedger(),
		journal: &memJournal{},
	}
	eng, err := New(Config{
		Store:           env.store,
		Ledger:          env.ledger,
		Journal:         env.journal,
		DepositMint:     token.NativeMint,
		PositionDeposit: testDeposit,
		Now:             func() time.Time { return time.Unix(1700000000, 0) },
	}, nil)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	env.engine = eng
	return env
}

func (env *testEnv) fund(t *testing.T, owner common.Address, amount uint64) {
	t.Helper()
	for _, mint := range []common.Address{token0, token1, token.NativeMint} {
		if err := env.ledger.MintTo(mint, owner, amount); err != nil {
			t.Fatalf("mint: %v", err)
		}
	}
}

func (env *testEnv) initPool(t *testing.T, tick, spacing int32) *clmm.Pool {
	t.Helper()
	price, err := tickmath.SqrtPriceFromTick(tick)
	if err != nil {
		t.Fatalf("sqrt price: %v", err)
	}
	pool, err := env.engine.InitializePool(context.Background(), InitializePoolRequest{
		Token0:       token0,
		Token1:       token1,
		TickSpacing:  spacing,
		SqrtPriceX96: price,
	})
	if err != nil {
		t.Fatalf("initialize pool: %v", err)
	}
	return pool
}

func TestInitializePoolTwice(t *testing.T) {
	env := newTestEnv(t)
	pool := env.initPool(t, 0, 10)
	if pool.Address != registry.PoolAddress(token0, token1, 10) {
		t.Fatalf("unexpected pool address %s", pool.Address.Hex())
	}
	price, _ := tickmath.SqrtPriceFromTick(5)
	_, err := env.engine.InitializePool(context.Background(), InitializePoolRequest{
		Token0: token0, Token1: token1, TickSpacing: 10, SqrtPriceX96: price,
	})
	if !errors.Is(err, clmm.ErrPoolExists) {
		t.Fatalf("expected pool exists, got %v", err)
	}
}

func TestPositionLifecycle(t *testing.T) {
	env := newTestEnv(t)
	pool := env.initPool(t, 0, 10)
	env.fund(t, alice, 1_000_000)
	ctx := context.Background()

	req := LiquidityRequest{Pool: pool.Address, Owner: alice, TickLower: -100, TickUpper: 100, Liquidity: uint128.From64(1000)}
	opened, err := env.engine.OpenPosition(ctx, req)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if env.ledger.Balance(token0, pool.Vault0) != opened.Amount0 || env.ledger.Balance(token1, pool.Vault1) != opened.Amount1 {
		t.Fatalf("vaults not funded")
	}
	if env.ledger.Balance(token.NativeMint, opened.Position) != testDeposit {
		t.Fatalf("deposit not charged")
	}

	req.Liquidity = uint128.From64(500)
	increased, err := env.engine.IncreaseLiquidity(ctx, req)
	if err != nil {
		t.Fatalf("increase: %v", err)
	}
	if increased.Liquidity.Cmp64(1500) != 0 {
		t.Fatalf("expected 1500, got %s", increased.Liquidity)
	}
	if env.ledger.Balance(token.NativeMint, opened.Position) != testDeposit {
		t.Fatalf("deposit charged twice")
	}
	got, _ := env.engine.Pool(pool.Address)
	if got.GlobalLiquidity.Cmp64(1500) != 0 {
		t.Fatalf("expected global 1500, got %s", got.GlobalLiquidity)
	}

	closed, err := env.engine.ClosePosition(ctx, req)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if !closed.Closed {
		t.Fatalf("expected closed receipt")
	}
	if _, ok := env.engine.Position(opened.Position); ok {
		t.Fatalf("position record should be deleted")
	}
	if env.ledger.Balance(token.NativeMint, alice) != 1_000_000 {
		t.Fatalf("deposit not refunded: %d", env.ledger.Balance(token.NativeMint, alice))
	}
	if env.ledger.Balance(token0, pool.Vault0) > 2 || env.ledger.Balance(token1, pool.Vault1) > 2 {
		t.Fatalf("vaults keep more than rounding dust: %d %d", env.ledger.Balance(token0, pool.Vault0), env.ledger.Balance(token1, pool.Vault1))
	}

	got, _ = env.engine.Pool(pool.Address)
	if !got.GlobalLiquidity.IsZero() {
		t.Fatalf("global liquidity not restored: %s", got.GlobalLiquidity)
	}
	lowerStart, _ := clmm.StartingTickFor(-100, 10)
	arr, ok := env.engine.TickArray(registry.TickArrayAddress(pool.Address, lowerStart))
	if !ok {
		t.Fatalf("tick array should persist")
	}
	info, _ := arr.Tick(-100, 10)
	if !info.Initialized || !info.LiquidityGross.IsZero() || info.LiquidityNet.Sign() != 0 {
		t.Fatalf("lower tick not restored: %+v", info)
	}

	if _, err := env.engine.ClosePosition(ctx, req); !errors.Is(err, clmm.ErrNoLiquidityToRemove) {
		t.Fatalf("expected no liquidity to remove, got %v", err)
	}

	names := make([]string, 0, len(env.journal.events))
	for i, ev := range env.journal.events {
		if ev.Seq != uint64(i+1) {
			t.Fatalf("journal seq gap at %d: %d", i, ev.Seq)
		}
		names = append(names, ev.EventName)
	}
	want := []string{model.EventInitialize, model.EventMint, model.EventMint, model.EventBurn}
	if len(names) != len(want) {
		t.Fatalf("unexpected journal: %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("unexpected journal: %v", names)
		}
	}
	if burn := env.journal.events[3].Decoded.(model.BurnEventData); !burn.Closed || burn.Amount != "1500" {
		t.Fatalf("unexpected burn event: %+v", burn)
	}
}

func TestFailedTransferLeavesStateUntouched(t *testing.T) {
	env := newTestEnv(t)
	pool := env.initPool(t, 0, 10)
	env.fund(t, alice, 10)

	_, err := env.engine.OpenPosition(context.Background(), LiquidityRequest{
		Pool: pool.Address, Owner: alice, TickLower: -100, TickUpper: 100, Liquidity: uint128.From64(1000),
	})
	if !errors.Is(err, token.ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}

	got, _ := env.engine.Pool(pool.Address)
	if !got.GlobalLiquidity.IsZero() {
		t.Fatalf("pool mutated by failed open")
	}
	if len(env.store.Positions(pool.Address)) != 0 || len(env.store.TickArrays(pool.Address)) != 0 {
		t.Fatalf("records created by failed open")
	}
	if env.ledger.Balance(token0, alice) != 10 || env.ledger.Balance(token.NativeMint, alice) != 10 {
		t.Fatalf("balances moved by failed open")
	}
	if len(env.journal.events) != 1 {
		t.Fatalf("failed open was journaled")
	}
}

func TestDecreaseMoreThanHeld(t *testing.T) {
	env := newTestEnv(t)
	pool := env.initPool(t, 0, 10)
	env.fund(t, alice, 1_000_000)
	ctx := context.Background()

	req := LiquidityRequest{Pool: pool.Address, Owner: alice, TickLower: -100, TickUpper: 100, Liquidity: uint128.From64(100)}
	if _, err := env.engine.OpenPosition(ctx, req); err != nil {
		t.Fatalf("open: %v", err)
	}
	req.Liquidity = uint128.From64(200)
	if _, err := env.engine.DecreaseLiquidity(ctx, req); !errors.Is(err, clmm.ErrArithmeticOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}

	req.Owner = bob
	if _, err := env.engine.DecreaseLiquidity(ctx, req); !errors.Is(err, clmm.ErrPositionNotFound) {
		t.Fatalf("expected position not found for another owner, got %v", err)
	}
}

func TestDecreaseToZeroRefundsDeposit(t *testing.T) {
	env := newTestEnv(t)
	pool := env.initPool(t, 0, 10)
	env.fund(t, alice, 1_000_000)
	ctx := context.Background()

	req := LiquidityRequest{Pool: pool.Address, Owner: alice, TickLower: -100, TickUpper: 100, Liquidity: uint128.From64(1000)}
	opened, err := env.engine.OpenPosition(ctx, req)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if env.ledger.Balance(token.NativeMint, alice) != 1_000_000-testDeposit {
		t.Fatalf("deposit not charged")
	}

	receipt, err := env.engine.DecreaseLiquidity(ctx, req)
	if err != nil {
		t.Fatalf("decrease: %v", err)
	}
	if !receipt.Closed || !receipt.Liquidity.IsZero() {
		t.Fatalf("full decrease must close the position: %+v", receipt)
	}
	if _, ok := env.engine.Position(opened.Position); ok {
		t.Fatalf("drained position record still exists")
	}
	if env.ledger.Balance(token.NativeMint, opened.Position) != 0 {
		t.Fatalf("deposit still held at position account")
	}
	if env.ledger.Balance(token.NativeMint, alice) != 1_000_000 {
		t.Fatalf("deposit not refunded: %d", env.ledger.Balance(token.NativeMint, alice))
	}

	last := env.journal.events[len(env.journal.events)-1]
	burn := last.Decoded.(model.BurnEventData)
	if last.EventName != model.EventBurn || !burn.Closed {
		t.Fatalf("unexpected burn event: %+v", burn)
	}

	if _, err := env.engine.ClosePosition(ctx, req); !errors.Is(err, clmm.ErrNoLiquidityToRemove) {
		t.Fatalf("expected no liquidity to remove, got %v", err)
	}
}

func TestWithdrawalBeyondVaultIsRejected(t *testing.T) {
	env := newTestEnv(t)
	pool := env.initPool(t, 0, 10)
	env.fund(t, alice, 1_000_000)
	env.fund(t, bob, 1_000)
	ctx := context.Background()

	req := LiquidityRequest{Pool: pool.Address, Owner: alice, TickLower: -100, TickUpper: 100, Liquidity: uint128.From64(1000)}
	opened, err := env.engine.OpenPosition(ctx, req)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	res, err := env.engine.Swap(ctx, SwapRequest{Pool: pool.Address, Trader: bob, AmountIn: 10, ZeroForOne: true})
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	if res.TickNext >= req.TickLower {
		t.Fatalf("expected price below the range, got tick %d", res.TickNext)
	}

	vault0 := env.ledger.Balance(token0, pool.Vault0)
	if vault0 >= 1000 {
		t.Fatalf("vault0 unexpectedly covers a full token0 payout: %d", vault0)
	}
	if _, err := env.engine.ClosePosition(ctx, req); !errors.Is(err, token.ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}

	pos, ok := env.engine.Position(opened.Position)
	if !ok || pos.Liquidity.Cmp64(1000) != 0 {
		t.Fatalf("rejected close mutated the position")
	}
	if env.ledger.Balance(token0, pool.Vault0) != vault0 || env.ledger.Balance(token.NativeMint, opened.Position) != testDeposit {
		t.Fatalf("rejected close moved balances")
	}
}

func TestSwapThroughEngine(t *testing.T) {
	env := newTestEnv(t)
	pool := env.initPool(t, 0, 10)
	env.fund(t, alice, 10_000_000)
	env.fund(t, bob, 10_000)
	ctx := context.Background()

	if _, err := env.engine.OpenPosition(ctx, LiquidityRequest{
		Pool: pool.Address, Owner: alice, TickLower: -1000, TickUpper: 1000, Liquidity: uint128.From64(1_000_000),
	}); err != nil {
		t.Fatalf("open: %v", err)
	}

	quote, err := env.engine.QuoteSwap(ctx, pool.Address, 1000, true)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}

	_, err = env.engine.Swap(ctx, SwapRequest{Pool: pool.Address, Trader: bob, AmountIn: 1000, ZeroForOne: true, AmountOutMinimum: 999_999_999})
	if !errors.Is(err, clmm.ErrSlippageExceeded) {
		t.Fatalf("expected slippage exceeded, got %v", err)
	}

	res, err := env.engine.Swap(ctx, SwapRequest{Pool: pool.Address, Trader: bob, AmountIn: 1000, ZeroForOne: true, AmountOutMinimum: quote.AmountOut})
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	if res != quote {
		t.Fatalf("swap differs from quote: %+v vs %+v", res, quote)
	}
	if env.ledger.Balance(token0, bob) != 9_000 || env.ledger.Balance(token1, bob) != 10_000+res.AmountOut {
		t.Fatalf("unexpected trader balances: %d %d", env.ledger.Balance(token0, bob), env.ledger.Balance(token1, bob))
	}
	got, _ := env.engine.Pool(pool.Address)
	if got.CurrentTick != res.TickNext || !got.SqrtPriceX96.Equals(res.SqrtPriceNext) {
		t.Fatalf("pool price not committed")
	}

	last := env.journal.events[len(env.journal.events)-1]
	swap := last.Decoded.(model.SwapEventData)
	if last.EventName != model.EventSwap || swap.Amount0 != "1000" || swap.Amount1[0] != '-' {
		t.Fatalf("unexpected swap event: %+v", swap)
	}
}

func TestConcurrentOpensSerializePerPool(t *testing.T) {
	env := newTestEnv(t)
	poolA := env.initPool(t, 0, 10)
	price, _ := tickmath.SqrtPriceFromTick(0)
	poolB, err := env.engine.InitializePool(context.Background(), InitializePoolRequest{
		Token0: token0, Token1: token1, TickSpacing: 60, SqrtPriceX96: price,
	})
	if err != nil {
		t.Fatalf("init pool b: %v", err)
	}

	const owners = 16
	addrs := make([]common.Address, owners)
	for i := range addrs {
		addrs[i] = common.BytesToAddress([]byte{0xee, byte(i + 1)})
		env.fund(t, addrs[i], 1_000_000)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 2*owners)
	for i := 0; i < owners; i++ {
		for _, pool := range []*clmm.Pool{poolA, poolB} {
			wg.Add(1)
			go func(owner common.Address, pool *clmm.Pool) {
				defer wg.Done()
				_, err := env.engine.OpenPosition(context.Background(), LiquidityRequest{
					Pool:      pool.Address,
					Owner:     owner,
					TickLower: -10 * pool.TickSpacing,
					TickUpper: 10 * pool.TickSpacing,
					Liquidity: uint128.From64(100),
				})
				errs <- err
			}(addrs[i], pool)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("open: %v", err)
		}
	}

	for _, pool := range []*clmm.Pool{poolA, poolB} {
		got, _ := env.engine.Pool(pool.Address)
		if got.GlobalLiquidity.Cmp64(owners*100) != 0 {
			t.Fatalf("pool %s lost updates: %s", pool.Address.Hex(), got.GlobalLiquidity)
		}
		start, _ := clmm.StartingTickFor(-10*pool.TickSpacing, pool.TickSpacing)
		arr, _ := env.engine.TickArray(registry.TickArrayAddress(pool.Address, start))
		info, _ := arr.Tick(-10*pool.TickSpacing, pool.TickSpacing)
		if info.LiquidityNet.Int64() != owners*100 {
			t.Fatalf("pool %s lower tick lost updates: %s", pool.Address.Hex(), info.LiquidityNet)
		}
	}
	if env.engine.Seq() != uint64(2+2*owners) {
		t.Fatalf("unexpected journal seq %d", env.engine.Seq())
	}
}

func TestCanceledContext(t *testing.T) {
	env := newTestEnv(t)
	pool := env.initPool(t, 0, 10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := env.engine.QuoteSwap(ctx, pool.Address, 1, true); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", err)
	}
}
