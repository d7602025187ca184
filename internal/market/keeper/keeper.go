package keeper

import (
	"sync"
	"sync/atomic"
	"time"

	"cosmossdk.io/log"
	"cosmossdk.io/math"

	"github.com/agora-market/agora/internal/market/types"
)

// ValueTransferPort is the synchronous move-value primitive the ledger uses to
// hold and release escrow. It is an injected dependency; the engine never
// retries a failed transfer and aborts the enclosing operation instead.
type ValueTransferPort interface {
	Transfer(from, to string, amount math.Int) error
}

// BalanceReader is optionally implemented by a port that can report account
// balances. When available it is used by the conservation invariant and by
// the emergency-withdraw surplus check.
type BalanceReader interface {
	Balance(account string) math.Int
}

// EventSink receives the committed event stream of the engine.
type EventSink interface {
	Publish(events ...types.Event)
}

// NowFunc supplies the engine clock. Injected so the timeout state machine is
// deterministically testable.
type NowFunc func() time.Time

// Keeper owns every market record: listings and their active index, escrowed
// requests, and reputation. All public operations execute as single atomic,
// serialized units behind one lock; there is no partial visibility of an
// in-progress operation.
type Keeper struct {
	mu sync.RWMutex

	// inTransfer is set for the duration of any call into the value-transfer
	// port. Every entry point checks it before taking the lock, so a port
	// that calls back into the engine mid-transfer is rejected with
	// ErrReentrancy instead of deadlocking or double-spending.
	inTransfer atomic.Bool

	log     log.Logger
	now     NowFunc
	port    ValueTransferPort
	custody string
	params  types.Params
	sink    EventSink
	metrics *Metrics

	listings      map[uint64]*types.Listing
	ownerListings map[string][]uint64
	nextListingID uint64

	activeIndex *ActiveListingIndex

	requests      map[uint64]*types.Request
	nextRequestID uint64

	reputations map[string]*types.ReputationRecord

	// heldTotal mirrors the custody balance owed to open requests: at all
	// times it equals the sum of Price over requests not yet terminal.
	heldTotal math.Int

	paused bool
}

// NewKeeper creates the settlement engine. custody names the account on the
// value-transfer port that holds escrowed value between creation and
// settlement. sink may be nil when no downstream consumer is attached.
func NewKeeper(logger log.Logger, port ValueTransferPort, custody string, params types.Params, now NowFunc, sink EventSink) *Keeper {
	if now == nil {
		now = time.Now
	}
	return &Keeper{
		log:           logger.With("module", types.ModuleName),
		now:           now,
		port:          port,
		custody:       custody,
		params:        params,
		sink:          sink,
		metrics:       NewMetrics(),
		listings:      make(map[uint64]*types.Listing),
		ownerListings: make(map[string][]uint64),
		nextListingID: 1, // id 0 is reserved as "no listing"
		activeIndex:   NewActiveListingIndex(),
		requests:      make(map[uint64]*types.Request),
		nextRequestID: 1,
		reputations:   make(map[string]*types.ReputationRecord),
		heldTotal:     math.ZeroInt(),
	}
}

// Params returns the engine parameters.
func (k *Keeper) Params() types.Params {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.params
}

// lockMutating serializes a mutating operation. It fails fast when called
// from inside an in-flight transfer: the nested call must never observe a
// half-settled ledger, and a plain Lock would deadlock on the same goroutine.
func (k *Keeper) lockMutating() error {
	if k.inTransfer.Load() {
		return types.ErrReentrancy
	}
	k.mu.Lock()
	return nil
}

// lockQuery serializes a read-only operation against in-progress mutations.
func (k *Keeper) lockQuery() error {
	if k.inTransfer.Load() {
		return types.ErrReentrancy
	}
	k.mu.RLock()
	return nil
}

// transfer invokes the value-transfer port with the reentrancy guard raised.
// Internal state must already be in its terminal, consistent form before this
// is called on any settlement path.
func (k *Keeper) transfer(from, to string, amount math.Int) error {
	k.inTransfer.Store(true)
	defer k.inTransfer.Store(false)
	return k.port.Transfer(from, to, amount)
}

// commit publishes the buffered events of a committed operation. Called with
// the lock held; the sink is expected not to block.
func (k *Keeper) commit(em *types.EventManager) {
	if k.sink == nil {
		return
	}
	if events := em.Events(); len(events) > 0 {
		k.sink.Publish(events...)
	}
}

// checkPaused rejects mutating operations while the pause gate is active.
// Cancellation paths bypass it so no party can be stuck mid-transaction.
func (k *Keeper) checkPaused() error {
	if k.paused {
		return types.ErrPaused
	}
	return nil
}
