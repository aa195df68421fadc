// Global agreement on the collaborator interfaces the custody core consumes.
// They are all synchronous queries so tests can swap in deterministic fakes.

package agreement

import (
	"database/sql"
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

// BridgeView answers whether a BTC deposit transaction/output pair has been
// recognized by the deposit-detection side of the bridge.
type BridgeView interface {
	IsDeposited(txHash ethcommon.Hash, txOut uint32) (bool, error)
}

// BitcoinView maps a BTC block height to the header hash the consensus
// process accepted at that height. The hash uses display byte order.
type BitcoinView interface {
	BlockHash(height uint64) (ethcommon.Hash, error)
}

// ValueLedger tracks the native-unit value backing each deposit address.
// Retire removes value permanently; it must fail when the balance is
// short. It runs inside the caller's transaction so the value mutation
// and the task-state mutation commit or revert together.
type ValueLedger interface {
	BalanceOf(addr ethcommon.Address) (*big.Int, error)
	Retire(tx *sql.Tx, addr ethcommon.Address, amount *big.Int) error
}

// TaskNotifier receives a structured event after every successful mutating
// call on the task manager. Consumed by off-system monitoring only.
type TaskNotifier interface {
	Publish(ev interface{})
}
