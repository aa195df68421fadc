// Custody task = one cross-chain deposit lifecycle record.
// created -> received -> timelock_inited -> confirmed -> completed,
// with cancellation as an early exit from created.

package custody

import (
	"errors"
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

type TaskStatus string

const (
	TaskStatusCreated      TaskStatus = "created"         // admin opened the task, BTC not seen yet
	TaskStatusReceived     TaskStatus = "received"        // relayer certified the BTC deposit
	TaskStatusTimelockInit TaskStatus = "timelock_inited" // timelock tx registered, not confirmed on BTC
	TaskStatusConfirmed    TaskStatus = "confirmed"       // SPV proof accepted, address freed
	TaskStatusCompleted    TaskStatus = "completed"       // value retired, task immutable
)

// Amounts are in the 18-decimal native unit. Only the top 6 decimal
// digits are significant, so every amount must be a multiple of the
// granularity and above the floor.
var (
	TaskAmountGranularity = big.NewInt(1e12)
	MinTaskAmount         = big.NewInt(1e15)
)

var (
	// validation
	ErrorBadDeadline        = errors.New("deadline must be in the future")
	ErrorBadTimelockEnd     = errors.New("timelock end time must be after the deadline")
	ErrorBadAmount          = errors.New("amount below floor or not a multiple of the granularity")
	ErrorBtcAddressMismatch = errors.New("btc address is not the p2wpkh encoding of the btc public key")
	ErrorAddressBusy        = errors.New("deposit address already has an active task")
	ErrorEmptyRawTx         = errors.New("raw transaction bytes are empty")

	// state
	ErrorTaskNotFound = errors.New("task not found")
	ErrorWrongStatus  = errors.New("task is not in the required status")

	// authorization
	ErrorNotAdmin   = errors.New("caller does not hold the admin role")
	ErrorNotRelayer = errors.New("caller does not hold the relayer role")

	// external verification
	ErrorNotDeposited       = errors.New("bridge does not recognize the deposit tx/out pair")
	ErrorBlockHashMismatch  = errors.New("reconstructed block hash does not match the claimed height")
	ErrorMerkleProofInvalid = errors.New("merkle proof does not verify against the header root")

	// resource
	ErrorDeadlinePassed      = errors.New("task deadline has passed")
	ErrorAmountUnmatched     = errors.New("amount does not match the task")
	ErrorTimelockNotExpired  = errors.New("timelock end time not reached")
	ErrorInsufficientBalance = errors.New("insufficient value available to retire")
)

type Task struct {
	TaskId         uint64
	PartnerId      uint64
	DepositAddress ethcommon.Address
	Status         TaskStatus

	TimelockEndTime int64 // unix seconds
	Deadline        int64 // unix seconds, always < TimelockEndTime
	Amount          *big.Int

	// set once the relayer certifies the deposit
	FundingTxHash ethcommon.Hash
	FundingTxOut  uint32

	// set once the relayer registers the timelock tx.
	// TimelockTxHash uses display byte order (as explorers show it).
	TimelockTxHash ethcommon.Hash
	TimelockTxOut  uint32
	WitnessScript  []byte

	// claimed at creation, checked once against the public key
	BtcAddress string
	BtcPubKey  []byte
}

// ValidAmount checks the floor and granularity rules. The floor is
// exclusive, so the smallest valid amount is MinTaskAmount plus one
// granularity step.
func ValidAmount(amount *big.Int) bool {
	if amount == nil || amount.Cmp(MinTaskAmount) <= 0 {
		return false
	}
	return new(big.Int).Mod(amount, TaskAmountGranularity).Sign() == 0
}
