package agreement

import (
	"fmt"
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

// TaskCreatedEvent is published when an admin opens a new custody task.
type TaskCreatedEvent struct {
	TaskId          uint64
	PartnerId       uint64
	DepositAddress  ethcommon.Address
	Amount          *big.Int
	BtcAddress      string
	Deadline        int64
	TimelockEndTime int64
}

func (ev *TaskCreatedEvent) String() string {
	return fmt.Sprintf("%+v", *ev)
}

// TaskCancelledEvent is published when a task is erased before funding.
type TaskCancelledEvent struct {
	TaskId         uint64
	DepositAddress ethcommon.Address
}

func (ev *TaskCancelledEvent) String() string {
	return fmt.Sprintf("%+v", *ev)
}

// FundsReceivedEvent is published when the relayer certifies the BTC deposit.
type FundsReceivedEvent struct {
	TaskId        uint64
	Amount        *big.Int
	FundingTxHash ethcommon.Hash
	FundingTxOut  uint32
}

func (ev *FundsReceivedEvent) String() string {
	return fmt.Sprintf("%+v", *ev)
}

// TimelockInitializedEvent is published when the relayer registers the
// transaction moving funds into the time-locked output.
type TimelockInitializedEvent struct {
	TaskId         uint64
	TimelockTxHash ethcommon.Hash
	TimelockTxOut  uint32
}

func (ev *TimelockInitializedEvent) String() string {
	return fmt.Sprintf("%+v", *ev)
}

// TimelockProcessedEvent is published after SPV confirmation of the
// timelock transaction. The deposit address becomes available again.
type TimelockProcessedEvent struct {
	TaskId         uint64
	DepositAddress ethcommon.Address
	BlockHeight    uint64
}

func (ev *TimelockProcessedEvent) String() string {
	return fmt.Sprintf("%+v", *ev)
}

// TaskBurnedEvent is published when the represented value is retired,
// either by Burn after timelock maturity or by ForceComplete.
type TaskBurnedEvent struct {
	TaskId         uint64
	DepositAddress ethcommon.Address
	Amount         *big.Int
	Forced         bool
}

func (ev *TaskBurnedEvent) String() string {
	return fmt.Sprintf("%+v", *ev)
}
