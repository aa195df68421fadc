// TaskManager owns every custody task and drives it through the state
// machine. Mutating calls are serialized by one mutex and each commits
// in a single sqlite transaction, so an invocation either fully applies
// or leaves no trace.

package custody

import (
	"math/big"
	"sync"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	logger "github.com/sirupsen/logrus"

	"github.com/TEENet-io/btc-custody-go/agreement"
	"github.com/TEENet-io/btc-custody-go/btcaddr"
	"github.com/TEENet-io/btc-custody-go/common"
	"github.com/TEENet-io/btc-custody-go/merkle"
)

type TaskManagerConfig struct {
	Mainnet bool // network for the btc address check

	Roles    agreement.RoleStore
	Bridge   agreement.BridgeView
	Bitcoin  agreement.BitcoinView
	Ledger   agreement.ValueLedger
	Notifier agreement.TaskNotifier // optional

	// Clock returns the current unix time; nil means time.Now.
	// Injectable so tests can move past deadlines and timelocks.
	Clock func() int64
}

type TaskManager struct {
	statedb *TaskStateDB
	cfg     *TaskManagerConfig
	clock   func() int64

	mu sync.Mutex // serializes mutating invocations
}

func NewTaskManager(statedb *TaskStateDB, cfg *TaskManagerConfig) *TaskManager {
	clock := cfg.Clock
	if clock == nil {
		clock = func() int64 { return time.Now().Unix() }
	}

	return &TaskManager{
		statedb: statedb,
		cfg:     cfg,
		clock:   clock,
	}
}

func (m *TaskManager) notify(ev interface{}) {
	if m.cfg.Notifier != nil {
		m.cfg.Notifier.Publish(ev)
	}
}

// Create opens a new custody task in status created and marks the
// deposit address busy. Admin only. The claimed btc address must be the
// P2WPKH encoding of the claimed public key; this is the one and only
// time that binding is checked.
func (m *TaskManager) Create(
	caller ethcommon.Address,
	partnerId uint64,
	depositAddress ethcommon.Address,
	timelockEndTime int64,
	deadline int64,
	amount *big.Int,
	btcAddress string,
	btcPubKey []byte,
) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.cfg.Roles.HasRole(caller, agreement.RoleAdmin) {
		return 0, ErrorNotAdmin
	}

	now := m.clock()
	if deadline <= now {
		return 0, ErrorBadDeadline
	}
	if timelockEndTime <= deadline {
		return 0, ErrorBadTimelockEnd
	}
	if !ValidAmount(amount) {
		return 0, ErrorBadAmount
	}

	derived, err := btcaddr.PubKeyToP2WPKH(btcPubKey, m.cfg.Mainnet)
	if err != nil {
		return 0, err
	}
	if derived != btcAddress {
		return 0, ErrorBtcAddressMismatch
	}

	if _, busy, err := m.statedb.GetAddressTaskId(depositAddress); err != nil {
		return 0, err
	} else if busy {
		return 0, ErrorAddressBusy
	}

	task := &Task{
		PartnerId:       partnerId,
		DepositAddress:  depositAddress,
		Status:          TaskStatusCreated,
		TimelockEndTime: timelockEndTime,
		Deadline:        deadline,
		Amount:          common.BigIntClone(amount),
		BtcAddress:      btcAddress,
		BtcPubKey:       btcPubKey,
	}

	tx, err := m.statedb.Begin()
	if err != nil {
		return 0, err
	}
	taskId, err := m.statedb.InsertTask(tx, task)
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}

	logger.WithFields(logger.Fields{
		"taskId":  taskId,
		"partner": partnerId,
		"address": depositAddress.String(),
	}).Info("custody task created")

	m.notify(&agreement.TaskCreatedEvent{
		TaskId:          taskId,
		PartnerId:       partnerId,
		DepositAddress:  depositAddress,
		Amount:          common.BigIntClone(amount),
		BtcAddress:      btcAddress,
		Deadline:        deadline,
		TimelockEndTime: timelockEndTime,
	})

	return taskId, nil
}

// Cancel erases a task that never received funds and frees its address
// slot. Admin only, status created only.
func (m *TaskManager) Cancel(caller ethcommon.Address, taskId uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.cfg.Roles.HasRole(caller, agreement.RoleAdmin) {
		return ErrorNotAdmin
	}

	task, found, err := m.statedb.GetTask(taskId)
	if err != nil {
		return err
	}
	if !found {
		return ErrorTaskNotFound
	}
	if task.Status != TaskStatusCreated {
		return ErrorWrongStatus
	}

	tx, err := m.statedb.Begin()
	if err != nil {
		return err
	}
	if err := m.statedb.DeleteTask(tx, task); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	logger.WithField("taskId", taskId).Info("custody task cancelled")

	m.notify(&agreement.TaskCancelledEvent{
		TaskId:         taskId,
		DepositAddress: task.DepositAddress,
	})

	return nil
}

// ReceiveFunds certifies that the BTC deposit arrived. Relayer only,
// status created only, before the deadline, exact amount, and the
// bridge must recognize the funding tx/out pair.
func (m *TaskManager) ReceiveFunds(
	caller ethcommon.Address,
	taskId uint64,
	amount *big.Int,
	fundingTxHash ethcommon.Hash,
	txOut uint32,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.cfg.Roles.HasRole(caller, agreement.RoleRelayer) {
		return ErrorNotRelayer
	}

	task, found, err := m.statedb.GetTask(taskId)
	if err != nil {
		return err
	}
	if !found {
		return ErrorTaskNotFound
	}
	if task.Status != TaskStatusCreated {
		return ErrorWrongStatus
	}

	if m.clock() >= task.Deadline {
		return ErrorDeadlinePassed
	}
	if amount == nil || amount.Cmp(task.Amount) != 0 {
		return ErrorAmountUnmatched
	}

	deposited, err := m.cfg.Bridge.IsDeposited(fundingTxHash, txOut)
	if err != nil {
		return err
	}
	if !deposited {
		return ErrorNotDeposited
	}

	task.Status = TaskStatusReceived
	task.FundingTxHash = fundingTxHash
	task.FundingTxOut = txOut

	tx, err := m.statedb.Begin()
	if err != nil {
		return err
	}
	if err := m.statedb.UpdateAfterReceived(tx, task); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	logger.WithFields(logger.Fields{
		"taskId":    taskId,
		"fundingTx": task.FundingTxHash.String(),
	}).Info("custody task funds received")

	m.notify(&agreement.FundsReceivedEvent{
		TaskId:        taskId,
		Amount:        common.BigIntClone(amount),
		FundingTxHash: fundingTxHash,
		FundingTxOut:  txOut,
	})

	return nil
}

// InitTimelockTx registers the transaction moving funds into the
// time-locked output. Relayer only. Re-entrant from its own target
// status so the relayer can re-broadcast a replacement tx before
// confirmation. The txid is the double SHA-256 of the raw bytes,
// stored in display byte order.
func (m *TaskManager) InitTimelockTx(
	caller ethcommon.Address,
	taskId uint64,
	rawTx []byte,
	txOut uint32,
	witnessScript []byte,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.cfg.Roles.HasRole(caller, agreement.RoleRelayer) {
		return ErrorNotRelayer
	}

	task, found, err := m.statedb.GetTask(taskId)
	if err != nil {
		return err
	}
	if !found {
		return ErrorTaskNotFound
	}
	if task.Status != TaskStatusReceived && task.Status != TaskStatusTimelockInit {
		return ErrorWrongStatus
	}

	if len(rawTx) == 0 {
		return ErrorEmptyRawTx
	}

	txId := merkle.Reverse32(merkle.DoubleSha256(rawTx))

	task.Status = TaskStatusTimelockInit
	task.TimelockTxHash = ethcommon.Hash(txId)
	task.TimelockTxOut = txOut
	task.WitnessScript = witnessScript

	tx, err := m.statedb.Begin()
	if err != nil {
		return err
	}
	if err := m.statedb.UpdateAfterTimelockInit(tx, task); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	logger.WithFields(logger.Fields{
		"taskId":     taskId,
		"timelockTx": task.TimelockTxHash.String(),
	}).Info("custody task timelock initialized")

	m.notify(&agreement.TimelockInitializedEvent{
		TaskId:         taskId,
		TimelockTxHash: task.TimelockTxHash,
		TimelockTxOut:  txOut,
	})

	return nil
}

// ProcessTimelockTx verifies via SPV that the registered timelock tx is
// included at index under the merkle root of the block at height. The
// header's own hash must match what the bitcoin view reports for that
// height; a hash mismatch is an authentication failure distinct from a
// failing proof. On success the address slot is freed.
func (m *TaskManager) ProcessTimelockTx(
	caller ethcommon.Address,
	taskId uint64,
	rawHeader []byte,
	height uint64,
	proof [][32]byte,
	index int,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.cfg.Roles.HasRole(caller, agreement.RoleRelayer) {
		return ErrorNotRelayer
	}

	task, found, err := m.statedb.GetTask(taskId)
	if err != nil {
		return err
	}
	if !found {
		return ErrorTaskNotFound
	}
	if task.Status != TaskStatusTimelockInit {
		return ErrorWrongStatus
	}

	info, err := merkle.ParseHeader(rawHeader)
	if err != nil {
		return err
	}

	expected, err := m.cfg.Bitcoin.BlockHash(height)
	if err != nil {
		return err
	}
	if ethcommon.Hash(merkle.Reverse32(info.BlockHash)) != expected {
		return ErrorBlockHashMismatch
	}

	// stored txid is display order, the tree hashes internal order
	leaf := merkle.Reverse32([32]byte(task.TimelockTxHash))
	if !merkle.VerifyMerkleProof(info.MerkleRoot, proof, leaf, index) {
		return ErrorMerkleProofInvalid
	}

	tx, err := m.statedb.Begin()
	if err != nil {
		return err
	}
	if err := m.statedb.UpdateAfterConfirmed(tx, task); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	logger.WithFields(logger.Fields{
		"taskId": taskId,
		"height": height,
	}).Info("custody task timelock confirmed")

	m.notify(&agreement.TimelockProcessedEvent{
		TaskId:         taskId,
		DepositAddress: task.DepositAddress,
		BlockHeight:    height,
	})

	return nil
}

// Burn retires the task's value once the timelock matured. Open to any
// caller. Fails when the ledger cannot cover the amount.
func (m *TaskManager) Burn(caller ethcommon.Address, taskId uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	task, found, err := m.statedb.GetTask(taskId)
	if err != nil {
		return err
	}
	if !found {
		return ErrorTaskNotFound
	}
	if task.Status != TaskStatusConfirmed {
		return ErrorWrongStatus
	}

	if m.clock() < task.TimelockEndTime {
		return ErrorTimelockNotExpired
	}

	return m.retire(task, false)
}

// ForceComplete is the administrative fast path: same effect as Burn
// but skips the timelock maturity check. Admin only.
func (m *TaskManager) ForceComplete(caller ethcommon.Address, taskId uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.cfg.Roles.HasRole(caller, agreement.RoleAdmin) {
		return ErrorNotAdmin
	}

	task, found, err := m.statedb.GetTask(taskId)
	if err != nil {
		return err
	}
	if !found {
		return ErrorTaskNotFound
	}
	if task.Status != TaskStatusConfirmed {
		return ErrorWrongStatus
	}

	return m.retire(task, true)
}

// retire moves the task to completed and removes its value from the
// ledger. The ledger call happens inside the transaction window, before
// commit, so a short balance aborts with no status change.
func (m *TaskManager) retire(task *Task, forced bool) error {
	balance, err := m.cfg.Ledger.BalanceOf(task.DepositAddress)
	if err != nil {
		return err
	}
	if balance.Cmp(task.Amount) < 0 {
		return ErrorInsufficientBalance
	}

	tx, err := m.statedb.Begin()
	if err != nil {
		return err
	}
	if err := m.statedb.UpdateAfterCompleted(tx, task); err != nil {
		tx.Rollback()
		return err
	}
	if err := m.cfg.Ledger.Retire(tx, task.DepositAddress, task.Amount); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	logger.WithFields(logger.Fields{
		"taskId": task.TaskId,
		"amount": task.Amount.String(),
		"forced": forced,
	}).Info("custody task value retired")

	m.notify(&agreement.TaskBurnedEvent{
		TaskId:         task.TaskId,
		DepositAddress: task.DepositAddress,
		Amount:         common.BigIntClone(task.Amount),
		Forced:         forced,
	})

	return nil
}

// GetTask returns a single task by id.
func (m *TaskManager) GetTask(taskId uint64) (*Task, error) {
	task, found, err := m.statedb.GetTask(taskId)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrorTaskNotFound
	}
	return task, nil
}

// GetPartnerTaskIds lists the task ids ever created for a partner.
func (m *TaskManager) GetPartnerTaskIds(partnerId uint64) ([]uint64, error) {
	return m.statedb.GetPartnerTaskIds(partnerId)
}

// AddressTaskId reports which task currently holds the address slot;
// found == false means the address is available.
func (m *TaskManager) AddressTaskId(addr ethcommon.Address) (uint64, bool, error) {
	return m.statedb.GetAddressTaskId(addr)
}
