package custody

import (
	"math/big"
	"testing"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"

	"github.com/TEENet-io/btc-custody-go/common"
)

func bigInt(n int64) *big.Int {
	return big.NewInt(n)
}

func newTestStateDBEnv(t *testing.T) (*TaskStateDB, func()) {
	sqlDB := getMemoryDB()
	statedb, err := NewTaskStateDB(sqlDB)
	assert.NoError(t, err)
	return statedb, func() {
		statedb.Close()
		sqlDB.Close()
	}
}

func insertTask(t *testing.T, db *TaskStateDB, task *Task) uint64 {
	tx, err := db.Begin()
	assert.NoError(t, err)
	id, err := db.InsertTask(tx, task)
	assert.NoError(t, err)
	assert.NoError(t, tx.Commit())
	return id
}

func TestInsertAndGetTask(t *testing.T) {
	db, close := newTestStateDBEnv(t)
	defer close()

	expected := RandTask(TaskStatusCreated)
	id := insertTask(t, db, expected)
	assert.Equal(t, uint64(1), id) // ids start at 1, 0 is the sentinel

	actual, found, err := db.GetTask(id)
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, expected.PartnerId, actual.PartnerId)
	assert.Equal(t, expected.DepositAddress, actual.DepositAddress)
	assert.Equal(t, TaskStatusCreated, actual.Status)
	assert.Equal(t, expected.TimelockEndTime, actual.TimelockEndTime)
	assert.Equal(t, expected.Deadline, actual.Deadline)
	assert.Equal(t, expected.Amount, actual.Amount)
	assert.Equal(t, expected.BtcAddress, actual.BtcAddress)
	assert.Equal(t, expected.BtcPubKey, actual.BtcPubKey)
	assert.Equal(t, ethcommon.Hash{}, actual.FundingTxHash)
	assert.Equal(t, ethcommon.Hash{}, actual.TimelockTxHash)
}

func TestGetTaskMissing(t *testing.T) {
	db, close := newTestStateDBEnv(t)
	defer close()

	_, found, err := db.GetTask(42)
	assert.NoError(t, err)
	assert.False(t, found)
}

func TestAddressSlotLifecycle(t *testing.T) {
	db, close := newTestStateDBEnv(t)
	defer close()

	task := RandTask(TaskStatusCreated)
	id := insertTask(t, db, task)
	task.TaskId = id

	slotId, busy, err := db.GetAddressTaskId(task.DepositAddress)
	assert.NoError(t, err)
	assert.True(t, busy)
	assert.Equal(t, id, slotId)

	// confirming frees the slot but keeps the row
	tx, err := db.Begin()
	assert.NoError(t, err)
	assert.NoError(t, db.UpdateAfterConfirmed(tx, task))
	assert.NoError(t, tx.Commit())

	_, busy, err = db.GetAddressTaskId(task.DepositAddress)
	assert.NoError(t, err)
	assert.False(t, busy)

	got, found, err := db.GetTask(id)
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, TaskStatusConfirmed, got.Status)
}

func TestDeleteTaskFreesSlot(t *testing.T) {
	db, close := newTestStateDBEnv(t)
	defer close()

	task := RandTask(TaskStatusCreated)
	id := insertTask(t, db, task)
	task.TaskId = id

	tx, err := db.Begin()
	assert.NoError(t, err)
	assert.NoError(t, db.DeleteTask(tx, task))
	assert.NoError(t, tx.Commit())

	_, found, err := db.GetTask(id)
	assert.NoError(t, err)
	assert.False(t, found)

	_, busy, err := db.GetAddressTaskId(task.DepositAddress)
	assert.NoError(t, err)
	assert.False(t, busy)
}

func TestUpdateAfterReceivedRoundTrip(t *testing.T) {
	db, close := newTestStateDBEnv(t)
	defer close()

	task := RandTask(TaskStatusCreated)
	task.TaskId = insertTask(t, db, task)

	task.Status = TaskStatusReceived
	task.FundingTxHash = ethcommon.Hash(common.RandBytes32())
	task.FundingTxOut = 3

	tx, err := db.Begin()
	assert.NoError(t, err)
	assert.NoError(t, db.UpdateAfterReceived(tx, task))
	assert.NoError(t, tx.Commit())

	got, found, err := db.GetTask(task.TaskId)
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, TaskStatusReceived, got.Status)
	assert.Equal(t, task.FundingTxHash, got.FundingTxHash)
	assert.Equal(t, uint32(3), got.FundingTxOut)
}

func TestUpdateAfterTimelockInitRoundTrip(t *testing.T) {
	db, close := newTestStateDBEnv(t)
	defer close()

	task := RandTask(TaskStatusReceived)
	task.TaskId = insertTask(t, db, task)

	task.Status = TaskStatusTimelockInit
	task.TimelockTxHash = ethcommon.Hash(common.RandBytes32())
	task.TimelockTxOut = 1
	task.WitnessScript = common.RandBytes(40)

	tx, err := db.Begin()
	assert.NoError(t, err)
	assert.NoError(t, db.UpdateAfterTimelockInit(tx, task))
	assert.NoError(t, tx.Commit())

	got, found, err := db.GetTask(task.TaskId)
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, TaskStatusTimelockInit, got.Status)
	assert.Equal(t, task.TimelockTxHash, got.TimelockTxHash)
	assert.Equal(t, uint32(1), got.TimelockTxOut)
	assert.Equal(t, task.WitnessScript, got.WitnessScript)
}

func TestGetPartnerTaskIds(t *testing.T) {
	db, close := newTestStateDBEnv(t)
	defer close()

	a := RandTask(TaskStatusCreated)
	a.PartnerId = 11
	b := RandTask(TaskStatusCreated)
	b.PartnerId = 11
	c := RandTask(TaskStatusCreated)
	c.PartnerId = 22

	idA := insertTask(t, db, a)
	idB := insertTask(t, db, b)
	insertTask(t, db, c)

	ids, err := db.GetPartnerTaskIds(11)
	assert.NoError(t, err)
	assert.Equal(t, []uint64{idA, idB}, ids)

	ids, err = db.GetPartnerTaskIds(33)
	assert.NoError(t, err)
	assert.Len(t, ids, 0)
}

func TestSQLValueLedger(t *testing.T) {
	sqlDB := getMemoryDB()
	defer sqlDB.Close()

	ledger, err := NewSQLValueLedger(sqlDB)
	assert.NoError(t, err)
	defer ledger.Close()

	addr := common.RandEthAddress()

	balance, err := ledger.BalanceOf(addr)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), balance.Int64())

	assert.NoError(t, ledger.Credit(addr, bigInt(5000)))

	tx, err := sqlDB.Begin()
	assert.NoError(t, err)
	assert.NoError(t, ledger.Retire(tx, addr, bigInt(2000)))
	assert.NoError(t, tx.Commit())

	balance, err = ledger.BalanceOf(addr)
	assert.NoError(t, err)
	assert.Equal(t, int64(3000), balance.Int64())

	tx, err = sqlDB.Begin()
	assert.NoError(t, err)
	assert.ErrorIs(t, ledger.Retire(tx, addr, bigInt(4000)), ErrorInsufficientBalance)
	assert.NoError(t, tx.Rollback())

	// a rolled back transaction must leave the balance untouched
	tx, err = sqlDB.Begin()
	assert.NoError(t, err)
	assert.NoError(t, ledger.Retire(tx, addr, bigInt(3000)))
	assert.NoError(t, tx.Rollback())

	balance, err = ledger.BalanceOf(addr)
	assert.NoError(t, err)
	assert.Equal(t, int64(3000), balance.Int64())
}
