package custody

import (
	"database/sql"

	"github.com/TEENet-io/btc-custody-go/common"
	"github.com/TEENet-io/btc-custody-go/database"
	ethcommon "github.com/ethereum/go-ethereum/common"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// TaskStateDB persists tasks, the per-address busy slot and the value
// ledger. Reads go through cached prepared statements; writes belong to
// the caller's transaction so one custody operation commits atomically.
type TaskStateDB struct {
	db        *sql.DB
	stmtCache *database.StmtCache
}

func NewTaskStateDB(db *sql.DB) (*TaskStateDB, error) {
	if _, err := db.Exec(taskTable + addressSlotTable + balanceTable); err != nil {
		return nil, err
	}

	return &TaskStateDB{
		db:        db,
		stmtCache: database.NewStmtCache(db),
	}, nil
}

func (st *TaskStateDB) Close() {
	st.stmtCache.Clear()
}

func (st *TaskStateDB) Begin() (*sql.Tx, error) {
	return st.db.Begin()
}

func addrHex(addr ethcommon.Address) string {
	return common.ByteSliceToPureHexStr(addr.Bytes())
}

// GetTask returns (task, found, error). A missing row is not an error.
func (st *TaskStateDB) GetTask(taskId uint64) (*Task, bool, error) {
	query := `SELECT` + taskColumnList + `FROM task WHERE taskId = ?`
	stmt, err := st.stmtCache.Prepare(query)
	if err != nil {
		return nil, false, err
	}

	s := &sqlTask{}
	err = stmt.QueryRow(taskId).Scan(
		&s.TaskId,
		&s.PartnerId,
		&s.DepositAddress,
		&s.Status,
		&s.TimelockEndTime,
		&s.Deadline,
		&s.Amount,
		&s.FundingTxHash,
		&s.FundingTxOut,
		&s.TimelockTxHash,
		&s.TimelockTxOut,
		&s.WitnessScript,
		&s.BtcAddress,
		&s.BtcPubKey,
	)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	task, err := s.decode()
	if err != nil {
		return nil, false, err
	}
	return task, true, nil
}

func (st *TaskStateDB) GetPartnerTaskIds(partnerId uint64) ([]uint64, error) {
	query := `SELECT taskId FROM task WHERE partnerId = ? ORDER BY taskId`
	stmt, err := st.stmtCache.Prepare(query)
	if err != nil {
		return nil, err
	}

	rows, err := stmt.Query(partnerId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetAddressTaskId reports the task currently holding the address slot.
// found == false means the address is available.
func (st *TaskStateDB) GetAddressTaskId(addr ethcommon.Address) (uint64, bool, error) {
	query := `SELECT taskId FROM address_slot WHERE depositAddress = ?`
	stmt, err := st.stmtCache.Prepare(query)
	if err != nil {
		return 0, false, err
	}

	var id uint64
	if err := stmt.QueryRow(addrHex(addr)).Scan(&id); err != nil {
		if err == sql.ErrNoRows {
			return 0, false, nil
		}
		return 0, false, err
	}
	return id, true, nil
}

// InsertTask writes a fresh task in status created and marks its
// deposit address busy. Returns the allocated task id.
func (st *TaskStateDB) InsertTask(tx *sql.Tx, task *Task) (uint64, error) {
	s := (&sqlTask{}).encode(task)

	res, err := tx.Exec(
		`INSERT INTO task (partnerId, depositAddress, status, timelockEndTime, deadline, amount, witnessScript, btcAddress, btcPubKey)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.PartnerId,
		s.DepositAddress,
		s.Status,
		s.TimelockEndTime,
		s.Deadline,
		s.Amount,
		s.WitnessScript,
		s.BtcAddress,
		s.BtcPubKey,
	)
	if err != nil {
		return 0, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if _, err := tx.Exec(
		`INSERT INTO address_slot (depositAddress, taskId) VALUES (?, ?)`,
		s.DepositAddress, id,
	); err != nil {
		return 0, err
	}

	return uint64(id), nil
}

// DeleteTask erases a cancelled task and frees its address slot.
func (st *TaskStateDB) DeleteTask(tx *sql.Tx, task *Task) error {
	if _, err := tx.Exec(`DELETE FROM task WHERE taskId = ?`, task.TaskId); err != nil {
		return err
	}
	_, err := tx.Exec(`DELETE FROM address_slot WHERE depositAddress = ?`, addrHex(task.DepositAddress))
	return err
}

func (st *TaskStateDB) UpdateAfterReceived(tx *sql.Tx, task *Task) error {
	s := (&sqlTask{}).encode(task)
	_, err := tx.Exec(
		`UPDATE task SET status = ?, fundingTxHash = ?, fundingTxOut = ? WHERE taskId = ?`,
		s.Status, s.FundingTxHash, s.FundingTxOut, s.TaskId,
	)
	return err
}

func (st *TaskStateDB) UpdateAfterTimelockInit(tx *sql.Tx, task *Task) error {
	s := (&sqlTask{}).encode(task)
	_, err := tx.Exec(
		`UPDATE task SET status = ?, timelockTxHash = ?, timelockTxOut = ?, witnessScript = ? WHERE taskId = ?`,
		s.Status, s.TimelockTxHash, s.TimelockTxOut, s.WitnessScript, s.TaskId,
	)
	return err
}

// UpdateAfterConfirmed advances the status and frees the address slot
// in the same transaction.
func (st *TaskStateDB) UpdateAfterConfirmed(tx *sql.Tx, task *Task) error {
	if _, err := tx.Exec(
		`UPDATE task SET status = ? WHERE taskId = ?`,
		string(TaskStatusConfirmed), task.TaskId,
	); err != nil {
		return err
	}
	_, err := tx.Exec(`DELETE FROM address_slot WHERE depositAddress = ?`, addrHex(task.DepositAddress))
	return err
}

func (st *TaskStateDB) UpdateAfterCompleted(tx *sql.Tx, task *Task) error {
	_, err := tx.Exec(
		`UPDATE task SET status = ? WHERE taskId = ?`,
		string(TaskStatusCompleted), task.TaskId,
	)
	return err
}
