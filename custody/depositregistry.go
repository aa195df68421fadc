package custody

import (
	"database/sql"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"github.com/TEENet-io/btc-custody-go/database"
)

var recognizedDepositTable = `CREATE TABLE IF NOT EXISTS recognized_deposit (
	txHash CHAR(64) NOT NULL,
	txOut INTEGER NOT NULL,
	PRIMARY KEY (txHash, txOut)
);`

// DepositRegistry is a sqlite-backed agreement.BridgeView. An external
// deposit scanner marks each recognized funding tx/out pair; the task
// manager only ever reads.
type DepositRegistry struct {
	stmtCache *database.StmtCache
}

func NewDepositRegistry(db *sql.DB) (*DepositRegistry, error) {
	if _, err := db.Exec(recognizedDepositTable); err != nil {
		return nil, err
	}
	return &DepositRegistry{stmtCache: database.NewStmtCache(db)}, nil
}

func (r *DepositRegistry) Close() {
	r.stmtCache.Clear()
}

func (r *DepositRegistry) MarkDeposited(txHash ethcommon.Hash, txOut uint32) error {
	stmt, err := r.stmtCache.Prepare(
		`INSERT OR IGNORE INTO recognized_deposit (txHash, txOut) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	_, err = stmt.Exec(txHash.String()[2:], txOut)
	return err
}

func (r *DepositRegistry) IsDeposited(txHash ethcommon.Hash, txOut uint32) (bool, error) {
	stmt, err := r.stmtCache.Prepare(
		`SELECT COUNT(*) FROM recognized_deposit WHERE txHash = ? AND txOut = ?`)
	if err != nil {
		return false, err
	}

	var n int
	if err := stmt.QueryRow(txHash.String()[2:], txOut).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}
