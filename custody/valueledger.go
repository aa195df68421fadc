package custody

import (
	"database/sql"
	"math/big"
	"sync"

	"github.com/TEENet-io/btc-custody-go/database"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

// SQLValueLedger is a sqlite-backed agreement.ValueLedger. Amounts are
// decimal strings in the balance table; arithmetic happens here under
// one mutex since invocations are serialized anyway.
type SQLValueLedger struct {
	mu        sync.Mutex
	stmtCache *database.StmtCache
}

func NewSQLValueLedger(db *sql.DB) (*SQLValueLedger, error) {
	if _, err := db.Exec(balanceTable); err != nil {
		return nil, err
	}
	return &SQLValueLedger{stmtCache: database.NewStmtCache(db)}, nil
}

func (l *SQLValueLedger) Close() {
	l.stmtCache.Clear()
}

func (l *SQLValueLedger) BalanceOf(addr ethcommon.Address) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balanceOf(nil, addr)
}

// balanceOf expects the caller to hold the mutex. A non-nil tx binds
// the read to that transaction's connection.
func (l *SQLValueLedger) balanceOf(tx *sql.Tx, addr ethcommon.Address) (*big.Int, error) {
	stmt, err := l.stmtCache.Prepare(`SELECT amount FROM balance WHERE address = ?`)
	if err != nil {
		return nil, err
	}
	if tx != nil {
		stmt = tx.Stmt(stmt)
	}

	var amountStr string
	if err := stmt.QueryRow(addrHex(addr)).Scan(&amountStr); err != nil {
		if err == sql.ErrNoRows {
			return big.NewInt(0), nil
		}
		return nil, err
	}

	amount, ok := new(big.Int).SetString(amountStr, 10)
	if !ok {
		return nil, ErrorAmountNotDecimal
	}
	return amount, nil
}

func (l *SQLValueLedger) setBalance(tx *sql.Tx, addr ethcommon.Address, amount *big.Int) error {
	stmt, err := l.stmtCache.Prepare(
		`INSERT OR REPLACE INTO balance (address, amount) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	if tx != nil {
		stmt = tx.Stmt(stmt)
	}
	_, err = stmt.Exec(addrHex(addr), amount.Text(10))
	return err
}

// Credit adds value backing an address.
func (l *SQLValueLedger) Credit(addr ethcommon.Address, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	balance, err := l.balanceOf(nil, addr)
	if err != nil {
		return err
	}
	return l.setBalance(nil, addr, balance.Add(balance, amount))
}

// Retire removes value permanently. Fails when the balance is short.
// Both the read and the write go through tx; sqlite holds a single
// write lock per database, so touching the balance table from another
// connection while the task update transaction is open would deadlock.
func (l *SQLValueLedger) Retire(tx *sql.Tx, addr ethcommon.Address, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	balance, err := l.balanceOf(tx, addr)
	if err != nil {
		return err
	}
	if balance.Cmp(amount) < 0 {
		return ErrorInsufficientBalance
	}
	return l.setBalance(tx, addr, balance.Sub(balance, amount))
}
