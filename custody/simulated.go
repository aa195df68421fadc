package custody

import (
	"database/sql"
	"math/big"
	"sync"

	"github.com/btcsuite/btcd/btcec/v2"
	ethcommon "github.com/ethereum/go-ethereum/common"
	logger "github.com/sirupsen/logrus"

	"github.com/TEENet-io/btc-custody-go/btcaddr"
	"github.com/TEENet-io/btc-custody-go/common"
)

func getMemoryDB() *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		logger.Fatal(err)
	}
	return db
}

// RandBtcKeyPair generates a fresh secp256k1 key and its P2WPKH address.
func RandBtcKeyPair(mainnet bool) (btcAddress string, pubKey []byte) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		logger.Fatal(err)
	}
	pubKey = priv.PubKey().SerializeCompressed()

	btcAddress, err = btcaddr.PubKeyToP2WPKH(pubKey, mainnet)
	if err != nil {
		logger.Fatal(err)
	}
	return btcAddress, pubKey
}

// RandTask builds a task in the given status with valid field content.
func RandTask(status TaskStatus) *Task {
	btcAddress, pubKey := RandBtcKeyPair(true)

	t := &Task{
		PartnerId:       7,
		DepositAddress:  common.RandEthAddress(),
		Status:          status,
		TimelockEndTime: 2_000_000_000,
		Deadline:        1_900_000_000,
		Amount:          new(big.Int).Mul(TaskAmountGranularity, big.NewInt(1_000_000)),
		BtcAddress:      btcAddress,
		BtcPubKey:       pubKey,
	}

	if status != TaskStatusCreated {
		t.FundingTxHash = ethcommon.Hash(common.RandBytes32())
		t.FundingTxOut = 1
	}
	if status == TaskStatusTimelockInit || status == TaskStatusConfirmed || status == TaskStatusCompleted {
		t.TimelockTxHash = ethcommon.Hash(common.RandBytes32())
		t.TimelockTxOut = 0
		t.WitnessScript = common.RandBytes(40)
	}

	return t
}

type depositKey struct {
	txHash ethcommon.Hash
	txOut  uint32
}

// MockBridgeView recognizes exactly the pairs marked via SetDeposited.
type MockBridgeView struct {
	deposited map[depositKey]bool
}

func NewMockBridgeView() *MockBridgeView {
	return &MockBridgeView{deposited: make(map[depositKey]bool)}
}

func (v *MockBridgeView) SetDeposited(txHash ethcommon.Hash, txOut uint32) {
	v.deposited[depositKey{txHash, txOut}] = true
}

func (v *MockBridgeView) IsDeposited(txHash ethcommon.Hash, txOut uint32) (bool, error) {
	return v.deposited[depositKey{txHash, txOut}], nil
}

// MockBitcoinView serves a fixed height -> block hash table.
type MockBitcoinView struct {
	hashes map[uint64]ethcommon.Hash
}

func NewMockBitcoinView() *MockBitcoinView {
	return &MockBitcoinView{hashes: make(map[uint64]ethcommon.Hash)}
}

func (v *MockBitcoinView) SetBlockHash(height uint64, hash ethcommon.Hash) {
	v.hashes[height] = hash
}

func (v *MockBitcoinView) BlockHash(height uint64) (ethcommon.Hash, error) {
	return v.hashes[height], nil
}

// MemoryValueLedger is an in-memory agreement.ValueLedger for tests.
type MemoryValueLedger struct {
	mu       sync.Mutex
	balances map[ethcommon.Address]*big.Int
}

func NewMemoryValueLedger() *MemoryValueLedger {
	return &MemoryValueLedger{balances: make(map[ethcommon.Address]*big.Int)}
}

func (l *MemoryValueLedger) Credit(addr ethcommon.Address, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.balances[addr] == nil {
		l.balances[addr] = big.NewInt(0)
	}
	l.balances[addr].Add(l.balances[addr], amount)
}

func (l *MemoryValueLedger) BalanceOf(addr ethcommon.Address) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.balances[addr] == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(l.balances[addr]), nil
}

// Retire ignores tx; the map double has no transaction to join.
func (l *MemoryValueLedger) Retire(_ *sql.Tx, addr ethcommon.Address, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	balance := l.balances[addr]
	if balance == nil || balance.Cmp(amount) < 0 {
		return ErrorInsufficientBalance
	}
	balance.Sub(balance, amount)
	return nil
}
