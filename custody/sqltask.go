package custody

import (
	"database/sql"
	"errors"
	"math/big"

	"github.com/TEENet-io/btc-custody-go/common"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

var ErrorAmountNotDecimal = errors.New("stored amount is not a decimal string")

// sqlTask mirrors a task row. Hashes and addresses are hex strings
// without the 0x prefix; the amount is a decimal string so it survives
// values beyond 64 bits.
type sqlTask struct {
	TaskId          uint64
	PartnerId       uint64
	DepositAddress  string
	Status          string
	TimelockEndTime int64
	Deadline        int64
	Amount          string
	FundingTxHash   sql.NullString
	FundingTxOut    sql.NullInt64
	TimelockTxHash  sql.NullString
	TimelockTxOut   sql.NullInt64
	WitnessScript   []byte
	BtcAddress      string
	BtcPubKey       []byte
}

func (s *sqlTask) encode(t *Task) *sqlTask {
	s.TaskId = t.TaskId
	s.PartnerId = t.PartnerId
	s.DepositAddress = common.ByteSliceToPureHexStr(t.DepositAddress.Bytes())
	s.Status = string(t.Status)
	s.TimelockEndTime = t.TimelockEndTime
	s.Deadline = t.Deadline
	s.Amount = t.Amount.Text(10)
	if t.FundingTxHash != (ethcommon.Hash{}) {
		s.FundingTxHash = sql.NullString{String: t.FundingTxHash.String()[2:], Valid: true}
		s.FundingTxOut = sql.NullInt64{Int64: int64(t.FundingTxOut), Valid: true}
	}
	if t.TimelockTxHash != (ethcommon.Hash{}) {
		s.TimelockTxHash = sql.NullString{String: t.TimelockTxHash.String()[2:], Valid: true}
		s.TimelockTxOut = sql.NullInt64{Int64: int64(t.TimelockTxOut), Valid: true}
	}
	s.WitnessScript = t.WitnessScript
	s.BtcAddress = t.BtcAddress
	s.BtcPubKey = t.BtcPubKey

	return s
}

func (s *sqlTask) decode() (*Task, error) {
	amount, ok := new(big.Int).SetString(s.Amount, 10)
	if !ok {
		return nil, ErrorAmountNotDecimal
	}

	t := &Task{
		TaskId:          s.TaskId,
		PartnerId:       s.PartnerId,
		DepositAddress:  ethcommon.BytesToAddress(common.HexStrToByteSlice(s.DepositAddress)),
		Status:          TaskStatus(s.Status),
		TimelockEndTime: s.TimelockEndTime,
		Deadline:        s.Deadline,
		Amount:          amount,
		WitnessScript:   s.WitnessScript,
		BtcAddress:      s.BtcAddress,
		BtcPubKey:       s.BtcPubKey,
	}

	if s.FundingTxHash.Valid {
		t.FundingTxHash = ethcommon.Hash(common.HexStrToBytes32(s.FundingTxHash.String))
		t.FundingTxOut = uint32(s.FundingTxOut.Int64)
	}
	if s.TimelockTxHash.Valid {
		t.TimelockTxHash = ethcommon.Hash(common.HexStrToBytes32(s.TimelockTxHash.String))
		t.TimelockTxOut = uint32(s.TimelockTxOut.Int64)
	}

	return t, nil
}
