package custody

import "strings"

var (
	strZeroBytes32 = strings.Repeat("0", 64)
	strZeroBytes20 = strings.Repeat("0", 40)

	// task rows are append-only and addressed by taskId. AUTOINCREMENT
	// makes the first id 1, so id 0 stays the "no task" sentinel.
	taskTable = `CREATE TABLE IF NOT EXISTS task (
		taskId INTEGER PRIMARY KEY AUTOINCREMENT,
		partnerId BIGINT UNSIGNED NOT NULL,
		depositAddress CHAR(40) NOT NULL,
		status VARCHAR(16) NOT NULL,
		timelockEndTime BIGINT NOT NULL,
		deadline BIGINT NOT NULL,
		amount VARCHAR(78) NOT NULL,
		fundingTxHash CHAR(64),
		fundingTxOut INTEGER,
		timelockTxHash CHAR(64),
		timelockTxOut INTEGER,
		witnessScript BLOB,
		btcAddress VARCHAR(62) NOT NULL,
		btcPubKey BLOB NOT NULL,
		CONSTRAINT chk_status CHECK (status IN ('created', 'received', 'timelock_inited', 'confirmed', 'completed')),
		CONSTRAINT chk_deadline CHECK (deadline < timelockEndTime),
		CONSTRAINT chk_depositAddress CHECK (depositAddress != '` + strZeroBytes20 + `'),
		CONSTRAINT chk_fundingTxHash CHECK (fundingTxHash IS NULL OR fundingTxHash != '` + strZeroBytes32 + `'),
		CONSTRAINT chk_timelockTxHash CHECK (timelockTxHash IS NULL OR timelockTxHash != '` + strZeroBytes32 + `')
	);
	CREATE INDEX IF NOT EXISTS idx_task_partner ON task (partnerId);`

	// one row per busy deposit address; a missing row means available
	addressSlotTable = `CREATE TABLE IF NOT EXISTS address_slot (
		depositAddress CHAR(40) PRIMARY KEY NOT NULL,
		taskId INTEGER NOT NULL
	);`

	// native-unit value backing each deposit address
	balanceTable = `CREATE TABLE IF NOT EXISTS balance (
		address CHAR(40) PRIMARY KEY NOT NULL,
		amount VARCHAR(78) NOT NULL
	);`

	taskColumnList = ` taskId, partnerId, depositAddress, status, timelockEndTime, deadline, amount,
		fundingTxHash, fundingTxOut, timelockTxHash, timelockTxOut, witnessScript, btcAddress, btcPubKey `
)
