// Server = task manager + sqlite state + btc rpc view + http reporter.
// All components are configured via environment variables (strings!).

package cmd

import (
	"database/sql"
	"os"
	"os/signal"
	"syscall"

	"github.com/btcsuite/btcd/chaincfg"
	logger "github.com/sirupsen/logrus"

	"github.com/TEENet-io/btc-custody-go/agreement"
	"github.com/TEENet-io/btc-custody-go/btcview"
	"github.com/TEENet-io/btc-custody-go/common"
	"github.com/TEENet-io/btc-custody-go/custody"
	"github.com/TEENet-io/btc-custody-go/reporter"
)

// Keep the configuration's fields as "text" as possible.
// Its easier to load it from env vars or a config file.
type CustodyServerConfig struct {
	// state side
	DbFilePath string // db file path

	// btc side
	BtcRpcServer   string           // btc rpc server info
	BtcRpcPort     string           // btc rpc server info
	BtcRpcUsername string           // btc rpc server info
	BtcRpcPwd      string           // btc rpc server info
	BtcChainConfig *chaincfg.Params // regtest, testnet, mainnet?

	// roles
	AdminAddrs   string // comma separated hex addresses
	RelayerAddrs string // comma separated hex addresses

	// Http side
	HttpIp   string // eg. 0.0.0.0
	HttpPort string // eg. 8080
}

// CustodyServer holds the objects that the server consists of.
type CustodyServer struct {
	SqlDB      *sql.DB
	MyStateDb  *custody.TaskStateDB
	MyLedger   *custody.SQLValueLedger
	MyRegistry *custody.DepositRegistry
	MyBtcView  *btcview.RpcView
	MyAcl      *agreement.ACL
	MyManager  *custody.TaskManager
	MyReporter *reporter.HttpReporter
}

func NewCustodyServer(csc *CustodyServerConfig) (*CustodyServer, error) {
	// 0) connect to btc network
	myBtcView, err := btcview.NewRpcView(&btcview.RpcViewConfig{
		ServerAddr: csc.BtcRpcServer,
		Port:       csc.BtcRpcPort,
		Username:   csc.BtcRpcUsername,
		Pwd:        csc.BtcRpcPwd,
	})
	if err != nil {
		logger.Errorf("cannot connect to btc rpc server %s:%s %v", csc.BtcRpcServer, csc.BtcRpcPort, err)
		return nil, err
	}

	// 1) open the sqlite db and build the state layers over it
	sqlDB, err := sql.Open("sqlite3", csc.DbFilePath)
	if err != nil {
		return nil, err
	}

	myStateDb, err := custody.NewTaskStateDB(sqlDB)
	if err != nil {
		return nil, err
	}

	myLedger, err := custody.NewSQLValueLedger(sqlDB)
	if err != nil {
		return nil, err
	}

	myRegistry, err := custody.NewDepositRegistry(sqlDB)
	if err != nil {
		return nil, err
	}

	// 2) role store from the configured address lists
	myAcl := agreement.NewACL()
	for _, addr := range SplitAddressList(csc.AdminAddrs) {
		myAcl.Grant(addr, agreement.RoleAdmin)
		logger.WithField("address", addr.String()).Info("granted admin role")
	}
	for _, addr := range SplitAddressList(csc.RelayerAddrs) {
		myAcl.Grant(addr, agreement.RoleRelayer)
		logger.WithField("address", addr.String()).Info("granted relayer role")
	}

	// 3) the task manager over everything
	myManager := custody.NewTaskManager(myStateDb, &custody.TaskManagerConfig{
		Mainnet:  csc.BtcChainConfig == common.MainNetParams(),
		Roles:    myAcl,
		Bridge:   myRegistry,
		Bitcoin:  myBtcView,
		Ledger:   myLedger,
		Notifier: &agreement.LogNotifier{},
	})

	// 4) read-only http reporter
	myReporter := reporter.NewHttpReporter(csc.HttpIp, csc.HttpPort, myManager)

	return &CustodyServer{
		SqlDB:      sqlDB,
		MyStateDb:  myStateDb,
		MyLedger:   myLedger,
		MyRegistry: myRegistry,
		MyBtcView:  myBtcView,
		MyAcl:      myAcl,
		MyManager:  myManager,
		MyReporter: myReporter,
	}, nil
}

func (s *CustodyServer) Close() {
	s.MyRegistry.Close()
	s.MyLedger.Close()
	s.MyStateDb.Close()
	s.MyBtcView.Close()
	s.SqlDB.Close()
}

// StartCustodyServerAndWait starts the server and blocks until SIGINT/SIGTERM.
func StartCustodyServerAndWait(csc *CustodyServerConfig) {
	server, err := NewCustodyServer(csc)
	if err != nil {
		logger.Fatalf("cannot create custody server: %v", err)
		return
	}
	defer server.Close()

	go server.MyReporter.Run()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.WithField("signal", sig.String()).Info("custody server shutting down")
}
