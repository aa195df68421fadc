package main

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/spf13/viper"

	"github.com/TEENet-io/btc-custody-go/cmd"
	"github.com/TEENet-io/btc-custody-go/common"
)

const (
	ENV_CONFIG_FILE_PATH = "CUSTODY_CONFIG"
)

func main() {
	// Tool to read environment variables
	viper.AutomaticEnv()

	// Accessing an environment variable of configuration file location.
	_config_file := viper.GetString(ENV_CONFIG_FILE_PATH)
	fmt.Printf("Custody server configuration file = %s\n", _config_file)

	// See if file exists
	if !cmd.FileExists(_config_file) {
		fmt.Printf("Custody server configuration file not found: %s\n", _config_file)
		return
	}

	// Read from config file.
	success := initializeViper(_config_file)
	if !success {
		return
	}

	// Make the configuration
	csc := PrepareCustodyServerConfig()
	if csc == nil {
		fmt.Printf("Error loading custody server configuration\n")
		return
	}

	fmt.Println("Starting custody server... press Ctrl+C to kill the server")
	// Start server and block.
	cmd.StartCustodyServerAndWait(csc)
}

func initializeViper(filePath string) bool {
	viper.SetConfigFile(filePath)
	if err := viper.ReadInConfig(); err != nil {
		fmt.Printf("Error reading configuration file, %s", err)
		return false
	}
	return true
}

// PrepareCustodyServerConfig reads configuration variables and returns a CustodyServerConfig.
func PrepareCustodyServerConfig() *cmd.CustodyServerConfig {

	// Parse the BTC chain config (e.g., "regtest", "testnet", or "mainnet").
	var btcParams *chaincfg.Params
	switch viper.GetString("BTC_CHAIN_CONFIG") {
	case "testnet":
		btcParams = common.TestNetParams()
	case "mainnet":
		btcParams = common.MainNetParams()
	case "regtest":
		btcParams = common.RegtestParams()
	default:
		// default to regtest
		btcParams = common.RegtestParams()
	}

	return &cmd.CustodyServerConfig{
		// state side
		DbFilePath: viper.GetString("DB_FILE_PATH"),
		// btc side
		BtcRpcServer:   viper.GetString("BTC_RPC_SERVER"),
		BtcRpcPort:     viper.GetString("BTC_RPC_PORT"),
		BtcRpcUsername: viper.GetString("BTC_RPC_USERNAME"),
		BtcRpcPwd:      viper.GetString("BTC_RPC_PWD"),
		BtcChainConfig: btcParams,
		// roles
		AdminAddrs:   viper.GetString("ADMIN_ADDRS"),
		RelayerAddrs: viper.GetString("RELAYER_ADDRS"),
		// Http side
		HttpIp:   viper.GetString("HTTP_IP"),
		HttpPort: viper.GetString("HTTP_PORT"),
	}
}
