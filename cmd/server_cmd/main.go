package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/docknetwork/migration-go/cmd"
	"github.com/docknetwork/migration-go/logconfig"
)

const (
	ENV_CONFIG_FILE_PATH = "MIGRATION_CONFIG"
)

func main() {
	logconfig.ConfigInfoLogger()

	// Tool to read environment variables
	viper.AutomaticEnv()

	// Ethereum and Dock mainnet block times, and the dispatch batch
	// cap, rarely need overriding.
	viper.SetDefault("ETH_BLOCK_TIME_SEC", 13)
	viper.SetDefault("MAINNET_BLOCK_TIME_SEC", 3)
	viper.SetDefault("BONUS_BATCH_SIZE", 100)

	// Accessing an environment variable of configuration file location.
	_config_file := viper.GetString(ENV_CONFIG_FILE_PATH)
	fmt.Printf("Migration server configuration file = %s\n", _config_file)

	// See if file exists
	if !cmd.FileExists(_config_file) {
		fmt.Printf("Migration server configuration file not found: %s\n", _config_file)
		return
	}

	// Read from config file.
	if !initializeViper(_config_file) {
		return
	}

	// Make the configuration
	msc := PrepareMigrationServerConfig()
	if msc == nil {
		fmt.Printf("Error loading migration server configuration\n")
		return
	}

	fmt.Println("Starting migration server... press Ctrl+C to kill the server")
	// Start server and block.
	cmd.StartMigrationServerAndWait(msc)
}

func initializeViper(filePath string) bool {
	viper.SetConfigFile(filePath)
	if err := viper.ReadInConfig(); err != nil {
		fmt.Printf("Error reading configuration file, %s", err)
		return false
	}
	return true
}

// msEpoch turns a millisecond unix timestamp into a time.Time; zero
// input gives the zero time, which disables the window.
func msEpoch(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// PrepareMigrationServerConfig reads configuration variables and
// returns a MigrationServerConfig.
func PrepareMigrationServerConfig() *cmd.MigrationServerConfig {
	// comma-separated list of blacklisted addresses
	var blacklist []string
	if raw := viper.GetString("BLACKLISTED_ETH_ADDR"); raw != "" {
		for _, addr := range strings.Split(raw, ",") {
			blacklist = append(blacklist, strings.TrimSpace(addr))
		}
	}

	return &cmd.MigrationServerConfig{
		// ethereum side
		EthRpcUrl:             viper.GetString("ETH_RPC_URL"),
		TokenContractAddr:     viper.GetString("TOKEN_CONTRACT_ADDR"),
		VaultAddr:             viper.GetString("VAULT_ADDR"),
		RequiredConfirmations: viper.GetUint64("REQUIRED_CONFIRMATIONS"),
		PollIntervalSec:       viper.GetInt("POLL_INTERVAL_SEC"),
		VerifyConcurrency:     viper.GetInt("VERIFY_CONCURRENCY"),
		// state side
		DbFilePath: viper.GetString("DB_FILE_PATH"),
		// mainnet side
		MainnetRpcUrl: viper.GetString("MAINNET_RPC_URL"),
		// intake side
		NetworkType:     viper.GetString("DOCK_NETWORK_TYPE"),
		BonusEndsAt:     msEpoch(viper.GetInt64("BONUS_ENDS_AT")),
		MigrationEndsAt: msEpoch(viper.GetInt64("MIGRATION_ENDS_AT")),
		Blacklist:       blacklist,
		// http side
		HttpIp:         viper.GetString("HTTP_IP"),
		HttpPort:       viper.GetString("HTTP_PORT"),
		CorsOrigin:     viper.GetString("CORS_ORIGIN"),
		StatsAdminName: viper.GetString("STATS_ADMIN_NAME"),
		StatsAdminKey:  viper.GetString("STATS_ADMIN_KEY"),
		// bonus side
		BonusEnabled:        viper.GetBool("BONUS_ENABLED"),
		SwapPool:            viper.GetString("SWAP_BONUS_POOL"),
		VestingPool:         viper.GetString("VESTING_BONUS_POOL"),
		MigrationStartBlock: viper.GetUint64("MIGRATION_START_BLOCK"),
		EthBlockTimeSec:     viper.GetInt("ETH_BLOCK_TIME_SEC"),
		MainnetBlockTimeSec: viper.GetInt("MAINNET_BLOCK_TIME_SEC"),
		BonusBatchSize:      viper.GetInt("BONUS_BATCH_SIZE"),
		BonusCalcCron:       viper.GetString("BONUS_CALC_CRON"),
		BonusDispCron:       viper.GetString("BONUS_DISP_CRON"),
		// alerting
		SendGridApiKey:       viper.GetString("SENDGRID_API_KEY"),
		AlertFromEmail:       viper.GetString("ALERT_FROM_EMAIL"),
		AlertToEmail:         viper.GetString("ALERT_TO_EMAIL"),
		MinAllowedMigrations: viper.GetInt("MIN_ALLOWED_MIGRATIONS"),
		MinBalance:           viper.GetString("MIN_BALANCE"),
	}
}
