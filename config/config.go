package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"marketplace/log"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gagliardetto/solana-go"
	"github.com/spf13/viper"
)

// Supported database drivers.
const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// DefaultProgramID is the marketplace program used for custody derivation
// when no program_id is configured.
const DefaultProgramID = "2CA7hmQQFyQoPcFoCMd1pCzZDxth6pnx7ehNLavKKaim"

type config struct {
	// Driver selects the ledger backend, mysql or sqlite.
	Driver     string
	SQLitePath string `mapstructure:"sqlite_path"`

	// MySQL configs.
	User     string
	Password string
	Hostname string
	Port     string
	Database string

	// Label sets log output prefix.
	Label string

	// Listen is the JSON-RPC listen address.
	Listen string

	ProgramID string `mapstructure:"program_id"`

	// Workers sets the number of goroutines used by the custody auditor.
	// Recommend value: 3.
	Workers int

	// AuditInterval is the number of seconds between custody audits, 0 disables it.
	AuditInterval int `mapstructure:"audit_interval"`

	CacheSize int `mapstructure:"cache_size"`

	Airdrop AirdropConfig

	// AliyunMail is an optional config which will be used in mail alert package.
	AliyunMail AliyunMailConfig `mapstructure:"aliyun_mail"`
}

// AirdropConfig controls the faucet endpoint.
type AirdropConfig struct {
	Enabled     bool
	MaxLamports uint64 `mapstructure:"max_lamports"`
}

// AliyunMailConfig is the struct for aliyun mail configs.
type AliyunMailConfig struct {
	AccountName     string
	Region          string
	AccessKeyID     string
	AccessKeySecret string
	Receiver        []string
}

var (
	cfg   config
	cfgMu sync.RWMutex
)

func init() {
	setDefaults()
	cfg = defaults()
}

func setDefaults() {
	viper.SetDefault("driver", DriverSQLite)
	viper.SetDefault("sqlite_path", "marketplace.db")
	viper.SetDefault("listen", "127.0.0.1:8899")
	viper.SetDefault("program_id", DefaultProgramID)
	viper.SetDefault("workers", 3)
	viper.SetDefault("audit_interval", 30)
	viper.SetDefault("cache_size", 4096)
	viper.SetDefault("airdrop.enabled", true)
	viper.SetDefault("airdrop.max_lamports", 10*solana.LAMPORTS_PER_SOL)
}

func defaults() config {
	return config{
		Driver:        DriverSQLite,
		SQLitePath:    "marketplace.db",
		Listen:        "127.0.0.1:8899",
		ProgramID:     DefaultProgramID,
		Workers:       3,
		AuditInterval: 30,
		CacheSize:     4096,
		Airdrop: AirdropConfig{
			Enabled:     true,
			MaxLamports: 10 * solana.LAMPORTS_PER_SOL,
		},
	}
}

// Load reads the config file and starts watching it for changes.
func Load(display bool) {
	viper.SetConfigName("config")
	viper.AddConfigPath("./config")
	// Incase test cases require loading configs.
	viper.AddConfigPath("../config")

	if err := load(display); err != nil {
		panic(err)
	}

	log.UpdatePrefix(GetLabel())

	viper.WatchConfig()
	viper.OnConfigChange(onConfigChange)
}

func load(display bool) error {
	err := viper.ReadInConfig()
	if err != nil {
		return err
	}

	next := defaults()
	err = viper.Unmarshal(&next)
	if err != nil {
		return err
	}

	if err := check(next); err != nil {
		return err
	}

	if display {
		redacted := next
		redacted.Password = strings.Repeat("*", len(next.Password))
		redacted.AliyunMail.AccessKeySecret = strings.Repeat("*", len(next.AliyunMail.AccessKeySecret))
		configContent, _ := json.MarshalIndent(redacted, "", "    ")
		log.Println(string(configContent))
	}

	cfgMu.Lock()
	cfg = next
	cfgMu.Unlock()

	return nil
}

func get() config {
	cfgMu.RLock()
	defer cfgMu.RUnlock()
	return cfg
}

// GetDriver returns the configured database driver.
func GetDriver() string {
	return get().Driver
}

// GetDbConnStr returns the data source name of the configured driver.
func GetDbConnStr() string {
	c := get()
	if c.Driver == DriverSQLite {
		return c.SQLitePath
	}

	str := fmt.Sprintf(
		"%s:%s@tcp(%s:%s)/%s",
		c.User,
		c.Password,
		c.Hostname,
		c.Port,
		c.Database,
	)

	params := []string{
		"charset=utf8mb4",
		"parseTime=True",
		"loc=Local",
		"multiStatements=True",
		"clientFoundRows=true",
	}

	return fmt.Sprintf("%s?%s", str, strings.Join(params, "&"))
}

// GetLabel returns custome label as console output prefix.
func GetLabel() string {
	return get().Label
}

// GetListen returns the JSON-RPC listen address.
func GetListen() string {
	return get().Listen
}

// GetProgramID returns the program id used for custody derivation.
func GetProgramID() solana.PublicKey {
	return solana.MustPublicKeyFromBase58(get().ProgramID)
}

// GetGoroutines returns the number of working goroutines.
func GetGoroutines() int {
	return get().Workers
}

// GetAuditInterval returns the custody audit period, zero when disabled.
func GetAuditInterval() time.Duration {
	return time.Duration(get().AuditInterval) * time.Second
}

// GetCacheSize returns the metadata cache capacity.
func GetCacheSize() int {
	return get().CacheSize
}

// GetAirdropConfig returns faucet settings.
func GetAirdropConfig() AirdropConfig {
	return get().Airdrop
}

// LoadAliyunMailConfig performs a basic check on aliyun mail config.
func LoadAliyunMailConfig() error {
	return checkAliyunMail(get().AliyunMail)
}

// GetAliyunMailConfig returns aliyun mail configs.
func GetAliyunMailConfig() AliyunMailConfig {
	return get().AliyunMail
}

func check(c config) error {
	if err := checkWorker(c); err != nil {
		return err
	}

	if err := checkDriver(c); err != nil {
		return err
	}

	if _, _, err := net.SplitHostPort(c.Listen); err != nil {
		return fmt.Errorf("invalid listen address %q: %w", c.Listen, err)
	}

	if _, err := solana.PublicKeyFromBase58(c.ProgramID); err != nil {
		return fmt.Errorf("invalid program_id %q: %w", c.ProgramID, err)
	}

	if c.AuditInterval < 0 {
		return errors.New("value of 'audit_interval' cannot be negative")
	}

	if c.CacheSize < 1 {
		return errors.New("value of 'cache_size' must greater than or equal to 1")
	}

	return nil
}

func checkWorker(c config) error {
	if c.Workers < 1 {
		return errors.New("value of 'workers' must greater than or equal to 1")
	}
	return nil
}

func checkDriver(c config) error {
	switch c.Driver {
	case DriverSQLite:
		if c.SQLitePath == "" {
			return errors.New("sqlite_path cannot be empty")
		}
	case DriverMySQL:
		if c.Hostname == "" || c.Database == "" {
			return errors.New("mysql hostname and database must be set")
		}
	default:
		return fmt.Errorf("unsupported driver %q", c.Driver)
	}
	return nil
}

func checkAliyunMail(m AliyunMailConfig) error {
	if m.AccountName == "" {
		return errors.New("aliyun mail account name cannot be empty")
	}

	if m.Region == "" {
		return errors.New("aliyun mail region cannot be empty")
	}

	if m.AccessKeyID == "" {
		return errors.New("aliyun mail accessKeyID cannot be empty")
	}

	if m.AccessKeySecret == "" {
		return errors.New("aliyun mail accessKeySecret cannot be empty")
	}

	if len(m.Receiver) == 0 {
		return errors.New("aliyun mail receiver cannot be empty")
	}

	return nil
}

func onConfigChange(e fsnotify.Event) {
	log.Printf("Config file change detected: %s", e.Name)

	const stdErr = "Failed to read new configuration, current configuration stay unchanged"

	if err := load(true); err != nil {
		log.Printf("%s: %s", stdErr, err)
		return
	}

	log.UpdatePrefix(GetLabel())
}
