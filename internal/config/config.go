package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/arkade-os/subsign/internal/core/application"
	"github.com/arkade-os/subsign/internal/core/ports"
	filechain "github.com/arkade-os/subsign/internal/infrastructure/chain/file"
	"github.com/arkade-os/subsign/internal/infrastructure/db"
	inmemorydigestcache "github.com/arkade-os/subsign/internal/infrastructure/digest-cache/inmemory"
	redisdigestcache "github.com/arkade-os/subsign/internal/infrastructure/digest-cache/redis"
	ecdsasigner "github.com/arkade-os/subsign/internal/infrastructure/signer/ecdsa"
	"github.com/arkade-os/subsign/pkg/sub-lib/digest"
	"github.com/arkade-os/subsign/pkg/sub-lib/extension"
	"github.com/arkade-os/subsign/pkg/sub-lib/extrinsic"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/urfave/cli/v2"
)

var (
	supportedDbs = supportedType{
		"badger":   {},
		"sqlite":   {},
		"postgres": {},
	}
	supportedChains = supportedType{
		"file": {},
	}
	supportedDigestCaches = supportedType{
		"inmemory": {},
		"redis":    {},
	}
	supportedSigners = supportedType{
		"ecdsa": {},
	}
)

type Config struct {
	Datadir  string
	LogLevel int

	DbType              string
	DbDir               string
	DbUrl               string
	ChainType           string
	ChainSnapshot       string
	DigestCacheType     string
	DigestCacheTTL      time.Duration
	RedisUrl            string
	RedisTxNumOfRetries int
	SignerType          string
	SignerPrivateKey    string
	Extensions          []string
	TransferPalletIndex uint8
	TransferCallIndex   uint8

	repo    ports.RepoManager
	chain   ports.ChainClient
	cache   ports.DigestCache
	signer  ports.SignerService
	digests ports.DigestProvider
	svc     application.Service
}

func (c *Config) String() string {
	clone := *c
	if clone.SignerPrivateKey != "" {
		clone.SignerPrivateKey = "••••••"
	}
	json, err := json.MarshalIndent(clone, "", "  ")
	if err != nil {
		return fmt.Sprintf("error while marshalling config JSON: %s", err)
	}
	return string(json)
}

var (
	defaultDatadir             = btcutil.AppDataDir("subsign", false)
	defaultDbType              = "badger"
	defaultChainType           = "file"
	defaultDigestCacheType     = "inmemory"
	defaultDigestCacheTTL      = 24 * time.Hour
	defaultRedisTxNumOfRetries = 10
	defaultSignerType          = "ecdsa"
	defaultLogLevel            = 4
	defaultTransferPallet      = int(extrinsic.DefaultTransferAllowDeath.Pallet)
	defaultTransferCall        = int(extrinsic.DefaultTransferAllowDeath.Call)
)

// env returns a list of strings prefixed with `SUBSIGN_`.
// This is used as a syntax sugar for defining env vars.
func env(values ...string) []string {
	envs := make([]string, len(values))

	for i, value := range values {
		envs[i] = fmt.Sprintf("SUBSIGN_%s", value)
	}
	return envs
}

var (
	ConfigFile = &cli.StringFlag{
		Usage: "Optional json, yaml or toml file with values for any of the other flags",
		Name:  "config", EnvVars: env("CONFIG"),
	}

	Datadir = &cli.StringFlag{
		Usage: "Directory to store data",
		Name:  "datadir", EnvVars: env("DATADIR"),
		Value: defaultDatadir,
	}

	LogLevel = &cli.IntFlag{
		Usage: "Logging level (0-6, where 6 is trace)",
		Name:  "log-level", EnvVars: env("LOG_LEVEL"),
		Value: defaultLogLevel,
	}

	DbType = &cli.StringFlag{
		Usage: "Database type (badger, sqlite, postgres)",
		Name:  "db-type", EnvVars: env("DB_TYPE"),
		Value: defaultDbType,
	}

	DbUrl = &cli.StringFlag{
		Usage: "Postgres connection url if SUBSIGN_DB_TYPE is set to postgres",
		Name:  "pg-db-url", EnvVars: env("PG_DB_URL"),
	}

	ChainType = &cli.StringFlag{
		Usage: "Chain client type (file)",
		Name:  "chain-type", EnvVars: env("CHAIN_TYPE"),
		Value: defaultChainType,
	}

	ChainSnapshot = &cli.StringFlag{
		Usage: "Path to the chain snapshot if SUBSIGN_CHAIN_TYPE is set to file",
		Name:  "chain-snapshot", EnvVars: env("CHAIN_SNAPSHOT"),
	}

	DigestCacheType = &cli.StringFlag{
		Usage: "Metadata digest cache type (inmemory, redis)",
		Name:  "digest-cache-type", EnvVars: env("DIGEST_CACHE_TYPE"),
		Value: defaultDigestCacheType,
	}

	DigestCacheTTL = &cli.DurationFlag{
		Usage: "Expiration of the cached digests if SUBSIGN_DIGEST_CACHE_TYPE is set to redis",
		Name:  "digest-cache-ttl", EnvVars: env("DIGEST_CACHE_TTL"),
		Value: defaultDigestCacheTTL,
	}

	RedisUrl = &cli.StringFlag{
		Usage: "Redis db connection url if SUBSIGN_DIGEST_CACHE_TYPE is set to redis",
		Name:  "redis-url", EnvVars: env("REDIS_URL"),
	}

	RedisTxNumOfRetries = &cli.IntFlag{
		Usage: "Maximum number of retries for Redis write operations",
		Name:  "redis-num-of-retries", EnvVars: env("REDIS_NUM_OF_RETRIES"),
		Value: defaultRedisTxNumOfRetries,
	}

	SignerType = &cli.StringFlag{
		Usage: "Signer type (ecdsa)",
		Name:  "signer-type", EnvVars: env("SIGNER_TYPE"),
		Value: defaultSignerType,
	}

	SignerPrivateKey = &cli.StringFlag{
		Usage: "Hex encoded private key of the signer",
		Name:  "signer-prvkey", EnvVars: env("SIGNER_PRVKEY"),
	}

	Extensions = &cli.StringSliceFlag{
		Usage: "Signed extensions the chain declares (comma-separated)",
		Name:  "extensions", EnvVars: env("EXTENSIONS"),
		Value: cli.NewStringSlice(extension.DefaultLayout...),
	}

	TransferPalletIndex = &cli.IntFlag{
		Usage: "Index of the balances pallet in the runtime",
		Name:  "transfer-pallet-index", EnvVars: env("TRANSFER_PALLET_INDEX"),
		Value: defaultTransferPallet,
	}

	TransferCallIndex = &cli.IntFlag{
		Usage: "Index of transfer_allow_death in the balances pallet",
		Name:  "transfer-call-index", EnvVars: env("TRANSFER_CALL_INDEX"),
		Value: defaultTransferCall,
	}
)

var Flags = []cli.Flag{
	ConfigFile,
	Datadir,
	LogLevel,
	DbType,
	DbUrl,
	ChainType,
	ChainSnapshot,
	DigestCacheType,
	DigestCacheTTL,
	RedisUrl,
	RedisTxNumOfRetries,
	SignerType,
	SignerPrivateKey,
	Extensions,
	TransferPalletIndex,
	TransferCallIndex,
}

func LoadConfig(c *cli.Context) (*Config, error) {
	if err := loadConfigFile(c); err != nil {
		return nil, err
	}

	if err := initDatadir(c); err != nil {
		return nil, fmt.Errorf("failed to create datadir: %s", err)
	}

	dbPath := filepath.Join(c.String(Datadir.Name), "db")

	var dbUrl string
	if c.String(DbType.Name) == "postgres" {
		dbUrl = c.String(DbUrl.Name)
		if dbUrl == "" {
			return nil, fmt.Errorf("db type set to 'postgres' but db url is missing")
		}
	}

	var redisUrl string
	if c.String(DigestCacheType.Name) == "redis" {
		redisUrl = c.String(RedisUrl.Name)
		if redisUrl == "" {
			return nil, fmt.Errorf("digest cache type set to 'redis' but redis url is missing")
		}
	}

	var chainSnapshot string
	if c.String(ChainType.Name) == "file" {
		chainSnapshot = c.String(ChainSnapshot.Name)
		if chainSnapshot == "" {
			return nil, fmt.Errorf("chain type set to 'file' but chain snapshot is missing")
		}
	}

	return &Config{
		Datadir:             c.String(Datadir.Name),
		LogLevel:            c.Int(LogLevel.Name),
		DbType:              c.String(DbType.Name),
		DbDir:               dbPath,
		DbUrl:               dbUrl,
		ChainType:           c.String(ChainType.Name),
		ChainSnapshot:       chainSnapshot,
		DigestCacheType:     c.String(DigestCacheType.Name),
		DigestCacheTTL:      c.Duration(DigestCacheTTL.Name),
		RedisUrl:            redisUrl,
		RedisTxNumOfRetries: c.Int(RedisTxNumOfRetries.Name),
		SignerType:          c.String(SignerType.Name),
		SignerPrivateKey:    c.String(SignerPrivateKey.Name),
		Extensions:          splitList(c.StringSlice(Extensions.Name)),
		TransferPalletIndex: uint8(c.Int(TransferPalletIndex.Name)),
		TransferCallIndex:   uint8(c.Int(TransferCallIndex.Name)),
	}, nil
}

// loadConfigFile sets every flag not given on the command line or through
// env vars to the value found in the config file, if any.
func loadConfigFile(c *cli.Context) error {
	path := c.String(ConfigFile.Name)
	if path == "" {
		return nil
	}

	v := viper.New()
	v.SetConfigFile(os.ExpandEnv(path))
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %s", err)
	}

	for _, flag := range Flags {
		name := flag.Names()[0]
		if name == ConfigFile.Name || c.IsSet(name) || !v.IsSet(name) {
			continue
		}
		value := v.GetString(name)
		if _, ok := flag.(*cli.StringSliceFlag); ok {
			value = strings.Join(v.GetStringSlice(name), ",")
		}
		if err := c.Set(name, value); err != nil {
			return fmt.Errorf("invalid config file value for %s: %s", name, err)
		}
	}
	return nil
}

func initDatadir(c *cli.Context) error {
	datadir := c.String(Datadir.Name)
	return makeDirectoryIfNotExists(datadir)
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0o755)
	}
	return nil
}

func (c *Config) Validate() error {
	if !supportedDbs.supports(c.DbType) {
		return fmt.Errorf("db type not supported, please select one of: %s", supportedDbs)
	}
	if !supportedChains.supports(c.ChainType) {
		return fmt.Errorf("chain type not supported, please select one of: %s", supportedChains)
	}
	if !supportedDigestCaches.supports(c.DigestCacheType) {
		return fmt.Errorf(
			"digest cache type not supported, please select one of: %s",
			supportedDigestCaches,
		)
	}
	if !supportedSigners.supports(c.SignerType) {
		return fmt.Errorf("signer type not supported, please select one of: %s", supportedSigners)
	}
	if c.SignerPrivateKey == "" {
		return fmt.Errorf("missing signer private key")
	}
	if len(c.Extensions) == 0 {
		return fmt.Errorf("missing signed extensions")
	}
	if c.DigestCacheTTL < 0 {
		return fmt.Errorf("invalid digest cache ttl, must be >= 0")
	}
	if c.RedisTxNumOfRetries <= 0 {
		return fmt.Errorf("invalid redis num of retries, must be > 0")
	}
	if err := validateExtensions(c.Extensions); err != nil {
		return err
	}

	if err := c.repoManager(); err != nil {
		return err
	}
	if err := c.chainClient(); err != nil {
		return err
	}
	if err := c.digestCache(); err != nil {
		return err
	}
	if err := c.signerService(); err != nil {
		return err
	}
	c.digests = digest.NewProvider()
	if err := c.appService(); err != nil {
		return err
	}
	return nil
}

func (c *Config) AppService() application.Service {
	return c.svc
}

func (c *Config) repoManager() error {
	var dataStoreConfig []interface{}
	logger := log.New()

	switch c.DbType {
	case "badger":
		dataStoreConfig = []interface{}{c.DbDir, logger}
	case "sqlite":
		if err := makeDirectoryIfNotExists(c.DbDir); err != nil {
			return fmt.Errorf("failed to create db dir: %s", err)
		}
		dataStoreConfig = []interface{}{c.DbDir}
	case "postgres":
		dataStoreConfig = []interface{}{c.DbUrl, true}
	default:
		return fmt.Errorf("unknown db type")
	}

	svc, err := db.NewService(db.ServiceConfig{
		DataStoreType:   c.DbType,
		DataStoreConfig: dataStoreConfig,
	})
	if err != nil {
		return err
	}

	c.repo = svc
	return nil
}

func (c *Config) chainClient() error {
	var svc ports.ChainClient
	var err error
	switch c.ChainType {
	case "file":
		svc, err = filechain.NewChainClient(c.ChainSnapshot)
	default:
		err = fmt.Errorf("unknown chain type")
	}
	if err != nil {
		return err
	}

	c.chain = svc
	return nil
}

func (c *Config) digestCache() error {
	var svc ports.DigestCache
	switch c.DigestCacheType {
	case "inmemory":
		svc = inmemorydigestcache.NewDigestCache()
	case "redis":
		redisOpts, err := redis.ParseURL(c.RedisUrl)
		if err != nil {
			return fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(redisOpts)
		svc = redisdigestcache.NewDigestCache(rdb, c.DigestCacheTTL, c.RedisTxNumOfRetries)
	default:
		return fmt.Errorf("unknown digest cache type")
	}

	c.cache = svc
	return nil
}

func (c *Config) signerService() error {
	var svc ports.SignerService
	var err error
	switch c.SignerType {
	case "ecdsa":
		svc, err = ecdsasigner.NewSigner(c.SignerPrivateKey)
	default:
		err = fmt.Errorf("unknown signer type")
	}
	if err != nil {
		return err
	}

	c.signer = svc
	return nil
}

func (c *Config) appService() error {
	svc, err := application.NewService(
		c.chain, c.digests, c.cache, c.signer, c.repo, c.Extensions,
		extrinsic.CallIndex{Pallet: c.TransferPalletIndex, Call: c.TransferCallIndex},
	)
	if err != nil {
		return err
	}

	c.svc = svc
	return nil
}

// validateExtensions rejects a layout naming the same unit twice.
func validateExtensions(names []string) error {
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if _, ok := seen[name]; ok {
			return fmt.Errorf("extension %s configured more than once", name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

func splitList(values []string) []string {
	list := make([]string, 0, len(values))
	for _, value := range values {
		for _, v := range strings.Split(value, ",") {
			if v = strings.TrimSpace(v); v != "" {
				list = append(list, v)
			}
		}
	}
	return list
}

type supportedType map[string]struct{}

func (t supportedType) String() string {
	types := make([]string, 0, len(t))
	for tt := range t {
		types = append(types, tt)
	}
	return strings.Join(types, " | ")
}

func (t supportedType) supports(typeStr string) bool {
	_, ok := t[typeStr]
	return ok
}
