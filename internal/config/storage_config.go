package config

import (
	"os"

	"github.com/spf13/viper"
)

// StoreKind selects the persistence backend used by the token custodian.
type StoreKind string

const (
	StoreMemory StoreKind = "memory"
	StoreFile   StoreKind = "file"
	StoreRedis  StoreKind = "redis"
)

const (
	tokenStoreKey      = "token.store"
	tokenFileKey       = "token.file"
	tokenPassphraseKey = "token.passphrase"
	redisAddrKey       = "redis.addr"
	redisPasswordKey   = "redis.password"
	redisDBKey         = "redis.db"
	redisPrefixKey     = "redis.prefix"
)

type StorageConfig interface {
	GetTokenStore() StoreKind
	GetTokenFile() string
	GetTokenPassphrase() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
	GetRedisPrefix() string
}

type Storage struct {
	v *viper.Viper
}

var _ StorageConfig = Storage{}

func (s Storage) GetTokenStore() StoreKind {
	switch kind := StoreKind(s.v.GetString(tokenStoreKey)); kind {
	case StoreFile, StoreRedis:
		return kind
	default:
		return StoreMemory
	}
}

func (s Storage) GetTokenFile() string {
	return os.ExpandEnv(s.v.GetString(tokenFileKey))
}

func (s Storage) GetTokenPassphrase() string {
	return s.v.GetString(tokenPassphraseKey)
}

func (s Storage) GetRedisAddr() string {
	return s.v.GetString(redisAddrKey)
}

func (s Storage) GetRedisPassword() string {
	return s.v.GetString(redisPasswordKey)
}

func (s Storage) GetRedisDB() int {
	return s.v.GetInt(redisDBKey)
}

func (s Storage) GetRedisPrefix() string {
	return s.v.GetString(redisPrefixKey)
}
