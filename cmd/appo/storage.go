package main

import (
	"context"

	"github.com/jrsteele09/appo-client/internal/config"
	"github.com/jrsteele09/appo-client/token"
	"github.com/jrsteele09/appo-client/token/filestore"
	"github.com/jrsteele09/appo-client/token/redisstore"
	"github.com/rs/zerolog/log"
)

// openStorage returns the token storage selected by APPO_TOKEN_STORE and a
// function releasing it.
func openStorage(ctx context.Context, cfg config.StorageConfig) (token.Storage, func() error, error) {
	noop := func() error { return nil }

	switch cfg.GetTokenStore() {
	case config.StoreFile:
		var options []filestore.Option
		if pass := cfg.GetTokenPassphrase(); pass != "" {
			options = append(options, filestore.WithPassphrase(pass))
		}
		store := filestore.New(cfg.GetTokenFile(), options...)
		log.Debug().Str("path", store.Path()).Msg("using file token storage")
		return store, noop, nil

	case config.StoreRedis:
		store, err := redisstore.Connect(ctx, cfg.GetRedisAddr(), cfg.GetRedisPassword(), cfg.GetRedisDB(),
			redisstore.WithPrefix(cfg.GetRedisPrefix()))
		if err != nil {
			return nil, nil, err
		}
		log.Debug().Str("addr", cfg.GetRedisAddr()).Msg("using redis token storage")
		return store, store.Close, nil
	}

	log.Warn().Msg("tokens are kept in memory and will not survive this process")
	return token.NewMemoryStorage(), noop, nil
}
