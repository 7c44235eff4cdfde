package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/location-optimizer/internal/resilience"
	"github.com/sells-group/location-optimizer/internal/store"
)

// initStore opens and migrates the configured run store. The "none" driver
// returns a nil store.
func initStore(ctx context.Context) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "none":
		return nil, nil
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "locopt.db"
		}
		st, err = store.NewSQLite(dsn)
	case "postgres":
		retry := resilience.FromSettings(cfg.Store.ConnectAttempts, 0)
		retry.OnRetry = resilience.RetryLogger("store", "connect")
		st, err = resilience.DoVal(ctx, retry, func(ctx context.Context) (store.Store, error) {
			return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

// requireStore is initStore for commands that cannot work without one.
func requireStore(ctx context.Context) (store.Store, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, eris.New("run history needs a store (store.driver is none)")
	}
	return st, nil
}
