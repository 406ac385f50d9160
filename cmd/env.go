package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/disclosure-dashboard/internal/config"
	"github.com/sells-group/disclosure-dashboard/internal/curation"
	"github.com/sells-group/disclosure-dashboard/internal/store"
	"github.com/sells-group/disclosure-dashboard/pkg/analyzer"
)

// initStore opens the configured store backend.
func initStore(ctx context.Context, c *config.Config) (store.Store, error) {
	switch c.Store.Driver {
	case "sqlite":
		return store.NewSQLite(c.Store.DatabaseURL)
	case "postgres":
		readURL := c.Store.ReadDatabaseURL
		if readURL == "" {
			readURL = c.Store.DatabaseURL
		}
		return store.NewPostgres(ctx, c.Store.DatabaseURL, readURL, &store.PoolConfig{
			MaxConns: c.Store.MaxConns,
			MinConns: c.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", c.Store.Driver)
	}
}

// initAnalyzer builds the analysis service client.
func initAnalyzer(c *config.Config) analyzer.Client {
	return analyzer.NewClient(c.Analysis.URL,
		analyzer.WithTimeout(c.Analysis.Timeout()),
		analyzer.WithRequestsPerMinute(c.Analysis.RequestsPerMinute),
	)
}

// curationEnv holds the store and service used by the write commands.
type curationEnv struct {
	Store   store.Store
	Service *curation.Service
}

// Close releases the store.
func (e *curationEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initCuration validates config for mode, opens and migrates the store and
// builds the curation service. Callers should defer env.Close().
func initCuration(ctx context.Context, c *config.Config, mode string) (*curationEnv, error) {
	if err := c.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx, c)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	return &curationEnv{
		Store:   st,
		Service: curation.NewService(st, initAnalyzer(c), c.Rerun.SecretKey),
	}, nil
}
