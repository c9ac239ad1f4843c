package cli

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-dbproxy/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-dbproxy/pkg/config"
	"github.com/ekaya-inc/ekaya-dbproxy/pkg/crypto"
	"github.com/ekaya-inc/ekaya-dbproxy/pkg/database"
	"github.com/ekaya-inc/ekaya-dbproxy/pkg/logging"
	"github.com/ekaya-inc/ekaya-dbproxy/pkg/repositories"
	"github.com/ekaya-inc/ekaya-dbproxy/pkg/services"

	// Database engines. Each can be left out with its no_<engine> build tag.
	_ "github.com/ekaya-inc/ekaya-dbproxy/pkg/adapters/datasource/mongodb"
	_ "github.com/ekaya-inc/ekaya-dbproxy/pkg/adapters/datasource/mysql"
	_ "github.com/ekaya-inc/ekaya-dbproxy/pkg/adapters/datasource/postgres"
)

// app holds the services shared by every command.
type app struct {
	cfg             *config.Config
	logger          *zap.Logger
	db              *database.DB
	profiles        services.ProfileStore
	databaseService services.DatabaseService
}

// newApp opens profile state and builds the services described by cfg.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	logger, err := logging.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	db, err := database.Open(ctx, cfg.State.Path)
	if err != nil {
		return nil, err
	}

	if err := database.RunMigrations(db, logger); err != nil {
		_ = db.Close()
		return nil, err
	}

	var sealer services.URLSealer
	if cfg.ProfileCredentialsKey != "" {
		s, err := crypto.NewURLSealer(cfg.ProfileCredentialsKey)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("invalid PROFILE_CREDENTIALS_KEY: %w", err)
		}
		sealer = s
	}

	profiles, err := services.NewProfileStore(ctx, repositories.NewStateRepository(db), sealer, cfg.State.RecordTTL, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	factory := datasource.NewDatasourceAdapterFactory(datasource.Options{
		ConnectTimeout: cfg.Proxy.ConnectTimeout,
		DocumentLimit:  cfg.Proxy.DocumentLimit,
	})

	return &app{
		cfg:             cfg,
		logger:          logger,
		db:              db,
		profiles:        profiles,
		databaseService: services.NewDatabaseService(factory, logger),
	}, nil
}

// Close releases the state database and flushes the logger.
func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		a.logger.Warn("Failed to close state database", zap.Error(err))
	}
	_ = a.logger.Sync()
}

// engineNames lists the compiled-in engines for /ping.
func engineNames() []string {
	infos := datasource.RegisteredAdapters()
	names := make([]string, len(infos))
	for i, info := range infos {
		names[i] = string(info.Type)
	}
	return names
}

// resolveTarget picks the connection URL for a command: an explicit URL wins,
// then the named profile, then the active profile. The returned profile id is
// empty when the URL did not come from a profile.
func resolveTarget(store services.ProfileStore, databaseURL, profileID string) (string, string, error) {
	if databaseURL != "" {
		return databaseURL, "", nil
	}
	if profileID != "" {
		p, err := store.Profile(profileID)
		if err != nil {
			return "", "", fmt.Errorf("profile %q: %w", profileID, err)
		}
		return p.DatabaseURL, p.ID, nil
	}
	if p := store.ActiveProfile(); p != nil {
		return p.DatabaseURL, p.ID, nil
	}
	return "", "", fmt.Errorf("no --url or --profile given and no active profile")
}
