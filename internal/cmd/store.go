package cmd

import (
	"context"
	"fmt"

	"github.com/fulmenhq/gofulmen/foundry"

	"github.com/3leaps/skybrowse/internal/config"
	"github.com/3leaps/skybrowse/pkg/provider"
	"github.com/3leaps/skybrowse/pkg/provider/azure"
	"github.com/3leaps/skybrowse/pkg/provider/file"
	"github.com/3leaps/skybrowse/pkg/provider/minio"
	"github.com/3leaps/skybrowse/pkg/provider/s3"
)

// storeFactory is replaced in tests.
var storeFactory = openStore

// openStore connects the backend named by cfg.Provider.
func openStore(ctx context.Context, cfg config.StoreConfig) (provider.Provider, error) {
	typ, ok := provider.ParseProviderType(cfg.Provider)
	if !ok {
		return nil, fmt.Errorf("unsupported provider %q", cfg.Provider)
	}

	switch typ {
	case provider.ProviderAzure:
		return azure.New(azure.Config{
			AccountName:      cfg.AccountName,
			AccountKey:       cfg.AccountKey,
			Endpoint:         cfg.Endpoint,
			ConnectionString: cfg.ConnectionString,
			SASURL:           cfg.SASURL,
		}, nil)
	case provider.ProviderS3:
		return s3.New(ctx, s3.Config{
			Region:          cfg.Region,
			Endpoint:        cfg.Endpoint,
			Profile:         cfg.Profile,
			AccessKeyID:     cfg.AccessKey,
			SecretAccessKey: cfg.SecretKey,
			ForcePathStyle:  cfg.ForcePathStyle,
		})
	case provider.ProviderMinio:
		return minio.New(minio.Config{
			Endpoint:     cfg.Endpoint,
			AccessKey:    cfg.AccessKey,
			SecretKey:    cfg.SecretKey,
			SessionToken: cfg.SessionToken,
			UseSSL:       cfg.UseSSL,
			Region:       cfg.Region,
		}, nil)
	default:
		return file.New(file.Config{BaseDir: cfg.BaseDir})
	}
}

// connect opens the configured store for a command.
func connect(ctx context.Context) (provider.Provider, error) {
	if appConfig == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	store, err := storeFactory(ctx, appConfig.Store)
	if err != nil {
		return nil, exitError(foundry.ExitExternalServiceUnavailable, "Failed to connect to storage provider", err)
	}
	return store, nil
}
