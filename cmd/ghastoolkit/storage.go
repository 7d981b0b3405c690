package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/data-douser/ghastoolkit-go/internal/config"
	"github.com/data-douser/ghastoolkit-go/internal/storage"
	"github.com/data-douser/ghastoolkit-go/internal/storage/gcs"
	"github.com/data-douser/ghastoolkit-go/internal/storage/local"
)

// storageFlags overrides the storage section of the config file.
type storageFlags struct {
	storageType    string
	dir            string
	gcsBucket      string
	gcsPrefix      string
	gcsCredentials string
}

func (f *storageFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.storageType, "storage", "", "archive storage backend: local or gcs")
	cmd.Flags().StringVar(&f.dir, "storage-dir", "", "directory for local storage")
	cmd.Flags().StringVar(&f.gcsBucket, "gcs-bucket", "", "GCS bucket name")
	cmd.Flags().StringVar(&f.gcsPrefix, "gcs-prefix", "", "object path prefix within the GCS bucket")
	cmd.Flags().StringVar(&f.gcsCredentials, "gcs-credentials", "", "service account JSON key file (default: Application Default Credentials)")
}

func (f *storageFlags) merge(cfg config.StorageConfig) config.StorageConfig {
	cfg.Type = firstNonEmpty(f.storageType, cfg.Type)
	cfg.Directory = firstNonEmpty(f.dir, cfg.Directory)
	cfg.Bucket = firstNonEmpty(f.gcsBucket, cfg.Bucket)
	cfg.Prefix = firstNonEmpty(f.gcsPrefix, cfg.Prefix)
	cfg.Credentials = firstNonEmpty(f.gcsCredentials, cfg.Credentials)
	return cfg
}

// initStorage creates the configured storage backend. It returns nil when
// no backend is configured.
func (a *app) initStorage(ctx context.Context, flags *storageFlags) (storage.Backend, error) {
	cfg := flags.merge(a.cfg.Storage)

	switch cfg.Type {
	case "":
		return nil, nil

	case "local":
		if cfg.Directory == "" {
			return nil, fmt.Errorf("--storage-dir is required for local storage")
		}
		store, err := local.New(local.Config{BasePath: cfg.Directory, Create: true})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize local storage: %w", err)
		}
		a.logger.Debug("initialized local storage", "path", store.BasePath())
		return store, nil

	case "gcs":
		if cfg.Bucket == "" {
			return nil, fmt.Errorf("--gcs-bucket is required for gcs storage")
		}
		store, err := gcs.New(ctx, gcs.Config{
			Bucket:          cfg.Bucket,
			Prefix:          cfg.Prefix,
			CredentialsFile: cfg.Credentials,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize GCS storage: %w", err)
		}
		a.logger.Debug("initialized GCS storage", "bucket", cfg.Bucket, "prefix", cfg.Prefix)
		return store, nil

	default:
		return nil, fmt.Errorf("unknown storage type: %s (supported: local, gcs)", cfg.Type)
	}
}

// requireStorage is initStorage for commands that cannot run without one.
func (a *app) requireStorage(ctx context.Context, flags *storageFlags) (storage.Backend, error) {
	store, err := a.initStorage(ctx, flags)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, fmt.Errorf("no storage configured: set --storage or storage.type in the config file")
	}
	return store, nil
}

func closeStorage(a *app, store storage.Backend) {
	if store == nil {
		return
	}
	if err := store.Close(); err != nil {
		a.logger.Error("failed to close storage", "error", err)
	}
}
