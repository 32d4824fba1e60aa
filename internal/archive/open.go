package archive

import (
	"context"
	"fmt"

	"assetledger/internal/archive/objstore"
	"assetledger/internal/infra/objstore/fs"
	"assetledger/internal/infra/objstore/memory"
	"assetledger/internal/infra/objstore/s3"
)

// Config selects the archive backend.
type Config struct {
	Driver string
	Root   string
	S3     s3.Config
}

// Open builds the configured object store. The filesystem driver is the
// default.
func Open(ctx context.Context, cfg Config) (objstore.Store, error) {
	driver := objstore.Driver(cfg.Driver)
	if driver == "" {
		driver = objstore.DriverFilesystem
	}
	switch driver {
	case objstore.DriverFilesystem:
		store, err := fs.New(cfg.Root)
		if err != nil {
			return nil, err
		}
		return store, nil
	case objstore.DriverMemory:
		return memory.New(), nil
	case objstore.DriverS3:
		store, err := s3.New(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown archive driver %s", driver)
	}
}
