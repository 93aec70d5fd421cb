package serverrun

import (
	"context"
	"fmt"

	"github.com/zzcclp/blaze/internal/blockstore"
	httpserver "github.com/zzcclp/blaze/internal/server/http"
	logpkg "github.com/zzcclp/blaze/pkg/log"
)

// Options configures a worker run.
type Options struct {
	DataDir  string
	HTTPAddr string
	Sync     bool
	Logger   logpkg.Logger
}

// Run opens the block store and serves the worker API until ctx is done.
func Run(ctx context.Context, opts Options) error {
	if opts.DataDir == "" {
		return fmt.Errorf("data dir is required")
	}
	open := blockstore.Open
	if opts.Sync {
		open = blockstore.OpenSynced
	}
	store, err := open(opts.DataDir)
	if err != nil {
		return err
	}
	defer store.Close()

	srv := httpserver.New(store, opts.Logger)
	defer srv.Close()
	if err := srv.ListenAndServe(ctx, opts.HTTPAddr); err != nil {
		return fmt.Errorf("worker server: %w", err)
	}
	return nil
}
