package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/ericyum/tour-agent-frontend/internal/backend"
	"github.com/ericyum/tour-agent-frontend/internal/course"
	"github.com/ericyum/tour-agent-frontend/internal/itinerary"
	"github.com/ericyum/tour-agent-frontend/internal/observability"
	"github.com/ericyum/tour-agent-frontend/internal/storage/filestore"
)

// app opens collaborators on first use so that --help never touches disk.
type app struct {
	opts  Options
	flags *globalFlags

	logger  *zap.Logger
	backend backend.Service
	store   *itinerary.Store
	detach  func()
}

func (a *app) context(ctx context.Context) (context.Context, error) {
	if a.logger == nil {
		logger, err := observability.NewCLILogger(a.flags.verbose)
		if err != nil {
			return ctx, fmt.Errorf("cli: logger: %w", err)
		}
		a.logger = logger.Named("cli")
	}
	return observability.WithLogger(ctx, a.logger), nil
}

func (a *app) service() (backend.Service, error) {
	if a.backend != nil {
		return a.backend, nil
	}
	if a.opts.Backend != nil {
		a.backend = a.opts.Backend
		return a.backend, nil
	}
	var (
		svc backend.Service
		err error
	)
	if a.flags.backendURL == "" {
		svc, err = backend.NewStaticService(nil, a.opts.Now)
	} else {
		svc, err = backend.NewHTTPService(a.flags.backendURL+a.flags.basePath, nil)
	}
	if err != nil {
		return nil, err
	}
	a.backend = svc
	return svc, nil
}

func (a *app) courses() (*course.Service, error) {
	svc, err := a.service()
	if err != nil {
		return nil, err
	}
	return course.NewService(svc)
}

// itinerary loads the course file and keeps it in sync for the rest of the run.
func (a *app) itinerary(ctx context.Context) (*itinerary.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	fs, err := filestore.New(a.flags.dataDir)
	if err != nil {
		return nil, err
	}
	key := itinerary.Key(a.flags.owner)
	items, err := itinerary.Load(ctx, fs, key)
	if err != nil {
		return nil, err
	}
	a.store = itinerary.NewStore(items)
	a.detach = itinerary.Persist(a.store, fs, key, a.logger)
	observability.FromContext(ctx).Debug("course loaded",
		zap.String("path", fs.Path(key)), zap.Int("items", len(items)))
	return a.store, nil
}

func (a *app) close() {
	if a.detach != nil {
		a.detach()
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.opts.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
