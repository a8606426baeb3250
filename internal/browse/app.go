package browse

import (
	"io"

	"github.com/shelf-labs/shelfctl/internal/api"
	"github.com/shelf-labs/shelfctl/internal/config"
	"github.com/shelf-labs/shelfctl/internal/events"
	"github.com/shelf-labs/shelfctl/internal/resolve"
	"github.com/shelf-labs/shelfctl/internal/resources"
	"github.com/shelf-labs/shelfctl/internal/session"
	"github.com/shelf-labs/shelfctl/internal/state"
	"github.com/shelf-labs/shelfctl/internal/transfer"
)

// App owns the full component graph. Construction wires everything and
// restores any persisted session; Close releases live binary handles.
type App struct {
	Config     *config.Config
	Bus        *events.EventBus
	Store      *session.Store
	Handler    *session.Handler
	Gateway    *api.Gateway
	Client     *api.Client
	Pager      *state.Pager
	Registry   *resources.Registry
	Uploader   *transfer.Uploader
	Downloader *transfer.Downloader
	Thumbnails *resolve.Thumbnails
	Preview    *resolve.Preview
	View       *View

	thumbReady <-chan events.Event
}

// NewApp builds the component graph for cfg. out receives all rendering; nil
// means stdout.
func NewApp(cfg *config.Config, out io.Writer) (*App, error) {
	bus := events.NewEventBus(0)
	store := session.NewStore(cfg.ResolvedTokenPath(), bus)

	gw, err := api.NewGateway(cfg.APIBaseURL, store)
	if err != nil {
		bus.Close()
		return nil, err
	}
	client := api.NewClient(gw)

	view := NewView(out)
	registry := resources.NewRegistry()
	pager := state.NewPager(client, store, bus)
	pager.SetView(view)

	handler := session.NewHandler(store, session.DefaultWindow, bus)
	handler.Bind(pager, registry, view)
	gw.SetUnauthorizedHook(handler.Trigger)

	uploader := transfer.NewUploader(gw, store, cfg.MaxUploadBytes, bus)
	uploader.Bind(pager, view, handler)

	app := &App{
		Config:     cfg,
		Bus:        bus,
		Store:      store,
		Handler:    handler,
		Gateway:    gw,
		Client:     client,
		Pager:      pager,
		Registry:   registry,
		Uploader:   uploader,
		Downloader: transfer.NewDownloader(client),
		Thumbnails: resolve.NewThumbnails(client, registry, bus),
		Preview:    resolve.NewPreview(client, registry, bus),
		View:       view,
		thumbReady: bus.Subscribe(events.EventThumbnailReady),
	}

	store.Restore()
	return app, nil
}

// Close releases every live binary handle and shuts the event bus down.
func (a *App) Close() {
	a.Registry.RevokeAll()
	a.Bus.Close()
}
