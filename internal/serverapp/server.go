package serverapp

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/Ruutuli/Tinglebot2.0-sub009/internal/clock"
	"github.com/Ruutuli/Tinglebot2.0-sub009/internal/config"
	"github.com/Ruutuli/Tinglebot2.0-sub009/internal/display"
	"github.com/Ruutuli/Tinglebot2.0-sub009/internal/httpmw"
	"github.com/Ruutuli/Tinglebot2.0-sub009/internal/ledger"
	"github.com/Ruutuli/Tinglebot2.0-sub009/internal/orchestrator"
	"github.com/Ruutuli/Tinglebot2.0-sub009/internal/quest"
	"github.com/Ruutuli/Tinglebot2.0-sub009/internal/rules"
	"github.com/Ruutuli/Tinglebot2.0-sub009/internal/storage/sqlite"
	"github.com/Ruutuli/Tinglebot2.0-sub009/internal/telemetry"
	"github.com/Ruutuli/Tinglebot2.0-sub009/internal/voucher"
)

type Options struct {
	Config *config.Config
	Logger *log.Logger
	Clock  clock.Clock
}

// App holds the wired service. Close releases the durable store.
type App struct {
	Orchestrator *orchestrator.Orchestrator
	Coordinator  *display.Coordinator
	Telemetry    *telemetry.MemoryRepository

	handler http.Handler
	closer  io.Closer
}

func New(opts Options) (*App, error) {
	if opts.Config == nil {
		return nil, errors.New("config is required")
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	cfg := opts.Config

	var (
		questRepo   quest.Repository
		ledgerStore ledger.Store
		closer      io.Closer
	)
	switch cfg.Storage.Backend {
	case "sqlite":
		store, err := sqlite.Open(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		questRepo = store
		ledgerStore = store.Ledgers()
		closer = store
	case "file":
		fr, err := quest.NewFileRepo(cfg.Storage.DataDir)
		if err != nil {
			return nil, err
		}
		fs, err := ledger.NewFileStore(cfg.Storage.DataDir)
		if err != nil {
			return nil, err
		}
		questRepo = fr
		ledgerStore = fs
	default:
		return nil, errors.New("unknown storage backend: " + cfg.Storage.Backend)
	}

	vouchers, err := voucher.NewFileService(cfg.Storage.DataDir)
	if err != nil {
		return nil, err
	}

	renderer, err := display.NewTextRenderer(cfg.Display.ArtifactDir)
	if err != nil {
		return nil, err
	}

	events := telemetry.NewMemoryRepository()
	coord := display.NewCoordinator(display.Options{
		Renderer:   renderer,
		FlushDelay: cfg.FlushDelay(),
		Clock:      opts.Clock,
		Logger:     opts.Logger,
		OnEvent:    orchestrator.CoordinatorEvents(events),
	})

	validator := rules.NewValidator(cfg)
	questMgr := quest.NewManager(questRepo, validator, vouchers, opts.Clock, opts.Logger)
	ledgerSvc := ledger.NewService(ledgerStore, cfg.TurnIns.BatchSize, opts.Clock, opts.Logger)
	orch := orchestrator.New(questMgr, ledgerSvc, coord, events, opts.Logger)

	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true,"service":"questhall","time":"` + time.Now().UTC().Format(time.RFC3339) + `"}` + "\n"))
	})

	questHandler := quest.NewHandler(orch)
	mux.HandleFunc("/api/quests", questHandler.List)
	mux.HandleFunc("/api/quests/get", questHandler.Get)
	mux.HandleFunc("/api/quests/create", questHandler.Create)
	mux.HandleFunc("/api/quests/post", questHandler.Post)
	mux.HandleFunc("/api/quests/join", questHandler.Join)
	mux.HandleFunc("/api/quests/leave", questHandler.Leave)
	mux.HandleFunc("/api/quests/progress", questHandler.Progress)
	mux.HandleFunc("/api/quests/moderate", questHandler.Moderate)
	mux.HandleFunc("/api/quests/close", questHandler.Close)

	ledgerHandler := ledger.NewHandler(orch)
	mux.HandleFunc("/api/turnins/summary", ledgerHandler.Summary)
	mux.HandleFunc("/api/turnins/legacy-transfer", ledgerHandler.LegacyTransfer)
	mux.HandleFunc("/api/turnins/redeem", ledgerHandler.Redeem)

	mux.HandleFunc("/api/stats", statsHandler(events))

	handler := httpmw.Chain(mux,
		httpmw.WithRequestID,
		httpmw.WithRecover(opts.Logger),
		httpmw.WithAccessLog(opts.Logger),
	)

	return &App{
		Orchestrator: orch,
		Coordinator:  coord,
		Telemetry:    events,
		handler:      handler,
		closer:       closer,
	}, nil
}

func (a *App) Handler() http.Handler {
	return a.handler
}

func (a *App) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

// NewHandler builds the app and returns only its handler, for callers that
// never need to close the store (tests, file backend).
func NewHandler(opts Options) (http.Handler, error) {
	app, err := New(opts)
	if err != nil {
		return nil, err
	}
	return app.Handler(), nil
}

func statsHandler(events *telemetry.MemoryRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		since := time.Time{}
		if s := r.URL.Query().Get("since"); s != "" {
			t, err := time.Parse("2006-01-02", s)
			if err != nil {
				http.Error(w, "since must be YYYY-MM-DD", http.StatusBadRequest)
				return
			}
			since = t
		}
		evs, err := events.GetEvents(since, nil)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		stats, err := telemetry.CalculateStats(evs, since)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(stats)
	}
}
