package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/vietddude/sifter/internal/core/config"
	"github.com/vietddude/sifter/internal/core/domain"
	"github.com/vietddude/sifter/internal/infra/automation"
	redisclient "github.com/vietddude/sifter/internal/infra/redis"
	"github.com/vietddude/sifter/internal/infra/storage/postgres"
	"github.com/vietddude/sifter/internal/infra/store"
	"github.com/vietddude/sifter/internal/scan/collector"
	"github.com/vietddude/sifter/internal/scan/healing"
	"github.com/vietddude/sifter/internal/scan/health"
	"github.com/vietddude/sifter/internal/scan/merge"
	"github.com/vietddude/sifter/internal/scan/processor"
	"github.com/vietddude/sifter/internal/scan/worker"
)

// ErrRunLocked is returned when another process holds a run's lock.
var ErrRunLocked = errors.New("run is locked by another process")

const runLockTTL = time.Hour

// Config holds the application configuration.
type Config struct {
	App         config.AppConfig
	CfgPath     string // forwarded to spawned workers
	Credentials domain.Credentials
}

// Sifter is the main application struct wiring storage, session dialing,
// healing and the optional run lock / run ledger.
type Sifter struct {
	cfg          Config
	store        *store.FileStore
	dialer       automation.Dialer
	redisClient  *redisclient.Client
	db           *postgres.DB
	ledger       *postgres.RunLedgerRepo
	healer       processor.Healer
	worker       *worker.Worker
	merger       *merge.Merger
	healthServer *health.Server
	log          *slog.Logger
}

// New creates a Sifter with all dependencies initialized. Validation faults
// (missing URL or credentials) fail fast, before any queue work.
func New(cfg Config) (*Sifter, error) {
	if cfg.App.Automation.URL == "" {
		return nil, errors.New("automation url is required")
	}
	if cfg.Credentials.Username == "" || cfg.Credentials.Password == "" {
		return nil, errors.New("automation credentials are required")
	}

	st, err := store.NewFileStore(cfg.App.Scan.StateDir)
	if err != nil {
		return nil, err
	}

	dialer := automation.NewHTTPDialer(cfg.App.Automation.URL, cfg.App.Automation.Timeout.Std())

	var redisClient *redisclient.Client
	if cfg.App.Redis.URL != "" {
		redisClient, err = redisclient.NewClient(cfg.App.Redis)
		if err != nil {
			slog.Warn("Failed to connect to Redis, run locking disabled", "error", err)
			redisClient = nil
		} else {
			slog.Info("Run locking enabled")
		}
	}

	var db *postgres.DB
	var ledger *postgres.RunLedgerRepo
	if cfg.App.Database.URL != "" {
		db, err = postgres.NewDB(context.Background(), cfg.App.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		if err := db.Migrate("migrations"); err != nil {
			return nil, err
		}
		ledger = postgres.NewRunLedgerRepo(db)
		slog.Info("Run ledger enabled")
	}

	// A spawned worker re-runs this binary with the resume command pointed
	// at the heal-state file.
	starter := &healing.ExecStarter{
		Args:   []string{"resume", "--config", cfg.CfgPath},
		LogDir: cfg.App.Scan.StateDir,
	}
	healer := healing.NewManager(st, starter)

	s := &Sifter{
		cfg:         cfg,
		store:       st,
		dialer:      dialer,
		redisClient: redisClient,
		db:          db,
		ledger:      ledger,
		healer:      healer,
		worker:      worker.New(cfg.App.Scan, dialer, st, healer),
		merger:      merge.New(st),
		log:         slog.Default(),
	}

	if cfg.App.Server.Port > 0 {
		s.healthServer = health.NewServer(cfg.App.Server.Port, s.healthProbes())
	}
	return s, nil
}

// StartHealthServer serves /health and /metrics until ctx is done. No-op
// when the server port is disabled.
func (s *Sifter) StartHealthServer(ctx context.Context) {
	if s.healthServer == nil {
		return
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.healthServer.Stop(shutdownCtx)
	}()
	go func() {
		if err := s.healthServer.Start(); err != nil && !errors.Is(err, context.Canceled) {
			s.log.Warn("Health server stopped", "error", err)
		}
	}()
}

// Run executes a fresh generation-0 scan: collect the work list, process it,
// and on normal completion merge all checkpoints into the final output.
func (s *Sifter) Run(ctx context.Context) (*domain.Report, error) {
	runID := uuid.New().String()[:8]
	return s.runRoot(ctx, runID, false)
}

// RunBatch executes the batch-oriented pipeline over a fresh work list.
func (s *Sifter) RunBatch(ctx context.Context) (*domain.Report, error) {
	runID := uuid.New().String()[:8]
	return s.runRoot(ctx, runID, true)
}

func (s *Sifter) runRoot(ctx context.Context, runID string, batched bool) (*domain.Report, error) {
	if err := s.probeAutomation(ctx); err != nil {
		return nil, err
	}

	unlock, err := s.lockRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	s.recordStart(ctx, runID, 0)

	session, err := s.dialer.Open(ctx, s.cfg.Credentials)
	if err != nil {
		return nil, fmt.Errorf("failed to open session: %w", err)
	}

	coll := collector.New(collector.Config{
		PageFrom:        s.cfg.App.Scan.PageFrom,
		PageTo:          s.cfg.App.Scan.PageTo,
		CheckpointEvery: s.cfg.App.Scan.PageCheckpointEvery,
	}, session, s.store)

	items, err := coll.Collect(ctx, runID)
	if err != nil {
		_ = session.Close()
		return nil, err
	}

	proc := processor.New(processor.Config{
		RunID:          runID,
		Generation:     0,
		SkipMarker:     s.cfg.App.Scan.SkipMarker,
		ErrorThreshold: s.cfg.App.Scan.ErrorThreshold,
		RetryCooldown:  s.cfg.App.Scan.RetryCooldown.Std(),
		BatchSize:      s.cfg.App.Scan.BatchSize,
		MaxGenerations: s.cfg.App.Scan.MaxGenerations,
		Credentials:    s.cfg.Credentials,
	}, session, s.store, s.healer)

	var report *domain.Report
	if batched {
		masterPath, werr := s.store.WriteJSON(
			domain.MasterIndexName(runID),
			domain.WorkList{RunID: runID, Items: items},
		)
		if werr != nil {
			_ = session.Close()
			return nil, werr
		}
		report, err = proc.RunBatches(ctx, &domain.BatchResume{
			Index:           0,
			MasterIndexFile: masterPath,
			BatchSize:       s.cfg.App.Scan.BatchSize,
		})
	} else {
		report, err = proc.Run(ctx, items, nil)
	}

	if errors.Is(err, processor.ErrHealingInProgress) {
		s.recordEscalation(ctx, runID, 0, err)
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	// Root generation answers the caller with the merged union.
	merged, finalPath, err := s.merger.Merge(runID)
	if err != nil {
		return nil, err
	}
	report.Merged = true
	report.FinalFile = finalPath
	report.Results = merged

	s.recordCompletion(ctx, report)
	return report, nil
}

// Resume runs the worker entry point for a heal-state file. A resumed
// generation never merges; its checkpoint stays on disk for a later
// generation-0 completion.
func (s *Sifter) Resume(ctx context.Context, statePath string) (*domain.Report, error) {
	var state domain.HealState
	if err := store.ReadJSONFile(statePath, &state); err != nil {
		return nil, err
	}
	if err := state.Validate(); err != nil {
		return nil, err
	}

	if err := s.probeAutomation(ctx); err != nil {
		return nil, err
	}

	unlock, err := s.lockRun(ctx, state.RunID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	s.recordStart(ctx, state.RunID, state.Generation)

	report, err := s.worker.Run(ctx, statePath)
	if errors.Is(err, processor.ErrHealingInProgress) {
		s.recordEscalation(ctx, state.RunID, state.Generation, err)
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	s.recordCompletion(ctx, report)
	return report, nil
}

// Ledger returns the run ledger repository, nil when no database is
// configured.
func (s *Sifter) Ledger() *postgres.RunLedgerRepo {
	return s.ledger
}

// Store returns the state directory store.
func (s *Sifter) Store() *store.FileStore {
	return s.store
}

// Close releases shared clients.
func (s *Sifter) Close() {
	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			s.log.Warn("Failed to close Redis", "error", err)
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.log.Warn("Failed to close database", "error", err)
		}
	}
}

func (s *Sifter) probeAutomation(ctx context.Context) error {
	addr := s.cfg.App.Automation.GRPCHealthAddr
	if addr == "" {
		return nil
	}
	if err := automation.ProbeHealth(ctx, addr); err != nil {
		return fmt.Errorf("automation service not ready: %w", err)
	}
	return nil
}

// lockRun takes the per-run processing lock when Redis is configured. The
// parent releases before a handoff returns, so the spawned worker can
// acquire it for the same run.
func (s *Sifter) lockRun(ctx context.Context, runID string) (func(), error) {
	if s.redisClient == nil {
		return func() {}, nil
	}

	host, _ := os.Hostname()
	holder := fmt.Sprintf("%s:%d", host, os.Getpid())
	ok, err := s.redisClient.AcquireRunLock(ctx, runID, holder, runLockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire run lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunLocked, runID)
	}

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.redisClient.ReleaseRunLock(releaseCtx, runID); err != nil {
			s.log.Warn("Failed to release run lock", "run", runID, "error", err)
		}
	}, nil
}

func (s *Sifter) healthProbes() map[string]health.Probe {
	probes := map[string]health.Probe{
		"state_dir": func(ctx context.Context) error {
			_, err := os.Stat(s.store.Dir())
			return err
		},
	}
	if s.db != nil {
		probes["database"] = s.db.Health
	}
	if s.redisClient != nil {
		probes["redis"] = s.redisClient.Health
	}
	if addr := s.cfg.App.Automation.GRPCHealthAddr; addr != "" {
		probes["automation"] = func(ctx context.Context) error {
			return automation.ProbeHealth(ctx, addr)
		}
	}
	return probes
}

func (s *Sifter) recordStart(ctx context.Context, runID string, generation int) {
	if s.ledger == nil {
		return
	}
	if err := s.ledger.RecordStart(ctx, runID, generation, string(domain.PhaseRunning)); err != nil {
		s.log.Warn("Failed to record run start", "run", runID, "error", err)
	}
}

func (s *Sifter) recordEscalation(ctx context.Context, runID string, generation int, cause error) {
	if s.ledger == nil {
		return
	}
	if err := s.ledger.RecordEscalation(ctx, runID, generation, cause.Error()); err != nil {
		s.log.Warn("Failed to record escalation", "run", runID, "error", err)
	}
}

func (s *Sifter) recordCompletion(ctx context.Context, report *domain.Report) {
	if s.ledger == nil {
		return
	}
	err := s.ledger.RecordCompletion(ctx, report.RunID, report.Generation, report.Processed, report.Accepted)
	if err != nil {
		s.log.Warn("Failed to record completion", "run", report.RunID, "error", err)
	}
}
