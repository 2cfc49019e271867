package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/docsearch-core/docsearch/internal/compoundindex"
	"github.com/docsearch-core/docsearch/internal/config"
	"github.com/docsearch-core/docsearch/internal/embedclient"
	"github.com/docsearch-core/docsearch/internal/ingest"
	"github.com/docsearch-core/docsearch/internal/ingestlease"
	"github.com/docsearch-core/docsearch/internal/lexindex"
	"github.com/docsearch-core/docsearch/internal/logging"
	"github.com/docsearch-core/docsearch/internal/resourcestore"
	"github.com/docsearch-core/docsearch/internal/search"
	"github.com/docsearch-core/docsearch/internal/suggest"
	"github.com/docsearch-core/docsearch/internal/vectorindex"
)

// app bundles every collaborator the CLI subcommands and the HTTP server
// drive, wired once per process from a single Config.
type app struct {
	cfg *config.Config

	store    *resourcestore.Store
	lexical  *lexindex.Index
	vector   *vectorindex.Index
	compound *compoundindex.Index
	suggest  *suggest.Index
	embedder embedclient.Embedder
	pipeline *ingest.Pipeline
	executor *search.Executor
	checker  *ingest.ConsistencyChecker

	dataLock *ingestlease.DataDirLock
	logger   *slog.Logger
	cleanup  func()
}

// newApp loads configuration rooted at dataDir (or the current working
// directory when empty) and constructs every collaborator. Callers must
// call close() when done.
func newApp(dataDir string, debug bool) (*app, error) {
	cfg, err := config.Load(workingDirOr(dataDir))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if dataDir != "" {
		cfg.Data.Dir = dataDir
	}
	if debug {
		cfg.Server.Debug = true
		cfg.Server.LogLevel = "debug"
	}

	logCfg := logging.DefaultConfig()
	if cfg.Server.Debug {
		logCfg = logging.DebugConfig()
	}
	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return nil, fmt.Errorf("setting up logging: %w", err)
	}

	if err := os.MkdirAll(cfg.Data.Dir, 0o755); err != nil {
		cleanup()
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	var dataLock *ingestlease.DataDirLock
	if cfg.Data.LockCrossProcess {
		dataLock = ingestlease.NewDataDirLock(cfg.Data.Dir)
		if err := dataLock.Lock(); err != nil {
			cleanup()
			return nil, fmt.Errorf("acquiring data directory lock: %w", err)
		}
	}

	sqlitePath := cfg.Data.SQLiteDSN
	if sqlitePath == "" {
		sqlitePath = filepath.Join(cfg.Data.Dir, "resources.db")
	}
	store, err := resourcestore.Open(sqlitePath)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("opening resource store: %w", err)
	}

	lexical, err := lexindex.New(filepath.Join(cfg.Data.Dir, "lexical.bleve"))
	if err != nil {
		store.Close()
		cleanup()
		return nil, fmt.Errorf("opening lexical index: %w", err)
	}

	vector := vectorindex.New(cfg.Embedding.DimText, cfg.Embedding.DimCaption)
	compound := compoundindex.New(lexical, vector, cfg.Search.RRFConstant)
	suggestIndex := suggest.New(cfg.Suggestions.HotTermCacheSize)
	embedder := embedclient.New(cfg)
	lease := ingestlease.New()

	pipeline := ingest.New(store, compound, suggestIndex, embedder, cfg.Vendors, lease, cfg.Ingest, logger)
	executor := search.New(compound, store, embedder, cfg.Search)
	checker := ingest.NewConsistencyChecker(store, lexical, vector)

	return &app{
		cfg: cfg, store: store, lexical: lexical, vector: vector, compound: compound,
		suggest: suggestIndex, embedder: embedder, pipeline: pipeline, executor: executor, checker: checker,
		dataLock: dataLock, logger: logger, cleanup: cleanup,
	}, nil
}

func (a *app) close() {
	if a.store != nil {
		_ = a.store.Close()
	}
	if a.lexical != nil {
		_ = a.lexical.Close()
	}
	if a.dataLock != nil {
		_ = a.dataLock.Unlock()
	}
	if a.cleanup != nil {
		a.cleanup()
	}
}

func workingDirOr(dataDir string) string {
	if dataDir != "" {
		return dataDir
	}
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}
