package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dollarfunding/document-service/internal/config"
	"github.com/dollarfunding/document-service/internal/core/ports"
	"github.com/dollarfunding/document-service/internal/core/usecase"
	"github.com/dollarfunding/document-service/internal/infrastructure/classifier"
	"github.com/dollarfunding/document-service/internal/infrastructure/extractor"
	"github.com/dollarfunding/document-service/internal/infrastructure/fields"
	"github.com/dollarfunding/document-service/internal/infrastructure/imaging"
	"github.com/dollarfunding/document-service/internal/infrastructure/queue/nats"
	"github.com/dollarfunding/document-service/internal/infrastructure/raster"
	"github.com/dollarfunding/document-service/internal/infrastructure/recognition"
	"github.com/dollarfunding/document-service/internal/infrastructure/repository/postgres"
	"github.com/dollarfunding/document-service/internal/infrastructure/storage/localfs"
	"github.com/dollarfunding/document-service/internal/infrastructure/storage/minio"
)

type App struct {
	Config config.Config

	Queue     ports.MessageQueue
	Repo      ports.DocumentRepository
	IngestUC  ports.DocumentIngestor
	ProcessUC ports.DocumentProcessor

	closeFn func()
}

// New wires the full dependency graph. Every external requirement (database,
// queue, binaries, model artifact) is verified here so a misconfigured
// deployment fails at startup instead of per document.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewDocumentRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := newObjectStorage(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	queue, err := nats.New(cfg.NATSURL, cfg.NATSSubject)
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	textExtractor, err := newTextExtractor(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init text extractor: %w", err)
	}

	forest, err := classifier.New(cfg.ModelPath, logger)
	if err != nil {
		return nil, fmt.Errorf("load classification model: %w", err)
	}

	schema, err := fields.LoadSchema(cfg.FieldSchemaPath)
	if err != nil {
		return nil, fmt.Errorf("load field schema: %w", err)
	}
	fieldExtractor := fields.NewExtractor(schema, logger)

	maxFileSize := int64(cfg.MaxFileSizeMB) << 20
	ingestUC := usecase.NewIngestDocumentUseCase(repo, storage, queue, maxFileSize)
	processUC := usecase.NewProcessDocumentUseCase(repo, storage, textExtractor, forest, fieldExtractor, cfg.ConfidenceThreshold)

	return &App{
		Config: cfg,
		Queue:  queue,
		Repo:   repo,

		IngestUC:  ingestUC,
		ProcessUC: processUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

func newObjectStorage(ctx context.Context, cfg config.Config) (ports.ObjectStorage, error) {
	switch cfg.StorageBackend {
	case "minio":
		store, err := minio.New(minio.Config{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
			KMSKeyID:  cfg.KMSKeyID,
		})
		if err != nil {
			return nil, err
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return store, nil
	case "localfs", "":
		return localfs.New(cfg.StoragePath)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

func newTextExtractor(cfg config.Config, logger *slog.Logger) (ports.TextExtractor, error) {
	rasterizer := raster.New(cfg.PdftoppmPath, cfg.OCRDPI)
	if err := rasterizer.Verify(); err != nil {
		return nil, err
	}

	engine, err := newOCREngine(cfg)
	if err != nil {
		return nil, err
	}

	opts := recognition.Options{
		Language: cfg.OCRLanguage,
		PSM:      cfg.OCRPSM,
		OEM:      cfg.OCROEM,
		DPI:      cfg.OCRDPI,
	}
	adapter := recognition.NewAdapter(engine, opts, time.Duration(cfg.OCRTimeoutSeconds)*time.Second)

	return extractor.NewComposite(rasterizer, imaging.NewPreprocessor(), adapter, logger), nil
}

func newOCREngine(cfg config.Config) (recognition.Engine, error) {
	switch cfg.OCREngine {
	case "cgo":
		return recognition.NewGosseractEngine(), nil
	case "cli", "":
		engine, err := recognition.NewCLIEngine(cfg.TesseractPath)
		if err != nil {
			return nil, err
		}
		return engine, nil
	default:
		return nil, fmt.Errorf("unknown ocr engine %q", cfg.OCREngine)
	}
}
