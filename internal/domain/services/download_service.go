package services

import (
	"context"
	"fmt"
	"slices"

	"github.com/athebyme/gomarket-seeder/internal/domain/bulk"
	"github.com/athebyme/gomarket-seeder/internal/domain/directory"
	"github.com/athebyme/gomarket-seeder/internal/domain/marketplace"
	"github.com/athebyme/gomarket-seeder/pkg/interfaces"
)

// RedactedMarker подставляется вместо секретов при выгрузке
const RedactedMarker = "<Redacted for Security>"

// DownloadService выгружает маркетплейс с платформы в документ
type DownloadService struct {
	engine    *bulk.Engine
	dir       *directory.Directory
	snapshots interfaces.SnapshotPort
	logger    interfaces.LoggerPort
}

// NewDownloadService создает новый экземпляр DownloadService
func NewDownloadService(engine *bulk.Engine, dir *directory.Directory, logger interfaces.LoggerPort) *DownloadService {
	return &DownloadService{
		engine: engine,
		dir:    dir,
		logger: logger,
	}
}

// WithSnapshots включает сохранение выгруженного документа
func (s *DownloadService) WithSnapshots(snapshots interfaces.SnapshotPort) *DownloadService {
	s.snapshots = snapshots
	return s
}

// Download читает все ресурсы верхнего уровня в порядке каталога; дочерние ресурсы
// читаются для каждой родительской записи и помечаются ее ID
func (s *DownloadService) Download(ctx context.Context) (*marketplace.SerializedMarketplace, error) {
	doc := marketplace.New()
	counts := make(map[string]int)

	for _, res := range s.dir.All() {
		if res.IsChild {
			continue
		}
		records, err := s.engine.ListAll(ctx, res)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", res.Name, err)
		}
		for i, rec := range records {
			records[i] = prepareDownloaded(res, rec)
		}
		s.logger.InfoWithContext(ctx, fmt.Sprintf("Found %d %s", len(records), res.Name))
		doc.AddRecords(res, records)

		for _, name := range res.Children {
			child := s.dir.MustGet(name)
			s.resetCounts(child, counts)
			for _, parent := range records {
				if err := s.downloadChild(ctx, doc, child, parent, nil, counts); err != nil {
					return nil, err
				}
			}
			s.logCounts(ctx, child, counts)
		}
	}

	if s.snapshots != nil {
		if err := saveSnapshot(ctx, s.snapshots, interfaces.SnapshotDownload, doc); err != nil {
			s.logger.Warn("Не удалось сохранить снимок выгрузки", interfaces.LogField{Key: "error", Value: err.Error()})
		}
	}
	return doc, nil
}

// downloadChild читает записи дочернего ресурса одного родителя, затем рекурсивно их потомков
func (s *DownloadService) downloadChild(ctx context.Context, doc *marketplace.SerializedMarketplace, child *directory.Descriptor, parent *marketplace.Record, parentParams []string, counts map[string]int) error {
	if !child.ShouldAttemptList(parent) {
		return nil
	}
	params := append(slices.Clone(parentParams), parent.ID())

	records, err := s.engine.ListAll(ctx, child, params...)
	if err != nil {
		return fmt.Errorf("failed to list %s of %s: %w", child.Name, parent.ID(), err)
	}

	// платформа не возвращает ID родителей в дочерних записях
	fields := child.RouteFields()
	for i, rec := range records {
		rec = prepareDownloaded(child, rec)
		for j, f := range fields {
			if j < len(params) {
				rec.SetString(f, params[j])
			}
		}
		records[i] = rec
	}
	counts[child.Name] += len(records)
	doc.AddRecords(child, records)

	for _, name := range child.Children {
		grandchild := s.dir.MustGet(name)
		for _, rec := range records {
			if err := s.downloadChild(ctx, doc, grandchild, rec, params, counts); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *DownloadService) resetCounts(res *directory.Descriptor, counts map[string]int) {
	counts[res.Name] = 0
	for _, name := range res.Children {
		s.resetCounts(s.dir.MustGet(name), counts)
	}
}

func (s *DownloadService) logCounts(ctx context.Context, res *directory.Descriptor, counts map[string]int) {
	s.logger.InfoWithContext(ctx, fmt.Sprintf("Found %d %s", counts[res.Name], res.Name))
	for _, name := range res.Children {
		s.logCounts(ctx, s.dir.MustGet(name), counts)
	}
}

// prepareDownloaded скрывает секреты и применяет преобразование ресурса
func prepareDownloaded(res *directory.Descriptor, rec *marketplace.Record) *marketplace.Record {
	for _, field := range res.RedactFields {
		if !rec.IsNil(field) {
			rec.SetString(field, RedactedMarker)
		}
	}
	return res.TransformDownloaded(rec)
}
