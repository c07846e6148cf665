package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/athebyme/gomarket-seeder/internal/domain/directory"
	"github.com/athebyme/gomarket-seeder/internal/domain/marketplace"
	"github.com/athebyme/gomarket-seeder/internal/domain/validation"
	"github.com/athebyme/gomarket-seeder/pkg/interfaces"
)

// ValidateService проверяет документ маркетплейса по актуальной схеме платформы
type ValidateService struct {
	schema     directory.SchemaSource
	httpClient *http.Client
	snapshots  interfaces.SnapshotPort
	logger     interfaces.LoggerPort
}

// NewValidateService создает новый экземпляр ValidateService
func NewValidateService(schema directory.SchemaSource, httpClient *http.Client, logger interfaces.LoggerPort) *ValidateService {
	return &ValidateService{
		schema:     schema,
		httpClient: httpClient,
		logger:     logger,
	}
}

// WithSnapshots включает сохранение результатов проверки
func (s *ValidateService) WithSnapshots(snapshots interfaces.SnapshotPort) *ValidateService {
	s.snapshots = snapshots
	return s
}

// Directory строит каталог ресурсов со схемой платформы
func (s *ValidateService) Directory(ctx context.Context) (*directory.Directory, error) {
	dir, err := directory.Build(ctx, s.schema)
	if err != nil {
		return nil, fmt.Errorf("failed to build resource directory: %w", err)
	}
	for _, v := range dir.CheckPriorities() {
		s.logger.Warn("Приоритет создания не покрывает зависимость",
			interfaces.LogField{Key: "violation", Value: v.String()},
		)
	}
	return dir, nil
}

// Load читает документ из файла или по URL
func (s *ValidateService) Load(ctx context.Context, source string) (*marketplace.SerializedMarketplace, error) {
	if source == "" {
		return nil, ErrNoDocument
	}
	doc, err := marketplace.Load(ctx, s.httpClient, source)
	if err != nil {
		s.logger.ErrorWithContext(ctx, err.Error())
		return nil, err
	}
	return doc, nil
}

// Check проверяет документ и возвращает каталог, по которому шла проверка.
// Ошибки проверки возвращаются как данные; error означает, что проверить документ не удалось.
func (s *ValidateService) Check(ctx context.Context, doc *marketplace.SerializedMarketplace) (*directory.Directory, []string, error) {
	if doc == nil {
		return nil, nil, ErrNoDocument
	}
	dir, err := s.Directory(ctx)
	if err != nil {
		return nil, nil, err
	}

	errs := validation.Validate(dir, doc)
	for _, msg := range errs {
		s.logger.ErrorWithContext(ctx, msg)
	}
	if len(errs) == 0 {
		s.logger.InfoWithContext(ctx, "Ready for upload!")
	}

	if s.snapshots != nil {
		if err := saveSnapshot(ctx, s.snapshots, interfaces.SnapshotValidation, errs); err != nil {
			s.logger.Warn("Не удалось сохранить снимок проверки", interfaces.LogField{Key: "error", Value: err.Error()})
		}
	}
	return dir, errs, nil
}

// Validate проверяет документ и возвращает список ошибок (пустой, если документ корректен)
func (s *ValidateService) Validate(ctx context.Context, doc *marketplace.SerializedMarketplace) ([]string, error) {
	_, errs, err := s.Check(ctx, doc)
	return errs, err
}

// ValidateSource загружает документ из источника и проверяет его
func (s *ValidateService) ValidateSource(ctx context.Context, source string) (*marketplace.SerializedMarketplace, []string, error) {
	doc, err := s.Load(ctx, source)
	if err != nil {
		return nil, nil, err
	}
	errs, err := s.Validate(ctx, doc)
	return doc, errs, err
}
