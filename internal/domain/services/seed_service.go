package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/athebyme/gomarket-seeder/internal/domain/bulk"
	"github.com/athebyme/gomarket-seeder/internal/domain/directory"
	"github.com/athebyme/gomarket-seeder/internal/domain/marketplace"
	"github.com/athebyme/gomarket-seeder/pkg/interfaces"
)

// TokenProvider текущий токен доступа к платформе
type TokenProvider interface {
	AccessToken() string
}

// SeedResult итог заливки
type SeedResult struct {
	AccessToken string `json:"accessToken"`
	// ApiClients созданные клиенты API с ID, выданными платформой
	ApiClients []*marketplace.Record `json:"apiClients"`
}

// uploadFunc процедура загрузки ресурса, когда простого создания всех записей недостаточно
type uploadFunc func(ctx context.Context, run *seedRun, res *directory.Descriptor, records []*marketplace.Record) error

// SeedService заливает документ на платформу в порядке приоритетов создания
type SeedService struct {
	validator *ValidateService
	engine    *bulk.Engine
	secrets   SecretGenerator
	tokens    TokenProvider
	snapshots interfaces.SnapshotPort
	logger    interfaces.LoggerPort
	uploaders map[string]uploadFunc
	now       func() time.Time
}

// NewSeedService создает новый экземпляр SeedService
func NewSeedService(validator *ValidateService, engine *bulk.Engine, tokens TokenProvider, logger interfaces.LoggerPort) *SeedService {
	s := &SeedService{
		validator: validator,
		engine:    engine,
		secrets:   RandomSecrets{},
		tokens:    tokens,
		logger:    logger,
		now:       time.Now,
	}
	s.uploaders = map[string]uploadFunc{
		directory.ApiClients:           s.uploadApiClients,
		directory.ImpersonationConfigs: s.uploadRemapped("ClientID"),
		directory.OpenIdConnects:       s.uploadRemapped("OrderCloudApiClientID"),
		directory.ApiClientAssignments: s.uploadRemapped("ApiClientID"),
		directory.Webhooks:             s.uploadWebhooks,
		directory.MessageSenders:       s.uploadWithSharedSecret("SharedKey"),
		directory.IntegrationEvents:    s.uploadWithSharedSecret("HashKey"),
		directory.Specs:                s.uploadSpecs,
		directory.SpecOptions:          s.uploadSpecOptions,
		directory.Categories:           s.uploadCategories,
		directory.Variants:             s.uploadVariants,
	}
	return s
}

// WithSecrets подменяет генератор секретов
func (s *SeedService) WithSecrets(secrets SecretGenerator) *SeedService {
	s.secrets = secrets
	return s
}

// WithSnapshots включает сохранение результата заливки
func (s *SeedService) WithSnapshots(snapshots interfaces.SnapshotPort) *SeedService {
	s.snapshots = snapshots
	return s
}

// seedRun состояние одной заливки
type seedRun struct {
	doc *marketplace.SerializedMarketplace
	dir *directory.Directory
	// apiClientIDs ID клиента API в документе -> ID, выданный платформой
	apiClientIDs map[string]string
	// specDefaults ID спецификации -> вариант по умолчанию, проставляемый после создания вариантов
	specDefaults []specDefault
	sharedSecret string
}

type specDefault struct {
	specID   string
	optionID marketplace.Value
}

// ResolveSource подменяет короткое имя шаблона его адресом
func ResolveSource(templates map[string]string, source string) string {
	if url, ok := templates[source]; ok {
		return url
	}
	if url, ok := templates[strings.ToLower(source)]; ok {
		return url
	}
	return source
}

// Seed проверяет документ и, если ошибок нет, создает все записи на платформе.
// При ошибках проверки не выполняется ни одного запроса на создание.
func (s *SeedService) Seed(ctx context.Context, doc *marketplace.SerializedMarketplace) (*SeedResult, error) {
	dir, errs, err := s.validator.Check(ctx, doc)
	if err != nil {
		return nil, err
	}
	if len(errs) > 0 {
		return nil, &ValidationFailedError{Errors: errs}
	}
	return s.Upload(ctx, doc, dir)
}

// Upload создает записи документа, уже проверенного по каталогу dir
func (s *SeedService) Upload(ctx context.Context, doc *marketplace.SerializedMarketplace, dir *directory.Directory) (*SeedResult, error) {
	start := s.now()

	shared, err := s.secrets.SharedSecret()
	if err != nil {
		return nil, err
	}
	run := &seedRun{
		doc:          doc.Clone(),
		dir:          dir,
		apiClientIDs: make(map[string]string),
		sharedSecret: shared,
	}

	for _, res := range dir.ByPriority() {
		records := run.doc.GetRecords(res)
		upload, ok := s.uploaders[res.Name]
		if !ok {
			upload = s.uploadAll
		}
		if err := upload(ctx, run, res, records); err != nil {
			return nil, fmt.Errorf("failed to upload %s: %w", res.Name, err)
		}
		if len(records) > 0 {
			s.logger.InfoWithContext(ctx, fmt.Sprintf("Created %d %s.", len(records), res.Name))
		}
	}

	s.logger.InfoWithContext(ctx, fmt.Sprintf("Done! Total elapsed time: %s", s.now().Sub(start).Round(time.Millisecond)))

	result := &SeedResult{ApiClients: make([]*marketplace.Record, 0)}
	if s.tokens != nil {
		result.AccessToken = s.tokens.AccessToken()
	}
	result.ApiClients = append(result.ApiClients, run.doc.GetRecords(dir.MustGet(directory.ApiClients))...)

	if s.snapshots != nil {
		payload := map[string]any{"apiClients": result.ApiClients, "apiClientIDMap": run.apiClientIDs}
		if err := saveSnapshot(ctx, s.snapshots, interfaces.SnapshotSeed, payload); err != nil {
			s.logger.Warn("Не удалось сохранить снимок заливки", interfaces.LogField{Key: "error", Value: err.Error()})
		}
	}
	return result, nil
}

func (s *SeedService) uploadAll(ctx context.Context, _ *seedRun, res *directory.Descriptor, records []*marketplace.Record) error {
	_, err := s.engine.CreateAll(ctx, res, records)
	return err
}

// uploadApiClients создает клиентов API и запоминает выданные платформой ID
func (s *SeedService) uploadApiClients(ctx context.Context, run *seedRun, res *directory.Descriptor, records []*marketplace.Record) error {
	for _, rec := range records {
		if v, _ := rec.Str("ClientSecret"); v == RedactedMarker {
			secret, err := s.secrets.ClientSecret()
			if err != nil {
				return err
			}
			rec.SetString("ClientSecret", secret)
		}
	}
	created, err := s.engine.CreateAll(ctx, res, records)
	if err != nil {
		return err
	}
	for i, rec := range records {
		run.apiClientIDs[rec.ID()] = created[i].ID()
		rec.SetString("ID", created[i].ID())
	}
	return nil
}

// uploadRemapped подменяет ссылку на клиента API его новым ID
func (s *SeedService) uploadRemapped(field string) uploadFunc {
	return func(ctx context.Context, run *seedRun, res *directory.Descriptor, records []*marketplace.Record) error {
		for _, rec := range records {
			run.remap(rec, field)
		}
		return s.uploadAll(ctx, run, res, records)
	}
}

func (s *SeedService) uploadWebhooks(ctx context.Context, run *seedRun, res *directory.Descriptor, records []*marketplace.Record) error {
	for _, rec := range records {
		if ids, ok := rec.Value("ApiClientIDs").AsList(); ok {
			mapped := make([]marketplace.Value, len(ids))
			for i, id := range ids {
				mapped[i] = marketplace.String(run.mapApiClientID(directory.KeyPart(id)))
			}
			rec.Set("ApiClientIDs", marketplace.List(mapped...))
		}
		run.replaceRedacted(rec, "HashKey")
	}
	return s.uploadAll(ctx, run, res, records)
}

func (s *SeedService) uploadWithSharedSecret(field string) uploadFunc {
	return func(ctx context.Context, run *seedRun, res *directory.Descriptor, records []*marketplace.Record) error {
		for _, rec := range records {
			run.replaceRedacted(rec, field)
		}
		return s.uploadAll(ctx, run, res, records)
	}
}

// uploadSpecs создает спецификации без варианта по умолчанию: его еще нет на платформе
func (s *SeedService) uploadSpecs(ctx context.Context, run *seedRun, res *directory.Descriptor, records []*marketplace.Record) error {
	for _, rec := range records {
		if rec.IsNil("DefaultOptionID") {
			continue
		}
		run.specDefaults = append(run.specDefaults, specDefault{specID: rec.ID(), optionID: rec.Value("DefaultOptionID").Clone()})
		rec.Set("DefaultOptionID", marketplace.Null())
	}
	return s.uploadAll(ctx, run, res, records)
}

// uploadSpecOptions создает варианты и возвращает спецификациям вариант по умолчанию
func (s *SeedService) uploadSpecOptions(ctx context.Context, run *seedRun, res *directory.Descriptor, records []*marketplace.Record) error {
	if err := s.uploadAll(ctx, run, res, records); err != nil {
		return err
	}
	specs := run.dir.MustGet(directory.Specs)
	meta := bulk.GroupMeta{Action: bulk.ActionUpdate, Resource: directory.Specs}
	_, err := bulk.RunMany(ctx, s.engine.Scheduler(), meta, run.specDefaults,
		func(ctx context.Context, d specDefault) (*marketplace.Record, error) {
			patch := marketplace.NewRecord().Set("DefaultOptionID", d.optionID)
			return s.engine.Client().Patch(ctx, specs, nil, d.specID, patch)
		})
	return err
}

// uploadCategories создает дерево категорий по уровням: сначала корни, затем дети только что созданных
func (s *SeedService) uploadCategories(ctx context.Context, _ *seedRun, res *directory.Descriptor, records []*marketplace.Record) error {
	var cohort []*marketplace.Record
	for _, rec := range records {
		if rec.IsNil("ParentID") {
			cohort = append(cohort, rec)
		}
	}

	created := 0
	for len(cohort) > 0 {
		results, err := s.engine.CreateAll(ctx, res, cohort)
		if err != nil {
			return err
		}
		created += len(results)

		parents := make(map[string]struct{}, len(results))
		for i, r := range results {
			parents[categoryKey(cohort[i], r.ID())] = struct{}{}
		}
		var next []*marketplace.Record
		for _, rec := range records {
			if rec.IsNil("ParentID") {
				continue
			}
			if _, ok := parents[categoryKey(rec, directory.KeyPart(rec.Value("ParentID")))]; ok {
				next = append(next, rec)
			}
		}
		cohort = next
	}

	if created < len(records) {
		s.logger.Warn("Часть категорий не связана с корнем дерева и не создана",
			interfaces.LogField{Key: "total", Value: len(records)},
			interfaces.LogField{Key: "created", Value: created},
		)
	}
	return nil
}

// categoryKey ключ категории в пределах каталога
func categoryKey(rec *marketplace.Record, id string) string {
	return directory.KeyPart(rec.Value("CatalogID")) + "/" + id
}

// uploadVariants генерирует варианты по спецификациям товаров и сохраняет записи документа поверх них
func (s *SeedService) uploadVariants(ctx context.Context, run *seedRun, _ *directory.Descriptor, records []*marketplace.Record) error {
	var withVariants []*marketplace.Record
	for _, p := range run.doc.GetRecords(run.dir.MustGet(directory.Products)) {
		if n, ok := p.Value("VariantCount").AsInt(); ok && n > 0 {
			withVariants = append(withVariants, p)
		}
	}

	client := s.engine.Client()
	meta := bulk.GroupMeta{Action: bulk.ActionGenerate, Resource: directory.Variants}
	if _, err := bulk.RunMany(ctx, s.engine.Scheduler(), meta, withVariants,
		func(ctx context.Context, p *marketplace.Record) (*marketplace.Record, error) {
			return client.GenerateVariants(ctx, p.ID())
		}); err != nil {
		return err
	}

	meta.Action = bulk.ActionCreate
	if _, err := bulk.RunMany(ctx, s.engine.Scheduler(), meta, records,
		func(ctx context.Context, v *marketplace.Record) (*marketplace.Record, error) {
			productID := directory.KeyPart(v.Value("ProductID"))
			return client.SaveVariant(ctx, productID, variantID(v), v)
		}); err != nil {
		return err
	}
	s.logger.InfoWithContext(ctx, fmt.Sprintf("Generated variants for %d products.", len(withVariants)))
	return nil
}

// variantID ID сгенерированного платформой варианта: ID товара и ID опций через дефис
func variantID(v *marketplace.Record) string {
	specs, ok := v.Value("Specs").AsList()
	if !ok || len(specs) == 0 {
		return v.ID()
	}
	parts := []string{directory.KeyPart(v.Value("ProductID"))}
	for _, spec := range specs {
		if m, ok := spec.AsMap(); ok {
			parts = append(parts, directory.KeyPart(m.Value("OptionID")))
		}
	}
	return strings.Join(parts, "-")
}

func (r *seedRun) mapApiClientID(id string) string {
	if mapped, ok := r.apiClientIDs[id]; ok {
		return mapped
	}
	return id
}

func (r *seedRun) remap(rec *marketplace.Record, field string) {
	if rec.IsNil(field) {
		return
	}
	rec.SetString(field, r.mapApiClientID(directory.KeyPart(rec.Value(field))))
}

func (r *seedRun) replaceRedacted(rec *marketplace.Record, field string) {
	if v, _ := rec.Str(field); v == RedactedMarker {
		rec.SetString(field, r.sharedSecret)
	}
}
