package bulk

import (
	"context"

	"github.com/athebyme/gomarket-seeder/internal/domain/directory"
	"github.com/athebyme/gomarket-seeder/internal/domain/marketplace"
	"github.com/athebyme/gomarket-seeder/internal/domain/remote"
	"github.com/athebyme/gomarket-seeder/pkg/utils"
	"golang.org/x/sync/errgroup"
)

// RunMany выполняет fn для каждого элемента через планировщик.
// Результат i соответствует элементу i независимо от порядка завершения.
// Первая фатальная ошибка отменяет оставшиеся задания.
func RunMany[T, R any](ctx context.Context, s *Scheduler, meta GroupMeta, items []T, fn func(ctx context.Context, item T) (R, error)) ([]R, error) {
	return runMany(ctx, s, meta, 0, len(items), items, fn)
}

// runMany как RunMany, но элемент i считается заданием offset+i из total
func runMany[T, R any](ctx context.Context, s *Scheduler, meta GroupMeta, offset, total int, items []T, fn func(ctx context.Context, item T) (R, error)) ([]R, error) {
	results := make([]R, len(items))
	if len(items) == 0 {
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.MaxConcurrent())
	for i, item := range items {
		job := JobMeta{GroupMeta: meta, Index: offset + i, Total: total}
		g.Go(func() error {
			r, err := Schedule(gctx, s, job, func(ctx context.Context) (R, error) {
				return fn(ctx, item)
			})
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Engine массовые операции над ресурсами платформы
type Engine struct {
	client    remote.Client
	scheduler *Scheduler
	pageSize  int
}

// NewEngine создает движок
func NewEngine(client remote.Client, scheduler *Scheduler) *Engine {
	return &Engine{client: client, scheduler: scheduler, pageSize: utils.DefaultPageSize}
}

// WithPageSize задает размер страницы списков; значения вне 1..100 игнорируются
func (e *Engine) WithPageSize(size int) *Engine {
	if size >= 1 && size <= utils.DefaultPageSize {
		e.pageSize = size
	}
	return e
}

// Client клиент платформы
func (e *Engine) Client() remote.Client { return e.client }

// Scheduler планировщик заданий
func (e *Engine) Scheduler() *Scheduler { return e.scheduler }

// ListAll читает все страницы списка ресурса. Первая страница запрашивается отдельно,
// чтобы узнать число страниц; остальные идут параллельно и склеиваются по порядку.
func (e *Engine) ListAll(ctx context.Context, res *directory.Descriptor, routeParams ...string) ([]*marketplace.Record, error) {
	meta := GroupMeta{Action: ActionList, Resource: res.Name}
	if len(routeParams) > 0 {
		meta.ParentID = routeParams[len(routeParams)-1]
		if res.Parent != nil {
			meta.ParentResource = res.Parent.Name
		}
	}
	opts := remote.ListOptions{Page: 1, PageSize: e.pageSize}
	if res.Name == directory.Categories {
		opts.Depth = "all"
	}

	// число страниц известно только после первой; прогресс первой страницы считается от него
	first, err := schedule(ctx, e.scheduler, JobMeta{GroupMeta: meta, Index: 0, Total: 1},
		func(ctx context.Context) (*remote.ListPage, error) {
			return e.client.List(ctx, res, routeParams, opts)
		},
		func(page *remote.ListPage) JobMeta {
			return JobMeta{GroupMeta: meta, Index: 0, Total: max(page.Meta.TotalPages, 1)}
		})
	if err != nil {
		return nil, err
	}

	items := append([]*marketplace.Record{}, first.Items...)
	if first.Meta.TotalPages <= 1 {
		return items, nil
	}

	pages, err := runMany(ctx, e.scheduler, meta, 1, first.Meta.TotalPages, utils.PageRange(2, first.Meta.TotalPages),
		func(ctx context.Context, page int) (*remote.ListPage, error) {
			o := opts
			o.Page = page
			return e.client.List(ctx, res, routeParams, o)
		})
	if err != nil {
		return nil, err
	}
	for _, p := range pages {
		items = append(items, p.Items...)
	}
	return items, nil
}

// CreateAll создает записи; результат i соответствует записи i
func (e *Engine) CreateAll(ctx context.Context, res *directory.Descriptor, records []*marketplace.Record) ([]*marketplace.Record, error) {
	meta := GroupMeta{Action: ActionCreate, Resource: res.Name}
	return RunMany(ctx, e.scheduler, meta, records,
		func(ctx context.Context, rec *marketplace.Record) (*marketplace.Record, error) {
			return e.client.Create(ctx, res, res.RouteParams(rec), rec)
		})
}
