package service

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/user/filmdiary/internal/logging"
	"github.com/user/filmdiary/internal/model"
	"github.com/user/filmdiary/internal/utils"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// DetailsFetcher 获取电影详情
type DetailsFetcher interface {
	MovieDetails(ctx context.Context, movieID int) (*model.MovieDetails, error)
}

// Enricher 用 TMDB 详情补全日记条目缺失的时长和类型，供仪表盘统计
type Enricher struct {
	fetcher     DetailsFetcher
	cache       *utils.LRUCache[*model.MovieDetails]
	group       singleflight.Group
	limiter     *rate.Limiter
	concurrency int
	log         zerolog.Logger
}

// NewEnricher ratePerSecond 为 TMDB 请求速率上限
func NewEnricher(fetcher DetailsFetcher, ratePerSecond float64) *Enricher {
	if ratePerSecond <= 0 {
		ratePerSecond = 20
	}
	burst := int(ratePerSecond)
	if burst < 1 {
		burst = 1
	}
	return &Enricher{
		fetcher:     fetcher,
		cache:       utils.NewLRUCache[*model.MovieDetails](500, 6*time.Hour),
		limiter:     rate.NewLimiter(rate.Limit(ratePerSecond), burst),
		concurrency: 4,
		log:         logging.Component("enricher"),
	}
}

// Details 获取详情：先查缓存，同一 ID 的并发请求只打一次 TMDB
func (e *Enricher) Details(ctx context.Context, movieID int) (*model.MovieDetails, error) {
	key := strconv.Itoa(movieID)
	if d, ok := e.cache.Get(key); ok {
		return d, nil
	}

	val, err, _ := e.group.Do(key, func() (any, error) {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		d, err := e.fetcher.MovieDetails(ctx, movieID)
		if err != nil {
			return nil, err
		}
		e.cache.Set(key, d)
		return d, nil
	})
	if err != nil {
		return nil, err
	}
	return val.(*model.MovieDetails), nil
}

// Enrich 返回补全后的副本；单条失败只记录日志，保留原始数据
func (e *Enricher) Enrich(ctx context.Context, entries []model.DiaryEntry) []model.DiaryEntry {
	out := make([]model.DiaryEntry, len(entries))
	copy(out, entries)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for i := range out {
		if !needsDetails(out[i]) {
			continue
		}
		g.Go(func() error {
			d, err := e.Details(gctx, out[i].ID)
			if err != nil {
				e.log.Warn().Err(err).Int("movie_id", out[i].ID).Msg("获取电影详情失败")
				return nil
			}
			if out[i].Runtime == 0 {
				out[i].Runtime = d.Runtime
			}
			if len(out[i].Genres) == 0 {
				out[i].Genres = d.GenreNames()
			}
			return nil
		})
	}
	_ = g.Wait()

	return out
}

func needsDetails(e model.DiaryEntry) bool {
	return e.ID > 0 && (e.Runtime == 0 || len(e.Genres) == 0)
}
