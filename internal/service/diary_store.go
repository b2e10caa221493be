package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/user/filmdiary/internal/logging"
	"github.com/user/filmdiary/internal/model"
	"github.com/user/filmdiary/internal/repository"
)

var (
	// ErrNotLoaded 文档尚未成功加载，拒绝任何写操作
	ErrNotLoaded = errors.New("diary: document not loaded")
	// ErrInvalidRating 评分不在 0-5 或不是半星
	ErrInvalidRating = errors.New("diary: rating must be between 0 and 5 in half steps")
	// ErrEmptyMovieID 电影 ID 为空
	ErrEmptyMovieID = errors.New("diary: movie id is required")
	// ErrMissingWatchDate 日记条目缺少观看日期
	ErrMissingWatchDate = errors.New("diary: watched date is required")
	// ErrPersistFailed 写回存储失败（仅在 WithPersistErrors 时返回）
	ErrPersistFailed = errors.New("diary: document could not be written")
)

// ValidRating 0-5，步长 0.5
func ValidRating(r float64) bool {
	if r < 0 || r > 5 {
		return false
	}
	return math.Mod(r*2, 1) == 0
}

// DiaryStore 用户文档存储
// 启动时加载一次，之后每次修改都基于上一版本复制出新文档、替换内存状态，并整份写回存储。
type DiaryStore struct {
	mu       sync.Mutex
	repo     *repository.DocumentRepository
	notifier *Notifier
	now      func() time.Time
	log      zerolog.Logger

	doc    *model.UserDocument
	loaded bool
	// fresh 文档来自“键不存在”的默认值且尚未被修改
	fresh bool
	// persistErrors 写回失败时把错误返回给调用方
	persistErrors bool
}

// StoreOption 存储选项
type StoreOption func(*DiaryStore)

// WithClock 替换时钟（测试用）
func WithClock(now func() time.Time) StoreOption {
	return func(s *DiaryStore) {
		s.now = now
	}
}

// WithPersistErrors 写回失败时修改操作返回 ErrPersistFailed（内存状态仍已更新）
// 命令行这类短生命周期的进程需要知道数据是否真正落盘
func WithPersistErrors() StoreOption {
	return func(s *DiaryStore) {
		s.persistErrors = true
	}
}

// NewDiaryStore 创建文档存储
func NewDiaryStore(repo *repository.DocumentRepository, notifier *Notifier, opts ...StoreOption) *DiaryStore {
	s := &DiaryStore{
		repo:     repo,
		notifier: notifier,
		now:      time.Now,
		log:      logging.Component("diary"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Notifier 通知器
func (s *DiaryStore) Notifier() *Notifier {
	return s.notifier
}

// Load 从存储读取文档，只生效一次
// 键不存在：使用默认文档并写回。内容损坏：使用默认文档（原内容已由仓库备份）。
// 存储不可读：返回错误并保持未加载，避免用默认值覆盖已有数据。
func (s *DiaryStore) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded {
		return nil
	}

	doc, err := s.repo.Load(ctx)
	switch {
	case err == nil:
		doc.Normalize(s.now())
		s.doc = doc
		s.log.Info().Str("key", s.repo.Key()).
			Int("entries", len(doc.Watchlist)).
			Int("ratings", len(doc.Ratings)).
			Int("lists", len(doc.CustomLists)).
			Msg("用户文档已加载")
	case errors.Is(err, repository.ErrKeyNotFound):
		s.doc = model.NewUserDocument(s.now())
		s.fresh = true
		s.log.Info().Str("key", s.repo.Key()).Msg("未找到用户文档，使用默认文档")
		_ = s.persist(ctx, s.doc)
	case errors.Is(err, repository.ErrCorruptDocument):
		s.doc = model.NewUserDocument(s.now())
		s.log.Warn().Err(err).Str("backup", s.repo.Key()+repository.CorruptSuffix).Msg("用户文档损坏，已备份并使用默认文档")
	default:
		s.log.Error().Err(err).Msg("读取用户文档失败")
		return err
	}

	s.loaded = true
	return nil
}

// Loaded 是否已加载
func (s *DiaryStore) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// Snapshot 返回当前文档的深拷贝；未加载时返回空的默认文档
func (s *DiaryStore) Snapshot() *model.UserDocument {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		return model.NewUserDocument(s.now())
	}
	return s.doc.Clone()
}

// Ratings 当前评分的拷贝
func (s *DiaryStore) Ratings() map[string]model.RatingRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]model.RatingRecord)
	if !s.loaded {
		return out
	}
	for id, r := range s.doc.Ratings {
		out[id] = r
	}
	return out
}

// Lists 当前片单的拷贝
func (s *DiaryStore) Lists() map[string]model.MovieList {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		return model.NewUserDocument(s.now()).CustomLists
	}
	out := make(map[string]model.MovieList, len(s.doc.CustomLists))
	for name, l := range s.doc.CustomLists {
		out[name] = l.Clone()
	}
	return out
}

// Rate 新增或覆盖评分，观看日期记为今天
func (s *DiaryStore) Rate(ctx context.Context, movieID string, rating float64, title, review string) error {
	movieID = strings.TrimSpace(movieID)
	if movieID == "" {
		return ErrEmptyMovieID
	}
	if !ValidRating(rating) {
		return ErrInvalidRating
	}
	return s.mutate(ctx, func(doc *model.UserDocument) bool {
		doc.Ratings[movieID] = model.RatingRecord{
			Rating:     rating,
			MovieTitle: title,
			Review:     review,
			WatchDate:  model.NewDate(s.now()),
		}
		return true
	})
}

// Unrate 删除评分，不存在时什么都不做
func (s *DiaryStore) Unrate(ctx context.Context, movieID string) error {
	movieID = strings.TrimSpace(movieID)
	return s.mutate(ctx, func(doc *model.UserDocument) bool {
		if _, ok := doc.Ratings[movieID]; !ok {
			return false
		}
		delete(doc.Ratings, movieID)
		return true
	})
}

// CreateList 创建片单；名称为空白时忽略，同名片单直接覆盖
func (s *DiaryStore) CreateList(ctx context.Context, name, description string) error {
	if strings.TrimSpace(name) == "" {
		return nil
	}
	return s.mutate(ctx, func(doc *model.UserDocument) bool {
		doc.CustomLists[name] = model.MovieList{
			Movies:      []model.ListMovieRef{},
			Description: description,
			CreatedAt:   s.now().UTC(),
		}
		return true
	})
}

// AddToList 把电影加入片单；已存在时什么都不做，片单不存在时自动创建（名称为空白时忽略）
func (s *DiaryStore) AddToList(ctx context.Context, name string, movie model.Movie) error {
	if strings.TrimSpace(name) == "" {
		return nil
	}
	return s.mutate(ctx, func(doc *model.UserDocument) bool {
		list, ok := doc.CustomLists[name]
		if !ok {
			list = model.MovieList{Movies: []model.ListMovieRef{}}
		}
		list = list.Normalized(s.now())
		if list.Contains(movie.ID) {
			return false
		}
		list.Movies = append(list.Movies, model.ListMovieRef{
			ID:          movie.ID,
			Title:       movie.Title,
			PosterPath:  movie.PosterPath,
			ReleaseDate: movie.ReleaseDate,
			VoteAverage: movie.VoteAverage,
			AddedAt:     s.now().UTC(),
		})
		doc.CustomLists[name] = list
		return true
	})
}

// RemoveFromList 从片单移除电影；片单或电影不存在时什么都不做
func (s *DiaryStore) RemoveFromList(ctx context.Context, name string, movieID int) error {
	return s.mutate(ctx, func(doc *model.UserDocument) bool {
		list, ok := doc.CustomLists[name]
		if !ok || !list.Contains(movieID) {
			return false
		}
		list = list.Normalized(s.now())
		kept := make([]model.ListMovieRef, 0, len(list.Movies))
		for _, m := range list.Movies {
			if m.ID != movieID {
				kept = append(kept, m)
			}
		}
		list.Movies = kept
		doc.CustomLists[name] = list
		return true
	})
}

// DeleteList 删除整个片单
func (s *DiaryStore) DeleteList(ctx context.Context, name string) error {
	return s.mutate(ctx, func(doc *model.UserDocument) bool {
		if _, ok := doc.CustomLists[name]; !ok {
			return false
		}
		delete(doc.CustomLists, name)
		return true
	})
}

// LogEntry 记录一次观影，同一电影已存在时覆盖
func (s *DiaryStore) LogEntry(ctx context.Context, entry model.DiaryEntry) error {
	if entry.ID == 0 {
		return ErrEmptyMovieID
	}
	if entry.WatchedDate.IsZero() {
		return ErrMissingWatchDate
	}
	if !ValidRating(entry.Rating) {
		return ErrInvalidRating
	}
	if entry.Genres != nil {
		entry.Genres = append([]string(nil), entry.Genres...)
	}
	return s.mutate(ctx, func(doc *model.UserDocument) bool {
		if i := doc.EntryIndex(entry.ID); i >= 0 {
			doc.Watchlist[i] = entry
		} else {
			doc.Watchlist = append(doc.Watchlist, entry)
		}
		return true
	})
}

// RemoveEntry 删除日记条目
func (s *DiaryStore) RemoveEntry(ctx context.Context, movieID int) error {
	return s.mutate(ctx, func(doc *model.UserDocument) bool {
		i := doc.EntryIndex(movieID)
		if i < 0 {
			return false
		}
		doc.Watchlist = append(doc.Watchlist[:i], doc.Watchlist[i+1:]...)
		return true
	})
}

// Seed 写入演示数据，只在存储中原本没有文档且尚未修改时生效
func (s *DiaryStore) Seed(ctx context.Context, demo *model.UserDocument) (bool, error) {
	s.mu.Lock()
	fresh := s.loaded && s.fresh
	s.mu.Unlock()
	if !fresh {
		return false, nil
	}
	return true, s.Replace(ctx, demo)
}

// Replace 整份替换文档（导入）
func (s *DiaryStore) Replace(ctx context.Context, doc *model.UserDocument) error {
	next := doc.Clone()
	next.Normalize(s.now())
	return s.mutate(ctx, func(current *model.UserDocument) bool {
		*current = *next
		return true
	})
}

// RequestListModal 通知页面为该电影打开“加入片单”弹窗
func (s *DiaryStore) RequestListModal(movie model.Movie) int {
	return s.notifier.Publish(Event{Type: EventOpenListModal, Movie: &movie, At: s.now()})
}

// mutate 读-改-写：fn 返回 false 表示无变化，不写存储
func (s *DiaryStore) mutate(ctx context.Context, fn func(doc *model.UserDocument) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		return ErrNotLoaded
	}

	next := s.doc.Clone()
	if !fn(next) {
		return nil
	}
	s.doc = next
	s.fresh = false
	err := s.persist(ctx, next)

	s.notifier.Publish(Event{Type: EventDocumentChanged, At: s.now()})
	if err != nil && s.persistErrors {
		return fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}
	return nil
}

// persist 写失败时重试一次；内存状态始终以本次会话为准
func (s *DiaryStore) persist(ctx context.Context, doc *model.UserDocument) error {
	err := s.repo.Save(ctx, doc)
	if err == nil {
		return nil
	}
	s.log.Warn().Err(err).Msg("写回用户文档失败，重试一次")

	if err = s.repo.Save(context.WithoutCancel(ctx), doc); err != nil {
		s.log.Error().Err(err).Msg("写回用户文档仍然失败，仅保留内存状态")
		return err
	}
	return nil
}
