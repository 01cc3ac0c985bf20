package resolve

import (
	"context"
	"errors"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/avmeta/internal/domain"
	"github.com/John-Robertt/avmeta/internal/extract"
	"github.com/John-Robertt/avmeta/internal/infra/cache"
	"github.com/John-Robertt/avmeta/internal/match"
	"github.com/John-Robertt/avmeta/internal/provider"
)

// MovieQuery 是一次影片解析请求。ID 非空时跳过搜索。
type MovieQuery struct {
	ID   string
	Name string
	Year *int
}

// PersonQuery 是一次演员解析请求。ID 非空时跳过搜索。
type PersonQuery struct {
	ID   string
	Name string
}

// Movie 返回影片记录：TTL 内直接读缓存，否则抓取详情页并落盘。
// 抓取失败直接返回给调用方，不写缓存。
func (r *Resolver) Movie(ctx context.Context, id string) (domain.MovieRecord, error) {
	id, err := cleanID(id)
	if err != nil {
		return domain.MovieRecord{}, err
	}
	ex := r.source.Movies()
	if ex == nil {
		return domain.MovieRecord{}, ErrUnsupported
	}

	return cache.GetOrRefresh(ctx, r.store, cache.KindMovie, id, cache.FailPropagate,
		func(ctx context.Context) (domain.MovieRecord, error) {
			return r.refreshMovie(ctx, id, ex)
		}, nil)
}

func (r *Resolver) refreshMovie(ctx context.Context, id string, ex extract.MovieExtractor) (domain.MovieRecord, error) {
	u := r.source.MovieURL(id)
	r.log.Info("refreshing movie", "id", id, "url", u)

	doc, err := r.fetchDocument(ctx, cache.KindMovie, id, u)
	if err != nil {
		if isParseError(err) {
			r.log.Warn("movie page unparseable, recording no metadata", "id", id, "error", err)
			return domain.MovieRecord{ID: id}, nil
		}
		return domain.MovieRecord{}, err
	}

	rec, err := ex.ExtractMovie(doc, u)
	if err != nil {
		if !isParseError(err) {
			return domain.MovieRecord{}, &provider.Error{Source: r.source.Name(), Stage: provider.StageParse, Err: err}
		}
		r.log.Warn("movie extraction failed, recording no metadata", "id", id, "error", err)
		return domain.MovieRecord{ID: id}, nil
	}
	rec.ID = id
	rec.HasMetadata = strings.TrimSpace(rec.Title) != ""
	r.log.Info("extracted movie", "id", id, "has_metadata", rec.HasMetadata)
	return rec, nil
}

// Person 返回演员记录。任何刷新失败（取消除外）都会转换为 HasMetadata=false 并缓存，
// TTL 内不再请求源站。
func (r *Resolver) Person(ctx context.Context, id string) (domain.PersonRecord, error) {
	id, err := cleanID(id)
	if err != nil {
		return domain.PersonRecord{}, err
	}
	ex := r.source.People()
	if ex == nil {
		return domain.PersonRecord{}, ErrUnsupported
	}

	return cache.GetOrRefresh(ctx, r.store, cache.KindPerson, id, cache.FailNegative,
		func(ctx context.Context) (domain.PersonRecord, error) {
			return r.refreshPerson(ctx, id, ex)
		},
		func() domain.PersonRecord { return domain.PersonRecord{ID: id} })
}

func (r *Resolver) refreshPerson(ctx context.Context, id string, ex extract.PersonExtractor) (domain.PersonRecord, error) {
	u := r.source.PersonURL(id)
	r.log.Info("refreshing person", "id", id, "url", u)

	doc, err := r.fetchDocument(ctx, cache.KindPerson, id, u)
	if err != nil {
		return domain.PersonRecord{}, err
	}
	if !ex.HasProfile(doc) {
		r.log.Info("no profile on person page", "id", id)
		return domain.PersonRecord{ID: id}, nil
	}

	rec, err := ex.ExtractPerson(doc, u)
	if err != nil {
		return domain.PersonRecord{}, &provider.Error{Source: r.source.Name(), Stage: provider.StageParse, Err: err}
	}
	rec.ID = id
	rec.HasMetadata = true
	return rec, nil
}

// fetchDocument 走 detail lane 抓取页面，先保存原始 HTML，再解析。
func (r *Resolver) fetchDocument(ctx context.Context, kind cache.Kind, id, u string) (*goquery.Document, error) {
	b, err := r.fetcher.FetchBytes(ctx, u, r.lanes.Detail())
	if err != nil {
		return nil, &provider.Error{Source: r.source.Name(), Stage: provider.StageFetch, Err: err}
	}
	if err := r.store.WriteRaw(kind, id, b); err != nil {
		return nil, err
	}
	doc, err := extract.ParseBytes(b, u)
	if err != nil {
		return nil, &provider.Error{Source: r.source.Name(), Stage: provider.StageParse, Err: err}
	}
	return doc, nil
}

// ResolveMovie 执行状态机：有 id -> 取记录；无 id -> 搜索排序，最佳得分 > 阈值才继续。
func (r *Resolver) ResolveMovie(ctx context.Context, q MovieQuery) (domain.MovieRecord, ResolveState, error) {
	if id := strings.TrimSpace(q.ID); id != "" {
		rec, err := r.Movie(ctx, id)
		return rec, Done, err
	}

	ranked, err := r.SearchMovies(ctx, q.Name, q.Year)
	if err != nil {
		return domain.MovieRecord{}, Unresolved, err
	}
	top, ok := match.Best(ranked, r.threshold)
	if !ok {
		r.log.Info("no confident match", "name", q.Name, "year", yearValue(q.Year),
			"candidates", len(ranked), "top_score", top.Relevance)
		return domain.MovieRecord{}, Unresolved, nil
	}

	r.log.Info("matched", "name", q.Name, "id", top.ID, "score", top.Relevance)
	rec, err := r.Movie(ctx, top.ID)
	return rec, Done, err
}

// ResolvePerson 与 ResolveMovie 相同，只是没有年份加分。
func (r *Resolver) ResolvePerson(ctx context.Context, q PersonQuery) (domain.PersonRecord, ResolveState, error) {
	if id := strings.TrimSpace(q.ID); id != "" {
		rec, err := r.Person(ctx, id)
		return rec, Done, err
	}

	ranked, err := r.SearchPeople(ctx, q.Name)
	if err != nil {
		return domain.PersonRecord{}, Unresolved, err
	}
	top, ok := match.Best(ranked, r.threshold)
	if !ok {
		r.log.Info("no confident person match", "name", q.Name, "candidates", len(ranked), "top_score", top.Relevance)
		return domain.PersonRecord{}, Unresolved, nil
	}

	r.log.Info("matched person", "name", q.Name, "id", top.ID, "score", top.Relevance)
	rec, err := r.Person(ctx, top.ID)
	return rec, Done, err
}

// MovieImages 列出影片可用图片（目前只有 primary）。
func (r *Resolver) MovieImages(ctx context.Context, id string) ([]domain.RemoteImage, error) {
	rec, err := r.Movie(ctx, id)
	if err != nil {
		return nil, err
	}
	return primaryImage(rec.HasMetadata, rec.PrimaryImageURL), nil
}

func (r *Resolver) PersonImages(ctx context.Context, id string) ([]domain.RemoteImage, error) {
	rec, err := r.Person(ctx, id)
	if err != nil {
		return nil, err
	}
	return primaryImage(rec.HasMetadata, rec.PrimaryImageURL), nil
}

func primaryImage(has bool, u string) []domain.RemoteImage {
	u = strings.TrimSpace(u)
	if !has || u == "" {
		return []domain.RemoteImage{}
	}
	return []domain.RemoteImage{{URL: u, Type: domain.ImageTypePrimary}}
}

func isParseError(err error) bool {
	var pe *extract.ParseError
	return errors.As(err, &pe)
}
