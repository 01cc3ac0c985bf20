package resolve

import (
	"context"
	"strings"

	"github.com/John-Robertt/avmeta/internal/code"
	"github.com/John-Robertt/avmeta/internal/domain"
	"github.com/John-Robertt/avmeta/internal/extract"
	"github.com/John-Robertt/avmeta/internal/infra/httpx"
	"github.com/John-Robertt/avmeta/internal/match"
)

// SearchMovies 搜索影片并按相关度降序返回。
//
// 搜索失败（网络/解析）不算错误：记录 WARN 并返回空列表。只有取消会返回 error。
// name 中恰好含一个番號时（如文件名 "ssis_001 1080p"），改用规范化后的番號搜索与打分。
func (r *Resolver) SearchMovies(ctx context.Context, name string, year *int) ([]domain.SearchResult, error) {
	ex := r.source.MovieSearch()
	if ex == nil {
		return nil, ErrUnsupported
	}
	if c, err := code.Normalize(name); err == nil && c != strings.TrimSpace(name) {
		r.log.Debug("query normalized to product code", "name", name, "code", c)
		name = c
	}
	return r.search(ctx, "movie", r.source.SearchURL, ex, name, year)
}

// SearchPeople 搜索演员并按相关度降序返回。
func (r *Resolver) SearchPeople(ctx context.Context, name string) ([]domain.SearchResult, error) {
	ex := r.source.PersonSearch()
	if ex == nil {
		return nil, ErrUnsupported
	}
	return r.search(ctx, "person", r.source.PersonSearchURL, ex, name, nil)
}

// Search 是面向宿主的入口：查询已带 id 时直接解析该 id，并以单条结果返回（无元数据时返回空）。
func (r *Resolver) Search(ctx context.Context, q MovieQuery) ([]domain.SearchResult, error) {
	id := strings.TrimSpace(q.ID)
	if id == "" {
		return r.SearchMovies(ctx, q.Name, q.Year)
	}

	rec, err := r.Movie(ctx, id)
	if err != nil {
		if httpx.IsCancelled(err) {
			return nil, err
		}
		r.log.Warn("search by id failed", "id", id, "error", err)
		return []domain.SearchResult{}, nil
	}
	if !rec.HasMetadata {
		return []domain.SearchResult{}, nil
	}
	return []domain.SearchResult{{
		ID:           rec.ID,
		Name:         rec.Title,
		Year:         rec.ProductionYear,
		ImageURL:     rec.PrimaryImageURL,
		Overview:     rec.Synopsis,
		PremiereDate: rec.ReleaseDate,
		URL:          r.source.MovieURL(rec.ID),
		Relevance:    match.Score(domain.SearchResult{Name: rec.Title, Year: rec.ProductionYear}, q.Name, q.Year),
	}}, nil
}

// SearchPerson 与 Search 对应：查询已带 id 时解析该演员，有资料则作为单条结果返回。
func (r *Resolver) SearchPerson(ctx context.Context, q PersonQuery) ([]domain.SearchResult, error) {
	id := strings.TrimSpace(q.ID)
	if id == "" {
		return r.SearchPeople(ctx, q.Name)
	}

	rec, err := r.Person(ctx, id)
	if err != nil {
		if httpx.IsCancelled(err) {
			return nil, err
		}
		r.log.Warn("person search by id failed", "id", id, "error", err)
		return []domain.SearchResult{}, nil
	}
	if !rec.HasMetadata {
		return []domain.SearchResult{}, nil
	}
	return []domain.SearchResult{{
		ID:        rec.ID,
		Name:      rec.Name,
		ImageURL:  rec.PrimaryImageURL,
		Overview:  rec.Overview(),
		URL:       r.source.PersonURL(rec.ID),
		Relevance: match.Score(domain.SearchResult{Name: rec.Name}, q.Name, nil),
	}}, nil
}

func (r *Resolver) search(
	ctx context.Context,
	kind string,
	urlFor func(string) string,
	ex extract.SearchResultExtractor,
	name string,
	year *int,
) ([]domain.SearchResult, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		r.log.Info("skipping search: name is empty", "kind", kind)
		return []domain.SearchResult{}, nil
	}

	u := urlFor(name)
	r.log.Info("searching", "kind", kind, "name", name, "year", yearValue(year), "url", u)

	b, err := r.fetcher.FetchBytes(ctx, u, r.lanes.Search())
	if err != nil {
		if httpx.IsCancelled(err) {
			return nil, err
		}
		r.log.Warn("search fetch failed", "kind", kind, "url", u, "error", err)
		return []domain.SearchResult{}, nil
	}
	if strings.TrimSpace(string(b)) == "" {
		r.log.Info("empty search response", "kind", kind, "url", u)
		return []domain.SearchResult{}, nil
	}

	doc, err := extract.ParseBytes(b, u)
	if err != nil {
		r.log.Warn("search parse failed", "kind", kind, "url", u, "error", err)
		return []domain.SearchResult{}, nil
	}
	found, err := ex.ExtractSearchResults(doc, u)
	if err != nil {
		r.log.Warn("search extract failed", "kind", kind, "url", u, "error", err)
		return []domain.SearchResult{}, nil
	}

	r.log.Info("extracted search results", "kind", kind, "url", u, "count", len(found))
	return match.Rank(found, name, year), nil
}

func yearValue(y *int) any {
	if y == nil {
		return "-"
	}
	return *y
}
