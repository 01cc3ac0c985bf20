package resolve

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/John-Robertt/avmeta/internal/domain"
	"github.com/John-Robertt/avmeta/internal/extract"
	"github.com/John-Robertt/avmeta/internal/infra/cache"
	"github.com/John-Robertt/avmeta/internal/infra/httpx"
	"github.com/John-Robertt/avmeta/internal/infra/lane"
)

// testSource 是一个最小站点：/search, /people, /movie/<id>, /person/<id>。
type testSource struct{ base string }

func (testSource) Name() string { return "test" }
func (s testSource) SearchURL(q string) string {
	return s.base + "/search?q=" + url.QueryEscape(q)
}
func (s testSource) PersonSearchURL(q string) string {
	return s.base + "/people?q=" + url.QueryEscape(q)
}
func (s testSource) MovieURL(id string) string                 { return s.base + "/movie/" + id }
func (s testSource) PersonURL(id string) string                { return s.base + "/person/" + id }
func (testSource) Movies() extract.MovieExtractor              { return testMovies{} }
func (testSource) People() extract.PersonExtractor             { return testPeople{} }
func (testSource) MovieSearch() extract.SearchResultExtractor  { return testSearch{} }
func (testSource) PersonSearch() extract.SearchResultExtractor { return testSearch{} }

type testMovies struct{}

func (testMovies) ExtractMovie(doc *goquery.Document, pageURL string) (domain.MovieRecord, error) {
	if doc.Find("div.error").Length() > 0 {
		return domain.MovieRecord{}, extract.Malformed(pageURL, "error page")
	}
	return domain.MovieRecord{
		Title:           extract.Text(doc.Find("h1")),
		ProductionYear:  extract.ToInt(extract.Text(doc.Find("span.year"))),
		PrimaryImageURL: extract.Attr(doc.Find("img.cover"), "src"),
		Cast:            []domain.Credit{{Name: "Someone", ID: "p1"}},
	}, nil
}

type testPeople struct{}

func (testPeople) HasProfile(doc *goquery.Document) bool { return doc.Find("h1.name").Length() > 0 }
func (testPeople) ExtractPerson(doc *goquery.Document, _ string) (domain.PersonRecord, error) {
	return domain.PersonRecord{
		Name:            extract.Text(doc.Find("h1.name")),
		Height:          extract.Text(doc.Find("span.height")),
		PrimaryImageURL: extract.Attr(doc.Find("img"), "src"),
	}, nil
}

type testSearch struct{}

func (testSearch) ExtractSearchResults(doc *goquery.Document, _ string) ([]domain.SearchResult, error) {
	var out []domain.SearchResult
	doc.Find("ul.results li a").Each(func(_ int, a *goquery.Selection) {
		out = append(out, domain.SearchResult{
			ID:   extract.Attr(a, "data-id"),
			Name: extract.Text(a),
			Year: extract.ToInt(extract.Attr(a, "data-year")),
		})
	})
	return out, nil
}

type site struct {
	srv  *httptest.Server
	mu   sync.Mutex
	hits map[string]int
	// queries 记录 /search 收到的 q 参数。
	queries []string
}

func newSite(t *testing.T) *site {
	t.Helper()
	s := &site{hits: map[string]int{}}
	s.srv = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *site) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.hits[r.URL.Path]++
	if r.URL.Path == "/search" {
		s.queries = append(s.queries, r.URL.Query().Get("q"))
	}
	s.mu.Unlock()

	switch {
	case r.URL.Path == "/search":
		if r.URL.Query().Get("q") == "boom" {
			http.Error(w, "down", http.StatusInternalServerError)
			return
		}
		_, _ = io.WriteString(w, `<ul class="results">
			<li><a data-id="foo-bar" data-year="1999">Foo Bar</a></li>
			<li><a data-id="foo" data-year="2000">Foo</a></li>
			<li><a data-id="zzz" data-year="2000">Zzz</a></li>
		</ul>`)
	case r.URL.Path == "/people":
		_, _ = io.WriteString(w, `<ul class="results"><li><a data-id="p1">Jane Doe</a></li></ul>`)
	case r.URL.Path == "/movie/broken" || r.URL.Path == "/person/down":
		http.Error(w, "down", http.StatusInternalServerError)
	case r.URL.Path == "/movie/errpage":
		_, _ = io.WriteString(w, `<div class="error">not found</div>`)
	case strings.HasPrefix(r.URL.Path, "/movie/"):
		id := strings.TrimPrefix(r.URL.Path, "/movie/")
		fmt.Fprintf(w, `<h1>Title %s</h1><span class="year">2000</span><img class="cover" src="https://img.example/%s.jpg">`, id, id)
	case r.URL.Path == "/person/missing":
		_, _ = io.WriteString(w, `<p>no such person</p>`)
	case strings.HasPrefix(r.URL.Path, "/person/"):
		_, _ = io.WriteString(w, `<h1 class="name">Jane Doe</h1><span class="height">160cm</span><img src="https://img.example/p.jpg">`)
	case r.URL.Path == "/image.jpg":
		_, _ = io.WriteString(w, "JPEGDATA")
	default:
		http.NotFound(w, r)
	}
}

func (s *site) count(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func newResolver(t *testing.T, s *site) (*Resolver, *cache.Store) {
	t.Helper()
	store := cache.New(t.TempDir())
	iv := lane.Intervals{}
	r, err := New(testSource{base: s.srv.URL}, store, &httpx.Fetcher{Client: s.srv.Client()}, Options{Intervals: &iv})
	require.NoError(t, err)
	return r, store
}

func ageRecord(t *testing.T, store *cache.Store, kind cache.Kind, id string, d time.Duration) {
	t.Helper()
	p, err := store.JSONPath(kind, id)
	require.NoError(t, err)
	mt := time.Now().Add(-d)
	require.NoError(t, os.Chtimes(p, mt, mt))
}

func TestMovie_ColdWarmAged(t *testing.T) {
	s := newSite(t)
	r, store := newResolver(t, s)
	ctx := context.Background()

	first, err := r.Movie(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, 1, s.count("/movie/abc"))
	assert.True(t, first.HasMetadata)
	assert.Equal(t, "abc", first.ID)
	assert.Equal(t, "Title abc", first.Title)

	p, _ := store.JSONPath(cache.KindMovie, "abc")
	assert.FileExists(t, p)
	raw, ok, err := store.ReadRaw(cache.KindMovie, "abc")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, string(raw), "Title abc")

	second, err := r.Movie(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, 1, s.count("/movie/abc"), "TTL 内不应再请求")
	assert.Equal(t, first, second)

	ageRecord(t, store, cache.KindMovie, "abc", 8*24*time.Hour)
	_, err = r.Movie(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, 2, s.count("/movie/abc"))
}

func TestMovie_FetchFailurePropagates(t *testing.T) {
	s := newSite(t)
	r, _ := newResolver(t, s)

	_, err := r.Movie(context.Background(), "broken")
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, httpx.StatusCode(err))
	assert.Equal(t, domain.ErrCodeFetchFailed, ErrorCode(err))

	_, err = r.Movie(context.Background(), "broken")
	require.Error(t, err)
	assert.Equal(t, 2, s.count("/movie/broken"), "影片失败不缓存")
}

func TestMovie_UnparseablePageIsNoMetadata(t *testing.T) {
	s := newSite(t)
	r, _ := newResolver(t, s)

	rec, err := r.Movie(context.Background(), "errpage")
	require.NoError(t, err)
	assert.False(t, rec.HasMetadata)
	assert.Equal(t, "errpage", rec.ID)

	_, err = r.Movie(context.Background(), "errpage")
	require.NoError(t, err)
	assert.Equal(t, 1, s.count("/movie/errpage"))
}

func TestMovie_EmptyID(t *testing.T) {
	s := newSite(t)
	r, _ := newResolver(t, s)
	_, err := r.Movie(context.Background(), "  ")
	require.ErrorIs(t, err, ErrNoID)
	assert.Equal(t, domain.ErrCodeInvalidID, ErrorCode(err))
}

func TestPerson_FailureCachedAsNegative(t *testing.T) {
	s := newSite(t)
	r, _ := newResolver(t, s)
	ctx := context.Background()

	rec, err := r.Person(ctx, "down")
	require.NoError(t, err)
	assert.False(t, rec.HasMetadata)
	assert.Equal(t, "down", rec.ID)

	rec, err = r.Person(ctx, "down")
	require.NoError(t, err)
	assert.False(t, rec.HasMetadata)
	assert.Equal(t, 1, s.count("/person/down"), "负缓存在 TTL 内不应再请求")
}

func TestPerson_ProfileAndMissing(t *testing.T) {
	s := newSite(t)
	r, _ := newResolver(t, s)
	ctx := context.Background()

	rec, err := r.Person(ctx, "jane")
	require.NoError(t, err)
	assert.True(t, rec.HasMetadata)
	assert.Equal(t, "Jane Doe", rec.Name)
	assert.Equal(t, "160cm", rec.Overview())

	missing, err := r.Person(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, missing.HasMetadata)
	assert.Empty(t, missing.Name)

	imgs, err := r.PersonImages(ctx, "jane")
	require.NoError(t, err)
	assert.Equal(t, []domain.RemoteImage{{URL: "https://img.example/p.jpg", Type: domain.ImageTypePrimary}}, imgs)

	imgs, err = r.PersonImages(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, imgs)
}

func TestSearchMovies_RanksByScore(t *testing.T) {
	s := newSite(t)
	r, _ := newResolver(t, s)

	res, err := r.SearchMovies(context.Background(), "Foo", domain.IntPtr(2000))
	require.NoError(t, err)
	require.Len(t, res, 3)
	assert.Equal(t, "foo", res[0].ID)
	assert.Equal(t, 2.0, res[0].Relevance)
	assert.Equal(t, "foo-bar", res[1].ID)
}

func TestSearchMovies_NormalizesProductCode(t *testing.T) {
	s := newSite(t)
	r, _ := newResolver(t, s)

	_, err := r.SearchMovies(context.Background(), "[HD] foo_123 1080p", nil)
	require.NoError(t, err)
	_, err = r.SearchMovies(context.Background(), "Foo Bar", nil)
	require.NoError(t, err)

	s.mu.Lock()
	defer s.mu.Unlock()
	assert.Equal(t, []string{"FOO-123", "Foo Bar"}, s.queries)
}

func TestSearchMovies_EmptyNameSkipsFetch(t *testing.T) {
	s := newSite(t)
	r, _ := newResolver(t, s)

	res, err := r.SearchMovies(context.Background(), "  ", nil)
	require.NoError(t, err)
	assert.Empty(t, res)
	assert.Equal(t, 0, s.count("/search"))
}

func TestSearchMovies_FailureIsEmptyList(t *testing.T) {
	s := newSite(t)
	r, _ := newResolver(t, s)

	res, err := r.SearchMovies(context.Background(), "boom", nil)
	require.NoError(t, err)
	assert.NotNil(t, res)
	assert.Empty(t, res)
}

func TestSearchMovies_CancelPropagates(t *testing.T) {
	s := newSite(t)
	r, _ := newResolver(t, s)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.SearchMovies(ctx, "Foo", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, domain.ErrCodeCancelled, ErrorCode(err))
}

func TestSearch_WithIDReturnsRecord(t *testing.T) {
	s := newSite(t)
	r, _ := newResolver(t, s)

	res, err := r.Search(context.Background(), MovieQuery{ID: "abc", Name: "Title abc"})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "abc", res[0].ID)
	assert.Equal(t, "Title abc", res[0].Name)
	assert.Equal(t, 0, s.count("/search"))

	res, err = r.Search(context.Background(), MovieQuery{ID: "broken"})
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestSearchPerson_WithID(t *testing.T) {
	s := newSite(t)
	r, _ := newResolver(t, s)
	ctx := context.Background()

	res, err := r.SearchPerson(ctx, PersonQuery{ID: "jane", Name: "Jane Doe"})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "jane", res[0].ID)
	assert.Equal(t, "Jane Doe", res[0].Name)
	assert.Equal(t, "160cm", res[0].Overview)
	assert.Equal(t, s.srv.URL+"/person/jane", res[0].URL)
	assert.Equal(t, 0, s.count("/people"))

	res, err = r.SearchPerson(ctx, PersonQuery{ID: "missing"})
	require.NoError(t, err)
	assert.Empty(t, res)

	res, err = r.SearchPerson(ctx, PersonQuery{Name: "jane doe"})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "p1", res[0].ID)
	assert.Equal(t, 1, s.count("/people"))
}

func TestResolveMovie_SearchThenDetail(t *testing.T) {
	s := newSite(t)
	r, _ := newResolver(t, s)

	rec, state, err := r.ResolveMovie(context.Background(), MovieQuery{Name: "Foo", Year: domain.IntPtr(2000)})
	require.NoError(t, err)
	assert.Equal(t, Done, state)
	assert.Equal(t, "foo", rec.ID)
	assert.Equal(t, 1, s.count("/search"))
	assert.Equal(t, 1, s.count("/movie/foo"))
}

func TestResolveMovie_KnownIDSkipsSearch(t *testing.T) {
	s := newSite(t)
	r, _ := newResolver(t, s)

	rec, state, err := r.ResolveMovie(context.Background(), MovieQuery{ID: "abc", Name: "whatever"})
	require.NoError(t, err)
	assert.Equal(t, Done, state)
	assert.Equal(t, "abc", rec.ID)
	assert.Equal(t, 0, s.count("/search"))
}

func TestResolveMovie_BelowThresholdIsUnresolved(t *testing.T) {
	s := newSite(t)
	r, _ := newResolver(t, s)

	rec, state, err := r.ResolveMovie(context.Background(), MovieQuery{Name: "qqqq"})
	require.NoError(t, err)
	assert.Equal(t, Unresolved, state)
	assert.Empty(t, rec.ID)
	assert.False(t, rec.HasMetadata)
	assert.Equal(t, 0, s.count("/movie/foo")+s.count("/movie/foo-bar")+s.count("/movie/zzz"))
}

func TestResolvePerson(t *testing.T) {
	s := newSite(t)
	r, _ := newResolver(t, s)

	rec, state, err := r.ResolvePerson(context.Background(), PersonQuery{Name: "jane doe"})
	require.NoError(t, err)
	assert.Equal(t, Done, state)
	assert.Equal(t, "p1", rec.ID)
	assert.Equal(t, 1, s.count("/people"))
}

func TestMovieImages(t *testing.T) {
	s := newSite(t)
	r, _ := newResolver(t, s)

	imgs, err := r.MovieImages(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, []domain.RemoteImage{{URL: "https://img.example/abc.jpg", Type: domain.ImageTypePrimary}}, imgs)

	imgs, err = r.MovieImages(context.Background(), "errpage")
	require.NoError(t, err)
	assert.Empty(t, imgs)
}

func TestImageResponse(t *testing.T) {
	s := newSite(t)
	r, _ := newResolver(t, s)

	resp, err := r.ImageResponse(context.Background(), s.srv.URL+"/image.jpg")
	require.NoError(t, err)
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "JPEGDATA", string(b))
}

func TestConcurrentMoviesShareDetailLane(t *testing.T) {
	s := newSite(t)
	r, _ := newResolver(t, s)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := r.Movie(context.Background(), fmt.Sprintf("m%d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
	for i := 0; i < 5; i++ {
		assert.Equal(t, 1, s.count(fmt.Sprintf("/movie/m%d", i)))
	}
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, cache.New(t.TempDir()), nil, Options{})
	require.Error(t, err)
	_, err = New(testSource{}, nil, nil, Options{})
	require.Error(t, err)

	r, err := New(testSource{}, cache.New(t.TempDir()), nil, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0.8, r.Threshold())
	assert.Equal(t, "done", Done.String())
	assert.Equal(t, "unresolved", Unresolved.String())
}
