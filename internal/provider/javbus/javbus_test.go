package javbus

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/avmeta/internal/extract"
	"github.com/John-Robertt/avmeta/internal/infra/httpx"
)

const moviePage = `<html><head>
<meta name="keywords" content="SSIS-001,エスワン ナンバーワンスタイル,單體作品,巨乳,美少女">
<meta name="description" content="完全新作のデビュー作品。">
</head><body>
<div class="container">
<h3>SSIS-001 新人NO.1STYLE デビュー</h3>
<div class="row movie">
  <div class="col-md-9 screencap">
    <a class="bigImage" href="/pics/cover/8e8x_b.jpg"><img src="/pics/cover/8e8x_b.jpg" title="t"></a>
  </div>
  <div class="col-md-3 info">
    <p><span class="header">識別碼:</span> <span style="color:#CC0000;">SSIS-001</span></p>
    <p><span class="header">發行日期:</span> 2021-02-19</p>
    <p><span class="header">長度:</span> 150分鐘</p>
    <p><span class="header">導演:</span> <a href="https://www.javbus.com/director/1z6">紋℃</a></p>
    <p><span class="header">製作商:</span> <a href="https://www.javbus.com/studio/7q">エスワン ナンバーワンスタイル</a></p>
    <p><span class="header">系列:</span> <a href="https://www.javbus.com/series/ab">新人NO.1STYLE</a></p>
    <p class="header">類別:</p>
    <p><span class="genre"><label><a href="https://www.javbus.com/genre/f">單體作品</a></label></span></p>
    <p class="star-show"><span class="header">演員</span>:</p>
    <div class="star-name"><a href="https://www.javbus.com/star/sfv" title="葵つかさ">葵つかさ</a></div>
    <div class="star-name"><a href="https://www.javbus.com/star/okq" title="三上悠亜">三上悠亜</a></div>
  </div>
</div>
</div></body></html>`

const verifyPage = `<html><body><div id="ageVerify"><h4>Age Verification</h4></div></body></html>`

const starPage = `<html><body><div id="waterfall">
<div class="item"><div class="avatar-box">
  <div class="photo-frame"><img src="/pics/actress/okq_a.jpg" title="三上悠亜"></div>
  <div class="photo-info">
    <span class="pb10">三上悠亜</span>
    <p>生日: 1993-08-16</p>
    <p>年齡: 31</p>
    <p>身高: 159cm</p>
    <p>罩杯: G</p>
    <p>胸圍: 85cm</p>
    <p>腰圍: 57cm</p>
    <p>臀圍: 89cm</p>
    <p>出生地: 愛知県</p>
  </div>
</div></div>
<div class="item"><a class="movie-box" href="/SSIS-001">x</a></div>
</div></body></html>`

const notFoundPage = `<html><body><h4>404 Page Not Found!</h4></body></html>`

const searchPage = `<html><body><div id="waterfall">
<div class="item"><a class="movie-box" href="https://www.javbus.com/SSIS-001">
  <div class="photo-frame"><img src="/pics/thumb/8e8x.jpg" title="新人NO.1STYLE デビュー"></div>
  <div class="photo-info"><span>新人NO.1STYLE デビュー<br><date>SSIS-001</date> / <date>2021-02-19</date></span></div>
</a></div>
<div class="item"><a class="movie-box" href="https://www.javbus.com/SSIS-010">
  <div class="photo-frame"><img src="/pics/thumb/8e9a.jpg" title="other"></div>
  <div class="photo-info"><span>other<br><date>SSIS-010</date> / <date>2021-03-19</date></span></div>
</a></div>
</div></body></html>`

const starSearchPage = `<html><body><div id="waterfall">
<div class="item"><a class="avatar-box text-center" href="https://www.javbus.com/star/okq">
  <div class="photo-frame"><img src="https://www.javbus.com/pics/actress/okq_a.jpg" title="三上悠亜"></div>
  <div class="photo-info"><span class="mleft">三上悠亜</span></div>
</a></div>
</div></body></html>`

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := extract.Parse(strings.NewReader(html), "")
	if err != nil {
		t.Fatalf("解析 HTML 失败：%v", err)
	}
	return doc
}

func TestURLs(t *testing.T) {
	s := Source{}
	if got := s.MovieURL("SSIS-001"); got != "https://www.javbus.com/SSIS-001" {
		t.Fatalf("MovieURL=%q", got)
	}
	if got := s.PersonURL("okq"); got != "https://www.javbus.com/star/okq" {
		t.Fatalf("PersonURL=%q", got)
	}
	if got := s.SearchURL("三上 悠亜"); got != "https://www.javbus.com/search/"+url.PathEscape("三上 悠亜") {
		t.Fatalf("SearchURL=%q", got)
	}
	mirror := Source{BaseURL: "https://mirror.example/"}
	if got := mirror.PersonSearchURL("a"); got != "https://mirror.example/searchstar/a" {
		t.Fatalf("PersonSearchURL=%q", got)
	}
}

func TestExtractMovie(t *testing.T) {
	pageURL := "https://www.javbus.com/SSIS-001"
	m, err := Source{}.Movies().ExtractMovie(mustDoc(t, moviePage), pageURL)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if m.Title != "新人NO.1STYLE デビュー" {
		t.Fatalf("Title=%q", m.Title)
	}
	if m.UPC != "SSIS-001" {
		t.Fatalf("UPC=%q", m.UPC)
	}
	if m.Studio != "エスワン ナンバーワンスタイル" || m.Set != "新人NO.1STYLE" {
		t.Fatalf("Studio=%q Set=%q", m.Studio, m.Set)
	}
	if m.Synopsis != "完全新作のデビュー作品。" {
		t.Fatalf("Synopsis=%q", m.Synopsis)
	}
	if m.Director == nil || m.Director.Name != "紋℃" || m.Director.ID != "1z6" {
		t.Fatalf("Director=%+v", m.Director)
	}
	if len(m.Cast) != 2 || m.Cast[1].Name != "三上悠亜" || m.Cast[1].ID != "okq" {
		t.Fatalf("Cast=%+v", m.Cast)
	}
	want := []string{"單體作品", "巨乳", "美少女"}
	if strings.Join(m.Genres, ",") != strings.Join(want, ",") {
		t.Fatalf("Genres=%v", m.Genres)
	}
	if m.ReleaseDate == nil || !m.ReleaseDate.Equal(time.Date(2021, 2, 19, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("ReleaseDate=%v", m.ReleaseDate)
	}
	if m.ProductionYear == nil || *m.ProductionYear != 2021 {
		t.Fatalf("ProductionYear=%v", m.ProductionYear)
	}
	if m.PrimaryImageURL != "https://www.javbus.com/pics/cover/8e8x_b.jpg" {
		t.Fatalf("PrimaryImageURL=%q", m.PrimaryImageURL)
	}
}

func TestExtractMovie_VerifyPageIsParseError(t *testing.T) {
	_, err := Source{}.Movies().ExtractMovie(mustDoc(t, verifyPage), "https://www.javbus.com/SSIS-001")
	var pe *extract.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("期望 ParseError，实际：%T %v", err, err)
	}
}

func TestPerson(t *testing.T) {
	pe := Source{}.People()
	if pe.HasProfile(mustDoc(t, notFoundPage)) {
		t.Fatalf("404 页不应被识别为资料页")
	}

	doc := mustDoc(t, starPage)
	if !pe.HasProfile(doc) {
		t.Fatalf("期望识别为资料页")
	}
	p, err := pe.ExtractPerson(doc, "https://www.javbus.com/star/okq")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if p.Name != "三上悠亜" || p.Height != "159cm" || p.Birthplace != "愛知県" {
		t.Fatalf("person=%+v", p)
	}
	if p.Measurements != "B85-W57-H89" {
		t.Fatalf("Measurements=%q", p.Measurements)
	}
	if p.Birthdate == nil || p.Birthdate.Year() != 1993 {
		t.Fatalf("Birthdate=%v", p.Birthdate)
	}
	if p.PrimaryImageURL != "https://www.javbus.com/pics/actress/okq_a.jpg" {
		t.Fatalf("PrimaryImageURL=%q", p.PrimaryImageURL)
	}
}

func TestMovieSearch(t *testing.T) {
	res, err := Source{}.MovieSearch().ExtractSearchResults(mustDoc(t, searchPage), "https://www.javbus.com/search/SSIS")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(res) != 2 {
		t.Fatalf("期望 2 条结果，实际 %d", len(res))
	}
	r := res[0]
	if r.ID != "SSIS-001" || r.Name != "SSIS-001" || r.Overview != "新人NO.1STYLE デビュー" {
		t.Fatalf("result=%+v", r)
	}
	if r.Year == nil || *r.Year != 2021 {
		t.Fatalf("Year=%v", r.Year)
	}
	if r.ImageURL != "https://www.javbus.com/pics/thumb/8e8x.jpg" {
		t.Fatalf("ImageURL=%q", r.ImageURL)
	}
	if res[1].ID != "SSIS-010" {
		t.Fatalf("应保持页面顺序：%+v", res[1])
	}
}

func TestPersonSearch(t *testing.T) {
	res, err := Source{}.PersonSearch().ExtractSearchResults(mustDoc(t, starSearchPage), "https://www.javbus.com/searchstar/x")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(res) != 1 || res[0].ID != "okq" || res[0].Name != "三上悠亜" {
		t.Fatalf("results=%+v", res)
	}
}

func TestPrepareRequest(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "https://www.javbus.com/SSIS-001", nil)
	Source{}.PrepareRequest(req)
	if c, err := req.Cookie("age"); err != nil || c.Value != "verified" {
		t.Fatalf("缺少 age cookie：%v", err)
	}
}

func TestPassthrough(t *testing.T) {
	mk := func(path, body string) *http.Response {
		u, _ := url.Parse("https://www.javbus.com" + path)
		return &http.Response{
			StatusCode: 200,
			Body:       io.NopCloser(strings.NewReader(body)),
			Request:    &http.Request{URL: u},
		}
	}

	_, err := Source{}.Passthrough(context.Background(), mk("/doc/driver-verify", "x"))
	var be *httpx.BlockedError
	if !errors.As(err, &be) {
		t.Fatalf("期望 BlockedError（路径），实际：%v", err)
	}

	_, err = Source{}.Passthrough(context.Background(), mk("/SSIS-001", verifyPage))
	if !errors.As(err, &be) {
		t.Fatalf("期望 BlockedError（body），实际：%v", err)
	}

	resp, err := Source{}.Passthrough(context.Background(), mk("/SSIS-001", moviePage))
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	b, _ := io.ReadAll(resp.Body)
	if string(b) != moviePage {
		t.Fatalf("body 应原样保留")
	}
}
