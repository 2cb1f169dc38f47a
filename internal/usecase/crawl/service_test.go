package crawl_test

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"crashscraper/internal/domain/entity"
	"crashscraper/internal/usecase/crawl"
)

func newService(articles *memArticleRepo, sources *stubSourceRepo, opts crawl.Options) *crawl.Service {
	return crawl.NewService(articles, sources, opts)
}

var diario = &entity.Source{ID: 7, Name: "diario", BaseURL: "https://example.com", Active: true}

/* ───────── RunSource: cutoff と冪等性 ───────── */

func TestRunSource_StopsAtCutoff(t *testing.T) {
	articles := newMemArticleRepo()
	sources := &stubSourceRepo{}
	adapter := &stubAdapter{pages: [][]crawl.Candidate{{cand("a", 10), cand("b", 9), cand("c", 5)}}}
	svc := newService(articles, sources, crawl.Options{})

	res, err := svc.RunSource(context.Background(), diario, adapter, day(8))
	if err != nil {
		t.Fatalf("RunSource: %v", err)
	}
	if res.Inserted != 2 {
		t.Errorf("Inserted = %d, want 2", res.Inserted)
	}
	if !res.StoppedAtCutoff {
		t.Error("StoppedAtCutoff = false, want true")
	}
	want := []string{"https://example.com/a", "https://example.com/b"}
	if got := articles.urls(); !reflect.DeepEqual(got, want) {
		t.Errorf("stored urls = %v, want %v", got, want)
	}
	if got := adapter.detailURLs; len(got) != 2 {
		t.Errorf("detail fetched for %v, want only a and b", got)
	}
	if _, ok := sources.touchedAt(diario.ID); !ok {
		t.Error("TouchCrawledAt was not called")
	}
}

func TestRunSource_RerunIsIdempotent(t *testing.T) {
	articles := newMemArticleRepo()
	pages := [][]crawl.Candidate{{cand("a", 10), cand("b", 9), cand("c", 5)}}
	svc := newService(articles, &stubSourceRepo{}, crawl.Options{})

	if _, err := svc.RunSource(context.Background(), diario, &stubAdapter{pages: pages}, day(8)); err != nil {
		t.Fatalf("first run: %v", err)
	}
	res, err := svc.RunSource(context.Background(), diario, &stubAdapter{pages: pages}, day(8))
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if res.Inserted != 0 {
		t.Errorf("second run Inserted = %d, want 0", res.Inserted)
	}
	if res.Skipped != 2 {
		t.Errorf("second run Skipped = %d, want 2", res.Skipped)
	}
	if n := len(articles.urls()); n != 2 {
		t.Errorf("stored count = %d, want 2", n)
	}
}

func TestRunSource_CutoffIsInclusive(t *testing.T) {
	articles := newMemArticleRepo()
	adapter := &stubAdapter{pages: [][]crawl.Candidate{{cand("a", 8), cand("b", 7)}}}
	svc := newService(articles, &stubSourceRepo{}, crawl.Options{})

	res, err := svc.RunSource(context.Background(), diario, adapter, day(8))
	if err != nil {
		t.Fatalf("RunSource: %v", err)
	}
	if res.Inserted != 1 || !res.StoppedAtCutoff {
		t.Errorf("got Inserted=%d StoppedAtCutoff=%v, want 1/true", res.Inserted, res.StoppedAtCutoff)
	}
}

func TestRunSource_ExistingURLSkippedBeforeCutoffCheck(t *testing.T) {
	articles := newMemArticleRepo()
	articles.byURL["https://example.com/old"] = &entity.Article{ID: 99, URL: "https://example.com/old"}
	adapter := &stubAdapter{pages: [][]crawl.Candidate{{cand("old", 1), cand("new", 10)}}}
	svc := newService(articles, &stubSourceRepo{}, crawl.Options{})

	res, err := svc.RunSource(context.Background(), diario, adapter, day(8))
	if err != nil {
		t.Fatalf("RunSource: %v", err)
	}
	if res.Skipped != 1 || res.Inserted != 1 || res.StoppedAtCutoff {
		t.Errorf("got %+v, want 1 skipped, 1 inserted, no cutoff stop", res)
	}
}

func TestRunSource_OneStoreLookupPerPage(t *testing.T) {
	articles := newMemArticleRepo()
	articles.byURL["https://example.com/b"] = &entity.Article{ID: 1, URL: "https://example.com/b"}
	adapter := &stubAdapter{pages: [][]crawl.Candidate{
		{cand("a", 20), cand("b", 19), cand("c", 18)},
		{cand("d", 17), cand("e", 16)},
	}}
	svc := newService(articles, &stubSourceRepo{}, crawl.Options{})

	res, err := svc.RunSource(context.Background(), diario, adapter, day(8))
	if err != nil {
		t.Fatalf("RunSource: %v", err)
	}
	want := [][]string{
		{"https://example.com/a", "https://example.com/b", "https://example.com/c"},
		{"https://example.com/d", "https://example.com/e"},
	}
	if !reflect.DeepEqual(articles.lookups, want) {
		t.Errorf("lookups = %v, want one per page %v", articles.lookups, want)
	}
	if res.Inserted != 4 || res.Skipped != 1 {
		t.Errorf("got %+v, want 4 inserted, 1 skipped", res)
	}
}

func TestRunSource_RepeatedURLOnPageIsSkipped(t *testing.T) {
	articles := newMemArticleRepo()
	adapter := &stubAdapter{pages: [][]crawl.Candidate{{cand("a", 10), cand("a", 10)}}}
	svc := newService(articles, &stubSourceRepo{}, crawl.Options{})

	res, err := svc.RunSource(context.Background(), diario, adapter, day(8))
	if err != nil {
		t.Fatalf("RunSource: %v", err)
	}
	if res.Inserted != 1 || res.Skipped != 1 || res.Duplicated != 0 {
		t.Errorf("got %+v, want 1 inserted, 1 skipped", res)
	}
	if got := adapter.detailURLs; len(got) != 1 {
		t.Errorf("detail fetched %v, want once", got)
	}
}

/* ───────── RunSource: ページング ───────── */

func TestRunSource_FollowsPagesUntilEmptyToken(t *testing.T) {
	articles := newMemArticleRepo()
	adapter := &stubAdapter{pages: [][]crawl.Candidate{
		{cand("a", 20), cand("b", 19)},
		{cand("c", 18)},
		{cand("d", 17)},
	}}
	svc := newService(articles, &stubSourceRepo{}, crawl.Options{})

	res, err := svc.RunSource(context.Background(), diario, adapter, day(1))
	if err != nil {
		t.Fatalf("RunSource: %v", err)
	}
	if res.Pages != 3 || res.Inserted != 4 || res.StoppedAtCutoff {
		t.Errorf("got %+v, want 3 pages, 4 inserted", res)
	}
}

func TestRunSource_EmptyPageStops(t *testing.T) {
	adapter := &stubAdapter{pages: [][]crawl.Candidate{{}, {cand("never", 20)}}}
	svc := newService(newMemArticleRepo(), &stubSourceRepo{}, crawl.Options{})

	res, err := svc.RunSource(context.Background(), diario, adapter, day(1))
	if err != nil {
		t.Fatalf("RunSource: %v", err)
	}
	if res.Pages != 1 || res.Candidates != 0 {
		t.Errorf("got %+v, want one empty page", res)
	}
}

func TestRunSource_MaxPagesGuard(t *testing.T) {
	adapter := &endlessAdapter{day: day(20)}
	svc := newService(newMemArticleRepo(), &stubSourceRepo{}, crawl.Options{MaxPages: 4})

	res, err := svc.RunSource(context.Background(), diario, adapter, day(1))
	if err != nil {
		t.Fatalf("RunSource: %v", err)
	}
	if adapter.calls != 4 || res.Pages != 4 || res.Inserted != 4 {
		t.Errorf("calls=%d pages=%d inserted=%d, want 4/4/4", adapter.calls, res.Pages, res.Inserted)
	}
}

func TestRunSource_DefaultMaxPages(t *testing.T) {
	adapter := &endlessAdapter{day: day(20)}
	svc := newService(newMemArticleRepo(), &stubSourceRepo{}, crawl.Options{})

	if _, err := svc.RunSource(context.Background(), diario, adapter, day(1)); err != nil {
		t.Fatalf("RunSource: %v", err)
	}
	if adapter.calls != crawl.DefaultMaxPages {
		t.Errorf("calls = %d, want %d", adapter.calls, crawl.DefaultMaxPages)
	}
}

/* ───────── RunSource: 日付なし候補 ───────── */

func TestRunSource_UndatedCandidateUsesDetailDate(t *testing.T) {
	articles := newMemArticleRepo()
	adapter := &stubAdapter{
		pages: [][]crawl.Candidate{{cand("fresh", 0), cand("stale", 0), cand("never", 0)}},
		details: map[string]crawl.Detail{
			"https://example.com/fresh": {Body: "b", PublishedAt: day(12)},
			"https://example.com/stale": {Body: "b", PublishedAt: day(3)},
		},
	}
	svc := newService(articles, &stubSourceRepo{}, crawl.Options{})

	res, err := svc.RunSource(context.Background(), diario, adapter, day(8))
	if err != nil {
		t.Fatalf("RunSource: %v", err)
	}
	if res.Inserted != 1 || !res.StoppedAtCutoff {
		t.Errorf("got %+v, want 1 inserted and cutoff stop", res)
	}
	got := articles.get("https://example.com/fresh")
	if got == nil || !got.PublishedAt.Equal(day(12)) {
		t.Errorf("fresh article = %+v, want published_at from detail", got)
	}
	if articles.get("https://example.com/stale") != nil {
		t.Error("stale article must not be stored")
	}
}

func TestRunSource_UndatedEverywhereIsStored(t *testing.T) {
	articles := newMemArticleRepo()
	adapter := &stubAdapter{pages: [][]crawl.Candidate{{cand("nodate", 0)}}}
	svc := newService(articles, &stubSourceRepo{}, crawl.Options{})

	res, err := svc.RunSource(context.Background(), diario, adapter, day(8))
	if err != nil {
		t.Fatalf("RunSource: %v", err)
	}
	if res.Inserted != 1 {
		t.Errorf("Inserted = %d, want 1", res.Inserted)
	}
	if a := articles.get("https://example.com/nodate"); a == nil || !a.PublishedAt.IsZero() {
		t.Errorf("article = %+v, want stored with zero date", a)
	}
}

/* ───────── RunSource: 記事単位の失敗 ───────── */

func TestRunSource_DetailFailureSkipsOnlyThatArticle(t *testing.T) {
	articles := newMemArticleRepo()
	adapter := &stubAdapter{
		pages: [][]crawl.Candidate{{cand("a", 10), cand("b", 9), cand("c", 9)}},
		detailErr: map[string]error{
			"https://example.com/b": &entity.NetworkError{URL: "https://example.com/b", StatusCode: 500, Err: errors.New("boom")},
		},
	}
	svc := newService(articles, &stubSourceRepo{}, crawl.Options{})

	res, err := svc.RunSource(context.Background(), diario, adapter, day(8))
	if err != nil {
		t.Fatalf("RunSource: %v", err)
	}
	if res.Inserted != 2 || res.Failed != 1 {
		t.Errorf("got %+v, want 2 inserted and 1 failed", res)
	}
}

func TestRunSource_MissingTitleIsParseFailure(t *testing.T) {
	articles := newMemArticleRepo()
	untitled := crawl.Candidate{URL: "https://example.com/untitled", PublishedAt: day(10)}
	adapter := &stubAdapter{pages: [][]crawl.Candidate{{untitled, {Title: "sin url", PublishedAt: day(10)}, cand("ok", 10)}}}
	svc := newService(articles, &stubSourceRepo{}, crawl.Options{})

	res, err := svc.RunSource(context.Background(), diario, adapter, day(8))
	if err != nil {
		t.Fatalf("RunSource: %v", err)
	}
	if res.Failed != 2 || res.Inserted != 1 {
		t.Errorf("got %+v, want 2 failed and 1 inserted", res)
	}
}

func TestRunSource_StoreErrorsAreArticleLevel(t *testing.T) {
	articles := newMemArticleRepo()
	articles.insertErr = map[string]error{"https://example.com/a": errors.New("disk full")}
	adapter := &stubAdapter{pages: [][]crawl.Candidate{{cand("a", 10), cand("b", 10)}}}
	svc := newService(articles, &stubSourceRepo{}, crawl.Options{})

	res, err := svc.RunSource(context.Background(), diario, adapter, day(8))
	if err != nil {
		t.Fatalf("RunSource: %v", err)
	}
	if res.Failed != 1 || res.Inserted != 1 {
		t.Errorf("got %+v, want 1 failed and 1 inserted", res)
	}
}

func TestRunSource_DuplicateRaceIsNotFailure(t *testing.T) {
	articles := newMemArticleRepo()
	articles.raceURLs = map[string]bool{"https://example.com/a": true}
	adapter := &stubAdapter{pages: [][]crawl.Candidate{{cand("a", 10), cand("b", 10)}}}
	svc := newService(articles, &stubSourceRepo{}, crawl.Options{})

	res, err := svc.RunSource(context.Background(), diario, adapter, day(8))
	if err != nil {
		t.Fatalf("RunSource: %v", err)
	}
	if res.Duplicated != 1 || res.Failed != 0 || res.Inserted != 1 {
		t.Errorf("got %+v, want 1 duplicated, 0 failed, 1 inserted", res)
	}
}

func TestRunSource_ExistsErrorIsArticleLevel(t *testing.T) {
	articles := newMemArticleRepo()
	articles.existsErr = errors.New("connection reset")
	adapter := &stubAdapter{pages: [][]crawl.Candidate{{cand("a", 10), cand("b", 10)}}}
	svc := newService(articles, &stubSourceRepo{}, crawl.Options{})

	res, err := svc.RunSource(context.Background(), diario, adapter, day(8))
	if err != nil {
		t.Fatalf("RunSource: %v", err)
	}
	if res.Failed != 2 || res.Inserted != 0 {
		t.Errorf("got %+v, want 2 failed", res)
	}
}

func TestRunSource_DetailOverridesListing(t *testing.T) {
	articles := newMemArticleRepo()
	long := strings.Repeat("ñ", 50)
	adapter := &stubAdapter{
		pages: [][]crawl.Candidate{{{URL: "https://example.com/x", Title: "Listado", Body: "resumen", PublishedAt: day(10)}}},
		details: map[string]crawl.Detail{
			"https://example.com/x": {Title: "  Título   completo ", Body: "cuerpo", RawContent: long},
		},
	}
	svc := newService(articles, &stubSourceRepo{}, crawl.Options{RawContentLimit: 10})

	if _, err := svc.RunSource(context.Background(), diario, adapter, day(8)); err != nil {
		t.Fatalf("RunSource: %v", err)
	}
	a := articles.get("https://example.com/x")
	if a == nil {
		t.Fatal("article not stored")
	}
	if a.Title != "Título completo" || a.Body != "cuerpo" {
		t.Errorf("title/body = %q/%q", a.Title, a.Body)
	}
	if a.RawContent != strings.Repeat("ñ", 10) {
		t.Errorf("raw content not capped to 10 runes: %q", a.RawContent)
	}
	if !a.PublishedAt.Equal(day(10)) || a.SourceID != diario.ID || a.Label != entity.LabelUnclassified {
		t.Errorf("unexpected article %+v", a)
	}
}

/* ───────── RunSource: ソース単位の中断 ───────── */

func TestRunSource_ListingFailureAbortsWithPartialResult(t *testing.T) {
	articles := newMemArticleRepo()
	sources := &stubSourceRepo{}
	adapter := &stubAdapter{
		pages:   [][]crawl.Candidate{{cand("a", 10)}, {cand("b", 9)}},
		listErr: map[int]error{1: errors.New("503 service unavailable")},
	}
	svc := newService(articles, sources, crawl.Options{})

	res, err := svc.RunSource(context.Background(), diario, adapter, day(1))
	if err == nil {
		t.Fatal("expected listing error")
	}
	if !entity.IsNetworkError(err) {
		t.Errorf("error %v is not a *entity.NetworkError", err)
	}
	if res.Inserted != 1 || res.Pages != 1 {
		t.Errorf("got %+v, want partial result with 1 page and 1 insert", res)
	}
	if !errors.Is(res.Err, err) {
		t.Errorf("res.Err = %v, want %v", res.Err, err)
	}
	if _, ok := sources.touchedAt(diario.ID); !ok {
		t.Error("TouchCrawledAt must be called on failure too")
	}
}

func TestRunSource_ListingNetworkErrorKeepsStatus(t *testing.T) {
	adapter := &stubAdapter{listErr: map[int]error{
		0: &entity.NetworkError{URL: "https://example.com/p/1", StatusCode: 404, Err: errors.New("not found")},
	}}
	svc := newService(newMemArticleRepo(), &stubSourceRepo{}, crawl.Options{})

	_, err := svc.RunSource(context.Background(), diario, adapter, day(1))
	var ne *entity.NetworkError
	if !errors.As(err, &ne) || ne.StatusCode != 404 {
		t.Errorf("err = %v, want wrapped NetworkError with status 404", err)
	}
}

func TestRunSource_CancelledContext(t *testing.T) {
	sources := &stubSourceRepo{}
	adapter := &stubAdapter{block: true}
	svc := newService(newMemArticleRepo(), sources, crawl.Options{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := svc.RunSource(ctx, diario, adapter, day(1))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want context.DeadlineExceeded", err)
	}
	if _, ok := sources.touchedAt(diario.ID); !ok {
		t.Fatal("TouchCrawledAt must be called after cancellation")
	}
	if sources.touchCtx[0] != nil {
		t.Errorf("TouchCrawledAt got a cancelled context: %v", sources.touchCtx[0])
	}
}

func TestRunSource_PageDelayHonoursCancellation(t *testing.T) {
	adapter := &stubAdapter{pages: [][]crawl.Candidate{{cand("a", 10)}, {cand("b", 9)}}}
	svc := newService(newMemArticleRepo(), &stubSourceRepo{}, crawl.Options{PageDelay: time.Hour})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	res, err := svc.RunSource(ctx, diario, adapter, day(1))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want context.DeadlineExceeded", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("page delay ignored cancellation")
	}
	if res.Inserted != 1 {
		t.Errorf("Inserted = %d, want 1 before the delay", res.Inserted)
	}
}

func TestRunSource_NilArguments(t *testing.T) {
	svc := newService(newMemArticleRepo(), &stubSourceRepo{}, crawl.Options{})

	if _, err := svc.RunSource(context.Background(), nil, &stubAdapter{}, day(1)); !errors.Is(err, crawl.ErrNilSource) {
		t.Errorf("nil source: err = %v", err)
	}
	if _, err := svc.RunSource(context.Background(), diario, nil, day(1)); !errors.Is(err, crawl.ErrNilAdapter) {
		t.Errorf("nil adapter: err = %v", err)
	}
}
