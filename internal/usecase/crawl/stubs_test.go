package crawl_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"crashscraper/internal/domain/entity"
	"crashscraper/internal/usecase/crawl"
)

/* ───────── スタブ実装 ───────── */

// memArticleRepo はURLで一意なインメモリ ArticleRepository。
// raceURLs は ExistsByURLBatch では未登録に見えるが Insert で衝突する URL。
// lookups には ExistsByURLBatch に渡された URL 群を呼び出しごとに記録する
type memArticleRepo struct {
	mu        sync.Mutex
	byURL     map[string]*entity.Article
	nextID    int64
	existsErr error
	insertErr map[string]error
	raceURLs  map[string]bool
	lookups   [][]string
}

func newMemArticleRepo() *memArticleRepo {
	return &memArticleRepo{byURL: map[string]*entity.Article{}}
}

func (r *memArticleRepo) ExistsByURLBatch(_ context.Context, urls []string) (map[string]bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lookups = append(r.lookups, append([]string(nil), urls...))
	if r.existsErr != nil {
		return nil, r.existsErr
	}
	found := make(map[string]bool)
	for _, u := range urls {
		if _, ok := r.byURL[u]; ok {
			found[u] = true
		}
	}
	return found, nil
}

func (r *memArticleRepo) Insert(_ context.Context, a *entity.Article) (int64, error) {
	if err := r.insertErr[a.URL]; err != nil {
		return 0, err
	}
	if r.raceURLs[a.URL] {
		return 0, entity.ErrDuplicate
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byURL[a.URL]; ok {
		return 0, entity.ErrDuplicate
	}
	r.nextID++
	cp := *a
	cp.ID = r.nextID
	r.byURL[a.URL] = &cp
	return cp.ID, nil
}

func (r *memArticleRepo) urls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.byURL))
	for u := range r.byURL {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

func (r *memArticleRepo) get(url string) *entity.Article {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byURL[url]
}

// 以下は未使用だが、インターフェース満たすために実装
func (r *memArticleRepo) ListUnclassified(context.Context, int64, int) ([]*entity.Article, error) {
	return nil, nil
}
func (r *memArticleRepo) ListAfterID(context.Context, int64, int) ([]*entity.Article, error) {
	return nil, nil
}
func (r *memArticleRepo) UpdateClassification(context.Context, int64, entity.Votes) error {
	return nil
}
func (r *memArticleRepo) CountBySource(context.Context) (map[int64]int64, error) { return nil, nil }
func (r *memArticleRepo) CountByLabel(context.Context) (map[entity.Label]int64, error) {
	return nil, nil
}
func (r *memArticleRepo) DeleteDuplicateURLs(context.Context) (int64, error) { return 0, nil }

// stubSourceRepo は TouchCrawledAt の呼び出しを記録する
type stubSourceRepo struct {
	mu       sync.Mutex
	sources  []*entity.Source
	touched  map[int64]time.Time
	touchCtx []error
}

func (s *stubSourceRepo) TouchCrawledAt(ctx context.Context, id int64, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.touched == nil {
		s.touched = map[int64]time.Time{}
	}
	s.touched[id] = t
	s.touchCtx = append(s.touchCtx, ctx.Err())
	return nil
}

func (s *stubSourceRepo) ListActive(context.Context) ([]*entity.Source, error) {
	var out []*entity.Source
	for _, src := range s.sources {
		if src.Active {
			out = append(out, src)
		}
	}
	return out, nil
}

func (s *stubSourceRepo) GetByName(_ context.Context, name string) (*entity.Source, error) {
	for _, src := range s.sources {
		if src.Name == name {
			return src, nil
		}
	}
	return nil, nil
}

func (s *stubSourceRepo) Get(context.Context, int64) (*entity.Source, error) { return nil, nil }
func (s *stubSourceRepo) List(context.Context) ([]*entity.Source, error)     { return s.sources, nil }
func (s *stubSourceRepo) Upsert(context.Context, *entity.Source) (int64, error) {
	return 0, nil
}

func (s *stubSourceRepo) touchedAt(id int64) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.touched[id]
	return t, ok
}

// stubAdapter はページ列と詳細をあらかじめ与えるアダプタ
type stubAdapter struct {
	mu         sync.Mutex
	pages      [][]crawl.Candidate
	listErr    map[int]error // page index → error
	details    map[string]crawl.Detail
	detailErr  map[string]error
	block      bool // NextPage blocks until ctx is done
	listCalls  int
	detailURLs []string
}

func (a *stubAdapter) NextPage(ctx context.Context, token string) ([]crawl.Candidate, string, error) {
	a.mu.Lock()
	a.listCalls++
	a.mu.Unlock()

	if a.block {
		<-ctx.Done()
		return nil, "", ctx.Err()
	}

	idx := 0
	if token != "" {
		if _, err := fmt.Sscanf(token, "p%d", &idx); err != nil {
			return nil, "", err
		}
	}
	if err := a.listErr[idx]; err != nil {
		return nil, "", err
	}
	if idx >= len(a.pages) {
		return nil, "", nil
	}
	next := ""
	if idx+1 < len(a.pages) {
		next = fmt.Sprintf("p%d", idx+1)
	}
	return a.pages[idx], next, nil
}

func (a *stubAdapter) FetchDetail(ctx context.Context, c crawl.Candidate) (crawl.Detail, error) {
	a.mu.Lock()
	a.detailURLs = append(a.detailURLs, c.URL)
	a.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return crawl.Detail{}, err
	}
	if err := a.detailErr[c.URL]; err != nil {
		return crawl.Detail{}, err
	}
	if d, ok := a.details[c.URL]; ok {
		return d, nil
	}
	return crawl.Detail{Body: "cuerpo de " + c.Title}, nil
}

// endlessAdapter は常に次ページを返す
type endlessAdapter struct {
	calls int
	day   time.Time
}

func (a *endlessAdapter) NextPage(_ context.Context, token string) ([]crawl.Candidate, string, error) {
	a.calls++
	c := crawl.Candidate{
		URL:         fmt.Sprintf("https://example.com/n/%d", a.calls),
		Title:       "nota",
		PublishedAt: a.day,
	}
	return []crawl.Candidate{c}, token + "x", nil
}

func (a *endlessAdapter) FetchDetail(context.Context, crawl.Candidate) (crawl.Detail, error) {
	return crawl.Detail{Body: "x"}, nil
}

// stubFactory は名前ごとのアダプタを返す
type stubFactory struct {
	adapters map[string]crawl.SourceAdapter
}

var errNoAdapter = errors.New("no adapter configured")

func (f stubFactory) AdapterFor(src *entity.Source) (crawl.SourceAdapter, error) {
	if a, ok := f.adapters[src.Name]; ok {
		return a, nil
	}
	return nil, errNoAdapter
}

/* ───────── ヘルパ ───────── */

// day returns midnight UTC of the given day of March 2025.
func day(d int) time.Time {
	return time.Date(2025, time.March, d, 0, 0, 0, 0, time.UTC)
}

func cand(path string, d int) crawl.Candidate {
	c := crawl.Candidate{URL: "https://example.com/" + path, Title: "Nota " + path}
	if d > 0 {
		c.PublishedAt = day(d)
	}
	return c
}
