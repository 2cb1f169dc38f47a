package classify_test

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"crashscraper/internal/classifier"
	"crashscraper/internal/domain/entity"
)

/* ───────── スタブ実装 ───────── */

type stubArticleRepo struct {
	mu        sync.Mutex
	byID      map[int64]*entity.Article
	failIDs   map[int64]bool
	listErr   error
	updates   int
	listCalls int
}

func newStubArticleRepo(arts ...*entity.Article) *stubArticleRepo {
	r := &stubArticleRepo{byID: map[int64]*entity.Article{}, failIDs: map[int64]bool{}}
	for _, a := range arts {
		r.byID[a.ID] = a
	}
	return r
}

func (r *stubArticleRepo) sorted() []*entity.Article {
	out := make([]*entity.Article, 0, len(r.byID))
	for _, a := range r.byID {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *stubArticleRepo) Insert(context.Context, *entity.Article) (int64, error) {
	return 0, errors.New("not implemented")
}
func (r *stubArticleRepo) ExistsByURLBatch(context.Context, []string) (map[string]bool, error) {
	return nil, nil
}

func (r *stubArticleRepo) ListUnclassified(_ context.Context, afterID int64, limit int) ([]*entity.Article, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []*entity.Article
	for _, a := range r.sorted() {
		if len(out) == limit {
			break
		}
		if a.ID > afterID && !a.Votes.Complete() {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *stubArticleRepo) ListAfterID(_ context.Context, afterID int64, limit int) ([]*entity.Article, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []*entity.Article
	for _, a := range r.sorted() {
		if len(out) == limit {
			break
		}
		if a.ID > afterID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *stubArticleRepo) UpdateClassification(_ context.Context, id int64, votes entity.Votes) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failIDs[id] {
		return errors.New("db is locked")
	}
	a, ok := r.byID[id]
	if !ok {
		return entity.ErrNotFound
	}
	a.Votes = votes
	a.Label = entity.LabelFromVotes(votes)
	r.updates++
	return nil
}

func (r *stubArticleRepo) CountBySource(context.Context) (map[int64]int64, error) { return nil, nil }
func (r *stubArticleRepo) CountByLabel(context.Context) (map[entity.Label]int64, error) {
	return nil, nil
}
func (r *stubArticleRepo) DeleteDuplicateURLs(context.Context) (int64, error) { return 0, nil }

// keywordClassifier は title に keyword を含む記事に literal と stem の2票を入れる。
// weighted 閾値が 3 以上 (strict) のときは literal の1票だけになる
type keywordClassifier struct {
	keyword string
}

func (c keywordClassifier) Classify(title, _ string, th classifier.Thresholds) classifier.Result {
	hit := strings.Contains(strings.ToLower(title), c.keyword)
	strict := th.For(classifier.StrategyWeighted) > 2
	votes := entity.NewVotes(hit, hit && !strict, false, false)
	return classifier.Result{Votes: votes, Label: entity.LabelFromVotes(votes)}
}

type recordingNotifier struct {
	mu  sync.Mutex
	ids []int64
	err error
}

func (n *recordingNotifier) NotifyAccident(_ context.Context, a *entity.Article) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ids = append(n.ids, a.ID)
	return n.err
}

func art(id int64, title string) *entity.Article {
	return &entity.Article{
		ID:       id,
		SourceID: 1,
		URL:      "https://example.com/n/" + title,
		Title:    title,
		Body:     "cuerpo",
		Label:    entity.LabelUnclassified,
	}
}
