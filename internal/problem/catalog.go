package problem

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"algocrack/internal/client/transport"
	"algocrack/internal/common/cache"
	pkgerrors "algocrack/pkg/errors"
	"algocrack/pkg/utils/logger"

	"go.uber.org/zap"
)

// Catalog routes.
const (
	QuestionsPath = "/api/v1/questions"
	TagsPath      = "/api/v1/tags"
	TestCasesPath = "/api/v1/testcases"
	SolutionsPath = "/api/v1/solutions"
)

const (
	defaultTTL      = 10 * time.Minute
	defaultEmptyTTL = time.Minute

	questionKeyPrefix = "problem:question:"
	testcaseKeyPrefix = "problem:testcases:"
	tagsKey           = "problem:tags"
)

// Requester is the transport surface used by the catalog.
type Requester interface {
	Request(ctx context.Context, method, path string, in, out interface{}, opts ...transport.Option) (transport.ResponseInfo, error)
}

// Catalog reads the problem service. Question details, testcases and tags are cached
// when a cache is configured.
type Catalog struct {
	http     Requester
	cache    cache.Cache
	ttl      time.Duration
	emptyTTL time.Duration
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithCache enables read caching with the given ttl. Missing questions are cached briefly.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(cat *Catalog) {
		cat.cache = c
		if ttl > 0 {
			cat.ttl = ttl
		}
	}
}

func NewCatalog(http Requester, opts ...Option) *Catalog {
	c := &Catalog{http: http, ttl: defaultTTL, emptyTTL: defaultEmptyTTL}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// List returns a page of question summaries.
func (c *Catalog) List(ctx context.Context, f Filters) (Page[Summary], error) {
	values := url.Values{}
	if f.Page != nil {
		values.Set("page", strconv.Itoa(*f.Page))
	}
	if f.Size != nil {
		values.Set("size", strconv.Itoa(*f.Size))
	}
	for key, v := range map[string]string{
		"difficulty": f.Difficulty,
		"tag":        f.Tag,
		"search":     f.Search,
		"company":    f.Company,
	} {
		if v != "" {
			values.Set(key, v)
		}
	}

	var page Page[Summary]
	_, err := c.http.Request(ctx, http.MethodGet, QuestionsPath, nil, &page, transport.WithQuery(values))
	if page.Content == nil {
		page.Content = []Summary{}
	}
	return page, err
}

// Question returns one question with its per-language metadata.
func (c *Catalog) Question(ctx context.Context, id int64) (Question, error) {
	if id <= 0 {
		return Question{}, pkgerrors.ValidationError("questionId", "must be positive")
	}
	q, err := cache.GetWithCached[Question](
		ctx,
		c.cache,
		questionKeyPrefix+strconv.FormatInt(id, 10),
		c.ttl,
		c.emptyTTL,
		func(q Question) bool { return q.ID == 0 },
		cache.MarshalCompressed[Question](),
		cache.UnmarshalCompressed[Question](),
		func(ctx context.Context) (Question, error) {
			var q Question
			path := fmt.Sprintf("%s/%d", QuestionsPath, id)
			if _, err := c.http.Request(ctx, http.MethodGet, path, nil, &q); err != nil {
				if pkgerrors.Is(err, pkgerrors.NotFound) {
					return Question{}, nil
				}
				return Question{}, err
			}
			return q, nil
		},
	)
	if err != nil {
		return Question{}, err
	}
	if q.ID == 0 {
		return Question{}, pkgerrors.Newf(pkgerrors.ProblemNotFound, "problem %d not found", id)
	}
	return q, nil
}

// TestCases returns the visible testcases of a question in display order.
func (c *Catalog) TestCases(ctx context.Context, questionID int64) ([]TestCase, error) {
	if questionID <= 0 {
		return nil, pkgerrors.ValidationError("questionId", "must be positive")
	}
	all, err := cache.GetWithCached[[]TestCase](
		ctx,
		c.cache,
		testcaseKeyPrefix+strconv.FormatInt(questionID, 10),
		c.ttl,
		c.emptyTTL,
		func(tcs []TestCase) bool { return len(tcs) == 0 },
		cache.MarshalCompressed[[]TestCase](),
		cache.UnmarshalCompressed[[]TestCase](),
		func(ctx context.Context) ([]TestCase, error) {
			var tcs []TestCase
			path := fmt.Sprintf("%s/question/%d", TestCasesPath, questionID)
			_, err := c.http.Request(ctx, http.MethodGet, path, nil, &tcs)
			return tcs, err
		},
	)
	if err != nil {
		return nil, err
	}

	visible := make([]TestCase, 0, len(all))
	for _, tc := range all {
		if tc.Visible() {
			visible = append(visible, tc)
		}
	}
	sort.SliceStable(visible, func(i, j int) bool { return visible[i].OrderIndex < visible[j].OrderIndex })
	logger.Debug(ctx, "testcases loaded", zap.Int64("question_id", questionID), zap.Int("visible", len(visible)), zap.Int("served", len(all)))
	return visible, nil
}

// Solutions returns the reference solutions of a question.
func (c *Catalog) Solutions(ctx context.Context, questionID int64) ([]Solution, error) {
	var out []Solution
	path := fmt.Sprintf("%s/question/%d", SolutionsPath, questionID)
	if _, err := c.http.Request(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []Solution{}
	}
	return out, nil
}

// Tags returns every topic tag.
func (c *Catalog) Tags(ctx context.Context) ([]Tag, error) {
	tags, err := cache.GetWithCached[[]Tag](
		ctx,
		c.cache,
		tagsKey,
		c.ttl,
		c.emptyTTL,
		func(tags []Tag) bool { return len(tags) == 0 },
		cache.MarshalCompressed[[]Tag](),
		cache.UnmarshalCompressed[[]Tag](),
		func(ctx context.Context) ([]Tag, error) {
			var tags []Tag
			_, err := c.http.Request(ctx, http.MethodGet, TagsPath, nil, &tags)
			return tags, err
		},
	)
	if tags == nil && err == nil {
		tags = []Tag{}
	}
	return tags, err
}

// Invalidate drops the cached entries of a question.
func (c *Catalog) Invalidate(ctx context.Context, questionID int64) error {
	if c.cache == nil {
		return nil
	}
	id := strconv.FormatInt(questionID, 10)
	if err := cache.Invalidate(ctx, c.cache, questionKeyPrefix+id, testcaseKeyPrefix+id); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.CacheError)
	}
	return nil
}
