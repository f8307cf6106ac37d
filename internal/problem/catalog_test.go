package problem_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"algocrack/internal/client/transport"
	"algocrack/internal/common/cache"
	"algocrack/internal/problem"
	pkgerrors "algocrack/pkg/errors"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	server        *httptest.Server
	questionCalls atomic.Int32
	lastQuery     atomic.Value
}

func newFakeCatalog(t *testing.T) *fakeCatalog {
	t.Helper()
	gin.SetMode(gin.TestMode)
	f := &fakeCatalog{}
	router := gin.New()
	router.GET(problem.QuestionsPath, func(c *gin.Context) {
		f.lastQuery.Store(c.Request.URL.RawQuery)
		c.JSON(http.StatusOK, gin.H{
			"content":       []gin.H{{"id": 1, "questionTitle": "Two Sum", "difficultyLevel": "Easy", "tags": []string{"array"}}},
			"pageable":      gin.H{"pageNumber": 0, "pageSize": 10},
			"totalElements": 1,
			"totalPages":    1,
			"first":         true,
			"last":          true,
		})
	})
	router.GET(problem.QuestionsPath+"/:id", func(c *gin.Context) {
		f.questionCalls.Add(1)
		if c.Param("id") != "1" {
			c.String(http.StatusNotFound, "Question not found")
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"id":                  1,
			"questionTitle":       "Two Sum",
			"questionDescription": "Find two numbers.",
			"difficultyLevel":     "Easy",
			"metadataList": []gin.H{
				{"language": "Java", "functionName": "twoSum", "codeTemplate": "class Solution {}"},
				{"language": "python", "functionName": "two_sum", "codeTemplate": "class Solution:\n    pass"},
			},
		})
	})
	router.GET(problem.TestCasesPath+"/question/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, []gin.H{
			{"id": 12, "input": "b", "orderIndex": 2, "type": "DEFAULT"},
			{"id": 11, "input": "a", "orderIndex": 1, "type": "DEFAULT"},
			{"id": 13, "input": "secret", "orderIndex": 3, "type": "HIDDEN", "isHidden": true},
			{"id": 14, "input": "legacy", "orderIndex": 4},
			{"id": 15, "input": "legacy-hidden", "orderIndex": 5, "isHidden": true},
		})
	})
	router.GET(problem.SolutionsPath+"/question/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, []gin.H{{"id": 1, "language": "java", "code": "x", "questionId": 1}})
	})
	router.GET(problem.TagsPath, func(c *gin.Context) {
		c.JSON(http.StatusOK, []gin.H{{"id": 1, "name": "array"}})
	})
	f.server = httptest.NewServer(router)
	t.Cleanup(f.server.Close)
	return f
}

func newCatalog(f *fakeCatalog, opts ...problem.Option) *problem.Catalog {
	client := transport.New(transport.Config{BaseURL: f.server.URL, Timeout: 2 * time.Second})
	return problem.NewCatalog(client, opts...)
}

func TestListSendsFilters(t *testing.T) {
	f := newFakeCatalog(t)
	page, size := 0, 10
	got, err := newCatalog(f).List(context.Background(), problem.Filters{Page: &page, Size: &size, Difficulty: problem.DifficultyEasy, Search: "two"})
	require.NoError(t, err)
	require.Len(t, got.Content, 1)
	require.Equal(t, "Two Sum", got.Content[0].Title)
	require.Equal(t, "difficulty=Easy&page=0&search=two&size=10", f.lastQuery.Load())
}

func TestQuestionNotFound(t *testing.T) {
	f := newFakeCatalog(t)
	_, err := newCatalog(f).Question(context.Background(), 99)
	if !pkgerrors.Is(err, pkgerrors.ProblemNotFound) {
		t.Fatalf("expected problem not found, got %v", err)
	}
}

func TestQuestionMetadataLookup(t *testing.T) {
	f := newFakeCatalog(t)
	q, err := newCatalog(f).Question(context.Background(), 1)
	require.NoError(t, err)
	meta, ok := q.MetadataFor("JAVA")
	require.True(t, ok)
	require.Equal(t, "twoSum", meta.FunctionName)
	require.Equal(t, []string{"java", "python"}, q.Languages())
}

func TestQuestionCachedInRedis(t *testing.T) {
	f := newFakeCatalog(t)
	mr := miniredis.RunT(t)
	rc, err := cache.NewRedisCache(mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rc.Close() })
	catalog := newCatalog(f, problem.WithCache(rc, time.Minute))

	for i := 0; i < 3; i++ {
		q, err := catalog.Question(context.Background(), 1)
		require.NoError(t, err)
		require.Equal(t, "Two Sum", q.Title)
	}
	require.EqualValues(t, 1, f.questionCalls.Load())
	require.True(t, mr.Exists(cache.DefaultKeyPrefix+"problem:question:1"))

	// Missing questions are cached too.
	for i := 0; i < 2; i++ {
		_, err := catalog.Question(context.Background(), 2)
		require.True(t, pkgerrors.Is(err, pkgerrors.ProblemNotFound))
	}
	require.EqualValues(t, 2, f.questionCalls.Load())

	require.NoError(t, catalog.Invalidate(context.Background(), 1))
	_, err = catalog.Question(context.Background(), 1)
	require.NoError(t, err)
	require.EqualValues(t, 3, f.questionCalls.Load())
}

func TestTestCasesOnlyVisibleInOrder(t *testing.T) {
	f := newFakeCatalog(t)
	tcs, err := newCatalog(f).TestCases(context.Background(), 1)
	require.NoError(t, err)
	inputs := make([]string, 0, len(tcs))
	for _, tc := range tcs {
		inputs = append(inputs, tc.Input)
	}
	require.Equal(t, []string{"a", "b", "legacy"}, inputs)
}

func TestSolutionsAndTags(t *testing.T) {
	f := newFakeCatalog(t)
	catalog := newCatalog(f)
	sols, err := catalog.Solutions(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, sols, 1)
	tags, err := catalog.Tags(context.Background())
	require.NoError(t, err)
	require.Equal(t, "array", tags[0].Name)
}

func TestQuestionRejectsInvalidID(t *testing.T) {
	f := newFakeCatalog(t)
	if _, err := newCatalog(f).Question(context.Background(), 0); !pkgerrors.Is(err, pkgerrors.ValidationFailed) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
