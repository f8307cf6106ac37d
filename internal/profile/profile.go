// Package profile reads a user's profile, stats and submission heatmap.
package profile

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"algocrack/internal/client/transport"
	pkgerrors "algocrack/pkg/errors"
	"algocrack/pkg/utils/logger"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Profile routes.
const (
	ProfilePath = "/api/v1/user/profile"
	HeatmapPath = "/api/v1/user/heatmap"
)

// DefaultRecentSize is the number of recent submissions requested with a profile.
const DefaultRecentSize = 10

type Details struct {
	UserID          string `json:"userId"`
	Name            string `json:"name"`
	Rank            string `json:"rank"`
	Headline        string `json:"headline"`
	About           string `json:"about"`
	Location        string `json:"location"`
	School          string `json:"school"`
	Website         string `json:"website"`
	GithubProfile   string `json:"githubProfile"`
	TwitterProfile  string `json:"twitterProfile"`
	LinkedinProfile string `json:"linkedinProfile"`
	Skills          string `json:"skills"`
	ImgURL          string `json:"imgUrl"`
}

// SkillList splits the comma-separated skills field.
func (d Details) SkillList() []string {
	var out []string
	for _, s := range strings.Split(d.Skills, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

type Stats struct {
	TotalSolved    int `json:"totalSolved"`
	TotalQuestions int `json:"totalQuestions"`
	EasySolved     int `json:"easySolved"`
	EasyTotal      int `json:"easyTotal"`
	MediumSolved   int `json:"mediumSolved"`
	MediumTotal    int `json:"mediumTotal"`
	HardSolved     int `json:"hardSolved"`
	HardTotal      int `json:"hardTotal"`
}

type LanguageStat struct {
	Language       string `json:"language"`
	ProblemsSolved int    `json:"problemsSolved"`
}

type RecentSubmission struct {
	SubmissionID  string `json:"submissionId"`
	QuestionTitle string `json:"questionTitle"`
	QuestionSlug  string `json:"questionSlug"`
	Verdict       string `json:"verdict"`
	Timestamp     string `json:"timestamp"`
}

type Profile struct {
	Details           Details            `json:"userDetails"`
	Stats             Stats              `json:"userStats"`
	LanguageStats     []LanguageStat     `json:"languageStats"`
	RecentSubmissions []RecentSubmission `json:"recentSubmissions"`
}

// Activity is one active day, dated yyyy-MM-dd.
type Activity struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type Heatmap struct {
	Year             *int       `json:"year"`
	From             string     `json:"from"`
	To               string     `json:"to"`
	TotalSubmissions int        `json:"totalSubmissions"`
	TotalActiveDays  int        `json:"totalActiveDays"`
	Activity         []Activity `json:"activity"`
}

// ByDate indexes the activity counts by date.
func (h Heatmap) ByDate() map[string]int {
	out := make(map[string]int, len(h.Activity))
	for _, a := range h.Activity {
		out[a.Date] += a.Count
	}
	return out
}

// Overview is a profile together with its heatmap. HeatmapErr is set when only the
// heatmap could not be loaded.
type Overview struct {
	Profile    Profile
	Heatmap    Heatmap
	HeatmapErr error
}

// Requester is the transport surface used by the client.
type Requester interface {
	Request(ctx context.Context, method, path string, in, out interface{}, opts ...transport.Option) (transport.ResponseInfo, error)
}

type Client struct {
	http Requester
}

func New(http Requester) *Client {
	return &Client{http: http}
}

// Profile fetches a page of the user's profile.
func (c *Client) Profile(ctx context.Context, userID string, page, size int) (Profile, error) {
	if strings.TrimSpace(userID) == "" {
		return Profile{}, pkgerrors.ValidationError("userId", "required")
	}
	if size <= 0 {
		size = DefaultRecentSize
	}
	if page < 0 {
		page = 0
	}
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("size", strconv.Itoa(size))

	var out Profile
	path := fmt.Sprintf("%s/%s", ProfilePath, url.PathEscape(userID))
	if _, err := c.http.Request(ctx, http.MethodGet, path, nil, &out, transport.WithQuery(query)); err != nil {
		return Profile{}, err
	}
	return out, nil
}

// Heatmap fetches the submission heatmap. A zero year asks for the trailing year.
func (c *Client) Heatmap(ctx context.Context, userID string, year int) (Heatmap, error) {
	if strings.TrimSpace(userID) == "" {
		return Heatmap{}, pkgerrors.ValidationError("userId", "required")
	}
	var opts []transport.Option
	if year > 0 {
		opts = append(opts, transport.WithQuery(url.Values{"year": {strconv.Itoa(year)}}))
	}
	var out Heatmap
	path := fmt.Sprintf("%s/%s", HeatmapPath, url.PathEscape(userID))
	if _, err := c.http.Request(ctx, http.MethodGet, path, nil, &out, opts...); err != nil {
		return Heatmap{}, err
	}
	return out, nil
}

// Overview fetches the profile and heatmap concurrently. A heatmap failure is recorded
// on the result and does not fail the call.
func (c *Client) Overview(ctx context.Context, userID string, year int) (Overview, error) {
	var out Overview
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := c.Profile(gctx, userID, 0, DefaultRecentSize)
		if err != nil {
			return err
		}
		out.Profile = p
		return nil
	})
	g.Go(func() error {
		h, err := c.Heatmap(gctx, userID, year)
		if err != nil {
			logger.Warn(ctx, "load heatmap failed", zap.String("user_id", userID), zap.Error(err))
			out.HeatmapErr = err
			return nil
		}
		out.Heatmap = h
		return nil
	})
	if err := g.Wait(); err != nil {
		return Overview{}, err
	}
	return out, nil
}
