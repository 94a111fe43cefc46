package loadgen

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"github.com/okian/hackscore/internal/domain/model"
)

// ErrUnexpectedStatus is returned for responses outside the documented set.
var ErrUnexpectedStatus = errors.New("unexpected status")

// Submission outcomes.
const (
	outcomeAccepted  = "accepted"
	outcomeDuplicate = "duplicate"
	outcomeFailed    = "failed"
)

// client wraps the hackscore HTTP API.
type client struct {
	http *resty.Client
}

// row is the part of a leaderboard entry the verifier compares.
type row struct {
	TeamID     string
	FinalScore float64
	Position   int
}

func newClient(baseURL string, timeout time.Duration) *client {
	return &client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("Content-Type", "application/json"),
	}
}

func (c *client) health(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Get("/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	return expect(resp, http.StatusOK)
}

func (c *client) putRubric(ctx context.Context, r model.Rubric) error {
	resp, err := c.http.R().SetContext(ctx).SetBody(r).Put("/rubrics")
	if err != nil {
		return fmt.Errorf("put rubric %s: %w", r.ID, err)
	}
	return expect(resp, http.StatusOK)
}

func (c *client) putSubmission(ctx context.Context, s model.Submission) error {
	resp, err := c.http.R().SetContext(ctx).SetBody(s).Put("/submissions")
	if err != nil {
		return fmt.Errorf("put submission %s: %w", s.ID, err)
	}
	return expect(resp, http.StatusOK)
}

// postEvaluation returns the outcome of one submission attempt.
func (c *client) postEvaluation(ctx context.Context, e model.Evaluation) (string, error) {
	resp, err := c.http.R().SetContext(ctx).SetBody(e).Post("/evaluations")
	if err != nil {
		return outcomeFailed, fmt.Errorf("post evaluation %s: %w", e.ID, err)
	}
	switch resp.StatusCode() {
	case http.StatusAccepted:
		return outcomeAccepted, nil
	case http.StatusOK:
		if gjson.GetBytes(resp.Body(), "duplicate").Bool() {
			return outcomeDuplicate, nil
		}
	}
	return outcomeFailed, expect(resp, http.StatusAccepted)
}

// storedEvaluations reads the evaluation count from /stats.
func (c *client) storedEvaluations(ctx context.Context) (int, error) {
	resp, err := c.http.R().SetContext(ctx).Get("/stats")
	if err != nil {
		return 0, fmt.Errorf("get stats: %w", err)
	}
	if err := expect(resp, http.StatusOK); err != nil {
		return 0, err
	}
	return int(gjson.GetBytes(resp.Body(), "evaluations").Int()), nil
}

func (c *client) teamScore(ctx context.Context, challengeID, teamID string) (float64, error) {
	resp, err := c.http.R().SetContext(ctx).
		SetPathParams(map[string]string{"challenge": challengeID, "team": teamID}).
		Get("/challenges/{challenge}/teams/{team}/score")
	if err != nil {
		return 0, fmt.Errorf("get score %s: %w", teamID, err)
	}
	if err := expect(resp, http.StatusOK); err != nil {
		return 0, err
	}
	return gjson.GetBytes(resp.Body(), "totalScore").Float(), nil
}

func (c *client) leaderboard(ctx context.Context, challengeID string, limit int) ([]row, error) {
	resp, err := c.http.R().SetContext(ctx).
		SetPathParam("challenge", challengeID).
		SetQueryParam("limit", strconv.Itoa(limit)).
		Get("/challenges/{challenge}/leaderboard")
	if err != nil {
		return nil, fmt.Errorf("get leaderboard: %w", err)
	}
	if err := expect(resp, http.StatusOK); err != nil {
		return nil, err
	}
	var rows []row
	gjson.GetBytes(resp.Body(), "@this").ForEach(func(_, v gjson.Result) bool {
		rows = append(rows, row{
			TeamID:     v.Get("teamId").String(),
			FinalScore: v.Get("puntajeFinal").Float(),
			Position:   int(v.Get("position").Int()),
		})
		return true
	})
	return rows, nil
}

func expect(resp *resty.Response, status int) error {
	if resp.StatusCode() == status {
		return nil
	}
	return fmt.Errorf("%w: %s %s: HTTP %d: %s", ErrUnexpectedStatus,
		resp.Request.Method, resp.Request.URL, resp.StatusCode(),
		gjson.GetBytes(resp.Body(), "message").String())
}
