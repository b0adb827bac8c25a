package yacontest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/zachetka/backend/core"
	"github.com/zachetka/backend/core/results"
	"github.com/zachetka/backend/core/syncjob"
)

const pageSize = 100

// Client talks to the Yandex.Contest public API. Requests are retried a
// bounded number of times on network errors and 5xx/429 responses; what
// still fails surfaces as *syncjob.TransientFetchError so the orchestrator
// skips the contest until the next run.
type Client struct {
	http       *http.Client
	baseURL    string
	token      string
	maxRetries int
	logger     core.Logger
}

var _ syncjob.ContestClient = (*Client)(nil)

func NewClient(conf *core.Config, logger core.Logger) *Client {
	return &Client{
		http:       &http.Client{Timeout: conf.Contest.Timeout},
		baseURL:    conf.Contest.BaseURL,
		token:      conf.Contest.Token,
		maxRetries: conf.Contest.MaxRetries,
		logger:     logger,
	}
}

func (c *Client) FetchSubmissions(ctx context.Context, yandexContestID, afterRunID int64) ([]results.SubmissionRecord, error) {
	var out []results.SubmissionRecord
	for page := 1; ; page++ {
		q := url.Values{
			"page":     {strconv.Itoa(page)},
			"pageSize": {strconv.Itoa(pageSize)},
		}
		var resp struct {
			Count       int                        `json:"count"`
			Submissions []results.SubmissionRecord `json:"submissions"`
		}
		op := fmt.Sprintf("contest %d submissions page %d", yandexContestID, page)
		if err := c.get(ctx, fmt.Sprintf("/contests/%d/submissions", yandexContestID), q, op, &resp); err != nil {
			return nil, err
		}
		for _, rec := range resp.Submissions {
			if rec.RunID > afterRunID {
				out = append(out, rec)
			}
		}
		if page*pageSize >= resp.Count || len(resp.Submissions) == 0 {
			break
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RunID < out[j].RunID })
	return out, nil
}

func (c *Client) SubmissionVerdict(ctx context.Context, yandexContestID, runID int64) (results.SubmissionRecord, error) {
	var rec results.SubmissionRecord
	op := fmt.Sprintf("contest %d submission %d", yandexContestID, runID)
	err := c.get(ctx, fmt.Sprintf("/contests/%d/submissions/%d", yandexContestID, runID), nil, op, &rec)
	return rec, err
}

func (c *Client) Participants(ctx context.Context, yandexContestID int64) ([]syncjob.Participant, error) {
	var list []syncjob.Participant
	op := fmt.Sprintf("contest %d participants", yandexContestID)
	if err := c.get(ctx, fmt.Sprintf("/contests/%d/participants", yandexContestID), nil, op, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// RegisterParticipant adds a login to the contest; the API answers with the
// new participant id as a bare number.
func (c *Client) RegisterParticipant(ctx context.Context, yandexContestID int64, login string) (int64, error) {
	q := url.Values{"login": {login}}
	op := fmt.Sprintf("contest %d register %q", yandexContestID, login)
	body, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/contests/%d/participants", yandexContestID), q, op)
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseInt(string(bytes.TrimSpace(body)), 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "%s: unexpected response %q", op, body)
	}
	return id, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, op string, v interface{}) error {
	body, err := c.do(ctx, http.MethodGet, path, q, op)
	if err != nil {
		return err
	}
	if err = json.Unmarshal(body, v); err != nil {
		return errors.Wrap(err, op)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, op string) ([]byte, error) {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, u, nil)
		if err != nil {
			return nil, errors.Wrap(err, op)
		}
		req.Header.Set("Authorization", "OAuth "+c.token)
		req.Header.Set("Accept", "application/json")

		res, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			c.logger.Warn(fmt.Sprintf("yacontest: %s: attempt %d: %v", op, attempt+1, err))
			continue
		}
		body, err := io.ReadAll(res.Body)
		res.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		switch {
		case res.StatusCode < http.StatusMultipleChoices:
			return body, nil
		case res.StatusCode == http.StatusTooManyRequests || res.StatusCode >= http.StatusInternalServerError:
			lastErr = errors.Errorf("status %d: %s", res.StatusCode, body)
			c.logger.Warn(fmt.Sprintf("yacontest: %s: attempt %d: %v", op, attempt+1, lastErr))
		default:
			// client errors are permanent, retrying cannot help
			return nil, errors.Errorf("%s: status %d: %s", op, res.StatusCode, body)
		}
	}
	return nil, &syncjob.TransientFetchError{Op: op, Err: lastErr}
}
