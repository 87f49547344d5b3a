package suno

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Client talks to the generation API. It is safe for concurrent use.
type Client struct {
	apiKey      string
	baseURL     string
	callbackURL string
	http        *http.Client
	log         zerolog.Logger
}

// AwaitOptions bound the completion poll loop.
type AwaitOptions struct {
	MaxWait      time.Duration
	PollInterval time.Duration
}

func NewClient(apiKey, baseURL, callbackURL string, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = "https://api.sunoapi.org"
	}
	return &Client{
		apiKey:      apiKey,
		baseURL:     strings.TrimRight(baseURL, "/"),
		callbackURL: callbackURL,
		http:        &http.Client{Timeout: 30 * time.Second},
		log:         log.With().Str("component", "suno").Logger(),
	}
}

// Generate submits a generation job and returns its task id. The callback URL
// is always overwritten with the configured placeholder; completion is
// observed by polling, never by callback.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	req.CallBackURL = c.callbackURL

	var out struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
		Data struct {
			TaskID string `json:"taskId"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/generate", req, &out); err != nil {
		return "", err
	}
	if out.Code != 200 {
		return "", &RequestError{Code: out.Code, Msg: out.Msg, Kind: classifyKind(out.Code, out.Msg)}
	}
	c.log.Debug().Str("task", out.Data.TaskID).Msg("generation job submitted")
	return out.Data.TaskID, nil
}

// RecordInfo fetches the current state of a generation task.
func (c *Client) RecordInfo(ctx context.Context, taskID string) (RecordInfo, error) {
	var out struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
		Data struct {
			TaskID   string `json:"taskId"`
			Status   string `json:"status"`
			Response struct {
				SunoData []Track `json:"sunoData"`
			} `json:"response"`
			ErrorMessage string `json:"errorMessage"`
		} `json:"data"`
	}
	endpoint := "/api/v1/generate/record-info?taskId=" + url.QueryEscape(taskID)
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &out); err != nil {
		return RecordInfo{}, err
	}
	if out.Code != 200 {
		return RecordInfo{}, &RequestError{Code: out.Code, Msg: out.Msg, Kind: classifyKind(out.Code, out.Msg)}
	}
	return RecordInfo{
		TaskID:       out.Data.TaskID,
		Status:       TaskStatus(out.Data.Status),
		Tracks:       out.Data.Response.SunoData,
		ErrorMessage: out.Data.ErrorMessage,
	}, nil
}

// AwaitCompletion polls a task until SUCCESS or until MaxWait elapses,
// reporting monotonic progress through onProgress. A provider-side failure
// status does not end the wait: the provider retries internally, so the loop
// resets progress and keeps polling. A 404 on the task likewise keeps polling
// (the task may not be queryable yet).
func (c *Client) AwaitCompletion(ctx context.Context, taskID string, onProgress func(int), opts AwaitOptions) (RecordInfo, error) {
	if opts.MaxWait <= 0 {
		opts.MaxWait = 5 * time.Minute
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 3 * time.Second
	}

	start := time.Now()
	tracker := newProgressTracker(start, opts.MaxWait)

	for time.Since(start) < opts.MaxWait {
		info, err := c.RecordInfo(ctx, taskID)
		if err != nil {
			var reqErr *RequestError
			if errors.As(err, &reqErr) && reqErr.Code == 404 {
				if err := sleepCtx(ctx, opts.PollInterval); err != nil {
					return RecordInfo{}, err
				}
				continue
			}
			return RecordInfo{}, err
		}

		p := tracker.update(info.Status, time.Now())
		if onProgress != nil {
			onProgress(p)
		}
		c.log.Debug().Str("task", taskID).Str("status", string(info.Status)).Int("progress", p).Msg("generation poll")

		if info.Status == StatusSuccess {
			return info, nil
		}
		if err := sleepCtx(ctx, opts.PollInterval); err != nil {
			return RecordInfo{}, err
		}
	}

	return RecordInfo{}, &TimeoutError{Waited: opts.MaxWait}
}

// TimestampedLyrics fetches word-level timing for a generated track.
func (c *Client) TimestampedLyrics(ctx context.Context, taskID, audioID string) ([]AlignedWord, error) {
	payload := map[string]string{"taskId": taskID, "audioId": audioID}
	var out struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
		Data struct {
			AlignedWords []AlignedWord `json:"alignedWords"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/generate/get-timestamped-lyrics", payload, &out); err != nil {
		return nil, err
	}
	if out.Code != 200 {
		return nil, &RequestError{Code: out.Code, Msg: out.Msg, Kind: classifyKind(out.Code, out.Msg)}
	}
	words := out.Data.AlignedWords[:0:0]
	for _, w := range out.Data.AlignedWords {
		if w.Success {
			words = append(words, w)
		}
	}
	return words, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("suno: encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("suno: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &RequestError{Msg: err.Error(), Kind: KindNetwork}
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		var errBody struct {
			Code    int    `json:"code"`
			Msg     string `json:"msg"`
			Details string `json:"details"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		if errBody.Code == 0 {
			errBody.Code = resp.StatusCode
		}
		if errBody.Msg == "" {
			errBody.Msg = resp.Status
		}
		return &RequestError{
			Code:    errBody.Code,
			Msg:     errBody.Msg,
			Details: errBody.Details,
			Kind:    classifyKind(resp.StatusCode, errBody.Msg),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("suno: decode response: %w", err)
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
