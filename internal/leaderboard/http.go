package leaderboard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pigbots/pigbots/internal/pig"
)

// HTTP is a client for a remote leaderboard service. The win threshold
// is fetched once when the client is created; completion reports and
// count queries go to the service on every call.
type HTTP struct {
	baseURL   string
	client    *http.Client
	threshold int
}

type reportRequest struct {
	Player     string `json:"player"`
	TotalScore int    `json:"totalScore"`
	Rounds     int    `json:"rounds"`
	Turns      int    `json:"turns"`
}

type thresholdResponse struct {
	WinThreshold int `json:"winThreshold"`
}

type countResponse struct {
	Player string `json:"player"`
	Count  int    `json:"count"`
	Known  bool   `json:"known"`
}

// NewHTTP creates a client for the leaderboard service at baseURL and
// fetches the service's win threshold. A zero timeout defaults to two
// seconds.
func NewHTTP(ctx context.Context, baseURL string, timeout time.Duration) (*HTTP, error) {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	h := &HTTP{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}

	threshold, err := h.fetchThreshold(ctx)
	if err != nil {
		return nil, err
	}
	h.threshold = threshold
	return h, nil
}

func (h *HTTP) WinThreshold() int {
	return h.threshold
}

func (h *HTTP) fetchThreshold(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+"/threshold", nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: threshold status %d", ErrUnavailable, resp.StatusCode)
	}

	var tr thresholdResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&tr); err != nil {
		return 0, fmt.Errorf("%w: decode error: %v", ErrUnavailable, err)
	}
	if tr.WinThreshold <= 0 {
		return 0, fmt.Errorf("%w: bad threshold %d", ErrUnavailable, tr.WinThreshold)
	}
	return tr.WinThreshold, nil
}

func (h *HTTP) ReportCompletion(ctx context.Context, player string, c pig.Completion) error {
	body, err := json.Marshal(reportRequest{
		Player:     player,
		TotalScore: c.TotalScore,
		Rounds:     c.Rounds,
		Turns:      c.Turns,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+"/completions", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		return nil
	case http.StatusBadRequest, http.StatusUnprocessableEntity, http.StatusConflict:
		// Definitive rejection: the service refused to record the game.
		return fmt.Errorf("%w: status %d", ErrRejected, resp.StatusCode)
	default:
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
}

func (h *HTTP) CompletedGamesFor(ctx context.Context, player string) (int, bool, error) {
	u := h.baseURL + "/players/" + url.PathEscape(player) + "/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, false, fmt.Errorf("create request: %w", err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return 0, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return 0, false, nil
	default:
		return 0, false, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var cr countResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&cr); err != nil {
		return 0, false, fmt.Errorf("%w: decode error: %v", ErrUnavailable, err)
	}
	return cr.Count, cr.Known || cr.Count > 0, nil
}
