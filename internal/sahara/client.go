// Package sahara talks to the Sahara Legends web API: wallet sign-in and the
// flush/claim calls behind the daily tasks.
package sahara

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"sahara/internal/evm"
	"sahara/internal/logger"
	"sahara/internal/retry"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

var (
	// ErrUnexpectedResponse indicates a status or body the client does not know how to read.
	ErrUnexpectedResponse = errors.New("unexpected sahara api response")
)

// Client is safe for concurrent use by many wallet workers.
type Client struct {
	http       *resty.Client
	limiter    *rate.Limiter
	walletName string
	log        logger.Logger
	now        func() time.Time
}

// Options configure a Client.
type Options struct {
	BaseURL    string
	WalletName string
	// RequestsPerSecond limits calls across all wallets; 0 disables the limit.
	RequestsPerSecond float64
	Timeout           time.Duration
}

// NewClient creates an API client.
func NewClient(opts Options, log logger.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		http:       httpClient,
		limiter:    limiter,
		walletName: opts.WalletName,
		log:        log,
		now:        time.Now,
	}
}

// Session is an authenticated wallet session.
type Session struct {
	client  *Client
	token   string
	address string
}

// Token returns the bearer token of the session.
func (s *Session) Token() string { return s.token }

// SignInMessage is the text the wallet signs to log in.
func SignInMessage(challenge string) string {
	return "Sign in to Sahara!\nChallenge:" + challenge
}

// Login requests a challenge, signs it with the wallet key and exchanges the signature for a token.
func (c *Client) Login(ctx context.Context, signer *evm.Signer) (*Session, error) {
	address := signer.Address().Hex()

	resp, err := c.post(ctx, "", "/user/challenge", map[string]any{
		"address":   address,
		"timestamp": c.now().UnixMilli(),
	})
	if err != nil {
		return nil, fmt.Errorf("challenge: %w", err)
	}
	if err := checkStatus(resp, http.StatusOK, http.StatusCreated); err != nil {
		return nil, fmt.Errorf("challenge: %w", err)
	}
	challenge := gjson.GetBytes(resp.Body(), "challenge").String()
	if challenge == "" {
		return nil, fmt.Errorf("challenge: %w: no challenge in %s", ErrUnexpectedResponse, resp.String())
	}

	sig, err := signer.SignPersonalMessageHex(SignInMessage(challenge))
	if err != nil {
		return nil, fmt.Errorf("sign challenge: %w", err)
	}

	resp, err = c.post(ctx, "", "/login/wallet", map[string]any{
		"address":    address,
		"sig":        sig,
		"walletUUID": uuid.NewString(),
		"walletName": c.walletName,
		"timestamp":  c.now().UnixMilli(),
	})
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if err := checkStatus(resp, http.StatusOK, http.StatusCreated); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	token := gjson.GetBytes(resp.Body(), "accessToken").String()
	if token == "" {
		return nil, fmt.Errorf("login: %w: no accessToken in %s", ErrUnexpectedResponse, resp.String())
	}

	c.log.Success("Вход в Sahara выполнен", "addr", address)
	return &Session{client: c, token: token, address: address}, nil
}

// FlushTask asks the backend to re-check a task's completion conditions.
func (s *Session) FlushTask(ctx context.Context, taskID string) error {
	resp, err := s.client.post(ctx, s.token, "/task/flush", map[string]any{
		"taskID":    taskID,
		"timestamp": s.client.now().UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("flush task %s: %w", taskID, err)
	}
	if err := checkStatus(resp, http.StatusOK, http.StatusCreated); err != nil {
		return fmt.Errorf("flush task %s: %w", taskID, err)
	}
	return nil
}

// ClaimTask claims the reward for a task. A task claimed earlier yields retry.ErrAlreadyDone.
func (s *Session) ClaimTask(ctx context.Context, taskID string) error {
	resp, err := s.client.post(ctx, s.token, "/task/claim", map[string]any{
		"taskID":    taskID,
		"timestamp": s.client.now().UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("claim task %s: %w", taskID, err)
	}
	if resp.StatusCode() == http.StatusBadRequest && strings.Contains(resp.String(), "has been claimed") {
		return fmt.Errorf("claim task %s: %w", taskID, retry.ErrAlreadyDone)
	}
	if err := checkStatus(resp, http.StatusOK, http.StatusCreated); err != nil {
		return fmt.Errorf("claim task %s: %w", taskID, err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, token, path string, body any) (*resty.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req := c.http.R().SetContext(ctx).SetBody(body)
	if token != "" {
		req.SetAuthToken(token)
	}
	return req.Post(path)
}

// checkStatus maps HTTP statuses onto the retry sentinels.
func checkStatus(resp *resty.Response, allowed ...int) error {
	code := resp.StatusCode()
	for _, a := range allowed {
		if code == a {
			return nil
		}
	}
	msg := gjson.GetBytes(resp.Body(), "msg").String()
	if msg == "" {
		msg = strings.TrimSpace(resp.String())
	}
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: status %d: %s", retry.ErrUnauthorized, code, msg)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", retry.ErrRateLimited, msg)
	default:
		return fmt.Errorf("%w: status %d: %s", ErrUnexpectedResponse, code, msg)
	}
}
