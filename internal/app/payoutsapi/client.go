package payoutsapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/serg2014/go-payouts-dashboard/internal/app/models"
	"github.com/serg2014/go-payouts-dashboard/internal/logger"
	"go.uber.org/zap"
)

const AccessTokenCookie = "access_token"

var (
	ErrUnauthorized            = errors.New("http 401")
	ErrHTTPTooManyRequests     = errors.New("http 429")
	ErrHTTPInternalServerError = errors.New("http 500")
	ErrHTTPOther               = errors.New("http other")
	ErrTimeout                 = errors.New("timeout")
	ErrContext                 = errors.New("error context")
	ErrDoneContext             = errors.New("done context")
)

// DefaultRetries паузы между повторами идемпотентных GET
var DefaultRetries = []time.Duration{
	1500 * time.Millisecond,
	3000 * time.Millisecond,
	0 * time.Millisecond,
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	retries    []time.Duration
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		retries: DefaultRetries,
	}
}

func (c *Client) WithRetries(retries []time.Duration) *Client {
	c.retries = retries
	return c
}

// LoginURL точка входа внешнего провайдера идентификации
func (c *Client) LoginURL() string {
	return c.baseURL + "/auth/login"
}

func (c *Client) ListPayouts(ctx context.Context, token string, offset, limit int) (*models.PaginatedPayouts, error) {
	q := url.Values{}
	q.Set("offset", strconv.Itoa(offset))
	q.Set("limit", strconv.Itoa(limit))
	endpoint := fmt.Sprintf("%s/payouts?%s", c.baseURL, q.Encode())

	data := models.PaginatedPayouts{}
	if err := c.getWithRetries(ctx, token, endpoint, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

func (c *Client) Me(ctx context.Context, token string) (*models.UserProfile, error) {
	data := models.UserProfile{}
	if err := c.getWithRetries(ctx, token, c.baseURL+"/user/me", &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// CreatePayout отправляет запрос ровно один раз.
// Повтор с тем же ключом идемпотентности решает вызывающий.
func (c *Client) CreatePayout(ctx context.Context, token string, payout models.NewPayout) (*models.Payout, error) {
	body, err := json.Marshal(payout)
	if err != nil {
		return nil, fmt.Errorf("failed marshal payout: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/payouts/", bytes.NewReader(body))
	if err != nil {
		return nil, ErrContext
	}
	req.Header.Set("Content-Type", "application/json")

	data := models.Payout{}
	if err := c.do(req, token, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

func (c *Client) getWithRetries(ctx context.Context, token, endpoint string, data any) error {
	retries := c.retries
	if len(retries) == 0 {
		retries = []time.Duration{0}
	}
	var err error
	for _, dur := range retries {
		err = c.get(ctx, token, endpoint, data)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrTimeout) ||
			errors.Is(err, ErrHTTPInternalServerError) ||
			errors.Is(err, ErrHTTPTooManyRequests) {
			logger.Log.Debug("retry payouts api", zap.String("url", endpoint), zap.Error(err))
			timeout := time.After(dur)
			select {
			case <-timeout:
				continue
			case <-ctx.Done():
				return ErrDoneContext
			}
		}
		return err
	}
	return err
}

func (c *Client) get(ctx context.Context, token, endpoint string, data any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return ErrContext
	}
	return c.do(req, token, data)
}

func (c *Client) do(req *http.Request, token string, data any) error {
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: token})
	req.Header.Set("Accept", "application/json")

	response, err := c.httpClient.Do(req)
	if err != nil {
		if os.IsTimeout(err) {
			return ErrTimeout
		}
		return fmt.Errorf("failed %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer response.Body.Close()

	if err := statusToError(response.StatusCode); err != nil {
		// тело нужно только для лога
		detail, _ := io.ReadAll(io.LimitReader(response.Body, 512))
		logger.Log.Debug("payouts api error",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Int("status", response.StatusCode),
			zap.ByteString("body", detail),
		)
		return err
	}

	dec := json.NewDecoder(response.Body)
	if err := dec.Decode(data); err != nil {
		if os.IsTimeout(err) {
			return ErrTimeout
		}
		return fmt.Errorf("bad json: %w", err)
	}
	return nil
}

func statusToError(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return ErrUnauthorized
	case code == http.StatusTooManyRequests:
		return ErrHTTPTooManyRequests
	case code == http.StatusInternalServerError:
		return ErrHTTPInternalServerError
	}
	return fmt.Errorf("%w: %d", ErrHTTPOther, code)
}
