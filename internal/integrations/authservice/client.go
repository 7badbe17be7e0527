package authservice

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Client клиент для проверки прав пользователя в AuthService
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        Logger
}

// NewClient создает новый экземпляр клиента AuthService
func NewClient(baseURL string, timeout time.Duration, log Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

// CanAccess проверяет, есть ли у пользователя право permission над расписанием врача.
// Неизвестный пользователь (404) получает отказ без ошибки.
func (c *Client) CanAccess(ctx context.Context, userID, doctorID int64, permission string) (bool, error) {
	query := url.Values{}
	query.Set("doctor_id", strconv.FormatInt(doctorID, 10))
	query.Set("permission", permission)
	endpoint := fmt.Sprintf("%s/internal/users/%d/access?%s", c.baseURL, userID, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("%w: failed to create request: %w", ErrInternal, err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: failed to execute request: %w", ErrInternal, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// Продолжаем обработку
	case http.StatusNotFound, http.StatusForbidden:
		c.log.Warn("CanAccess: user=%d denied %s for doctor=%d (status %d)", userID, permission, doctorID, resp.StatusCode)
		return false, nil
	default:
		body, _ := io.ReadAll(resp.Body)
		return false, fmt.Errorf("%w: unexpected status code %d: %s", ErrInvalidResponse, resp.StatusCode, string(body))
	}

	var access AccessResponse
	if err := json.NewDecoder(resp.Body).Decode(&access); err != nil {
		return false, fmt.Errorf("%w: failed to decode response: %w", ErrInvalidResponse, err)
	}

	return access.Allowed, nil
}
