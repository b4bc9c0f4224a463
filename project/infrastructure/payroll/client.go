package payroll

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"attendance-bot/project/domain"
	"attendance-bot/project/dto"

	"golang.org/x/oauth2"
)

// ErrTransient は勤怠APIの一時的な失敗（HTTP 500）です。リトライ対象
var ErrTransient = errors.New("payroll: 一時的なエラー")

// APIError はリトライ対象外の勤怠APIエラーです。
// 診断のため生のレスポンスボディを保持します
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("payroll: APIエラー (status=%d): %s", e.Status, e.Body)
}

// リトライ方針: 合計3回まで、待機は基本1秒＋試行回数×1秒
const (
	defaultMaxAttempts   = 3
	defaultRetryInterval = time.Second
)

// Client は勤怠プロバイダ（タイムレコーダー/勤務記録）REST APIのクライアントです
type Client struct {
	baseURL     string
	companyID   int64
	tokenSource oauth2.TokenSource
	httpClient  *http.Client
	maxAttempts int
	interval    time.Duration
	sleep       func(time.Duration) // テストで差し替え
}

// NewClient は勤怠APIクライアントを初期化します
func NewClient(baseURL string, companyID int64, tokenSource oauth2.TokenSource) *Client {
	return &Client{
		baseURL:     baseURL,
		companyID:   companyID,
		tokenSource: tokenSource,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		maxAttempts: defaultMaxAttempts,
		interval:    defaultRetryInterval,
		sleep:       time.Sleep,
	}
}

// RegisterTimeClock は打刻（出勤・退勤・休憩開始・休憩終了）を登録します
func (c *Client) RegisterTimeClock(ctx context.Context, employeeID int64, req dto.TimeClockRequest) (*dto.TimeClock, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("payroll: 打刻リクエスト検証失敗: %w", err)
	}

	var resp dto.TimeClockResponse
	path := fmt.Sprintf("/api/v1/employees/%d/time_clocks", employeeID)
	if err := c.withRetry(ctx, func() error {
		return c.doJSON(ctx, http.MethodPost, path, nil, req, &resp)
	}); err != nil {
		return nil, fmt.Errorf("payroll: 打刻登録失敗 (employee=%d, type=%s): %w", employeeID, req.Type, err)
	}

	return &resp.EmployeeTimeClock, nil
}

// GetWorkRecord は指定日の勤務記録を取得します
func (c *Client) GetWorkRecord(ctx context.Context, employeeID int64, date string) (*dto.WorkRecord, error) {
	var record dto.WorkRecord
	path := fmt.Sprintf("/api/v1/employees/%d/work_records/%s", employeeID, date)
	query := url.Values{"company_id": {fmt.Sprint(c.companyID)}}
	if err := c.withRetry(ctx, func() error {
		return c.doJSON(ctx, http.MethodGet, path, query, nil, &record)
	}); err != nil {
		return nil, fmt.Errorf("payroll: 勤務記録取得失敗 (employee=%d, date=%s): %w", employeeID, date, err)
	}

	return &record, nil
}

// UpdateWorkRecord は指定日の勤務記録（休憩・メモ・出退勤時刻）を置き換えます
func (c *Client) UpdateWorkRecord(ctx context.Context, employeeID int64, date string, req dto.WorkRecordUpdateRequest) error {
	req.CompanyID = c.companyID
	if err := req.Validate(); err != nil {
		return fmt.Errorf("payroll: 勤務記録更新リクエスト検証失敗: %w", err)
	}

	path := fmt.Sprintf("/api/v1/employees/%d/work_records/%s", employeeID, date)
	if err := c.withRetry(ctx, func() error {
		return c.doJSON(ctx, http.MethodPut, path, nil, req, nil)
	}); err != nil {
		return fmt.Errorf("payroll: 勤務記録更新失敗 (employee=%d, date=%s): %w", employeeID, date, err)
	}

	return nil
}

// FindEmployeeByEmail はメールアドレスから従業員を検索します。
// 一覧APIをページングしながら全件照合します
func (c *Client) FindEmployeeByEmail(ctx context.Context, email string) (*dto.Employee, error) {
	const pageLimit = 100
	path := fmt.Sprintf("/api/v1/companies/%d/employees", c.companyID)

	for page := 1; ; page++ {
		var resp dto.EmployeesResponse
		query := url.Values{
			"limit": {fmt.Sprint(pageLimit)},
			"page":  {fmt.Sprint(page)},
		}
		if err := c.withRetry(ctx, func() error {
			return c.doJSON(ctx, http.MethodGet, path, query, nil, &resp)
		}); err != nil {
			return nil, fmt.Errorf("payroll: 従業員一覧取得失敗 (page=%d): %w", page, err)
		}

		for _, e := range resp.Employees {
			if e.Email == email {
				emp := e
				return &emp, nil
			}
		}

		if len(resp.Employees) < pageLimit {
			return nil, fmt.Errorf("%w: メールアドレスに一致する従業員がいません (email=%s)", domain.ErrIdentity, email)
		}
	}
}

// withRetry は一時的な失敗に限り、試行上限までバックオフ付きで再実行します。
// 上限到達後は最後の失敗をそのまま返します
func (c *Client) withRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !errors.Is(lastErr, ErrTransient) || attempt == c.maxAttempts {
			return lastErr
		}
		// 待機: 基本間隔 + 試行回数×間隔
		c.sleep(c.interval + time.Duration(attempt)*c.interval)
	}
	return lastErr
}

// doJSON は1回分のHTTP呼び出しです。HTTPステータスを分類します:
// 200/201 はデコードして成功、500 は一時的失敗（リトライ対象）、
// それ以外はレスポンスボディを添えた恒久的失敗
func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("payroll: リクエストJSON化失敗: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("payroll: リクエスト作成失敗: %w", err)
	}

	token, err := c.tokenSource.Token()
	if err != nil {
		return fmt.Errorf("payroll: ベアラートークン取得失敗: %w", err)
	}
	token.SetAuthHeader(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("payroll: リクエスト送信失敗 (%s %s): %w", method, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("payroll: レスポンスデコード失敗 (%s %s): %w", method, path, err)
		}
		return nil
	case resp.StatusCode == http.StatusInternalServerError:
		return fmt.Errorf("%w (status=%d, %s %s)", ErrTransient, resp.StatusCode, method, path)
	default:
		respBody, _ := io.ReadAll(resp.Body)
		return &APIError{Status: resp.StatusCode, Body: string(respBody)}
	}
}
