package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"attendance-bot/project/infrastructure/config"
)

// CloudSchedulerClient は service.SchedulerPort の Cloud Scheduler 実装です。
// 勤怠監視（5分おき）と日次スイープの定期トリガーを REST API 経由で登録・削除します
type CloudSchedulerClient struct {
	project      string
	region       string
	audience     string // OIDC Audience (Cloud Run サービスの URL)
	timezone     string
	jobAuthToken string
	httpClient   *http.Client
}

// NewCloudSchedulerClient は Cloud Scheduler クライアントを初期化します
func NewCloudSchedulerClient(cfg *config.Config) *CloudSchedulerClient {
	return &CloudSchedulerClient{
		project:      cfg.GcpProject,
		region:       cfg.Region,
		audience:     cfg.AppBaseURL,
		timezone:     cfg.Location.String(),
		jobAuthToken: cfg.JobAuthToken,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// EnsureRecurring は cron 式の定期ジョブを登録します。
// 同名ジョブが既に存在する場合は定義を上書きします
func (cs *CloudSchedulerClient) EnsureRecurring(ctx context.Context, jobID, schedule, path string) error {
	jobBody := map[string]interface{}{
		"name":     cs.jobName(jobID),
		"schedule": schedule,
		"timeZone": cs.timezone,
		"httpTarget": map[string]interface{}{
			"uri":        fmt.Sprintf("%s%s", cs.audience, path),
			"httpMethod": "POST",
			"headers": map[string]string{
				"Content-Type": "application/json",
				"X-Job-Token":  cs.jobAuthToken,
			},
		},
	}

	bodyJSON, err := json.Marshal(jobBody)
	if err != nil {
		return fmt.Errorf("cloudscheduler: ジョブボディ JSON 化失敗: %w", err)
	}

	// まず作成を試み、既存（409）なら更新に切り替える
	createURL := fmt.Sprintf("https://cloudscheduler.googleapis.com/v1/%s/jobs", cs.parent())
	status, respBody, err := cs.do(ctx, http.MethodPost, createURL, bodyJSON)
	if err != nil {
		return err
	}
	if status == http.StatusConflict {
		patchURL := fmt.Sprintf("https://cloudscheduler.googleapis.com/v1/%s", cs.jobName(jobID))
		status, respBody, err = cs.do(ctx, http.MethodPatch, patchURL, bodyJSON)
		if err != nil {
			return err
		}
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("cloudscheduler: ジョブ登録失敗 (job=%s, status=%d): %s", jobID, status, respBody)
	}

	return nil
}

// Cancel は定期ジョブを削除します。存在しない場合は成功扱いです
func (cs *CloudSchedulerClient) Cancel(ctx context.Context, jobID string) error {
	deleteURL := fmt.Sprintf("https://cloudscheduler.googleapis.com/v1/%s", cs.jobName(jobID))
	status, respBody, err := cs.do(ctx, http.MethodDelete, deleteURL, nil)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return nil
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("cloudscheduler: ジョブ削除失敗 (job=%s, status=%d): %s", jobID, status, respBody)
	}

	return nil
}

// do は Cloud Scheduler API への1回分のHTTP呼び出しです
// Cloud Run から呼ぶ場合、ワークロード ID 連携で自動的に認証されます
func (cs *CloudSchedulerClient) do(ctx context.Context, method, url string, body []byte) (int, string, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, "", fmt.Errorf("cloudscheduler: リクエスト作成失敗: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := cs.httpClient.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("cloudscheduler: リクエスト送信失敗 (%s %s): %w", method, url, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(respBody), nil
}

func (cs *CloudSchedulerClient) parent() string {
	return fmt.Sprintf("projects/%s/locations/%s", cs.project, cs.region)
}

func (cs *CloudSchedulerClient) jobName(jobID string) string {
	return fmt.Sprintf("%s/jobs/%s", cs.parent(), jobID)
}

// Close はクライアントを閉じます（リソースクリーンアップ）
func (cs *CloudSchedulerClient) Close() error {
	if cs.httpClient != nil {
		cs.httpClient.CloseIdleConnections()
	}
	return nil
}
