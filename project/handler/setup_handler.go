package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"attendance-bot/project/infrastructure/config"
	"attendance-bot/project/infrastructure/httpsec"
	"attendance-bot/project/service"

	"go.uber.org/zap"
)

// 定期ジョブのID。Cloud Scheduler 上のジョブ名に使われます
const (
	jobIDLiveMonitor = "attendance-live-monitor"
	jobIDDailySweep  = "attendance-daily-sweep"
)

// SetupHandler は定期トリガーの登録・解除を処理します
type SetupHandler struct {
	cfg       *config.Config
	scheduler service.SchedulerPort
	logger    *zap.Logger
}

// NewSetupHandler はトリガー設定ハンドラーを作成します
func NewSetupHandler(cfg *config.Config, scheduler service.SchedulerPort, logger *zap.Logger) *SetupHandler {
	return &SetupHandler{
		cfg:       cfg,
		scheduler: scheduler,
		logger:    logger,
	}
}

// ServeHTTP は /admin/triggers エンドポイント。
// POST で監視ジョブとスイープジョブを登録し、DELETE で両方を解除します
func (h *SetupHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := httpsec.VerifyJobToken(h.cfg.JobAuthToken, r.Header.Get("X-Job-Token")); err != nil {
		h.logger.Warn("ジョブトークン検証失敗", zap.Error(err))
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch r.Method {
	case http.MethodPost:
		h.register(ctx, w)
	case http.MethodDelete:
		h.cancel(ctx, w)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// register は2つの定期ジョブを登録します（既存なら上書き）
func (h *SetupHandler) register(ctx context.Context, w http.ResponseWriter) {
	// 5分おきの勤怠監視
	if err := h.scheduler.EnsureRecurring(ctx, jobIDLiveMonitor, "*/5 * * * *", "/jobs/attendance"); err != nil {
		h.logger.Error("監視ジョブ登録失敗", zap.Error(err))
		http.Error(w, "監視ジョブの登録に失敗しました", http.StatusInternalServerError)
		return
	}

	// 勤務日の切り替わり時刻に前日分を締める
	sweepCron := fmt.Sprintf("0 %d * * *", h.cfg.DayStartHour)
	if err := h.scheduler.EnsureRecurring(ctx, jobIDDailySweep, sweepCron, "/jobs/sweep"); err != nil {
		h.logger.Error("スイープジョブ登録失敗", zap.Error(err))
		http.Error(w, "スイープジョブの登録に失敗しました", http.StatusInternalServerError)
		return
	}

	h.logger.Info("定期ジョブ登録完了",
		zap.String("live_monitor", jobIDLiveMonitor),
		zap.String("daily_sweep", jobIDDailySweep))

	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"registered"}`))
}

// cancel は2つの定期ジョブを解除します（存在しなくても成功扱い）
func (h *SetupHandler) cancel(ctx context.Context, w http.ResponseWriter) {
	for _, jobID := range []string{jobIDLiveMonitor, jobIDDailySweep} {
		if err := h.scheduler.Cancel(ctx, jobID); err != nil {
			h.logger.Error("定期ジョブ解除失敗", zap.String("job", jobID), zap.Error(err))
			http.Error(w, "定期ジョブの解除に失敗しました", http.StatusInternalServerError)
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"cancelled"}`))
}
