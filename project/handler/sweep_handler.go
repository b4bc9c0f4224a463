package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"attendance-bot/project/infrastructure/config"
	"attendance-bot/project/infrastructure/httpsec"
	"attendance-bot/project/service"

	"go.uber.org/zap"
)

// SweepHandler は日次の退勤漏れ処理ジョブを処理します
type SweepHandler struct {
	cfg               *config.Config
	attendanceService service.AttendanceService
	logger            *zap.Logger
}

// NewSweepHandler はスイープハンドラーを作成します
func NewSweepHandler(cfg *config.Config, attendanceService service.AttendanceService, logger *zap.Logger) *SweepHandler {
	return &SweepHandler{
		cfg:               cfg,
		attendanceService: attendanceService,
		logger:            logger,
	}
}

// sweepResponse はスイープ実行結果のレスポンスです
type sweepResponse struct {
	Status          string `json:"status"`
	ForcedClockOuts int    `json:"forced_clock_outs"`
	Failures        int    `json:"failures"`
}

// ServeHTTP は /jobs/sweep エンドポイント
func (h *SweepHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := httpsec.VerifyJobToken(h.cfg.JobAuthToken, r.Header.Get("X-Job-Token")); err != nil {
		h.logger.Warn("ジョブトークン検証失敗", zap.Error(err))
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	// チャンネル数×ユーザー数ぶんの勤怠API呼び出しが走るため長めのタイムアウト
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Second)
	defer cancel()

	report, err := h.attendanceService.RunDailySweep(ctx)
	if err != nil {
		h.logger.Error("日次スイープジョブ失敗", zap.Error(err))
		w.WriteHeader(http.StatusOK)
		return
	}

	for _, f := range report.Failures {
		h.logger.Warn("スイープ内の失敗",
			zap.String("channel", f.ChannelID),
			zap.String("user", f.UserID),
			zap.Error(f.Err))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(sweepResponse{
		Status:          "ok",
		ForcedClockOuts: len(report.ForcedClockOuts),
		Failures:        len(report.Failures),
	})
}
