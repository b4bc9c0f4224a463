package handler

import (
	"context"
	"net/http"
	"time"

	"attendance-bot/project/infrastructure/config"
	"attendance-bot/project/infrastructure/httpsec"
	"attendance-bot/project/service"

	"go.uber.org/zap"
)

// AttendanceHandler は5分おきの勤怠監視ジョブを処理します
type AttendanceHandler struct {
	cfg               *config.Config
	attendanceService service.AttendanceService
	logger            *zap.Logger
}

// NewAttendanceHandler は勤怠監視ハンドラーを作成します
func NewAttendanceHandler(cfg *config.Config, attendanceService service.AttendanceService, logger *zap.Logger) *AttendanceHandler {
	return &AttendanceHandler{
		cfg:               cfg,
		attendanceService: attendanceService,
		logger:            logger,
	}
}

// ServeHTTP は /jobs/attendance エンドポイント
func (h *AttendanceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Cloud Scheduler 以外からの実行を拒否
	if err := httpsec.VerifyJobToken(h.cfg.JobAuthToken, r.Header.Get("X-Job-Token")); err != nil {
		h.logger.Warn("ジョブトークン検証失敗", zap.Error(err))
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	if err := h.attendanceService.RunTimeRecording(ctx); err != nil {
		// メッセージ単位の失敗はサービス側で吸収済み。
		// ここに届くのは想定外の失敗のみで、再実行で再導出されるため 200 を返す
		h.logger.Error("勤怠監視ジョブ失敗", zap.Error(err))
		w.WriteHeader(http.StatusOK)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
