package httpsec

import (
	"crypto/hmac"
	"crypto/sha256"
	"fmt"
)

// VerifyJobToken はジョブ起動リクエストの X-Job-Token ヘッダを検証します。
// Cloud Scheduler 側のジョブ定義に共有シークレットを持たせ、
// スケジューラ以外からのジョブ実行を拒否します
func VerifyJobToken(expected, received string) error {
	if received == "" {
		return fmt.Errorf("job token がありません")
	}

	// 定時間比較（タイミング攻撃対策）。長さ差を漏らさないためダイジェストを比較
	expectedSum := sha256.Sum256([]byte(expected))
	receivedSum := sha256.Sum256([]byte(received))
	if !hmac.Equal(expectedSum[:], receivedSum[:]) {
		return fmt.Errorf("job token が一致しません")
	}

	return nil
}
