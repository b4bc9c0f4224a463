package slack

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"attendance-bot/project/domain"

	"github.com/slack-go/slack"
)

// Client は service.ChatPort の Slack SDK 実装です
type Client struct {
	api       *slack.Client
	botUserID string
	location  *time.Location
}

// NewClient は Slack クライアントを初期化します。
// botUserID は処理マーカー（リアクション）の付与元判定に使います
func NewClient(token, botUserID string, location *time.Location) *Client {
	return &Client{
		api:       slack.New(token),
		botUserID: botUserID,
		location:  location,
	}
}

// FetchMessages は [oldest, latest] のチャンネル履歴を時系列昇順で取得します。
// ページングはカーソルがなくなるまでループします
func (c *Client) FetchMessages(ctx context.Context, channelID string, oldest, latest time.Time) ([]domain.ChatMessage, error) {
	var messages []domain.ChatMessage
	cursor := ""

	for {
		resp, err := c.api.GetConversationHistoryContext(ctx, &slack.GetConversationHistoryParameters{
			ChannelID: channelID,
			Oldest:    slackTimestamp(oldest),
			Latest:    slackTimestamp(latest),
			Cursor:    cursor,
			Limit:     200,
			Inclusive: true,
		})
		if err != nil {
			return nil, fmt.Errorf("slack: 履歴取得失敗 (channel=%s): %w", channelID, err)
		}

		for _, m := range resp.Messages {
			// Bot自身やシステムメッセージは勤怠コマンドになり得ない
			if m.User == "" || m.User == c.botUserID || m.SubType != "" {
				continue
			}
			converted, err := c.toChatMessage(m)
			if err != nil {
				return nil, err
			}
			messages = append(messages, converted)
		}

		cursor = resp.ResponseMetaData.NextCursor
		if cursor == "" {
			break
		}
	}

	// conversations.history は新しい順で返すため昇順へ並べ替え
	sort.Slice(messages, func(i, j int) bool {
		return messages[i].Time.Before(messages[j].Time)
	})

	return messages, nil
}

// toChatMessage は Slack メッセージをドメインのメッセージへ写します
func (c *Client) toChatMessage(m slack.Message) (domain.ChatMessage, error) {
	ts, err := parseSlackTimestamp(m.Timestamp)
	if err != nil {
		return domain.ChatMessage{}, fmt.Errorf("slack: タイムスタンプ解析失敗 (ts=%s): %w", m.Timestamp, err)
	}

	var botReactions []string
	for _, r := range m.Reactions {
		for _, u := range r.Users {
			if u == c.botUserID {
				botReactions = append(botReactions, r.Name)
				break
			}
		}
	}

	return domain.ChatMessage{
		UserID:       m.User,
		Text:         m.Text,
		Timestamp:    m.Timestamp,
		Time:         ts.In(c.location),
		BotReactions: botReactions,
	}, nil
}

// AddReaction はメッセージへリアクション（処理マーカー）を付与します
func (c *Client) AddReaction(ctx context.Context, channelID, messageTS, name string) error {
	err := c.api.AddReactionContext(ctx, name, slack.NewRefToMessage(channelID, messageTS))
	if err != nil && err.Error() != "already_reacted" {
		return fmt.Errorf("slack: リアクション付与失敗 (channel=%s, ts=%s, name=%s): %w", channelID, messageTS, name, err)
	}
	return nil
}

// PostMessage はチャンネルへメッセージを投稿します。
// threadTS が空でない場合はスレッド返信になります
func (c *Client) PostMessage(ctx context.Context, channelID, threadTS, text string) error {
	options := []slack.MsgOption{slack.MsgOptionText(text, false)}
	if threadTS != "" {
		options = append(options, slack.MsgOptionTS(threadTS))
	}

	_, _, err := c.api.PostMessageContext(ctx, channelID, options...)
	if err != nil {
		return fmt.Errorf("slack: メッセージ投稿失敗 (channel=%s, thread=%s): %w", channelID, threadTS, err)
	}
	return nil
}

// PostScheduledMessage は指定時刻（Unix秒）に投稿される予約メッセージを登録します
func (c *Client) PostScheduledMessage(ctx context.Context, channelID, text string, postAt int64) error {
	_, _, err := c.api.ScheduleMessageContext(
		ctx,
		channelID,
		strconv.FormatInt(postAt, 10),
		slack.MsgOptionText(text, false),
	)
	if err != nil {
		return fmt.Errorf("slack: 予約メッセージ登録失敗 (channel=%s, post_at=%d): %w", channelID, postAt, err)
	}
	return nil
}

// LookupEmailByUserID は users.info からメールアドレスを取得します。
// キャッシュは持ちません（実行ごとに都度解決）
func (c *Client) LookupEmailByUserID(ctx context.Context, userID string) (string, error) {
	user, err := c.api.GetUserInfoContext(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("%w: ユーザー情報取得失敗 (user=%s): %v", domain.ErrIdentity, userID, err)
	}
	if user.Profile.Email == "" {
		return "", fmt.Errorf("%w: メールアドレスが未設定です (user=%s)", domain.ErrIdentity, userID)
	}
	return user.Profile.Email, nil
}

// slackTimestamp は time.Time を Slack の ts 形式（秒.マイクロ秒）へ変換します
func slackTimestamp(t time.Time) string {
	return fmt.Sprintf("%d.%06d", t.Unix(), t.Nanosecond()/1000)
}

// parseSlackTimestamp は "1234567890.123456" 形式の ts を時刻へ変換します
func parseSlackTimestamp(ts string) (time.Time, error) {
	parts := strings.SplitN(ts, ".", 2)
	sec, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	var micro int64
	if len(parts) == 2 {
		padded := (parts[1] + "000000")[:6]
		micro, err = strconv.ParseInt(padded, 10, 64)
		if err != nil {
			return time.Time{}, err
		}
	}
	return time.Unix(sec, micro*1000), nil
}
