package services

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shiftbot/core/internal/domain/entities"
	"github.com/shiftbot/core/internal/infrastructure/logger"
	"github.com/shiftbot/core/internal/ports"
)

// botMentions are the handles staff use to address the bot in a group chat.
var botMentions = []string{"@シフトボット", "@シフト", "@shift", "@bot"}

var timeRangeRe = regexp.MustCompile(`(\d{1,2})時.*?(\d{1,2})時`)

// LineMessenger sends replies and pushes through the LINE Messaging API.
type LineMessenger interface {
	Reply(ctx context.Context, replyToken, text string) error
	Push(ctx context.Context, to, text string) error
}

// TextMessageEvent is a text message received from the webhook.
type TextMessageEvent struct {
	LineUserID string
	ReplyToken string
	Text       string
}

// BotService turns chat messages into store operations and canned replies
type BotService struct {
	users   *UserService
	shifts  *ShiftService
	notices *NoticeService
	store   ports.Datastore

	messenger LineMessenger
	logger    *logger.Logger
	baseURL   string
	now       func() time.Time
}

// NewBotService creates a new bot service
func NewBotService(users *UserService, shifts *ShiftService, notices *NoticeService, store ports.Datastore, messenger LineMessenger, baseURL string, logger *logger.Logger) *BotService {
	return &BotService{
		users:     users,
		shifts:    shifts,
		notices:   notices,
		store:     store,
		messenger: messenger,
		logger:    logger,
		baseURL:   baseURL,
		now:       time.Now,
	}
}

// WithClock overrides the bot's time source. Used in tests.
func (s *BotService) WithClock(now func() time.Time) *BotService {
	s.now = now
	return s
}

// HasMention reports whether the text addresses the bot.
func HasMention(text string) bool {
	for _, m := range botMentions {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}

// StripMention removes every bot handle from the text.
func StripMention(text string) string {
	for _, m := range botMentions {
		text = strings.ReplaceAll(text, m, "")
	}
	return strings.TrimSpace(text)
}

// HandleTextMessage processes one text message from the group chat. Messages
// without a mention are archived on the day's message board; mentions get a
// reply.
func (s *BotService) HandleTextMessage(ctx context.Context, ev TextMessageEvent) error {
	if !HasMention(ev.Text) {
		return s.archiveGroupMessage(ctx, ev)
	}

	user, created, err := s.users.RegisterFromLine(ctx, ev.LineUserID, "")
	if err != nil {
		return fmt.Errorf("register user: %w", err)
	}
	if created {
		if err := s.messenger.Push(ctx, ev.LineUserID, welcomeMessage()); err != nil {
			s.logger.Warnw("Welcome push failed", "line_user_id", ev.LineUserID, "error", err)
		}
	}
	if err := s.users.TouchLastSeen(ctx, ev.LineUserID); err != nil {
		s.logger.Warnw("Last-seen update failed", "line_user_id", ev.LineUserID, "error", err)
	}

	reply, err := s.respond(ctx, StripMention(ev.Text), user)
	if err != nil {
		s.logger.Errorw("Bot intent handling failed", "line_user_id", ev.LineUserID, "error", err)
		reply = "⚠️ 処理中にエラーが発生しました。しばらくしてからもう一度お試しください。"
	}
	return s.messenger.Reply(ctx, ev.ReplyToken, reply)
}

// archiveGroupMessage records day-to-day chatter on the message board.
func (s *BotService) archiveGroupMessage(ctx context.Context, ev TextMessageEvent) error {
	userName := "Unknown User"
	if u, err := s.users.GetUser(ctx, ev.LineUserID); err == nil {
		userName = u.DisplayName
	}
	_, err := s.notices.PostDailyMessage(ctx, s.today(), entities.MessageDraft{
		UserName:    userName,
		Message:     ev.Text,
		MessageType: entities.MessageTypeLineImport,
		UserID:      ev.LineUserID,
	})
	if err != nil {
		// Archival is best effort; losing one chat line must not fail the webhook.
		s.logger.Warnw("Daily message archive failed", "error", err)
	}
	return nil
}

// respond maps the cleaned message text to an intent and builds the reply.
func (s *BotService) respond(ctx context.Context, text string, user *entities.User) (string, error) {
	isAdmin := user.Role == entities.UserRoleAdmin
	switch {
	case strings.Contains(text, "明日") && strings.Contains(text, "シフト"):
		return s.shiftReply(ctx, user, s.tomorrow(), "明日")
	case strings.Contains(text, "今日") && strings.Contains(text, "シフト"):
		return s.shiftReply(ctx, user, s.today(), "今日")
	case strings.Contains(text, "来月") && strings.Contains(text, "確定") && isAdmin:
		return s.confirmReply(ctx)
	case strings.Contains(text, "来月") && strings.Contains(text, "希望"):
		return s.requestReply(ctx, text, user)
	case strings.Contains(text, "人手不足") && isAdmin:
		return s.staffingReply(ctx, s.tomorrow())
	case strings.Contains(text, "PDF") || strings.Contains(text, "pdf"):
		return s.pdfReply(), nil
	case strings.Contains(text, "使い方") || strings.Contains(text, "ヘルプ"):
		return helpMessage(isAdmin), nil
	default:
		return "申し訳ございません。うまく理解できませんでした。\n\n💡 こんな感じで話しかけてください：\n・明日のシフト教えて\n・来月希望です\n・使い方教えて", nil
	}
}

// shiftReply formats a user's shifts for one date.
func (s *BotService) shiftReply(ctx context.Context, user *entities.User, date, label string) (string, error) {
	shifts, err := s.shifts.GetShifts(ctx, date)
	if err != nil {
		return "", err
	}
	var mine []entities.Shift
	for _, sh := range shifts {
		if sh.UserID == user.LineUserID {
			mine = append(mine, sh)
		}
	}
	if len(mine) == 0 {
		return fmt.Sprintf("📅 **%s（%s）**\n\nお疲れさまです！\n%sはお休みです 😊", label, date, label), nil
	}

	positions, err := s.store.GetPositions(ctx)
	if err != nil {
		return "", err
	}
	byID := make(map[string]entities.Position, len(positions))
	for _, p := range positions {
		byID[p.ID] = p
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📅 **%s（%s）のシフト**\n\n", label, date)
	for _, sh := range mine {
		name, emoji := "Unknown", "📍"
		if p, ok := byID[sh.PositionID]; ok {
			name, emoji = p.Name, p.Emoji
		}
		fmt.Fprintf(&b, "%s **%s**\n⏰ %s - %s\n", emoji, name, sh.StartTime, sh.EndTime)
		if sh.BreakMinutes > 0 {
			fmt.Fprintf(&b, "☕ 休憩: %d分\n", sh.BreakMinutes)
		}
		b.WriteString("\n")
	}
	b.WriteString("💪 お疲れさまです！よろしくお願いします。")
	return b.String(), nil
}

// requestReply records a next-month availability request.
func (s *BotService) requestReply(ctx context.Context, text string, user *entities.User) (string, error) {
	month := s.nextMonth()
	parsed := ParseShiftRequestText(text)
	if _, err := s.shifts.SaveShiftRequest(ctx, month, user.LineUserID, entities.ShiftRequestInput{
		RequestText: text,
		ParsedData:  parsed,
	}); err != nil {
		return "", err
	}
	return fmt.Sprintf(`✅ シフト希望を受け付けました！

📅 **対象月**: %s
📝 **内容**: %s

🔄 仮シフトに反映します。
責任者による確定をお待ちください。

💡 シフト確認: @シフトボット 来月のシフト`, month, text), nil
}

// confirmReply promotes next month's shifts to confirmed.
func (s *BotService) confirmReply(ctx context.Context) (string, error) {
	month := s.nextMonth()
	n, err := s.shifts.ConfirmMonth(ctx, month)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("👑 %s のシフトを確定しました（%d件）。\nスタッフへの周知をお願いします。", month, n), nil
}

// staffingReply summarizes shortages for a date.
func (s *BotService) staffingReply(ctx context.Context, date string) (string, error) {
	analysis, err := s.shifts.AnalyzeStaffing(ctx, date)
	if err != nil {
		return "", err
	}
	if len(analysis.Shortages) == 0 {
		return fmt.Sprintf("✅ %s の人員配置に不足はありません。", date), nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "⚠️ **%s の人手不足**\n\n", date)
	for _, sh := range analysis.Shortages {
		fmt.Fprintf(&b, "・%s %s: %d名不足（必要%d名／配置%d名）\n", sh.Time, sh.Position, sh.Shortage, sh.Required, sh.Actual)
	}
	if analysis.Severity == entities.SeverityCritical {
		b.WriteString("\n🚨 配置ゼロの時間帯があります。至急調整してください。")
	}
	return b.String(), nil
}

// pdfReply points at the browser/PDF/image endpoints for today's schedule.
func (s *BotService) pdfReply() string {
	today := s.today()
	return fmt.Sprintf(`📄 **シフト表ダウンロード**

📱 **ブラウザで確認**
%s/%s

📄 **PDFファイル**
%s/api/pdf/%s

🖼️ **画像ファイル（スマホ保存用）**
%s/api/image/%s

💡 リンクをタップしてダウンロードしてください。`, s.baseURL, today, s.baseURL, today, s.baseURL, today)
}

// HandleFollow registers a user who friended the bot.
func (s *BotService) HandleFollow(ctx context.Context, lineUserID string) error {
	_, created, err := s.users.RegisterFromLine(ctx, lineUserID, "")
	if err != nil {
		return err
	}
	if created {
		if err := s.messenger.Push(ctx, lineUserID, welcomeMessage()); err != nil {
			s.logger.Warnw("Welcome push failed", "line_user_id", lineUserID, "error", err)
		}
	}
	return nil
}

// HandleUnfollow deactivates a user who blocked the bot.
func (s *BotService) HandleUnfollow(ctx context.Context, lineUserID string) error {
	return s.users.Deactivate(ctx, lineUserID)
}

// HandleMemberJoined registers users added to the group.
func (s *BotService) HandleMemberJoined(ctx context.Context, lineUserIDs []string) error {
	for _, id := range lineUserIDs {
		if err := s.HandleFollow(ctx, id); err != nil {
			s.logger.Errorw("Member join handling failed", "line_user_id", id, "error", err)
		}
	}
	return nil
}

// HandleMemberLeft deactivates users who left the group.
func (s *BotService) HandleMemberLeft(ctx context.Context, lineUserIDs []string) error {
	for _, id := range lineUserIDs {
		if err := s.users.Deactivate(ctx, id); err != nil {
			s.logger.Errorw("Member left handling failed", "line_user_id", id, "error", err)
		}
	}
	return nil
}

// ParseShiftRequestText extracts best-effort structured preferences from a
// free-text availability message.
func ParseShiftRequestText(text string) entities.ParsedShiftData {
	var parsed entities.ParsedShiftData

	if strings.Contains(text, "平日") {
		unavailable := strings.Contains(text, "平日休み") || strings.Contains(text, "平日NG")
		parsed.Weekdays = &entities.DayPreference{Available: !unavailable}
	}
	if strings.Contains(text, "土日") {
		unavailable := strings.Contains(text, "休み") || strings.Contains(text, "NG")
		parsed.Weekends = &entities.DayPreference{Available: !unavailable}
	}
	if m := timeRangeRe.FindStringSubmatch(text); m != nil {
		start, _ := strconv.Atoi(m[1])
		end, _ := strconv.Atoi(m[2])
		parsed.TimeRange = &entities.TimeRange{
			Start: fmt.Sprintf("%02d:00", start),
			End:   fmt.Sprintf("%02d:00", end),
		}
	}
	return parsed
}

func (s *BotService) today() string {
	return s.now().Format("2006-01-02")
}

func (s *BotService) tomorrow() string {
	return s.now().AddDate(0, 0, 1).Format("2006-01-02")
}

func (s *BotService) nextMonth() string {
	n := s.now()
	return time.Date(n.Year(), n.Month()+1, 1, 0, 0, 0, 0, n.Location()).Format("2006-01")
}

func welcomeMessage() string {
	return `👋 **ようこそ！**

シフト管理ボットです。
@シフトボット を付けて話しかけてください。

💡 **まずはこちらをお試しください：**
@シフトボット 使い方教えて

何かご不明な点があれば、お気軽にお声かけください！`
}

func helpMessage(isAdmin bool) string {
	msg := `📚 **使い方ガイド**

💬 **基本的な使い方**
私に @シフトボット を付けて話しかけてください。

🔍 **シフト確認**
・@シフトボット 今日のシフト
・@シフトボット 明日のシフト教えて

📝 **シフト希望提出**
・@シフトボット 来月希望です。平日9時から17時
・@シフトボット 土日休み希望です

📄 **PDF保存**
・@シフトボット シフト表のPDF欲しい

❓ **その他**
普通に質問してもOKです！`

	if isAdmin {
		msg += `

👑 **管理者機能**
・@シフトボット 人手不足の詳細教えて
・@シフトボット 来月のシフト確定して`
	}
	return msg
}
