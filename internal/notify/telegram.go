package notify

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/elsakane2015/classtrack/internal/models"
	"github.com/elsakane2015/classtrack/internal/observability"
)

// Notifier pushes leave-workflow events to the staff channel. The zero-value
// Noop variant is used when no bot token is configured.
type Notifier interface {
	LeaveSubmitted(leave *models.LeaveRequest)
	LeaveDecided(leave *models.LeaveRequest)
}

type Noop struct{}

func (Noop) LeaveSubmitted(*models.LeaveRequest) {}
func (Noop) LeaveDecided(*models.LeaveRequest)   {}

type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

func NewTelegram(token string, chatID int64) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &Telegram{bot: bot, chatID: chatID}, nil
}

func (t *Telegram) LeaveSubmitted(leave *models.LeaveRequest) {
	t.send(fmt.Sprintf("📋 %s 提交了请假申请（%s，%s ~ %s），等待审批",
		leave.StudentName, leave.LeaveTypeName,
		leave.StartDate.Format("01-02"), leave.EndDate.Format("01-02")))
}

func (t *Telegram) LeaveDecided(leave *models.LeaveRequest) {
	verdict := "已批准 ✅"
	if leave.Status != models.LeaveApproved {
		verdict = "已驳回 ❌"
	}
	t.send(fmt.Sprintf("📋 %s 的请假申请%s", leave.StudentName, verdict))
}

func (t *Telegram) send(text string) {
	_, err := t.bot.Send(tgbotapi.NewMessage(t.chatID, text))
	if isSystemErr(err) {
		observability.CaptureErr(err)
	}
}

// Only 5xx/429/timeouts count as system errors worth a Sentry event; chat
// validation noise does not.
func isSystemErr(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "429") || strings.Contains(s, "502") ||
		strings.Contains(s, "503") || strings.Contains(s, "timeout")
}
