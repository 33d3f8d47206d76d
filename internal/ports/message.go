package ports

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/wikifind/wikifind/internal/adapters/botapi"
	"github.com/wikifind/wikifind/internal/domain"
	"github.com/wikifind/wikifind/internal/logging"
	"github.com/wikifind/wikifind/internal/reporting"
	"github.com/wikifind/wikifind/internal/strutils"
)

func MakeMessageHandler(client botapi.Client, defaultLanguage domain.Language) MessageHandler {
	welcomeText := welcomeMessage(defaultLanguage)
	helpText := helpMessage(defaultLanguage)

	return func(ctx context.Context, message botapi.Message) {
		ctx = logging.AddMetaToContext(ctx, slog.Int64("chatId", message.Chat.ID))
		logger := logging.FromContext(ctx)

		cmd := command(message.Text)

		var text string
		switch cmd {
		case "/start":
			text = welcomeText
		case "/help":
			text = helpText
		default:
			// The bot is inline-first; anything else is ignored
			logger.Debug("Ignoring message without a known command")
			return
		}

		err := client.SendMessage(ctx, message.Chat.ID, text, botapi.ParseModeMarkdownV2)
		if err != nil {
			logger.Error("Failed to send command reply", "command", cmd, "error", err.Error())
			reporting.Report(ctx, fmt.Errorf("failed to send command reply: %w", err))
			return
		}
		logger.Info("Replied to command", "command", cmd)
	}
}

// command extracts the leading bot command, dropping any @BotName suffix
// Telegram appends in group chats.
func command(text string) string {
	first, _, _ := strings.Cut(strings.TrimSpace(text), " ")
	if !strings.HasPrefix(first, "/") {
		return ""
	}
	name, _, _ := strings.Cut(first, "@")
	return name
}

func welcomeMessage(defaultLanguage domain.Language) string {
	var b strings.Builder
	b.WriteString("🌍 *Welcome to WikiFind\\!*\n\n")
	b.WriteString("📚 I search Wikipedia in any of its languages, right from the chat you are in\\.\n\n")
	b.WriteString("🔍 *How to use:*\n")
	b.WriteString("Type `@` followed by my username and your search in any chat\\.\n\n")
	b.WriteString("🌏 *Languages:*\n")
	b.WriteString(fmt.Sprintf(
		"Plain queries search the %s Wikipedia\\. Prefix a language code to switch:\n",
		strutils.EscapeMarkdownV2(defaultLanguage.Name()),
	))
	for _, lang := range domain.PopularLanguages() {
		b.WriteString(fmt.Sprintf(
			"• `%s:query` — %s %s Wikipedia\n",
			lang.Code(),
			lang.Flag(),
			strutils.EscapeMarkdownV2(lang.Name()),
		))
	}
	b.WriteString("\n💡 Try `en:Albert Einstein` or `de:Berlin`\\.")
	return b.String()
}

func helpMessage(defaultLanguage domain.Language) string {
	var b strings.Builder
	b.WriteString("📖 *WikiFind help*\n\n")
	b.WriteString("🔍 *Inline search:*\n")
	b.WriteString("1\\. Type `@` and my username in any chat\n")
	b.WriteString("2\\. Add your search query\n")
	b.WriteString("3\\. Pick an article from the results\n\n")
	b.WriteString(fmt.Sprintf(
		"🌍 Queries without a prefix search the %s Wikipedia\\. Use `code:query` for any other language, like `fr:Paris` or `ja:東京`\\.\n\n",
		strutils.EscapeMarkdownV2(defaultLanguage.Name()),
	))
	b.WriteString("⚙️ *Commands:*\n")
	b.WriteString("/start — show the welcome message\n")
	b.WriteString("/help — show this help")
	return b.String()
}
