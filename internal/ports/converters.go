package ports

import (
	"fmt"

	"github.com/wikifind/wikifind/internal/adapters/botapi"
	"github.com/wikifind/wikifind/internal/domain"
	"github.com/wikifind/wikifind/internal/strutils"
)

const (
	// Telegram renders roughly one line of description under the title
	resultDescriptionChars = 100
	// Body text for the message sent when a result is picked
	resultContentChars = 300
)

func articleRecords(results domain.ResultSet) []botapi.InlineQueryResultArticle {
	records := make([]botapi.InlineQueryResultArticle, 0, len(results))
	for i, article := range results {
		records = append(records, botapi.InlineQueryResultArticle{
			Type:         "article",
			ID:           fmt.Sprintf("article_%d", i),
			Title:        article.Title,
			Description:  article.BestDescription(resultDescriptionChars),
			URL:          article.URL,
			ThumbnailURL: article.ThumbnailURL,
			InputMessageContent: botapi.InputTextMessageContent{
				MessageText: strutils.FormatArticleMessage(
					article.Title,
					article.BestContent(resultContentChars),
					article.URL,
				),
				ParseMode: botapi.ParseModeMarkdownV2,
			},
		})
	}
	return records
}

// languageSelectRecords is the answer to an empty query: a single record
// explaining the bot, with buttons that restart the query with a language
// prefix.
func languageSelectRecords(language domain.Language) []botapi.InlineQueryResultArticle {
	var keyboard [][]botapi.InlineKeyboardButton
	var row []botapi.InlineKeyboardButton
	for _, lang := range domain.PopularLanguages() {
		switchQuery := lang.Code() + ":"
		row = append(row, botapi.InlineKeyboardButton{
			Text:                         fmt.Sprintf("%s %s", lang.Flag(), lang.Name()),
			SwitchInlineQueryCurrentChat: &switchQuery,
		})
		if len(row) == 2 {
			keyboard = append(keyboard, row)
			row = nil
		}
	}
	if len(row) > 0 {
		keyboard = append(keyboard, row)
	}

	return []botapi.InlineQueryResultArticle{{
		Type:        "article",
		ID:          "lang_select",
		Title:       "Type to search Wikipedia",
		Description: fmt.Sprintf("Searching %s Wikipedia. Pick a button for another language.", language.Name()),
		InputMessageContent: botapi.InputTextMessageContent{
			MessageText: helpMessage(language),
			ParseMode:   botapi.ParseModeMarkdownV2,
		},
		ReplyMarkup: &botapi.InlineKeyboardMarkup{InlineKeyboard: keyboard},
	}}
}

func noResultsRecords(language domain.Language, query string) []botapi.InlineQueryResultArticle {
	return []botapi.InlineQueryResultArticle{{
		Type:        "article",
		ID:          "no_results",
		Title:       fmt.Sprintf("No results for %q", query),
		Description: "Try another spelling or a different language prefix",
		InputMessageContent: botapi.InputTextMessageContent{
			MessageText: strutils.FormatNoResultsMessage(query, language.Name()),
			ParseMode:   botapi.ParseModeMarkdownV2,
		},
	}}
}
