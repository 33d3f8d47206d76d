package domain

import (
	"fmt"
	"net/url"
	"strings"
)

// Language is a Wikipedia language edition the bot can search.
type Language struct {
	code string
	name string
	flag string
}

func (l Language) Code() string {
	return l.code
}

func (l Language) Name() string {
	return l.name
}

func (l Language) Flag() string {
	return l.flag
}

// APIEndpoint returns the MediaWiki api.php endpoint for this language edition.
func (l Language) APIEndpoint() string {
	return fmt.Sprintf("https://%s.wikipedia.org/w/api.php", l.code)
}

// ArticleURL returns the canonical URL for an article title in this edition.
func (l Language) ArticleURL(title string) string {
	return fmt.Sprintf(
		"https://%s.wikipedia.org/wiki/%s",
		l.code,
		url.PathEscape(strings.ReplaceAll(title, " ", "_")),
	)
}

var languages = []Language{
	{code: "en", name: "English", flag: "🇺🇸"},
	{code: "de", name: "German", flag: "🇩🇪"},
	{code: "fr", name: "French", flag: "🇫🇷"},
	{code: "es", name: "Spanish", flag: "🇪🇸"},
	{code: "ru", name: "Russian", flag: "🇷🇺"},
	{code: "uk", name: "Ukrainian", flag: "🇺🇦"},
	{code: "it", name: "Italian", flag: "🇮🇹"},
	{code: "pt", name: "Portuguese", flag: "🇵🇹"},
	{code: "pl", name: "Polish", flag: "🇵🇱"},
	{code: "ja", name: "Japanese", flag: "🇯🇵"},
	{code: "zh", name: "Chinese", flag: "🇨🇳"},
	{code: "ko", name: "Korean", flag: "🇰🇷"},
	{code: "ar", name: "Arabic", flag: "🇸🇦"},
	{code: "he", name: "Hebrew", flag: "🇮🇱"},
	{code: "tr", name: "Turkish", flag: "🇹🇷"},
	{code: "nl", name: "Dutch", flag: "🇳🇱"},
	{code: "sv", name: "Swedish", flag: "🇸🇪"},
	{code: "no", name: "Norwegian", flag: "🇳🇴"},
	{code: "da", name: "Danish", flag: "🇩🇰"},
	{code: "fi", name: "Finnish", flag: "🇫🇮"},
	{code: "cs", name: "Czech", flag: "🇨🇿"},
	{code: "bg", name: "Bulgarian", flag: "🇧🇬"},
	{code: "hr", name: "Croatian", flag: "🇭🇷"},
	{code: "sr", name: "Serbian", flag: "🇷🇸"},
	{code: "sk", name: "Slovak", flag: "🇸🇰"},
	{code: "sl", name: "Slovenian", flag: "🇸🇮"},
	{code: "hu", name: "Hungarian", flag: "🇭🇺"},
	{code: "ro", name: "Romanian", flag: "🇷🇴"},
	{code: "el", name: "Greek", flag: "🇬🇷"},
	{code: "lv", name: "Latvian", flag: "🇱🇻"},
	{code: "lt", name: "Lithuanian", flag: "🇱🇹"},
	{code: "et", name: "Estonian", flag: "🇪🇪"},
	{code: "ca", name: "Catalan", flag: "🏴󠁥󠁳󠁣󠁴󠁿"},
	{code: "eu", name: "Basque", flag: "🏴󠁥󠁳󠁰󠁶󠁿"},
	{code: "gl", name: "Galician", flag: "🏴󠁥󠁳󠁧󠁡󠁿"},
}

var languageByCode = func() map[string]Language {
	byCode := make(map[string]Language, len(languages))
	for _, lang := range languages {
		byCode[lang.code] = lang
	}
	return byCode
}()

func LanguageFromCode(code string) (Language, bool) {
	lang, ok := languageByCode[strings.ToLower(code)]
	return lang, ok
}

func AllLanguages() []Language {
	all := make([]Language, len(languages))
	copy(all, languages)
	return all
}

// PopularLanguages returns the editions offered on the language picker keyboard.
func PopularLanguages() []Language {
	popular := make([]Language, 6)
	copy(popular, languages[:6])
	return popular
}

// SplitLanguagePrefix strips an explicit "lang:" prefix from an inline query.
// The prefix must be a known language code of at most four characters, e.g.
// "de:berlin". Queries without a recognized prefix search the default edition
// and are returned unchanged.
func SplitLanguagePrefix(defaultLang Language, query string) (Language, string) {
	colon := strings.IndexByte(query, ':')
	if colon >= 1 && colon <= 4 {
		if lang, ok := LanguageFromCode(query[:colon]); ok {
			return lang, strings.TrimSpace(query[colon+1:])
		}
	}
	return defaultLang, query
}
