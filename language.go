// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package apiai

import (
	"fmt"

	"golang.org/x/text/language"
)

// Language is one of the agent languages supported by the service.
// The zero value is English.
type Language int

const (
	English Language = iota
	BrazilianPortuguese
	ChineseCantonese
	ChineseSimplified
	ChineseTraditional
	Dutch
	French
	German
	Italian
	Japanese
	Korean
	Portuguese
	Russian
	Spanish
	Ukrainian

	languageCount
)

// DefaultLanguage is used whenever a language field is absent.
const DefaultLanguage = English

var languageCodes = [languageCount]string{
	English:             "en",
	BrazilianPortuguese: "pt-BR",
	ChineseCantonese:    "zh-HK",
	ChineseSimplified:   "zh-CN",
	ChineseTraditional:  "zh-TW",
	Dutch:               "nl",
	French:              "fr",
	German:              "de",
	Italian:             "it",
	Japanese:            "ja",
	Korean:              "ko",
	Portuguese:          "pt",
	Russian:             "ru",
	Spanish:             "es",
	Ukrainian:           "uk",
}

var languageByCode = func() map[string]Language {
	m := make(map[string]Language, languageCount)
	for l, code := range languageCodes {
		m[code] = Language(l)
	}
	return m
}()

// Languages returns every supported language in declaration order.
func Languages() []Language {
	out := make([]Language, 0, languageCount)
	for l := English; l < languageCount; l++ {
		out = append(out, l)
	}
	return out
}

// ParseLanguage maps a wire code such as "en" or "pt-BR" to its Language.
// Codes are matched exactly.
func ParseLanguage(code string) (Language, error) {
	if l, ok := languageByCode[code]; ok {
		return l, nil
	}
	return DefaultLanguage, fmt.Errorf("%w: language %q is not supported", ErrUnsupportedLanguage, code)
}

// Valid reports whether l is one of the declared languages.
func (l Language) Valid() bool {
	return l >= English && l < languageCount
}

// Code returns the wire code, or "" for an undeclared value.
func (l Language) Code() string {
	if !l.Valid() {
		return ""
	}
	return languageCodes[l]
}

func (l Language) String() string {
	if !l.Valid() {
		return fmt.Sprintf("Language(%d)", int(l))
	}
	return languageCodes[l]
}

// MarshalText implements encoding.TextMarshaler.
func (l Language) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, l)
	}
	return []byte(languageCodes[l]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Language) UnmarshalText(text []byte) error {
	parsed, err := ParseLanguage(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Tag returns the BCP 47 tag for l.
func (l Language) Tag() language.Tag {
	if !l.Valid() {
		return language.Und
	}
	return language.MustParse(languageCodes[l])
}

var languageMatcher = func() language.Matcher {
	tags := make([]language.Tag, 0, languageCount)
	for _, l := range Languages() {
		tags = append(tags, l.Tag())
	}
	return language.NewMatcher(tags)
}()

// MatchLanguage picks the supported language closest to the preferred tags,
// falling back to DefaultLanguage when nothing matches. The CLDR data maps
// some unsupported languages (sw, xh) to English with a confidence above
// language.No, so callers should not treat English as "no match".
func MatchLanguage(preferred ...language.Tag) (Language, language.Confidence) {
	if len(preferred) == 0 {
		return DefaultLanguage, language.No
	}
	_, idx, conf := languageMatcher.Match(preferred...)
	if conf == language.No {
		return DefaultLanguage, conf
	}
	return Language(idx), conf
}
