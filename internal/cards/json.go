package cards

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"golang.org/x/text/language"
)

// DefaultLocale is used when no locale is configured or none matches.
const DefaultLocale = "enUS"

type rawCard struct {
	ID        string          `json:"id"`
	DBFID     int             `json:"dbfId"`
	Name      json.RawMessage `json:"name"`
	Text      json.RawMessage `json:"text"`
	Cost      int             `json:"cost"`
	Type      string          `json:"type"`
	CardClass string          `json:"cardClass"`
}

// LoadJSON reads a HearthstoneJSON card export. Both the single-locale form
// (name is a string) and the all-locales form (name is an object keyed by
// locale) are accepted; for the latter the closest match to locale is used.
func LoadJSON(r io.Reader, locale string) ([]Card, error) {
	var raw []rawCard
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode card json: %w", err)
	}

	picker := newLocalePicker(locale)
	out := make([]Card, 0, len(raw))
	for _, rc := range raw {
		if rc.ID == "" {
			continue
		}
		name, err := picker.text(rc.Name)
		if err != nil {
			return nil, fmt.Errorf("card %s name: %w", rc.ID, err)
		}
		text, err := picker.text(rc.Text)
		if err != nil {
			return nil, fmt.Errorf("card %s text: %w", rc.ID, err)
		}
		out = append(out, Card{
			ID:    rc.ID,
			DBFID: rc.DBFID,
			Name:  name,
			Text:  text,
			Cost:  rc.Cost,
			Type:  rc.Type,
			Class: rc.CardClass,
		})
	}
	return out, nil
}

type localePicker struct {
	want   language.Tag
	chosen string
}

func newLocalePicker(locale string) *localePicker {
	if locale == "" {
		locale = DefaultLocale
	}
	tag, err := language.Parse(toBCP47(locale))
	if err != nil {
		tag = language.AmericanEnglish
	}
	return &localePicker{want: tag}
}

func (p *localePicker) text(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var localized map[string]string
	if err := json.Unmarshal(raw, &localized); err != nil {
		return "", err
	}
	if p.chosen == "" {
		p.chosen = p.match(localized)
	}
	if v, ok := localized[p.chosen]; ok {
		return v, nil
	}
	return localized[DefaultLocale], nil
}

// match picks the available locale key closest to the wanted language.
func (p *localePicker) match(localized map[string]string) string {
	keys := make([]string, 0, len(localized))
	for k := range localized {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	supported := make([]language.Tag, 0, len(keys))
	supportedKeys := make([]string, 0, len(keys))
	for _, k := range keys {
		tag, err := language.Parse(toBCP47(k))
		if err != nil {
			continue
		}
		supported = append(supported, tag)
		supportedKeys = append(supportedKeys, k)
	}
	if len(supported) == 0 {
		return DefaultLocale
	}

	_, idx, confidence := language.NewMatcher(supported).Match(p.want)
	if confidence == language.No {
		return DefaultLocale
	}
	return supportedKeys[idx]
}

// toBCP47 converts client locale keys such as "zhCN" to "zh-CN".
func toBCP47(locale string) string {
	locale = strings.ReplaceAll(strings.TrimSpace(locale), "_", "-")
	if len(locale) == 4 && !strings.Contains(locale, "-") {
		return locale[:2] + "-" + locale[2:]
	}
	return locale
}
