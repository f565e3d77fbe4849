package parse

import (
	"encoding/json"
	"strings"

	"zapgoals/internal/domain"
)

// Profile parses a kind 0 metadata event.
func (p *Parser) Profile(ev domain.RawEvent) (domain.Profile, error) {
	if err := expectKind(ev, domain.KindProfile); err != nil {
		return domain.Profile{}, err
	}
	if ev.PubKey == "" {
		return domain.Profile{}, malformed("profile without pubkey")
	}
	fields, ok := jsonObject(ev.Content)
	if !ok {
		return domain.Profile{}, malformed("profile content is not a json object")
	}
	return domain.Profile{
		Pubkey:      ev.PubKey,
		Name:        stringField(fields, "name"),
		DisplayName: stringField(fields, "display_name", "displayName"),
		Picture:     stringField(fields, "picture"),
		LUD16:       stringField(fields, "lud16"),
		About:       stringField(fields, "about"),
	}, nil
}

// jsonObject decodes content as a JSON object.
func jsonObject(content string) (map[string]any, bool) {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "{") {
		return nil, false
	}
	var fields map[string]any
	if err := json.Unmarshal([]byte(content), &fields); err != nil || fields == nil {
		return nil, false
	}
	return fields, true
}

// stringField returns the first non-empty string value among keys.
func stringField(fields map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := fields[key].(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}
