package summarizer

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"standup-tracker/internal/domain"
)

// parseKind описывает результат разбора ответа модели.
type parseKind int

const (
	// parseValid — корректный JSON, есть хотя бы один итог по реальному участнику.
	parseValid parseKind = iota
	// parseNeedsRepair — корректный JSON, но итоги участников пришлось отбросить целиком.
	parseNeedsRepair
	// parseUnparseable — после снятия ограждения текст не является JSON-объектом.
	parseUnparseable
)

func (k parseKind) String() string {
	switch k {
	case parseValid:
		return "valid"
	case parseNeedsRepair:
		return "needs_repair"
	default:
		return "unparseable"
	}
}

type parseResult struct {
	kind    parseKind
	summary domain.WeeklyReportSummary
	dropped []string
}

// stripFence снимает обрамление ```json ... ``` или ``` ... ```, если оно есть.
func stripFence(text string) string {
	t := strings.TrimSpace(text)
	if strings.HasPrefix(t, "```") {
		t = strings.TrimPrefix(t, "```")
		if nl := strings.IndexByte(t, '\n'); nl >= 0 {
			if isLanguageTag(strings.TrimSpace(t[:nl])) {
				t = t[nl+1:]
			}
		} else if len(t) >= 4 && strings.EqualFold(t[:4], "json") {
			t = t[4:]
		}
	}
	t = strings.TrimSpace(t)
	t = strings.TrimSuffix(t, "```")
	return strings.TrimSpace(t)
}

func isLanguageTag(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_' {
			return false
		}
	}
	return true
}

// parseResponse разбирает ответ модели и сверяет ключи memberSummaries со списком участников.
func parseResponse(text string, members []string) parseResult {
	var root map[string]json.RawMessage
	if err := json.Unmarshal([]byte(stripFence(text)), &root); err != nil || root == nil {
		return parseResult{kind: parseUnparseable}
	}

	summary := domain.WeeklyReportSummary{
		KeyAccomplishments: stringList(root["keyAccomplishments"]),
		OngoingWork:        stringList(root["ongoingWork"]),
		Blockers:           stringList(root["blockers"]),
		TeamInsights:       stringValue(root["teamInsights"]),
		Recommendations:    stringList(root["recommendations"]),
	}

	var rawMembers map[string]json.RawMessage
	if raw, ok := root["memberSummaries"]; ok {
		_ = json.Unmarshal(raw, &rawMembers)
	}
	decoded := make(map[string]domain.MemberSummary, len(rawMembers))
	for key, raw := range rawMembers {
		decoded[key] = memberValue(raw)
	}
	valid, dropped := filterMembers(decoded, members)
	summary.MemberSummaries = valid

	kind := parseValid
	if len(valid) == 0 && len(members) > 0 {
		kind = parseNeedsRepair
	}
	return parseResult{kind: kind, summary: summary.Normalize(), dropped: dropped}
}

// cleanMemberKey убирает пробелы и случайные кавычки вокруг ключа.
func cleanMemberKey(key string) string {
	return strings.Trim(key, " \t\r\n\"'`\\“”‘’«»")
}

// filterMembers оставляет только ключи, совпадающие (без учёта регистра) с реальными участниками,
// и переименовывает их в точное имя участника.
func filterMembers(in map[string]domain.MemberSummary, members []string) (map[string]domain.MemberSummary, []string) {
	out := make(map[string]domain.MemberSummary, len(in))
	if len(in) == 0 {
		return out, nil
	}
	keys := make([]string, 0, len(in))
	for key := range in {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var dropped []string
	for _, key := range keys {
		name, ok := matchMember(cleanMemberKey(key), members)
		if !ok {
			dropped = append(dropped, key)
			continue
		}
		if _, exists := out[name]; exists {
			continue
		}
		out[name] = in[key]
	}
	return out, dropped
}

func matchMember(candidate string, members []string) (string, bool) {
	if candidate == "" {
		return "", false
	}
	for _, name := range members {
		if strings.EqualFold(candidate, name) {
			return name, true
		}
	}
	return "", false
}

func memberValue(raw json.RawMessage) domain.MemberSummary {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		// Модель иногда отдаёт строку вместо объекта.
		return domain.MemberSummary{Progress: stringValue(raw)}
	}
	return domain.MemberSummary{
		Role:             stringValue(fields["role"]),
		KeyContributions: stringList(fields["keyContributions"]),
		Progress:         stringValue(fields["progress"]),
		Concerns:         stringList(fields["concerns"]),
		NextWeekFocus:    stringValue(fields["nextWeekFocus"]),
	}
}

// stringList читает массив строк; одиночная строка превращается в список из одного элемента.
func stringList(raw json.RawMessage) []string {
	out := []string{}
	if len(raw) == 0 {
		return out
	}
	var items []any
	if err := json.Unmarshal(raw, &items); err != nil {
		if s := stringValue(raw); s != "" {
			out = append(out, s)
		}
		return out
	}
	for _, item := range items {
		var text string
		switch v := item.(type) {
		case string:
			text = v
		case float64, bool:
			text = fmt.Sprint(v)
		default:
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			out = append(out, text)
		}
	}
	return out
}

func stringValue(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var parts []string
	if err := json.Unmarshal(raw, &parts); err == nil {
		return strings.TrimSpace(strings.Join(parts, " "))
	}
	return ""
}
