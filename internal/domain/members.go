package domain

import "strings"

// MemberKeyMode определяет, какие апдейты относятся к одному участнику при подсчёте.
type MemberKeyMode string

const (
	// MemberKeyNameRole считает участником пару (имя, роль): "Alex"/Developer и "Alex"/PM считаются двумя участниками.
	MemberKeyNameRole MemberKeyMode = "name_role"
	// MemberKeyName считает участником только отображаемое имя.
	MemberKeyName MemberKeyMode = "name"
)

// ParseMemberKeyMode нормализует значение из конфига. Неизвестное значение даёт MemberKeyNameRole.
func ParseMemberKeyMode(raw string) MemberKeyMode {
	switch MemberKeyMode(strings.ToLower(strings.TrimSpace(raw))) {
	case MemberKeyName:
		return MemberKeyName
	default:
		return MemberKeyNameRole
	}
}

// Key возвращает ключ участника для апдейта.
func (m MemberKeyMode) Key(u TeamMemberUpdate) string {
	if m == MemberKeyName {
		return u.Name
	}
	return u.Name + "\x00" + u.Role
}

// CountUniqueMembers возвращает количество различных участников среди апдейтов.
func CountUniqueMembers(updates []TeamMemberUpdate, mode MemberKeyMode) int {
	seen := make(map[string]struct{}, len(updates))
	for _, u := range updates {
		seen[mode.Key(u)] = struct{}{}
	}
	return len(seen)
}
