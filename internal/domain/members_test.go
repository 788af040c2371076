package domain

import "testing"

func TestParseMemberKeyMode(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want MemberKeyMode
	}{
		{name: "empty defaults to name_role", raw: "", want: MemberKeyNameRole},
		{name: "name", raw: "name", want: MemberKeyName},
		{name: "upper case with spaces", raw: "  NAME ", want: MemberKeyName},
		{name: "explicit name_role", raw: "name_role", want: MemberKeyNameRole},
		{name: "unknown", raw: "email", want: MemberKeyNameRole},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseMemberKeyMode(tt.raw); got != tt.want {
				t.Fatalf("ParseMemberKeyMode(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestCountUniqueMembersByNameAndRole(t *testing.T) {
	updates := []TeamMemberUpdate{
		{Name: "Alex", Role: "Developer"},
		{Name: "Alex", Role: "PM"},
		{Name: "Alex", Role: "Developer"},
		{Name: "Atena", Role: "Designer"},
	}
	if got := CountUniqueMembers(updates, MemberKeyNameRole); got != 3 {
		t.Fatalf("ожидали 3 участника по паре имя+роль, получили %d", got)
	}
	if got := CountUniqueMembers(updates, MemberKeyName); got != 2 {
		t.Fatalf("ожидали 2 участника по имени, получили %d", got)
	}
	if got := CountUniqueMembers(nil, MemberKeyNameRole); got != 0 {
		t.Fatalf("ожидали 0 для пустого списка, получили %d", got)
	}
}
