package roster

import (
	"strings"
	"testing"
)

func TestGroup_Header(t *testing.T) {
	tests := []struct {
		name  string
		group Group
		want  string
	}{
		{
			name:  "no members falls back to group name",
			group: Group{Name: "group_001"},
			want:  "group_001",
		},
		{
			name: "solo group uses member name",
			group: Group{Name: "group_001", Members: []Member{
				{FirstName: "Ada", LastName: "Lovelace"},
			}},
			want: "Ada Lovelace",
		},
		{
			name: "team lists group and members",
			group: Group{Name: "team_a", Members: []Member{
				{FirstName: "Ada", LastName: "Lovelace"},
				{FirstName: "Alan", LastName: "Turing"},
			}},
			want: "team_a (Ada Lovelace, Alan Turing)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.group.Header(); got != tt.want {
				t.Errorf("Header() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGroup_WriteCSV(t *testing.T) {
	g := Group{
		Name: "team_a",
		Members: []Member{
			{UserName: "alove", FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", IDNumber: "1001"},
		},
	}

	var sb strings.Builder
	if err := g.WriteCSV(&sb); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(sb.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header + 1 row, got %d lines", len(lines))
	}
	if lines[0] != "group_name,user_name,first_name,last_name,email,id_number" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != "team_a,alove,Ada,Lovelace,ada@example.com,1001" {
		t.Errorf("row = %q", lines[1])
	}
}

func TestStore(t *testing.T) {
	s := NewStore([]Group{
		{Name: "b"}, {Name: "a"}, {Name: "b"}, // duplicate ignored
	})

	if s.Len() != 2 {
		t.Fatalf("Len = %d, want 2", s.Len())
	}
	if got := s.Names(); got[0] != "b" || got[1] != "a" {
		t.Errorf("Names = %v, want download order [b a]", got)
	}
	if _, ok := s.Get("a"); !ok {
		t.Error("Get(a) not found")
	}
	if _, ok := s.Get("zz"); ok {
		t.Error("Get(zz) should be missing")
	}
}
