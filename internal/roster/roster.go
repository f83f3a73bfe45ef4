// Package roster models submitting groups and their member roster rows.
package roster

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/MarkUsProject/markusmoss/internal/workspace"
)

// Member is one roster row for a group member.
type Member struct {
	UserName  string
	FirstName string
	LastName  string
	Email     string
	IDNumber  string
}

// DisplayName returns "First Last" for report headers.
func (m Member) DisplayName() string {
	return strings.TrimSpace(m.FirstName + " " + m.LastName)
}

// Group is a submitting entity: a unique name, its ordered member roster,
// and the relative paths of its submitted files. Groups are created during
// submission download and are immutable thereafter within a run.
type Group struct {
	Name    string
	ID      int
	Members []Member
	Files   []string
}

// Header returns the group's display header: the bare member name for a
// solo group, or "name (member, member)" for a team.
func (g Group) Header() string {
	if len(g.Members) == 0 {
		return g.Name
	}
	names := make([]string, len(g.Members))
	for i, m := range g.Members {
		names[i] = m.DisplayName()
	}
	joined := strings.Join(names, ", ")
	if len(g.Members) == 1 {
		return joined
	}
	return fmt.Sprintf("%s (%s)", g.Name, joined)
}

// Store holds all groups for a run, addressable by name.
type Store struct {
	groups map[string]Group
	order  []string
}

// NewStore builds a Store from downloaded groups. Group order is preserved.
func NewStore(groups []Group) *Store {
	s := &Store{groups: make(map[string]Group, len(groups))}
	for _, g := range groups {
		if _, ok := s.groups[g.Name]; ok {
			continue
		}
		s.groups[g.Name] = g
		s.order = append(s.order, g.Name)
	}
	return s
}

// Get returns the group with the given name. Names derived from report
// pages have spaces replaced with underscores, so a miss falls back to
// comparing cleaned forms.
func (s *Store) Get(name string) (Group, bool) {
	if g, ok := s.groups[name]; ok {
		return g, true
	}
	for _, orig := range s.order {
		if workspace.CleanName(orig) == name {
			return s.groups[orig], true
		}
	}
	return Group{}, false
}

// Names returns all group names in download order.
func (s *Store) Names() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Len returns the number of groups in the store.
func (s *Store) Len() int {
	return len(s.order)
}

// rosterColumns is the fixed column set of every roster CSV.
var rosterColumns = []string{"group_name", "user_name", "first_name", "last_name", "email", "id_number"}

// WriteCSV writes the group's roster as CSV with a header row.
func (g Group) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(rosterColumns); err != nil {
		return err
	}
	for _, m := range g.Members {
		row := []string{g.Name, m.UserName, m.FirstName, m.LastName, m.Email, m.IDNumber}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SortedNames returns the given group names in lexicographic order; used
// where the on-disk layout calls for a stable, name-ordered directory.
func SortedNames(names []string) []string {
	out := make([]string, len(names))
	copy(out, names)
	sort.Strings(out)
	return out
}
