package store

import (
	"fmt"
	"sort"
)

// Column is the expected or live shape of one column. Type and Default use
// the server's canonical spelling (format_type / pg_get_expr); an empty
// Default means none.
type Column struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Default string `json:"default,omitempty"`
	NotNull bool   `json:"notNull"`
}

// Table is a catalogue entry: columns in definition order and the primary
// key, foreign key and unique constraints in pg_get_constraintdef form.
type Table struct {
	Name        string
	Columns     []Column
	Constraints []string
}

// Index is a named secondary index and the table that owns it.
type Index struct {
	Name  string
	Table string
}

// LiveTable is what the database reports for one table.
type LiveTable struct {
	Columns     []Column
	Constraints []string
}

// ColumnDrift lists the columns of one table that differ from the catalogue.
// Changed entries describe type, default or nullability mismatches.
type ColumnDrift struct {
	Table      string   `json:"table"`
	Missing    []string `json:"missing,omitempty"`
	Unexpected []string `json:"unexpected,omitempty"`
	Changed    []string `json:"changed,omitempty"`
}

// ConstraintDrift lists the constraint definitions of one table that differ.
type ConstraintDrift struct {
	Table      string   `json:"table"`
	Missing    []string `json:"missing,omitempty"`
	Unexpected []string `json:"unexpected,omitempty"`
}

// Inspection is the outcome of comparing a live schema with the catalogue.
type Inspection struct {
	State           string            `json:"state"`
	Tables          []string          `json:"tables"`
	Indexes         []string          `json:"indexes"`
	MissingTables   []string          `json:"missingTables,omitempty"`
	MissingIndexes  []string          `json:"missingIndexes,omitempty"`
	ColumnDrift     []ColumnDrift     `json:"columnDrift,omitempty"`
	ConstraintDrift []ConstraintDrift `json:"constraintDrift,omitempty"`
}

// Compare builds an Inspection from the live tables (keyed by name) and the
// live index names.
func Compare(tables []Table, indexes []Index, live map[string]LiveTable, liveIndexes []string) *Inspection {
	in := &Inspection{}

	for _, t := range tables {
		lt, ok := live[t.Name]
		if !ok {
			in.MissingTables = append(in.MissingTables, t.Name)
			continue
		}
		in.Tables = append(in.Tables, t.Name)
		if d := diffColumns(t, lt.Columns); d != nil {
			in.ColumnDrift = append(in.ColumnDrift, *d)
		}
		if d := diffConstraints(t, lt.Constraints); d != nil {
			in.ConstraintDrift = append(in.ConstraintDrift, *d)
		}
	}

	have := make(map[string]bool, len(liveIndexes))
	for _, name := range liveIndexes {
		have[name] = true
	}
	for _, idx := range indexes {
		if have[idx.Name] {
			in.Indexes = append(in.Indexes, idx.Name)
		} else {
			in.MissingIndexes = append(in.MissingIndexes, idx.Name)
		}
	}

	in.State = in.state().String()
	return in
}

// Ready reports whether the live schema matches the catalogue exactly.
func (in *Inspection) Ready() bool {
	return in.state() == StateReady
}

func (in *Inspection) state() StoreState {
	switch {
	case len(in.Tables) == 0:
		return StateMissing
	case len(in.MissingTables) > 0, len(in.MissingIndexes) > 0,
		len(in.ColumnDrift) > 0, len(in.ConstraintDrift) > 0:
		return StatePartial
	default:
		return StateReady
	}
}

func diffColumns(t Table, live []Column) *ColumnDrift {
	got := make(map[string]Column, len(live))
	for _, c := range live {
		got[c.Name] = c
	}
	want := make(map[string]bool, len(t.Columns))

	d := ColumnDrift{Table: t.Name}
	for _, c := range t.Columns {
		want[c.Name] = true
		lc, ok := got[c.Name]
		if !ok {
			d.Missing = append(d.Missing, c.Name)
			continue
		}
		if lc.Type != c.Type {
			d.Changed = append(d.Changed, fmt.Sprintf("%s: type %q, want %q", c.Name, lc.Type, c.Type))
		}
		if lc.Default != c.Default {
			d.Changed = append(d.Changed, fmt.Sprintf("%s: default %q, want %q", c.Name, lc.Default, c.Default))
		}
		if lc.NotNull != c.NotNull {
			d.Changed = append(d.Changed, fmt.Sprintf("%s: not null %v, want %v", c.Name, lc.NotNull, c.NotNull))
		}
	}
	for _, c := range live {
		if !want[c.Name] {
			d.Unexpected = append(d.Unexpected, c.Name)
		}
	}
	if len(d.Missing) == 0 && len(d.Unexpected) == 0 && len(d.Changed) == 0 {
		return nil
	}
	sort.Strings(d.Unexpected)
	return &d
}

func diffConstraints(t Table, live []string) *ConstraintDrift {
	missing, unexpected := diffSets(t.Constraints, live)
	if len(missing) == 0 && len(unexpected) == 0 {
		return nil
	}
	return &ConstraintDrift{Table: t.Name, Missing: missing, Unexpected: unexpected}
}

// diffSets returns the entries of want absent from got, in want order, and
// the entries of got absent from want, sorted.
func diffSets(want, got []string) (missing, unexpected []string) {
	w := make(map[string]bool, len(want))
	for _, s := range want {
		w[s] = true
	}
	g := make(map[string]bool, len(got))
	for _, s := range got {
		g[s] = true
	}
	for _, s := range want {
		if !g[s] {
			missing = append(missing, s)
		}
	}
	for _, s := range got {
		if !w[s] {
			unexpected = append(unexpected, s)
		}
	}
	sort.Strings(unexpected)
	return missing, unexpected
}
