package postgres

import (
	"sort"
	"strings"
	"testing"

	"github.com/joysssdasd/1127/internal/store"
)

func TestStatementOrder(t *testing.T) {
	stmts := Statements()

	if stmts[0].Kind != KindDrop {
		t.Fatalf("first statement is %s, want drop", stmts[0])
	}
	if stmts[1].Kind != KindExtension || stmts[1].Object != "pgcrypto" {
		t.Fatalf("second statement is %s, want extension pgcrypto", stmts[1])
	}

	var created []string
	seen := map[string]bool{}
	for _, s := range stmts[2:] {
		switch s.Kind {
		case KindTable:
			created = append(created, s.Object)
			seen[s.Object] = true
		case KindIndex:
			owner := ownerOf(t, s.Object)
			if !seen[owner] {
				t.Errorf("index %s runs before table %s", s.Object, owner)
			}
		default:
			t.Errorf("unexpected %s after setup", s)
		}
	}

	want := []string{"users", "posts", "contact_views", "deal_stats", "point_transactions", "recharge_tasks", "search_history"}
	if strings.Join(created, ",") != strings.Join(want, ",") {
		t.Errorf("table order: got %v, want %v", created, want)
	}
}

func TestReferencesPointBackwards(t *testing.T) {
	seen := map[string]bool{}
	for _, s := range Statements() {
		if s.Kind != KindTable {
			continue
		}
		for _, tbl := range Tables() {
			if strings.Contains(s.SQL, "REFERENCES "+tbl.Name+"(") && !seen[tbl.Name] {
				t.Errorf("%s references %s before it is created", s.Object, tbl.Name)
			}
		}
		seen[s.Object] = true
	}
}

func TestDropCoversEveryTable(t *testing.T) {
	drop := Statements()[0].SQL
	if !strings.HasSuffix(drop, "CASCADE") {
		t.Errorf("drop statement must cascade: %q", drop)
	}
	if !strings.Contains(drop, "IF EXISTS") {
		t.Errorf("drop statement must tolerate missing tables: %q", drop)
	}
	for _, tbl := range Tables() {
		if !strings.Contains(drop, tbl.Name) {
			t.Errorf("drop statement misses %s", tbl.Name)
		}
	}
}

func TestCatalogueMatchesStatements(t *testing.T) {
	if got := len(Tables()); got != 7 {
		t.Errorf("got %d tables, want 7", got)
	}
	if got := countKind(KindIndex); got != 5 {
		t.Errorf("got %d explicit indexes, want 5", got)
	}

	byName := map[string]Statement{}
	for _, s := range Statements() {
		byName[s.Object] = s
	}
	for _, tbl := range Tables() {
		s, ok := byName[tbl.Name]
		if !ok {
			t.Errorf("no CREATE TABLE for %s", tbl.Name)
			continue
		}
		for _, col := range tbl.Columns {
			if !strings.Contains(s.SQL, "\n    "+col.Name+" ") {
				t.Errorf("%s: column %s not in DDL", tbl.Name, col.Name)
			}
		}
		if got := strings.Count(s.SQL, "\n    "); got != len(tbl.Columns) {
			t.Errorf("%s: DDL has %d columns, catalogue has %d", tbl.Name, got, len(tbl.Columns))
		}
	}
}

// TestCatalogueConstraintsMatchDDL ties every REFERENCES, UNIQUE, PRIMARY KEY,
// NOT NULL and DEFAULT clause in the DDL to the catalogue that verify checks.
func TestCatalogueConstraintsMatchDDL(t *testing.T) {
	ddl := map[string]string{}
	for _, s := range Statements() {
		if s.Kind == KindTable {
			ddl[s.Object] = s.SQL
		}
	}

	for _, tbl := range Tables() {
		t.Run(tbl.Name, func(t *testing.T) {
			cols := map[string]store.Column{}
			for _, c := range tbl.Columns {
				cols[c.Name] = c
			}

			var want []string
			for _, line := range strings.Split(ddl[tbl.Name], "\n")[1:] {
				line = strings.TrimSuffix(strings.TrimSpace(line), ",")
				if line == ")" {
					continue
				}
				name := strings.Fields(line)[0]
				col, ok := cols[name]
				if !ok {
					t.Errorf("column %s missing from catalogue", name)
					continue
				}

				if strings.Contains(line, "PRIMARY KEY") {
					want = append(want, "PRIMARY KEY ("+name+")")
				}
				if strings.Contains(line, " UNIQUE") {
					want = append(want, "UNIQUE ("+name+")")
				}
				if i := strings.Index(line, "REFERENCES "); i >= 0 {
					want = append(want, "FOREIGN KEY ("+name+") "+line[i:])
				}

				notNull := strings.Contains(line, "NOT NULL") || strings.Contains(line, "PRIMARY KEY")
				if col.NotNull != notNull {
					t.Errorf("%s: catalogue not null %v, DDL says %v", name, col.NotNull, notNull)
				}
				hasDefault := strings.Contains(line, "DEFAULT") || strings.Contains(line, "bigserial")
				if (col.Default != "") != hasDefault {
					t.Errorf("%s: catalogue default %q, DDL %q", name, col.Default, line)
				}
			}

			got := append([]string(nil), tbl.Constraints...)
			sort.Strings(got)
			sort.Strings(want)
			if strings.Join(got, "|") != strings.Join(want, "|") {
				t.Errorf("constraints: catalogue %v, DDL %v", got, want)
			}
		})
	}
}

func TestEveryReferenceIsCatalogued(t *testing.T) {
	var fks []string
	for _, tbl := range Tables() {
		for _, c := range tbl.Constraints {
			if strings.HasPrefix(c, "FOREIGN KEY") {
				fks = append(fks, tbl.Name+": "+c)
			}
		}
	}
	// posts.user_id, three on contact_views, two on deal_stats,
	// point_transactions, recharge_tasks, search_history
	if len(fks) != 9 {
		t.Errorf("got %d foreign keys, want 9: %v", len(fks), fks)
	}
}

func TestSearchHistoryKeywordUnique(t *testing.T) {
	for _, s := range Statements() {
		if s.Object == "idx_search_history_user_keyword" {
			if !strings.HasPrefix(s.SQL, "CREATE UNIQUE INDEX") || !strings.Contains(s.SQL, "(user_id, keyword)") {
				t.Errorf("unexpected DDL: %q", s.SQL)
			}
			return
		}
	}
	t.Fatal("idx_search_history_user_keyword not found")
}

func TestAccessorsReturnCopies(t *testing.T) {
	s := Statements()
	s[0].SQL = "SELECT 1"
	if Statements()[0].SQL == "SELECT 1" {
		t.Error("Statements exposes the package slice")
	}
}

func ownerOf(t *testing.T, index string) string {
	t.Helper()
	for _, idx := range Indexes() {
		if idx.Name == index {
			return idx.Table
		}
	}
	t.Fatalf("index %s not in catalogue", index)
	return ""
}
