package postgres

import "github.com/joysssdasd/1127/internal/store"

// StatementKind classifies a DDL statement.
type StatementKind string

const (
	KindDrop      StatementKind = "drop"
	KindExtension StatementKind = "extension"
	KindTable     StatementKind = "table"
	KindIndex     StatementKind = "index"
)

// Statement is one DDL step. Object names the table, index or extension it creates.
type Statement struct {
	Kind   StatementKind
	Object string
	SQL    string
}

func (s Statement) String() string {
	return string(s.Kind) + " " + s.Object
}

// statements is executed in order. Referenced tables come before referencing
// ones and each index follows its table.
var statements = []Statement{
	{KindDrop, "all", `DROP TABLE IF EXISTS contact_views, deal_stats, point_transactions, recharge_tasks, search_history, posts, users CASCADE`},
	{KindExtension, "pgcrypto", `CREATE EXTENSION IF NOT EXISTS "pgcrypto"`},
	{KindTable, "users", `CREATE TABLE users (
    id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
    phone varchar(20) UNIQUE,
    wechat_openid text UNIQUE,
    wechat_unionid text,
    points integer DEFAULT 0,
    total_deals integer DEFAULT 0,
    status varchar(20) DEFAULT 'pending',
    created_at timestamptz DEFAULT now(),
    updated_at timestamptz DEFAULT now()
)`},
	{KindTable, "posts", `CREATE TABLE posts (
    id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
    user_id uuid NOT NULL REFERENCES users(id),
    title varchar(120) NOT NULL,
    description text NOT NULL,
    price numeric(10,2) NOT NULL,
    trade_type varchar(20) NOT NULL,
    keywords text[] DEFAULT '{}',
    ai_summary text,
    remaining_views integer DEFAULT 10,
    view_limit integer DEFAULT 10,
    total_deals integer DEFAULT 0,
    status varchar(20) DEFAULT 'active',
    expires_at timestamptz NOT NULL,
    created_at timestamptz DEFAULT now(),
    updated_at timestamptz DEFAULT now()
)`},
	{KindIndex, "idx_posts_user", `CREATE INDEX idx_posts_user ON posts(user_id)`},
	{KindIndex, "idx_posts_status_expires", `CREATE INDEX idx_posts_status_expires ON posts(status, expires_at)`},
	{KindTable, "contact_views", `CREATE TABLE contact_views (
    id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
    post_id uuid NOT NULL REFERENCES posts(id),
    buyer_id uuid NOT NULL REFERENCES users(id),
    seller_id uuid NOT NULL REFERENCES users(id),
    deducted_points integer NOT NULL,
    copied boolean DEFAULT true,
    copied_at timestamptz,
    confirm_status varchar(20) DEFAULT 'pending',
    confirm_payload text,
    confirm_deadline timestamptz NOT NULL,
    created_at timestamptz DEFAULT now()
)`},
	{KindIndex, "idx_contact_views_post", `CREATE INDEX idx_contact_views_post ON contact_views(post_id)`},
	{KindTable, "deal_stats", `CREATE TABLE deal_stats (
    post_id uuid PRIMARY KEY REFERENCES posts(id),
    seller_id uuid NOT NULL REFERENCES users(id),
    total_deals integer DEFAULT 0,
    updated_at timestamptz DEFAULT now()
)`},
	{KindTable, "point_transactions", `CREATE TABLE point_transactions (
    id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
    user_id uuid NOT NULL REFERENCES users(id),
    change_type varchar(20) NOT NULL,
    amount integer NOT NULL,
    balance_after integer NOT NULL,
    description text,
    reference_id uuid,
    created_at timestamptz DEFAULT now()
)`},
	{KindIndex, "idx_point_tx_user", `CREATE INDEX idx_point_tx_user ON point_transactions(user_id)`},
	{KindTable, "recharge_tasks", `CREATE TABLE recharge_tasks (
    id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
    user_id uuid NOT NULL REFERENCES users(id),
    amount integer NOT NULL,
    voucher_url text NOT NULL,
    status varchar(20) DEFAULT 'pending',
    remind_count integer DEFAULT 0,
    created_at timestamptz DEFAULT now(),
    updated_at timestamptz DEFAULT now()
)`},
	{KindTable, "search_history", `CREATE TABLE search_history (
    id bigserial PRIMARY KEY,
    user_id uuid NOT NULL REFERENCES users(id),
    keyword text NOT NULL,
    created_at timestamptz DEFAULT now()
)`},
	{KindIndex, "idx_search_history_user_keyword", `CREATE UNIQUE INDEX idx_search_history_user_keyword ON search_history(user_id, keyword)`},
}

// Canonical spellings as reported by format_type and pg_get_expr.
const (
	typeUUID      = "uuid"
	typeText      = "text"
	typeInt       = "integer"
	typeVarchar20 = "character varying(20)"
	typeTimestamp = "timestamp with time zone"

	defUUID    = "gen_random_uuid()"
	defNow     = "now()"
	defPending = "'pending'::character varying"
)

func column(name, typ, def string, notNull bool) store.Column {
	return store.Column{Name: name, Type: typ, Default: def, NotNull: notNull}
}

func primaryKey() store.Column {
	return column("id", typeUUID, defUUID, true)
}

func refColumn(name string) store.Column {
	return column(name, typeUUID, "", true)
}

func fk(col, table string) string {
	return "FOREIGN KEY (" + col + ") REFERENCES " + table + "(id)"
}

const pk = "PRIMARY KEY (id)"

// tables mirrors the CREATE TABLE statements column for column, including the
// constraints each one declares.
var tables = []store.Table{
	{
		Name: "users",
		Columns: []store.Column{
			primaryKey(),
			column("phone", typeVarchar20, "", false),
			column("wechat_openid", typeText, "", false),
			column("wechat_unionid", typeText, "", false),
			column("points", typeInt, "0", false),
			column("total_deals", typeInt, "0", false),
			column("status", typeVarchar20, defPending, false),
			column("created_at", typeTimestamp, defNow, false),
			column("updated_at", typeTimestamp, defNow, false),
		},
		Constraints: []string{pk, "UNIQUE (phone)", "UNIQUE (wechat_openid)"},
	},
	{
		Name: "posts",
		Columns: []store.Column{
			primaryKey(),
			refColumn("user_id"),
			column("title", "character varying(120)", "", true),
			column("description", typeText, "", true),
			column("price", "numeric(10,2)", "", true),
			column("trade_type", typeVarchar20, "", true),
			column("keywords", "text[]", "'{}'::text[]", false),
			column("ai_summary", typeText, "", false),
			column("remaining_views", typeInt, "10", false),
			column("view_limit", typeInt, "10", false),
			column("total_deals", typeInt, "0", false),
			column("status", typeVarchar20, "'active'::character varying", false),
			column("expires_at", typeTimestamp, "", true),
			column("created_at", typeTimestamp, defNow, false),
			column("updated_at", typeTimestamp, defNow, false),
		},
		Constraints: []string{pk, fk("user_id", "users")},
	},
	{
		Name: "contact_views",
		Columns: []store.Column{
			primaryKey(),
			refColumn("post_id"),
			refColumn("buyer_id"),
			refColumn("seller_id"),
			column("deducted_points", typeInt, "", true),
			column("copied", "boolean", "true", false),
			column("copied_at", typeTimestamp, "", false),
			column("confirm_status", typeVarchar20, defPending, false),
			column("confirm_payload", typeText, "", false),
			column("confirm_deadline", typeTimestamp, "", true),
			column("created_at", typeTimestamp, defNow, false),
		},
		Constraints: []string{pk, fk("post_id", "posts"), fk("buyer_id", "users"), fk("seller_id", "users")},
	},
	{
		Name: "deal_stats",
		Columns: []store.Column{
			refColumn("post_id"),
			refColumn("seller_id"),
			column("total_deals", typeInt, "0", false),
			column("updated_at", typeTimestamp, defNow, false),
		},
		Constraints: []string{"PRIMARY KEY (post_id)", fk("post_id", "posts"), fk("seller_id", "users")},
	},
	{
		Name: "point_transactions",
		Columns: []store.Column{
			primaryKey(),
			refColumn("user_id"),
			column("change_type", typeVarchar20, "", true),
			column("amount", typeInt, "", true),
			column("balance_after", typeInt, "", true),
			column("description", typeText, "", false),
			column("reference_id", typeUUID, "", false),
			column("created_at", typeTimestamp, defNow, false),
		},
		Constraints: []string{pk, fk("user_id", "users")},
	},
	{
		Name: "recharge_tasks",
		Columns: []store.Column{
			primaryKey(),
			refColumn("user_id"),
			column("amount", typeInt, "", true),
			column("voucher_url", typeText, "", true),
			column("status", typeVarchar20, defPending, false),
			column("remind_count", typeInt, "0", false),
			column("created_at", typeTimestamp, defNow, false),
			column("updated_at", typeTimestamp, defNow, false),
		},
		Constraints: []string{pk, fk("user_id", "users")},
	},
	{
		Name: "search_history",
		Columns: []store.Column{
			column("id", "bigint", "nextval('search_history_id_seq'::regclass)", true),
			refColumn("user_id"),
			column("keyword", typeText, "", true),
			column("created_at", typeTimestamp, defNow, false),
		},
		Constraints: []string{pk, fk("user_id", "users")},
	},
}

// indexes lists every index beyond primary keys, including the two created
// implicitly by the UNIQUE columns on users.
var indexes = []store.Index{
	{Name: "users_phone_key", Table: "users"},
	{Name: "users_wechat_openid_key", Table: "users"},
	{Name: "idx_posts_user", Table: "posts"},
	{Name: "idx_posts_status_expires", Table: "posts"},
	{Name: "idx_contact_views_post", Table: "contact_views"},
	{Name: "idx_point_tx_user", Table: "point_transactions"},
	{Name: "idx_search_history_user_keyword", Table: "search_history"},
}

// Statements returns a copy of the ordered DDL.
func Statements() []Statement {
	return append([]Statement(nil), statements...)
}

// Tables returns the expected tables in creation order.
func Tables() []store.Table {
	return append([]store.Table(nil), tables...)
}

// Indexes returns the expected secondary indexes.
func Indexes() []store.Index {
	return append([]store.Index(nil), indexes...)
}
