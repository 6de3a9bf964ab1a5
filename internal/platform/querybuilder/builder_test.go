package querybuilder

import "testing"

func TestSelectBuilder(t *testing.T) {
	query, args, err := Select("public_id", "kickoff_at").
		From("fixtures").
		Where(Eq("gameweek", 4), IsNull("deleted_at")).
		OrderBy("kickoff_at", "public_id").
		Limit(10).
		ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}

	wantQuery := "SELECT public_id, kickoff_at FROM fixtures WHERE gameweek = $1 AND deleted_at IS NULL ORDER BY kickoff_at, public_id LIMIT 10"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 1 || args[0] != 4 {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestInsertBuilder(t *testing.T) {
	query, args, err := InsertInto("predictions").
		Columns("user_public_id", "fixture_public_id").
		Values("u1", "fx-1").
		Values("u1", "fx-2").
		Suffix("ON CONFLICT (user_public_id, fixture_public_id) DO NOTHING").
		ToSQL()
	if err != nil {
		t.Fatalf("build insert query: %v", err)
	}

	wantQuery := "INSERT INTO predictions (user_public_id, fixture_public_id) VALUES ($1, $2), ($3, $4) ON CONFLICT (user_public_id, fixture_public_id) DO NOTHING"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 4 || args[0] != "u1" || args[3] != "fx-2" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestUpdateBuilder(t *testing.T) {
	query, args, err := Update("users").
		SetExpr("total_score", "(SELECT SUM(points) FROM gameweek_scores WHERE user_public_id = ?)", "u1").
		SetExpr("updated_at", "NOW()").
		Where(Eq("public_id", "u1")).
		ToSQL()
	if err != nil {
		t.Fatalf("build update query: %v", err)
	}

	wantQuery := "UPDATE users SET total_score = (SELECT SUM(points) FROM gameweek_scores WHERE user_public_id = $1), updated_at = NOW() WHERE public_id = $2"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 || args[0] != "u1" || args[1] != "u1" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestSelectBuilder_CompareAndForUpdate(t *testing.T) {
	query, args, err := Select("score_version").
		From("users").
		Where(Eq("public_id", "u1"), Lt("score_version", int64(9)), IsNull("deleted_at")).
		ForUpdate().
		ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}

	wantQuery := "SELECT score_version FROM users WHERE public_id = $1 AND score_version < $2 AND deleted_at IS NULL FOR UPDATE"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 || args[1] != int64(9) {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestUpdateBuilder_ExprWhere(t *testing.T) {
	query, args, err := Update("fixtures").
		Set("home_score", 2).
		Set("away_score", 1).
		Where(
			Eq("public_id", "fx-1"),
			Expr("(home_score IS DISTINCT FROM ? OR away_score IS DISTINCT FROM ?)", 2, 1),
		).
		ToSQL()
	if err != nil {
		t.Fatalf("build update query: %v", err)
	}

	wantQuery := "UPDATE fixtures SET home_score = $1, away_score = $2 WHERE public_id = $3 AND (home_score IS DISTINCT FROM $4 OR away_score IS DISTINCT FROM $5)"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 5 {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestInsertModel_SkipsIgnoredColumns(t *testing.T) {
	type row struct {
		UserID   string `db:"user_public_id"`
		Gameweek int    `db:"gameweek"`
		Ignored  string `db:"-"`
	}

	query, args, err := InsertModel("gameweek_scores", row{UserID: "u1", Gameweek: 3}, "ON CONFLICT (user_public_id, gameweek) DO NOTHING")
	if err != nil {
		t.Fatalf("build insert model query: %v", err)
	}

	wantQuery := "INSERT INTO gameweek_scores (user_public_id, gameweek) VALUES ($1, $2) ON CONFLICT (user_public_id, gameweek) DO NOTHING"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestInsertBuilder_RejectsShortRow(t *testing.T) {
	_, _, err := InsertInto("fixtures").Columns("public_id", "gameweek").Values("fx-1").ToSQL()
	if err == nil {
		t.Fatalf("expected error for mismatched row")
	}
}

func TestInsertModel_RejectsNonStruct(t *testing.T) {
	if _, _, err := InsertModel("fixtures", 42, ""); err == nil {
		t.Fatalf("expected error for non-struct model")
	}
	var nilRow *struct {
		ID string `db:"public_id"`
	}
	if _, _, err := InsertModel("fixtures", nilRow, ""); err == nil {
		t.Fatalf("expected error for nil model")
	}
}
