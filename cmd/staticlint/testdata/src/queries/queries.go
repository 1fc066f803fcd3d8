package queries

import (
	"context"
	"database/sql"
)

func load(ctx context.Context, db *sql.DB) error {
	if err := db.Ping(); err != nil { // want "use DB.PingContext instead of Ping"
		return err
	}

	rows, err := db.Query("SELECT 1") // want "use DB.QueryContext instead of Query"
	if err != nil {
		return err
	}
	rows.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	_, _ = tx.Exec("DELETE FROM urls") // want "use Tx.ExecContext instead of Exec"
	_, _ = tx.ExecContext(ctx, "DELETE FROM url_checks")

	return tx.Commit()
}
