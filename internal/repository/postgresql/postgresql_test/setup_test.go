package postgresql_test

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/cmlabs-hris/payroll-engine/internal/pkg/database"
	"github.com/stretchr/testify/require"
)

// TestDatabaseSetup holds a connection to the integration database.
type TestDatabaseSetup struct {
	DB *database.DB
}

// NewTestDatabase connects to TEST_DATABASE_URL and applies testdata/schema.sql.
// Tests are skipped when the variable is unset.
func NewTestDatabase(t *testing.T) *TestDatabaseSetup {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := database.NewPostgreSQLDB(dsn)
	require.NoError(t, err)

	schema, err := os.ReadFile("testdata/schema.sql")
	require.NoError(t, err)
	_, err = db.Exec(context.Background(), string(schema))
	require.NoError(t, err)

	setup := &TestDatabaseSetup{DB: db}
	require.NoError(t, setup.TruncateAllTables(context.Background()))
	t.Cleanup(setup.Close)
	return setup
}

// TruncateAllTables empties every table the repositories touch.
func (t *TestDatabaseSetup) TruncateAllTables(ctx context.Context) error {
	tx, err := t.DB.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tables := []string{
		"payroll_records",
		"salary_regulations",
		"leave_requests",
		"leave_types",
		"attendances",
		"employee_allowances",
		"employees",
		"positions",
	}

	for _, table := range tables {
		_, err := tx.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table))
		if err != nil {
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}

	return tx.Commit(ctx)
}

// seedEmployee inserts an employee and returns its id.
func (t *TestDatabaseSetup) seedEmployee(tb testing.TB, code, name, position string, baseSalary string) string {
	tb.Helper()
	ctx := context.Background()

	var positionID *string
	if position != "" {
		var id string
		err := t.DB.QueryRow(ctx, `INSERT INTO positions (name) VALUES ($1) RETURNING id`, position).Scan(&id)
		require.NoError(tb, err)
		positionID = &id
	}

	var id string
	err := t.DB.QueryRow(ctx, `
		INSERT INTO employees (employee_code, full_name, position_id, base_salary, marital_status, children_count)
		VALUES ($1, $2, $3, $4::numeric, 'married', 1)
		RETURNING id
	`, code, name, positionID, baseSalary).Scan(&id)
	require.NoError(tb, err)
	return id
}

// Close closes the pool.
func (t *TestDatabaseSetup) Close() {
	t.DB.Close()
}
