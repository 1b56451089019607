package database

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const migrationsDir = "../../migrations"

func readMigration(t *testing.T, name string) string {
	t.Helper()
	content, err := os.ReadFile(filepath.Join(migrationsDir, name))
	if err != nil {
		t.Fatalf("Failed to read migration %s: %v", name, err)
	}
	return string(content)
}

// Feature: inventory-ledger, Property 30: Pending migrations are executed
func TestMigrationFilesExist(t *testing.T) {
	if _, err := os.Stat(migrationsDir); os.IsNotExist(err) {
		t.Fatal("Migrations directory does not exist")
	}

	expectedMigrations := []string{
		"00001_create_users.sql",
		"00002_create_catalog.sql",
		"00003_create_ledger.sql",
		"00004_create_stock_movements.sql",
		"00005_create_updated_at_trigger.sql",
	}

	for _, migration := range expectedMigrations {
		path := filepath.Join(migrationsDir, migration)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			t.Errorf("Migration file %s does not exist", migration)
		}
	}
}

func TestMigrationFilesHaveUpAndDown(t *testing.T) {
	files, err := os.ReadDir(migrationsDir)
	if err != nil {
		t.Fatalf("Failed to read migrations directory: %v", err)
	}

	sqlFileCount := 0
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".sql") {
			continue
		}

		sqlFileCount++
		content := readMigration(t, file.Name())

		for _, directive := range []string{
			"-- +goose Up",
			"-- +goose Down",
			"-- +goose StatementBegin",
			"-- +goose StatementEnd",
		} {
			if !strings.Contains(content, directive) {
				t.Errorf("Migration file %s missing '%s' directive", file.Name(), directive)
			}
		}
	}

	if sqlFileCount == 0 {
		t.Error("No SQL migration files found")
	}
}

func TestMigrationFilesCreateExpectedTables(t *testing.T) {
	expectedTables := map[string]string{
		"users":             "00001_create_users.sql",
		"refresh_tokens":    "00001_create_users.sql",
		"categories":        "00002_create_catalog.sql",
		"products":          "00002_create_catalog.sql",
		"transactions":      "00003_create_ledger.sql",
		"transaction_items": "00003_create_ledger.sql",
		"stock_movements":   "00004_create_stock_movements.sql",
	}

	for tableName, migrationFile := range expectedTables {
		content := readMigration(t, migrationFile)

		if !strings.Contains(content, "CREATE TABLE IF NOT EXISTS "+tableName+" (") {
			t.Errorf("Migration file %s does not create table %s", migrationFile, tableName)
		}
		if !strings.Contains(content, "DROP TABLE IF EXISTS "+tableName+";") {
			t.Errorf("Migration file %s does not drop table %s in down section", migrationFile, tableName)
		}
	}
}

func TestProductsTableGuardsStockAndPrice(t *testing.T) {
	content := readMigration(t, "00002_create_catalog.sql")

	for _, fragment := range []string{
		"price NUMERIC(10, 2) NOT NULL CHECK (price >= 0)",
		"stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0)",
		"REFERENCES categories(id) ON DELETE SET NULL",
		"slug VARCHAR(200) UNIQUE NOT NULL",
	} {
		if !strings.Contains(content, fragment) {
			t.Errorf("Products table missing definition: %s", fragment)
		}
	}
}

func TestLedgerTablesHaveConstraints(t *testing.T) {
	content := readMigration(t, "00003_create_ledger.sql")

	for _, fragment := range []string{
		"CONSTRAINT transactions_transaction_id_key UNIQUE (transaction_id)",
		"REFERENCES transactions(id) ON DELETE CASCADE",
		"REFERENCES products(id) ON DELETE RESTRICT",
		"quantity INTEGER NOT NULL DEFAULT 1 CHECK (quantity >= 1)",
	} {
		if !strings.Contains(content, fragment) {
			t.Errorf("Ledger migration missing definition: %s", fragment)
		}
	}

	for _, value := range []string{"purchase", "sale", "return", "adjustment", "pending", "completed", "cancelled"} {
		if !strings.Contains(content, "'"+value+"'") {
			t.Errorf("Ledger migration check constraint missing value: %s", value)
		}
	}
}
