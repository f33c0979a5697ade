package database

import (
	"context"
	"database/sql"
	"fmt"
)

// BusinessTables lists the workspace-scoped tables in parent-before-child order.
// Deleting must walk the list in reverse.
var BusinessTables = []string{
	"suppliers",
	"customers",
	"employees",
	"products",
	"purchases",
	"sales",
	"returns",
	"income",
	"remittance",
}

// Migrate runs the SQL statements to set up the workspace data schema.
func Migrate(ctx context.Context, db *sql.DB) error {
	const sqlStmt = `
	CREATE TABLE IF NOT EXISTS workspaces (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		description TEXT,
		created_at TEXT DEFAULT (datetime('now')),
		updated_at TEXT DEFAULT (datetime('now'))
	);

	CREATE TABLE IF NOT EXISTS suppliers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		userId INTEGER NOT NULL DEFAULT 0,
		workspaceId INTEGER,
		name TEXT NOT NULL,
		note TEXT,
		created_at TEXT DEFAULT (datetime('now')),
		updated_at TEXT DEFAULT (datetime('now')),
		FOREIGN KEY (workspaceId) REFERENCES workspaces (id) ON DELETE CASCADE,
		UNIQUE(workspaceId, name)
	);

	CREATE TABLE IF NOT EXISTS customers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		userId INTEGER NOT NULL DEFAULT 0,
		workspaceId INTEGER,
		name TEXT NOT NULL,
		note TEXT,
		created_at TEXT DEFAULT (datetime('now')),
		updated_at TEXT DEFAULT (datetime('now')),
		FOREIGN KEY (workspaceId) REFERENCES workspaces (id) ON DELETE CASCADE,
		UNIQUE(workspaceId, name)
	);

	CREATE TABLE IF NOT EXISTS employees (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		userId INTEGER NOT NULL DEFAULT 0,
		workspaceId INTEGER,
		name TEXT NOT NULL,
		note TEXT,
		created_at TEXT DEFAULT (datetime('now')),
		updated_at TEXT DEFAULT (datetime('now')),
		FOREIGN KEY (workspaceId) REFERENCES workspaces (id) ON DELETE CASCADE,
		UNIQUE(workspaceId, name)
	);

	CREATE TABLE IF NOT EXISTS products (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		userId INTEGER NOT NULL DEFAULT 0,
		workspaceId INTEGER,
		name TEXT NOT NULL,
		description TEXT,
		stock REAL DEFAULT 0,
		unit TEXT NOT NULL,
		supplierId INTEGER,
		version INTEGER DEFAULT 1,
		created_at TEXT DEFAULT (datetime('now')),
		updated_at TEXT DEFAULT (datetime('now')),
		FOREIGN KEY (workspaceId) REFERENCES workspaces (id) ON DELETE CASCADE,
		FOREIGN KEY (supplierId) REFERENCES suppliers (id) ON DELETE SET NULL,
		UNIQUE(workspaceId, name)
	);

	CREATE TABLE IF NOT EXISTS purchases (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		userId INTEGER NOT NULL DEFAULT 0,
		workspaceId INTEGER,
		productName TEXT NOT NULL,
		quantity REAL NOT NULL,
		purchaseDate TEXT,
		supplierId INTEGER,
		totalPurchasePrice REAL,
		note TEXT,
		created_at TEXT DEFAULT (datetime('now')),
		FOREIGN KEY (workspaceId) REFERENCES workspaces (id) ON DELETE CASCADE,
		FOREIGN KEY (supplierId) REFERENCES suppliers (id) ON DELETE SET NULL
	);

	CREATE TABLE IF NOT EXISTS sales (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		userId INTEGER NOT NULL DEFAULT 0,
		workspaceId INTEGER,
		productName TEXT NOT NULL,
		quantity REAL NOT NULL,
		customerId INTEGER,
		saleDate TEXT,
		totalSalePrice REAL,
		note TEXT,
		created_at TEXT DEFAULT (datetime('now')),
		FOREIGN KEY (workspaceId) REFERENCES workspaces (id) ON DELETE CASCADE,
		FOREIGN KEY (customerId) REFERENCES customers (id) ON DELETE SET NULL
	);

	CREATE TABLE IF NOT EXISTS returns (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		userId INTEGER NOT NULL DEFAULT 0,
		workspaceId INTEGER,
		productName TEXT NOT NULL,
		quantity REAL NOT NULL,
		customerId INTEGER,
		returnDate TEXT,
		totalReturnPrice REAL,
		note TEXT,
		created_at TEXT DEFAULT (datetime('now')),
		FOREIGN KEY (workspaceId) REFERENCES workspaces (id) ON DELETE CASCADE,
		FOREIGN KEY (customerId) REFERENCES customers (id) ON DELETE SET NULL
	);

	CREATE TABLE IF NOT EXISTS income (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		userId INTEGER NOT NULL DEFAULT 0,
		workspaceId INTEGER,
		incomeDate TEXT NOT NULL,
		customerId INTEGER,
		amount REAL NOT NULL,
		discount REAL DEFAULT 0,
		employeeId INTEGER,
		paymentMethod TEXT NOT NULL,
		note TEXT,
		created_at TEXT DEFAULT (datetime('now')),
		FOREIGN KEY (workspaceId) REFERENCES workspaces (id) ON DELETE CASCADE,
		FOREIGN KEY (customerId) REFERENCES customers (id) ON DELETE SET NULL,
		FOREIGN KEY (employeeId) REFERENCES employees (id) ON DELETE SET NULL
	);

	CREATE TABLE IF NOT EXISTS remittance (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		userId INTEGER NOT NULL DEFAULT 0,
		workspaceId INTEGER,
		remittanceDate TEXT NOT NULL,
		supplierId INTEGER,
		amount REAL NOT NULL,
		employeeId INTEGER,
		paymentMethod TEXT NOT NULL,
		note TEXT,
		created_at TEXT DEFAULT (datetime('now')),
		FOREIGN KEY (workspaceId) REFERENCES workspaces (id) ON DELETE CASCADE,
		FOREIGN KEY (supplierId) REFERENCES suppliers (id) ON DELETE SET NULL,
		FOREIGN KEY (employeeId) REFERENCES employees (id) ON DELETE SET NULL
	);

	CREATE INDEX IF NOT EXISTS idx_products_workspaceId ON products(workspaceId);
	CREATE INDEX IF NOT EXISTS idx_purchases_workspaceId ON purchases(workspaceId);
	CREATE INDEX IF NOT EXISTS idx_sales_workspaceId ON sales(workspaceId);
	CREATE INDEX IF NOT EXISTS idx_returns_workspaceId ON returns(workspaceId);
	CREATE INDEX IF NOT EXISTS idx_income_workspaceId ON income(workspaceId);
	CREATE INDEX IF NOT EXISTS idx_remittance_workspaceId ON remittance(workspaceId);
	`
	if _, err := db.ExecContext(ctx, sqlStmt); err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}
	return nil
}
