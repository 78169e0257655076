package db

import (
	"database/sql"
	"fmt"
	"marketplace/config"
	"strings"
)

type dialect struct {
	driver     string
	singleConn bool
	// amount is the column type of uint64 quantities.
	amount string
	// lock is appended to reads that precede a write in the same transaction.
	lock          string
	autoIncrement string
	tableSuffix   string
	upsertWallet  string
	inlineIndex   bool
}

var (
	mysqlDialect = &dialect{
		driver:        config.DriverMySQL,
		amount:        "DECIMAL(20, 0) UNSIGNED NOT NULL",
		lock:          " FOR UPDATE",
		autoIncrement: "BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY",
		tableSuffix:   " ENGINE=InnoDB DEFAULT CHARSET=utf8mb4",
		upsertWallet:  "INSERT INTO `wallet` (`address`, `lamports`) VALUES (?, ?) ON DUPLICATE KEY UPDATE `lamports` = VALUES(`lamports`)",
		inlineIndex:   true,
	}

	sqliteDialect = &dialect{
		driver:        config.DriverSQLite,
		singleConn:    true,
		amount:        "TEXT NOT NULL",
		lock:          "",
		autoIncrement: "INTEGER PRIMARY KEY AUTOINCREMENT",
		upsertWallet:  "INSERT INTO `wallet` (`address`, `lamports`) VALUES (?, ?) ON CONFLICT(`address`) DO UPDATE SET `lamports` = excluded.`lamports`",
	}
)

func dialectOf(driver string) (*dialect, error) {
	switch driver {
	case config.DriverMySQL:
		return mysqlDialect, nil
	case config.DriverSQLite:
		return sqliteDialect, nil
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
}

func (dl *dialect) dsn(dataSource string) string {
	if dl.driver != config.DriverSQLite || strings.Contains(dataSource, "?") {
		return dataSource
	}
	return dataSource + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

type table struct {
	name    string
	columns []string
	indexes map[string]string
}

func (dl *dialect) tables() []table {
	const key = "VARCHAR(44) NOT NULL"

	return []table{
		{
			name: "wallet",
			columns: []string{
				"`address` " + key + " PRIMARY KEY",
				"`lamports` " + dl.amount,
			},
		},
		{
			name: "mint",
			columns: []string{
				"`address` " + key + " PRIMARY KEY",
				"`decimals` INTEGER NOT NULL",
				"`supply` " + dl.amount,
				"`mint_authority` " + key,
				"`freeze_authority` " + key,
				"`lamports` " + dl.amount,
			},
		},
		{
			name: "token_account",
			columns: []string{
				"`address` " + key + " PRIMARY KEY",
				"`mint` " + key,
				"`owner` " + key,
				"`amount` " + dl.amount,
				"`lamports` " + dl.amount,
			},
			indexes: map[string]string{
				"idx_token_account_owner": "`owner`",
				"idx_token_account_mint":  "`mint`",
			},
		},
		{
			name: "metadata",
			columns: []string{
				"`address` " + key + " PRIMARY KEY",
				"`mint` " + key + " UNIQUE",
				"`name` VARCHAR(128) NOT NULL",
				"`symbol` VARCHAR(64) NOT NULL",
				"`uri` VARCHAR(1024) NOT NULL",
				"`update_authority` " + key,
				"`kind` VARCHAR(16) NOT NULL",
				"`collection` VARCHAR(44) NULL",
				"`verified` INTEGER NOT NULL",
				"`lamports` " + dl.amount,
			},
			indexes: map[string]string{
				"idx_metadata_collection": "`collection`",
			},
		},
		{
			name: "master_edition",
			columns: []string{
				"`address` " + key + " PRIMARY KEY",
				"`mint` " + key + " UNIQUE",
				"`max_supply` " + dl.amount,
				"`lamports` " + dl.amount,
			},
		},
		{
			name: "sale",
			columns: []string{
				"`mint` " + key + " PRIMARY KEY",
				"`address` " + key + " UNIQUE",
				"`seller` " + key,
				"`price` " + dl.amount,
				"`bump` INTEGER NOT NULL",
				"`custody` " + key,
				"`lamports` " + dl.amount,
				"`created_at` BIGINT NOT NULL",
			},
			indexes: map[string]string{
				"idx_sale_seller": "`seller`",
			},
		},
		{
			name: "activity",
			columns: []string{
				"`id` " + dl.autoIncrement,
				"`txid` VARCHAR(27) NOT NULL UNIQUE",
				"`kind` VARCHAR(16) NOT NULL",
				"`mint` " + key,
				"`seller` VARCHAR(44) NOT NULL DEFAULT ''",
				"`buyer` VARCHAR(44) NOT NULL DEFAULT ''",
				"`price` " + dl.amount,
				"`created_at` BIGINT NOT NULL",
			},
			indexes: map[string]string{
				"idx_activity_mint": "`mint`",
				"idx_activity_kind": "`kind`",
			},
		},
		{
			name: "nonce",
			columns: []string{
				"`signer` " + key,
				"`nonce` VARCHAR(64) NOT NULL",
				"`expires_at` BIGINT NOT NULL",
				"PRIMARY KEY (`signer`, `nonce`)",
			},
			indexes: map[string]string{
				"idx_nonce_expires_at": "`expires_at`",
			},
		},
	}
}

func (dl *dialect) statements() []string {
	stmts := []string{}

	for _, t := range dl.tables() {
		defs := append([]string{}, t.columns...)
		if dl.inlineIndex {
			for name, cols := range t.indexes {
				defs = append(defs, fmt.Sprintf("INDEX `%s` (%s)", name, cols))
			}
		}

		stmts = append(stmts, fmt.Sprintf("CREATE TABLE IF NOT EXISTS `%s` (\n\t%s\n)%s",
			t.name, strings.Join(defs, ",\n\t"), dl.tableSuffix))

		if !dl.inlineIndex {
			for name, cols := range t.indexes {
				stmts = append(stmts, fmt.Sprintf("CREATE INDEX IF NOT EXISTS `%s` ON `%s` (%s)", name, t.name, cols))
			}
		}
	}

	return stmts
}

func createSchema(conn *sql.DB, dl *dialect) error {
	for _, stmt := range dl.statements() {
		if _, err := conn.Exec(stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}
