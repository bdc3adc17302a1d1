package database

import (
	"database/sql"
	"sync"

	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/staffbooks/staffbooks/config"
)

// Package-level singleton, initialized once per process.
var instance *Datasource
var once sync.Once

type Datasource struct {
	Conn *sql.DB
}

func NewDataSource(configuration *config.Configuration) (IDataSource, error) {
	con, err := GetDBConnection(configuration)
	if err != nil {
		return nil, err
	}
	return con, nil
}

// GetDBConnection provides a global access point to the datasource and
// initializes it if it's not already.
func GetDBConnection(configuration *config.Configuration) (*Datasource, error) {
	var err error
	once.Do(func() {
		con, errConn := ConnectDB(configuration.DataSource.Dns)
		if errConn != nil {
			err = errConn
			return
		}
		instance = &Datasource{Conn: con}
	})
	if err != nil {
		return nil, err
	}
	return instance, nil
}

func ConnectDB(dns string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dns)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if err := db.Ping(); err != nil {
		logrus.Errorf("database connection error: %v", err)
		return nil, errors.Wrap(err, "pinging database")
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates the schema. Safe to run repeatedly.
func Migrate(db *sql.DB) error {
	for _, create := range []func(*sql.DB) error{
		createPartyTable,
		createContractTable,
		createBankTransactionTable,
		createObligationTable,
		createAllocationTable,
		createPayerAliasTable,
	} {
		if err := create(db); err != nil {
			return err
		}
	}
	return nil
}

func createPartyTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS parties (
			id SERIAL PRIMARY KEY,
			party_id TEXT NOT NULL UNIQUE,
			kind TEXT NOT NULL CHECK (kind IN ('customer', 'employee')),
			display_name TEXT NOT NULL,
			phone TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_parties_display_name ON parties (LOWER(display_name))
	`)
	return errors.Wrap(err, "creating parties table")
}

func createContractTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS contracts (
			id SERIAL PRIMARY KEY,
			contract_id TEXT NOT NULL UNIQUE,
			customer_party_id TEXT NOT NULL REFERENCES parties(party_id),
			status TEXT NOT NULL CHECK (status IN ('active', 'terminated', 'finished')),
			start_date DATE NOT NULL,
			end_date DATE,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	return errors.Wrap(err, "creating contracts table")
}

func createBankTransactionTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS bank_transactions (
			id SERIAL PRIMARY KEY,
			transaction_id TEXT NOT NULL UNIQUE,
			direction TEXT NOT NULL CHECK (direction IN ('CREDIT', 'DEBIT')),
			amount NUMERIC(14,2) NOT NULL CHECK (amount > 0),
			payer_name TEXT NOT NULL,
			transaction_time TIMESTAMP NOT NULL,
			external_reference TEXT NOT NULL UNIQUE,
			summary TEXT,
			ignored BOOLEAN NOT NULL DEFAULT FALSE,
			ignore_remark TEXT,
			permanent_ignore BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_bank_transactions_time ON bank_transactions (transaction_time)
	`)
	return errors.Wrap(err, "creating bank_transactions table")
}

func createObligationTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS obligations (
			id SERIAL PRIMARY KEY,
			obligation_id TEXT NOT NULL UNIQUE,
			kind TEXT NOT NULL CHECK (kind IN ('customer_bill', 'employee_payroll', 'adjustment')),
			side TEXT NOT NULL CHECK (side IN ('receivable', 'payable')),
			owner_party_id TEXT NOT NULL REFERENCES parties(party_id),
			contract_id TEXT REFERENCES contracts(contract_id),
			period_year INT NOT NULL,
			period_month INT NOT NULL CHECK (period_month BETWEEN 1 AND 12),
			total_due NUMERIC(14,2) NOT NULL,
			description TEXT,
			category TEXT,
			is_last_bill BOOLEAN NOT NULL DEFAULT FALSE,
			is_merged BOOLEAN NOT NULL DEFAULT FALSE,
			paired_obligation_id TEXT,
			deleted BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_obligations_owner_period
			ON obligations (owner_party_id, period_year, period_month)
	`)
	return errors.Wrap(err, "creating obligations table")
}

func createAllocationTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS allocations (
			id SERIAL PRIMARY KEY,
			allocation_id TEXT NOT NULL UNIQUE,
			transaction_id TEXT NOT NULL REFERENCES bank_transactions(transaction_id),
			obligation_id TEXT NOT NULL REFERENCES obligations(obligation_id),
			obligation_kind TEXT NOT NULL,
			amount NUMERIC(14,2) NOT NULL CHECK (amount > 0),
			status TEXT NOT NULL CHECK (status IN ('active', 'reversed', 'transferred_out', 'transferred_in')),
			matched_alias TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_allocations_transaction ON allocations (transaction_id);
		CREATE INDEX IF NOT EXISTS idx_allocations_obligation ON allocations (obligation_id)
	`)
	return errors.Wrap(err, "creating allocations table")
}

func createPayerAliasTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS payer_aliases (
			id SERIAL PRIMARY KEY,
			alias_id TEXT NOT NULL UNIQUE,
			payer_name TEXT NOT NULL UNIQUE,
			party_id TEXT NOT NULL REFERENCES parties(party_id),
			contract_id TEXT,
			notes TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	return errors.Wrap(err, "creating payer_aliases table")
}
