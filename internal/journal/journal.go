// Package journal persists signals and orders to an embedded DuckDB database
// so runs can be audited after the fact.
package journal

import (
	"database/sql"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"

	"github.com/helios-trade/helios/internal/logger"
	"github.com/helios-trade/helios/internal/types"
	"github.com/helios-trade/helios/pkg/errors"
)

// Journal records trading activity. Journal failures never interrupt the
// trading loop; callers log and move on.
type Journal struct {
	db  *sql.DB
	sq  squirrel.StatementBuilderType
	log *logger.Logger
}

// Open opens (or creates) the journal database at path. Use ":memory:" for an
// ephemeral journal.
func Open(path string, log *logger.Logger) (*Journal, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeJournalFailed, err, "failed to open journal at %s", path)
	}

	j := &Journal{
		db:  db,
		sq:  squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
		log: log,
	}

	if err := j.initialize(); err != nil {
		db.Close()

		return nil, err
	}

	return j, nil
}

func (j *Journal) initialize() error {
	_, err := j.db.Exec(`
		CREATE TABLE IF NOT EXISTS signals (
			time TIMESTAMP,
			symbol TEXT,
			action TEXT,
			price DOUBLE,
			stop_loss DOUBLE,
			reason TEXT,
			strategy_name TEXT
		)
	`)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeJournalFailed, err, "failed to create signals table")
	}

	_, err = j.db.Exec(`
		CREATE TABLE IF NOT EXISTS orders (
			order_id TEXT,
			client_order_id TEXT,
			symbol TEXT,
			side TEXT,
			order_type TEXT,
			quantity BIGINT,
			stop_price DOUBLE,
			status TEXT,
			strategy_name TEXT,
			created_at TIMESTAMP
		)
	`)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeJournalFailed, err, "failed to create orders table")
	}

	return nil
}

// RecordSignal persists an actionable signal.
func (j *Journal) RecordSignal(signal types.Signal) error {
	_, err := j.sq.
		Insert("signals").
		Columns("time", "symbol", "action", "price", "stop_loss", "reason", "strategy_name").
		Values(
			signal.Time,
			signal.Symbol,
			string(signal.Action),
			signal.Price.TakeOr(0),
			signal.StopLoss.TakeOr(0),
			signal.Reason,
			signal.Strategy,
		).
		RunWith(j.db).
		Exec()
	if err != nil {
		return errors.Wrapf(errors.ErrCodeJournalFailed, err, "failed to record signal for %s", signal.Symbol)
	}

	return nil
}

// RecordOrder persists a submitted order together with the strategy that
// produced it.
func (j *Journal) RecordOrder(order types.Order, strategyName string) error {
	_, err := j.sq.
		Insert("orders").
		Columns(
			"order_id", "client_order_id", "symbol", "side", "order_type",
			"quantity", "stop_price", "status", "strategy_name", "created_at",
		).
		Values(
			order.ID,
			order.ClientOrderID,
			order.Symbol,
			string(order.Side),
			string(order.Type),
			order.Qty,
			order.StopPrice.TakeOr(0),
			string(order.Status),
			strategyName,
			order.CreatedAt,
		).
		RunWith(j.db).
		Exec()
	if err != nil {
		return errors.Wrapf(errors.ErrCodeJournalFailed, err, "failed to record order %s", order.ID)
	}

	return nil
}

// OrderRecord is one journaled order row.
type OrderRecord struct {
	OrderID       string
	ClientOrderID string
	Symbol        string
	Side          string
	Type          string
	Qty           int64
	StopPrice     float64
	Status        string
	StrategyName  string
	CreatedAt     time.Time
}

// Orders returns the most recent journaled orders, newest first.
func (j *Journal) Orders(limit int) ([]OrderRecord, error) {
	rows, err := j.sq.
		Select(
			"order_id", "client_order_id", "symbol", "side", "order_type",
			"quantity", "stop_price", "status", "strategy_name", "created_at",
		).
		From("orders").
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		RunWith(j.db).
		Query()
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeJournalFailed, err, "failed to query orders")
	}
	defer rows.Close()

	var records []OrderRecord

	for rows.Next() {
		var rec OrderRecord

		err := rows.Scan(
			&rec.OrderID, &rec.ClientOrderID, &rec.Symbol, &rec.Side, &rec.Type,
			&rec.Qty, &rec.StopPrice, &rec.Status, &rec.StrategyName, &rec.CreatedAt,
		)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeJournalFailed, err, "failed to scan order row")
		}

		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeJournalFailed, err, "failed to iterate order rows")
	}

	return records, nil
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}
