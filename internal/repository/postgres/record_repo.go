package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"fraud-detection-service/internal/client"
	"fraud-detection-service/internal/model"
)

// RecordRepository persists evaluated transactions and serves the paginated
// query endpoints. Rows are append-only: once written, a record is never
// mutated (redelivered messages produce new rows, not updates).
type RecordRepository struct {
	client *client.PostgresClient
	logger *zap.Logger
}

func NewRecordRepository(client *client.PostgresClient, logger *zap.Logger) *RecordRepository {
	return &RecordRepository{client: client, logger: logger}
}

// InsertRecord writes one evaluated transaction and returns the
// store-assigned transaction id.
func (r *RecordRepository) InsertRecord(ctx context.Context, tx *model.Transaction) (int64, error) {
	var reason sql.NullString
	if tx.FraudReason != "" {
		reason = sql.NullString{String: tx.FraudReason, Valid: true}
	}

	var id int64
	err := r.client.Pool.QueryRow(ctx,
		`INSERT INTO records
		   (amount, time_of_transaction, account_id, receipient_id, location, device, is_fraud, fraud_reason)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING transaction_id`,
		tx.Amount, tx.TimeOfTransaction, tx.AccountID, tx.ReceipientID,
		tx.Location, tx.Device, tx.IsFraud, reason,
	).Scan(&id)
	if err != nil {
		r.logger.Error("failed to insert record",
			zap.Int64("account_id", tx.AccountID),
			zap.Error(err))
		return 0, fmt.Errorf("failed to insert record: %w", err)
	}

	return id, nil
}

const recordColumns = `transaction_id, amount, time_of_transaction, account_id,
	receipient_id, location, device, is_fraud, fraud_reason`

// GetRecords returns a page of records ordered by transaction id.
func (r *RecordRepository) GetRecords(ctx context.Context, offset, limit int) ([]model.Transaction, error) {
	rows, err := r.client.Pool.Query(ctx,
		`SELECT `+recordColumns+` FROM records
		 ORDER BY transaction_id OFFSET $1 LIMIT $2`, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

func (r *RecordRepository) CountRecords(ctx context.Context) (int, error) {
	var count int
	if err := r.client.Pool.QueryRow(ctx, `SELECT count(*) FROM records`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return count, nil
}

// GetRecordByID returns the record with the given transaction id, as a slice
// (empty when absent) to match the query API's response shape.
func (r *RecordRepository) GetRecordByID(ctx context.Context, id int64) ([]model.Transaction, error) {
	rows, err := r.client.Pool.Query(ctx,
		`SELECT `+recordColumns+` FROM records WHERE transaction_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query record %d: %w", id, err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

func (r *RecordRepository) GetRecordsByAccountID(ctx context.Context, accountID int64, offset, limit int) ([]model.Transaction, error) {
	rows, err := r.client.Pool.Query(ctx,
		`SELECT `+recordColumns+` FROM records WHERE account_id = $1
		 ORDER BY transaction_id OFFSET $2 LIMIT $3`, accountID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query records for account %d: %w", accountID, err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

func (r *RecordRepository) CountRecordsByAccountID(ctx context.Context, accountID int64) (int, error) {
	var count int
	err := r.client.Pool.QueryRow(ctx,
		`SELECT count(*) FROM records WHERE account_id = $1`, accountID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count records for account %d: %w", accountID, err)
	}
	return count, nil
}

func (r *RecordRepository) GetRecordsByRecipientID(ctx context.Context, recipientID int64, offset, limit int) ([]model.Transaction, error) {
	rows, err := r.client.Pool.Query(ctx,
		`SELECT `+recordColumns+` FROM records WHERE receipient_id = $1
		 ORDER BY transaction_id OFFSET $2 LIMIT $3`, recipientID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query records for recipient %d: %w", recipientID, err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

func (r *RecordRepository) CountRecordsByRecipientID(ctx context.Context, recipientID int64) (int, error) {
	var count int
	err := r.client.Pool.QueryRow(ctx,
		`SELECT count(*) FROM records WHERE receipient_id = $1`, recipientID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count records for recipient %d: %w", recipientID, err)
	}
	return count, nil
}

func scanRecords(rows pgx.Rows) ([]model.Transaction, error) {
	var records []model.Transaction
	for rows.Next() {
		var (
			tx     model.Transaction
			reason sql.NullString
		)
		if err := rows.Scan(
			&tx.TransactionID, &tx.Amount, &tx.TimeOfTransaction, &tx.AccountID,
			&tx.ReceipientID, &tx.Location, &tx.Device, &tx.IsFraud, &reason,
		); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		tx.FraudReason = reason.String
		records = append(records, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}
	return records, nil
}

func collectStrings(rows pgx.Rows) ([]string, error) {
	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	return values, nil
}
