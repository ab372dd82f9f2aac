// Package ingest holds the batch-file and streaming collaborators
// that turn raw input into ledger.Transaction values for the engine.
// Validation lives here, not in the engine: the core is total and
// never rejects a row.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"go.uber.org/zap"

	"github.com/banking/muling-detector/internal/ledger"
)

// ErrEmptyBatch is returned when a CSV file yields zero valid rows
// (§7's EmptyAnalysis: a user-visible error, not a panic).
var ErrEmptyBatch = errors.New("ingest: no valid transactions in input")

// expected header: tx_id,sender,receiver,amount,timestamp_ms
var csvHeader = []string{"tx_id", "sender", "receiver", "amount", "timestamp_ms"}

// ParseCSV reads a transaction batch from r. Malformed rows are
// skipped and logged (§7's InvalidInputRow); the header row, if
// present and matching csvHeader, is skipped automatically.
func ParseCSV(r io.Reader, logger *zap.Logger) ([]ledger.Transaction, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var txs []ledger.Transaction
	rowNum := 0
	skipped := 0

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			logger.Warn("skipping malformed csv row", zap.Int("row", rowNum), zap.Error(err))
			rowNum++
			continue
		}
		rowNum++

		if rowNum == 1 && isHeader(record) {
			continue
		}

		tx, err := parseRow(record)
		if err != nil {
			skipped++
			logger.Warn("skipping invalid transaction row", zap.Int("row", rowNum), zap.Error(err))
			continue
		}
		txs = append(txs, tx)
	}

	if len(txs) == 0 {
		return nil, ErrEmptyBatch
	}
	if skipped > 0 {
		logger.Info("csv ingest complete with skipped rows", zap.Int("skipped", skipped), zap.Int("accepted", len(txs)))
	}
	return txs, nil
}

func isHeader(record []string) bool {
	if len(record) != len(csvHeader) {
		return false
	}
	for i, h := range csvHeader {
		if record[i] != h {
			return false
		}
	}
	return true
}

func parseRow(record []string) (ledger.Transaction, error) {
	if len(record) != 5 {
		return ledger.Transaction{}, fmt.Errorf("expected 5 fields, got %d", len(record))
	}

	txID, sender, receiver, amountStr, tsStr := record[0], record[1], record[2], record[3], record[4]
	if txID == "" || sender == "" || receiver == "" {
		return ledger.Transaction{}, errors.New("tx_id, sender, and receiver are required")
	}
	if sender == receiver {
		return ledger.Transaction{}, errors.New("sender and receiver must differ")
	}

	amount, err := ledger.ParseMoney(amountStr)
	if err != nil {
		return ledger.Transaction{}, fmt.Errorf("invalid amount %q: %w", amountStr, err)
	}
	if amount.IsNegative() {
		return ledger.Transaction{}, fmt.Errorf("amount %q must not be negative", amountStr)
	}

	ts, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		return ledger.Transaction{}, fmt.Errorf("invalid timestamp %q: %w", tsStr, err)
	}

	return ledger.Transaction{
		TxID:     txID,
		Sender:   ledger.AcctID(sender),
		Receiver: ledger.AcctID(receiver),
		Amount:   amount,
		Ts:       ledger.EpochMs(ts),
	}, nil
}
