package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/shopspring/decimal"

	"financas/internal/amqp"
	"financas/internal/core"
	"financas/internal/storage"
)

// LedgerService orchestrates data entry across SQLite and AMQP. Writes land
// in SQLite first; the ledger mirror is asynchronous and never blocks a
// request.
type LedgerService struct {
	storage    *storage.SQLiteRepository
	amqpClient *amqp.Client
}

func NewLedgerService(storage *storage.SQLiteRepository, amqpClient *amqp.Client) *LedgerService {
	return &LedgerService{
		storage:    storage,
		amqpClient: amqpClient,
	}
}

// CreateTransaction saves a transaction locally and publishes a sync message.
func (s *LedgerService) CreateTransaction(ctx context.Context, t core.TransactionRecord) (string, error) {
	ref, err := s.storage.AppendTransaction(ctx, t)
	if err != nil {
		return "", fmt.Errorf("save transaction: %w", err)
	}

	id, err := strconv.ParseInt(ref, 10, 64)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to parse transaction ID", "ref", ref, "error", err)
		return ref, nil // SQLite save succeeded
	}

	if err := s.publishSyncMessage(ctx, id, t.Source); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"id", id, "error", err)
		// Don't fail the request, the transaction is saved locally
	}

	return ref, nil
}

// CreateCreditPurchase splits a credit purchase into monthly installments
// starting at the given month, saving each installment as its own
// transaction.
func (s *LedgerService) CreateCreditPurchase(ctx context.Context, purchase core.TransactionRecord, installments int) ([]string, error) {
	split, err := SplitInstallments(purchase, installments)
	if err != nil {
		return nil, err
	}

	refs := make([]string, 0, len(split))
	for _, t := range split {
		ref, err := s.CreateTransaction(ctx, t)
		if err != nil {
			return refs, fmt.Errorf("save installment %d of %d: %w", len(refs)+1, len(split), err)
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// CreateBudgetEntry saves a planned budget amount. A second amount for the
// same (month, category) is rejected by the store.
func (s *LedgerService) CreateBudgetEntry(ctx context.Context, b core.BudgetEntry) (string, error) {
	ref, err := s.storage.AppendBudgetEntry(ctx, b)
	if err != nil {
		return "", fmt.Errorf("save budget entry: %w", err)
	}
	return ref, nil
}

// SplitInstallments divides a purchase amount into n monthly transactions.
// Each installment is the total divided by n rounded to two decimal places,
// matching what the card statement will show.
func SplitInstallments(purchase core.TransactionRecord, installments int) ([]core.TransactionRecord, error) {
	if err := purchase.Validate(); err != nil {
		return nil, err
	}
	if installments < 1 {
		return nil, fmt.Errorf("%w: installments must be at least 1, got %d",
			core.ErrInvalidAmount, installments)
	}

	perMonth := purchase.Amount.Div(decimal.NewFromInt(int64(installments))).Round(2)

	split := make([]core.TransactionRecord, installments)
	month := purchase.Month
	for i := range split {
		t := purchase
		t.Month = month
		t.Amount = perMonth
		if installments > 1 {
			t.Description = fmt.Sprintf("%s (%d/%d)", purchase.Description, i+1, installments)
		}
		split[i] = t
		month = month.Next()
	}
	return split, nil
}

func (s *LedgerService) publishSyncMessage(ctx context.Context, id int64, src core.Source) error {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping sync message")
		return nil
	}
	return s.amqpClient.PublishTransactionSync(ctx, id, src)
}

// Close closes both storage and AMQP connections
func (s *LedgerService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %v", errs)
	}

	return nil
}
