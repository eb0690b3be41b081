package scheduler

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"saldo/internal/domain/transaction"
)

// AccountLister returns the ids of every account to check.
type AccountLister interface {
	ListIDs(ctx context.Context) ([]string, error)
}

// Reconciler checks stored balances against transaction history.
type Reconciler interface {
	Reconcile(ctx context.Context, accountIDs []string, fix bool) *transaction.ReconcileResult
}

// ReconcileJob checks every account balance. With Fix unset it only reports.
type ReconcileJob struct {
	accounts   AccountLister
	reconciler Reconciler
	fix        bool
	logger     zerolog.Logger
}

func NewReconcileJob(accounts AccountLister, reconciler Reconciler, fix bool, logger zerolog.Logger) *ReconcileJob {
	return &ReconcileJob{
		accounts:   accounts,
		reconciler: reconciler,
		fix:        fix,
		logger:     logger,
	}
}

// Execute reconciles all accounts. Drift alone is not an error; accounts
// that could not be checked are.
func (j *ReconcileJob) Execute(ctx context.Context) error {
	ids, err := j.accounts.ListIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}

	result := j.reconciler.Reconcile(ctx, ids, j.fix)
	for _, d := range result.Drifts {
		j.logger.Warn().
			Str("account", d.AccountID).
			Str("stored", d.Stored.StringFixed(2)).
			Str("expected", d.Expected.StringFixed(2)).
			Bool("fixed", d.Fixed).
			Msg("scheduled reconcile found drift")
	}

	if len(result.Errors) > 0 {
		return fmt.Errorf("reconcile failed for %d of %d accounts: %s", len(result.Errors), result.AccountsChecked, result.Errors[0])
	}
	return nil
}

func (j *ReconcileJob) Description() string {
	if j.fix {
		return "reconcile balances (fix)"
	}
	return "reconcile balances (report)"
}
