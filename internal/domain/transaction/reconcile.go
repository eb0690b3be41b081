package transaction

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"saldo/internal/domain/ledger"
)

// DefaultWorkerCount is the default number of concurrent reconcile workers
const DefaultWorkerCount = 4

// Drift describes an account whose stored balance disagrees with its
// opening balance plus transaction history.
type Drift struct {
	AccountID string
	Stored    decimal.Decimal
	Expected  decimal.Decimal
	Fixed     bool
}

// Diff is Stored minus Expected.
func (d Drift) Diff() decimal.Decimal {
	return d.Stored.Sub(d.Expected)
}

// ReconcileResult contains the results of a reconcile run
type ReconcileResult struct {
	AccountsChecked int
	Drifts          []Drift
	Errors          []string
}

type reconcileWorkerResult struct {
	drift *Drift
	err   error
}

// Reconciler recomputes account balances from transaction history. Each
// account is checked under its ledger lock so the check never races a
// mutation.
type Reconciler struct {
	store       Store
	coord       *ledger.Coordinator
	logger      zerolog.Logger
	workerCount int
}

// NewReconciler creates a reconciler. workerCount <= 0 uses DefaultWorkerCount.
func NewReconciler(store Store, coord *ledger.Coordinator, logger zerolog.Logger, workerCount int) *Reconciler {
	if workerCount <= 0 {
		workerCount = DefaultWorkerCount
	}
	return &Reconciler{
		store:       store,
		coord:       coord,
		logger:      logger,
		workerCount: workerCount,
	}
}

// Reconcile checks the given accounts concurrently. With fix set, drifting
// balances are overwritten with the recomputed value.
func (r *Reconciler) Reconcile(ctx context.Context, accountIDs []string, fix bool) *ReconcileResult {
	result := &ReconcileResult{
		AccountsChecked: len(accountIDs),
		Errors:          []string{},
	}
	if len(accountIDs) == 0 {
		return result
	}

	jobs := make(chan string, len(accountIDs))
	results := make(chan reconcileWorkerResult, len(accountIDs))

	var wg sync.WaitGroup
	for i := 0; i < r.workerCount; i++ {
		wg.Add(1)
		go r.worker(ctx, jobs, results, &wg, fix)
	}

	for _, id := range accountIDs {
		jobs <- id
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	for res := range results {
		if res.err != nil {
			result.Errors = append(result.Errors, res.err.Error())
			continue
		}
		if res.drift != nil {
			result.Drifts = append(result.Drifts, *res.drift)
		}
	}
	sort.Slice(result.Drifts, func(i, j int) bool {
		return result.Drifts[i].AccountID < result.Drifts[j].AccountID
	})

	r.logger.Info().
		Int("checked", result.AccountsChecked).
		Int("drifts", len(result.Drifts)).
		Int("errors", len(result.Errors)).
		Bool("fix", fix).
		Msg("reconcile completed")
	return result
}

func (r *Reconciler) worker(ctx context.Context, jobs <-chan string, results chan<- reconcileWorkerResult, wg *sync.WaitGroup, fix bool) {
	defer wg.Done()

	for id := range jobs {
		select {
		case <-ctx.Done():
			results <- reconcileWorkerResult{err: fmt.Errorf("account %s: %w", id, ctx.Err())}
		default:
			drift, err := r.checkAccount(ctx, id, fix)
			if err != nil {
				err = fmt.Errorf("account %s: %w", id, err)
			}
			results <- reconcileWorkerResult{drift: drift, err: err}
		}
	}
}

func (r *Reconciler) checkAccount(ctx context.Context, id string, fix bool) (*Drift, error) {
	var drift *Drift
	err := r.coord.WithAccount(ctx, "reconcile", id, func(ctx context.Context) error {
		return r.store.InLedgerTx(ctx, func(ctx context.Context, tx Tx) error {
			acc, err := tx.GetAccountForUpdate(ctx, id)
			if err != nil {
				return err
			}
			sum, err := tx.SumTransactions(ctx, id)
			if err != nil {
				return err
			}

			expected := acc.InitialBalance.Add(sum)
			if acc.Balance.Equal(expected) {
				return nil
			}

			drift = &Drift{AccountID: id, Stored: acc.Balance, Expected: expected}
			r.logger.Warn().
				Str("account", id).
				Str("stored", acc.Balance.StringFixed(2)).
				Str("expected", expected.StringFixed(2)).
				Msg("balance drift detected")
			if !fix {
				return nil
			}
			acc.Balance = expected
			if err := tx.SaveAccount(ctx, acc); err != nil {
				return err
			}
			drift.Fixed = true
			return nil
		})
	})
	return drift, err
}
