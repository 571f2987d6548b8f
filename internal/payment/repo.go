package payment

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

const txCols = `id, amount, happened_at, debit_account, credit_account, details,
	memo, sender_account, sender_name, fingerprint, verified, created_at`

func scanTx(row pgx.Row) (Transaction, error) {
	var t Transaction
	err := row.Scan(&t.ID, &t.Amount, &t.HappenedAt, &t.DebitAccount, &t.CreditAccount,
		&t.Details, &t.Memo, &t.SenderAccount, &t.SenderName, &t.Fingerprint,
		&t.Verified, &t.CreatedAt)
	return t, err
}

// InsertIfNew stores the transaction unless one with the same fingerprint
// already exists. The unique constraint on fingerprint is the real guard;
// ON CONFLICT keeps re-ingestion silent.
func (r *Repo) InsertIfNew(ctx context.Context, t Transaction) (Transaction, bool, error) {
	err := r.DB.QueryRow(ctx, `
		INSERT INTO bank_transactions(amount, happened_at, debit_account, credit_account,
			details, memo, sender_account, sender_name, fingerprint)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (fingerprint) DO NOTHING
		RETURNING id, verified, created_at`,
		t.Amount, t.HappenedAt, t.DebitAccount, t.CreditAccount,
		t.Details, t.Memo, t.SenderAccount, t.SenderName, t.Fingerprint).
		Scan(&t.ID, &t.Verified, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		existing, gerr := r.GetByFingerprint(ctx, t.Fingerprint)
		if gerr != nil {
			return Transaction{}, false, gerr
		}
		return existing, false, nil
	}
	if err != nil {
		return Transaction{}, false, err
	}
	return t, true, nil
}

func (r *Repo) GetByFingerprint(ctx context.Context, fp string) (Transaction, error) {
	t, err := scanTx(r.DB.QueryRow(ctx,
		`SELECT `+txCols+` FROM bank_transactions WHERE fingerprint=$1`, fp))
	if errors.Is(err, pgx.ErrNoRows) {
		return Transaction{}, ErrTransactionNotFound
	}
	return t, err
}

func (r *Repo) Get(ctx context.Context, id int64) (Transaction, error) {
	t, err := scanTx(r.DB.QueryRow(ctx,
		`SELECT `+txCols+` FROM bank_transactions WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Transaction{}, ErrTransactionNotFound
	}
	return t, err
}

// GetTx loads one row inside an existing unit of work, locked so a
// concurrent match cannot verify it twice.
func (r *Repo) GetTx(ctx context.Context, tx pgx.Tx, id int64) (Transaction, error) {
	t, err := scanTx(tx.QueryRow(ctx,
		`SELECT `+txCols+` FROM bank_transactions WHERE id=$1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Transaction{}, ErrTransactionNotFound
	}
	return t, err
}

// FindMatchTx searches, inside the settlement transaction, for an
// unverified transfer whose memo carries the order code, whose amount is
// exactly the order total and which happened no earlier than notBefore.
// The \M anchor keeps QMORD4 from claiming a QMORD42 transfer.
func (r *Repo) FindMatchTx(ctx context.Context, tx pgx.Tx, orderCode string, amount int64, notBefore time.Time) (Transaction, bool, error) {
	t, err := scanTx(tx.QueryRow(ctx, `
		SELECT `+txCols+` FROM bank_transactions
		WHERE NOT verified
		  AND memo ~ ($1 || '\M')
		  AND amount = $2
		  AND happened_at >= $3
		ORDER BY happened_at
		LIMIT 1
		FOR UPDATE`,
		orderCode, amount, notBefore))
	if errors.Is(err, pgx.ErrNoRows) {
		return Transaction{}, false, nil
	}
	if err != nil {
		return Transaction{}, false, err
	}
	return t, true, nil
}

func (r *Repo) MarkVerifiedTx(ctx context.Context, tx pgx.Tx, id int64) error {
	ct, err := tx.Exec(ctx,
		`UPDATE bank_transactions SET verified=TRUE WHERE id=$1 AND NOT verified`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

type ListFilter struct {
	Memo     string
	Verified *bool
	Limit    int
	Offset   int
}

func (r *Repo) List(ctx context.Context, f ListFilter) ([]Transaction, error) {
	q := `SELECT ` + txCols + ` FROM bank_transactions WHERE TRUE`
	args := []any{}
	if f.Memo != "" {
		args = append(args, "%"+f.Memo+"%")
		q += ` AND memo LIKE $1`
	}
	if f.Verified != nil {
		args = append(args, *f.Verified)
		q += ` AND verified = $` + strconv.Itoa(len(args))
	}
	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	args = append(args, limit, f.Offset)
	q += ` ORDER BY happened_at DESC LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		t, err := scanTx(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
