package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Bootstrap creates the schema on startup. Statements are idempotent so
// every binary can run it unconditionally before serving.
func Bootstrap(ctx context.Context, db *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS products (
			id          BIGSERIAL PRIMARY KEY,
			sku         TEXT UNIQUE NOT NULL,
			title       TEXT NOT NULL,
			category_id BIGINT NOT NULL DEFAULT 0,
			price       BIGINT NOT NULL,
			stock       INT NOT NULL DEFAULT 0 CHECK (stock >= 0),
			is_combo    BOOLEAN NOT NULL DEFAULT FALSE,
			active      BOOLEAN NOT NULL DEFAULT TRUE,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS combo_items (
			combo_id   BIGINT NOT NULL REFERENCES products(id),
			product_id BIGINT NOT NULL REFERENCES products(id),
			qty        INT NOT NULL CHECK (qty > 0),
			PRIMARY KEY (combo_id, product_id)
		)`,
		`CREATE TABLE IF NOT EXISTS cart_items (
			buyer_id   BIGINT NOT NULL,
			product_id BIGINT NOT NULL REFERENCES products(id),
			qty        INT NOT NULL CHECK (qty > 0),
			selected   BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (buyer_id, product_id)
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			id                 BIGSERIAL PRIMARY KEY,
			buyer_id           BIGINT NOT NULL,
			order_code         TEXT UNIQUE,
			payment_status     TEXT NOT NULL,
			fulfillment_status TEXT NOT NULL,
			order_status       TEXT NOT NULL,
			payment_method     TEXT NOT NULL,
			fulfillment_method TEXT NOT NULL,
			subtotal           BIGINT NOT NULL,
			discount           BIGINT NOT NULL DEFAULT 0,
			shipping_fee       BIGINT NOT NULL DEFAULT 0,
			vat                BIGINT NOT NULL DEFAULT 0,
			total              BIGINT NOT NULL,
			total_pay          BIGINT NOT NULL,
			voucher_id         BIGINT,
			transaction_id     BIGINT,
			receiver_name      TEXT NOT NULL DEFAULT '',
			receiver_phone     TEXT NOT NULL DEFAULT '',
			receiver_address   TEXT NOT NULL DEFAULT '',
			cancel_reason      TEXT NOT NULL DEFAULT '',
			created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS order_items (
			id            BIGSERIAL PRIMARY KEY,
			order_id      BIGINT NOT NULL REFERENCES orders(id),
			product_id    BIGINT NOT NULL,
			product_title TEXT NOT NULL,
			category_id   BIGINT NOT NULL DEFAULT 0,
			qty           INT NOT NULL CHECK (qty > 0),
			unit_price    BIGINT NOT NULL,
			line_total    BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS order_item_components (
			order_item_id BIGINT NOT NULL REFERENCES order_items(id),
			product_id    BIGINT NOT NULL,
			qty_per_unit  INT NOT NULL CHECK (qty_per_unit > 0),
			PRIMARY KEY (order_item_id, product_id)
		)`,
		`CREATE TABLE IF NOT EXISTS stock_ledger (
			id             BIGSERIAL PRIMARY KEY,
			type           TEXT NOT NULL,
			reference_type TEXT NOT NULL DEFAULT '',
			reference_id   TEXT NOT NULL DEFAULT '',
			note           TEXT NOT NULL DEFAULT '',
			created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_stock_ledger_out_ref
			ON stock_ledger (reference_type, reference_id)
			WHERE type = 'OUT' AND reference_type <> ''`,
		`CREATE TABLE IF NOT EXISTS stock_ledger_lines (
			id         BIGSERIAL PRIMARY KEY,
			ledger_id  BIGINT NOT NULL REFERENCES stock_ledger(id),
			product_id BIGINT NOT NULL REFERENCES products(id),
			change     TEXT NOT NULL,
			qty        INT NOT NULL CHECK (qty > 0)
		)`,
		`CREATE TABLE IF NOT EXISTS vouchers (
			id               BIGSERIAL PRIMARY KEY,
			code             TEXT UNIQUE NOT NULL,
			kind             TEXT NOT NULL,
			target           TEXT NOT NULL,
			value            BIGINT NOT NULL,
			max_discount     BIGINT NOT NULL DEFAULT 0,
			min_order_amount BIGINT NOT NULL DEFAULT 0,
			usage_limit      INT NOT NULL,
			per_buyer_limit  INT NOT NULL DEFAULT 0,
			used_count       INT NOT NULL DEFAULT 0,
			valid_from       TIMESTAMPTZ NOT NULL,
			valid_to         TIMESTAMPTZ NOT NULL,
			active           BOOLEAN NOT NULL DEFAULT TRUE,
			created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS voucher_usages (
			id         BIGSERIAL PRIMARY KEY,
			voucher_id BIGINT NOT NULL REFERENCES vouchers(id),
			buyer_id   BIGINT NOT NULL,
			order_id   BIGINT NOT NULL,
			discount   BIGINT NOT NULL DEFAULT 0,
			used_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (voucher_id, order_id)
		)`,
		`CREATE TABLE IF NOT EXISTS bank_transactions (
			id             BIGSERIAL PRIMARY KEY,
			amount         BIGINT NOT NULL,
			happened_at    TIMESTAMPTZ NOT NULL,
			debit_account  TEXT NOT NULL DEFAULT '',
			credit_account TEXT NOT NULL DEFAULT '',
			details        TEXT NOT NULL DEFAULT '',
			memo           TEXT NOT NULL DEFAULT '',
			sender_account TEXT NOT NULL DEFAULT '',
			sender_name    TEXT NOT NULL DEFAULT '',
			fingerprint    TEXT UNIQUE NOT NULL,
			verified       BOOLEAN NOT NULL DEFAULT FALSE,
			created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(ctx, s); err != nil {
			return err
		}
	}
	return nil
}
