package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	domainErrors "github.com/scalekarrt/orderdesk/internal/domain/errors"
	"github.com/scalekarrt/orderdesk/internal/domain/model"
	"github.com/scalekarrt/orderdesk/internal/domain/repository"
)

// pgxPool is the subset of pgxpool.Pool the storage depends on. Tests swap it
// for a pgxmock pool.
type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// querier is satisfied by both the pool and pgx.Tx, so read helpers can run
// inside or outside a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var newPgxPool = func(ctx context.Context, cfg *pgxpool.Config) (pgxPool, error) {
	return pgxpool.NewWithConfig(ctx, cfg)
}

// Storage acts as repository facade backed by PostgreSQL.
type Storage struct {
	pool   pgxPool
	logger *slog.Logger
}

type orderRepository struct {
	storage *Storage
}

type productRepository struct {
	storage *Storage
}

// New creates storage with schema initialization.
func New(ctx context.Context, dsn string, logger *slog.Logger) (*Storage, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	pool, err := newPgxPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	storage := &Storage{pool: pool, logger: logger}
	if err := storage.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return storage, nil
}

// Close releases database resources.
func (s *Storage) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Factory methods for domain repositories.
func (s *Storage) Orders() repository.OrderRepository {
	return &orderRepository{storage: s}
}

func (s *Storage) Products() repository.ProductRepository {
	return &productRepository{storage: s}
}

func (s *Storage) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS products (
            id BIGSERIAL PRIMARY KEY,
            seller_id BIGINT NOT NULL,
            name TEXT NOT NULL,
            price NUMERIC(12,2) NOT NULL CHECK (price >= 0),
            stock INT NOT NULL DEFAULT 0 CHECK (stock >= 0),
            image_url TEXT NOT NULL DEFAULT '',
            is_approved BOOLEAN NOT NULL DEFAULT FALSE
        )`,
		`CREATE TABLE IF NOT EXISTS orders (
            id BIGSERIAL PRIMARY KEY,
            buyer_id BIGINT NOT NULL,
            status TEXT NOT NULL,
            street TEXT NOT NULL,
            city TEXT NOT NULL,
            state TEXT NOT NULL,
            country TEXT NOT NULL,
            postal_code TEXT NOT NULL,
            items_price NUMERIC(12,2) NOT NULL DEFAULT 0,
            tax_price NUMERIC(12,2) NOT NULL DEFAULT 0,
            shipping_price NUMERIC(12,2) NOT NULL DEFAULT 0,
            total_price NUMERIC(12,2) NOT NULL DEFAULT 0,
            receipt TEXT NOT NULL DEFAULT '',
            external_order_id TEXT,
            payment_id TEXT,
            payment_status TEXT,
            payment_method TEXT,
            payment_amount NUMERIC(12,2),
            payment_currency TEXT,
            paid_at TIMESTAMPTZ,
            delivered_at TIMESTAMPTZ,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE TABLE IF NOT EXISTS order_items (
            id BIGSERIAL PRIMARY KEY,
            order_id BIGINT NOT NULL REFERENCES orders(id),
            product_id BIGINT NOT NULL REFERENCES products(id),
            name TEXT NOT NULL,
            unit_price NUMERIC(12,2) NOT NULL,
            quantity INT NOT NULL CHECK (quantity >= 1),
            image_url TEXT NOT NULL DEFAULT '',
            seller_id BIGINT NOT NULL
        )`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_orders_payment ON orders(payment_id) WHERE payment_id IS NOT NULL`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_orders_external ON orders(external_order_id) WHERE external_order_id IS NOT NULL`,
		`CREATE INDEX IF NOT EXISTS idx_orders_buyer ON orders(buyer_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(order_id)`,
		`CREATE INDEX IF NOT EXISTS idx_order_items_seller ON order_items(seller_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}

	return nil
}

const orderColumns = `id, buyer_id, status, street, city, state, country, postal_code,
       items_price::text, tax_price::text, shipping_price::text, total_price::text,
       receipt, external_order_id, payment_id, payment_status, payment_method,
       payment_amount::text, payment_currency, paid_at, delivered_at, created_at, updated_at`

func scanOrder(row pgx.Row) (*model.Order, error) {
	var (
		o               model.Order
		itemsPrice      string
		taxPrice        string
		shippingPrice   string
		totalPrice      string
		externalOrderID *string
		paymentID       *string
		paymentStatus   *string
		paymentMethod   *string
		paymentAmount   *string
		paymentCurrency *string
		paidAt          *time.Time
	)

	err := row.Scan(
		&o.ID, &o.BuyerID, &o.Status,
		&o.ShippingAddress.Street, &o.ShippingAddress.City, &o.ShippingAddress.State,
		&o.ShippingAddress.Country, &o.ShippingAddress.PostalCode,
		&itemsPrice, &taxPrice, &shippingPrice, &totalPrice,
		&o.Receipt, &externalOrderID, &paymentID, &paymentStatus, &paymentMethod,
		&paymentAmount, &paymentCurrency, &paidAt, &o.DeliveredAt, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}

	if o.ItemsPrice, err = decimal.NewFromString(itemsPrice); err != nil {
		return nil, fmt.Errorf("parse items price: %w", err)
	}
	if o.TaxPrice, err = decimal.NewFromString(taxPrice); err != nil {
		return nil, fmt.Errorf("parse tax price: %w", err)
	}
	if o.ShippingPrice, err = decimal.NewFromString(shippingPrice); err != nil {
		return nil, fmt.Errorf("parse shipping price: %w", err)
	}
	if o.TotalPrice, err = decimal.NewFromString(totalPrice); err != nil {
		return nil, fmt.Errorf("parse total price: %w", err)
	}

	if externalOrderID != nil {
		o.ExternalOrderID = *externalOrderID
	}

	if paymentID != nil {
		payment := model.PaymentInfo{ID: *paymentID}
		if paymentStatus != nil {
			payment.Status = model.PaymentStatus(*paymentStatus)
		}
		if paymentMethod != nil {
			payment.Method = *paymentMethod
		}
		if paymentCurrency != nil {
			payment.Currency = *paymentCurrency
		}
		if paymentAmount != nil {
			if payment.Amount, err = decimal.NewFromString(*paymentAmount); err != nil {
				return nil, fmt.Errorf("parse payment amount: %w", err)
			}
		}
		if paidAt != nil {
			payment.PaidAt = *paidAt
		}
		o.Payment = &payment
	}

	return &o, nil
}

func loadOrderLines(ctx context.Context, q querier, orderID int64) ([]model.OrderLine, error) {
	const query = `SELECT product_id, name, unit_price::text, quantity, image_url, seller_id
                   FROM order_items WHERE order_id=$1 ORDER BY id`
	rows, err := q.Query(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []model.OrderLine
	for rows.Next() {
		var (
			line      model.OrderLine
			unitPrice string
		)
		if err := rows.Scan(&line.ProductID, &line.Name, &unitPrice, &line.Quantity, &line.ImageURL, &line.SellerID); err != nil {
			return nil, err
		}
		if line.UnitPrice, err = decimal.NewFromString(unitPrice); err != nil {
			return nil, fmt.Errorf("parse unit price: %w", err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

func getOrder(ctx context.Context, q querier, orderID int64) (*model.Order, error) {
	order, err := scanOrder(q.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, orderID))
	if err != nil {
		return nil, err
	}
	if order.Lines, err = loadOrderLines(ctx, q, orderID); err != nil {
		return nil, err
	}
	return order, nil
}

// --- OrderRepository implementation ---

func (r *orderRepository) CreateWithReservation(ctx context.Context, in repository.NewOrder) (*model.Order, error) {
	if len(in.Lines) == 0 {
		return nil, domainErrors.ErrValidation
	}

	// Lock product rows in id order so concurrent carts acquire locks in the
	// same sequence.
	requested := make([]repository.LineRequest, len(in.Lines))
	copy(requested, in.Lines)
	sort.Slice(requested, func(i, j int) bool { return requested[i].ProductID < requested[j].ProductID })

	var order *model.Order
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		lines := make([]model.OrderLine, 0, len(requested))
		for _, req := range requested {
			const lockQuery = `SELECT seller_id, name, price::text, stock, image_url, is_approved
                               FROM products WHERE id=$1 FOR UPDATE`
			var (
				sellerID int64
				name     string
				price    string
				stock    int
				imageURL string
				approved bool
			)
			err := tx.QueryRow(ctx, lockQuery, req.ProductID).Scan(&sellerID, &name, &price, &stock, &imageURL, &approved)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return fmt.Errorf("product %d: %w", req.ProductID, domainErrors.ErrProductUnavailable)
				}
				return err
			}
			if !approved {
				return fmt.Errorf("product %q not approved for sale: %w", name, domainErrors.ErrProductUnavailable)
			}
			if stock < req.Quantity {
				return &domainErrors.StockError{
					ProductID: req.ProductID,
					Name:      name,
					Requested: req.Quantity,
					Available: stock,
				}
			}

			unitPrice, err := decimal.NewFromString(price)
			if err != nil {
				return fmt.Errorf("parse product price: %w", err)
			}

			lines = append(lines, model.OrderLine{
				ProductID: req.ProductID,
				Name:      name,
				UnitPrice: unitPrice,
				Quantity:  req.Quantity,
				ImageURL:  imageURL,
				SellerID:  sellerID,
			})
		}

		// Every line passed its check under lock; now mutate.
		for _, line := range lines {
			if _, err := tx.Exec(ctx, `UPDATE products SET stock = stock - $2 WHERE id=$1`, line.ProductID, line.Quantity); err != nil {
				return err
			}
		}

		breakdown := model.ComputePriceBreakdown(lines)

		const insertOrder = `INSERT INTO orders
            (buyer_id, status, street, city, state, country, postal_code,
             items_price, tax_price, shipping_price, total_price, receipt)
            VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
            RETURNING id, created_at, updated_at`

		created := &model.Order{
			BuyerID:         in.BuyerID,
			Lines:           lines,
			ShippingAddress: in.ShippingAddress,
			Receipt:         in.Receipt,
			ItemsPrice:      breakdown.ItemsPrice,
			TaxPrice:        breakdown.TaxPrice,
			ShippingPrice:   breakdown.ShippingPrice,
			TotalPrice:      breakdown.TotalPrice,
			Status:          model.OrderStatusProcessing,
		}

		err := tx.QueryRow(ctx, insertOrder,
			in.BuyerID, model.OrderStatusProcessing,
			in.ShippingAddress.Street, in.ShippingAddress.City, in.ShippingAddress.State,
			in.ShippingAddress.Country, in.ShippingAddress.PostalCode,
			breakdown.ItemsPrice.String(), breakdown.TaxPrice.String(),
			breakdown.ShippingPrice.String(), breakdown.TotalPrice.String(),
			in.Receipt,
		).Scan(&created.ID, &created.CreatedAt, &created.UpdatedAt)
		if err != nil {
			return err
		}

		const insertItem = `INSERT INTO order_items
            (order_id, product_id, name, unit_price, quantity, image_url, seller_id)
            VALUES ($1,$2,$3,$4,$5,$6,$7)`
		for _, line := range lines {
			if _, err := tx.Exec(ctx, insertItem,
				created.ID, line.ProductID, line.Name, line.UnitPrice.String(),
				line.Quantity, line.ImageURL, line.SellerID,
			); err != nil {
				return err
			}
		}

		order = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) GetByID(ctx context.Context, orderID int64) (*model.Order, error) {
	return getOrder(ctx, r.storage.pool, orderID)
}

func (r *orderRepository) GetByExternalOrderID(ctx context.Context, externalOrderID string) (*model.Order, error) {
	order, err := scanOrder(r.storage.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE external_order_id=$1`, externalOrderID))
	if err != nil {
		return nil, err
	}
	if order.Lines, err = loadOrderLines(ctx, r.storage.pool, order.ID); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) listOrders(ctx context.Context, query string, countQuery string, args []any, countArgs []any) ([]model.Order, int, error) {
	rows, err := r.storage.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	for i := range orders {
		if orders[i].Lines, err = loadOrderLines(ctx, r.storage.pool, orders[i].ID); err != nil {
			return nil, 0, err
		}
	}

	var total int
	if err := r.storage.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *orderRepository) ListByBuyer(ctx context.Context, buyerID int64, page, limit int) ([]model.Order, int, error) {
	offset := pageOffset(page, limit)
	query := `SELECT ` + orderColumns + ` FROM orders WHERE buyer_id=$1
              ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	countQuery := `SELECT COUNT(*) FROM orders WHERE buyer_id=$1`
	return r.listOrders(ctx, query, countQuery, []any{buyerID, limit, offset}, []any{buyerID})
}

func (r *orderRepository) ListBySeller(ctx context.Context, sellerID int64, status model.OrderStatus, page, limit int) ([]model.Order, int, error) {
	offset := pageOffset(page, limit)
	if status != "" {
		query := `SELECT ` + orderColumns + ` FROM orders
                  WHERE status=$2 AND id IN (SELECT order_id FROM order_items WHERE seller_id=$1)
                  ORDER BY created_at DESC LIMIT $3 OFFSET $4`
		countQuery := `SELECT COUNT(*) FROM orders
                  WHERE status=$2 AND id IN (SELECT order_id FROM order_items WHERE seller_id=$1)`
		return r.listOrders(ctx, query, countQuery, []any{sellerID, status, limit, offset}, []any{sellerID, status})
	}
	query := `SELECT ` + orderColumns + ` FROM orders
              WHERE id IN (SELECT order_id FROM order_items WHERE seller_id=$1)
              ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	countQuery := `SELECT COUNT(*) FROM orders
              WHERE id IN (SELECT order_id FROM order_items WHERE seller_id=$1)`
	return r.listOrders(ctx, query, countQuery, []any{sellerID, limit, offset}, []any{sellerID})
}

func pageOffset(page, limit int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * limit
}

func (r *orderRepository) SetExternalOrderID(ctx context.Context, orderID int64, externalOrderID string) error {
	tag, err := r.storage.pool.Exec(ctx,
		`UPDATE orders SET external_order_id=$2, updated_at=NOW() WHERE id=$1`, orderID, externalOrderID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrNotFound
	}
	return nil
}

func (r *orderRepository) Transition(ctx context.Context, orderID int64, to model.OrderStatus) (*model.Order, error) {
	var order *model.Order
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		var current model.OrderStatus
		err := tx.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1 FOR UPDATE`, orderID).Scan(&current)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domainErrors.ErrNotFound
			}
			return err
		}

		if !model.CanTransition(current, to) {
			return fmt.Errorf("%s -> %s: %w", current, to, domainErrors.ErrInvalidTransition)
		}

		if to == model.OrderStatusDelivered {
			_, err = tx.Exec(ctx, `UPDATE orders SET status=$2, delivered_at=NOW(), updated_at=NOW() WHERE id=$1`, orderID, to)
		} else {
			_, err = tx.Exec(ctx, `UPDATE orders SET status=$2, updated_at=NOW() WHERE id=$1`, orderID, to)
		}
		if err != nil {
			return err
		}

		order, err = getOrder(ctx, tx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) Cancel(ctx context.Context, orderID int64) (*model.Order, error) {
	var order *model.Order
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		var current model.OrderStatus
		err := tx.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1 FOR UPDATE`, orderID).Scan(&current)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domainErrors.ErrNotFound
			}
			return err
		}

		if current != model.OrderStatusProcessing {
			return domainErrors.ErrNotCancellable
		}

		if err := restoreStockTx(ctx, tx, orderID); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `UPDATE orders SET status=$2, updated_at=NOW() WHERE id=$1`,
			orderID, model.OrderStatusCancelled); err != nil {
			return err
		}

		order, err = getOrder(ctx, tx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) CancelForRefund(ctx context.Context, orderID int64, restock bool) (*model.Order, error) {
	var order *model.Order
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		var current model.OrderStatus
		err := tx.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1 FOR UPDATE`, orderID).Scan(&current)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domainErrors.ErrNotFound
			}
			return err
		}

		if current == model.OrderStatusCancelled {
			order, err = getOrder(ctx, tx, orderID)
			return err
		}

		// Stock goes back only for orders that never shipped.
		if restock && current == model.OrderStatusProcessing {
			if err := restoreStockTx(ctx, tx, orderID); err != nil {
				return err
			}
		}

		if _, err := tx.Exec(ctx, `UPDATE orders SET status=$2, updated_at=NOW() WHERE id=$1`,
			orderID, model.OrderStatusCancelled); err != nil {
			return err
		}

		order, err = getOrder(ctx, tx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) ExpireUnpaid(ctx context.Context, orderID int64) (*model.Order, error) {
	var order *model.Order
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		var (
			current   model.OrderStatus
			paymentID *string
		)
		err := tx.QueryRow(ctx, `SELECT status, payment_id FROM orders WHERE id=$1 FOR UPDATE`, orderID).
			Scan(&current, &paymentID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domainErrors.ErrNotFound
			}
			return err
		}

		if current != model.OrderStatusProcessing || paymentID != nil {
			return domainErrors.ErrNotCancellable
		}

		if err := restoreStockTx(ctx, tx, orderID); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `UPDATE orders SET status=$2, updated_at=NOW() WHERE id=$1`,
			orderID, model.OrderStatusCancelled); err != nil {
			return err
		}

		order, err = getOrder(ctx, tx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func restoreStockTx(ctx context.Context, tx pgx.Tx, orderID int64) error {
	rows, err := tx.Query(ctx, `SELECT product_id, quantity FROM order_items WHERE order_id=$1 ORDER BY product_id`, orderID)
	if err != nil {
		return err
	}
	defer rows.Close()

	type lineQty struct {
		productID int64
		quantity  int
	}
	var lines []lineQty
	for rows.Next() {
		var l lineQty
		if err := rows.Scan(&l.productID, &l.quantity); err != nil {
			return err
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()

	for _, l := range lines {
		if _, err := tx.Exec(ctx, `UPDATE products SET stock = stock + $2 WHERE id=$1`, l.productID, l.quantity); err != nil {
			return err
		}
	}
	return nil
}

func (r *orderRepository) RecordPayment(ctx context.Context, orderID int64, payment model.PaymentInfo) (*model.Order, bool, error) {
	var (
		order   *model.Order
		applied bool
	)
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		var existing *string
		err := tx.QueryRow(ctx, `SELECT payment_id FROM orders WHERE id=$1 FOR UPDATE`, orderID).Scan(&existing)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domainErrors.ErrNotFound
			}
			return err
		}

		if existing != nil {
			if *existing == payment.ID {
				// Duplicate delivery of the same confirmation: no-op.
				order, err = getOrder(ctx, tx, orderID)
				return err
			}
			return domainErrors.ErrPaymentConflict
		}

		var claimed int64
		err = tx.QueryRow(ctx, `SELECT id FROM orders WHERE payment_id=$1 AND id<>$2`, payment.ID, orderID).Scan(&claimed)
		if err == nil {
			return domainErrors.ErrPaymentConflict
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return err
		}

		const update = `UPDATE orders
            SET payment_id=$2, payment_status=$3, payment_method=$4,
                payment_amount=$5, payment_currency=$6, paid_at=NOW(), updated_at=NOW()
            WHERE id=$1`
		if _, err := tx.Exec(ctx, update, orderID,
			payment.ID, payment.Status, payment.Method, payment.Amount.String(), payment.Currency); err != nil {
			return err
		}

		applied = true
		order, err = getOrder(ctx, tx, orderID)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return order, applied, nil
}

func (r *orderRepository) SelectUnpaidForReconciliation(ctx context.Context, limit int) ([]model.Order, error) {
	const selectQuery = `SELECT ` + orderColumns + ` FROM orders
                         WHERE status='Processing' AND payment_id IS NULL AND external_order_id IS NOT NULL
                         ORDER BY created_at
                         LIMIT $1
                         FOR UPDATE SKIP LOCKED`

	var orders []model.Order
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, selectQuery, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			order, err := scanOrder(rows)
			if err != nil {
				return err
			}
			orders = append(orders, *order)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		rows.Close()

		for i := range orders {
			if _, err := tx.Exec(ctx, `UPDATE orders SET updated_at=NOW() WHERE id=$1`, orders[i].ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *orderRepository) SelectExpiredUnpaid(ctx context.Context, cutoff time.Time, limit int) ([]model.Order, error) {
	const query = `SELECT ` + orderColumns + ` FROM orders
                   WHERE status='Processing' AND payment_id IS NULL AND created_at < $1
                   ORDER BY created_at
                   LIMIT $2`
	rows, err := r.storage.pool.Query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

// --- ProductRepository implementation ---

func (r *productRepository) GetForPurchase(ctx context.Context, productID int64) (*model.Product, error) {
	const query = `SELECT id, seller_id, name, price::text, stock, image_url, is_approved
                   FROM products WHERE id=$1`
	var (
		p     model.Product
		price string
	)
	err := r.storage.pool.QueryRow(ctx, query, productID).Scan(
		&p.ID, &p.SellerID, &p.Name, &price, &p.Stock, &p.ImageURL, &p.Approved)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	if p.Price, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("parse product price: %w", err)
	}
	return &p, nil
}

func (r *productRepository) AdjustStock(ctx context.Context, productID int64, delta int) error {
	return r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		var stock int
		err := tx.QueryRow(ctx, `SELECT stock FROM products WHERE id=$1 FOR UPDATE`, productID).Scan(&stock)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domainErrors.ErrNotFound
			}
			return err
		}
		if stock+delta < 0 {
			return domainErrors.ErrOutOfStock
		}
		_, err = tx.Exec(ctx, `UPDATE products SET stock = stock + $2 WHERE id=$1`, productID, delta)
		return err
	})
}

// WithinTransaction executes function inside transaction boundary.
func (s *Storage) WithinTransaction(ctx context.Context, fn func(pgx.Tx) error) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	err = fn(tx)
	return err
}

// HealthCheck verifies database connectivity.
func (s *Storage) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}

// Logger returns storage logger.
func (s *Storage) Logger() *slog.Logger {
	return s.logger
}
