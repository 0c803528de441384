package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"felixmart/internal/domain"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(ctx context.Context, dsn string) (*PostgresRepo, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return &PostgresRepo{db: db}, nil
}

func (r *PostgresRepo) RunMigrations(dir string) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance("file://"+dir, "postgres", driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}
	return nil
}

func (r *PostgresRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *PostgresRepo) Close() error {
	return r.db.Close()
}

func (r *PostgresRepo) PutProduct(ctx context.Context, p domain.Product) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO products (id,name,price,stock_quantity)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (id) DO UPDATE SET name=$2,price=$3,stock_quantity=$4`,
		p.ID, p.Name, p.Price, p.StockQuantity)
	return err
}

func (r *PostgresRepo) GetProducts(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	out := make(map[string]domain.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.db.QueryContext(ctx, `SELECT id,name,price,stock_quantity FROM products WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.StockQuantity); err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

func (r *PostgresRepo) CreateOrder(ctx context.Context, o *domain.Order) error {
	if len(o.Items) == 0 {
		return fmt.Errorf("order without items")
	}
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now
	shipping, err := json.Marshal(o.Shipping)
	if err != nil {
		return err
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `INSERT INTO orders (id,user_id,total_amount,status,shipping_address,payment_session_id,created_at,updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		o.ID, o.UserID, o.TotalAmount, string(o.Status), string(shipping), o.PaymentSessionID, o.CreatedAt, o.UpdatedAt); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO order_items (order_id,product_id,quantity,price) VALUES ($1,$2,$3,$4)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i := range o.Items {
		o.Items[i].OrderID = o.ID
		it := o.Items[i]
		if _, err := stmt.ExecContext(ctx, it.OrderID, it.ProductID, it.Quantity, it.UnitPrice); err != nil {
			return err
		}
	}
	return tx.Commit()
}

const orderColumns = `id,user_id,total_amount,status,shipping_address,payment_session_id,created_at,updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(s rowScanner) (*domain.Order, error) {
	var o domain.Order
	var shipping []byte
	if err := s.Scan(&o.ID, &o.UserID, &o.TotalAmount, (*string)(&o.Status), &shipping, &o.PaymentSessionID, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(shipping, &o.Shipping); err != nil {
		return nil, fmt.Errorf("decode shipping address: %w", err)
	}
	return &o, nil
}

func (r *PostgresRepo) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	o, err := scanOrder(r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	items, err := r.orderItems(ctx, []string{o.ID})
	if err != nil {
		return nil, err
	}
	o.Items = items[o.ID]
	return o, nil
}

func (r *PostgresRepo) orderItems(ctx context.Context, orderIDs []string) (map[string][]domain.OrderItem, error) {
	out := make(map[string][]domain.OrderItem, len(orderIDs))
	if len(orderIDs) == 0 {
		return out, nil
	}
	rows, err := r.db.QueryContext(ctx, `SELECT order_id,product_id,quantity,price FROM order_items WHERE order_id = ANY($1::uuid[]) ORDER BY id`, pq.Array(orderIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(&it.OrderID, &it.ProductID, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, err
		}
		out[it.OrderID] = append(out[it.OrderID], it)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) ListOrders(ctx context.Context, f domain.OrderFilter) ([]domain.Order, int, error) {
	f = f.Normalize()
	var where []string
	var args []any
	if f.UserID != "" {
		args = append(args, f.UserID)
		where = append(where, fmt.Sprintf("user_id=$%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("status=$%d", len(args)))
	}
	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM orders`+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	q := fmt.Sprintf(`SELECT %s FROM orders%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, orderColumns, cond, len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, q, append(args, f.PageSize, (f.Page-1)*f.PageSize)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := make([]domain.Order, 0, f.PageSize)
	ids := make([]string, 0, f.PageSize)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	items, err := r.orderItems(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range out {
		out[i].Items = items[out[i].ID]
	}
	return out, total, nil
}

func (r *PostgresRepo) UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus) error {
	if err := checkID(id); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `UPDATE orders SET status=$2, updated_at=$3 WHERE id=$1`, id, string(status), time.Now().UTC())
	if err != nil {
		return err
	}
	return requireRow(res, id)
}

func (r *PostgresRepo) TransitionStatus(ctx context.Context, id string, from, to domain.OrderStatus) (bool, error) {
	if err := checkID(id); err != nil {
		return false, err
	}
	res, err := r.db.ExecContext(ctx, `UPDATE orders SET status=$3, updated_at=$4 WHERE id=$1 AND status=$2`, id, string(from), string(to), time.Now().UTC())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		if _, err := r.GetOrder(ctx, id); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

func (r *PostgresRepo) SetPaymentSession(ctx context.Context, id, sessionID string) error {
	if err := checkID(id); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `UPDATE orders SET payment_session_id=$2, updated_at=$3 WHERE id=$1`, id, sessionID, time.Now().UTC())
	if err != nil {
		return err
	}
	return requireRow(res, id)
}

// ConfirmPaid moves a pending order to paid, takes its items out of stock and
// removes exactly those products from the owner's cart, all in one
// transaction.
func (r *PostgresRepo) ConfirmPaid(ctx context.Context, id string) (bool, error) {
	if err := checkID(id); err != nil {
		return false, err
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()
	var userID string
	err = tx.QueryRowContext(ctx, `UPDATE orders SET status=$2, updated_at=$3 WHERE id=$1 AND status=$4 RETURNING user_id`,
		id, string(domain.OrderPaid), time.Now().UTC(), string(domain.OrderPending)).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE id=$1)`, id).Scan(&exists); err != nil {
			return false, err
		}
		if !exists {
			return false, fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
		}
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE products p SET stock_quantity = GREATEST(p.stock_quantity - oi.quantity, 0)
		FROM order_items oi WHERE oi.order_id=$1 AND oi.product_id=p.id`, id); err != nil {
		return false, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id=$1 AND product_id IN (SELECT product_id FROM order_items WHERE order_id=$2)`, userID, id); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

func (r *PostgresRepo) ListCart(ctx context.Context, userID string) ([]domain.CartItem, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT user_id,product_id,quantity,updated_at FROM cart_items WHERE user_id=$1 ORDER BY product_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []domain.CartItem{}
	for rows.Next() {
		var it domain.CartItem
		if err := rows.Scan(&it.UserID, &it.ProductID, &it.Quantity, &it.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) UpsertCartItem(ctx context.Context, item domain.CartItem) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO cart_items (user_id,product_id,quantity,updated_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (user_id,product_id) DO UPDATE SET quantity=$3,updated_at=$4`,
		item.UserID, item.ProductID, item.Quantity, time.Now().UTC())
	return err
}

func (r *PostgresRepo) DeleteCartItem(ctx context.Context, userID, productID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id=$1 AND product_id=$2`, userID, productID)
	return err
}

func (r *PostgresRepo) ClearCart(ctx context.Context, userID string, productIDs ...string) error {
	if len(productIDs) == 0 {
		_, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id=$1`, userID)
		return err
	}
	_, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id=$1 AND product_id = ANY($2)`, userID, pq.Array(productIDs))
	return err
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// checkID maps ids that cannot be order keys to not-found instead of a
// driver cast error.
func checkID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
