package document

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-billing/internal/totals"
)

// ErrStoreUnavailable indicates the document store dependency is not configured.
var ErrStoreUnavailable = errors.New("document: store unavailable")

// ErrNotFound indicates the requested document does not exist in the org.
var ErrNotFound = errors.New("document: not found")

// ListFilter narrows List and Count queries.
type ListFilter struct {
	Type   Type
	Status string
	Limit  int
	Offset int
}

// Store provides database accessors for documents. Items and addresses are
// stored as jsonb; the derived money fields live in their own numeric columns
// so reports can aggregate without unpacking payloads.
type Store interface {
	Insert(ctx context.Context, doc Document) (Document, error)
	Update(ctx context.Context, doc Document) (Document, error)
	UpdateStatus(ctx context.Context, orgID string, id uuid.UUID, status string) (Document, error)
	Delete(ctx context.Context, orgID string, id uuid.UUID) error
	Get(ctx context.Context, orgID string, id uuid.UUID) (Document, error)
	List(ctx context.Context, orgID string, filter ListFilter) ([]Document, error)
	Count(ctx context.Context, orgID string, filter ListFilter) (int64, error)
}

// NewStore constructs a Store backed by a pgx connection pool.
func NewStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool}
}

type pgStore struct {
	pool *pgxpool.Pool
}

const documentColumns = `id, org_id, doc_type, party_id, contact_email, payment_term,
document_date, expected_date, billing_address, shipping_address, items,
subtotal, tax_rate, tax_amount, discount_rate, discount_amount, grand_total,
notes, status, created_at, updated_at`

func scanDocument(row pgx.Row) (Document, error) {
	var doc Document
	var billing, shipping, items []byte
	err := row.Scan(
		&doc.ID, &doc.OrgID, &doc.Type, &doc.SupplierOrCustomerID, &doc.ContactEmail, &doc.PaymentTerm,
		&doc.DocumentDate, &doc.ExpectedDate, &billing, &shipping, &items,
		&doc.Subtotal, &doc.TaxRate, &doc.TaxAmount, &doc.DiscountRate, &doc.DiscountAmount, &doc.GrandTotal,
		&doc.Notes, &doc.Status, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	if err := json.Unmarshal(billing, &doc.BillingAddress); err != nil {
		return Document{}, err
	}
	if err := json.Unmarshal(shipping, &doc.ShippingAddress); err != nil {
		return Document{}, err
	}
	doc.Items = []totals.LineItem{}
	if err := json.Unmarshal(items, &doc.Items); err != nil {
		return Document{}, err
	}
	return doc, nil
}

func encodeJSONColumns(doc Document) (billing, shipping, items []byte, err error) {
	if billing, err = json.Marshal(doc.BillingAddress); err != nil {
		return nil, nil, nil, err
	}
	if shipping, err = json.Marshal(doc.ShippingAddress); err != nil {
		return nil, nil, nil, err
	}
	if doc.Items == nil {
		doc.Items = []totals.LineItem{}
	}
	if items, err = json.Marshal(doc.Items); err != nil {
		return nil, nil, nil, err
	}
	return billing, shipping, items, nil
}

func (s *pgStore) Insert(ctx context.Context, doc Document) (Document, error) {
	if s == nil || s.pool == nil {
		return Document{}, ErrStoreUnavailable
	}
	billing, shipping, items, err := encodeJSONColumns(doc)
	if err != nil {
		return Document{}, err
	}
	row := s.pool.QueryRow(ctx, `INSERT INTO documents (
org_id, doc_type, party_id, contact_email, payment_term,
document_date, expected_date, billing_address, shipping_address, items,
subtotal, tax_rate, tax_amount, discount_rate, discount_amount, grand_total,
notes, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
RETURNING `+documentColumns,
		doc.OrgID, doc.Type, doc.SupplierOrCustomerID, doc.ContactEmail, doc.PaymentTerm,
		doc.DocumentDate, doc.ExpectedDate, billing, shipping, items,
		doc.Subtotal, float64(doc.TaxRate), doc.TaxAmount, float64(doc.DiscountRate), doc.DiscountAmount, doc.GrandTotal,
		doc.Notes, doc.Status)
	return scanDocument(row)
}

func (s *pgStore) Update(ctx context.Context, doc Document) (Document, error) {
	if s == nil || s.pool == nil {
		return Document{}, ErrStoreUnavailable
	}
	billing, shipping, items, err := encodeJSONColumns(doc)
	if err != nil {
		return Document{}, err
	}
	row := s.pool.QueryRow(ctx, `UPDATE documents SET
party_id = $3, contact_email = $4, payment_term = $5,
document_date = $6, expected_date = $7, billing_address = $8, shipping_address = $9, items = $10,
subtotal = $11, tax_rate = $12, tax_amount = $13, discount_rate = $14, discount_amount = $15, grand_total = $16,
notes = $17, status = $18, updated_at = now()
WHERE org_id = $1 AND id = $2
RETURNING `+documentColumns,
		doc.OrgID, doc.ID, doc.SupplierOrCustomerID, doc.ContactEmail, doc.PaymentTerm,
		doc.DocumentDate, doc.ExpectedDate, billing, shipping, items,
		doc.Subtotal, float64(doc.TaxRate), doc.TaxAmount, float64(doc.DiscountRate), doc.DiscountAmount, doc.GrandTotal,
		doc.Notes, doc.Status)
	return scanDocument(row)
}

func (s *pgStore) UpdateStatus(ctx context.Context, orgID string, id uuid.UUID, status string) (Document, error) {
	if s == nil || s.pool == nil {
		return Document{}, ErrStoreUnavailable
	}
	row := s.pool.QueryRow(ctx, `UPDATE documents SET status = $3, updated_at = now()
WHERE org_id = $1 AND id = $2
RETURNING `+documentColumns, orgID, id, status)
	return scanDocument(row)
}

func (s *pgStore) Delete(ctx context.Context, orgID string, id uuid.UUID) error {
	if s == nil || s.pool == nil {
		return ErrStoreUnavailable
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE org_id = $1 AND id = $2`, orgID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *pgStore) Get(ctx context.Context, orgID string, id uuid.UUID) (Document, error) {
	if s == nil || s.pool == nil {
		return Document{}, ErrStoreUnavailable
	}
	row := s.pool.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE org_id = $1 AND id = $2`, orgID, id)
	return scanDocument(row)
}

func (s *pgStore) List(ctx context.Context, orgID string, filter ListFilter) ([]Document, error) {
	if s == nil || s.pool == nil {
		return nil, ErrStoreUnavailable
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 200 {
		limit = 200
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + documentColumns + ` FROM documents WHERE org_id = $1`
	args := []any{orgID}
	if filter.Type != "" {
		args = append(args, filter.Type)
		query += ` AND doc_type = $2`
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += ` AND status = $` + strconv.Itoa(len(args))
	}
	args = append(args, limit, offset)
	query += ` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := make([]Document, 0, limit)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (s *pgStore) Count(ctx context.Context, orgID string, filter ListFilter) (int64, error) {
	if s == nil || s.pool == nil {
		return 0, ErrStoreUnavailable
	}
	query := `SELECT COUNT(*) FROM documents WHERE org_id = $1`
	args := []any{orgID}
	if filter.Type != "" {
		args = append(args, filter.Type)
		query += ` AND doc_type = $2`
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += ` AND status = $` + strconv.Itoa(len(args))
	}
	var total int64
	err := s.pool.QueryRow(ctx, query, args...).Scan(&total)
	return total, err
}
