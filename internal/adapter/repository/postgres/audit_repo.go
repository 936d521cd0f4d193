package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/campusmart/ledger/internal/domain"
	"github.com/campusmart/ledger/internal/usecase"
)

const auditColumns = `id, user_id, action, resource_type, resource_id, before_state, after_state, status, error_message, created_at`

// AuditRepository implements audit log persistence
type AuditRepository struct {
	db    querier
	idGen usecase.IDGenerator
}

// NewAuditRepository creates a new audit repository. idGen fills in missing IDs.
func NewAuditRepository(db DB, idGen usecase.IDGenerator) *AuditRepository {
	return &AuditRepository{db: db, idGen: idGen}
}

// Create inserts an audit log entry outside any transaction.
func (r *AuditRepository) Create(ctx context.Context, log *domain.AuditLog) error {
	return r.insert(ctx, r.db, log)
}

// CreateTx inserts an audit log entry as part of tx.
func (r *AuditRepository) CreateTx(ctx context.Context, tx usecase.Transaction, log *domain.AuditLog) error {
	q, err := txQuerier(tx)
	if err != nil {
		return err
	}
	return r.insert(ctx, q, log)
}

func (r *AuditRepository) insert(ctx context.Context, q querier, log *domain.AuditLog) error {
	if log.ID == "" {
		log.ID = r.idGen.Generate()
	}

	before, err := marshalState(log.BeforeState)
	if err != nil {
		return err
	}
	after, err := marshalState(log.AfterState)
	if err != nil {
		return err
	}

	_, err = q.Exec(ctx, `
		INSERT INTO audit_logs (`+auditColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		log.ID, log.UserID, log.Action, log.ResourceType, log.ResourceID,
		before, after, log.Status, log.ErrorMessage, log.CreatedAt,
	)
	return mapWriteError(err)
}

// List retrieves audit logs with filtering, newest first.
func (r *AuditRepository) List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditLog, error) {
	var (
		conds []string
		args  []any
	)
	add := func(col string, v string) {
		if v == "" {
			return
		}
		args = append(args, v)
		conds = append(conds, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	add("user_id", filter.UserID)
	add("action", filter.Action)
	add("resource_type", filter.ResourceType)
	add("resource_id", filter.ResourceID)

	query := `SELECT ` + auditColumns + ` FROM audit_logs`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY created_at DESC, id DESC`

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(` OFFSET $%d`, len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*domain.AuditLog
	for rows.Next() {
		var (
			log           domain.AuditLog
			before, after []byte
		)

		err := rows.Scan(
			&log.ID, &log.UserID, &log.Action, &log.ResourceType, &log.ResourceID,
			&before, &after, &log.Status, &log.ErrorMessage, &log.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		if len(before) > 0 {
			_ = json.Unmarshal(before, &log.BeforeState)
		}
		if len(after) > 0 {
			_ = json.Unmarshal(after, &log.AfterState)
		}

		logs = append(logs, &log)
	}

	return logs, rows.Err()
}

func marshalState(state domain.JSON) ([]byte, error) {
	if state == nil {
		return nil, nil
	}
	return json.Marshal(state)
}
