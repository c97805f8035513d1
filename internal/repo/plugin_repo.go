package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/flowrequests/internal/domain"
)

// PluginRepo — репозиторий дескрипторов плагинов.
type PluginRepo struct {
	pool *pgxpool.Pool
}

// NewPluginRepo создаёт новый PluginRepo.
func NewPluginRepo(pool *pgxpool.Pool) *PluginRepo {
	return &PluginRepo{pool: pool}
}

const pluginColumns = `id, location_reference, exposed_name, enabled, created_at`

// Create добавляет дескриптор.
func (r *PluginRepo) Create(ctx context.Context, p *domain.PluginDescriptor) error {
	query := `
		INSERT INTO plugins (id, location_reference, exposed_name, enabled, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.pool.Exec(ctx, query,
		p.ID,
		p.LocationReference,
		p.ExposedName,
		p.Enabled,
		p.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: plugin %q", ErrAlreadyExists, p.ExposedName)
	}
	if err != nil {
		return fmt.Errorf("insert plugin: %w", err)
	}
	return nil
}

// GetByID возвращает дескриптор по ID.
func (r *PluginRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.PluginDescriptor, error) {
	query := `SELECT ` + pluginColumns + ` FROM plugins WHERE id = $1`
	return scanPlugin(r.pool.QueryRow(ctx, query, id))
}

// List возвращает дескрипторы. onlyEnabled — только включённые.
func (r *PluginRepo) List(ctx context.Context, onlyEnabled bool) ([]domain.PluginDescriptor, error) {
	query := `
		SELECT ` + pluginColumns + `
		FROM plugins
		WHERE (NOT $1::boolean OR enabled)
		ORDER BY created_at ASC
	`
	rows, err := r.pool.Query(ctx, query, onlyEnabled)
	if err != nil {
		return nil, fmt.Errorf("list plugins: %w", err)
	}
	defer rows.Close()

	var plugins []domain.PluginDescriptor
	for rows.Next() {
		p, err := scanPlugin(rows)
		if err != nil {
			return nil, err
		}
		plugins = append(plugins, *p)
	}
	return plugins, rows.Err()
}

// SetEnabled включает/выключает плагин.
func (r *PluginRepo) SetEnabled(ctx context.Context, id uuid.UUID, enabled bool) error {
	result, err := r.pool.Exec(ctx, `UPDATE plugins SET enabled = $2 WHERE id = $1`, id, enabled)
	if err != nil {
		return fmt.Errorf("set enabled: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete удаляет дескриптор.
func (r *PluginRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM plugins WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete plugin: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanPlugin(row pgx.Row) (*domain.PluginDescriptor, error) {
	var p domain.PluginDescriptor
	err := row.Scan(
		&p.ID,
		&p.LocationReference,
		&p.ExposedName,
		&p.Enabled,
		&p.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan plugin: %w", err)
	}
	return &p, nil
}
