package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/flowrequests/internal/domain"
)

// WorkflowRepo — репозиторий для работы с workflows.
//
// Узлы и envData хранятся как JSONB в том же виде, в каком приходят
// из редактора.
type WorkflowRepo struct {
	pool *pgxpool.Pool
}

// NewWorkflowRepo создаёт новый WorkflowRepo.
func NewWorkflowRepo(pool *pgxpool.Pool) *WorkflowRepo {
	return &WorkflowRepo{pool: pool}
}

const workflowColumns = `id, name, nodes, env_data, created_at, updated_at`

// Create создаёт новый workflow.
func (r *WorkflowRepo) Create(ctx context.Context, wf *domain.Workflow) error {
	nodesJSON, envJSON, err := marshalWorkflow(wf)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO workflows (id, name, nodes, env_data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = r.pool.Exec(ctx, query,
		wf.ID,
		wf.Name,
		nodesJSON,
		envJSON,
		wf.CreatedAt,
		wf.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: workflow %q", ErrAlreadyExists, wf.Name)
	}
	if err != nil {
		return fmt.Errorf("insert workflow: %w", err)
	}
	return nil
}

// GetByID возвращает workflow по ID.
func (r *WorkflowRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows WHERE id = $1`
	return scanWorkflow(r.pool.QueryRow(ctx, query, id))
}

// GetByName возвращает workflow по имени.
func (r *WorkflowRepo) GetByName(ctx context.Context, name string) (*domain.Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows WHERE name = $1`
	return scanWorkflow(r.pool.QueryRow(ctx, query, name))
}

// List возвращает список всех workflows.
func (r *WorkflowRepo) List(ctx context.Context) ([]domain.Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}
	defer rows.Close()

	var workflows []domain.Workflow
	for rows.Next() {
		wf, err := scanWorkflow(rows)
		if err != nil {
			return nil, err
		}
		workflows = append(workflows, *wf)
	}
	return workflows, rows.Err()
}

// Update заменяет имя, узлы и envData.
func (r *WorkflowRepo) Update(ctx context.Context, wf *domain.Workflow) error {
	nodesJSON, envJSON, err := marshalWorkflow(wf)
	if err != nil {
		return err
	}
	wf.UpdatedAt = time.Now()

	query := `
		UPDATE workflows
		SET name = $2, nodes = $3, env_data = $4, updated_at = $5
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		wf.ID,
		wf.Name,
		nodesJSON,
		envJSON,
		wf.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: workflow %q", ErrAlreadyExists, wf.Name)
	}
	if err != nil {
		return fmt.Errorf("update workflow: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete удаляет workflow вместе с его runs и расписаниями.
func (r *WorkflowRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM workflows WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete workflow: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Helpers ---

func marshalWorkflow(wf *domain.Workflow) ([]byte, []byte, error) {
	nodes := wf.Nodes
	if nodes == nil {
		nodes = domain.Sequence{}
	}
	nodesJSON, err := json.Marshal(nodes)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal nodes: %w", err)
	}

	env := wf.EnvData
	if env == nil {
		env = []domain.EnvVar{}
	}
	envJSON, err := json.Marshal(env)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal env data: %w", err)
	}
	return nodesJSON, envJSON, nil
}

func scanWorkflow(row pgx.Row) (*domain.Workflow, error) {
	var wf domain.Workflow
	var nodesJSON, envJSON []byte

	err := row.Scan(
		&wf.ID,
		&wf.Name,
		&nodesJSON,
		&envJSON,
		&wf.CreatedAt,
		&wf.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan workflow: %w", err)
	}

	if nodesJSON != nil {
		if err := json.Unmarshal(nodesJSON, &wf.Nodes); err != nil {
			return nil, fmt.Errorf("unmarshal nodes: %w", err)
		}
	}
	if envJSON != nil {
		if err := json.Unmarshal(envJSON, &wf.EnvData); err != nil {
			return nil, fmt.Errorf("unmarshal env data: %w", err)
		}
	}
	return &wf, nil
}
