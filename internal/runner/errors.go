package runner

import "errors"

// Ошибки runner.
var (
	// ErrRunNotFound — run не найден в БД.
	ErrRunNotFound = errors.New("run not found")

	// ErrRunNotPending — run уже забран или завершён.
	ErrRunNotPending = errors.New("run is not in PENDING status")

	// ErrWorkflowNotFound — workflow run'а удалён.
	ErrWorkflowNotFound = errors.New("workflow not found")
)
