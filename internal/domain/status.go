package domain

// RunStatus — статус выполнения run.
//
// Жизненный цикл:
//
//	PENDING → RUNNING → COMPLETED
//	                  ↘ FAILED
//
// FAILED выставляется только при инфраструктурных ошибках
// (workflow удалён, ошибка БД). Упавшие узлы не делают run FAILED.
type RunStatus string

const (
	// RunStatusPending — run создан, но ещё не начал выполняться.
	RunStatusPending RunStatus = "PENDING"

	// RunStatusRunning — run в процессе выполнения.
	RunStatusRunning RunStatus = "RUNNING"

	// RunStatusCompleted — обход завершён, записи шагов сохранены.
	RunStatusCompleted RunStatus = "COMPLETED"

	// RunStatusFailed — run не удалось выполнить.
	RunStatusFailed RunStatus = "FAILED"
)

// IsTerminal возвращает true, если статус финальный (run завершён).
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunStatusCompleted, RunStatusFailed:
		return true
	default:
		return false
	}
}

// ParseRunStatus парсит строку в RunStatus.
func ParseRunStatus(s string) (RunStatus, bool) {
	switch RunStatus(s) {
	case RunStatusPending, RunStatusRunning, RunStatusCompleted, RunStatusFailed:
		return RunStatus(s), true
	default:
		return "", false
	}
}
