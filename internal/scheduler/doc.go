// Package scheduler создаёт runs по расписаниям.
//
// Scheduler периодически находит расписания с истекшим next_due_at,
// создаёт run и вычисляет следующее время (cron или интервал).
// Ключ идемпотентности "{schedule_id}_{next_due_at}" защищает от
// повторного run при перезапуске между созданием run и обновлением
// расписания.
//
// Scheduler не реализует leader election самостоятельно: в
// cmd/flowrequests-scheduler это делается через pg_try_advisory_lock.
package scheduler
