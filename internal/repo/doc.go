// Package repo — хранилище PostgreSQL (pgx).
//
// Таблицы: workflows, runs, plugins, schedules. Схема лежит в schema.sql
// и применяется Migrate при старте сервисов.
package repo
