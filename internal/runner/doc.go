// Package runner — исполнитель runs.
//
// Runner забирает PENDING runs (из очереди runs.requested или polling),
// загружает workflow и включённые плагины, выполняет workflow движком
// и сохраняет записи шагов:
//
//	PENDING → RUNNING → COMPLETED   (обход завершён, ошибки узлов в steps)
//	                  → FAILED      (workflow не найден)
//
// EngineFactory собирает движок со встроенными узлами, исполнителями
// кода, реестром плагинов и генератором данных. Её же используют API
// (синхронный execute) и CLI (локальный exec).
package runner
