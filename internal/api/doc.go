// Package api содержит HTTP API сервер.
//
// Структура:
//   - handler.go          — Handler с DI (хранилища, фабрика движка, publisher)
//   - routes.go           — регистрация маршрутов
//   - middleware.go       — middleware (logging, metrics, recovery)
//   - response.go         — унифицированные JSON-ответы и обработка ошибок
//   - dto.go              — Data Transfer Objects (request/response)
//   - workflow_handler.go — /workflows, включая validate и синхронный execute
//   - run_handler.go      — /runs (асинхронное выполнение через runner)
//   - plugin_handler.go   — /plugins и каталог узлов /nodes
//   - schedule_handler.go — /schedules
//
// Хранилища задаются интерфейсами, поэтому обработчики тестируются
// на in-memory реализациях без PostgreSQL.
package api
