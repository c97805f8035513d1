// Package mq — инфраструктура RabbitMQ.
//
// Структура:
//   - connection.go — соединение с reconnect
//   - topology.go   — exchanges, очереди, привязки
//   - publisher.go  — публикация сообщений
//   - consumer.go   — потребление сообщений
//
// Типы сообщений:
//   - run.requested — run создан и ждёт runner
//   - run.completed — run завершён
//
// Exchanges:
//   - flowrequests.runs — события runs
//   - flowrequests.dlq  — dead letter queue
package mq
