// Package script содержит исполнителей скриптов для code узлов.
//
// Движок не встраивает интерпретатор: code узел получает
// steps.ScriptRunner извне. Здесь лежат две реализации и маршрутизатор:
//   - lua.go    — Lua (github.com/Shopify/go-lua), язык по умолчанию
//   - golang.go — Go (github.com/traefik/yaegi)
//   - router.go — выбор исполнителя по settings.language
//
// Оба исполнителя запускают скрипт в новом окружении на каждый вызов
// и не дают доступа к файловой системе и сети.
package script
