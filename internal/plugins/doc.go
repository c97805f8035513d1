// Package plugins — пользовательские узлы, скомпилированные в бинарник.
//
// Каждый плагин регистрируется в plugin.StaticLinker под своим exposed
// name (см. Register). Тип узла совпадает с его именем: AlertMessage,
// FakeTodos, MailtrapPlugin.
package plugins
