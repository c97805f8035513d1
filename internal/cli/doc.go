// Package cli реализует инструмент командной строки flowrequests.
//
// # Обзор
//
// CLI работает в двух режимах:
//   - локально: run exec выполняет файл workflow в процессе, со встроенными
//     узлами и статически связанными плагинами, без БД и очереди;
//   - удалённо: остальные команды обращаются к HTTP API.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для API. Инкапсулирует все HTTP-запросы,
// парсинг ответов (DataResponse, ListResponse, ErrorResponse)
// и обработку ошибок. Клиент не импортирует internal/api.
//
//	client := cli.NewClient("http://localhost:8080")
//	workflows, err := client.ListWorkflows()
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON (json.MarshalIndent) — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) и логи — в stderr.
// Это позволяет использовать pipe: flowrequests run exec wf.yaml --json | jq .steps
//
// ## Workflow files
//
// LoadWorkflow читает JSON или YAML: объект {name, nodes, envData}
// или просто список узлов.
//
// ## Commands
//
// Cobra-команды организованы по ресурсам:
//   - workflow: list, show, import, delete, validate, execute
//   - run: exec, list, start, show
//   - plugin: list, add, remove, enable, disable
//   - nodes
//   - schedule: list, create, show, update, delete, enable, disable
//
// Каждая группа создаётся через фабричную функцию (NewWorkflowCmd и т.д.),
// принимающую clientFn и outputFn — замыкания для ленивого создания
// Client и Output после парсинга PersistentFlags.
package cli
