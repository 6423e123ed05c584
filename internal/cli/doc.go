// Package cli реализует инструмент командной строки studyexec.
//
// CLI работает через HTTP API и не импортирует внутренние пакеты.
//
//	client := cli.NewClient("http://localhost:8080")
//	executions, err := client.ListExecutions(cli.ListExecutionsOpts{Status: "FAILED"})
//
// Вывод — таблицы (text/tabwriter) или JSON с флагом --json.
// Данные идут в stdout, сообщения (Success/Error) — в stderr:
//
//	studyexec execution list --status FAILED --json | jq .
//
// Команды:
//   - execution list, create, show, logs, enqueue
//
// Группа создаётся через NewExecutionCmd, принимающую clientFn и outputFn —
// замыкания для ленивого создания Client и Output после парсинга PersistentFlags.
package cli
