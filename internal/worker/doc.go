// Package worker выполняет executions: вызывает удалённую функцию
// с повторными попытками и сохраняет результат.
//
// # Обзор
//
// Worker получает ID executions из очереди executions.pending
// (event-driven) и периодически проверяет PENDING executions в БД
// (polling fallback по cron-расписанию). Одновременно выполняется
// не более одного execution.
//
//	w := worker.New(worker.Config{
//	    Tracker:   executionRepo,
//	    Pending:   executionRepo,
//	    Caller:    caller,
//	    Publisher: publisher,
//	    Conn:      mqConn,
//	    Logger:    logger,
//	})
//
//	if err := w.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Stop()
//
// # Выполнение
//
//  1. Load — Input и MaxRetries
//  2. SetRunning — один раз, до первой попытки
//  3. До MaxRetries попыток Caller.Call, остановка на первой успешной.
//     После каждой попытки AppendLog: сообщение ошибки или пустая строка
//  4. SaveResult — один раз, с результатом последней попытки
//  5. Публикация execution.completed
//
// Между попытками нет задержки. MaxRetries <= 0 означает ноль попыток
// и статус FAILED.
//
// # Ошибки
//
// Ошибки попыток (таймаут, ошибка функции, некорректный ответ)
// не выходят за пределы Execute: они видны только в журнале
// и в статусе FAILED. Execute возвращает лишь ошибки Tracker.
package worker
