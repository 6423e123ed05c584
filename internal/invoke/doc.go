// Package invoke вызывает удалённую функцию и интерпретирует её ответ.
//
// # Обзор
//
// Пакет состоит из трёх частей:
//
//   - Invoker — транспорт: отправляет payload в функцию и возвращает сырые байты ответа.
//     Реализации: LambdaInvoker (AWS Lambda, RequestResponse) и HTTPInvoker
//     (HTTP-шлюз функций, POST /function/{name}).
//   - Wire — формат обмена: кодирует запрос {"url": "..."} и разбирает ответ
//     в domain.AttemptOutcome.
//   - Caller — связывает Invoker и Wire: одна попытка вызова, любые ошибки
//     превращаются в неудачный AttemptOutcome.
//
// # Формат ответа
//
// Ответ функции — JSON-объект одного из двух видов:
//
//	{"s3Key": "abc.json"}          // успех (поле результата настраивается)
//	{"errorMessage": "No texts"}   // ошибка функции
//
// Наличие errorMessage имеет приоритет над полем результата.
// Разбор структурный: значение результата, содержащее текст "errorMessage",
// не считается ошибкой.
//
// # Таймауты
//
// Транспорты ограничивают время соединения и чтения ответа.
// Превышение возвращается как ErrTransportTimeout, Caller превращает его
// в неудачную попытку с текстом ошибки. Retry — ответственность worker.
package invoke
