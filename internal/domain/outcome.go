package domain

// AttemptOutcome — результат одной попытки вызова удалённой функции.
//
// ResultKey заполнен только при Success, ErrorMessage — только без него.
// Нулевое значение соответствует неудачной попытке без сообщения.
type AttemptOutcome struct {
	Success      bool   `json:"success"`
	ResultKey    string `json:"result_key,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// Succeeded создаёт успешный результат попытки.
func Succeeded(resultKey string) AttemptOutcome {
	return AttemptOutcome{Success: true, ResultKey: resultKey}
}

// Failed создаёт неудачный результат попытки.
func Failed(message string) AttemptOutcome {
	return AttemptOutcome{ErrorMessage: message}
}
