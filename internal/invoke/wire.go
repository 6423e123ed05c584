package invoke

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shaiso/studyexec/internal/domain"
)

// errorField — поле ответа с сообщением об ошибке функции.
const errorField = "errorMessage"

// Wire — формат запроса и ответа удалённой функции.
type Wire struct {
	// InputField — единственный ключ запроса: "url" или "text".
	InputField string

	// ResultField — поле успешного ответа: "s3Key" или "result".
	ResultField string
}

// DefaultWire — формат эталонного развёртывания (краулер по URL).
var DefaultWire = Wire{InputField: "url", ResultField: "s3Key"}

// EncodeRequest кодирует запрос к функции.
//
// Формат совпадает байт в байт с тем, что отправляют существующие клиенты:
// пробел после двоеточия, не-ASCII символы экранированы как \uXXXX.
func (w Wire) EncodeRequest(input string) []byte {
	var b strings.Builder
	b.Grow(len(w.InputField) + len(input) + 8)
	b.WriteByte('{')
	writeASCIIString(&b, w.InputField)
	b.WriteString(": ")
	writeASCIIString(&b, input)
	b.WriteByte('}')
	return []byte(b.String())
}

// Interpret разбирает ответ функции в AttemptOutcome.
//
// Не паникует и не возвращает ошибок: любая проблема формата
// превращается в неудачную попытку с описанием причины.
func (w Wire) Interpret(raw []byte) domain.AttemptOutcome {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return failure(fmt.Errorf("%w: %v", ErrMalformedResponse, err))
	}

	// Вариант ошибки имеет приоритет над результатом
	if rawMsg, ok := fields[errorField]; ok {
		var msg *string
		if err := json.Unmarshal(rawMsg, &msg); err != nil || msg == nil {
			return failure(fmt.Errorf("%w: %s must be a string", ErrMalformedResponse, errorField))
		}
		// Сообщение из одних кавычек тоже пустое: неудача без текста
		// в журнале неотличима от успешной попытки
		message := normalizeMessage(*msg)
		if message == "" {
			return failure(fmt.Errorf("%w: empty %s", ErrMalformedResponse, errorField))
		}
		return domain.Failed(message)
	}

	rawKey, ok := fields[w.ResultField]
	if !ok {
		return failure(fmt.Errorf("%w: missing %s", ErrMalformedResponse, w.ResultField))
	}

	var key string
	if err := json.Unmarshal(rawKey, &key); err != nil {
		return failure(fmt.Errorf("%w: %s must be a string", ErrMalformedResponse, w.ResultField))
	}
	if key == "" {
		return failure(fmt.Errorf("%w: empty %s", ErrMalformedResponse, w.ResultField))
	}

	return domain.Succeeded(key)
}

// failure превращает ошибку в неудачную попытку.
// Сообщение неудачи никогда не пустое.
func failure(err error) domain.AttemptOutcome {
	if message := normalizeMessage(err.Error()); message != "" {
		return domain.Failed(message)
	}
	return domain.Failed(fmt.Sprintf("invocation failed: %T", err))
}

// normalizeMessage убирает кавычки по краям сообщения.
func normalizeMessage(msg string) string {
	return strings.Trim(msg, `"`)
}

// writeASCIIString пишет JSON-строку, экранируя всё вне печатного ASCII.
func writeASCIIString(b *strings.Builder, s string) {
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		default:
			switch {
			case r < 0x20:
				writeUnicodeEscape(b, r)
			case r < 0x7f:
				b.WriteRune(r)
			case r > 0xFFFF:
				// Суррогатная пара
				r -= 0x10000
				writeUnicodeEscape(b, 0xD800+(r>>10))
				writeUnicodeEscape(b, 0xDC00+(r&0x3FF))
			default:
				writeUnicodeEscape(b, r)
			}
		}
	}
	b.WriteByte('"')
}

func writeUnicodeEscape(b *strings.Builder, r rune) {
	hex := strconv.FormatInt(int64(r), 16)
	b.WriteString(`\u`)
	b.WriteString(strings.Repeat("0", 4-len(hex)))
	b.WriteString(hex)
}
