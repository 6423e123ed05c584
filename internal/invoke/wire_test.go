package invoke

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shaiso/studyexec/internal/domain"
)

func TestWire_EncodeRequest(t *testing.T) {
	tests := []struct {
		name  string
		wire  Wire
		input string
		want  string
	}{
		{"url", DefaultWire, "https://stackoverflow.com/", `{"url": "https://stackoverflow.com/"}`},
		{"text field", Wire{InputField: "text", ResultField: "result"}, "fake text", `{"text": "fake text"}`},
		{"quotes and backslash", DefaultWire, `a"b\c`, `{"url": "a\"b\\c"}`},
		{"control characters", DefaultWire, "a\nb\tc\x01\x7f", `{"url": "a\nb\tc\u0001\u007f"}`},
		{"html is not escaped", DefaultWire, "&@&#UJC<>", `{"url": "&@&#UJC<>"}`},
		{"non-ascii", DefaultWire, "héllo", `{"url": "h\u00e9llo"}`},
		{"astral plane", DefaultWire, "😀", `{"url": "\ud83d\ude00"}`},
		{"empty", DefaultWire, "", `{"url": ""}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(tt.wire.EncodeRequest(tt.input)))
		})
	}
}

func TestWire_Interpret(t *testing.T) {
	tests := []struct {
		name string
		wire Wire
		raw  string
		want domain.AttemptOutcome
	}{
		{
			name: "s3 key",
			wire: DefaultWire,
			raw:  `{"s3Key":"k.json"}`,
			want: domain.AttemptOutcome{Success: true, ResultKey: "k.json"},
		},
		{
			name: "error message",
			wire: DefaultWire,
			raw:  `{"errorMessage":"X"}`,
			want: domain.AttemptOutcome{ErrorMessage: "X"},
		},
		{
			name: "error message wins over result",
			wire: DefaultWire,
			raw:  `{"s3Key": "kcmanvioansk.sjon","errorMessage": "Fake error message"}`,
			want: domain.AttemptOutcome{ErrorMessage: "Fake error message"},
		},
		{
			name: "result field variant",
			wire: Wire{InputField: "text", ResultField: "result"},
			raw:  `{"text": "fake text", "result": "Finished"}`,
			want: domain.AttemptOutcome{Success: true, ResultKey: "Finished"},
		},
		{
			name: "text error variant",
			wire: Wire{InputField: "text", ResultField: "result"},
			raw:  `{"text": "", "errorMessage": "No texts found!"}`,
			want: domain.AttemptOutcome{ErrorMessage: "No texts found!"},
		},
		{
			name: "result containing marker text is still a success",
			wire: DefaultWire,
			raw:  `{"s3Key":"errorMessage.json"}`,
			want: domain.AttemptOutcome{Success: true, ResultKey: "errorMessage.json"},
		},
		{
			name: "quotes stripped from message",
			wire: DefaultWire,
			raw:  `{"errorMessage":"\"Task timed out after 180.00 seconds\""}`,
			want: domain.AttemptOutcome{ErrorMessage: "Task timed out after 180.00 seconds"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.wire.Interpret([]byte(tt.raw)))
		})
	}
}

func TestWire_Interpret_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		message string
	}{
		{"not json", `Internal Server Error`, "malformed response: invalid character"},
		{"json string", `"done"`, "malformed response: json: cannot unmarshal string"},
		{"missing result", `{"statusCode": 200}`, "malformed response: missing s3Key"},
		{"result not string", `{"s3Key": 42}`, "malformed response: s3Key must be a string"},
		{"empty result", `{"s3Key": ""}`, "malformed response: empty s3Key"},
		{"null error message", `{"errorMessage": null}`, "malformed response: errorMessage must be a string"},
		{"empty error message", `{"errorMessage": ""}`, "malformed response: empty errorMessage"},
		{"quoted empty error message", `{"errorMessage": "\"\""}`, "malformed response: empty errorMessage"},
		{"quotes only error message", `{"errorMessage": "\""}`, "malformed response: empty errorMessage"},
		{"null body", `null`, "malformed response: missing s3Key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DefaultWire.Interpret([]byte(tt.raw))

			assert.False(t, got.Success)
			assert.Empty(t, got.ResultKey)
			assert.Contains(t, got.ErrorMessage, tt.message)
		})
	}
}

func TestFailure_NeverEmpty(t *testing.T) {
	got := failure(errors.New(`""`))

	assert.False(t, got.Success)
	assert.NotEmpty(t, got.ErrorMessage)

	assert.Equal(t, "Timeout", failure(errors.New(`"Timeout"`)).ErrorMessage)
}

func TestNormalizeMessage(t *testing.T) {
	assert.Equal(t, "Timeout", normalizeMessage(`"Timeout"`))
	assert.Equal(t, "Timeout", normalizeMessage(`""Timeout"`))
	assert.Equal(t, `say "hi" now`, normalizeMessage(`say "hi" now`))
	assert.Equal(t, "", normalizeMessage(`""`))
}
