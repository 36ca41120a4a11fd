package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"no fence", `  {"a":1}  `, `{"a":1}`},
		{"leading only", "```json {\"a\":1}", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripFence(tt.in))
		})
	}
}

func TestParseResult(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    ExtractionResult
		wantErr bool
	}{
		{
			name:    "fenced strings",
			content: "```json\n{\"work_order_number\": \"20501234\", \"equipment_number\": \" PUMP01 \"}\n```",
			want:    ExtractionResult{WorkOrderNumber: "20501234", EquipmentNumber: "PUMP01"},
		},
		{
			name:    "numeric work order kept literal",
			content: `{"work_order_number": 20501234, "equipment_number": null}`,
			want:    ExtractionResult{WorkOrderNumber: "20501234"},
		},
		{
			name:    "missing keys are null",
			content: `{}`,
			want:    ExtractionResult{},
		},
		{
			name:    "extra keys ignored",
			content: `{"work_order_number": "1", "note": "x"}`,
			want:    ExtractionResult{WorkOrderNumber: "1"},
		},
		{name: "not json", content: "I could not read the document.", wantErr: true},
		{name: "wrong type", content: `{"work_order_number": true}`, wantErr: true},
		{name: "array", content: `["20501234"]`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseResult(tt.content)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, ExtractionResult{}, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
