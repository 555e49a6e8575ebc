package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/scribeflow/scribeflow/internal/domain/model"
)

func TestReconcileTranscript(t *testing.T) {
	tests := []struct {
		name    string
		results []model.SegmentResult
		want    string
	}{
		{
			name: "joins in slice order with single spaces",
			results: []model.SegmentResult{
				{Index: 0, Text: "hello"},
				{Index: 1, Text: "there"},
				{Index: 2, Text: "world"},
			},
			want: "hello there world",
		},
		{
			name: "trims padding from each segment",
			results: []model.SegmentResult{
				{Index: 0, Text: "  hello \n"},
				{Index: 1, Text: "\tworld  "},
			},
			want: "hello world",
		},
		{
			name: "skips silent segments",
			results: []model.SegmentResult{
				{Index: 0, Text: "hello"},
				{Index: 1, Text: "   "},
				{Index: 2, Text: ""},
				{Index: 3, Text: "world"},
			},
			want: "hello world",
		},
		{
			name:    "no segments",
			results: nil,
			want:    "",
		},
		{
			name: "all silence",
			results: []model.SegmentResult{
				{Index: 0, Text: " "},
				{Index: 1, Text: ""},
			},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, reconcileTranscript(tt.results))
		})
	}
}
