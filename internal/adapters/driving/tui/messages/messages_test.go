package messages

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/ragsample/internal/core/domain"
)

func TestAnswerReceived_Failed(t *testing.T) {
	tests := []struct {
		name string
		msg  AnswerReceived
		want bool
	}{
		{"answered", AnswerReceived{Question: "q", Answer: &domain.Answer{Text: "a"}}, false},
		{"error", AnswerReceived{Question: "q", Err: errors.New("boom")}, true},
		{"no answer", AnswerReceived{Question: "q"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.msg.Failed())
		})
	}
}

func TestErrorOccurred(t *testing.T) {
	err := errors.New("test error")
	msg := ErrorOccurred{Err: err}

	assert.ErrorIs(t, msg.Err, err)
}
