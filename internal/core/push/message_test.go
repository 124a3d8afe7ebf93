package push

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/storefront/internal/core/notify"
)

func TestParseMessage(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Message
		wantErr bool
	}{
		{
			name: "full message",
			in:   `{"title":"Order","message":"Shipped","level":"success"}`,
			want: Message{Title: "Order", Message: "Shipped", Level: notify.LevelSuccess},
		},
		{
			name: "missing level defaults to info",
			in:   `{"title":"Hi","message":"there"}`,
			want: Message{Title: "Hi", Message: "there", Level: notify.LevelInfo},
		},
		{
			name:    "unknown level",
			in:      `{"title":"Hi","message":"there","level":"critical"}`,
			wantErr: true,
		},
		{
			name: "title only",
			in:   `{"title":"Flash sale"}`,
			want: Message{Title: "Flash sale", Level: notify.LevelInfo},
		},
		{
			name:    "null payload",
			in:      `null`,
			wantErr: true,
		},
		{
			name:    "empty object",
			in:      `{}`,
			wantErr: true,
		},
		{
			name:    "unrelated fields",
			in:      `{"foo":1}`,
			wantErr: true,
		},
		{
			name:    "invalid json",
			in:      `{"title":`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMessage([]byte(tt.in))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

type recordingNotifier struct {
	records []notify.Record
}

func (r *recordingNotifier) Enqueue(title, message string, level notify.Level) notify.Record {
	rec := notify.Record{Title: title, Message: message, Level: level}
	r.records = append(r.records, rec)
	return rec
}

func TestParseMessage_empty_is_ErrEmptyMessage(t *testing.T) {
	for _, in := range []string{`null`, `{}`, `{"level":"danger"}`} {
		_, err := ParseMessage([]byte(in))
		require.ErrorIs(t, err, ErrEmptyMessage, in)
	}
}

func TestQueueSink(t *testing.T) {
	n := &recordingNotifier{}
	QueueSink(n).Deliver(Message{Title: "T", Message: "M", Level: notify.LevelWarning})

	require.Len(t, n.records, 1)
	assert.Equal(t, notify.LevelWarning, n.records[0].Level)
}
