package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestHandleEvent(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	handle := handleEvent(zap.New(core))

	body := []byte(`{"event":"book.created","book_id":7,"title":"Dune","author":"Frank Herbert","year":1965,"occurred_at":"2024-01-01T00:00:00Z"}`)
	require.NoError(t, handle("book.created", body))

	entries := logs.FilterMessage("图书事件").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "book.created", fields["event"])
	assert.Equal(t, uint64(7), fields["book_id"])
	assert.Equal(t, int64(1965), fields["year"])
}

func TestHandleEvent_UnparsableIsAcked(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	assert.NoError(t, handleEvent(zap.New(core))("book.deleted", []byte("not json")))
	assert.Equal(t, 1, logs.FilterMessage("丢弃无法解析的事件").Len())
}

func TestHandleEvent_RoutingKeyMismatch(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	body := []byte(`{"event":"book.updated","book_id":1,"title":"T","author":"A","year":null}`)
	require.NoError(t, handleEvent(zap.New(core))("book.deleted", body))
	assert.Equal(t, 1, logs.FilterMessage("事件类型与路由键不一致").Len())

	_, hasYear := logs.FilterMessage("图书事件").All()[0].ContextMap()["year"]
	assert.False(t, hasYear)
}
