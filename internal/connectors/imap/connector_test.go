package imap

import (
	"bytes"
	"errors"
	"testing"

	"github.com/emersion/go-imap"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ordermail/internal"
)

func TestKeyword(t *testing.T) {
	assert.Equal(t, "PrepWorx/Processed", Keyword("PrepWorx/Processed"))
	assert.Equal(t, "Retailer_Orders/Error", Keyword(" Retailer Orders/Error "))
	assert.Equal(t, "a_b_", Keyword("a(b)"))
}

func TestBuildCriteria(t *testing.T) {
	c := buildCriteria(internal.SearchQuery{From: []string{"orders@footlocker.com"}, Subject: "Thank you"}, "Retailer-Orders/Processed")
	assert.Equal(t, "orders@footlocker.com", c.Header.Get("From"))
	assert.Equal(t, "Thank you", c.Header.Get("Subject"))
	assert.Equal(t, []string{"Retailer-Orders/Processed"}, c.WithoutFlags)
	assert.Empty(t, c.Or)

	c = buildCriteria(internal.SearchQuery{From: []string{"a@x.com", "b@x.com", "c@x.com"}}, "")
	require.Len(t, c.Or, 1)
	assert.Equal(t, "c@x.com", c.Or[0][1].Header.Get("From"))
	require.Len(t, c.Or[0][0].Or, 1)
	assert.Equal(t, "a@x.com", c.Or[0][0].Or[0][0].Header.Get("From"))
	assert.Nil(t, c.WithoutFlags)
}

func TestUIDSet(t *testing.T) {
	set, err := uidSet("42")
	require.NoError(t, err)
	assert.Equal(t, "42", set.String())

	_, err = uidSet("<abc@host>")
	assert.Error(t, err)
}

type failingLiteral struct{}

func (failingLiteral) Read([]byte) (int, error) { return 0, errors.New("connection reset") }
func (failingLiteral) Len() int                 { return 10 }

func TestReadFirstBodyDrainsAfterReadError(t *testing.T) {
	section := &imap.BodySectionName{Peek: true}
	messages := make(chan *imap.Message)
	go func() {
		messages <- &imap.Message{Body: map[*imap.BodySectionName]imap.Literal{section: failingLiteral{}}}
		messages <- &imap.Message{Body: map[*imap.BodySectionName]imap.Literal{section: bytes.NewBufferString("late")}}
		messages <- nil
		close(messages)
	}()

	raw, err := readFirstBody(messages, section)
	assert.EqualError(t, err, "connection reset")
	assert.Empty(t, raw)
	_, open := <-messages
	assert.False(t, open)
}

func TestReadFirstBodyKeepsFirst(t *testing.T) {
	section := &imap.BodySectionName{Peek: true}
	messages := make(chan *imap.Message, 2)
	messages <- &imap.Message{Body: map[*imap.BodySectionName]imap.Literal{section: bytes.NewBufferString("first")}}
	messages <- &imap.Message{Body: map[*imap.BodySectionName]imap.Literal{section: bytes.NewBufferString("second")}}
	close(messages)

	raw, err := readFirstBody(messages, section)
	require.NoError(t, err)
	assert.Equal(t, "first", string(raw))
}
