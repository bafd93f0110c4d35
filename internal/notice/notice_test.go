package notice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	got []Notice
}

func (r *recorder) Notify(n Notice) { r.got = append(r.got, n) }

func TestBuffer_KeepsMostRecent(t *testing.T) {
	b := NewBuffer(2, nil)
	b.Notify(Info("one"))
	b.Notify(Info("two"))
	b.Notify(Warning("three"))

	got := b.Drain()
	require.Len(t, got, 2)
	assert.Equal(t, "two", got[0].Message)
	assert.Equal(t, "three", got[1].Message)
	assert.Equal(t, KindWarning, got[1].Kind)

	assert.Empty(t, b.Drain())
}

func TestBuffer_ForwardsToNext(t *testing.T) {
	rec := &recorder{}
	b := NewBuffer(5, rec)
	b.Notify(Success("added"))

	require.Len(t, rec.got, 1)
	assert.Equal(t, KindSuccess, rec.got[0].Kind)
}
