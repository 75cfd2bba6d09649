package catalog

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock(ts ...time.Time) func() time.Time {
	i := 0
	return func() time.Time {
		if len(ts) == 0 {
			return t0
		}
		t := ts[min(i, len(ts)-1)]
		i++
		return t
	}
}

func newTestEntry(t *testing.T, id int, name, author string, typ Type) *Entry {
	t.Helper()
	e, err := NewEntry(name, threadURL(id), author, typ, StatusOpen, t0)
	require.NoError(t, err)
	return e
}

func threadURL(id int) string {
	return "http://forum.example.org/forum/t-" + strconv.Itoa(id) + "/some-title"
}

func TestNewEntry(t *testing.T) {
	e, err := NewEntry("  My Story ", "http://forum.example.org/forum/t-42/my-story", "Alice", TypeIdea, StatusOpen, t0)
	require.NoError(t, err)

	assert.Equal(t, int64(42), e.ID)
	assert.Equal(t, "My Story", e.Name)
	assert.Equal(t, StatusOpen, e.Status())
	assert.Empty(t, e.Reservations())
	assert.Empty(t, e.Tags)
	assert.True(t, e.Modified)
}

func TestNewEntryRejectsMalformedURL(t *testing.T) {
	_, err := NewEntry("x", "http://forum.example.org/forum/c-42/", "Alice", TypeStory, StatusOpen, t0)
	require.ErrorIs(t, err, ErrMalformedURL)
}

func TestNewEntryNeverStartsClaimed(t *testing.T) {
	e, err := NewEntry("x", threadURL(7), "Alice", TypeStory, StatusOpenClaimed, t0)
	require.NoError(t, err)
	assert.Equal(t, StatusOpen, e.Status())
}

func TestClaimAndReleaseByIdentity(t *testing.T) {
	c := NewController(fixedClock(t0.Add(time.Hour), t0.Add(2*time.Hour)))
	e := newTestEntry(t, 1, "E1", "Alice", TypeStory)

	require.NoError(t, c.Claim(e, 11, "K1", KindExclusive))
	assert.Equal(t, StatusOpenClaimed, e.Status())
	require.Len(t, e.Reservations(), 1)
	assert.Equal(t, KindExclusive, e.Reservations()[0].Kind)
	assert.Equal(t, t0.Add(time.Hour), e.LastUpdate)

	released, err := c.ReleaseByKey(e, 11)
	require.NoError(t, err)
	assert.True(t, released)
	assert.Equal(t, StatusOpen, e.Status())
	assert.Empty(t, e.Reservations())
	assert.Equal(t, t0.Add(2*time.Hour), e.LastUpdate)
}

func TestReclaimReplacesPreviousReservation(t *testing.T) {
	c := NewController(nil)
	e := newTestEntry(t, 1, "E1", "Alice", TypeStory)

	require.NoError(t, c.Claim(e, 11, "Bob", KindSimple))
	require.NoError(t, c.Claim(e, 12, "Carol", KindOpen))
	require.NoError(t, c.Claim(e, 11, "Bob", KindExclusive))

	res := e.Reservations()
	require.Len(t, res, 2)
	assert.Equal(t, "Carol", res[0].ClaimantName)
	assert.Equal(t, "Bob", res[1].ClaimantName)
	assert.Equal(t, KindExclusive, res[1].Kind)
}

func TestProxyClaimReplacesSameName(t *testing.T) {
	c := NewController(nil)
	e := newTestEntry(t, 1, "E1", "Alice", TypeStory)

	require.NoError(t, c.Claim(e, ProxyClaimant, "Dana", KindSimple))
	require.NoError(t, c.Claim(e, ProxyClaimant, "dána", KindCollaborative))
	require.NoError(t, c.Claim(e, ProxyClaimant, "Eve", KindSimple))

	res := e.Reservations()
	require.Len(t, res, 2)
	assert.Equal(t, KindCollaborative, res[0].Kind)
}

func TestReleaseNotFound(t *testing.T) {
	c := NewController(nil)
	e := newTestEntry(t, 1, "E1", "Alice", TypeStory)
	require.NoError(t, c.Claim(e, ProxyClaimant, "Dana", KindSimple))
	e.Modified = false

	released, err := c.ReleaseByKey(e, ProxyClaimant)
	require.NoError(t, err)
	assert.False(t, released, "the proxy key never matches")

	released, err = c.ReleaseByKey(e, 99)
	require.NoError(t, err)
	assert.False(t, released)

	released, err = c.ReleaseByName(e, "Nobody")
	require.NoError(t, err)
	assert.False(t, released)

	assert.Equal(t, StatusOpenClaimed, e.Status())
	assert.False(t, e.Modified)

	released, err = c.ReleaseByName(e, "DANA")
	require.NoError(t, err)
	assert.True(t, released)
	assert.Equal(t, StatusOpen, e.Status())
}

func TestReservationCouplingAfterSequences(t *testing.T) {
	c := NewController(nil)
	e := newTestEntry(t, 1, "E1", "Alice", TypeReport)

	ops := []func(){
		func() { _ = c.Claim(e, 1, "a", KindSimple) },
		func() { _ = c.Claim(e, 2, "b", KindSimple) },
		func() { _, _ = c.ReleaseByKey(e, 1) },
		func() { _ = c.Claim(e, 2, "b", KindOpen) },
		func() { _, _ = c.ReleaseByName(e, "b") },
		func() { _, _ = c.ReleaseByName(e, "b") },
		func() { _ = c.Claim(e, ProxyClaimant, "c", KindImmediate) },
		func() { c.SetStatus(e, StatusOpen) },
		func() { _ = c.Critique(e) },
		func() { _ = c.Reopen(e) },
		func() { c.SetStatus(e, StatusOpenClaimed) },
	}

	for i, op := range ops {
		op()
		claimed := e.Status() == StatusOpenClaimed
		assert.Equal(t, claimed, len(e.Reservations()) > 0, "after op %d", i)
	}
}

func TestCloneIsDeep(t *testing.T) {
	c := NewController(nil)
	e := newTestEntry(t, 1, "E1", "Alice", TypeStory)
	c.AddTag(e, "horror")
	require.NoError(t, c.Claim(e, 5, "x", KindSimple))

	cp := e.Clone()
	c.AddTag(e, "comedy")
	_, _ = c.ReleaseByKey(e, 5)

	assert.Equal(t, []string{"horror"}, cp.Tags)
	assert.Len(t, cp.Reservations(), 1)
	assert.Equal(t, StatusOpenClaimed, cp.Status())
}
