package leads

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestStoreDefaults(t *testing.T) {
	s := NewStore(DefaultFilterState())
	f := s.Snapshot()
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, 10, f.PageSize)
	assert.Equal(t, All, f.StatusID)
	assert.Equal(t, All, f.AssignedUserID)
	assert.Equal(t, All, f.TeamID)
	assert.Empty(t, f.SearchText)
	assert.Nil(t, f.StartDate)
	assert.Nil(t, f.EndDate)
}

func TestFilterChangeEmitsFieldThenPageReset(t *testing.T) {
	initial := DefaultFilterState()
	initial.Page = 4
	s := NewStore(initial)

	var got []Transition
	s.Observe(func(tr Transition) { got = append(got, tr) })

	require.True(t, s.SetStatus("7"))
	require.Len(t, got, 2)

	assert.Equal(t, FieldStatus, got[0].Field)
	assert.Equal(t, "7", got[0].State.StatusID)
	assert.Equal(t, 4, got[0].State.Page, "field change lands before the reset")

	assert.Equal(t, FieldPage, got[1].Field)
	assert.Equal(t, 1, got[1].State.Page)
	assert.Equal(t, 1, s.Snapshot().Page)
}

func TestSameValueIsNoop(t *testing.T) {
	initial := DefaultFilterState()
	initial.Page = 3
	s := NewStore(initial)

	var n int
	s.Observe(func(Transition) { n++ })

	assert.False(t, s.SetStatus(All))
	assert.False(t, s.SetStatus(""), "empty selector means All")
	assert.False(t, s.SetSearch(""))
	assert.Zero(t, n)
	assert.Equal(t, 3, s.Snapshot().Page)
}

func TestSetPageRejectsOutOfRange(t *testing.T) {
	s := NewStore(DefaultFilterState())

	assert.False(t, s.SetPage(0, 5))
	assert.False(t, s.SetPage(6, 5))
	assert.False(t, s.SetPage(1, 0), "no pages, nothing to move to")
	assert.Equal(t, 1, s.Snapshot().Page)

	assert.True(t, s.SetPage(5, 5))
	assert.Equal(t, 5, s.Snapshot().Page)
}

func TestSetPageSizeDoesNotResetPage(t *testing.T) {
	initial := DefaultFilterState()
	initial.Page = 3
	s := NewStore(initial)

	require.NoError(t, s.SetPageSize(15))
	assert.Equal(t, 3, s.Snapshot().Page)
	assert.Equal(t, 15, s.Snapshot().PageSize)

	assert.ErrorIs(t, s.SetPageSize(20), ErrInvalidPageSize)
	assert.Equal(t, 15, s.Snapshot().PageSize)
}

func TestDateRangeComparesCalendarDays(t *testing.T) {
	s := NewStore(DefaultFilterState())
	morning := time.Date(2026, 1, 2, 8, 0, 0, 0, time.UTC)
	evening := time.Date(2026, 1, 2, 20, 0, 0, 0, time.UTC)

	require.True(t, s.SetDateRange(&morning, nil))
	require.True(t, s.SetPage(2, 2))
	assert.False(t, s.SetDateRange(&evening, nil), "same day is not a change")
	assert.Equal(t, 2, s.Snapshot().Page)

	got := s.Snapshot().StartDate
	require.NotNil(t, got)
	assert.Equal(t, 0, got.Hour())
}

func TestSnapshotIsACopy(t *testing.T) {
	d := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	s := NewStore(DefaultFilterState())
	s.SetDateRange(&d, nil)

	snap := s.Snapshot()
	*snap.StartDate = snap.StartDate.AddDate(1, 0, 0)
	snap.StatusID = "x"

	assert.Equal(t, 2026, s.Snapshot().StartDate.Year())
	assert.Equal(t, All, s.Snapshot().StatusID)
}

func TestResetRestoresDefaultsKeepsPageSize(t *testing.T) {
	s := NewStore(DefaultFilterState())
	s.SetSearch("kim")
	s.SetTeam("3")
	require.NoError(t, s.SetPageSize(5))

	assert.True(t, s.Reset())
	f := s.Snapshot()
	assert.Empty(t, f.SearchText)
	assert.Equal(t, All, f.TeamID)
	assert.Equal(t, 5, f.PageSize)
}

// Any filter edit that changes something lands on page 1.
func TestFilterEditsAlwaysResetPage(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := NewStore(DefaultFilterState())
		values := []string{All, "", "1", "2", "abc"}

		for i := 0; i < 30; i++ {
			op := rapid.IntRange(0, 5).Draw(t, "op")
			page := rapid.IntRange(1, 50).Draw(t, "page")
			s.SetPage(page, 50)

			var changed bool
			switch op {
			case 0:
				changed = s.SetSearch(rapid.SampledFrom([]string{"", "a", "kim", "rao"}).Draw(t, "search"))
			case 1:
				changed = s.SetStatus(rapid.SampledFrom(values).Draw(t, "status"))
			case 2:
				changed = s.SetAssignedUser(rapid.SampledFrom(values).Draw(t, "user"))
			case 3:
				changed = s.SetTeam(rapid.SampledFrom(values).Draw(t, "team"))
			case 4:
				day := rapid.IntRange(0, 3).Draw(t, "day")
				var d *time.Time
				if day > 0 {
					v := time.Date(2026, 1, day, 0, 0, 0, 0, time.UTC)
					d = &v
				}
				changed = s.SetDateRange(d, nil)
			case 5:
				_ = s.SetPageSize(rapid.SampledFrom(PageSizes).Draw(t, "size"))
				if got := s.Snapshot().Page; got != page {
					t.Fatalf("page size change moved page %d -> %d", page, got)
				}
				continue
			}

			got := s.Snapshot().Page
			if changed && got != 1 {
				t.Fatalf("op %d changed filters but page is %d", op, got)
			}
			if !changed && got != page {
				t.Fatalf("op %d was a no-op but page moved %d -> %d", op, page, got)
			}
		}
	})
}
