package logic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/parm-bits/stress-admin-backend/internal/model"
)

func intPtr(n int) *int { return &n }

func TestSortMembersByPriority(t *testing.T) {
	members := []model.UseCase{
		{ID: "late", Priority: nil},
		{ID: "second", Priority: intPtr(5)},
		{ID: "first", Priority: intPtr(1)},
		{ID: "also-late", Priority: nil},
		{ID: "third", Priority: intPtr(5)},
	}

	sortMembersByPriority(members)

	got := make([]string, 0, len(members))
	for _, m := range members {
		got = append(got, m.ID)
	}
	// Ascending priorities first, ties in input order, unprioritized last.
	assert.Equal(t, []string{"first", "second", "third", "late", "also-late"}, got)
}

func TestSessionOutcome(t *testing.T) {
	cases := []struct {
		name     string
		success  int
		failure  int
		expected model.SessionStatus
	}{
		{"all members succeeded", 3, 0, model.SessionStatusSuccess},
		{"all members failed", 0, 3, model.SessionStatusFailed},
		{"mixed outcome", 2, 1, model.SessionStatusPartialSuccess},
		{"single success", 1, 0, model.SessionStatusSuccess},
		{"single failure", 0, 1, model.SessionStatusFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, sessionOutcome(tc.success, tc.failure))
		})
	}
}

func TestCountsAsFailure(t *testing.T) {
	assert.False(t, countsAsFailure(model.UseCaseStatusSuccess))
	assert.True(t, countsAsFailure(model.UseCaseStatusFailed))
	// A stopped member never delivered its planned load.
	assert.True(t, countsAsFailure(model.UseCaseStatusStopped))
}

// stubbedAggregator swaps the row writer for an in-memory recorder so the
// aggregation discipline can be exercised without a database.
func stubbedAggregator(sessionID string, total int) (*sessionAggregator, *[]map[string]any) {
	agg := newSessionAggregator(sessionID, total)
	writes := &[]map[string]any{}
	agg.persist = func(updates map[string]any, onlyWhileRunning bool) int64 {
		*writes = append(*writes, updates)
		return 1
	}
	return agg, writes
}

func TestSessionAggregatorCountsEachMemberOnce(t *testing.T) {
	agg, _ := stubbedAggregator("s1", 2)

	agg.markRunning("a")
	agg.apply("a", model.UseCaseStatusSuccess, "/reports/a/index.html")
	agg.apply("a", model.UseCaseStatusFailed, "")
	agg.apply("b", model.UseCaseStatusFailed, "")

	assert.Equal(t, 1, agg.success)
	assert.Equal(t, 1, agg.failure)
	assert.Equal(t, model.UseCaseStatusSuccess, agg.statuses["a"])
	assert.Equal(t, "/reports/a/index.html", agg.reports["a"])
	assert.LessOrEqual(t, agg.success+agg.failure, agg.total)
}

func TestSessionAggregatorStopFreezesLateCompletions(t *testing.T) {
	agg, writes := stubbedAggregator("s1", 3)

	agg.markRunning("a")
	agg.markRunning("b")
	assert.False(t, agg.stopRequested())

	agg.stopAll()
	assert.True(t, agg.stopRequested())
	assert.Equal(t, model.UseCaseStatusFailed, agg.statuses["a"])
	assert.Equal(t, model.UseCaseStatusFailed, agg.statuses["b"])
	assert.Equal(t, 2, agg.failure)

	// A member whose launch raced the stop reports STOPPED afterwards; the
	// frozen aggregate records it as a session failure, counted once.
	agg.apply("c", model.UseCaseStatusStopped, "")
	assert.Equal(t, model.UseCaseStatusFailed, agg.statuses["c"])
	assert.Equal(t, 3, agg.failure)
	assert.Zero(t, agg.success)
	assert.LessOrEqual(t, agg.success+agg.failure, agg.total)

	// Members already failed by the stop are not re-counted.
	agg.apply("a", model.UseCaseStatusStopped, "")
	assert.Equal(t, 3, agg.failure)

	last := (*writes)[len(*writes)-1]
	assert.Equal(t, 3, last["failure_count"])
}

func TestSessionAggregatorStopWritesFailedSessionRow(t *testing.T) {
	agg, writes := stubbedAggregator("s1", 1)
	agg.markRunning("a")
	agg.stopAll()

	last := (*writes)[len(*writes)-1]
	assert.Equal(t, model.SessionStatusFailed, last["status"])
	assert.NotNil(t, last["completed_at"])
	assert.Equal(t, 1, last["failure_count"])
}

func TestLiveSessionAggregatorRegistry(t *testing.T) {
	assert.Nil(t, lookupSessionAggregator("s1"))

	agg := newSessionAggregator("s1", 3)
	registerSessionAggregator(agg)
	assert.Same(t, agg, lookupSessionAggregator("s1"))
	assert.Nil(t, lookupSessionAggregator("s2"))

	unregisterSessionAggregator("s1")
	assert.Nil(t, lookupSessionAggregator("s1"))
}

func TestSessionOutcomeProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		total := rapid.IntRange(1, 50).Draw(t, "total")
		success := rapid.IntRange(0, total).Draw(t, "success")
		failure := total - success

		outcome := sessionOutcome(success, failure)

		switch {
		case success == total && outcome != model.SessionStatusSuccess:
			t.Fatalf("%d/%d should be SUCCESS, got %s", success, total, outcome)
		case success == 0 && outcome != model.SessionStatusFailed:
			t.Fatalf("0/%d should be FAILED, got %s", total, outcome)
		case success > 0 && success < total && outcome != model.SessionStatusPartialSuccess:
			t.Fatalf("%d/%d should be PARTIAL_SUCCESS, got %s", success, total, outcome)
		}
	})
}

func TestSortMembersByPriorityProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 20).Draw(t, "n")
		members := make([]model.UseCase, n)
		for i := range members {
			if rapid.Bool().Draw(t, "hasPriority") {
				members[i].Priority = intPtr(rapid.IntRange(-10, 10).Draw(t, "priority"))
			}
		}

		sortMembersByPriority(members)

		seenNil := false
		var prev *int
		for _, m := range members {
			if m.Priority == nil {
				seenNil = true
				continue
			}
			if seenNil {
				t.Fatal("prioritized member after an unprioritized one")
			}
			if prev != nil && *prev > *m.Priority {
				t.Fatalf("priorities out of order: %d before %d", *prev, *m.Priority)
			}
			prev = m.Priority
		}
	})
}
