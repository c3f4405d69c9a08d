package inmemory

import (
	"context"
	"testing"
	"time"

	"github.com/dvloznov/finantrack/internal/domain"
	"github.com/dvloznov/finantrack/internal/jobs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SaveAndGet(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	assert.Error(t, s.SaveJob(ctx, &jobs.ExportHistoryJob{}))

	job := &jobs.ExportHistoryJob{JobID: "j1", UserID: "u1", Status: jobs.JobStatusPending}
	require.NoError(t, s.SaveJob(ctx, job))

	job.Status = jobs.JobStatusFailed
	got, err := s.GetJob(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, jobs.JobStatusPending, got.Status, "stored copy must not follow caller changes")

	got.Status = jobs.JobStatusCompleted
	again, _ := s.GetJob(ctx, "j1")
	assert.Equal(t, jobs.JobStatusPending, again.Status)

	_, err = s.GetJob(ctx, "missing")
	assert.ErrorIs(t, err, jobs.ErrJobNotFound)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_ListJobs(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	base := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)

	for i, tc := range []struct {
		id, user string
		status   jobs.JobStatus
	}{
		{"a", "u1", jobs.JobStatusCompleted},
		{"b", "u1", jobs.JobStatusFailed},
		{"c", "u2", jobs.JobStatusCompleted},
		{"d", "u1", jobs.JobStatusCompleted},
	} {
		require.NoError(t, s.SaveJob(ctx, &jobs.ExportHistoryJob{
			JobID: tc.id, UserID: tc.user, Status: tc.status,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	ids := func(list []*jobs.ExportHistoryJob) []string {
		out := []string{}
		for _, j := range list {
			out = append(out, j.JobID)
		}
		return out
	}

	tests := []struct {
		name   string
		filter jobs.JobFilter
		want   []string
	}{
		{name: "all", filter: jobs.JobFilter{}, want: []string{"d", "c", "b", "a"}},
		{name: "by user", filter: jobs.JobFilter{UserID: "u1"}, want: []string{"d", "b", "a"}},
		{name: "by status", filter: jobs.JobFilter{UserID: "u1", Status: jobs.JobStatusCompleted}, want: []string{"d", "a"}},
		{name: "limit", filter: jobs.JobFilter{Limit: 2}, want: []string{"d", "c"}},
		{name: "offset", filter: jobs.JobFilter{Offset: 3}, want: []string{"a"}},
		{name: "offset past end", filter: jobs.JobFilter{Offset: 10}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListJobs(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestStore_UpdateJobStatus(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	require.NoError(t, s.SaveJob(ctx, &jobs.ExportHistoryJob{JobID: "j1"}))

	require.NoError(t, s.UpdateJobStatus(ctx, "j1", jobs.JobStatusFailed, "boom"))
	got, _ := s.GetJob(ctx, "j1")
	assert.Equal(t, jobs.JobStatusFailed, got.Status)
	assert.Equal(t, "boom", got.Error)

	assert.ErrorIs(t, s.UpdateJobStatus(ctx, "nope", jobs.JobStatusFailed, ""), jobs.ErrJobNotFound)
}
