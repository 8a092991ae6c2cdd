package application

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsesparkai/SparkOrchestra-sub001/internal/domain/model"
)

func boolPtr(b bool) *bool { return &b }

func seedKey(t *testing.T, store *mockKeyStore, user string, valid bool) {
	t.Helper()
	require.NoError(t, store.Save(context.Background(), model.UserKey{
		UserID:   user,
		Provider: model.ProviderAnthropic,
		Value:    validKey,
		Verdict:  model.ValidationVerdict{Valid: valid},
	}))
}

func TestAttributionService_Authorize(t *testing.T) {
	tests := []struct {
		name      string
		seed      *bool
		req       AuthorizeRequest
		permitted bool
		pool      model.QuotaPool
	}{
		{
			name:      "scheduled with valid key",
			seed:      boolPtr(true),
			req:       AuthorizeRequest{UserID: "u", IsScheduled: true},
			permitted: true,
			pool:      model.QuotaUserOwned,
		},
		{
			name:      "scheduled with stale key",
			seed:      boolPtr(false),
			req:       AuthorizeRequest{UserID: "u", IsScheduled: true},
			permitted: false,
			pool:      model.QuotaNone,
		},
		{
			name:      "recurring without key",
			req:       AuthorizeRequest{UserID: "u", IsRecurring: true},
			permitted: false,
			pool:      model.QuotaNone,
		},
		{
			name:      "manual without key",
			req:       AuthorizeRequest{UserID: "u"},
			permitted: true,
			pool:      model.QuotaPlatform,
		},
		{
			name:      "anonymous manual",
			req:       AuthorizeRequest{},
			permitted: true,
			pool:      model.QuotaPlatform,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			keys := newMockKeyStore()
			if tt.seed != nil {
				seedKey(t, keys, "u", *tt.seed)
			}
			decisions := &mockDecisionStore{}
			svc := NewAttributionService(keys, decisions)

			d, err := svc.Authorize(context.Background(), tt.req)

			require.NoError(t, err)
			assert.Equal(t, tt.permitted, d.Permitted)
			assert.Equal(t, tt.pool, d.QuotaPool)

			require.Len(t, decisions.records, 1)
			rec := decisions.records[0]
			assert.NotEmpty(t, rec.ID)
			assert.Equal(t, tt.req.UserID, rec.UserID)
			assert.Equal(t, model.ProviderAnthropic, rec.Provider)
			assert.Equal(t, d, rec.Decision)
			assert.False(t, rec.DecidedAt.IsZero())
		})
	}
}

func TestAttributionService_Authorize_KeyLookupFailsClosed(t *testing.T) {
	keys := newMockKeyStore()
	keys.validErr = errors.New("database is locked")
	decisions := &mockDecisionStore{}
	svc := NewAttributionService(keys, decisions)

	_, err := svc.Authorize(context.Background(), AuthorizeRequest{UserID: "u", IsScheduled: true})

	assert.ErrorContains(t, err, "database is locked")
	assert.Empty(t, decisions.records)
}

func TestAttributionService_Authorize_AuditFailureFailsClosed(t *testing.T) {
	decisions := &mockDecisionStore{appendErr: errors.New("disk full")}
	svc := NewAttributionService(newMockKeyStore(), decisions)

	d, err := svc.Authorize(context.Background(), AuthorizeRequest{UserID: "u"})

	assert.ErrorContains(t, err, "record decision")
	assert.False(t, d.Permitted)
}

func TestAttributionService_History(t *testing.T) {
	decisions := &mockDecisionStore{}
	svc := NewAttributionService(newMockKeyStore(), decisions)
	for range 3 {
		_, err := svc.Authorize(context.Background(), AuthorizeRequest{UserID: "u"})
		require.NoError(t, err)
	}
	_, err := svc.Authorize(context.Background(), AuthorizeRequest{UserID: "other"})
	require.NoError(t, err)

	recs, err := svc.History(context.Background(), "u", 0)
	require.NoError(t, err)
	assert.Len(t, recs, 3)
	assert.Equal(t, DefaultHistoryLimit, decisions.lastLimit)

	recs, err = svc.History(context.Background(), "u", 2)
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}
