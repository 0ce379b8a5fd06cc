// Package mocks provides test doubles for the store package.
package mocks

import (
	"context"
	"time"

	model "github.com/sells-group/visibility-cli/internal/model"
	store "github.com/sells-group/visibility-cli/internal/store"
	mock "github.com/stretchr/testify/mock"
)

// MockStore is a mock type for the Store interface.
type MockStore struct {
	mock.Mock
}

// GetOrCreateAccount provides a mock function with given fields: ctx, email
func (_m *MockStore) GetOrCreateAccount(ctx context.Context, email string) (*model.Account, error) {
	ret := _m.Called(ctx, email)

	if len(ret) == 0 {
		panic("no return value specified for GetOrCreateAccount")
	}

	var r0 *model.Account
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) (*model.Account, error)); ok {
		return rf(ctx, email)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string) *model.Account); ok {
		r0 = rf(ctx, email)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*model.Account)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, email)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// GetAccount provides a mock function with given fields: ctx, accountID
func (_m *MockStore) GetAccount(ctx context.Context, accountID string) (*model.Account, error) {
	ret := _m.Called(ctx, accountID)

	if len(ret) == 0 {
		panic("no return value specified for GetAccount")
	}

	var r0 *model.Account
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) (*model.Account, error)); ok {
		return rf(ctx, accountID)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string) *model.Account); ok {
		r0 = rf(ctx, accountID)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*model.Account)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, accountID)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// CreateSubscription provides a mock function with given fields: ctx, sub
func (_m *MockStore) CreateSubscription(ctx context.Context, sub model.Subscription) (*model.Subscription, error) {
	ret := _m.Called(ctx, sub)

	if len(ret) == 0 {
		panic("no return value specified for CreateSubscription")
	}

	var r0 *model.Subscription
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, model.Subscription) (*model.Subscription, error)); ok {
		return rf(ctx, sub)
	}
	if rf, ok := ret.Get(0).(func(context.Context, model.Subscription) *model.Subscription); ok {
		r0 = rf(ctx, sub)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*model.Subscription)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, model.Subscription) error); ok {
		r1 = rf(ctx, sub)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// GetSubscription provides a mock function with given fields: ctx, subscriptionID
func (_m *MockStore) GetSubscription(ctx context.Context, subscriptionID string) (*model.Subscription, error) {
	ret := _m.Called(ctx, subscriptionID)

	if len(ret) == 0 {
		panic("no return value specified for GetSubscription")
	}

	var r0 *model.Subscription
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) (*model.Subscription, error)); ok {
		return rf(ctx, subscriptionID)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string) *model.Subscription); ok {
		r0 = rf(ctx, subscriptionID)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*model.Subscription)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, subscriptionID)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// ListSubscriptions provides a mock function with given fields: ctx, filter
func (_m *MockStore) ListSubscriptions(ctx context.Context, filter store.SubscriptionFilter) ([]model.Subscription, error) {
	ret := _m.Called(ctx, filter)

	if len(ret) == 0 {
		panic("no return value specified for ListSubscriptions")
	}

	var r0 []model.Subscription
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, store.SubscriptionFilter) ([]model.Subscription, error)); ok {
		return rf(ctx, filter)
	}
	if rf, ok := ret.Get(0).(func(context.Context, store.SubscriptionFilter) []model.Subscription); ok {
		r0 = rf(ctx, filter)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).([]model.Subscription)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, store.SubscriptionFilter) error); ok {
		r1 = rf(ctx, filter)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// UpdateSubscriptionStatus provides a mock function with given fields: ctx, subscriptionID, status
func (_m *MockStore) UpdateSubscriptionStatus(ctx context.Context, subscriptionID string, status model.SubscriptionStatus) error {
	ret := _m.Called(ctx, subscriptionID, status)

	if len(ret) == 0 {
		panic("no return value specified for UpdateSubscriptionStatus")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, string, model.SubscriptionStatus) error); ok {
		r0 = rf(ctx, subscriptionID, status)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// CreateRun provides a mock function with given fields: ctx, nr
func (_m *MockStore) CreateRun(ctx context.Context, nr model.NewRun) (*model.Run, error) {
	ret := _m.Called(ctx, nr)

	if len(ret) == 0 {
		panic("no return value specified for CreateRun")
	}

	var r0 *model.Run
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, model.NewRun) (*model.Run, error)); ok {
		return rf(ctx, nr)
	}
	if rf, ok := ret.Get(0).(func(context.Context, model.NewRun) *model.Run); ok {
		r0 = rf(ctx, nr)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*model.Run)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, model.NewRun) error); ok {
		r1 = rf(ctx, nr)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// GetRun provides a mock function with given fields: ctx, runID
func (_m *MockStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	ret := _m.Called(ctx, runID)

	if len(ret) == 0 {
		panic("no return value specified for GetRun")
	}

	var r0 *model.Run
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) (*model.Run, error)); ok {
		return rf(ctx, runID)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string) *model.Run); ok {
		r0 = rf(ctx, runID)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*model.Run)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, runID)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// ListRuns provides a mock function with given fields: ctx, filter
func (_m *MockStore) ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error) {
	ret := _m.Called(ctx, filter)

	if len(ret) == 0 {
		panic("no return value specified for ListRuns")
	}

	var r0 []model.Run
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, store.RunFilter) ([]model.Run, error)); ok {
		return rf(ctx, filter)
	}
	if rf, ok := ret.Get(0).(func(context.Context, store.RunFilter) []model.Run); ok {
		r0 = rf(ctx, filter)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).([]model.Run)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, store.RunFilter) error); ok {
		r1 = rf(ctx, filter)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// ActiveRunForSubscription provides a mock function with given fields: ctx, subscriptionID
func (_m *MockStore) ActiveRunForSubscription(ctx context.Context, subscriptionID string) (*model.Run, error) {
	ret := _m.Called(ctx, subscriptionID)

	if len(ret) == 0 {
		panic("no return value specified for ActiveRunForSubscription")
	}

	var r0 *model.Run
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) (*model.Run, error)); ok {
		return rf(ctx, subscriptionID)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string) *model.Run); ok {
		r0 = rf(ctx, subscriptionID)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*model.Run)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, subscriptionID)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// LatestManualRunAt provides a mock function with given fields: ctx, subscriptionID
func (_m *MockStore) LatestManualRunAt(ctx context.Context, subscriptionID string) (*time.Time, error) {
	ret := _m.Called(ctx, subscriptionID)

	if len(ret) == 0 {
		panic("no return value specified for LatestManualRunAt")
	}

	var r0 *time.Time
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) (*time.Time, error)); ok {
		return rf(ctx, subscriptionID)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string) *time.Time); ok {
		r0 = rf(ctx, subscriptionID)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*time.Time)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, subscriptionID)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// TransitionRun provides a mock function with given fields: ctx, runID, from, to
func (_m *MockStore) TransitionRun(ctx context.Context, runID string, from model.RunStatus, to model.RunStatus) error {
	ret := _m.Called(ctx, runID, from, to)

	if len(ret) == 0 {
		panic("no return value specified for TransitionRun")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, string, model.RunStatus, model.RunStatus) error); ok {
		r0 = rf(ctx, runID, from, to)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// UpdateRunProgress provides a mock function with given fields: ctx, runID, progress
func (_m *MockStore) UpdateRunProgress(ctx context.Context, runID string, progress int) error {
	ret := _m.Called(ctx, runID, progress)

	if len(ret) == 0 {
		panic("no return value specified for UpdateRunProgress")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, string, int) error); ok {
		r0 = rf(ctx, runID, progress)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// FailRun provides a mock function with given fields: ctx, runID, message
func (_m *MockStore) FailRun(ctx context.Context, runID string, message string) error {
	ret := _m.Called(ctx, runID, message)

	if len(ret) == 0 {
		panic("no return value specified for FailRun")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, string, string) error); ok {
		r0 = rf(ctx, runID, message)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// ListStaleRuns provides a mock function with given fields: ctx, startedBefore
func (_m *MockStore) ListStaleRuns(ctx context.Context, startedBefore time.Time) ([]model.Run, error) {
	ret := _m.Called(ctx, startedBefore)

	if len(ret) == 0 {
		panic("no return value specified for ListStaleRuns")
	}

	var r0 []model.Run
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, time.Time) ([]model.Run, error)); ok {
		return rf(ctx, startedBefore)
	}
	if rf, ok := ret.Get(0).(func(context.Context, time.Time) []model.Run); ok {
		r0 = rf(ctx, startedBefore)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).([]model.Run)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, time.Time) error); ok {
		r1 = rf(ctx, startedBefore)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// RunStats provides a mock function with given fields: ctx, since
func (_m *MockStore) RunStats(ctx context.Context, since time.Time) (*store.RunStats, error) {
	ret := _m.Called(ctx, since)

	if len(ret) == 0 {
		panic("no return value specified for RunStats")
	}

	var r0 *store.RunStats
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, time.Time) (*store.RunStats, error)); ok {
		return rf(ctx, since)
	}
	if rf, ok := ret.Get(0).(func(context.Context, time.Time) *store.RunStats); ok {
		r0 = rf(ctx, since)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*store.RunStats)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, time.Time) error); ok {
		r1 = rf(ctx, since)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// SaveSiteAnalysis provides a mock function with given fields: ctx, analysis
func (_m *MockStore) SaveSiteAnalysis(ctx context.Context, analysis *model.SiteAnalysis) error {
	ret := _m.Called(ctx, analysis)

	if len(ret) == 0 {
		panic("no return value specified for SaveSiteAnalysis")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, *model.SiteAnalysis) error); ok {
		r0 = rf(ctx, analysis)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// GetSiteAnalysis provides a mock function with given fields: ctx, runID
func (_m *MockStore) GetSiteAnalysis(ctx context.Context, runID string) (*model.SiteAnalysis, error) {
	ret := _m.Called(ctx, runID)

	if len(ret) == 0 {
		panic("no return value specified for GetSiteAnalysis")
	}

	var r0 *model.SiteAnalysis
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) (*model.SiteAnalysis, error)); ok {
		return rf(ctx, runID)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string) *model.SiteAnalysis); ok {
		r0 = rf(ctx, runID)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*model.SiteAnalysis)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, runID)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// InsertPrompts provides a mock function with given fields: ctx, prompts
func (_m *MockStore) InsertPrompts(ctx context.Context, prompts []model.Prompt) error {
	ret := _m.Called(ctx, prompts)

	if len(ret) == 0 {
		panic("no return value specified for InsertPrompts")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, []model.Prompt) error); ok {
		r0 = rf(ctx, prompts)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// ListPrompts provides a mock function with given fields: ctx, runID
func (_m *MockStore) ListPrompts(ctx context.Context, runID string) ([]model.Prompt, error) {
	ret := _m.Called(ctx, runID)

	if len(ret) == 0 {
		panic("no return value specified for ListPrompts")
	}

	var r0 []model.Prompt
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) ([]model.Prompt, error)); ok {
		return rf(ctx, runID)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string) []model.Prompt); ok {
		r0 = rf(ctx, runID)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).([]model.Prompt)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, runID)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// InsertPlatformResponses provides a mock function with given fields: ctx, responses
func (_m *MockStore) InsertPlatformResponses(ctx context.Context, responses []model.PlatformResponse) error {
	ret := _m.Called(ctx, responses)

	if len(ret) == 0 {
		panic("no return value specified for InsertPlatformResponses")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, []model.PlatformResponse) error); ok {
		r0 = rf(ctx, responses)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// ListPlatformResponses provides a mock function with given fields: ctx, runID
func (_m *MockStore) ListPlatformResponses(ctx context.Context, runID string) ([]model.PlatformResponse, error) {
	ret := _m.Called(ctx, runID)

	if len(ret) == 0 {
		panic("no return value specified for ListPlatformResponses")
	}

	var r0 []model.PlatformResponse
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) ([]model.PlatformResponse, error)); ok {
		return rf(ctx, runID)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string) []model.PlatformResponse); ok {
		r0 = rf(ctx, runID)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).([]model.PlatformResponse)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, runID)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// CompleteRun provides a mock function with given fields: ctx, report
func (_m *MockStore) CompleteRun(ctx context.Context, report *model.Report) error {
	ret := _m.Called(ctx, report)

	if len(ret) == 0 {
		panic("no return value specified for CompleteRun")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, *model.Report) error); ok {
		r0 = rf(ctx, report)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// GetReport provides a mock function with given fields: ctx, runID
func (_m *MockStore) GetReport(ctx context.Context, runID string) (*model.Report, error) {
	ret := _m.Called(ctx, runID)

	if len(ret) == 0 {
		panic("no return value specified for GetReport")
	}

	var r0 *model.Report
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) (*model.Report, error)); ok {
		return rf(ctx, runID)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string) *model.Report); ok {
		r0 = rf(ctx, runID)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*model.Report)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, runID)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// GetReportByToken provides a mock function with given fields: ctx, token
func (_m *MockStore) GetReportByToken(ctx context.Context, token string) (*model.Report, error) {
	ret := _m.Called(ctx, token)

	if len(ret) == 0 {
		panic("no return value specified for GetReportByToken")
	}

	var r0 *model.Report
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) (*model.Report, error)); ok {
		return rf(ctx, token)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string) *model.Report); ok {
		r0 = rf(ctx, token)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*model.Report)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, token)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// Ping provides a mock function with given fields: ctx
func (_m *MockStore) Ping(ctx context.Context) error {
	ret := _m.Called(ctx)

	if len(ret) == 0 {
		panic("no return value specified for Ping")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context) error); ok {
		r0 = rf(ctx)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// Migrate provides a mock function with given fields: ctx
func (_m *MockStore) Migrate(ctx context.Context) error {
	ret := _m.Called(ctx)

	if len(ret) == 0 {
		panic("no return value specified for Migrate")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context) error); ok {
		r0 = rf(ctx)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// Close provides a mock function with no fields
func (_m *MockStore) Close() error {
	ret := _m.Called()

	if len(ret) == 0 {
		panic("no return value specified for Close")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func() error); ok {
		r0 = rf()
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// NewMockStore creates a new instance of MockStore.
func NewMockStore(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockStore {
	mock := &MockStore{}
	mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
