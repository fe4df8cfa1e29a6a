// Package mocks provides mock implementations for testing the merchsync orchestrator.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for our repository interfaces.
// The mocks are generated using go:generate directives and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	mockRepo := mocks.NewMockWorkItemRepository(ctrl)
//	mockRepo.EXPECT().GetByID(gomock.Any(), "job-1").Return(item, nil)
package mocks

// Generate mock for WorkItemRepository interface from internal/core package.
// This creates MockWorkItemRepository with methods for all WorkItemRepository interface methods:
// InsertIfAbsent, ListByStatus, ListWindows, GetByID, ClaimPending, MarkCompleted, MarkFailed,
// ResetFailed, ResetDead, ReclassifyEmpty, CountByStatus
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=work_item_repository_mock.go github.com/merchkit/merchsync/internal/core WorkItemRepository

// Generate mock for SyncExecutor interface from internal/core package.
// This creates MockSyncExecutor with methods for all SyncExecutor interface methods:
// Execute
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=sync_executor_mock.go github.com/merchkit/merchsync/internal/core SyncExecutor

// Generate mock for OrderCounter interface from internal/core package.
// This creates MockOrderCounter with methods for all OrderCounter interface methods:
// CountOrders, ExpectedRecords
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=order_counter_mock.go github.com/merchkit/merchsync/internal/core OrderCounter
