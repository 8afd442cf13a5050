package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/upb/travel-control-plane/models"
	"github.com/upb/travel-control-plane/services/notification"
)

// Notifier is a mock implementation of notification.Notifier
type Notifier struct {
	mock.Mock
}

func (m *Notifier) ApprovalRequested(ctx context.Context, approval *models.Approval, booking *models.Booking, approver *models.User) error {
	return m.Called(ctx, approval, booking, approver).Error(0)
}

func (m *Notifier) ApprovalResolved(ctx context.Context, approval *models.Approval, booking *models.Booking, owner *models.User) error {
	return m.Called(ctx, approval, booking, owner).Error(0)
}

func (m *Notifier) ApprovalCancelled(ctx context.Context, approval *models.Approval, booking *models.Booking) error {
	return m.Called(ctx, approval, booking).Error(0)
}

var _ notification.Notifier = (*Notifier)(nil)
