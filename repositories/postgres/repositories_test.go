package postgres

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/travel-control-plane/models"
	"github.com/upb/travel-control-plane/repositories"
	"go.uber.org/zap"
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return WrapDB(sqlDB, zap.NewNop()), mock
}

var (
	userCols = []string{"id", "email", "name", "subject", "company_id", "role", "manager_id", "created_at", "updated_at"}
	policyCols = []string{"id", "company_id", "name", "active",
		"flight_dynamic_pricing", "flight_price_threshold_percent", "flight_max_amount", "flight_advance_booking_days",
		"economy_class", "premium_economy_class", "business_class", "first_class",
		"hotel_dynamic_pricing", "hotel_price_threshold_percent", "hotel_max_amount", "hotel_advance_booking_days", "hotel_max_star_rating",
		"approval_restriction", "approvers", "created_at", "updated_at"}
	bookingCols = []string{"id", "company_id", "user_id", "trip_id", "policy_id", "type", "status", "price", "currency",
		"booking_date", "details", "is_policy_compliant", "compliance_notes", "created_at", "updated_at"}
	approvalCols = []string{"id", "company_id", "booking_id", "policy_id", "approver_id", "restriction", "approvers",
		"status", "comments", "resolved_by", "resolved_at", "created_at", "updated_at"}
)

func TestUserRepository_GetFirstByRole(t *testing.T) {
	ctx := context.Background()
	companyID := uuid.New()
	ownerID := uuid.New()

	t.Run("returns earliest admin", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewUserRepository(db, zap.NewNop())

		adminID := uuid.New()
		now := time.Now()
		mock.ExpectQuery(`FROM users\s+WHERE company_id = \$1 AND role = \$2 AND id <> \$3\s+ORDER BY created_at ASC, id ASC\s+LIMIT 1`).
			WithArgs(companyID, models.RoleTravelAdmin, ownerID).
			WillReturnRows(sqlmock.NewRows(userCols).
				AddRow(adminID.String(), "ada@acme.test", "Ada", "sub-ada", companyID.String(), "travel_admin", nil, now, now))

		user, err := repo.GetFirstByRole(ctx, companyID, models.RoleTravelAdmin, ownerID)
		require.NoError(t, err)
		assert.Equal(t, adminID, user.ID)
		assert.Equal(t, models.RoleTravelAdmin, user.Role)
		assert.Nil(t, user.ManagerID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewUserRepository(db, zap.NewNop())

		mock.ExpectQuery(`FROM users`).
			WithArgs(companyID, models.RoleTravelAdmin, ownerID).
			WillReturnRows(sqlmock.NewRows(userCols))

		user, err := repo.GetFirstByRole(ctx, companyID, models.RoleTravelAdmin, ownerID)
		assert.Nil(t, user)
		assert.True(t, errors.Is(err, repositories.ErrNotFound))
	})
}

func TestUserRepository_CreateDuplicate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db, zap.NewNop())

	user := models.NewUser("dup@acme.test", "Dup", uuid.New(), models.RoleEmployee)
	mock.ExpectExec(`INSERT INTO users`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "users_email_key"})

	err := repo.Create(context.Background(), user)
	require.Error(t, err)
	assert.True(t, errors.Is(err, repositories.ErrDuplicate))
	assert.Contains(t, err.Error(), "users_email_key")
}

func TestUserRepository_GetByIDScansManager(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db, zap.NewNop())

	id, managerID, companyID := uuid.New(), uuid.New(), uuid.New()
	now := time.Now()
	mock.ExpectQuery(`FROM users WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(id.String(), "eve@acme.test", "Eve", "sub-eve", companyID.String(), "employee", managerID.String(), now, now))

	user, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, user.ManagerID)
	assert.Equal(t, managerID, *user.ManagerID)
	assert.True(t, user.HasManager())
}

func TestPolicyRepository_GetActiveByCompanyID(t *testing.T) {
	ctx := context.Background()
	companyID := uuid.New()

	t.Run("scans nullable thresholds and approvers", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPolicyRepository(db, zap.NewNop())

		id := uuid.New()
		now := time.Now()
		mock.ExpectQuery(`WHERE company_id = \$1 AND active = true\s+ORDER BY updated_at DESC`).
			WithArgs(companyID).
			WillReturnRows(sqlmock.NewRows(policyCols).AddRow(
				id.String(), companyID.String(), "Standard", true,
				false, nil, "500.00", int64(14),
				"always", "always", "conditional", "never",
				false, nil, nil, nil, int64(4),
				"all", []byte(`[{"name":"Finance","role":"travel_admin"}]`), now, now,
			))

		policy, err := repo.GetActiveByCompanyID(ctx, companyID)
		require.NoError(t, err)
		require.NotNil(t, policy.FlightMaxAmount)
		assert.True(t, policy.FlightMaxAmount.Equal(decimal.NewFromInt(500)))
		require.NotNil(t, policy.FlightAdvanceBookingDays)
		assert.Equal(t, 14, *policy.FlightAdvanceBookingDays)
		assert.Nil(t, policy.HotelMaxAmount)
		assert.Nil(t, policy.FlightPriceThresholdPercent)
		assert.Equal(t, models.ClassNever, policy.FirstClass)
		assert.Equal(t, models.RestrictionAll, policy.ApprovalRestriction)
		assert.Equal(t, models.ApproverList{{Name: "Finance", Role: "travel_admin"}}, policy.Approvers)
	})

	t.Run("no active policy", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPolicyRepository(db, zap.NewNop())

		mock.ExpectQuery(`FROM policies`).WithArgs(companyID).WillReturnRows(sqlmock.NewRows(policyCols))

		_, err := repo.GetActiveByCompanyID(ctx, companyID)
		assert.True(t, errors.Is(err, repositories.ErrNotFound))
	})
}

func TestPolicyRepository_DeleteMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPolicyRepository(db, zap.NewNop())

	id := uuid.New()
	mock.ExpectExec(`DELETE FROM policies WHERE id = \$1`).WithArgs(id).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), id)
	assert.True(t, errors.Is(err, repositories.ErrNotFound))
}

func TestBookingRepository_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()

	t.Run("guards on current status", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewBookingRepository(db, zap.NewNop())

		mock.ExpectExec(`UPDATE bookings\s+SET status = \$3, updated_at = \$4\s+WHERE id = \$1 AND status = \$2`).
			WithArgs(id, models.BookingStatusPending, models.BookingStatusPendingApproval, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.UpdateStatus(ctx, id, models.BookingStatusPending, models.BookingStatusPendingApproval)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stale status", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewBookingRepository(db, zap.NewNop())

		mock.ExpectExec(`UPDATE bookings`).WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.UpdateStatus(ctx, id, models.BookingStatusPendingApproval, models.BookingStatusApproved)
		assert.True(t, errors.Is(err, repositories.ErrNotFound))
	})
}

func TestTripRepository_AddCost(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()

	t.Run("increments in place", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewTripRepository(db, zap.NewNop())

		mock.ExpectQuery(`UPDATE trips\s+SET total_cost = total_cost \+ \$2, updated_at = \$3\s+WHERE id = \$1\s+RETURNING total_cost`).
			WithArgs(id, decimal.RequireFromString("-600"), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"total_cost"}).AddRow("400.00"))

		total, err := repo.AddCost(ctx, id, decimal.NewFromInt(-600))
		require.NoError(t, err)
		assert.True(t, total.Equal(decimal.NewFromInt(400)))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing trip", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewTripRepository(db, zap.NewNop())

		mock.ExpectQuery(`UPDATE trips`).WillReturnRows(sqlmock.NewRows([]string{"total_cost"}))

		_, err := repo.AddCost(ctx, id, decimal.NewFromInt(250))
		assert.True(t, errors.Is(err, repositories.ErrNotFound))
	})
}

func TestTripRepository_UpdateLeavesTotalCost(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTripRepository(db, zap.NewNop())

	trip := models.NewTrip(uuid.New(), uuid.New(), "Offsite", time.Now(), time.Now())
	trip.TotalCost = decimal.NewFromInt(999)
	trip.Status = models.TripStatusPending

	mock.ExpectExec(`UPDATE trips\s+SET name = \$2, purpose = \$3, destination = \$4, start_date = \$5, end_date = \$6,\s+status = \$7, updated_at = \$8\s+WHERE id = \$1`).
		WithArgs(trip.ID, trip.Name, trip.Purpose, trip.Destination, trip.StartDate, trip.EndDate, trip.Status, trip.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Update(context.Background(), trip))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepository_ListBuildsFilter(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBookingRepository(db, zap.NewNop())

	companyID, userID := uuid.New(), uuid.New()
	status := models.BookingStatusPendingApproval
	bookingID := uuid.New()
	now := time.Now()
	date := time.Date(2026, 11, 20, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`WHERE company_id = \$1 AND user_id = \$2 AND status = \$3\s+ORDER BY created_at DESC, id ASC\s+LIMIT \$4 OFFSET \$5`).
		WithArgs(companyID, userID, status, 20, 0).
		WillReturnRows(sqlmock.NewRows(bookingCols).AddRow(
			bookingID.String(), companyID.String(), userID.String(), nil, nil,
			"flight", "pending_approval", "650.00", "USD",
			date, []byte(`{"airline":"UA"}`), false, "price exceeds maximum allowed amount of 500", now, now,
		))

	bookings, err := repo.List(context.Background(), repositories.BookingFilter{
		CompanyID: companyID,
		UserID:    &userID,
		Status:    &status,
		Limit:     20,
	})
	require.NoError(t, err)
	require.Len(t, bookings, 1)

	b := bookings[0]
	assert.Equal(t, bookingID, b.ID)
	assert.Equal(t, models.BookingTypeFlight, b.Type)
	assert.True(t, b.Price.Equal(decimal.NewFromInt(650)))
	assert.Equal(t, "2026-11-20", b.BookingDateString())
	assert.JSONEq(t, `{"airline":"UA"}`, string(b.Details))
	assert.False(t, b.IsPolicyCompliant)
	require.NotNil(t, b.ComplianceNotes)
	assert.Nil(t, b.TripID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApprovalRepository_Resolve(t *testing.T) {
	ctx := context.Background()
	approval := models.NewApproval(uuid.New(), uuid.New(), uuid.New(), uuid.New(), models.RestrictionOutOfPolicy, nil, "over budget")
	require.NoError(t, approval.Resolve(approval.ApproverID, models.ApprovalStatusApproved, "", time.Now()))

	t.Run("updates pending row", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewApprovalRepository(db, zap.NewNop())

		mock.ExpectExec(`UPDATE approvals\s+SET status = \$2, comments = \$3, resolved_by = \$4, resolved_at = \$5, updated_at = \$6\s+WHERE id = \$1 AND status = \$7`).
			WithArgs(approval.ID, models.ApprovalStatusApproved, "over budget", approval.ApproverID,
				sqlmock.AnyArg(), sqlmock.AnyArg(), models.ApprovalStatusPending).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.Resolve(ctx, approval))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already resolved", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewApprovalRepository(db, zap.NewNop())

		mock.ExpectExec(`UPDATE approvals`).WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Resolve(ctx, approval)
		assert.True(t, errors.Is(err, repositories.ErrNotFound))
	})
}

func TestApprovalRepository_GetPendingByApproverID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewApprovalRepository(db, zap.NewNop())

	approverID := uuid.New()
	now := time.Now()
	rows := sqlmock.NewRows(approvalCols)
	for i := 0; i < 2; i++ {
		rows.AddRow(uuid.New().String(), uuid.New().String(), uuid.New().String(), uuid.New().String(), approverID.String(),
			"out-of-policy", []byte(`[]`), "pending", "", nil, nil, now, now)
	}
	mock.ExpectQuery(`WHERE approver_id = \$1 AND status = \$2`).
		WithArgs(approverID, models.ApprovalStatusPending, 50, 0).
		WillReturnRows(rows)

	approvals, err := repo.GetPendingByApproverID(context.Background(), approverID, 50, 0)
	require.NoError(t, err)
	assert.Len(t, approvals, 2)
	for _, a := range approvals {
		assert.True(t, a.IsPending())
		assert.Equal(t, models.ApproverList{}, a.Approvers)
		assert.Nil(t, a.ResolvedAt)
	}
}

func TestTransactionManager(t *testing.T) {
	ctx := context.Background()

	t.Run("commits and routes queries through the transaction", func(t *testing.T) {
		db, mock := newMockDB(t)
		tm := NewTransactionManager(db, zap.NewNop())
		bookings := NewBookingRepository(db, zap.NewNop())

		id := uuid.New()
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE bookings`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := tm.InTransaction(ctx, func(txCtx context.Context, tx repositories.Transaction) error {
			_, ok := GetTransactionFromContext(txCtx)
			assert.True(t, ok)
			assert.Equal(t, txCtx, tx.Context())
			return bookings.UpdateStatus(txCtx, id, models.BookingStatusPending, models.BookingStatusConfirmed)
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on error", func(t *testing.T) {
		db, mock := newMockDB(t)
		tm := NewTransactionManager(db, zap.NewNop())

		boom := errors.New("boom")
		mock.ExpectBegin()
		mock.ExpectRollback()

		err := tm.InTransaction(ctx, func(context.Context, repositories.Transaction) error {
			return boom
		})
		assert.Equal(t, boom, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("other database does not join", func(t *testing.T) {
		db, mock := newMockDB(t)
		auditDB, _ := newMockDB(t)
		tm := NewTransactionManager(db, zap.NewNop())

		mock.ExpectBegin()
		mock.ExpectCommit()

		err := tm.InTransaction(ctx, func(txCtx context.Context, _ repositories.Transaction) error {
			assert.Equal(t, Executor(auditDB.DB), GetExecutor(txCtx, auditDB))
			assert.NotEqual(t, Executor(db.DB), GetExecutor(txCtx, db))
			return nil
		})
		require.NoError(t, err)
	})
}

func TestMapError(t *testing.T) {
	assert.Nil(t, mapError(nil, "op", "thing"))

	err := mapError(driver.ErrBadConn, "get booking", "booking 1")
	assert.Contains(t, err.Error(), "failed to get booking")
	assert.False(t, errors.Is(err, repositories.ErrNotFound))
}
