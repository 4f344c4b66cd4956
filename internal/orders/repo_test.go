package orders

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mercatohq/stockroom-backend/pkg/db/models"
	"github.com/mercatohq/stockroom-backend/pkg/enums"
	"github.com/mercatohq/stockroom-backend/pkg/pagination"
)

func setupOrdersRepoDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:orders_repo_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.SalesOrder{},
		&models.OrderItem{},
		&models.OrderReferenceCounter{},
	))
	return db
}

func seedOrder(t *testing.T, db *gorm.DB, customerID uuid.UUID, status enums.SalesOrderStatus, createdAt time.Time, items int) models.SalesOrder {
	t.Helper()
	order := models.SalesOrder{
		ID:          uuid.New(),
		Reference:   "SO-" + uuid.NewString()[:12],
		CustomerID:  customerID,
		Status:      status,
		TotalAmount: decimal.NewFromInt(100),
		CreatedAt:   createdAt,
	}
	require.NoError(t, db.Create(&order).Error)
	for i := 0; i < items; i++ {
		item := models.OrderItem{
			ID:        uuid.New(),
			OrderID:   order.ID,
			ProductID: uuid.New(),
			Quantity:  2,
			UnitPrice: decimal.NewFromInt(50),
			Status:    enums.OrderItemStatusPending,
		}
		require.NoError(t, db.Create(&item).Error)
	}
	return order
}

func TestListFiltersByCustomerAndStatus(t *testing.T) {
	t.Parallel()

	db := setupOrdersRepoDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	customerA := uuid.New()
	customerB := uuid.New()
	base := time.Now().UTC().Add(-time.Hour)

	seedOrder(t, db, customerA, enums.SalesOrderStatusPending, base, 2)
	seedOrder(t, db, customerA, enums.SalesOrderStatusApproved, base.Add(time.Minute), 1)
	seedOrder(t, db, customerB, enums.SalesOrderStatusPending, base.Add(2*time.Minute), 1)

	list, err := repo.List(ctx, pagination.Params{Limit: 10}, OrderFilters{CustomerID: &customerA})
	require.NoError(t, err)
	assert.Len(t, list.Orders, 2)

	status := enums.SalesOrderStatusApproved
	list, err = repo.List(ctx, pagination.Params{Limit: 10}, OrderFilters{CustomerID: &customerA, Status: &status})
	require.NoError(t, err)
	require.Len(t, list.Orders, 1)
	assert.Equal(t, enums.SalesOrderStatusApproved, list.Orders[0].Status)
	assert.Equal(t, 1, list.Orders[0].TotalItems)
}

func TestListDateWindowAndCursor(t *testing.T) {
	t.Parallel()

	db := setupOrdersRepoDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	customer := uuid.New()
	base := time.Now().UTC().Add(-24 * time.Hour).Truncate(time.Second)
	for i := 0; i < 5; i++ {
		seedOrder(t, db, customer, enums.SalesOrderStatusPending, base.Add(time.Duration(i)*time.Hour), 1)
	}

	from := base.Add(30 * time.Minute)
	to := base.Add(3*time.Hour + 30*time.Minute)
	list, err := repo.List(ctx, pagination.Params{Limit: 10}, OrderFilters{DateFrom: &from, DateTo: &to})
	require.NoError(t, err)
	assert.Len(t, list.Orders, 3)

	// newest first, two pages
	first, err := repo.List(ctx, pagination.Params{Limit: 3}, OrderFilters{})
	require.NoError(t, err)
	require.Len(t, first.Orders, 3)
	require.NotEmpty(t, first.NextCursor)
	assert.True(t, first.Orders[0].CreatedAt.After(first.Orders[2].CreatedAt))

	second, err := repo.List(ctx, pagination.Params{Limit: 3, Cursor: first.NextCursor}, OrderFilters{})
	require.NoError(t, err)
	assert.Len(t, second.Orders, 2)
	assert.Empty(t, second.NextCursor)
}

func TestNextReferenceSeqPerDay(t *testing.T) {
	t.Parallel()

	db := setupOrdersRepoDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		seq, err := repo.NextReferenceSeq(ctx, "20260115")
		require.NoError(t, err)
		assert.Equal(t, want, seq)
	}

	seq, err := repo.NextReferenceSeq(ctx, "20260116")
	require.NoError(t, err)
	assert.Equal(t, 1, seq, "sequence resets per day")
}

func TestNextReferenceSeqKeepsExistingCounter(t *testing.T) {
	t.Parallel()

	db := setupOrdersRepoDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	// A competing first order of the day already seeded the counter.
	require.NoError(t, db.Create(&models.OrderReferenceCounter{Day: "20260820", NextValue: 4}).Error)

	seq, err := repo.NextReferenceSeq(ctx, "20260820")
	require.NoError(t, err)
	assert.Equal(t, 4, seq, "seeding must not clobber an existing counter")

	seq, err = repo.NextReferenceSeq(ctx, "20260820")
	require.NoError(t, err)
	assert.Equal(t, 5, seq)
}

func TestNextReferenceSeqConcurrentFirstOrders(t *testing.T) {
	db := setupOrdersRepoDB(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// One connection lets the goroutines interleave statements without
	// tripping sqlite's shared-cache table locks.
	sqlDB.SetMaxOpenConns(1)
	repo := NewRepository(db)

	const workers = 4
	seqs := make(chan int, workers)
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seq, err := repo.NextReferenceSeq(context.Background(), "20260821")
			if err != nil {
				errs <- err
				return
			}
			seqs <- seq
		}()
	}
	wg.Wait()
	close(seqs)
	close(errs)

	for err := range errs {
		t.Fatalf("concurrent first order failed: %v", err)
	}
	seen := map[int]bool{}
	for seq := range seqs {
		assert.False(t, seen[seq], "sequence %d allocated twice", seq)
		seen[seq] = true
	}
	assert.Len(t, seen, workers)
}
