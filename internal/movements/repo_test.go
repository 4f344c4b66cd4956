package movements

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mercatohq/stockroom-backend/pkg/db/models"
	"github.com/mercatohq/stockroom-backend/pkg/enums"
	pkgerrors "github.com/mercatohq/stockroom-backend/pkg/errors"
	"github.com/mercatohq/stockroom-backend/pkg/pagination"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:movements_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.StockMovement{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestAppendAndList(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	productID := uuid.New()
	orderID := uuid.New()
	poID := uuid.New()

	if err := repo.Append(ctx, Outbound(productID, orderID, 3)); err != nil {
		t.Fatalf("append outbound: %v", err)
	}
	if err := repo.Append(ctx, Inbound(productID, poID, 10)); err != nil {
		t.Fatalf("append inbound: %v", err)
	}

	rows, err := repo.ListByProduct(ctx, productID, pagination.Params{Limit: 10})
	if err != nil {
		t.Fatalf("list by product: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 movements, got %d", len(rows))
	}

	byRef, err := repo.ListByReference(ctx, orderID)
	if err != nil {
		t.Fatalf("list by reference: %v", err)
	}
	if len(byRef) != 1 {
		t.Fatalf("expected 1 movement for order, got %d", len(byRef))
	}
	if byRef[0].Direction != enums.MovementDirectionOut || byRef[0].Quantity != 3 {
		t.Fatalf("unexpected movement: %+v", byRef[0])
	}
}

func TestAppendRejectsInvalidRows(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	err := repo.Append(ctx, &models.StockMovement{
		ProductID:     uuid.New(),
		Direction:     enums.MovementDirectionIn,
		Quantity:      0,
		ReferenceType: enums.MovementReferenceAdjustment,
		ReferenceID:   uuid.New(),
	})
	if err == nil {
		t.Fatal("expected validation error for zero quantity")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error: %v", err)
	}

	err = repo.Append(ctx, &models.StockMovement{
		ProductID:     uuid.New(),
		Direction:     "sideways",
		Quantity:      1,
		ReferenceType: enums.MovementReferenceAdjustment,
		ReferenceID:   uuid.New(),
	})
	if err == nil {
		t.Fatal("expected validation error for direction")
	}
}
