package purchaseorders

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mercatohq/stockroom-backend/internal/inventory"
	"github.com/mercatohq/stockroom-backend/internal/movements"
	"github.com/mercatohq/stockroom-backend/internal/products"
	"github.com/mercatohq/stockroom-backend/internal/suppliers"
	"github.com/mercatohq/stockroom-backend/pkg/db/models"
	"github.com/mercatohq/stockroom-backend/pkg/enums"
	pkgerrors "github.com/mercatohq/stockroom-backend/pkg/errors"
	"github.com/mercatohq/stockroom-backend/pkg/outbox"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(tx)
	})
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:purchaseorders_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	err = db.AutoMigrate(
		&models.Supplier{},
		&models.Product{},
		&models.InventoryRecord{},
		&models.PurchaseOrder{},
		&models.StockMovement{},
		&models.OutboxEvent{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	inv, err := inventory.NewService(inventory.NewRepository(db), gormTxRunner{db: db}, nil)
	if err != nil {
		t.Fatalf("build inventory service: %v", err)
	}
	svc, err := NewService(
		NewRepository(db),
		gormTxRunner{db: db},
		inv,
		products.NewRepository(db),
		suppliers.NewRepository(db),
		movements.NewRepository(db),
		outbox.NewService(outbox.NewRepository(db), nil),
		nil,
	)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc
}

func seedProduct(t *testing.T, db *gorm.DB, status enums.ProductStatus, stock int) uuid.UUID {
	t.Helper()
	product := models.Product{
		ID:        uuid.New(),
		SKU:       "SKU-" + uuid.NewString()[:8],
		Name:      "Part",
		Status:    status,
		UnitPrice: decimal.NewFromInt(10),
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	record := models.InventoryRecord{
		ProductID:    product.ID,
		CurrentStock: stock,
		Status:       enums.InventoryStatusInStock,
	}
	if err := db.Create(&record).Error; err != nil {
		t.Fatalf("seed inventory: %v", err)
	}
	return product.ID
}

func seedSupplier(t *testing.T, db *gorm.DB) uuid.UUID {
	t.Helper()
	supplier := models.Supplier{
		ID:    uuid.New(),
		Code:  "SUP-" + uuid.NewString()[:8],
		Name:  "Acme Provisions",
		Email: "orders@acme.test",
	}
	if err := db.Create(&supplier).Error; err != nil {
		t.Fatalf("seed supplier: %v", err)
	}
	return supplier.ID
}

func createOrder(t *testing.T, db *gorm.DB, svc Service, productID uuid.UUID, qty int) *models.PurchaseOrder {
	t.Helper()
	order, err := svc.Create(context.Background(), CreateInput{
		ProductID:       productID,
		SupplierID:      seedSupplier(t, db),
		OrderedQuantity: qty,
		UnitCost:        decimal.NewFromFloat(1.25),
	})
	if err != nil {
		t.Fatalf("create purchase order: %v", err)
	}
	return order
}

func TestCreateFlagsProductAndLedger(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	productID := seedProduct(t, db, enums.ProductStatusActive, 0)

	order := createOrder(t, db, svc, productID, 100)
	if order.Status != enums.PurchaseOrderStatusAwaitingApproval {
		t.Fatalf("expected awaiting_approval, got %s", order.Status)
	}
	if !strings.HasPrefix(order.Number, "PO-"+order.SupplierID.String()+"-") {
		t.Fatalf("unexpected number format: %s", order.Number)
	}
	if len(order.Number) != len("PO-")+36+1+numberSuffixLen {
		t.Fatalf("unexpected number length: %s", order.Number)
	}

	var product models.Product
	if err := db.First(&product, "id = ?", productID).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	if product.Status != enums.ProductStatusOnOrder {
		t.Fatalf("expected on_order product, got %s", product.Status)
	}

	var record models.InventoryRecord
	if err := db.First(&record, "product_id = ?", productID).Error; err != nil {
		t.Fatalf("load ledger row: %v", err)
	}
	if !record.Incoming || record.Status != enums.InventoryStatusIncoming {
		t.Fatalf("expected incoming ledger row, got %+v", record)
	}
}

func TestReceiveSplitDeliveries(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	productID := seedProduct(t, db, enums.ProductStatusActive, 0)
	order := createOrder(t, db, svc, productID, 100)

	updated, err := svc.Receive(ctx, ReceiveInput{
		OrderID:         order.ID,
		Quantity:        60,
		ActualArrivalAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("receive 60: %v", err)
	}
	if updated.Status != enums.PurchaseOrderStatusPartiallyReceived || updated.ReceivedQuantity != 60 {
		t.Fatalf("unexpected state after first delivery: %+v", updated)
	}

	var record models.InventoryRecord
	if err := db.First(&record, "product_id = ?", productID).Error; err != nil {
		t.Fatalf("load ledger row: %v", err)
	}
	if record.CurrentStock != 60 {
		t.Fatalf("expected 60 in stock, got %d", record.CurrentStock)
	}

	updated, err = svc.Receive(ctx, ReceiveInput{
		OrderID:         order.ID,
		Quantity:        40,
		ActualArrivalAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("receive 40: %v", err)
	}
	if updated.Status != enums.PurchaseOrderStatusReceived || updated.ReceivedQuantity != 100 {
		t.Fatalf("unexpected state after final delivery: %+v", updated)
	}

	if err := db.First(&record, "product_id = ?", productID).Error; err != nil {
		t.Fatalf("reload ledger row: %v", err)
	}
	if record.CurrentStock != 100 || record.Incoming {
		t.Fatalf("expected 100 in stock and incoming cleared, got %+v", record)
	}
	if record.Status != enums.InventoryStatusInStock {
		t.Fatalf("expected in_stock, got %s", record.Status)
	}

	var product models.Product
	if err := db.First(&product, "id = ?", productID).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	if product.Status != enums.ProductStatusActive {
		t.Fatalf("expected product back to active, got %s", product.Status)
	}

	var moves []models.StockMovement
	if err := db.Where("reference_id = ?", order.ID).Find(&moves).Error; err != nil {
		t.Fatalf("load movements: %v", err)
	}
	if len(moves) != 2 {
		t.Fatalf("expected 2 inbound movements, got %d", len(moves))
	}
	for _, m := range moves {
		if m.Direction != enums.MovementDirectionIn || m.ReferenceType != enums.MovementReferencePurchaseOrder {
			t.Fatalf("unexpected movement: %+v", m)
		}
	}

	// A finalized order takes no further deliveries.
	_, err = svc.Receive(ctx, ReceiveInput{OrderID: order.ID, Quantity: 1, ActualArrivalAt: time.Now()})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestReceiveRejectsOverflow(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	productID := seedProduct(t, db, enums.ProductStatusActive, 0)
	order := createOrder(t, db, svc, productID, 10)

	if _, err := svc.Receive(ctx, ReceiveInput{OrderID: order.ID, Quantity: 8, ActualArrivalAt: time.Now()}); err != nil {
		t.Fatalf("receive 8: %v", err)
	}
	_, err := svc.Receive(ctx, ReceiveInput{OrderID: order.ID, Quantity: 3, ActualArrivalAt: time.Now()})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}

	var record models.InventoryRecord
	if err := db.First(&record, "product_id = ?", productID).Error; err != nil {
		t.Fatalf("load ledger row: %v", err)
	}
	if record.CurrentStock != 8 {
		t.Fatalf("rejected delivery must not touch stock, got %d", record.CurrentStock)
	}
}

func TestConfirmVersionRace(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	productID := seedProduct(t, db, enums.ProductStatusActive, 0)
	order := createOrder(t, db, svc, productID, 10)

	if err := svc.Confirm(ctx, order.ID, order.Version); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	reloaded, err := svc.Get(ctx, order.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Status != enums.PurchaseOrderStatusDeliveryInProcess {
		t.Fatalf("expected delivery_in_process, got %s", reloaded.Status)
	}
	if reloaded.Version != order.Version+1 {
		t.Fatalf("expected version bump, got %d", reloaded.Version)
	}

	// A second click carries the stale version.
	err = svc.Confirm(ctx, order.ID, order.Version)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict for stale version, got %v", err)
	}
	if typed := pkgerrors.As(err); typed.Message() != "purchase order already processed" {
		t.Fatalf("unexpected message: %s", typed.Message())
	}
}

func TestCancelByLinkReconciles(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	productID := seedProduct(t, db, enums.ProductStatusActive, 25)
	order := createOrder(t, db, svc, productID, 10)

	if err := svc.CancelByLink(ctx, order.ID, order.Version); err != nil {
		t.Fatalf("cancel by link: %v", err)
	}

	reloaded, err := svc.Get(ctx, order.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Status != enums.PurchaseOrderStatusCancelled {
		t.Fatalf("expected cancelled, got %s", reloaded.Status)
	}

	var product models.Product
	if err := db.First(&product, "id = ?", productID).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	if product.Status != enums.ProductStatusActive {
		t.Fatalf("expected product reconciled to active, got %s", product.Status)
	}

	var record models.InventoryRecord
	if err := db.First(&record, "product_id = ?", productID).Error; err != nil {
		t.Fatalf("load ledger row: %v", err)
	}
	if record.Incoming || record.Status != enums.InventoryStatusInStock {
		t.Fatalf("expected incoming cleared, got %+v", record)
	}

	// The stale link click reports already processed.
	err = svc.CancelByLink(ctx, order.ID, order.Version)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestCreateValidation(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{SupplierID: uuid.New(), OrderedQuantity: 5})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for missing product, got %v", err)
	}

	archived := seedProduct(t, db, enums.ProductStatusArchived, 0)
	_, err = svc.Create(ctx, CreateInput{
		ProductID:       archived,
		SupplierID:      uuid.New(),
		OrderedQuantity: 5,
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for archived product, got %v", err)
	}

	active := seedProduct(t, db, enums.ProductStatusActive, 0)
	_, err = svc.Create(ctx, CreateInput{
		ProductID:       active,
		SupplierID:      uuid.New(),
		OrderedQuantity: 5,
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found error for unknown supplier, got %v", err)
	}
}

func TestNumberSuffixAlphabet(t *testing.T) {
	t.Parallel()

	suffix, err := randomSuffix(numberSuffixLen)
	if err != nil {
		t.Fatalf("random suffix: %v", err)
	}
	if len(suffix) != numberSuffixLen {
		t.Fatalf("expected %d chars, got %q", numberSuffixLen, suffix)
	}
	for _, c := range suffix {
		if !strings.ContainsRune(numberSuffixCharset, c) {
			t.Fatalf("character %q outside charset", c)
		}
	}
}
