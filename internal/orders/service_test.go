package orders

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mercatohq/stockroom-backend/internal/inventory"
	"github.com/mercatohq/stockroom-backend/internal/movements"
	"github.com/mercatohq/stockroom-backend/pkg/db/models"
	"github.com/mercatohq/stockroom-backend/pkg/enums"
	pkgerrors "github.com/mercatohq/stockroom-backend/pkg/errors"
	"github.com/mercatohq/stockroom-backend/pkg/outbox"
	"github.com/mercatohq/stockroom-backend/pkg/pagination"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(tx)
	})
}

type fakeLabelStore struct {
	uploads    []string
	deletes    []string
	failUpload bool
}

func (f *fakeLabelStore) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	if f.failUpload {
		return fmt.Errorf("bucket unavailable")
	}
	f.uploads = append(f.uploads, key)
	return nil
}

func (f *fakeLabelStore) Delete(ctx context.Context, key string) error {
	f.deletes = append(f.deletes, key)
	return nil
}

type failingOutbox struct{}

func (failingOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	return fmt.Errorf("outbox insert failed")
}

type recordingNotifier struct {
	events []string
}

func (n *recordingNotifier) Notify(ctx context.Context, event string, payload any) {
	n.events = append(n.events, event)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:orders_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	err = db.AutoMigrate(
		&models.Product{},
		&models.InventoryRecord{},
		&models.SalesOrder{},
		&models.OrderItem{},
		&models.OrderReferenceCounter{},
		&models.StockMovement{},
		&models.OutboxEvent{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type testDeps struct {
	db       *gorm.DB
	labels   *fakeLabelStore
	notifier *recordingNotifier
}

func newTestService(t *testing.T, db *gorm.DB, ob outboxPublisher) (Service, *testDeps) {
	t.Helper()
	if ob == nil {
		ob = outbox.NewService(outbox.NewRepository(db), nil)
	}
	inv, err := inventory.NewService(inventory.NewRepository(db), gormTxRunner{db: db}, nil)
	if err != nil {
		t.Fatalf("build inventory service: %v", err)
	}
	deps := &testDeps{
		db:       db,
		labels:   &fakeLabelStore{},
		notifier: &recordingNotifier{},
	}
	svc, err := NewService(
		NewRepository(db),
		gormTxRunner{db: db},
		inv,
		catalogRepo{db: db},
		movements.NewRepository(db),
		ob,
		deps.labels,
		deps.notifier,
		nil,
	)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc, deps
}

// catalogRepo satisfies ProductCatalog directly against the test database.
type catalogRepo struct {
	db *gorm.DB
}

func (c catalogRepo) Find(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := c.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func seedProduct(t *testing.T, db *gorm.DB, sku string, price float64, stock int) uuid.UUID {
	t.Helper()
	product := models.Product{
		ID:        uuid.New(),
		SKU:       sku,
		Name:      sku,
		Status:    enums.ProductStatusActive,
		UnitPrice: decimal.NewFromFloat(price),
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

func loadRecord(t *testing.T, db *gorm.DB, productID uuid.UUID) models.InventoryRecord {
	t.Helper()
	var record models.InventoryRecord
	if err := db.First(&record, "product_id = ?", productID).Error; err != nil {
		t.Fatalf("load inventory record: %v", err)
	}
	return record
}

func TestCreateOrderReservesStockAndEmits(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc, deps := newTestService(t, db, nil)
	ctx := context.Background()

	widget := seedProduct(t, db, "WID-001", 10, 20)
	gadget := seedProduct(t, db, "GAD-002", 2.5, 8)

	order, err := svc.Create(ctx, CreateOrderInput{
		CustomerID: uuid.New(),
		Lines: []CreateOrderLine{
			{ProductID: widget, Quantity: 3},
			{ProductID: gadget, Quantity: 4},
		},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	wantRef := fmt.Sprintf("SO-%s-001", time.Now().Format("2006-01-02"))
	if order.Reference != wantRef {
		t.Fatalf("expected reference %s, got %s", wantRef, order.Reference)
	}
	if !order.TotalAmount.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("expected total 40, got %s", order.TotalAmount)
	}
	if len(order.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(order.Items))
	}

	if rec := loadRecord(t, db, widget); rec.ReservedStock != 3 {
		t.Fatalf("expected 3 reserved widgets, got %d", rec.ReservedStock)
	}
	if rec := loadRecord(t, db, gadget); rec.ReservedStock != 4 {
		t.Fatalf("expected 4 reserved gadgets, got %d", rec.ReservedStock)
	}

	if len(deps.labels.uploads) != 1 {
		t.Fatalf("expected one label upload, got %d", len(deps.labels.uploads))
	}
	if order.LabelKey == nil || *order.LabelKey != deps.labels.uploads[0] {
		t.Fatalf("label key not recorded on order: %+v", order.LabelKey)
	}

	var events []models.OutboxEvent
	if err := db.Find(&events).Error; err != nil {
		t.Fatalf("load outbox: %v", err)
	}
	if len(events) != 1 || events[0].EventType != enums.EventOrderCreated {
		t.Fatalf("expected one order_created event, got %+v", events)
	}
	if len(deps.notifier.events) != 1 || deps.notifier.events[0] != "order.created" {
		t.Fatalf("expected order.created notification, got %v", deps.notifier.events)
	}
}

func TestCreateOrderReferenceSequenceIncrements(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc, _ := newTestService(t, db, nil)
	ctx := context.Background()
	productID := seedProduct(t, db, "SEQ-001", 1, 100)

	for i := 1; i <= 3; i++ {
		order, err := svc.Create(ctx, CreateOrderInput{
			CustomerID: uuid.New(),
			Lines:      []CreateOrderLine{{ProductID: productID, Quantity: 1}},
		})
		if err != nil {
			t.Fatalf("create order %d: %v", i, err)
		}
		want := fmt.Sprintf("SO-%s-%03d", time.Now().Format("2006-01-02"), i)
		if order.Reference != want {
			t.Fatalf("expected reference %s, got %s", want, order.Reference)
		}
	}
}

func TestCreateOrderReleasesReservationsOnFailure(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc, deps := newTestService(t, db, nil)
	ctx := context.Background()

	plenty := seedProduct(t, db, "FULL-001", 5, 50)
	scarce := seedProduct(t, db, "THIN-002", 5, 2)

	_, err := svc.Create(ctx, CreateOrderInput{
		CustomerID: uuid.New(),
		Lines: []CreateOrderLine{
			{ProductID: plenty, Quantity: 10},
			{ProductID: scarce, Quantity: 5},
		},
	})
	if err == nil {
		t.Fatal("expected insufficient stock error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("unexpected error: %v", err)
	}
	details, ok := typed.Details().(map[string]int)
	if !ok || details["available"] != 2 || details["requested"] != 5 {
		t.Fatalf("unexpected details: %#v", typed.Details())
	}

	if rec := loadRecord(t, db, plenty); rec.ReservedStock != 0 {
		t.Fatalf("expected first reservation released, got %d", rec.ReservedStock)
	}
	if len(deps.labels.uploads) != 0 {
		t.Fatalf("label should not be uploaded before all reservations hold")
	}

	var count int64
	if err := db.Model(&models.SalesOrder{}).Count(&count).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no persisted orders, got %d", count)
	}
}

func TestCreateOrderDeletesLabelWhenPersistFails(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc, deps := newTestService(t, db, failingOutbox{})
	ctx := context.Background()
	productID := seedProduct(t, db, "LBL-001", 3, 10)

	_, err := svc.Create(ctx, CreateOrderInput{
		CustomerID: uuid.New(),
		Lines:      []CreateOrderLine{{ProductID: productID, Quantity: 2}},
	})
	if err == nil {
		t.Fatal("expected persist failure")
	}

	if rec := loadRecord(t, db, productID); rec.ReservedStock != 0 {
		t.Fatalf("expected reservation released, got %d reserved", rec.ReservedStock)
	}
	if len(deps.labels.uploads) != 1 || len(deps.labels.deletes) != 1 {
		t.Fatalf("expected upload then delete, got uploads=%v deletes=%v", deps.labels.uploads, deps.labels.deletes)
	}
	if deps.labels.deletes[0] != deps.labels.uploads[0] {
		t.Fatalf("deleted the wrong key: %s", deps.labels.deletes[0])
	}
}

func TestProcessStockOutPartialThenComplete(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc, _ := newTestService(t, db, nil)
	ctx := context.Background()
	productID := seedProduct(t, db, "SHIP-001", 4, 10)

	order, err := svc.Create(ctx, CreateOrderInput{
		CustomerID: uuid.New(),
		Lines:      []CreateOrderLine{{ProductID: productID, Quantity: 10}},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	updated, err := svc.ProcessStockOut(ctx, StockOutInput{
		OrderID:  order.ID,
		Approved: map[uuid.UUID]int{productID: 6},
	})
	if err != nil {
		t.Fatalf("first stock-out: %v", err)
	}
	if updated.Status != enums.SalesOrderStatusPartiallyApproved {
		t.Fatalf("expected partially_approved, got %s", updated.Status)
	}
	if updated.Items[0].ApprovedQuantity != 6 || updated.Items[0].Status != enums.OrderItemStatusPartiallyApproved {
		t.Fatalf("unexpected item state: %+v", updated.Items[0])
	}

	rec := loadRecord(t, db, productID)
	if rec.CurrentStock != 4 || rec.ReservedStock != 4 {
		t.Fatalf("expected 4/4 after shipping 6, got %d/%d", rec.CurrentStock, rec.ReservedStock)
	}

	updated, err = svc.ProcessStockOut(ctx, StockOutInput{
		OrderID:  order.ID,
		Approved: map[uuid.UUID]int{productID: 4},
	})
	if err != nil {
		t.Fatalf("second stock-out: %v", err)
	}
	if updated.Status != enums.SalesOrderStatusApproved {
		t.Fatalf("expected approved, got %s", updated.Status)
	}

	rec = loadRecord(t, db, productID)
	if rec.CurrentStock != 0 || rec.ReservedStock != 0 {
		t.Fatalf("expected 0/0 after full shipment, got %d/%d", rec.CurrentStock, rec.ReservedStock)
	}

	var moves []models.StockMovement
	if err := db.Where("reference_id = ?", order.ID).Find(&moves).Error; err != nil {
		t.Fatalf("load movements: %v", err)
	}
	if len(moves) != 2 {
		t.Fatalf("expected 2 movements, got %d", len(moves))
	}
	for _, m := range moves {
		if m.Direction != enums.MovementDirectionOut || m.ReferenceType != enums.MovementReferenceSalesOrder {
			t.Fatalf("unexpected movement: %+v", m)
		}
	}
}

func TestProcessStockOutValidation(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc, _ := newTestService(t, db, nil)
	ctx := context.Background()
	productID := seedProduct(t, db, "VAL-001", 4, 10)

	order, err := svc.Create(ctx, CreateOrderInput{
		CustomerID: uuid.New(),
		Lines:      []CreateOrderLine{{ProductID: productID, Quantity: 5}},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	_, err = svc.ProcessStockOut(ctx, StockOutInput{
		OrderID:  order.ID,
		Approved: map[uuid.UUID]int{productID: -1},
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for negative qty, got %v", err)
	}

	_, err = svc.ProcessStockOut(ctx, StockOutInput{
		OrderID:  order.ID,
		Approved: map[uuid.UUID]int{productID: 6},
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for over-approval, got %v", err)
	}

	// A skipped item leaves the order untouched.
	updated, err := svc.ProcessStockOut(ctx, StockOutInput{
		OrderID:  order.ID,
		Approved: map[uuid.UUID]int{},
	})
	if err != nil {
		t.Fatalf("empty stock-out: %v", err)
	}
	if updated.Status != enums.SalesOrderStatusPending {
		t.Fatalf("expected order still pending, got %s", updated.Status)
	}

	if err := db.Model(&models.SalesOrder{}).
		Where("id = ?", order.ID).
		Update("status", enums.SalesOrderStatusCompleted).Error; err != nil {
		t.Fatalf("force completed: %v", err)
	}
	_, err = svc.ProcessStockOut(ctx, StockOutInput{
		OrderID:  order.ID,
		Approved: map[uuid.UUID]int{productID: 1},
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict on finalized order, got %v", err)
	}
}

func TestCancelReleasesUnshippedReservations(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc, deps := newTestService(t, db, nil)
	ctx := context.Background()
	productID := seedProduct(t, db, "CXL-001", 4, 10)

	order, err := svc.Create(ctx, CreateOrderInput{
		CustomerID: uuid.New(),
		Lines:      []CreateOrderLine{{ProductID: productID, Quantity: 10}},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if _, err := svc.ProcessStockOut(ctx, StockOutInput{
		OrderID:  order.ID,
		Approved: map[uuid.UUID]int{productID: 4},
	}); err != nil {
		t.Fatalf("partial stock-out: %v", err)
	}

	if err := svc.Cancel(ctx, order.ID, uuid.New()); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	rec := loadRecord(t, db, productID)
	if rec.ReservedStock != 0 {
		t.Fatalf("expected all reservations released, got %d", rec.ReservedStock)
	}
	if rec.CurrentStock != 6 {
		t.Fatalf("shipped stock must stay shipped, got %d", rec.CurrentStock)
	}

	reloaded, err := svc.Get(ctx, order.ID)
	if err != nil {
		t.Fatalf("reload order: %v", err)
	}
	if reloaded.Status != enums.SalesOrderStatusCancelled {
		t.Fatalf("expected cancelled, got %s", reloaded.Status)
	}
	if reloaded.Items[0].Status != enums.OrderItemStatusCancelled {
		t.Fatalf("expected cancelled item, got %s", reloaded.Items[0].Status)
	}

	// Cancelling again is a no-op.
	if err := svc.Cancel(ctx, order.ID, uuid.New()); err != nil {
		t.Fatalf("repeat cancel: %v", err)
	}
	found := false
	for _, event := range deps.notifier.events {
		if event == "order.cancelled" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected order.cancelled notification")
	}
}

func TestAddAndRemoveItem(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc, _ := newTestService(t, db, nil)
	ctx := context.Background()

	first := seedProduct(t, db, "ADD-001", 10, 20)
	second := seedProduct(t, db, "ADD-002", 5, 20)

	order, err := svc.Create(ctx, CreateOrderInput{
		CustomerID: uuid.New(),
		Lines:      []CreateOrderLine{{ProductID: first, Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	item, err := svc.AddItem(ctx, AddItemInput{
		OrderID:   order.ID,
		ProductID: second,
		Quantity:  3,
	})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	if rec := loadRecord(t, db, second); rec.ReservedStock != 3 {
		t.Fatalf("expected reservation for added item, got %d", rec.ReservedStock)
	}

	reloaded, err := svc.Get(ctx, order.ID)
	if err != nil {
		t.Fatalf("reload order: %v", err)
	}
	if !reloaded.TotalAmount.Equal(decimal.NewFromInt(35)) {
		t.Fatalf("expected total 35, got %s", reloaded.TotalAmount)
	}

	// Duplicate product on the same order is rejected.
	if _, err := svc.AddItem(ctx, AddItemInput{OrderID: order.ID, ProductID: second, Quantity: 1}); err == nil {
		t.Fatal("expected duplicate product rejection")
	}

	if err := svc.RemoveItem(ctx, order.ID, item.ID, uuid.New()); err != nil {
		t.Fatalf("remove item: %v", err)
	}
	if rec := loadRecord(t, db, second); rec.ReservedStock != 0 {
		t.Fatalf("expected reservation released, got %d", rec.ReservedStock)
	}
	reloaded, err = svc.Get(ctx, order.ID)
	if err != nil {
		t.Fatalf("reload order: %v", err)
	}
	if !reloaded.TotalAmount.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("expected total 20 after removal, got %s", reloaded.TotalAmount)
	}
}

func TestListOrdersWithCursor(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc, _ := newTestService(t, db, nil)
	ctx := context.Background()
	productID := seedProduct(t, db, "LST-001", 1, 100)
	customerID := uuid.New()

	for i := 0; i < 4; i++ {
		if _, err := svc.Create(ctx, CreateOrderInput{
			CustomerID: customerID,
			Lines:      []CreateOrderLine{{ProductID: productID, Quantity: 1}},
		}); err != nil {
			t.Fatalf("create order %d: %v", i, err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	page, err := svc.List(ctx, pagination.Params{Limit: 3}, OrderFilters{CustomerID: &customerID})
	if err != nil {
		t.Fatalf("list first page: %v", err)
	}
	if len(page.Orders) != 3 || page.NextCursor == "" {
		t.Fatalf("expected full first page with cursor, got %d orders", len(page.Orders))
	}

	rest, err := svc.List(ctx, pagination.Params{Limit: 3, Cursor: page.NextCursor}, OrderFilters{CustomerID: &customerID})
	if err != nil {
		t.Fatalf("list second page: %v", err)
	}
	if len(rest.Orders) != 1 || rest.NextCursor != "" {
		t.Fatalf("expected one remaining order, got %d", len(rest.Orders))
	}
}

func TestDeriveOrderStatus(t *testing.T) {
	t.Parallel()

	approved := models.OrderItem{Quantity: 2, ApprovedQuantity: 2, Status: enums.OrderItemStatusApproved}
	partial := models.OrderItem{Quantity: 4, ApprovedQuantity: 1, Status: enums.OrderItemStatusPartiallyApproved}
	pending := models.OrderItem{Quantity: 3, Status: enums.OrderItemStatusPending}
	cancelled := models.OrderItem{Quantity: 3, Status: enums.OrderItemStatusCancelled}

	cases := []struct {
		name  string
		items []models.OrderItem
		want  enums.SalesOrderStatus
	}{
		{"empty", nil, enums.SalesOrderStatusPending},
		{"all pending", []models.OrderItem{pending, pending}, enums.SalesOrderStatusPending},
		{"all approved", []models.OrderItem{approved, approved}, enums.SalesOrderStatusApproved},
		{"mixed", []models.OrderItem{approved, pending}, enums.SalesOrderStatusPartiallyApproved},
		{"partial line", []models.OrderItem{partial}, enums.SalesOrderStatusPartiallyApproved},
		{"all cancelled", []models.OrderItem{cancelled, cancelled}, enums.SalesOrderStatusCancelled},
		{"cancelled ignored", []models.OrderItem{cancelled, approved}, enums.SalesOrderStatusApproved},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DeriveOrderStatus(tc.items); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}
