package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mercatohq/stockroom-backend/internal/movements"
	"github.com/mercatohq/stockroom-backend/internal/saga"
	"github.com/mercatohq/stockroom-backend/pkg/db/models"
	"github.com/mercatohq/stockroom-backend/pkg/enums"
	pkgerrors "github.com/mercatohq/stockroom-backend/pkg/errors"
	"github.com/mercatohq/stockroom-backend/pkg/logger"
	"github.com/mercatohq/stockroom-backend/pkg/outbox"
	"github.com/mercatohq/stockroom-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// StockLedger is the slice of the inventory service the order workflows use.
type StockLedger interface {
	Reserve(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error
	Fulfill(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error
	Release(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error
}

// ProductCatalog resolves products for sellability checks and price
// snapshots.
type ProductCatalog interface {
	Find(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// LabelStore persists shipping label artifacts. Optional; a nil store skips
// label generation.
type LabelStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	Delete(ctx context.Context, key string) error
}

// Notifier pushes best-effort events after commit. Failures are swallowed by
// the implementation.
type Notifier interface {
	Notify(ctx context.Context, event string, payload any)
}

// Service defines the sales order operations.
type Service interface {
	Create(ctx context.Context, input CreateOrderInput) (*models.SalesOrder, error)
	Get(ctx context.Context, id uuid.UUID) (*models.SalesOrder, error)
	List(ctx context.Context, params pagination.Params, filters OrderFilters) (*OrderList, error)
	ProcessStockOut(ctx context.Context, input StockOutInput) (*models.SalesOrder, error)
	AddItem(ctx context.Context, input AddItemInput) (*models.OrderItem, error)
	RemoveItem(ctx context.Context, orderID, itemID, actorUserID uuid.UUID) error
	Cancel(ctx context.Context, orderID, actorUserID uuid.UUID) error
}

type service struct {
	repo      Repository
	tx        txRunner
	inventory StockLedger
	catalog   ProductCatalog
	moves     movements.Repository
	outbox    outboxPublisher
	labels    LabelStore
	notifier  Notifier
	logg      *logger.Logger
	now       func() time.Time
}

// NewService builds the sales order service with the required dependencies.
// labels and notifier may be nil.
func NewService(
	repo Repository,
	tx txRunner,
	inv StockLedger,
	catalog ProductCatalog,
	moves movements.Repository,
	ob outboxPublisher,
	labels LabelStore,
	notifier Notifier,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if inv == nil {
		return nil, fmt.Errorf("stock ledger required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("product catalog required")
	}
	if moves == nil {
		return nil, fmt.Errorf("movements repository required")
	}
	if ob == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:      repo,
		tx:        tx,
		inventory: inv,
		catalog:   catalog,
		moves:     moves,
		outbox:    ob,
		labels:    labels,
		notifier:  notifier,
		logg:      logg,
		now:       time.Now,
	}, nil
}

// Create reserves stock per line, uploads the label artifact and persists the
// order. Each completed step records an undo; any later failure releases the
// reservations and deletes the artifact before the error is returned.
func (s *service) Create(ctx context.Context, input CreateOrderInput) (*models.SalesOrder, error) {
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	if len(input.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order requires at least one line")
	}
	seen := map[uuid.UUID]bool{}
	for _, line := range input.Lines {
		if line.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line product id required")
		}
		if line.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line quantity must be positive")
		}
		if seen[line.ProductID] {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "duplicate product in order lines")
		}
		seen[line.ProductID] = true
	}

	orderID := uuid.New()
	comp := saga.New("order-create", s.logg)

	order, err := s.createWithSaga(ctx, comp, orderID, input)
	if err != nil {
		if cerr := comp.Compensate(ctx); cerr != nil && s.logg != nil {
			s.logg.Error(s.logg.WithOrderRef(ctx, orderID.String()), "order creation compensation incomplete", cerr)
		}
		return nil, err
	}

	s.notify(ctx, "order.created", OrderCreatedEvent{
		OrderID:     order.ID,
		Reference:   order.Reference,
		CustomerID:  order.CustomerID,
		TotalAmount: order.TotalAmount,
		LineCount:   len(order.Items),
	})
	return order, nil
}

func (s *service) createWithSaga(ctx context.Context, comp *saga.Saga, orderID uuid.UUID, input CreateOrderInput) (*models.SalesOrder, error) {
	items := make([]models.OrderItem, 0, len(input.Lines))
	total := decimal.Zero

	// Step 1: reserve every line. Each reservation commits on its own so a
	// later failure must compensate.
	for _, line := range input.Lines {
		product, err := s.catalog.Find(ctx, line.ProductID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			typed := pkgerrors.As(err)
			if typed != nil {
				return nil, typed
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}
		if !product.Status.IsSellable() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("product %s is not sellable in status %s", product.SKU, product.Status))
		}

		if err := s.inventory.Reserve(ctx, nil, line.ProductID, line.Quantity); err != nil {
			return nil, err
		}
		productID := line.ProductID
		qty := line.Quantity
		comp.Record(func(ctx context.Context) error {
			return s.inventory.Release(ctx, nil, productID, qty)
		})

		lineTotal := product.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
		total = total.Add(lineTotal)
		items = append(items, models.OrderItem{
			ID:        uuid.New(),
			OrderID:   orderID,
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: product.UnitPrice,
			Status:    enums.OrderItemStatusPending,
		})
	}

	// Step 2: label artifact.
	var labelKey *string
	if s.labels != nil {
		key := fmt.Sprintf("labels/%s.json", orderID)
		payload := []byte(fmt.Sprintf(`{"order_id":%q,"customer_id":%q}`, orderID, input.CustomerID))
		if err := s.labels.Upload(ctx, key, payload, "application/json"); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upload order label")
		}
		labelKey = &key
		comp.Record(func(ctx context.Context) error {
			return s.labels.Delete(ctx, key)
		})
	}

	// Step 3: persist order, items and the created event together.
	var order *models.SalesOrder
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		reference, err := nextReference(ctx, repo, s.now())
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "allocate order reference")
		}

		order = &models.SalesOrder{
			ID:          orderID,
			Reference:   reference,
			CustomerID:  input.CustomerID,
			Status:      enums.SalesOrderStatusPending,
			TotalAmount: total,
			LabelKey:    labelKey,
			Notes:       input.Notes,
		}
		if _, err := repo.CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		if err := repo.CreateItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order items")
		}
		order.Items = items

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateSalesOrder,
			AggregateID:   orderID,
			Version:       1,
			Actor:         actorRef(input.ActorUserID, input.ActorRole),
			Data: OrderCreatedEvent{
				OrderID:     orderID,
				Reference:   reference,
				CustomerID:  input.CustomerID,
				TotalAmount: total,
				LineCount:   len(items),
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.SalesOrder, error) {
	order, err := s.repo.FindOrder(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) List(ctx context.Context, params pagination.Params, filters OrderFilters) (*OrderList, error) {
	list, err := s.repo.List(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return list, nil
}

// ProcessStockOut ships the approved quantities. Items absent from the input
// map are skipped; an invalid quantity for any item aborts the whole call.
func (s *service) ProcessStockOut(ctx context.Context, input StockOutInput) (*models.SalesOrder, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	var result *models.SalesOrder
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		moves := s.moves.WithTx(tx)

		order, err := repo.FindOrder(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.Status.IsFinalized() {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("order %s is finalized", order.Reference))
		}

		shipped := map[string]int{}
		items := order.Items
		for i := range items {
			item := &items[i]
			qty, ok := input.Approved[item.ProductID]
			if !ok || qty == 0 {
				continue
			}
			if qty < 0 {
				return pkgerrors.New(pkgerrors.CodeValidation, "approved quantity cannot be negative")
			}
			if item.Status == enums.OrderItemStatusCancelled {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "cannot approve a cancelled item")
			}
			remaining := item.RemainingQuantity()
			if qty > remaining {
				return pkgerrors.New(pkgerrors.CodeValidation,
					fmt.Sprintf("approved %d exceeds remaining %d for product %s", qty, remaining, item.ProductID))
			}

			if err := s.inventory.Fulfill(ctx, tx, item.ProductID, qty); err != nil {
				return err
			}
			if err := moves.Append(ctx, movements.Outbound(item.ProductID, order.ID, qty)); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record stock movement")
			}

			item.ApprovedQuantity += qty
			if item.ApprovedQuantity == item.Quantity {
				item.Status = enums.OrderItemStatusApproved
			} else {
				item.Status = enums.OrderItemStatusPartiallyApproved
			}
			if err := repo.UpdateItem(ctx, item.ID, map[string]any{
				"approved_quantity": item.ApprovedQuantity,
				"status":            item.Status,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order item")
			}
			shipped[item.ProductID.String()] = qty
		}

		status := DeriveOrderStatus(items)
		if status != order.Status {
			if err := repo.UpdateOrder(ctx, order.ID, map[string]any{"status": status}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
			}
			order.Status = status
		}
		order.Items = items
		result = order

		if len(shipped) == 0 {
			return nil
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStockOut,
			AggregateType: enums.AggregateSalesOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         actorRef(input.ActorUserID, input.ActorRole),
			Data: StockOutEvent{
				OrderID:   order.ID,
				Reference: order.Reference,
				Status:    order.Status,
				Shipped:   shipped,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// AddItem appends a line to an open order, reserving its stock in the same
// transaction.
func (s *service) AddItem(ctx context.Context, input AddItemInput) (*models.OrderItem, error) {
	if input.OrderID == uuid.Nil || input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id and product id required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	var created *models.OrderItem
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindOrder(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.Status.IsFinalized() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cannot modify a finalized order")
		}
		for _, item := range order.Items {
			if item.ProductID == input.ProductID && item.Status != enums.OrderItemStatusCancelled {
				return pkgerrors.New(pkgerrors.CodeConflict, "product already on order")
			}
		}

		product, err := s.catalog.Find(ctx, input.ProductID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}
		if !product.Status.IsSellable() {
			return pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("product %s is not sellable in status %s", product.SKU, product.Status))
		}

		if err := s.inventory.Reserve(ctx, tx, input.ProductID, input.Quantity); err != nil {
			return err
		}

		item := models.OrderItem{
			ID:        uuid.New(),
			OrderID:   order.ID,
			ProductID: input.ProductID,
			Quantity:  input.Quantity,
			UnitPrice: product.UnitPrice,
			Status:    enums.OrderItemStatusPending,
		}
		if err := repo.CreateItems(ctx, []models.OrderItem{item}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order item")
		}

		lineTotal := product.UnitPrice.Mul(decimal.NewFromInt(int64(input.Quantity)))
		updates := map[string]any{
			"total_amount": order.TotalAmount.Add(lineTotal),
			"status":       DeriveOrderStatus(append(order.Items, item)),
		}
		if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order totals")
		}
		created = &item

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderItemAdded,
			AggregateType: enums.AggregateSalesOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         actorRef(input.ActorUserID, input.ActorRole),
			Data: map[string]any{
				"order_id":   order.ID,
				"item_id":    item.ID,
				"product_id": item.ProductID,
				"quantity":   item.Quantity,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// RemoveItem cancels a line and returns its unshipped reservation.
func (s *service) RemoveItem(ctx context.Context, orderID, itemID, actorUserID uuid.UUID) error {
	if orderID == uuid.Nil || itemID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id and item id required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindOrder(ctx, orderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.Status.IsFinalized() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cannot modify a finalized order")
		}

		item, err := repo.FindItem(ctx, itemID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order item")
		}
		if item.OrderID != order.ID {
			return pkgerrors.New(pkgerrors.CodeValidation, "item does not belong to order")
		}
		if item.Status == enums.OrderItemStatusCancelled {
			return nil
		}

		if remaining := item.RemainingQuantity(); remaining > 0 {
			if err := s.inventory.Release(ctx, tx, item.ProductID, remaining); err != nil {
				return err
			}
		}
		if err := repo.UpdateItem(ctx, item.ID, map[string]any{"status": enums.OrderItemStatusCancelled}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order item")
		}

		items, err := repo.FindItemsByOrder(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order items")
		}
		total := decimal.Zero
		for _, it := range items {
			if it.Status == enums.OrderItemStatusCancelled {
				continue
			}
			total = total.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
		}
		if err := repo.UpdateOrder(ctx, order.ID, map[string]any{
			"total_amount": total,
			"status":       DeriveOrderStatus(items),
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order totals")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderItemRemoved,
			AggregateType: enums.AggregateSalesOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         actorRef(actorUserID, ""),
			Data: map[string]any{
				"order_id": order.ID,
				"item_id":  item.ID,
			},
		})
	})
}

// Cancel finalizes the order as cancelled and returns every unshipped
// reservation.
func (s *service) Cancel(ctx context.Context, orderID, actorUserID uuid.UUID) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	var event OrderCancelledEvent
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindOrder(ctx, orderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.Status == enums.SalesOrderStatusCancelled {
			return nil
		}
		if order.Status.IsFinalized() {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("order %s is finalized", order.Reference))
		}

		released := 0
		for _, item := range order.Items {
			if item.Status == enums.OrderItemStatusCancelled {
				continue
			}
			if remaining := item.RemainingQuantity(); remaining > 0 {
				if err := s.inventory.Release(ctx, tx, item.ProductID, remaining); err != nil {
					return err
				}
				released += remaining
			}
			if err := repo.UpdateItem(ctx, item.ID, map[string]any{"status": enums.OrderItemStatusCancelled}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order item")
			}
		}
		if err := repo.UpdateOrder(ctx, order.ID, map[string]any{"status": enums.SalesOrderStatusCancelled}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
		}

		event = OrderCancelledEvent{
			OrderID:       order.ID,
			Reference:     order.Reference,
			ReleasedUnits: released,
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCancelled,
			AggregateType: enums.AggregateSalesOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         actorRef(actorUserID, ""),
			Data:          event,
		})
	})
	if err != nil {
		return err
	}
	if event.OrderID != uuid.Nil {
		s.notify(ctx, "order.cancelled", event)
	}
	return nil
}

// DeriveOrderStatus computes the aggregate order status from its items.
func DeriveOrderStatus(items []models.OrderItem) enums.SalesOrderStatus {
	if len(items) == 0 {
		return enums.SalesOrderStatusPending
	}

	active := 0
	approved := 0
	touched := false
	for _, item := range items {
		if item.Status == enums.OrderItemStatusCancelled {
			continue
		}
		active++
		if item.Status == enums.OrderItemStatusApproved {
			approved++
		}
		if item.ApprovedQuantity > 0 {
			touched = true
		}
	}

	switch {
	case active == 0:
		return enums.SalesOrderStatusCancelled
	case approved == active:
		return enums.SalesOrderStatusApproved
	case touched:
		return enums.SalesOrderStatusPartiallyApproved
	default:
		return enums.SalesOrderStatusPending
	}
}

func (s *service) notify(ctx context.Context, event string, payload any) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, event, payload)
}

func actorRef(userID uuid.UUID, role string) *outbox.ActorRef {
	if userID == uuid.Nil {
		return nil
	}
	return &outbox.ActorRef{UserID: userID, Role: role}
}
