package purchaseorders

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercatohq/stockroom-backend/internal/movements"
	"github.com/mercatohq/stockroom-backend/internal/products"
	"github.com/mercatohq/stockroom-backend/internal/suppliers"
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

// StockLedger is the slice of the inventory service the receiving workflow
// uses.
type StockLedger interface {
	AddStock(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error
	SetIncoming(ctx context.Context, tx *gorm.DB, productID uuid.UUID, incoming bool) error
}

// Service defines the purchase order operations. Confirm and CancelByLink
// serve the emailed supplier links and use the version check instead of the
// caller's credentials.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.PurchaseOrder, error)
	Get(ctx context.Context, id uuid.UUID) (*models.PurchaseOrder, error)
	List(ctx context.Context, params pagination.Params, filters Filters) ([]models.PurchaseOrder, bool, error)
	Receive(ctx context.Context, input ReceiveInput) (*models.PurchaseOrder, error)
	Cancel(ctx context.Context, orderID, actorUserID uuid.UUID) error
	Confirm(ctx context.Context, orderID uuid.UUID, version int) error
	CancelByLink(ctx context.Context, orderID uuid.UUID, version int) error
}

type service struct {
	repo      Repository
	tx        txRunner
	inventory StockLedger
	catalog   products.Repository
	directory suppliers.Repository
	moves     movements.Repository
	outbox    outboxPublisher
	logg      *logger.Logger
}

// NewService builds the purchase order service with the required dependencies.
func NewService(
	repo Repository,
	tx txRunner,
	inv StockLedger,
	catalog products.Repository,
	directory suppliers.Repository,
	moves movements.Repository,
	ob outboxPublisher,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("purchase order repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if inv == nil {
		return nil, fmt.Errorf("stock ledger required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if directory == nil {
		return nil, fmt.Errorf("suppliers repository required")
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
		directory: directory,
		moves:     moves,
		outbox:    ob,
		logg:      logg,
	}, nil
}

// Create opens a purchase order, flags the product as on order and the ledger
// row as incoming.
func (s *service) Create(ctx context.Context, input CreateInput) (*models.PurchaseOrder, error) {
	if input.ProductID == uuid.Nil || input.SupplierID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id and supplier id required")
	}
	if input.OrderedQuantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ordered quantity must be positive")
	}
	if input.UnitCost.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit cost cannot be negative")
	}

	var order *models.PurchaseOrder
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		catalog := s.catalog.WithTx(tx)

		product, err := catalog.Find(ctx, input.ProductID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}
		if product.Status.IsInvalidForStock() {
			return pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("cannot order product in status %s", product.Status))
		}

		if _, err := s.directory.WithTx(tx).Find(ctx, input.SupplierID); err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "supplier not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load supplier")
		}

		number, err := nextNumber(ctx, repo, input.SupplierID)
		if err != nil {
			return err
		}

		order = &models.PurchaseOrder{
			ID:                uuid.New(),
			Number:            number,
			ProductID:         input.ProductID,
			SupplierID:        input.SupplierID,
			OrderedQuantity:   input.OrderedQuantity,
			UnitCost:          input.UnitCost,
			Status:            enums.PurchaseOrderStatusAwaitingApproval,
			ExpectedArrivalAt: input.ExpectedArrivalAt,
		}
		if _, err := repo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create purchase order")
		}

		if product.Status == enums.ProductStatusActive {
			if err := catalog.Updates(ctx, product.ID, map[string]any{"status": enums.ProductStatusOnOrder}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "flag product on order")
			}
		}
		return s.inventory.SetIncoming(ctx, tx, input.ProductID, true)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.PurchaseOrder, error) {
	order, err := s.repo.Find(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "purchase order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchase order")
	}
	return order, nil
}

func (s *service) List(ctx context.Context, params pagination.Params, filters Filters) ([]models.PurchaseOrder, bool, error) {
	rows, err := s.repo.List(ctx, params, filters)
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list purchase orders")
	}
	page, hasMore := pagination.TrimPage(rows, params.Limit)
	return page, hasMore, nil
}

// Receive books a delivery. The cumulative received quantity never exceeds
// the ordered quantity; the final delivery flips the product back to active.
func (s *service) Receive(ctx context.Context, input ReceiveInput) (*models.PurchaseOrder, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "purchase order id required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "received quantity must be positive")
	}

	var result *models.PurchaseOrder
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		catalog := s.catalog.WithTx(tx)
		moves := s.moves.WithTx(tx)

		order, err := repo.Find(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "purchase order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchase order")
		}
		if order.Status.IsFinalized() {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("purchase order %s is finalized", order.Number))
		}
		if order.ReceivedQuantity+input.Quantity > order.OrderedQuantity {
			return pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("receiving %d would exceed ordered %d (already received %d)",
					input.Quantity, order.OrderedQuantity, order.ReceivedQuantity))
		}

		order.ReceivedQuantity += input.Quantity
		fullyReceived := order.ReceivedQuantity == order.OrderedQuantity
		if fullyReceived {
			order.Status = enums.PurchaseOrderStatusReceived
		} else {
			order.Status = enums.PurchaseOrderStatusPartiallyReceived
		}
		arrival := input.ActualArrivalAt
		if err := repo.Updates(ctx, order.ID, map[string]any{
			"received_quantity": order.ReceivedQuantity,
			"status":            order.Status,
			"actual_arrival_at": arrival,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update purchase order")
		}
		order.ActualArrivalAt = &arrival

		if err := s.inventory.AddStock(ctx, tx, order.ProductID, input.Quantity); err != nil {
			return err
		}
		if err := moves.Append(ctx, movements.Inbound(order.ProductID, order.ID, input.Quantity)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record stock movement")
		}

		if fullyReceived {
			product, err := catalog.Find(ctx, order.ProductID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
			}
			if product.Status == enums.ProductStatusOnOrder {
				if err := catalog.Updates(ctx, product.ID, map[string]any{"status": enums.ProductStatusActive}); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reactivate product")
				}
			}
			if err := s.inventory.SetIncoming(ctx, tx, order.ProductID, false); err != nil {
				return err
			}
		}
		result = order

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPurchaseReceived,
			AggregateType: enums.AggregatePurchaseOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         actorRef(input.ActorUserID, input.ActorRole),
			Data: ReceivedEvent{
				OrderID:          order.ID,
				Number:           order.Number,
				ProductID:        order.ProductID,
				Quantity:         input.Quantity,
				ReceivedQuantity: order.ReceivedQuantity,
				OrderedQuantity:  order.OrderedQuantity,
				Status:           order.Status,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Cancel closes the order from the operator side and reconciles the product
// and ledger state.
func (s *service) Cancel(ctx context.Context, orderID, actorUserID uuid.UUID) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "purchase order id required")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.Find(ctx, orderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "purchase order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchase order")
		}
		if order.Status.IsFinalized() {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("purchase order %s is finalized", order.Number))
		}
		if err := repo.Updates(ctx, order.ID, map[string]any{"status": enums.PurchaseOrderStatusCancelled}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel purchase order")
		}
		if err := s.reconcileCancelled(ctx, tx, order); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPurchaseCancelled,
			AggregateType: enums.AggregatePurchaseOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         actorRef(actorUserID, ""),
			Data: CancelledEvent{
				OrderID:   order.ID,
				Number:    order.Number,
				ProductID: order.ProductID,
			},
		})
	})
}

// Confirm serves the supplier's emailed confirmation link. The version check
// is the only guard; a stale version means another click already processed
// the order.
func (s *service) Confirm(ctx context.Context, orderID uuid.UUID, version int) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "purchase order id required")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.Find(ctx, orderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "purchase order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchase order")
		}
		if order.Status != enums.PurchaseOrderStatusAwaitingApproval {
			return pkgerrors.New(pkgerrors.CodeConflict, "purchase order already processed")
		}

		won, err := repo.UpdateWithVersion(ctx, order.ID, version, map[string]any{
			"status": enums.PurchaseOrderStatusDeliveryInProcess,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "confirm purchase order")
		}
		if !won {
			return pkgerrors.New(pkgerrors.CodeConflict, "purchase order already processed")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPurchaseConfirmed,
			AggregateType: enums.AggregatePurchaseOrder,
			AggregateID:   order.ID,
			Version:       1,
			Data: ConfirmedEvent{
				OrderID: order.ID,
				Number:  order.Number,
			},
		})
	})
}

// CancelByLink serves the supplier's emailed rejection link, with the same
// version guard as Confirm.
func (s *service) CancelByLink(ctx context.Context, orderID uuid.UUID, version int) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "purchase order id required")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.Find(ctx, orderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "purchase order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchase order")
		}
		if order.Status.IsFinalized() {
			return pkgerrors.New(pkgerrors.CodeConflict, "purchase order already processed")
		}

		won, err := repo.UpdateWithVersion(ctx, order.ID, version, map[string]any{
			"status": enums.PurchaseOrderStatusCancelled,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel purchase order")
		}
		if !won {
			return pkgerrors.New(pkgerrors.CodeConflict, "purchase order already processed")
		}
		if err := s.reconcileCancelled(ctx, tx, order); err != nil {
			return err
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPurchaseCancelled,
			AggregateType: enums.AggregatePurchaseOrder,
			AggregateID:   order.ID,
			Version:       1,
			Data: CancelledEvent{
				OrderID:   order.ID,
				Number:    order.Number,
				ProductID: order.ProductID,
			},
		})
	})
}

// reconcileCancelled returns the product to active when this was its pending
// order and clears the incoming flag so the ledger status is recomputed.
func (s *service) reconcileCancelled(ctx context.Context, tx *gorm.DB, order *models.PurchaseOrder) error {
	catalog := s.catalog.WithTx(tx)
	product, err := catalog.Find(ctx, order.ProductID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if product.Status == enums.ProductStatusOnOrder {
		if err := catalog.Updates(ctx, product.ID, map[string]any{"status": enums.ProductStatusActive}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reconcile product status")
		}
	}
	return s.inventory.SetIncoming(ctx, tx, order.ProductID, false)
}

func actorRef(userID uuid.UUID, role string) *outbox.ActorRef {
	if userID == uuid.Nil {
		return nil
	}
	return &outbox.ActorRef{UserID: userID, Role: role}
}
