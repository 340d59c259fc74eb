package integration

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/vladislavdragonenkov/ims/internal/domain"
	"github.com/vladislavdragonenkov/ims/internal/service/ledger"
	"github.com/vladislavdragonenkov/ims/internal/service/movement"
	"github.com/vladislavdragonenkov/ims/internal/service/order"
	"github.com/vladislavdragonenkov/ims/internal/storage/memory"
)

const lowStockThreshold = 5

// outboxBacklog расширяет outbox доступом к необработанному backlog.
type outboxBacklog interface {
	domain.OutboxRepository
	AllPending() []domain.OutboxMessage
}

// OrderLifecycleTestSuite прогоняет полный жизненный цикл заказов и журнала
// движений поверх in-memory хранилища: все складские эффекты идут через
// Stock Ledger, события — через transactional outbox.
type OrderLifecycleTestSuite struct {
	suite.Suite

	products  domain.ProductRepository
	orders    domain.OrderRepository
	movements domain.MovementRepository
	outbox    outboxBacklog
	notifier  *ledger.Notifier

	workflow *order.Workflow
	recorder *movement.Recorder

	customerID string
	userID     string
	productA   string
	productB   string
}

func (suite *OrderLifecycleTestSuite) SetupTest() {
	baseLogger := log.New()
	baseLogger.SetLevel(log.WarnLevel) // Уменьшаем шум в тестах
	logger := baseLogger.WithField("component", "integration-test")

	categories := memory.NewCategoryRepository()
	suite.products = memory.NewProductRepository(categories)
	customers := memory.NewCustomerRepository()
	users := memory.NewUserRepository()
	suite.orders = memory.NewOrderRepository()
	suite.movements = memory.NewMovementRepository()
	outbox := memory.NewOutboxRepository()
	suite.outbox = outbox

	suite.notifier = ledger.NewNotifier(
		[]domain.StockObserver{ledger.NewOutboxObserver(outbox, logger)},
		ledger.WithNotifierLogger(logger),
	)

	stockLedger := ledger.New(
		suite.products,
		ledger.WithLogger(logger),
		ledger.WithNotifier(suite.notifier),
		ledger.WithLowStockThreshold(lowStockThreshold),
	)

	suite.workflow = order.NewWorkflow(
		suite.orders,
		customers,
		suite.products,
		stockLedger,
		order.WithLogger(logger),
		order.WithOutbox(outbox),
	)

	suite.recorder = movement.NewRecorder(
		suite.movements,
		suite.products,
		users,
		stockLedger,
		movement.WithLogger(logger),
		movement.WithOutbox(outbox),
	)

	now := time.Now().UTC()

	categoryID := uuid.NewString()
	require.NoError(suite.T(), categories.Create(domain.Category{
		ID:        categoryID,
		Name:      "electronics",
		CreatedAt: now,
	}))

	suite.productA = uuid.NewString()
	require.NoError(suite.T(), suite.products.Create(domain.Product{
		ID:         suite.productA,
		Name:       "laptop-pro",
		Price:      decimal.NewFromFloat(1999.00),
		CategoryID: categoryID,
		Quantity:   20,
		CreatedAt:  now,
		UpdatedAt:  now,
	}))

	suite.productB = uuid.NewString()
	require.NoError(suite.T(), suite.products.Create(domain.Product{
		ID:         suite.productB,
		Name:       "mouse-wireless",
		Price:      decimal.NewFromFloat(49.99),
		CategoryID: categoryID,
		Quantity:   10,
		CreatedAt:  now,
		UpdatedAt:  now,
	}))

	suite.customerID = uuid.NewString()
	require.NoError(suite.T(), customers.Create(domain.Customer{
		ID:        suite.customerID,
		Name:      "Acme Retail",
		City:      "Samara",
		CreatedAt: now,
	}))

	suite.userID = uuid.NewString()
	require.NoError(suite.T(), users.Create(domain.User{
		ID:        suite.userID,
		Username:  "storekeeper",
		Role:      domain.UserRoleStaff,
		CreatedAt: now,
	}))
}

func (suite *OrderLifecycleTestSuite) TestSuccessfulOrderLifecycle() {
	// 1. Создаём заказ на две позиции
	created, err := suite.workflow.Create(order.CreateInput{
		CustomerID:    suite.customerID,
		PaymentMethod: "card",
		Items: []order.ItemInput{
			{ProductID: suite.productA, Quantity: 3},
			{ProductID: suite.productB, Quantity: 2},
		},
	})
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), domain.OrderStatusPending, created.Status)
	require.Len(suite.T(), created.Items, 2)

	// 2. Остатки списаны сразу при создании
	suite.requireQuantity(suite.productA, 17)
	suite.requireQuantity(suite.productB, 8)

	// 3. Завершаем заказ: складских эффектов нет
	completed, err := suite.workflow.UpdateStatus(created.ID, domain.OrderStatusCompleted)
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), domain.OrderStatusCompleted, completed.Status)
	suite.requireQuantity(suite.productA, 17)
	suite.requireQuantity(suite.productB, 8)

	// 4. Конечный статус менять нельзя
	_, err = suite.workflow.UpdateStatus(created.ID, domain.OrderStatusCancelled)
	require.ErrorIs(suite.T(), err, domain.ErrInvalidTransition)

	// 5. В outbox лежат события created и completed
	eventTypes := suite.pendingEventTypes()
	require.Contains(suite.T(), eventTypes, "order.created")
	require.Contains(suite.T(), eventTypes, "order.completed")
}

func (suite *OrderLifecycleTestSuite) TestOrderCancellationRestocks() {
	created, err := suite.workflow.Create(order.CreateInput{
		CustomerID:    suite.customerID,
		PaymentMethod: "cash",
		Items: []order.ItemInput{
			{ProductID: suite.productA, Quantity: 6},
		},
	})
	require.NoError(suite.T(), err)
	suite.requireQuantity(suite.productA, 14)

	cancelled, err := suite.workflow.UpdateStatus(created.ID, domain.OrderStatusCancelled)
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), domain.OrderStatusCancelled, cancelled.Status)

	// Отмена возвращает ровно списанный объём
	suite.requireQuantity(suite.productA, 20)

	eventTypes := suite.pendingEventTypes()
	require.Contains(suite.T(), eventTypes, "order.cancelled")
}

func (suite *OrderLifecycleTestSuite) TestInsufficientStockKeepsOrderAtomic() {
	// Вторая позиция превышает остаток: заказ не должен быть создан,
	// а уже списанная первая позиция — возвращена.
	_, err := suite.workflow.Create(order.CreateInput{
		CustomerID:    suite.customerID,
		PaymentMethod: "card",
		Items: []order.ItemInput{
			{ProductID: suite.productA, Quantity: 2},
			{ProductID: suite.productB, Quantity: 100},
		},
	})
	require.ErrorIs(suite.T(), err, domain.ErrInsufficientStock)

	suite.requireQuantity(suite.productA, 20)
	suite.requireQuantity(suite.productB, 10)

	orders, err := suite.workflow.List(suite.customerID, 0)
	require.NoError(suite.T(), err)
	require.Empty(suite.T(), orders)
}

func (suite *OrderLifecycleTestSuite) TestDeletePendingOrderKeepsStock() {
	created, err := suite.workflow.Create(order.CreateInput{
		CustomerID:    suite.customerID,
		PaymentMethod: "card",
		Items: []order.ItemInput{
			{ProductID: suite.productB, Quantity: 4},
		},
	})
	require.NoError(suite.T(), err)
	suite.requireQuantity(suite.productB, 6)

	require.NoError(suite.T(), suite.workflow.Delete(created.ID))

	// Удаление pending-заказа остатки не трогает
	suite.requireQuantity(suite.productB, 6)

	_, err = suite.workflow.Get(created.ID)
	require.ErrorIs(suite.T(), err, domain.ErrOrderNotFound)

	eventTypes := suite.pendingEventTypes()
	require.Contains(suite.T(), eventTypes, "order.deleted")
}

func (suite *OrderLifecycleTestSuite) TestMovementJournalLifecycle() {
	// 1. Продажа уменьшает остаток и фиксируется в журнале
	sale, err := suite.recorder.Record(movement.RecordInput{
		ProductID: suite.productA,
		ActorID:   suite.userID,
		Type:      "sale",
		Quantity:  5,
	})
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), int64(20), sale.QuantityBefore)
	require.Equal(suite.T(), int64(15), sale.QuantityAfter)
	suite.requireQuantity(suite.productA, 15)

	// 2. Возврат увеличивает остаток
	ret, err := suite.recorder.Record(movement.RecordInput{
		ProductID: suite.productA,
		ActorID:   suite.userID,
		Type:      "return",
		Quantity:  2,
	})
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), int64(17), ret.QuantityAfter)
	suite.requireQuantity(suite.productA, 17)

	// 3. Овердрафт отклоняется без записи в журнал
	_, err = suite.recorder.Record(movement.RecordInput{
		ProductID: suite.productA,
		ActorID:   suite.userID,
		Type:      "sale",
		Quantity:  100,
	})
	require.ErrorIs(suite.T(), err, domain.ErrInsufficientStock)
	suite.requireQuantity(suite.productA, 17)

	movements, total, err := suite.recorder.List(
		domain.MovementFilter{ProductID: suite.productA},
		domain.Page{Number: 1, Size: 10},
	)
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), 2, total)
	require.Len(suite.T(), movements, 2)

	eventTypes := suite.pendingEventTypes()
	require.Contains(suite.T(), eventTypes, "stock.movement")
}

func (suite *OrderLifecycleTestSuite) TestLowStockAlertReachesOutbox() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Notifier работает асинхронно, как в боевом запуске
	go suite.notifier.Run(ctx)

	// Остаток товара B падает с 10 до 4 — ниже порога
	_, err := suite.recorder.Record(movement.RecordInput{
		ProductID: suite.productB,
		ActorID:   suite.userID,
		Type:      "sale",
		Quantity:  6,
	})
	require.NoError(suite.T(), err)
	suite.requireQuantity(suite.productB, 4)

	suite.waitForEventType("stock.low", 2*time.Second)
}

// Вспомогательные методы

func (suite *OrderLifecycleTestSuite) requireQuantity(productID string, expected int64) {
	product, err := suite.products.Get(productID)
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), expected, product.Quantity)
}

func (suite *OrderLifecycleTestSuite) pendingEventTypes() []string {
	messages := suite.outbox.AllPending()

	types := make([]string, 0, len(messages))
	for _, message := range messages {
		types = append(types, message.EventType)
	}
	return types
}

func (suite *OrderLifecycleTestSuite) waitForEventType(eventType string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		for _, message := range suite.outbox.AllPending() {
			if message.EventType == eventType {
				return
			}
		}
		time.Sleep(10 * time.Millisecond)
	}

	suite.T().Fatalf("outbox did not receive %q event within %v", eventType, timeout)
}

func TestOrderLifecycle(t *testing.T) {
	suite.Run(t, new(OrderLifecycleTestSuite))
}
