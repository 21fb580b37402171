package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"souq-backend/internal/orders/domain"
	"souq-backend/internal/orders/ports"
	apperrors "souq-backend/pkg/errors"
	"souq-backend/pkg/logger"
)

// MockOrderRepository is an in-memory implementation of OrderRepository.
// MarkPaid and MarkDelivered hold the mutex across their check-and-write, so
// concurrent callers see the same winner-takes-all behavior as the store.
type MockOrderRepository struct {
	mu     sync.Mutex
	orders map[string]*domain.Order

	// duplicateCreates makes Create fail with gorm.ErrDuplicatedKey this
	// many times before succeeding
	duplicateCreates int
}

func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{
		orders: make(map[string]*domain.Order),
	}
}

func (m *MockOrderRepository) WithTx(tx *gorm.DB) ports.OrderRepository {
	return m
}

func (m *MockOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.duplicateCreates > 0 {
		m.duplicateCreates--
		return gorm.ErrDuplicatedKey
	}

	copied := *order
	m.orders[order.ID] = &copied
	return nil
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[id]
	if !ok {
		return nil, domain.NewOrderNotFound(id)
	}
	copied := *order
	return &copied, nil
}

func (m *MockOrderRepository) List(ctx context.Context, filter ports.ListFilter) ([]*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []*domain.Order
	for _, order := range m.orders {
		if filter.UserID != "" && order.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && order.OrderStatus != filter.Status {
			continue
		}
		copied := *order
		result = append(result, &copied)
	}
	return result, nil
}

func (m *MockOrderRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.orders[id]; !ok {
		return domain.NewOrderNotFound(id)
	}
	delete(m.orders, id)
	return nil
}

func (m *MockOrderRepository) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus, deliveredAt, cancelledAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[id]
	if !ok {
		return domain.NewOrderNotFound(id)
	}
	order.OrderStatus = status
	order.DeliveredAt = deliveredAt
	order.CancelledAt = cancelledAt
	return nil
}

func (m *MockOrderRepository) SetProcessing(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[id]
	if !ok || order.OrderStatus.Terminal() {
		return false, nil
	}
	order.OrderStatus = domain.OrderStatusProcessing
	return true, nil
}

func (m *MockOrderRepository) MarkPaid(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[id]
	if !ok {
		return false, nil
	}
	if order.PaymentStatus != domain.PaymentStatusPending || order.OrderStatus.Terminal() {
		return false, nil
	}
	order.PaymentStatus = domain.PaymentStatusPaid
	order.OrderStatus = domain.OrderStatusProcessing
	return true, nil
}

func (m *MockOrderRepository) MarkDelivered(ctx context.Context, id string, deliveredAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[id]
	if !ok {
		return false, nil
	}
	if order.PaymentStatus != domain.PaymentStatusPaid || order.OrderStatus.Terminal() {
		return false, nil
	}
	order.OrderStatus = domain.OrderStatusDelivered
	order.DeliveredAt = &deliveredAt
	return true, nil
}

func (m *MockOrderRepository) snapshot() map[string]domain.Order {
	m.mu.Lock()
	defer m.mu.Unlock()

	state := make(map[string]domain.Order, len(m.orders))
	for id, order := range m.orders {
		state[id] = *order
	}
	return state
}

func (m *MockOrderRepository) restore(state map[string]domain.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.orders = make(map[string]*domain.Order, len(state))
	for id := range state {
		copied := state[id]
		m.orders[id] = &copied
	}
}

// MockInventoryLedger is an in-memory implementation of InventoryLedger
type MockInventoryLedger struct {
	mu       sync.Mutex
	products map[string]*ports.ProductInfo
}

func NewMockInventoryLedger() *MockInventoryLedger {
	return &MockInventoryLedger{
		products: make(map[string]*ports.ProductInfo),
	}
}

func (m *MockInventoryLedger) AddProduct(p ports.ProductInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[p.ID] = &p
}

func (m *MockInventoryLedger) GetProduct(ctx context.Context, productID string) (*ports.ProductInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	product, ok := m.products[productID]
	if !ok {
		return nil, apperrors.NewNotFound("product", productID)
	}
	copied := *product
	return &copied, nil
}

func (m *MockInventoryLedger) GetStock(ctx context.Context, productID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	product, ok := m.products[productID]
	if !ok {
		return 0, apperrors.NewNotFound("product", productID)
	}
	return product.Stock, nil
}

func (m *MockInventoryLedger) DecrementStock(ctx context.Context, tx *gorm.DB, productID string, qty int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	product, ok := m.products[productID]
	if !ok || product.Stock < qty {
		return false, nil
	}
	product.Stock -= qty
	return true, nil
}

func (m *MockInventoryLedger) snapshot() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()

	state := make(map[string]int, len(m.products))
	for id, product := range m.products {
		state[id] = product.Stock
	}
	return state
}

func (m *MockInventoryLedger) restore(state map[string]int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, stock := range state {
		if product, ok := m.products[id]; ok {
			product.Stock = stock
		}
	}
}

// MockSellerLedger is an in-memory implementation of SellerLedger
type MockSellerLedger struct {
	mu       sync.Mutex
	balances map[string]int64
	settled  map[string]bool
}

func NewMockSellerLedger(sellerIDs ...string) *MockSellerLedger {
	balances := make(map[string]int64)
	for _, id := range sellerIDs {
		balances[id] = 0
	}
	return &MockSellerLedger{
		balances: balances,
		settled:  make(map[string]bool),
	}
}

func (m *MockSellerLedger) CreditBalance(ctx context.Context, tx *gorm.DB, orderID, sellerID string, amountCents int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := orderID + "/" + sellerID
	if m.settled[key] {
		return nil
	}
	if _, ok := m.balances[sellerID]; !ok {
		return apperrors.NewNotFound("seller", sellerID)
	}
	m.settled[key] = true
	m.balances[sellerID] += amountCents
	return nil
}

func (m *MockSellerLedger) Balance(sellerID string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[sellerID]
}

func (m *MockSellerLedger) snapshot() (map[string]int64, map[string]bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	balances := make(map[string]int64, len(m.balances))
	for id, balance := range m.balances {
		balances[id] = balance
	}
	settled := make(map[string]bool, len(m.settled))
	for key, done := range m.settled {
		settled[key] = done
	}
	return balances, settled
}

func (m *MockSellerLedger) restore(balances map[string]int64, settled map[string]bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances = balances
	m.settled = settled
}

// MockTxRunner serializes transactions and restores every mock's state when
// the function fails, mimicking the store's rollback
type MockTxRunner struct {
	mu        sync.Mutex
	repo      *MockOrderRepository
	inventory *MockInventoryLedger
	sellers   *MockSellerLedger
}

func (m *MockTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	orders := m.repo.snapshot()
	stocks := m.inventory.snapshot()
	balances, settled := m.sellers.snapshot()

	if err := fn(nil); err != nil {
		m.repo.restore(orders)
		m.inventory.restore(stocks)
		m.sellers.restore(balances, settled)
		return err
	}
	return nil
}

// MockPaymentGateway is a mock implementation of PaymentGateway
type MockPaymentGateway struct {
	secret string
	err    error
	calls  int
}

func (m *MockPaymentGateway) CreateIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (string, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	return m.secret, nil
}

// MockEventPublisher records published events
type MockEventPublisher struct {
	mu        sync.Mutex
	created   []string
	paid      []string
	delivered []string
}

func (m *MockEventPublisher) PublishOrderCreated(ctx context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, order.ID)
	return nil
}

func (m *MockEventPublisher) PublishOrderPaid(ctx context.Context, order *domain.Order, credits []domain.SellerCredit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paid = append(m.paid, order.ID)
	return nil
}

func (m *MockEventPublisher) PublishOrderDelivered(ctx context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delivered = append(m.delivered, order.ID)
	return nil
}

type testFixture struct {
	repo      *MockOrderRepository
	inventory *MockInventoryLedger
	sellers   *MockSellerLedger
	gateway   *MockPaymentGateway
	publisher *MockEventPublisher
	useCase   *OrderUseCase
}

func newFixture() *testFixture {
	repo := NewMockOrderRepository()
	inventory := NewMockInventoryLedger()
	inventory.AddProduct(ports.ProductInfo{ID: "p1", Name: "Keyboard", SellerID: "s1", PriceCents: 2500, Stock: 10})
	inventory.AddProduct(ports.ProductInfo{ID: "p2", Name: "Mouse", SellerID: "s2", PriceCents: 3000, Stock: 5})
	sellers := NewMockSellerLedger("s1", "s2")
	gateway := &MockPaymentGateway{secret: "pi_test_secret"}
	publisher := &MockEventPublisher{}
	tx := &MockTxRunner{repo: repo, inventory: inventory, sellers: sellers}
	log := logger.New("test", "error", "console")

	return &testFixture{
		repo:      repo,
		inventory: inventory,
		sellers:   sellers,
		gateway:   gateway,
		publisher: publisher,
		useCase: NewOrderUseCase(repo, inventory, sellers, gateway, publisher, tx,
			"egp", time.Second, log),
	}
}

func validCreateInput() CreateOrderInput {
	return CreateOrderInput{
		UserID: "u1",
		Items: []OrderItemInput{
			{ProductID: "p1", SellerID: "s1", Quantity: 2, UnitPriceCents: 2500},
			{ProductID: "p2", SellerID: "s2", Quantity: 1, UnitPriceCents: 3000},
		},
		ShippingAddress: domain.ShippingAddress{
			FullName: "Amina Hassan",
			Phone:    "+201001234567",
			Address:  "12 Tahrir St",
			City:     "Cairo",
			Region:   "Cairo",
		},
		PaymentMethod:  domain.PaymentMethodCreditCard,
		ShippingMethod: domain.ShippingMethodHomeDelivery,
		ShippingCents:  1000,
		TotalCents:     9000,
	}
}

func mustCreateOrder(t *testing.T, f *testFixture) *domain.Order {
	t.Helper()
	output, err := f.useCase.CreateOrder(context.Background(), validCreateInput())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	return output.Order
}

func TestCreateOrder_Success(t *testing.T) {
	// Arrange
	f := newFixture()

	// Act
	output, err := f.useCase.CreateOrder(context.Background(), validCreateInput())

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if output.Order.PaymentStatus != domain.PaymentStatusPending {
		t.Errorf("expected payment status Pending, got %s", output.Order.PaymentStatus)
	}
	if output.Order.OrderStatus != domain.OrderStatusPending {
		t.Errorf("expected order status Pending, got %s", output.Order.OrderStatus)
	}
	if len(f.publisher.created) != 1 {
		t.Errorf("expected 1 created event, got %d", len(f.publisher.created))
	}

	// Stock and balances stay untouched at creation
	if stock, _ := f.inventory.GetStock(context.Background(), "p1"); stock != 10 {
		t.Errorf("expected stock 10, got %d", stock)
	}
	if balance := f.sellers.Balance("s1"); balance != 0 {
		t.Errorf("expected balance 0, got %d", balance)
	}
}

func TestCreateOrder_UnknownProduct(t *testing.T) {
	f := newFixture()
	input := validCreateInput()
	input.Items[0].ProductID = "missing"

	_, err := f.useCase.CreateOrder(context.Background(), input)

	if !apperrors.Is(err, apperrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateOrder_PriceMismatch(t *testing.T) {
	f := newFixture()
	input := validCreateInput()
	input.Items[0].UnitPriceCents = 2400
	input.TotalCents = 8800

	_, err := f.useCase.CreateOrder(context.Background(), input)

	if !apperrors.Is(err, apperrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateOrder_SellerMismatch(t *testing.T) {
	f := newFixture()
	input := validCreateInput()
	input.Items[0].SellerID = "s2"

	_, err := f.useCase.CreateOrder(context.Background(), input)

	if !apperrors.Is(err, apperrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateOrder_TotalMismatch(t *testing.T) {
	f := newFixture()
	input := validCreateInput()
	input.TotalCents = 9100

	_, err := f.useCase.CreateOrder(context.Background(), input)

	if !apperrors.Is(err, apperrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateOrder_OrderNumberRedraw(t *testing.T) {
	// Two collisions then success; the third attempt lands
	f := newFixture()
	f.repo.duplicateCreates = 2

	output, err := f.useCase.CreateOrder(context.Background(), validCreateInput())

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if output.Order.OrderNumber < 10000 || output.Order.OrderNumber > 99999 {
		t.Errorf("order number out of range: %d", output.Order.OrderNumber)
	}
}

func TestCreateOrder_OrderNumberExhausted(t *testing.T) {
	f := newFixture()
	f.repo.duplicateCreates = orderNumberAttempts

	_, err := f.useCase.CreateOrder(context.Background(), validCreateInput())

	if !apperrors.Is(err, apperrors.CodePersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
}

func TestInitiatePayment_Card(t *testing.T) {
	f := newFixture()
	order := mustCreateOrder(t, f)

	output, err := f.useCase.InitiatePayment(context.Background(), InitiatePaymentInput{
		OrderID:     order.ID,
		Method:      domain.PaymentMethodCreditCard,
		AmountCents: 9000,
	})

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if output.ClientSecret != "pi_test_secret" {
		t.Errorf("expected client secret, got %q", output.ClientSecret)
	}
	// Card initiation leaves the order untouched until confirmation
	if output.Order.PaymentStatus != domain.PaymentStatusPending {
		t.Errorf("expected payment status Pending, got %s", output.Order.PaymentStatus)
	}
}

func TestInitiatePayment_COD(t *testing.T) {
	f := newFixture()
	order := mustCreateOrder(t, f)

	output, err := f.useCase.InitiatePayment(context.Background(), InitiatePaymentInput{
		OrderID:     order.ID,
		Method:      domain.PaymentMethodCOD,
		AmountCents: 9000,
	})

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if output.ClientSecret != "" {
		t.Errorf("expected no client secret for COD, got %q", output.ClientSecret)
	}
	if output.Order.OrderStatus != domain.OrderStatusProcessing {
		t.Errorf("expected order status Processing, got %s", output.Order.OrderStatus)
	}
	if output.Order.PaymentStatus != domain.PaymentStatusPending {
		t.Errorf("expected payment status Pending, got %s", output.Order.PaymentStatus)
	}
	if f.gateway.calls != 0 {
		t.Errorf("expected no gateway calls for COD, got %d", f.gateway.calls)
	}
}

func TestInitiatePayment_AmountMismatch(t *testing.T) {
	f := newFixture()
	order := mustCreateOrder(t, f)

	_, err := f.useCase.InitiatePayment(context.Background(), InitiatePaymentInput{
		OrderID:     order.ID,
		Method:      domain.PaymentMethodCreditCard,
		AmountCents: 8999,
	})

	if !apperrors.Is(err, apperrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if f.gateway.calls != 0 {
		t.Errorf("expected no gateway calls, got %d", f.gateway.calls)
	}
}

func TestInitiatePayment_UnsupportedMethod(t *testing.T) {
	f := newFixture()
	order := mustCreateOrder(t, f)

	_, err := f.useCase.InitiatePayment(context.Background(), InitiatePaymentInput{
		OrderID:     order.ID,
		Method:      domain.PaymentMethod("Barter"),
		AmountCents: 9000,
	})

	if !apperrors.Is(err, apperrors.CodeUnsupportedMethod) {
		t.Fatalf("expected unsupported method error, got %v", err)
	}
}

func TestInitiatePayment_GatewayDown(t *testing.T) {
	f := newFixture()
	f.gateway.err = errors.New("connection refused")
	order := mustCreateOrder(t, f)

	_, err := f.useCase.InitiatePayment(context.Background(), InitiatePaymentInput{
		OrderID:     order.ID,
		Method:      domain.PaymentMethodCreditCard,
		AmountCents: 9000,
	})

	if !apperrors.Is(err, apperrors.CodeGateway) {
		t.Fatalf("expected gateway error, got %v", err)
	}
	if !apperrors.Retryable(err) {
		t.Error("expected gateway error to be retryable")
	}

	// Failed initiation leaves the order safe to retry
	reloaded, _ := f.repo.GetByID(context.Background(), order.ID)
	if reloaded.PaymentStatus != domain.PaymentStatusPending {
		t.Errorf("expected payment status Pending, got %s", reloaded.PaymentStatus)
	}
}

func TestInitiatePayment_AlreadyPaid(t *testing.T) {
	f := newFixture()
	order := mustCreateOrder(t, f)
	if _, err := f.useCase.ConfirmPayment(context.Background(), order.ID); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}

	_, err := f.useCase.InitiatePayment(context.Background(), InitiatePaymentInput{
		OrderID:     order.ID,
		Method:      domain.PaymentMethodCreditCard,
		AmountCents: 9000,
	})

	if !apperrors.Is(err, apperrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestConfirmPayment_SettlesSellers(t *testing.T) {
	f := newFixture()
	order := mustCreateOrder(t, f)

	confirmed, err := f.useCase.ConfirmPayment(context.Background(), order.ID)

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if confirmed.PaymentStatus != domain.PaymentStatusPaid {
		t.Errorf("expected payment status Paid, got %s", confirmed.PaymentStatus)
	}
	if confirmed.OrderStatus != domain.OrderStatusProcessing {
		t.Errorf("expected order status Processing, got %s", confirmed.OrderStatus)
	}

	// Each seller gets its items' subtotal; shipping is credited to no one
	if balance := f.sellers.Balance("s1"); balance != 5000 {
		t.Errorf("expected s1 balance 5000, got %d", balance)
	}
	if balance := f.sellers.Balance("s2"); balance != 3000 {
		t.Errorf("expected s2 balance 3000, got %d", balance)
	}
	if len(f.publisher.paid) != 1 {
		t.Errorf("expected 1 paid event, got %d", len(f.publisher.paid))
	}
}

func TestConfirmPayment_Idempotent(t *testing.T) {
	f := newFixture()
	order := mustCreateOrder(t, f)

	if _, err := f.useCase.ConfirmPayment(context.Background(), order.ID); err != nil {
		t.Fatalf("first confirm failed: %v", err)
	}
	_, err := f.useCase.ConfirmPayment(context.Background(), order.ID)

	if !apperrors.Is(err, apperrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	// Balances credited exactly once
	if balance := f.sellers.Balance("s1"); balance != 5000 {
		t.Errorf("expected s1 balance 5000, got %d", balance)
	}
	if balance := f.sellers.Balance("s2"); balance != 3000 {
		t.Errorf("expected s2 balance 3000, got %d", balance)
	}
}

func TestConfirmPayment_Concurrent(t *testing.T) {
	f := newFixture()
	order := mustCreateOrder(t, f)

	const confirmations = 8
	var wg sync.WaitGroup
	results := make(chan error, confirmations)

	for i := 0; i < confirmations; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.useCase.ConfirmPayment(context.Background(), order.ID)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var wins, conflicts int
	for err := range results {
		switch {
		case err == nil:
			wins++
		case apperrors.Is(err, apperrors.CodeConflict):
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}

	if wins != 1 {
		t.Errorf("expected exactly 1 winner, got %d", wins)
	}
	if conflicts != confirmations-1 {
		t.Errorf("expected %d conflicts, got %d", confirmations-1, conflicts)
	}
	if balance := f.sellers.Balance("s1"); balance != 5000 {
		t.Errorf("expected s1 balance 5000, got %d", balance)
	}
}

func TestConfirmPayment_UnknownSellerRollsBack(t *testing.T) {
	// An order whose item names a seller the ledger does not know
	f := newFixture()
	f.inventory.AddProduct(ports.ProductInfo{ID: "p3", Name: "Cable", SellerID: "ghost", PriceCents: 1000, Stock: 3})

	input := validCreateInput()
	input.Items = append(input.Items, OrderItemInput{ProductID: "p3", SellerID: "ghost", Quantity: 1, UnitPriceCents: 1000})
	input.TotalCents = 10000
	output, err := f.useCase.CreateOrder(context.Background(), input)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	_, err = f.useCase.ConfirmPayment(context.Background(), output.Order.ID)

	if !apperrors.Is(err, apperrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	// The whole settlement rolled back: not paid, nothing credited
	reloaded, _ := f.repo.GetByID(context.Background(), output.Order.ID)
	if reloaded.PaymentStatus != domain.PaymentStatusPending {
		t.Errorf("expected payment status Pending after rollback, got %s", reloaded.PaymentStatus)
	}
	if balance := f.sellers.Balance("s1"); balance != 0 {
		t.Errorf("expected s1 balance 0 after rollback, got %d", balance)
	}
}

func TestCompleteOrder_Success(t *testing.T) {
	f := newFixture()
	order := mustCreateOrder(t, f)
	if _, err := f.useCase.ConfirmPayment(context.Background(), order.ID); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}

	completed, err := f.useCase.CompleteOrder(context.Background(), order.ID)

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if completed.OrderStatus != domain.OrderStatusDelivered {
		t.Errorf("expected order status Delivered, got %s", completed.OrderStatus)
	}
	if completed.DeliveredAt == nil {
		t.Error("expected DeliveredAt to be set")
	}

	if stock, _ := f.inventory.GetStock(context.Background(), "p1"); stock != 8 {
		t.Errorf("expected p1 stock 8, got %d", stock)
	}
	if stock, _ := f.inventory.GetStock(context.Background(), "p2"); stock != 4 {
		t.Errorf("expected p2 stock 4, got %d", stock)
	}
	if len(f.publisher.delivered) != 1 {
		t.Errorf("expected 1 delivered event, got %d", len(f.publisher.delivered))
	}
}

func TestCompleteOrder_Unpaid(t *testing.T) {
	f := newFixture()
	order := mustCreateOrder(t, f)

	_, err := f.useCase.CompleteOrder(context.Background(), order.ID)

	if !apperrors.Is(err, apperrors.CodePrecondition) {
		t.Fatalf("expected precondition error, got %v", err)
	}
	if stock, _ := f.inventory.GetStock(context.Background(), "p1"); stock != 10 {
		t.Errorf("expected p1 stock untouched, got %d", stock)
	}
}

func TestCompleteOrder_InsufficientStock(t *testing.T) {
	f := newFixture()
	order := mustCreateOrder(t, f)
	if _, err := f.useCase.ConfirmPayment(context.Background(), order.ID); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}

	// Drain p2 below the ordered quantity
	f.inventory.DecrementStock(context.Background(), nil, "p2", 5)

	_, err := f.useCase.CompleteOrder(context.Background(), order.ID)

	if !apperrors.Is(err, apperrors.CodeInsufficientStock) {
		t.Fatalf("expected insufficient stock error, got %v", err)
	}

	// All or nothing: p1 was never decremented
	if stock, _ := f.inventory.GetStock(context.Background(), "p1"); stock != 10 {
		t.Errorf("expected p1 stock 10, got %d", stock)
	}
	reloaded, _ := f.repo.GetByID(context.Background(), order.ID)
	if reloaded.OrderStatus == domain.OrderStatusDelivered {
		t.Error("order must not be delivered when stock is short")
	}
}

func TestCompleteOrder_AlreadyDelivered(t *testing.T) {
	f := newFixture()
	order := mustCreateOrder(t, f)
	if _, err := f.useCase.ConfirmPayment(context.Background(), order.ID); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if _, err := f.useCase.CompleteOrder(context.Background(), order.ID); err != nil {
		t.Fatalf("first completion failed: %v", err)
	}

	_, err := f.useCase.CompleteOrder(context.Background(), order.ID)

	if !apperrors.Is(err, apperrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	// Stock decremented exactly once
	if stock, _ := f.inventory.GetStock(context.Background(), "p1"); stock != 8 {
		t.Errorf("expected p1 stock 8, got %d", stock)
	}
}

func TestInitiatePayment_CancelledOrder(t *testing.T) {
	f := newFixture()
	order := mustCreateOrder(t, f)
	if _, err := f.useCase.UpdateOrderStatus(context.Background(), order.ID, domain.OrderStatusCancelled); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	_, err := f.useCase.InitiatePayment(context.Background(), InitiatePaymentInput{
		OrderID:     order.ID,
		Method:      domain.PaymentMethodCOD,
		AmountCents: 9000,
	})

	if !apperrors.Is(err, apperrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	// A cancelled order stays cancelled
	reloaded, _ := f.repo.GetByID(context.Background(), order.ID)
	if reloaded.OrderStatus != domain.OrderStatusCancelled {
		t.Errorf("expected status Cancelled, got %s", reloaded.OrderStatus)
	}
}

func TestConfirmPayment_CancelledOrder(t *testing.T) {
	// A late confirmation must not resurrect a cancelled order or move money
	f := newFixture()
	order := mustCreateOrder(t, f)
	if _, err := f.useCase.UpdateOrderStatus(context.Background(), order.ID, domain.OrderStatusCancelled); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	_, err := f.useCase.ConfirmPayment(context.Background(), order.ID)

	if !apperrors.Is(err, apperrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	reloaded, _ := f.repo.GetByID(context.Background(), order.ID)
	if reloaded.PaymentStatus != domain.PaymentStatusPending {
		t.Errorf("expected payment status Pending, got %s", reloaded.PaymentStatus)
	}
	if reloaded.OrderStatus != domain.OrderStatusCancelled {
		t.Errorf("expected status Cancelled, got %s", reloaded.OrderStatus)
	}
	if balance := f.sellers.Balance("s1"); balance != 0 {
		t.Errorf("expected s1 balance 0, got %d", balance)
	}
	if balance := f.sellers.Balance("s2"); balance != 0 {
		t.Errorf("expected s2 balance 0, got %d", balance)
	}
}

func TestCompleteOrder_CancelledOrder(t *testing.T) {
	// Cancelled after payment: fulfillment must refuse and consume no stock
	f := newFixture()
	order := mustCreateOrder(t, f)
	if _, err := f.useCase.ConfirmPayment(context.Background(), order.ID); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if _, err := f.useCase.UpdateOrderStatus(context.Background(), order.ID, domain.OrderStatusCancelled); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	_, err := f.useCase.CompleteOrder(context.Background(), order.ID)

	if !apperrors.Is(err, apperrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	reloaded, _ := f.repo.GetByID(context.Background(), order.ID)
	if reloaded.OrderStatus != domain.OrderStatusCancelled {
		t.Errorf("expected status Cancelled, got %s", reloaded.OrderStatus)
	}
	if stock, _ := f.inventory.GetStock(context.Background(), "p1"); stock != 10 {
		t.Errorf("expected p1 stock 10, got %d", stock)
	}
	if stock, _ := f.inventory.GetStock(context.Background(), "p2"); stock != 5 {
		t.Errorf("expected p2 stock 5, got %d", stock)
	}
}

func TestUpdateOrderStatus_StampsCancellation(t *testing.T) {
	f := newFixture()
	order := mustCreateOrder(t, f)

	updated, err := f.useCase.UpdateOrderStatus(context.Background(), order.ID, domain.OrderStatusCancelled)

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if updated.OrderStatus != domain.OrderStatusCancelled {
		t.Errorf("expected status Cancelled, got %s", updated.OrderStatus)
	}
	if updated.CancelledAt == nil {
		t.Error("expected CancelledAt to be set")
	}
}

func TestUpdateOrderStatus_TerminalRefused(t *testing.T) {
	f := newFixture()
	order := mustCreateOrder(t, f)
	if _, err := f.useCase.UpdateOrderStatus(context.Background(), order.ID, domain.OrderStatusCancelled); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	_, err := f.useCase.UpdateOrderStatus(context.Background(), order.ID, domain.OrderStatusShipped)

	if !apperrors.Is(err, apperrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestUpdateOrderStatus_UnknownStatus(t *testing.T) {
	f := newFixture()
	order := mustCreateOrder(t, f)

	_, err := f.useCase.UpdateOrderStatus(context.Background(), order.ID, domain.OrderStatus("Lost"))

	if !apperrors.Is(err, apperrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestOrderLifecycle_EndToEnd(t *testing.T) {
	f := newFixture()

	// Create: (Pending, Pending), nothing touched
	order := mustCreateOrder(t, f)
	if order.TotalCents != 9000 {
		t.Fatalf("expected total 9000, got %d", order.TotalCents)
	}

	// Initiate with COD: Processing, still unpaid
	initiated, err := f.useCase.InitiatePayment(context.Background(), InitiatePaymentInput{
		OrderID:     order.ID,
		Method:      domain.PaymentMethodCOD,
		AmountCents: order.TotalCents,
	})
	if err != nil {
		t.Fatalf("initiate failed: %v", err)
	}
	if initiated.Order.OrderStatus != domain.OrderStatusProcessing {
		t.Fatalf("expected Processing, got %s", initiated.Order.OrderStatus)
	}

	// Completion before payment is refused
	if _, err := f.useCase.CompleteOrder(context.Background(), order.ID); !apperrors.Is(err, apperrors.CodePrecondition) {
		t.Fatalf("expected precondition error, got %v", err)
	}

	// Confirm: Paid, sellers settled
	confirmed, err := f.useCase.ConfirmPayment(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if confirmed.PaymentStatus != domain.PaymentStatusPaid {
		t.Fatalf("expected Paid, got %s", confirmed.PaymentStatus)
	}
	if balance := f.sellers.Balance("s1"); balance != 5000 {
		t.Errorf("expected s1 balance 5000, got %d", balance)
	}
	if balance := f.sellers.Balance("s2"); balance != 3000 {
		t.Errorf("expected s2 balance 3000, got %d", balance)
	}

	// Complete: Delivered, stock consumed exactly once
	completed, err := f.useCase.CompleteOrder(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if completed.OrderStatus != domain.OrderStatusDelivered {
		t.Fatalf("expected Delivered, got %s", completed.OrderStatus)
	}
	if stock, _ := f.inventory.GetStock(context.Background(), "p1"); stock != 8 {
		t.Errorf("expected p1 stock 8, got %d", stock)
	}
	if stock, _ := f.inventory.GetStock(context.Background(), "p2"); stock != 4 {
		t.Errorf("expected p2 stock 4, got %d", stock)
	}
}

func TestListOrders_FilterByUser(t *testing.T) {
	f := newFixture()
	mustCreateOrder(t, f)

	other := validCreateInput()
	other.UserID = "u2"
	if _, err := f.useCase.CreateOrder(context.Background(), other); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	orders, err := f.useCase.ListOrders(context.Background(), ports.ListFilter{UserID: "u1"})

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("expected 1 order, got %d", len(orders))
	}
	if orders[0].UserID != "u1" {
		t.Errorf("expected order for u1, got %s", orders[0].UserID)
	}
}
