package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"tokoorders/internal/apperrors"
	"tokoorders/internal/models"

	"github.com/shopspring/decimal"
)

// MemoryStore is an in-process Backend. Rows are locked individually for the
// lifetime of a transaction and each transaction buffers its writes until
// commit, so it behaves like the relational store under concurrency.
type MemoryStore struct {
	mu       sync.RWMutex
	products map[int64]models.Product
	orders   map[int64]models.Order
	items    map[int64][]models.OrderItem
	numbers  map[string]int64

	lastProductID int64
	lastOrderID   int64
	lastItemID    int64

	locksMu sync.Mutex
	locks   map[string]chan struct{}
}

// NewMemoryStore creates a new, empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products: make(map[int64]models.Product),
		orders:   make(map[int64]models.Order),
		items:    make(map[int64][]models.OrderItem),
		numbers:  make(map[string]int64),
		locks:    make(map[string]chan struct{}),
	}
}

func productKey(id int64) string { return fmt.Sprintf("product:%d", id) }
func orderKey(id int64) string   { return fmt.Sprintf("order:%d", id) }

func (s *MemoryStore) rowLock(key string) chan struct{} {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	l, ok := s.locks[key]
	if !ok {
		l = make(chan struct{}, 1)
		s.locks[key] = l
	}
	return l
}

func (s *MemoryStore) nextID(counter *int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	*counter++
	return *counter
}

// WithinTx runs fn against a private write set and applies it atomically when
// fn succeeds. Row locks are released only after the outcome is settled.
func (s *MemoryStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	tx := newMemoryTx(s)
	defer tx.release()

	if err := fn(tx); err != nil {
		return apperrors.Wrap("transaction", err)
	}
	return tx.commit()
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

type statusWrite struct {
	status models.OrderStatus
	at     time.Time
}

type memoryTx struct {
	store *MemoryStore

	held     []chan struct{}
	heldKeys map[string]bool

	stock         map[int64]int
	stockAt       map[int64]time.Time
	newOrders     map[int64]*models.Order
	newItems      []models.OrderItem
	totals        map[int64]decimal.Decimal
	statuses      map[int64]statusWrite
	deletedItems  map[int64]bool
	deletedOrders map[int64]bool
}

func newMemoryTx(s *MemoryStore) *memoryTx {
	return &memoryTx{
		store:         s,
		heldKeys:      make(map[string]bool),
		stock:         make(map[int64]int),
		stockAt:       make(map[int64]time.Time),
		newOrders:     make(map[int64]*models.Order),
		totals:        make(map[int64]decimal.Decimal),
		statuses:      make(map[int64]statusWrite),
		deletedItems:  make(map[int64]bool),
		deletedOrders: make(map[int64]bool),
	}
}

func (tx *memoryTx) Ledger() InventoryLedger { return tx }
func (tx *memoryTx) Orders() OrderWriter     { return tx }

// lock blocks until the row is free or ctx is done. Locks are reentrant
// within a transaction.
func (tx *memoryTx) lock(ctx context.Context, key string) error {
	if tx.heldKeys[key] {
		return nil
	}
	l := tx.store.rowLock(key)
	select {
	case l <- struct{}{}:
		tx.heldKeys[key] = true
		tx.held = append(tx.held, l)
		return nil
	case <-ctx.Done():
		return apperrors.StoreUnavailable("acquire lock on "+key, ctx.Err())
	}
}

func (tx *memoryTx) release() {
	for i := len(tx.held) - 1; i >= 0; i-- {
		<-tx.held[i]
	}
	tx.held = nil
	tx.heldKeys = make(map[string]bool)
}

func (tx *memoryTx) readStock(productID int64) (models.Product, int, bool) {
	tx.store.mu.RLock()
	p, ok := tx.store.products[productID]
	tx.store.mu.RUnlock()
	if !ok || p.IsDeleted {
		return models.Product{}, 0, false
	}
	stock := p.Stock
	if pending, ok := tx.stock[productID]; ok {
		stock = pending
	}
	return p, stock, true
}

func (tx *memoryTx) LockAndRead(ctx context.Context, productID int64) (models.StockSnapshot, error) {
	if err := tx.lock(ctx, productKey(productID)); err != nil {
		return models.StockSnapshot{}, err
	}
	p, stock, ok := tx.readStock(productID)
	if !ok {
		return models.StockSnapshot{}, apperrors.NotFound("product", productID)
	}
	return models.StockSnapshot{ProductID: productID, Stock: stock, Price: p.Price}, nil
}

func (tx *memoryTx) Decrement(ctx context.Context, productID int64, quantity int, at time.Time) (int64, error) {
	if err := tx.lock(ctx, productKey(productID)); err != nil {
		return 0, err
	}
	_, stock, ok := tx.readStock(productID)
	if !ok || stock < quantity {
		return 0, nil
	}
	tx.stock[productID] = stock - quantity
	tx.stockAt[productID] = at
	return 1, nil
}

func (tx *memoryTx) InsertOrder(ctx context.Context, order *models.Order) error {
	tx.store.mu.RLock()
	_, taken := tx.store.numbers[order.Number]
	tx.store.mu.RUnlock()
	for _, pending := range tx.newOrders {
		if pending.Number == order.Number {
			taken = true
		}
	}
	if taken {
		return apperrors.Conflict("insert order: duplicate key", fmt.Errorf("order number %s already exists", order.Number))
	}

	order.ID = tx.store.nextID(&tx.store.lastOrderID)
	header := *order
	header.Items = nil
	tx.newOrders[order.ID] = &header
	return nil
}

// orderState returns the status the order has as seen from this transaction.
func (tx *memoryTx) orderState(orderID int64) (models.OrderStatus, bool) {
	if tx.deletedOrders[orderID] {
		return "", false
	}
	if w, ok := tx.statuses[orderID]; ok {
		return w.status, true
	}
	if o, ok := tx.newOrders[orderID]; ok {
		return o.Status, true
	}
	tx.store.mu.RLock()
	defer tx.store.mu.RUnlock()
	o, ok := tx.store.orders[orderID]
	return o.Status, ok
}

func (tx *memoryTx) InsertItem(ctx context.Context, item *models.OrderItem) error {
	if _, ok := tx.orderState(item.OrderID); !ok {
		return apperrors.StoreUnavailable("insert order item", fmt.Errorf("order %d does not exist", item.OrderID))
	}
	item.ID = tx.store.nextID(&tx.store.lastItemID)
	tx.newItems = append(tx.newItems, *item)
	return nil
}

func (tx *memoryTx) SetTotal(ctx context.Context, orderID int64, total decimal.Decimal) error {
	if o, ok := tx.newOrders[orderID]; ok {
		o.TotalAmount = total
		return nil
	}
	if err := tx.lock(ctx, orderKey(orderID)); err != nil {
		return err
	}
	tx.totals[orderID] = total
	return nil
}

func (tx *memoryTx) UpdateStatus(ctx context.Context, orderID int64, status models.OrderStatus, from []models.OrderStatus, at time.Time) (int64, error) {
	if err := tx.lock(ctx, orderKey(orderID)); err != nil {
		return 0, err
	}
	current, ok := tx.orderState(orderID)
	if !ok {
		return 0, nil
	}
	if len(from) > 0 && !containsStatus(from, current) {
		return 0, nil
	}
	tx.statuses[orderID] = statusWrite{status: status, at: at}
	return 1, nil
}

func (tx *memoryTx) CurrentStatus(ctx context.Context, orderID int64) (models.OrderStatus, error) {
	status, ok := tx.orderState(orderID)
	if !ok {
		return "", apperrors.NotFound("order", orderID)
	}
	return status, nil
}

func (tx *memoryTx) DeleteItems(ctx context.Context, orderID int64) (int64, error) {
	if err := tx.lock(ctx, orderKey(orderID)); err != nil {
		return 0, err
	}
	var n int64
	if !tx.deletedItems[orderID] {
		tx.store.mu.RLock()
		n = int64(len(tx.store.items[orderID]))
		tx.store.mu.RUnlock()
		tx.deletedItems[orderID] = true
	}
	kept := tx.newItems[:0]
	for _, it := range tx.newItems {
		if it.OrderID == orderID {
			n++
			continue
		}
		kept = append(kept, it)
	}
	tx.newItems = kept
	return n, nil
}

func (tx *memoryTx) DeleteOrder(ctx context.Context, orderID int64) (int64, error) {
	if err := tx.lock(ctx, orderKey(orderID)); err != nil {
		return 0, err
	}
	if _, ok := tx.newOrders[orderID]; ok {
		delete(tx.newOrders, orderID)
		return 1, nil
	}
	if _, ok := tx.orderState(orderID); !ok {
		return 0, nil
	}
	tx.deletedOrders[orderID] = true
	delete(tx.statuses, orderID)
	delete(tx.totals, orderID)
	return 1, nil
}

func (tx *memoryTx) commit() error {
	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range tx.newOrders {
		if _, taken := s.numbers[o.Number]; taken {
			return apperrors.Conflict("insert order: duplicate key", fmt.Errorf("order number %s already exists", o.Number))
		}
	}

	for id, stock := range tx.stock {
		p := s.products[id]
		p.Stock = stock
		p.UpdatedAt = tx.stockAt[id]
		s.products[id] = p
	}
	for id := range tx.deletedItems {
		delete(s.items, id)
	}
	for id := range tx.deletedOrders {
		delete(s.numbers, s.orders[id].Number)
		delete(s.orders, id)
	}
	for id, o := range tx.newOrders {
		s.orders[id] = *o
		s.numbers[o.Number] = id
	}
	for _, it := range tx.newItems {
		if _, ok := s.orders[it.OrderID]; ok {
			s.items[it.OrderID] = append(s.items[it.OrderID], it)
		}
	}
	for id, total := range tx.totals {
		if o, ok := s.orders[id]; ok {
			o.TotalAmount = total
			s.orders[id] = o
		}
	}
	for id, w := range tx.statuses {
		if o, ok := s.orders[id]; ok {
			o.Status = w.status
			o.UpdatedAt = w.at
			s.orders[id] = o
		}
	}
	return nil
}

func containsStatus(statuses []models.OrderStatus, s models.OrderStatus) bool {
	for _, candidate := range statuses {
		if candidate == s {
			return true
		}
	}
	return false
}

func (s *MemoryStore) filteredOrders(filter models.OrderFilter) []models.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orders := make([]models.Order, 0, len(s.orders))
	for _, o := range s.orders {
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		if filter.UserID > 0 && o.UserID != filter.UserID {
			continue
		}
		orders = append(orders, o)
	}
	return orders
}

// ListOrders returns order headers, newest first.
func (s *MemoryStore) ListOrders(ctx context.Context, filter models.OrderFilter, limit, offset int) ([]models.Order, error) {
	orders := s.filteredOrders(filter)
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.After(orders[j].CreatedAt)
		}
		return orders[i].ID > orders[j].ID
	})
	return paginate(orders, limit, offset), nil
}

func (s *MemoryStore) CountOrders(ctx context.Context, filter models.OrderFilter) (int64, error) {
	return int64(len(s.filteredOrders(filter))), nil
}

func (s *MemoryStore) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.orders[id]
	if !ok {
		return nil, apperrors.NotFound("order", id)
	}
	order.Items = append([]models.OrderItem(nil), s.items[id]...)
	sort.Slice(order.Items, func(i, j int) bool { return order.Items[i].ID < order.Items[j].ID })
	return &order, nil
}

func (s *MemoryStore) activeProducts() []models.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]models.Product, 0, len(s.products))
	for _, p := range s.products {
		if !p.IsDeleted {
			products = append(products, p)
		}
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products
}

func (s *MemoryStore) ListProducts(ctx context.Context, limit, offset int) ([]models.Product, error) {
	return paginate(s.activeProducts(), limit, offset), nil
}

func (s *MemoryStore) CountProducts(ctx context.Context) (int64, error) {
	return int64(len(s.activeProducts())), nil
}

func (s *MemoryStore) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok || p.IsDeleted {
		return nil, apperrors.NotFound("product", id)
	}
	return &p, nil
}

func (s *MemoryStore) OrderStats(ctx context.Context, dayStart, dayEnd time.Time) (models.OrderStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := models.OrderStats{TotalAmount: decimal.Zero, TodayAmount: decimal.Zero}
	for _, o := range s.orders {
		stats.TotalOrders++
		stats.TotalAmount = stats.TotalAmount.Add(o.TotalAmount)
		if !o.CreatedAt.Before(dayStart) && o.CreatedAt.Before(dayEnd) {
			stats.TodayOrders++
			stats.TodayAmount = stats.TodayAmount.Add(o.TotalAmount)
		}
	}
	return stats, nil
}

func (s *MemoryStore) CreateProduct(ctx context.Context, product *models.Product) error {
	if product.Stock < 0 || product.Price.IsNegative() {
		return apperrors.InvalidInput("product %q must have non-negative price and stock", product.Name)
	}
	now := time.Now().UTC()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	if product.UpdatedAt.IsZero() {
		product.UpdatedAt = now
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if product.ID == 0 {
		s.lastProductID++
		product.ID = s.lastProductID
	} else if product.ID > s.lastProductID {
		s.lastProductID = product.ID
	}
	if _, exists := s.products[product.ID]; exists {
		return apperrors.Conflict("create product: duplicate key", fmt.Errorf("product %d already exists", product.ID))
	}
	s.products[product.ID] = *product
	return nil
}

// mutateProduct applies fn while holding the product's row lock, the same way
// an UPDATE would wait for an in-flight reservation.
func (s *MemoryStore) mutateProduct(ctx context.Context, productID int64, fn func(p *models.Product)) error {
	tx := newMemoryTx(s)
	defer tx.release()
	if err := tx.lock(ctx, productKey(productID)); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[productID]
	if !ok || p.IsDeleted {
		return apperrors.NotFound("product", productID)
	}
	fn(&p)
	p.UpdatedAt = time.Now().UTC()
	s.products[productID] = p
	return nil
}

func (s *MemoryStore) UpdatePrice(ctx context.Context, productID int64, price decimal.Decimal) error {
	return s.mutateProduct(ctx, productID, func(p *models.Product) { p.Price = price })
}

func (s *MemoryStore) DeleteProduct(ctx context.Context, productID int64) error {
	return s.mutateProduct(ctx, productID, func(p *models.Product) { p.IsDeleted = true })
}

func paginate[T any](rows []T, limit, offset int) []T {
	if offset >= len(rows) {
		return []T{}
	}
	end := len(rows)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return rows[offset:end]
}
