package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/gocart-next/internal/models"
	"github.com/gocart-next/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupCartServiceTest(t *testing.T) (*CartService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:cart_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Seller{},
		&models.Product{},
		&models.CartItem{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db

	svc := NewCartService(repository.NewCartRepository(db), repository.NewProductRepository(db))
	return svc, db
}

func seedCartProduct(t *testing.T, db *gorm.DB, sellerID uint, price string, active bool) *models.Product {
	t.Helper()
	amount, err := models.NewMoneyFromString(price)
	if err != nil {
		t.Fatalf("parse price failed: %v", err)
	}
	product := &models.Product{
		SellerID:    sellerID,
		Name:        fmt.Sprintf("商品-%d-%s", sellerID, price),
		PriceAmount: amount,
		IsActive:    active,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	return product
}

func TestCartAddUpsertsQuantity(t *testing.T) {
	svc, db := setupCartServiceTest(t)
	product := seedCartProduct(t, db, 1, "100.00", true)

	if err := svc.Add(1, product.ID, 2); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := svc.Add(1, product.ID, 5); err != nil {
		t.Fatalf("re-add failed: %v", err)
	}

	items, err := svc.List(1)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 cart row, got %d", len(items))
	}
	if items[0].Quantity != 5 {
		t.Fatalf("expected quantity overwritten to 5, got %d", items[0].Quantity)
	}
}

func TestCartAddRejectsInactiveProductAndBadQuantity(t *testing.T) {
	svc, db := setupCartServiceTest(t)
	inactive := seedCartProduct(t, db, 1, "50.00", false)

	if err := svc.Add(1, inactive.ID, 1); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
	if err := svc.Add(1, 9999, 1); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound for missing product, got %v", err)
	}
	active := seedCartProduct(t, db, 1, "60.00", true)
	if err := svc.Add(1, active.ID, 0); !errors.Is(err, ErrQuantityInvalid) {
		t.Fatalf("expected ErrQuantityInvalid, got %v", err)
	}
}

func TestCartRemoveAndClear(t *testing.T) {
	svc, db := setupCartServiceTest(t)
	p1 := seedCartProduct(t, db, 1, "100.00", true)
	p2 := seedCartProduct(t, db, 2, "60.00", true)

	if err := svc.Add(1, p1.ID, 1); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := svc.Add(1, p2.ID, 1); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	if err := svc.Remove(1, p1.ID); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if err := svc.Remove(1, p1.ID); !errors.Is(err, ErrCartItemNotFound) {
		t.Fatalf("expected ErrCartItemNotFound on replay, got %v", err)
	}

	if err := svc.Clear(1); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	items, err := svc.List(1)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected empty cart, got %d rows", len(items))
	}
}
