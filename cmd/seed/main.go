package main

import (
	"fmt"
	"time"

	"github.com/gocart-next/internal/config"
	"github.com/gocart-next/internal/constants"
	"github.com/gocart-next/internal/logger"
	"github.com/gocart-next/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 添加卖家
	sellers := []models.Seller{
		{Name: "极光数码", ContactEmail: "aurora@example.com", IsActive: true},
		{Name: "山海生活馆", ContactEmail: "shanhai@example.com", IsActive: true},
	}

	sellerIDs := map[string]uint{}
	for _, seller := range sellers {
		var existing models.Seller
		if err := models.DB.Where("name = ?", seller.Name).First(&existing).Error; err != nil {
			if err := models.DB.Create(&seller).Error; err != nil {
				stdLog.Printf("Failed to create seller %s: %v", seller.Name, err)
				continue
			}
			stdLog.Printf("Created seller: %s", seller.Name)
			sellerIDs[seller.Name] = seller.ID
		} else {
			stdLog.Printf("Seller already exists: %s", seller.Name)
			sellerIDs[existing.Name] = existing.ID
		}
	}
	auroraID := sellerIDs["极光数码"]
	shanhaiID := sellerIDs["山海生活馆"]

	// 添加商品
	products := []models.Product{
		{
			SellerID:    auroraID,
			Name:        "无线蓝牙耳机",
			Description: "蓝牙5.0，主动降噪，续航24小时",
			PriceAmount: models.NewMoneyFromDecimal(decimal.NewFromFloat(100.00)),
			SortOrder:   300,
			IsActive:    true,
		},
		{
			SellerID:    auroraID,
			Name:        "便携充电宝",
			Description: "20000mAh 双口快充",
			PriceAmount: models.NewMoneyFromDecimal(decimal.NewFromFloat(50.00)),
			SortOrder:   290,
			IsActive:    true,
		},
		{
			SellerID:    shanhaiID,
			Name:        "保温随行杯",
			Description: "316不锈钢内胆，12小时保温",
			PriceAmount: models.NewMoneyFromDecimal(decimal.NewFromFloat(60.00)),
			SortOrder:   280,
			IsActive:    true,
		},
		{
			SellerID:    shanhaiID,
			Name:        "多功能背包",
			Description: "防泼水面料，USB 外接充电口",
			PriceAmount: models.NewMoneyFromDecimal(decimal.NewFromFloat(79.90)),
			SortOrder:   270,
			IsActive:    true,
		},
		{
			SellerID:    auroraID,
			Name:        "演示商品-已下架",
			Description: "用于前台下架状态展示，不可加入购物车",
			PriceAmount: models.NewMoneyFromDecimal(decimal.NewFromFloat(19.90)),
			SortOrder:   100,
			IsActive:    false,
		},
	}

	for _, prod := range products {
		if prod.SellerID == 0 {
			stdLog.Printf("Skip product %s: seller_id missing", prod.Name)
			continue
		}
		var existing models.Product
		if err := models.DB.Where("seller_id = ? AND name = ?", prod.SellerID, prod.Name).First(&existing).Error; err != nil {
			if err := models.DB.Create(&prod).Error; err != nil {
				stdLog.Printf("Failed to create product %s: %v", prod.Name, err)
			} else {
				stdLog.Printf("Created product: %s", prod.Name)
			}
		} else {
			existing.Description = prod.Description
			existing.PriceAmount = prod.PriceAmount
			existing.SortOrder = prod.SortOrder
			existing.IsActive = prod.IsActive
			if err := models.DB.Save(&existing).Error; err != nil {
				stdLog.Printf("Failed to update product %s: %v", prod.Name, err)
			} else {
				stdLog.Printf("Updated product: %s", prod.Name)
			}
		}
	}

	// 添加测试用户（普通用户 + 付费会员）
	users := []struct {
		Email    string
		Password string
		Nickname string
		Role     string
	}{
		{Email: "alice@example.com", Password: "alice12345", Nickname: "alice", Role: constants.RoleUser},
		{Email: "bob@example.com", Password: "bob12345", Nickname: "bob", Role: constants.RolePlus},
	}

	for _, u := range users {
		var existing models.User
		if err := models.DB.Where("email = ?", u.Email).First(&existing).Error; err == nil {
			stdLog.Printf("User already exists: %s", u.Email)
			continue
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
		if err != nil {
			stdLog.Printf("Failed to hash password for %s: %v", u.Email, err)
			continue
		}
		user := models.User{
			Email:        u.Email,
			PasswordHash: string(hash),
			DisplayName:  u.Nickname,
			Role:         u.Role,
			Status:       constants.UserStatusActive,
		}
		if err := models.DB.Create(&user).Error; err != nil {
			stdLog.Printf("Failed to create user %s: %v", u.Email, err)
		} else {
			stdLog.Printf("Created user: %s (role=%s)", u.Email, u.Role)
		}
	}

	// 添加优惠券：通用九折、新用户专享、会员专享
	expiresAt := time.Now().AddDate(0, 3, 0)
	coupons := []models.Coupon{
		{
			Code:            "SAVE10",
			DiscountPercent: models.NewMoneyFromDecimal(decimal.NewFromInt(10)),
			ExpiresAt:       &expiresAt,
			IsActive:        true,
		},
		{
			Code:            "WELCOME15",
			DiscountPercent: models.NewMoneyFromDecimal(decimal.NewFromInt(15)),
			ForNewUser:      true,
			ExpiresAt:       &expiresAt,
			IsActive:        true,
		},
		{
			Code:            "PLUS20",
			DiscountPercent: models.NewMoneyFromDecimal(decimal.NewFromInt(20)),
			ForMember:       true,
			ExpiresAt:       &expiresAt,
			IsActive:        true,
		},
	}

	for _, coupon := range coupons {
		var existing models.Coupon
		if err := models.DB.Where("code = ?", coupon.Code).First(&existing).Error; err != nil {
			if err := models.DB.Create(&coupon).Error; err != nil {
				stdLog.Printf("Failed to create coupon %s: %v", coupon.Code, err)
			} else {
				stdLog.Printf("Created coupon: %s", coupon.Code)
			}
		} else {
			existing.DiscountPercent = coupon.DiscountPercent
			existing.ForNewUser = coupon.ForNewUser
			existing.ForMember = coupon.ForMember
			existing.ExpiresAt = coupon.ExpiresAt
			existing.IsActive = coupon.IsActive
			if err := models.DB.Save(&existing).Error; err != nil {
				stdLog.Printf("Failed to update coupon %s: %v", coupon.Code, err)
			} else {
				stdLog.Printf("Updated coupon: %s", coupon.Code)
			}
		}
	}

	fmt.Println("\n✅ Test data created successfully!")
	fmt.Println("Summary:")
	fmt.Println("- 2 Sellers")
	fmt.Println("- 5 Products (含下架演示商品)")
	fmt.Println("- 2 Users (alice 普通用户 / bob 付费会员)")
	fmt.Println("- 3 Coupons (SAVE10 / WELCOME15 / PLUS20)")
}
