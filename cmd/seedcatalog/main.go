// seedcatalog loads a demo menu: ingredients, drinks, a combo and a payment
// profile. It does nothing when ingredients already exist.
// Usage: go run ./cmd/seedcatalog
package main

import (
	"context"
	"os"

	"brewpos/internal/config"
	"brewpos/internal/dto"
	"brewpos/internal/infra"
	"brewpos/internal/repository"
	"brewpos/internal/service"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

type seedIngredient struct {
	name, unit            string
	unitPrice, stock, min int64
}

var ingredients = []seedIngredient{
	{"Arabica beans", "g", 220, 5000, 800},
	{"Fresh milk", "ml", 32, 10000, 2000},
	{"Condensed milk", "ml", 60, 3000, 500},
	{"Black tea", "g", 150, 2000, 300},
	{"Tapioca pearls", "g", 45, 4000, 600},
	{"Butter croissant", "pc", 12000, 30, 6},
}

type seedDrink struct {
	name, category string
	prices         map[string]int64
	recipe         map[string]int64 // ingredient name → quantity per unit
}

var drinks = []seedDrink{
	{"Ca phe sua da", "coffee", map[string]int64{"S": 25000, "M": 29000, "L": 35000},
		map[string]int64{"Arabica beans": 20, "Condensed milk": 30}},
	{"Latte", "coffee", map[string]int64{"S": 35000, "M": 42000, "L": 49000},
		map[string]int64{"Arabica beans": 18, "Fresh milk": 180}},
	{"Tra sua tran chau", "tea", map[string]int64{"M": 39000, "L": 45000},
		map[string]int64{"Black tea": 8, "Fresh milk": 120, "Tapioca pearls": 50}},
	{"Croissant", "bakery", map[string]int64{"S": 28000},
		map[string]int64{"Butter croissant": 1}},
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	movementRepo := repository.NewStockMovementRepository(db)
	ingredientRepo := repository.NewIngredientRepository(db, movementRepo)
	settingsRepo := repository.NewSettingsRepository(db)
	inventory := service.NewInventoryService(ingredientRepo, movementRepo, settingsRepo, nil)
	catalog := service.NewCatalogService(repository.NewProductRepository(db), ingredientRepo, settingsRepo)
	payments := service.NewPaymentService(repository.NewPaymentProfileRepository(db), nil)

	existing, err := inventory.List(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to read ingredients")
	}
	if len(existing) > 0 {
		log.Info().Int("ingredients", len(existing)).Msg("catalog already seeded, nothing to do")
		return
	}

	ids := make(map[string]string, len(ingredients))
	for _, in := range ingredients {
		resp, err := inventory.Create(ctx, dto.CreateIngredientRequest{
			Name:      in.name,
			Unit:      in.unit,
			UnitPrice: decimal.NewFromInt(in.unitPrice),
			Stock:     decimal.NewFromInt(in.stock),
			MinStock:  decimal.NewFromInt(in.min),
		})
		if err != nil {
			log.Fatal().Err(err).Str("ingredient", in.name).Msg("seed failed")
		}
		ids[in.name] = resp.ID
	}

	productIDs := make(map[string]string, len(drinks))
	for _, d := range drinks {
		req := dto.ProductRequest{
			Name:        d.name,
			Category:    d.category,
			Kind:        "simple",
			PriceBySize: make(map[string]decimal.Decimal, len(d.prices)),
		}
		for _, size := range []string{"S", "M", "L"} {
			if p, ok := d.prices[size]; ok {
				req.Sizes = append(req.Sizes, size)
				req.PriceBySize[size] = decimal.NewFromInt(p)
			}
		}
		for name, qty := range d.recipe {
			req.Recipe = append(req.Recipe, dto.RecipeLineRequest{IngredientID: ids[name], Quantity: decimal.NewFromInt(qty)})
		}
		resp, err := catalog.Create(ctx, req)
		if err != nil {
			log.Fatal().Err(err).Str("product", d.name).Msg("seed failed")
		}
		productIDs[d.name] = resp.ID
		log.Info().Str("product", resp.Name).Str("margin", resp.ProfitMargin.StringFixed(1)).Msg("product seeded")
	}

	combo, err := catalog.Create(ctx, dto.ProductRequest{
		Name:     "Breakfast combo",
		Category: "combo",
		Kind:     "combo",
		Sizes:    []string{"S"},
		Components: []dto.ComboComponentRequest{
			{ProductID: productIDs["Latte"], Size: "S"},
			{ProductID: productIDs["Croissant"], Size: "S"},
		},
		DiscountPercent: decimal.NewFromInt(15),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("combo seed failed")
	}
	log.Info().Str("product", combo.Name).Str("price", combo.PriceBySize["S"].String()).Msg("combo seeded")

	if _, err := payments.CreateProfile(ctx, dto.CreatePaymentProfileRequest{
		Name:          "Counter account",
		BankID:        "970436",
		BankName:      "Vietcombank",
		AccountNumber: "0011001234567",
		AccountHolder: "BREW SHOP",
	}); err != nil {
		log.Fatal().Err(err).Msg("payment profile seed failed")
	}
	log.Info().Int("ingredients", len(ingredients)).Int("products", len(drinks)+1).Msg("catalog seeded")
}
