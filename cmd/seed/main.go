// Package main provides a CLI tool for seeding the database with initial data.
package main

import (
	"context"
	"fmt"
	"os"

	"pheezes/internal/app"
	"pheezes/internal/core/types"
	"pheezes/internal/domain/cash"
	"pheezes/internal/domain/catalog"
	"pheezes/internal/domain/orders"
	"pheezes/pkg/logger"
)

type seedProduct struct {
	name       string
	variations []catalog.VariationInput
}

var catalogSeed = []seedProduct{
	{
		name: "Shirt",
		variations: []catalog.VariationInput{
			{Name: "M", Quantity: 10, Price: types.NewMoneyFromInt(500)},
		},
	},
}

var demoSeed = []seedProduct{
	{
		name: "Panjabi",
		variations: []catalog.VariationInput{
			{Name: "S", Quantity: 5, Price: types.MustMoney("1250.00")},
			{Name: "L", Quantity: 8, Price: types.MustMoney("1350.00")},
		},
	},
	{
		name: "Cap",
		variations: []catalog.VariationInput{
			{Name: "Black", Quantity: 20, Price: types.NewMoneyFromInt(250)},
		},
	},
}

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalw("failed to load config", "error", err)
	}
	if cfg.StorageDriver != app.DriverPostgres {
		log.Fatal("seeding requires STORAGE_DRIVER=postgres")
	}

	ctx := logger.WithLogger(context.Background(), log)

	services, err := app.NewServices(ctx, cfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer services.Close()

	log.Info("connected to database")

	created, err := seedCatalog(ctx, services.Catalog, catalogSeed, log)
	if err != nil {
		log.Fatalw("failed to seed catalog", "error", err)
	}

	if os.Getenv("SEED_DEMO_DATA") == "true" {
		if err := seedDemoData(ctx, services, created, log); err != nil {
			log.Fatalw("failed to seed demo data", "error", err)
		}
	}

	log.Info("seeding completed successfully")
}

// seedCatalog creates the products that do not exist yet, matched by name.
func seedCatalog(ctx context.Context, svc *catalog.Service, seed []seedProduct, log *logger.Logger) (map[string]*catalog.Product, error) {
	existing, err := svc.ListProducts(ctx)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]*catalog.Product, len(existing))
	for _, p := range existing {
		byName[p.Name] = p
	}

	for _, sp := range seed {
		if _, ok := byName[sp.name]; ok {
			log.Infow("product already exists", "name", sp.name)
			continue
		}
		p, err := svc.CreateProduct(ctx, catalog.CreateInput{Name: sp.name, Variations: sp.variations})
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", sp.name, err)
		}
		byName[p.Name] = p
		log.Infow("product created", "name", p.Name, "variations", len(p.Variations))
	}

	return byName, nil
}

func seedDemoData(ctx context.Context, services *app.Services, products map[string]*catalog.Product, log *logger.Logger) error {
	demo, err := seedCatalog(ctx, services.Catalog, demoSeed, log)
	if err != nil {
		return err
	}

	existing, err := services.Orders.List(ctx, orders.ListFilter{Limit: 1})
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		log.Info("orders already present, skipping demo orders")
		return nil
	}

	shirt := products["Shirt"]
	capProduct := demo["Cap"]
	order, err := services.Orders.Create(ctx, orders.CreateInput{
		CustomerName: "Demo Customer",
		Advance:      types.NewMoneyFromInt(100),
		Items: []orders.ItemInput{
			{ProductVariationID: shirt.Variations[0].ID, Quantity: 1},
			{ProductVariationID: capProduct.Variations[0].ID, Quantity: 2},
		},
	})
	if err != nil {
		return fmt.Errorf("create demo order: %w", err)
	}
	log.Infow("demo order created", "number", order.Number, "total", order.TotalAmount.String())

	_, err = services.Cash.Create(ctx, cash.Input{
		Amount:      order.Advance,
		Description: "Advance for " + order.Number,
		Type:        cash.TypeIncome,
		Account:     cash.AccountBkash,
	})
	if err != nil {
		return fmt.Errorf("record advance: %w", err)
	}

	return nil
}
