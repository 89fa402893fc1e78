package main

import (
	"github.com/cppla/pulso/config"
	"github.com/cppla/pulso/models"
	"github.com/cppla/pulso/routes"
	"github.com/cppla/pulso/services"
	"github.com/cppla/pulso/store"
	"github.com/cppla/pulso/utils"
)

func main() {
	cfg := config.Load()

	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer utils.Logger.Sync()

	db := config.InitDatabase(models.All()...)
	if err := models.SeedCatalog(db); err != nil {
		utils.Sugar.Fatalf("seed catalog: %v", err)
	}

	engine := services.NewEngine(store.New(db), services.Options{
		Clock:    services.SystemClock{Location: cfg.Location()},
		Logger:   utils.Logger,
		Observer: utils.LedgerMetrics{},
	})

	r := routes.SetupRouter(engine, db)

	utils.Sugar.Infof("starting pulso on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
