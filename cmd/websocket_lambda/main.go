package main

import (
	"context"
	"log"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/joho/godotenv"
	"github.com/koneque/marketplace-escrow/pkg/bootstrap"
	"github.com/koneque/marketplace-escrow/pkg/config"
	wshandlers "github.com/koneque/marketplace-escrow/pkg/handlers/websockets"
	"github.com/koneque/marketplace-escrow/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	logger := logging.Setup("marketplace-websocket", cfg.Log.Env, logging.Options{Level: cfg.Log.Level})

	app, err := bootstrap.Build(context.Background(), cfg, logger, bootstrap.Options{})
	if err != nil {
		log.Fatalf("failed to build marketplace: %v", err)
	}
	if app.Connections == nil {
		log.Fatal("DYNAMODB_CONNECTIONS_TABLE_NAME must be set for the websocket API")
	}

	h := wshandlers.NewHandler(app.Connections, nil)
	lambda.Start(h.Route)
}
