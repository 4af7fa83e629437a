// Command get-photos is the Lambda behind GET /getAllPhotos.
package main

import (
	"context"
	"fmt"
	"os"

	awslambda "github.com/aws/aws-lambda-go/lambda"

	"github.com/dreschagin/photo-gallery/internal/bootstrap"
	"github.com/dreschagin/photo-gallery/internal/interfaces/lambda"
	"github.com/dreschagin/photo-gallery/pkg/config"
	"github.com/dreschagin/photo-gallery/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewWithOptions(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})

	// Клиенты создаются один раз на cold start и переиспользуются между вызовами.
	app, err := bootstrap.New(context.Background(), cfg, log, bootstrap.Options{Lambda: true})
	if err != nil {
		log.Error("Failed to initialize application", err)
		os.Exit(1)
	}

	handler := lambda.NewHandler(app.Handler, log, app.Flushers()...)
	log.Info("Lambda handler ready", "bucket", cfg.Photos.Bucket, "url_expiry", cfg.Photos.URLExpiry.String())

	awslambda.Start(handler.Invoke)
}
