// Command infra synthesizes the CloudFormation template for the gallery.
//
//	make build-lambda && cdk deploy
package main

import (
	"os"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/jsii-runtime-go"

	"github.com/dreschagin/photo-gallery/internal/infrastructure/cdk"
)

func main() {
	defer jsii.Close()

	app := awscdk.NewApp(nil)

	cdk.NewPhotoAppStack(app, "PhotoGalleryStack", &cdk.PhotoAppStackProps{
		StackProps: awscdk.StackProps{
			Env: env(),
		},
		HandlerAssetPath: getEnv("PHOTO_HANDLER_ASSET", "dist/get-photos"),
		WebsiteAssetPath: getEnv("PHOTO_WEBSITE_ASSET", "web"),
		URLExpiry:        getEnv("PHOTO_URL_EXPIRY", "24h"),
	})

	app.Synth(nil)
}

// env берет account/region из профиля CDK CLI; nil - environment-agnostic стек.
func env() *awscdk.Environment {
	account := os.Getenv("CDK_DEFAULT_ACCOUNT")
	region := os.Getenv("CDK_DEFAULT_REGION")
	if account == "" || region == "" {
		return nil
	}
	return &awscdk.Environment{
		Account: jsii.String(account),
		Region:  jsii.String(region),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
