package cdk

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsapigatewayv2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsapigatewayv2integrations"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscloudfront"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscloudfrontorigins"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambda"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3assets"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3deployment"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
)

const (
	PhotoBucketExportName = "PhotoGalleryBucketName"
	PhotosRoutePath       = "/getAllPhotos"
)

type PhotoAppStackProps struct {
	awscdk.StackProps
	// HandlerAssetPath - каталог с собранным бинарником bootstrap (provided.al2023).
	HandlerAssetPath string
	// WebsiteAssetPath - каталог статического сайта; пусто - сайт не создается.
	WebsiteAssetPath string
	// URLExpiry передается в PHOTO_URL_EXPIRY, например "24h".
	URLExpiry string
	// MemorySize и Timeout функции; нули - значения по умолчанию.
	MemorySize float64
	TimeoutSec float64
}

// PhotoAppStack - созданный стек и его основные ресурсы.
type PhotoAppStack struct {
	Stack        awscdk.Stack
	PhotoBucket  awss3.Bucket
	Function     awslambda.Function
	HttpApi      awsapigatewayv2.HttpApi
	Website      awss3.Bucket
	Distribution awscloudfront.Distribution
}

func NewPhotoAppStack(scope constructs.Construct, id string, props *PhotoAppStackProps) *PhotoAppStack {
	if props == nil {
		props = &PhotoAppStackProps{}
	}
	sprops := props.StackProps
	if props.URLExpiry == "" {
		props.URLExpiry = "24h"
	}
	if props.MemorySize <= 0 {
		props.MemorySize = 256
	}
	if props.TimeoutSec <= 0 {
		props.TimeoutSec = 15
	}

	stack := awscdk.NewStack(scope, &id, &sprops)
	app := &PhotoAppStack{Stack: stack}

	app.PhotoBucket = awss3.NewBucket(stack, jsii.String("PhotoBucket"), &awss3.BucketProps{
		Encryption:        awss3.BucketEncryption_S3_MANAGED,
		BlockPublicAccess: awss3.BlockPublicAccess_BLOCK_ALL(),
		EnforceSSL:        jsii.Bool(true),
		RemovalPolicy:     awscdk.RemovalPolicy_DESTROY,
	})

	app.Function = awslambda.NewFunction(stack, jsii.String("GetPhotosFunction"), &awslambda.FunctionProps{
		Runtime:      awslambda.Runtime_PROVIDED_AL2023(),
		Architecture: awslambda.Architecture_ARM_64(),
		Handler:      jsii.String("bootstrap"),
		Code:         awslambda.Code_FromAsset(jsii.String(props.HandlerAssetPath), nil),
		MemorySize:   jsii.Number(props.MemorySize),
		Timeout:      awscdk.Duration_Seconds(jsii.Number(props.TimeoutSec)),
		Environment: &map[string]*string{
			"PHOTO_BUCKET_NAME": app.PhotoBucket.BucketName(),
			"PHOTO_URL_EXPIRY":  jsii.String(props.URLExpiry),
			"LOG_FORMAT":        jsii.String("json"),
		},
	})

	// Листинг на бакет, чтение/запись только на объекты внутри него.
	app.Function.AddToRolePolicy(awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
		Effect:    awsiam.Effect_ALLOW,
		Actions:   jsii.Strings("s3:ListBucket"),
		Resources: jsii.Strings(*app.PhotoBucket.BucketArn()),
	}))
	app.Function.AddToRolePolicy(awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
		Effect:    awsiam.Effect_ALLOW,
		Actions:   jsii.Strings("s3:GetObject", "s3:PutObject"),
		Resources: jsii.Strings(*app.PhotoBucket.ArnForObjects(jsii.String("*"))),
	}))

	app.HttpApi = awsapigatewayv2.NewHttpApi(stack, jsii.String("PhotoHttpApi"), &awsapigatewayv2.HttpApiProps{
		CorsPreflight: &awsapigatewayv2.CorsPreflightOptions{
			AllowOrigins: jsii.Strings("*"),
			AllowMethods: &[]awsapigatewayv2.CorsHttpMethod{
				awsapigatewayv2.CorsHttpMethod_GET,
				awsapigatewayv2.CorsHttpMethod_OPTIONS,
			},
			AllowHeaders: jsii.Strings("Authorization", "Content-Type"),
		},
	})
	app.HttpApi.AddRoutes(&awsapigatewayv2.AddRoutesOptions{
		Path:    jsii.String(PhotosRoutePath),
		Methods: &[]awsapigatewayv2.HttpMethod{awsapigatewayv2.HttpMethod_GET},
		Integration: awsapigatewayv2integrations.NewHttpLambdaIntegration(
			jsii.String("GetPhotosIntegration"), app.Function, nil,
		),
	})

	awscdk.NewCfnOutput(stack, jsii.String("PhotoBucketNameExport"), &awscdk.CfnOutputProps{
		Value:      app.PhotoBucket.BucketName(),
		ExportName: jsii.String(PhotoBucketExportName),
	})
	awscdk.NewCfnOutput(stack, jsii.String("PhotoApiUrl"), &awscdk.CfnOutputProps{
		Value: app.HttpApi.Url(),
	})

	if props.WebsiteAssetPath != "" {
		app.addWebsite(props.WebsiteAssetPath)
	}

	return app
}

// addWebsite раздает статический сайт через CloudFront и проксирует /getAllPhotos
// в HTTP API, чтобы страница ходила в API с того же origin.
func (app *PhotoAppStack) addWebsite(assetPath string) {
	stack := app.Stack

	app.Website = awss3.NewBucket(stack, jsii.String("WebsiteBucket"), &awss3.BucketProps{
		BlockPublicAccess: awss3.BlockPublicAccess_BLOCK_ALL(),
		ObjectOwnership:   awss3.ObjectOwnership_BUCKET_OWNER_ENFORCED,
		EnforceSSL:        jsii.Bool(true),
		RemovalPolicy:     awscdk.RemovalPolicy_DESTROY,
		AutoDeleteObjects: jsii.Bool(true),
	})

	// ApiEndpoint имеет вид https://<id>.execute-api.<region>.amazonaws.com.
	apiDomain := awscdk.Fn_Select(jsii.Number(2), awscdk.Fn_Split(jsii.String("/"), app.HttpApi.ApiEndpoint(), nil))

	app.Distribution = awscloudfront.NewDistribution(stack, jsii.String("WebsiteDistribution"), &awscloudfront.DistributionProps{
		DefaultRootObject: jsii.String("index.html"),
		DefaultBehavior: &awscloudfront.BehaviorOptions{
			Origin:               awscloudfrontorigins.S3BucketOrigin_WithOriginAccessControl(app.Website, nil),
			ViewerProtocolPolicy: awscloudfront.ViewerProtocolPolicy_REDIRECT_TO_HTTPS,
		},
		AdditionalBehaviors: &map[string]*awscloudfront.BehaviorOptions{
			PhotosRoutePath: {
				Origin:               awscloudfrontorigins.NewHttpOrigin(apiDomain, nil),
				ViewerProtocolPolicy: awscloudfront.ViewerProtocolPolicy_REDIRECT_TO_HTTPS,
				// Подписанные URL истекают, кешировать ответ нельзя.
				CachePolicy:         awscloudfront.CachePolicy_CACHING_DISABLED(),
				OriginRequestPolicy: awscloudfront.OriginRequestPolicy_ALL_VIEWER_EXCEPT_HOST_HEADER(),
				AllowedMethods:      awscloudfront.AllowedMethods_ALLOW_GET_HEAD_OPTIONS(),
			},
		},
	})

	awss3deployment.NewBucketDeployment(stack, jsii.String("WebsiteDeployment"), &awss3deployment.BucketDeploymentProps{
		Sources: &[]awss3deployment.ISource{
			awss3deployment.Source_Asset(jsii.String(assetPath), &awss3assets.AssetOptions{
				Exclude: jsii.Strings("*.go"),
			}),
		},
		DestinationBucket: app.Website,
		Distribution:      app.Distribution,
		DistributionPaths: jsii.Strings("/*"),
	})

	awscdk.NewCfnOutput(stack, jsii.String("WebsiteBucketName"), &awscdk.CfnOutputProps{
		Value: app.Website.BucketName(),
	})
	awscdk.NewCfnOutput(stack, jsii.String("WebsiteUrl"), &awscdk.CfnOutputProps{
		Value: awscdk.Fn_Join(jsii.String(""), jsii.Strings("https://", *app.Distribution.DomainName())),
	})
}
