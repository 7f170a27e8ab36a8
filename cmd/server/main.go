package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/lalitraj881/Fire-Tech-Shield-V2-sub000/internal/config"
	"github.com/lalitraj881/Fire-Tech-Shield-V2-sub000/internal/delivery"
	"github.com/lalitraj881/Fire-Tech-Shield-V2-sub000/internal/domain"
	"github.com/lalitraj881/Fire-Tech-Shield-V2-sub000/internal/erp"
	"github.com/lalitraj881/Fire-Tech-Shield-V2-sub000/internal/infrastructure"
	"github.com/lalitraj881/Fire-Tech-Shield-V2-sub000/internal/inspection"
	"github.com/lalitraj881/Fire-Tech-Shield-V2-sub000/internal/logger"
	"github.com/lalitraj881/Fire-Tech-Shield-V2-sub000/internal/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		return
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid config: %v\n", err)
		return
	}

	log, err := logger.New(cfg.App.LogLevel)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		return
	}
	defer log.Sync()

	// 1. Local cache
	store, err := storage.Open(cfg.Cache.Path)
	if err != nil {
		log.Fatal("Unable to open local cache", zap.Error(err))
	}
	defer store.Close()

	// 2. ERP client
	client := erp.NewClient(cfg.ERP.BaseURL, cfg.ERP.Token, cfg.ERP.Timeout, log)

	// 3. Evidence storage backend
	var evidenceStore domain.FileStorage
	switch cfg.Storage.Backend {
	case "filesystem":
		log.Info("Using FileSystem evidence storage", zap.String("path", cfg.Storage.Path))
		evidenceStore = infrastructure.NewFileSystemStorage(cfg.Storage.Path)
	case "s3":
		s3Client, err := newS3Client(ctx, cfg)
		if err != nil {
			log.Fatal("Unable to configure S3", zap.Error(err))
		}
		log.Info("Using S3 evidence storage", zap.String("bucket", cfg.Storage.Bucket))
		evidenceStore = infrastructure.NewS3Storage(s3Client, cfg.Storage.Bucket)
	default:
		log.Info("Using ERP evidence storage", zap.String("base_url", cfg.ERP.BaseURL))
		evidenceStore = infrastructure.NewERPFileStorage(client, cfg.ERP.BaseURL)
	}

	// 4. Core
	submitter := inspection.NewSubmitter(client, evidenceStore, store, log)

	// 5. Delivery
	handler := delivery.NewHandler(client, store, submitter, log)

	mux := http.NewServeMux()
	mux.Handle("/api/", handler)

	// Static uploads route (for FileSystem storage)
	if cfg.Storage.Backend == "filesystem" {
		mux.Handle("/uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.Storage.Path))))
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Info("Field gateway starting", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal("Server failed", zap.Error(err))
	}
}

func newS3Client(ctx context.Context, cfg *config.Config) (*s3.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(cfg.Storage.Region))

	// Custom endpoint (MinIO / LocalStack style deployments)
	if cfg.Storage.Endpoint != "" {
		endpoint := cfg.Storage.Endpoint
		region := cfg.Storage.Region
		customResolver := aws.EndpointResolverWithOptionsFunc(func(service, _ string, options ...interface{}) (aws.Endpoint, error) {
			if service == s3.ServiceID {
				return aws.Endpoint{
					PartitionID:   "aws",
					URL:           endpoint,
					SigningRegion: region,
				}, nil
			}
			return aws.Endpoint{}, &aws.EndpointNotFoundError{}
		})
		opts = append(opts, awsconfig.WithEndpointResolverWithOptions(customResolver))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.Endpoint != "" {
			o.UsePathStyle = true
		}
	}), nil
}
