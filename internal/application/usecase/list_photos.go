package usecase

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dreschagin/photo-gallery/internal/application/port"
	"github.com/dreschagin/photo-gallery/internal/domain/apperror"
	"github.com/dreschagin/photo-gallery/internal/domain/entity"
	"github.com/dreschagin/photo-gallery/internal/domain/valueobject"
	"github.com/dreschagin/photo-gallery/pkg/logger"
)

const (
	opListPhotos = "photos.list"
	opSignPhoto  = "photos.sign"

	defaultSignConcurrency = 16
	defaultPublishTimeout  = 500 * time.Millisecond

	MetricPhotosListed = "PhotosListed"
	MetricListDuration = "ListDuration"
	MetricListFailures = "ListFailures"
)

type ListPhotosConfig struct {
	KeyPrefix string
	URLExpiry time.Duration
	// SignConcurrency ограничивает число одновременных presign-вызовов; 0 - значение по умолчанию.
	SignConcurrency int
	// MaxObjects - предел листинга; при превышении запрос завершается ошибкой, а не обрезается.
	MaxObjects int
}

// ListPhotosUseCase перечисляет фотографии бакета и подписывает URL для каждой.
type ListPhotosUseCase struct {
	storage          port.PhotoStorage
	metricsPublisher port.MetricsPublisher
	config           ListPhotosConfig
	expiry           valueobject.URLExpiry
	logger           *logger.Logger
	now              func() time.Time
	publishTimeout   time.Duration
}

func NewListPhotosUseCase(
	storage port.PhotoStorage,
	metricsPublisher port.MetricsPublisher,
	config ListPhotosConfig,
	log *logger.Logger,
) (*ListPhotosUseCase, error) {
	expiry, err := valueobject.NewURLExpiry(config.URLExpiry)
	if err != nil {
		return nil, err
	}
	if config.SignConcurrency <= 0 {
		config.SignConcurrency = defaultSignConcurrency
	}
	if config.MaxObjects < 0 {
		config.MaxObjects = 0
	}
	if log == nil {
		log = logger.NewNop()
	}

	return &ListPhotosUseCase{
		storage:          storage,
		metricsPublisher: metricsPublisher,
		config:           config,
		expiry:           expiry,
		logger:           log,
		now:              time.Now,
		publishTimeout:   defaultPublishTimeout,
	}, nil
}

// Execute возвращает фотографии в порядке листинга.
// Любая ошибка листинга или подписи прерывает весь запрос: частичный результат не возвращается.
func (uc *ListPhotosUseCase) Execute(ctx context.Context) ([]*entity.Photo, error) {
	startedAt := time.Now()

	photos, err := uc.execute(ctx)
	uc.publishMetrics(ctx, time.Since(startedAt), len(photos), err)

	if err != nil {
		// Ошибку на уровне ERROR логирует вызывающий слой вместе с request_id.
		uc.logger.Debug("Photo listing aborted",
			"kind", string(apperror.KindOf(err)),
			"prefix", uc.config.KeyPrefix,
			"error", err.Error(),
		)
		return nil, err
	}

	fields := []interface{}{
		"count", len(photos),
		"duration_ms", time.Since(startedAt).Milliseconds(),
	}
	if expiresAt, ok := earliestExpiry(photos); ok {
		fields = append(fields, "expires_at", expiresAt.Format(time.RFC3339))
	}
	uc.logger.Debug("Photos listed", fields...)
	return photos, nil
}

func (uc *ListPhotosUseCase) execute(ctx context.Context) ([]*entity.Photo, error) {
	if uc.storage == nil {
		return nil, apperror.New(apperror.KindInternal, opListPhotos, "photo storage is not configured")
	}

	objects, err := uc.storage.ListObjects(ctx, port.ListObjectsQuery{
		Prefix:     uc.config.KeyPrefix,
		MaxObjects: uc.config.MaxObjects,
	})
	if err != nil {
		return nil, apperror.WithOp(err, opListPhotos)
	}

	// Каждая горутина пишет только в свой индекс, поэтому порядок листинга сохраняется без блокировок.
	photos := make([]*entity.Photo, len(objects))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(uc.config.SignConcurrency)

	ttl := uc.expiry.Duration()
	for i, object := range objects {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return apperror.Wrap(err, apperror.KindTransient, opSignPhoto, apperror.DefaultMessage(apperror.KindTransient))
			}

			signedAt := uc.now()
			url, err := uc.storage.PresignGetObject(groupCtx, object.Key, ttl)
			if err != nil {
				return apperror.WithOp(err, opSignPhoto)
			}

			photo, err := entity.NewPhoto(object.Key, url, uc.expiry.ExpiresAt(signedAt))
			if err != nil {
				return apperror.Wrap(err, apperror.KindInternal, opSignPhoto, apperror.DefaultMessage(apperror.KindInternal))
			}

			photos[i] = photo
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	return photos, nil
}

func (uc *ListPhotosUseCase) publishMetrics(ctx context.Context, duration time.Duration, count int, err error) {
	if uc.metricsPublisher == nil {
		return
	}

	now := time.Now().UTC()
	metrics := []port.Metric{
		{
			Name:      MetricListDuration,
			Value:     float64(duration.Milliseconds()),
			Unit:      port.MetricUnitMilliseconds,
			Timestamp: now,
		},
	}

	if err != nil {
		metrics = append(metrics, port.Metric{
			Name:       MetricListFailures,
			Value:      1,
			Unit:       port.MetricUnitCount,
			Timestamp:  now,
			Dimensions: map[string]string{"ErrorKind": string(apperror.KindOf(err))},
		})
	} else {
		metrics = append(metrics, port.Metric{
			Name:      MetricPhotosListed,
			Value:     float64(count),
			Unit:      port.MetricUnitCount,
			Timestamp: now,
		})
	}

	// Метрики публикуются и после отмены запроса, но не дольше publishTimeout.
	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), uc.publishTimeout)
	defer cancel()

	if pubErr := uc.metricsPublisher.PublishBatch(publishCtx, metrics); pubErr != nil {
		uc.logger.Warn("Failed to publish photo listing metrics", "error", pubErr.Error())
	}
}

// earliestExpiry возвращает самый ранний момент истечения среди подписей.
func earliestExpiry(photos []*entity.Photo) (time.Time, bool) {
	var earliest time.Time
	for _, photo := range photos {
		if earliest.IsZero() || photo.ExpiresAt().Before(earliest) {
			earliest = photo.ExpiresAt()
		}
	}
	return earliest, !earliest.IsZero()
}
