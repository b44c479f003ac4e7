// Package offload moves visitor photos out of the visitor slot and onto a
// CDN once a sign-in has been stored.
package offload

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"visitorlog/internal/cloudinary"
	"visitorlog/internal/photo"
	"visitorlog/internal/queue"
	"visitorlog/internal/visitor"
)

// Uploader stores a data URI and returns its hosted location.
type Uploader interface {
	UploadDataURI(ctx context.Context, dataURI, publicID string) (*cloudinary.UploadResult, error)
}

// Photos is the part of visitor.Service the offloader needs.
type Photos interface {
	Get(ctx context.Context, id string) (visitor.Record, error)
	SetPhoto(ctx context.Context, id, photoRef string) error
}

// Offloader consumes sign-in events and swaps embedded photos for URLs.
type Offloader struct {
	photos   Photos
	uploader Uploader
	results  *prometheus.CounterVec
	log      logrus.FieldLogger
}

// New creates an offloader. A nil uploader drains events without uploading.
func New(photos Photos, uploader Uploader, results *prometheus.CounterVec, log logrus.FieldLogger) *Offloader {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Offloader{
		photos:   photos,
		uploader: uploader,
		results:  results,
		log:      log.WithField("component", "photo_offload"),
	}
}

// Run processes messages until the queue closes or ctx is done.
func (o *Offloader) Run(ctx context.Context, q queue.Queue) error {
	messages, err := q.Consume(ctx)
	if err != nil {
		return err
	}
	o.log.WithField("enabled", o.uploader != nil).Info("photo offloader started")
	for msg := range messages {
		if msg.Type != queue.TypeSignedIn {
			continue
		}
		if err := o.Handle(ctx, string(msg.Body)); err != nil {
			o.log.WithError(err).WithField("visitor_id", string(msg.Body)).Warn("photo offload failed")
		}
	}
	o.log.Info("photo offloader stopped")
	return nil
}

// Start runs the offloader in the background. stop cancels it and returns
// once Run has, so callers can close the store afterwards.
func (o *Offloader) Start(ctx context.Context, q queue.Queue) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := o.Run(ctx, q); err != nil {
			o.log.WithError(err).Error("photo offloader")
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

// Handle uploads the photo of visitor id if it is still embedded.
func (o *Offloader) Handle(ctx context.Context, id string) error {
	if o.uploader == nil {
		o.count("skipped")
		return nil
	}
	rec, err := o.photos.Get(ctx, id)
	if errors.Is(err, visitor.ErrNotFound) {
		// Deleted before we got to it.
		o.count("skipped")
		return nil
	}
	if err != nil {
		o.count("error")
		return err
	}
	if !photo.IsDataURI(rec.Photo) {
		o.count("skipped")
		return nil
	}

	res, err := o.uploader.UploadDataURI(ctx, rec.Photo, id)
	if err != nil {
		o.count("error")
		return err
	}
	if err := o.photos.SetPhoto(ctx, id, res.SecureURL); err != nil {
		o.count("error")
		return err
	}
	o.count("uploaded")
	o.log.WithFields(logrus.Fields{"visitor_id": id, "public_id": res.PublicID}).Info("visitor photo offloaded")
	return nil
}

func (o *Offloader) count(result string) {
	if o.results != nil {
		o.results.WithLabelValues(result).Inc()
	}
}
