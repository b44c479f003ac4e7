package visitor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"visitorlog/internal/photo"
	"visitorlog/internal/queue"
)

var (
	ErrNotFound          = errors.New("visitor not found")
	ErrAgreementRequired = errors.New("terms and conditions must be accepted")
	ErrInvalidForm       = errors.New("invalid visitor details")
)

// Form is the kiosk sign-in input.
type Form struct {
	Name               string `form:"name" json:"name" validate:"required"`
	Surname            string `form:"surname" json:"surname" validate:"required"`
	Company            string `form:"company" json:"company"`
	VisitorPhoneNumber string `form:"visitorPhoneNumber" json:"visitorPhoneNumber"`
	ReasonForVisit     string `form:"reasonForVisit" json:"reasonForVisit" validate:"required"`
	Host               string `form:"host" json:"host" validate:"required"`
	AgreementSigned    bool   `form:"agreementSigned" json:"agreementSigned"`
}

func (f Form) trimmed() Form {
	f.Name = strings.TrimSpace(f.Name)
	f.Surname = strings.TrimSpace(f.Surname)
	f.Company = strings.TrimSpace(f.Company)
	f.ReasonForVisit = strings.TrimSpace(f.ReasonForVisit)
	f.Host = strings.TrimSpace(f.Host)
	return f
}

// Publisher is the part of queue.Queue the service needs.
type Publisher interface {
	Publish(ctx context.Context, msg queue.Message) error
}

// Options configures a Service. Zero values fall back to defaults.
type Options struct {
	Clock       func() time.Time
	Location    *time.Location
	PhoneRegion string
	Events      Publisher
	Logger      logrus.FieldLogger
}

// Service owns every mutation of the visitor sequence. Each mutation is a
// full read-modify-write of the slot, serialised within this process.
type Service struct {
	repo        *Repository
	mu          sync.Mutex
	now         func() time.Time
	loc         *time.Location
	phoneRegion string
	events      Publisher
	log         logrus.FieldLogger
	validate    *validator.Validate
}

// NewService creates a service backed by a repository.
func NewService(repo *Repository, opts Options) *Service {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.PhoneRegion == "" {
		opts.PhoneRegion = "ZA"
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &Service{
		repo:        repo,
		now:         opts.Clock,
		loc:         opts.Location,
		phoneRegion: opts.PhoneRegion,
		events:      opts.Events,
		log:         opts.Logger.WithField("component", "visitor_service"),
		validate:    validator.New(),
	}
}

// Now returns the service clock in the visitor timezone.
func (s *Service) Now() time.Time {
	return s.now().In(s.loc)
}

// Location is the timezone visitor dates are recorded in.
func (s *Service) Location() *time.Location {
	return s.loc
}

// SignIn validates the form, captures a photo and appends a new record.
func (s *Service) SignIn(ctx context.Context, form Form, cam photo.Camera) (Record, error) {
	if !form.AgreementSigned {
		return Record{}, ErrAgreementRequired
	}
	form = form.trimmed()
	if err := s.validate.Struct(form); err != nil {
		return Record{}, fmt.Errorf("%w: %s", ErrInvalidForm, describeValidation(err))
	}
	if cam == nil {
		return Record{}, photo.ErrNoPhoto
	}
	raw, err := cam.CapturePhoto(ctx)
	if err != nil {
		return Record{}, err
	}
	jpeg, err := photo.Normalize(raw)
	if err != nil {
		return Record{}, err
	}

	now := s.Now()
	rec := Record{
		ID:                 uuid.NewString(),
		Name:               form.Name,
		Surname:            form.Surname,
		Company:            form.Company,
		VisitorPhoneNumber: NormalizePhone(form.VisitorPhoneNumber, s.phoneRegion),
		Photo:              photo.EncodeDataURI("image/jpeg", jpeg),
		ReasonForVisit:     form.ReasonForVisit,
		Host:               form.Host,
		Date:               now.Format(DateLayout),
		TimeIn:             now.Format(TimeLayout),
		AgreementSigned:    true,
	}

	err = s.mutate(ctx, func(records []Record) ([]Record, error) {
		return append(records, rec), nil
	})
	if err != nil {
		return Record{}, err
	}

	s.log.WithField("visitor_id", rec.ID).Info("visitor signed in")
	if s.events != nil {
		if err := s.events.Publish(ctx, queue.Message{Type: queue.TypeSignedIn, Body: []byte(rec.ID)}); err != nil {
			s.log.WithError(err).WithField("visitor_id", rec.ID).Warn("publish sign-in event failed")
		}
	}
	return rec, nil
}

// List returns every record in stored order.
func (s *Service) List(ctx context.Context) ([]Record, error) {
	return s.repo.LoadAll(ctx)
}

// Get returns one record by id.
func (s *Service) Get(ctx context.Context, id string) (Record, error) {
	records, err := s.repo.LoadAll(ctx)
	if err != nil {
		return Record{}, err
	}
	if i := indexOf(records, id); i >= 0 {
		return records[i], nil
	}
	return Record{}, ErrNotFound
}

// SignOut stamps the current time-of-day as TimeOut, overwriting any
// earlier sign-out.
func (s *Service) SignOut(ctx context.Context, id string) (Record, error) {
	var out Record
	err := s.mutate(ctx, func(records []Record) ([]Record, error) {
		i := indexOf(records, id)
		if i < 0 {
			return nil, ErrNotFound
		}
		records[i].TimeOut = s.Now().Format(TimeLayout)
		out = records[i]
		return records, nil
	})
	if err != nil {
		return Record{}, err
	}
	s.log.WithField("visitor_id", id).Info("visitor signed out")
	return out, nil
}

// Edit replaces the record carrying rev.ID with rev. Photo and
// AgreementSigned stay as stored; they belong to capture and offload.
func (s *Service) Edit(ctx context.Context, rev Record) (Record, error) {
	return s.Update(ctx, rev.ID, func(current Record) (Record, error) {
		rev.Photo = current.Photo
		rev.AgreementSigned = current.AgreementSigned
		return rev, nil
	})
}

// Update reads the record with id, applies revise and writes the result
// back within one locked read-modify-write.
func (s *Service) Update(ctx context.Context, id string, revise func(Record) (Record, error)) (Record, error) {
	var out Record
	err := s.mutate(ctx, func(records []Record) ([]Record, error) {
		i := indexOf(records, id)
		if i < 0 {
			return nil, ErrNotFound
		}
		rev, err := revise(records[i])
		if err != nil {
			return nil, err
		}
		rev.ID = id
		rev.Name = strings.TrimSpace(rev.Name)
		rev.Surname = strings.TrimSpace(rev.Surname)
		rev.TimeOut = strings.TrimSpace(rev.TimeOut)
		if rev.Name == "" || rev.Surname == "" {
			return nil, fmt.Errorf("%w: name and surname are required", ErrInvalidForm)
		}
		records[i] = rev
		out = rev
		return records, nil
	})
	if err != nil {
		return Record{}, err
	}
	s.log.WithField("visitor_id", id).Info("visitor edited")
	return out, nil
}

// Delete removes the record with id, keeping the order of the rest.
func (s *Service) Delete(ctx context.Context, id string) error {
	err := s.mutate(ctx, func(records []Record) ([]Record, error) {
		i := indexOf(records, id)
		if i < 0 {
			return nil, ErrNotFound
		}
		return append(records[:i], records[i+1:]...), nil
	})
	if err != nil {
		return err
	}
	s.log.WithField("visitor_id", id).Info("visitor deleted")
	return nil
}

// SetPhoto replaces a record's photo, e.g. with a hosted URL.
func (s *Service) SetPhoto(ctx context.Context, id, photoRef string) error {
	return s.mutate(ctx, func(records []Record) ([]Record, error) {
		i := indexOf(records, id)
		if i < 0 {
			return nil, ErrNotFound
		}
		records[i].Photo = photoRef
		return records, nil
	})
}

func (s *Service) mutate(ctx context.Context, fn func([]Record) ([]Record, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.repo.LoadAll(ctx)
	if err != nil {
		return err
	}
	updated, err := fn(records)
	if err != nil {
		return err
	}
	return s.repo.SaveAll(ctx, updated)
}

func indexOf(records []Record, id string) int {
	for i := range records {
		if records[i].ID == id {
			return i
		}
	}
	return -1
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field()+" is "+fe.Tag())
	}
	return strings.Join(fields, ", ")
}
